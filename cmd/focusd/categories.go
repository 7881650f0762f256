package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/focusd/focusd/internal/models"
	"github.com/focusd/focusd/internal/reporter"
)

var (
	categoryIcon  string
	categoryColor string
	categoryJSON  bool
)

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List app categories and their apps",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, repo, err := openRepository(cliLogger())
		if err != nil {
			return err
		}
		defer db.Close()

		ctx := commandContext(cmd)
		categories, err := repo.ListCategories(ctx)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(categories) == 0 {
			fmt.Fprintln(out, "No categories defined")
			return nil
		}

		bold := color.New(color.Bold)
		for _, c := range categories {
			apps, err := repo.CategoryApps(ctx, c.ID)
			if err != nil {
				return err
			}
			bold.Fprintf(out, "%s\n", categoryLabel(c))
			if len(apps) == 0 {
				fmt.Fprintln(out, "  (no apps)")
				continue
			}
			fmt.Fprintf(out, "  %s\n", strings.Join(apps, ", "))
		}
		return nil
	},
}

var categoriesAddCmd = &cobra.Command{
	Use:     "add NAME",
	Short:   "Create a category",
	Example: `  focusd categories add Work --icon W --color "#2e7d32"`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, repo, err := openRepository(cliLogger())
		if err != nil {
			return err
		}
		defer db.Close()

		c := &models.Category{Name: args[0], Icon: categoryIcon, Color: categoryColor}
		if _, err := repo.CreateCategory(commandContext(cmd), c); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Category %s created\n", c.Name)
		return nil
	},
}

var categoriesRmCmd = &cobra.Command{
	Use:   "rm NAME",
	Short: "Delete a category and its app assignments",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, repo, err := openRepository(cliLogger())
		if err != nil {
			return err
		}
		defer db.Close()

		ctx := commandContext(cmd)
		c, err := repo.GetCategoryByName(ctx, args[0])
		if err != nil {
			return err
		}
		if err := repo.DeleteCategory(ctx, c.ID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Category %s removed\n", c.Name)
		return nil
	},
}

var categoriesAssignCmd = &cobra.Command{
	Use:   "assign NAME APP",
	Short: "Add an app to a category",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, repo, err := openRepository(cliLogger())
		if err != nil {
			return err
		}
		defer db.Close()

		ctx := commandContext(cmd)
		c, err := repo.GetCategoryByName(ctx, args[0])
		if err != nil {
			return err
		}
		if err := repo.AddAppToCategory(ctx, args[1], c.ID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s added to %s\n", args[1], c.Name)
		return nil
	},
}

var categoriesUnassignCmd = &cobra.Command{
	Use:   "unassign NAME APP",
	Short: "Remove an app from a category",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, repo, err := openRepository(cliLogger())
		if err != nil {
			return err
		}
		defer db.Close()

		ctx := commandContext(cmd)
		c, err := repo.GetCategoryByName(ctx, args[0])
		if err != nil {
			return err
		}
		if err := repo.RemoveAppFromCategory(ctx, args[1], c.ID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s removed from %s\n", args[1], c.Name)
		return nil
	},
}

var categoriesReportCmd = &cobra.Command{
	Use:   "report [day|yesterday|week|month]",
	Short: "Report active time by category",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		periodType := "day"
		if len(args) > 0 {
			periodType = args[0]
		}

		db, repo, err := openRepository(cliLogger())
		if err != nil {
			return err
		}
		defer db.Close()

		rep := reporter.New(cfg, repo)
		report, err := rep.GenerateCategoryReport(commandContext(cmd), periodType)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if categoryJSON {
			body, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(body))
			return nil
		}
		fmt.Fprint(out, rep.FormatCategoriesText(report))
		return nil
	},
}

func categoryLabel(c models.Category) string {
	label := c.Name
	if c.Icon != "" {
		label = c.Icon + " " + label
	}
	if c.Color != "" {
		label += " (" + c.Color + ")"
	}
	return label
}

func init() {
	categoriesAddCmd.Flags().StringVar(&categoryIcon, "icon", "", "Icon shown before the category name")
	categoriesAddCmd.Flags().StringVar(&categoryColor, "color", "", "Display color, e.g. #2e7d32")
	categoriesReportCmd.Flags().BoolVar(&categoryJSON, "json", false, "Output JSON")

	categoriesCmd.AddCommand(categoriesAddCmd, categoriesRmCmd, categoriesAssignCmd, categoriesUnassignCmd, categoriesReportCmd)
	rootCmd.AddCommand(categoriesCmd)
}
