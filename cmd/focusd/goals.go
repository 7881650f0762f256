package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/focusd/focusd/internal/models"
	"github.com/focusd/focusd/pkg/utils"
)

var goalsCmd = &cobra.Command{
	Use:   "goals",
	Short: "List daily usage goals and today's progress",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, repo, err := openRepository(cliLogger())
		if err != nil {
			return err
		}
		defer db.Close()

		loc, err := cfg.Location()
		if err != nil {
			return err
		}
		progress, err := repo.GoalProgress(commandContext(cmd), time.Now().In(loc))
		if err != nil {
			return err
		}
		if len(progress) == 0 {
			fmt.Println("No goals configured")
			return nil
		}

		over := color.New(color.FgRed, color.Bold)
		under := color.New(color.FgGreen)
		for _, p := range progress {
			c := under
			if p.Exceeded {
				c = over
			}
			c.Printf("%-30s %8s / %-8s %5.0f%%\n",
				p.Goal.AppIdentifier,
				utils.FormatDuration(p.UsedSeconds),
				utils.FormatDuration(int64(p.Goal.MaxMinutes)*60),
				p.UsedPercent)
		}
		return nil
	},
}

var goalsSetCmd = &cobra.Command{
	Use:   "set APP MINUTES",
	Short: "Set the daily limit for an app",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		minutes, err := strconv.Atoi(args[1])
		if err != nil {
			return errors.Wrap(err, "minutes must be a number")
		}

		db, repo, err := openRepository(cliLogger())
		if err != nil {
			return err
		}
		defer db.Close()

		goal := &models.DailyGoal{AppIdentifier: args[0], MaxMinutes: minutes, NotifyEnabled: true}
		if err := repo.UpsertGoal(commandContext(cmd), goal); err != nil {
			return err
		}
		fmt.Printf("Goal for %s set to %d minutes per day\n", args[0], minutes)
		return nil
	},
}

var goalsRmCmd = &cobra.Command{
	Use:   "rm APP",
	Short: "Remove the goal for an app",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, repo, err := openRepository(cliLogger())
		if err != nil {
			return err
		}
		defer db.Close()

		if err := repo.DeleteGoal(commandContext(cmd), args[0]); err != nil {
			return err
		}
		fmt.Printf("Goal for %s removed\n", args[0])
		return nil
	},
}

var aliasesCmd = &cobra.Command{
	Use:   "aliases",
	Short: "List display names for app identifiers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, repo, err := openRepository(cliLogger())
		if err != nil {
			return err
		}
		defer db.Close()

		aliases, err := repo.ListAliases(commandContext(cmd))
		if err != nil {
			return err
		}
		if len(aliases) == 0 {
			fmt.Println("No aliases configured")
			return nil
		}
		for _, a := range aliases {
			fmt.Printf("%-30s %s\n", a.AppIdentifier, a.Alias)
		}
		return nil
	},
}

var aliasesSetCmd = &cobra.Command{
	Use:   "set APP NAME",
	Short: "Show APP as NAME in reports",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, repo, err := openRepository(cliLogger())
		if err != nil {
			return err
		}
		defer db.Close()

		if err := repo.SetAlias(commandContext(cmd), args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("%s will be shown as %q\n", args[0], args[1])
		return nil
	},
}

var aliasesRmCmd = &cobra.Command{
	Use:   "rm APP",
	Short: "Remove the alias for an app",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, repo, err := openRepository(cliLogger())
		if err != nil {
			return err
		}
		defer db.Close()

		return repo.DeleteAlias(commandContext(cmd), args[0])
	},
}

func init() {
	goalsCmd.AddCommand(goalsSetCmd, goalsRmCmd)
	aliasesCmd.AddCommand(aliasesSetCmd, aliasesRmCmd)
	rootCmd.AddCommand(goalsCmd, aliasesCmd)
}
