package reporter

import (
	"context"
	"fmt"
	"strings"

	"github.com/focusd/focusd/internal/models"
	"github.com/focusd/focusd/pkg/utils"
)

// GenerateCategoryReport totals a named period by category. Time of apps in
// no category is reported separately.
func (r *Reporter) GenerateCategoryReport(ctx context.Context, periodType string) (*models.CategoryReport, error) {
	period, err := r.getPeriod(periodType)
	if err != nil {
		return nil, err
	}

	usage, err := r.repo.CategoryTotals(ctx, period.Start, period.End)
	if err != nil {
		return nil, fmt.Errorf("failed to get category totals: %w", err)
	}
	totals, err := r.repo.AppTotals(ctx, period.Start, period.End)
	if err != nil {
		return nil, fmt.Errorf("failed to get app summary: %w", err)
	}
	aliases, err := r.repo.AliasMap(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load aliases: %w", err)
	}

	categorized := make(map[string]bool)
	for i := range usage {
		for j := range usage[i].Apps {
			app := &usage[i].Apps[j]
			app.DisplayName = aliases[app.AppName]
			app.TotalMinutes = float64(app.TotalSeconds) / 60.0
			app.TotalHours = float64(app.TotalSeconds) / 3600.0
			if usage[i].TotalSeconds > 0 {
				app.Percentage = float64(app.TotalSeconds) / float64(usage[i].TotalSeconds) * 100.0
			}
			categorized[app.AppName] = true
		}
	}

	report := &models.CategoryReport{
		Period:      *period,
		Categories:  usage,
		GeneratedAt: r.now(),
	}
	if report.Categories == nil {
		report.Categories = []models.CategoryUsage{}
	}
	for _, t := range totals {
		report.TotalSeconds += t.TotalSeconds
		if !categorized[t.AppName] {
			report.UncategorizedSeconds += t.TotalSeconds
		}
	}
	return report, nil
}

// FormatCategoriesText renders a category report as a table of categories,
// each followed by its apps.
func (r *Reporter) FormatCategoriesText(report *models.CategoryReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Category Report - %s\n", report.Period.Type)
	fmt.Fprintf(&b, "Period: %s to %s\n\n",
		report.Period.Start.In(r.loc).Format("2006-01-02 15:04"),
		report.Period.End.In(r.loc).Format("2006-01-02 15:04"))

	if len(report.Categories) == 0 {
		b.WriteString("No categories defined. Create one with: focusd categories add <name>\n")
		return b.String()
	}

	for _, c := range report.Categories {
		name := c.Category.Name
		if c.Category.Icon != "" {
			name = c.Category.Icon + " " + name
		}
		fmt.Fprintf(&b, "%s %10s\n", utils.PadRight(utils.Truncate(name, 30), 30), utils.FormatDuration(c.TotalSeconds))
		for _, app := range c.Apps {
			label := app.AppName
			if app.DisplayName != "" {
				label = app.DisplayName
			}
			fmt.Fprintf(&b, "  %s %10s\n", utils.PadRight(utils.Truncate(label, 28), 28), utils.FormatDuration(app.TotalSeconds))
		}
	}

	fmt.Fprintf(&b, "\n%s %10s\n", utils.PadRight("Uncategorized", 30), utils.FormatDuration(report.UncategorizedSeconds))
	fmt.Fprintf(&b, "%s %10s\n", utils.PadRight("Total", 30), utils.FormatDuration(report.TotalSeconds))
	return b.String()
}
