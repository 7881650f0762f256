package reporter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/goccy/go-json"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"github.com/focusd/focusd/internal/config"
	"github.com/focusd/focusd/internal/database"
	"github.com/focusd/focusd/internal/models"
	"github.com/focusd/focusd/pkg/utils"
)

// Reporter handles report generation
type Reporter struct {
	config *config.Config
	repo   *database.Repository
	loc    *time.Location
	now    func() time.Time
	parser *when.Parser
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithClock overrides the time source used to resolve periods.
func WithClock(now func() time.Time) Option {
	return func(r *Reporter) {
		r.now = now
	}
}

// New creates a new reporter
func New(cfg *config.Config, repo *database.Repository, opts ...Option) *Reporter {
	loc, err := cfg.Location()
	if err != nil {
		loc = time.Local
	}

	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	r := &Reporter{
		config: cfg,
		repo:   repo,
		loc:    loc,
		now:    time.Now,
		parser: w,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GenerateReport generates a report for a named period: day, week or month.
func (r *Reporter) GenerateReport(ctx context.Context, periodType string) (*models.Report, error) {
	period, err := r.getPeriod(periodType)
	if err != nil {
		return nil, err
	}
	return r.build(ctx, period)
}

// GenerateSince generates a report from a natural-language start such as
// "yesterday" or "last monday" up to now.
func (r *Reporter) GenerateSince(ctx context.Context, since string) (*models.Report, error) {
	now := r.now().In(r.loc)
	start, err := r.ParseTime(since, now)
	if err != nil {
		return nil, err
	}
	if !start.Before(now) {
		return nil, fmt.Errorf("start %s is not in the past", start.Format(time.RFC3339))
	}

	return r.build(ctx, &models.ReportPeriod{Start: start, End: now, Type: "custom"})
}

// GenerateRange generates a report for an explicit range.
func (r *Reporter) GenerateRange(ctx context.Context, start, end time.Time) (*models.Report, error) {
	if !start.Before(end) {
		return nil, fmt.Errorf("invalid range: %s is not before %s", start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return r.build(ctx, &models.ReportPeriod{Start: start, End: end, Type: "custom"})
}

// ParseTime accepts RFC 3339, YYYY-MM-DD or an English expression.
func (r *Reporter) ParseTime(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", s, r.loc); err == nil {
		return t, nil
	}

	res, err := r.parser.Parse(s, now)
	if err != nil || res == nil {
		return time.Time{}, fmt.Errorf("cannot understand time %q", s)
	}
	return res.Time, nil
}

func (r *Reporter) build(ctx context.Context, period *models.ReportPeriod) (*models.Report, error) {
	// Get raw summaries from database (SQL does the SUM)
	summaries, err := r.repo.AppTotals(ctx, period.Start, period.End)
	if err != nil {
		return nil, fmt.Errorf("failed to get app summary: %w", err)
	}

	aliases, err := r.repo.AliasMap(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load aliases: %w", err)
	}

	// Runtime calculates derived fields and percentages
	var totalSeconds int64
	for i := range summaries {
		summaries[i].DisplayName = aliases[summaries[i].AppName]
		summaries[i].TotalMinutes = float64(summaries[i].TotalSeconds) / 60.0
		summaries[i].TotalHours = float64(summaries[i].TotalSeconds) / 3600.0
		totalSeconds += summaries[i].TotalSeconds
	}

	if totalSeconds > 0 {
		for i := range summaries {
			summaries[i].Percentage = (float64(summaries[i].TotalSeconds) / float64(totalSeconds)) * 100.0
		}
	}

	afkSeconds, err := r.repo.AfkTotal(ctx, period.Start, period.End)
	if err != nil {
		return nil, fmt.Errorf("failed to get afk total: %w", err)
	}
	intervals, err := r.repo.ListAfkIntervals(ctx, period.Start, period.End)
	if err != nil {
		return nil, fmt.Errorf("failed to list afk intervals: %w", err)
	}

	report := &models.Report{
		Period:       *period,
		Apps:         summaries,
		TotalSeconds: totalSeconds,
		TotalMinutes: float64(totalSeconds) / 60.0,
		TotalHours:   float64(totalSeconds) / 3600.0,
		AfkSeconds:   afkSeconds,
		AfkIntervals: len(intervals),
		GeneratedAt:  r.now(),
	}

	// Goals are daily budgets, so they only apply to the current day.
	if period.Type == "day" {
		progress, err := r.repo.GoalProgress(ctx, r.now().In(r.loc))
		if err != nil {
			return nil, fmt.Errorf("failed to get goal progress: %w", err)
		}
		for _, p := range progress {
			if p.Exceeded {
				report.GoalsExceeded = append(report.GoalsExceeded, p.Goal.AppIdentifier)
			}
		}
	}

	return report, nil
}

// getPeriod calculates the time range for the report
func (r *Reporter) getPeriod(periodType string) (*models.ReportPeriod, error) {
	now := r.now().In(r.loc)
	var start, end time.Time

	switch periodType {
	case "day", "today":
		periodType = "day"
		start = database.StartOfDay(now)
		end = start.AddDate(0, 0, 1)

	case "yesterday":
		end = database.StartOfDay(now)
		start = end.AddDate(0, 0, -1)

	case "week":
		// Start of week (Monday)
		weekday := int(now.Weekday())
		if weekday == 0 {
			weekday = 7 // Sunday = 7
		}
		start = database.StartOfDay(now).AddDate(0, 0, -(weekday - 1))
		end = start.AddDate(0, 0, 7)

	case "month":
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		end = start.AddDate(0, 1, 0)

	default:
		return nil, fmt.Errorf("invalid period type: %s (valid: day, yesterday, week, month)", periodType)
	}

	return &models.ReportPeriod{
		Start: start,
		End:   end,
		Type:  periodType,
	}, nil
}

// FormatReportText formats the report as human-readable text
func (r *Reporter) FormatReportText(report *models.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Activity Report - %s\n", report.Period.Type)
	fmt.Fprintf(&b, "Period: %s to %s\n",
		report.Period.Start.In(r.loc).Format("2006-01-02 15:04"),
		report.Period.End.In(r.loc).Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Total Time: %.2fh (%.0fm)\n", report.TotalHours, report.TotalMinutes)
	if report.AfkIntervals > 0 {
		fmt.Fprintf(&b, "Away: %s in %s\n",
			utils.FormatDuration(report.AfkSeconds),
			humanizeCount(report.AfkIntervals, "interval"))
	}
	b.WriteString("\n")

	if len(report.Apps) == 0 {
		b.WriteString("No activity recorded for this period.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "%-30s %10s %10s %10s\n", "Application", "Hours", "Minutes", "Percent")
	fmt.Fprintf(&b, "%s\n", strings.Repeat("-", 80))

	for _, app := range report.Apps {
		name := app.AppName
		if app.DisplayName != "" {
			name = app.DisplayName
		}
		fmt.Fprintf(&b, "%s %10.2f %10.0f %9.1f%%\n",
			utils.PadRight(utils.Truncate(name, 30), 30),
			app.TotalHours,
			app.TotalMinutes,
			app.Percentage)
	}

	if len(report.GoalsExceeded) > 0 {
		fmt.Fprintf(&b, "\nDaily goal exceeded: %s\n", strings.Join(report.GoalsExceeded, ", "))
	}

	return b.String()
}

// FormatReportJSON formats the report as JSON
func (r *Reporter) FormatReportJSON(report *models.Report) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

func humanizeCount(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return humanize.Comma(int64(n)) + " " + unit + "s"
}
