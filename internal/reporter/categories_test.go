package reporter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/focusd/focusd/internal/models"
)

func TestGenerateCategoryReport(t *testing.T) {
	r, repo := newReporter(t)
	ctx := context.Background()

	seed(t, repo, "a", "code", now.Add(-3*time.Hour), 2700)
	seed(t, repo, "b", "terminal", now.Add(-2*time.Hour), 900)
	seed(t, repo, "c", "firefox", now.Add(-time.Hour), 600)
	require.NoError(t, repo.SetAlias(ctx, "code", "VS Code"))

	work, err := repo.CreateCategory(ctx, &models.Category{Name: "Work", Icon: "W"})
	require.NoError(t, err)
	_, err = repo.CreateCategory(ctx, &models.Category{Name: "Reading"})
	require.NoError(t, err)
	require.NoError(t, repo.AddAppToCategory(ctx, "code", work))
	require.NoError(t, repo.AddAppToCategory(ctx, "terminal", work))

	report, err := r.GenerateCategoryReport(ctx, "today")
	require.NoError(t, err)

	assert.Equal(t, int64(4200), report.TotalSeconds)
	assert.Equal(t, int64(600), report.UncategorizedSeconds)
	require.Len(t, report.Categories, 2)

	cw := report.Categories[0]
	assert.Equal(t, "Work", cw.Category.Name)
	assert.Equal(t, int64(3600), cw.TotalSeconds)
	require.Len(t, cw.Apps, 2)
	assert.Equal(t, "VS Code", cw.Apps[0].DisplayName)
	assert.InDelta(t, 45.0, cw.Apps[0].TotalMinutes, 0.001)
	assert.InDelta(t, 75.0, cw.Apps[0].Percentage, 0.001)
	assert.InDelta(t, 25.0, cw.Apps[1].Percentage, 0.001)

	assert.Equal(t, "Reading", report.Categories[1].Category.Name)
	assert.Zero(t, report.Categories[1].TotalSeconds)

	text := r.FormatCategoriesText(report)
	assert.Contains(t, text, "Category Report - ")
	assert.Contains(t, text, "W Work")
	assert.Contains(t, text, "VS Code")
	assert.Contains(t, text, "Uncategorized")
	assert.Contains(t, text, "1h 00m")
}

func TestGenerateCategoryReportWithoutCategories(t *testing.T) {
	r, repo := newReporter(t)
	seed(t, repo, "a", "code", now.Add(-time.Hour), 120)

	report, err := r.GenerateCategoryReport(context.Background(), "today")
	require.NoError(t, err)
	assert.NotNil(t, report.Categories)
	assert.Empty(t, report.Categories)
	assert.Equal(t, int64(120), report.UncategorizedSeconds)

	assert.Contains(t, r.FormatCategoriesText(report), "No categories defined")

	_, err = r.GenerateCategoryReport(context.Background(), "fortnight")
	assert.Error(t, err)
}
