package database

import (
	"time"

	"github.com/pkg/errors"

	"github.com/focusd/focusd/internal/models"
)

func (s *RepositorySuite) createCategory(name string) uint {
	id, err := s.repo.CreateCategory(s.ctx, &models.Category{Name: name})
	s.Require().NoError(err)
	return id
}

func (s *RepositorySuite) TestCategoryCRUD() {
	id, err := s.repo.CreateCategory(s.ctx, &models.Category{Name: "  Work ", Icon: "W", Color: "#2e7d32"})
	s.Require().NoError(err)
	s.NotZero(id)

	got, err := s.repo.GetCategoryByName(s.ctx, "Work")
	s.Require().NoError(err)
	s.Equal(id, got.ID)
	s.Equal("W", got.Icon)

	_, err = s.repo.CreateCategory(s.ctx, &models.Category{Name: "Work"})
	s.True(errors.Is(err, ErrDuplicate), "%v", err)
	_, err = s.repo.CreateCategory(s.ctx, &models.Category{Name: ""})
	s.True(errors.Is(err, ErrInvalidRecord), "%v", err)

	play := s.createCategory("Play")
	err = s.repo.UpdateCategory(s.ctx, &models.Category{ID: play, Name: "Work"})
	s.True(errors.Is(err, ErrDuplicate), "%v", err)
	s.Require().NoError(s.repo.UpdateCategory(s.ctx, &models.Category{ID: play, Name: "Games", Color: "#c62828"}))
	s.ErrorIs(s.repo.UpdateCategory(s.ctx, &models.Category{ID: 999, Name: "Ghost"}), ErrNotFound)

	list, err := s.repo.ListCategories(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal("Games", list[0].Name)
	s.Equal("Work", list[1].Name)

	s.Require().NoError(s.repo.AddAppToCategory(s.ctx, "steam", play))
	s.Require().NoError(s.repo.DeleteCategory(s.ctx, play))
	s.ErrorIs(s.repo.DeleteCategory(s.ctx, play), ErrNotFound)
	_, err = s.repo.GetCategory(s.ctx, play)
	s.ErrorIs(err, ErrNotFound)

	var orphans int64
	s.Require().NoError(s.db.Model(&models.AppCategory{}).Where("category_id = ?", play).Count(&orphans).Error)
	s.Zero(orphans)
}

func (s *RepositorySuite) TestAppCategoryAssignments() {
	work := s.createCategory("Work")
	dev := s.createCategory("Dev")

	s.Require().NoError(s.repo.AddAppToCategory(s.ctx, "code", work))
	s.Require().NoError(s.repo.AddAppToCategory(s.ctx, "code", work))
	s.Require().NoError(s.repo.AddAppToCategory(s.ctx, "code", dev))
	s.ErrorIs(s.repo.AddAppToCategory(s.ctx, "code", 999), ErrNotFound)
	s.True(errors.Is(s.repo.AddAppToCategory(s.ctx, "", work), ErrInvalidRecord))

	apps, err := s.repo.CategoryApps(s.ctx, work)
	s.Require().NoError(err)
	s.Equal([]string{"code"}, apps)

	cats, err := s.repo.AppCategories(s.ctx, "code")
	s.Require().NoError(err)
	s.Require().Len(cats, 2)
	s.Equal("Dev", cats[0].Name)

	s.Require().NoError(s.repo.SetAppCategories(s.ctx, "code", []uint{work, work}))
	cats, err = s.repo.AppCategories(s.ctx, "code")
	s.Require().NoError(err)
	s.Require().Len(cats, 1)
	s.Equal("Work", cats[0].Name)

	s.ErrorIs(s.repo.SetAppCategories(s.ctx, "code", []uint{work, 999}), ErrNotFound)
	cats, err = s.repo.AppCategories(s.ctx, "code")
	s.Require().NoError(err)
	s.Len(cats, 1, "a failed replace keeps the old assignments")

	s.Require().NoError(s.repo.RemoveAppFromCategory(s.ctx, "code", work))
	s.ErrorIs(s.repo.RemoveAppFromCategory(s.ctx, "code", work), ErrNotFound)
}

func (s *RepositorySuite) TestCategoryTotals() {
	empty, err := s.repo.CategoryTotals(s.ctx, base, base.Add(24*time.Hour))
	s.Require().NoError(err)
	s.Empty(empty)

	work := s.createCategory("Work")
	fun := s.createCategory("Fun")
	s.createCategory("Idle")

	for _, u := range []*models.WindowUsage{
		usage("a", "code", base, 1800),
		usage("b", "terminal", base.Add(time.Hour), 600),
		usage("c", "steam", base.Add(2*time.Hour), 300),
		usage("d", "code", base.Add(-48*time.Hour), 9999),
	} {
		_, err := s.repo.FinalizeWindowUsage(s.ctx, u)
		s.Require().NoError(err)
	}

	s.Require().NoError(s.repo.AddAppToCategory(s.ctx, "code", work))
	s.Require().NoError(s.repo.AddAppToCategory(s.ctx, "terminal", work))
	s.Require().NoError(s.repo.AddAppToCategory(s.ctx, "slack", work))
	s.Require().NoError(s.repo.AddAppToCategory(s.ctx, "steam", fun))

	totals, err := s.repo.CategoryTotals(s.ctx, base, base.Add(24*time.Hour))
	s.Require().NoError(err)
	s.Require().Len(totals, 3)

	s.Equal("Work", totals[0].Category.Name)
	s.Equal(int64(2400), totals[0].TotalSeconds)
	s.Require().Len(totals[0].Apps, 3)
	s.Equal("code", totals[0].Apps[0].AppName)
	s.Equal("terminal", totals[0].Apps[1].AppName)
	s.Equal("slack", totals[0].Apps[2].AppName)
	s.Zero(totals[0].Apps[2].TotalSeconds)

	s.Equal("Fun", totals[1].Category.Name)
	s.Equal(int64(300), totals[1].TotalSeconds)

	s.Equal("Idle", totals[2].Category.Name)
	s.Zero(totals[2].TotalSeconds)
	s.NotNil(totals[2].Apps)
	s.Empty(totals[2].Apps)
}
