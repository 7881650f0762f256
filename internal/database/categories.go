package database

import (
	"context"
	stderrors "errors"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/focusd/focusd/internal/models"
)

func validateCategory(c *models.Category) error {
	if c == nil {
		return invalid("nil category")
	}
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return invalid("category without name")
	}
	return nil
}

// CreateCategory inserts a category and returns its id. Names are unique.
func (r *Repository) CreateCategory(ctx context.Context, c *models.Category) (uint, error) {
	if err := validateCategory(c); err != nil {
		return 0, err
	}

	err := r.write(ctx, "create_category", func(tx *gorm.DB) error {
		c.ID = 0
		if err := tx.Create(c).Error; err != nil {
			if isUniqueViolation(err) {
				return errors.Wrapf(ErrDuplicate, "category %q", c.Name)
			}
			return errors.Wrap(err, "failed to create category")
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return c.ID, nil
}

// UpdateCategory replaces the name, icon and color of an existing category.
func (r *Repository) UpdateCategory(ctx context.Context, c *models.Category) error {
	if err := validateCategory(c); err != nil {
		return err
	}

	var affected int64
	err := r.write(ctx, "update_category", func(tx *gorm.DB) error {
		result := tx.Model(&models.Category{}).Where("id = ?", c.ID).
			Updates(map[string]interface{}{"name": c.Name, "icon": c.Icon, "color": c.Color})
		if result.Error != nil {
			if isUniqueViolation(result.Error) {
				return errors.Wrapf(ErrDuplicate, "category %q", c.Name)
			}
			return errors.Wrap(result.Error, "failed to update category")
		}
		affected = result.RowsAffected
		return nil
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteCategory removes a category together with its app assignments.
func (r *Repository) DeleteCategory(ctx context.Context, id uint) error {
	var affected int64
	err := r.write(ctx, "delete_category", func(tx *gorm.DB) error {
		return tx.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("category_id = ?", id).Delete(&models.AppCategory{}).Error; err != nil {
				return errors.Wrap(err, "failed to delete category assignments")
			}
			result := tx.Where("id = ?", id).Delete(&models.Category{})
			if result.Error != nil {
				return errors.Wrap(result.Error, "failed to delete category")
			}
			affected = result.RowsAffected
			return nil
		})
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) GetCategory(ctx context.Context, id uint) (*models.Category, error) {
	return r.findCategory(ctx, "id = ?", id)
}

func (r *Repository) GetCategoryByName(ctx context.Context, name string) (*models.Category, error) {
	return r.findCategory(ctx, "name = ?", strings.TrimSpace(name))
}

func (r *Repository) findCategory(ctx context.Context, query string, arg interface{}) (*models.Category, error) {
	var c models.Category
	result := r.db.WithContext(ctx).Where(query, arg).Take(&c)
	if result.Error != nil {
		if stderrors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(result.Error, "failed to get category")
	}
	return &c, nil
}

func (r *Repository) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list categories")
	}
	return categories, nil
}

// AddAppToCategory assigns app to the category. Assigning twice is a no-op.
func (r *Repository) AddAppToCategory(ctx context.Context, app string, categoryID uint) error {
	if app == "" {
		return invalid("category assignment without app identifier")
	}
	if _, err := r.GetCategory(ctx, categoryID); err != nil {
		return err
	}

	return r.write(ctx, "add_app_category", func(tx *gorm.DB) error {
		row := models.AppCategory{AppIdentifier: app, CategoryID: categoryID}
		result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
		if result.Error != nil {
			return errors.Wrap(result.Error, "failed to assign category")
		}
		return nil
	})
}

func (r *Repository) RemoveAppFromCategory(ctx context.Context, app string, categoryID uint) error {
	var affected int64
	err := r.write(ctx, "remove_app_category", func(tx *gorm.DB) error {
		result := tx.Where("app_identifier = ? AND category_id = ?", app, categoryID).
			Delete(&models.AppCategory{})
		if result.Error != nil {
			return errors.Wrap(result.Error, "failed to remove category assignment")
		}
		affected = result.RowsAffected
		return nil
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetAppCategories replaces every category assignment of app.
func (r *Repository) SetAppCategories(ctx context.Context, app string, categoryIDs []uint) error {
	if app == "" {
		return invalid("category assignment without app identifier")
	}

	return r.write(ctx, "set_app_categories", func(tx *gorm.DB) error {
		return tx.Transaction(func(tx *gorm.DB) error {
			if len(categoryIDs) > 0 {
				var found int64
				if err := tx.Model(&models.Category{}).Where("id IN ?", categoryIDs).Count(&found).Error; err != nil {
					return errors.Wrap(err, "failed to check categories")
				}
				if found != int64(len(uniqueIDs(categoryIDs))) {
					return ErrNotFound
				}
			}

			if err := tx.Where("app_identifier = ?", app).Delete(&models.AppCategory{}).Error; err != nil {
				return errors.Wrap(err, "failed to clear category assignments")
			}
			for _, id := range uniqueIDs(categoryIDs) {
				if err := tx.Create(&models.AppCategory{AppIdentifier: app, CategoryID: id}).Error; err != nil {
					return errors.Wrap(err, "failed to assign category")
				}
			}
			return nil
		})
	})
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// CategoryApps lists the app identifiers assigned to a category.
func (r *Repository) CategoryApps(ctx context.Context, categoryID uint) ([]string, error) {
	var apps []string
	result := r.db.WithContext(ctx).Model(&models.AppCategory{}).
		Where("category_id = ?", categoryID).
		Order("app_identifier ASC").
		Pluck("app_identifier", &apps)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to list category apps")
	}
	return apps, nil
}

// AppCategories lists the categories app is assigned to.
func (r *Repository) AppCategories(ctx context.Context, app string) ([]models.Category, error) {
	var categories []models.Category
	result := r.db.WithContext(ctx).
		Joins("JOIN app_categories ON app_categories.category_id = categories.id").
		Where("app_categories.app_identifier = ?", app).
		Order("categories.name ASC").
		Find(&categories)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to list app categories")
	}
	return categories, nil
}

// AppNames lists every app identifier with recorded time.
func (r *Repository) AppNames(ctx context.Context) ([]string, error) {
	var apps []string
	result := r.db.WithContext(ctx).Model(&models.WindowUsage{}).
		Where("duration_seconds > 0").
		Distinct().
		Order("app_identifier ASC").
		Pluck("app_identifier", &apps)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to list app names")
	}
	return apps, nil
}

// CategoryTotals returns the active time of every category over [start, end),
// largest first. Categories with no assigned apps or no usage are included
// with a zero total.
func (r *Repository) CategoryTotals(ctx context.Context, start, end time.Time) ([]models.CategoryUsage, error) {
	categories, err := r.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	if len(categories) == 0 {
		return nil, nil
	}

	var assignments []models.AppCategory
	if err := r.db.WithContext(ctx).Order("app_identifier ASC").Find(&assignments).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list category assignments")
	}

	totals, err := r.AppTotals(ctx, start, end)
	if err != nil {
		return nil, err
	}
	byApp := make(map[string]models.AppSummary, len(totals))
	for _, t := range totals {
		byApp[t.AppName] = t
	}

	apps := make(map[uint][]models.AppSummary, len(categories))
	for _, a := range assignments {
		summary, ok := byApp[a.AppIdentifier]
		if !ok {
			summary = models.AppSummary{AppName: a.AppIdentifier}
		}
		apps[a.CategoryID] = append(apps[a.CategoryID], summary)
	}

	usage := make([]models.CategoryUsage, 0, len(categories))
	for _, c := range categories {
		cu := models.CategoryUsage{Category: c, Apps: apps[c.ID]}
		if cu.Apps == nil {
			cu.Apps = []models.AppSummary{}
		}
		sort.SliceStable(cu.Apps, func(i, j int) bool {
			return cu.Apps[i].TotalSeconds > cu.Apps[j].TotalSeconds
		})
		for _, a := range cu.Apps {
			cu.TotalSeconds += a.TotalSeconds
		}
		usage = append(usage, cu)
	}

	// Categories arrive sorted by name, so ties keep that order.
	sort.SliceStable(usage, func(i, j int) bool {
		return usage[i].TotalSeconds > usage[j].TotalSeconds
	})
	return usage, nil
}
