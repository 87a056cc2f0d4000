package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/jasonzgao/accountability-partner-sub001/internal/model"
)

// CategoryRepository manages category rows and the rules pointing at them.
type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// GetOrCreate returns the category row with the given id, creating a custom
// category when it does not exist yet.
func (r *CategoryRepository) GetOrCreate(ctx context.Context, id, label string) (*model.ActivityCategoryRecord, error) {
	id = strings.ToLower(strings.TrimSpace(id))
	if id == "" {
		return nil, fmt.Errorf("category id is required")
	}

	var category model.ActivityCategoryRecord
	db := r.db.WithContext(ctx)
	err := db.Where("id = ?", id).First(&category).Error
	switch {
	case err == nil:
		return &category, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		if label == "" {
			label = id
		}
		category = model.ActivityCategoryRecord{
			ID:    id,
			Kind:  model.CategoryCustom,
			Label: label,
			Color: model.CategoryCustom.Color(),
		}
		if err := db.Create(&category).Error; err != nil {
			return nil, fmt.Errorf("create category: %w", err)
		}
		return &category, nil
	default:
		return nil, fmt.Errorf("find category: %w", err)
	}
}

func (r *CategoryRepository) ListCategories(ctx context.Context) ([]model.ActivityCategoryRecord, error) {
	var categories []model.ActivityCategoryRecord
	if err := r.db.WithContext(ctx).Order("label ASC").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// GetByID returns nil when the category does not exist.
func (r *CategoryRepository) GetByID(ctx context.Context, id string) (*model.ActivityCategoryRecord, error) {
	var found []model.ActivityCategoryRecord
	if err := r.db.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&found).Error; err != nil {
		return nil, fmt.Errorf("find category: %w", err)
	}
	if len(found) == 0 {
		return nil, nil
	}
	return &found[0], nil
}

// ListRules returns every rule with its category preloaded, in creation order.
func (r *CategoryRepository) ListRules(ctx context.Context) ([]model.CategoryRule, error) {
	var rules []model.CategoryRule
	if err := r.db.WithContext(ctx).Preload("Category").Order("id ASC").Find(&rules).Error; err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	return rules, nil
}

func (r *CategoryRepository) CreateRule(ctx context.Context, rule *model.CategoryRule) error {
	if err := r.db.WithContext(ctx).Omit("Category").Create(rule).Error; err != nil {
		return fmt.Errorf("create rule: %w", err)
	}
	return nil
}

// CreateRules inserts rules atomically.
func (r *CategoryRepository) CreateRules(ctx context.Context, rules []model.CategoryRule) error {
	if len(rules) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Category").Create(&rules).Error; err != nil {
			return fmt.Errorf("create rules: %w", err)
		}
		return nil
	})
}

func (r *CategoryRepository) UpdateRule(ctx context.Context, rule *model.CategoryRule) error {
	res := r.db.WithContext(ctx).Omit("Category", "CreatedAt").Save(rule)
	if res.Error != nil {
		return fmt.Errorf("update rule: %w", res.Error)
	}
	return nil
}

// DeleteRule removes a rule; unknown ids are a no-op.
func (r *CategoryRepository) DeleteRule(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&model.CategoryRule{}, id).Error; err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	return nil
}
