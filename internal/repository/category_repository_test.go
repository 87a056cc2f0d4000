package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jasonzgao/accountability-partner-sub001/internal/model"
)

func TestCategoryRepository_BuiltinsAreSeeded(t *testing.T) {
	repo := NewCategoryRepository(newTestDB(t))

	categories, err := repo.ListCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, categories, len(model.AllCategories))

	productive, err := repo.GetByID(context.Background(), "productive")
	require.NoError(t, err)
	require.NotNil(t, productive)
	assert.Equal(t, model.CategoryProductive, productive.Kind)
	assert.Equal(t, "#34C759", productive.Color)
}

func TestCategoryRepository_GetOrCreateCustom(t *testing.T) {
	repo := NewCategoryRepository(newTestDB(t))
	ctx := context.Background()

	created, err := repo.GetOrCreate(ctx, " Study ", "Study time")
	require.NoError(t, err)
	assert.Equal(t, "study", created.ID)
	assert.Equal(t, model.CategoryCustom, created.Kind)
	assert.Equal(t, "Study time", created.Label)

	again, err := repo.GetOrCreate(ctx, "study", "")
	require.NoError(t, err)
	assert.Equal(t, "Study time", again.Label)

	_, err = repo.GetOrCreate(ctx, "  ", "")
	assert.Error(t, err)
}

func TestCategoryRepository_Rules(t *testing.T) {
	repo := NewCategoryRepository(newTestDB(t))
	ctx := context.Background()

	first := &model.CategoryRule{ApplicationNamePattern: strPtr("Xcode"), CategoryID: "productive"}
	require.NoError(t, repo.CreateRule(ctx, first))
	require.NoError(t, repo.CreateRules(ctx, []model.CategoryRule{
		{URLPattern: strPtr("youtube.com"), CategoryID: "distracting"},
		{WindowTitlePattern: strPtr("standup"), CategoryID: "neutral"},
	}))

	rules, err := repo.ListRules(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 3)
	assert.Equal(t, first.ID, rules[0].ID)
	assert.Equal(t, model.CategoryProductive, rules[0].Category.Kind, "category is preloaded")
	assert.Equal(t, model.CategoryDistracting, rules[1].Category.Kind)

	require.NoError(t, repo.DeleteRule(ctx, first.ID))
	require.NoError(t, repo.DeleteRule(ctx, 9999))
	rules, err = repo.ListRules(ctx)
	require.NoError(t, err)
	assert.Len(t, rules, 2)
}

func TestCategoryRepository_RuleNeedsExistingCategory(t *testing.T) {
	repo := NewCategoryRepository(newTestDB(t))

	err := repo.CreateRule(context.Background(), &model.CategoryRule{
		ApplicationNamePattern: strPtr("Xcode"),
		CategoryID:             "nope",
	})
	assert.Error(t, err, "foreign keys are enforced")
}
