package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jasonzgao/accountability-partner-sub001/internal/model"
)

func TestRuleService_Create(t *testing.T) {
	store := newTestStore(t, date(6, 9, 0))
	svc := NewRuleService(store.categories)
	ctx := context.Background()

	rule, err := svc.Create(ctx, RuleInput{Application: "Anki", Category: "Study", Label: "Study time"})
	require.NoError(t, err)
	assert.Equal(t, "study", rule.CategoryID)
	assert.Equal(t, model.CategoryCustom, rule.Category.Kind)
	assert.Equal(t, "Study time", rule.Category.Label)

	_, err = svc.Create(ctx, RuleInput{Category: "productive"})
	assert.Error(t, err, "a rule needs a pattern")

	_, err = svc.Create(ctx, RuleInput{Application: "Xcode"})
	assert.Error(t, err, "a rule needs a category")

	rules, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 1)

	require.NoError(t, svc.Delete(ctx, rules[0].ID))
	rules, err = svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestRuleService_Import(t *testing.T) {
	store := newTestStore(t, date(6, 9, 0))
	svc := NewRuleService(store.categories)
	ctx := context.Background()

	n, err := svc.Import(ctx, []byte(`
rules:
  - application: Xcode
    category: productive
  - url: youtube.com
    category: Distracting
  - title: "*lecture*"
    category: study
`))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	rules, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 3)
	assert.Equal(t, "distracting", rules[1].CategoryID)
	assert.Equal(t, model.CategoryCustom, rules[2].Category.Kind)

	c := NewCategorizer(store.categories, CategoryDefaults{}, nil)
	assert.Equal(t, model.CategoryCustom, c.Categorize(ctx, "VLC", "", "CS50 Lecture 3"))
}

func TestRuleService_ImportIsAllOrNothing(t *testing.T) {
	store := newTestStore(t, date(6, 9, 0))
	svc := NewRuleService(store.categories)
	ctx := context.Background()

	_, err := svc.Import(ctx, []byte(`
rules:
  - application: Xcode
    category: productive
  - category: distracting
`))
	assert.Error(t, err)

	_, err = svc.Import(ctx, []byte("rules: [unterminated"))
	assert.Error(t, err)

	rules, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, rules)
}
