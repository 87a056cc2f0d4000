package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jasonzgao/accountability-partner-sub001/internal/clock"
	"github.com/jasonzgao/accountability-partner-sub001/internal/model"
)

func TestQueryCache_StalePopulationIsDropped(t *testing.T) {
	c := newQueryCache(time.Minute, 10, clock.NewManual(baseTime))
	key := byIDKey("a")

	gen := c.currentGeneration()
	c.invalidateAll()

	assert.False(t, c.put(key, []model.ActivityRecord{{ID: "a"}}, gen))
	_, ok := c.get(key)
	assert.False(t, ok)

	assert.True(t, c.put(key, []model.ActivityRecord{{ID: "a"}}, c.currentGeneration()))
	_, ok = c.get(key)
	assert.True(t, ok)
}

func TestQueryCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := newQueryCache(time.Minute, 2, clock.NewManual(baseTime))
	a, b, d := byIDKey("a"), byIDKey("b"), byIDKey("d")

	gen := c.currentGeneration()
	require.True(t, c.put(a, nil, gen))
	require.True(t, c.put(b, nil, gen))
	_, ok := c.get(a)
	require.True(t, ok)

	require.True(t, c.put(d, nil, gen))
	_, ok = c.get(b)
	assert.False(t, ok, "b was least recently used")
	_, ok = c.get(a)
	assert.True(t, ok)
	_, ok = c.get(d)
	assert.True(t, ok)
}

func TestQueryCache_ReturnsCopies(t *testing.T) {
	c := newQueryCache(time.Minute, 10, clock.NewManual(baseTime))
	key := byCategoryKey(model.CategoryNeutral, 5)
	title := "original"
	require.True(t, c.put(key, []model.ActivityRecord{{ID: "a", WindowTitle: &title}}, c.currentGeneration()))

	first, ok := c.get(key)
	require.True(t, ok)
	*first[0].WindowTitle = "changed"
	first[0].Name = "changed"

	second, ok := c.get(key)
	require.True(t, ok)
	assert.Equal(t, "original", *second[0].WindowTitle)
	assert.Empty(t, second[0].Name)
}

func TestQueryKey_DistinguishesLimits(t *testing.T) {
	assert.NotEqual(t, byApplicationKey("Xcode", 10), byApplicationKey("Xcode", 20))
	assert.NotEqual(t, byApplicationKey("Xcode", 10).String(), byApplicationKey("Xcode", 20).String())
	assert.Equal(t,
		byRangeKey(baseTime, baseTime.Add(time.Hour)),
		byRangeKey(baseTime.In(time.FixedZone("x", 3600)), baseTime.Add(time.Hour)))
}
