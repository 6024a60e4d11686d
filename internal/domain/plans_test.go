package domain

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortPlans(t *testing.T) {
	plans := []Plan{
		{ID: "p_pack", Name: "Pack", Price: 100, Interval: IntervalOneTime},
		{ID: "p_year", Name: "Studio", Price: 500000, Interval: IntervalYear},
		{ID: "p_month_b", Name: "B", Price: 900, Interval: IntervalMonth},
		{ID: "p_month_a", Name: "A", Price: 900, Interval: IntervalMonth},
		{ID: "p_month_cheap", Name: "Z", Price: 100, Interval: IntervalMonth},
	}

	SortPlans(plans)

	ids := make([]string, len(plans))
	for i, p := range plans {
		ids[i] = p.ID
	}
	assert.Equal(t, []string{"p_month_cheap", "p_month_a", "p_month_b", "p_year", "p_pack"}, ids)
}

func TestFindPlan(t *testing.T) {
	plans := []Plan{{ID: "price_a", PriceID: "price_a", Interval: IntervalMonth}}

	p, ok := FindPlan(plans, "price_a")
	require.True(t, ok)
	assert.True(t, p.Recurring())

	_, ok = FindPlan(plans, "price_b")
	assert.False(t, ok)
}

func TestErrorKinds(t *testing.T) {
	wrapped := fmt.Errorf("resolve: %w", ErrTransient("processor down", nil))

	assert.True(t, IsTransient(wrapped))
	assert.False(t, IsNotFound(wrapped))
	assert.Equal(t, KindInternal, KindOf(fmt.Errorf("plain")))
	assert.False(t, IsNotFound(nil))

	appErr, ok := AsAppError(wrapped)
	require.True(t, ok)
	assert.Equal(t, 503, appErr.Code)
}
