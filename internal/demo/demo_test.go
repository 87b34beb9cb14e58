package demo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mop.org/internal/cases"
	"mop.org/internal/clock"
)

func TestGeneratorIsDeterministic(t *testing.T) {
	a, b := NewGenerator(42), NewGenerator(42)
	for i := 0; i < 5; i++ {
		assert.Equal(t, a.NextCase(), b.NextCase())
	}
}

func TestNextCaseDrawsFromScenario(t *testing.T) {
	g := NewGenerator(7)
	s := g.Scenario()
	for i := 0; i < 20; i++ {
		in := g.NextCase()
		assert.Contains(t, s.BusinessTypes, in.BusinessType)
		assert.Contains(t, s.Categories, in.MerchantCategory)
		assert.Contains(t, s.Directors, in.DirectorName)
		assert.NotEmpty(t, in.BusinessName)
		assert.Nil(t, in.Status)
		assert.LessOrEqual(t, len(in.Documents), len(s.DocumentKinds))
	}
}

func TestNextStatusFollowsWorkflow(t *testing.T) {
	g := NewGenerator(3)
	wf := cases.ReviewWorkflow()
	for i := 0; i < 20; i++ {
		to, ok := g.NextStatus(cases.StatusPendingReview)
		require.True(t, ok)
		assert.True(t, wf.Allows(cases.StatusPendingReview, to), "pending -> %s", to)
	}
	_, ok := g.NextStatus(cases.StatusApproved)
	assert.False(t, ok)
}

func TestPopulateUnderStrictWorkflow(t *testing.T) {
	clk := clock.NewFixed(time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC))
	svc, err := cases.NewService(cases.NewInMemory(),
		cases.WithClock(clk),
		cases.WithTransitions(cases.ReviewWorkflow()),
	)
	require.NoError(t, err)

	var counter Counter
	created, err := Populate(context.Background(), svc, NewGenerator(11), 6, 2, &counter)
	require.NoError(t, err)
	require.Len(t, created, 6)

	sum := counter.Summary()
	assert.Equal(t, 6, sum.Created)
	total := 0
	for _, n := range sum.ByStatus {
		total += n
	}
	assert.Equal(t, 6, total)

	stored, err := svc.ListCases(context.Background())
	require.NoError(t, err)
	got := map[string]int{}
	for _, c := range stored {
		got[string(c.Status)]++
		assert.NotEmpty(t, c.History, c.ID)
	}
	assert.Equal(t, sum.ByStatus, got)
}

func TestCounterMoved(t *testing.T) {
	var c Counter
	c.Created(cases.StatusPendingReview)
	c.Created(cases.StatusPendingReview)
	c.Moved(cases.StatusPendingReview, cases.StatusInReview)

	sum := c.Summary()
	assert.Equal(t, 2, sum.Created)
	assert.Equal(t, 1, sum.Transitions)
	assert.Equal(t, map[string]int{"Pending Review": 1, "In Review": 1}, sum.ByStatus)
}
