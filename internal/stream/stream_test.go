package stream

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mop.org/internal/cases"
	"mop.org/internal/clock"
)

func receive(t *testing.T, ch <-chan CaseEvent) CaseEvent {
	t.Helper()
	select {
	case evt, ok := <-ch:
		require.True(t, ok, "channel closed")
		return evt
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return CaseEvent{}
	}
}

func TestStreamDeliversLifecycleEvents(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	s := New(clock.NewFixed(now))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := s.Subscribe(ctx)
	b := s.Subscribe(ctx)
	require.Equal(t, 2, s.Subscribers())

	c := cases.Case{ID: "MOP-2026-001", BusinessName: "Kopi Corner", Status: cases.StatusPendingReview}
	s.CaseCreated(c)
	s.StatusChanged(c, cases.StatusPendingReview, cases.StatusApproved)

	for _, ch := range []<-chan CaseEvent{a, b} {
		created := receive(t, ch)
		assert.Equal(t, EventCaseCreated, created.Type)
		assert.Equal(t, "MOP-2026-001", created.CaseID)
		assert.Equal(t, now, created.Timestamp)

		changed := receive(t, ch)
		assert.Equal(t, EventStatusChanged, changed.Type)
		assert.Equal(t, "Pending Review", changed.From)
		assert.Equal(t, "Approved", changed.To)
	}
}

func TestStreamClosesOnCancel(t *testing.T) {
	s := New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	ch := s.Subscribe(ctx)
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed")
	}
	assert.Eventually(t, func() bool { return s.Subscribers() == 0 }, time.Second, 10*time.Millisecond)
}

func TestStreamDropsForSlowSubscriber(t *testing.T) {
	s := New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_ = s.Subscribe(ctx)

	for i := 0; i < subscriberBuffer+3; i++ {
		s.Publish(CaseEvent{Type: EventCaseCreated, CaseID: "MOP-2026-001"})
	}
	assert.Equal(t, uint64(3), s.Dropped())
}
