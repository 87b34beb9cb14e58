// Package stream fans case lifecycle events out to live subscribers such as
// Server-Sent Events clients.
package stream

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"mop.org/internal/cases"
	"mop.org/internal/clock"
)

type EventType string

const (
	EventCaseCreated   EventType = "case.created"
	EventStatusChanged EventType = "case.status_changed"
)

// CaseEvent describes one change to a case.
type CaseEvent struct {
	Type         EventType `json:"type"`
	CaseID       string    `json:"case_id"`
	BusinessName string    `json:"business_name,omitempty"`
	AssignedTo   string    `json:"assigned_to,omitempty"`
	From         string    `json:"from,omitempty"`
	To           string    `json:"to,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

const subscriberBuffer = 16

// Stream fan-outs case events to all active subscribers. A slow subscriber
// loses events instead of blocking the publisher.
type Stream struct {
	mu      sync.RWMutex
	subs    map[int]chan CaseEvent
	next    int
	clock   clock.Clock
	dropped atomic.Uint64
}

var _ cases.Observer = (*Stream)(nil)

// New initialises an empty stream. A nil clock means the system clock.
func New(c clock.Clock) *Stream {
	if c == nil {
		c = clock.System()
	}
	return &Stream{
		subs:  make(map[int]chan CaseEvent),
		clock: c,
	}
}

// Subscribe registers a subscriber and returns a channel which will receive events.
// The channel is closed when the provided context ends.
func (s *Stream) Subscribe(ctx context.Context) <-chan CaseEvent {
	ch := make(chan CaseEvent, subscriberBuffer)

	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = ch
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		close(ch)
		s.mu.Unlock()
	}()

	return ch
}

// Publish fan-outs the event to all subscribers.
func (s *Stream) Publish(evt CaseEvent) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = s.clock.Now().UTC()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subs {
		select {
		case ch <- evt:
		default:
			s.dropped.Add(1)
		}
	}
}

// Subscribers reports how many subscribers are attached.
func (s *Stream) Subscribers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

// Dropped reports how many deliveries were skipped for slow subscribers.
func (s *Stream) Dropped() uint64 { return s.dropped.Load() }

func (s *Stream) CaseCreated(c cases.Case) {
	s.Publish(CaseEvent{
		Type:         EventCaseCreated,
		CaseID:       c.ID,
		BusinessName: c.BusinessName,
		AssignedTo:   c.AssignedTo,
		To:           string(c.Status),
	})
}

func (s *Stream) StatusChanged(c cases.Case, from, to cases.Status) {
	s.Publish(CaseEvent{
		Type:         EventStatusChanged,
		CaseID:       c.ID,
		BusinessName: c.BusinessName,
		AssignedTo:   c.AssignedTo,
		From:         string(from),
		To:           string(to),
	})
}
