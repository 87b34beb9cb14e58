package cases

import (
	"context"
	"time"
)

// Order selects the ordering of FindAll.
type Order int

const (
	// OrderInsertion returns cases in the store's natural order.
	OrderInsertion Order = iota
	// OrderNewestFirst returns cases by creation time, most recent first.
	OrderNewestFirst
)

// StatusCount is one row of a grouped status aggregate.
type StatusCount struct {
	Status Status
	Count  int
}

// Store persists cases together with their documents and history.
//
// Create and Update must commit the case row and the supplied history entries
// as one unit. Create returns a domain.ConflictError when the id is taken;
// lookups of a missing id return a domain.NotFoundError.
type Store interface {
	Create(ctx context.Context, c Case) error
	Update(ctx context.Context, c Case, appended []HistoryEntry) error
	AppendHistory(ctx context.Context, caseID string, entry HistoryEntry) error
	FindByID(ctx context.Context, id string) (Case, error)
	Exists(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) error
	FindAll(ctx context.Context, order Order) ([]Case, error)
	FindByAssignee(ctx context.Context, assignee string) ([]Case, error)
	Search(ctx context.Context, keyword string) ([]Case, error)
	CountAll(ctx context.Context) (int, error)
	GroupCountByStatusSince(ctx context.Context, since time.Time) ([]StatusCount, error)

	// AllocateSequence atomically returns the next per-year case sequence, starting at 1.
	AllocateSequence(ctx context.Context, year int) (int, error)
}
