package cases

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	textcases "golang.org/x/text/cases"

	"mop.org/internal/domain"
)

type memRecord struct {
	c   Case
	seq uint64
}

// InMemory is a thread-safe Store backed by maps. Intended for local runs and tests.
type InMemory struct {
	mu        sync.RWMutex
	records   map[string]*memRecord
	sequences map[int]int
	inserted  uint64
}

var _ Store = (*InMemory)(nil)

// NewInMemory returns an empty store.
func NewInMemory() *InMemory {
	return &InMemory{
		records:   make(map[string]*memRecord),
		sequences: make(map[int]int),
	}
}

func (m *InMemory) Create(_ context.Context, c Case) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[c.ID]; ok {
		return domain.Conflict("case %s already exists", c.ID)
	}
	m.inserted++
	m.records[c.ID] = &memRecord{c: c.Clone(), seq: m.inserted}
	return nil
}

func (m *InMemory) Update(_ context.Context, c Case, appended []HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[c.ID]
	if !ok {
		return domain.NotFound("case", c.ID)
	}
	next := c.Clone()
	next.Documents = rec.c.Documents
	next.History = append(append([]HistoryEntry(nil), rec.c.History...), appended...)
	next.CreatedAt = rec.c.CreatedAt
	next.CreatedDate = rec.c.CreatedDate
	rec.c = next
	return nil
}

func (m *InMemory) AppendHistory(_ context.Context, caseID string, entry HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[caseID]
	if !ok {
		return domain.NotFound("case", caseID)
	}
	rec.c.History = append(append([]HistoryEntry(nil), rec.c.History...), entry)
	return nil
}

func (m *InMemory) FindByID(_ context.Context, id string) (Case, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[id]
	if !ok {
		return Case{}, domain.NotFound("case", id)
	}
	return rec.c.Clone(), nil
}

func (m *InMemory) Exists(_ context.Context, id string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.records[id]
	return ok, nil
}

func (m *InMemory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[id]; !ok {
		return domain.NotFound("case", id)
	}
	delete(m.records, id)
	return nil
}

func (m *InMemory) FindAll(_ context.Context, order Order) ([]Case, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	recs := m.sortedLocked()
	if order == OrderNewestFirst {
		sort.SliceStable(recs, func(i, j int) bool {
			a, b := recs[i], recs[j]
			if !a.c.CreatedAt.Equal(b.c.CreatedAt) {
				return a.c.CreatedAt.After(b.c.CreatedAt)
			}
			return a.seq > b.seq
		})
	}
	return collect(recs, nil), nil
}

func (m *InMemory) FindByAssignee(_ context.Context, assignee string) ([]Case, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return collect(m.sortedLocked(), func(c Case) bool { return c.AssignedTo == assignee }), nil
}

func (m *InMemory) Search(_ context.Context, keyword string) ([]Case, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	// A Caser must not be shared between goroutines.
	fold := textcases.Fold()
	needle := fold.String(keyword)
	return collect(m.sortedLocked(), func(c Case) bool {
		return strings.Contains(fold.String(c.BusinessName), needle) ||
			strings.Contains(fold.String(c.BusinessType), needle) ||
			strings.Contains(fold.String(c.MerchantCategory), needle)
	}), nil
}

func (m *InMemory) CountAll(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records), nil
}

func (m *InMemory) GroupCountByStatusSince(_ context.Context, since time.Time) ([]StatusCount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := make(map[Status]int)
	var order []Status
	for _, rec := range m.sortedLocked() {
		if rec.c.CreatedAt.Before(since) {
			continue
		}
		if _, seen := counts[rec.c.Status]; !seen {
			order = append(order, rec.c.Status)
		}
		counts[rec.c.Status]++
	}
	out := make([]StatusCount, 0, len(order))
	for _, s := range order {
		out = append(out, StatusCount{Status: s, Count: counts[s]})
	}
	return out, nil
}

func (m *InMemory) AllocateSequence(_ context.Context, year int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sequences[year]++
	return m.sequences[year], nil
}

func (m *InMemory) sortedLocked() []*memRecord {
	recs := make([]*memRecord, 0, len(m.records))
	for _, rec := range m.records {
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].seq < recs[j].seq })
	return recs
}

func collect(recs []*memRecord, keep func(Case) bool) []Case {
	out := make([]Case, 0, len(recs))
	for _, rec := range recs {
		if keep != nil && !keep(rec.c) {
			continue
		}
		out = append(out, rec.c.Clone())
	}
	return out
}
