package refdata

import (
	"context"
	"sort"
	"strings"
	"sync"

	textcases "golang.org/x/text/cases"

	"mop.org/internal/domain"
)

// InMemory is a thread-safe Store. Business types and merchant categories
// list by code.
type InMemory struct {
	mu         sync.RWMutex
	types      map[string]BusinessType
	categories map[string]MerchantCategory
	risks      map[string]RiskCategory
}

var _ Store = (*InMemory)(nil)

func NewInMemory() *InMemory {
	return &InMemory{
		types:      make(map[string]BusinessType),
		categories: make(map[string]MerchantCategory),
		risks:      make(map[string]RiskCategory),
	}
}

func (m *InMemory) CreateBusinessType(_ context.Context, bt BusinessType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.types[bt.ID]; ok {
		return domain.Conflict("business type %s already exists", bt.ID)
	}
	for _, other := range m.types {
		if other.Code == bt.Code {
			return domain.Conflict("business type code %s already exists", bt.Code)
		}
	}
	m.types[bt.ID] = bt
	return nil
}

func (m *InMemory) UpdateBusinessType(_ context.Context, bt BusinessType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.types[bt.ID]; !ok {
		return domain.NotFound("business type", bt.ID)
	}
	for id, other := range m.types {
		if id != bt.ID && other.Code == bt.Code {
			return domain.Conflict("business type code %s already exists", bt.Code)
		}
	}
	m.types[bt.ID] = bt
	return nil
}

func (m *InMemory) DeleteBusinessType(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.types[id]; !ok {
		return domain.NotFound("business type", id)
	}
	delete(m.types, id)
	return nil
}

func (m *InMemory) FindBusinessType(_ context.Context, id string) (BusinessType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	bt, ok := m.types[id]
	if !ok {
		return BusinessType{}, domain.NotFound("business type", id)
	}
	return bt, nil
}

func (m *InMemory) ListBusinessTypes(_ context.Context, f Filter) ([]BusinessType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	match := matcher(f.Search)
	out := make([]BusinessType, 0, len(m.types))
	for _, bt := range m.types {
		if !match(bt.Name, bt.Code) || (f.Status != "" && bt.Status != f.Status) {
			continue
		}
		out = append(out, bt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (m *InMemory) CreateMerchantCategory(_ context.Context, mc MerchantCategory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.categories[mc.ID]; ok {
		return domain.Conflict("merchant category %s already exists", mc.ID)
	}
	for _, other := range m.categories {
		if other.Code == mc.Code {
			return domain.Conflict("merchant category code %s already exists", mc.Code)
		}
	}
	m.categories[mc.ID] = mc
	return nil
}

func (m *InMemory) UpdateMerchantCategory(_ context.Context, mc MerchantCategory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.categories[mc.ID]; !ok {
		return domain.NotFound("merchant category", mc.ID)
	}
	for id, other := range m.categories {
		if id != mc.ID && other.Code == mc.Code {
			return domain.Conflict("merchant category code %s already exists", mc.Code)
		}
	}
	m.categories[mc.ID] = mc
	return nil
}

func (m *InMemory) DeleteMerchantCategory(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.categories[id]; !ok {
		return domain.NotFound("merchant category", id)
	}
	delete(m.categories, id)
	return nil
}

func (m *InMemory) FindMerchantCategory(_ context.Context, id string) (MerchantCategory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mc, ok := m.categories[id]
	if !ok {
		return MerchantCategory{}, domain.NotFound("merchant category", id)
	}
	return mc, nil
}

func (m *InMemory) ListMerchantCategories(_ context.Context, f Filter) ([]MerchantCategory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	match := matcher(f.Search)
	out := make([]MerchantCategory, 0, len(m.categories))
	for _, mc := range m.categories {
		if !match(mc.Name, mc.Code) {
			continue
		}
		if (f.Status != "" && mc.Status != f.Status) || (f.RiskLevel != "" && mc.RiskLevel != f.RiskLevel) {
			continue
		}
		out = append(out, mc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (m *InMemory) CreateRiskCategory(_ context.Context, rc RiskCategory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.risks[rc.ID]; ok {
		return domain.Conflict("risk category %s already exists", rc.ID)
	}
	for _, other := range m.risks {
		if other.Level == rc.Level {
			return domain.Conflict("risk category level %d already exists", rc.Level)
		}
	}
	m.risks[rc.ID] = rc
	return nil
}

func (m *InMemory) UpdateRiskCategory(_ context.Context, rc RiskCategory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.risks[rc.ID]; !ok {
		return domain.NotFound("risk category", rc.ID)
	}
	for id, other := range m.risks {
		if id != rc.ID && other.Level == rc.Level {
			return domain.Conflict("risk category level %d already exists", rc.Level)
		}
	}
	m.risks[rc.ID] = rc
	return nil
}

func (m *InMemory) DeleteRiskCategory(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.risks[id]; !ok {
		return domain.NotFound("risk category", id)
	}
	delete(m.risks, id)
	return nil
}

func (m *InMemory) FindRiskCategory(_ context.Context, id string) (RiskCategory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rc, ok := m.risks[id]
	if !ok {
		return RiskCategory{}, domain.NotFound("risk category", id)
	}
	return rc, nil
}

func (m *InMemory) ListRiskCategories(_ context.Context) ([]RiskCategory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]RiskCategory, 0, len(m.risks))
	for _, rc := range m.risks {
		out = append(out, rc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Level < out[j].Level })
	return out, nil
}

func matcher(search string) func(fields ...string) bool {
	if search == "" {
		return func(...string) bool { return true }
	}
	fold := textcases.Fold()
	needle := fold.String(search)
	return func(fields ...string) bool {
		for _, f := range fields {
			if strings.Contains(fold.String(f), needle) {
				return true
			}
		}
		return false
	}
}
