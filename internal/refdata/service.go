package refdata

import (
	"context"
	"errors"
	"strings"

	"mop.org/internal/clock"
	"mop.org/internal/domain"
	"mop.org/internal/ids"
)

type Service struct {
	store Store
	clock clock.Clock
}

func NewService(store Store, c clock.Clock) (*Service, error) {
	if store == nil {
		return nil, errors.New("refdata: store is required")
	}
	if c == nil {
		c = clock.System()
	}
	return &Service{store: store, clock: c}, nil
}

func (s *Service) ListBusinessTypes(ctx context.Context, f Filter) ([]BusinessType, error) {
	return s.store.ListBusinessTypes(ctx, f)
}

func (s *Service) GetBusinessType(ctx context.Context, id string) (BusinessType, error) {
	return s.store.FindBusinessType(ctx, id)
}

func (s *Service) CreateBusinessType(ctx context.Context, in BusinessType) (BusinessType, error) {
	now := s.clock.Now()
	bt := BusinessType{
		ID:          strings.TrimSpace(in.ID),
		Code:        strings.TrimSpace(in.Code),
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Status:      defaultString(in.Status, StatusActive),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := checkCodeName(bt.Code, bt.Name); err != nil {
		return BusinessType{}, err
	}
	if bt.ID == "" {
		bt.ID = ids.Prefixed("bt", now)
	}
	if err := s.store.CreateBusinessType(ctx, bt); err != nil {
		return BusinessType{}, err
	}
	return bt, nil
}

func (s *Service) UpdateBusinessType(ctx context.Context, id string, in BusinessType) (BusinessType, error) {
	bt, err := s.store.FindBusinessType(ctx, id)
	if err != nil {
		return BusinessType{}, err
	}
	code, name := strings.TrimSpace(in.Code), strings.TrimSpace(in.Name)
	if err := checkCodeName(code, name); err != nil {
		return BusinessType{}, err
	}
	bt.Code, bt.Name, bt.Description = code, name, in.Description
	bt.Status = defaultString(in.Status, bt.Status)
	bt.UpdatedAt = s.clock.Now()
	if err := s.store.UpdateBusinessType(ctx, bt); err != nil {
		return BusinessType{}, err
	}
	return bt, nil
}

func (s *Service) DeleteBusinessType(ctx context.Context, id string) error {
	return s.store.DeleteBusinessType(ctx, id)
}

func (s *Service) ListMerchantCategories(ctx context.Context, f Filter) ([]MerchantCategory, error) {
	return s.store.ListMerchantCategories(ctx, f)
}

func (s *Service) GetMerchantCategory(ctx context.Context, id string) (MerchantCategory, error) {
	return s.store.FindMerchantCategory(ctx, id)
}

func (s *Service) CreateMerchantCategory(ctx context.Context, in MerchantCategory) (MerchantCategory, error) {
	now := s.clock.Now()
	mc := MerchantCategory{
		ID:          strings.TrimSpace(in.ID),
		Code:        strings.TrimSpace(in.Code),
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		RiskLevel:   defaultString(in.RiskLevel, DefaultRiskLevel),
		Status:      defaultString(in.Status, StatusActive),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := checkCodeName(mc.Code, mc.Name); err != nil {
		return MerchantCategory{}, err
	}
	if mc.ID == "" {
		mc.ID = ids.Prefixed("mc", now)
	}
	if err := s.store.CreateMerchantCategory(ctx, mc); err != nil {
		return MerchantCategory{}, err
	}
	return mc, nil
}

func (s *Service) UpdateMerchantCategory(ctx context.Context, id string, in MerchantCategory) (MerchantCategory, error) {
	mc, err := s.store.FindMerchantCategory(ctx, id)
	if err != nil {
		return MerchantCategory{}, err
	}
	code, name := strings.TrimSpace(in.Code), strings.TrimSpace(in.Name)
	if err := checkCodeName(code, name); err != nil {
		return MerchantCategory{}, err
	}
	mc.Code, mc.Name, mc.Description = code, name, in.Description
	mc.RiskLevel = defaultString(in.RiskLevel, mc.RiskLevel)
	mc.Status = defaultString(in.Status, mc.Status)
	mc.UpdatedAt = s.clock.Now()
	if err := s.store.UpdateMerchantCategory(ctx, mc); err != nil {
		return MerchantCategory{}, err
	}
	return mc, nil
}

func (s *Service) DeleteMerchantCategory(ctx context.Context, id string) error {
	return s.store.DeleteMerchantCategory(ctx, id)
}

func (s *Service) ListRiskCategories(ctx context.Context) ([]RiskCategory, error) {
	return s.store.ListRiskCategories(ctx)
}

func (s *Service) GetRiskCategory(ctx context.Context, id string) (RiskCategory, error) {
	return s.store.FindRiskCategory(ctx, id)
}

func (s *Service) CreateRiskCategory(ctx context.Context, in RiskCategory) (RiskCategory, error) {
	now := s.clock.Now()
	rc := in
	rc.ID = strings.TrimSpace(in.ID)
	rc.Name = strings.TrimSpace(in.Name)
	rc.CreatedAt, rc.UpdatedAt = now, now
	if err := checkRisk(rc); err != nil {
		return RiskCategory{}, err
	}
	if rc.ID == "" {
		rc.ID = ids.Prefixed("rc", now)
	}
	if err := s.store.CreateRiskCategory(ctx, rc); err != nil {
		return RiskCategory{}, err
	}
	return rc, nil
}

func (s *Service) UpdateRiskCategory(ctx context.Context, id string, in RiskCategory) (RiskCategory, error) {
	rc, err := s.store.FindRiskCategory(ctx, id)
	if err != nil {
		return RiskCategory{}, err
	}
	rc.Level = in.Level
	rc.Name = strings.TrimSpace(in.Name)
	rc.ScoreRange = in.ScoreRange
	rc.Description = in.Description
	rc.ActionsRequired = in.ActionsRequired
	if err := checkRisk(rc); err != nil {
		return RiskCategory{}, err
	}
	rc.UpdatedAt = s.clock.Now()
	if err := s.store.UpdateRiskCategory(ctx, rc); err != nil {
		return RiskCategory{}, err
	}
	return rc, nil
}

func (s *Service) DeleteRiskCategory(ctx context.Context, id string) error {
	return s.store.DeleteRiskCategory(ctx, id)
}

func checkCodeName(code, name string) error {
	var v domain.Validator
	v.Check(code != "", "code", "is required")
	v.Check(name != "", "name", "is required")
	return v.Err()
}

func checkRisk(rc RiskCategory) error {
	var v domain.Validator
	v.Check(rc.Level > 0, "level", "must be positive")
	v.Check(rc.Name != "", "name", "is required")
	return v.Err()
}

func defaultString(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}
