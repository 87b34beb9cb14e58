// Package refdata manages the business parameters officers pick from when
// capturing a case: business types, merchant categories and risk categories.
package refdata

import (
	"context"
	"time"
)

const (
	StatusActive     = "active"
	DefaultRiskLevel = "low"
)

type BusinessType struct {
	ID          string    `json:"id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type MerchantCategory struct {
	ID          string    `json:"id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	RiskLevel   string    `json:"risk_level"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type RiskCategory struct {
	ID              string    `json:"id"`
	Level           int       `json:"level"`
	Name            string    `json:"name"`
	ScoreRange      string    `json:"score_range,omitempty"`
	Description     string    `json:"description,omitempty"`
	ActionsRequired string    `json:"actions_required,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Filter narrows listings. Search is a case-insensitive substring of name or
// code; Status and RiskLevel match exactly. Empty fields do not filter.
type Filter struct {
	Search    string
	Status    string
	RiskLevel string
}

// Store persists reference data. Codes and risk levels are unique; a clash
// returns a domain.ConflictError and a missing id a domain.NotFoundError.
type Store interface {
	CreateBusinessType(ctx context.Context, bt BusinessType) error
	UpdateBusinessType(ctx context.Context, bt BusinessType) error
	DeleteBusinessType(ctx context.Context, id string) error
	FindBusinessType(ctx context.Context, id string) (BusinessType, error)
	ListBusinessTypes(ctx context.Context, f Filter) ([]BusinessType, error)

	CreateMerchantCategory(ctx context.Context, mc MerchantCategory) error
	UpdateMerchantCategory(ctx context.Context, mc MerchantCategory) error
	DeleteMerchantCategory(ctx context.Context, id string) error
	FindMerchantCategory(ctx context.Context, id string) (MerchantCategory, error)
	ListMerchantCategories(ctx context.Context, f Filter) ([]MerchantCategory, error)

	CreateRiskCategory(ctx context.Context, rc RiskCategory) error
	UpdateRiskCategory(ctx context.Context, rc RiskCategory) error
	DeleteRiskCategory(ctx context.Context, id string) error
	FindRiskCategory(ctx context.Context, id string) (RiskCategory, error)
	// ListRiskCategories orders by level ascending.
	ListRiskCategories(ctx context.Context) ([]RiskCategory, error)
}
