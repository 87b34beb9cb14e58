package refdata

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mop.org/internal/clock"
	"mop.org/internal/domain"
)

func newService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(NewInMemory(), clock.NewFixed(time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	return svc
}

func TestBusinessTypes(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	sdn, err := svc.CreateBusinessType(ctx, BusinessType{Code: "SDN", Name: "Sendirian Berhad"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sdn.ID, "bt_"), sdn.ID)
	assert.Equal(t, StatusActive, sdn.Status)

	_, err = svc.CreateBusinessType(ctx, BusinessType{Code: "SOLE", Name: "Sole Proprietor", Status: "inactive"})
	require.NoError(t, err)

	_, err = svc.CreateBusinessType(ctx, BusinessType{Code: "SDN", Name: "dup"})
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = svc.CreateBusinessType(ctx, BusinessType{Name: "no code"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	active, err := svc.ListBusinessTypes(ctx, Filter{Status: StatusActive})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "SDN", active[0].Code)

	found, err := svc.ListBusinessTypes(ctx, Filter{Search: "proprie"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "SOLE", found[0].Code)

	updated, err := svc.UpdateBusinessType(ctx, sdn.ID, BusinessType{Code: "SDN", Name: "Sdn Bhd"})
	require.NoError(t, err)
	assert.Equal(t, "Sdn Bhd", updated.Name)
	assert.Equal(t, StatusActive, updated.Status)

	_, err = svc.UpdateBusinessType(ctx, sdn.ID, BusinessType{Code: "SOLE", Name: "clash"})
	assert.ErrorIs(t, err, domain.ErrConflict)

	require.NoError(t, svc.DeleteBusinessType(ctx, sdn.ID))
	_, err = svc.GetBusinessType(ctx, sdn.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMerchantCategories(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	food, err := svc.CreateMerchantCategory(ctx, MerchantCategory{Code: "5812", Name: "Restaurants"})
	require.NoError(t, err)
	assert.Equal(t, DefaultRiskLevel, food.RiskLevel)
	assert.True(t, strings.HasPrefix(food.ID, "mc_"), food.ID)

	_, err = svc.CreateMerchantCategory(ctx, MerchantCategory{Code: "7995", Name: "Gambling", RiskLevel: "high"})
	require.NoError(t, err)

	high, err := svc.ListMerchantCategories(ctx, Filter{RiskLevel: "high"})
	require.NoError(t, err)
	require.Len(t, high, 1)
	assert.Equal(t, "7995", high[0].Code)

	byCode, err := svc.ListMerchantCategories(ctx, Filter{Search: "581"})
	require.NoError(t, err)
	require.Len(t, byCode, 1)
	assert.Equal(t, food.ID, byCode[0].ID)

	_, err = svc.GetMerchantCategory(ctx, "mc_missing")
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "merchant category", nf.Kind)
}

func TestRiskCategoriesOrderedByLevel(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	for _, rc := range []RiskCategory{
		{Level: 3, Name: "High", ScoreRange: "71-100"},
		{Level: 1, Name: "Low", ScoreRange: "0-30"},
		{Level: 2, Name: "Medium", ScoreRange: "31-70"},
	} {
		_, err := svc.CreateRiskCategory(ctx, rc)
		require.NoError(t, err)
	}
	_, err := svc.CreateRiskCategory(ctx, RiskCategory{Level: 2, Name: "dup"})
	assert.ErrorIs(t, err, domain.ErrConflict)

	list, err := svc.ListRiskCategories(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"Low", "Medium", "High"}, []string{list[0].Name, list[1].Name, list[2].Name})

	_, err = svc.CreateRiskCategory(ctx, RiskCategory{Name: "zero"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	assert.ErrorIs(t, svc.DeleteRiskCategory(ctx, "rc_missing"), domain.ErrNotFound)
}
