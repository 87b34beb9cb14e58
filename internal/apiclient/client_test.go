package apiclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mop.org/internal/auth"
	"mop.org/internal/cases"
	"mop.org/internal/clock"
	"mop.org/internal/domain"
	"mop.org/internal/httpapi"
)

const (
	adminEmail    = "admin@mop.test"
	adminPassword = "admin-password"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	ctx := context.Background()
	clk := clock.NewFixed(time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC))

	identity := auth.NewInMemory()
	_, err := auth.EnsureCatalog(ctx, identity, clk)
	require.NoError(t, err)
	users, err := auth.NewUserService(identity, auth.WithUserClock(clk))
	require.NoError(t, err)
	tokens, err := auth.NewTokenIssuer("a-test-secret-that-is-at-least-32-chars", auth.WithTokenClock(clk))
	require.NoError(t, err)
	authn, err := auth.NewAuthenticator(users, tokens, auth.NewResolver(identity), identity, "viewer")
	require.NoError(t, err)
	_, err = users.CreateUser(ctx, auth.UserInput{
		Name: "Admin", Email: adminEmail, Password: adminPassword, RoleIDs: []string{"admin"},
	})
	require.NoError(t, err)

	store := cases.NewInMemory()
	svc, err := cases.NewService(store, cases.WithClock(clk), cases.WithTransitions(cases.ReviewWorkflow()))
	require.NoError(t, err)
	stats, err := cases.NewAggregator(store, clk, 0)
	require.NoError(t, err)

	api := httpapi.New(httpapi.ReadyProbe{}, "test",
		httpapi.WithAuth(authn),
		httpapi.WithCases(svc, stats),
		httpapi.WithClock(clk),
		httpapi.WithLimits(1<<20, 0, 0),
	)
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func TestNewRejectsBadURL(t *testing.T) {
	for _, raw := range []string{"", "localhost:8080", "://x"} {
		_, err := New(raw)
		assert.Error(t, err, raw)
	}
}

func TestCaseRoundTrip(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()
	c, err := New(srv.URL+"/", WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	require.NoError(t, c.Healthz(ctx))

	_, err = c.CreateCase(ctx, cases.Input{BusinessName: "Nope"})
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	res, err := c.Login(ctx, adminEmail, adminPassword)
	require.NoError(t, err)
	assert.Equal(t, adminEmail, res.User.Email)

	created, err := c.CreateCase(ctx, cases.Input{BusinessName: "Sunrise Bakery", BusinessType: "Partnership"})
	require.NoError(t, err)
	assert.Equal(t, "MOP-2026-001", created.ID)
	assert.Equal(t, cases.StatusPendingReview, created.Status)

	in := cases.Input{BusinessName: created.BusinessName, BusinessType: created.BusinessType, Priority: created.Priority}
	st := cases.StatusApproved
	in.Status = &st
	_, err = c.UpdateCase(ctx, created.ID, in)
	require.ErrorIs(t, err, domain.ErrConflict)

	st = cases.StatusInReview
	moved, err := c.UpdateCase(ctx, created.ID, in)
	require.NoError(t, err)
	assert.Equal(t, cases.StatusInReview, moved.Status)

	got, err := c.GetCase(ctx, created.ID)
	require.NoError(t, err)
	assert.Len(t, got.History, 2)

	counts, err := c.CaseStatistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"In Review": 1}, counts)

	require.NoError(t, c.DeleteCase(ctx, created.ID))
	_, err = c.GetCase(ctx, created.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.NotEmpty(t, apiErr.RequestID)
}

func TestLoginFailure(t *testing.T) {
	srv := newServer(t)
	c, err := New(srv.URL, WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	_, err = c.Login(context.Background(), adminEmail, "wrong")
	require.ErrorIs(t, err, domain.ErrUnauthorized)
}
