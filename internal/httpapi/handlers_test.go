package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mop.org/internal/auth"
	"mop.org/internal/cases"
	"mop.org/internal/clock"
	"mop.org/internal/refdata"
)

const (
	adminEmail    = "admin@mop.test"
	adminPassword = "admin-password"
)

type apiClient struct {
	baseURL string
	client  *http.Client
	t       *testing.T
	users   *auth.UserService
}

func newTestAPI(t *testing.T) *apiClient {
	t.Helper()
	ctx := context.Background()
	clk := clock.NewFixed(time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC))

	identity := auth.NewInMemory()
	_, err := auth.EnsureCatalog(ctx, identity, clk)
	require.NoError(t, err)

	users, err := auth.NewUserService(identity, auth.WithUserClock(clk))
	require.NoError(t, err)
	rbac, err := auth.NewRBACService(identity, auth.WithRBACClock(clk))
	require.NoError(t, err)
	tokens, err := auth.NewTokenIssuer("a-test-secret-that-is-at-least-32-chars", auth.WithTokenClock(clk))
	require.NoError(t, err)
	resolver := auth.NewResolver(identity)
	authn, err := auth.NewAuthenticator(users, tokens, resolver, identity, "onboarding_officer")
	require.NoError(t, err)

	_, err = users.CreateUser(ctx, auth.UserInput{
		Name: "Admin", Email: adminEmail, Password: adminPassword, RoleIDs: []string{"admin"},
	})
	require.NoError(t, err)

	caseStore := cases.NewInMemory()
	caseSvc, err := cases.NewService(caseStore, cases.WithClock(clk))
	require.NoError(t, err)
	stats, err := cases.NewAggregator(caseStore, clk, 0)
	require.NoError(t, err)

	params, err := refdata.NewService(refdata.NewInMemory(), clk)
	require.NoError(t, err)

	api := New(ReadyProbe{}, "test",
		WithAuth(authn),
		WithRBAC(rbac, users, resolver),
		WithCases(caseSvc, stats),
		WithBusinessParams(params),
		WithClock(clk),
		WithLimits(1<<20, 0, 0),
	)

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	return &apiClient{baseURL: srv.URL, client: srv.Client(), t: t, users: users}
}

func (c *apiClient) do(method, path string, body any, token string) *http.Response {
	c.t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(c.t, err)
	}
	req, err := http.NewRequest(method, c.baseURL+path, bytes.NewReader(payload))
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.client.Do(req)
	require.NoError(c.t, err)
	return resp
}

func (c *apiClient) login(email, password string) string {
	c.t.Helper()
	resp := c.do(http.MethodPost, "/v1/auth/login", map[string]string{"email": email, "password": password}, "")
	require.Equal(c.t, http.StatusOK, resp.StatusCode)
	res := decode[auth.AuthResult](c.t, resp)
	require.NotEmpty(c.t, res.Tokens.AccessToken)
	return res.Tokens.AccessToken
}

func decode[T any](t *testing.T, r *http.Response) T {
	t.Helper()
	defer r.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(r.Body).Decode(&v))
	return v
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		body := decode[map[string]any](t, resp)
		t.Fatalf("status = %d, want %d (body %v)", resp.StatusCode, want, body)
	}
}

func TestHealthAndInfoArePublic(t *testing.T) {
	api := newTestAPI(t)

	resp := api.do(http.MethodGet, "/healthz", nil, "")
	expectStatus(t, resp, http.StatusOK)
	health := decode[map[string]any](t, resp)
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, serviceName, health["service"])

	resp = api.do(http.MethodGet, "/readyz", nil, "")
	expectStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = api.do(http.MethodGet, "/v1/info", nil, "")
	expectStatus(t, resp, http.StatusOK)
	info := decode[map[string]any](t, resp)
	assert.Equal(t, "2026-03-14T09:30:00Z", info["time"])

	resp = api.do(http.MethodGet, "/nope", nil, "")
	expectStatus(t, resp, http.StatusUnauthorized)
	resp.Body.Close()

	token := api.login(adminEmail, adminPassword)
	resp = api.do(http.MethodGet, "/nope", nil, token)
	expectStatus(t, resp, http.StatusNotFound)
	resp.Body.Close()
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	api := newTestAPI(t)

	resp := api.do(http.MethodGet, "/v1/cases", nil, "")
	expectStatus(t, resp, http.StatusUnauthorized)
	body := decode[map[string]any](t, resp)
	assert.NotEmpty(t, body["request_id"])

	resp = api.do(http.MethodGet, "/v1/cases", nil, "not-a-jwt")
	expectStatus(t, resp, http.StatusUnauthorized)
	resp.Body.Close()

	resp = api.do(http.MethodPost, "/v1/auth/login", map[string]string{"email": adminEmail, "password": "wrong"}, "")
	expectStatus(t, resp, http.StatusUnauthorized)
	resp.Body.Close()
}

func TestCaseLifecycle(t *testing.T) {
	api := newTestAPI(t)
	token := api.login(adminEmail, adminPassword)

	resp := api.do(http.MethodPost, "/v1/cases", map[string]any{
		"business_name": "Kopi Corner Sdn Bhd",
		"business_type": "Sole Proprietorship",
		"director_name": "Aminah Yusof",
		"assigned_to":   "USR-officer",
	}, token)
	expectStatus(t, resp, http.StatusCreated)
	location := resp.Header.Get("Location")
	created := decode[cases.Case](t, resp)
	assert.Equal(t, "MOP-2026-001", created.ID)
	assert.Equal(t, "/v1/cases/"+created.ID, location)
	assert.Equal(t, cases.StatusPendingReview, created.Status)
	require.Len(t, created.History, 1)
	assert.Equal(t, "Case created by USR-officer", created.History[0].Action)

	resp = api.do(http.MethodPut, "/v1/cases/"+created.ID, map[string]any{
		"business_name": "Kopi Corner Sdn Bhd",
		"assigned_to":   "USR-officer",
		"priority":      "Normal",
		"status":        "Approved",
	}, token)
	expectStatus(t, resp, http.StatusOK)
	updated := decode[cases.Case](t, resp)
	assert.Equal(t, cases.StatusApproved, updated.Status)

	resp = api.do(http.MethodPost, "/v1/cases/"+created.ID+"/history", map[string]string{"action": "Called director"}, token)
	expectStatus(t, resp, http.StatusCreated)
	resp.Body.Close()

	resp = api.do(http.MethodGet, "/v1/cases/"+created.ID+"/history", nil, token)
	expectStatus(t, resp, http.StatusOK)
	history := decode[[]cases.HistoryEntry](t, resp)
	require.Len(t, history, 3)
	assert.Equal(t, "Status changed from 'Pending Review' to 'Approved'", history[1].Action)
	assert.Equal(t, "Called director", history[2].Action)

	resp = api.do(http.MethodGet, "/v1/cases/search?q=kopi", nil, token)
	expectStatus(t, resp, http.StatusOK)
	assert.Len(t, decode[[]cases.Case](t, resp), 1)

	resp = api.do(http.MethodGet, "/v1/cases/by-assignee/USR-officer", nil, token)
	expectStatus(t, resp, http.StatusOK)
	assert.Len(t, decode[[]cases.Case](t, resp), 1)

	resp = api.do(http.MethodGet, "/v1/cases/statistics", nil, token)
	expectStatus(t, resp, http.StatusOK)
	assert.Equal(t, map[string]int{"Approved": 1}, decode[map[string]int](t, resp))

	resp = api.do(http.MethodGet, "/v1/dashboard/stats", nil, token)
	expectStatus(t, resp, http.StatusOK)
	dash := decode[map[string]any](t, resp)
	assert.EqualValues(t, 1, dash["total_cases"])
	assert.EqualValues(t, 1, dash["lifetime_total"])

	resp = api.do(http.MethodGet, "/v1/dashboard/users/USR-officer", nil, token)
	expectStatus(t, resp, http.StatusOK)
	assignee := decode[cases.AssigneeStats](t, resp)
	assert.Equal(t, map[string]int{"Approved": 1}, assignee.StatusCounts)

	resp = api.do(http.MethodDelete, "/v1/cases/"+created.ID, nil, token)
	expectStatus(t, resp, http.StatusNoContent)
	resp.Body.Close()

	resp = api.do(http.MethodGet, "/v1/cases/"+created.ID, nil, token)
	expectStatus(t, resp, http.StatusNotFound)
	resp.Body.Close()
}

func TestListCasesPaging(t *testing.T) {
	api := newTestAPI(t)
	token := api.login(adminEmail, adminPassword)

	for _, name := range []string{"Alpha Trading", "Beta Foods", "Gamma Logistics"} {
		resp := api.do(http.MethodPost, "/v1/cases", map[string]any{"business_name": name}, token)
		expectStatus(t, resp, http.StatusCreated)
		resp.Body.Close()
	}

	q := url.Values{"page": {"1"}, "size": {"2"}}
	resp := api.do(http.MethodGet, "/v1/cases?"+q.Encode(), nil, token)
	expectStatus(t, resp, http.StatusOK)
	page := decode[casePage](t, resp)
	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Items, 1)

	resp = api.do(http.MethodGet, "/v1/cases?status=Approved", nil, token)
	expectStatus(t, resp, http.StatusOK)
	assert.Empty(t, decode[casePage](t, resp).Items)

	resp = api.do(http.MethodGet, "/v1/cases?size=zero", nil, token)
	expectStatus(t, resp, http.StatusBadRequest)
	resp.Body.Close()

	q = url.Values{"page": {"461168601842738791"}, "size": {"20"}}
	resp = api.do(http.MethodGet, "/v1/cases?"+q.Encode(), nil, token)
	expectStatus(t, resp, http.StatusOK)
	far := decode[casePage](t, resp)
	assert.Empty(t, far.Items)
	assert.Equal(t, 3, far.Total)
}

func TestPaginateBounds(t *testing.T) {
	list := make([]cases.Case, 5)
	tests := []struct {
		page, size, want int
	}{
		{0, 2, 2},
		{2, 2, 1},
		{3, 2, 0},
		{math.MaxInt / 2, 20, 0},
		{math.MaxInt, 100, 0},
	}
	for _, tt := range tests {
		got := paginate(list, tt.page, tt.size)
		assert.Len(t, got.Items, tt.want, "page=%d size=%d", tt.page, tt.size)
		assert.Equal(t, 5, got.Total)
	}
	assert.Empty(t, paginate(nil, 0, 20).Items)
}

func TestRegisteredOfficerPermissions(t *testing.T) {
	api := newTestAPI(t)

	resp := api.do(http.MethodPost, "/v1/auth/register", map[string]string{
		"name": "Siti", "email": "siti@mop.test", "password": "officer-pass",
	}, "")
	expectStatus(t, resp, http.StatusCreated)
	reg := decode[auth.AuthResult](t, resp)
	assert.Equal(t, []string{"onboarding_officer"}, reg.User.RoleIDs)
	assert.Contains(t, reg.Permissions, auth.PermCaseManagement)
	token := reg.Tokens.AccessToken

	resp = api.do(http.MethodPost, "/v1/cases", map[string]any{"business_name": "Delta Mart"}, token)
	expectStatus(t, resp, http.StatusCreated)
	resp.Body.Close()

	resp = api.do(http.MethodGet, "/v1/roles", nil, token)
	expectStatus(t, resp, http.StatusForbidden)
	body := decode[map[string]any](t, resp)
	assert.Contains(t, body["error"], auth.PermRoleManagement)

	resp = api.do(http.MethodPost, "/v1/auth/refresh", map[string]string{"refresh_token": reg.Tokens.RefreshToken}, "")
	expectStatus(t, resp, http.StatusOK)
	resp.Body.Close()
}

func TestRoleAndUserManagement(t *testing.T) {
	api := newTestAPI(t)
	token := api.login(adminEmail, adminPassword)

	resp := api.do(http.MethodPost, "/v1/roles", map[string]any{
		"id": "auditor", "name": "Auditor", "is_active": true,
		"permissions": []string{auth.PermDashboardView},
	}, token)
	expectStatus(t, resp, http.StatusCreated)
	resp.Body.Close()

	resp = api.do(http.MethodGet, "/v1/roles/auditor/has-permission/"+auth.PermDashboardView, nil, token)
	expectStatus(t, resp, http.StatusOK)
	assert.Equal(t, true, decode[map[string]any](t, resp)["has_permission"])

	resp = api.do(http.MethodGet, "/v1/roles/auditor/has-permission/"+auth.PermCaseManagement, nil, token)
	expectStatus(t, resp, http.StatusOK)
	assert.Equal(t, false, decode[map[string]any](t, resp)["has_permission"])

	resp = api.do(http.MethodPost, "/v1/roles", map[string]any{
		"name": "Broken", "permissions": []string{"ghost"},
	}, token)
	expectStatus(t, resp, http.StatusBadRequest)
	resp.Body.Close()

	resp = api.do(http.MethodPost, "/v1/users", map[string]any{
		"name": "Ravi", "email": "ravi@mop.test", "password": "pw-ravi", "role_ids": []string{"auditor"},
	}, token)
	expectStatus(t, resp, http.StatusCreated)
	user := decode[auth.User](t, resp)

	resp = api.do(http.MethodGet, "/v1/users/by-role/auditor", nil, token)
	expectStatus(t, resp, http.StatusOK)
	assert.Len(t, decode[[]auth.User](t, resp), 1)

	resp = api.do(http.MethodPatch, "/v1/users/"+user.ID+"/toggle-status", nil, token)
	expectStatus(t, resp, http.StatusOK)
	assert.Equal(t, auth.UserStatusInactive, decode[auth.User](t, resp).Status)

	resp = api.do(http.MethodPost, "/v1/auth/login", map[string]string{"email": "ravi@mop.test", "password": "pw-ravi"}, "")
	expectStatus(t, resp, http.StatusForbidden)
	resp.Body.Close()

	resp = api.do(http.MethodGet, "/v1/permissions/category/cases", nil, token)
	expectStatus(t, resp, http.StatusOK)
	assert.Len(t, decode[[]auth.Permission](t, resp), 2)
}

func TestBusinessParams(t *testing.T) {
	api := newTestAPI(t)
	token := api.login(adminEmail, adminPassword)

	resp := api.do(http.MethodPost, "/v1/business-params/business-types", map[string]any{
		"code": "SOLE", "name": "Sole Proprietorship",
	}, token)
	expectStatus(t, resp, http.StatusCreated)
	bt := decode[refdata.BusinessType](t, resp)
	assert.Equal(t, refdata.StatusActive, bt.Status)

	resp = api.do(http.MethodPost, "/v1/business-params/business-types", map[string]any{
		"code": "SOLE", "name": "Duplicate",
	}, token)
	expectStatus(t, resp, http.StatusConflict)
	resp.Body.Close()

	resp = api.do(http.MethodPost, "/v1/business-params/merchant-categories", map[string]any{"name": "No code"}, token)
	expectStatus(t, resp, http.StatusBadRequest)
	body := decode[map[string]any](t, resp)
	assert.Equal(t, "validation failed", body["error"])
	assert.NotEmpty(t, body["details"])

	resp = api.do(http.MethodGet, "/v1/business-params/business-types?q=sole", nil, token)
	expectStatus(t, resp, http.StatusOK)
	assert.Len(t, decode[[]refdata.BusinessType](t, resp), 1)

	resp = api.do(http.MethodDelete, "/v1/business-params/business-types/"+bt.ID, nil, token)
	expectStatus(t, resp, http.StatusNoContent)
	resp.Body.Close()

	resp = api.do(http.MethodGet, "/v1/business-params/unknown", nil, token)
	expectStatus(t, resp, http.StatusNotFound)
	resp.Body.Close()
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"action":"x","extra":1}`))
	var dst historyRequest
	err := decodeJSON(httptest.NewRecorder(), req, &dst)
	require.Error(t, err)
}
