package obs

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"mop.org/internal/cases"
	"mop.org/internal/config"
)

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                                        "/",
		"/metrics":                                "/metrics",
		"/v1/cases":                               "/v1/cases",
		"/v1/cases?status=Approved":               "/v1/cases",
		"/v1/cases/MOP-2026-001":                  "/v1/cases/:id",
		"/v1/cases/MOP-2026-001/history":          "/v1/cases/:id/history",
		"/v1/cases/search":                        "/v1/cases/search",
		"/v1/cases/by-assignee/USR01":             "/v1/cases/by-assignee/:id",
		"/v1/dashboard/users/USR01":               "/v1/dashboard/users/:id",
		"/v1/roles/admin/has-permission/dash":     "/v1/roles/:id/has-permission/:perm",
		"/v1/permissions/category/cases":          "/v1/permissions/category/:category",
		"/v1/users/USR01/toggle-status":           "/v1/users/:id/toggle-status",
		"/v1/business-params/business-types/bt_1": "/v1/business-params/business-types/:id",
		"/v1/auth/login":                          "/v1/auth/login",
		"/v1/unknown/abc":                         "/v1/unknown/abc",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}

func TestInstrumentCountsByCanonicalPath(t *testing.T) {
	Init()
	h := Instrument(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/v1/cases/:id", "418"))
	for _, id := range []string{"MOP-2026-001", "MOP-2026-002"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/cases/"+id, nil))
	}
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/v1/cases/:id", "418"))
	if after-before != 2 {
		t.Fatalf("expected 2 requests recorded, got %v", after-before)
	}
}

func TestDomainMetrics(t *testing.T) {
	Init()
	created := testutil.ToFloat64(casesCreated)
	CaseMetrics{}.CaseCreated(cases.Case{ID: "MOP-2026-001"})
	if got := testutil.ToFloat64(casesCreated) - created; got != 1 {
		t.Fatalf("cases created delta = %v", got)
	}

	moved := statusTransitions.WithLabelValues("Pending Review", "Approved")
	base := testutil.ToFloat64(moved)
	CaseMetrics{}.StatusChanged(cases.Case{ID: "MOP-2026-001"}, cases.StatusPendingReview, cases.StatusApproved)
	if got := testutil.ToFloat64(moved) - base; got != 1 {
		t.Fatalf("transition delta = %v", got)
	}

	denied := permissionChecks.WithLabelValues("case_review", "false")
	base = testutil.ToFloat64(denied)
	PermissionMetrics{}.PermissionChecked("case_review", false)
	if got := testutil.ToFloat64(denied) - base; got != 1 {
		t.Fatalf("permission delta = %v", got)
	}
}

func TestSetReady(t *testing.T) {
	Init()
	SetReady(true)
	if testutil.ToFloat64(readyGauge) != 1 {
		t.Fatal("expected ready gauge 1")
	}
	SetReady(false)
	if testutil.ToFloat64(readyGauge) != 0 {
		t.Fatal("expected ready gauge 0")
	}
}

func TestNewLoggerTo(t *testing.T) {
	prev := Logger()
	t.Cleanup(func() { SetLogger(prev) })

	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, config.LogConfig{Level: "warn", Format: "json"})
	logger.Info("dropped")
	logger.Warn("kept", "case_id", "MOP-2026-001")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line at warn level, got %d: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("log not valid JSON: %v", err)
	}
	if entry["msg"] != "kept" || entry["case_id"] != "MOP-2026-001" {
		t.Fatalf("unexpected entry: %v", entry)
	}
	if Logger() != logger {
		t.Fatal("NewLoggerTo should install the shared logger")
	}
}
