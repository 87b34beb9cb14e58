// Package httpapi exposes the onboarding services over HTTP and the gRPC
// health protocol.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"mop.org/internal/auth"
	"mop.org/internal/cases"
	"mop.org/internal/clock"
	"mop.org/internal/domain"
	"mop.org/internal/obs"
	"mop.org/internal/refdata"
	"mop.org/internal/stream"
)

const serviceName = "mop-api"

// Pinger is anything that can report database reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadyProbe checks readiness, typically by pinging the database.
type ReadyProbe struct {
	DB Pinger
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.Ping(ctx)
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string

	cases   *cases.Service
	stats   *cases.Aggregator
	auth    *auth.Authenticator
	rbac    *auth.RBACService
	users   *auth.UserService
	checker *auth.Resolver
	params  *refdata.Service
	events  *stream.Stream

	logger      *slog.Logger
	clock       clock.Clock
	origins     []string
	maxBody     int64
	rateBurst   int
	ratePerSec  float64
	defaultSize int
}

// Option configures the API.
type Option func(*API)

// WithCases installs the case service and its statistics aggregator.
func WithCases(svc *cases.Service, stats *cases.Aggregator) Option {
	return func(a *API) {
		a.cases = svc
		a.stats = stats
	}
}

// WithEvents enables the live case event feed at /v1/cases/events.
func WithEvents(s *stream.Stream) Option {
	return func(a *API) { a.events = s }
}

// WithAuth installs authentication. Without it every route is open.
func WithAuth(authn *auth.Authenticator) Option {
	return func(a *API) { a.auth = authn }
}

// WithRBAC installs role, permission and user management.
func WithRBAC(rbac *auth.RBACService, users *auth.UserService, resolver *auth.Resolver) Option {
	return func(a *API) {
		a.rbac = rbac
		a.users = users
		a.checker = resolver
	}
}

// WithBusinessParams installs reference-data management.
func WithBusinessParams(svc *refdata.Service) Option {
	return func(a *API) { a.params = svc }
}

// WithLogger overrides the shared logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *API) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithClock overrides the time source of /v1/info.
func WithClock(c clock.Clock) Option {
	return func(a *API) {
		if c != nil {
			a.clock = c
		}
	}
}

// WithCORSOrigins sets allowed origins. "*" allows any origin.
func WithCORSOrigins(origins []string) Option {
	return func(a *API) { a.origins = origins }
}

// WithLimits sets the request body cap and per-client rate limit. A zero
// rate disables limiting.
func WithLimits(maxBody int64, perSecond float64, burst int) Option {
	return func(a *API) {
		a.maxBody = maxBody
		a.ratePerSec = perSecond
		a.rateBurst = burst
	}
}

func New(rp ReadyProbe, version string, opts ...Option) *API {
	a := &API{
		mux:         http.NewServeMux(),
		readyProbe:  rp,
		version:     version,
		logger:      obs.Logger(),
		clock:       clock.System(),
		maxBody:     1 << 20,
		rateBurst:   100,
		ratePerSec:  50,
		defaultSize: 20,
	}
	for _, opt := range opts {
		opt(a)
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/v1/auth/", a.handleAuth)

	a.mux.HandleFunc("/v1/cases", a.handleCases)
	a.mux.HandleFunc("/v1/cases/", a.handleCaseResource)
	a.mux.HandleFunc("/v1/dashboard/", a.handleDashboard)

	a.mux.HandleFunc("/v1/roles", a.handleRoles)
	a.mux.HandleFunc("/v1/roles/", a.handleRoleResource)
	a.mux.HandleFunc("/v1/permissions", a.handlePermissions)
	a.mux.HandleFunc("/v1/permissions/", a.handlePermissionResource)
	a.mux.HandleFunc("/v1/users", a.handleUsers)
	a.mux.HandleFunc("/v1/users/", a.handleUserResource)

	a.mux.HandleFunc("/v1/business-params/", a.handleBusinessParams)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "resource not found")
	})

	return a
}

// Handler returns the mux wrapped in the full middleware chain.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.withAuth(a.mux)
	h = obs.Instrument(h)
	h = MaxBodyBytes(h, a.maxBody)
	if a.ratePerSec > 0 {
		h = RateLimit(h, a.rateBurst, a.ratePerSec)
	}
	h = CORS(h, a.origins)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	return RequestID(h)
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": serviceName,
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    serviceName,
		"time":    a.clock.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

// writeDomainError maps the domain error taxonomy onto HTTP statuses.
func (a *API) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		payload := map[string]any{"error": "validation failed", "details": verr.Errors}
		if rid := RequestIDFromContext(r.Context()); rid != "" {
			payload["request_id"] = rid
		}
		writeJSON(w, http.StatusBadRequest, payload)
	case errors.Is(err, domain.ErrValidation):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, r, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, r, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		writeError(w, r, http.StatusConflict, err.Error())
	default:
		a.logger.ErrorContext(r.Context(), "request failed",
			"request_id", RequestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"error", err)
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

// pathParts splits what follows prefix into non-empty segments.
func pathParts(path, prefix string) []string {
	rest := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if rest == "" {
		return nil
	}
	return strings.Split(rest, "/")
}

func unavailable(w http.ResponseWriter, r *http.Request, what string) {
	writeError(w, r, http.StatusServiceUnavailable, what+" service unavailable")
}
