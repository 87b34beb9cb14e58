package httpapi

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"mop.org/internal/auth"
	"mop.org/internal/refdata"
)

// paramResource binds one reference-data collection to its service calls.
type paramResource[T any] struct {
	name   string
	list   func(ctx context.Context, f refdata.Filter) ([]T, error)
	get    func(ctx context.Context, id string) (T, error)
	create func(ctx context.Context, in T) (T, error)
	update func(ctx context.Context, id string, in T) (T, error)
	remove func(ctx context.Context, id string) error
	idOf   func(T) string
}

// /v1/business-params/{business-types|merchant-categories|risk-categories}[/{id}]
func (a *API) handleBusinessParams(w http.ResponseWriter, r *http.Request) {
	if a.params == nil {
		unavailable(w, r, "business params")
		return
	}
	readOnly := r.Method == http.MethodGet
	if readOnly && !a.ensurePermission(w, r, auth.PermBusinessParams, auth.PermCaseManagement) {
		return
	}
	if !readOnly && !a.ensurePermission(w, r, auth.PermBusinessParams) {
		return
	}

	parts := pathParts(r.URL.Path, "/v1/business-params/")
	if len(parts) == 0 || len(parts) > 2 {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	var id string
	if len(parts) == 2 {
		id = parts[1]
	}

	switch parts[0] {
	case "business-types":
		serveParams(a, w, r, id, paramResource[refdata.BusinessType]{
			name:   parts[0],
			list:   a.params.ListBusinessTypes,
			get:    a.params.GetBusinessType,
			create: a.params.CreateBusinessType,
			update: a.params.UpdateBusinessType,
			remove: a.params.DeleteBusinessType,
			idOf:   func(v refdata.BusinessType) string { return v.ID },
		})
	case "merchant-categories":
		serveParams(a, w, r, id, paramResource[refdata.MerchantCategory]{
			name:   parts[0],
			list:   a.params.ListMerchantCategories,
			get:    a.params.GetMerchantCategory,
			create: a.params.CreateMerchantCategory,
			update: a.params.UpdateMerchantCategory,
			remove: a.params.DeleteMerchantCategory,
			idOf:   func(v refdata.MerchantCategory) string { return v.ID },
		})
	case "risk-categories":
		serveParams(a, w, r, id, paramResource[refdata.RiskCategory]{
			name: parts[0],
			list: func(ctx context.Context, _ refdata.Filter) ([]refdata.RiskCategory, error) {
				return a.params.ListRiskCategories(ctx)
			},
			get:    a.params.GetRiskCategory,
			create: a.params.CreateRiskCategory,
			update: a.params.UpdateRiskCategory,
			remove: a.params.DeleteRiskCategory,
			idOf:   func(v refdata.RiskCategory) string { return v.ID },
		})
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func serveParams[T any](a *API, w http.ResponseWriter, r *http.Request, id string, res paramResource[T]) {
	ctx := r.Context()
	if id == "" {
		switch r.Method {
		case http.MethodGet:
			q := r.URL.Query()
			items, err := res.list(ctx, refdata.Filter{
				Search:    strings.TrimSpace(q.Get("q")),
				Status:    strings.TrimSpace(q.Get("status")),
				RiskLevel: strings.TrimSpace(q.Get("risk_level")),
			})
			if err != nil {
				a.writeDomainError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, items)
		case http.MethodPost:
			var in T
			if err := decodeJSON(w, r, &in); err != nil {
				writeError(w, r, http.StatusBadRequest, err.Error())
				return
			}
			out, err := res.create(ctx, in)
			if err != nil {
				a.writeDomainError(w, r, err)
				return
			}
			a.audit(ctx, "business_params.create", map[string]any{"resource": res.name, "id": res.idOf(out)})
			w.Header().Set("Location", "/v1/business-params/"+res.name+"/"+url.PathEscape(res.idOf(out)))
			writeJSON(w, http.StatusCreated, out)
		default:
			methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
		}
		return
	}

	switch r.Method {
	case http.MethodGet:
		out, err := res.get(ctx, id)
		if err != nil {
			a.writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	case http.MethodPut:
		var in T
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		out, err := res.update(ctx, id, in)
		if err != nil {
			a.writeDomainError(w, r, err)
			return
		}
		a.audit(ctx, "business_params.update", map[string]any{"resource": res.name, "id": id})
		writeJSON(w, http.StatusOK, out)
	case http.MethodDelete:
		if err := res.remove(ctx, id); err != nil {
			a.writeDomainError(w, r, err)
			return
		}
		a.audit(ctx, "business_params.delete", map[string]any{"resource": res.name, "id": id})
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}
