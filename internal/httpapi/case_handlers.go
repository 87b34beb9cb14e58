package httpapi

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"mop.org/internal/auth"
	"mop.org/internal/cases"
)

type casePage struct {
	Items []cases.Case `json:"items"`
	Page  int          `json:"page"`
	Size  int          `json:"size"`
	Total int          `json:"total"`
}

type historyRequest struct {
	Action string `json:"action"`
}

// GET|POST /v1/cases
func (a *API) handleCases(w http.ResponseWriter, r *http.Request) {
	if a.cases == nil {
		unavailable(w, r, "cases")
		return
	}
	switch r.Method {
	case http.MethodGet:
		if !a.ensurePermission(w, r, auth.PermCaseManagement, auth.PermCaseReview) {
			return
		}
		page, size, err := a.paging(r.URL.Query())
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		q := r.URL.Query()
		list, err := a.cases.FilterCases(r.Context(), strings.TrimSpace(q.Get("status")), strings.TrimSpace(q.Get("q")))
		if err != nil {
			a.writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, paginate(list, page, size))
	case http.MethodPost:
		if !a.ensurePermission(w, r, auth.PermCaseManagement) {
			return
		}
		var in cases.Input
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		c, err := a.cases.CreateCase(r.Context(), in)
		if err != nil {
			a.writeDomainError(w, r, err)
			return
		}
		a.audit(r.Context(), "case.created", map[string]any{"case_id": c.ID, "status": string(c.Status)})
		w.Header().Set("Location", "/v1/cases/"+url.PathEscape(c.ID))
		writeJSON(w, http.StatusCreated, c)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

// /v1/cases/{search|statistics|events|by-assignee/{id}|{id}[/history]}
func (a *API) handleCaseResource(w http.ResponseWriter, r *http.Request) {
	if a.cases == nil {
		unavailable(w, r, "cases")
		return
	}
	parts := pathParts(r.URL.Path, "/v1/cases/")
	switch {
	case len(parts) == 1 && parts[0] == "search":
		a.searchCases(w, r)
	case len(parts) == 1 && parts[0] == "statistics":
		a.caseStatistics(w, r)
	case len(parts) == 1 && parts[0] == "events":
		a.caseEvents(w, r)
	case len(parts) == 2 && parts[0] == "by-assignee":
		a.casesByAssignee(w, r, parts[1])
	case len(parts) == 1:
		a.caseByID(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "history":
		a.caseHistory(w, r, parts[0])
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) searchCases(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if !a.ensurePermission(w, r, auth.PermCaseManagement, auth.PermCaseReview) {
		return
	}
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, r, http.StatusBadRequest, "query parameter q is required")
		return
	}
	list, err := a.cases.SearchCases(r.Context(), q)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) caseStatistics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if a.stats == nil {
		unavailable(w, r, "statistics")
		return
	}
	if !a.ensurePermission(w, r, auth.PermCaseManagement, auth.PermDashboardView) {
		return
	}
	counts, err := a.stats.CaseStatusCounts(r.Context())
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

func (a *API) casesByAssignee(w http.ResponseWriter, r *http.Request, assignee string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if !a.ensurePermission(w, r, auth.PermCaseManagement, auth.PermCaseReview) {
		return
	}
	list, err := a.cases.ListByAssignee(r.Context(), assignee)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) caseByID(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		if !a.ensurePermission(w, r, auth.PermCaseManagement, auth.PermCaseReview) {
			return
		}
		c, err := a.cases.GetCase(r.Context(), id)
		if err != nil {
			a.writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	case http.MethodPut:
		if !a.ensurePermission(w, r, auth.PermCaseManagement, auth.PermCaseReview) {
			return
		}
		var in cases.Input
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		c, err := a.cases.UpdateCase(r.Context(), id, in)
		if err != nil {
			a.writeDomainError(w, r, err)
			return
		}
		a.audit(r.Context(), "case.updated", map[string]any{"case_id": c.ID, "status": string(c.Status)})
		writeJSON(w, http.StatusOK, c)
	case http.MethodDelete:
		if !a.ensurePermission(w, r, auth.PermCaseManagement) {
			return
		}
		if err := a.cases.DeleteCase(r.Context(), id); err != nil {
			a.writeDomainError(w, r, err)
			return
		}
		a.audit(r.Context(), "case.deleted", map[string]any{"case_id": id})
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) caseHistory(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		if !a.ensurePermission(w, r, auth.PermCaseManagement, auth.PermCaseReview) {
			return
		}
		entries, err := a.cases.History(r.Context(), id)
		if err != nil {
			a.writeDomainError(w, r, err)
			return
		}
		if entries == nil {
			entries = []cases.HistoryEntry{}
		}
		writeJSON(w, http.StatusOK, entries)
	case http.MethodPost:
		if !a.ensurePermission(w, r, auth.PermCaseManagement) {
			return
		}
		var req historyRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		entry, err := a.cases.AddHistoryEntry(r.Context(), id, req.Action)
		if err != nil {
			a.writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, entry)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

// GET /v1/dashboard/stats, GET /v1/dashboard/users/{id}
func (a *API) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if a.stats == nil {
		unavailable(w, r, "statistics")
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	parts := pathParts(r.URL.Path, "/v1/dashboard/")
	switch {
	case len(parts) == 1 && parts[0] == "stats":
		if !a.ensurePermission(w, r, auth.PermDashboardView) {
			return
		}
		stats, err := a.stats.DashboardStats(r.Context())
		if err != nil {
			a.writeDomainError(w, r, err)
			return
		}
		lifetime, err := a.stats.LifetimeTotal(r.Context())
		if err != nil {
			a.writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"case_statistics": stats.StatusCounts,
			"total_cases":     stats.TotalCases,
			"window_start":    stats.WindowStart,
			"lifetime_total":  lifetime,
		})
	case len(parts) == 2 && parts[0] == "users":
		if !a.ensurePermission(w, r, auth.PermDashboardView) {
			return
		}
		stats, err := a.stats.AssigneeStats(r.Context(), parts[1])
		if err != nil {
			a.writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

// paging reads zero-based page and size; size defaults to defaultSize and is
// capped at 100.
func (a *API) paging(q url.Values) (int, int, error) {
	page, size := 0, a.defaultSize
	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return 0, 0, errBadParam("page")
		}
		page = n
	}
	if v := q.Get("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return 0, 0, errBadParam("size")
		}
		size = min(n, 100)
	}
	return page, size, nil
}

func paginate(list []cases.Case, page, size int) casePage {
	out := casePage{Items: []cases.Case{}, Page: page, Size: size, Total: len(list)}
	if page >= (len(list)+size-1)/size {
		return out
	}
	start := page * size
	end := min(start+size, len(list))
	out.Items = list[start:end]
	return out
}

type paramError string

func (e paramError) Error() string { return "invalid query parameter " + string(e) }

func errBadParam(name string) error { return paramError(name) }
