package httpapi

import (
	"net/http"
	"net/url"
	"strings"

	"mop.org/internal/auth"
)

// GET|POST /v1/users
func (a *API) handleUsers(w http.ResponseWriter, r *http.Request) {
	if a.users == nil {
		unavailable(w, r, "users")
		return
	}
	if !a.ensurePermission(w, r, auth.PermUserManagement) {
		return
	}
	switch r.Method {
	case http.MethodGet:
		users, err := a.users.ListUsers(r.Context())
		if err != nil {
			a.writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, users)
	case http.MethodPost:
		var in auth.UserInput
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		user, err := a.users.CreateUser(r.Context(), in)
		if err != nil {
			a.writeDomainError(w, r, err)
			return
		}
		a.audit(r.Context(), "user.create", map[string]any{
			"target_user_id": user.ID,
			"role_ids":       user.RoleIDs,
		})
		w.Header().Set("Location", "/v1/users/"+url.PathEscape(user.ID))
		writeJSON(w, http.StatusCreated, user)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

// /v1/users/{search|by-role/{id}|{id}|{id}/toggle-status}
func (a *API) handleUserResource(w http.ResponseWriter, r *http.Request) {
	if a.users == nil {
		unavailable(w, r, "users")
		return
	}
	if !a.ensurePermission(w, r, auth.PermUserManagement) {
		return
	}
	parts := pathParts(r.URL.Path, "/v1/users/")
	switch {
	case len(parts) == 1 && parts[0] == "search":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		users, err := a.users.SearchUsers(r.Context(), strings.TrimSpace(r.URL.Query().Get("q")))
		if err != nil {
			a.writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, users)
	case len(parts) == 2 && parts[0] == "by-role":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		users, err := a.users.ListUsersByRole(r.Context(), parts[1])
		if err != nil {
			a.writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, users)
	case len(parts) == 2 && parts[1] == "toggle-status":
		if r.Method != http.MethodPatch {
			methodNotAllowed(w, r, http.MethodPatch)
			return
		}
		user, err := a.users.ToggleStatus(r.Context(), parts[0])
		if err != nil {
			a.writeDomainError(w, r, err)
			return
		}
		a.audit(r.Context(), "user.toggle_status", map[string]any{
			"target_user_id": user.ID,
			"status":         user.Status,
		})
		writeJSON(w, http.StatusOK, user)
	case len(parts) == 1:
		a.userByID(w, r, parts[0])
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) userByID(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		user, err := a.users.GetUser(r.Context(), id)
		if err != nil {
			a.writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	case http.MethodPut:
		var in auth.UserInput
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		user, err := a.users.UpdateUser(r.Context(), id, in)
		if err != nil {
			a.writeDomainError(w, r, err)
			return
		}
		a.audit(r.Context(), "user.update", map[string]any{
			"target_user_id": user.ID,
			"role_ids":       user.RoleIDs,
			"status":         user.Status,
		})
		writeJSON(w, http.StatusOK, user)
	case http.MethodDelete:
		if err := a.users.DeleteUser(r.Context(), id); err != nil {
			a.writeDomainError(w, r, err)
			return
		}
		a.audit(r.Context(), "user.delete", map[string]any{"target_user_id": id})
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}
