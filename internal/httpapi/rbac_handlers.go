package httpapi

import (
	"net/http"
	"net/url"
	"strings"

	"mop.org/internal/auth"
)

// GET|POST /v1/roles
func (a *API) handleRoles(w http.ResponseWriter, r *http.Request) {
	if a.rbac == nil {
		unavailable(w, r, "rbac")
		return
	}
	if !a.ensurePermission(w, r, auth.PermRoleManagement) {
		return
	}
	switch r.Method {
	case http.MethodGet:
		roles, err := a.rbac.ListRoles(r.Context())
		if err != nil {
			a.writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, roles)
	case http.MethodPost:
		var in auth.RoleInput
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		role, err := a.rbac.CreateRole(r.Context(), in)
		if err != nil {
			a.writeDomainError(w, r, err)
			return
		}
		a.audit(r.Context(), "rbac.role.create", map[string]any{
			"role_id":     role.ID,
			"permissions": role.Permissions,
		})
		w.Header().Set("Location", "/v1/roles/"+url.PathEscape(role.ID))
		writeJSON(w, http.StatusCreated, role)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

// /v1/roles/{active|{id}|{id}/has-permission/{perm}}
func (a *API) handleRoleResource(w http.ResponseWriter, r *http.Request) {
	if a.rbac == nil {
		unavailable(w, r, "rbac")
		return
	}
	if !a.ensurePermission(w, r, auth.PermRoleManagement) {
		return
	}
	parts := pathParts(r.URL.Path, "/v1/roles/")
	switch {
	case len(parts) == 1 && parts[0] == "active":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		roles, err := a.rbac.ListActiveRoles(r.Context())
		if err != nil {
			a.writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, roles)
	case len(parts) == 3 && parts[1] == "has-permission":
		a.roleHasPermission(w, r, parts[0], parts[2])
	case len(parts) == 1:
		a.roleByID(w, r, parts[0])
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) roleByID(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		role, err := a.rbac.GetRole(r.Context(), id)
		if err != nil {
			a.writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, role)
	case http.MethodPut:
		var in auth.RoleInput
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		role, err := a.rbac.UpdateRole(r.Context(), id, in)
		if err != nil {
			a.writeDomainError(w, r, err)
			return
		}
		a.audit(r.Context(), "rbac.role.update", map[string]any{
			"role_id":     role.ID,
			"permissions": role.Permissions,
			"is_active":   role.Active,
		})
		writeJSON(w, http.StatusOK, role)
	case http.MethodDelete:
		if err := a.rbac.DeleteRole(r.Context(), id); err != nil {
			a.writeDomainError(w, r, err)
			return
		}
		a.audit(r.Context(), "rbac.role.delete", map[string]any{"role_id": id})
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) roleHasPermission(w http.ResponseWriter, r *http.Request, roleID, permID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if a.checker == nil {
		unavailable(w, r, "permission resolver")
		return
	}
	ok, err := a.checker.HasPermission(r.Context(), roleID, permID)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"role_id":        roleID,
		"permission_id":  permID,
		"has_permission": ok,
	})
}

// GET|POST /v1/permissions
func (a *API) handlePermissions(w http.ResponseWriter, r *http.Request) {
	if a.rbac == nil {
		unavailable(w, r, "rbac")
		return
	}
	if !a.ensurePermission(w, r, auth.PermPermissionManagement) {
		return
	}
	switch r.Method {
	case http.MethodGet:
		perms, err := a.rbac.ListPermissions(r.Context())
		if err != nil {
			a.writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, perms)
	case http.MethodPost:
		var in auth.PermissionInput
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		perm, err := a.rbac.CreatePermission(r.Context(), in)
		if err != nil {
			a.writeDomainError(w, r, err)
			return
		}
		a.audit(r.Context(), "rbac.permission.create", map[string]any{
			"permission_id": perm.ID,
			"category":      perm.Category,
		})
		w.Header().Set("Location", "/v1/permissions/"+url.PathEscape(perm.ID))
		writeJSON(w, http.StatusCreated, perm)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

// /v1/permissions/{active|category/{category}|{id}}
func (a *API) handlePermissionResource(w http.ResponseWriter, r *http.Request) {
	if a.rbac == nil {
		unavailable(w, r, "rbac")
		return
	}
	if !a.ensurePermission(w, r, auth.PermPermissionManagement) {
		return
	}
	parts := pathParts(r.URL.Path, "/v1/permissions/")
	switch {
	case len(parts) == 1 && parts[0] == "active":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		perms, err := a.rbac.ListActivePermissions(r.Context())
		if err != nil {
			a.writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, perms)
	case len(parts) == 2 && parts[0] == "category":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		perms, err := a.rbac.ListPermissionsByCategory(r.Context(), strings.TrimSpace(parts[1]))
		if err != nil {
			a.writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, perms)
	case len(parts) == 1:
		a.permissionByID(w, r, parts[0])
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) permissionByID(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		perm, err := a.rbac.GetPermission(r.Context(), id)
		if err != nil {
			a.writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, perm)
	case http.MethodPut:
		var in auth.PermissionInput
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		perm, err := a.rbac.UpdatePermission(r.Context(), id, in)
		if err != nil {
			a.writeDomainError(w, r, err)
			return
		}
		a.audit(r.Context(), "rbac.permission.update", map[string]any{"permission_id": perm.ID})
		writeJSON(w, http.StatusOK, perm)
	case http.MethodDelete:
		if err := a.rbac.DeletePermission(r.Context(), id); err != nil {
			a.writeDomainError(w, r, err)
			return
		}
		a.audit(r.Context(), "rbac.permission.delete", map[string]any{"permission_id": id})
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}
