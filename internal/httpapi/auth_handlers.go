package httpapi

import (
	"context"
	"net/http"

	"mop.org/internal/audit"
	"mop.org/internal/auth"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Department string `json:"department"`
	Phone      string `json:"phone"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (a *API) handleAuth(w http.ResponseWriter, r *http.Request) {
	if a.auth == nil {
		unavailable(w, r, "auth")
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	switch r.URL.Path {
	case "/v1/auth/login":
		var req loginRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		res, err := a.auth.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			a.audit(r.Context(), "auth.login_failed", map[string]any{"email": req.Email})
			a.writeDomainError(w, r, err)
			return
		}
		a.audit(r.Context(), "auth.login", map[string]any{"user_id": res.User.ID})
		writeJSON(w, http.StatusOK, res)
	case "/v1/auth/register":
		var req registerRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		res, err := a.auth.Register(r.Context(), auth.UserInput{
			Name:       req.Name,
			Email:      req.Email,
			Password:   req.Password,
			Department: req.Department,
			Phone:      req.Phone,
		})
		if err != nil {
			a.writeDomainError(w, r, err)
			return
		}
		a.audit(r.Context(), "auth.register", map[string]any{"user_id": res.User.ID, "email": res.User.Email})
		writeJSON(w, http.StatusCreated, res)
	case "/v1/auth/refresh":
		var req refreshRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		res, err := a.auth.Refresh(r.Context(), req.RefreshToken)
		if err != nil {
			a.writeDomainError(w, r, err)
			return
		}
		a.audit(r.Context(), "auth.refresh", map[string]any{"user_id": res.User.ID})
		writeJSON(w, http.StatusOK, res)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) audit(ctx context.Context, event string, fields map[string]any) {
	if err := audit.LogEvent(ctx, event, fields); err != nil {
		a.logger.WarnContext(ctx, "audit log failed", "event", event, "error", err)
	}
}
