package httpapi

import (
	"errors"
	"net/http"
	"time"

	"gymstack.io/internal/audit"
	"gymstack.io/internal/auth"
	"gymstack.io/internal/stream"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      auth.User `json:"user"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	raw, expiresAt, user, err := a.tokens.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	// Browser clients ride on the cookie; API clients use the token from the
	// body. The Authorization header always wins when both are sent.
	http.SetCookie(w, &http.Cookie{
		Name:     auth.AccessTokenCookie,
		Value:    raw,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})

	a.publish(stream.SecurityEvent{Kind: stream.EventLogin, UserID: user.ID})
	_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{
		"user_id":    user.ID,
		"expires_at": expiresAt.Format(time.RFC3339),
	})

	writeJSON(w, http.StatusOK, loginResponse{
		Token:     raw,
		ExpiresAt: expiresAt,
		User:      user,
	})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	viewer, ok := a.requireViewer(w, r)
	if !ok {
		return
	}
	tok, _ := viewer.AccessToken()
	// A token already deleted (say, by a concurrent logout_all) is as logged
	// out as it gets; only infrastructure failures surface.
	if err := a.tokens.RevokeDigest(r.Context(), tok.Digest); err != nil && !errors.Is(err, auth.ErrNotFound) {
		handleServiceError(w, r, err)
		return
	}
	clearAccessCookie(w)
	a.publish(stream.SecurityEvent{Kind: stream.EventLogout, UserID: viewer.UserID()})
	_ = audit.LogEvent(r.Context(), "auth.logout", nil)
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	viewer, ok := a.requireViewer(w, r)
	if !ok {
		return
	}
	n, err := a.tokens.RevokeAllForUser(r.Context(), viewer.UserID())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	clearAccessCookie(w)
	a.publish(stream.SecurityEvent{Kind: stream.EventLogoutAll, UserID: viewer.UserID()})
	_ = audit.LogEvent(r.Context(), "auth.logout_all", map[string]any{"revoked": n})
	writeJSON(w, http.StatusOK, map[string]any{"revoked": n})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	viewer, ok := a.requireViewer(w, r)
	if !ok {
		return
	}
	user, _ := viewer.User()
	tok, _ := viewer.AccessToken()
	writeJSON(w, http.StatusOK, map[string]any{
		"user":             user,
		"token_expires_at": tok.ExpiresAt,
	})
}

func clearAccessCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.AccessTokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}
