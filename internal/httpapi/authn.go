package httpapi

import (
	"errors"
	"net/http"

	"gymstack.io/internal/auth"
	"gymstack.io/internal/obs"
	"gymstack.io/internal/stream"
)

// withViewer resolves the viewer for every request and stores it in the
// context. Requests without a credential pass through as anonymous; requests
// presenting an unusable credential are rejected uniformly with 401.
func (a *API) withViewer(next http.Handler) http.Handler {
	if a == nil || a.resolver == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		viewer, err := a.resolver.ResolveViewer(r.Context(), r.Header)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidCredential) {
				obs.CountAuthFailure("invalid_credential")
				a.publish(stream.SecurityEvent{Kind: stream.EventAuthFailed, Detail: "invalid credential"})
				writeError(w, r, http.StatusUnauthorized, "invalid or expired credential")
				return
			}
			writeError(w, r, http.StatusInternalServerError, "authentication error")
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.ContextWithViewer(r.Context(), viewer)))
	})
}

// requireViewer returns the authenticated viewer or writes 401.
func (a *API) requireViewer(w http.ResponseWriter, r *http.Request) (auth.Viewer, bool) {
	viewer, ok := auth.ViewerFromContext(r.Context())
	if !ok || !viewer.IsAuthenticated() {
		obs.CountAuthFailure("unauthenticated")
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return auth.Viewer{}, false
	}
	return viewer, true
}

// requireGym enforces a (category, operation) check against one gym. A denial
// writes 403; a store failure writes 500 and is never treated as a denial.
func (a *API) requireGym(w http.ResponseWriter, r *http.Request, cat auth.Category, op auth.Operation, gymID string) bool {
	viewer, ok := a.requireViewer(w, r)
	if !ok {
		return false
	}
	allowed, err := a.engine.AuthorizeGym(r.Context(), cat, op, viewer.UserID(), gymID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "authorization check failed")
		return false
	}
	if !allowed {
		obs.CountAuthFailure("forbidden")
		a.publish(stream.SecurityEvent{
			Kind:   stream.EventAccessDenied,
			UserID: viewer.UserID(),
			GymID:  gymID,
			Detail: string(cat) + ":" + string(op),
		})
		writeError(w, r, http.StatusForbidden, "forbidden")
		return false
	}
	return true
}

// requireOrg is requireGym across every gym of an organization.
func (a *API) requireOrg(w http.ResponseWriter, r *http.Request, cat auth.Category, op auth.Operation, organizationID string) bool {
	viewer, ok := a.requireViewer(w, r)
	if !ok {
		return false
	}
	allowed, err := a.engine.AuthorizeOrg(r.Context(), cat, op, viewer.UserID(), organizationID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "authorization check failed")
		return false
	}
	if !allowed {
		obs.CountAuthFailure("forbidden")
		a.publish(stream.SecurityEvent{
			Kind:   stream.EventAccessDenied,
			UserID: viewer.UserID(),
			Detail: string(cat) + ":" + string(op),
		})
		writeError(w, r, http.StatusForbidden, "forbidden")
		return false
	}
	return true
}

func (a *API) publish(evt stream.SecurityEvent) {
	if a.events != nil {
		a.events.Publish(evt)
	}
}
