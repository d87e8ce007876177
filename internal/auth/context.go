package auth

import "context"

type viewerContextKey struct{}

// ContextWithViewer attaches the resolved viewer to the request context.
func ContextWithViewer(ctx context.Context, viewer Viewer) context.Context {
	return context.WithValue(ctx, viewerContextKey{}, viewer)
}

// ViewerFromContext extracts the viewer resolved for this request. ok is
// false when no resolution ran (internal callers outside the HTTP path).
func ViewerFromContext(ctx context.Context) (Viewer, bool) {
	if ctx == nil {
		return Viewer{}, false
	}
	v, ok := ctx.Value(viewerContextKey{}).(Viewer)
	if !ok {
		return Viewer{}, false
	}
	return v, true
}
