package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
)

const (
	authorizationHeader = "Authorization"
	bearerScheme        = "Bearer "

	// AccessTokenCookie is the cookie the HTTP layer uses to transport the
	// credential when no Authorization header is sent.
	AccessTokenCookie = "accessToken"
)

// Resolver turns a request's credential material into a viewer. Resolution is
// read-only: it never touches token state and performs exactly one store
// lookup per request.
type Resolver struct {
	tokens TokenStore
	now    func() time.Time
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithResolverClock overrides the time source (tests).
func WithResolverClock(fn func() time.Time) ResolverOption {
	return func(r *Resolver) {
		if fn != nil {
			r.now = fn
		}
	}
}

// NewResolver constructs a Resolver over the given token store.
func NewResolver(tokens TokenStore, opts ...ResolverOption) *Resolver {
	r := &Resolver{tokens: tokens, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveViewer resolves the viewer for one request. A request carrying no
// candidate credential resolves to Anonymous with a nil error; a request that
// presents a candidate matching no live token fails with ErrInvalidCredential.
// Any other error is an infrastructure failure.
func (r *Resolver) ResolveViewer(ctx context.Context, header http.Header) (Viewer, error) {
	raw := CredentialFromHeaders(header)
	if raw == "" {
		return Anonymous(), nil
	}
	tok, user, err := r.tokens.LookupAccessToken(ctx, HashToken(raw))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Anonymous(), ErrInvalidCredential
		}
		return Anonymous(), err
	}
	if !tok.ExpiresAt.After(r.now()) {
		// Expired rows are indistinguishable from absent ones to the caller.
		return Anonymous(), ErrInvalidCredential
	}
	return Authenticated(user, tok), nil
}

// CredentialFromHeaders extracts the candidate raw credential from request
// headers. The Authorization header takes strict precedence over the cookie;
// a malformed header yields no candidate rather than an error, and a
// well-formed header is never combined with the cookie.
func CredentialFromHeaders(h http.Header) string {
	if raw, ok := bearerToken(h.Get(authorizationHeader)); ok {
		return raw
	}
	if cookieHeader := h.Get("Cookie"); cookieHeader != "" {
		cookies, err := http.ParseCookie(cookieHeader)
		if err != nil {
			return ""
		}
		for _, c := range cookies {
			if c.Name == AccessTokenCookie && c.Value != "" {
				return c.Value
			}
		}
	}
	return ""
}

func bearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if len(header) < len(bearerScheme) {
		return "", false
	}
	if !strings.EqualFold(header[:len(bearerScheme)], bearerScheme) {
		return "", false
	}
	token := strings.TrimSpace(header[len(bearerScheme):])
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}
	return token, true
}
