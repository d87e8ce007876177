package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"gymstack.io/internal/auth"
)

func TestLoginIssuesTokenAndCookie(t *testing.T) {
	ta := newTestAPI(t)
	ta.seedUser("owner@gym.test", "s3cret")

	resp := ta.do(http.MethodPost, "/v1/auth/login", map[string]any{
		"email":    "owner@gym.test",
		"password": "s3cret",
	}, "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		Token string    `json:"token"`
		User  auth.User `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Token == "" {
		t.Fatal("expected a raw token in the response")
	}
	if body.User.Email != "owner@gym.test" {
		t.Fatalf("unexpected user: %+v", body.User)
	}

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == auth.AccessTokenCookie {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("expected accessToken cookie")
	}
	if !cookie.HttpOnly {
		t.Fatal("cookie must be HttpOnly")
	}
	if cookie.Value != body.Token {
		t.Fatal("cookie must carry the same raw token")
	}
}

func TestLoginBadCredentials(t *testing.T) {
	ta := newTestAPI(t)
	ta.seedUser("owner@gym.test", "s3cret")

	for _, body := range []map[string]any{
		{"email": "owner@gym.test", "password": "wrong"},
		{"email": "nobody@gym.test", "password": "s3cret"},
	} {
		resp := ta.do(http.MethodPost, "/v1/auth/login", body, "")
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("expected uniform 401, got %d for %v", resp.StatusCode, body)
		}
	}
}

func TestMeRequiresAuthentication(t *testing.T) {
	ta := newTestAPI(t)
	resp := ta.do(http.MethodGet, "/v1/auth/me", nil, "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestMeWithBearerToken(t *testing.T) {
	ta := newTestAPI(t)
	userID := ta.seedUser("owner@gym.test", "s3cret")
	token := ta.login("owner@gym.test", "s3cret")

	resp := ta.do(http.MethodGet, "/v1/auth/me", nil, token)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body struct {
		User auth.User `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.User.ID != userID {
		t.Fatalf("user id = %q, want %q", body.User.ID, userID)
	}
}

func TestMeWithCookie(t *testing.T) {
	ta := newTestAPI(t)
	ta.seedUser("owner@gym.test", "s3cret")
	token := ta.login("owner@gym.test", "s3cret")

	req, err := http.NewRequest(http.MethodGet, ta.srv.URL+"/v1/auth/me", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.AddCookie(&http.Cookie{Name: auth.AccessTokenCookie, Value: token})
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 via cookie, got %d", resp.StatusCode)
	}
}

func TestGarbageCredentialIsRejectedEverywhere(t *testing.T) {
	ta := newTestAPI(t)
	// Even an unauthenticated-friendly path rejects a presented-but-invalid
	// credential instead of downgrading to anonymous.
	resp := ta.do(http.MethodGet, "/healthz", nil, "garbage-token")
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	ta := newTestAPI(t)
	ta.seedUser("owner@gym.test", "s3cret")
	token := ta.login("owner@gym.test", "s3cret")

	resp := ta.do(http.MethodPost, "/v1/auth/logout", nil, token)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("logout status = %d", resp.StatusCode)
	}

	resp = ta.do(http.MethodGet, "/v1/auth/me", nil, token)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("revoked token must be rejected, got %d", resp.StatusCode)
	}
}

func TestLogoutAlreadyRevokedToken(t *testing.T) {
	ta := newTestAPI(t)
	userID := ta.seedUser("owner@gym.test", "s3cret")

	// The token vanished between viewer resolution and revocation, as happens
	// when logout races a concurrent logout_all. Already-gone is a success.
	user, err := ta.store.GetUser(context.Background(), userID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	viewer := auth.Authenticated(user, auth.AccessToken{Digest: auth.HashToken("never-stored"), UserID: userID})

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/logout", nil)
	req = req.WithContext(auth.ContextWithViewer(req.Context(), viewer))
	rr := httptest.NewRecorder()
	ta.api.handleLogout(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rr.Code)
	}
	cleared := false
	for _, c := range rr.Result().Cookies() {
		if c.Name == auth.AccessTokenCookie && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Fatal("expected the access cookie to be cleared")
	}
}

func TestLogoutAllRevokesEverySession(t *testing.T) {
	ta := newTestAPI(t)
	ta.seedUser("owner@gym.test", "s3cret")
	tok1 := ta.login("owner@gym.test", "s3cret")
	tok2 := ta.login("owner@gym.test", "s3cret")

	resp := ta.do(http.MethodPost, "/v1/auth/logout_all", nil, tok1)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout_all status = %d", resp.StatusCode)
	}
	var body struct {
		Revoked int64 `json:"revoked"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Revoked != 2 {
		t.Fatalf("revoked = %d, want 2", body.Revoked)
	}

	for _, tok := range []string{tok1, tok2} {
		r := ta.do(http.MethodGet, "/v1/auth/me", nil, tok)
		r.Body.Close()
		if r.StatusCode != http.StatusUnauthorized {
			t.Fatalf("expected 401 after logout_all, got %d", r.StatusCode)
		}
	}
}
