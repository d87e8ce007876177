package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"time"

	"gymstack.io/internal/auth"
	"gymstack.io/internal/store/pg"
)

// End-to-end smoke against a running gymstack-api: provisions a user straight
// through the store, then drives the HTTP surface — login, bootstrap gym
// creation, a denied request, logout, revoked-token rejection.
func main() {
	baseURL := os.Getenv("GYMSTACK_SMOKE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	dsn := os.Getenv("GYMSTACK_PG_DSN")
	if dsn == "" {
		log.Fatal("missing GYMSTACK_PG_DSN")
	}

	st, err := pg.Open(dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	nonce := rand.New(rand.NewSource(time.Now().UnixNano())).Int63()
	email := fmt.Sprintf("smoke-%d@gymstack.test", nonce)
	password := fmt.Sprintf("smoke-pass-%d", nonce)

	hash, err := auth.HashPassword(password)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}
	user, err := st.CreateUser(ctx, email, hash)
	if err != nil {
		log.Fatalf("create smoke user: %v", err)
	}

	client := &http.Client{Timeout: 10 * time.Second}

	token := login(client, baseURL, email, password)

	var org auth.Organization
	call(client, http.MethodPost, baseURL+"/v1/organizations", token,
		map[string]any{"name": fmt.Sprintf("Smoke Org %d", nonce)}, http.StatusCreated, &org)

	// First gym in a fresh organization: the bootstrap path lets any
	// authenticated user create it.
	var gym auth.Gym
	call(client, http.MethodPost, baseURL+"/v1/organizations/"+org.ID+"/gyms", token,
		map[string]any{"name": "Smoke Gym", "city": "Astana"}, http.StatusCreated, &gym)

	// A second gym needs a real GYM create right, which nobody granted.
	call(client, http.MethodPost, baseURL+"/v1/organizations/"+org.ID+"/gyms", token,
		map[string]any{"name": "Smoke Gym Two"}, http.StatusForbidden, nil)

	call(client, http.MethodPost, baseURL+"/v1/auth/logout", token, nil, http.StatusNoContent, nil)
	call(client, http.MethodGet, baseURL+"/v1/auth/me", token, nil, http.StatusUnauthorized, nil)

	fmt.Printf("smoke passed: user=%s org=%s gym=%s\n", user.ID, org.ID, gym.ID)
}

func login(client *http.Client, baseURL, email, password string) string {
	var resp struct {
		Token string `json:"token"`
	}
	call(client, http.MethodPost, baseURL+"/v1/auth/login", "",
		map[string]any{"email": email, "password": password}, http.StatusOK, &resp)
	if resp.Token == "" {
		log.Fatal("login returned no token")
	}
	return resp.Token
}

func call(client *http.Client, method, url, token string, body map[string]any, wantStatus int, out any) {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			log.Fatalf("marshal %s %s: %v", method, url, err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		log.Fatalf("request %s %s: %v", method, url, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		log.Fatalf("%s %s: status %d, want %d", method, url, resp.StatusCode, wantStatus)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			log.Fatalf("decode %s %s: %v", method, url, err)
		}
	}
}
