package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"gymstack.io/internal/auth"
	"gymstack.io/internal/stream"
)

// memStore is an in-memory implementation of the auth persistence interfaces
// for handler tests.
type memStore struct {
	mu          sync.Mutex
	seq         int
	tokens      map[string]auth.AccessToken
	users       map[string]auth.User
	orgs        map[string]auth.Organization
	gyms        map[string]auth.Gym
	roles       map[string]auth.Role
	rights      map[string][]auth.AccessRight
	emps        map[string]auth.Employment
	memberships map[string]auth.Membership
	invitations map[string]auth.Invitation
}

func newMemStore() *memStore {
	return &memStore{
		tokens:      map[string]auth.AccessToken{},
		users:       map[string]auth.User{},
		orgs:        map[string]auth.Organization{},
		gyms:        map[string]auth.Gym{},
		roles:       map[string]auth.Role{},
		rights:      map[string][]auth.AccessRight{},
		emps:        map[string]auth.Employment{},
		memberships: map[string]auth.Membership{},
		invitations: map[string]auth.Invitation{},
	}
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

// TokenStore

func (m *memStore) LookupAccessToken(_ context.Context, digest string) (auth.AccessToken, auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tok, ok := m.tokens[digest]
	if !ok {
		return auth.AccessToken{}, auth.User{}, auth.ErrNotFound
	}
	user, ok := m.users[tok.UserID]
	if !ok || user.DeletedAt != nil {
		return auth.AccessToken{}, auth.User{}, auth.ErrNotFound
	}
	return tok, user, nil
}

func (m *memStore) CreateAccessToken(_ context.Context, tok auth.AccessToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[tok.Digest] = tok
	return nil
}

func (m *memStore) DeleteAccessToken(_ context.Context, digest string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tokens[digest]; !ok {
		return auth.ErrNotFound
	}
	delete(m.tokens, digest)
	return nil
}

func (m *memStore) DeleteAccessTokensForUser(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for digest, tok := range m.tokens {
		if tok.UserID == userID {
			delete(m.tokens, digest)
			n++
		}
	}
	return n, nil
}

// AccessStore

func (m *memStore) EmploymentsForUser(_ context.Context, userID, gymID string) ([]auth.EmploymentGrant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var grants []auth.EmploymentGrant
	for _, emp := range m.emps {
		if emp.UserID != userID || emp.DeletedAt != nil {
			continue
		}
		if gymID != "" && emp.GymID != gymID {
			continue
		}
		role, ok := m.roles[emp.RoleID]
		if !ok || role.DeletedAt != nil {
			continue
		}
		if gym, ok := m.gyms[emp.GymID]; !ok || gym.DeletedAt != nil {
			continue
		}
		grants = append(grants, auth.EmploymentGrant{
			EmploymentID: emp.ID,
			GymID:        emp.GymID,
			RoleID:       emp.RoleID,
			Rights:       m.rights[emp.RoleID],
		})
	}
	return grants, nil
}

func (m *memStore) GymsForOrganization(_ context.Context, organizationID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, gym := range m.gyms {
		if gym.OrganizationID == organizationID && gym.DeletedAt == nil {
			out = append(out, gym.ID)
		}
	}
	return out, nil
}

// DirectoryStore

func (m *memStore) CreateOrganization(_ context.Context, name string) (auth.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	org := auth.Organization{ID: m.nextID("org"), Name: name, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	m.orgs[org.ID] = org
	return org, nil
}

func (m *memStore) GetOrganization(_ context.Context, id string, includeDeleted bool) (auth.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	org, ok := m.orgs[id]
	if !ok || (org.DeletedAt != nil && !includeDeleted) {
		return auth.Organization{}, auth.ErrNotFound
	}
	return org, nil
}

func (m *memStore) ListOrganizations(_ context.Context) ([]auth.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []auth.Organization
	for _, org := range m.orgs {
		if org.DeletedAt == nil {
			out = append(out, org)
		}
	}
	return out, nil
}

func (m *memStore) DeleteOrganization(_ context.Context, id string) error {
	return m.softDelete(id, func(now time.Time) bool {
		org, ok := m.orgs[id]
		if !ok || org.DeletedAt != nil {
			return false
		}
		org.DeletedAt = &now
		m.orgs[id] = org
		return true
	})
}

func (m *memStore) softDelete(_ string, apply func(time.Time) bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !apply(time.Now()) {
		return auth.ErrNotFound
	}
	return nil
}

func (m *memStore) CreateGym(_ context.Context, organizationID, name, city string) (auth.Gym, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if org, ok := m.orgs[organizationID]; !ok || org.DeletedAt != nil {
		return auth.Gym{}, auth.ErrNotFound
	}
	gym := auth.Gym{ID: m.nextID("gym"), OrganizationID: organizationID, Name: name, City: city, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	m.gyms[gym.ID] = gym
	return gym, nil
}

func (m *memStore) GetGym(_ context.Context, id string) (auth.Gym, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	gym, ok := m.gyms[id]
	if !ok || gym.DeletedAt != nil {
		return auth.Gym{}, auth.ErrNotFound
	}
	return gym, nil
}

func (m *memStore) ListGyms(_ context.Context, organizationID string) ([]auth.Gym, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []auth.Gym
	for _, gym := range m.gyms {
		if gym.OrganizationID == organizationID && gym.DeletedAt == nil {
			out = append(out, gym)
		}
	}
	return out, nil
}

func (m *memStore) DeleteGym(_ context.Context, id string) error {
	return m.softDelete(id, func(now time.Time) bool {
		gym, ok := m.gyms[id]
		if !ok || gym.DeletedAt != nil {
			return false
		}
		gym.DeletedAt = &now
		m.gyms[id] = gym
		return true
	})
}

func (m *memStore) CreateUser(_ context.Context, email, passwordHash string) (auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email && u.DeletedAt == nil {
			return auth.User{}, auth.ErrConflict
		}
	}
	user := auth.User{ID: m.nextID("user"), Email: email, PasswordHash: passwordHash, Status: auth.UserStatusActive, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	m.users[user.ID] = user
	return user, nil
}

func (m *memStore) GetUser(_ context.Context, id string) (auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok || user.DeletedAt != nil {
		return auth.User{}, auth.ErrNotFound
	}
	return user, nil
}

func (m *memStore) FindUserByEmail(_ context.Context, email string) (auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Email == email && user.DeletedAt == nil {
			return user, nil
		}
	}
	return auth.User{}, auth.ErrNotFound
}

func (m *memStore) UpdateUser(_ context.Context, id string, upd auth.UserUpdate) (auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok || user.DeletedAt != nil {
		return auth.User{}, auth.ErrNotFound
	}
	if upd.Email != nil {
		user.Email = *upd.Email
	}
	if upd.Password != nil {
		user.PasswordHash = *upd.Password
	}
	if upd.EmailVerified != nil {
		user.EmailVerified = *upd.EmailVerified
	}
	if upd.Status != nil {
		user.Status = *upd.Status
	}
	user.UpdatedAt = time.Now()
	m.users[id] = user
	return user, nil
}

func (m *memStore) DeleteUser(_ context.Context, id string) error {
	return m.softDelete(id, func(now time.Time) bool {
		user, ok := m.users[id]
		if !ok || user.DeletedAt != nil {
			return false
		}
		user.DeletedAt = &now
		m.users[id] = user
		return true
	})
}

func (m *memStore) CreateRole(_ context.Context, gymID, name string) (auth.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	role := auth.Role{ID: m.nextID("role"), GymID: gymID, Name: name, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	m.roles[role.ID] = role
	return role, nil
}

func (m *memStore) GetRole(_ context.Context, id string) (auth.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	role, ok := m.roles[id]
	if !ok || role.DeletedAt != nil {
		return auth.Role{}, auth.ErrNotFound
	}
	return role, nil
}

func (m *memStore) ListRoles(_ context.Context, gymID string) ([]auth.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []auth.Role
	for _, role := range m.roles {
		if role.GymID == gymID && role.DeletedAt == nil {
			out = append(out, role)
		}
	}
	return out, nil
}

func (m *memStore) SetRoleRights(_ context.Context, roleID string, rights []auth.AccessRight) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if role, ok := m.roles[roleID]; !ok || role.DeletedAt != nil {
		return auth.ErrNotFound
	}
	// Caller-supplied right ids are never honored; fresh ones are minted.
	stored := make([]auth.AccessRight, len(rights))
	for i, right := range rights {
		right.ID = m.nextID("right")
		stored[i] = right
	}
	m.rights[roleID] = stored
	return nil
}

func (m *memStore) RoleRights(_ context.Context, roleID string) ([]auth.AccessRight, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rights[roleID], nil
}

func (m *memStore) DeleteRole(_ context.Context, id string) error {
	return m.softDelete(id, func(now time.Time) bool {
		role, ok := m.roles[id]
		if !ok || role.DeletedAt != nil {
			return false
		}
		role.DeletedAt = &now
		m.roles[id] = role
		return true
	})
}

func (m *memStore) CreateEmployment(_ context.Context, userID, gymID, roleID string) (auth.Employment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	emp := auth.Employment{ID: m.nextID("emp"), UserID: userID, GymID: gymID, RoleID: roleID, CreatedAt: time.Now()}
	m.emps[emp.ID] = emp
	return emp, nil
}

func (m *memStore) ListEmployments(_ context.Context, gymID string) ([]auth.Employment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []auth.Employment
	for _, emp := range m.emps {
		if emp.GymID == gymID && emp.DeletedAt == nil {
			out = append(out, emp)
		}
	}
	return out, nil
}

func (m *memStore) DeleteEmployment(_ context.Context, id string) error {
	return m.softDelete(id, func(now time.Time) bool {
		emp, ok := m.emps[id]
		if !ok || emp.DeletedAt != nil {
			return false
		}
		emp.DeletedAt = &now
		m.emps[id] = emp
		return true
	})
}

func (m *memStore) CreateMembership(_ context.Context, in auth.Membership) (auth.Membership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	in.ID = m.nextID("mem")
	in.CreatedAt = time.Now()
	in.UpdatedAt = time.Now()
	m.memberships[in.ID] = in
	return in, nil
}

func (m *memStore) GetMembership(_ context.Context, id string) (auth.Membership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mem, ok := m.memberships[id]
	if !ok || mem.DeletedAt != nil {
		return auth.Membership{}, auth.ErrNotFound
	}
	return mem, nil
}

func (m *memStore) ListMemberships(_ context.Context, gymID string) ([]auth.Membership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []auth.Membership
	for _, mem := range m.memberships {
		if mem.GymID == gymID && mem.DeletedAt == nil {
			out = append(out, mem)
		}
	}
	return out, nil
}

func (m *memStore) DeleteMembership(_ context.Context, id string) error {
	return m.softDelete(id, func(now time.Time) bool {
		mem, ok := m.memberships[id]
		if !ok || mem.DeletedAt != nil {
			return false
		}
		mem.DeletedAt = &now
		m.memberships[id] = mem
		return true
	})
}

func (m *memStore) CreateInvitation(_ context.Context, inv auth.Invitation) (auth.Invitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv.ID = m.nextID("inv")
	inv.CreatedAt = time.Now()
	m.invitations[inv.ID] = inv
	return inv, nil
}

func (m *memStore) LookupInvitation(_ context.Context, digest string) (auth.Invitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inv := range m.invitations {
		if inv.Digest == digest && inv.DeletedAt == nil {
			return inv, nil
		}
	}
	return auth.Invitation{}, auth.ErrNotFound
}

func (m *memStore) DeleteInvitation(_ context.Context, id string) error {
	return m.softDelete(id, func(now time.Time) bool {
		inv, ok := m.invitations[id]
		if !ok || inv.DeletedAt != nil {
			return false
		}
		inv.DeletedAt = &now
		m.invitations[id] = inv
		return true
	})
}

// testAPI wires the full HTTP stack over a memStore.
type testAPI struct {
	t     *testing.T
	api   *API
	srv   *httptest.Server
	store *memStore
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	store := newMemStore()

	tokens, err := auth.NewService(store, store)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	engine, err := auth.NewEngine(store)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	directory, err := auth.NewDirectory(store, store)
	if err != nil {
		t.Fatalf("NewDirectory: %v", err)
	}

	api := New(ReadyProbe{}, "test", Deps{
		Resolver:  auth.NewResolver(store),
		Tokens:    tokens,
		Engine:    engine,
		Directory: directory,
		Events:    stream.New(),
	})
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)
	return &testAPI{t: t, api: api, srv: srv, store: store}
}

// seedUser creates an active user with a known password and returns its id.
func (ta *testAPI) seedUser(email, password string) string {
	ta.t.Helper()
	hash, err := auth.HashPassword(password)
	if err != nil {
		ta.t.Fatalf("HashPassword: %v", err)
	}
	user, err := ta.store.CreateUser(context.Background(), email, "")
	if err != nil {
		ta.t.Fatalf("CreateUser: %v", err)
	}
	if _, err := ta.store.UpdateUser(context.Background(), user.ID, auth.UserUpdate{Password: &hash}); err != nil {
		ta.t.Fatalf("UpdateUser: %v", err)
	}
	return user.ID
}

// login returns the raw token for a seeded user.
func (ta *testAPI) login(email, password string) string {
	ta.t.Helper()
	resp := ta.do(http.MethodPost, "/v1/auth/login", map[string]any{
		"email":    email,
		"password": password,
	}, "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		ta.t.Fatalf("login status = %d", resp.StatusCode)
	}
	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		ta.t.Fatalf("decode login response: %v", err)
	}
	return body.Token
}

// grant seeds an org, gym, role with the given rights and an employment for
// the user; returns (orgID, gymID).
func (ta *testAPI) grant(userID string, rights []auth.AccessRight) (string, string) {
	ta.t.Helper()
	ctx := context.Background()
	org, _ := ta.store.CreateOrganization(ctx, "Iron Works")
	gym, err := ta.store.CreateGym(ctx, org.ID, "Iron Works Downtown", "Berlin")
	if err != nil {
		ta.t.Fatalf("CreateGym: %v", err)
	}
	role, _ := ta.store.CreateRole(ctx, gym.ID, "manager")
	if err := ta.store.SetRoleRights(ctx, role.ID, rights); err != nil {
		ta.t.Fatalf("SetRoleRights: %v", err)
	}
	if _, err := ta.store.CreateEmployment(ctx, userID, gym.ID, role.ID); err != nil {
		ta.t.Fatalf("CreateEmployment: %v", err)
	}
	return org.ID, gym.ID
}

func (ta *testAPI) do(method, path string, body any, token string) *http.Response {
	ta.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			ta.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, ta.srv.URL+path, reader)
	if err != nil {
		ta.t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		ta.t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}
