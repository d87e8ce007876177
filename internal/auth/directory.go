package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const defaultInvitationTTL = 14 * 24 * time.Hour

// Directory is the validation layer over the CRUD store: trims and checks
// input, hashes passwords, and keeps token state consistent with identity
// changes. Resolver-facing; holds no state of its own.
type Directory struct {
	store         DirectoryStore
	tokens        TokenStore
	now           func() time.Time
	invitationTTL time.Duration
}

// DirectoryOption configures Directory behavior.
type DirectoryOption func(*Directory)

// WithInvitationTTL overrides the invitation token lifetime.
func WithInvitationTTL(ttl time.Duration) DirectoryOption {
	return func(d *Directory) {
		if ttl > 0 {
			d.invitationTTL = ttl
		}
	}
}

// WithDirectoryClock overrides the time source (tests).
func WithDirectoryClock(fn func() time.Time) DirectoryOption {
	return func(d *Directory) {
		if fn != nil {
			d.now = fn
		}
	}
}

// NewDirectory constructs the directory service. The token store is needed so
// password and email changes can force reauthentication everywhere.
func NewDirectory(store DirectoryStore, tokens TokenStore, opts ...DirectoryOption) (*Directory, error) {
	if store == nil {
		return nil, errors.New("directory store is required")
	}
	if tokens == nil {
		return nil, errors.New("token store is required")
	}
	d := &Directory{
		store:         store,
		tokens:        tokens,
		now:           time.Now,
		invitationTTL: defaultInvitationTTL,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Organizations ------------------------------------------------------------

func (d *Directory) CreateOrganization(ctx context.Context, name string) (Organization, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Organization{}, fmt.Errorf("%w: organization name is required", ErrInvalidInput)
	}
	return d.store.CreateOrganization(ctx, name)
}

func (d *Directory) GetOrganization(ctx context.Context, id string, includeDeleted bool) (Organization, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Organization{}, fmt.Errorf("%w: organization_id is required", ErrInvalidInput)
	}
	return d.store.GetOrganization(ctx, id, includeDeleted)
}

func (d *Directory) ListOrganizations(ctx context.Context) ([]Organization, error) {
	return d.store.ListOrganizations(ctx)
}

func (d *Directory) DeleteOrganization(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: organization_id is required", ErrInvalidInput)
	}
	return d.store.DeleteOrganization(ctx, id)
}

// Gyms ----------------------------------------------------------------------

func (d *Directory) CreateGym(ctx context.Context, organizationID, name, city string) (Gym, error) {
	organizationID = strings.TrimSpace(organizationID)
	name = strings.TrimSpace(name)
	if organizationID == "" {
		return Gym{}, fmt.Errorf("%w: organization_id is required", ErrInvalidInput)
	}
	if name == "" {
		return Gym{}, fmt.Errorf("%w: gym name is required", ErrInvalidInput)
	}
	return d.store.CreateGym(ctx, organizationID, name, strings.TrimSpace(city))
}

func (d *Directory) GetGym(ctx context.Context, id string) (Gym, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Gym{}, fmt.Errorf("%w: gym_id is required", ErrInvalidInput)
	}
	return d.store.GetGym(ctx, id)
}

func (d *Directory) ListGyms(ctx context.Context, organizationID string) ([]Gym, error) {
	organizationID = strings.TrimSpace(organizationID)
	if organizationID == "" {
		return nil, fmt.Errorf("%w: organization_id is required", ErrInvalidInput)
	}
	return d.store.ListGyms(ctx, organizationID)
}

func (d *Directory) DeleteGym(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: gym_id is required", ErrInvalidInput)
	}
	return d.store.DeleteGym(ctx, id)
}

// Users ---------------------------------------------------------------------

func (d *Directory) CreateUser(ctx context.Context, email, password string) (User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return User{}, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	password = strings.TrimSpace(password)
	if password == "" {
		return User{}, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return User{}, err
	}
	return d.store.CreateUser(ctx, email, hash)
}

func (d *Directory) GetUser(ctx context.Context, id string) (User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return User{}, fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	return d.store.GetUser(ctx, id)
}

// UpdateUser applies the given mutations. Changing the password or the email
// revokes every access token for the user: sessions opened under the old
// identity must reauthenticate.
func (d *Directory) UpdateUser(ctx context.Context, id string, upd UserUpdate) (User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return User{}, fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	forceLogout := false
	if upd.Email != nil {
		email := strings.TrimSpace(strings.ToLower(*upd.Email))
		if email == "" || !strings.Contains(email, "@") {
			return User{}, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
		}
		upd.Email = &email
		forceLogout = true
	}
	if upd.Status != nil {
		status := strings.TrimSpace(strings.ToLower(*upd.Status))
		if status != UserStatusActive && status != UserStatusDisabled {
			return User{}, fmt.Errorf("%w: unsupported status %s", ErrInvalidInput, status)
		}
		upd.Status = &status
	}
	if upd.Password != nil {
		pw := strings.TrimSpace(*upd.Password)
		if pw == "" {
			return User{}, fmt.Errorf("%w: password is required", ErrInvalidInput)
		}
		hash, err := HashPassword(pw)
		if err != nil {
			return User{}, err
		}
		upd.Password = &hash
		forceLogout = true
	}
	user, err := d.store.UpdateUser(ctx, id, upd)
	if err != nil {
		return User{}, err
	}
	if forceLogout {
		if _, err := d.tokens.DeleteAccessTokensForUser(ctx, id); err != nil {
			return User{}, err
		}
	}
	return user, nil
}

func (d *Directory) DeleteUser(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	if err := d.store.DeleteUser(ctx, id); err != nil {
		return err
	}
	_, err := d.tokens.DeleteAccessTokensForUser(ctx, id)
	return err
}

// Roles and rights ----------------------------------------------------------

func (d *Directory) CreateRole(ctx context.Context, gymID, name string) (Role, error) {
	gymID = strings.TrimSpace(gymID)
	name = strings.TrimSpace(name)
	if gymID == "" {
		return Role{}, fmt.Errorf("%w: gym_id is required", ErrInvalidInput)
	}
	if name == "" {
		return Role{}, fmt.Errorf("%w: role name is required", ErrInvalidInput)
	}
	return d.store.CreateRole(ctx, gymID, name)
}

func (d *Directory) GetRole(ctx context.Context, id string) (Role, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Role{}, fmt.Errorf("%w: role_id is required", ErrInvalidInput)
	}
	return d.store.GetRole(ctx, id)
}

func (d *Directory) ListRoles(ctx context.Context, gymID string) ([]Role, error) {
	gymID = strings.TrimSpace(gymID)
	if gymID == "" {
		return nil, fmt.Errorf("%w: gym_id is required", ErrInvalidInput)
	}
	return d.store.ListRoles(ctx, gymID)
}

// SetRoleRights replaces a role's grants. Categories must be valid and appear
// at most once; each row carries all four flags explicitly.
func (d *Directory) SetRoleRights(ctx context.Context, roleID string, rights []AccessRight) error {
	roleID = strings.TrimSpace(roleID)
	if roleID == "" {
		return fmt.Errorf("%w: role_id is required", ErrInvalidInput)
	}
	seen := make(map[Category]struct{}, len(rights))
	for i, right := range rights {
		cat, err := ParseCategory(string(right.Category))
		if err != nil {
			return err
		}
		if _, dup := seen[cat]; dup {
			return fmt.Errorf("%w: duplicate category %s", ErrInvalidInput, cat)
		}
		seen[cat] = struct{}{}
		rights[i].Category = cat
	}
	return d.store.SetRoleRights(ctx, roleID, rights)
}

func (d *Directory) RoleRights(ctx context.Context, roleID string) ([]AccessRight, error) {
	roleID = strings.TrimSpace(roleID)
	if roleID == "" {
		return nil, fmt.Errorf("%w: role_id is required", ErrInvalidInput)
	}
	return d.store.RoleRights(ctx, roleID)
}

func (d *Directory) DeleteRole(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: role_id is required", ErrInvalidInput)
	}
	return d.store.DeleteRole(ctx, id)
}

// Employments ---------------------------------------------------------------

func (d *Directory) CreateEmployment(ctx context.Context, userID, gymID, roleID string) (Employment, error) {
	userID = strings.TrimSpace(userID)
	gymID = strings.TrimSpace(gymID)
	roleID = strings.TrimSpace(roleID)
	if userID == "" || gymID == "" || roleID == "" {
		return Employment{}, fmt.Errorf("%w: user_id, gym_id and role_id are required", ErrInvalidInput)
	}
	return d.store.CreateEmployment(ctx, userID, gymID, roleID)
}

func (d *Directory) ListEmployments(ctx context.Context, gymID string) ([]Employment, error) {
	gymID = strings.TrimSpace(gymID)
	if gymID == "" {
		return nil, fmt.Errorf("%w: gym_id is required", ErrInvalidInput)
	}
	return d.store.ListEmployments(ctx, gymID)
}

func (d *Directory) DeleteEmployment(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: employment_id is required", ErrInvalidInput)
	}
	return d.store.DeleteEmployment(ctx, id)
}

// Memberships ---------------------------------------------------------------

func (d *Directory) CreateMembership(ctx context.Context, gymID, userID, plan string, startsAt time.Time) (Membership, error) {
	gymID = strings.TrimSpace(gymID)
	userID = strings.TrimSpace(userID)
	plan = strings.TrimSpace(plan)
	if gymID == "" || userID == "" {
		return Membership{}, fmt.Errorf("%w: gym_id and user_id are required", ErrInvalidInput)
	}
	if plan == "" {
		return Membership{}, fmt.Errorf("%w: plan is required", ErrInvalidInput)
	}
	if startsAt.IsZero() {
		startsAt = d.now().UTC()
	}
	return d.store.CreateMembership(ctx, Membership{
		GymID:    gymID,
		UserID:   userID,
		Plan:     plan,
		StartsAt: startsAt,
	})
}

func (d *Directory) GetMembership(ctx context.Context, id string) (Membership, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Membership{}, fmt.Errorf("%w: membership_id is required", ErrInvalidInput)
	}
	return d.store.GetMembership(ctx, id)
}

func (d *Directory) ListMemberships(ctx context.Context, gymID string) ([]Membership, error) {
	gymID = strings.TrimSpace(gymID)
	if gymID == "" {
		return nil, fmt.Errorf("%w: gym_id is required", ErrInvalidInput)
	}
	return d.store.ListMemberships(ctx, gymID)
}

func (d *Directory) DeleteMembership(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: membership_id is required", ErrInvalidInput)
	}
	return d.store.DeleteMembership(ctx, id)
}

// Invitations ---------------------------------------------------------------

// InviteEmployee mints an invitation token for an email address into a gym
// under a role. The raw token is returned for delivery (mail, out of scope);
// only its digest is persisted.
func (d *Directory) InviteEmployee(ctx context.Context, gymID, roleID, email string) (Invitation, string, error) {
	gymID = strings.TrimSpace(gymID)
	roleID = strings.TrimSpace(roleID)
	email = strings.TrimSpace(strings.ToLower(email))
	if gymID == "" || roleID == "" {
		return Invitation{}, "", fmt.Errorf("%w: gym_id and role_id are required", ErrInvalidInput)
	}
	if email == "" || !strings.Contains(email, "@") {
		return Invitation{}, "", fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	role, err := d.store.GetRole(ctx, roleID)
	if err != nil {
		return Invitation{}, "", err
	}
	if role.GymID != gymID {
		return Invitation{}, "", fmt.Errorf("%w: role belongs to a different gym", ErrInvalidInput)
	}
	raw, err := NewRawToken()
	if err != nil {
		return Invitation{}, "", err
	}
	inv, err := d.store.CreateInvitation(ctx, Invitation{
		GymID:     gymID,
		RoleID:    roleID,
		Email:     email,
		Digest:    HashToken(raw),
		ExpiresAt: d.now().UTC().Add(d.invitationTTL),
	})
	if err != nil {
		return Invitation{}, "", err
	}
	return inv, raw, nil
}

// AcceptInvitation redeems a raw invitation token: creates the user (or
// reuses an existing one with the invited email) and the employment, then
// tombstones the invitation so it is single-use.
func (d *Directory) AcceptInvitation(ctx context.Context, rawToken, password string) (User, Employment, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return User{}, Employment{}, fmt.Errorf("%w: invitation token is required", ErrInvalidInput)
	}
	inv, err := d.store.LookupInvitation(ctx, HashToken(rawToken))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, Employment{}, ErrInvalidCredential
		}
		return User{}, Employment{}, err
	}
	if !inv.ExpiresAt.After(d.now()) {
		return User{}, Employment{}, ErrInvalidCredential
	}

	user, err := d.store.FindUserByEmail(ctx, inv.Email)
	if errors.Is(err, ErrNotFound) {
		user, err = d.CreateUser(ctx, inv.Email, password)
	}
	if err != nil {
		return User{}, Employment{}, err
	}

	emp, err := d.store.CreateEmployment(ctx, user.ID, inv.GymID, inv.RoleID)
	if err != nil {
		return User{}, Employment{}, err
	}
	if err := d.store.DeleteInvitation(ctx, inv.ID); err != nil && !errors.Is(err, ErrNotFound) {
		return User{}, Employment{}, err
	}
	return user, emp, nil
}
