package auth

import "context"

// TokenStore persists access tokens keyed by digest. Rows are hard-deleted on
// logout; every other entity in the system is soft-deleted.
type TokenStore interface {
	// LookupAccessToken returns the token row for a digest joined to its
	// owning (live) user. ErrNotFound when no row or the user is deleted.
	LookupAccessToken(ctx context.Context, digest string) (AccessToken, User, error)
	CreateAccessToken(ctx context.Context, tok AccessToken) error
	// DeleteAccessToken removes the row for a digest; ErrNotFound when absent.
	DeleteAccessToken(ctx context.Context, digest string) error
	// DeleteAccessTokensForUser removes every token row for a user and
	// reports how many were removed. Zero is not an error.
	DeleteAccessTokensForUser(ctx context.Context, userID string) (int64, error)
}

// AccessStore serves the authorization engine's read paths. Both methods see
// live rows only: a soft-deleted employment, role, or gym never authorizes.
type AccessStore interface {
	// EmploymentsForUser returns the user's live employments with their
	// role's rights preloaded. gymID narrows to one gym; empty means all.
	EmploymentsForUser(ctx context.Context, userID, gymID string) ([]EmploymentGrant, error)
	// GymsForOrganization lists the ids of an organization's live gyms.
	GymsForOrganization(ctx context.Context, organizationID string) ([]string, error)
}

// UserUpdate carries optional user mutations. Password is plaintext here; the
// directory service hashes before it reaches a store.
type UserUpdate struct {
	Email         *string
	Password      *string
	EmailVerified *bool
	Status        *string
}

// DirectoryStore is the persistence surface behind the CRUD resolvers.
// Reads exclude soft-deleted rows unless a method says otherwise; deletes
// are tombstones.
type DirectoryStore interface {
	CreateOrganization(ctx context.Context, name string) (Organization, error)
	// GetOrganization is the one read path that can opt into seeing
	// tombstoned rows (admin lookups).
	GetOrganization(ctx context.Context, id string, includeDeleted bool) (Organization, error)
	ListOrganizations(ctx context.Context) ([]Organization, error)
	DeleteOrganization(ctx context.Context, id string) error

	CreateGym(ctx context.Context, organizationID, name, city string) (Gym, error)
	GetGym(ctx context.Context, id string) (Gym, error)
	ListGyms(ctx context.Context, organizationID string) ([]Gym, error)
	DeleteGym(ctx context.Context, id string) error

	CreateUser(ctx context.Context, email, passwordHash string) (User, error)
	GetUser(ctx context.Context, id string) (User, error)
	FindUserByEmail(ctx context.Context, email string) (User, error)
	UpdateUser(ctx context.Context, id string, upd UserUpdate) (User, error)
	DeleteUser(ctx context.Context, id string) error

	CreateRole(ctx context.Context, gymID, name string) (Role, error)
	GetRole(ctx context.Context, id string) (Role, error)
	ListRoles(ctx context.Context, gymID string) ([]Role, error)
	SetRoleRights(ctx context.Context, roleID string, rights []AccessRight) error
	RoleRights(ctx context.Context, roleID string) ([]AccessRight, error)
	DeleteRole(ctx context.Context, id string) error

	CreateEmployment(ctx context.Context, userID, gymID, roleID string) (Employment, error)
	ListEmployments(ctx context.Context, gymID string) ([]Employment, error)
	DeleteEmployment(ctx context.Context, id string) error

	CreateMembership(ctx context.Context, m Membership) (Membership, error)
	GetMembership(ctx context.Context, id string) (Membership, error)
	ListMemberships(ctx context.Context, gymID string) ([]Membership, error)
	DeleteMembership(ctx context.Context, id string) error

	CreateInvitation(ctx context.Context, inv Invitation) (Invitation, error)
	LookupInvitation(ctx context.Context, digest string) (Invitation, error)
	DeleteInvitation(ctx context.Context, id string) error
}
