package auth

import "time"

// Organization owns zero or more gyms and is the outermost tenant boundary.
type Organization struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// Gym belongs to exactly one organization. All role-granted rights are scoped
// to a gym.
type Gym struct {
	ID             string     `json:"id"`
	OrganizationID string     `json:"organization_id"`
	Name           string     `json:"name"`
	City           string     `json:"city,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	DeletedAt      *time.Time `json:"deleted_at,omitempty"`
}

// User is a persisted identity. The password hash never leaves the backend.
type User struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	PasswordHash  string     `json:"-"`
	EmailVerified bool       `json:"email_verified"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty"`
}

const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// AccessToken is the persisted form of a credential. Only the digest is ever
// stored; usability (row exists and unexpired) is re-derived on every request.
type AccessToken struct {
	Digest    string    `json:"-"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Membership links a user to a gym as a paying member.
type Membership struct {
	ID        string     `json:"id"`
	GymID     string     `json:"gym_id"`
	UserID    string     `json:"user_id"`
	Plan      string     `json:"plan"`
	StartsAt  time.Time  `json:"starts_at"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// Invitation invites an email address into a gym under a role. The invitation
// token uses the same opaque-credential primitive as access tokens: the raw
// value goes out by mail, only its digest is stored.
type Invitation struct {
	ID        string     `json:"id"`
	GymID     string     `json:"gym_id"`
	RoleID    string     `json:"role_id"`
	Email     string     `json:"email"`
	Digest    string     `json:"-"`
	ExpiresAt time.Time  `json:"expires_at"`
	CreatedAt time.Time  `json:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}
