package auth

import (
	"fmt"
	"strings"
	"time"
)

// Category enumerates the resource kinds an access right can grant
// permissions over.
type Category string

const (
	CategoryOrganization Category = "ORGANIZATION"
	CategoryGym          Category = "GYM"
	CategoryRole         Category = "ROLE"
	CategoryEmployment   Category = "EMPLOYMENT"
	CategoryMembership   Category = "MEMBERSHIP"
	CategoryContract     Category = "CONTRACT"
	CategoryExercise     Category = "EXERCISE"
	CategoryWorkout      Category = "WORKOUT"
	CategoryInvitation   Category = "INVITATION"
	CategoryPost         Category = "POST"
	CategoryEvent        Category = "EVENT"
)

var categories = map[Category]struct{}{
	CategoryOrganization: {},
	CategoryGym:          {},
	CategoryRole:         {},
	CategoryEmployment:   {},
	CategoryMembership:   {},
	CategoryContract:     {},
	CategoryExercise:     {},
	CategoryWorkout:      {},
	CategoryInvitation:   {},
	CategoryPost:         {},
	CategoryEvent:        {},
}

// ParseCategory normalizes and validates a category name.
func ParseCategory(raw string) (Category, error) {
	cat := Category(strings.ToUpper(strings.TrimSpace(raw)))
	if _, ok := categories[cat]; !ok {
		return "", fmt.Errorf("%w: unknown category %q", ErrInvalidInput, raw)
	}
	return cat, nil
}

// Operation is one of the four CRUD verbs.
type Operation string

const (
	OpCreate Operation = "create"
	OpRead   Operation = "read"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// ParseOperation normalizes and validates an operation name.
func ParseOperation(raw string) (Operation, error) {
	op := Operation(strings.ToLower(strings.TrimSpace(raw)))
	switch op {
	case OpCreate, OpRead, OpUpdate, OpDelete:
		return op, nil
	}
	return "", fmt.Errorf("%w: unknown operation %q", ErrInvalidInput, raw)
}

// AccessRight is one permission tuple. All four flags are explicit per row;
// authorization never interpolates partial matches.
type AccessRight struct {
	ID       string   `json:"id,omitempty"`
	Category Category `json:"category"`
	Create   bool     `json:"create"`
	Read     bool     `json:"read"`
	Update   bool     `json:"update"`
	Delete   bool     `json:"delete"`
}

// Allows reports whether this right grants the (category, operation) pair.
func (r AccessRight) Allows(cat Category, op Operation) bool {
	if r.Category != cat {
		return false
	}
	switch op {
	case OpCreate:
		return r.Create
	case OpRead:
		return r.Read
	case OpUpdate:
		return r.Update
	case OpDelete:
		return r.Delete
	}
	return false
}

// Role groups access rights and is scoped to exactly one gym.
type Role struct {
	ID        string     `json:"id"`
	GymID     string     `json:"gym_id"`
	Name      string     `json:"name"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// Employment joins a user to a gym under a role. It is the sole path by which
// a user acquires role-granted rights for that gym.
type Employment struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	GymID     string     `json:"gym_id"`
	RoleID    string     `json:"role_id"`
	CreatedAt time.Time  `json:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// EmploymentGrant is one live employment with its role's rights preloaded,
// as returned by the access store for authorization checks.
type EmploymentGrant struct {
	EmploymentID string
	GymID        string
	RoleID       string
	Rights       []AccessRight
}
