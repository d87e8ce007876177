package auth

import (
	"context"
	"errors"
	"strings"
)

// Engine answers "may user U perform operation O on category C" for a single
// gym or across every gym of an organization. Decisions are pure boolean
// predicates: "not authorized" is (false, nil), never an error. A store
// failure propagates as an error and must not be read as a denial.
type Engine struct {
	store AccessStore
}

// NewEngine constructs the authorization engine.
func NewEngine(store AccessStore) (*Engine, error) {
	if store == nil {
		return nil, errors.New("access store is required")
	}
	return &Engine{store: store}, nil
}

// AuthorizeGym reports whether at least one live employment of the user at
// the gym carries a role granting the (category, operation) pair. Existence
// check: any one qualifying grant authorizes, however many employments the
// user holds there.
func (e *Engine) AuthorizeGym(ctx context.Context, cat Category, op Operation, userID, gymID string) (bool, error) {
	userID = strings.TrimSpace(userID)
	gymID = strings.TrimSpace(gymID)
	if userID == "" || gymID == "" {
		return false, nil
	}
	grants, err := e.store.EmploymentsForUser(ctx, userID, gymID)
	if err != nil {
		return false, err
	}
	for _, grant := range grants {
		for _, right := range grant.Rights {
			if right.Allows(cat, op) {
				return true, nil
			}
		}
	}
	return false, nil
}

// AuthorizeOrg reports whether any gym under the organization authorizes the
// pair: a short-circuit OR across the organization's gyms, in no guaranteed
// order. An organization with zero gyms authorizes nothing.
func (e *Engine) AuthorizeOrg(ctx context.Context, cat Category, op Operation, userID, organizationID string) (bool, error) {
	userID = strings.TrimSpace(userID)
	organizationID = strings.TrimSpace(organizationID)
	if userID == "" || organizationID == "" {
		return false, nil
	}
	gyms, err := e.store.GymsForOrganization(ctx, organizationID)
	if err != nil {
		return false, err
	}
	for _, gymID := range gyms {
		ok, err := e.AuthorizeGym(ctx, cat, op, userID, gymID)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
