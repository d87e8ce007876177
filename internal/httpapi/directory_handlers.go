package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gymstack.io/internal/audit"
	"gymstack.io/internal/auth"
)

type createOrganizationRequest struct {
	Name string `json:"name"`
}

type createGymRequest struct {
	Name string `json:"name"`
	City string `json:"city"`
}

type createRoleRequest struct {
	Name string `json:"name"`
}

type setRoleRightsRequest struct {
	Rights []auth.AccessRight `json:"rights"`
}

type createEmploymentRequest struct {
	UserID string `json:"user_id"`
	RoleID string `json:"role_id"`
}

type createMembershipRequest struct {
	UserID   string    `json:"user_id"`
	Plan     string    `json:"plan"`
	StartsAt time.Time `json:"starts_at"`
}

type inviteEmployeeRequest struct {
	Email  string `json:"email"`
	RoleID string `json:"role_id"`
}

type updateUserRequest struct {
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

type acceptInvitationRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (a *API) handleOrganizations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		// Creating a tenant is open to any authenticated user; everything
		// below the organization is gated by role-granted rights.
		if _, ok := a.requireViewer(w, r); !ok {
			return
		}
		var req createOrganizationRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		org, err := a.directory.CreateOrganization(r.Context(), req.Name)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "directory.organization.create", map[string]any{
			"organization_id": org.ID,
			"name":            org.Name,
		})
		w.Header().Set("Location", fmt.Sprintf("/v1/organizations/%s", org.ID))
		writeJSON(w, http.StatusCreated, org)
	case http.MethodGet:
		if _, ok := a.requireViewer(w, r); !ok {
			return
		}
		orgs, err := a.directory.ListOrganizations(r.Context())
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": orgs})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleOrganizationResource(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/organizations/"), "/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	parts := strings.Split(path, "/")
	orgID := parts[0]

	switch {
	case len(parts) == 1:
		switch r.Method {
		case http.MethodGet:
			if !a.requireOrg(w, r, auth.CategoryOrganization, auth.OpRead, orgID) {
				return
			}
			includeDeleted := r.URL.Query().Get("include_deleted") == "true"
			org, err := a.directory.GetOrganization(r.Context(), orgID, includeDeleted)
			if err != nil {
				handleServiceError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, org)
		case http.MethodDelete:
			if !a.requireOrg(w, r, auth.CategoryOrganization, auth.OpDelete, orgID) {
				return
			}
			if err := a.directory.DeleteOrganization(r.Context(), orgID); err != nil {
				handleServiceError(w, r, err)
				return
			}
			_ = audit.LogEvent(r.Context(), "directory.organization.delete", map[string]any{
				"organization_id": orgID,
			})
			w.WriteHeader(http.StatusNoContent)
		default:
			methodNotAllowed(w, r, http.MethodGet, http.MethodDelete)
		}
	case len(parts) == 2 && parts[1] == "gyms":
		a.handleOrganizationGyms(w, r, orgID)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) handleOrganizationGyms(w http.ResponseWriter, r *http.Request, orgID string) {
	switch r.Method {
	case http.MethodGet:
		if !a.requireOrg(w, r, auth.CategoryGym, auth.OpRead, orgID) {
			return
		}
		gyms, err := a.directory.ListGyms(r.Context(), orgID)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": gyms})
	case http.MethodPost:
		if !a.allowGymCreate(w, r, orgID) {
			return
		}
		var req createGymRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		gym, err := a.directory.CreateGym(r.Context(), orgID, req.Name, req.City)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "directory.gym.create", map[string]any{
			"organization_id": orgID,
			"gym_id":          gym.ID,
		})
		w.Header().Set("Location", fmt.Sprintf("/v1/gyms/%s", gym.ID))
		writeJSON(w, http.StatusCreated, gym)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

// allowGymCreate handles the bootstrap case: an organization with no gyms yet
// has nobody who could hold a GYM create right, so its first gym may be
// created by any authenticated user. After that the normal check applies.
func (a *API) allowGymCreate(w http.ResponseWriter, r *http.Request, orgID string) bool {
	if _, ok := a.requireViewer(w, r); !ok {
		return false
	}
	gyms, err := a.directory.ListGyms(r.Context(), orgID)
	if err != nil {
		handleServiceError(w, r, err)
		return false
	}
	if len(gyms) == 0 {
		return true
	}
	return a.requireOrg(w, r, auth.CategoryGym, auth.OpCreate, orgID)
}

func (a *API) handleGymResource(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/gyms/"), "/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	parts := strings.Split(path, "/")
	gymID := parts[0]

	switch {
	case len(parts) == 1:
		switch r.Method {
		case http.MethodGet:
			if !a.requireGym(w, r, auth.CategoryGym, auth.OpRead, gymID) {
				return
			}
			gym, err := a.directory.GetGym(r.Context(), gymID)
			if err != nil {
				handleServiceError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, gym)
		case http.MethodDelete:
			if !a.requireGym(w, r, auth.CategoryGym, auth.OpDelete, gymID) {
				return
			}
			if err := a.directory.DeleteGym(r.Context(), gymID); err != nil {
				handleServiceError(w, r, err)
				return
			}
			_ = audit.LogEvent(r.Context(), "directory.gym.delete", map[string]any{"gym_id": gymID})
			w.WriteHeader(http.StatusNoContent)
		default:
			methodNotAllowed(w, r, http.MethodGet, http.MethodDelete)
		}
	case len(parts) == 2 && parts[1] == "roles":
		a.handleGymRoles(w, r, gymID)
	case len(parts) == 2 && parts[1] == "employments":
		a.handleGymEmployments(w, r, gymID)
	case len(parts) == 3 && parts[1] == "employments":
		a.handleGymEmployment(w, r, gymID, parts[2])
	case len(parts) == 2 && parts[1] == "memberships":
		a.handleGymMemberships(w, r, gymID)
	case len(parts) == 2 && parts[1] == "invitations":
		a.handleGymInvitations(w, r, gymID)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) handleGymRoles(w http.ResponseWriter, r *http.Request, gymID string) {
	switch r.Method {
	case http.MethodGet:
		if !a.requireGym(w, r, auth.CategoryRole, auth.OpRead, gymID) {
			return
		}
		roles, err := a.directory.ListRoles(r.Context(), gymID)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": roles})
	case http.MethodPost:
		if !a.requireGym(w, r, auth.CategoryRole, auth.OpCreate, gymID) {
			return
		}
		var req createRoleRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		role, err := a.directory.CreateRole(r.Context(), gymID, req.Name)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "directory.role.create", map[string]any{
			"gym_id":  gymID,
			"role_id": role.ID,
		})
		w.Header().Set("Location", fmt.Sprintf("/v1/roles/%s", role.ID))
		writeJSON(w, http.StatusCreated, role)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleGymEmployments(w http.ResponseWriter, r *http.Request, gymID string) {
	switch r.Method {
	case http.MethodGet:
		if !a.requireGym(w, r, auth.CategoryEmployment, auth.OpRead, gymID) {
			return
		}
		emps, err := a.directory.ListEmployments(r.Context(), gymID)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": emps})
	case http.MethodPost:
		if !a.requireGym(w, r, auth.CategoryEmployment, auth.OpCreate, gymID) {
			return
		}
		var req createEmploymentRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		emp, err := a.directory.CreateEmployment(r.Context(), req.UserID, gymID, req.RoleID)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "directory.employment.create", map[string]any{
			"gym_id":        gymID,
			"employment_id": emp.ID,
			"user_id":       emp.UserID,
		})
		writeJSON(w, http.StatusCreated, emp)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleGymEmployment(w http.ResponseWriter, r *http.Request, gymID, employmentID string) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, r, http.MethodDelete)
		return
	}
	if !a.requireGym(w, r, auth.CategoryEmployment, auth.OpDelete, gymID) {
		return
	}
	if err := a.directory.DeleteEmployment(r.Context(), employmentID); err != nil {
		handleServiceError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "directory.employment.delete", map[string]any{
		"gym_id":        gymID,
		"employment_id": employmentID,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleGymMemberships(w http.ResponseWriter, r *http.Request, gymID string) {
	switch r.Method {
	case http.MethodGet:
		if !a.requireGym(w, r, auth.CategoryMembership, auth.OpRead, gymID) {
			return
		}
		memberships, err := a.directory.ListMemberships(r.Context(), gymID)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": memberships})
	case http.MethodPost:
		if !a.requireGym(w, r, auth.CategoryMembership, auth.OpCreate, gymID) {
			return
		}
		var req createMembershipRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		m, err := a.directory.CreateMembership(r.Context(), gymID, req.UserID, req.Plan, req.StartsAt)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "directory.membership.create", map[string]any{
			"gym_id":        gymID,
			"membership_id": m.ID,
		})
		w.Header().Set("Location", fmt.Sprintf("/v1/memberships/%s", m.ID))
		writeJSON(w, http.StatusCreated, m)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleGymInvitations(w http.ResponseWriter, r *http.Request, gymID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if !a.requireGym(w, r, auth.CategoryInvitation, auth.OpCreate, gymID) {
		return
	}
	var req inviteEmployeeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	inv, rawToken, err := a.directory.InviteEmployee(r.Context(), gymID, req.RoleID, req.Email)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "directory.invitation.create", map[string]any{
		"gym_id":        gymID,
		"invitation_id": inv.ID,
	})
	// The raw token is returned once for delivery; it is not recoverable later.
	writeJSON(w, http.StatusCreated, map[string]any{
		"invitation": inv,
		"token":      rawToken,
	})
}

func (a *API) handleRoleResource(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/roles/"), "/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	parts := strings.Split(path, "/")
	roleID := parts[0]

	// The role's gym decides who may touch it, so resolve the role first.
	// Anonymous callers are rejected before any lookup happens.
	if _, ok := a.requireViewer(w, r); !ok {
		return
	}
	role, err := a.directory.GetRole(r.Context(), roleID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	switch {
	case len(parts) == 1:
		switch r.Method {
		case http.MethodGet:
			if !a.requireGym(w, r, auth.CategoryRole, auth.OpRead, role.GymID) {
				return
			}
			writeJSON(w, http.StatusOK, role)
		case http.MethodDelete:
			if !a.requireGym(w, r, auth.CategoryRole, auth.OpDelete, role.GymID) {
				return
			}
			if err := a.directory.DeleteRole(r.Context(), roleID); err != nil {
				handleServiceError(w, r, err)
				return
			}
			_ = audit.LogEvent(r.Context(), "directory.role.delete", map[string]any{"role_id": roleID})
			w.WriteHeader(http.StatusNoContent)
		default:
			methodNotAllowed(w, r, http.MethodGet, http.MethodDelete)
		}
	case len(parts) == 2 && parts[1] == "rights":
		switch r.Method {
		case http.MethodGet:
			if !a.requireGym(w, r, auth.CategoryRole, auth.OpRead, role.GymID) {
				return
			}
			rights, err := a.directory.RoleRights(r.Context(), roleID)
			if err != nil {
				handleServiceError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"items": rights})
		case http.MethodPut:
			if !a.requireGym(w, r, auth.CategoryRole, auth.OpUpdate, role.GymID) {
				return
			}
			var req setRoleRightsRequest
			if err := decodeJSON(w, r, &req); err != nil {
				writeError(w, r, http.StatusBadRequest, err.Error())
				return
			}
			if err := a.directory.SetRoleRights(r.Context(), roleID, req.Rights); err != nil {
				handleServiceError(w, r, err)
				return
			}
			_ = audit.LogEvent(r.Context(), "directory.role.rights.update", map[string]any{
				"role_id": roleID,
				"count":   len(req.Rights),
			})
			w.WriteHeader(http.StatusNoContent)
		default:
			methodNotAllowed(w, r, http.MethodGet, http.MethodPut)
		}
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) handleMembershipResource(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/memberships/"), "/")
	if path == "" || strings.Contains(path, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	membershipID := path

	if _, ok := a.requireViewer(w, r); !ok {
		return
	}
	m, err := a.directory.GetMembership(r.Context(), membershipID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	switch r.Method {
	case http.MethodGet:
		if !a.requireGym(w, r, auth.CategoryMembership, auth.OpRead, m.GymID) {
			return
		}
		writeJSON(w, http.StatusOK, m)
	case http.MethodDelete:
		if !a.requireGym(w, r, auth.CategoryMembership, auth.OpDelete, m.GymID) {
			return
		}
		if err := a.directory.DeleteMembership(r.Context(), membershipID); err != nil {
			handleServiceError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "directory.membership.delete", map[string]any{
			"membership_id": membershipID,
		})
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodDelete)
	}
}

func (a *API) handleUserResource(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/users/"), "/")
	if path == "" || strings.Contains(path, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	userID := path

	viewer, ok := a.requireViewer(w, r)
	if !ok {
		return
	}
	// Identity is self-service: only the account owner touches it.
	if viewer.UserID() != userID {
		writeError(w, r, http.StatusForbidden, "forbidden")
		return
	}

	switch r.Method {
	case http.MethodGet:
		user, err := a.directory.GetUser(r.Context(), userID)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	case http.MethodPatch:
		var req updateUserRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		user, err := a.directory.UpdateUser(r.Context(), userID, auth.UserUpdate{
			Email:    req.Email,
			Password: req.Password,
		})
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		// Email or password changes revoke every session, this one included.
		if req.Email != nil || req.Password != nil {
			clearAccessCookie(w)
		}
		_ = audit.LogEvent(r.Context(), "directory.user.update", map[string]any{"user_id": userID})
		writeJSON(w, http.StatusOK, user)
	case http.MethodDelete:
		if err := a.directory.DeleteUser(r.Context(), userID); err != nil {
			handleServiceError(w, r, err)
			return
		}
		clearAccessCookie(w)
		_ = audit.LogEvent(r.Context(), "directory.user.delete", map[string]any{"user_id": userID})
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch, http.MethodDelete)
	}
}

func (a *API) handleAcceptInvitation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req acceptInvitationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	user, emp, err := a.directory.AcceptInvitation(r.Context(), req.Token, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredential) {
			writeError(w, r, http.StatusUnauthorized, "invalid or expired invitation")
			return
		}
		handleServiceError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "directory.invitation.accept", map[string]any{
		"user_id":       user.ID,
		"employment_id": emp.ID,
	})
	writeJSON(w, http.StatusCreated, map[string]any{
		"user":       user,
		"employment": emp,
	})
}
