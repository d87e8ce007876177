package pg

import (
	"context"
	"database/sql"
	"errors"

	"gymstack.io/internal/auth"
)

// EmploymentsForUser returns the user's live employments with their role's
// rights preloaded, for the authorization engine. Soft-deleted employments,
// roles, and gyms are invisible here, so a tombstone anywhere in the chain
// revokes access immediately.
func (s *Store) EmploymentsForUser(ctx context.Context, userID, gymID string) ([]auth.EmploymentGrant, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	rows, err := s.db.QueryContext(ctx, `
		select e.id, e.gym_id, e.role_id,
		       ar.id, ar.category, ar.can_create, ar.can_read, ar.can_update, ar.can_delete
		from employments e
		join roles r on r.id = e.role_id and r.deleted_at is null
		join gyms g on g.id = e.gym_id and g.deleted_at is null
		left join role_access_rights rar on rar.role_id = r.id
		left join access_rights ar on ar.id = rar.access_right_id
		where e.user_id = $1
		  and e.deleted_at is null
		  and ($2 = '' or e.gym_id = $2)
		order by e.id
	`, userID, gymID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		grants []auth.EmploymentGrant
		cur    *auth.EmploymentGrant
	)
	for rows.Next() {
		var (
			empID, empGym, empRole string
			rightID, category      sql.NullString
			cCreate, cRead         sql.NullBool
			cUpdate, cDelete       sql.NullBool
		)
		if err := rows.Scan(&empID, &empGym, &empRole, &rightID, &category, &cCreate, &cRead, &cUpdate, &cDelete); err != nil {
			return nil, err
		}
		if cur == nil || cur.EmploymentID != empID {
			grants = append(grants, auth.EmploymentGrant{
				EmploymentID: empID,
				GymID:        empGym,
				RoleID:       empRole,
			})
			cur = &grants[len(grants)-1]
		}
		// Roles without rights produce a null right row from the left join.
		if rightID.Valid {
			cur.Rights = append(cur.Rights, auth.AccessRight{
				ID:       rightID.String,
				Category: auth.Category(category.String),
				Create:   cCreate.Bool,
				Read:     cRead.Bool,
				Update:   cUpdate.Bool,
				Delete:   cDelete.Bool,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return grants, nil
}

func (s *Store) GymsForOrganization(ctx context.Context, organizationID string) ([]string, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	rows, err := s.db.QueryContext(ctx, `
		select id from gyms
		where organization_id = $1 and deleted_at is null
		order by id
	`, organizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var gymIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		gymIDs = append(gymIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return gymIDs, nil
}
