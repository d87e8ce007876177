package pg

import (
	"context"
	"database/sql"
	"errors"

	"gymstack.io/internal/auth"
	"gymstack.io/internal/ids"
)

func (s *Store) CreateRole(ctx context.Context, gymID, name string) (auth.Role, error) {
	if s.db == nil {
		return auth.Role{}, errors.New("database connection unavailable")
	}
	var role auth.Role
	row := s.db.QueryRowContext(ctx, `
		insert into roles (id, gym_id, name)
		values ($1, $2, $3)
		returning id, gym_id, name, created_at, updated_at
	`, ids.New(), gymID, name)
	if err := row.Scan(&role.ID, &role.GymID, &role.Name, &role.CreatedAt, &role.UpdatedAt); err != nil {
		if pgErr, ok := maybePgError(err); ok {
			switch pgErr.Code {
			case pgErrUniqueViolation:
				return auth.Role{}, auth.ErrConflict
			case pgErrForeignKeyViolation:
				return auth.Role{}, auth.ErrNotFound
			}
		}
		return auth.Role{}, err
	}
	return role, nil
}

func (s *Store) GetRole(ctx context.Context, id string) (auth.Role, error) {
	if s.db == nil {
		return auth.Role{}, errors.New("database connection unavailable")
	}
	var role auth.Role
	err := s.db.QueryRowContext(ctx, `
		select id, gym_id, name, created_at, updated_at
		from roles
		where id = $1 and deleted_at is null
	`, id).Scan(&role.ID, &role.GymID, &role.Name, &role.CreatedAt, &role.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.Role{}, auth.ErrNotFound
	}
	if err != nil {
		return auth.Role{}, err
	}
	return role, nil
}

func (s *Store) ListRoles(ctx context.Context, gymID string) ([]auth.Role, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	rows, err := s.db.QueryContext(ctx, `
		select id, gym_id, name, created_at, updated_at
		from roles
		where gym_id = $1 and deleted_at is null
		order by name
	`, gymID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []auth.Role
	for rows.Next() {
		var role auth.Role
		if err := rows.Scan(&role.ID, &role.GymID, &role.Name, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return roles, nil
}

// SetRoleRights replaces a role's rights atomically: old rows out, new rows
// in, one transaction. Incoming AccessRight.ID values are ignored and fresh
// ids minted instead: access_rights is shared across roles, so honoring a
// caller-supplied id would let one role's editor rewrite a row linked to a
// role in another gym.
func (s *Store) SetRoleRights(ctx context.Context, roleID string, rights []auth.AccessRight) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	if err := tx.QueryRowContext(ctx, `select 1 from roles where id = $1 and deleted_at is null`, roleID).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return auth.ErrNotFound
		}
		return err
	}

	// Rights rows are owned one-to-one by their link, so the old rows go with
	// the links instead of piling up as orphans.
	if _, err := tx.ExecContext(ctx, `
		with removed as (
			delete from role_access_rights where role_id = $1
			returning access_right_id
		)
		delete from access_rights where id in (select access_right_id from removed)
	`, roleID); err != nil {
		return err
	}

	for _, right := range rights {
		rightID := ids.New()
		if _, err := tx.ExecContext(ctx, `
			insert into access_rights (id, category, can_create, can_read, can_update, can_delete)
			values ($1, $2, $3, $4, $5, $6)
		`, rightID, string(right.Category), right.Create, right.Read, right.Update, right.Delete); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			insert into role_access_rights (role_id, access_right_id)
			values ($1, $2)
		`, roleID, rightID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) RoleRights(ctx context.Context, roleID string) ([]auth.AccessRight, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	rows, err := s.db.QueryContext(ctx, `
		select ar.id, ar.category, ar.can_create, ar.can_read, ar.can_update, ar.can_delete
		from role_access_rights rar
		join access_rights ar on ar.id = rar.access_right_id
		where rar.role_id = $1
		order by ar.category
	`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rights []auth.AccessRight
	for rows.Next() {
		var (
			right auth.AccessRight
			cat   string
		)
		if err := rows.Scan(&right.ID, &cat, &right.Create, &right.Read, &right.Update, &right.Delete); err != nil {
			return nil, err
		}
		right.Category = auth.Category(cat)
		rights = append(rights, right)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rights, nil
}

func (s *Store) DeleteRole(ctx context.Context, id string) error {
	return s.tombstone(ctx, "roles", id)
}

func (s *Store) CreateEmployment(ctx context.Context, userID, gymID, roleID string) (auth.Employment, error) {
	if s.db == nil {
		return auth.Employment{}, errors.New("database connection unavailable")
	}
	var emp auth.Employment
	row := s.db.QueryRowContext(ctx, `
		insert into employments (id, user_id, gym_id, role_id)
		values ($1, $2, $3, $4)
		returning id, user_id, gym_id, role_id, created_at
	`, ids.New(), userID, gymID, roleID)
	if err := row.Scan(&emp.ID, &emp.UserID, &emp.GymID, &emp.RoleID, &emp.CreatedAt); err != nil {
		if pgErr, ok := maybePgError(err); ok {
			switch pgErr.Code {
			case pgErrUniqueViolation:
				return auth.Employment{}, auth.ErrConflict
			case pgErrForeignKeyViolation:
				return auth.Employment{}, auth.ErrNotFound
			}
		}
		return auth.Employment{}, err
	}
	return emp, nil
}

func (s *Store) ListEmployments(ctx context.Context, gymID string) ([]auth.Employment, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	rows, err := s.db.QueryContext(ctx, `
		select id, user_id, gym_id, role_id, created_at
		from employments
		where gym_id = $1 and deleted_at is null
		order by created_at
	`, gymID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var emps []auth.Employment
	for rows.Next() {
		var emp auth.Employment
		if err := rows.Scan(&emp.ID, &emp.UserID, &emp.GymID, &emp.RoleID, &emp.CreatedAt); err != nil {
			return nil, err
		}
		emps = append(emps, emp)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return emps, nil
}

func (s *Store) DeleteEmployment(ctx context.Context, id string) error {
	return s.tombstone(ctx, "employments", id)
}
