package pg

import (
	"context"
	"database/sql"
	"errors"

	"gymstack.io/internal/auth"
	"gymstack.io/internal/ids"
)

func (s *Store) CreateMembership(ctx context.Context, m auth.Membership) (auth.Membership, error) {
	if s.db == nil {
		return auth.Membership{}, errors.New("database connection unavailable")
	}
	var out auth.Membership
	row := s.db.QueryRowContext(ctx, `
		insert into memberships (id, gym_id, user_id, plan, starts_at)
		values ($1, $2, $3, $4, $5)
		returning id, gym_id, user_id, plan, starts_at, created_at, updated_at
	`, ids.New(), m.GymID, m.UserID, m.Plan, m.StartsAt)
	if err := row.Scan(&out.ID, &out.GymID, &out.UserID, &out.Plan, &out.StartsAt, &out.CreatedAt, &out.UpdatedAt); err != nil {
		if pgErr, ok := maybePgError(err); ok {
			switch pgErr.Code {
			case pgErrUniqueViolation:
				return auth.Membership{}, auth.ErrConflict
			case pgErrForeignKeyViolation:
				return auth.Membership{}, auth.ErrNotFound
			}
		}
		return auth.Membership{}, err
	}
	return out, nil
}

func (s *Store) GetMembership(ctx context.Context, id string) (auth.Membership, error) {
	if s.db == nil {
		return auth.Membership{}, errors.New("database connection unavailable")
	}
	var m auth.Membership
	err := s.db.QueryRowContext(ctx, `
		select id, gym_id, user_id, plan, starts_at, created_at, updated_at
		from memberships
		where id = $1 and deleted_at is null
	`, id).Scan(&m.ID, &m.GymID, &m.UserID, &m.Plan, &m.StartsAt, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.Membership{}, auth.ErrNotFound
	}
	if err != nil {
		return auth.Membership{}, err
	}
	return m, nil
}

func (s *Store) ListMemberships(ctx context.Context, gymID string) ([]auth.Membership, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	rows, err := s.db.QueryContext(ctx, `
		select id, gym_id, user_id, plan, starts_at, created_at, updated_at
		from memberships
		where gym_id = $1 and deleted_at is null
		order by starts_at desc
	`, gymID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []auth.Membership
	for rows.Next() {
		var m auth.Membership
		if err := rows.Scan(&m.ID, &m.GymID, &m.UserID, &m.Plan, &m.StartsAt, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) DeleteMembership(ctx context.Context, id string) error {
	return s.tombstone(ctx, "memberships", id)
}

func (s *Store) CreateInvitation(ctx context.Context, inv auth.Invitation) (auth.Invitation, error) {
	if s.db == nil {
		return auth.Invitation{}, errors.New("database connection unavailable")
	}
	var out auth.Invitation
	row := s.db.QueryRowContext(ctx, `
		insert into invitations (id, gym_id, role_id, email, digest, expires_at)
		values ($1, $2, $3, $4, $5, $6)
		returning id, gym_id, role_id, email, digest, expires_at, created_at
	`, ids.New(), inv.GymID, inv.RoleID, inv.Email, inv.Digest, inv.ExpiresAt)
	if err := row.Scan(&out.ID, &out.GymID, &out.RoleID, &out.Email, &out.Digest, &out.ExpiresAt, &out.CreatedAt); err != nil {
		if pgErr, ok := maybePgError(err); ok {
			switch pgErr.Code {
			case pgErrUniqueViolation:
				return auth.Invitation{}, auth.ErrConflict
			case pgErrForeignKeyViolation:
				return auth.Invitation{}, auth.ErrNotFound
			}
		}
		return auth.Invitation{}, err
	}
	return out, nil
}

func (s *Store) LookupInvitation(ctx context.Context, digest string) (auth.Invitation, error) {
	if s.db == nil {
		return auth.Invitation{}, errors.New("database connection unavailable")
	}
	var inv auth.Invitation
	err := s.db.QueryRowContext(ctx, `
		select id, gym_id, role_id, email, digest, expires_at, created_at
		from invitations
		where digest = $1 and deleted_at is null
	`, digest).Scan(&inv.ID, &inv.GymID, &inv.RoleID, &inv.Email, &inv.Digest, &inv.ExpiresAt, &inv.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.Invitation{}, auth.ErrNotFound
	}
	if err != nil {
		return auth.Invitation{}, err
	}
	return inv, nil
}

func (s *Store) DeleteInvitation(ctx context.Context, id string) error {
	return s.tombstone(ctx, "invitations", id)
}
