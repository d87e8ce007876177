package pg

import (
	"context"
	"database/sql"
	"errors"

	"gymstack.io/internal/auth"
	"gymstack.io/internal/ids"
)

func (s *Store) CreateOrganization(ctx context.Context, name string) (auth.Organization, error) {
	if s.db == nil {
		return auth.Organization{}, errors.New("database connection unavailable")
	}
	var org auth.Organization
	row := s.db.QueryRowContext(ctx, `
		insert into organizations (id, name)
		values ($1, $2)
		returning id, name, created_at, updated_at
	`, ids.New(), name)
	if err := row.Scan(&org.ID, &org.Name, &org.CreatedAt, &org.UpdatedAt); err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return auth.Organization{}, auth.ErrConflict
		}
		return auth.Organization{}, err
	}
	return org, nil
}

// GetOrganization is the single read path that can see tombstoned rows, for
// admin lookups into recently deleted tenants.
func (s *Store) GetOrganization(ctx context.Context, id string, includeDeleted bool) (auth.Organization, error) {
	if s.db == nil {
		return auth.Organization{}, errors.New("database connection unavailable")
	}
	query := `
		select id, name, created_at, updated_at, deleted_at
		from organizations
		where id = $1 and deleted_at is null
	`
	if includeDeleted {
		query = `
		select id, name, created_at, updated_at, deleted_at
		from organizations
		where id = $1
	`
	}
	var org auth.Organization
	err := s.db.QueryRowContext(ctx, query, id).
		Scan(&org.ID, &org.Name, &org.CreatedAt, &org.UpdatedAt, &org.DeletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.Organization{}, auth.ErrNotFound
	}
	if err != nil {
		return auth.Organization{}, err
	}
	return org, nil
}

func (s *Store) ListOrganizations(ctx context.Context) ([]auth.Organization, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	rows, err := s.db.QueryContext(ctx, `
		select id, name, created_at, updated_at
		from organizations
		where deleted_at is null
		order by name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []auth.Organization
	for rows.Next() {
		var org auth.Organization
		if err := rows.Scan(&org.ID, &org.Name, &org.CreatedAt, &org.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, org)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) DeleteOrganization(ctx context.Context, id string) error {
	return s.tombstone(ctx, "organizations", id)
}

func (s *Store) CreateGym(ctx context.Context, organizationID, name, city string) (auth.Gym, error) {
	if s.db == nil {
		return auth.Gym{}, errors.New("database connection unavailable")
	}
	var (
		gym auth.Gym
		cty sql.NullString
	)
	row := s.db.QueryRowContext(ctx, `
		insert into gyms (id, organization_id, name, city)
		values ($1, $2, $3, nullif($4, ''))
		returning id, organization_id, name, city, created_at, updated_at
	`, ids.New(), organizationID, name, city)
	if err := row.Scan(&gym.ID, &gym.OrganizationID, &gym.Name, &cty, &gym.CreatedAt, &gym.UpdatedAt); err != nil {
		if pgErr, ok := maybePgError(err); ok {
			switch pgErr.Code {
			case pgErrUniqueViolation:
				return auth.Gym{}, auth.ErrConflict
			case pgErrForeignKeyViolation:
				return auth.Gym{}, auth.ErrNotFound
			}
		}
		return auth.Gym{}, err
	}
	if cty.Valid {
		gym.City = cty.String
	}
	return gym, nil
}

func (s *Store) GetGym(ctx context.Context, id string) (auth.Gym, error) {
	if s.db == nil {
		return auth.Gym{}, errors.New("database connection unavailable")
	}
	var (
		gym auth.Gym
		cty sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		select id, organization_id, name, city, created_at, updated_at
		from gyms
		where id = $1 and deleted_at is null
	`, id).Scan(&gym.ID, &gym.OrganizationID, &gym.Name, &cty, &gym.CreatedAt, &gym.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.Gym{}, auth.ErrNotFound
	}
	if err != nil {
		return auth.Gym{}, err
	}
	if cty.Valid {
		gym.City = cty.String
	}
	return gym, nil
}

func (s *Store) ListGyms(ctx context.Context, organizationID string) ([]auth.Gym, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	rows, err := s.db.QueryContext(ctx, `
		select id, organization_id, name, city, created_at, updated_at
		from gyms
		where organization_id = $1 and deleted_at is null
		order by name
	`, organizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var gyms []auth.Gym
	for rows.Next() {
		var (
			gym auth.Gym
			cty sql.NullString
		)
		if err := rows.Scan(&gym.ID, &gym.OrganizationID, &gym.Name, &cty, &gym.CreatedAt, &gym.UpdatedAt); err != nil {
			return nil, err
		}
		if cty.Valid {
			gym.City = cty.String
		}
		gyms = append(gyms, gym)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return gyms, nil
}

func (s *Store) DeleteGym(ctx context.Context, id string) error {
	return s.tombstone(ctx, "gyms", id)
}
