package pg

import (
	"context"
	"database/sql"
	"errors"

	"gymstack.io/internal/auth"
)

// LookupAccessToken returns the token row for a digest joined to its owning
// live user. A token whose user was tombstoned is as good as absent.
func (s *Store) LookupAccessToken(ctx context.Context, digest string) (auth.AccessToken, auth.User, error) {
	if s.db == nil {
		return auth.AccessToken{}, auth.User{}, errors.New("database connection unavailable")
	}
	var (
		tok  auth.AccessToken
		user auth.User
	)
	err := s.db.QueryRowContext(ctx, `
		select t.digest, t.user_id, t.expires_at, t.created_at,
		       u.id, u.email, u.password_hash, u.email_verified, u.status, u.created_at, u.updated_at
		from access_tokens t
		join users u on u.id = t.user_id and u.deleted_at is null
		where t.digest = $1
	`, digest).Scan(
		&tok.Digest, &tok.UserID, &tok.ExpiresAt, &tok.CreatedAt,
		&user.ID, &user.Email, &user.PasswordHash, &user.EmailVerified, &user.Status, &user.CreatedAt, &user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.AccessToken{}, auth.User{}, auth.ErrNotFound
	}
	if err != nil {
		return auth.AccessToken{}, auth.User{}, err
	}
	return tok, user, nil
}

func (s *Store) CreateAccessToken(ctx context.Context, tok auth.AccessToken) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	_, err := s.db.ExecContext(ctx, `
		insert into access_tokens (digest, user_id, expires_at, created_at)
		values ($1, $2, $3, $4)
	`, tok.Digest, tok.UserID, tok.ExpiresAt, tok.CreatedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok {
			switch pgErr.Code {
			case pgErrUniqueViolation:
				return auth.ErrConflict
			case pgErrForeignKeyViolation:
				return auth.ErrNotFound
			}
		}
		return err
	}
	return nil
}

func (s *Store) DeleteAccessToken(ctx context.Context, digest string) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	res, err := s.db.ExecContext(ctx, `delete from access_tokens where digest = $1`, digest)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return auth.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteAccessTokensForUser(ctx context.Context, userID string) (int64, error) {
	if s.db == nil {
		return 0, errors.New("database connection unavailable")
	}
	res, err := s.db.ExecContext(ctx, `delete from access_tokens where user_id = $1`, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
