package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const defaultTokenTTL = 30 * 24 * time.Hour

// UserFinder is the slice of the directory the token service needs for login.
type UserFinder interface {
	FindUserByEmail(ctx context.Context, email string) (User, error)
}

// Service owns the access-token lifecycle: login, issuance, revocation. It
// holds no cross-request state; all token rows live in the store.
type Service struct {
	tokens   TokenStore
	users    UserFinder
	now      func() time.Time
	tokenTTL time.Duration
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithTokenTTL overrides the access-token lifetime.
func WithTokenTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.tokenTTL = ttl
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs the token service.
func NewService(tokens TokenStore, users UserFinder, opts ...ServiceOption) (*Service, error) {
	if tokens == nil {
		return nil, errors.New("token store is required")
	}
	if users == nil {
		return nil, errors.New("user finder is required")
	}
	s := &Service{
		tokens:   tokens,
		users:    users,
		now:      time.Now,
		tokenTTL: defaultTokenTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Login verifies credentials and issues a fresh access token. Unknown email,
// bad password, and disabled account all collapse into ErrUnauthenticated so
// the response leaks nothing about which check failed.
func (s *Service) Login(ctx context.Context, email, password string) (raw string, expiresAt time.Time, user User, err error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return "", time.Time{}, User{}, ErrUnauthenticated
	}
	user, err = s.users.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", time.Time{}, User{}, ErrUnauthenticated
		}
		return "", time.Time{}, User{}, err
	}
	if user.Status != UserStatusActive {
		return "", time.Time{}, User{}, ErrUnauthenticated
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return "", time.Time{}, User{}, ErrUnauthenticated
	}
	raw, expiresAt, err = s.IssueAccessToken(ctx, user.ID)
	if err != nil {
		return "", time.Time{}, User{}, err
	}
	return raw, expiresAt, user, nil
}

// IssueAccessToken mints a credential for a user and persists its digest.
// The raw value is returned to the caller and written nowhere durable.
func (s *Service) IssueAccessToken(ctx context.Context, userID string) (string, time.Time, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", time.Time{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	raw, err := NewRawToken()
	if err != nil {
		return "", time.Time{}, err
	}
	now := s.now().UTC()
	expiresAt := now.Add(s.tokenTTL)
	tok := AccessToken{
		Digest:    HashToken(raw),
		UserID:    userID,
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}
	if err := s.tokens.CreateAccessToken(ctx, tok); err != nil {
		return "", time.Time{}, err
	}
	return raw, expiresAt, nil
}

// Revoke deletes the token row for a raw credential. ErrNotFound means the
// row was already gone; callers treat that as success-or-already-gone.
func (s *Service) Revoke(ctx context.Context, raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("%w: credential is required", ErrInvalidInput)
	}
	return s.tokens.DeleteAccessToken(ctx, HashToken(raw))
}

// RevokeDigest deletes the token row for an already-derived digest (the form
// the HTTP layer holds after viewer resolution).
func (s *Service) RevokeDigest(ctx context.Context, digest string) error {
	if strings.TrimSpace(digest) == "" {
		return fmt.Errorf("%w: digest is required", ErrInvalidInput)
	}
	return s.tokens.DeleteAccessToken(ctx, digest)
}

// RevokeAllForUser deletes every token for a user: logout-everywhere and
// forced reauthentication after password or email changes. A token issued
// concurrently may or may not survive; that race is accepted.
func (s *Service) RevokeAllForUser(ctx context.Context, userID string) (int64, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return 0, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	return s.tokens.DeleteAccessTokensForUser(ctx, userID)
}
