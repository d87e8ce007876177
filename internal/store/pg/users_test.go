package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"gymstack.io/internal/auth"
)

func userRow(now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "email", "password_hash", "email_verified", "status", "created_at", "updated_at",
	}).AddRow("u1", "a@b.c", "$argon2id$...", false, auth.UserStatusActive, now, now)
}

func TestCreateUserConflict(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("insert into users").
		WithArgs(sqlmock.AnyArg(), "a@b.c", "$argon2id$...", auth.UserStatusActive).
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation})

	if _, err := store.CreateUser(context.Background(), "a@b.c", "$argon2id$..."); !errors.Is(err, auth.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestUpdateUserBuildsPartialSet(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	email := "new@b.c"
	status := auth.UserStatusDisabled
	mock.ExpectExec(`update users set email = \$1, status = \$2, updated_at = now\(\) where id = \$3`).
		WithArgs(email, status, "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("select id, email, password_hash").
		WithArgs("u1").
		WillReturnRows(userRow(now))

	if _, err := store.UpdateUser(context.Background(), "u1", auth.UserUpdate{Email: &email, Status: &status}); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdateUserMissing(t *testing.T) {
	store, mock := newMockStore(t)
	email := "new@b.c"
	mock.ExpectExec("update users set email").
		WithArgs(email, "gone").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if _, err := store.UpdateUser(context.Background(), "gone", auth.UserUpdate{Email: &email}); !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdateUserNoFieldsJustReads(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("select id, email, password_hash").
		WithArgs("u1").
		WillReturnRows(userRow(time.Now().UTC()))

	if _, err := store.UpdateUser(context.Background(), "u1", auth.UserUpdate{}); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
