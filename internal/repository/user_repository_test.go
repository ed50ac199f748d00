package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/bankcards/card-service/internal/apperrors"
	"github.com/bankcards/card-service/internal/models"
)

func setupUserMock(t *testing.T) (*UserRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	repo := NewUserRepository(db)
	cleanup := func() { db.Close() }
	return repo, mock, cleanup
}

func TestUserCreate_Success(t *testing.T) {
	repo, mock, cleanup := setupUserMock(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users (username, password_hash, role, email)`)).
		WithArgs("alice", "hash", models.RoleUser, "alice@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(1), now))

	user := &models.User{Username: "alice", PasswordHash: "hash", Role: models.RoleUser, Email: "alice@example.com"}
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if user.ID != 1 {
		t.Errorf("user.ID = %d; want 1", user.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestUserCreate_DuplicateUsername(t *testing.T) {
	repo, mock, cleanup := setupUserMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users`)).
		WithArgs("alice", "hash", models.RoleUser, "").
		WillReturnError(&pq.Error{Code: "23505"})

	user := &models.User{Username: "alice", PasswordHash: "hash", Role: models.RoleUser}
	err := repo.Create(context.Background(), user)
	if !apperrors.IsKind(err, apperrors.KindConflict) {
		t.Fatalf("Create error = %v; want Conflict", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestFindByUsername_NotFound(t *testing.T) {
	repo, mock, cleanup := setupUserMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE username = $1`)).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash", "role", "email", "created_at"}))

	_, err := repo.FindByUsername(context.Background(), "ghost")
	if !apperrors.IsKind(err, apperrors.KindNotFound) {
		t.Fatalf("FindByUsername error = %v; want NotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestFindByUsername_Success(t *testing.T) {
	repo, mock, cleanup := setupUserMock(t)
	defer cleanup()

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "username", "password_hash", "role", "email", "created_at"}).
		AddRow(int64(7), "alice", "hash", "ADMIN", "alice@example.com", now)
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE username = $1`)).
		WithArgs("alice").
		WillReturnRows(rows)

	user, err := repo.FindByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatalf("FindByUsername returned error: %v", err)
	}
	if user.ID != 7 || user.Role != models.RoleAdmin {
		t.Errorf("user = %+v; want id 7, role ADMIN", user)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestUserDelete_NotFound(t *testing.T) {
	repo, mock, cleanup := setupUserMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM users WHERE id = $1`)).
		WithArgs(int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), 42)
	if !apperrors.IsKind(err, apperrors.KindNotFound) {
		t.Fatalf("Delete error = %v; want NotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestUserList_WithFilter(t *testing.T) {
	repo, mock, cleanup := setupUserMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM users`)).
		WithArgs("ali").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(1)))

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY id`)).
		WithArgs("ali", 10, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash", "role", "email", "created_at"}).
			AddRow(int64(1), "alice", "hash", "USER", "", now))

	users, total, err := repo.List(context.Background(), "ali", 1, 10)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if total != 1 || len(users) != 1 || users[0].Username != "alice" {
		t.Errorf("List = %d users, total %d; want 1 user alice", len(users), total)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

// LIKE wildcards in the filter must match literally, not as patterns.
func TestUserList_EscapesLikeWildcards(t *testing.T) {
	repo, mock, cleanup := setupUserMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM users`)).
		WithArgs(`\%under\_score\\`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(0)))
	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY id`)).
		WithArgs(`\%under\_score\\`, 10, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash", "role", "email", "created_at"}))

	users, total, err := repo.List(context.Background(), `%under_score\`, 1, 10)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if total != 0 || len(users) != 0 {
		t.Errorf("List = %d users, total %d; want none", len(users), total)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestUpdateRole_Error(t *testing.T) {
	repo, mock, cleanup := setupUserMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET role = $1 WHERE id = $2`)).
		WithArgs(models.RoleAdmin, int64(5)).
		WillReturnError(errors.New("db down"))

	if err := repo.UpdateRole(context.Background(), 5, models.RoleAdmin); err == nil {
		t.Fatal("expected error, got nil")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
