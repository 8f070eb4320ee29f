package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmadmdabit/MeetingSystem-sub001/types"
)

func testUser() types.User {
	return types.User{
		Name:         "Ada",
		Email:        " Ada@Example.COM ",
		Phone:        "+1-555-0100",
		PasswordHash: "$2a$10$hash",
	}
}

func newMockDB(t *testing.T) (*UserRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewUserRepository(db), mock
}

const userSelect = `SELECT id, name, email, phone, password_hash, profile_picture_key, created_at FROM users WHERE email = $1`

func userRow(id int64, email string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "name", "email", "phone", "password_hash", "profile_picture_key", "created_at",
	}).AddRow(id, "Ada", email, "+1-555-0100", "$2a$10$hash", "", time.Now().UTC())
}

func TestUserGetByEmailNormalizes(t *testing.T) {
	repo, mock := newMockDB(t)

	mock.ExpectQuery(userSelect).
		WithArgs("ada@example.com").
		WillReturnRows(userRow(1, "ada@example.com"))

	user, err := repo.GetByEmail(context.Background(), "  Ada@Example.COM ")
	require.NoError(t, err)
	assert.Equal(t, int64(1), user.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserGetByEmailNotFound(t *testing.T) {
	repo, mock := newMockDB(t)

	mock.ExpectQuery(userSelect).
		WithArgs("nobody@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserCreate(t *testing.T) {
	repo, mock := newMockDB(t)

	const insert = `INSERT INTO users (name, email, phone, password_hash, profile_picture_key, created_at) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`

	mock.ExpectQuery(insert).
		WithArgs("Ada", "ada@example.com", "+1-555-0100", "$2a$10$hash", "", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	user, err := repo.Create(context.Background(), testUser())
	require.NoError(t, err)
	assert.Equal(t, int64(7), user.ID)
	assert.Equal(t, "ada@example.com", user.Email, "email is stored lower-cased")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserCreateDuplicateEmail(t *testing.T) {
	repo, mock := newMockDB(t)

	const insert = `INSERT INTO users (name, email, phone, password_hash, profile_picture_key, created_at) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`

	mock.ExpectQuery(insert).
		WithArgs("Ada", "ada@example.com", "+1-555-0100", "$2a$10$hash", "", sqlmock.AnyArg()).
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := repo.Create(context.Background(), testUser())
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestUserSetProfilePictureKey(t *testing.T) {
	repo, mock := newMockDB(t)

	const update = `UPDATE users SET profile_picture_key = $1 WHERE id = $2`

	mock.ExpectExec(update).
		WithArgs("users/1/pic", int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	assert.NoError(t, repo.SetProfilePictureKey(context.Background(), 1, "users/1/pic"))

	mock.ExpectExec(update).
		WithArgs("users/2/pic", int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.SetProfilePictureKey(context.Background(), 2, "users/2/pic"), ErrNotFound)
}

func TestUserGetRoles(t *testing.T) {
	repo, mock := newMockDB(t)

	const query = `SELECT r.name FROM user_roles ur JOIN roles r ON r.id = ur.role_id WHERE ur.user_id = $1 ORDER BY r.name`

	mock.ExpectQuery(query).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("Admin").AddRow("User"))

	roles, err := repo.GetRoles(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Admin", "User"}, roles)
}

func TestUserGetRolesDatabaseDown(t *testing.T) {
	repo, mock := newMockDB(t)

	const query = `SELECT r.name FROM user_roles ur JOIN roles r ON r.id = ur.role_id WHERE ur.user_id = $1 ORDER BY r.name`

	mock.ExpectQuery(query).
		WithArgs(int64(1)).
		WillReturnError(errors.New("connection refused"))

	_, err := repo.GetRoles(context.Background(), 1)
	assert.Error(t, err)
}
