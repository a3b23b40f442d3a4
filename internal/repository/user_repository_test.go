package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tailms-api/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

var userRowColumns = []string{"id", "email", "password_hash", "role", "status", "last_login", "created_at", "updated_at"}

func TestFindByEmailLowercases(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(userRowColumns).
		AddRow("u1", "student@tailms.com", "hash", string(models.RoleStudent), string(models.UserStatusActive), nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email = $1 LIMIT 1")).
		WithArgs("student@tailms.com").
		WillReturnRows(rows)

	user, err := repo.FindByEmail(context.Background(), "Student@TailMS.com")
	require.NoError(t, err)
	assert.Equal(t, models.UserStatusActive, user.Status)
	assert.Nil(t, user.LastLogin)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).WithArgs("missing").WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestListUsersWithFilters(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	role := models.RoleStudent
	status := models.UserStatusPending
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+userColumns+" FROM users WHERE role = $1 AND status = $2 AND email LIKE $3 ORDER BY email ASC LIMIT 10 OFFSET 10")).
		WithArgs(role, status, "%tail%").
		WillReturnRows(sqlmock.NewRows(userRowColumns).AddRow("u1", "pending@tailms.com", "hash", "STUDENT", "PENDING", nil, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users WHERE role = $1 AND status = $2 AND email LIKE $3")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))

	users, total, err := repo.List(context.Background(), models.UserFilter{
		Role: &role, Status: &status, Search: "TAIL", Page: 2, PageSize: 10, SortBy: "email", SortOrder: "asc",
	})
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, 11, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteUserMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM users WHERE id = $1")).WithArgs("u1").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "u1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO users").WillReturnError(&pq.Error{Code: "23505", Constraint: "users_email_key"})

	err := repo.Create(context.Background(), &models.User{Email: "dup@tailms.com", PasswordHash: "x", Role: models.RoleStudent, Status: models.UserStatusActive})
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
	assert.Equal(t, UsersEmailConstraint, ConstraintName(err))
}

func TestCreateIfMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (email) DO NOTHING")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("new-id"))
	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (email) DO NOTHING")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	user := &models.User{Email: "Admin@tailms.com", PasswordHash: "hash", Role: models.RoleAdmin, Status: models.UserStatusActive}
	created, err := repo.CreateIfMissing(context.Background(), user)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "admin@tailms.com", user.Email)

	created, err = repo.CreateIfMissing(context.Background(), &models.User{Email: "admin@tailms.com", Role: models.RoleAdmin, Status: models.UserStatusActive})
	require.NoError(t, err)
	assert.False(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRefreshToken(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO refresh_tokens").WillReturnResult(sqlmock.NewResult(1, 1))

	token := &models.RefreshToken{UserID: "u1", Token: "token", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, repo.CreateRefreshToken(context.Background(), token))
	assert.NotEmpty(t, token.ID)
	assert.False(t, token.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAuditLog(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAuditRepository(db)

	mock.ExpectExec("INSERT INTO audit_logs").WillReturnResult(sqlmock.NewResult(1, 1))

	actor := "admin"
	entry := &models.AuditLog{UserID: &actor, Action: models.AuditActionCourseCreate, Resource: "courses"}
	require.NoError(t, repo.CreateAuditLog(context.Background(), entry))
	assert.NotEmpty(t, entry.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
