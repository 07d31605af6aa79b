package user

import (
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func setupUserRepo(t *testing.T) (*Repository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	return NewRepository(sqlxDB), mock, func() { sqlxDB.Close() }
}

func userRows(id int, email string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "first_name", "last_name", "email", "password_hash", "role", "created_at"}).
		AddRow(id, "Alice", "Reyes", email, "$2a$10$hash", "member", time.Now())
}

func TestCreateUser(t *testing.T) {
	repo, mock, close := setupUserRepo(t)
	defer close()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users (first_name, last_name, email, password_hash, role)")).
		WithArgs("Alice", "Reyes", "alice@example.com", "$2a$10$hash", "member").
		WillReturnRows(userRows(1, "alice@example.com"))

	u, err := repo.Create("Alice", "Reyes", "alice@example.com", "$2a$10$hash", "member")
	require.NoError(t, err)
	require.Equal(t, 1, u.ID)
	require.Equal(t, "alice@example.com", u.Email)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByEmail(t *testing.T) {
	repo, mock, close := setupUserRepo(t)
	defer close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email = $1")).
		WithArgs("alice@example.com").
		WillReturnRows(userRows(1, "alice@example.com"))

	u, err := repo.FindByEmail("alice@example.com")
	require.NoError(t, err)
	require.Equal(t, "Alice", u.FirstName)
}

func TestFindByEmail_NotFound(t *testing.T) {
	repo, mock, close := setupUserRepo(t)
	defer close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email = $1")).
		WithArgs("ghost@example.com").
		WillReturnError(sql.ErrNoRows)

	u, err := repo.FindByEmail("ghost@example.com")
	require.Error(t, err)
	require.Nil(t, u)
}

func TestEmailExists(t *testing.T) {
	repo, mock, close := setupUserRepo(t)
	defer close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)")).
		WithArgs("alice@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.EmailExists("alice@example.com")
	require.NoError(t, err)
	require.True(t, exists)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)")).
		WithArgs("new@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	exists, err = repo.EmailExists("new@example.com")
	require.NoError(t, err)
	require.False(t, exists)
}
