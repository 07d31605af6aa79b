package user

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clubhub/internal/auth"
	"clubhub/internal/coin"
	"clubhub/internal/logger"
)

const testJWTSecret = "handler-test-secret"

func TestMain(m *testing.M) {
	logger.Init()
	gin.SetMode(gin.TestMode)

	code := m.Run()
	os.Exit(code)
}

func setupHandler(t *testing.T) (*Handler, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	h := NewHandler(sqlxDB, coin.NewLedger(sqlxDB), testJWTSecret, nil)

	return h, mock, func() { sqlxDB.Close() }
}

func walletRow(ownerID int) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "owner_type", "owner_id", "balance", "total_earned", "total_spent", "last_transaction_at", "created_at", "updated_at"}).
		AddRow(1, "user", ownerID, 0, 0, 0, nil, now, now)
}

func performJSON(h gin.HandlerFunc, method, path string, payload any) *httptest.ResponseRecorder {
	body, _ := json.Marshal(payload)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, path, bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	h(c)
	return w
}

func TestRegister_Success(t *testing.T) {
	h, mock, close := setupHandler(t)
	defer close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)")).
		WithArgs("alice@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnRows(userRows(1, "alice@example.com"))
	// Новому пользователю сразу заводится пустой кошелек
	mock.ExpectQuery(regexp.QuoteMeta("FROM wallets WHERE owner_type = $1 AND owner_id = $2")).
		WithArgs(coin.OwnerUser, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO wallets (owner_type, owner_id) VALUES ($1, $2)")).
		WithArgs(coin.OwnerUser, 1).
		WillReturnRows(walletRow(1))

	w := performJSON(h.Register, "POST", "/auth/register", gin.H{
		"firstName": "Alice",
		"lastName":  "Reyes",
		"email":     "alice@example.com",
		"password":  "password123",
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "accessToken")
	assert.Contains(t, w.Body.String(), "refreshToken")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegister_DuplicateEmail(t *testing.T) {
	h, mock, close := setupHandler(t)
	defer close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)")).
		WithArgs("taken@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	w := performJSON(h.Register, "POST", "/auth/register", gin.H{
		"firstName": "Bob",
		"lastName":  "Cruz",
		"email":     "taken@example.com",
		"password":  "password123",
	})

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRegister_InvalidBody(t *testing.T) {
	h, _, close := setupHandler(t)
	defer close()

	w := performJSON(h.Register, "POST", "/auth/register", gin.H{
		"email": "not-an-email",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogin_Success(t *testing.T) {
	h, mock, close := setupHandler(t)
	defer close()

	hash, err := auth.HashPassword("password123")
	require.NoError(t, err)

	rows := sqlmock.NewRows([]string{"id", "first_name", "last_name", "email", "password_hash", "role", "created_at"}).
		AddRow(1, "Alice", "Reyes", "alice@example.com", hash, "member", time.Now())

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email = $1")).
		WithArgs("alice@example.com").
		WillReturnRows(rows)

	w := performJSON(h.Login, "POST", "/auth/login", gin.H{
		"email":    "alice@example.com",
		"password": "password123",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "accessToken")
}

func TestLogin_WrongPassword(t *testing.T) {
	h, mock, close := setupHandler(t)
	defer close()

	hash, err := auth.HashPassword("password123")
	require.NoError(t, err)

	rows := sqlmock.NewRows([]string{"id", "first_name", "last_name", "email", "password_hash", "role", "created_at"}).
		AddRow(1, "Alice", "Reyes", "alice@example.com", hash, "member", time.Now())

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email = $1")).
		WithArgs("alice@example.com").
		WillReturnRows(rows)

	w := performJSON(h.Login, "POST", "/auth/login", gin.H{
		"email":    "alice@example.com",
		"password": "wrong-password",
	})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRefreshToken(t *testing.T) {
	h, _, close := setupHandler(t)
	defer close()

	_, refreshToken, err := auth.GenerateTokens(1, "alice@example.com", "member", testJWTSecret, testJWTSecret)
	require.NoError(t, err)

	w := performJSON(h.RefreshToken, "POST", "/auth/refresh", gin.H{
		"refreshToken": refreshToken,
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "accessToken")
}

func TestRefreshToken_Invalid(t *testing.T) {
	h, _, close := setupHandler(t)
	defer close()

	w := performJSON(h.RefreshToken, "POST", "/auth/refresh", gin.H{
		"refreshToken": "not-a-token",
	})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetMe(t *testing.T) {
	h, mock, close := setupHandler(t)
	defer close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
		WithArgs(7).
		WillReturnRows(userRows(7, "alice@example.com"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM wallets WHERE owner_type = $1 AND owner_id = $2")).
		WithArgs(coin.OwnerUser, 7).
		WillReturnRows(walletRow(7))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/me", nil)
	c.Set("user_id", 7)

	h.GetMe(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "coinWallet")
}
