package user

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"clubhub/internal/api"
	"clubhub/internal/auth"
	"clubhub/internal/coin"
	"clubhub/internal/logger"
)

// MembershipsFunc returns the clubs a user belongs to. Injected by the server
// so this package does not depend on the club package.
type MembershipsFunc func(ctx context.Context, userID int) (interface{}, error)

type Handler struct {
	repo        *Repository
	ledger      *coin.Ledger
	jwtSecret   string
	memberships MembershipsFunc
}

func NewHandler(db *sqlx.DB, ledger *coin.Ledger, jwtSecret string, memberships MembershipsFunc) *Handler {
	return &Handler{
		repo:        NewRepository(db),
		ledger:      ledger,
		jwtSecret:   jwtSecret,
		memberships: memberships,
	}
}

// Register godoc
// @Summary      Register new user
// @Description  Creates a new member user with an empty coin wallet and returns access & refresh tokens.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request  body      RegisterRequest  true  "User registration data"
// @Success      201      {object}  LoginResponse
// @Failure      400      {object}  api.ErrorResponse
// @Failure      409      {object}  api.ErrorResponse
// @Failure      500      {object}  api.ErrorResponse
// @Router       /auth/register [post]
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BindError(c, err)
		return
	}

	exists, err := h.repo.EmailExists(req.Email)
	if err != nil {
		api.Error(c, http.StatusInternalServerError, "Database error")
		return
	}
	if exists {
		api.Error(c, http.StatusConflict, "Email already registered")
		return
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		api.Error(c, http.StatusInternalServerError, "Failed to hash password")
		return
	}

	user, err := h.repo.Create(req.FirstName, req.LastName, req.Email, passwordHash, auth.RoleMember)
	if err != nil {
		api.Error(c, http.StatusInternalServerError, "Failed to create user")
		return
	}

	if _, err := h.ledger.GetOrCreateWallet(c.Request.Context(), coin.UserOwner(user.ID)); err != nil {
		// Wallet creation is retried lazily on first use.
		logger.Errorf("Failed to create wallet for user %d: %v", user.ID, err)
	}

	accessToken, refreshToken, err := auth.GenerateTokens(
		user.ID,
		user.Email,
		user.Role,
		h.jwtSecret,
		h.jwtSecret,
	)
	if err != nil {
		api.Error(c, http.StatusInternalServerError, "Failed to generate tokens")
		return
	}

	api.Created(c, LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         *user,
	})
}

// Login godoc
// @Summary      Login user
// @Description  Authenticates user by email and password.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request  body      LoginRequest  true  "User credentials"
// @Success      200      {object}  LoginResponse
// @Failure      400      {object}  api.ErrorResponse
// @Failure      401      {object}  api.ErrorResponse
// @Failure      500      {object}  api.ErrorResponse
// @Router       /auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BindError(c, err)
		return
	}

	user, err := h.repo.FindByEmail(req.Email)
	if err != nil {
		api.Error(c, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		api.Error(c, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	accessToken, refreshToken, err := auth.GenerateTokens(
		user.ID,
		user.Email,
		user.Role,
		h.jwtSecret,
		h.jwtSecret,
	)
	if err != nil {
		api.Error(c, http.StatusInternalServerError, "Failed to generate tokens")
		return
	}

	api.OK(c, LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         *user,
	})
}

// RefreshToken godoc
// @Summary      Refresh access token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Success      200 {object} api.SuccessResponse
// @Failure      401 {object} api.ErrorResponse
// @Router       /auth/refresh [post]
func (h *Handler) RefreshToken(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		api.Error(c, http.StatusBadRequest, "refreshToken is required")
		return
	}

	newAccessToken, claims, err := auth.RefreshAccessToken(req.RefreshToken, h.jwtSecret, h.jwtSecret)
	if err != nil {
		api.Error(c, http.StatusUnauthorized, "Invalid or expired refresh token")
		return
	}

	api.OK(c, gin.H{
		"accessToken": newAccessToken,
		"userId":      claims.UserID,
	})
}

// GetMe godoc
// @Summary      Get current user
// @Description  Returns profile of the authenticated user with wallet summary.
// @Tags         user
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  api.SuccessResponse
// @Failure      401  {object}  api.ErrorResponse
// @Failure      404  {object}  api.ErrorResponse
// @Router       /me [get]
func (h *Handler) GetMe(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		api.Error(c, http.StatusUnauthorized, "User not authenticated")
		return
	}

	user, err := h.repo.FindByID(userID)
	if err != nil {
		api.Error(c, http.StatusNotFound, "User not found")
		return
	}

	w, err := h.ledger.GetOrCreateWallet(c.Request.Context(), coin.UserOwner(userID))
	if err != nil {
		logger.Errorf("Failed to load wallet for user %d: %v", userID, err)
		api.Error(c, http.StatusInternalServerError, "Failed to load wallet")
		return
	}

	payload := gin.H{
		"user": user,
		"coinWallet": gin.H{
			"balance":           w.Balance,
			"totalEarned":       w.TotalEarned,
			"totalSpent":        w.TotalSpent,
			"lastTransactionAt": w.LastTransactionAt,
		},
	}

	if h.memberships != nil {
		clubs, err := h.memberships(c.Request.Context(), userID)
		if err != nil {
			logger.Errorf("Failed to load memberships for user %d: %v", userID, err)
		} else {
			payload["clubs"] = clubs
		}
	}

	api.OK(c, payload)
}
