package coin

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"clubhub/internal/api"
	"clubhub/internal/auth"
	"clubhub/internal/logger"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// ListPackages godoc
// @Summary      List coin packages
// @Description  Returns the static catalog of purchasable coin bundles.
// @Tags         coins
// @Produce      json
// @Success      200 {object} api.SuccessResponse
// @Router       /coins/packages [get]
func (h *Handler) ListPackages(c *gin.Context) {
	api.OK(c, Packages())
}

// GetWallet godoc
// @Summary      Get own coin wallet
// @Tags         coins
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} api.SuccessResponse
// @Router       /coins/wallet [get]
func (h *Handler) GetWallet(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		api.Error(c, http.StatusUnauthorized, "User not authenticated")
		return
	}

	w, err := h.svc.Ledger().GetOrCreateWallet(c.Request.Context(), UserOwner(userID))
	if err != nil {
		logger.Errorf("Failed to load wallet for user %d: %v", userID, err)
		api.Error(c, http.StatusInternalServerError, "Error retrieving wallet information")
		return
	}

	recent, _, err := h.svc.Ledger().Transactions(c.Request.Context(), UserOwner(userID), 1, 10)
	if err != nil {
		logger.Errorf("Failed to load recent transactions for user %d: %v", userID, err)
		api.Error(c, http.StatusInternalServerError, "Error retrieving wallet information")
		return
	}

	api.OK(c, gin.H{
		"balance":            w.Balance,
		"totalEarned":        w.TotalEarned,
		"totalSpent":         w.TotalSpent,
		"lastTransactionAt":  w.LastTransactionAt,
		"recentTransactions": recent,
	})
}

// ListTransactions godoc
// @Summary      List own coin transactions
// @Tags         coins
// @Produce      json
// @Security     BearerAuth
// @Param        page   query int false "Page"
// @Param        limit  query int false "Page size"
// @Success      200 {object} api.SuccessResponse
// @Router       /coins/transactions [get]
func (h *Handler) ListTransactions(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		api.Error(c, http.StatusUnauthorized, "User not authenticated")
		return
	}

	page, limit := api.PageQuery(c, 20)

	txs, total, err := h.svc.Ledger().Transactions(c.Request.Context(), UserOwner(userID), page, limit)
	if err != nil {
		logger.Errorf("Failed to load transactions for user %d: %v", userID, err)
		api.Error(c, http.StatusInternalServerError, "Error retrieving transaction history")
		return
	}

	api.Paginated(c, txs, api.NewPagination(page, limit, total))
}

type PurchaseCoinsRequest struct {
	PackageID      string                 `json:"packageId" binding:"required"`
	PaymentMethod  string                 `json:"paymentMethod" binding:"required,oneof=gcash bank_transfer cash"`
	PaymentDetails map[string]interface{} `json:"paymentDetails" binding:"required"`
}

// Purchase godoc
// @Summary      Submit a personal coin purchase request
// @Description  Creates a pending request; coins are credited once an admin approves it.
// @Tags         coins
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body PurchaseCoinsRequest true "Purchase details"
// @Success      201 {object} api.SuccessResponse
// @Failure      400 {object} api.ErrorResponse
// @Router       /coins/purchase [post]
func (h *Handler) Purchase(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		api.Error(c, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req PurchaseCoinsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BindError(c, err)
		return
	}

	created, err := h.svc.SubmitRequest(c.Request.Context(), userID, nil, req.PackageID, req.PaymentMethod, Metadata(req.PaymentDetails))
	if err != nil {
		if errors.Is(err, ErrUnknownPackage) {
			api.Error(c, http.StatusBadRequest, "Invalid package ID")
			return
		}
		logger.Errorf("Failed to create purchase request for user %d: %v", userID, err)
		api.Error(c, http.StatusInternalServerError, "Error creating purchase request")
		return
	}

	api.Created(c, gin.H{
		"requestId":      created.ID,
		"status":         created.Status,
		"packageDetails": created.packageDetails(),
		"message":        "Purchase request submitted. Coins will be credited after admin approval.",
	})
}

// ListMyRequests returns the caller's own purchase requests.
func (h *Handler) ListMyRequests(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		api.Error(c, http.StatusUnauthorized, "User not authenticated")
		return
	}

	page, limit := api.PageQuery(c, 20)

	requests, total, err := h.svc.Requests().ListForUser(c.Request.Context(), userID, page, limit)
	if err != nil {
		logger.Errorf("Failed to list purchase requests for user %d: %v", userID, err)
		api.Error(c, http.StatusInternalServerError, "Error retrieving purchase requests")
		return
	}

	api.Paginated(c, requests, api.NewPagination(page, limit, total))
}

func (r *PurchaseRequest) packageDetails() gin.H {
	return gin.H{
		"name":       r.PackageName,
		"coins":      r.PackageCoins,
		"bonusCoins": r.PackageBonusCoins,
		"totalCoins": r.PackageTotalCoins,
		"price":      r.PackagePriceCents,
	}
}
