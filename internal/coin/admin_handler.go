package coin

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"clubhub/internal/api"
	"clubhub/internal/auth"
	"clubhub/internal/logger"
)

// AdminHandler serves the purchase-request moderation endpoints.
type AdminHandler struct {
	svc *Service
}

func NewAdminHandler(svc *Service) *AdminHandler {
	return &AdminHandler{svc: svc}
}

// ListRequests godoc
// @Summary      List coin purchase requests
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        status query string false "Filter by status (pending, approved, rejected, all)"
// @Param        page   query int    false "Page"
// @Param        limit  query int    false "Page size"
// @Success      200 {object} api.SuccessResponse
// @Router       /admin/coin-purchase-requests [get]
func (h *AdminHandler) ListRequests(c *gin.Context) {
	status := c.Query("status")
	page, limit := api.PageQuery(c, 50)

	requests, total, err := h.svc.Requests().List(c.Request.Context(), status, page, limit)
	if err != nil {
		logger.Errorf("Failed to list purchase requests: %v", err)
		api.Error(c, http.StatusInternalServerError, "Server error while fetching requests")
		return
	}

	api.Paginated(c, requests, api.NewPagination(page, limit, total))
}

type ProcessRequestBody struct {
	Action     string `json:"action" binding:"required,oneof=approve reject"`
	AdminNotes string `json:"adminNotes"`
}

// ProcessRequest godoc
// @Summary      Approve or reject a purchase request
// @Description  Approval credits the target wallet atomically with the status flip. Exactly one concurrent approval wins; later attempts get 409.
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        requestID path int true "Request ID"
// @Param        request body ProcessRequestBody true "Action"
// @Success      200 {object} api.SuccessResponse
// @Failure      400 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Failure      409 {object} api.ErrorResponse
// @Router       /admin/coin-purchase-requests/{requestID} [put]
func (h *AdminHandler) ProcessRequest(c *gin.Context) {
	adminID, ok := auth.GetUserID(c)
	if !ok {
		api.Error(c, http.StatusUnauthorized, "User not authenticated")
		return
	}

	requestID, err := strconv.Atoi(c.Param("requestID"))
	if err != nil {
		api.Error(c, http.StatusBadRequest, "Invalid request ID")
		return
	}

	var body ProcessRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		api.Error(c, http.StatusBadRequest, `Invalid action. Must be "approve" or "reject"`)
		return
	}

	req, err := h.svc.ProcessRequest(c.Request.Context(), requestID, adminID, body.Action, body.AdminNotes)
	if err != nil {
		switch {
		case errors.Is(err, ErrRequestNotFound):
			api.Error(c, http.StatusNotFound, "Purchase request not found")
		case errors.Is(err, ErrAlreadyProcessed):
			api.Error(c, http.StatusConflict, "This request has already been processed")
		case errors.Is(err, ErrNotesRequired):
			api.ValidationFailed(c, []gin.H{{"field": "adminNotes", "message": "adminNotes is required when rejecting a request"}})
		case errors.Is(err, ErrInvalidAction):
			api.Error(c, http.StatusBadRequest, `Invalid action. Must be "approve" or "reject"`)
		default:
			logger.Errorf("Failed to process purchase request %d: %v", requestID, err)
			api.Error(c, http.StatusInternalServerError, "Server error while processing request")
		}
		return
	}

	api.OKWithMessage(c, "Purchase request "+body.Action+"d successfully", gin.H{
		"requestId":    req.ID,
		"status":       req.Status,
		"coinsGranted": req.CoinsGranted,
		"processedAt":  req.ProcessedAt,
		"adminNotes":   req.AdminNotes,
	})
}

type GrantCoinsBody struct {
	Amount int64  `json:"amount" binding:"required,min=1,max=100000"`
	Reason string `json:"reason" binding:"required,max=200"`
}

// GrantCoins godoc
// @Summary      Grant coins to a user
// @Description  Credits a user's wallet directly, bypassing the purchase flow.
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        userID  path int            true "User ID"
// @Param        request body GrantCoinsBody true "Grant details"
// @Success      200 {object} api.SuccessResponse
// @Router       /admin/users/{userID}/coins [post]
func (h *AdminHandler) GrantCoins(c *gin.Context) {
	adminID, ok := auth.GetUserID(c)
	if !ok {
		api.Error(c, http.StatusUnauthorized, "User not authenticated")
		return
	}

	userID, err := strconv.Atoi(c.Param("userID"))
	if err != nil {
		api.Error(c, http.StatusBadRequest, "Invalid user ID")
		return
	}

	var body GrantCoinsBody
	if err := c.ShouldBindJSON(&body); err != nil {
		api.BindError(c, err)
		return
	}

	txn, err := h.svc.Ledger().Credit(c.Request.Context(), UserOwner(userID), body.Amount,
		TxAdminGrant, body.Reason, Metadata{"granted_by": adminID}, "")
	if err != nil {
		logger.Errorf("Failed to grant %d coins to user %d: %v", body.Amount, userID, err)
		api.Error(c, http.StatusInternalServerError, "Server error while granting coins")
		return
	}

	logger.Info("coins granted",
		"user_id", userID,
		"amount", body.Amount,
		"granted_by", adminID,
	)

	api.OKWithMessage(c, "Coins granted", gin.H{
		"transactionId": txn.ID,
		"balance":       txn.BalanceAfter,
	})
}

// Stats godoc
// @Summary      Purchase request statistics
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} api.SuccessResponse
// @Router       /admin/coin-purchase-stats [get]
func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.svc.Requests().Stats(c.Request.Context())
	if err != nil {
		logger.Errorf("Failed to load purchase stats: %v", err)
		api.Error(c, http.StatusInternalServerError, "Server error while fetching statistics")
		return
	}

	api.OK(c, stats)
}
