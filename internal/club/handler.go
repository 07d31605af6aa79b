package club

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"clubhub/internal/api"
	"clubhub/internal/auth"
	"clubhub/internal/coin"
	"clubhub/internal/logger"
	"clubhub/internal/metrics"
)

type Handler struct {
	svc       *Service
	purchases *coin.Service
}

func NewHandler(svc *Service, purchases *coin.Service) *Handler {
	return &Handler{svc: svc, purchases: purchases}
}

// Browse godoc
// @Summary      Browse clubs
// @Tags         clubs
// @Produce      json
// @Param        sport  query string false "Filter by sport"
// @Param        search query string false "Name search"
// @Param        page   query int    false "Page"
// @Param        limit  query int    false "Page size"
// @Success      200 {object} api.SuccessResponse
// @Router       /clubs [get]
func (h *Handler) Browse(c *gin.Context) {
	page, limit := api.PageQuery(c, 20)

	clubs, total, err := h.svc.Repo().BrowseClubs(c.Request.Context(),
		c.Query("sport"), c.Query("search"), page, limit)
	if err != nil {
		logger.Errorf("Failed to browse clubs: %v", err)
		api.Error(c, http.StatusInternalServerError, "Error retrieving clubs")
		return
	}

	api.Paginated(c, clubs, api.NewPagination(page, limit, total))
}

// Get godoc
// @Summary      Get a club
// @Tags         clubs
// @Produce      json
// @Param        id path int true "Club ID"
// @Success      200 {object} api.SuccessResponse
// @Failure      404 {object} api.ErrorResponse
// @Router       /clubs/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	clubID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		api.Error(c, http.StatusBadRequest, "Invalid club ID")
		return
	}

	club, err := h.svc.Repo().GetClubByID(c.Request.Context(), clubID)
	if err != nil {
		if errors.Is(err, ErrClubNotFound) {
			api.Error(c, http.StatusNotFound, "Club not found")
			return
		}
		logger.Errorf("Failed to load club %d: %v", clubID, err)
		api.Error(c, http.StatusInternalServerError, "Error retrieving club")
		return
	}

	members, err := h.svc.Repo().ListMembers(c.Request.Context(), clubID)
	if err != nil {
		logger.Errorf("Failed to list members for club %d: %v", clubID, err)
		api.Error(c, http.StatusInternalServerError, "Error retrieving club")
		return
	}

	api.OK(c, gin.H{
		"club":    club,
		"members": members,
	})
}

// ListMine returns the clubs the caller belongs to.
func (h *Handler) ListMine(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		api.Error(c, http.StatusUnauthorized, "User not authenticated")
		return
	}

	clubs, err := h.svc.Repo().ListClubsForUser(c.Request.Context(), userID)
	if err != nil {
		logger.Errorf("Failed to list clubs for user %d: %v", userID, err)
		api.Error(c, http.StatusInternalServerError, "Error retrieving clubs")
		return
	}

	api.OK(c, clubs)
}

// Create godoc
// @Summary      Create a club
// @Description  Charges the creator the club creation fee from their personal wallet.
// @Tags         clubs
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CreateClubRequest true "Club details"
// @Success      201 {object} api.SuccessResponse
// @Failure      402 {object} api.ErrorResponse
// @Router       /clubs [post]
func (h *Handler) Create(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		api.Error(c, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req CreateClubRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BindError(c, err)
		return
	}

	club, err := h.svc.Create(c.Request.Context(), userID, req)
	if err != nil {
		var insufficient *coin.InsufficientCoinsError
		if errors.As(err, &insufficient) {
			metrics.RecordInsufficientCoins("club_creation")
			api.InsufficientCoins(c, "Not enough coins to create a club",
				insufficient.Required, insufficient.Available)
			return
		}
		logger.Errorf("Failed to create club for user %d: %v", userID, err)
		api.Error(c, http.StatusInternalServerError, "Error creating club")
		return
	}

	api.Created(c, club)
}

// Update godoc
// @Summary      Update a club
// @Tags         clubs
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path int               true "Club ID"
// @Param        request body UpdateClubRequest true "Fields to change"
// @Success      200 {object} api.SuccessResponse
// @Failure      403 {object} api.ErrorResponse
// @Router       /clubs/{id} [put]
func (h *Handler) Update(c *gin.Context) {
	userID, clubID, ok := h.callerAndClub(c)
	if !ok {
		return
	}

	var req UpdateClubRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BindError(c, err)
		return
	}

	club, err := h.svc.Update(c.Request.Context(), clubID, userID, req)
	if err != nil {
		h.clubError(c, clubID, err, "Error updating club")
		return
	}

	api.OK(c, club)
}

// Deactivate godoc
// @Summary      Deactivate a club
// @Tags         clubs
// @Security     BearerAuth
// @Param        id path int true "Club ID"
// @Success      200 {object} api.SuccessResponse
// @Router       /clubs/{id} [delete]
func (h *Handler) Deactivate(c *gin.Context) {
	userID, clubID, ok := h.callerAndClub(c)
	if !ok {
		return
	}

	if err := h.svc.Deactivate(c.Request.Context(), clubID, userID); err != nil {
		h.clubError(c, clubID, err, "Error deactivating club")
		return
	}

	api.OKWithMessage(c, "Club deactivated", nil)
}

// Join godoc
// @Summary      Join a club
// @Description  Public clubs admit immediately; private clubs queue a join request.
// @Tags         clubs
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path int             true  "Club ID"
// @Param        request body JoinClubRequest false "Optional message"
// @Success      200 {object} api.SuccessResponse
// @Failure      409 {object} api.ErrorResponse
// @Router       /clubs/{id}/join [post]
func (h *Handler) Join(c *gin.Context) {
	userID, clubID, ok := h.callerAndClub(c)
	if !ok {
		return
	}

	var req JoinClubRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		api.BindError(c, err)
		return
	}

	outcome, err := h.svc.Join(c.Request.Context(), clubID, userID, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, ErrClubNotFound):
			api.Error(c, http.StatusNotFound, "Club not found")
		case errors.Is(err, ErrClubInactive):
			api.Error(c, http.StatusBadRequest, "Club is not active")
		case errors.Is(err, ErrAlreadyMember):
			api.Error(c, http.StatusConflict, "You are already a member of this club")
		case errors.Is(err, ErrPendingRequest):
			api.Error(c, http.StatusConflict, "You already have a pending join request")
		default:
			logger.Errorf("Failed to join club %d for user %d: %v", clubID, userID, err)
			api.Error(c, http.StatusInternalServerError, "Error joining club")
		}
		return
	}

	if outcome.Member != nil {
		api.OKWithMessage(c, "Joined club", outcome.Member)
		return
	}
	api.OKWithMessage(c, "Join request submitted for approval", outcome.Request)
}

// Leave removes the caller from the club. The owner cannot leave.
func (h *Handler) Leave(c *gin.Context) {
	userID, clubID, ok := h.callerAndClub(c)
	if !ok {
		return
	}

	if err := h.svc.Leave(c.Request.Context(), clubID, userID); err != nil {
		switch {
		case errors.Is(err, ErrNotAMember):
			api.Error(c, http.StatusNotFound, "You are not a member of this club")
		case errors.Is(err, ErrOwnerCannotLeave):
			api.Error(c, http.StatusBadRequest, "Club owner cannot leave the club")
		default:
			logger.Errorf("Failed to leave club %d for user %d: %v", clubID, userID, err)
			api.Error(c, http.StatusInternalServerError, "Error leaving club")
		}
		return
	}

	api.OKWithMessage(c, "Left club", nil)
}

// ListJoinRequests lists the pending join requests; owner and admins only.
func (h *Handler) ListJoinRequests(c *gin.Context) {
	userID, clubID, ok := h.callerAndClub(c)
	if !ok {
		return
	}

	if err := h.svc.requireRole(c.Request.Context(), clubID, userID, RoleOwner, RoleAdmin); err != nil {
		h.clubError(c, clubID, err, "Error retrieving join requests")
		return
	}

	requests, err := h.svc.Repo().ListJoinRequests(c.Request.Context(), clubID)
	if err != nil {
		logger.Errorf("Failed to list join requests for club %d: %v", clubID, err)
		api.Error(c, http.StatusInternalServerError, "Error retrieving join requests")
		return
	}

	api.OK(c, requests)
}

type ProcessJoinRequestBody struct {
	Action string `json:"action" binding:"required,oneof=approve reject"`
}

// ProcessJoinRequest godoc
// @Summary      Approve or reject a join request
// @Description  Approval charges the club wallet the member approval fee.
// @Tags         clubs
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id        path int                    true "Club ID"
// @Param        requestId path int                    true "Join request ID"
// @Param        request   body ProcessJoinRequestBody true "Decision"
// @Success      200 {object} api.SuccessResponse
// @Failure      402 {object} api.ErrorResponse
// @Failure      409 {object} api.ErrorResponse
// @Router       /clubs/{id}/join-requests/{requestId} [put]
func (h *Handler) ProcessJoinRequest(c *gin.Context) {
	userID, clubID, ok := h.callerAndClub(c)
	if !ok {
		return
	}

	requestID, err := strconv.Atoi(c.Param("requestId"))
	if err != nil {
		api.Error(c, http.StatusBadRequest, "Invalid request ID")
		return
	}

	var body ProcessJoinRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		api.BindError(c, err)
		return
	}

	req, err := h.svc.ProcessJoinRequest(c.Request.Context(), clubID, requestID, userID, body.Action)
	if err != nil {
		var insufficient *coin.InsufficientCoinsError
		switch {
		case errors.As(err, &insufficient):
			metrics.RecordInsufficientCoins("member_approval")
			api.InsufficientCoins(c, "Club does not have enough coins to approve a member",
				insufficient.Required, insufficient.Available)
		case errors.Is(err, ErrJoinRequestNotFound):
			api.Error(c, http.StatusConflict, "Join request not found or already processed")
		case errors.Is(err, ErrNotAMember), errors.Is(err, ErrNotAuthorized):
			api.Error(c, http.StatusForbidden, "Only the club owner or admins can process join requests")
		default:
			logger.Errorf("Failed to process join request %d: %v", requestID, err)
			api.Error(c, http.StatusInternalServerError, "Error processing join request")
		}
		return
	}

	api.OKWithMessage(c, "Join request "+req.Status, req)
}

// RemoveMember kicks a member out of the club; owner and admins only.
func (h *Handler) RemoveMember(c *gin.Context) {
	userID, clubID, ok := h.callerAndClub(c)
	if !ok {
		return
	}

	targetID, err := strconv.Atoi(c.Param("userId"))
	if err != nil {
		api.Error(c, http.StatusBadRequest, "Invalid user ID")
		return
	}

	if err := h.svc.RemoveMember(c.Request.Context(), clubID, userID, targetID); err != nil {
		switch {
		case errors.Is(err, ErrCannotTouchOwner):
			api.Error(c, http.StatusBadRequest, "Club owner cannot be removed")
		case errors.Is(err, ErrNotAMember), errors.Is(err, ErrNotAuthorized):
			h.clubError(c, clubID, err, "Error removing member")
		default:
			logger.Errorf("Failed to remove member %d from club %d: %v", targetID, clubID, err)
			api.Error(c, http.StatusInternalServerError, "Error removing member")
		}
		return
	}

	api.OKWithMessage(c, "Member removed", nil)
}

type UpdateMemberRoleBody struct {
	Role string `json:"role" binding:"required,oneof=admin member"`
}

// UpdateMemberRole promotes or demotes a member; owner only.
func (h *Handler) UpdateMemberRole(c *gin.Context) {
	userID, clubID, ok := h.callerAndClub(c)
	if !ok {
		return
	}

	targetID, err := strconv.Atoi(c.Param("userId"))
	if err != nil {
		api.Error(c, http.StatusBadRequest, "Invalid user ID")
		return
	}

	var body UpdateMemberRoleBody
	if err := c.ShouldBindJSON(&body); err != nil {
		api.BindError(c, err)
		return
	}

	if err := h.svc.UpdateMemberRole(c.Request.Context(), clubID, userID, targetID, body.Role); err != nil {
		switch {
		case errors.Is(err, ErrCannotTouchOwner):
			api.Error(c, http.StatusBadRequest, "Club owner role cannot be changed")
		default:
			h.clubError(c, clubID, err, "Error updating member role")
		}
		return
	}

	api.OKWithMessage(c, "Member role updated", nil)
}

// Transfer godoc
// @Summary      Donate coins to the club
// @Description  Moves coins from the caller's personal wallet into the club wallet.
// @Tags         clubs
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path int             true "Club ID"
// @Param        request body TransferRequest true "Transfer details"
// @Success      200 {object} api.SuccessResponse
// @Failure      402 {object} api.ErrorResponse
// @Router       /clubs/{id}/transfer [post]
func (h *Handler) Transfer(c *gin.Context) {
	userID, clubID, ok := h.callerAndClub(c)
	if !ok {
		return
	}

	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BindError(c, err)
		return
	}

	result, err := h.svc.Transfer(c.Request.Context(), clubID, userID, req)
	if err != nil {
		var insufficient *coin.InsufficientCoinsError
		switch {
		case errors.As(err, &insufficient):
			metrics.RecordInsufficientCoins("club_transfer")
			api.InsufficientCoins(c, "Not enough coins to transfer",
				insufficient.Required, insufficient.Available)
		case errors.Is(err, ErrNotAMember):
			api.Error(c, http.StatusForbidden, "Only club members can transfer coins to the club")
		default:
			logger.Errorf("Failed to transfer coins to club %d from user %d: %v", clubID, userID, err)
			api.Error(c, http.StatusInternalServerError, "Error transferring coins")
		}
		return
	}

	api.OKWithMessage(c, "Coins transferred to club", result)
}

// PurchaseCoins godoc
// @Summary      Submit a coin purchase request for the club
// @Description  Creates a pending request; coins are credited to the club wallet once an admin approves it.
// @Tags         clubs
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path int                       true "Club ID"
// @Param        request body coin.PurchaseCoinsRequest true "Purchase details"
// @Success      201 {object} api.SuccessResponse
// @Failure      400 {object} api.ErrorResponse
// @Failure      403 {object} api.ErrorResponse
// @Router       /clubs/{id}/coins/purchase-request [post]
func (h *Handler) PurchaseCoins(c *gin.Context) {
	userID, clubID, ok := h.callerAndClub(c)
	if !ok {
		return
	}

	if _, err := h.svc.Repo().GetClubByID(c.Request.Context(), clubID); err != nil {
		h.clubError(c, clubID, err, "Error retrieving club")
		return
	}
	if err := h.svc.requireRole(c.Request.Context(), clubID, userID, RoleOwner, RoleAdmin); err != nil {
		h.clubError(c, clubID, err, "Error submitting purchase request")
		return
	}

	var req coin.PurchaseCoinsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BindError(c, err)
		return
	}

	created, err := h.purchases.SubmitRequest(c.Request.Context(), userID, &clubID,
		req.PackageID, req.PaymentMethod, coin.Metadata(req.PaymentDetails))
	if err != nil {
		if errors.Is(err, coin.ErrUnknownPackage) {
			api.Error(c, http.StatusBadRequest, "Invalid package ID")
			return
		}
		logger.Errorf("Failed to create purchase request for club %d: %v", clubID, err)
		api.Error(c, http.StatusInternalServerError, "Error creating purchase request")
		return
	}

	api.Created(c, gin.H{
		"requestId": created.ID,
		"status":    created.Status,
		"message":   "Purchase request submitted. Coins will be credited to the club wallet after admin approval.",
	})
}

// Wallet returns the club wallet balance; members only.
func (h *Handler) Wallet(c *gin.Context) {
	userID, clubID, ok := h.callerAndClub(c)
	if !ok {
		return
	}

	w, err := h.svc.Wallet(c.Request.Context(), clubID, userID)
	if err != nil {
		h.clubError(c, clubID, err, "Error retrieving club wallet")
		return
	}

	api.OK(c, w)
}

// Transactions lists the club ledger; owner and admins only.
func (h *Handler) Transactions(c *gin.Context) {
	userID, clubID, ok := h.callerAndClub(c)
	if !ok {
		return
	}

	page, limit := api.PageQuery(c, 20)

	txs, total, err := h.svc.Transactions(c.Request.Context(), clubID, userID, page, limit)
	if err != nil {
		h.clubError(c, clubID, err, "Error retrieving club transactions")
		return
	}

	api.Paginated(c, txs, api.NewPagination(page, limit, total))
}

func (h *Handler) callerAndClub(c *gin.Context) (userID, clubID int, ok bool) {
	userID, authed := auth.GetUserID(c)
	if !authed {
		api.Error(c, http.StatusUnauthorized, "User not authenticated")
		return 0, 0, false
	}

	clubID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		api.Error(c, http.StatusBadRequest, "Invalid club ID")
		return 0, 0, false
	}

	return userID, clubID, true
}

// clubError maps the common repository/service errors onto HTTP statuses.
func (h *Handler) clubError(c *gin.Context, clubID int, err error, fallback string) {
	switch {
	case errors.Is(err, ErrClubNotFound):
		api.Error(c, http.StatusNotFound, "Club not found")
	case errors.Is(err, ErrNotAMember):
		api.Error(c, http.StatusForbidden, "You are not a member of this club")
	case errors.Is(err, ErrNotAuthorized):
		api.Error(c, http.StatusForbidden, "Insufficient permissions for this club")
	default:
		logger.Errorf("Club %d: %v", clubID, err)
		api.Error(c, http.StatusInternalServerError, fallback)
	}
}
