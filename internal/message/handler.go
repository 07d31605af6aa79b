package message

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"clubhub/internal/api"
	"clubhub/internal/auth"
	"clubhub/internal/club"
	"clubhub/internal/logger"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// ListForClub godoc
// @Summary      List club board messages
// @Tags         messages
// @Produce      json
// @Security     BearerAuth
// @Param        id     path  int    true  "Club ID"
// @Param        type   query string false "Filter by message type"
// @Param        before query int    false "Only messages older than this message ID"
// @Param        page   query int    false "Page"
// @Param        limit  query int    false "Page size"
// @Success      200 {object} api.SuccessResponse
// @Failure      403 {object} api.ErrorResponse
// @Router       /clubs/{id}/messages [get]
func (h *Handler) ListForClub(c *gin.Context) {
	userID, clubID, ok := h.callerAndClub(c)
	if !ok {
		return
	}

	page, limit := api.PageQuery(c, 50)
	before, _ := strconv.Atoi(c.Query("before"))
	filter := ListFilter{
		Type:   c.Query("type"),
		Before: before,
		Page:   page,
		Limit:  limit,
	}

	messages, total, err := h.svc.ListForClub(c.Request.Context(), clubID, userID, filter)
	if err != nil {
		h.messageError(c, err, "Error retrieving messages")
		return
	}

	api.Paginated(c, messages, api.NewPagination(page, limit, total))
}

// Post godoc
// @Summary      Post a message on the club board
// @Tags         messages
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path int                true "Club ID"
// @Param        request body PostMessageRequest true "Message"
// @Success      201 {object} api.SuccessResponse
// @Failure      403 {object} api.ErrorResponse
// @Router       /clubs/{id}/messages [post]
func (h *Handler) Post(c *gin.Context) {
	userID, clubID, ok := h.callerAndClub(c)
	if !ok {
		return
	}

	var req PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BindError(c, err)
		return
	}

	msg, err := h.svc.Post(c.Request.Context(), clubID, userID, req)
	if err != nil {
		h.messageError(c, err, "Error posting message")
		return
	}

	api.Created(c, msg)
}

// Edit rewrites the caller's own text message.
func (h *Handler) Edit(c *gin.Context) {
	userID, messageID, ok := h.callerAndMessage(c)
	if !ok {
		return
	}

	var req EditMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BindError(c, err)
		return
	}

	msg, err := h.svc.Edit(c.Request.Context(), messageID, userID, req.Content)
	if err != nil {
		h.messageError(c, err, "Error editing message")
		return
	}

	api.OK(c, msg)
}

// Delete soft-deletes a message; author or club admins.
func (h *Handler) Delete(c *gin.Context) {
	userID, messageID, ok := h.callerAndMessage(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), messageID, userID); err != nil {
		h.messageError(c, err, "Error deleting message")
		return
	}

	api.OKWithMessage(c, "Message deleted", nil)
}

// Reply godoc
// @Summary      Reply to a board message
// @Tags         messages
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path int          true "Message ID"
// @Param        request body ReplyRequest true "Reply"
// @Success      201 {object} api.SuccessResponse
// @Failure      403 {object} api.ErrorResponse
// @Router       /messages/{id}/replies [post]
func (h *Handler) Reply(c *gin.Context) {
	userID, messageID, ok := h.callerAndMessage(c)
	if !ok {
		return
	}

	var req ReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BindError(c, err)
		return
	}

	reply, err := h.svc.Reply(c.Request.Context(), messageID, userID, req.Content)
	if err != nil {
		h.messageError(c, err, "Error saving reply")
		return
	}

	api.Created(c, reply)
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

func (h *Handler) callerAndMessage(c *gin.Context) (userID, messageID int, ok bool) {
	userID, authed := auth.GetUserID(c)
	if !authed {
		api.Error(c, http.StatusUnauthorized, "User not authenticated")
		return 0, 0, false
	}

	messageID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		api.Error(c, http.StatusBadRequest, "Invalid message ID")
		return 0, 0, false
	}

	return userID, messageID, true
}

func (h *Handler) messageError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrMessageNotFound):
		api.Error(c, http.StatusNotFound, "Message not found")
	case errors.Is(err, club.ErrClubNotFound):
		api.Error(c, http.StatusNotFound, "Club not found")
	case errors.Is(err, club.ErrClubInactive):
		api.Error(c, http.StatusBadRequest, "Club is not active")
	case errors.Is(err, club.ErrNotAMember):
		api.Error(c, http.StatusForbidden, "Only club members can use the club board")
	case errors.Is(err, ErrNotAuthor):
		api.Error(c, http.StatusForbidden, "Only the author can edit this message")
	case errors.Is(err, ErrNotAllowed):
		api.Error(c, http.StatusForbidden, "Only the author or a club admin can delete this message")
	case errors.Is(err, ErrNotEditable):
		api.Error(c, http.StatusBadRequest, "Only text messages can be edited")
	default:
		logger.Errorf("Club message: %v", err)
		api.Error(c, http.StatusInternalServerError, fallback)
	}
}
