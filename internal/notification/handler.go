package notification

import (
	"errors"
	"net/http"
	"strconv"

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

// List godoc
// @Summary      List the caller's notifications
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Param        page  query int false "Page"
// @Param        limit query int false "Page size"
// @Success      200 {object} api.SuccessResponse
// @Router       /notifications [get]
func (h *Handler) List(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		api.Error(c, http.StatusUnauthorized, "User not authenticated")
		return
	}

	page, limit := api.PageQuery(c, 20)

	notifications, total, unread, err := h.svc.Repo().List(c.Request.Context(), userID, page, limit)
	if err != nil {
		logger.Errorf("Failed to list notifications for user %d: %v", userID, err)
		api.Error(c, http.StatusInternalServerError, "Error retrieving notifications")
		return
	}

	api.Paginated(c, gin.H{
		"notifications": notifications,
		"unreadCount":   unread,
	}, api.NewPagination(page, limit, total))
}

// UnreadCount returns just the badge number.
func (h *Handler) UnreadCount(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		api.Error(c, http.StatusUnauthorized, "User not authenticated")
		return
	}

	unread, err := h.svc.Repo().UnreadCount(c.Request.Context(), userID)
	if err != nil {
		logger.Errorf("Failed to count unread notifications for user %d: %v", userID, err)
		api.Error(c, http.StatusInternalServerError, "Error retrieving unread count")
		return
	}

	api.OK(c, gin.H{"unreadCount": unread})
}

// MarkRead godoc
// @Summary      Mark a notification as read
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Notification ID"
// @Success      200 {object} api.SuccessResponse
// @Failure      404 {object} api.ErrorResponse
// @Router       /notifications/{id}/read [put]
func (h *Handler) MarkRead(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		api.Error(c, http.StatusUnauthorized, "User not authenticated")
		return
	}

	notificationID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		api.Error(c, http.StatusBadRequest, "Invalid notification ID")
		return
	}

	n, err := h.svc.Repo().MarkRead(c.Request.Context(), notificationID, userID)
	if err != nil {
		if errors.Is(err, ErrNotificationNotFound) {
			api.Error(c, http.StatusNotFound, "Notification not found")
			return
		}
		logger.Errorf("Failed to mark notification %d read: %v", notificationID, err)
		api.Error(c, http.StatusInternalServerError, "Error updating notification")
		return
	}

	api.OKWithMessage(c, "Notification marked as read", n)
}

// MarkAllRead flips every unread notification for the caller.
func (h *Handler) MarkAllRead(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		api.Error(c, http.StatusUnauthorized, "User not authenticated")
		return
	}

	updated, err := h.svc.Repo().MarkAllRead(c.Request.Context(), userID)
	if err != nil {
		logger.Errorf("Failed to mark notifications read for user %d: %v", userID, err)
		api.Error(c, http.StatusInternalServerError, "Error updating notifications")
		return
	}

	api.OKWithMessage(c, "All notifications marked as read", gin.H{"updatedCount": updated})
}
