package event

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"clubhub/internal/api"
	"clubhub/internal/auth"
	"clubhub/internal/club"
	"clubhub/internal/coin"
	"clubhub/internal/logger"
	"clubhub/internal/metrics"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// List godoc
// @Summary      List events
// @Tags         events
// @Produce      json
// @Param        clubId   query int  false "Filter by club"
// @Param        upcoming query bool false "Only upcoming scheduled events"
// @Param        page     query int  false "Page"
// @Param        limit    query int  false "Page size"
// @Success      200 {object} api.SuccessResponse
// @Router       /events [get]
func (h *Handler) List(c *gin.Context) {
	page, limit := api.PageQuery(c, 20)
	clubID, _ := strconv.Atoi(c.Query("clubId"))
	upcoming := c.Query("upcoming") == "true"

	events, total, err := h.svc.Repo().List(c.Request.Context(), clubID, upcoming, page, limit)
	if err != nil {
		logger.Errorf("Failed to list events: %v", err)
		api.Error(c, http.StatusInternalServerError, "Error retrieving events")
		return
	}

	api.Paginated(c, events, api.NewPagination(page, limit, total))
}

// Get godoc
// @Summary      Get an event
// @Tags         events
// @Produce      json
// @Param        id path int true "Event ID"
// @Success      200 {object} api.SuccessResponse
// @Failure      404 {object} api.ErrorResponse
// @Router       /events/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	eventID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		api.Error(c, http.StatusBadRequest, "Invalid event ID")
		return
	}

	ev, err := h.svc.Repo().GetWithCounts(c.Request.Context(), eventID)
	if err != nil {
		if errors.Is(err, ErrEventNotFound) {
			api.Error(c, http.StatusNotFound, "Event not found")
			return
		}
		logger.Errorf("Failed to load event %d: %v", eventID, err)
		api.Error(c, http.StatusInternalServerError, "Error retrieving event")
		return
	}

	rsvps, err := h.svc.Repo().ListRSVPs(c.Request.Context(), eventID)
	if err != nil {
		logger.Errorf("Failed to list RSVPs for event %d: %v", eventID, err)
		api.Error(c, http.StatusInternalServerError, "Error retrieving event")
		return
	}

	api.OK(c, gin.H{
		"event": ev,
		"rsvps": rsvps,
	})
}

// Create godoc
// @Summary      Create an event
// @Description  Charges the club wallet the event creation fee.
// @Tags         events
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CreateEventRequest true "Event details"
// @Success      201 {object} api.SuccessResponse
// @Failure      402 {object} api.ErrorResponse
// @Router       /events [post]
func (h *Handler) Create(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		api.Error(c, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BindError(c, err)
		return
	}

	ev, err := h.svc.Create(c.Request.Context(), userID, req)
	if err != nil {
		var insufficient *coin.InsufficientCoinsError
		switch {
		case errors.As(err, &insufficient):
			metrics.RecordInsufficientCoins("event_creation")
			api.InsufficientCoins(c, "Club does not have enough coins to create an event",
				insufficient.Required, insufficient.Available)
		case errors.Is(err, club.ErrClubNotFound):
			api.Error(c, http.StatusNotFound, "Club not found")
		case errors.Is(err, club.ErrClubInactive):
			api.Error(c, http.StatusBadRequest, "Club is not active")
		case errors.Is(err, club.ErrNotAMember):
			api.Error(c, http.StatusForbidden, "Only club members can create events")
		case errors.Is(err, ErrStartsInPast), errors.Is(err, ErrDeadlineAfterStart):
			api.Error(c, http.StatusBadRequest, err.Error())
		default:
			logger.Errorf("Failed to create event for user %d: %v", userID, err)
			api.Error(c, http.StatusInternalServerError, "Error creating event")
		}
		return
	}

	api.Created(c, ev)
}

// Update edits event details; organizer or club admins only.
func (h *Handler) Update(c *gin.Context) {
	userID, eventID, ok := h.callerAndEvent(c)
	if !ok {
		return
	}

	var req UpdateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BindError(c, err)
		return
	}

	ev, err := h.svc.Update(c.Request.Context(), eventID, userID, req)
	if err != nil {
		h.eventError(c, eventID, err, "Error updating event")
		return
	}

	api.OK(c, ev)
}

// UpdateStatus godoc
// @Summary      Change event status
// @Description  Allowed moves are scheduled→in_progress→completed and scheduled→cancelled.
// @Tags         events
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path int                 true "Event ID"
// @Param        request body UpdateStatusRequest true "Target status"
// @Success      200 {object} api.SuccessResponse
// @Failure      409 {object} api.ErrorResponse
// @Router       /events/{id}/status [put]
func (h *Handler) UpdateStatus(c *gin.Context) {
	userID, eventID, ok := h.callerAndEvent(c)
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BindError(c, err)
		return
	}

	ev, err := h.svc.UpdateStatus(c.Request.Context(), eventID, userID, req.Status)
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			api.Error(c, http.StatusConflict, "Invalid event status transition")
			return
		}
		h.eventError(c, eventID, err, "Error updating event status")
		return
	}

	api.OK(c, ev)
}

// Delete removes a scheduled event; organizer only.
func (h *Handler) Delete(c *gin.Context) {
	userID, eventID, ok := h.callerAndEvent(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), eventID, userID); err != nil {
		if errors.Is(err, ErrNotScheduled) {
			api.Error(c, http.StatusBadRequest, "Only scheduled events can be deleted")
			return
		}
		h.eventError(c, eventID, err, "Error deleting event")
		return
	}

	api.OKWithMessage(c, "Event deleted", nil)
}

// RSVP godoc
// @Summary      RSVP to an event
// @Tags         events
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path int         true "Event ID"
// @Param        request body RSVPRequest true "Attendance answer"
// @Success      200 {object} api.SuccessResponse
// @Failure      409 {object} api.ErrorResponse
// @Router       /events/{id}/rsvp [post]
func (h *Handler) RSVP(c *gin.Context) {
	userID, eventID, ok := h.callerAndEvent(c)
	if !ok {
		return
	}

	var req RSVPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BindError(c, err)
		return
	}

	rsvp, err := h.svc.RSVP(c.Request.Context(), eventID, userID, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, ErrEventNotOpen):
			api.Error(c, http.StatusBadRequest, "Event is not open for RSVPs")
		case errors.Is(err, ErrRSVPClosed):
			api.Error(c, http.StatusBadRequest, "RSVP deadline has passed")
		case errors.Is(err, ErrEventFull):
			api.Error(c, http.StatusConflict, "Event has reached its participant limit")
		case errors.Is(err, club.ErrNotAMember):
			api.Error(c, http.StatusForbidden, "Only club members can RSVP")
		default:
			h.eventError(c, eventID, err, "Error saving RSVP")
		}
		return
	}

	api.OKWithMessage(c, "RSVP saved", rsvp)
}

// CancelRSVP withdraws the caller's RSVP entirely.
func (h *Handler) CancelRSVP(c *gin.Context) {
	userID, eventID, ok := h.callerAndEvent(c)
	if !ok {
		return
	}

	if err := h.svc.CancelRSVP(c.Request.Context(), eventID, userID); err != nil {
		if errors.Is(err, ErrRSVPNotFound) {
			api.Error(c, http.StatusNotFound, "No RSVP to cancel")
			return
		}
		h.eventError(c, eventID, err, "Error cancelling RSVP")
		return
	}

	api.OKWithMessage(c, "RSVP cancelled", nil)
}

func (h *Handler) callerAndEvent(c *gin.Context) (userID, eventID int, ok bool) {
	userID, authed := auth.GetUserID(c)
	if !authed {
		api.Error(c, http.StatusUnauthorized, "User not authenticated")
		return 0, 0, false
	}

	eventID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		api.Error(c, http.StatusBadRequest, "Invalid event ID")
		return 0, 0, false
	}

	return userID, eventID, true
}

func (h *Handler) eventError(c *gin.Context, eventID int, err error, fallback string) {
	switch {
	case errors.Is(err, ErrEventNotFound):
		api.Error(c, http.StatusNotFound, "Event not found")
	case errors.Is(err, ErrNotOrganizer):
		api.Error(c, http.StatusForbidden, "Only the organizer or a club admin can manage this event")
	case errors.Is(err, ErrStartsInPast), errors.Is(err, ErrDeadlineAfterStart):
		api.Error(c, http.StatusBadRequest, err.Error())
	default:
		logger.Errorf("Event %d: %v", eventID, err)
		api.Error(c, http.StatusInternalServerError, fallback)
	}
}
