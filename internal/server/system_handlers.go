package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"clubhub/internal/api"
	"clubhub/internal/email"
	"clubhub/internal/logger"
)

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200 {object} api.HealthResponse
// @Router       /health [get]
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, api.HealthResponse{Status: "ok"})
}

// @Summary      Queue a test email
// @Tags         system
// @Produce      json
// @Param        email query string true "Recipient email"
// @Success      200 {object} api.SuccessResponse
// @Failure      400 {object} api.ErrorResponse
// @Failure      500 {object} api.ErrorResponse
// @Router       /test-email [get]
func TestEmail(emailService *email.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		testEmail := c.Query("email")
		if testEmail == "" {
			api.Error(c, http.StatusBadRequest, "email parameter required")
			return
		}

		if err := emailService.Send(c.Request.Context(), testEmail, "Test User", "test", "Test Email from ClubHub", "Email is working!"); err != nil {
			api.Error(c, http.StatusInternalServerError, err.Error())
			return
		}

		api.OKWithMessage(c, "Email queued successfully", nil)
	}
}

// @Summary      Prometheus metrics
// @Description  Exposes Prometheus metrics in text format
// @Tags         system
// @Produce      text/plain
// @Success      200 {string} string
// @Router       /metrics [get]
func Metrics() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

// DashboardOverview holds the platform-wide totals for the admin dashboard.
type DashboardOverview struct {
	TotalUsers          int   `db:"total_users" json:"totalUsers"`
	TotalClubs          int   `db:"total_clubs" json:"totalClubs"`
	TotalEvents         int   `db:"total_events" json:"totalEvents"`
	CoinsInCirculation  int64 `db:"coins_in_circulation" json:"coinsInCirculation"`
	PendingCoinRequests int   `db:"pending_coin_requests" json:"pendingCoinRequests"`
	PendingJoinRequests int   `db:"pending_join_requests" json:"pendingJoinRequests"`
	UpcomingEvents      int   `db:"upcoming_events" json:"upcomingEvents"`
}

// @Summary      Admin dashboard overview
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} api.SuccessResponse
// @Router       /admin/dashboard/overview [get]
func AdminOverview(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var overview DashboardOverview
		err := db.GetContext(c.Request.Context(), &overview, `
			SELECT
				(SELECT COUNT(*) FROM users)                                                        AS total_users,
				(SELECT COUNT(*) FROM clubs WHERE is_active)                                        AS total_clubs,
				(SELECT COUNT(*) FROM events)                                                       AS total_events,
				(SELECT COALESCE(SUM(balance), 0) FROM wallets)                                     AS coins_in_circulation,
				(SELECT COUNT(*) FROM coin_purchase_requests WHERE status = 'pending')              AS pending_coin_requests,
				(SELECT COUNT(*) FROM club_join_requests WHERE status = 'pending')                  AS pending_join_requests,
				(SELECT COUNT(*) FROM events WHERE status = 'scheduled' AND starts_at > NOW())      AS upcoming_events
		`)
		if err != nil {
			logger.Errorf("Failed to load dashboard overview: %v", err)
			api.Error(c, http.StatusInternalServerError, "Server error while loading overview")
			return
		}

		api.OK(c, overview)
	}
}
