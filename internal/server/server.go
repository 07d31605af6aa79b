package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"clubhub/internal/auth"
	"clubhub/internal/club"
	"clubhub/internal/coin"
	"clubhub/internal/config"
	"clubhub/internal/email"
	"clubhub/internal/event"
	"clubhub/internal/message"
	"clubhub/internal/notification"
	"clubhub/internal/user"
)

type Server struct {
	router *gin.Engine
	http   *http.Server
	db     *sqlx.DB
	config *config.Config
	email  *email.Service
}

func New(db *sqlx.DB, cfg *config.Config, emailService *email.Service) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(RequestLoggingMiddleware())
	router.Use(MetricsMiddleware())

	ledger := coin.NewLedger(db)
	coinService := coin.NewService(db, ledger, emailService)
	userRepo := user.NewRepository(db)
	clubService := club.NewService(db, ledger, userRepo, emailService)
	eventService := event.NewService(db, clubService.Repo(), ledger, userRepo, emailService)
	messageService := message.NewService(db, clubService.Repo())
	notificationService := notification.NewService(db, clubService.Repo())

	clubService.SetNotifier(notificationService)
	coinService.SetNotifier(notificationService)
	eventService.SetNotifier(notificationService)
	eventService.SetBoard(messageService)

	userHandler := user.NewHandler(db, ledger, cfg.JWTSecret, func(ctx context.Context, userID int) (interface{}, error) {
		return clubService.Repo().ListClubsForUser(ctx, userID)
	})
	coinHandler := coin.NewHandler(coinService)
	coinAdminHandler := coin.NewAdminHandler(coinService)
	clubHandler := club.NewHandler(clubService, coinService)
	eventHandler := event.NewHandler(eventService)
	messageHandler := message.NewHandler(messageService)
	notificationHandler := notification.NewHandler(notificationService)

	public := router.Group("/auth")
	public.Use(RateLimitMiddleware(cfg.AuthRateLimitRPS, cfg.AuthRateLimitBurst))
	{
		public.POST("/register", userHandler.Register)
		public.POST("/login", userHandler.Login)
		public.POST("/refresh", userHandler.RefreshToken)
	}

	router.GET("/coins/packages", coinHandler.ListPackages)
	router.GET("/clubs", clubHandler.Browse)
	router.GET("/clubs/:id", clubHandler.Get)
	router.GET("/events", eventHandler.List)
	router.GET("/events/:id", eventHandler.Get)

	authMiddleware := auth.AuthMiddleware(cfg.JWTSecret)
	protected := router.Group("/")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", userHandler.GetMe)

		protected.GET("/coins/wallet", coinHandler.GetWallet)
		protected.GET("/coins/transactions", coinHandler.ListTransactions)
		protected.POST("/coins/purchase", coinHandler.Purchase)
		protected.GET("/coins/purchase-requests", coinHandler.ListMyRequests)

		protected.POST("/clubs", clubHandler.Create)
		protected.GET("/my/clubs", clubHandler.ListMine)
		protected.PUT("/clubs/:id", clubHandler.Update)
		protected.DELETE("/clubs/:id", clubHandler.Deactivate)
		protected.POST("/clubs/:id/join", clubHandler.Join)
		protected.POST("/clubs/:id/leave", clubHandler.Leave)
		protected.GET("/clubs/:id/join-requests", clubHandler.ListJoinRequests)
		protected.PUT("/clubs/:id/join-requests/:requestId", clubHandler.ProcessJoinRequest)
		protected.DELETE("/clubs/:id/members/:userId", clubHandler.RemoveMember)
		protected.PUT("/clubs/:id/members/:userId/role", clubHandler.UpdateMemberRole)
		protected.POST("/clubs/:id/transfer", clubHandler.Transfer)
		protected.POST("/clubs/:id/coins/purchase-request", clubHandler.PurchaseCoins)
		protected.GET("/clubs/:id/wallet", clubHandler.Wallet)
		protected.GET("/clubs/:id/transactions", clubHandler.Transactions)

		protected.POST("/events", eventHandler.Create)
		protected.PUT("/events/:id", eventHandler.Update)
		protected.PUT("/events/:id/status", eventHandler.UpdateStatus)
		protected.DELETE("/events/:id", eventHandler.Delete)
		protected.POST("/events/:id/rsvp", eventHandler.RSVP)
		protected.DELETE("/events/:id/rsvp", eventHandler.CancelRSVP)

		protected.GET("/clubs/:id/messages", messageHandler.ListForClub)
		protected.POST("/clubs/:id/messages", messageHandler.Post)
		protected.PUT("/messages/:id", messageHandler.Edit)
		protected.DELETE("/messages/:id", messageHandler.Delete)
		protected.POST("/messages/:id/replies", messageHandler.Reply)

		protected.GET("/notifications", notificationHandler.List)
		protected.GET("/notifications/unread-count", notificationHandler.UnreadCount)
		protected.PUT("/notifications/:id/read", notificationHandler.MarkRead)
		protected.PUT("/notifications/read-all", notificationHandler.MarkAllRead)
	}

	admin := router.Group("/admin")
	admin.Use(authMiddleware, auth.RequireRole(auth.RoleSuperAdmin))
	{
		admin.GET("/coin-purchase-requests", coinAdminHandler.ListRequests)
		admin.PUT("/coin-purchase-requests/:requestID", coinAdminHandler.ProcessRequest)
		admin.GET("/coin-purchase-stats", coinAdminHandler.Stats)
		admin.POST("/users/:userID/coins", coinAdminHandler.GrantCoins)
		admin.GET("/dashboard/overview", AdminOverview(db))
	}

	router.GET("/health", Health)
	router.GET("/metrics", Metrics())
	router.GET("/test-email", TestEmail(emailService))
	SetupSwagger(router)

	return &Server{
		router: router,
		db:     db,
		config: cfg,
		email:  emailService,
	}
}

// Router exposes the gin engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) Start(port string) error {
	s.http = &http.Server{
		Addr:    ":" + port,
		Handler: s.router,
	}
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
