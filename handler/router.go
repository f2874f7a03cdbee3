package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nrenier/ICorNet-sub000/config"
	"github.com/nrenier/ICorNet-sub000/middleware"
	"github.com/nrenier/ICorNet-sub000/store"
)

// Backend bundles the in-memory state behind the router.
type Backend struct {
	Users    *store.UserStore
	Reports  *store.ReportStore
	Jobs     *store.ReportJobs
	Fixtures *store.Fixtures
	Chats    *store.ChatLog
	Graph    store.GraphSource
}

// NewBackend builds a backend from configuration. Relationships come from
// graph when it is non-nil, otherwise from the fixtures.
func NewBackend(cfg *config.ServerConfig, fixtures *store.Fixtures, graph store.GraphSource) *Backend {
	reports := store.NewReportStore(cfg.MaxReports)
	if graph == nil {
		graph = store.FixtureGraphSource{Fixtures: fixtures}
	}
	return &Backend{
		Users:    store.NewUserStore(cfg.Users),
		Reports:  reports,
		Jobs:     store.NewReportJobs(reports, fixtures, cfg.JobDelay()),
		Fixtures: fixtures,
		Chats:    store.NewChatLog(),
		Graph:    graph,
	}
}

// Close stops the pending report jobs.
func (b *Backend) Close() {
	b.Jobs.Close()
}

// NewRouter wires the middleware chain and every API route.
func NewRouter(cfg *config.ServerConfig, b *Backend) *gin.Engine {
	router := gin.New()
	// Company names may contain an escaped slash.
	router.UseRawPath = true

	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORS())
	router.Use(middleware.NoCache())
	router.Use(middleware.RateLimit(cfg.RateLimitPerMinute))

	authHandler := NewAuthHandler(cfg, b.Users)
	reportHandler := NewReportHandler(b.Reports, b.Jobs)
	companyHandler := NewCompanyHandler(b.Fixtures, b.Graph)
	dashboardHandler := NewDashboardHandler(b.Fixtures, b.Reports)
	sukChat := NewChatHandler("suk", store.DatasetCompanies, b.Chats, b.Fixtures)
	startupChat := NewChatHandler("startup", store.DatasetStartup, b.Chats, b.Fixtures)

	health := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	}
	router.GET("/health", health)

	api := router.Group("/api")
	{
		api.GET("/health", health)
		api.POST("/login", authHandler.Login)
		api.POST("/register", authHandler.Register)
		api.POST("/logout", authHandler.Logout)
	}

	protected := api.Group("/")
	protected.Use(middleware.SessionAuth(cfg))
	{
		protected.GET("/user", authHandler.CurrentUser)

		protected.GET("/dashboard/stats", dashboardHandler.Stats)
		protected.GET("/dashboard/recent-reports", dashboardHandler.RecentReports)
		protected.GET("/dashboard/sector-companies", dashboardHandler.SectorCompanies)

		protected.POST("/reports/generate", reportHandler.Generate)
		protected.GET("/reports/status/:id", reportHandler.Status)
		protected.GET("/reports/history", reportHandler.History)
		protected.DELETE("/reports/bulk-delete", reportHandler.BulkDelete)
		protected.GET("/reports/download/:id", reportHandler.Download)
		protected.GET("/reports/view/:id", reportHandler.View)

		protected.GET("/reports/companies", companyHandler.List(store.DatasetCompanies))
		protected.GET("/reports/startup-companies", companyHandler.List(store.DatasetStartup))
		protected.GET("/reports/federterziario-companies", companyHandler.List(store.DatasetFederterziario))
		protected.GET("/reports/company/:name", companyHandler.Detail)
		protected.GET("/reports/relationships/:name", companyHandler.Relationships(store.DatasetCompanies))
		protected.GET("/reports/startup-relationships/:name", companyHandler.Relationships(store.DatasetStartup))
		protected.GET("/reports/federterziario-relationships/:name", companyHandler.Relationships(store.DatasetFederterziario))

		protected.POST("/suk-chat/send-message", sukChat.SendMessage)
		protected.GET("/suk-chat/chat-history", sukChat.History)
		protected.POST("/startup-chat/send-message", startupChat.SendMessage)
		protected.GET("/startup-chat/chat-history", startupChat.History)
		protected.DELETE("/startup-chat/delete-conversation", startupChat.DeleteConversation)
	}

	return router
}
