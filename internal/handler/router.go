package handler

import (
	"github.com/gamassss/shortlink/internal/metrics"
	"github.com/gamassss/shortlink/internal/middleware"
	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Links     *LinkHandler
	Redirect  *RedirectHandler
	Analytics *AnalyticsHandler
	Metadata  *MetadataHandler
	Health    *HealthHandler
}

// NewRouter mounts every route. The redirect route is a catch-all on the
// first path segment, so reserved aliases must cover the fixed prefixes.
func NewRouter(h Handlers, auth *middleware.Authenticator, m *metrics.Metrics) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.Logger(), middleware.Metrics(m))

	router.GET("/healthz", h.Health.Healthz)
	router.GET("/readyz", h.Health.Readyz)
	router.GET("/metrics", gin.WrapH(m.Handler()))

	api := router.Group("/api")
	api.Use(auth.Authenticate())
	{
		api.POST("/links", h.Links.Create)
		api.POST("/metadata", h.Metadata.Fetch)

		owned := api.Group("", middleware.RequireOwner())
		owned.GET("/links", h.Links.List)
		owned.GET("/links/:id", h.Links.Get)
		owned.PATCH("/links/:id", h.Links.Update)
		owned.DELETE("/links/:id", h.Links.Delete)
		owned.GET("/links/:id/analytics", h.Analytics.Summary)
		owned.GET("/links/:id/clicks", h.Analytics.ClickHistory)
	}

	router.GET("/:code", h.Redirect.Redirect)

	return router
}
