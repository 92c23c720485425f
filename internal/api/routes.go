package api

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"resumeMatch/internal/api/middleware"
	"resumeMatch/internal/auth"
	"resumeMatch/internal/config"
	"resumeMatch/internal/export"
	"resumeMatch/internal/scan"
	"resumeMatch/internal/session"
	"resumeMatch/internal/workflow"
)

// HealthChecker reports whether a dependency can serve traffic.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Dependencies are the services the page handlers run on. Redis, Guard, Counter, Scanner,
// Upstream and Exports are optional.
type Dependencies struct {
	Config   *config.Config
	Logger   *slog.Logger
	Tokens   *auth.TokenService
	Store    session.Store
	Guard    session.Guard
	Counter  session.RunCounter
	Analyzer workflow.Analyzer
	Upstream HealthChecker
	Scanner  scan.Scanner
	Exports  *export.Service
	Redis    redis.UniversalClient
}

// RegisterRoutes registers the pages, the export API and the internal print route.
func RegisterRoutes(router *gin.Engine, deps Dependencies) {
	pages := NewPageHandler(deps)
	results := NewResultHandler(deps)
	exports := NewExportHandler(deps.Exports, deps.Store)
	health := NewHealthHandler(deps.Redis, deps.Upstream, deps.Scanner)

	router.GET("/ready", health.Ready)

	browser := router.Group("/")
	browser.Use(middleware.SessionMiddleware(deps.Tokens, deps.Config.Web.CookieSecure))
	{
		browser.GET("/", pages.Index)
		browser.POST("/analyze", pages.Analyze)
		browser.GET("/result", results.Result)
		browser.GET("/result/print", results.Print)
		browser.POST("/reset", results.Reset)
		browser.POST("/result/export", exports.Request)
		browser.GET("/result/export", exports.Status)

		if deps.Redis != nil {
			ws := NewWsHandler(deps.Redis, deps.Logger, deps.Config.Web.AllowedOrigins)
			browser.GET("/ws", ws.HandleConnection)
		}
	}

	internal := router.Group("/internal")
	internal.Use(middleware.InternalSecretMiddleware(deps.Config.Web.InternalSecret))
	{
		internal.GET("/print/:session", results.InternalPrint)
	}
}
