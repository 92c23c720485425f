package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"resumeMatch/internal/api/middleware"
	"resumeMatch/internal/metrics"
)

// NewRouter builds the gin engine with the shared middleware chain, the HTML templates
// and the probe endpoints. Page routes are added by RegisterRoutes.
func NewRouter(logger *slog.Logger) (*gin.Engine, error) {
	templates, err := loadTemplates()
	if err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.CorrelationIDMiddleware(),
		middleware.SlogLoggerMiddleware(logger),
		metrics.GinMiddleware(),
	)
	router.SetHTMLTemplate(templates)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router, nil
}
