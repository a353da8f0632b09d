package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/protokol-team/protokol/pkg/config"
)

// Router holds all handlers
type Router struct {
	cfg        *config.Config
	jobHandler *JobHandler
}

// NewRouter creates a new router with all handlers
func NewRouter(cfg *config.Config, jobHandler *JobHandler) *Router {
	return &Router{
		cfg:        cfg,
		jobHandler: jobHandler,
	}
}

// Setup configures all application routes
func (rt *Router) Setup(e *echo.Echo) {
	e.GET("/health", rt.healthCheck)

	v1 := e.Group("/v1")
	rt.setupJobRoutes(v1)
}

// setupJobRoutes configures the job pipeline routes
func (rt *Router) setupJobRoutes(g *echo.Group) {
	jobs := g.Group("/jobs")
	jobs.POST("", rt.jobHandler.Create)
	jobs.GET("/:id", rt.jobHandler.Get)
	jobs.GET("/:id/events", rt.jobHandler.Events)
	jobs.GET("/:id/result", rt.jobHandler.Result)
}

// healthCheck returns health status
func (rt *Router) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"environment": rt.cfg.Server.Environment,
	})
}
