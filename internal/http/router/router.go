// Package router assembles the gin engine from the application modules.
package router

import (
	"context"
	"net/http"
	"time"

	apphttp "orderdesk_backend/internal/http"
	"orderdesk_backend/internal/http/middleware"
	"orderdesk_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	requestsPerSecond = 20
	requestBurst      = 40
	healthTimeout     = 2 * time.Second
)

// privilegedRoles may reach the /admin group.
var privilegedRoles = []string{"admin", "manager"}

// New builds the engine and mounts every module.
func New(app *apphttp.App) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(httpkit.RequestLogger(app.Logger))
	engine.Use(httpkit.SecurityHeaders())
	engine.Use(middleware.CORS(app.Config))
	engine.Use(httpkit.NewIPRateLimiter(rate.Limit(requestsPerSecond), requestBurst, app.Logger).RateLimit())

	engine.GET("/api/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
		defer cancel()
		if app.Health != nil {
			if err := app.Health.Ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := engine.Group("/api/v1")
	auth := httpkit.AuthRequired(app.Config)
	protected := v1.Group("")
	protected.Use(auth)
	admin := v1.Group("/admin")
	admin.Use(auth, httpkit.RequireAnyRole(privilegedRoles...))

	routerCtx := &apphttp.RouterContext{
		Engine:         engine,
		V1:             v1,
		Protected:      protected,
		Admin:          admin,
		Config:         app.Config,
		AuthMiddleware: auth,
	}
	for _, module := range app.Modules {
		module.RegisterRoutes(routerCtx)
		app.Logger.Debug("module routes registered", "module", module.Name())
	}

	return engine
}
