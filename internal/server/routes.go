package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-tc-api/internal/handler"
	"github.com/noah-isme/sma-tc-api/internal/middleware"
	"github.com/noah-isme/sma-tc-api/internal/models"
	"github.com/noah-isme/sma-tc-api/internal/service"
	"github.com/noah-isme/sma-tc-api/pkg/config"
	"github.com/noah-isme/sma-tc-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-tc-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-tc-api/pkg/middleware/requestid"
)

// Handlers groups the HTTP handlers mounted by the router.
type Handlers struct {
	Auth         *handler.AuthHandler
	Registration *handler.RegistrationHandler
	Student      *handler.StudentHandler
	TC           *handler.TCHandler
	Storage      *handler.StorageHandler
	Dashboard    *handler.DashboardHandler
	Metrics      *handler.MetricsHandler
}

// RouterDeps carries everything the router needs.
type RouterDeps struct {
	Config   *config.Config
	Logger   *zap.Logger
	Sessions middleware.SessionVerifier
	Metrics  *service.MetricsService
	Handlers Handlers
}

// NewRouter builds the gin engine with every route mounted.
func NewRouter(deps RouterDeps) *gin.Engine {
	cfg := deps.Config
	h := deps.Handlers

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(deps.Logger, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.Metrics))

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	if cfg.Metrics.Enabled {
		r.GET("/metrics", h.Metrics.Prometheus)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	r.GET("/storage/public/:bucket/*name", h.Storage.Public)

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", h.Auth.Login)
	api.GET("/tc/verify", h.TC.Verify)

	authed := api.Group("")
	authed.Use(middleware.JWT(deps.Sessions))
	authed.POST("/auth/logout", h.Auth.Logout)
	authed.GET("/auth/me", h.Auth.Me)
	authed.GET("/dashboard", h.Dashboard.Get)
	authed.GET("/tc/search", h.TC.Search)
	authed.GET("/students", h.Student.List)
	authed.GET("/students/options", h.Student.Options)

	admin := authed.Group("")
	admin.Use(middleware.RequireRoles(models.RoleAdmin))
	admin.GET("/students/registration", h.Registration.Get)
	admin.PATCH("/students/registration", h.Registration.Update)
	admin.DELETE("/students/registration", h.Registration.Discard)
	admin.POST("/students/registration/submit", h.Registration.Submit)
	admin.POST("/students", h.Student.Create)
	admin.GET("/students/export", h.Student.Export)
	admin.GET("/students/:id", h.Student.Get)
	admin.POST("/students/:id/tc", h.Student.IssueTC)
	admin.POST("/tc", h.TC.Issue)
	admin.GET("/metrics/summary", h.Metrics.Summary)

	return r
}
