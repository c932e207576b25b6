package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/surdiana/modelbank/config"
	"github.com/surdiana/modelbank/internal/constants"
	"github.com/surdiana/modelbank/internal/handler"
	"github.com/surdiana/modelbank/internal/middleware"
	"github.com/surdiana/modelbank/internal/model"
	"github.com/surdiana/modelbank/internal/service"
	"go.uber.org/zap"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Auth   *handler.AuthHandler
	Record *handler.RecordHandler
	Audit  *handler.AuditHandler
	User   *handler.UserHandler
	Health *handler.HealthHandler
}

// Setup builds the gin engine with all routes and middleware.
func Setup(
	cfg *config.Config,
	log *zap.Logger,
	tokens *service.TokenService,
	limiter middleware.RateLimiter,
	h Handlers,
) *gin.Engine {
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(middleware.Recovery(log))
	engine.Use(middleware.RequestLogger(log))

	window := time.Duration(cfg.RateLimit.Window) * time.Second
	loginLimit := middleware.RateLimit(limiter, constants.RateLimitLogin, cfg.RateLimit.Login, window, log)
	refreshLimit := middleware.RateLimit(limiter, constants.RateLimitRefresh, cfg.RateLimit.Refresh, window, log)
	generalLimit := middleware.RateLimit(limiter, constants.RateLimitGeneral, cfg.RateLimit.General, window, log)

	engine.GET("/health", h.Health.Check)

	v1 := engine.Group("/api/v1")

	// Public surface
	auth := v1.Group("/auth")
	{
		auth.GET("/setup", generalLimit, h.Auth.SetupStatus)
		auth.POST("/setup", loginLimit, h.Auth.Setup)
		auth.POST("/login", loginLimit, h.Auth.Login)
		auth.POST("/refresh", refreshLimit, h.Auth.Refresh)
		auth.POST("/logout", generalLimit, h.Auth.Logout)
	}

	// Authenticated surface
	authed := v1.Group("")
	authed.Use(generalLimit, middleware.Authentication(tokens))
	{
		authed.GET("/auth/me", h.Auth.Me)
		authed.POST("/auth/password", h.Auth.ChangePassword)

		registerRecordRoutes(authed, "/entities", service.KindEntity, h.Record, h.Record.CreateEntity)
		registerRecordRoutes(authed, "/relationships", service.KindRelationship, h.Record, h.Record.CreateRelationship)
		registerRecordRoutes(authed, "/models", service.KindModel, h.Record, h.Record.CreateModel)

		admin := authed.Group("")
		admin.Use(middleware.RequireRole(model.RoleAdmin))
		{
			admin.GET("/audit", h.Audit.List)
			admin.GET("/audit/verify", h.Audit.Verify)

			admin.POST("/users", h.User.Create)
			admin.GET("/users", h.User.List)
			admin.GET("/users/:id", h.User.Get)
			admin.PATCH("/users/:id", h.User.Update)
		}
	}

	return engine
}

// registerRecordRoutes mounts the shared CRUD surface for one record
// kind. Reads are open to every role; writes require editor or admin.
func registerRecordRoutes(group *gin.RouterGroup, prefix string, kind service.RecordKind, h *handler.RecordHandler, create gin.HandlerFunc) {
	writer := middleware.RequireRole(model.RoleAdmin, model.RoleEditor)

	records := group.Group(prefix)
	{
		records.GET("", h.List(kind))
		records.GET("/:id", h.Get(kind))
		records.GET("/:id/versions", h.ListVersions(kind))
		records.GET("/:id/versions/:version", h.GetVersion(kind))

		records.POST("", writer, create)
		records.PUT("/:id", writer, h.Update(kind))
		records.POST("/:id/rollback", writer, h.Rollback(kind))
		records.DELETE("/:id", writer, h.Delete(kind))
	}
}
