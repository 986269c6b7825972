package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"inkpress/internal/apperr"
	"inkpress/internal/auth"
	"inkpress/internal/config"
	"inkpress/internal/logging"
	"inkpress/internal/service"
)

// Deps are the collaborators the HTTP handlers need.
type Deps struct {
	Auth     *service.AuthService
	Users    *service.UserService
	Issuer   *auth.Issuer
	Presence *auth.Presence
	Cookies  auth.CookiePolicy
}

func SetupRouter(cfg *config.Config, deps *Deps) *gin.Engine {
	r := gin.New()
	r.Use(logging.RequestLogger())
	if len(cfg.CORS.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", logging.RequestIDHeader},
			ExposeHeaders:    []string{logging.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	r.Use(apperr.Responder(), apperr.Recovery())

	subpath := cfg.Server.Subpath // e.g. "/api", always starts with '/'
	group := r.Group(subpath)
	{
		group.GET("/health", healthHandler)
		group.GET("/config", configHandler(cfg))
		if deps == nil {
			return r
		}

		requireAuth := auth.AuthMiddleware(deps.Issuer, deps.Presence)

		// Auth
		group.POST("/auth/signup", SignupHandler(deps))
		group.POST("/auth/signin", SigninHandler(deps))
		group.POST("/auth/federated", FederatedHandler(deps))
		// Setup: only if no users
		group.POST("/auth/setup", SetupHandler(deps))

		// Users
		group.POST("/user/signout", SignoutHandler(deps))
		group.GET("/user/getusers", requireAuth, auth.RequireAdmin(), ListUsersHandler(deps))
		group.GET("/user/online", requireAuth, auth.RequireAdmin(), OnlineUserCountHandler(deps))
		group.GET("/user/:id", GetUserHandler(deps))
		group.PUT("/user/:id", requireAuth, auth.RequireSelfOrAdmin("id"), UpdateUserHandler(deps))
		group.DELETE("/user/:id", requireAuth, auth.RequireSelfOrAdmin("id"), DeleteUserHandler(deps))
	}
	return r
}
