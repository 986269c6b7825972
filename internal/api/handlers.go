package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"inkpress/internal/config"
)

// GET /health
func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// GET /config
func configHandler(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Only return non-sensitive config fields
		c.JSON(http.StatusOK, gin.H{
			"server": gin.H{
				"host":        cfg.Server.Host,
				"port":        cfg.Server.Port,
				"subpath":     cfg.Server.Subpath,
				"environment": cfg.Server.Environment,
			},
			"auth": gin.H{
				"tokenTtlHours": cfg.Auth.TokenTTLHours,
			},
			"cors": gin.H{
				"allowedOrigins": cfg.CORS.AllowedOrigins,
			},
		})
	}
}
