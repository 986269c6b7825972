package apperr

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Responder renders the last error attached to the gin context as
// {success:false, statusCode, message}. Handlers report failures with
// Abort (or c.Error) and leave the response to this middleware.
func Responder() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		kind := KindOf(err)
		status := kind.Status()
		if kind == Internal {
			log.Error().Err(err).
				Str("method", c.Request.Method).
				Str("path", c.Request.URL.Path).
				Msg("request failed")
		}
		c.JSON(status, gin.H{
			"success":    false,
			"statusCode": status,
			"message":    PublicMessage(err),
		})
	}
}

// Abort attaches err to the context and stops the handler chain.
func Abort(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// Recovery turns a handler panic into an Internal error for Responder to
// render. It must be registered after Responder.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		Abort(c, Wrap(Internal, "panic recovered", fmt.Errorf("%v", recovered)))
	})
}
