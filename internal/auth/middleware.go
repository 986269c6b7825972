package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"inkpress/internal/apperr"
)

const principalKey = "principal"

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID  string
	IsAdmin bool
}

// SelfOrAdmin passes when the caller is the target user or an admin.
func SelfOrAdmin(p Principal, targetUserID string) error {
	if p.IsAdmin || (p.UserID != "" && p.UserID == targetUserID) {
		return nil
	}
	return apperr.New(apperr.Forbidden, "You can only modify your own account!")
}

func AdminOnly(p Principal) error {
	if p.IsAdmin {
		return nil
	}
	return apperr.New(apperr.Forbidden, "You are not authorized to access this resource!")
}

// TokenFromRequest returns the session token from the access_token cookie,
// falling back to an Authorization bearer header.
func TokenFromRequest(c *gin.Context) string {
	if cookie, err := c.Cookie(CookieName); err == nil && cookie != "" {
		return cookie
	}
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

// AuthMiddleware verifies the session token and stores the caller's Principal
// on the context. Requests without a valid token fail as Unauthenticated.
func AuthMiddleware(issuer *Issuer, presence *Presence) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := TokenFromRequest(c)
		if tokenStr == "" {
			apperr.Abort(c, apperr.New(apperr.Unauthenticated, "Unauthorized"))
			return
		}
		claims, err := issuer.Verify(tokenStr)
		if err != nil {
			apperr.Abort(c, apperr.Wrap(apperr.Unauthenticated, "Invalid or expired token", err))
			return
		}
		if err := presence.Touch(c.Request.Context(), claims.UserID); err != nil {
			log.Debug().Err(err).Str("user_id", claims.UserID).Msg("presence update failed")
		}
		c.Set(principalKey, Principal{UserID: claims.UserID, IsAdmin: claims.IsAdmin})
		c.Next()
	}
}

// RequireAdmin must run after AuthMiddleware.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := PrincipalFrom(c)
		if !ok {
			apperr.Abort(c, apperr.New(apperr.Unauthenticated, "Unauthorized"))
			return
		}
		if err := AdminOnly(p); err != nil {
			apperr.Abort(c, err)
			return
		}
		c.Next()
	}
}

// RequireSelfOrAdmin compares the caller with the user id in the named path
// parameter. It must run after AuthMiddleware.
func RequireSelfOrAdmin(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := PrincipalFrom(c)
		if !ok {
			apperr.Abort(c, apperr.New(apperr.Unauthenticated, "Unauthorized"))
			return
		}
		if err := SelfOrAdmin(p, c.Param(param)); err != nil {
			apperr.Abort(c, err)
			return
		}
		c.Next()
	}
}

func PrincipalFrom(c *gin.Context) (Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return Principal{}, false
	}
	p, ok := v.(Principal)
	return p, ok
}
