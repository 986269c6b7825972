package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"inkpress/internal/apperr"
	"inkpress/internal/auth"
	"inkpress/internal/service"
)

type listUsersQuery struct {
	StartIndex int    `form:"startIndex" binding:"omitempty,min=0"`
	Limit      int    `form:"limit" binding:"omitempty,min=1"`
	Sort       string `form:"sort" binding:"omitempty,oneof=asc desc"`
}

// GET /user/:id
func GetUserHandler(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, err := deps.Users.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, u)
	}
}

// PUT /user/:id
func UpdateUserHandler(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, _ := auth.PrincipalFrom(c)
		var req service.UpdateInput
		if err := c.ShouldBindJSON(&req); err != nil {
			_ = c.Error(apperr.Wrap(apperr.Validation, "Invalid request", err))
			return
		}
		u, err := deps.Users.Update(c.Request.Context(), caller, c.Param("id"), req)
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, u)
	}
}

// DELETE /user/:id
func DeleteUserHandler(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, _ := auth.PrincipalFrom(c)
		id := c.Param("id")
		if err := deps.Users.Delete(c.Request.Context(), id); err != nil {
			_ = c.Error(err)
			return
		}
		if err := deps.Presence.Remove(c.Request.Context(), id); err != nil {
			log.Debug().Err(err).Str("user_id", id).Msg("presence cleanup failed")
		}
		if caller.UserID == id {
			deps.Cookies.Clear(c)
		}
		c.JSON(http.StatusOK, gin.H{"message": "User has been deleted"})
	}
}

// POST /user/signout
// The token stays valid until it expires; signing out only drops the cookie
// and the presence entry.
func SignoutHandler(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenStr := auth.TokenFromRequest(c); tokenStr != "" {
			if claims, err := deps.Issuer.Verify(tokenStr); err == nil {
				if err := deps.Presence.Remove(c.Request.Context(), claims.UserID); err != nil {
					log.Debug().Err(err).Str("user_id", claims.UserID).Msg("presence cleanup failed")
				}
			}
		}
		deps.Cookies.Clear(c)
		c.JSON(http.StatusOK, gin.H{"message": "User has been signed out"})
	}
}

// GET /user/getusers
func ListUsersHandler(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var q listUsersQuery
		if err := c.ShouldBindQuery(&q); err != nil {
			_ = c.Error(apperr.Wrap(apperr.Validation, "Invalid query parameters", err))
			return
		}
		res, err := deps.Users.List(c.Request.Context(), service.ListQuery{
			StartIndex: q.StartIndex,
			Limit:      q.Limit,
			Sort:       q.Sort,
		})
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

// OnlineUserCountHandler returns the number of unique online users. Presence
// is advisory, so a Redis outage reports zero instead of failing.
func OnlineUserCountHandler(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		count, err := deps.Presence.OnlineCount(c.Request.Context())
		if err != nil {
			log.Warn().Err(err).Msg("online count unavailable")
			count = 0
		}
		c.JSON(http.StatusOK, gin.H{"online": count})
	}
}
