package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"inkpress/internal/apperr"
	"inkpress/internal/service"
)

// POST /auth/signup
func SignupHandler(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.SignupInput
		if err := c.ShouldBindJSON(&req); err != nil {
			_ = c.Error(apperr.Wrap(apperr.Validation, "Invalid request", err))
			return
		}
		u, err := deps.Auth.Signup(c.Request.Context(), req)
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusCreated, u)
	}
}

// POST /auth/signin
func SigninHandler(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.SigninInput
		if err := c.ShouldBindJSON(&req); err != nil {
			_ = c.Error(apperr.Wrap(apperr.Validation, "Invalid request", err))
			return
		}
		sess, err := deps.Auth.Signin(c.Request.Context(), req)
		if err != nil {
			_ = c.Error(err)
			return
		}
		startSession(c, deps, sess)
	}
}

// POST /auth/federated
func FederatedHandler(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.FederatedInput
		if err := c.ShouldBindJSON(&req); err != nil {
			_ = c.Error(apperr.Wrap(apperr.Validation, "Invalid request", err))
			return
		}
		sess, err := deps.Auth.FederatedUpsert(c.Request.Context(), req)
		if err != nil {
			_ = c.Error(err)
			return
		}
		startSession(c, deps, sess)
	}
}

// POST /auth/setup
func SetupHandler(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.SignupInput
		if err := c.ShouldBindJSON(&req); err != nil {
			_ = c.Error(apperr.Wrap(apperr.Validation, "Invalid request", err))
			return
		}
		u, err := deps.Auth.Setup(c.Request.Context(), req)
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"user":           u,
			"setup_complete": true,
		})
	}
}

func startSession(c *gin.Context, deps *Deps, sess *service.Session) {
	deps.Cookies.Set(c, sess.Token)
	c.JSON(http.StatusOK, sess.User)
}
