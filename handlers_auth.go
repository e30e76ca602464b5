package main

import (
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/bcgov/lcfs/config"
	"github.com/bcgov/lcfs/models"
	"github.com/bcgov/lcfs/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// sessionTTL is how long an issued token stays valid.
//
// Set via env:
// - SESSION_TTL_HOURS (default 12)
func sessionTTL() time.Duration {
	v, err := strconv.Atoi(os.Getenv("SESSION_TTL_HOURS"))
	if err != nil || v <= 0 {
		v = 12
	}
	return time.Duration(v) * time.Hour
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// loginHandler checks credentials and mints an opaque session token the
// session middleware resolves on later requests.
func loginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
			return
		}
		user, err := models.AuthenticateUser(c.Request.Context(), req.Username, req.Password)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		token := uuid.NewString()
		if err := config.SetRedisValue("Token:"+token, user.Username, sessionTTL()); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": gin.H{
			"token": token,
			"user":  user,
		}})
	}
}

// logoutHandler revokes the presented token.
func logoutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		token, _ := c.Request.Context().Value(utils.ContextKeyToken).(string)
		if token != "" {
			if err := config.RemoveRedisKey("Token:" + token); err != nil {
				respondError(c, err)
				return
			}
		}
		c.Status(http.StatusNoContent)
	}
}
