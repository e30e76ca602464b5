package middlewares

import (
	"context"
	"net/http"

	"github.com/bcgov/lcfs/config"
	"github.com/bcgov/lcfs/models"
	"github.com/bcgov/lcfs/utils"
	"github.com/gin-gonic/gin"
)

// SessionMiddleware resolves the opaque session token (issued by the external
// authenticator) to a user and attaches identity to the request context.
// Requests without a token pass through; protected handlers check identity.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Request.Header.Get("token")
		if token == "" {
			c.Next()
			return
		}
		username, exists, err := config.GetRedisValue("Token:" + token)
		if err != nil || !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		user, err := models.GetSessionUser(c.Request.Context(), username)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		ctx := context.WithValue(c.Request.Context(), utils.ContextKeyToken, token)
		ctx = context.WithValue(ctx, utils.ContextKeyUsername, user.Username)
		ctx = utils.SetUserIdInContext(ctx, user.ID)
		ctx = utils.SetUserNameInContext(ctx, user.DisplayName())
		ctx = utils.SetOrganizationIdInContext(ctx, user.OrganizationId)
		ctx = utils.SetIsGovernmentInContext(ctx, user.IsGovernment)
		ctx = utils.SetRolesInContext(ctx, user.RoleNames())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
