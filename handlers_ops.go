package main

import (
	"net/http"

	"github.com/bcgov/lcfs/config"
	"github.com/bcgov/lcfs/models"
	"github.com/bcgov/lcfs/utils"
	"github.com/bcgov/lcfs/workflow"
	"github.com/gin-gonic/gin"
)

func requireAdministrator(c *gin.Context) bool {
	if !requireSession(c) {
		return false
	}
	if !utils.HasRoleInContext(c.Request.Context(), models.RoleAdministrator) {
		c.JSON(http.StatusForbidden, gin.H{"error": "administrator role required"})
		return false
	}
	return true
}

// autoSubmitHandler runs the stale-supplemental sweep on demand, same code
// path the scheduler runs on its interval.
func autoSubmitHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireAdministrator(c) {
			return
		}
		submitted, err := workflow.AutoSubmitStaleSupplementals(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": gin.H{"submitted": submitted}})
	}
}

// requeueDeadOutboxHandler makes DEAD notification rows eligible again after
// a downstream outage has been resolved.
func requeueDeadOutboxHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireAdministrator(c) {
			return
		}
		requeued, err := workflow.RequeueDeadNotifications(c.Request.Context(), config.GetDB())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": gin.H{"requeued": requeued}})
	}
}
