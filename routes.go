package main

import (
	"context"
	"net/http"

	"github.com/bcgov/lcfs/models"
	"github.com/bcgov/lcfs/workflow"
	"github.com/gin-gonic/gin"
)

func registerRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/login", loginHandler())
		auth.POST("/logout", logoutHandler())
	}

	reports := r.Group("/reports")
	{
		reports.POST("", createReportHandler())
		reports.GET("", listReportsHandler())
		reports.GET("/:id", getReportHandler())
		reports.DELETE("/:id", deleteReportHandler())

		reports.GET("/:id/summary", getSummaryHandler())
		reports.PUT("/:id/summary", saveSummaryHandler())

		reports.POST("/:id/submit", transitionHandler(func(c *gin.Context, id int) (*models.ComplianceReport, error) {
			return workflow.SubmitReport(c.Request.Context(), id)
		}))
		reports.POST("/:id/recommend-analyst", governmentTransition(workflow.RecommendReportByAnalyst))
		reports.POST("/:id/recommend-manager", governmentTransition(workflow.RecommendReportByManager))
		reports.POST("/:id/return-analyst", governmentTransition(workflow.ReturnReportToAnalyst))
		reports.POST("/:id/return-manager", governmentTransition(workflow.ReturnReportToSubmitted))
		reports.POST("/:id/assess", assessReportHandler())
		reports.POST("/:id/reject", governmentTransition(workflow.RejectReport))

		reports.POST("/:id/supplemental", supplementalHandler())
		reports.POST("/:id/government-supplemental", governmentSupplementalHandler())
		reports.POST("/:id/adjustment", analystAdjustmentHandler())

		reports.POST("/:id/comments", createCommentHandler())
		reports.GET("/:id/comments", listCommentsHandler())

		reports.POST("/:id/import", startImportHandler())
		reports.POST("/:id/import-url", signImportUploadHandler())
		reports.POST("/:id/import-from-storage", importFromStorageHandler())
		reports.GET("/:id/export", exportReportHandler())

		lineItemRoutes(reports)
	}

	r.GET("/jobs/:id", jobProgressHandler())

	transfers := r.Group("/transfers")
	{
		transfers.POST("", createTransferHandler())
		transfers.GET("", listTransfersHandler())
		transfers.GET("/:id", getTransferHandler())
		transfers.POST("/:id/sign-send", transferTransition(false, func(c *gin.Context, id int) (*models.Transfer, error) {
			return models.SignAndSendTransfer(c.Request.Context(), id)
		}))
		transfers.POST("/:id/sign-submit", transferTransition(false, func(c *gin.Context, id int) (*models.Transfer, error) {
			return models.SignAndSubmitTransfer(c.Request.Context(), id)
		}))
		transfers.POST("/:id/recommend", transferTransition(true, func(c *gin.Context, id int) (*models.Transfer, error) {
			return models.RecommendTransfer(c.Request.Context(), id)
		}))
		transfers.POST("/:id/record", transferTransition(true, func(c *gin.Context, id int) (*models.Transfer, error) {
			return models.RecordTransfer(c.Request.Context(), id)
		}))
		transfers.POST("/:id/refuse", transferTransition(true, func(c *gin.Context, id int) (*models.Transfer, error) {
			return models.RefuseTransfer(c.Request.Context(), id)
		}))
		transfers.POST("/:id/decline", transferTransition(false, func(c *gin.Context, id int) (*models.Transfer, error) {
			return models.DeclineTransfer(c.Request.Context(), id)
		}))
		transfers.POST("/:id/rescind", transferTransition(false, func(c *gin.Context, id int) (*models.Transfer, error) {
			return models.RescindTransfer(c.Request.Context(), id)
		}))
	}

	agreements := r.Group("/initiative-agreements")
	{
		agreements.POST("", createInitiativeAgreementHandler())
		agreements.GET("/:id", getInitiativeAgreementHandler())
		agreements.POST("/:id/recommend", transitionInitiativeAgreementHandler(models.AgreementStatusRecommended))
		agreements.POST("/:id/approve", transitionInitiativeAgreementHandler(models.AgreementStatusApproved))
		agreements.POST("/:id/return", transitionInitiativeAgreementHandler(models.AgreementStatusReturned))
	}

	adjustments := r.Group("/admin-adjustments")
	{
		adjustments.POST("", createAdminAdjustmentHandler())
		adjustments.GET("/:id", getAdminAdjustmentHandler())
		adjustments.POST("/:id/recommend", transitionAdminAdjustmentHandler(models.AgreementStatusRecommended))
		adjustments.POST("/:id/approve", transitionAdminAdjustmentHandler(models.AgreementStatusApproved))
		adjustments.POST("/:id/return", transitionAdminAdjustmentHandler(models.AgreementStatusReturned))
	}

	organizations := r.Group("/organizations")
	{
		organizations.GET("/:id/balance", organizationBalanceHandler())
		organizations.GET("/:id/transactions", listOrganizationTransactionsHandler())
	}

	ops := r.Group("/internal/ops")
	{
		ops.POST("/auto-submit", autoSubmitHandler())
		ops.POST("/outbox/requeue-dead", requeueDeadOutboxHandler())
	}
}

// governmentTransition guards a report lifecycle step behind a government
// session.
func governmentTransition(apply func(ctx context.Context, id int) (*models.ComplianceReport, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireGovernment(c) {
			return
		}
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		report, err := apply(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": report})
	}
}

// governmentSupplementalHandler opens the next chain version on behalf of
// government staff; the initiator is attributed from the session.
func governmentSupplementalHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireGovernment(c) {
			return
		}
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		var req newVersionRequest
		_ = c.ShouldBindJSON(&req)
		report, err := workflow.CreateSupplementalReport(c.Request.Context(), id, req.Nickname)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"data": report})
	}
}
