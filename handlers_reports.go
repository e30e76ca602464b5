package main

import (
	"net/http"
	"strconv"

	"github.com/bcgov/lcfs/config"
	"github.com/bcgov/lcfs/models"
	"github.com/bcgov/lcfs/utils"
	"github.com/bcgov/lcfs/workflow"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

// respondError translates a domain error into the HTTP status and field
// payload the error kind prescribes.
func respondError(c *gin.Context, err error) {
	body := gin.H{"error": err.Error()}
	if fields := utils.ErrorFields(err); len(fields) > 0 {
		body["fields"] = fields
	}
	c.JSON(utils.HTTPStatus(err), body)
}

// requireSession rejects requests the session middleware could not
// attribute to a user.
func requireSession(c *gin.Context) bool {
	if utils.GetUsernameFromContext(c.Request.Context()) == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return false
	}
	return true
}

func requireGovernment(c *gin.Context) bool {
	if !requireSession(c) {
		return false
	}
	if !utils.GetIsGovernmentFromContext(c.Request.Context()) {
		c.JSON(http.StatusForbidden, gin.H{"error": "government role required"})
		return false
	}
	return true
}

func pathId(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " must be a positive integer"})
		return 0, false
	}
	return id, true
}

func createReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		var input models.NewComplianceReport
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		report, err := models.CreateComplianceReport(c.Request.Context(), input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"data": report})
	}
}

func getReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		ctx := c.Request.Context()
		report, err := models.GetComplianceReport(ctx, id)
		if err != nil {
			respondError(c, err)
			return
		}
		chain, err := models.GetReportChain(ctx, config.GetDB(), report.GroupUuid)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": report, "chain": chain})
	}
}

func listReportsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		periodId, _ := strconv.Atoi(c.Query("compliance_period_id"))
		reports, err := models.ListComplianceReports(c.Request.Context(), periodId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": reports})
	}
}

func getSummaryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		// The computation fans out over every line-item family plus the
		// ledger; a span groups its query traffic in the trace.
		ctx, span := tracer.Start(c.Request.Context(), "ComputeReportSummary",
			trace.WithSpanKind(trace.SpanKindInternal))
		summary, err := workflow.ComputeReportSummary(ctx, id)
		if err != nil {
			span.RecordError(err)
			span.End()
			respondError(c, err)
			return
		}
		span.End()
		c.JSON(http.StatusOK, gin.H{"data": summary})
	}
}

func saveSummaryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		var input workflow.SummarySaveInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		summary, err := workflow.SaveReportSummary(c.Request.Context(), id, input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": summary})
	}
}

// transitionHandler wraps the single-argument lifecycle operations.
func transitionHandler(apply func(c *gin.Context, id int) (*models.ComplianceReport, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		report, err := apply(c, id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": report})
	}
}

type assessRequest struct {
	AssessmentStatement string `json:"assessment_statement"`
}

func assessReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireGovernment(c) {
			return
		}
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		var req assessRequest
		_ = c.ShouldBindJSON(&req)
		report, err := workflow.AssessReport(c.Request.Context(), id, req.AssessmentStatement)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": report})
	}
}

type newVersionRequest struct {
	Nickname string `json:"nickname"`
}

func supplementalHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
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

func analystAdjustmentHandler() gin.HandlerFunc {
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
		report, err := workflow.CreateAnalystAdjustment(c.Request.Context(), id, req.Nickname)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"data": report})
	}
}

func deleteReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		if err := workflow.DeleteReportVersion(c.Request.Context(), id); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

type commentRequest struct {
	Comment string `json:"comment" binding:"required"`
}

func createCommentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireGovernment(c) {
			return
		}
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		var req commentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "comment is required"})
			return
		}
		comment, err := models.CreateInternalComment(c.Request.Context(), id, req.Comment)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"data": comment})
	}
}

func listCommentsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireGovernment(c) {
			return
		}
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		comments, err := models.ListInternalComments(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": comments})
	}
}
