package main

import (
	"context"
	"net/http"

	"github.com/bcgov/lcfs/config"
	"github.com/bcgov/lcfs/models"
	"github.com/bcgov/lcfs/utils"
	"github.com/gin-gonic/gin"
)

// saveRoute registers a save handler under both verbs: POST creates a row,
// PUT edits one, and the handler tells them apart by group_uuid.
func saveRoute(reports *gin.RouterGroup, path string, handler gin.HandlerFunc) {
	reports.POST(path, handler)
	reports.PUT(path, handler)
}

// lineItemRoutes wires the five versioned row families under a report. Each
// family gets the same surface: list effective rows, save (create or edit by
// group_uuid), and delete by group_uuid.
func lineItemRoutes(reports *gin.RouterGroup) {
	reports.GET("/:id/fuel-supplies", listLineItems(func(c *gin.Context, report *models.ComplianceReport) (any, error) {
		return models.EffectiveFuelSupplies(c.Request.Context(), config.GetDB(), report)
	}))
	saveRoute(reports, "/:id/fuel-supplies", saveLineItem(func(c *gin.Context, reportId int) (any, error) {
		var input models.FuelSupply
		if err := c.ShouldBindJSON(&input); err != nil {
			return nil, bindError(err)
		}
		return models.SaveFuelSupply(c.Request.Context(), &input, reportId)
	}))
	reports.DELETE("/:id/fuel-supplies/:groupUuid", deleteLineItem(models.DeleteFuelSupply))

	reports.GET("/:id/fuel-exports", listLineItems(func(c *gin.Context, report *models.ComplianceReport) (any, error) {
		return models.EffectiveFuelExports(c.Request.Context(), config.GetDB(), report)
	}))
	saveRoute(reports, "/:id/fuel-exports", saveLineItem(func(c *gin.Context, reportId int) (any, error) {
		var input models.FuelExport
		if err := c.ShouldBindJSON(&input); err != nil {
			return nil, bindError(err)
		}
		return models.SaveFuelExport(c.Request.Context(), &input, reportId)
	}))
	reports.DELETE("/:id/fuel-exports/:groupUuid", deleteLineItem(models.DeleteFuelExport))

	reports.GET("/:id/notional-transfers", listLineItems(func(c *gin.Context, report *models.ComplianceReport) (any, error) {
		return models.EffectiveNotionalTransfers(c.Request.Context(), config.GetDB(), report)
	}))
	saveRoute(reports, "/:id/notional-transfers", saveLineItem(func(c *gin.Context, reportId int) (any, error) {
		var input models.NotionalTransfer
		if err := c.ShouldBindJSON(&input); err != nil {
			return nil, bindError(err)
		}
		return models.SaveNotionalTransfer(c.Request.Context(), &input, reportId)
	}))
	reports.DELETE("/:id/notional-transfers/:groupUuid", deleteLineItem(models.DeleteNotionalTransfer))

	reports.GET("/:id/other-uses", listLineItems(func(c *gin.Context, report *models.ComplianceReport) (any, error) {
		return models.EffectiveOtherUses(c.Request.Context(), config.GetDB(), report)
	}))
	saveRoute(reports, "/:id/other-uses", saveLineItem(func(c *gin.Context, reportId int) (any, error) {
		var input models.OtherUses
		if err := c.ShouldBindJSON(&input); err != nil {
			return nil, bindError(err)
		}
		return models.SaveOtherUses(c.Request.Context(), &input, reportId)
	}))
	reports.DELETE("/:id/other-uses/:groupUuid", deleteLineItem(models.DeleteOtherUses))

	reports.GET("/:id/allocation-agreements", listLineItems(func(c *gin.Context, report *models.ComplianceReport) (any, error) {
		return models.EffectiveAllocationAgreements(c.Request.Context(), config.GetDB(), report)
	}))
	saveRoute(reports, "/:id/allocation-agreements", saveLineItem(func(c *gin.Context, reportId int) (any, error) {
		var input models.AllocationAgreement
		if err := c.ShouldBindJSON(&input); err != nil {
			return nil, bindError(err)
		}
		return models.SaveAllocationAgreement(c.Request.Context(), &input, reportId)
	}))
	reports.DELETE("/:id/allocation-agreements/:groupUuid", deleteLineItem(models.DeleteAllocationAgreement))
}

type bindFailure struct{ err error }

func (b bindFailure) Error() string { return b.err.Error() }

func (b bindFailure) Unwrap() error { return b.err }

func bindError(err error) error { return bindFailure{err: err} }

func listLineItems(load func(c *gin.Context, report *models.ComplianceReport) (any, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		report, err := models.GetComplianceReport(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		rows, err := load(c, report)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": rows})
	}
}

func saveLineItem(save func(c *gin.Context, reportId int) (any, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		row, err := save(c, id)
		if err != nil {
			if _, isBind := err.(bindFailure); isBind {
				body := gin.H{"error": "invalid request"}
				if fields := utils.ProcessValidationErrors(err); len(fields) > 0 {
					body["fields"] = fields
				}
				c.JSON(http.StatusBadRequest, body)
				return
			}
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": row})
	}
}

func deleteLineItem(remove func(ctx context.Context, groupUuid string, reportId int) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		groupUuid := c.Param("groupUuid")
		if groupUuid == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "groupUuid is required"})
			return
		}
		if err := remove(c.Request.Context(), groupUuid, id); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
