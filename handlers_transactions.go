package main

import (
	"net/http"

	"github.com/bcgov/lcfs/config"
	"github.com/bcgov/lcfs/models"
	"github.com/gin-gonic/gin"
)

func createTransferHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		var input models.Transfer
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
			return
		}
		transfer, err := models.CreateTransfer(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"data": transfer})
	}
}

func getTransferHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		transfer, err := models.GetTransfer(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": transfer})
	}
}

func listTransfersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		transfers, err := models.ListTransfers(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": transfers})
	}
}

// transferTransition wraps the transfer lifecycle operations that share the
// (ctx, id) -> (*Transfer, error) shape.
func transferTransition(government bool, apply func(ctx *gin.Context, id int) (*models.Transfer, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		if government {
			if !requireGovernment(c) {
				return
			}
		} else if !requireSession(c) {
			return
		}
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		transfer, err := apply(c, id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": transfer})
	}
}

func createInitiativeAgreementHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireGovernment(c) {
			return
		}
		var input models.InitiativeAgreement
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
			return
		}
		agreement, err := models.CreateInitiativeAgreement(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"data": agreement})
	}
}

func getInitiativeAgreementHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		agreement, err := models.GetInitiativeAgreement(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": agreement})
	}
}

func transitionInitiativeAgreementHandler(status models.AgreementStatus) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireGovernment(c) {
			return
		}
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		agreement, err := models.TransitionInitiativeAgreement(c.Request.Context(), id, status)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": agreement})
	}
}

func createAdminAdjustmentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireGovernment(c) {
			return
		}
		var input models.AdminAdjustment
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
			return
		}
		adjustment, err := models.CreateAdminAdjustment(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"data": adjustment})
	}
}

func getAdminAdjustmentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		adjustment, err := models.GetAdminAdjustment(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": adjustment})
	}
}

func transitionAdminAdjustmentHandler(status models.AgreementStatus) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireGovernment(c) {
			return
		}
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		adjustment, err := models.TransitionAdminAdjustment(c.Request.Context(), id, status)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": adjustment})
	}
}

func organizationBalanceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		ctx := c.Request.Context()
		org, err := models.GetOrganization(ctx, id)
		if err != nil {
			respondError(c, err)
			return
		}
		balance, err := models.OrganizationBalance(ctx, config.GetDB(), org.ID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": gin.H{
			"organization_id":   org.ID,
			"name":              org.Name,
			"available_balance": balance,
		}})
	}
}

func listOrganizationTransactionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		transactions, err := models.ListOrganizationTransactions(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": transactions})
	}
}
