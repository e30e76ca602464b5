package main

import (
	"io"
	"net/http"

	"github.com/bcgov/lcfs/config"
	"github.com/bcgov/lcfs/importer"
	"github.com/gin-gonic/gin"
)

// startImportHandler accepts a multipart upload and kicks off the async
// workbook import. The response carries the job id to poll.
func startImportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		header, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
			return
		}
		file, err := header.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "could not read upload"})
			return
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "could not read upload"})
			return
		}
		jobId, err := importer.StartImport(c.Request.Context(), importer.ImportRequest{
			ReportId: id,
			FileName: header.Filename,
			MimeType: header.Header.Get("Content-Type"),
			Data:     data,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"data": gin.H{"job_id": jobId}})
	}
}

// signImportUploadHandler hands out a signed PUT URL for workbooks too large
// for the multipart endpoint.
func signImportUploadHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		signed, err := importer.SignImportUpload(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": signed})
	}
}

type storageImportRequest struct {
	ObjectKey string `json:"object_key" binding:"required"`
	FileName  string `json:"file_name"`
}

// importFromStorageHandler schedules an import for a workbook staged through
// a signed upload.
func importFromStorageHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		var req storageImportRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "object_key is required"})
			return
		}
		jobId, err := importer.StartImportFromStorage(c.Request.Context(), id, req.ObjectKey, req.FileName)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"data": gin.H{"job_id": jobId}})
	}
}

func jobProgressHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		jobId := c.Param("id")
		progress, found, err := importer.GetJobProgress(jobId)
		if err != nil {
			respondError(c, err)
			return
		}
		if !found {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": progress})
	}
}

func exportReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireSession(c) {
			return
		}
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		workbook, fileName, err := importer.ExportReportWorkbook(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", `attachment; filename="`+fileName+`"`)
		if err := workbook.Write(c.Writer); err != nil {
			// headers are already out; nothing left to do but log
			config.LogError(config.GetLogger(), "main", "exportReportHandler", "workbook stream failed", fileName, err)
		}
	}
}
