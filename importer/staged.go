package importer

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/bcgov/lcfs/config"
	"github.com/bcgov/lcfs/models"
	"github.com/bcgov/lcfs/utils"
	"github.com/google/uuid"
)

// signedUploadTTL bounds how long a staged-upload URL stays valid.
const signedUploadTTL = 15 * time.Minute

func stagingObjectKey(reportId int, uploadId string) string {
	return fmt.Sprintf("imports/report_%d/incoming/%s.xlsx", reportId, uploadId)
}

// SignImportUpload issues a short-lived signed PUT URL so large workbooks
// bypass the API body limit and land directly in object storage. The caller
// then schedules the import with StartImportFromStorage.
func SignImportUpload(ctx context.Context, reportId int) (*utils.SignedUpload, error) {
	report, err := models.GetComplianceReport(ctx, reportId)
	if err != nil {
		return nil, err
	}
	if !report.Editable() {
		return nil, utils.NewDomainError("line items can only be imported while the report is in draft", map[string]string{"status": string(report.Status)})
	}
	return utils.SignUpload(ctx, stagingObjectKey(report.ID, uuid.NewString()), xlsxMimeType, signedUploadTTL)
}

// StartImportFromStorage imports a workbook previously staged through a
// signed upload. The key must belong to the report's staging prefix; the
// staged object is removed once the job is scheduled.
func StartImportFromStorage(ctx context.Context, reportId int, objectKey, fileName string) (string, error) {
	// Clients may echo back the access URL instead of the bare key.
	objectKey = utils.ExtractObjectKeyFromURL(objectKey)

	prefix := fmt.Sprintf("imports/report_%d/incoming/", reportId)
	if !strings.HasPrefix(objectKey, prefix) || strings.Contains(objectKey, "..") {
		return "", utils.NewValidationError("invalid object key", map[string]string{"object_key": "not a staged upload for this report"})
	}

	data, err := utils.ReadObjectFromGCS(ctx, objectKey)
	if err != nil {
		return "", utils.NewValidationError("staged upload not found", map[string]string{"object_key": "object is missing or unreadable"})
	}

	if fileName == "" {
		fileName = path.Base(objectKey)
	}
	jobId, err := StartImport(ctx, ImportRequest{
		ReportId: reportId,
		FileName: fileName,
		MimeType: xlsxMimeType,
		Data:     data,
	})
	if err != nil {
		return "", err
	}

	// StartImport retains its own audit copy; the staging object is scratch.
	if err := utils.DeleteObjectFromGCS(ctx, objectKey); err != nil {
		config.LogError(config.GetLogger(), "importer", "StartImportFromStorage", "staged object cleanup failed", objectKey, err)
	}
	return jobId, nil
}
