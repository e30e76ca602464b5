package importer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bcgov/lcfs/config"
	"github.com/bcgov/lcfs/models"
	"github.com/bcgov/lcfs/utils"
	"github.com/bsm/redislock"
	"github.com/google/uuid"
)

const xlsxMimeType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var allowedMimeTypes = map[string]bool{
	xlsxMimeType: true,
}

// maxImportBytes bounds an uploaded workbook.
//
// Set via env:
// - IMPORT_MAX_BYTES (default 10 MiB)
func maxImportBytes() int64 {
	v, err := strconv.ParseInt(os.Getenv("IMPORT_MAX_BYTES"), 10, 64)
	if err != nil || v <= 0 {
		return 10 * 1024 * 1024
	}
	return v
}

// importSlots bounds concurrent import jobs. Parallelism exists across
// jobs; each job is single-writer.
var importSlots = make(chan struct{}, importWorkerCount())

func importWorkerCount() int {
	v, err := strconv.Atoi(os.Getenv("IMPORT_WORKERS"))
	if err != nil || v <= 0 {
		return 4
	}
	return v
}

type ImportRequest struct {
	ReportId int
	FileName string
	MimeType string
	Data     []byte
}

// StartImport validates the upload, retains the workbook, and schedules an
// asynchronous job. The returned job id keys the progress record.
func StartImport(ctx context.Context, req ImportRequest) (string, error) {
	if len(req.Data) == 0 {
		return "", utils.NewValidationError("empty upload", map[string]string{"file": "required"})
	}
	if int64(len(req.Data)) > maxImportBytes() {
		return "", utils.NewValidationError("file too large", map[string]string{
			"file": fmt.Sprintf("exceeds %d byte limit", maxImportBytes()),
		})
	}
	if !strings.HasSuffix(strings.ToLower(req.FileName), ".xlsx") {
		return "", utils.NewValidationError("invalid file type", map[string]string{"file": "only .xlsx files are allowed"})
	}
	if req.MimeType != "" && !allowedMimeTypes[req.MimeType] {
		return "", utils.NewValidationError("invalid file type", map[string]string{"file": "unsupported content type"})
	}

	report, err := models.GetComplianceReport(ctx, req.ReportId)
	if err != nil {
		return "", err
	}
	if !report.Editable() {
		return "", utils.NewDomainError("line items can only be imported while the report is in draft", map[string]string{"status": string(report.Status)})
	}

	if config.VirusScanEnabled() {
		if err := scanBytes(ctx, req.Data); err != nil {
			return "", err
		}
	}

	jobId := uuid.NewString()
	retainWorkbook(ctx, report, jobId, req.Data)

	progress := &JobProgress{
		JobId:          jobId,
		ReportId:       report.ID,
		Status:         JobStatusPending,
		Errors:         []string{},
		RejectedRows:   []RowError{},
		ImportedRowIds: []int{},
		StartedAt:      time.Now().UTC(),
	}
	if err := saveProgress(progress); err != nil {
		return "", err
	}

	jobCtx := detachedContext(ctx)
	go runImportJob(jobCtx, jobId, report.ID, req.Data)
	return jobId, nil
}

// retainWorkbook keeps the original upload for audit. Retention is best
// effort: a storage outage must not block the import.
func retainWorkbook(ctx context.Context, report *models.ComplianceReport, jobId string, data []byte) {
	if utils.GetStorageProvider() != utils.StorageProviderGCS {
		return
	}
	objectName := fmt.Sprintf("imports/report_%d/%s.xlsx", report.ID, jobId)
	if err := utils.SaveObjectToGCS(ctx, objectName, xlsxMimeType, data); err != nil {
		config.LogError(config.GetLogger(), "importer", "retainWorkbook", "workbook retention failed", objectName, err)
	}
}

// detachedContext carries the caller's identity into the worker goroutine
// without inheriting the request's cancellation.
func detachedContext(ctx context.Context) context.Context {
	out := context.Background()
	out = utils.SetUserIdInContext(out, utils.GetUserIdFromContext(ctx))
	out = utils.SetUsernameInContext(out, utils.GetUsernameFromContext(ctx))
	out = utils.SetUserNameInContext(out, utils.GetUserNameFromContext(ctx))
	out = utils.SetOrganizationIdInContext(out, utils.GetOrganizationIdFromContext(ctx))
	out = utils.SetIsGovernmentInContext(out, utils.GetIsGovernmentFromContext(ctx))
	out = utils.SetRolesInContext(out, utils.GetRolesFromContext(ctx))
	out = utils.SetSkipOrgScopeInContext(out, utils.GetSkipOrgScopeFromContext(ctx))
	return utils.SetCorrelationIdInContext(out, utils.GetCorrelationIdFromContext(ctx))
}

func runImportJob(ctx context.Context, jobId string, reportId int, data []byte) {
	logger := config.GetLogger()

	importSlots <- struct{}{}
	defer func() { <-importSlots }()

	jobTimeout := time.Duration(config.ImportJobTimeoutMinutes()) * time.Minute
	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	progress := &JobProgress{
		JobId:          jobId,
		ReportId:       reportId,
		Status:         JobStatusProcessing,
		Errors:         []string{},
		RejectedRows:   []RowError{},
		ImportedRowIds: []int{},
		StartedAt:      time.Now().UTC(),
	}

	defer func() {
		if r := recover(); r != nil {
			progress.Status = JobStatusFailed
			progress.Errors = append(progress.Errors, fmt.Sprintf("import terminated: %v", r))
			_ = saveProgress(progress)
			config.LogError(logger, "importer", "runImportJob", "panic during import", jobId, fmt.Errorf("%v", r))
		}
	}()

	// One writer per job even if the same job id is scheduled twice.
	locker := config.GetRedisLock()
	if locker != nil {
		lock, err := locker.Obtain(ctx, "import:"+jobId, jobTimeout, nil)
		if err == redislock.ErrNotObtained {
			return
		}
		if err == nil {
			defer func() { _ = lock.Release(ctx) }()
		}
	}
	_ = saveProgress(progress)

	parsed, err := parseWorkbook(data)
	if err != nil {
		progress.Status = JobStatusFailed
		progress.Errors = append(progress.Errors, err.Error())
		_ = saveProgress(progress)
		return
	}
	wl, err := loadWhitelists(ctx)
	if err != nil {
		progress.Status = JobStatusFailed
		progress.Errors = append(progress.Errors, "could not load reference data: "+err.Error())
		_ = saveProgress(progress)
		return
	}

	rowTimeout := time.Duration(config.ImportRowTimeoutSeconds()) * time.Second
	processed := 0

	flush := func(force bool) {
		if parsed.TotalRows > 0 {
			progress.Progress = processed * 100 / parsed.TotalRows
		}
		// Bound write amplification: at most one progress write per 10 rows.
		if force || processed%10 == 0 {
			_ = saveProgress(progress)
		}
	}

	for _, row := range parsed.FuelSupplies {
		if ctx.Err() != nil {
			failTimeout(progress, ctx.Err())
			return
		}
		input, fields := wl.toFuelSupply(row)
		if fields != nil {
			reject(progress, SheetFuelSupply, row.RowNum, fields)
		} else {
			rowCtx, rowCancel := context.WithTimeout(ctx, rowTimeout)
			saved, err := models.SaveFuelSupply(rowCtx, input, reportId)
			rowCancel()
			if err != nil {
				reject(progress, SheetFuelSupply, row.RowNum, rejectFields(err))
			} else {
				progress.Created++
				progress.ImportedRowIds = append(progress.ImportedRowIds, saved.ID)
			}
		}
		processed++
		flush(false)
	}

	for _, row := range parsed.Allocations {
		if ctx.Err() != nil {
			failTimeout(progress, ctx.Err())
			return
		}
		input, fields := wl.toAllocationAgreement(row)
		if fields != nil {
			reject(progress, SheetAllocationAgreements, row.RowNum, fields)
		} else {
			rowCtx, rowCancel := context.WithTimeout(ctx, rowTimeout)
			saved, err := models.SaveAllocationAgreement(rowCtx, input, reportId)
			rowCancel()
			if err != nil {
				reject(progress, SheetAllocationAgreements, row.RowNum, rejectFields(err))
			} else {
				progress.Created++
				progress.ImportedRowIds = append(progress.ImportedRowIds, saved.ID)
			}
		}
		processed++
		flush(false)
	}

	progress.Status = JobStatusCompleted
	progress.Progress = 100
	flush(true)
}

func reject(progress *JobProgress, sheet string, rowNum int, fields map[string]string) {
	progress.Rejected++
	progress.RejectedRows = append(progress.RejectedRows, RowError{
		Sheet:  sheet,
		Row:    rowNum,
		Fields: fields,
	})
}

// rejectFields shapes a save failure as the per-field reject record; errors
// without field detail fall under a single "row" key.
func rejectFields(err error) map[string]string {
	if fields := utils.ErrorFields(err); len(fields) > 0 {
		return fields
	}
	return map[string]string{"row": err.Error()}
}

func failTimeout(progress *JobProgress, cause error) {
	if errors.Is(cause, context.DeadlineExceeded) {
		progress.Errors = append(progress.Errors, "import timed out")
	} else {
		progress.Errors = append(progress.Errors, cause.Error())
	}
	progress.Status = JobStatusFailed
	_ = saveProgress(progress)
}
