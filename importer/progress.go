package importer

import (
	"os"
	"strconv"
	"time"

	"github.com/bcgov/lcfs/config"
)

const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// RowError carries the per-field validation failures of one rejected row.
// Row is the 1-based workbook row number so the supplier can find it.
type RowError struct {
	Sheet  string            `json:"sheet"`
	Row    int               `json:"row"`
	Fields map[string]string `json:"fields"`
}

// JobProgress is the record published under jobs/{job_id}. A poller reads
// it until Status reaches completed or failed.
type JobProgress struct {
	JobId          string     `json:"job_id"`
	ReportId       int        `json:"report_id"`
	Status         string     `json:"status"`
	Progress       int        `json:"progress"`
	Created        int        `json:"created"`
	Rejected       int        `json:"rejected"`
	Errors         []string   `json:"errors"`
	RejectedRows   []RowError `json:"rejected_rows"`
	ImportedRowIds []int      `json:"imported_row_ids"`
	StartedAt      time.Time  `json:"started_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func progressKey(jobId string) string {
	return "jobs/" + jobId
}

// progressTTL bounds how long a finished job's record survives.
//
// Set via env:
// - IMPORT_PROGRESS_TTL_HOURS (default 24)
func progressTTL() time.Duration {
	v, err := strconv.Atoi(os.Getenv("IMPORT_PROGRESS_TTL_HOURS"))
	if err != nil || v <= 0 {
		v = 24
	}
	return time.Duration(v) * time.Hour
}

func saveProgress(p *JobProgress) error {
	p.UpdatedAt = time.Now().UTC()
	return config.SetRedisObject(progressKey(p.JobId), p, progressTTL())
}

// GetJobProgress returns the progress record for a job, or found=false
// when the job is unknown or its record has expired.
func GetJobProgress(jobId string) (*JobProgress, bool, error) {
	var p JobProgress
	found, err := config.GetRedisObject(progressKey(jobId), &p)
	if err != nil || !found {
		return nil, false, err
	}
	return &p, true, nil
}
