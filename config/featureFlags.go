package config

import (
	"os"
	"strconv"
	"strings"
)

func envBool(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

// VirusScanEnabled gates ClamAV scanning of uploaded workbooks.
//
// Set via env:
// - CLAMAV_ENABLED=true
// - CLAMAV_HOST / CLAMAV_PORT to point at the clamd service
func VirusScanEnabled() bool {
	return envBool("CLAMAV_ENABLED")
}

// AutoSubmitAgeDays is the idle age after which a supplier-initiated draft
// supplemental report is submitted automatically by the scheduled job.
//
// Set via env:
// - AUTO_SUBMIT_AGE_DAYS (default 30)
func AutoSubmitAgeDays() int {
	v := strings.TrimSpace(os.Getenv("AUTO_SUBMIT_AGE_DAYS"))
	if v == "" {
		return 30
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 30
	}
	return n
}

// ImportRowTimeoutSeconds bounds a single row write during Excel import.
//
// Set via env:
// - IMPORT_ROW_TIMEOUT_SECONDS (default 10)
func ImportRowTimeoutSeconds() int {
	v := strings.TrimSpace(os.Getenv("IMPORT_ROW_TIMEOUT_SECONDS"))
	if v == "" {
		return 10
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 10
	}
	return n
}

// ImportJobTimeoutMinutes is the wall-clock bound for one import job.
//
// Set via env:
// - IMPORT_JOB_TIMEOUT_MINUTES (default 30)
func ImportJobTimeoutMinutes() int {
	v := strings.TrimSpace(os.Getenv("IMPORT_JOB_TIMEOUT_MINUTES"))
	if v == "" {
		return 30
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 30
	}
	return n
}
