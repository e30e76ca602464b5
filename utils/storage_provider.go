package utils

import (
	"os"
	"strings"
)

const (
	StorageProviderGCS  = "gcs"
	StorageProviderNone = "none"
)

// GetStorageProvider reports where retained workbooks live. "none" disables
// retention and the signed-upload path (local development).
func GetStorageProvider() string {
	provider := strings.TrimSpace(strings.ToLower(os.Getenv("STORAGE_PROVIDER")))
	if provider == "" {
		return StorageProviderGCS
	}
	return provider
}
