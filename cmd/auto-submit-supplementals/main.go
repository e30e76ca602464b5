// auto-submit-supplementals runs one sweep of the stale-supplemental
// auto-submit and exits. Intended for an external cron; the API process
// runs the same sweep on its own interval.
//
// Usage:
//   DB_* and REDIS_* env as the server: go run ./cmd/auto-submit-supplementals
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/bcgov/lcfs/config"
	"github.com/bcgov/lcfs/workflow"
)

func main() {
	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}
	config.ConnectRedisWithRetry()

	submitted, err := workflow.AutoSubmitStaleSupplementals(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "auto-submit sweep failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("auto-submitted %d supplemental report(s)\n", submitted)
}
