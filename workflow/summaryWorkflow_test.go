package workflow

import (
	"testing"

	"github.com/bcgov/lcfs/models"
	"github.com/shopspring/decimal"
)

func TestLockedSaveMatches(t *testing.T) {
	persisted := &models.ComplianceReportSummary{
		Gasoline: models.RenewableLines{Line6Retained: 2_000, Line8Deferred: 0},
		Diesel:   models.RenewableLines{Line6Retained: 0, Line8Deferred: 500},
	}
	persisted.Gasoline.Line7PreviouslyRetained = 1_000

	// Echoing the stored values back is not a change.
	echo := SummarySaveInput{
		Retained:           map[string]int64{"gasoline": 2_000, "diesel": 0},
		Deferred:           map[string]int64{"diesel": 500},
		PreviouslyRetained: map[string]int64{"gasoline": 1_000},
	}
	if !lockedSaveMatches(echo, persisted) {
		t.Error("identical values should count as a no-op save")
	}

	// Omitting fields entirely is also a no-op.
	if !lockedSaveMatches(SummarySaveInput{}, persisted) {
		t.Error("an empty save should count as a no-op")
	}

	// Any departing value is a change.
	changed := SummarySaveInput{Retained: map[string]int64{"gasoline": 1_999}}
	if lockedSaveMatches(changed, persisted) {
		t.Error("a differing line 6 should not count as a no-op")
	}

	enabled := true
	if lockedSaveMatches(SummarySaveInput{OverrideEnabled: &enabled}, persisted) {
		t.Error("enabling the override on a summary without one is a change")
	}

	penalty := decimal.NewFromInt(100)
	persisted.OverrideEnabled = true
	persisted.OverrideRenewablePenalty = &penalty
	same := penalty
	if !lockedSaveMatches(SummarySaveInput{OverrideEnabled: &enabled, OverrideRenewablePenalty: &same}, persisted) {
		t.Error("matching override values should count as a no-op")
	}
	other := decimal.NewFromInt(101)
	if lockedSaveMatches(SummarySaveInput{OverrideRenewablePenalty: &other}, persisted) {
		t.Error("a differing override penalty should not count as a no-op")
	}
}
