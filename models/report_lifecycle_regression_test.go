package models_test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/bcgov/lcfs/config"
	"github.com/bcgov/lcfs/models"
	"github.com/bcgov/lcfs/utils"
	"github.com/bcgov/lcfs/workflow"
	"github.com/shopspring/decimal"
)

// Regression: the full report lifecycle against a real database.
// Submission must freeze the summary and reserve the unit delta; assessment
// must finalize the reservation into an Adjustment; a supplemental must
// release the prior version's reservation and inherit its effective rows.
//
// Run (requires Docker): INTEGRATION_TESTS=1 go test ./models -run ReportLifecycle -v
func TestReportLifecycle_SubmitAssessSupplemental(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := context.Background()

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "lcfs_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()
	db := config.GetDB()

	seedCtx := utils.SetUsernameInContext(ctx, "seed")
	seedCtx = utils.SetUserNameInContext(seedCtx, "Seed")
	seedCtx = utils.SetIsGovernmentInContext(seedCtx, true)
	seedCtx = utils.SetSkipOrgScopeInContext(seedCtx, true)

	org, err := models.CreateOrganization(seedCtx, &models.NewOrganization{
		Name:             "Lifecycle Fuels Ltd.",
		OrganizationCode: "LFC",
	})
	if err != nil {
		t.Fatalf("CreateOrganization: %v", err)
	}

	period := seedPeriodAndReferenceData(t, seedCtx)

	// No 2023 period is seeded, so the lookup reports "none" rather
	// than an error.
	prevPeriod, err := models.PreviousCompliancePeriod(ctx, period)
	if err != nil {
		t.Fatalf("PreviousCompliancePeriod: %v", err)
	}
	if prevPeriod != nil {
		t.Fatalf("unexpected prior period: %+v", prevPeriod)
	}

	supplierCtx := utils.SetUsernameInContext(ctx, "supplier@lfc")
	supplierCtx = utils.SetUserNameInContext(supplierCtx, "Supplier")
	supplierCtx = utils.SetOrganizationIdInContext(supplierCtx, org.ID)

	govCtx := utils.SetUsernameInContext(ctx, "director@gov")
	govCtx = utils.SetUserNameInContext(govCtx, "Director")
	govCtx = utils.SetIsGovernmentInContext(govCtx, true)
	govCtx = utils.SetSkipOrgScopeInContext(govCtx, true)
	govCtx = utils.SetRolesInContext(govCtx, []string{
		models.RoleAnalyst, models.RoleComplianceManager, models.RoleDirector,
	})

	report, err := models.CreateComplianceReport(supplierCtx, models.NewComplianceReport{
		CompliancePeriodId: period.ID,
	})
	if err != nil {
		t.Fatalf("CreateComplianceReport: %v", err)
	}
	if report.Version != 0 || report.Status != models.ReportStatusDraft {
		t.Fatalf("unexpected original report: %+v", report)
	}

	// Ethanol's default carbon intensity sits below the period target, so the
	// row earns credits and the submission reserves a positive delta. (A debit
	// against a zero-balance organization would clamp the reservation away.)
	var ethanol models.FuelType
	if err := db.Where("name = ?", "Ethanol").Take(&ethanol).Error; err != nil {
		t.Fatalf("fetch ethanol fuel type: %v", err)
	}
	var gasolineCat models.FuelCategory
	if err := db.Where("category = ?", models.FuelCategoryGasoline).Take(&gasolineCat).Error; err != nil {
		t.Fatalf("fetch gasoline category: %v", err)
	}
	var provision models.ProvisionOfTheAct
	if err := db.Take(&provision).Error; err != nil {
		t.Fatalf("fetch provision: %v", err)
	}

	row, err := models.SaveFuelSupply(supplierCtx, &models.FuelSupply{
		FuelTypeId:          ethanol.ID,
		FuelCategoryId:      gasolineCat.ID,
		ProvisionOfTheActId: provision.ID,
		Quantity:            decimal.NewFromInt(1_000_000),
	}, report.ID)
	if err != nil {
		t.Fatalf("SaveFuelSupply: %v", err)
	}
	if row.GroupUuid == "" || row.Version != 0 {
		t.Fatalf("unexpected versioned fields on new row: %+v", row.VersionedFields)
	}

	// Submit: summary locks and the unit delta is reserved.
	submitted, err := workflow.SubmitReport(supplierCtx, report.ID)
	if err != nil {
		t.Fatalf("SubmitReport: %v", err)
	}
	if submitted.Status != models.ReportStatusSubmitted {
		t.Fatalf("status after submit = %q", submitted.Status)
	}
	summary, err := models.GetSummaryForReport(ctx, db, report.ID)
	if err != nil || summary == nil {
		t.Fatalf("summary after submit: %v %v", summary, err)
	}
	if !summary.IsLocked {
		t.Error("summary should be locked after submission")
	}

	// The status notification commits with the transition itself.
	var outboxRows int64
	err = db.Model(&models.NotificationRecord{}).
		Where("type = ? AND reference_id = ?", "report-status", report.ID).
		Count(&outboxRows).Error
	if err != nil {
		t.Fatalf("count outbox rows: %v", err)
	}
	if outboxRows == 0 {
		t.Error("expected a report-status outbox row after submission")
	}
	reserved, err := models.ReservedUnitsForReference(ctx, db, models.TxRefComplianceReport, report.ID)
	if err != nil {
		t.Fatalf("ReservedUnitsForReference: %v", err)
	}
	if reserved <= 0 {
		t.Fatalf("expected a positive reserved delta, got %d", reserved)
	}
	if reserved != summary.LowCarbon.Line20BalanceChange {
		t.Errorf("reserved units = %d, want line 20 = %d", reserved, summary.LowCarbon.Line20BalanceChange)
	}

	// A locked summary may not change.
	if _, err := workflow.SaveReportSummary(supplierCtx, report.ID, workflow.SummarySaveInput{}); err == nil {
		t.Error("expected saving a locked summary to fail")
	}

	// Government walks the report to assessment.
	if _, err := workflow.RecommendReportByAnalyst(govCtx, report.ID); err != nil {
		t.Fatalf("RecommendReportByAnalyst: %v", err)
	}
	if _, err := workflow.RecommendReportByManager(govCtx, report.ID); err != nil {
		t.Fatalf("RecommendReportByManager: %v", err)
	}
	assessed, err := workflow.AssessReport(govCtx, report.ID, "meets program requirements")
	if err != nil {
		t.Fatalf("AssessReport: %v", err)
	}
	if assessed.Status != models.ReportStatusAssessed {
		t.Fatalf("status after assess = %q", assessed.Status)
	}

	// Assessment finalizes: no Reserved entries remain for the report, and
	// every surviving ledger entry is an Adjustment.
	reserved, err = models.ReservedUnitsForReference(ctx, db, models.TxRefComplianceReport, report.ID)
	if err != nil {
		t.Fatalf("ReservedUnitsForReference after assess: %v", err)
	}
	if reserved != 0 {
		t.Errorf("reserved units after assessment = %d, want 0", reserved)
	}

	// Supplemental: next version opens as a draft, the assessed version's
	// reservation-era entries survive as Adjustments, and the effective row
	// set carries over.
	supplemental, err := workflow.CreateSupplementalReport(supplierCtx, report.ID, "corrections")
	if err != nil {
		t.Fatalf("CreateSupplementalReport: %v", err)
	}
	if supplemental.Version != 1 || supplemental.Status != models.ReportStatusDraft {
		t.Fatalf("unexpected supplemental: %+v", supplemental)
	}
	if supplemental.GroupUuid != report.GroupUuid {
		t.Error("supplemental must stay in the original chain")
	}

	effective, err := models.EffectiveFuelSupplies(ctx, db, supplemental)
	if err != nil {
		t.Fatalf("EffectiveFuelSupplies: %v", err)
	}
	if len(effective) != 1 || effective[0].GroupUuid != row.GroupUuid {
		t.Fatalf("supplemental should inherit the effective rows, got %d", len(effective))
	}

	// Deleting the in-progress supplemental reinstates the prior version's
	// standing and removes the draft.
	if err := workflow.DeleteReportVersion(supplierCtx, supplemental.ID); err != nil {
		t.Fatalf("DeleteReportVersion: %v", err)
	}
	chain, err := models.GetReportChain(ctx, db, report.GroupUuid)
	if err != nil {
		t.Fatalf("GetReportChain: %v", err)
	}
	if len(chain) != 1 {
		t.Fatalf("chain length after delete = %d, want 1", len(chain))
	}
}

func seedPeriodAndReferenceData(t *testing.T, ctx context.Context) *models.CompliancePeriod {
	t.Helper()
	db := config.GetDB()

	period := models.CompliancePeriod{
		Description:          "2024",
		EffectiveDate:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		ExpirationDate:       time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC),
		RenewablePenaltyRate: decimal.NewFromFloat(0.45),
		LowCarbonPenaltyRate: decimal.NewFromInt(600),
	}
	if err := db.WithContext(ctx).Create(&period).Error; err != nil {
		t.Fatalf("seed period: %v", err)
	}

	categories := []models.FuelCategory{
		{Category: models.FuelCategoryGasoline},
		{Category: models.FuelCategoryDiesel},
		{Category: models.FuelCategoryJetFuel},
	}
	for i := range categories {
		if err := db.WithContext(ctx).Create(&categories[i]).Error; err != nil {
			t.Fatalf("seed category: %v", err)
		}
	}

	fuelTypes := []models.FuelType{
		{Name: "Gasoline", FossilDerived: true, EnergyDensity: decimal.NewFromFloat(34.69), DefaultCarbonIntensity: decimal.NewFromFloat(93.67), Units: "L"},
		{Name: "Ethanol", Renewable: true, EnergyDensity: decimal.NewFromFloat(23.58), DefaultCarbonIntensity: decimal.NewFromFloat(53.52), Units: "L"},
	}
	for i := range fuelTypes {
		if err := db.WithContext(ctx).Create(&fuelTypes[i]).Error; err != nil {
			t.Fatalf("seed fuel type: %v", err)
		}
	}

	provision := models.ProvisionOfTheAct{Name: "Default carbon intensity"}
	if err := db.WithContext(ctx).Create(&provision).Error; err != nil {
		t.Fatalf("seed provision: %v", err)
	}

	for _, c := range categories {
		tci := models.TargetCarbonIntensity{
			CompliancePeriodId:    period.ID,
			FuelCategoryId:        c.ID,
			TargetCarbonIntensity: decimal.NewFromFloat(88.50),
		}
		if err := db.WithContext(ctx).Create(&tci).Error; err != nil {
			t.Fatalf("seed tci: %v", err)
		}
	}
	return &period
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("lcfs-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("lcfs-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=lcfs_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	// Example: "127.0.0.1:49154\n"
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
