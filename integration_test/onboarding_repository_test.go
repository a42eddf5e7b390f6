package integration_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"

	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/apperrors"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/model"
	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/storage"
)

// OnboardingRepositorySuite exercises the Postgres-backed repositories
// against a live database, covering the jsonb merge and monotonic
// progress semantics that sqlmock cannot prove.
type OnboardingRepositorySuite struct {
	BaseIntegrationSuite
	repo       *storage.PostgresRepo
	onboarding storage.OnboardingRepo
	tenants    storage.TenantRepo
}

func TestOnboardingRepositorySuite(t *testing.T) {
	suite.Run(t, new(OnboardingRepositorySuite))
}

func (s *OnboardingRepositorySuite) SetupSuite() {
	s.BaseIntegrationSuite.SetupSuite()

	repo, err := storage.NewPostgresRepo(s.PostgresDSN, true)
	s.Require().NoError(err, "failed to initialize postgres repository")
	s.repo = repo
	s.onboarding = storage.NewOnboardingRepoAdapter(repo)
	s.tenants = storage.NewTenantRepoAdapter(repo)
}

func (s *OnboardingRepositorySuite) TearDownSuite() {
	if s.repo != nil {
		_ = s.repo.Close(s.Ctx)
	}
	s.BaseIntegrationSuite.TearDownSuite()
}

func (s *OnboardingRepositorySuite) SetupTest() {
	s.Require().NoError(truncateOnboardingTables(s.Ctx, s.PostgresDSN))
}

func (s *OnboardingRepositorySuite) TestSaveAndFindRoundtrip() {
	record := model.NewOnboarding(&model.Onboarding{
		AccountID:  "acct_roundtrip",
		WorkflowID: generateUUID(),
		Progress:   0,
	})

	s.Require().NoError(s.onboarding.Save(s.Ctx, record))

	byAccount, err := s.onboarding.FindByAccountID(s.Ctx, record.AccountID)
	s.Require().NoError(err)
	s.Equal(record.WorkflowID, byAccount.WorkflowID)
	s.False(byAccount.IsLinked())

	byWorkflow, err := s.onboarding.FindByWorkflowID(s.Ctx, record.WorkflowID)
	s.Require().NoError(err)
	s.Equal(record.AccountID, byWorkflow.AccountID)

	cfg, err := byWorkflow.DecodeConfig()
	s.Require().NoError(err)
	s.Equal("wwc", cfg.Channel)
}

func (s *OnboardingRepositorySuite) TestFindUnknownAccountReturnsNotFound() {
	_, err := s.onboarding.FindByAccountID(s.Ctx, "acct_missing")
	s.Require().Error(err)
	s.True(apperrors.IsNotFoundError(err))
}

func (s *OnboardingRepositorySuite) TestDuplicateAccountRejected() {
	first := model.NewOnboarding(&model.Onboarding{AccountID: "acct_dup", WorkflowID: generateUUID()})
	s.Require().NoError(s.onboarding.Save(s.Ctx, first))

	second := model.NewOnboarding(&model.Onboarding{AccountID: "acct_dup", WorkflowID: generateUUID()})
	err := s.onboarding.Save(s.Ctx, second)
	s.Require().Error(err)
	s.True(apperrors.IsDuplicateError(err), "expected duplicate error, got: %v", err)
}

func (s *OnboardingRepositorySuite) TestUpdateFieldsTouchesOnlyGivenColumns() {
	record := model.NewOnboarding(&model.Onboarding{
		AccountID:  "acct_update",
		WorkflowID: generateUUID(),
		Progress:   30,
	})
	s.Require().NoError(s.onboarding.Save(s.Ctx, record))

	err := s.onboarding.UpdateFields(s.Ctx, record.AccountID, map[string]interface{}{
		"current_stage": model.StageCrawl,
	})
	s.Require().NoError(err)

	found, err := s.onboarding.FindByAccountID(s.Ctx, record.AccountID)
	s.Require().NoError(err)
	s.Equal(model.StageCrawl, found.CurrentStage)
	s.Equal(30, found.Progress, "untouched columns must survive a field update")
}

func (s *OnboardingRepositorySuite) TestUpdateFieldsUnknownAccount() {
	err := s.onboarding.UpdateFields(s.Ctx, "acct_ghost", map[string]interface{}{"progress": 10})
	s.Require().Error(err)
	s.True(apperrors.IsNotFoundError(err))
}

func (s *OnboardingRepositorySuite) TestLinkTenantOnlyLinksOnce() {
	record := model.NewOnboarding(&model.Onboarding{AccountID: "acct_link", WorkflowID: generateUUID()})
	s.Require().NoError(s.onboarding.Save(s.Ctx, record))

	s.Require().NoError(s.onboarding.LinkTenant(s.Ctx, record.AccountID, "tenant-first"))

	linked, err := s.onboarding.FindByAccountID(s.Ctx, record.AccountID)
	s.Require().NoError(err)
	s.Require().NotNil(linked.TenantID)
	s.Equal("tenant-first", *linked.TenantID)
	s.Equal(model.StageProjectConfig, linked.CurrentStage)
	s.Equal(100, linked.Progress)

	// A second link attempt must not steal the record.
	s.Require().NoError(s.onboarding.LinkTenant(s.Ctx, record.AccountID, "tenant-second"))

	still, err := s.onboarding.FindByAccountID(s.Ctx, record.AccountID)
	s.Require().NoError(err)
	s.Equal("tenant-first", *still.TenantID)
}

func (s *OnboardingRepositorySuite) TestFindPendingExcludesLinked() {
	record := model.NewOnboarding(&model.Onboarding{AccountID: "acct_pending", WorkflowID: generateUUID()})
	s.Require().NoError(s.onboarding.Save(s.Ctx, record))

	pending, err := s.onboarding.FindPendingByAccountID(s.Ctx, record.AccountID)
	s.Require().NoError(err)
	s.Equal(record.AccountID, pending.AccountID)

	s.Require().NoError(s.onboarding.LinkTenant(s.Ctx, record.AccountID, "tenant-x"))

	_, err = s.onboarding.FindPendingByAccountID(s.Ctx, record.AccountID)
	s.Require().Error(err)
	s.True(apperrors.IsNotFoundError(err))
}

func (s *OnboardingRepositorySuite) TestMergeConfigShallowMerge() {
	record := model.NewOnboarding(&model.Onboarding{
		AccountID:  "acct_merge",
		WorkflowID: generateUUID(),
		Config:     model.JSONBMap(map[string]interface{}{"channel": "wwc", "current_page": "/welcome"}),
	})
	s.Require().NoError(s.onboarding.Save(s.Ctx, record))

	err := s.onboarding.MergeConfig(s.Ctx, record.AccountID, map[string]interface{}{
		"current_page":  "/channels",
		"reason_failed": "",
		"channels": map[string]interface{}{
			"wwc": map[string]interface{}{"app_uuid": "app-123"},
		},
	})
	s.Require().NoError(err)

	found, err := s.onboarding.FindByAccountID(s.Ctx, record.AccountID)
	s.Require().NoError(err)
	cfg, err := found.DecodeConfig()
	s.Require().NoError(err)
	s.Equal("wwc", cfg.Channel, "untouched keys must survive the merge")
	s.Equal("/channels", cfg.CurrentPage)
	s.Equal("app-123", cfg.Channels["wwc"].AppUUID)

	// The merge is shallow: the patch value replaces the whole key.
	channel, err := executeQuery(s.Ctx, s.PostgresDSN,
		"SELECT config->>'channel' FROM onboardings WHERE account_id = $1", record.AccountID)
	s.Require().NoError(err)
	s.Equal("wwc", fmt.Sprintf("%s", channel))
}

func (s *OnboardingRepositorySuite) TestMergeConfigStartsFromEmptyObject() {
	record := model.NewOnboarding(&model.Onboarding{AccountID: "acct_merge_empty", WorkflowID: generateUUID()})
	record.Config = nil
	s.Require().NoError(s.onboarding.Save(s.Ctx, record))

	err := s.onboarding.MergeConfig(s.Ctx, record.AccountID, map[string]interface{}{"channel": "wpp-cloud"})
	s.Require().NoError(err)

	found, err := s.onboarding.FindByAccountID(s.Ctx, record.AccountID)
	s.Require().NoError(err)
	cfg, err := found.DecodeConfig()
	s.Require().NoError(err)
	s.Equal("wpp-cloud", cfg.Channel)
}

func (s *OnboardingRepositorySuite) TestRaiseProgressNeverMovesBack() {
	record := model.NewOnboarding(&model.Onboarding{AccountID: "acct_progress", WorkflowID: generateUUID(), Progress: 0})
	s.Require().NoError(s.onboarding.Save(s.Ctx, record))

	s.Require().NoError(s.onboarding.RaiseProgress(s.Ctx, record.AccountID, 40))
	s.Require().NoError(s.onboarding.RaiseProgress(s.Ctx, record.AccountID, 20))

	found, err := s.onboarding.FindByAccountID(s.Ctx, record.AccountID)
	s.Require().NoError(err)
	s.Equal(40, found.Progress, "a stale lower value must not regress progress")

	s.Require().NoError(s.onboarding.RaiseProgress(s.Ctx, record.AccountID, 75))
	found, err = s.onboarding.FindByAccountID(s.Ctx, record.AccountID)
	s.Require().NoError(err)
	s.Equal(75, found.Progress)
}

func (s *OnboardingRepositorySuite) TestTenantUpsertAndLookup() {
	tenant := model.NewTenant(&model.Tenant{
		TenantID:  "tenant-upsert",
		AccountID: "acct_tenant",
		Name:      "First Name",
		Language:  "en",
	})
	s.Require().NoError(s.tenants.Upsert(s.Ctx, *tenant))

	tenant.Name = "Renamed Store"
	tenant.Language = "pt-br"
	s.Require().NoError(s.tenants.Upsert(s.Ctx, *tenant))

	found, err := s.tenants.FindByTenantID(s.Ctx, "tenant-upsert")
	s.Require().NoError(err)
	s.Equal("Renamed Store", found.Name)
	s.Equal("pt-br", found.Language)

	exists, err := verifyRecordExists(s.Ctx, s.PostgresDSN, "tenants", "tenant_id = $1", "tenant-upsert")
	s.Require().NoError(err)
	s.True(exists)

	count, err := executeQuery(s.Ctx, s.PostgresDSN,
		"SELECT COUNT(*) FROM tenants WHERE tenant_id = $1", "tenant-upsert")
	s.Require().NoError(err)
	s.EqualValues(1, count, "upsert must not create a second row")

	byAccount, err := s.tenants.FindByAccountID(s.Ctx, "acct_tenant")
	s.Require().NoError(err)
	s.Len(byAccount, 1)
}
