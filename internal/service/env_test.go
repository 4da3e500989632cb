package service_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"bookswap/internal/config"
	"bookswap/internal/infrastructure/lock"
	"bookswap/internal/logger"
	"bookswap/internal/model"
	"bookswap/internal/service"
	"bookswap/internal/testutil"
	"bookswap/internal/verification"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testEnv struct {
	db         *gorm.DB
	cfg        *config.Config
	ledger     *service.LedgerService
	packages   *service.PackageCatalog
	settings   *service.SettingsStore
	valuation  *service.ValuationService
	settlement *service.SettlementService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.NewDB(t)
	cfg := config.Default()
	cfg.Verification.Mock = true
	log := logger.Discard()

	ledger := service.NewLedgerService(db, lock.NewLocalLocker(), cfg, log)
	settings := service.NewSettingsStore(db, log)
	require.NoError(t, settings.Load(context.Background()))
	valuation := service.NewValuationService(db, settings)

	return &testEnv{
		db:         db,
		cfg:        cfg,
		ledger:     ledger,
		packages:   service.NewPackageCatalog(db, time.Minute),
		settings:   settings,
		valuation:  valuation,
		settlement: service.NewSettlementService(db, ledger, valuation, log),
	}
}

func (e *testEnv) topUp(verifiers *verification.Registry) *service.TopUpService {
	if verifiers == nil {
		verifiers = verification.NewRegistry(e.cfg.Verification, logger.Discard())
	}
	return service.NewTopUpService(e.db, e.ledger, verifiers, e.packages, e.cfg, logger.Discard())
}

func (e *testEnv) fund(t *testing.T, userID int64, amount string) {
	t.Helper()
	_, err := e.ledger.Credit(context.Background(), nil, service.EntryRequest{
		UserID:      userID,
		Amount:      dec(amount),
		Kind:        model.TransactionKindTopUp,
		Description: "seed",
	})
	require.NoError(t, err)
}

func (e *testEnv) balance(t *testing.T, userID int64) decimal.Decimal {
	t.Helper()
	w, err := e.ledger.GetOrCreateWallet(context.Background(), userID)
	require.NoError(t, err)
	return w.Balance
}

func (e *testEnv) transactions(t *testing.T, userID int64) []*model.Transaction {
	t.Helper()
	var list []*model.Transaction
	require.NoError(t, e.db.Where("user_id = ?", userID).Order("id ASC").Find(&list).Error)
	return list
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s", want, got.String())
}

// stubVerifier 返回固定结果并记录调用次数
type stubVerifier struct {
	provider string
	outcome  verification.Outcome
	calls    atomic.Int32
}

func (s *stubVerifier) Provider() string { return s.provider }

func (s *stubVerifier) Verify(_ context.Context, req verification.Request) verification.Outcome {
	s.calls.Add(1)
	out := s.outcome
	out.Provider = s.provider
	if out.ProviderReference == "" {
		out.ProviderReference = verification.NormalizeReference(req.Reference)
	}
	return out
}

func paidStub(amount string) *stubVerifier {
	return &stubVerifier{
		provider: model.ProviderTelebirr,
		outcome: verification.Outcome{
			Success:   true,
			PayerName: "Abebe Kebede",
			Amount:    dec(amount),
			Status:    "Completed",
		},
	}
}
