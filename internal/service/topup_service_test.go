package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"bookswap/internal/model"
	"bookswap/internal/service"
	"bookswap/internal/verification"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopUpMockTelebirrEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	svc := env.topUp(nil)
	ctx := context.Background()
	const uid = 21

	res, err := svc.VerifyAndCredit(ctx, service.TopUpRequest{
		UserID:       uid,
		Provider:     "telebirr",
		Reference:    "TEST001",
		CustomAmount: decPtr("50"),
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assertDecimal(t, "500", res.ZCoinAdded)
	assertDecimal(t, "50", res.AmountPaid)
	assertDecimal(t, "500", res.NewBalance)
	assert.Equal(t, "Abebe Kebede", res.Payer)
	assert.Equal(t, "TEST001", res.Reference)

	assertDecimal(t, "500", env.balance(t, uid))

	var payments []*model.Payment
	require.NoError(t, env.db.Find(&payments).Error)
	require.Len(t, payments, 1)
	assert.Equal(t, "TEST001", payments[0].ReferenceNumber)
	assert.Equal(t, model.PaymentStatusVerified, payments[0].Status)

	list := env.transactions(t, uid)
	require.Len(t, list, 1)
	assert.Equal(t, model.TransactionKindTopUp, list[0].Kind)
	require.NotNil(t, list[0].RelatedPaymentID)
	assert.Equal(t, payments[0].ID, *list[0].RelatedPaymentID)
	assert.Contains(t, list[0].Description, "TEST001")

	// 同一参考号再次提交
	_, err = svc.VerifyAndCredit(ctx, service.TopUpRequest{
		UserID:       uid,
		Provider:     "telebirr",
		Reference:    "test001",
		CustomAmount: decPtr("50"),
	})
	assert.ErrorIs(t, err, service.ErrDuplicateReference)
	assertDecimal(t, "500", env.balance(t, uid))
	assert.Len(t, env.transactions(t, uid), 1)
}

func TestTopUpToleranceBoundary(t *testing.T) {
	tests := []struct {
		name     string
		received string
		wantErr  bool
	}{
		{"within tolerance", "100.40", false},
		{"exact", "100.00", false},
		{"lower edge", "99.50", false},
		{"beyond tolerance", "100.60", true},
		{"underpaid", "99.00", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			svc := env.topUp(verification.NewRegistryWith(paidStub(tt.received)))

			res, err := svc.VerifyAndCredit(context.Background(), service.TopUpRequest{
				UserID:       31,
				Provider:     "telebirr",
				Reference:    "FT25ABC123",
				CustomAmount: decPtr("100"),
			})
			if !tt.wantErr {
				require.NoError(t, err)
				assertDecimal(t, "1000", res.ZCoinAdded)
				assertDecimal(t, tt.received, res.AmountPaid)
				return
			}

			var mismatch *service.AmountMismatchError
			require.True(t, errors.As(err, &mismatch))
			assertDecimal(t, "100", mismatch.Expected)
			assertDecimal(t, tt.received, mismatch.Received)

			var count int64
			require.NoError(t, env.db.Model(&model.Payment{}).Count(&count).Error)
			assert.Zero(t, count)
			assertDecimal(t, "0", env.balance(t, 31))
		})
	}
}

func TestTopUpVerificationFailureLeavesReferenceRetryable(t *testing.T) {
	env := newTestEnv(t)
	stub := &stubVerifier{
		provider: model.ProviderTelebirr,
		outcome:  verification.Failed(model.ProviderTelebirr, verification.FailureNetwork, "telebirr request timed out"),
	}
	svc := env.topUp(verification.NewRegistryWith(stub))
	req := service.TopUpRequest{UserID: 41, Provider: "telebirr", Reference: "CHQ12345", CustomAmount: decPtr("20")}

	_, err := svc.VerifyAndCredit(context.Background(), req)
	var verr *service.VerificationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, verification.FailureNetwork, verr.Outcome.Failure)
	assert.ErrorIs(t, err, service.ErrVerificationFailed)

	stub.outcome = paidStub("20").outcome
	res, err := svc.VerifyAndCredit(context.Background(), req)
	require.NoError(t, err)
	assertDecimal(t, "200", res.ZCoinAdded)
	assert.EqualValues(t, 2, stub.calls.Load())
}

func TestTopUpInputValidation(t *testing.T) {
	env := newTestEnv(t)
	stub := paidStub("50")
	svc := env.topUp(verification.NewRegistryWith(stub, verification.NewMockVerifier(model.ProviderAbyssinia, "90172")))
	ctx := context.Background()

	tests := []struct {
		name    string
		req     service.TopUpRequest
		wantErr error
	}{
		{"below minimum", service.TopUpRequest{UserID: 1, Provider: "telebirr", Reference: "ABCD1234", CustomAmount: decPtr("5")}, service.ErrBelowMinimum},
		{"no amount", service.TopUpRequest{UserID: 1, Provider: "telebirr", Reference: "ABCD1234"}, service.ErrInvalidInput},
		{"unknown provider", service.TopUpRequest{UserID: 1, Provider: "paypal", Reference: "ABCD1234", CustomAmount: decPtr("50")}, service.ErrUnknownProvider},
		{"short reference", service.TopUpRequest{UserID: 1, Provider: "telebirr", Reference: "AB", CustomAmount: decPtr("50")}, service.ErrInvalidInput},
		{"suffix on telebirr", service.TopUpRequest{UserID: 1, Provider: "telebirr", Reference: "ABCD1234", AccountSuffix: "12345", CustomAmount: decPtr("50")}, service.ErrInvalidInput},
		{"bad bank suffix", service.TopUpRequest{UserID: 1, Provider: "abyssinia", Reference: "FT2513001V2G", AccountSuffix: "12a", CustomAmount: decPtr("50")}, service.ErrInvalidInput},
		{"unknown package", service.TopUpRequest{UserID: 1, Provider: "telebirr", Reference: "ABCD1234", CoinPackageID: int64Ptr(999)}, service.ErrPackageNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.VerifyAndCredit(ctx, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	assert.Zero(t, stub.calls.Load(), "verifier must not be called for invalid input")
}

func TestTopUpBankTransferWithPackage(t *testing.T) {
	env := newTestEnv(t)
	pkg := &model.CoinPackage{Name: "Starter", PriceBirr: dec("250"), ZCoinAmount: dec("2750"), IsActive: true}
	require.NoError(t, env.db.Create(pkg).Error)

	svc := env.topUp(nil)
	res, err := svc.VerifyAndCredit(context.Background(), service.TopUpRequest{
		UserID:        51,
		Provider:      "abyssinia",
		Reference:     "ft2513001v2g",
		CoinPackageID: &pkg.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "FT2513001V2G90172", res.Reference)
	assertDecimal(t, "2750", res.ZCoinAdded)
	assert.Equal(t, "Yordanos Tesfaye", res.Payer)

	var payment model.Payment
	require.NoError(t, env.db.First(&payment).Error)
	require.NotNil(t, payment.CoinPackageID)
	assert.Equal(t, pkg.ID, *payment.CoinPackageID)
	assert.Equal(t, "90172", payment.AccountSuffix)

	// 同一参考号配不同账号后缀视为不同付款
	res, err = svc.VerifyAndCredit(context.Background(), service.TopUpRequest{
		UserID:        51,
		Provider:      "abyssinia",
		Reference:     "FT2513001V2G",
		AccountSuffix: "11111",
		CoinPackageID: &pkg.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "FT2513001V2G11111", res.Reference)
	assertDecimal(t, "5500", env.balance(t, 51))
}

func TestReferenceKey(t *testing.T) {
	assert.Equal(t, "FT123", service.ReferenceKey(model.ProviderTelebirr, " ft123 ", ""))
	assert.Equal(t, "FT12390172", service.ReferenceKey(model.ProviderAbyssinia, "ft123", "90172"))
}

func int64Ptr(v int64) *int64 {
	return &v
}

func TestTopUpCreditFailureLeavesNoTrace(t *testing.T) {
	env := newTestEnv(t)
	svc := env.topUp(nil)
	ctx := context.Background()
	const uid = 31

	req := service.TopUpRequest{
		UserID:       uid,
		Provider:     "telebirr",
		Reference:    "TEST002",
		CustomAmount: decPtr("50"),
	}

	// 账本事件无法写入时整个事务回滚
	require.NoError(t, env.db.Migrator().DropTable(&model.OutboxMessage{}))

	_, err := svc.VerifyAndCredit(ctx, req)
	var creditErr *service.CreditFailedError
	require.True(t, errors.As(err, &creditErr), "got %v", err)
	assert.Equal(t, "TEST002", creditErr.Reference)
	assert.ErrorIs(t, err, service.ErrCreditFailed)

	var payments int64
	require.NoError(t, env.db.Model(&model.Payment{}).Count(&payments).Error)
	assert.Zero(t, payments)
	assert.True(t, env.balance(t, uid).IsZero())
	assert.Empty(t, env.transactions(t, uid))

	require.NoError(t, env.db.AutoMigrate(&model.OutboxMessage{}))

	res, err := svc.VerifyAndCredit(ctx, req)
	require.NoError(t, err)
	assertDecimal(t, "500", res.ZCoinAdded)
	assertDecimal(t, "500", env.balance(t, uid))
}

func TestTopUpSameReferenceRace(t *testing.T) {
	env := newTestEnv(t)
	svc := env.topUp(nil)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.VerifyAndCredit(context.Background(), service.TopUpRequest{
				UserID:       int64(40 + i),
				Provider:     "telebirr",
				Reference:    "TEST003",
				CustomAmount: decPtr("20"),
			})
		}(i)
	}
	wg.Wait()

	var ok, dup int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, service.ErrDuplicateReference):
			dup++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, dup)

	var payments, transactions int64
	require.NoError(t, env.db.Model(&model.Payment{}).Count(&payments).Error)
	require.NoError(t, env.db.Model(&model.Transaction{}).Count(&transactions).Error)
	assert.EqualValues(t, 1, payments)
	assert.EqualValues(t, 1, transactions)
}
