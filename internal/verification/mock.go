package verification

import (
	"context"
	"strings"

	"bookswap/internal/model"

	"github.com/shopspring/decimal"
)

// MockVerifier 不访问外部渠道，返回固定结果。
// 请求带有期望金额时按期望金额返回，便于联调完整充值流程。
type MockVerifier struct {
	provider      string
	defaultSuffix string
}

func NewMockVerifier(provider, defaultSuffix string) *MockVerifier {
	return &MockVerifier{provider: provider, defaultSuffix: defaultSuffix}
}

func (m *MockVerifier) Provider() string {
	return m.provider
}

func (m *MockVerifier) Verify(ctx context.Context, req Request) Outcome {
	if err := ctx.Err(); err != nil {
		return Failed(m.provider, FailureNetwork, networkReason(m.provider, err))
	}

	ref := NormalizeReference(req.Reference)

	switch m.provider {
	case model.ProviderAbyssinia:
		suffix := strings.TrimSpace(req.AccountSuffix)
		if suffix == "" {
			suffix = m.defaultSuffix
		}
		return Outcome{
			Success:           true,
			Provider:          m.provider,
			PayerName:         "Yordanos Tesfaye",
			PayerAccount:      "1000****5678",
			Amount:            amountOr(req.ExpectedAmount, "250.00"),
			TransactionDate:   "30-Nov-2025 14:22:18",
			ProviderReference: ref + suffix,
			Narrative:         "YORDANOS BOOKSWAP",
			Status:            "success",
		}
	default:
		return Outcome{
			Success:              true,
			Provider:             m.provider,
			PayerName:            "Abebe Kebede",
			PayerAccount:         "0912345678",
			Amount:               amountOr(req.ExpectedAmount, "150.00"),
			TransactionDate:      "29-04-2025 10:30:45",
			ProviderReference:    ref,
			Status:               "Completed",
			CreditedPartyName:    "BookSwap Ethiopia",
			CreditedPartyAccount: "1000123456",
			ServiceFee:           "3.00 Birr",
			ServiceFeeVAT:        "0.45 Birr",
			TotalPaid:            "153.45 Birr",
		}
	}
}

func amountOr(expected decimal.Decimal, fallback string) decimal.Decimal {
	if expected.IsPositive() {
		return expected
	}
	return decimal.RequireFromString(fallback)
}
