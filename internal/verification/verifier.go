package verification

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
)

// FailureKind 核验失败的分类
type FailureKind string

const (
	FailureNone        FailureKind = ""
	FailureNetwork     FailureKind = "network"      // 网络错误或超时
	FailureBadResponse FailureKind = "bad_response" // 非 200 或响应无法解析
	FailureIncomplete  FailureKind = "incomplete"   // 关键字段缺失
	FailureRejected    FailureKind = "rejected"     // 渠道明确拒绝
)

// Request 一次核验请求
type Request struct {
	Reference      string
	AccountSuffix  string          // 银行转账收款账号后 5 位
	ExpectedAmount decimal.Decimal // 仅 mock 模式使用
}

// Outcome 核验结果，失败时 Failure 与 Reason 非空
type Outcome struct {
	Success           bool            `json:"success"`
	Provider          string          `json:"provider"`
	PayerName         string          `json:"payer_name,omitempty"`
	PayerAccount      string          `json:"payer_account,omitempty"`
	Amount            decimal.Decimal `json:"amount"`
	TransactionDate   string          `json:"transaction_date,omitempty"`
	ProviderReference string          `json:"provider_reference,omitempty"`
	Narrative         string          `json:"narrative,omitempty"`
	Status            string          `json:"status,omitempty"`

	CreditedPartyName    string `json:"credited_party_name,omitempty"`
	CreditedPartyAccount string `json:"credited_party_account,omitempty"`
	BankName             string `json:"bank_name,omitempty"`
	ServiceFee           string `json:"service_fee,omitempty"`
	ServiceFeeVAT        string `json:"service_fee_vat,omitempty"`
	TotalPaid            string `json:"total_paid,omitempty"`

	Failure FailureKind `json:"failure,omitempty"`
	Reason  string      `json:"reason,omitempty"`
}

// Failed 构造失败结果
func Failed(provider string, kind FailureKind, reason string) Outcome {
	return Outcome{Provider: provider, Failure: kind, Reason: reason}
}

// Verifier 向外部渠道核验一笔付款。任何失败都体现在 Outcome 中，不返回 error。
type Verifier interface {
	Provider() string
	Verify(ctx context.Context, req Request) Outcome
}

// NormalizeReference 去除首尾空白并转大写
func NormalizeReference(ref string) string {
	return strings.ToUpper(strings.TrimSpace(ref))
}
