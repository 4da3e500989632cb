package verification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"bookswap/internal/config"
	"bookswap/internal/model"
	"bookswap/pkg/money"

	"github.com/sirupsen/logrus"
)

type abyssiniaResponse struct {
	Header struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"header"`
	Body []map[string]interface{} `json:"body"`
}

// AbyssiniaVerifier 通过 Bank of Abyssinia 在线回单接口核验转账。
// 查询 id 为交易参考号拼接收款账号后 5 位。
type AbyssiniaVerifier struct {
	baseURL       string
	defaultSuffix string
	fetcher       *httpFetcher
	log           *logrus.Entry
}

func NewAbyssiniaVerifier(cfg config.ProviderConfig, userAgent string, log *logrus.Logger) *AbyssiniaVerifier {
	return &AbyssiniaVerifier{
		baseURL:       cfg.BaseURL,
		defaultSuffix: cfg.DefaultSuffix,
		fetcher: newHTTPFetcher(model.ProviderAbyssinia, cfg.Timeout, userAgent, map[string]string{
			"Accept":           "application/json, text/plain, */*",
			"X-Requested-With": "XMLHttpRequest",
		}),
		log: log.WithField("component", "AbyssiniaVerifier"),
	}
}

func (v *AbyssiniaVerifier) Provider() string {
	return model.ProviderAbyssinia
}

func (v *AbyssiniaVerifier) slipURL(id string) string {
	sep := "?"
	if strings.Contains(v.baseURL, "?") {
		sep = "&"
	}
	return v.baseURL + sep + "id=" + url.QueryEscape(id)
}

func (v *AbyssiniaVerifier) Verify(ctx context.Context, req Request) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			v.log.WithField("reference", req.Reference).Errorf("解析回单时发生 panic: %v", r)
			out = Failed(v.Provider(), FailureBadResponse, "verification failed")
		}
	}()

	suffix := strings.TrimSpace(req.AccountSuffix)
	if suffix == "" {
		suffix = v.defaultSuffix
	}
	fullRef := strings.TrimSpace(req.Reference) + suffix
	log := v.log.WithField("reference", fullRef)

	body, status, err := v.fetcher.get(ctx, v.slipURL(fullRef))
	if err != nil {
		log.WithError(err).Warn("请求回单失败")
		return Failed(v.Provider(), FailureNetwork, networkReason(v.Provider(), err))
	}
	if status != http.StatusOK {
		log.WithField("status", status).Warn("回单不存在")
		return Failed(v.Provider(), FailureBadResponse, fmt.Sprintf("transaction not found (HTTP %d)", status))
	}

	var resp abyssiniaResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		log.WithError(err).Warn("回单响应无法解析")
		return Failed(v.Provider(), FailureBadResponse, "invalid receipt format")
	}

	if !strings.EqualFold(strings.TrimSpace(resp.Header.Status), "success") {
		msg := strings.TrimSpace(resp.Header.Message)
		if msg == "" {
			msg = "invalid transaction"
		}
		log.WithField("message", msg).Warn("银行拒绝")
		return Failed(v.Provider(), FailureRejected, msg)
	}

	if len(resp.Body) == 0 {
		return Failed(v.Provider(), FailureBadResponse, "invalid receipt format")
	}
	txn := resp.Body[0]

	amount, _ := money.Extract(field(txn, "Transferred Amount"))
	payer := field(txn, "Payer's Name")
	if payer == "" || !amount.IsPositive() {
		log.Warn("回单字段不完整")
		return Failed(v.Provider(), FailureIncomplete, "incomplete receipt data")
	}

	log.WithFields(logrus.Fields{"payer": payer, "amount": amount.String()}).Info("核验成功")

	return Outcome{
		Success:           true,
		Provider:          v.Provider(),
		PayerName:         payer,
		PayerAccount:      field(txn, "Source Account"),
		Amount:            money.Round2(amount),
		TransactionDate:   field(txn, "Transaction Date"),
		ProviderReference: field(txn, "Transaction Reference"),
		Narrative:         field(txn, "Narrative"),
		Status:            "success",
	}
}

func field(m map[string]interface{}, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return money.FromFloat(t).String()
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}
