package verification_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bookswap/internal/config"
	"bookswap/internal/logger"
	"bookswap/internal/verification"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const telebirrReceiptHTML = `<!DOCTYPE html>
<html><head><title>telebirr receipt</title></head><body>
<table>
<tr><td class="receipttableTd">የከፋይ ስም/Payer Name</td><td>Abebe  Kebede</td></tr>
<tr><td>የከፋይ ቴሌብር ቁ./Payer telebirr no.</td><td>2519****5678</td></tr>
<tr><td>የገንዘብ ተቀባይ ስም/Credited Party name</td><td>Commercial Bank of Ethiopia</td></tr>
<tr><td>የባንክ አካውንት ቁጥር/Bank account number</td><td>1000123456789 BOOKSWAP PLC</td></tr>
<tr><td>የክፍያው ሁኔታ/transaction status</td><td>Completed</td></tr>
</table>
<table>
<tr><td class="receipttableTd">የክፍያ ቁጥር/Invoice No.</td><td class="receipttableTd">የክፍያ ቀን/Payment date</td></tr>
<tr><td class="receipttableTd receipttableTd2">CHQ0FJ403O</td><td class="receipttableTd receipttableTd2">29-04-2025 10:30:45</td></tr>
</table>
<table>
<tr><td>የተከፈለው መጠን/Settled Amount</td><td>150.00 Birr</td></tr>
<tr><td>የአገልግሎት ክፍያ/Service fee</td><td>3.00 Birr</td></tr>
<tr><td>የአገልግሎት ክፍያ ተ.እ.ታ/Service fee VAT</td><td>0.45 Birr</td></tr>
<tr><td>ጠቅላላ የተከፈለ/Total Paid Amount</td><td>153.45 Birr</td></tr>
</table>
</body></html>`

func TestParseTelebirrReceiptCells(t *testing.T) {
	r, err := verification.ParseTelebirrReceipt([]byte(telebirrReceiptHTML))
	require.NoError(t, err)

	assert.Equal(t, "Abebe Kebede", r.PayerName)
	assert.Equal(t, "2519****5678", r.PayerPhone)
	assert.Equal(t, "Completed", r.TransactionStatus)
	assert.Equal(t, "CHQ0FJ403O", r.ReceiptNo)
	assert.Equal(t, "29-04-2025 10:30:45", r.PaymentDate)
	assert.Equal(t, "150.00 Birr", r.SettledAmount)
	assert.Equal(t, "3.00 Birr", r.ServiceFee)
	assert.Equal(t, "0.45 Birr", r.ServiceFeeVAT)
	assert.Equal(t, "153.45 Birr", r.TotalPaidAmount)
	assert.Equal(t, "Commercial Bank of Ethiopia", r.BankName)
	assert.Equal(t, "1000123456789", r.CreditedPartyAccount)
	assert.Equal(t, "BOOKSWAP PLC", r.CreditedPartyName)
	assert.True(t, r.Complete())
}

func TestParseTelebirrReceiptRegexFallbacks(t *testing.T) {
	page := `<html><body>
<div>Service fee VAT <b>0.45 Birr</b></div>
<div>Service fee <b>3.00 Birr</b></div>
<div>Settled Amount: <span>200.50 Birr</span></div>
<p>FT25ABCDEF12</p>
<p>Date 01-05-2025 08:15:00</p>
</body></html>`

	r, err := verification.ParseTelebirrReceipt([]byte(page))
	require.NoError(t, err)

	assert.Equal(t, "200.50 Birr", r.SettledAmount)
	assert.Equal(t, "3.00 Birr", r.ServiceFee)
	assert.Equal(t, "FT25ABCDEF12", r.ReceiptNo)
	assert.Equal(t, "01-05-2025 08:15:00", r.PaymentDate)
	assert.Empty(t, r.PayerName)
	assert.False(t, r.Complete())
}

func TestParseTelebirrReceiptTotalPaidWhenNoSettled(t *testing.T) {
	page := `<table>
<tr><td>Payer Name</td><td>Sara Alemu</td></tr>
<tr><td>transaction status</td><td>Completed</td></tr>
<tr><td>Total Paid Amount</td><td>1,020.00 Birr</td></tr>
<tr><td class="receipttableTd2">CHQ1234567</td></tr>
</table>`
	r, err := verification.ParseTelebirrReceipt([]byte(page))
	require.NoError(t, err)
	assert.Empty(t, r.SettledAmount)
	assert.Equal(t, "1,020.00 Birr", r.Amount())
	assert.True(t, r.Complete())
}

func newTelebirr(t *testing.T, url string, timeout time.Duration) *verification.TelebirrVerifier {
	t.Helper()
	return verification.NewTelebirrVerifier(config.ProviderConfig{
		BaseURL: url + "/receipt/",
		Timeout: timeout,
	}, "bookswap-test", logger.Discard())
}

func TestTelebirrVerifySuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/receipt/CHQ0FJ403O", r.URL.Path)
		assert.Equal(t, "bookswap-test", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(telebirrReceiptHTML))
	}))
	defer srv.Close()

	out := newTelebirr(t, srv.URL, time.Second).Verify(context.Background(), verification.Request{Reference: " CHQ0FJ403O "})

	require.True(t, out.Success, out.Reason)
	assert.Equal(t, "telebirr", out.Provider)
	assert.Equal(t, "Abebe Kebede", out.PayerName)
	assert.Equal(t, "150.00", out.Amount.StringFixed(2))
	assert.Equal(t, "CHQ0FJ403O", out.ProviderReference)
	assert.Equal(t, verification.FailureNone, out.Failure)
}

func TestTelebirrVerifyFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		kind    verification.FailureKind
	}{
		{
			name: "not found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.NotFound(w, r)
			},
			kind: verification.FailureBadResponse,
		},
		{
			name: "missing status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`<table>
<tr><td>Payer Name</td><td>Abebe Kebede</td></tr>
<tr><td>Settled Amount</td><td>150.00 Birr</td></tr>
<tr><td class="receipttableTd2">CHQ0FJ403O</td></tr></table>`))
			},
			kind: verification.FailureIncomplete,
		},
		{
			name: "unreadable amount",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`<table>
<tr><td>Payer Name</td><td>Abebe Kebede</td></tr>
<tr><td>transaction status</td><td>Completed</td></tr>
<tr><td>Settled Amount</td><td>N/A</td></tr>
<tr><td class="receipttableTd2">CHQ0FJ403O</td></tr></table>`))
			},
			kind: verification.FailureIncomplete,
		},
		{
			name: "timeout",
			handler: func(w http.ResponseWriter, r *http.Request) {
				time.Sleep(300 * time.Millisecond)
				_, _ = w.Write([]byte(telebirrReceiptHTML))
			},
			kind: verification.FailureNetwork,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			out := newTelebirr(t, srv.URL, 100*time.Millisecond).Verify(context.Background(), verification.Request{Reference: "CHQ0FJ403O"})
			assert.False(t, out.Success)
			assert.Equal(t, tt.kind, out.Failure)
			assert.NotEmpty(t, out.Reason)
		})
	}
}

func TestTelebirrVerifyUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	out := newTelebirr(t, url, time.Second).Verify(context.Background(), verification.Request{Reference: "CHQ0FJ403O"})
	assert.False(t, out.Success)
	assert.Equal(t, verification.FailureNetwork, out.Failure)
}
