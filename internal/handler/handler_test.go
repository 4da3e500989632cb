package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"bookswap/internal/config"
	"bookswap/internal/handler"
	"bookswap/internal/infrastructure/lock"
	"bookswap/internal/logger"
	"bookswap/internal/model"
	"bookswap/internal/service"
	"bookswap/internal/testutil"
	"bookswap/internal/verification"
	"bookswap/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type apiResponse struct {
	Code    int                    `json:"code"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data"`
}

type server struct {
	db     *gorm.DB
	router *gin.Engine
}

func newServer(t *testing.T, verifiers *verification.Registry) *server {
	t.Helper()

	db := testutil.NewDB(t)
	cfg := config.Default()
	cfg.Verification.Mock = true
	log := logger.Discard()

	if verifiers == nil {
		verifiers = verification.NewRegistry(cfg.Verification, log)
	}

	ledger := service.NewLedgerService(db, lock.NewLocalLocker(), cfg, log)
	packages := service.NewPackageCatalog(db, time.Minute)
	topUp := service.NewTopUpService(db, ledger, verifiers, packages, cfg, log)
	settings := service.NewSettingsStore(db, log)
	require.NoError(t, settings.Load(context.Background()))
	valuation := service.NewValuationService(db, settings)
	settlement := service.NewSettlementService(db, ledger, valuation, log)

	h := handler.NewHandler(ledger, topUp, valuation, settlement, log)
	return &server{db: db, router: handler.SetupRouter(h, log, gin.TestMode)}
}

func (s *server) do(t *testing.T, method, path string, userID int64, role string, body interface{}) (int, apiResponse) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID > 0 {
		req.Header.Set("X-User-ID", strconv.FormatInt(userID, 10))
	}
	if role != "" {
		req.Header.Set("X-User-Role", role)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var resp apiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w.Code, resp
}

func decimalField(t *testing.T, data map[string]interface{}, key string) decimal.Decimal {
	t.Helper()
	raw, ok := data[key]
	require.True(t, ok, "missing field %s", key)
	s, ok := raw.(string)
	require.True(t, ok, "field %s is %T", key, raw)
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func TestRequiresIdentity(t *testing.T) {
	s := newServer(t, nil)

	status, resp := s.do(t, http.MethodGet, "/api/v1/wallet/balance", 0, "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, response.CodeUnauthorized, resp.Code)

	status, resp = s.do(t, http.MethodGet, "/api/v1/admin/valuation/settings", 5, "user", nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, response.CodeForbidden, resp.Code)
}

func TestVerifyPaymentFlow(t *testing.T) {
	s := newServer(t, nil)
	const uid = 101

	status, resp := s.do(t, http.MethodGet, "/api/v1/wallet/balance", uid, "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "0.00", resp.Data["balance"])

	body := gin.H{"provider": "telebirr", "reference": "TEST001", "custom_amount": 50}
	status, resp = s.do(t, http.MethodPost, "/api/v1/payment/verify", uid, "", body)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, response.CodeSuccess, resp.Code, resp.Message)
	assert.Equal(t, true, resp.Data["success"])
	assert.Equal(t, "500.00", resp.Data["zcoin_added"])
	assert.Equal(t, "50.00", resp.Data["amount_paid"])
	assert.Equal(t, "500.00", resp.Data["new_balance"])
	assert.Equal(t, "Abebe Kebede", resp.Data["payer"])
	assert.Equal(t, "TEST001", resp.Data["reference"])

	status, resp = s.do(t, http.MethodPost, "/api/v1/payment/verify", uid, "", body)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, response.CodeDuplicateReference, resp.Code)

	status, resp = s.do(t, http.MethodGet, "/api/v1/wallet/transactions", uid, "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, resp.Data["total"])

	status, resp = s.do(t, http.MethodGet, "/api/v1/payment/list", uid, "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, resp.Data["total"])
}

func TestVerifyPaymentBadInput(t *testing.T) {
	s := newServer(t, nil)

	tests := []struct {
		name string
		body gin.H
	}{
		{"unknown provider", gin.H{"provider": "paypal", "reference": "TEST001", "custom_amount": 50}},
		{"suffix not 5 digits", gin.H{"provider": "abyssinia", "reference": "FT25", "account_suffix": "123", "custom_amount": 50}},
		{"below minimum", gin.H{"provider": "telebirr", "reference": "TEST002", "custom_amount": 5}},
		{"missing reference", gin.H{"provider": "telebirr", "custom_amount": 50}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := s.do(t, http.MethodPost, "/api/v1/payment/verify", 7, "", tt.body)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, response.CodeParamError, resp.Code)
		})
	}
}

type rejectingVerifier struct{}

func (rejectingVerifier) Provider() string { return model.ProviderAbyssinia }

func (rejectingVerifier) Verify(context.Context, verification.Request) verification.Outcome {
	return verification.Failed(model.ProviderAbyssinia, verification.FailureRejected, "Invalid transaction")
}

func TestVerifyPaymentFailureIsNotServerError(t *testing.T) {
	s := newServer(t, verification.NewRegistryWith(rejectingVerifier{}))

	status, resp := s.do(t, http.MethodPost, "/api/v1/payment/verify", 8, "",
		gin.H{"provider": "abyssinia", "reference": "FT2513001V2G", "custom_amount": 100})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, response.CodeVerificationFailed, resp.Code)
	assert.Equal(t, "rejected", resp.Data["failure"])
	assert.Equal(t, "Invalid transaction", resp.Data["reason"])

	var count int64
	require.NoError(t, s.db.Model(&model.Payment{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestQuote(t *testing.T) {
	s := newServer(t, nil)

	status, resp := s.do(t, http.MethodPost, "/api/v1/payment/quote", 9, "", gin.H{"custom_amount": "25.5"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "25.50", resp.Data["expected_amount"])
	assert.Equal(t, "255.00", resp.Data["zcoin_amount"])
}

func TestValuationEndpoints(t *testing.T) {
	s := newServer(t, nil)

	status, resp := s.do(t, http.MethodPost, "/api/v1/valuation/calculate", 10, "",
		gin.H{"category": "fiction", "condition": "good"})
	require.Equal(t, http.StatusOK, status)
	assert.True(t, decimalField(t, resp.Data, "zcoin").Equal(decimal.NewFromInt(20)))
	assert.True(t, decimalField(t, resp.Data, "price_birr").Equal(decimal.NewFromInt(2)))
	assert.EqualValues(t, 1, resp.Data["settings_version"])
	assert.NotZero(t, resp.Data["calculation_id"])

	status, _ = s.do(t, http.MethodPost, "/api/v1/valuation/calculate", 10, "",
		gin.H{"category": "fiction", "manual_zcoin": 50})
	assert.Equal(t, http.StatusForbidden, status)

	status, resp = s.do(t, http.MethodPost, "/api/v1/valuation/calculate", 1, "admin",
		gin.H{"category": "fiction", "condition": "good", "manual_zcoin": 50})
	require.Equal(t, http.StatusOK, status)
	assert.True(t, decimalField(t, resp.Data, "zcoin").Equal(decimal.NewFromInt(50)))
	assert.Equal(t, true, resp.Data["is_manual"])

	status, resp = s.do(t, http.MethodPut, "/api/v1/admin/valuation/settings", 1, "admin",
		gin.H{"signed_bonus": "30"})
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 2, resp.Data["version"])

	status, resp = s.do(t, http.MethodPut, "/api/v1/admin/valuation/settings", 1, "admin",
		gin.H{"min_zcoin": "500"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, response.CodeParamError, resp.Code)

	status, resp = s.do(t, http.MethodPost, "/api/v1/admin/valuation/settings/reload", 1, "admin", nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 2, resp.Data["version"])
}

func TestSwapEndpoints(t *testing.T) {
	s := newServer(t, nil)
	const uid = 111

	book := &model.Book{
		OwnerID: 1, Title: "Oromay", BookType: model.BookTypeSwap,
		ZCoinValue: decimal.NewFromInt(60), IsAvailable: true,
	}
	require.NoError(t, s.db.Create(book).Error)

	swapBody := gin.H{
		"requested_book_id": book.ID,
		"title":             "Fikir Eske Mekabir",
		"category":          "classics",
		"condition":         "excellent",
		"cover_type":        "hardcover",
		"has_images":        true,
		"is_first_edition":  true,
	}

	status, resp := s.do(t, http.MethodPost, "/api/v1/swap/create", uid, "", swapBody)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, response.CodeInsufficientBalance, resp.Code)
	assert.Equal(t, "60.00", resp.Data["shortfall"])

	status, _ = s.do(t, http.MethodPost, "/api/v1/payment/verify", uid, "",
		gin.H{"provider": "telebirr", "reference": "TOPUP0001", "custom_amount": 10})
	require.Equal(t, http.StatusOK, status)

	status, resp = s.do(t, http.MethodPost, "/api/v1/swap/create", uid, "", swapBody)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, response.CodeSuccess, resp.Code, resp.Message)
	swapID := resp.Data["id"]

	status, resp = s.do(t, http.MethodPost, "/api/v1/swap/create", uid, "", swapBody)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, response.CodeUnavailable, resp.Code)

	status, _ = s.do(t, http.MethodPost, "/api/v1/admin/swap/approve", uid, "", gin.H{"swap_id": swapID})
	assert.Equal(t, http.StatusForbidden, status)

	status, resp = s.do(t, http.MethodPost, "/api/v1/admin/swap/approve", 1, "admin", gin.H{"swap_id": swapID})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, model.SwapStatusApproved, resp.Data["status"])

	_, resp = s.do(t, http.MethodGet, "/api/v1/wallet/balance", uid, "", nil)
	assert.Equal(t, "60.00", resp.Data["balance"])

	status, resp = s.do(t, http.MethodPost, "/api/v1/swap/cancel", uid, "", gin.H{"swap_id": swapID})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, response.CodeInvalidState, resp.Code)

	status, resp = s.do(t, http.MethodPost, "/api/v1/admin/swap/reject", 1, "admin", gin.H{"swap_id": 424242})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, response.CodeNotFound, resp.Code)
}

func TestPurchaseEndpoints(t *testing.T) {
	s := newServer(t, nil)
	const uid = 121

	item := &model.Commodity{Name: "Bookmark", PriceZCoin: decimal.NewFromInt(20), Stock: 1, IsActive: true}
	require.NoError(t, s.db.Create(item).Error)

	_, _ = s.do(t, http.MethodPost, "/api/v1/payment/verify", uid, "",
		gin.H{"provider": "telebirr", "reference": "TOPUP0002", "custom_amount": 10})

	status, resp := s.do(t, http.MethodPost, "/api/v1/purchase/create", uid, "", gin.H{"commodity_id": item.ID, "quantity": 1})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, response.CodeSuccess, resp.Code, resp.Message)
	purchaseID := resp.Data["id"]

	_, resp = s.do(t, http.MethodPost, "/api/v1/purchase/create", uid, "", gin.H{"commodity_id": item.ID, "quantity": 1})
	assert.Equal(t, response.CodeOutOfStock, resp.Code)

	_, resp = s.do(t, http.MethodPost, "/api/v1/purchase/cancel", uid, "", gin.H{"purchase_id": purchaseID})
	assert.Equal(t, response.CodeSuccess, resp.Code)

	_, resp = s.do(t, http.MethodGet, "/api/v1/wallet/balance", uid, "", nil)
	assert.Equal(t, "100.00", resp.Data["balance"])
}

func TestVerifyPaymentCreditFailure(t *testing.T) {
	s := newServer(t, nil)
	const uid = 111

	require.NoError(t, s.db.Migrator().DropTable(&model.OutboxMessage{}))

	body := gin.H{"provider": "telebirr", "reference": "TEST005", "custom_amount": 50}
	status, resp := s.do(t, http.MethodPost, "/api/v1/payment/verify", uid, "", body)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, response.CodeCreditFailed, resp.Code)
	assert.Equal(t, "TEST005", resp.Data["reference"])

	var payments int64
	require.NoError(t, s.db.Model(&model.Payment{}).Count(&payments).Error)
	assert.Zero(t, payments)

	require.NoError(t, s.db.AutoMigrate(&model.OutboxMessage{}))
	status, resp = s.do(t, http.MethodPost, "/api/v1/payment/verify", uid, "", body)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, response.CodeSuccess, resp.Code, resp.Message)
}

func TestGetTransactionScopedToOwner(t *testing.T) {
	s := newServer(t, nil)
	const uid = 121

	body := gin.H{"provider": "telebirr", "reference": "TEST006", "custom_amount": 20}
	_, resp := s.do(t, http.MethodPost, "/api/v1/payment/verify", uid, "", body)
	require.Equal(t, response.CodeSuccess, resp.Code, resp.Message)

	_, resp = s.do(t, http.MethodGet, "/api/v1/wallet/transactions", uid, "", nil)
	list, ok := resp.Data["list"].([]interface{})
	require.True(t, ok)
	require.Len(t, list, 1)
	no, ok := list[0].(map[string]interface{})["transaction_no"].(string)
	require.True(t, ok)

	status, resp := s.do(t, http.MethodGet, "/api/v1/wallet/transactions/"+no, uid, "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, no, resp.Data["transaction_no"])
	assert.True(t, decimal.NewFromInt(200).Equal(decimalField(t, resp.Data, "amount")))

	status, _ = s.do(t, http.MethodGet, "/api/v1/wallet/transactions/"+no, uid+1, "", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = s.do(t, http.MethodGet, "/api/v1/wallet/transactions/ZTX-missing", uid, "", nil)
	assert.Equal(t, http.StatusNotFound, status)
}
