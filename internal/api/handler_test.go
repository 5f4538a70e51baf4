package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edupay/remit-orders/internal/api"
	"github.com/edupay/remit-orders/internal/api/middleware"
	"github.com/edupay/remit-orders/internal/config"
	"github.com/edupay/remit-orders/internal/docgen"
	"github.com/edupay/remit-orders/internal/domain"
	"github.com/edupay/remit-orders/internal/models"
	"github.com/edupay/remit-orders/internal/service"
	"github.com/edupay/remit-orders/internal/testutil/memstore"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type noopGenerator struct{}

func (noopGenerator) Generate(_ context.Context, doc docgen.QuoteDocument) (string, error) {
	return fmt.Sprintf("quotes/%s.pdf", doc.OrderID), nil
}

func newTestRouter(t *testing.T) (http.Handler, *memstore.Store) {
	t.Helper()
	middleware.SetJWTSecret(testSecret)
	middleware.SetJWTValidation("", "")

	store := memstore.New()
	taxes := domain.NewConfiguredTaxRules(dec("0.0018"), dec("0.05"), "fy26-test")
	orders := service.NewOrderService(store, domain.DefaultFeePolicy(), taxes, nil)
	workflow := service.NewWorkflowService(store, orders, noopGenerator{}, docgen.PartnerBank{}, "https://pay.test/upload")
	beneficiaries := service.NewBeneficiaryService(store)

	cfg := &config.Config{
		PublicRateLimitRPS: 100,
		AuthRateLimitRPS:   100,
	}
	router := api.NewRouter(cfg, zap.NewNop(), nil, nil, orders, workflow, beneficiaries)
	return router.Routes(), store
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func signToken(t *testing.T, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": uuid.NewString(),
		"role":    role,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func doRequest(t *testing.T, h http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func createOrderViaAPI(t *testing.T, h http.Handler, token string) models.Order {
	t.Helper()
	rec := doRequest(t, h, http.MethodPost, "/v1/orders", token, map[string]interface{}{
		"purpose":            "university_fees",
		"amount":             "1000",
		"country":            "US",
		"reference_rate":     "90.00",
		"margin":             "1.00",
		"bank_charge_bearer": "OUR",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var order models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &order))
	return order
}

func TestCreateOrder_RequiresAuth(t *testing.T) {
	h, _ := newTestRouter(t)
	rec := doRequest(t, h, http.MethodPost, "/v1/orders", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}

func TestCreateOrder_PricesQuote(t *testing.T) {
	h, _ := newTestRouter(t)
	order := createOrderViaAPI(t, h, signToken(t, "staff"))

	assert.Equal(t, domain.StatusReceived, order.Status)
	assert.Equal(t, "USD", order.Currency)
	assert.True(t, order.CustomerRate.Equal(dec("91.00")))
	assert.True(t, order.LocalAmount.Equal(dec("91000")))
}

func TestCreateOrder_InvalidPurpose(t *testing.T) {
	h, _ := newTestRouter(t)
	rec := doRequest(t, h, http.MethodPost, "/v1/orders", signToken(t, "staff"), map[string]interface{}{
		"purpose":            "vacation",
		"amount":             "1000",
		"country":            "US",
		"reference_rate":     "90.00",
		"margin":             "1.00",
		"bank_charge_bearer": "OUR",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}

func TestSetStatus_StaffOnly(t *testing.T) {
	h, _ := newTestRouter(t)
	staff := signToken(t, "staff")
	order := createOrderViaAPI(t, h, staff)

	rec := doRequest(t, h, http.MethodPatch, "/v1/orders/"+order.ID.String()+"/status", signToken(t, "agent"),
		map[string]string{"status": "Verified"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(t, h, http.MethodPatch, "/v1/orders/"+order.ID.String()+"/status", staff,
		map[string]string{"status": "Verified"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, domain.StatusVerified, updated.Status)
}

func TestSetStatus_TriggerOnlyTargetConflicts(t *testing.T) {
	h, _ := newTestRouter(t)
	staff := signToken(t, "staff")
	order := createOrderViaAPI(t, h, staff)

	rec := doRequest(t, h, http.MethodPatch, "/v1/orders/"+order.ID.String()+"/status", staff,
		map[string]string{"status": "QuoteDownloaded"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}

func TestOverrideRate_LockedAfterAuthorize(t *testing.T) {
	h, _ := newTestRouter(t)
	staff := signToken(t, "staff")
	order := createOrderViaAPI(t, h, staff)

	rec := doRequest(t, h, http.MethodPost, "/v1/orders/"+order.ID.String()+"/authorize", staff, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doRequest(t, h, http.MethodPost, "/v1/orders/"+order.ID.String()+"/rate-override", staff,
		map[string]string{"ibr_rate": "89.50", "customer_rate": "90.50", "settlement_rate": "89.75"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestResume_FlowOverHTTP(t *testing.T) {
	h, _ := newTestRouter(t)
	token := signToken(t, "agent")
	order := createOrderViaAPI(t, h, token)

	rec := doRequest(t, h, http.MethodGet, "/v1/orders/"+order.ID.String()+"/resume", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var state service.ResumeState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, service.StepSender, state.Step)

	rec = doRequest(t, h, http.MethodPut, "/v1/orders/"+order.ID.String()+"/sender", token, map[string]string{
		"student_name":       "Asha Verma",
		"payer_relationship": "self",
		"address_line1":      "14 Lake Road",
		"city":               "Pune",
		"state":              "MH",
		"postal_code":        "411001",
		"residency":          "IN",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doRequest(t, h, http.MethodGet, "/v1/orders/"+order.ID.String()+"/resume", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, service.StepBeneficiary, state.Step)
	assert.Equal(t, domain.StatusPending, state.Order.Status)
}

func TestGetOrder_NotFound(t *testing.T) {
	h, _ := newTestRouter(t)
	rec := doRequest(t, h, http.MethodGet, "/v1/orders/"+uuid.NewString(), signToken(t, "agent"), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
