package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edupay/remit-orders/internal/domain"
	"github.com/edupay/remit-orders/internal/models"
	"github.com/edupay/remit-orders/internal/service"
	"github.com/edupay/remit-orders/internal/testutil/memstore"
)

type fixedRates struct {
	rate decimal.Decimal
	err  error
}

func (f fixedRates) ReferenceRate(context.Context, string) (decimal.Decimal, error) {
	return f.rate, f.err
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newOrderService(store *memstore.Store, rates service.RateSource) *service.OrderService {
	taxes := domain.NewConfiguredTaxRules(dec("0.0018"), dec("0.05"), "fy26-test")
	return service.NewOrderService(store, domain.DefaultFeePolicy(), taxes, rates)
}

func createQuote(t *testing.T, svc *service.OrderService, mutate func(*service.CreateQuoteRequest)) *models.Order {
	t.Helper()
	rate := dec("90.00")
	req := service.CreateQuoteRequest{
		Purpose:       domain.PurposeUniversityFees,
		Amount:        dec("1000"),
		Country:       "US",
		ReferenceRate: &rate,
		Margin:        dec("1.00"),
		Bearer:        domain.BearerOUR,
		CreatedBy:     uuid.New(),
	}
	if mutate != nil {
		mutate(&req)
	}
	order, err := svc.CreateQuote(context.Background(), req)
	require.NoError(t, err)
	return order
}

func TestCreateQuote_PricesAndStoresOrder(t *testing.T) {
	store := memstore.New()
	svc := newOrderService(store, fixedRates{})

	order := createQuote(t, svc, nil)

	assert.Equal(t, domain.StatusReceived, order.Status)
	assert.Equal(t, "USD", order.Currency)
	assert.True(t, order.CustomerRate.Equal(dec("91.00")), "customer rate %s", order.CustomerRate)
	assert.True(t, order.LocalAmount.Equal(dec("91000")), "local amount %s", order.LocalAmount)
	assert.True(t, order.BankFee.Equal(dec("1500")))
	assert.False(t, order.FxRateOverridden)

	stored, err := svc.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.True(t, stored.TotalPayable.Equal(order.TotalPayable))
	require.Len(t, store.AuditLog, 1)
	assert.Equal(t, "created", store.AuditLog[0].Action)
}

func TestCreateQuote_RateFromFeedWhenAbsent(t *testing.T) {
	store := memstore.New()
	svc := newOrderService(store, fixedRates{rate: dec("87.40")})

	order := createQuote(t, svc, func(req *service.CreateQuoteRequest) {
		req.ReferenceRate = nil
	})
	assert.True(t, order.ReferenceRate.Equal(dec("87.40")))
}

func TestCreateQuote_RateFeedFailure(t *testing.T) {
	store := memstore.New()
	svc := newOrderService(store, fixedRates{err: errors.New("feed down")})

	_, err := svc.CreateQuote(context.Background(), service.CreateQuoteRequest{
		Purpose:   domain.PurposeUniversityFees,
		Amount:    dec("1000"),
		Country:   "US",
		Margin:    dec("1.00"),
		Bearer:    domain.BearerOUR,
		CreatedBy: uuid.New(),
	})
	require.Error(t, err)
	assert.True(t, domain.IsCollaboratorFailure(err))
}

func TestCreateQuote_UnknownPurposeAndCountry(t *testing.T) {
	store := memstore.New()
	svc := newOrderService(store, fixedRates{})

	_, err := svc.CreateQuote(context.Background(), service.CreateQuoteRequest{
		Purpose: "vacation",
		Amount:  dec("1000"),
		Country: "US",
		Margin:  dec("1.00"),
		Bearer:  domain.BearerOUR,
	})
	assert.True(t, domain.IsInvalidInput(err))

	rate := dec("90")
	_, err = svc.CreateQuote(context.Background(), service.CreateQuoteRequest{
		Purpose:       domain.PurposeUniversityFees,
		Amount:        dec("1000"),
		Country:       "ZZ",
		ReferenceRate: &rate,
		Margin:        dec("1.00"),
		Bearer:        domain.BearerOUR,
	})
	assert.True(t, domain.IsInvalidInput(err))
}

func TestReprice_LoanFlagOnlyTouchesTCSLine(t *testing.T) {
	store := memstore.New()
	svc := newOrderService(store, fixedRates{})
	order := createQuote(t, svc, nil)

	loan := true
	repriced, err := svc.Reprice(context.Background(), order.ID, service.RepriceRequest{
		HasEducationLoan: &loan,
	})
	require.NoError(t, err)

	assert.True(t, repriced.HasEducationLoan)
	assert.True(t, repriced.TaxCollectedAtSource.IsZero(), "tcs %s", repriced.TaxCollectedAtSource)
	assert.True(t, repriced.CustomerRate.Equal(order.CustomerRate))
	assert.True(t, repriced.LocalAmount.Equal(order.LocalAmount))
	assert.True(t, repriced.BankFee.Equal(order.BankFee))
	assert.True(t, repriced.TaxOnConversion.Equal(order.TaxOnConversion))
	want := order.TotalPayable.Sub(order.TaxCollectedAtSource)
	assert.True(t, repriced.TotalPayable.Equal(want), "total %s want %s", repriced.TotalPayable, want)
}

func TestReprice_RejectedOnceRateLocked(t *testing.T) {
	store := memstore.New()
	svc := newOrderService(store, fixedRates{})
	order := createQuote(t, svc, nil)

	_, err := svc.Authorize(context.Background(), order.ID, uuid.New())
	require.NoError(t, err)

	amount := dec("2000")
	_, err = svc.Reprice(context.Background(), order.ID, service.RepriceRequest{Amount: &amount})
	assert.ErrorIs(t, err, domain.ErrLockedOrder)
}

func TestSetStatus_TriggerOnlyTargetRejected(t *testing.T) {
	store := memstore.New()
	svc := newOrderService(store, fixedRates{})
	order := createQuote(t, svc, nil)

	returned, err := svc.SetStatus(context.Background(), order.ID, domain.StatusQuoteDownloaded, uuid.New())
	assert.ErrorIs(t, err, domain.ErrLockedOrder)
	// Caller rolls its optimistic update back to the confirmed status.
	require.NotNil(t, returned)
	assert.Equal(t, domain.StatusReceived, returned.Status)
}

func TestSetStatus_StoreFailureKeepsConfirmedStatus(t *testing.T) {
	store := memstore.New()
	svc := newOrderService(store, fixedRates{})
	order := createQuote(t, svc, nil)

	store.FailWith("TransitionOrderStatus", errors.New("connection reset"))
	returned, err := svc.SetStatus(context.Background(), order.ID, domain.StatusVerified, uuid.New())
	require.Error(t, err)
	assert.True(t, domain.IsCollaboratorFailure(err))
	require.NotNil(t, returned)
	assert.Equal(t, domain.StatusReceived, returned.Status)
}

func TestSetStatus_AppliesAndAudits(t *testing.T) {
	store := memstore.New()
	svc := newOrderService(store, fixedRates{})
	order := createQuote(t, svc, nil)

	updated, err := svc.SetStatus(context.Background(), order.ID, domain.StatusVerified, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusVerified, updated.Status)

	require.Len(t, store.AuditLog, 2)
	last := store.AuditLog[1]
	assert.Equal(t, "staff_status_edit", last.Action)
	assert.Equal(t, string(domain.StatusReceived), last.PrevState)
	assert.Equal(t, string(domain.StatusVerified), last.NextState)
}

func TestAuthorize_RejectedOnTerminalOrder(t *testing.T) {
	store := memstore.New()
	svc := newOrderService(store, fixedRates{})
	order := createQuote(t, svc, nil)

	_, err := svc.SetStatus(context.Background(), order.ID, domain.StatusRejected, uuid.New())
	require.NoError(t, err)

	_, err = svc.Authorize(context.Background(), order.ID, uuid.New())
	assert.ErrorIs(t, err, domain.ErrLockedOrder)
}

func TestBlock_RecordsReasonAndStaysEditable(t *testing.T) {
	store := memstore.New()
	svc := newOrderService(store, fixedRates{})
	order := createQuote(t, svc, nil)
	actor := uuid.New()

	blocked, err := svc.Block(context.Background(), order.ID, actor, "rate review failed")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusBlocked, blocked.Status)

	require.Len(t, store.AuditLog, 2)
	last := store.AuditLog[1]
	assert.Equal(t, "rate_blocked", last.Action)
	assert.Contains(t, string(last.Metadata), "rate review failed")

	// Blocked is not terminal; staff can still move the order on.
	updated, err := svc.SetStatus(context.Background(), order.ID, domain.StatusVerified, actor)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusVerified, updated.Status)
}

func TestBlock_RejectedOnTerminalOrder(t *testing.T) {
	store := memstore.New()
	svc := newOrderService(store, fixedRates{})
	order := createQuote(t, svc, nil)

	_, err := svc.SetStatus(context.Background(), order.ID, domain.StatusCompleted, uuid.New())
	require.NoError(t, err)

	_, err = svc.Block(context.Background(), order.ID, uuid.New(), "late review")
	assert.ErrorIs(t, err, domain.ErrLockedOrder)
}

func TestOverrideRate_RecomputesAndMarksOverridden(t *testing.T) {
	store := memstore.New()
	svc := newOrderService(store, fixedRates{})
	order := createQuote(t, svc, nil)

	updated, err := svc.OverrideRate(context.Background(), service.OverrideRateRequest{
		OrderID:           order.ID,
		NewIBRRate:        dec("89.50"),
		NewCustomerRate:   dec("90.50"),
		NewSettlementRate: dec("89.75"),
		Actor:             uuid.New(),
	})
	require.NoError(t, err)

	assert.True(t, updated.FxRateOverridden)
	require.NotNil(t, updated.SettlementRate)
	assert.True(t, updated.SettlementRate.Equal(dec("89.75")))
	assert.True(t, updated.CustomerRate.Equal(dec("90.50")), "customer rate %s", updated.CustomerRate)
	assert.True(t, updated.LocalAmount.Equal(dec("90500")), "local amount %s", updated.LocalAmount)

	last := store.AuditLog[len(store.AuditLog)-1]
	assert.Equal(t, "rate_override", last.Action)
	assert.Contains(t, string(last.Metadata), "90.50")
}

func TestOverrideRate_RejectedOnceLocked(t *testing.T) {
	store := memstore.New()
	svc := newOrderService(store, fixedRates{})
	order := createQuote(t, svc, nil)

	_, err := svc.Authorize(context.Background(), order.ID, uuid.New())
	require.NoError(t, err)

	_, err = svc.OverrideRate(context.Background(), service.OverrideRateRequest{
		OrderID:           order.ID,
		NewIBRRate:        dec("89.50"),
		NewCustomerRate:   dec("90.50"),
		NewSettlementRate: dec("89.75"),
		Actor:             uuid.New(),
	})
	assert.ErrorIs(t, err, domain.ErrLockedOrder)
}

func TestOverrideRate_ValidatesRates(t *testing.T) {
	store := memstore.New()
	svc := newOrderService(store, fixedRates{})
	order := createQuote(t, svc, nil)

	_, err := svc.OverrideRate(context.Background(), service.OverrideRateRequest{
		OrderID:         order.ID,
		NewIBRRate:      dec("0"),
		NewCustomerRate: dec("90.50"),
	})
	assert.True(t, domain.IsInvalidInput(err))

	_, err = svc.OverrideRate(context.Background(), service.OverrideRateRequest{
		OrderID:         order.ID,
		NewIBRRate:      dec("91.00"),
		NewCustomerRate: dec("90.50"),
	})
	assert.True(t, domain.IsInvalidInput(err))
}

func TestExpireStaleQuotes(t *testing.T) {
	store := memstore.New()
	svc := newOrderService(store, fixedRates{})

	stale := createQuote(t, svc, nil)
	fresh := createQuote(t, svc, nil)

	// Age the first order past the validity window.
	aged, err := store.GetOrder(context.Background(), stale.ID)
	require.NoError(t, err)
	aged.QuotedAt = time.Now().UTC().Add(-48 * time.Hour)
	require.NoError(t, store.UpdateOrderPricing(context.Background(), aged))

	expired, err := svc.ExpireStaleQuotes(context.Background(), 24*time.Hour, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	got, err := svc.GetOrder(context.Background(), stale.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRateExpired, got.Status)

	got, err = svc.GetOrder(context.Background(), fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReceived, got.Status)
}
