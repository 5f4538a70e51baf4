package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/edupay/remit-orders/internal/domain"
	"github.com/edupay/remit-orders/internal/models"
	"github.com/edupay/remit-orders/internal/observability"
)

// OrderService prices quotes and governs order status changes.
type OrderService struct {
	store Store
	fees  domain.FeePolicy
	taxes domain.TaxRules
	rates RateSource
	audit *AuditService
}

func NewOrderService(store Store, fees domain.FeePolicy, taxes domain.TaxRules, rates RateSource) *OrderService {
	return &OrderService{
		store: store,
		fees:  fees,
		taxes: taxes,
		rates: rates,
		audit: NewAuditService(store),
	}
}

// CreateQuoteRequest holds the pricing inputs for a new order.
type CreateQuoteRequest struct {
	Purpose          string
	Amount           decimal.Decimal
	Country          string
	Currency         string // optional override of the country default
	ReferenceRate    *decimal.Decimal
	Margin           decimal.Decimal
	Bearer           domain.ChargeBearer
	HasEducationLoan bool
	CreatedBy        uuid.UUID
}

// CreateQuote prices a new order and stores it with status Received.
// The currency derives from the destination country unless overridden;
// the reference rate comes from the request or, absent that, from the
// partner rate feed.
func (s *OrderService) CreateQuote(ctx context.Context, req CreateQuoteRequest) (*models.Order, error) {
	if !domain.ValidPurpose(req.Purpose) {
		return nil, &domain.InvalidInputError{Field: "purpose", Reason: fmt.Sprintf("unknown purpose %q", req.Purpose)}
	}

	currency := req.Currency
	if currency == "" {
		var ok bool
		currency, ok = domain.DefaultCurrency(req.Country)
		if !ok {
			return nil, &domain.InvalidInputError{Field: "country", Reason: fmt.Sprintf("unsupported destination country %q", req.Country)}
		}
	}

	var referenceRate decimal.Decimal
	if req.ReferenceRate != nil {
		referenceRate = *req.ReferenceRate
	} else {
		rate, err := s.rates.ReferenceRate(ctx, currency)
		if err != nil {
			return nil, domain.CollaboratorFailure("rate feed", err)
		}
		referenceRate = rate
	}

	breakdown, err := domain.ComputeQuote(domain.QuoteInput{
		ReferenceRate:    referenceRate,
		Margin:           req.Margin,
		Amount:           req.Amount,
		Bearer:           req.Bearer,
		HasEducationLoan: req.HasEducationLoan,
	}, s.fees, s.taxes)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		ID:               uuid.New(),
		Purpose:          req.Purpose,
		Amount:           req.Amount,
		Currency:         currency,
		Country:          req.Country,
		ReferenceRate:    referenceRate,
		Margin:           req.Margin,
		Bearer:           req.Bearer,
		HasEducationLoan: req.HasEducationLoan,
		Status:           domain.StatusReceived,
		CreatedBy:        req.CreatedBy,
		QuotedAt:         time.Now().UTC(),
	}
	order.ApplyBreakdown(breakdown)

	if err := s.store.CreateOrder(ctx, order); err != nil {
		return nil, domain.CollaboratorFailure("order store", err)
	}
	observability.IncrementQuoteComputed("created")

	if err := s.audit.Write(ctx, "order", order.ID, &req.CreatedBy, "created", "", string(order.Status), nil); err != nil {
		zap.L().Warn("order creation audit write failed", zap.Error(err), zap.String("order_id", order.ID.String()))
	}
	return order, nil
}

func (s *OrderService) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return s.store.GetOrder(ctx, id)
}

// RepriceRequest carries partial pricing-input changes. Nil fields
// keep their current values.
type RepriceRequest struct {
	Amount           *decimal.Decimal
	Margin           *decimal.Decimal
	ReferenceRate    *decimal.Decimal
	Bearer           *domain.ChargeBearer
	HasEducationLoan *bool
	Actor            uuid.UUID
}

// Reprice recomputes the breakdown after pricing inputs change.
// Permitted until the order reaches an authorization-locked status.
// When only the education-loan flag changes, the TCS line is
// recomputed in isolation rather than re-deriving the whole quote.
func (s *OrderService) Reprice(ctx context.Context, orderID uuid.UUID, req RepriceRequest) (*models.Order, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status.RateLocked() {
		return nil, fmt.Errorf("%w: order is %s", domain.ErrLockedOrder, order.Status)
	}

	loanOnly := req.HasEducationLoan != nil &&
		req.Amount == nil && req.Margin == nil && req.ReferenceRate == nil && req.Bearer == nil

	if loanOnly {
		order.HasEducationLoan = *req.HasEducationLoan
		order.ApplyBreakdown(order.Breakdown().WithEducationLoan(order.HasEducationLoan, s.taxes))
	} else {
		if req.Amount != nil {
			order.Amount = *req.Amount
		}
		if req.Margin != nil {
			order.Margin = *req.Margin
		}
		if req.ReferenceRate != nil {
			order.ReferenceRate = *req.ReferenceRate
			order.QuotedAt = time.Now().UTC()
		}
		if req.Bearer != nil {
			order.Bearer = *req.Bearer
		}
		if req.HasEducationLoan != nil {
			order.HasEducationLoan = *req.HasEducationLoan
		}

		breakdown, err := domain.ComputeQuote(domain.QuoteInput{
			ReferenceRate:    order.ReferenceRate,
			Margin:           order.Margin,
			Amount:           order.Amount,
			Bearer:           order.Bearer,
			HasEducationLoan: order.HasEducationLoan,
		}, s.fees, s.taxes)
		if err != nil {
			return nil, err
		}
		order.ApplyBreakdown(breakdown)
	}

	if err := s.store.UpdateOrderPricing(ctx, order); err != nil {
		return nil, domain.CollaboratorFailure("order store", err)
	}
	observability.IncrementQuoteComputed("repriced")
	return order, nil
}

// SetStatus applies a direct staff status edit. Locked targets are
// rejected without touching the order; the returned order always
// carries the last confirmed status so callers can roll back an
// optimistic update.
func (s *OrderService) SetStatus(ctx context.Context, orderID uuid.UUID, target domain.Status, actor uuid.UUID) (*models.Order, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := domain.StaffTransition(order.Status, target); err != nil {
		observability.IncrementStatusTransition("staff", "rejected")
		return order, err
	}
	if order.Status == target {
		return order, nil
	}

	prev := order.Status
	if err := s.store.TransitionOrderStatus(ctx, orderID, target, models.AuditRecord{
		EntityType: "order",
		EntityID:   orderID,
		ActorID:    &actor,
		Action:     "staff_status_edit",
		PrevState:  string(prev),
		NextState:  string(target),
	}); err != nil {
		// Last confirmed status is unchanged; the caller reverts its
		// optimistic update to order.Status, never to a default.
		observability.IncrementStatusTransition("staff", "failed")
		return order, domain.CollaboratorFailure("order store", err)
	}

	order.Status = target
	observability.IncrementStatusTransition("staff", "applied")
	return order, nil
}

// Trigger applies a system-driven transition.
func (s *OrderService) Trigger(ctx context.Context, orderID uuid.UUID, trg domain.Trigger, actor *uuid.UUID, metadata []byte) (*models.Order, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	next, err := domain.ApplyTrigger(order.Status, trg)
	if err != nil {
		observability.IncrementStatusTransition("trigger", "rejected")
		return order, err
	}
	if order.Status == next {
		return order, nil
	}

	prev := order.Status
	if err := s.store.TransitionOrderStatus(ctx, orderID, next, models.AuditRecord{
		EntityType: "order",
		EntityID:   orderID,
		ActorID:    actor,
		Action:     trg.Action,
		PrevState:  string(prev),
		NextState:  string(next),
		Metadata:   metadata,
	}); err != nil {
		observability.IncrementStatusTransition("trigger", "failed")
		return order, domain.CollaboratorFailure("order store", err)
	}

	order.Status = next
	observability.IncrementStatusTransition("trigger", "applied")
	return order, nil
}

// Authorize confirms the authorize action on an order that has not
// been finalized yet.
func (s *OrderService) Authorize(ctx context.Context, orderID uuid.UUID, actor uuid.UUID) (*models.Order, error) {
	return s.Trigger(ctx, orderID, domain.TriggerAuthorized, &actor, nil)
}

// Block resolves a rate review against the order, recording the
// reason. Blocked is not terminal; staff can still move the order on.
func (s *OrderService) Block(ctx context.Context, orderID, actor uuid.UUID, reason string) (*models.Order, error) {
	var metadata []byte
	if reason != "" {
		metadata, _ = json.Marshal(map[string]string{"reason": reason})
	}
	return s.Trigger(ctx, orderID, domain.TriggerBlocked, &actor, metadata)
}

// OverrideRateRequest corrects a priced order's rates after the fact.
type OverrideRateRequest struct {
	OrderID           uuid.UUID
	NewIBRRate        decimal.Decimal
	NewCustomerRate   decimal.Decimal
	NewSettlementRate decimal.Decimal
	Actor             uuid.UUID
}

// OverrideRate replaces the pricing rates of an order, marks it as
// overridden and recomputes the breakdown. Rejected once the order
// has reached Authorized or Completed.
func (s *OrderService) OverrideRate(ctx context.Context, req OverrideRateRequest) (*models.Order, error) {
	order, err := s.store.GetOrder(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if order.Status.RateLocked() {
		return nil, fmt.Errorf("%w: rate override rejected, order is %s", domain.ErrLockedOrder, order.Status)
	}

	if req.NewIBRRate.LessThanOrEqual(decimal.Zero) {
		return nil, &domain.InvalidInputError{Field: "ibr_rate", Reason: "must be greater than zero"}
	}
	margin := req.NewCustomerRate.Sub(req.NewIBRRate)
	if margin.IsNegative() {
		return nil, &domain.InvalidInputError{Field: "customer_rate", Reason: "must not be below the IBR rate"}
	}

	prevIBR := order.ReferenceRate
	prevCustomer := order.CustomerRate

	order.ReferenceRate = req.NewIBRRate
	order.Margin = margin
	settlement := req.NewSettlementRate
	order.SettlementRate = &settlement
	order.FxRateOverridden = true
	order.QuotedAt = time.Now().UTC()

	breakdown, err := domain.ComputeQuote(domain.QuoteInput{
		ReferenceRate:    order.ReferenceRate,
		Margin:           order.Margin,
		Amount:           order.Amount,
		Bearer:           order.Bearer,
		HasEducationLoan: order.HasEducationLoan,
	}, s.fees, s.taxes)
	if err != nil {
		return nil, err
	}
	order.ApplyBreakdown(breakdown)

	if err := s.store.UpdateOrderPricing(ctx, order); err != nil {
		return nil, domain.CollaboratorFailure("order store", err)
	}
	observability.IncrementQuoteComputed("overridden")

	metadata, _ := json.Marshal(map[string]string{
		"prev_ibr_rate":      prevIBR.String(),
		"prev_customer_rate": prevCustomer.String(),
		"new_ibr_rate":       req.NewIBRRate.String(),
		"new_customer_rate":  order.CustomerRate.String(),
		"settlement_rate":    req.NewSettlementRate.String(),
	})
	if err := s.audit.Write(ctx, "order", order.ID, &req.Actor, "rate_override", string(order.Status), string(order.Status), metadata); err != nil {
		zap.L().Warn("rate override audit write failed", zap.Error(err), zap.String("order_id", order.ID.String()))
	}
	return order, nil
}

// ExpireStaleQuotes moves orders whose quoted rate is older than the
// validity window into RateExpired. Run by the background sweeper.
func (s *OrderService) ExpireStaleQuotes(ctx context.Context, validity time.Duration, batchSize int32) (int, error) {
	cutoff := time.Now().UTC().Add(-validity)
	stale, err := s.store.ListStaleQuotedOrders(ctx, cutoff, batchSize)
	if err != nil {
		return 0, fmt.Errorf("list stale quotes: %w", err)
	}

	expired := 0
	for _, order := range stale {
		if err := ctx.Err(); err != nil {
			return expired, err
		}
		metadata, _ := json.Marshal(map[string]string{
			"quoted_at": order.QuotedAt.Format(time.RFC3339),
		})
		if _, err := s.Trigger(ctx, order.ID, domain.TriggerRateExpired, nil, metadata); err != nil {
			zap.L().Error("rate expiry transition failed", zap.Error(err), zap.String("order_id", order.ID.String()))
			continue
		}
		expired++
	}
	return expired, nil
}
