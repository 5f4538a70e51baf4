package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/edupay/remit-orders/internal/domain"
	"github.com/edupay/remit-orders/internal/service"
)

// OrderHandler exposes quote creation, repricing and the staff status
// and rate-override operations.
type OrderHandler struct {
	orders *service.OrderService
}

func NewOrderHandler(orders *service.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

type createQuoteRequest struct {
	Purpose          string           `json:"purpose"`
	Amount           decimal.Decimal  `json:"amount"`
	Country          string           `json:"country"`
	Currency         string           `json:"currency,omitempty"`
	ReferenceRate    *decimal.Decimal `json:"reference_rate,omitempty"`
	Margin           decimal.Decimal  `json:"margin"`
	Bearer           string           `json:"bank_charge_bearer"`
	HasEducationLoan bool             `json:"has_education_loan"`
}

// CreateQuote prices a new order and stores it with status Received.
func (h *OrderHandler) CreateQuote(w http.ResponseWriter, r *http.Request) {
	actor, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-context", err.Error())
		return
	}

	var req createQuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "validation/invalid-body", "invalid request body")
		return
	}

	order, err := h.orders.CreateQuote(r.Context(), service.CreateQuoteRequest{
		Purpose:          req.Purpose,
		Amount:           req.Amount,
		Country:          req.Country,
		Currency:         req.Currency,
		ReferenceRate:    req.ReferenceRate,
		Margin:           req.Margin,
		Bearer:           domain.ChargeBearer(req.Bearer),
		HasEducationLoan: req.HasEducationLoan,
		CreatedBy:        actor,
	})
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusCreated, order)
}

// GetOrder returns the order with its current pricing breakdown.
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, chi.URLParam(r, "id"))
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}

	order, err := h.orders.GetOrder(r.Context(), id)
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, order)
}

type repriceRequest struct {
	Amount           *decimal.Decimal `json:"amount,omitempty"`
	Margin           *decimal.Decimal `json:"margin,omitempty"`
	ReferenceRate    *decimal.Decimal `json:"reference_rate,omitempty"`
	Bearer           *string          `json:"bank_charge_bearer,omitempty"`
	HasEducationLoan *bool            `json:"has_education_loan,omitempty"`
}

// Reprice applies partial pricing-input changes and recomputes the
// breakdown.
func (h *OrderHandler) Reprice(w http.ResponseWriter, r *http.Request) {
	actor, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-context", err.Error())
		return
	}
	id, err := pathUUID(r, chi.URLParam(r, "id"))
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}

	var req repriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "validation/invalid-body", "invalid request body")
		return
	}

	svcReq := service.RepriceRequest{
		Amount:           req.Amount,
		Margin:           req.Margin,
		ReferenceRate:    req.ReferenceRate,
		HasEducationLoan: req.HasEducationLoan,
		Actor:            actor,
	}
	if req.Bearer != nil {
		b := domain.ChargeBearer(*req.Bearer)
		svcReq.Bearer = &b
	}

	order, err := h.orders.Reprice(r.Context(), id, svcReq)
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, order)
}

type setStatusRequest struct {
	Status string `json:"status"`
}

// SetStatus applies a direct staff status edit. On rejection the
// current order is returned alongside the problem status so the
// client can roll its optimistic update back to the confirmed status.
func (h *OrderHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	actor, isStaff, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-context", err.Error())
		return
	}
	if !isStaff {
		RespondError(w, r, http.StatusForbidden, "auth/insufficient-permissions", "staff role required")
		return
	}
	id, err := pathUUID(r, chi.URLParam(r, "id"))
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}

	var req setStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "validation/invalid-body", "invalid request body")
		return
	}

	order, err := h.orders.SetStatus(r.Context(), id, domain.Status(req.Status), actor)
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, order)
}

// Authorize finalizes the order.
func (h *OrderHandler) Authorize(w http.ResponseWriter, r *http.Request) {
	actor, isStaff, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-context", err.Error())
		return
	}
	if !isStaff {
		RespondError(w, r, http.StatusForbidden, "auth/insufficient-permissions", "staff role required")
		return
	}
	id, err := pathUUID(r, chi.URLParam(r, "id"))
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}

	order, err := h.orders.Authorize(r.Context(), id, actor)
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, order)
}

type blockRequest struct {
	Reason string `json:"reason,omitempty"`
}

// Block resolves a rate review against the order as blocked.
func (h *OrderHandler) Block(w http.ResponseWriter, r *http.Request) {
	actor, isStaff, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-context", err.Error())
		return
	}
	if !isStaff {
		RespondError(w, r, http.StatusForbidden, "auth/insufficient-permissions", "staff role required")
		return
	}
	id, err := pathUUID(r, chi.URLParam(r, "id"))
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}

	var req blockRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			RespondError(w, r, http.StatusBadRequest, "validation/invalid-body", "invalid request body")
			return
		}
	}

	order, err := h.orders.Block(r.Context(), id, actor, req.Reason)
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, order)
}

type overrideRateRequest struct {
	IBRRate        decimal.Decimal `json:"ibr_rate"`
	CustomerRate   decimal.Decimal `json:"customer_rate"`
	SettlementRate decimal.Decimal `json:"settlement_rate"`
}

// OverrideRate corrects a priced order's rates after the fact.
func (h *OrderHandler) OverrideRate(w http.ResponseWriter, r *http.Request) {
	actor, isStaff, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-context", err.Error())
		return
	}
	if !isStaff {
		RespondError(w, r, http.StatusForbidden, "auth/insufficient-permissions", "staff role required")
		return
	}
	id, err := pathUUID(r, chi.URLParam(r, "id"))
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}

	var req overrideRateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "validation/invalid-body", "invalid request body")
		return
	}

	order, err := h.orders.OverrideRate(r.Context(), service.OverrideRateRequest{
		OrderID:           id,
		NewIBRRate:        req.IBRRate,
		NewCustomerRate:   req.CustomerRate,
		NewSettlementRate: req.SettlementRate,
		Actor:             actor,
	})
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, order)
}
