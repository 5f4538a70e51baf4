package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/edupay/remit-orders/internal/models"
	"github.com/edupay/remit-orders/internal/service"
)

// BeneficiaryHandler manages the reusable beneficiary set.
type BeneficiaryHandler struct {
	beneficiaries *service.BeneficiaryService
}

func NewBeneficiaryHandler(beneficiaries *service.BeneficiaryService) *BeneficiaryHandler {
	return &BeneficiaryHandler{beneficiaries: beneficiaries}
}

type beneficiaryRequest struct {
	Name          string                   `json:"name"`
	Country       string                   `json:"country"`
	BankName      string                   `json:"bank_name"`
	BankCountry   string                   `json:"bank_country"`
	AccountNumber string                   `json:"account_number,omitempty"`
	SwiftCode     string                   `json:"swift_code"`
	IBAN          string                   `json:"iban,omitempty"`
	SortCode      string                   `json:"sort_code,omitempty"`
	TransitNumber string                   `json:"transit_number,omitempty"`
	BSBCode       string                   `json:"bsb_code,omitempty"`
	RoutingNumber string                   `json:"routing_number,omitempty"`
	Intermediary  *models.IntermediaryBank `json:"intermediary,omitempty"`
}

func (req beneficiaryRequest) input() service.BeneficiaryInput {
	return service.BeneficiaryInput{
		Name:          req.Name,
		Country:       req.Country,
		BankName:      req.BankName,
		BankCountry:   req.BankCountry,
		AccountNumber: req.AccountNumber,
		SwiftCode:     req.SwiftCode,
		IBAN:          req.IBAN,
		SortCode:      req.SortCode,
		TransitNumber: req.TransitNumber,
		BSBCode:       req.BSBCode,
		RoutingNumber: req.RoutingNumber,
		Intermediary:  req.Intermediary,
	}
}

func (h *BeneficiaryHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-context", err.Error())
		return
	}

	var req beneficiaryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "validation/invalid-body", "invalid request body")
		return
	}

	beneficiary, err := h.beneficiaries.Create(r.Context(), actor, req.input())
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusCreated, beneficiary)
}

func (h *BeneficiaryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, chi.URLParam(r, "id"))
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}

	var req beneficiaryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "validation/invalid-body", "invalid request body")
		return
	}

	beneficiary, err := h.beneficiaries.Update(r.Context(), id, req.input())
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, beneficiary)
}

func (h *BeneficiaryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, chi.URLParam(r, "id"))
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}

	beneficiary, err := h.beneficiaries.Get(r.Context(), id)
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, beneficiary)
}

// List returns the active, selectable beneficiaries.
func (h *BeneficiaryHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	beneficiaries, err := h.beneficiaries.List(r.Context(), int32(limit), int32(offset))
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]interface{}{"beneficiaries": beneficiaries})
}

type setActiveRequest struct {
	Active bool `json:"active"`
}

// SetActive toggles whether the beneficiary is selectable.
func (h *BeneficiaryHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, chi.URLParam(r, "id"))
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}

	var req setActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "validation/invalid-body", "invalid request body")
		return
	}

	if err := h.beneficiaries.SetActive(r.Context(), id, req.Active); err != nil {
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]interface{}{"id": id, "active": req.Active})
}

func (h *BeneficiaryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, chi.URLParam(r, "id"))
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}

	if err := h.beneficiaries.Delete(r.Context(), id); err != nil {
		RespondDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
