package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/edupay/remit-orders/internal/models"
	"github.com/edupay/remit-orders/internal/service"
)

// WorkflowHandler exposes the resumable order flow: sender,
// beneficiary, document uploads and the quote document download.
type WorkflowHandler struct {
	workflow *service.WorkflowService
}

func NewWorkflowHandler(workflow *service.WorkflowService) *WorkflowHandler {
	return &WorkflowHandler{workflow: workflow}
}

// Resume reconstructs the current flow step from the order id alone.
func (h *WorkflowHandler) Resume(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, chi.URLParam(r, "id"))
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}

	state, err := h.workflow.Resume(r.Context(), id)
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, state)
}

type senderRequest struct {
	StudentName       string `json:"student_name"`
	StudentEmail      string `json:"student_email"`
	StudentPhone      string `json:"student_phone"`
	PayerRelationship string `json:"payer_relationship"`
	PayerName         string `json:"payer_name,omitempty"`
	PayerPAN          string `json:"payer_pan,omitempty"`
	FundsSource       string `json:"funds_source,omitempty"`
	AddressLine1      string `json:"address_line1"`
	AddressLine2      string `json:"address_line2,omitempty"`
	City              string `json:"city"`
	State             string `json:"state"`
	PostalCode        string `json:"postal_code"`
	Residency         string `json:"residency"`
}

type senderResponse struct {
	Sender *models.Sender `json:"sender"`
	Order  *models.Order  `json:"order"`
}

// UpsertSender creates or updates the order's sender and advances the
// order to Pending.
func (h *WorkflowHandler) UpsertSender(w http.ResponseWriter, r *http.Request) {
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

	var req senderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "validation/invalid-body", "invalid request body")
		return
	}

	sender, order, err := h.workflow.UpsertSender(r.Context(), id, actor, service.SenderInput{
		StudentName:       req.StudentName,
		StudentEmail:      req.StudentEmail,
		StudentPhone:      req.StudentPhone,
		PayerRelationship: req.PayerRelationship,
		PayerName:         req.PayerName,
		PayerPAN:          req.PayerPAN,
		FundsSource:       req.FundsSource,
		AddressLine1:      req.AddressLine1,
		AddressLine2:      req.AddressLine2,
		City:              req.City,
		State:             req.State,
		PostalCode:        req.PostalCode,
		Residency:         req.Residency,
	})
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, senderResponse{Sender: sender, Order: order})
}

// RequiredSections lists the sender form sections for a payer
// relationship, so the client can collapse the payer block for
// self-paying students.
func (h *WorkflowHandler) RequiredSections(w http.ResponseWriter, r *http.Request) {
	relationship := r.URL.Query().Get("payer_relationship")
	if relationship == "" {
		RespondError(w, r, http.StatusBadRequest, "validation/invalid-input", "payer_relationship query parameter is required")
		return
	}
	RespondJSON(w, http.StatusOK, map[string]interface{}{
		"payer_relationship": relationship,
		"sections":           service.RequiredSections(relationship),
	})
}

type selectBeneficiaryRequest struct {
	BeneficiaryID string `json:"beneficiary_id"`
}

// SelectBeneficiary links an existing active beneficiary to the order.
func (h *WorkflowHandler) SelectBeneficiary(w http.ResponseWriter, r *http.Request) {
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

	var req selectBeneficiaryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "validation/invalid-body", "invalid request body")
		return
	}
	beneficiaryID, err := pathUUID(r, req.BeneficiaryID)
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}

	order, err := h.workflow.SelectBeneficiary(r.Context(), id, beneficiaryID, actor)
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, order)
}

type attachBeneficiaryResponse struct {
	Beneficiary *models.Beneficiary `json:"beneficiary"`
	Order       *models.Order       `json:"order"`
}

// AttachBeneficiary creates a new beneficiary and links it in one step.
func (h *WorkflowHandler) AttachBeneficiary(w http.ResponseWriter, r *http.Request) {
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

	var req beneficiaryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "validation/invalid-body", "invalid request body")
		return
	}

	beneficiary, order, err := h.workflow.AttachNewBeneficiary(r.Context(), id, actor, req.input())
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusCreated, attachBeneficiaryResponse{Beneficiary: beneficiary, Order: order})
}

type registerUploadRequest struct {
	ObjectKey string `json:"object_key"`
}

// RegisterUpload records a document object placed in external storage.
func (h *WorkflowHandler) RegisterUpload(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, chi.URLParam(r, "id"))
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}

	var req registerUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "validation/invalid-body", "invalid request body")
		return
	}

	upload, err := h.workflow.RegisterUpload(r.Context(), id, req.ObjectKey)
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusCreated, upload)
}

// SubmitDocuments finalizes the document set and moves the order to
// DocumentsPlaced.
func (h *WorkflowHandler) SubmitDocuments(w http.ResponseWriter, r *http.Request) {
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

	order, err := h.workflow.SubmitDocuments(r.Context(), id, actor)
	if err != nil {
		RespondDomainError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, order)
}

type quoteDocumentRequest struct {
	StudentName string `json:"student_name,omitempty"`
}

type quoteDocumentResponse struct {
	DocumentHandle string        `json:"document_handle"`
	Order          *models.Order `json:"order"`
}

// QuoteDocument renders the quote document and records the download.
func (h *WorkflowHandler) QuoteDocument(w http.ResponseWriter, r *http.Request) {
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

	var req quoteDocumentRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			RespondError(w, r, http.StatusBadRequest, "validation/invalid-body", "invalid request body")
			return
		}
	}

	handle, order, err := h.workflow.GenerateQuoteDocument(r.Context(), id, actor, req.StudentName)
	if err != nil {
		if handle == "" {
			RespondDomainError(w, r, err)
			return
		}
		// Document generated but the download was not recorded; return
		// the handle so the client is not blocked.
		RespondJSON(w, http.StatusOK, quoteDocumentResponse{DocumentHandle: handle, Order: order})
		return
	}
	RespondJSON(w, http.StatusOK, quoteDocumentResponse{DocumentHandle: handle, Order: order})
}
