package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/edupay/remit-orders/internal/docgen"
	"github.com/edupay/remit-orders/internal/domain"
	"github.com/edupay/remit-orders/internal/models"
	"github.com/edupay/remit-orders/internal/observability"
)

// Step identifies where the Order → Sender → Beneficiary → Documents
// sequence should resume.
type Step string

const (
	StepSender      Step = "sender"
	StepBeneficiary Step = "beneficiary"
	StepDocuments   Step = "documents"
)

// ResumeState is the server-side truth for a client re-entering the
// flow with nothing but an order id.
type ResumeState struct {
	Step   Step           `json:"step"`
	Order  *models.Order  `json:"order"`
	Sender *models.Sender `json:"sender,omitempty"`
}

// WorkflowService sequences order, sender, beneficiary and document
// creation, and reconstructs the current step from the order alone.
type WorkflowService struct {
	store     Store
	orders    *OrderService
	docs      docgen.Generator
	partner   docgen.PartnerBank
	uploadURL string
	audit     *AuditService
}

func NewWorkflowService(store Store, orders *OrderService, docs docgen.Generator, partner docgen.PartnerBank, uploadURL string) *WorkflowService {
	return &WorkflowService{
		store:     store,
		orders:    orders,
		docs:      docs,
		partner:   partner,
		uploadURL: uploadURL,
		audit:     NewAuditService(store),
	}
}

// Resume loads the order and derives the step to resume at. It is
// idempotent: with no intervening writes, repeated calls return the
// same step, so a restarted client needs only the order id.
func (s *WorkflowService) Resume(ctx context.Context, orderID uuid.UUID) (*ResumeState, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.SenderID == nil {
		return &ResumeState{Step: StepSender, Order: order}, nil
	}

	sender, err := s.store.GetSender(ctx, *order.SenderID)
	if err != nil {
		return nil, fmt.Errorf("load linked sender: %w", err)
	}

	if order.BeneficiaryID == nil {
		return &ResumeState{Step: StepBeneficiary, Order: order, Sender: sender}, nil
	}
	return &ResumeState{Step: StepDocuments, Order: order, Sender: sender}, nil
}

// Section names of the sender form.
const (
	SectionStudent       = "student"
	SectionPayerIdentity = "payer_identity"
	SectionPayerAddress  = "payer_address"
	SectionFundsSource   = "funds_source"
)

// RequiredSections lists the form sections the payer selector
// demands. A self-paying student needs only the student block; any
// other relationship adds a separately collected payer identity,
// address and funds-source block.
func RequiredSections(payerRelationship string) []string {
	if payerRelationship == domain.PayerSelf {
		return []string{SectionStudent}
	}
	return []string{SectionStudent, SectionPayerIdentity, SectionPayerAddress, SectionFundsSource}
}

// SenderInput carries the sender step's form fields.
type SenderInput struct {
	StudentName       string
	StudentEmail      string
	StudentPhone      string
	PayerRelationship string
	PayerName         string
	PayerPAN          string
	FundsSource       string
	AddressLine1      string
	AddressLine2      string
	City              string
	State             string
	PostalCode        string
	Residency         string
}

func (in SenderInput) validate() error {
	if in.StudentName == "" {
		return &domain.InvalidInputError{Field: "student_name", Reason: "is required"}
	}
	if in.PayerRelationship == "" {
		return &domain.InvalidInputError{Field: "payer_relationship", Reason: "is required"}
	}
	if in.AddressLine1 == "" {
		return &domain.InvalidInputError{Field: "address_line1", Reason: "is required"}
	}
	if in.PayerRelationship != domain.PayerSelf {
		// Full payer block required when someone else pays.
		if in.PayerName == "" {
			return &domain.InvalidInputError{Field: "payer_name", Reason: "is required unless the payer is the student"}
		}
		if in.FundsSource == "" {
			return &domain.InvalidInputError{Field: "funds_source", Reason: "is required unless the payer is the student"}
		}
	}
	return nil
}

// UpsertSender creates or updates the order's sender record and
// forces the order into Pending once the link succeeds. A sender is
// never created without an order context.
func (s *WorkflowService) UpsertSender(ctx context.Context, orderID uuid.UUID, actor uuid.UUID, in SenderInput) (*models.Sender, *models.Order, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	if order.Status.Terminal() {
		return nil, order, fmt.Errorf("%w: order is %s", domain.ErrLockedOrder, order.Status)
	}
	if err := in.validate(); err != nil {
		return nil, order, err
	}

	if in.PayerRelationship == domain.PayerSelf {
		// Sender-contact fields double as student-contact fields.
		in.PayerName = in.StudentName
	}

	var sender *models.Sender
	if order.SenderID != nil {
		sender, err = s.store.GetSender(ctx, *order.SenderID)
		if err != nil {
			return nil, order, fmt.Errorf("load existing sender: %w", err)
		}
		applySenderInput(sender, in)
		if err := s.store.UpdateSender(ctx, sender); err != nil {
			return nil, order, domain.CollaboratorFailure("sender store", err)
		}
	} else {
		sender = &models.Sender{ID: uuid.New(), OrderID: orderID}
		applySenderInput(sender, in)
		if err := s.store.CreateSender(ctx, sender); err != nil {
			return nil, order, domain.CollaboratorFailure("sender store", err)
		}
		if err := s.store.SetOrderSender(ctx, orderID, sender.ID); err != nil {
			// The sender row survives; Resume will land back on the
			// sender step and the link can be retried.
			return sender, order, domain.CollaboratorFailure("order store", err)
		}
		order.SenderID = &sender.ID
	}

	order, err = s.orders.Trigger(ctx, orderID, domain.TriggerSenderLinked, &actor, nil)
	if err != nil {
		return sender, order, err
	}
	return sender, order, nil
}

func applySenderInput(sender *models.Sender, in SenderInput) {
	sender.StudentName = in.StudentName
	sender.StudentEmail = in.StudentEmail
	sender.StudentPhone = in.StudentPhone
	sender.PayerRelationship = in.PayerRelationship
	sender.PayerName = in.PayerName
	sender.PayerPAN = in.PayerPAN
	sender.FundsSource = in.FundsSource
	sender.AddressLine1 = in.AddressLine1
	sender.AddressLine2 = in.AddressLine2
	sender.City = in.City
	sender.State = in.State
	sender.PostalCode = in.PostalCode
	sender.Residency = in.Residency
}

// SelectBeneficiary links an existing active beneficiary to the
// order. Selection never mutates the beneficiary record. The link is
// only possible once the sender is in place.
func (s *WorkflowService) SelectBeneficiary(ctx context.Context, orderID, beneficiaryID uuid.UUID, actor uuid.UUID) (*models.Order, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status.Terminal() {
		return order, fmt.Errorf("%w: order is %s", domain.ErrLockedOrder, order.Status)
	}
	if order.SenderID == nil {
		return order, &domain.InvalidInputError{Field: "sender", Reason: "must be linked before a beneficiary"}
	}

	beneficiary, err := s.store.GetBeneficiary(ctx, beneficiaryID)
	if err != nil {
		return order, err
	}
	if !beneficiary.Active {
		return order, &domain.InvalidInputError{Field: "beneficiary_id", Reason: "beneficiary is inactive"}
	}

	if err := s.store.SetOrderBeneficiary(ctx, orderID, beneficiaryID); err != nil {
		return order, domain.CollaboratorFailure("order store", err)
	}
	order.BeneficiaryID = &beneficiaryID

	metadata, _ := json.Marshal(map[string]string{"beneficiary_id": beneficiaryID.String()})
	if err := s.audit.Write(ctx, "order", orderID, &actor, "beneficiary_selected", "", "", metadata); err != nil {
		zap.L().Warn("beneficiary selection audit write failed", zap.Error(err), zap.String("order_id", orderID.String()))
	}
	return order, nil
}

// AttachNewBeneficiary creates a beneficiary owned by this order's
// flow and links it in one step.
func (s *WorkflowService) AttachNewBeneficiary(ctx context.Context, orderID uuid.UUID, actor uuid.UUID, in BeneficiaryInput) (*models.Beneficiary, *models.Order, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	if order.Status.Terminal() {
		return nil, order, fmt.Errorf("%w: order is %s", domain.ErrLockedOrder, order.Status)
	}
	if order.SenderID == nil {
		return nil, order, &domain.InvalidInputError{Field: "sender", Reason: "must be linked before a beneficiary"}
	}

	beneficiary, err := newBeneficiary(in, actor)
	if err != nil {
		return nil, order, err
	}
	if err := s.store.CreateBeneficiary(ctx, beneficiary); err != nil {
		return nil, order, domain.CollaboratorFailure("beneficiary store", err)
	}

	if err := s.store.SetOrderBeneficiary(ctx, orderID, beneficiary.ID); err != nil {
		return beneficiary, order, domain.CollaboratorFailure("order store", err)
	}
	order.BeneficiaryID = &beneficiary.ID
	return beneficiary, order, nil
}

// RegisterUpload records a document object placed in external
// storage for this order, so abandoned objects can be swept later.
func (s *WorkflowService) RegisterUpload(ctx context.Context, orderID uuid.UUID, objectKey string) (*models.Upload, error) {
	if objectKey == "" {
		return nil, &domain.InvalidInputError{Field: "object_key", Reason: "is required"}
	}
	if _, err := s.store.GetOrder(ctx, orderID); err != nil {
		return nil, err
	}
	upload := &models.Upload{
		ID:        uuid.New(),
		OrderID:   orderID,
		ObjectKey: objectKey,
		Status:    models.UploadStatusPending,
	}
	if err := s.store.CreateUpload(ctx, upload); err != nil {
		return nil, domain.CollaboratorFailure("upload store", err)
	}
	return upload, nil
}

// SubmitDocuments finalizes the document set and forces the order
// into DocumentsPlaced.
func (s *WorkflowService) SubmitDocuments(ctx context.Context, orderID uuid.UUID, actor uuid.UUID) (*models.Order, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.BeneficiaryID == nil {
		return order, &domain.InvalidInputError{Field: "beneficiary", Reason: "must be linked before documents are submitted"}
	}

	if err := s.store.MarkUploadsSubmitted(ctx, orderID); err != nil {
		return order, domain.CollaboratorFailure("upload store", err)
	}
	return s.orders.Trigger(ctx, orderID, domain.TriggerDocumentsPlaced, &actor, nil)
}

// GenerateQuoteDocument renders the quote document for the order and
// records the download by forcing QuoteDownloaded. If the status
// update fails after the document exists, the handle is still
// returned and the failed transition can be retried; the generated
// document is not rolled back.
func (s *WorkflowService) GenerateQuoteDocument(ctx context.Context, orderID uuid.UUID, actor uuid.UUID, studentName string) (string, *models.Order, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return "", nil, err
	}

	if studentName == "" && order.SenderID != nil {
		if sender, err := s.store.GetSender(ctx, *order.SenderID); err == nil {
			studentName = sender.StudentName
		}
	}

	doc := docgen.QuoteDocument{
		OrderID:              order.ID,
		GeneratedAt:          time.Now().UTC(),
		StudentName:          studentName,
		Country:              order.Country,
		Purpose:              order.Purpose,
		Currency:             order.Currency,
		Amount:               order.Amount,
		CustomerRate:         order.CustomerRate,
		LocalAmount:          order.LocalAmount,
		BankFee:              order.BankFee,
		TaxOnConversion:      order.TaxOnConversion,
		TaxCollectedAtSource: order.TaxCollectedAtSource,
		TotalPayable:         order.TotalPayable,
		Partner:              s.partner,
		UploadLink:           fmt.Sprintf("%s/%s", s.uploadURL, order.ID),
	}

	start := time.Now()
	handle, err := s.docs.Generate(ctx, doc)
	observability.ObserveDocumentGeneration(err == nil, time.Since(start))
	if err != nil {
		return "", order, domain.CollaboratorFailure("document generation", err)
	}

	metadata, _ := json.Marshal(map[string]string{"document_handle": handle})
	order, err = s.orders.Trigger(ctx, orderID, domain.TriggerQuoteDownloaded, &actor, metadata)
	if err != nil {
		// The document exists; surface the handle with the failure so
		// the recording step can be retried on its own.
		return handle, order, err
	}
	return handle, order, nil
}
