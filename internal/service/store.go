package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/edupay/remit-orders/internal/domain"
	"github.com/edupay/remit-orders/internal/models"
)

// Store is the persistence contract the services depend on. It is
// implemented by repository.Repository; tests substitute an in-memory
// fake.
type Store interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	UpdateOrderPricing(ctx context.Context, order *models.Order) error
	TransitionOrderStatus(ctx context.Context, id uuid.UUID, next domain.Status, rec models.AuditRecord) error
	SetOrderSender(ctx context.Context, orderID, senderID uuid.UUID) error
	SetOrderBeneficiary(ctx context.Context, orderID, beneficiaryID uuid.UUID) error
	ListStaleQuotedOrders(ctx context.Context, cutoff time.Time, limit int32) ([]models.Order, error)

	CreateSender(ctx context.Context, sender *models.Sender) error
	GetSender(ctx context.Context, id uuid.UUID) (*models.Sender, error)
	GetSenderByOrder(ctx context.Context, orderID uuid.UUID) (*models.Sender, error)
	UpdateSender(ctx context.Context, sender *models.Sender) error

	CreateBeneficiary(ctx context.Context, b *models.Beneficiary) error
	GetBeneficiary(ctx context.Context, id uuid.UUID) (*models.Beneficiary, error)
	UpdateBeneficiary(ctx context.Context, b *models.Beneficiary) error
	ListActiveBeneficiaries(ctx context.Context, limit, offset int32) ([]models.Beneficiary, error)
	SetBeneficiaryActive(ctx context.Context, id uuid.UUID, active bool) error
	DeleteBeneficiary(ctx context.Context, id uuid.UUID) error

	CreateUpload(ctx context.Context, u *models.Upload) error
	ListPendingUploadsBefore(ctx context.Context, cutoff time.Time, limit int32) ([]models.Upload, error)
	MarkUploadsSubmitted(ctx context.Context, orderID uuid.UUID) error
	DeleteUpload(ctx context.Context, id uuid.UUID) error

	InsertAuditLog(ctx context.Context, rec models.AuditRecord) error
}

// RateSource supplies the forex partner's current reference (IBR)
// rate for a currency, used when the staff quote does not carry an
// explicit rate.
type RateSource interface {
	ReferenceRate(ctx context.Context, currency string) (decimal.Decimal, error)
}
