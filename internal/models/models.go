package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/edupay/remit-orders/internal/domain"
)

// Order is the central entity. Pricing outputs are always derived
// from the pricing inputs through the quote engine; TotalPayable is
// never independently mutated.
type Order struct {
	ID uuid.UUID `json:"id"`

	// Pricing inputs.
	Purpose          string              `json:"purpose"`
	Amount           decimal.Decimal     `json:"amount"`
	Currency         string              `json:"currency"`
	Country          string              `json:"country"`
	ReferenceRate    decimal.Decimal     `json:"reference_rate"`
	Margin           decimal.Decimal     `json:"margin"`
	SettlementRate   *decimal.Decimal    `json:"settlement_rate,omitempty"`
	Bearer           domain.ChargeBearer `json:"bank_charge_bearer"`
	HasEducationLoan bool                `json:"has_education_loan"`

	// Pricing outputs, recomputed whenever inputs change
	// pre-authorization.
	CustomerRate         decimal.Decimal `json:"customer_rate"`
	LocalAmount          decimal.Decimal `json:"local_amount"`
	BankFee              decimal.Decimal `json:"bank_fee"`
	TaxOnConversion      decimal.Decimal `json:"tax_on_conversion"`
	TaxCollectedAtSource decimal.Decimal `json:"tax_collected_at_source"`
	TotalPayable         decimal.Decimal `json:"total_payable"`

	// Workflow fields.
	Status           domain.Status `json:"status"`
	FxRateOverridden bool          `json:"fx_rate_overridden"`
	SenderID         *uuid.UUID    `json:"sender_id,omitempty"`
	BeneficiaryID    *uuid.UUID    `json:"beneficiary_id,omitempty"`
	CreatedBy        uuid.UUID     `json:"created_by"`
	QuotedAt         time.Time     `json:"quoted_at"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// Breakdown returns the order's pricing outputs as a value object.
func (o *Order) Breakdown() domain.QuoteBreakdown {
	return domain.QuoteBreakdown{
		CustomerRate:         o.CustomerRate,
		LocalAmount:          o.LocalAmount,
		BankFee:              o.BankFee,
		TaxOnConversion:      o.TaxOnConversion,
		TaxCollectedAtSource: o.TaxCollectedAtSource,
		TotalPayable:         o.TotalPayable,
	}
}

// ApplyBreakdown copies a computed breakdown into the order's
// pricing-output fields.
func (o *Order) ApplyBreakdown(b domain.QuoteBreakdown) {
	o.CustomerRate = b.CustomerRate
	o.LocalAmount = b.LocalAmount
	o.BankFee = b.BankFee
	o.TaxOnConversion = b.TaxOnConversion
	o.TaxCollectedAtSource = b.TaxCollectedAtSource
	o.TotalPayable = b.TotalPayable
}

// Sender is created in the context of exactly one order, though a
// historical sender may be looked up and reused across orders.
type Sender struct {
	ID      uuid.UUID `json:"id"`
	OrderID uuid.UUID `json:"order_id"`

	// Student identity and contact. When the payer relationship is
	// "self" these double as the payer contact fields.
	StudentName  string `json:"student_name"`
	StudentEmail string `json:"student_email"`
	StudentPhone string `json:"student_phone"`

	// Payer block, collected separately unless the payer is the
	// student themselves.
	PayerRelationship string `json:"payer_relationship"`
	PayerName         string `json:"payer_name,omitempty"`
	PayerPAN          string `json:"payer_pan,omitempty"`
	FundsSource       string `json:"funds_source,omitempty"`

	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2,omitempty"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postal_code"`
	Residency    string `json:"residency"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SelfPaying reports whether the sender-contact fields double as the
// student-contact fields.
func (s *Sender) SelfPaying() bool {
	return s.PayerRelationship == domain.PayerSelf
}

// IntermediaryBank is the optional routing block on a beneficiary.
type IntermediaryBank struct {
	BankName      string `json:"bank_name"`
	SwiftCode     string `json:"swift_code"`
	AccountNumber string `json:"account_number,omitempty"`
}

// Beneficiary is either owned by the order that created it or
// selected from the existing active set; selection does not mutate
// the record.
type Beneficiary struct {
	ID            uuid.UUID         `json:"id"`
	Name          string            `json:"name"`
	Country       string            `json:"country"`
	BankName      string            `json:"bank_name"`
	BankCountry   string            `json:"bank_country"`
	AccountNumber string            `json:"account_number"`
	SwiftCode     string            `json:"swift_code"`
	IBAN          string            `json:"iban,omitempty"`
	SortCode      string            `json:"sort_code,omitempty"`
	TransitNumber string            `json:"transit_number,omitempty"`
	BSBCode       string            `json:"bsb_code,omitempty"`
	RoutingNumber string            `json:"routing_number,omitempty"`
	Intermediary  *IntermediaryBank `json:"intermediary,omitempty"`
	Active        bool              `json:"active"`
	CreatedBy     uuid.UUID         `json:"created_by"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// Upload tracks a document object placed in external storage, so
// abandoned objects can be swept later.
type Upload struct {
	ID        uuid.UUID `json:"id"`
	OrderID   uuid.UUID `json:"order_id"`
	ObjectKey string    `json:"object_key"`
	Status    string    `json:"status"` // "pending" or "submitted"
	CreatedAt time.Time `json:"created_at"`
}

const (
	UploadStatusPending   = "pending"
	UploadStatusSubmitted = "submitted"
)

// AuditRecord is one immutable audit trail row.
type AuditRecord struct {
	EntityType string
	EntityID   uuid.UUID
	ActorID    *uuid.UUID
	Action     string
	PrevState  string
	NextState  string
	Metadata   []byte
}
