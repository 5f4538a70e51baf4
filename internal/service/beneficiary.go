package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/edupay/remit-orders/internal/domain"
	"github.com/edupay/remit-orders/internal/models"
)

// BeneficiaryInput carries the beneficiary form fields. Country-specific
// banking fields are validated against the bank country.
type BeneficiaryInput struct {
	Name          string
	Country       string
	BankName      string
	BankCountry   string
	AccountNumber string
	SwiftCode     string
	IBAN          string
	SortCode      string
	TransitNumber string
	BSBCode       string
	RoutingNumber string
	Intermediary  *models.IntermediaryBank
}

func (in BeneficiaryInput) validate() error {
	if in.Name == "" {
		return &domain.InvalidInputError{Field: "name", Reason: "is required"}
	}
	if in.BankName == "" {
		return &domain.InvalidInputError{Field: "bank_name", Reason: "is required"}
	}
	if in.BankCountry == "" {
		return &domain.InvalidInputError{Field: "bank_country", Reason: "is required"}
	}
	if in.AccountNumber == "" && in.IBAN == "" {
		return &domain.InvalidInputError{Field: "account_number", Reason: "either account number or IBAN is required"}
	}
	if in.SwiftCode == "" {
		return &domain.InvalidInputError{Field: "swift_code", Reason: "is required"}
	}
	for _, field := range domain.RequiredBankFields(in.BankCountry) {
		var v string
		switch field {
		case "iban":
			v = in.IBAN
		case "sort_code":
			v = in.SortCode
		case "transit_number":
			v = in.TransitNumber
		case "bsb_code":
			v = in.BSBCode
		case "routing_number":
			v = in.RoutingNumber
		}
		if v == "" {
			return &domain.InvalidInputError{Field: field, Reason: "is required for banks in " + in.BankCountry}
		}
	}
	if in.Intermediary != nil {
		if in.Intermediary.BankName == "" || in.Intermediary.SwiftCode == "" {
			return &domain.InvalidInputError{Field: "intermediary", Reason: "bank name and SWIFT code are required when an intermediary is given"}
		}
	}
	return nil
}

func newBeneficiary(in BeneficiaryInput, actor uuid.UUID) (*models.Beneficiary, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	return &models.Beneficiary{
		ID:            uuid.New(),
		Name:          in.Name,
		Country:       in.Country,
		BankName:      in.BankName,
		BankCountry:   in.BankCountry,
		AccountNumber: in.AccountNumber,
		SwiftCode:     in.SwiftCode,
		IBAN:          in.IBAN,
		SortCode:      in.SortCode,
		TransitNumber: in.TransitNumber,
		BSBCode:       in.BSBCode,
		RoutingNumber: in.RoutingNumber,
		Intermediary:  in.Intermediary,
		Active:        true,
		CreatedBy:     actor,
	}, nil
}

// BeneficiaryService manages the reusable beneficiary set outside any
// single order flow.
type BeneficiaryService struct {
	store Store
}

func NewBeneficiaryService(store Store) *BeneficiaryService {
	return &BeneficiaryService{store: store}
}

func (s *BeneficiaryService) Create(ctx context.Context, actor uuid.UUID, in BeneficiaryInput) (*models.Beneficiary, error) {
	beneficiary, err := newBeneficiary(in, actor)
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateBeneficiary(ctx, beneficiary); err != nil {
		return nil, domain.CollaboratorFailure("beneficiary store", err)
	}
	return beneficiary, nil
}

// Update edits the beneficiary record in place; the id is stable for
// the life of the record.
func (s *BeneficiaryService) Update(ctx context.Context, id uuid.UUID, in BeneficiaryInput) (*models.Beneficiary, error) {
	beneficiary, err := s.store.GetBeneficiary(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	beneficiary.Name = in.Name
	beneficiary.Country = in.Country
	beneficiary.BankName = in.BankName
	beneficiary.BankCountry = in.BankCountry
	beneficiary.AccountNumber = in.AccountNumber
	beneficiary.SwiftCode = in.SwiftCode
	beneficiary.IBAN = in.IBAN
	beneficiary.SortCode = in.SortCode
	beneficiary.TransitNumber = in.TransitNumber
	beneficiary.BSBCode = in.BSBCode
	beneficiary.RoutingNumber = in.RoutingNumber
	beneficiary.Intermediary = in.Intermediary
	if err := s.store.UpdateBeneficiary(ctx, beneficiary); err != nil {
		return nil, domain.CollaboratorFailure("beneficiary store", err)
	}
	return beneficiary, nil
}

func (s *BeneficiaryService) Get(ctx context.Context, id uuid.UUID) (*models.Beneficiary, error) {
	return s.store.GetBeneficiary(ctx, id)
}

// List returns the active, selectable set.
func (s *BeneficiaryService) List(ctx context.Context, limit, offset int32) ([]models.Beneficiary, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.store.ListActiveBeneficiaries(ctx, limit, offset)
}

// SetActive toggles whether the beneficiary appears in the selectable
// set. Deactivation does not touch orders already linked to it.
func (s *BeneficiaryService) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return s.store.SetBeneficiaryActive(ctx, id, active)
}

func (s *BeneficiaryService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.store.DeleteBeneficiary(ctx, id)
}
