package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edupay/remit-orders/internal/domain"
	"github.com/edupay/remit-orders/internal/models"
	"github.com/edupay/remit-orders/internal/service"
	"github.com/edupay/remit-orders/internal/testutil/memstore"
)

func TestBeneficiaryCreate_CountryBankFields(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*service.BeneficiaryInput)
		wantErr bool
	}{
		{name: "us with routing number", mutate: nil},
		{
			name: "us without routing number",
			mutate: func(in *service.BeneficiaryInput) {
				in.RoutingNumber = ""
			},
			wantErr: true,
		},
		{
			name: "gb requires sort code",
			mutate: func(in *service.BeneficiaryInput) {
				in.BankCountry = "GB"
				in.RoutingNumber = ""
			},
			wantErr: true,
		},
		{
			name: "gb with sort code",
			mutate: func(in *service.BeneficiaryInput) {
				in.BankCountry = "GB"
				in.RoutingNumber = ""
				in.SortCode = "04-00-04"
			},
		},
		{
			name: "de requires iban",
			mutate: func(in *service.BeneficiaryInput) {
				in.BankCountry = "DE"
				in.RoutingNumber = ""
			},
			wantErr: true,
		},
		{
			name: "de with iban",
			mutate: func(in *service.BeneficiaryInput) {
				in.BankCountry = "DE"
				in.RoutingNumber = ""
				in.AccountNumber = ""
				in.IBAN = "DE89370400440532013000"
			},
		},
		{
			name: "missing swift",
			mutate: func(in *service.BeneficiaryInput) {
				in.SwiftCode = ""
			},
			wantErr: true,
		},
		{
			name: "intermediary without swift",
			mutate: func(in *service.BeneficiaryInput) {
				in.Intermediary = &models.IntermediaryBank{BankName: "Mid Bank"}
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := service.NewBeneficiaryService(memstore.New())
			in := beneficiaryInput()
			if tt.mutate != nil {
				tt.mutate(&in)
			}
			b, err := svc.Create(context.Background(), uuid.New(), in)
			if tt.wantErr {
				assert.True(t, domain.IsInvalidInput(err), "want invalid input, got %v", err)
				return
			}
			require.NoError(t, err)
			assert.True(t, b.Active, "new beneficiaries are selectable")
		})
	}
}

func TestBeneficiaryUpdate_StableID(t *testing.T) {
	store := memstore.New()
	svc := service.NewBeneficiaryService(store)
	ctx := context.Background()

	b, err := svc.Create(ctx, uuid.New(), beneficiaryInput())
	require.NoError(t, err)

	in := beneficiaryInput()
	in.BankName = "Second National"
	updated, err := svc.Update(ctx, b.ID, in)
	require.NoError(t, err)
	assert.Equal(t, b.ID, updated.ID)
	assert.Equal(t, "Second National", updated.BankName)
}

func TestBeneficiaryList_ActiveOnly(t *testing.T) {
	store := memstore.New()
	svc := service.NewBeneficiaryService(store)
	ctx := context.Background()
	actor := uuid.New()

	a, err := svc.Create(ctx, actor, beneficiaryInput())
	require.NoError(t, err)
	b, err := svc.Create(ctx, actor, beneficiaryInput())
	require.NoError(t, err)
	require.NoError(t, svc.SetActive(ctx, b.ID, false))

	list, err := svc.List(ctx, 50, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, a.ID, list[0].ID)
}

func TestBeneficiaryDelete(t *testing.T) {
	store := memstore.New()
	svc := service.NewBeneficiaryService(store)
	ctx := context.Background()

	b, err := svc.Create(ctx, uuid.New(), beneficiaryInput())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, b.ID))
	_, err = svc.Get(ctx, b.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
