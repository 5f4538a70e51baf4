package docgen

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memObjectStore struct {
	objects map[string][]byte
}

func (m *memObjectStore) Put(_ context.Context, key string, data []byte) error {
	if m.objects == nil {
		m.objects = make(map[string][]byte)
	}
	m.objects[key] = data
	return nil
}

func (m *memObjectStore) Remove(_ context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

func sampleDocument() QuoteDocument {
	dec := decimal.RequireFromString
	return QuoteDocument{
		OrderID:              uuid.New(),
		GeneratedAt:          time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC),
		StudentName:          "Asha Verma",
		Country:              "US",
		Purpose:              "university_fees",
		Currency:             "USD",
		Amount:               dec("1000"),
		CustomerRate:         dec("91.00"),
		LocalAmount:          dec("91000"),
		BankFee:              dec("1500"),
		TaxOnConversion:      dec("163.80"),
		TaxCollectedAtSource: dec("4550"),
		TotalPayable:         dec("97213.80"),
		Partner: PartnerBank{
			Name:          "Settle Bank",
			AccountName:   "EduPay Remit Collections",
			AccountNumber: "00991122334455",
			IFSC:          "SETL0000123",
		},
		UploadLink: "https://pay.test/upload/abc",
	}
}

func TestRender_ProducesPDF(t *testing.T) {
	data, err := Render(sampleDocument())
	require.NoError(t, err)
	require.NotEmpty(t, data)
	assert.Equal(t, "%PDF", string(data[:4]))
}

func TestGenerate_StoresUnderOrderKey(t *testing.T) {
	store := &memObjectStore{}
	gen := NewPDFGenerator(store)
	doc := sampleDocument()

	handle, err := gen.Generate(context.Background(), doc)
	require.NoError(t, err)
	assert.Contains(t, handle, doc.OrderID.String())

	data, ok := store.objects[handle]
	require.True(t, ok, "document stored under the returned handle")
	assert.Equal(t, "%PDF", string(data[:4]))
}
