package docgen

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"

	"github.com/edupay/remit-orders/internal/storage"
)

// PartnerBank holds the forex partner's settlement bank details
// printed on the quote document.
type PartnerBank struct {
	Name          string `json:"name"`
	BranchAddress string `json:"branch_address"`
	AccountName   string `json:"account_name"`
	AccountNumber string `json:"account_number"`
	IFSC          string `json:"ifsc"`
	SwiftCode     string `json:"swift_code"`
}

// QuoteDocument is the input to quote document generation: the
// order's pricing fields, the partner bank, and the order-id-bearing
// upload link.
type QuoteDocument struct {
	OrderID     uuid.UUID
	GeneratedAt time.Time
	StudentName string
	Country     string
	Purpose     string
	Currency    string

	Amount               decimal.Decimal
	CustomerRate         decimal.Decimal
	LocalAmount          decimal.Decimal
	BankFee              decimal.Decimal
	TaxOnConversion      decimal.Decimal
	TaxCollectedAtSource decimal.Decimal
	TotalPayable         decimal.Decimal

	Partner    PartnerBank
	UploadLink string
}

// Generator renders a quote document and returns a storage handle.
type Generator interface {
	Generate(ctx context.Context, doc QuoteDocument) (string, error)
}

// PDFGenerator renders quote documents as PDFs and writes them to the
// object store.
type PDFGenerator struct {
	store storage.ObjectStore
}

func NewPDFGenerator(store storage.ObjectStore) *PDFGenerator {
	return &PDFGenerator{store: store}
}

// Generate renders the PDF and stores it under a key derived from the
// order id. The key doubles as the document handle.
func (g *PDFGenerator) Generate(ctx context.Context, doc QuoteDocument) (string, error) {
	data, err := Render(doc)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("quotes/%s.pdf", doc.OrderID)
	if err := g.store.Put(ctx, key, data); err != nil {
		return "", fmt.Errorf("store quote document: %w", err)
	}
	return key, nil
}

// Render produces the quote document PDF bytes.
func Render(doc QuoteDocument) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(120, 10, "Forex Remittance Quote")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(60, 10, doc.GeneratedAt.Format("02 Jan 2006 15:04 MST"), "", 0, "R", false, 0, "")
	pdf.Ln(14)

	pdf.SetFont("Arial", "", 12)
	detail := func(label, value string) {
		pdf.SetFont("Arial", "B", 11)
		pdf.Cell(60, 8, label)
		pdf.SetFont("Arial", "", 11)
		pdf.Cell(120, 8, value)
		pdf.Ln(8)
	}

	detail("Order ID", doc.OrderID.String())
	detail("Student Name", doc.StudentName)
	detail("Destination Country", doc.Country)
	detail("Purpose", doc.Purpose)
	detail("Currency", doc.Currency)
	detail("Amount", doc.Amount.StringFixed(2)+" "+doc.Currency)
	detail("Customer Rate", doc.CustomerRate.StringFixed(2))
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(100, 8, "Payable Breakdown")
	pdf.Ln(9)

	line := func(label string, amount decimal.Decimal) {
		pdf.SetFont("Arial", "", 11)
		pdf.CellFormat(100, 7, label, "1", 0, "", false, 0, "")
		pdf.CellFormat(60, 7, amount.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.Ln(7)
	}
	line("Converted Amount", doc.LocalAmount)
	line("Bank Fee", doc.BankFee)
	line("GST on Conversion", doc.TaxOnConversion)
	line("Tax Collected at Source", doc.TaxCollectedAtSource)

	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(100, 8, "Total Payable", "1", 0, "", false, 0, "")
	pdf.CellFormat(60, 8, doc.TotalPayable.StringFixed(2), "1", 0, "R", false, 0, "")
	pdf.Ln(14)

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(100, 8, "Settlement Bank Details")
	pdf.Ln(9)
	detail("Bank", doc.Partner.Name)
	detail("Branch", doc.Partner.BranchAddress)
	detail("Account Name", doc.Partner.AccountName)
	detail("Account Number", doc.Partner.AccountNumber)
	detail("IFSC", doc.Partner.IFSC)
	detail("SWIFT", doc.Partner.SwiftCode)

	if doc.UploadLink != "" {
		pdf.Ln(4)
		pdf.SetFont("Arial", "I", 10)
		pdf.Cell(180, 8, "Upload your documents at: "+doc.UploadLink)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render quote pdf: %w", err)
	}
	return buf.Bytes(), nil
}
