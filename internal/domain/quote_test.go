package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staticTaxRules returns fixed amounts so tests can assert totals
// without depending on the configured percentage tables.
type staticTaxRules struct {
	gst decimal.Decimal
	tcs decimal.Decimal
}

func (s staticTaxRules) GST(decimal.Decimal) decimal.Decimal { return s.gst }
func (s staticTaxRules) TCS(decimal.Decimal) decimal.Decimal { return s.tcs }
func (s staticTaxRules) Version() string                     { return "static-test" }

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestComputeQuote_ReferenceScenario(t *testing.T) {
	// amount=1000, rate=90.00, margin=1.00, bearer=OUR, no loan
	taxes := staticTaxRules{gst: dec("945.50"), tcs: dec("4550")}
	in := QuoteInput{
		ReferenceRate: dec("90.00"),
		Margin:        dec("1.00"),
		Amount:        dec("1000"),
		Bearer:        BearerOUR,
	}

	b, err := ComputeQuote(in, DefaultFeePolicy(), taxes)
	require.NoError(t, err)

	assert.True(t, b.CustomerRate.Equal(dec("91.00")), "customer rate %s", b.CustomerRate)
	assert.True(t, b.LocalAmount.Equal(dec("91000")), "local amount %s", b.LocalAmount)
	assert.True(t, b.BankFee.Equal(dec("1500")), "bank fee %s", b.BankFee)
	want := dec("91000").Add(dec("1500")).Add(taxes.gst).Add(taxes.tcs)
	assert.True(t, b.TotalPayable.Equal(want), "total %s want %s", b.TotalPayable, want)
}

func TestComputeQuote_EducationLoanWaivesTCS(t *testing.T) {
	taxes := staticTaxRules{gst: dec("945.50"), tcs: dec("4550")}
	in := QuoteInput{
		ReferenceRate:    dec("90.00"),
		Margin:           dec("1.00"),
		Amount:           dec("1000"),
		Bearer:           BearerOUR,
		HasEducationLoan: true,
	}

	b, err := ComputeQuote(in, DefaultFeePolicy(), taxes)
	require.NoError(t, err)

	assert.True(t, b.TaxCollectedAtSource.IsZero())
	// All other lines match the no-loan scenario.
	assert.True(t, b.CustomerRate.Equal(dec("91.00")))
	assert.True(t, b.LocalAmount.Equal(dec("91000")))
	assert.True(t, b.BankFee.Equal(dec("1500")))
	assert.True(t, b.TaxOnConversion.Equal(taxes.gst))
	assert.True(t, b.TotalPayable.Equal(dec("91000").Add(dec("1500")).Add(taxes.gst)))
}

func TestComputeQuote_BankFeeByBearer(t *testing.T) {
	taxes := staticTaxRules{}
	in := QuoteInput{ReferenceRate: dec("82.50"), Margin: dec("0.50"), Amount: dec("250"), Bearer: BearerOUR}

	our, err := ComputeQuote(in, DefaultFeePolicy(), taxes)
	require.NoError(t, err)
	assert.True(t, our.BankFee.Equal(dec("1500")))

	in.Bearer = BearerBEN
	ben, err := ComputeQuote(in, DefaultFeePolicy(), taxes)
	require.NoError(t, err)
	assert.True(t, ben.BankFee.Equal(dec("300")))
}

func TestComputeQuote_Idempotent(t *testing.T) {
	taxes := NewConfiguredTaxRules(dec("0.0018"), dec("0.05"), "fy26")
	in := QuoteInput{ReferenceRate: dec("89.37"), Margin: dec("0.85"), Amount: dec("1234.56"), Bearer: BearerBEN}

	first, err := ComputeQuote(in, DefaultFeePolicy(), taxes)
	require.NoError(t, err)
	second, err := ComputeQuote(in, DefaultFeePolicy(), taxes)
	require.NoError(t, err)

	assert.True(t, first.Equal(second))
}

func TestComputeQuote_Rounding(t *testing.T) {
	taxes := staticTaxRules{}
	tests := []struct {
		name      string
		rate      string
		margin    string
		amount    string
		wantRate  string
		wantLocal string
	}{
		{"exact", "90.00", "1.00", "1000", "91.00", "91000"},
		{"rate rounds to 2dp", "88.333", "0.444", "100", "88.78", "8878"},
		{"local rounds half up", "83.005", "0", "10", "83.01", "830"},
		{"fractional amount", "91.00", "0", "10.5", "91.00", "956"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := QuoteInput{
				ReferenceRate: dec(tt.rate),
				Margin:        dec(tt.margin),
				Amount:        dec(tt.amount),
				Bearer:        BearerBEN,
			}
			b, err := ComputeQuote(in, DefaultFeePolicy(), taxes)
			require.NoError(t, err)
			assert.True(t, b.CustomerRate.Equal(dec(tt.wantRate)), "customer rate %s want %s", b.CustomerRate, tt.wantRate)
			assert.True(t, b.LocalAmount.Equal(dec(tt.wantLocal)), "local amount %s want %s", b.LocalAmount, tt.wantLocal)
		})
	}
}

func TestComputeQuote_InvalidInputs(t *testing.T) {
	taxes := staticTaxRules{}
	tests := []struct {
		name string
		in   QuoteInput
	}{
		{"zero amount", QuoteInput{ReferenceRate: dec("90"), Margin: dec("1"), Amount: decimal.Zero, Bearer: BearerOUR}},
		{"negative amount", QuoteInput{ReferenceRate: dec("90"), Margin: dec("1"), Amount: dec("-5"), Bearer: BearerOUR}},
		{"negative margin", QuoteInput{ReferenceRate: dec("90"), Margin: dec("-0.01"), Amount: dec("100"), Bearer: BearerOUR}},
		{"zero rate", QuoteInput{ReferenceRate: decimal.Zero, Margin: dec("1"), Amount: dec("100"), Bearer: BearerOUR}},
		{"bad bearer", QuoteInput{ReferenceRate: dec("90"), Margin: dec("1"), Amount: dec("100"), Bearer: "SHA"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ComputeQuote(tt.in, DefaultFeePolicy(), taxes)
			require.Error(t, err)
			assert.True(t, IsInvalidInput(err))
		})
	}
}

func TestWithEducationLoan_IsolatedRecompute(t *testing.T) {
	taxes := NewConfiguredTaxRules(dec("0.0018"), dec("0.05"), "fy26")
	in := QuoteInput{ReferenceRate: dec("90.00"), Margin: dec("1.00"), Amount: dec("1000"), Bearer: BearerOUR}

	b, err := ComputeQuote(in, DefaultFeePolicy(), taxes)
	require.NoError(t, err)
	require.False(t, b.TaxCollectedAtSource.IsZero())

	waived := b.WithEducationLoan(true, taxes)
	assert.True(t, waived.TaxCollectedAtSource.IsZero())
	assert.True(t, waived.CustomerRate.Equal(b.CustomerRate))
	assert.True(t, waived.LocalAmount.Equal(b.LocalAmount))
	assert.True(t, waived.BankFee.Equal(b.BankFee))
	assert.True(t, waived.TaxOnConversion.Equal(b.TaxOnConversion))
	assert.True(t, waived.TotalPayable.Equal(b.TotalPayable.Sub(b.TaxCollectedAtSource)))

	restored := waived.WithEducationLoan(false, taxes)
	assert.True(t, restored.Equal(b))
}

func TestConfiguredTaxRules(t *testing.T) {
	rules := NewConfiguredTaxRules(dec("0.0018"), dec("0.05"), "fy26")
	local := dec("91000")

	assert.True(t, rules.GST(local).Equal(dec("163.80")), "gst %s", rules.GST(local))
	assert.True(t, rules.TCS(local).Equal(dec("4550")), "tcs %s", rules.TCS(local))
	assert.Equal(t, "fy26", rules.Version())
}
