package domain

import "github.com/shopspring/decimal"

// FeePolicy is the fixed bank-fee table keyed by charge bearer. The
// amounts are policy values injected from configuration.
type FeePolicy struct {
	ChargeOUR decimal.Decimal
	ChargeBEN decimal.Decimal
}

// DefaultFeePolicy returns the reference fee table (OUR 1500, BEN 300).
func DefaultFeePolicy() FeePolicy {
	return FeePolicy{
		ChargeOUR: decimal.NewFromInt(1500),
		ChargeBEN: decimal.NewFromInt(300),
	}
}

// Fee returns the bank fee for the given bearer.
func (p FeePolicy) Fee(bearer ChargeBearer) decimal.Decimal {
	if bearer == BearerOUR {
		return p.ChargeOUR
	}
	return p.ChargeBEN
}

// QuoteInput holds the pricing inputs of an order.
type QuoteInput struct {
	ReferenceRate    decimal.Decimal
	Margin           decimal.Decimal
	Amount           decimal.Decimal
	Bearer           ChargeBearer
	HasEducationLoan bool
}

// Validate checks the input constraints. Failures are field-scoped
// and independent of each other; the first violation is returned.
func (in QuoteInput) Validate() error {
	if in.Amount.LessThanOrEqual(decimal.Zero) {
		return invalidInput("amount", "must be greater than zero")
	}
	if in.Margin.IsNegative() {
		return invalidInput("margin", "must not be negative")
	}
	if in.ReferenceRate.LessThanOrEqual(decimal.Zero) {
		return invalidInput("reference_rate", "must be greater than zero")
	}
	if !in.Bearer.Valid() {
		return invalidInput("bank_charge_bearer", "must be OUR or BEN")
	}
	return nil
}

// QuoteBreakdown is the derived pricing of an order. It is a value
// object: it is embedded into the order's pricing-output fields and
// into the generated quote document, never persisted on its own.
type QuoteBreakdown struct {
	CustomerRate         decimal.Decimal
	LocalAmount          decimal.Decimal
	BankFee              decimal.Decimal
	TaxOnConversion      decimal.Decimal
	TaxCollectedAtSource decimal.Decimal
	TotalPayable         decimal.Decimal
}

// ComputeQuote prices a remittance. It is deterministic and free of
// side effects: identical inputs always yield identical output.
//
// CustomerRate is the reference rate plus margin rounded to two
// decimal places. LocalAmount rounds the converted amount to the
// nearest whole unit of local currency (half away from zero,
// consistently). Tax amounts come from the injected rule set; the
// education-loan waiver zeroes TCS.
func ComputeQuote(in QuoteInput, fees FeePolicy, taxes TaxRules) (QuoteBreakdown, error) {
	if err := in.Validate(); err != nil {
		return QuoteBreakdown{}, err
	}

	customerRate := in.ReferenceRate.Add(in.Margin).Round(2)
	localAmount := customerRate.Mul(in.Amount).Round(0)
	bankFee := fees.Fee(in.Bearer)
	gst := taxes.GST(localAmount)

	tcs := decimal.Zero
	if !in.HasEducationLoan {
		tcs = taxes.TCS(localAmount)
	}

	b := QuoteBreakdown{
		CustomerRate:         customerRate,
		LocalAmount:          localAmount,
		BankFee:              bankFee,
		TaxOnConversion:      gst,
		TaxCollectedAtSource: tcs,
	}
	b.TotalPayable = b.sum()
	return b, nil
}

// WithEducationLoan recomputes only the TCS line when the loan flag
// changes after a quote exists. The other components are untouched.
func (b QuoteBreakdown) WithEducationLoan(hasLoan bool, taxes TaxRules) QuoteBreakdown {
	if hasLoan {
		b.TaxCollectedAtSource = decimal.Zero
	} else {
		b.TaxCollectedAtSource = taxes.TCS(b.LocalAmount)
	}
	b.TotalPayable = b.sum()
	return b
}

// sum recomputes the total from the current component lines.
// TotalPayable is never independently mutated.
func (b QuoteBreakdown) sum() decimal.Decimal {
	return b.LocalAmount.
		Add(b.BankFee).
		Add(b.TaxOnConversion).
		Add(b.TaxCollectedAtSource)
}

// Equal reports whether two breakdowns carry identical values.
func (b QuoteBreakdown) Equal(o QuoteBreakdown) bool {
	return b.CustomerRate.Equal(o.CustomerRate) &&
		b.LocalAmount.Equal(o.LocalAmount) &&
		b.BankFee.Equal(o.BankFee) &&
		b.TaxOnConversion.Equal(o.TaxOnConversion) &&
		b.TaxCollectedAtSource.Equal(o.TaxCollectedAtSource) &&
		b.TotalPayable.Equal(o.TotalPayable)
}
