package domain

import "github.com/shopspring/decimal"

// TaxRules is the external, versioned tax-rule collaborator. The
// quote engine depends on its contract only; the actual percentage
// tables live behind it, never in the engine.
type TaxRules interface {
	// GST returns the conversion-service tax on the local amount.
	GST(localAmount decimal.Decimal) decimal.Decimal
	// TCS returns the source-side tax on the local amount. The
	// education-loan waiver is applied by the engine, not here.
	TCS(localAmount decimal.Decimal) decimal.Decimal
	// Version identifies the rule set applied, for audit metadata.
	Version() string
}

// ConfiguredTaxRules applies flat configured percentages. The rates
// are policy values loaded from configuration, not constants.
type ConfiguredTaxRules struct {
	GSTPercent decimal.Decimal
	TCSPercent decimal.Decimal
	RuleSet    string
}

// NewConfiguredTaxRules builds the rule set from configured percent
// values (e.g. 0.18 for 18%).
func NewConfiguredTaxRules(gstPercent, tcsPercent decimal.Decimal, ruleSet string) *ConfiguredTaxRules {
	return &ConfiguredTaxRules{GSTPercent: gstPercent, TCSPercent: tcsPercent, RuleSet: ruleSet}
}

func (r *ConfiguredTaxRules) GST(localAmount decimal.Decimal) decimal.Decimal {
	return localAmount.Mul(r.GSTPercent).Round(2)
}

func (r *ConfiguredTaxRules) TCS(localAmount decimal.Decimal) decimal.Decimal {
	return localAmount.Mul(r.TCSPercent).Round(2)
}

func (r *ConfiguredTaxRules) Version() string {
	if r.RuleSet == "" {
		return "configured"
	}
	return r.RuleSet
}
