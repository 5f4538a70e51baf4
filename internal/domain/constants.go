package domain

// ChargeBearer identifies who absorbs intermediary bank fees.
type ChargeBearer string

const (
	BearerOUR ChargeBearer = "OUR"
	BearerBEN ChargeBearer = "BEN"
)

// Valid reports whether the bearer is one of the two wire conventions.
func (b ChargeBearer) Valid() bool {
	return b == BearerOUR || b == BearerBEN
}

// Remittance purposes accepted at quote time.
const (
	PurposeUniversityFees   = "university_fees"
	PurposeLivingExpenses   = "living_expenses"
	PurposeBlockedAccount   = "blocked_account"
	PurposeGICDeposit       = "gic_deposit"
	PurposeAccommodation    = "accommodation"
	PurposeExamFees         = "exam_fees"
	PurposeInsurancePremium = "insurance_premium"
)

var validPurposes = map[string]struct{}{
	PurposeUniversityFees:   {},
	PurposeLivingExpenses:   {},
	PurposeBlockedAccount:   {},
	PurposeGICDeposit:       {},
	PurposeAccommodation:    {},
	PurposeExamFees:         {},
	PurposeInsurancePremium: {},
}

// ValidPurpose reports whether the purpose code is known.
func ValidPurpose(p string) bool {
	_, ok := validPurposes[p]
	return ok
}

// PayerSelf marks a sender paying for their own studies; any other
// relationship requires a separately collected payer block.
const PayerSelf = "self"

// countryCurrencies maps destination countries to their default
// remittance currency. Blocked accounts force Germany/EUR.
var countryCurrencies = map[string]string{
	"US": "USD",
	"GB": "GBP",
	"DE": "EUR",
	"FR": "EUR",
	"IE": "EUR",
	"NL": "EUR",
	"CA": "CAD",
	"AU": "AUD",
	"NZ": "NZD",
	"SG": "SGD",
	"AE": "AED",
	"CH": "CHF",
}

// DefaultCurrency returns the currency for a destination country, or
// false when the country is not supported.
func DefaultCurrency(country string) (string, bool) {
	c, ok := countryCurrencies[country]
	return c, ok
}

var bankFieldRequirements = map[string][]string{
	"US": {"routing_number"},
	"GB": {"sort_code"},
	"CA": {"transit_number"},
	"AU": {"bsb_code"},
	"DE": {"iban"},
	"FR": {"iban"},
	"IE": {"iban"},
	"NL": {"iban"},
	"AE": {"iban"},
	"CH": {"iban"},
}

// RequiredBankFields lists the country-specific banking fields a
// beneficiary bank in the given country must carry, beyond account
// number and SWIFT code.
func RequiredBankFields(country string) []string {
	return bankFieldRequirements[country]
}
