package domain

import "math"

// Remedy is the passenger's chosen remedy for a disruption. Refund and
// compensation are mutually exclusive for the same disruption.
type Remedy string

const (
	RemedyNone         Remedy = ""
	RemedyRefundReturn Remedy = "refund_return" // full refund, return to origin
	RemedyCompensation Remedy = "compensation"  // keep ticket, claim delay tiers
)

// FeeMode selects the base the service fee percentage applies to.
type FeeMode string

const (
	FeeModeGross        FeeMode = "gross"
	FeeModeExpensesOnly FeeMode = "expenses_only"
)

// ExpenseCategory classifies a self-paid assistance expense.
type ExpenseCategory string

const (
	ExpenseMeals        ExpenseCategory = "meals"
	ExpenseLodging      ExpenseCategory = "lodging"
	ExpenseAltTransport ExpenseCategory = "alt_transport"
	ExpenseOther        ExpenseCategory = "other"
)

// Expense is one self-paid amount in its original currency.
type Expense struct {
	Category ExpenseCategory `json:"category"`
	Amount   Money           `json:"amount"`
	Note     string          `json:"note,omitempty"`
}

// DowngradeSeverity grades what was lost relative to the booked product.
type DowngradeSeverity string

const (
	DowngradeNone      DowngradeSeverity = "none"
	DowngradeSeatClass DowngradeSeverity = "seat_class" // class step down: 25%
	DowngradeCouchette DowngradeSeverity = "couchette"  // lost couchette/reserved seat: 50%
	DowngradeSleeper   DowngradeSeverity = "sleeper"    // lost sleeper berth: 75%
)

// Rate returns the refund rate for the severity.
func (s DowngradeSeverity) Rate() float64 {
	switch s {
	case DowngradeSeatClass:
		return 0.25
	case DowngradeCouchette:
		return 0.50
	case DowngradeSleeper:
		return 0.75
	default:
		return 0
	}
}

// RefundLine is the refund portion of a claim.
type RefundLine struct {
	Amount float64 `json:"amount"`
	Basis  string  `json:"basis"`

	// DowngradeComponent is the downgrade proration included in Amount.
	DowngradeComponent float64 `json:"downgradeComponent,omitempty"`
}

// CompensationLine is the tiered delay compensation portion of a claim.
type CompensationLine struct {
	Eligible     bool    `json:"eligible"`
	DelayMinutes int     `json:"delayMinutes"`
	Pct          int     `json:"pct"`
	Amount       float64 `json:"amount"`
	Basis        string  `json:"basis"`
	Rule         string  `json:"rule"` // "EU", national scheme id, or "N/A"
}

// ExpenseLine is the reimbursable expenses portion of a claim.
type ExpenseLine struct {
	ByCategory map[ExpenseCategory]float64 `json:"byCategory,omitempty"`
	Total      float64                     `json:"total"`
}

// FeeLine is the service fee deducted from the gross claim.
type FeeLine struct {
	Pct    int     `json:"pct"`
	Mode   FeeMode `json:"mode"`
	Amount float64 `json:"amount"`
}

// ClaimCalculation is the final payable breakdown, always expressed in
// the ticket's currency. A new remedy choice produces a new calculation;
// the struct is never mutated after construction.
type ClaimCalculation struct {
	Refund       RefundLine       `json:"refund"`
	Compensation CompensationLine `json:"compensation"`
	Expenses     ExpenseLine      `json:"expenses"`
	Fees         FeeLine          `json:"fees"`

	GrossClaim    float64  `json:"grossClaim"`
	NetToClaimant float64  `json:"netToClaimant"`
	Currency      string   `json:"currency"`
	Warnings      []string `json:"warnings,omitempty"`
}

// Round2 rounds to two decimals, half away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Floor2 truncates to two decimals. Fees and net payouts are floored so
// rounding never overpays.
func Floor2(v float64) float64 {
	return math.Floor(v*100) / 100
}
