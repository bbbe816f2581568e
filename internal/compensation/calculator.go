// Package compensation turns an eligibility picture into a payable
// claim breakdown: refund or tiered delay compensation, downgrade
// proration, expense reimbursement, and the service fee.
package compensation

import (
	"context"
	"fmt"

	"github.com/opensource-rail/redress/internal/domain"
)

// deMinimisEUR is the payout floor: compensation below this is not paid.
const deMinimisEUR = 4.0

// Calculator computes claim breakdowns. Safe for concurrent use.
type Calculator struct {
	feePct  int
	feeMode domain.FeeMode
	rates   domain.RateProvider
}

// New builds a Calculator from the claim configuration. rates may be nil
// when every amount is already in the ticket currency.
func New(cfg domain.ClaimConfig, rates domain.RateProvider) *Calculator {
	return &Calculator{
		feePct:  cfg.ServiceFeePct,
		feeMode: cfg.ServiceFeeMode,
		rates:   rates,
	}
}

// Input is everything the calculator needs for one claim.
type Input struct {
	Journey *domain.Journey
	Scope   domain.Scope
	Profile *domain.ExemptionProfile
	Hooks   domain.Hooks
	Results []domain.EvaluationResult

	// Remedy is the passenger's choice. Refund-with-return excludes the
	// delay compensation tiers for the same disruption.
	Remedy domain.Remedy

	// DelayMinutes is the relevant arrival delay, -1 when unknown.
	DelayMinutes int

	Expenses        []domain.Expense
	AlreadyRefunded float64

	// DowngradeLegs are the leg indices the downgrade touched. Empty
	// means the whole journey.
	DowngradeLegs []int
}

// Calculate produces the full claim breakdown in the ticket currency.
// It never fails: missing data degrades to warnings, not errors.
func (c *Calculator) Calculate(ctx context.Context, in Input) domain.ClaimCalculation {
	price := in.Journey.TicketPrice.Amount
	calc := domain.ClaimCalculation{
		Currency:     in.Journey.TicketPrice.Currency,
		Compensation: domain.CompensationLine{Rule: "N/A"},
	}
	if calc.Currency == "" {
		calc.Currency = "EUR"
	}

	switch {
	case in.Remedy == domain.RemedyRefundReturn:
		// Refund and delay compensation are mutually exclusive.
		calc.Refund = domain.RefundLine{
			Amount: domain.Round2(price),
			Basis:  "full ticket price, journey abandoned with return",
		}
		calc.Compensation.Basis = "excluded: refund with return chosen"

	case agencyLiable(in) && c.qualifies(in):
		// Retailer-sold tickets settle against the transaction amount:
		// the fare back in full plus a flat 75% on top, no delay tiers.
		calc.Refund = domain.RefundLine{
			Amount: domain.Round2(price),
			Basis:  "full transaction amount, retailer-sold ticket",
		}
		calc.Compensation = domain.CompensationLine{
			Eligible:     true,
			DelayMinutes: in.DelayMinutes,
			Pct:          75,
			Amount:       domain.Round2(price * 0.75),
			Basis:        "transaction amount",
			Rule:         "RETAILER",
		}

	default:
		c.applyDowngrade(in, &calc)
		c.applyTiers(in, &calc)
	}

	c.applyExpenses(ctx, in, &calc)
	c.applyDeMinimis(ctx, &calc)

	gross := calc.Refund.Amount + calc.Compensation.Amount + calc.Expenses.Total
	if in.AlreadyRefunded > 0 {
		gross -= in.AlreadyRefunded
		calc.Warnings = append(calc.Warnings,
			fmt.Sprintf("deducted %.2f %s already refunded by the carrier", in.AlreadyRefunded, calc.Currency))
		if gross < 0 {
			gross = 0
		}
	}
	calc.GrossClaim = domain.Round2(gross)

	feeBase := calc.GrossClaim
	if c.feeMode == domain.FeeModeExpensesOnly {
		feeBase = calc.Expenses.Total
	}
	calc.Fees = domain.FeeLine{
		Pct:    c.feePct,
		Mode:   c.feeMode,
		Amount: domain.Floor2(feeBase * float64(c.feePct) / 100),
	}

	net := calc.GrossClaim - calc.Fees.Amount
	if net < 0 {
		net = 0
	}
	calc.NetToClaimant = domain.Floor2(net)
	return calc
}

// agencyLiable reports whether the retailer settlement basis applies:
// the ticket names an agency seller, or the through-ticket evaluator
// established agency liability from the purchase facts.
func agencyLiable(in Input) bool {
	if in.Journey.SellerType == domain.SellerAgency {
		return true
	}
	for i := range in.Results {
		if in.Results[i].Article == domain.ArtThroughTicket {
			return in.Results[i].Applies == domain.TriYes && in.Results[i].LiableParty == domain.SellerAgency
		}
	}
	return false
}

// qualifies reports whether a delay clears the first compensation tier
// and no void condition or exemption stands in the way.
func (c *Calculator) qualifies(in Input) bool {
	if in.Profile != nil && !in.Profile.Allows(domain.ArtCompensation) {
		return false
	}
	if c.voidReason(in.Hooks) != "" {
		return false
	}
	t, _ := thresholdsFor(in.Journey, in.Scope)
	return in.DelayMinutes >= t.FirstTierMin
}

// voidReason returns a human reason when a gatekeeper hook voids the
// compensation entitlement, or "".
func (c *Calculator) voidReason(hooks domain.Hooks) string {
	switch {
	case hooks.Tri(domain.HookPreNotifiedBeforeSale) == domain.TriYes:
		return "the delay was announced before the ticket was bought"
	case hooks.Tri(domain.HookSelfInflicted) == domain.TriYes:
		return "the disruption was caused by the passenger"
	case hooks.Tri(domain.HookExtraordinaryCause) == domain.TriYes:
		return "extraordinary circumstances outside railway operation"
	default:
		return ""
	}
}

func (c *Calculator) applyDowngrade(in Input, calc *domain.ClaimCalculation) {
	sev := downgradeSeverity(in.Hooks)
	if sev == domain.DowngradeNone {
		return
	}
	affected, dropped := validLegIndexes(in.Journey, in.DowngradeLegs)
	if dropped > 0 {
		calc.Warnings = append(calc.Warnings,
			fmt.Sprintf("%d downgrade leg reference(s) do not match a journey leg; ignored", dropped))
	}
	share, confident := affectedShare(in.Journey, affected)
	component := domain.Round2(in.Journey.TicketPrice.Amount * sev.Rate() * share)
	calc.Refund.DowngradeComponent = component
	calc.Refund.Amount = domain.Round2(calc.Refund.Amount + component)
	calc.Refund.Basis = fmt.Sprintf("downgrade %s: %.0f%% of fare over %.0f%% of the journey",
		sev, sev.Rate()*100, share*100)
	if !confident {
		calc.Warnings = append(calc.Warnings, "downgrade share defaulted to the whole journey; leg data incomplete")
	}
}

func (c *Calculator) applyTiers(in Input, calc *domain.ClaimCalculation) {
	line := &calc.Compensation
	line.DelayMinutes = in.DelayMinutes

	if in.Profile != nil && !in.Profile.Allows(domain.ArtCompensation) {
		line.Basis = "excluded by exemption profile"
		return
	}
	if reason := c.voidReason(in.Hooks); reason != "" {
		line.Basis = "void: " + reason
		return
	}
	if in.DelayMinutes < 0 {
		line.Basis = "final delay unknown"
		calc.Warnings = append(calc.Warnings, "delay compensation skipped: actual arrival is unknown")
		return
	}

	thresholds, rule := thresholdsFor(in.Journey, in.Scope)
	pct := tierPct(in.DelayMinutes, thresholds)
	if pct == 0 {
		line.Basis = fmt.Sprintf("delay below the %d minute threshold", thresholds.FirstTierMin)
		return
	}
	// A national scheme only matters when it opened a tier the
	// regulation would not have.
	if rule != "EU" && tierPct(in.DelayMinutes, euThresholds) >= pct {
		rule = "EU"
	}

	basisAmount, basisLabel := compensationBasis(in.Journey)
	line.Eligible = true
	line.Pct = pct
	line.Amount = domain.Round2(basisAmount * float64(pct) / 100)
	line.Basis = basisLabel
	line.Rule = rule
}

// ContractLine computes the delay compensation for one contract after a
// split. The basis is the contract's share of the ticket value; void
// conditions and exemptions apply exactly as for the whole journey.
func (c *Calculator) ContractLine(in Input, delay domain.ContractDelay, share float64) domain.CompensationLine {
	line := domain.CompensationLine{Rule: "N/A", DelayMinutes: delay.DelayMinutes}
	if delay.Status != domain.DelayStatusOK {
		line.DelayMinutes = -1
		line.Basis = "contract delay unknown"
		return line
	}
	if in.Profile != nil && !in.Profile.Allows(domain.ArtCompensation) {
		line.Basis = "excluded by exemption profile"
		return line
	}
	if reason := c.voidReason(in.Hooks); reason != "" {
		line.Basis = "void: " + reason
		return line
	}

	thresholds, rule := thresholdsFor(in.Journey, in.Scope)
	pct := tierPct(delay.DelayMinutes, thresholds)
	if pct == 0 {
		line.Basis = fmt.Sprintf("delay below the %d minute threshold", thresholds.FirstTierMin)
		return line
	}
	if rule != "EU" && tierPct(delay.DelayMinutes, euThresholds) >= pct {
		rule = "EU"
	}

	basis := in.Journey.TicketPrice.Amount * share
	line.Eligible = true
	line.Pct = pct
	line.Amount = domain.Round2(basis * float64(pct) / 100)
	line.Basis = fmt.Sprintf("%.0f%% share of the ticket value", share*100)
	line.Rule = rule
	return line
}

// compensationBasis picks the fare amount the tier percentage applies
// to: the delayed leg's own price when known, half the fare for an
// unsplit return ticket, else the whole fare.
func compensationBasis(j *domain.Journey) (float64, string) {
	if n := len(j.Legs); n > 1 {
		if p := j.Legs[n-1].Price; p != nil && *p > 0 {
			return *p, "delayed leg price"
		}
	}
	if j.ReturnTicket {
		return j.TicketPrice.Amount / 2, "half of the return fare"
	}
	return j.TicketPrice.Amount, "full ticket price"
}

// applyExpenses converts self-paid assistance expenses into the ticket
// currency. Expenses only enter the claim when the assistance breach is
// established; an unconvertible amount passes through unconverted with a
// warning rather than being dropped.
func (c *Calculator) applyExpenses(ctx context.Context, in Input, calc *domain.ClaimCalculation) {
	if len(in.Expenses) == 0 {
		return
	}
	if !assistanceBreached(in.Results) {
		calc.Warnings = append(calc.Warnings,
			"expenses submitted but the assistance breach is not established; excluded from the claim")
		return
	}

	line := domain.ExpenseLine{ByCategory: map[domain.ExpenseCategory]float64{}}
	for _, e := range in.Expenses {
		amount, err := c.convert(ctx, e.Amount, calc.Currency)
		if err != nil {
			amount = e.Amount.Amount
			calc.Warnings = append(calc.Warnings,
				fmt.Sprintf("no exchange rate for %s; %s expense carried over unconverted", e.Amount.Currency, e.Category))
		}
		line.ByCategory[e.Category] += domain.Round2(amount)
		line.Total = domain.Round2(line.Total + amount)
	}
	calc.Expenses = line
}

// applyDeMinimis zeroes a compensation amount below the regulation's
// payout floor.
func (c *Calculator) applyDeMinimis(ctx context.Context, calc *domain.ClaimCalculation) {
	if !calc.Compensation.Eligible || calc.Compensation.Amount <= 0 {
		return
	}
	floor := deMinimisEUR
	if calc.Currency != "EUR" {
		if c.rates == nil {
			return
		}
		rate, err := c.rates.Rate(ctx, calc.Currency)
		if err != nil || rate <= 0 {
			return
		}
		floor = deMinimisEUR * rate
	}
	if calc.Compensation.Amount < floor {
		calc.Warnings = append(calc.Warnings,
			fmt.Sprintf("compensation %.2f %s is below the payout floor and is not paid", calc.Compensation.Amount, calc.Currency))
		calc.Compensation.Amount = 0
		calc.Compensation.Eligible = false
	}
}

// convert turns an amount into the target currency using EUR-based
// rates (units per EUR).
func (c *Calculator) convert(ctx context.Context, m domain.Money, target string) (float64, error) {
	if m.Currency == target || m.Currency == "" {
		return m.Amount, nil
	}
	if c.rates == nil {
		return 0, domain.ErrRateUnavailable
	}
	inEUR := m.Amount
	if m.Currency != "EUR" {
		rate, err := c.rates.Rate(ctx, m.Currency)
		if err != nil {
			return 0, err
		}
		if rate <= 0 {
			return 0, domain.ErrRateUnavailable
		}
		inEUR = m.Amount / rate
	}
	if target == "EUR" {
		return inEUR, nil
	}
	rate, err := c.rates.Rate(ctx, target)
	if err != nil {
		return 0, err
	}
	return inEUR * rate, nil
}

func assistanceBreached(results []domain.EvaluationResult) bool {
	for i := range results {
		if results[i].Article == domain.ArtAssistance {
			return results[i].Applies == domain.TriYes
		}
	}
	return false
}
