package compensation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/opensource-rail/redress/internal/domain"
)

func newCalc(rates domain.RateProvider) *Calculator {
	return New(domain.DefaultConfig().Claims, rates)
}

func openProfile() *domain.ExemptionProfile {
	p := &domain.ExemptionProfile{Scope: domain.ScopeIntlInsideEU, Articles: map[domain.ArticleID]bool{}}
	for _, a := range domain.AllArticles() {
		p.Articles[a] = true
	}
	return p
}

func simpleJourney(price float64) *domain.Journey {
	dep := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	return &domain.Journey{
		Legs: []domain.Leg{{
			From: "A", To: "B", CountryCode: "DE",
			ScheduledDeparture: dep,
			ScheduledArrival:   dep.Add(3 * time.Hour),
		}},
		TicketPrice: domain.Money{Amount: price, Currency: "EUR"},
	}
}

func TestFirstTierAt80Minutes(t *testing.T) {
	calc := newCalc(nil).Calculate(context.Background(), Input{
		Journey:      simpleJourney(300),
		Scope:        domain.ScopeIntlInsideEU,
		Profile:      openProfile(),
		DelayMinutes: 80,
	})
	if !calc.Compensation.Eligible || calc.Compensation.Pct != 25 {
		t.Fatalf("pct = %d eligible=%v, want 25/true", calc.Compensation.Pct, calc.Compensation.Eligible)
	}
	if calc.Compensation.Amount != 75 {
		t.Errorf("amount = %.2f, want 75.00", calc.Compensation.Amount)
	}
	if calc.Compensation.Rule != "EU" {
		t.Errorf("rule = %s, want EU", calc.Compensation.Rule)
	}
}

func TestSecondTierAt150Minutes(t *testing.T) {
	calc := newCalc(nil).Calculate(context.Background(), Input{
		Journey:      simpleJourney(300),
		Scope:        domain.ScopeIntlInsideEU,
		Profile:      openProfile(),
		DelayMinutes: 150,
	})
	if calc.Compensation.Pct != 50 || calc.Compensation.Amount != 150 {
		t.Errorf("got %d%% / %.2f, want 50%% / 150.00", calc.Compensation.Pct, calc.Compensation.Amount)
	}
}

func TestRefundExcludesCompensation(t *testing.T) {
	calc := newCalc(nil).Calculate(context.Background(), Input{
		Journey:      simpleJourney(300),
		Scope:        domain.ScopeIntlInsideEU,
		Profile:      openProfile(),
		Remedy:       domain.RemedyRefundReturn,
		DelayMinutes: 150,
	})
	if calc.Refund.Amount != 300 {
		t.Errorf("refund = %.2f, want 300.00", calc.Refund.Amount)
	}
	if calc.Compensation.Eligible || calc.Compensation.Amount != 0 {
		t.Errorf("compensation must be excluded alongside a refund, got %.2f", calc.Compensation.Amount)
	}
}

func TestDowngradeSleeperHalfJourney(t *testing.T) {
	d := 100.0
	j := simpleJourney(200)
	j.Legs[0].DistanceKm = &d
	j.Legs = append(j.Legs, j.Legs[0])
	hooks := domain.Hooks{
		domain.HookReservedAmenityDelivered: "no",
		domain.HookBerthTypeBooked:          "sleeper",
	}
	calc := newCalc(nil).Calculate(context.Background(), Input{
		Journey:       j,
		Scope:         domain.ScopeIntlInsideEU,
		Profile:       openProfile(),
		Hooks:         hooks,
		DelayMinutes:  10,
		DowngradeLegs: []int{0},
	})
	if calc.Refund.DowngradeComponent != 75 {
		t.Errorf("downgrade = %.2f, want 75.00 (75%% of fare over half the journey)", calc.Refund.DowngradeComponent)
	}
	if calc.Compensation.Eligible {
		t.Error("a 10 minute delay must not open the compensation tiers")
	}
}

func TestRetailerSoldTicket(t *testing.T) {
	j := simpleJourney(50)
	j.SellerType = domain.SellerAgency
	calc := newCalc(nil).Calculate(context.Background(), Input{
		Journey:      j,
		Scope:        domain.ScopeIntlInsideEU,
		Profile:      openProfile(),
		DelayMinutes: 90,
	})
	if calc.Refund.Amount != 50 {
		t.Errorf("refund = %.2f, want the full 50.00 transaction amount", calc.Refund.Amount)
	}
	if calc.Compensation.Amount != 37.5 || calc.Compensation.Pct != 75 {
		t.Errorf("compensation = %.2f at %d%%, want 37.50 at 75%%", calc.Compensation.Amount, calc.Compensation.Pct)
	}
	if calc.Compensation.Rule != "RETAILER" {
		t.Errorf("rule = %s, want RETAILER", calc.Compensation.Rule)
	}
}

func TestRetailerBasisFromEstablishedAgencyLiability(t *testing.T) {
	// Seller type not on the ticket; the through-ticket evaluator pinned
	// agency liability from the purchase facts.
	j := simpleJourney(50)
	j.SellerType = domain.SellerUnknown
	calc := newCalc(nil).Calculate(context.Background(), Input{
		Journey:      j,
		Scope:        domain.ScopeIntlInsideEU,
		Profile:      openProfile(),
		DelayMinutes: 90,
		Results: []domain.EvaluationResult{{
			Article:     domain.ArtThroughTicket,
			Applies:     domain.TriYes,
			LiableParty: domain.SellerAgency,
		}},
	})
	if calc.Refund.Amount != 50 {
		t.Errorf("refund = %.2f, want the full 50.00 transaction amount", calc.Refund.Amount)
	}
	if calc.Compensation.Amount != 37.5 || calc.Compensation.Pct != 75 {
		t.Errorf("compensation = %.2f at %d%%, want 37.50 at 75%%", calc.Compensation.Amount, calc.Compensation.Pct)
	}
	if calc.Compensation.Rule != "RETAILER" {
		t.Errorf("rule = %s, want RETAILER", calc.Compensation.Rule)
	}
}

func TestDowngradeLegOutOfRangeIgnored(t *testing.T) {
	hooks := domain.Hooks{
		domain.HookReservedAmenityDelivered: "no",
		domain.HookBerthTypeBooked:          "sleeper",
	}
	calc := newCalc(nil).Calculate(context.Background(), Input{
		Journey:       simpleJourney(200),
		Scope:         domain.ScopeIntlInsideEU,
		Profile:       openProfile(),
		Hooks:         hooks,
		DelayMinutes:  10,
		DowngradeLegs: []int{7, -1},
	})
	// Both references dropped: the share defaults to the whole journey.
	if calc.Refund.DowngradeComponent != 150 {
		t.Errorf("downgrade = %.2f, want 150.00 (75%% of fare over the whole journey)", calc.Refund.DowngradeComponent)
	}
	if len(calc.Warnings) == 0 {
		t.Error("dropped downgrade leg references must leave a warning")
	}
}

func TestExemptProfileZeroesCompensation(t *testing.T) {
	p := openProfile()
	p.Articles[domain.ArtCompensation] = false
	calc := newCalc(nil).Calculate(context.Background(), Input{
		Journey:      simpleJourney(300),
		Scope:        domain.ScopeRegional,
		Profile:      p,
		DelayMinutes: 150,
	})
	if calc.Compensation.Eligible || calc.Compensation.Amount != 0 {
		t.Errorf("exempt profile: got %.2f, want 0", calc.Compensation.Amount)
	}
}

func TestNationalSchemeOpensFirstTierEarly(t *testing.T) {
	j := simpleJourney(100)
	j.Legs[0].CountryCode = "FR"
	j.OperatorCountry = "FR"
	calc := newCalc(nil).Calculate(context.Background(), Input{
		Journey:      j,
		Scope:        domain.ScopeLongDomestic,
		Profile:      openProfile(),
		DelayMinutes: 45,
	})
	if calc.Compensation.Pct != 25 || calc.Compensation.Amount != 25 {
		t.Fatalf("got %d%% / %.2f, want 25%% / 25.00", calc.Compensation.Pct, calc.Compensation.Amount)
	}
	if calc.Compensation.Rule != "fr_g30" {
		t.Errorf("rule = %s, want fr_g30", calc.Compensation.Rule)
	}
}

func TestNationalSchemeFromLegCountry(t *testing.T) {
	// The leg country alone carries the scheme; no operator hint set.
	j := simpleJourney(100)
	j.Legs[0].CountryCode = "FR"
	calc := newCalc(nil).Calculate(context.Background(), Input{
		Journey:      j,
		Scope:        domain.ScopeLongDomestic,
		Profile:      openProfile(),
		DelayMinutes: 45,
	})
	if calc.Compensation.Pct != 25 || calc.Compensation.Rule != "fr_g30" {
		t.Errorf("got %d%% rule=%s, want 25%% under fr_g30", calc.Compensation.Pct, calc.Compensation.Rule)
	}
}

func TestNationalSchemeIgnoredForInternationalScope(t *testing.T) {
	j := simpleJourney(100)
	j.Legs[0].CountryCode = "FR"
	calc := newCalc(nil).Calculate(context.Background(), Input{
		Journey:      j,
		Scope:        domain.ScopeIntlInsideEU,
		Profile:      openProfile(),
		DelayMinutes: 45,
	})
	if calc.Compensation.Eligible {
		t.Error("national schemes must not reach beyond domestic scopes")
	}
}

func TestNationalSchemeNeverTouchesSecondTier(t *testing.T) {
	j := simpleJourney(100)
	j.Legs[0].CountryCode = "FR"
	calc := newCalc(nil).Calculate(context.Background(), Input{
		Journey:      j,
		Scope:        domain.ScopeLongDomestic,
		Profile:      openProfile(),
		DelayMinutes: 130,
	})
	if calc.Compensation.Pct != 50 || calc.Compensation.Rule != "EU" {
		t.Errorf("got %d%% rule=%s, want the EU 50%% tier", calc.Compensation.Pct, calc.Compensation.Rule)
	}
}

func TestVoidByExtraordinaryCircumstances(t *testing.T) {
	calc := newCalc(nil).Calculate(context.Background(), Input{
		Journey:      simpleJourney(300),
		Scope:        domain.ScopeIntlInsideEU,
		Profile:      openProfile(),
		Hooks:        domain.Hooks{domain.HookExtraordinaryCause: "yes"},
		DelayMinutes: 150,
	})
	if calc.Compensation.Eligible || calc.Compensation.Amount != 0 {
		t.Errorf("extraordinary circumstances must void the entitlement, got %.2f", calc.Compensation.Amount)
	}
}

func TestUnknownDelayNeverPays(t *testing.T) {
	calc := newCalc(nil).Calculate(context.Background(), Input{
		Journey:      simpleJourney(300),
		Scope:        domain.ScopeIntlInsideEU,
		Profile:      openProfile(),
		DelayMinutes: -1,
	})
	if calc.Compensation.Eligible {
		t.Error("unknown delay must not produce a payout")
	}
	if len(calc.Warnings) == 0 {
		t.Error("skipping on unknown delay must leave a warning")
	}
}

func TestReturnTicketHalvesBasis(t *testing.T) {
	j := simpleJourney(200)
	j.ReturnTicket = true
	calc := newCalc(nil).Calculate(context.Background(), Input{
		Journey:      j,
		Scope:        domain.ScopeIntlInsideEU,
		Profile:      openProfile(),
		DelayMinutes: 80,
	})
	if calc.Compensation.Amount != 25 {
		t.Errorf("amount = %.2f, want 25.00 (25%% of half the 200 return fare)", calc.Compensation.Amount)
	}
}

func TestDelayedLegPriceAsBasis(t *testing.T) {
	p1, p2 := 60.0, 40.0
	j := simpleJourney(100)
	j.Legs = append(j.Legs, j.Legs[0])
	j.Legs[0].Price = &p1
	j.Legs[1].Price = &p2
	calc := newCalc(nil).Calculate(context.Background(), Input{
		Journey:      j,
		Scope:        domain.ScopeIntlInsideEU,
		Profile:      openProfile(),
		DelayMinutes: 80,
	})
	if calc.Compensation.Amount != 10 {
		t.Errorf("amount = %.2f, want 10.00 (25%% of the delayed leg's 40.00)", calc.Compensation.Amount)
	}
}

func TestFeeAndNetOnGross(t *testing.T) {
	calc := newCalc(nil).Calculate(context.Background(), Input{
		Journey:      simpleJourney(300),
		Scope:        domain.ScopeIntlInsideEU,
		Profile:      openProfile(),
		DelayMinutes: 80,
	})
	if calc.GrossClaim != 75 {
		t.Fatalf("gross = %.2f, want 75.00", calc.GrossClaim)
	}
	if calc.Fees.Amount != 18.75 {
		t.Errorf("fee = %.2f, want 18.75", calc.Fees.Amount)
	}
	if calc.NetToClaimant != 56.25 {
		t.Errorf("net = %.2f, want 56.25", calc.NetToClaimant)
	}
}

func TestAlreadyRefundedDeducted(t *testing.T) {
	calc := newCalc(nil).Calculate(context.Background(), Input{
		Journey:         simpleJourney(300),
		Scope:           domain.ScopeIntlInsideEU,
		Profile:         openProfile(),
		DelayMinutes:    80,
		AlreadyRefunded: 25,
	})
	if calc.GrossClaim != 50 {
		t.Errorf("gross = %.2f, want 50.00 after the prior refund", calc.GrossClaim)
	}
}

func TestDeMinimisFloor(t *testing.T) {
	calc := newCalc(nil).Calculate(context.Background(), Input{
		Journey:      simpleJourney(10),
		Scope:        domain.ScopeIntlInsideEU,
		Profile:      openProfile(),
		DelayMinutes: 80,
	})
	if calc.Compensation.Amount != 0 || calc.Compensation.Eligible {
		t.Errorf("2.50 is below the payout floor, got %.2f", calc.Compensation.Amount)
	}
}

func assistanceYes() []domain.EvaluationResult {
	return []domain.EvaluationResult{{Article: domain.ArtAssistance, Applies: domain.TriYes}}
}

func TestExpensesConverted(t *testing.T) {
	rates := domain.RateFunc(func(ctx context.Context, currency string) (float64, error) {
		if currency == "SEK" {
			return 11.0, nil
		}
		return 0, domain.ErrRateUnavailable
	})
	calc := newCalc(rates).Calculate(context.Background(), Input{
		Journey:      simpleJourney(300),
		Scope:        domain.ScopeIntlInsideEU,
		Profile:      openProfile(),
		DelayMinutes: 80,
		Results:      assistanceYes(),
		Expenses: []domain.Expense{
			{Category: domain.ExpenseMeals, Amount: domain.Money{Amount: 220, Currency: "SEK"}},
		},
	})
	if calc.Expenses.Total != 20 {
		t.Errorf("expenses = %.2f, want 20.00 (220 SEK at 11 per EUR)", calc.Expenses.Total)
	}
}

func TestExpensesUnconvertiblePassThrough(t *testing.T) {
	rates := domain.RateFunc(func(ctx context.Context, currency string) (float64, error) {
		return 0, domain.ErrRateUnavailable
	})
	calc := newCalc(rates).Calculate(context.Background(), Input{
		Journey:      simpleJourney(300),
		Scope:        domain.ScopeIntlInsideEU,
		Profile:      openProfile(),
		DelayMinutes: 80,
		Results:      assistanceYes(),
		Expenses: []domain.Expense{
			{Category: domain.ExpenseLodging, Amount: domain.Money{Amount: 90, Currency: "CHF"}},
		},
	})
	if calc.Expenses.Total != 90 {
		t.Errorf("unconvertible expense must pass through, got %.2f", calc.Expenses.Total)
	}
	if len(calc.Warnings) == 0 {
		t.Error("pass-through must leave a warning")
	}
}

func TestExpensesExcludedWithoutBreach(t *testing.T) {
	calc := newCalc(nil).Calculate(context.Background(), Input{
		Journey:      simpleJourney(300),
		Scope:        domain.ScopeIntlInsideEU,
		Profile:      openProfile(),
		DelayMinutes: 80,
		Expenses: []domain.Expense{
			{Category: domain.ExpenseMeals, Amount: domain.Money{Amount: 15, Currency: "EUR"}},
		},
	})
	if calc.Expenses.Total != 0 {
		t.Errorf("expenses without an established breach must not enter the claim, got %.2f", calc.Expenses.Total)
	}
}

func TestNetNeverNegative(t *testing.T) {
	calc := newCalc(nil).Calculate(context.Background(), Input{
		Journey:         simpleJourney(300),
		Scope:           domain.ScopeIntlInsideEU,
		Profile:         openProfile(),
		DelayMinutes:    80,
		AlreadyRefunded: 500,
	})
	if calc.NetToClaimant != 0 || calc.GrossClaim != 0 {
		t.Errorf("over-refunded claim must clamp to zero, got gross %.2f net %.2f", calc.GrossClaim, calc.NetToClaimant)
	}
}

func TestRateProviderErrorIsSentinel(t *testing.T) {
	rates := domain.RateFunc(func(ctx context.Context, currency string) (float64, error) {
		return 0, domain.ErrRateUnavailable
	})
	_, err := rates.Rate(context.Background(), "NOK")
	if !errors.Is(err, domain.ErrRateUnavailable) {
		t.Errorf("got %v, want ErrRateUnavailable", err)
	}
}
