package exemption

import (
	"testing"
	"time"

	"github.com/opensource-rail/redress/internal/domain"
)

func journeyIn(countries ...string) *domain.Journey {
	dep := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	j := &domain.Journey{}
	for _, cc := range countries {
		j.Legs = append(j.Legs, domain.Leg{
			CountryCode:        cc,
			ScheduledDeparture: dep,
			ScheduledArrival:   dep.Add(time.Hour),
		})
		dep = dep.Add(2 * time.Hour)
	}
	return j
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine()
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	e.LoadMatrix(BuiltinMatrix())
	if err := e.LoadOverrides(BuiltinOverrides()); err != nil {
		t.Fatalf("failed to load overrides: %v", err)
	}
	return e
}

func TestEmptyMatrixFailsOpen(t *testing.T) {
	e, err := NewEngine()
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}

	p := e.Resolve(journeyIn("DK"), domain.ScopeRegional)
	if p.Blocked {
		t.Error("empty matrix must not block")
	}
	if !p.Allows(domain.ArtCompensation) {
		t.Error("empty matrix must leave compensation active")
	}
	if len(p.Notes) == 0 {
		t.Error("fail-open must be surfaced in notes")
	}
}

func TestBlockedForcesCompensationArticlesOff(t *testing.T) {
	e := newTestEngine(t)

	p := e.Resolve(journeyIn("PL"), domain.ScopeRegional)
	if !p.Blocked {
		t.Fatal("PL regional must be blocked")
	}
	for _, art := range domain.CompensationArticles() {
		if p.Allows(art) {
			t.Errorf("blocked profile must disable %s", art)
		}
	}
	// Informational duties stay active.
	if !p.Allows(domain.ArtInformation) {
		t.Error("blocked profile must keep information duties active")
	}
}

func TestMostRestrictiveWinsAcrossLegs(t *testing.T) {
	e := newTestEngine(t)

	// DK leg alone has no exemption; adding an FR regional leg disables
	// compensation for the whole profile.
	p := e.Resolve(journeyIn("DK", "FR"), domain.ScopeRegional)
	if p.Allows(domain.ArtCompensation) {
		t.Error("FR regional leg must disable compensation for the whole journey")
	}
}

func TestSwedish150KmGate(t *testing.T) {
	e := newTestEngine(t)

	under := journeyIn("SE")
	km := 90.0
	under.TotalDistanceKm = &km
	p := e.Resolve(under, domain.ScopeRegional)
	if p.Allows(domain.ArtCompensation) {
		t.Error("SE regional under 150 km must be exempt from compensation")
	}

	over := journeyIn("SE")
	km2 := 200.0
	over.TotalDistanceKm = &km2
	p = e.Resolve(over, domain.ScopeRegional)
	if !p.Allows(domain.ArtCompensation) {
		t.Error("SE regional at 200 km must re-enable compensation")
	}
	if len(p.Notes) == 0 {
		t.Error("re-enabling override must attach a note")
	}

	// Unknown distance: the exemption stands (conservative).
	p = e.Resolve(journeyIn("SE"), domain.ScopeRegional)
	if p.Allows(domain.ArtCompensation) {
		t.Error("unknown distance must leave the SE exemption in place")
	}
}

func TestFinlandBeyondEUGate(t *testing.T) {
	e := newTestEngine(t)

	p := e.Resolve(journeyIn("FI", "RU"), domain.ScopeIntlBeyondEU)
	if p.Allows(domain.ArtThroughTicket) {
		t.Error("FI route touching RU must disable through-ticket article")
	}

	// Beyond-EU without RU/BY leaves Art. 12 alone.
	p = e.Resolve(journeyIn("FI", "NO"), domain.ScopeIntlBeyondEU)
	if !p.Allows(domain.ArtThroughTicket) {
		t.Error("FI beyond-EU without RU/BY must keep through-ticket active")
	}
}

func TestOverridePrecedenceMostSpecificWins(t *testing.T) {
	e, err := NewEngine()
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	e.LoadMatrix([]*domain.MatrixRecord{{
		Country: "DE", Scope: domain.ScopeLongDomestic,
		Disables: []domain.ArticleID{domain.ArtCompensation},
	}})

	// Operator-level override re-enables; product-level override for the
	// same journey disables again. Product beats operator.
	err = e.LoadOverrides([]*domain.OverrideRecord{
		{ID: "op-level", Country: "DE", Operator: "DB", Enables: []domain.ArticleID{domain.ArtCompensation}, Enabled: true},
		{ID: "prod-level", Country: "DE", Product: "ICE Sprinter", Disables: []domain.ArticleID{domain.ArtCompensation}, Enabled: true},
	})
	if err != nil {
		t.Fatalf("failed to load overrides: %v", err)
	}

	j := journeyIn("DE")
	j.Legs[0].Operator = "DB"
	j.Legs[0].ProductCategory = "ICE Sprinter"
	p := e.Resolve(j, domain.ScopeLongDomestic)
	if p.Allows(domain.ArtCompensation) {
		t.Error("product-level override must win over operator-level")
	}

	// Without the product on the journey only the operator override fires.
	j2 := journeyIn("DE")
	j2.Legs[0].Operator = "DB"
	p = e.Resolve(j2, domain.ScopeLongDomestic)
	if !p.Allows(domain.ArtCompensation) {
		t.Error("operator-level override must re-enable compensation")
	}
}

func TestInvalidConditionRejectsLoad(t *testing.T) {
	e, err := NewEngine()
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	err = e.LoadOverrides([]*domain.OverrideRecord{
		{ID: "bad", Country: "DE", Condition: "this is not CEL !!!", Enabled: true},
	})
	if err == nil {
		t.Error("expected error for invalid condition")
	}
}

func TestValidateOverride(t *testing.T) {
	e := newTestEngine(t)

	if err := e.ValidateOverride(&domain.OverrideRecord{ID: "ok", Country: "SE", Condition: "distance_km >= 150.0"}); err != nil {
		t.Errorf("valid condition must pass: %v", err)
	}
	if err := e.ValidateOverride(&domain.OverrideRecord{ID: "empty", Country: "SE"}); err != nil {
		t.Errorf("empty condition must pass: %v", err)
	}
	if err := e.ValidateOverride(&domain.OverrideRecord{ID: "bad", Country: "SE", Condition: "distance_km >>> 150"}); err == nil {
		t.Error("expected error for invalid condition")
	}

	// Validation must not disturb the loaded set.
	if e.OverrideCount() == 0 {
		t.Error("loaded overrides must survive validation")
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	e := newTestEngine(t)
	j := journeyIn("SE", "DK")
	a := e.Resolve(j, domain.ScopeIntlInsideEU)
	b := e.Resolve(j, domain.ScopeIntlInsideEU)
	if len(a.Articles) != len(b.Articles) || a.Blocked != b.Blocked {
		t.Fatal("resolve must be deterministic")
	}
	for art, on := range a.Articles {
		if b.Articles[art] != on {
			t.Errorf("article %s differs between runs", art)
		}
	}
}
