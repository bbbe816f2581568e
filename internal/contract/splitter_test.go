package contract

import (
	"testing"
	"time"

	"github.com/opensource-rail/redress/internal/domain"
)

func ts(h, m int) time.Time {
	return time.Date(2025, 6, 1, h, m, 0, 0, time.UTC)
}

func tsp(h, m int) *time.Time {
	t := ts(h, m)
	return &t
}

func TestSplitTicketIDBeatsPNR(t *testing.T) {
	j := &domain.Journey{
		Legs: []domain.Leg{
			{From: "A", To: "B", TicketID: "T1", PNR: "SHARED", ScheduledDeparture: ts(8, 0), ScheduledArrival: ts(9, 0)},
			{From: "B", To: "C", TicketID: "T2", PNR: "SHARED", ScheduledDeparture: ts(9, 30), ScheduledArrival: ts(11, 0)},
		},
	}
	contracts := Split(j)
	if len(contracts) != 2 {
		t.Fatalf("got %d contracts, want 2 (distinct ticket ids outrank a shared PNR)", len(contracts))
	}
}

func TestSplitSharedPNRGroups(t *testing.T) {
	j := &domain.Journey{
		Legs: []domain.Leg{
			{From: "A", To: "B", PNR: "P1", Operator: "DB", ScheduledDeparture: ts(8, 0), ScheduledArrival: ts(9, 0)},
			{From: "B", To: "C", PNR: "P1", Operator: "SNCF", ScheduledDeparture: ts(9, 30), ScheduledArrival: ts(11, 0)},
			{From: "C", To: "D", PNR: "P2", Operator: "SNCF", ScheduledDeparture: ts(12, 0), ScheduledArrival: ts(13, 0)},
		},
	}
	contracts := Split(j)
	if len(contracts) != 2 {
		t.Fatalf("got %d contracts, want 2", len(contracts))
	}
	if got := contracts[0].Operators; len(got) != 2 {
		t.Errorf("first contract operators = %v, want both carriers", got)
	}
	if contracts[0].LegIndexes[0] != 0 || contracts[0].LegIndexes[1] != 1 {
		t.Errorf("leg grouping wrong: %v", contracts[0].LegIndexes)
	}
}

func TestSplitFallbackOperatorDate(t *testing.T) {
	j := &domain.Journey{
		Legs: []domain.Leg{
			{From: "A", To: "B", Operator: "DB", ScheduledDeparture: ts(8, 0), ScheduledArrival: ts(9, 0)},
			{From: "B", To: "C", Operator: "DB", ScheduledDeparture: ts(9, 30), ScheduledArrival: ts(11, 0)},
			{From: "C", To: "D", Operator: "SJ", ScheduledDeparture: ts(12, 0), ScheduledArrival: ts(13, 0)},
		},
	}
	contracts := Split(j)
	if len(contracts) != 2 {
		t.Fatalf("got %d contracts, want 2 (same operator + date groups)", len(contracts))
	}
}

func TestSplitLiablePartyAgencySeller(t *testing.T) {
	j := &domain.Journey{
		SellerType: domain.SellerAgency,
		Legs: []domain.Leg{
			{From: "A", To: "B", PNR: "P1", ScheduledDeparture: ts(8, 0), ScheduledArrival: ts(9, 0)},
		},
	}
	contracts := Split(j)
	if contracts[0].LiableParty != domain.SellerAgency {
		t.Errorf("got liable=%s, want agency", contracts[0].LiableParty)
	}
}

func TestSplitValueSharesByPrice(t *testing.T) {
	p1, p2 := 30.0, 70.0
	j := &domain.Journey{
		Legs: []domain.Leg{
			{From: "A", To: "B", PNR: "P1", Price: &p1, ScheduledDeparture: ts(8, 0), ScheduledArrival: ts(9, 0)},
			{From: "B", To: "C", PNR: "P2", Price: &p2, ScheduledDeparture: ts(9, 30), ScheduledArrival: ts(11, 0)},
		},
	}
	contracts := Split(j)
	if contracts[0].TicketValueShare != 0.3 || contracts[1].TicketValueShare != 0.7 {
		t.Errorf("value shares = %.2f/%.2f, want 0.30/0.70",
			contracts[0].TicketValueShare, contracts[1].TicketValueShare)
	}
}

func TestSplitValueSharesByDurationWhenUnpriced(t *testing.T) {
	j := &domain.Journey{
		Legs: []domain.Leg{
			{From: "A", To: "B", PNR: "P1", ScheduledDeparture: ts(8, 0), ScheduledArrival: ts(9, 0)},
			{From: "B", To: "C", PNR: "P2", ScheduledDeparture: ts(9, 0), ScheduledArrival: ts(12, 0)},
		},
	}
	contracts := Split(j)
	if contracts[0].TicketValueShare != 0.25 || contracts[1].TicketValueShare != 0.75 {
		t.Errorf("value shares = %.2f/%.2f, want 0.25/0.75",
			contracts[0].TicketValueShare, contracts[1].TicketValueShare)
	}
}

func TestDelayAtLastLeg(t *testing.T) {
	j := &domain.Journey{
		Legs: []domain.Leg{
			{From: "A", To: "B", PNR: "P1", ScheduledDeparture: ts(8, 0), ScheduledArrival: ts(9, 0), ActualArrival: tsp(9, 5)},
			{From: "B", To: "C", PNR: "P1", ScheduledDeparture: ts(9, 30), ScheduledArrival: ts(11, 0), ActualArrival: tsp(12, 20)},
		},
	}
	contracts := Split(j)
	d := Delay(j, &contracts[0])
	if d.Status != domain.DelayStatusOK {
		t.Fatalf("status = %s, want OK", d.Status)
	}
	if d.DelayMinutes != 80 {
		t.Errorf("delay = %d min, want 80 (last leg only)", d.DelayMinutes)
	}
}

func TestDelayMissingActual(t *testing.T) {
	j := &domain.Journey{
		Legs: []domain.Leg{
			{From: "A", To: "B", PNR: "P1", ScheduledDeparture: ts(8, 0), ScheduledArrival: ts(9, 0)},
		},
	}
	contracts := Split(j)
	d := Delay(j, &contracts[0])
	if d.Status != domain.DelayStatusMissingActual {
		t.Errorf("status = %s, want MISSING_ACTUAL", d.Status)
	}
}

func TestDelayEarlyArrivalClampsToZero(t *testing.T) {
	j := &domain.Journey{
		Legs: []domain.Leg{
			{From: "A", To: "B", PNR: "P1", ScheduledDeparture: ts(8, 0), ScheduledArrival: ts(9, 0), ActualArrival: tsp(8, 50)},
		},
	}
	contracts := Split(j)
	if d := Delay(j, &contracts[0]); d.DelayMinutes != 0 {
		t.Errorf("early arrival: delay = %d, want 0", d.DelayMinutes)
	}
}

func TestCheckConnectionsVerdicts(t *testing.T) {
	cases := []struct {
		name    string
		station string
		gapMin  int
		want    domain.Tri
	}{
		{"impossible sprint", "Berlin Hbf", 3, domain.TriNo},
		{"comfortable", "Berlin Hbf", 15, domain.TriYes},
		{"grey zone", "Berlin Hbf", 6, domain.TriUnknown},
		{"below big station threshold", "Paris Gare du Nord", 15, domain.TriNo},
		{"above big station threshold", "Paris Gare du Nord", 35, domain.TriYes},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			j := &domain.Journey{
				Legs: []domain.Leg{
					{From: "A", To: tc.station, PNR: "P1", ScheduledDeparture: ts(8, 0), ScheduledArrival: ts(9, 0)},
					{From: tc.station, To: "C", PNR: "P1", ScheduledDeparture: ts(9, tc.gapMin), ScheduledArrival: ts(11, 0)},
				},
			}
			contracts := Split(j)
			checks := CheckConnections(j, &contracts[0])
			if len(checks) != 1 {
				t.Fatalf("got %d checks, want 1", len(checks))
			}
			if checks[0].Realistic != tc.want {
				t.Errorf("gap %d at %s: realistic = %s, want %s",
					tc.gapMin, tc.station, checks[0].Realistic, tc.want)
			}
		})
	}
}

func TestCheckConnectionsSingleLegNone(t *testing.T) {
	j := &domain.Journey{
		Legs: []domain.Leg{
			{From: "A", To: "B", PNR: "P1", ScheduledDeparture: ts(8, 0), ScheduledArrival: ts(9, 0)},
		},
	}
	contracts := Split(j)
	if checks := CheckConnections(j, &contracts[0]); checks != nil {
		t.Errorf("single-leg contract must have no connection checks, got %v", checks)
	}
}
