package contract

import (
	"sort"

	"github.com/opensource-rail/redress/internal/domain"
)

// Minimum connection times, in minutes, for interchange stations that
// publish one. Unlisted stations fall back to defaultMCT.
var stationMCT = map[string]int{
	"Paris Gare du Nord":  30,
	"Frankfurt(Main) Hbf": 15,
	"Köln Hbf":            10,
	"Zürich HB":           10,
	"Milano Centrale":     20,
	"Bruxelles-Midi":      25,
	"København H":         10,
	"Wien Hbf":            10,
	"Berlin Hbf":          10,
	"Amsterdam Centraal":  15,
}

const defaultMCT = 10

// Hard realism bounds. Below the lower bound a connection is never
// realistic regardless of the station; at or above the upper bound it
// always is. Gaps in between follow the station threshold, and when that
// still cannot decide, the verdict stays unknown for manual review.
const (
	hardUnrealisticBelow = 4
	hardRealisticFrom    = 10
)

// MCTThreshold returns the minimum connection time for a station.
func MCTThreshold(station string) int {
	if t, ok := stationMCT[station]; ok {
		return t
	}
	return defaultMCT
}

// CheckConnections examines every interchange inside a contract and
// classifies the scheduled transfer gap against the station's minimum
// connection time.
func CheckConnections(j *domain.Journey, c *domain.Contract) []domain.ConnectionCheck {
	if len(c.LegIndexes) < 2 {
		return nil
	}

	idx := append([]int(nil), c.LegIndexes...)
	sort.Slice(idx, func(a, b int) bool {
		return j.Legs[idx[a]].ScheduledDeparture.Before(j.Legs[idx[b]].ScheduledDeparture)
	})

	checks := make([]domain.ConnectionCheck, 0, len(idx)-1)
	for i := 0; i < len(idx)-1; i++ {
		in := &j.Legs[idx[i]]
		out := &j.Legs[idx[i+1]]
		gap := int(out.ScheduledDeparture.Sub(in.ScheduledArrival).Minutes())
		threshold := MCTThreshold(in.To)

		check := domain.ConnectionCheck{
			Station:      in.To,
			GapMinutes:   gap,
			ThresholdMin: threshold,
			Realistic:    domain.TriUnknown,
		}
		switch {
		case gap < hardUnrealisticBelow:
			check.Realistic = domain.TriNo
		case gap >= hardRealisticFrom && gap >= threshold:
			check.Realistic = domain.TriYes
		case gap >= hardRealisticFrom && gap < threshold:
			check.Realistic = domain.TriNo
		}
		checks = append(checks, check)
	}
	return checks
}
