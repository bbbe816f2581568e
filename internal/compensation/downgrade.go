package compensation

import "github.com/opensource-rail/redress/internal/domain"

// downgradeSeverity derives what was lost from the downgrade hooks. A
// lost berth outranks a lost seat class.
func downgradeSeverity(hooks domain.Hooks) domain.DowngradeSeverity {
	if hooks.Tri(domain.HookReservedAmenityDelivered) == domain.TriNo {
		switch hooks.Value(domain.HookBerthTypeBooked) {
		case "sleeper":
			return domain.DowngradeSleeper
		case "couchette":
			return domain.DowngradeCouchette
		}
	}
	if hooks.Value(domain.HookClassDeliveredStatus) == "lower" {
		return domain.DowngradeSeatClass
	}
	return domain.DowngradeNone
}

// validLegIndexes drops downgrade indices that do not address a leg and
// reports how many were dropped. Collaborator input is not trusted here.
func validLegIndexes(j *domain.Journey, affected []int) ([]int, int) {
	out := make([]int, 0, len(affected))
	dropped := 0
	for _, li := range affected {
		if li < 0 || li >= len(j.Legs) {
			dropped++
			continue
		}
		out = append(out, li)
	}
	return out, dropped
}

// affectedShare is the fraction of the journey the downgrade touched.
// Distance is preferred over scheduled duration; when neither is known
// the whole journey counts, flagged as a low-confidence share.
func affectedShare(j *domain.Journey, affected []int) (share float64, confident bool) {
	if len(affected) == 0 || len(affected) >= len(j.Legs) {
		return 1.0, len(j.Legs) > 0
	}

	totalDist, affDist, allDist := 0.0, 0.0, true
	for i := range j.Legs {
		if j.Legs[i].DistanceKm == nil {
			allDist = false
			break
		}
		totalDist += *j.Legs[i].DistanceKm
	}
	if allDist && totalDist > 0 {
		for _, li := range affected {
			affDist += *j.Legs[li].DistanceKm
		}
		return affDist / totalDist, true
	}

	totalDur, affDur := 0.0, 0.0
	for i := range j.Legs {
		totalDur += j.Legs[i].ScheduledArrival.Sub(j.Legs[i].ScheduledDeparture).Minutes()
	}
	if totalDur > 0 {
		for _, li := range affected {
			affDur += j.Legs[li].ScheduledArrival.Sub(j.Legs[li].ScheduledDeparture).Minutes()
		}
		return affDur / totalDur, true
	}
	return 1.0, false
}
