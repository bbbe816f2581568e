// Package contract splits a journey into independent transport contracts
// when through-ticket liability does not hold, and computes per-contract
// delays and connection realism.
package contract

import (
	"sort"

	"github.com/opensource-rail/redress/internal/domain"
)

// Split partitions the journey's legs into contracts. Key priority:
// ticket id > PNR > operator+departure-date fallback. Contracts hold
// indices into the journey's legs; the journey owns the legs.
//
// Each contract's liable party is its seller type when known, else the
// operator: absent contrary evidence the operator of the affected leg is
// presumed responsible.
func Split(j *domain.Journey) []domain.Contract {
	byKey := make(map[string]*domain.Contract)
	order := make([]string, 0, len(j.Legs))

	for i := range j.Legs {
		leg := &j.Legs[i]
		key := contractKey(leg)

		c, ok := byKey[key]
		if !ok {
			c = &domain.Contract{
				ContractKey: key,
				PNR:         leg.PNR,
				TicketID:    leg.TicketID,
				LiableParty: liableParty(j),
			}
			byKey[key] = c
			order = append(order, key)
		}
		c.LegIndexes = append(c.LegIndexes, i)
		if leg.Operator != "" && !contains(c.Operators, leg.Operator) {
			c.Operators = append(c.Operators, leg.Operator)
		}
	}

	contracts := make([]domain.Contract, 0, len(order))
	for _, key := range order {
		contracts = append(contracts, *byKey[key])
	}
	assignValueShares(j, contracts)
	return contracts
}

func contractKey(leg *domain.Leg) string {
	switch {
	case leg.TicketID != "":
		return "TICKET:" + leg.TicketID
	case leg.PNR != "":
		return "PNR:" + leg.PNR
	default:
		op := leg.Operator
		if op == "" {
			op = "UNKNOWN_OP"
		}
		return "FALLBACK:" + op + ":" + leg.ScheduledDeparture.Format("2006-01-02")
	}
}

func liableParty(j *domain.Journey) domain.SellerType {
	if j.SellerType == domain.SellerAgency {
		return domain.SellerAgency
	}
	return domain.SellerOperator
}

// assignValueShares distributes the ticket value across contracts by
// per-leg price when available, else by scheduled duration.
func assignValueShares(j *domain.Journey, contracts []domain.Contract) {
	legPrice := func(i int) (float64, bool) {
		if j.Legs[i].Price != nil {
			return *j.Legs[i].Price, true
		}
		return 0, false
	}

	totalPrice, allPriced := 0.0, true
	for i := range j.Legs {
		p, ok := legPrice(i)
		if !ok {
			allPriced = false
			break
		}
		totalPrice += p
	}

	if allPriced && totalPrice > 0 {
		for ci := range contracts {
			sum := 0.0
			for _, li := range contracts[ci].LegIndexes {
				p, _ := legPrice(li)
				sum += p
			}
			contracts[ci].TicketValueShare = sum / totalPrice
		}
		return
	}

	totalDur := 0.0
	for i := range j.Legs {
		totalDur += j.Legs[i].ScheduledArrival.Sub(j.Legs[i].ScheduledDeparture).Minutes()
	}
	if totalDur <= 0 {
		return
	}
	for ci := range contracts {
		sum := 0.0
		for _, li := range contracts[ci].LegIndexes {
			sum += j.Legs[li].ScheduledArrival.Sub(j.Legs[li].ScheduledDeparture).Minutes()
		}
		contracts[ci].TicketValueShare = sum / totalDur
	}
}

// Delay computes the planned-vs-actual final arrival of a contract. The
// delay is taken at the contract's last leg by scheduled arrival.
func Delay(j *domain.Journey, c *domain.Contract) domain.ContractDelay {
	idx := append([]int(nil), c.LegIndexes...)
	sort.Slice(idx, func(a, b int) bool {
		return j.Legs[idx[a]].ScheduledDeparture.Before(j.Legs[idx[b]].ScheduledDeparture)
	})

	var planned, actual *domain.Leg
	for _, li := range idx {
		leg := &j.Legs[li]
		if !leg.ScheduledArrival.IsZero() && (planned == nil || leg.ScheduledArrival.After(planned.ScheduledArrival)) {
			planned = leg
		}
		if leg.ActualArrival != nil && (actual == nil || leg.ActualArrival.After(*actual.ActualArrival)) {
			actual = leg
		}
	}

	if planned == nil {
		return domain.ContractDelay{Status: domain.DelayStatusMissingPlanned}
	}
	if actual == nil {
		pa := planned.ScheduledArrival
		return domain.ContractDelay{PlannedArrival: &pa, Status: domain.DelayStatusMissingActual}
	}

	pa := planned.ScheduledArrival
	aa := *actual.ActualArrival
	delay := int(aa.Sub(pa).Minutes())
	if delay < 0 {
		delay = 0
	}
	return domain.ContractDelay{
		PlannedArrival: &pa,
		ActualArrival:  &aa,
		DelayMinutes:   delay,
		Status:         domain.DelayStatusOK,
	}
}

func contains(haystack []string, needle string) bool {
	for _, h := range haystack {
		if h == needle {
			return true
		}
	}
	return false
}
