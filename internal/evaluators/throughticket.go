package evaluators

import (
	"github.com/opensource-rail/redress/internal/domain"
)

// ThroughTicket decides whether one seller is liable for the whole
// journey (Art. 12) or whether it must be split into independent
// contracts. Ties favour unknown over guessing.
type ThroughTicket struct{}

func (t *ThroughTicket) Article() domain.ArticleID { return domain.ArtThroughTicket }

func (t *ThroughTicket) Evaluate(j *domain.Journey, hooks domain.Hooks, profile *domain.ExemptionProfile) domain.EvaluationResult {
	result := domain.EvaluationResult{
		Article:     domain.ArtThroughTicket,
		Applies:     domain.TriUnknown,
		LiableParty: domain.SellerUnknown,
		Derived:     map[string]string{},
	}

	// Exempted: downstream must use the contract splitter.
	if !profile.Allows(domain.ArtThroughTicket) {
		result.Applies = domain.TriNo
		result.Reasons = append(result.Reasons, "through-ticket article disabled by exemption profile")
		return result
	}

	sharedRef := t.sharedBookingReference(j)
	result.Derived["shared_booking_reference"] = string(sharedRef)

	disclosure := hooks.Value(domain.HookThroughTicketDisclosure)
	notice := hooks.Tri(domain.HookSeparateContractNotice)

	// Disclosed "separate contracts" before purchase waives the extended
	// liability, unless the sale also claimed to be a through ticket; the
	// conflict is read in the passenger's favour.
	if notice == domain.TriYes {
		if disclosure == domain.DisclosureThrough {
			result.Applies = domain.TriYes
			result.Reasons = append(result.Reasons, "sold as through ticket but separate-contract notice given; conflict resolved for the passenger")
			t.attributeLiability(j, hooks, &result)
			return result
		}
		result.Applies = domain.TriNo
		result.Reasons = append(result.Reasons, "separate contracts disclosed before purchase")
		return result
	}

	// Single shared booking reference spanning all legs with a known
	// seller: one contract, seller liable end to end.
	if sharedRef == domain.TriYes && j.SellerType != "" && j.SellerType != domain.SellerUnknown {
		result.Applies = domain.TriYes
		result.LiableParty = j.SellerType
		result.Reasons = append(result.Reasons, "single booking reference spans all legs and seller type is known")
		return result
	}

	// One transaction at the operator or retailer implies a through
	// ticket even across references.
	if hooks.Tri(domain.HookSingleTxnOperator) == domain.TriYes {
		result.Applies = domain.TriYes
		result.LiableParty = domain.SellerOperator
		result.Reasons = append(result.Reasons, "tickets bought in one transaction from the operator")
		return result
	}
	if hooks.Tri(domain.HookSingleTxnRetailer) == domain.TriYes {
		result.Applies = domain.TriYes
		result.LiableParty = domain.SellerAgency
		result.Reasons = append(result.Reasons, "tickets bought in one transaction from a retailer without separate-contract notice")
		return result
	}

	if disclosure == domain.DisclosureThrough {
		result.Applies = domain.TriYes
		result.Reasons = append(result.Reasons, "sold and disclosed as a through ticket")
		t.attributeLiability(j, hooks, &result)
		return result
	}

	// Multiple references with a definite "no notice" and a single
	// itinerary presented as one schedule: implicit through ticket.
	if notice == domain.TriNo && hooks.Tri(domain.HookOneContractSchedule) == domain.TriYes {
		result.Applies = domain.TriYes
		result.Reasons = append(result.Reasons, "presented as one itinerary without separate-contract notice")
		t.attributeLiability(j, hooks, &result)
		return result
	}

	// Not enough to decide: list exactly what is still needed.
	if disclosure == "" {
		need(&result, domain.HookThroughTicketDisclosure)
	}
	if notice == domain.TriUnknown {
		need(&result, domain.HookSeparateContractNotice)
	}
	if hooks.Tri(domain.HookSingleTxnOperator) == domain.TriUnknown {
		need(&result, domain.HookSingleTxnOperator)
	}
	if hooks.Tri(domain.HookSingleTxnRetailer) == domain.TriUnknown {
		need(&result, domain.HookSingleTxnRetailer)
	}
	if sharedRef == domain.TriUnknown {
		need(&result, domain.HookSingleBookingReference)
	}

	if len(result.MissingHooks) == 0 {
		// Everything known and nothing established a through ticket.
		result.Applies = domain.TriNo
		result.Reasons = append(result.Reasons, "multiple independent purchases with no through-ticket indicators")
	}
	return result
}

// sharedBookingReference derives whether one reference spans all legs.
func (t *ThroughTicket) sharedBookingReference(j *domain.Journey) domain.Tri {
	if len(j.BookingReferences) == 1 && j.BookingReferences[0] != "" {
		return domain.TriYes
	}
	pnrs := map[string]bool{}
	missing := false
	for i := range j.Legs {
		if j.Legs[i].PNR == "" {
			missing = true
			continue
		}
		pnrs[j.Legs[i].PNR] = true
	}
	switch {
	case len(pnrs) == 1 && !missing:
		return domain.TriYes
	case len(pnrs) > 1:
		return domain.TriNo
	case len(j.BookingReferences) > 1:
		return domain.TriNo
	default:
		return domain.TriUnknown
	}
}

func (t *ThroughTicket) attributeLiability(j *domain.Journey, hooks domain.Hooks, result *domain.EvaluationResult) {
	switch {
	case j.SellerType == domain.SellerOperator || hooks.Tri(domain.HookSellerTypeOperator) == domain.TriYes:
		result.LiableParty = domain.SellerOperator
	case j.SellerType == domain.SellerAgency || hooks.Tri(domain.HookSellerTypeAgency) == domain.TriYes:
		result.LiableParty = domain.SellerAgency
	default:
		result.LiableParty = domain.SellerUnknown
		result.MissingHooks = append(result.MissingHooks, domain.HookSellerTypeOperator, domain.HookSellerTypeAgency)
	}
}
