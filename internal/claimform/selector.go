// Package claimform picks the claim channel for an evaluated journey:
// the EU standard claim form, a national operator channel, or none.
package claimform

import "github.com/opensource-rail/redress/internal/domain"

// FormRouter resolves a national claim form for a journey, when one is
// configured. The exemption engine implements it.
type FormRouter interface {
	RouteForm(j *domain.Journey, scope domain.Scope) (string, bool)
}

// Select decides where the claim goes. The EU standard form is the
// default; a routed national form replaces it, and a blocked or
// compensation-exempt profile without a national channel yields none.
// Every non-default decision records its reason.
func Select(j *domain.Journey, scope domain.Scope, profile *domain.ExemptionProfile, router FormRouter) domain.FormDecision {
	national, routed := "", false
	if router != nil {
		national, routed = router.RouteForm(j, scope)
	}

	if profile != nil && profile.Blocked {
		if routed {
			return domain.FormDecision{
				Form:   national,
				Reason: "EU flow blocked for this service; national channel available",
			}
		}
		return domain.FormDecision{
			Form:   domain.FormNone,
			Reason: "EU flow blocked for this service and no national channel is configured",
		}
	}

	if profile != nil && !profile.Allows(domain.ArtCompensation) {
		if routed {
			return domain.FormDecision{
				Form:   national,
				Reason: "delay compensation exempted; routed to the national scheme",
			}
		}
		return domain.FormDecision{
			Form:   domain.FormNone,
			Reason: "delay compensation exempted and no national channel is configured",
		}
	}

	if routed {
		return domain.FormDecision{
			Form:   national,
			Reason: "operator runs a dedicated national claim channel",
		}
	}
	return domain.FormDecision{
		Form:   domain.FormEUStandard,
		Reason: "no national channel matched; EU standard claim form",
	}
}
