package evaluators

import "github.com/opensource-rail/redress/internal/domain"

// Information evaluates the pre-journey and disruption information
// duties (Art. 9/10). These survive even a blocked exemption profile.
type Information struct{}

func (i *Information) Article() domain.ArticleID { return domain.ArtInformation }

func (i *Information) Evaluate(j *domain.Journey, hooks domain.Hooks, profile *domain.ExemptionProfile) domain.EvaluationResult {
	result := domain.EvaluationResult{
		Article: domain.ArtInformation,
		Applies: domain.TriUnknown,
		Derived: map[string]string{},
	}

	if !profile.Allows(domain.ArtInformation) {
		result.Applies = domain.TriNo
		result.Reasons = append(result.Reasons, "information duties disabled by exemption profile")
		return result
	}

	preInfo := hooks.Tri(domain.HookPrePurchaseInfoShown)
	disruptionInfo := hooks.Tri(domain.HookDisruptionInfoGiven)
	realtime := hooks.Tri(domain.HookRealtimeInfoSeen)
	result.Derived["realtime_article_active"] = boolWord(profile.Allows(domain.ArtRealtime))

	// A definite "no" on either duty means the article was breached and
	// a claim note attaches; a definite "yes" on both means no breach.
	switch {
	case preInfo == domain.TriNo || disruptionInfo == domain.TriNo:
		result.Applies = domain.TriYes
		result.Reasons = append(result.Reasons, "required travel information was not provided")
	case preInfo == domain.TriYes && disruptionInfo == domain.TriYes:
		result.Applies = domain.TriNo
		result.Reasons = append(result.Reasons, "information duties were met")
	default:
		if preInfo == domain.TriUnknown {
			need(&result, domain.HookPrePurchaseInfoShown)
		}
		if disruptionInfo == domain.TriUnknown {
			need(&result, domain.HookDisruptionInfoGiven)
		}
	}

	if realtime == domain.TriNo && profile.Allows(domain.ArtRealtime) {
		result.Notes = append(result.Notes, "real-time travel data was not visible during the disruption")
	}
	return result
}

func boolWord(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
