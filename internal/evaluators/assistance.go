package evaluators

import "github.com/opensource-rail/redress/internal/domain"

// Assistance evaluates the meals/lodging/transport assistance duties
// (Art. 20). A "no" on delivered assistance opens the expense
// reimbursement path in the calculator.
type Assistance struct{}

func (a *Assistance) Article() domain.ArticleID { return domain.ArtAssistance }

func (a *Assistance) Evaluate(j *domain.Journey, hooks domain.Hooks, profile *domain.ExemptionProfile) domain.EvaluationResult {
	result := domain.EvaluationResult{
		Article: domain.ArtAssistance,
		Applies: domain.TriUnknown,
		Derived: map[string]string{},
	}

	if !profile.Allows(domain.ArtAssistance) {
		result.Applies = domain.TriNo
		result.Reasons = append(result.Reasons, "assistance duties disabled by exemption profile")
		return result
	}

	delay := j.FinalDelayMinutes()
	if delay >= 0 && delay < 60 {
		result.Applies = domain.TriNo
		result.Reasons = append(result.Reasons, "assistance duties start at 60 minutes of delay")
		return result
	}

	offered := hooks.Tri(domain.HookAssistanceOffered)
	meals := hooks.Tri(domain.HookMealsProvided)
	lodging := hooks.Tri(domain.HookLodgingProvided)
	result.Derived["meals_provided"] = string(meals)
	result.Derived["lodging_provided"] = string(lodging)

	switch offered {
	case domain.TriNo:
		result.Applies = domain.TriYes
		result.Reasons = append(result.Reasons, "no assistance was offered during a qualifying delay; self-paid expenses are reimbursable")
	case domain.TriYes:
		if meals == domain.TriNo || lodging == domain.TriNo {
			result.Applies = domain.TriYes
			result.Reasons = append(result.Reasons, "assistance was offered but not fully delivered")
		} else {
			result.Applies = domain.TriNo
			result.Reasons = append(result.Reasons, "assistance was delivered")
		}
	default:
		need(&result, domain.HookAssistanceOffered)
		if delay < 0 {
			result.Notes = append(result.Notes, "final delay unknown; assistance threshold cannot be checked")
		}
	}
	return result
}
