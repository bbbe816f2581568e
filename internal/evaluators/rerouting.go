package evaluators

import (
	"strconv"

	"github.com/opensource-rail/redress/internal/domain"
)

// RefundRerouting evaluates the refund/rerouting choice duties
// (Art. 18): from 60 minutes of expected delay the passenger must be
// offered the choice between a full refund (with return) and rerouting.
type RefundRerouting struct{}

func (r *RefundRerouting) Article() domain.ArticleID { return domain.ArtRefundReroute }

func (r *RefundRerouting) Evaluate(j *domain.Journey, hooks domain.Hooks, profile *domain.ExemptionProfile) domain.EvaluationResult {
	result := domain.EvaluationResult{
		Article: domain.ArtRefundReroute,
		Applies: domain.TriUnknown,
		Derived: map[string]string{},
	}

	if !profile.Allows(domain.ArtRefundReroute) {
		result.Applies = domain.TriNo
		result.Reasons = append(result.Reasons, "refund/rerouting duties disabled by exemption profile")
		return result
	}

	delay := j.FinalDelayMinutes()
	if delay >= 0 {
		result.Derived["final_delay_minutes"] = strconv.Itoa(delay)
	}

	if delay >= 0 && delay < 60 {
		result.Applies = domain.TriNo
		result.Reasons = append(result.Reasons, "refund/rerouting choice starts at 60 minutes of delay")
		return result
	}
	if delay < 0 {
		result.Notes = append(result.Notes, "final delay unknown; assuming a qualifying disruption was reported")
	}

	choice := hooks.Tri(domain.HookRemedyChoicePresented)
	rerouted := hooks.Tri(domain.HookReroutingOffered)
	refunded := hooks.Tri(domain.HookRefundOffered)

	switch {
	case choice == domain.TriNo, rerouted == domain.TriNo && refunded == domain.TriNo:
		result.Applies = domain.TriYes
		result.Reasons = append(result.Reasons, "choice between refund and rerouting was not offered")
	case choice == domain.TriYes:
		result.Applies = domain.TriNo
		result.Reasons = append(result.Reasons, "remedy choice was presented")
	default:
		need(&result, domain.HookRemedyChoicePresented)
	}

	if profile.Allows(domain.ArtHundredMin) && rerouted == domain.TriNo && delay >= 100 {
		result.Notes = append(result.Notes, "no rerouting within 100 minutes; the passenger may self-reroute and claim the fare")
	}
	return result
}
