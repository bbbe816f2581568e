// Package evaluators contains the pure article evaluators. Each consumes
// (Journey, Hooks, ExemptionProfile) and returns a tri-state verdict plus
// the hooks still needed for a deterministic one.
package evaluators

import (
	"fmt"

	"github.com/opensource-rail/redress/internal/domain"
)

// Evaluator is a single pure article evaluator.
type Evaluator interface {
	Article() domain.ArticleID
	Evaluate(j *domain.Journey, hooks domain.Hooks, profile *domain.ExemptionProfile) domain.EvaluationResult
}

// All returns the full evaluator family in article order.
func All() []Evaluator {
	return []Evaluator{
		&Information{},
		&ThroughTicket{},
		&RefundRerouting{},
		&Assistance{},
	}
}

// Run evaluates all evaluators, recovering panics at the evaluator
// boundary: a single fault is downgraded to applies=unknown and the
// remaining evaluators still run.
func Run(evals []Evaluator, j *domain.Journey, hooks domain.Hooks, profile *domain.ExemptionProfile) []domain.EvaluationResult {
	results := make([]domain.EvaluationResult, 0, len(evals))
	for _, ev := range evals {
		results = append(results, runOne(ev, j, hooks, profile))
	}
	return results
}

func runOne(ev Evaluator, j *domain.Journey, hooks domain.Hooks, profile *domain.ExemptionProfile) (result domain.EvaluationResult) {
	defer func() {
		if r := recover(); r != nil {
			result = domain.EvaluationResult{
				Article: ev.Article(),
				Applies: domain.TriUnknown,
				Notes:   []string{fmt.Sprintf("evaluator fault: %v", r)},
			}
		}
	}()
	return ev.Evaluate(j, hooks, profile)
}

// need records a hook as missing and returns unknown, keeping call sites
// compact.
func need(result *domain.EvaluationResult, hooks ...string) {
	result.MissingHooks = append(result.MissingHooks, hooks...)
	result.Applies = domain.TriUnknown
}
