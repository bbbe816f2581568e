package domain

import "time"

// EvaluationResult is the output of a single article evaluator.
// Applies is unknown whenever any hook required for a deterministic
// verdict is unknown; the evaluator never guesses.
type EvaluationResult struct {
	Article      ArticleID         `json:"article"`
	Applies      Tri               `json:"applies"`
	LiableParty  SellerType        `json:"liableParty,omitempty"`
	MissingHooks []string          `json:"missingHooks,omitempty"`
	Derived      map[string]string `json:"derived,omitempty"`
	Reasons      []string          `json:"reasons,omitempty"`
	Notes        []string          `json:"notes,omitempty"`
}

// FormDecision routes a claim to the EU standard form or a national
// claim channel.
type FormDecision struct {
	Form   string   `json:"form"`
	Reason string   `json:"reason"`
	Notes  []string `json:"notes,omitempty"`
}

// Form identifiers.
const (
	FormEUStandard = "eu_standard_claim"
	FormNone       = "none"
)

// ClaimEvaluation is the complete, immutable result of one pipeline run.
type ClaimEvaluation struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenantId"`
	JourneyID string    `json:"journeyId"`
	Timestamp time.Time `json:"timestamp"`

	// BookingRefs are the booking references the claim is filed against,
	// kept on the evaluation for duplicate detection and auditing.
	BookingRefs []string `json:"bookingRefs,omitempty"`

	Scope           Scope              `json:"scope"`
	ScopeConfidence string             `json:"scopeConfidence,omitempty"`
	Profile         *ExemptionProfile  `json:"profile"`
	Results         []EvaluationResult `json:"results"`

	// Contracts is non-empty only when through-ticket liability
	// resolved to "no" and the journey was split.
	Contracts []ContractResult `json:"contracts,omitempty"`

	Calculation *ClaimCalculation `json:"calculation"`
	Form        FormDecision      `json:"form"`

	Warnings []string           `json:"warnings,omitempty"`
	Metadata EvaluationMetadata `json:"metadata"`
}

// MissingHooks returns the union of hooks still needed across all
// evaluator results, deduplicated in first-seen order.
func (e *ClaimEvaluation) MissingHooks() []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range e.Results {
		for _, h := range r.MissingHooks {
			if !seen[h] {
				seen[h] = true
				out = append(out, h)
			}
		}
	}
	return out
}

// EvaluationMetadata carries processing information for auditing.
type EvaluationMetadata struct {
	TraceID          string `json:"traceId"`
	ScopeMs          int64  `json:"scopeMs"`
	ProfileMs        int64  `json:"profileMs"`
	EvaluatorsMs     int64  `json:"evaluatorsMs"`
	CalculationMs    int64  `json:"calculationMs"`
	TotalMs          int64  `json:"totalMs"`
	DuplicateSuspect bool   `json:"duplicateSuspect,omitempty"`
	EngineVersion    string `json:"engineVersion"`
}
