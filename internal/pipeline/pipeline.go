// Package pipeline orchestrates one claim evaluation end to end: scope
// classification, exemption resolution, article evaluators, contract
// splitting when through-ticket liability fails, compensation and the
// claim form decision.
package pipeline

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/opensource-rail/redress/internal/claimform"
	"github.com/opensource-rail/redress/internal/compensation"
	"github.com/opensource-rail/redress/internal/contract"
	"github.com/opensource-rail/redress/internal/dedupe"
	"github.com/opensource-rail/redress/internal/domain"
	"github.com/opensource-rail/redress/internal/evaluators"
	"github.com/opensource-rail/redress/internal/exemption"
	"github.com/opensource-rail/redress/internal/scope"
)

// EngineVersion tags every evaluation for auditability.
const EngineVersion = "redress-1.0"

// Pipeline runs claim evaluations. Stateless between runs; safe for
// concurrent use once constructed.
type Pipeline struct {
	exemptions *exemption.Engine
	calculator *compensation.Calculator
	detector   *dedupe.Detector
	evaluators []evaluators.Evaluator
}

// New assembles a pipeline. detector may be nil when duplicate
// detection is not configured.
func New(exemptions *exemption.Engine, calculator *compensation.Calculator, detector *dedupe.Detector) *Pipeline {
	return &Pipeline{
		exemptions: exemptions,
		calculator: calculator,
		detector:   detector,
		evaluators: evaluators.All(),
	}
}

// Request is one evaluation request.
type Request struct {
	TenantID string
	TraceID  string
	Journey  *domain.Journey
	Hooks    domain.Hooks

	Remedy          domain.Remedy
	Expenses        []domain.Expense
	AlreadyRefunded float64
	DowngradeLegs   []int
}

// Evaluate runs the full pipeline. It never returns an error: every
// degradation surfaces as warnings or unknown verdicts inside the
// evaluation, so a claim always gets an answer.
func (p *Pipeline) Evaluate(ctx context.Context, req *Request) *domain.ClaimEvaluation {
	start := time.Now()
	eval := &domain.ClaimEvaluation{
		ID:          uuid.New().String(),
		TenantID:    req.TenantID,
		JourneyID:   req.Journey.ID,
		Timestamp:   time.Now().UTC(),
		BookingRefs: bookingRefs(req.Journey),
	}

	if req.Journey.TicketPrice.Amount == 0 && req.Journey.RawTicketPrice != "" {
		m, ok := domain.ParseMoney(req.Journey.RawTicketPrice, req.Journey.TicketPrice.Currency)
		req.Journey.TicketPrice = m
		if !ok {
			eval.Warnings = append(eval.Warnings,
				"ticket price "+strconv.Quote(req.Journey.RawTicketPrice)+" is malformed; claim computed on 0 EUR")
		}
	}

	stage := time.Now()
	scopeRes := scope.Classify(req.Journey)
	eval.Scope = scopeRes.Scope
	eval.ScopeConfidence = scopeRes.Confidence
	if scopeRes.Confidence == "low" {
		eval.Warnings = append(eval.Warnings, "scope classification: "+scopeRes.Reason)
	}
	eval.Metadata.ScopeMs = time.Since(stage).Milliseconds()

	stage = time.Now()
	eval.Profile = p.exemptions.Resolve(req.Journey, scopeRes.Scope)
	eval.Metadata.ProfileMs = time.Since(stage).Milliseconds()

	stage = time.Now()
	eval.Results = evaluators.Run(p.evaluators, req.Journey, req.Hooks, eval.Profile)
	eval.Metadata.EvaluatorsMs = time.Since(stage).Milliseconds()

	calcInput := compensation.Input{
		Journey:         req.Journey,
		Scope:           scopeRes.Scope,
		Profile:         eval.Profile,
		Hooks:           req.Hooks,
		Results:         eval.Results,
		Remedy:          req.Remedy,
		DelayMinutes:    req.Journey.FinalDelayMinutes(),
		Expenses:        req.Expenses,
		AlreadyRefunded: req.AlreadyRefunded,
		DowngradeLegs:   req.DowngradeLegs,
	}

	stage = time.Now()
	if p.throughTicketDenied(eval.Results) {
		eval.Contracts = p.splitContracts(req.Journey, calcInput)
		eval.Warnings = append(eval.Warnings,
			"through-ticket liability does not hold; claims proceed per contract")
	}
	calc := p.calculator.Calculate(ctx, calcInput)
	eval.Calculation = &calc
	eval.Metadata.CalculationMs = time.Since(stage).Milliseconds()

	eval.Form = claimform.Select(req.Journey, scopeRes.Scope, eval.Profile, p.exemptions)

	if p.detector != nil {
		eval.Metadata.DuplicateSuspect = p.detector.Check(ctx, req.TenantID, eval.BookingRefs)
		if eval.Metadata.DuplicateSuspect {
			eval.Warnings = append(eval.Warnings, "a recent claim exists on the same booking reference")
		}
	}

	eval.Metadata.TraceID = req.TraceID
	eval.Metadata.TotalMs = time.Since(start).Milliseconds()
	eval.Metadata.EngineVersion = EngineVersion
	return eval
}

// throughTicketDenied reports a definite "no" on through-ticket
// liability. Unknown keeps the journey whole: splitting is only for
// established separate contracts.
func (p *Pipeline) throughTicketDenied(results []domain.EvaluationResult) bool {
	for i := range results {
		if results[i].Article == domain.ArtThroughTicket {
			return results[i].Applies == domain.TriNo
		}
	}
	return false
}

func (p *Pipeline) splitContracts(j *domain.Journey, in compensation.Input) []domain.ContractResult {
	contracts := contract.Split(j)
	out := make([]domain.ContractResult, 0, len(contracts))
	for i := range contracts {
		c := contracts[i]
		delay := contract.Delay(j, &c)
		line := p.calculator.ContractLine(in, delay, c.TicketValueShare)
		out = append(out, domain.ContractResult{
			Contract:     c,
			Delay:        delay,
			Connections:  contract.CheckConnections(j, &c),
			Compensation: &line,
		})
	}
	return out
}

func bookingRefs(j *domain.Journey) []string {
	refs := append([]string(nil), j.BookingReferences...)
	seen := make(map[string]bool, len(refs))
	for _, r := range refs {
		seen[r] = true
	}
	for i := range j.Legs {
		if pnr := j.Legs[i].PNR; pnr != "" && !seen[pnr] {
			seen[pnr] = true
			refs = append(refs, pnr)
		}
	}
	return refs
}
