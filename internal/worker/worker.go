// Package worker provides async claim processing for the Pro tier.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/opensource-rail/redress/internal/domain"
	"github.com/opensource-rail/redress/internal/pipeline"
)

// Worker processes ingested journeys asynchronously from the EventBus.
type Worker struct {
	bus  domain.EventBus
	repo domain.Repository
	pipe *pipeline.Pipeline

	subscriptions []domain.Subscription
	wg            sync.WaitGroup
	ctx           context.Context
	cancel        context.CancelFunc
}

// Config holds worker configuration.
type Config struct {
	// TenantIDs is the list of tenants to process (empty = all via wildcard if supported)
	TenantIDs []string

	// WorkerCount is the number of concurrent workers per tenant
	WorkerCount int
}

// NewWorker creates a new async worker.
func NewWorker(bus domain.EventBus, repo domain.Repository, pipe *pipeline.Pipeline) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:    bus,
		repo:   repo,
		pipe:   pipe,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins processing messages for the given tenants.
func (w *Worker) Start(cfg Config) error {
	if len(cfg.TenantIDs) == 0 {
		return w.startGlobalWorker()
	}

	for _, tenantID := range cfg.TenantIDs {
		if err := w.startTenantWorker(tenantID); err != nil {
			slog.Error("failed to start worker for tenant",
				"tenant_id", tenantID,
				"error", err,
			)
			continue
		}
	}

	slog.Info("workers started",
		"tenant_count", len(cfg.TenantIDs),
	)

	return nil
}

// startGlobalWorker starts a worker that processes all tenants (for testing/dev).
func (w *Worker) startGlobalWorker() error {
	// Subscribe using a special "global" tenant ID
	// In production, you'd want to subscribe with wildcards or JetStream
	sub, err := w.bus.Subscribe(w.ctx, "_global", domain.TopicJourneyIngested, w.handleMessage)
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("global worker started")
	return nil
}

// startTenantWorker starts workers for a specific tenant.
func (w *Worker) startTenantWorker(tenantID string) error {
	sub, err := w.bus.Subscribe(w.ctx, tenantID, domain.TopicJourneyIngested, func(ctx context.Context, msg *domain.Message) error {
		return w.processJourney(ctx, tenantID, msg)
	})
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("tenant worker started",
		"tenant_id", tenantID,
		"topic", domain.TopicJourneyIngested,
	)

	return nil
}

// handleMessage handles messages from global subscription.
func (w *Worker) handleMessage(ctx context.Context, msg *domain.Message) error {
	return w.processJourney(ctx, msg.TenantID, msg)
}

// JourneyMessage is the message payload for async claim evaluation.
type JourneyMessage struct {
	TenantID string          `json:"tenantId"`
	TraceID  string          `json:"traceId"`
	Journey  *domain.Journey `json:"journey"`
	Hooks    domain.Hooks    `json:"hooks,omitempty"`

	Remedy          domain.Remedy    `json:"remedy,omitempty"`
	Expenses        []domain.Expense `json:"expenses,omitempty"`
	AlreadyRefunded float64          `json:"alreadyRefunded,omitempty"`
	DowngradeLegs   []int            `json:"downgradeLegs,omitempty"`
}

// processJourney evaluates an ingested journey through the pipeline.
func (w *Worker) processJourney(ctx context.Context, tenantID string, msg *domain.Message) error {
	start := time.Now()

	var jm JourneyMessage
	if err := json.Unmarshal(msg.Payload, &jm); err != nil {
		slog.Error("failed to parse journey message",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}
	if jm.Journey == nil {
		slog.Error("journey message without journey", "message_id", msg.ID)
		return nil
	}

	// Use message tenant if provided
	if jm.TenantID != "" {
		tenantID = jm.TenantID
	}

	traceID := jm.TraceID
	if traceID == "" {
		traceID = msg.ID
	}

	slog.Debug("processing journey",
		"journey_id", jm.Journey.ID,
		"tenant_id", tenantID,
		"trace_id", traceID,
	)

	eval := w.pipe.Evaluate(ctx, &pipeline.Request{
		TenantID:        tenantID,
		TraceID:         traceID,
		Journey:         jm.Journey,
		Hooks:           jm.Hooks,
		Remedy:          jm.Remedy,
		Expenses:        jm.Expenses,
		AlreadyRefunded: jm.AlreadyRefunded,
		DowngradeLegs:   jm.DowngradeLegs,
	})

	if w.repo != nil {
		if err := w.repo.SaveEvaluation(ctx, tenantID, eval); err != nil {
			slog.Error("failed to save evaluation",
				"evaluation_id", eval.ID,
				"error", err,
			)
		}
	}

	resultPayload, _ := json.Marshal(eval)
	if err := w.bus.Publish(ctx, tenantID, domain.TopicEvaluationCompleted, resultPayload); err != nil {
		slog.Error("failed to publish evaluation",
			"evaluation_id", eval.ID,
			"error", err,
		)
	}

	// Hook-starved evaluations go to manual review so an agent can ask
	// the passenger the missing questions.
	if len(eval.MissingHooks()) > 0 || eval.Metadata.DuplicateSuspect {
		if err := w.bus.Publish(ctx, tenantID, domain.TopicManualReview, resultPayload); err != nil {
			slog.Error("failed to publish review request",
				"evaluation_id", eval.ID,
				"error", err,
			)
		}
	}

	slog.Info("journey processed",
		"journey_id", jm.Journey.ID,
		"tenant_id", tenantID,
		"scope", eval.Scope,
		"form", eval.Form.Form,
		"net", eval.Calculation.NetToClaimant,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}

// Stop gracefully stops all workers.
func (w *Worker) Stop() error {
	w.cancel()

	// Unsubscribe all
	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	w.wg.Wait()

	slog.Info("workers stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
	}
}
