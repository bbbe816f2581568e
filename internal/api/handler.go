package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/opensource-rail/redress/internal/domain"
	"github.com/opensource-rail/redress/internal/exemption"
	"github.com/opensource-rail/redress/internal/pipeline"
)

// Handler holds dependencies for API handlers.
type Handler struct {
	repo    domain.Repository
	cache   domain.Cache
	bus     domain.EventBus
	engine  *exemption.Engine
	pipe    *pipeline.Pipeline
	version string
}

// NewHandler creates a new API handler.
func NewHandler(repo domain.Repository, cache domain.Cache, bus domain.EventBus, engine *exemption.Engine, pipe *pipeline.Pipeline, version string) *Handler {
	return &Handler{
		repo:    repo,
		cache:   cache,
		bus:     bus,
		engine:  engine,
		pipe:    pipe,
		version: version,
	}
}

// EvaluateRequest is the request body for POST /evaluate.
type EvaluateRequest struct {
	Journey *domain.Journey `json:"journey"`
	Hooks   domain.Hooks    `json:"hooks,omitempty"`

	Remedy          domain.Remedy    `json:"remedy,omitempty"`
	Expenses        []domain.Expense `json:"expenses,omitempty"`
	AlreadyRefunded float64          `json:"alreadyRefunded,omitempty"`
	DowngradeLegs   []int            `json:"downgradeLegs,omitempty"`
}

// Evaluate handles POST /evaluate requests. Evaluation is synchronous;
// the full claim evaluation is returned in the response body.
func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	traceID := GetTraceID(ctx)

	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.Journey == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "journey is required",
		})
		return
	}
	if len(req.Journey.Legs) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "journey.legs must not be empty",
		})
		return
	}
	if req.Journey.TicketPrice.Amount < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "ticketPrice.amount must not be negative",
		})
		return
	}

	if req.Journey.ID == "" {
		req.Journey.ID = uuid.New().String()
	}

	if h.repo != nil {
		if err := h.repo.SaveJourney(ctx, tenantID, req.Journey); err != nil {
			slog.Error("failed to save journey", "journey_id", req.Journey.ID, "error", err)
			// Evaluation proceeds; persistence is best effort here.
		}
	}

	eval := h.pipe.Evaluate(ctx, &pipeline.Request{
		TenantID:        tenantID,
		TraceID:         traceID,
		Journey:         req.Journey,
		Hooks:           req.Hooks,
		Remedy:          req.Remedy,
		Expenses:        req.Expenses,
		AlreadyRefunded: req.AlreadyRefunded,
		DowngradeLegs:   req.DowngradeLegs,
	})

	if h.repo != nil {
		if err := h.repo.SaveEvaluation(ctx, tenantID, eval); err != nil {
			slog.Error("failed to save evaluation", "evaluation_id", eval.ID, "error", err)
		}
	}

	if h.bus != nil {
		payload, _ := json.Marshal(eval)
		if err := h.bus.Publish(ctx, tenantID, domain.TopicEvaluationCompleted, payload); err != nil {
			slog.Error("failed to publish evaluation", "evaluation_id", eval.ID, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, eval)
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	// Check repository health
	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	// Check cache health
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

// GetEvaluation retrieves an evaluation by ID.
func (h *Handler) GetEvaluation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	evalID := chi.URLParam(r, "id")

	if evalID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "evaluation id is required",
		})
		return
	}

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	eval, err := h.repo.GetEvaluation(ctx, tenantID, evalID)
	if err != nil {
		slog.Error("failed to get evaluation", "id", evalID, "error", err)
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "evaluation not found",
		})
		return
	}

	writeJSON(w, http.StatusOK, eval)
}

// GetJourney retrieves a journey by ID.
func (h *Handler) GetJourney(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	journeyID := chi.URLParam(r, "id")

	if journeyID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "journey id is required",
		})
		return
	}

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	journey, err := h.repo.GetJourney(ctx, tenantID, journeyID)
	if err != nil {
		slog.Error("failed to get journey", "id", journeyID, "error", err)
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "journey not found",
		})
		return
	}

	writeJSON(w, http.StatusOK, journey)
}

// GlobalTenantID is used for matrix and override records that apply to
// all tenants.
const GlobalTenantID = "*"

// ============================================================================
// EXEMPTION MATRIX HANDLERS
// ============================================================================

// ListMatrix returns the matrix records currently stored in the database
// plus the count loaded in the engine.
func (h *Handler) ListMatrix(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"records": []*domain.MatrixRecord{},
			"loaded":  h.engine.MatrixCount(),
			"source":  "builtin",
		})
		return
	}

	records, err := h.repo.ListMatrixRecords(r.Context(), GlobalTenantID)
	if err != nil {
		slog.Error("failed to list matrix records", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load matrix records",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"records": records,
		"count":   len(records),
		"loaded":  h.engine.MatrixCount(),
		"source":  "database",
	})
}

// CreateMatrixRecord upserts a matrix record. Records are saved globally
// (tenant_id = "*") so they apply to all tenants. After saving, call
// POST /matrix/reload to apply.
func (h *Handler) CreateMatrixRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var rec domain.MatrixRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if rec.Country == "" || rec.Scope == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "country and scope are required",
		})
		return
	}

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	if err := h.repo.SaveMatrixRecord(ctx, GlobalTenantID, &rec); err != nil {
		slog.Error("failed to save matrix record", "country", rec.Country, "scope", rec.Scope, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to save matrix record",
		})
		return
	}

	slog.Info("matrix record saved", "country", rec.Country, "scope", rec.Scope)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"record":  rec,
		"message": "Matrix record saved. Call POST /matrix/reload to apply changes.",
	})
}

// ReloadMatrix reloads the exemption matrix from builtin records plus the
// database into the engine. This enables hot-reloading without restart.
func (h *Handler) ReloadMatrix(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	records := exemption.BuiltinMatrix()
	fromDB := 0

	if h.repo != nil {
		dbRecords, err := h.repo.ListMatrixRecords(ctx, GlobalTenantID)
		if err != nil {
			slog.Error("failed to list matrix records from database", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to load matrix records from database",
			})
			return
		}
		records = append(records, dbRecords...)
		fromDB = len(dbRecords)
	}

	h.engine.LoadMatrix(records)

	slog.Info("exemption matrix reloaded", "count", len(records), "from_db", fromDB)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "matrix reloaded successfully",
		"count":   len(records),
	})
}

// ============================================================================
// OVERRIDE HANDLERS
// ============================================================================

// ListOverrides returns the override records stored in the database.
func (h *Handler) ListOverrides(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"overrides": []*domain.OverrideRecord{},
			"loaded":    h.engine.OverrideCount(),
			"source":    "builtin",
		})
		return
	}

	overrides, err := h.repo.ListOverrides(r.Context(), GlobalTenantID)
	if err != nil {
		slog.Error("failed to list overrides", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load overrides",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"overrides": overrides,
		"count":     len(overrides),
		"loaded":    h.engine.OverrideCount(),
		"source":    "database",
	})
}

// GetOverride retrieves an override record by ID.
func (h *Handler) GetOverride(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	overrideID := chi.URLParam(r, "id")

	if overrideID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "override id is required",
		})
		return
	}

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	rec, err := h.repo.GetOverride(ctx, GlobalTenantID, overrideID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "override not found",
		})
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// CreateOverride creates or updates an override record. The CEL condition
// is validated before the record is persisted so a bad expression never
// reaches claim evaluation. An override that re-enables an article must
// carry a note explaining why.
func (h *Handler) CreateOverride(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var rec domain.OverrideRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if rec.ID == "" || rec.Country == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "id and country are required",
		})
		return
	}
	if len(rec.Enables) > 0 && len(rec.Notes) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "an override that re-enables articles must carry a note",
		})
		return
	}

	if err := h.engine.ValidateOverride(&rec); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid CEL condition: " + err.Error(),
		})
		return
	}

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	if err := h.repo.SaveOverride(ctx, GlobalTenantID, &rec); err != nil {
		slog.Error("failed to save override", "id", rec.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to save override",
		})
		return
	}

	slog.Info("override saved", "id", rec.ID, "country", rec.Country)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"override": rec,
		"message":  "Override saved. Call POST /overrides/reload to apply changes.",
	})
}

// DeleteOverride soft-deletes an override and auto-reloads the engine.
func (h *Handler) DeleteOverride(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	overrideID := chi.URLParam(r, "id")

	if overrideID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "override id is required",
		})
		return
	}

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	if err := h.repo.DeleteOverride(ctx, GlobalTenantID, overrideID); err != nil {
		slog.Error("failed to delete override", "id", overrideID, "error", err)
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "override not found",
		})
		return
	}

	// Auto-reload after delete so the removed record stops matching.
	if err := h.reloadOverrides(ctx); err != nil {
		slog.Error("failed to reload overrides after delete", "error", err)
	}

	slog.Info("override deleted", "id", overrideID)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Override deleted and engine reloaded.",
	})
}

// ReloadOverrides reloads all overrides from builtin records plus the
// database into the engine.
func (h *Handler) ReloadOverrides(w http.ResponseWriter, r *http.Request) {
	if err := h.reloadOverrides(r.Context()); err != nil {
		slog.Error("failed to reload overrides", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to reload overrides: " + err.Error(),
		})
		return
	}

	count := h.engine.OverrideCount()
	slog.Info("overrides reloaded", "count", count)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "overrides reloaded successfully",
		"count":   count,
	})
}

func (h *Handler) reloadOverrides(ctx context.Context) error {
	records := exemption.BuiltinOverrides()
	if h.repo != nil {
		dbRecords, err := h.repo.ListOverrides(ctx, GlobalTenantID)
		if err != nil {
			return err
		}
		records = append(records, dbRecords...)
	}
	return h.engine.LoadOverrides(records)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
