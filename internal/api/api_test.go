package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/opensource-rail/redress/internal/compensation"
	"github.com/opensource-rail/redress/internal/domain"
	"github.com/opensource-rail/redress/internal/exemption"
	"github.com/opensource-rail/redress/internal/pipeline"
)

// createTestServer creates a server with a full evaluation pipeline and
// no persistence.
func createTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := domain.ServerConfig{
		Host:         "localhost",
		Port:         8080,
		ReadTimeout:  30,
		WriteTimeout: 30,
	}

	engine, err := exemption.NewEngine()
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	engine.LoadMatrix(exemption.BuiltinMatrix())
	if err := engine.LoadOverrides(exemption.BuiltinOverrides()); err != nil {
		t.Fatalf("overrides: %v", err)
	}

	calc := compensation.New(domain.DefaultConfig().Claims, nil)
	pipe := pipeline.New(engine, calc, nil)

	return NewServer(cfg, nil, nil, nil, engine, pipe, "test-v1")
}

func delayedJourneyRequest(delayMin int) EvaluateRequest {
	dep := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	sched := dep.Add(4 * time.Hour)
	actual := sched.Add(time.Duration(delayMin) * time.Minute)
	return EvaluateRequest{
		Journey: &domain.Journey{
			Legs: []domain.Leg{{
				From: "Berlin Hbf", To: "München Hbf", CountryCode: "DE",
				ScheduledDeparture: dep,
				ScheduledArrival:   sched,
				ActualArrival:      &actual,
				Operator:           "DB",
				ProductCategory:    "ICE",
				PNR:                "PNR001",
			}},
			BookingReferences: []string{"PNR001"},
			SellerType:        domain.SellerOperator,
			TicketPrice:       domain.Money{Amount: 100, Currency: "EUR"},
		},
		Hooks: domain.Hooks{
			domain.HookAssistanceOffered: "yes",
			domain.HookMealsProvided:     "yes",
			domain.HookLodgingProvided:   "yes",
		},
	}
}

func TestEvaluateEndpoint(t *testing.T) {
	server := createTestServer(t)

	t.Run("SuccessfulEvaluation", func(t *testing.T) {
		body, _ := json.Marshal(delayedJourneyRequest(80))
		req := httptest.NewRequest(http.MethodPost, "/evaluate", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Tenant-ID", "tenant-001")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		var eval domain.ClaimEvaluation
		if err := json.Unmarshal(rr.Body.Bytes(), &eval); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}

		if eval.ID == "" {
			t.Error("expected evaluation id in response")
		}
		if eval.JourneyID == "" {
			t.Error("expected a generated journey id")
		}
		if eval.TenantID != "tenant-001" {
			t.Errorf("expected tenant 'tenant-001', got '%s'", eval.TenantID)
		}
		if eval.Scope != domain.ScopeLongDomestic {
			t.Errorf("expected scope long_domestic, got %s", eval.Scope)
		}
		if eval.Calculation == nil || eval.Calculation.Compensation.Amount != 25 {
			t.Errorf("expected 25.00 compensation for an 80 minute delay, got %+v", eval.Calculation)
		}
		if eval.Metadata.TraceID == "" {
			t.Error("expected traceId in metadata")
		}
	})

	t.Run("MissingTenantID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/evaluate", bytes.NewBufferString("{}"))
		req.Header.Set("Content-Type", "application/json")
		// No X-Tenant-ID header

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("InvalidJSON", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/evaluate", bytes.NewBufferString("not-json"))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Tenant-ID", "tenant-001")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("MissingJourney", func(t *testing.T) {
		body, _ := json.Marshal(EvaluateRequest{})
		req := httptest.NewRequest(http.MethodPost, "/evaluate", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Tenant-ID", "tenant-001")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("EmptyLegs", func(t *testing.T) {
		body, _ := json.Marshal(EvaluateRequest{Journey: &domain.Journey{}})
		req := httptest.NewRequest(http.MethodPost, "/evaluate", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Tenant-ID", "tenant-001")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("NegativeTicketPrice", func(t *testing.T) {
		reqBody := delayedJourneyRequest(80)
		reqBody.Journey.TicketPrice.Amount = -10
		body, _ := json.Marshal(reqBody)
		req := httptest.NewRequest(http.MethodPost, "/evaluate", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Tenant-ID", "tenant-001")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("ResponseHeaders", func(t *testing.T) {
		body, _ := json.Marshal(delayedJourneyRequest(30))
		req := httptest.NewRequest(http.MethodPost, "/evaluate", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Tenant-ID", "tenant-001")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Header().Get("X-Request-ID") == "" {
			t.Error("expected X-Request-ID header in response")
		}
		if rr.Header().Get("X-Trace-ID") == "" {
			t.Error("expected X-Trace-ID header in response")
		}
		if rr.Header().Get("Content-Type") != "application/json" {
			t.Error("expected Content-Type: application/json")
		}
	})
}

func TestOverrideEndpoints(t *testing.T) {
	server := createTestServer(t)

	t.Run("CreateRejectsBadCondition", func(t *testing.T) {
		rec := domain.OverrideRecord{
			ID:        "bad-cel",
			Country:   "SE",
			Condition: "distance_km >>> 150",
			Enabled:   true,
		}
		body, _ := json.Marshal(rec)
		req := httptest.NewRequest(http.MethodPost, "/overrides", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Tenant-ID", "tenant-001")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400 for invalid CEL, got %d", rr.Code)
		}
	})

	t.Run("CreateRejectsEnableWithoutNote", func(t *testing.T) {
		rec := domain.OverrideRecord{
			ID:      "silent-enable",
			Country: "SE",
			Enables: []domain.ArticleID{domain.ArtCompensation},
			Enabled: true,
		}
		body, _ := json.Marshal(rec)
		req := httptest.NewRequest(http.MethodPost, "/overrides", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Tenant-ID", "tenant-001")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400 for unexplained re-enable, got %d", rr.Code)
		}
	})

	t.Run("ReloadWithoutRepositoryUsesBuiltins", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/overrides/reload", nil)
		req.Header.Set("X-Tenant-ID", "tenant-001")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}
		if server.Handler().engine.OverrideCount() == 0 {
			t.Error("expected builtin overrides after reload")
		}
	})
}

func TestHealthEndpoint(t *testing.T) {
	server := createTestServer(t)

	t.Run("HealthCheck", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rr.Code)
		}

		var resp map[string]string
		json.Unmarshal(rr.Body.Bytes(), &resp)

		if resp["status"] != "healthy" {
			t.Errorf("expected status 'healthy', got '%s'", resp["status"])
		}
		if resp["version"] != "test-v1" {
			t.Errorf("expected version 'test-v1', got '%s'", resp["version"])
		}
	})

	t.Run("ReadyCheck", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ready", nil)

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rr.Code)
		}
	})
}

func TestMiddleware(t *testing.T) {
	t.Run("TenantMiddlewareExtractsID", func(t *testing.T) {
		var capturedTenantID string

		handler := TenantMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			capturedTenantID = GetTenantID(r.Context())
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Tenant-ID", "my-tenant-123")

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if capturedTenantID != "my-tenant-123" {
			t.Errorf("expected tenant ID 'my-tenant-123', got '%s'", capturedTenantID)
		}
	})

	t.Run("TracingMiddlewareSetsRequestID", func(t *testing.T) {
		var capturedRequestID string

		handler := TracingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if v, ok := r.Context().Value(RequestIDKey).(string); ok {
				capturedRequestID = v
			}
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if capturedRequestID == "" {
			t.Error("expected request ID to be set")
		}

		if rr.Header().Get("X-Request-ID") == "" {
			t.Error("expected X-Request-ID response header")
		}
	})

	t.Run("RecoverMiddlewareHandlesPanic", func(t *testing.T) {
		handler := RecoverMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("test panic")
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rr := httptest.NewRecorder()

		// Should not panic
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusInternalServerError {
			t.Errorf("expected status 500, got %d", rr.Code)
		}
	})
}
