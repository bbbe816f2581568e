// Scenario replay tool for testing Redress against labeled claim data.
//
// Usage:
//   go run cmd/scenarios/main.go -csv /path/to/scenarios.csv -url http://localhost:8080
//
// This tool:
//   1. Reads labeled journey scenarios (delay, route, expected outcome)
//   2. Sends each journey to Redress for evaluation
//   3. Compares the verdict (eligible / not eligible) with the labels
//   4. Calculates precision, recall, F1-score, and confusion matrix
//
// Expected CSV columns:
//   id, country, operator, product, from, to, scheduled_departure,
//   scheduled_arrival, actual_arrival, price, currency, pnr, eligible
//
// Timestamps are RFC3339; eligible is 0 or 1.
package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Scenario represents a labeled journey row from the scenario file.
type Scenario struct {
	ID       string
	Country  string
	Operator string
	Product  string
	From     string
	To       string

	ScheduledDeparture time.Time
	ScheduledArrival   time.Time
	ActualArrival      time.Time

	Price    float64
	Currency string
	PNR      string

	Eligible bool
}

// EvaluateRequest mirrors the Redress API request format.
type EvaluateRequest struct {
	Journey Journey           `json:"journey"`
	Hooks   map[string]string `json:"hooks,omitempty"`
}

// Journey is the wire shape of a single-ticket journey.
type Journey struct {
	ID                string   `json:"id,omitempty"`
	Legs              []Leg    `json:"legs"`
	TicketPrice       Money    `json:"ticketPrice"`
	BookingReferences []string `json:"bookingReferences,omitempty"`
	SellerType        string   `json:"sellerType,omitempty"`
}

type Leg struct {
	From               string     `json:"from"`
	To                 string     `json:"to"`
	CountryCode        string     `json:"countryCode,omitempty"`
	ScheduledDeparture time.Time  `json:"scheduledDeparture"`
	ScheduledArrival   time.Time  `json:"scheduledArrival"`
	ActualArrival      *time.Time `json:"actualArrival,omitempty"`
	Operator           string     `json:"operator,omitempty"`
	ProductCategory    string     `json:"productCategory,omitempty"`
	PNR                string     `json:"pnr,omitempty"`
}

type Money struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currencyCode"`
}

// EvaluateResponse is the subset of the evaluation we score against.
type EvaluateResponse struct {
	ID          string `json:"id"`
	Scope       string `json:"scope"`
	Calculation *struct {
		Compensation struct {
			Eligible bool    `json:"eligible"`
			Pct      int     `json:"pct"`
			Amount   float64 `json:"amount"`
		} `json:"compensation"`
		NetToClaimant float64 `json:"netToClaimant"`
	} `json:"calculation"`
	Form struct {
		Form string `json:"form"`
	} `json:"form"`
}

// Metrics tracks replay results
type Metrics struct {
	TruePositives  int64 // Eligible journeys found eligible
	FalsePositives int64 // Ineligible journeys found eligible
	TrueNegatives  int64 // Ineligible journeys found ineligible
	FalseNegatives int64 // Eligible journeys found ineligible (missed claims!)

	TotalProcessed int64
	TotalEligible  int64
	TotalNotDue    int64
	TotalErrors    int64

	ProcessingTimeMs int64
}

func main() {
	// Parse flags
	csvPath := flag.String("csv", "", "Path to scenario CSV file")
	baseURL := flag.String("url", "http://localhost:8080", "Redress base URL")
	tenantID := flag.String("tenant", "scenario-test", "Tenant ID for requests")
	limit := flag.Int("limit", 10000, "Maximum scenarios to process (0 = all)")
	workers := flag.Int("workers", 10, "Number of concurrent workers")
	eligibleOnly := flag.Bool("eligible-only", false, "Only replay scenarios labeled eligible")
	verbose := flag.Bool("verbose", false, "Print each scenario result")
	flag.Parse()

	if *csvPath == "" {
		fmt.Println("Usage: scenarios -csv /path/to/scenarios.csv [-url http://localhost:8080]")
		fmt.Println("\nFlags:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	fmt.Println("╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║          REDRESS SCENARIO REPLAY - Claim Eligibility          ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")
	fmt.Printf("\nCSV File:     %s\n", *csvPath)
	fmt.Printf("Redress URL:  %s\n", *baseURL)
	fmt.Printf("Tenant ID:    %s\n", *tenantID)
	fmt.Printf("Workers:      %d\n", *workers)
	fmt.Printf("Limit:        %d\n", *limit)
	fmt.Println()

	// Check Redress is running
	if err := checkHealth(*baseURL); err != nil {
		fmt.Printf("ERROR: Redress not reachable at %s: %v\n", *baseURL, err)
		fmt.Println("\nMake sure Redress is running:")
		fmt.Println("  cd redress && go run cmd/redress/main.go")
		os.Exit(1)
	}
	fmt.Println("✓ Redress is healthy")

	// Read scenario data
	fmt.Printf("\nReading scenarios from %s...\n", *csvPath)
	scenarios, err := readScenarioCSV(*csvPath, *limit, *eligibleOnly)
	if err != nil {
		fmt.Printf("ERROR: Failed to read CSV: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✓ Loaded %d scenarios\n", len(scenarios))

	// Count eligible vs not
	eligibleCount := 0
	for _, s := range scenarios {
		if s.Eligible {
			eligibleCount++
		}
	}
	fmt.Printf("  - Eligible: %d (%.2f%%)\n", eligibleCount, 100*float64(eligibleCount)/float64(len(scenarios)))
	fmt.Printf("  - Not due:  %d (%.2f%%)\n", len(scenarios)-eligibleCount, 100*float64(len(scenarios)-eligibleCount)/float64(len(scenarios)))

	// Run replay
	fmt.Printf("\nRunning replay with %d workers...\n", *workers)
	startTime := time.Now()
	metrics := runReplay(scenarios, *baseURL, *tenantID, *workers, *verbose)
	duration := time.Since(startTime)

	// Print results
	printResults(metrics, duration)
}

func checkHealth(baseURL string) error {
	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func readScenarioCSV(path string, limit int, eligibleOnly bool) ([]Scenario, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)

	// Read header
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	// Map column indices
	colIndex := make(map[string]int)
	for i, col := range header {
		colIndex[strings.ToLower(strings.TrimSpace(col))] = i
	}

	get := func(record []string, col string) string {
		idx, ok := colIndex[col]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	var scenarios []Scenario

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue // Skip malformed rows
		}

		eligible := get(record, "eligible") == "1"
		if eligibleOnly && !eligible {
			continue
		}

		schedDep, err1 := time.Parse(time.RFC3339, get(record, "scheduled_departure"))
		schedArr, err2 := time.Parse(time.RFC3339, get(record, "scheduled_arrival"))
		actualArr, err3 := time.Parse(time.RFC3339, get(record, "actual_arrival"))
		if err1 != nil || err2 != nil || err3 != nil {
			continue // Unusable without the three timestamps
		}

		price, _ := strconv.ParseFloat(get(record, "price"), 64)
		currency := get(record, "currency")
		if currency == "" {
			currency = "EUR"
		}

		s := Scenario{
			ID:                 get(record, "id"),
			Country:            strings.ToUpper(get(record, "country")),
			Operator:           get(record, "operator"),
			Product:            get(record, "product"),
			From:               get(record, "from"),
			To:                 get(record, "to"),
			ScheduledDeparture: schedDep,
			ScheduledArrival:   schedArr,
			ActualArrival:      actualArr,
			Price:              price,
			Currency:           currency,
			PNR:                get(record, "pnr"),
			Eligible:           eligible,
		}

		scenarios = append(scenarios, s)

		if limit > 0 && len(scenarios) >= limit {
			break
		}
	}

	return scenarios, nil
}

func runReplay(scenarios []Scenario, baseURL, tenantID string, numWorkers int, verbose bool) *Metrics {
	metrics := &Metrics{}

	// Create work channel
	work := make(chan Scenario, 100)
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := &http.Client{Timeout: 10 * time.Second}

			for s := range work {
				start := time.Now()
				result, err := evaluateScenario(client, baseURL, tenantID, s)
				elapsed := time.Since(start).Milliseconds()

				atomic.AddInt64(&metrics.ProcessingTimeMs, elapsed)
				atomic.AddInt64(&metrics.TotalProcessed, 1)

				if err != nil {
					atomic.AddInt64(&metrics.TotalErrors, 1)
					if verbose {
						fmt.Printf("ERROR: %s -> %v\n", s.ID, err)
					}
					continue
				}

				// Track actual labels
				if s.Eligible {
					atomic.AddInt64(&metrics.TotalEligible, 1)
				} else {
					atomic.AddInt64(&metrics.TotalNotDue, 1)
				}

				// Calculate confusion matrix
				predicted := result.Calculation != nil && result.Calculation.Compensation.Eligible
				actual := s.Eligible

				if predicted && actual {
					atomic.AddInt64(&metrics.TruePositives, 1)
				} else if predicted && !actual {
					atomic.AddInt64(&metrics.FalsePositives, 1)
				} else if !predicted && !actual {
					atomic.AddInt64(&metrics.TrueNegatives, 1)
				} else { // !predicted && actual
					atomic.AddInt64(&metrics.FalseNegatives, 1)
				}

				if verbose {
					status := "✓"
					if predicted != actual {
						status = "✗"
					}
					delay := int(s.ActualArrival.Sub(s.ScheduledArrival).Minutes())
					pct, net := 0, 0.0
					if result.Calculation != nil {
						pct = result.Calculation.Compensation.Pct
						net = result.Calculation.NetToClaimant
					}
					fmt.Printf("%s %-14s | %s | Delay: %4d min | Label: %-5v | Redress: %-5v (%d%%, net %.2f) | Scope: %s\n",
						status,
						s.ID,
						s.Country,
						delay,
						actual,
						predicted,
						pct,
						net,
						result.Scope,
					)
				}
			}
		}()
	}

	// Send work
	for _, s := range scenarios {
		work <- s
	}
	close(work)

	// Wait for completion
	wg.Wait()

	return metrics
}

func evaluateScenario(client *http.Client, baseURL, tenantID string, s Scenario) (*EvaluateResponse, error) {
	actual := s.ActualArrival
	req := EvaluateRequest{
		Journey: Journey{
			ID: s.ID,
			Legs: []Leg{{
				From:               s.From,
				To:                 s.To,
				CountryCode:        s.Country,
				ScheduledDeparture: s.ScheduledDeparture,
				ScheduledArrival:   s.ScheduledArrival,
				ActualArrival:      &actual,
				Operator:           s.Operator,
				ProductCategory:    s.Product,
				PNR:                s.PNR,
			}},
			TicketPrice:       Money{Amount: s.Price, Currency: s.Currency},
			BookingReferences: []string{s.PNR},
			SellerType:        "operator",
		},
		// Labeled scenarios assume duty of care was met so assistance
		// hooks never void the claim.
		Hooks: map[string]string{
			"assistance_offered": "yes",
			"meals_provided":     "yes",
			"lodging_provided":   "yes",
		},
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequest(http.MethodPost, baseURL+"/evaluate", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Tenant-ID", tenantID)

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var result EvaluateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	return &result, nil
}

func printResults(m *Metrics, duration time.Duration) {
	fmt.Println("\n╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                       REPLAY RESULTS                          ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")

	fmt.Printf("\n📊 DATASET STATISTICS\n")
	fmt.Printf("   Total Processed:  %d\n", m.TotalProcessed)
	fmt.Printf("   Total Eligible:   %d\n", m.TotalEligible)
	fmt.Printf("   Total Not Due:    %d\n", m.TotalNotDue)
	fmt.Printf("   Errors:           %d\n", m.TotalErrors)

	fmt.Printf("\n📈 CONFUSION MATRIX\n")
	fmt.Println("                        Predicted")
	fmt.Println("                    DUE         NOT DUE")
	fmt.Println("              ┌──────────┬──────────┐")
	fmt.Printf("   Actual  E  │ %8d │ %8d │  (TP, FN)\n", m.TruePositives, m.FalseNegatives)
	fmt.Println("              ├──────────┼──────────┤")
	fmt.Printf("          NE  │ %8d │ %8d │  (FP, TN)\n", m.FalsePositives, m.TrueNegatives)
	fmt.Println("              └──────────┴──────────┘")

	// Calculate metrics
	precision := float64(0)
	if m.TruePositives+m.FalsePositives > 0 {
		precision = float64(m.TruePositives) / float64(m.TruePositives+m.FalsePositives)
	}

	recall := float64(0)
	if m.TruePositives+m.FalseNegatives > 0 {
		recall = float64(m.TruePositives) / float64(m.TruePositives+m.FalseNegatives)
	}

	f1 := float64(0)
	if precision+recall > 0 {
		f1 = 2 * (precision * recall) / (precision + recall)
	}

	accuracy := float64(0)
	total := m.TruePositives + m.TrueNegatives + m.FalsePositives + m.FalseNegatives
	if total > 0 {
		accuracy = float64(m.TruePositives+m.TrueNegatives) / float64(total)
	}

	fmt.Printf("\n🎯 AGREEMENT METRICS\n")
	fmt.Printf("   Precision:  %.4f  (of claims paid, how many were actually due)\n", precision)
	fmt.Printf("   Recall:     %.4f  (of due claims, how many did we pay)\n", recall)
	fmt.Printf("   F1-Score:   %.4f  (harmonic mean of precision & recall)\n", f1)
	fmt.Printf("   Accuracy:   %.4f  (overall correct verdicts)\n", accuracy)

	// Verdict analysis
	fmt.Printf("\n🔍 VERDICT ANALYSIS\n")
	if m.TotalEligible > 0 {
		paidRate := float64(m.TruePositives) / float64(m.TotalEligible) * 100
		missRate := float64(m.FalseNegatives) / float64(m.TotalEligible) * 100
		fmt.Printf("   Claims Paid:       %d / %d (%.2f%%)\n", m.TruePositives, m.TotalEligible, paidRate)
		fmt.Printf("   Claims Missed:     %d / %d (%.2f%%) ⚠️\n", m.FalseNegatives, m.TotalEligible, missRate)
	}
	if m.TotalNotDue > 0 {
		overpayRate := float64(m.FalsePositives) / float64(m.TotalNotDue) * 100
		fmt.Printf("   Overpaid:          %d / %d (%.2f%%)\n", m.FalsePositives, m.TotalNotDue, overpayRate)
	}

	fmt.Printf("\n⏱️  PERFORMANCE\n")
	fmt.Printf("   Total Duration:   %v\n", duration.Round(time.Millisecond))
	if m.TotalProcessed > 0 {
		avgMs := float64(m.ProcessingTimeMs) / float64(m.TotalProcessed)
		tps := float64(m.TotalProcessed) / duration.Seconds()
		fmt.Printf("   Avg Latency:      %.2f ms\n", avgMs)
		fmt.Printf("   Throughput:       %.2f claims/sec\n", tps)
	}

	// Interpretation
	fmt.Printf("\n💡 INTERPRETATION\n")
	if recall >= 0.9 {
		fmt.Println("   ✅ Excellent recall - paying almost every due claim")
	} else if recall >= 0.7 {
		fmt.Println("   ⚠️  Good recall - but some due claims are missed")
	} else if recall >= 0.5 {
		fmt.Println("   ⚠️  Moderate recall - many due claims are missed")
	} else {
		fmt.Println("   ❌ Poor recall - most due claims are being missed!")
	}

	if precision >= 0.9 {
		fmt.Println("   ✅ High precision - payouts match the labels")
	} else if precision >= 0.5 {
		fmt.Println("   ⚠️  Moderate precision - some claims paid without being due")
	} else {
		fmt.Println("   ❌ Low precision - mostly unwarranted payouts")
	}

	fmt.Println()
}
