// Package exemption resolves which regulatory articles are active for a
// journey, using a data-driven country×scope matrix plus override records
// with optional CEL conditions.
package exemption

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/opensource-rail/redress/internal/domain"
)

// Engine holds the loaded exemption matrix and compiled overrides.
type Engine struct {
	mu        sync.RWMutex
	env       *cel.Env
	matrix    map[string][]*domain.MatrixRecord // key: country code
	overrides []*compiledOverride
}

type compiledOverride struct {
	rec     *domain.OverrideRecord
	program cel.Program // nil when the record has no condition
}

// NewEngine creates an exemption engine with an empty matrix.
func NewEngine() (*Engine, error) {
	env, err := cel.NewEnv(
		cel.Variable("scope", cel.StringType),
		cel.Variable("countries", cel.ListType(cel.StringType)),
		cel.Variable("operators", cel.ListType(cel.StringType)),
		cel.Variable("products", cel.ListType(cel.StringType)),
		cel.Variable("first_country", cel.StringType),
		cel.Variable("last_country", cel.StringType),
		cel.Variable("first_eu", cel.BoolType),
		cel.Variable("last_eu", cel.BoolType),
		cel.Variable("distance_km", cel.DoubleType),
		cel.Variable("distance_known", cel.BoolType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Engine{
		env:    env,
		matrix: make(map[string][]*domain.MatrixRecord),
	}, nil
}

// LoadMatrix replaces the exemption matrix.
func (e *Engine) LoadMatrix(records []*domain.MatrixRecord) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.matrix = make(map[string][]*domain.MatrixRecord)
	for _, rec := range records {
		cc := strings.ToUpper(rec.Country)
		e.matrix[cc] = append(e.matrix[cc], rec)
	}
}

// LoadOverrides compiles and replaces the override set. A record with an
// invalid condition rejects the whole load so a bad deploy is caught at
// startup, not at claim time.
func (e *Engine) LoadOverrides(records []*domain.OverrideRecord) error {
	compiled := make([]*compiledOverride, 0, len(records))
	for _, rec := range records {
		if !rec.Enabled {
			continue
		}
		co := &compiledOverride{rec: rec}
		if rec.Condition != "" {
			prog, err := e.compileCondition(rec)
			if err != nil {
				return err
			}
			co.program = prog
		}
		compiled = append(compiled, co)
	}

	// Most specific key wins: apply country-only first, operator-level
	// next, product-level last.
	sort.SliceStable(compiled, func(i, j int) bool {
		return compiled[i].rec.Specificity() < compiled[j].rec.Specificity()
	})

	e.mu.Lock()
	e.overrides = compiled
	e.mu.Unlock()
	return nil
}

// ValidateOverride compiles the record's condition without loading it,
// so API callers can reject a bad record before it is persisted.
func (e *Engine) ValidateOverride(rec *domain.OverrideRecord) error {
	if rec.Condition == "" {
		return nil
	}
	_, err := e.compileCondition(rec)
	return err
}

func (e *Engine) compileCondition(rec *domain.OverrideRecord) (cel.Program, error) {
	ast, issues := e.env.Compile(rec.Condition)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile override %s: %w", rec.ID, issues.Err())
	}
	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("override %s: condition must return bool, got %s", rec.ID, ast.OutputType())
	}
	prog, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for override %s: %w", rec.ID, err)
	}
	return prog, nil
}

// MatrixCount returns the number of loaded matrix records.
func (e *Engine) MatrixCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	n := 0
	for _, recs := range e.matrix {
		n += len(recs)
	}
	return n
}

// OverrideCount returns the number of loaded overrides.
func (e *Engine) OverrideCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.overrides)
}

// Resolve produces the exemption profile for a journey. Articles start
// active and merge most-restrictive-wins across legs: if any leg's
// (country, scope) disables an article, the profile disables it.
// Overrides apply after the base merge in specificity order. The result
// is a fresh immutable profile; lookup problems fail open with a note.
func (e *Engine) Resolve(j *domain.Journey, scope domain.Scope) *domain.ExemptionProfile {
	profile := &domain.ExemptionProfile{
		Scope:    scope,
		Articles: make(map[domain.ArticleID]bool, 8),
	}
	for _, a := range domain.AllArticles() {
		profile.Articles[a] = true
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	countries := j.Countries()
	if len(e.matrix) == 0 {
		profile.Notes = append(profile.Notes, "exemption matrix unavailable; treating journey as not exempted")
	}

	for _, cc := range countries {
		for _, rec := range e.matrix[cc] {
			if rec.Scope != scope {
				continue
			}
			if rec.Blocked {
				profile.Blocked = true
				profile.Notes = append(profile.Notes, cc+"/"+string(scope)+": EU flow blocked")
			}
			for _, art := range rec.Disables {
				profile.Articles[art] = false
			}
			profile.Notes = append(profile.Notes, rec.Notes...)
		}
	}

	if profile.Blocked {
		// Only informational duties survive a blocked scope.
		for _, art := range domain.CompensationArticles() {
			profile.Articles[art] = false
		}
	}

	activation := e.activation(j, scope)
	for _, co := range e.overrides {
		if !e.overrideMatches(co, j, scope, countries, activation) {
			continue
		}
		for _, art := range co.rec.Disables {
			profile.Articles[art] = false
		}
		for _, art := range co.rec.Enables {
			if profile.Blocked {
				continue // blocked is final for compensation articles
			}
			if !profile.Articles[art] {
				profile.Articles[art] = true
				// Re-enabling is never silent.
				note := co.rec.ID + ": re-enabled " + string(art)
				if len(co.rec.Notes) == 0 {
					profile.Notes = append(profile.Notes, note)
				}
			}
		}
		profile.Notes = append(profile.Notes, co.rec.Notes...)
	}

	return profile
}

// RouteForm returns the national claim form id routed to this journey,
// if any matching override carries one. With several matches the most
// specific override wins.
func (e *Engine) RouteForm(j *domain.Journey, scope domain.Scope) (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	countries := j.Countries()
	activation := e.activation(j, scope)
	form := ""
	for _, co := range e.overrides {
		if co.rec.FormID == "" {
			continue
		}
		if e.overrideMatches(co, j, scope, countries, activation) {
			form = co.rec.FormID // overrides are sorted least specific first
		}
	}
	return form, form != ""
}

func (e *Engine) overrideMatches(co *compiledOverride, j *domain.Journey, scope domain.Scope, countries []string, activation map[string]any) bool {
	rec := co.rec
	if rec.Scope != "" && rec.Scope != scope {
		return false
	}
	if rec.Country != "" && !containsFold(countries, rec.Country) {
		return false
	}
	if rec.Operator != "" && !containsFold(j.Operators(), rec.Operator) {
		return false
	}
	if rec.Product != "" && !matchesProduct(j, rec.Product) {
		return false
	}
	if co.program == nil {
		return true
	}
	out, _, err := co.program.Eval(activation)
	if err != nil {
		// Condition faults never block resolution; the override simply
		// does not apply.
		return false
	}
	b, ok := out.(types.Bool)
	return ok && bool(b)
}

func (e *Engine) activation(j *domain.Journey, scope domain.Scope) map[string]any {
	countries := j.Countries()
	first, last := "", ""
	if len(j.Legs) > 0 {
		first = strings.ToUpper(j.Legs[0].CountryCode)
		last = strings.ToUpper(j.Legs[len(j.Legs)-1].CountryCode)
	}
	km, known := j.DistanceKm()
	if !known {
		km = 0
	}
	products := make([]string, 0, len(j.Legs))
	for i := range j.Legs {
		if p := j.Legs[i].ProductCategory; p != "" {
			products = append(products, p)
		}
	}
	return map[string]any{
		"scope":          string(scope),
		"countries":      countries,
		"operators":      j.Operators(),
		"products":       products,
		"first_country":  first,
		"last_country":   last,
		"first_eu":       domain.IsEUMember(first),
		"last_eu":        domain.IsEUMember(last),
		"distance_km":    km,
		"distance_known": known,
	}
}

func containsFold(haystack []string, needle string) bool {
	for _, h := range haystack {
		if strings.EqualFold(h, needle) {
			return true
		}
	}
	return false
}

func matchesProduct(j *domain.Journey, product string) bool {
	for i := range j.Legs {
		if strings.EqualFold(j.Legs[i].ProductCategory, product) {
			return true
		}
	}
	return false
}
