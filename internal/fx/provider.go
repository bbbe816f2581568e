// Package fx supplies EUR-based exchange rates for expense conversion.
// A static reference table backs the lookups and a cache front keeps a
// day's evaluations on one consistent rate.
package fx

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/opensource-rail/redress/internal/domain"
)

// referenceRates are fallback rates (units per EUR) used when no live
// source is configured. Values are periodically refreshed reference
// rates, not market quotes.
var referenceRates = map[string]float64{
	"EUR": 1.0,
	"SEK": 11.32,
	"DKK": 7.46,
	"NOK": 11.54,
	"CHF": 0.94,
	"GBP": 0.85,
	"PLN": 4.28,
	"CZK": 24.65,
	"HUF": 395.0,
	"RON": 4.98,
	"BGN": 1.96,
}

// StaticProvider serves rates from the built-in reference table.
type StaticProvider struct {
	mu    sync.RWMutex
	rates map[string]float64
}

// NewStaticProvider returns a provider over the reference table.
func NewStaticProvider() *StaticProvider {
	rates := make(map[string]float64, len(referenceRates))
	for ccy, r := range referenceRates {
		rates[ccy] = r
	}
	return &StaticProvider{rates: rates}
}

// Rate implements domain.RateProvider.
func (p *StaticProvider) Rate(_ context.Context, currency string) (float64, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	r, ok := p.rates[strings.ToUpper(currency)]
	if !ok {
		return 0, fmt.Errorf("%s: %w", currency, domain.ErrRateUnavailable)
	}
	return r, nil
}

// SetRate installs or updates a rate, for operator-supplied corrections.
func (p *StaticProvider) SetRate(currency string, rate float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rates[strings.ToUpper(currency)] = rate
}

// CachedProvider fronts another provider with the shared cache so all
// evaluations within the TTL window see the same rate.
type CachedProvider struct {
	next     domain.RateProvider
	cache    domain.Cache
	tenantID string
	ttl      time.Duration
}

// NewCachedProvider wraps next with cache-backed memoization. ttlHours
// follows ClaimConfig.FXCacheTTLHours; zero falls back to 22 hours.
func NewCachedProvider(next domain.RateProvider, cache domain.Cache, tenantID string, ttlHours int) *CachedProvider {
	if ttlHours <= 0 {
		ttlHours = 22
	}
	return &CachedProvider{
		next:     next,
		cache:    cache,
		tenantID: tenantID,
		ttl:      time.Duration(ttlHours) * time.Hour,
	}
}

// Rate implements domain.RateProvider. Cache faults fall through to the
// underlying provider; a successful lookup is written back best-effort.
func (p *CachedProvider) Rate(ctx context.Context, currency string) (float64, error) {
	currency = strings.ToUpper(currency)
	if entry, err := p.cache.GetRate(ctx, p.tenantID, currency); err == nil && entry != nil {
		return entry.Rate, nil
	}

	rate, err := p.next.Rate(ctx, currency)
	if err != nil {
		return 0, err
	}

	entry := &domain.RateEntry{
		Currency:  currency,
		Rate:      rate,
		FetchedAt: time.Now().UTC().Format(time.RFC3339),
	}
	_ = p.cache.SetRate(ctx, p.tenantID, currency, entry, p.ttl)
	return rate, nil
}
