// Package dedupe flags repeat claims on the same booking reference.
package dedupe

import (
	"context"
	"fmt"
	"time"

	"github.com/opensource-rail/redress/internal/domain"
)

// Detector counts recent evaluations per booking reference. A fast
// cache counter answers first; the repository backs it when the cache
// is unavailable.
type Detector struct {
	repo   domain.Repository
	cache  domain.Cache
	window time.Duration
}

// NewDetector creates a detector. windowHours follows
// ClaimConfig.DuplicateWindowHours; zero falls back to 72 hours.
func NewDetector(repo domain.Repository, cache domain.Cache, windowHours int) *Detector {
	if windowHours <= 0 {
		windowHours = 72
	}
	return &Detector{
		repo:   repo,
		cache:  cache,
		window: time.Duration(windowHours) * time.Hour,
	}
}

// Check registers one evaluation attempt for each booking reference and
// reports whether any reference was already claimed inside the window.
// Detection is advisory: faults degrade to "not suspect", never block
// the evaluation.
func (d *Detector) Check(ctx context.Context, tenantID string, refs []string) bool {
	suspect := false
	for _, ref := range refs {
		if ref == "" {
			continue
		}
		if d.seenBefore(ctx, tenantID, ref) {
			suspect = true
		}
	}
	return suspect
}

func (d *Detector) seenBefore(ctx context.Context, tenantID, ref string) bool {
	if d.cache != nil {
		key := "dedupe:" + ref
		count, err := d.cache.IncrementCounter(ctx, tenantID, key, d.window)
		if err == nil {
			return count > 1
		}
	}
	if d.repo != nil {
		since := time.Now().Add(-d.window)
		count, err := d.repo.CountEvaluationsByBookingRef(ctx, tenantID, ref, since)
		if err == nil {
			return count > 0
		}
	}
	return false
}

// Window returns the detection window, for diagnostics.
func (d *Detector) Window() time.Duration {
	return d.window
}

// Describe renders the detector settings for startup logging.
func (d *Detector) Describe() string {
	return fmt.Sprintf("duplicate detection over %s", d.window)
}
