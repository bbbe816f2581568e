// Package scope classifies a journey into its regulatory service scope.
package scope

import (
	"strings"

	"github.com/opensource-rail/redress/internal/domain"
)

// longDistanceProducts are product categories that mark a domestic
// service as long-distance rather than regional.
var longDistanceProducts = []string{
	"ICE", "IC", "EC", "TGV", "AVE", "AVLO", "RJ", "RJX",
	"FRECCIAROSSA", "FRECCIARGENTO", "FRECCIABIANCA",
	"INTERCITY", "INTERCITES", "EUROCITY", "PENDOLINO", "LYN",
}

// Result is a scope classification with an auditable confidence note.
type Result struct {
	Scope      domain.Scope `json:"scope"`
	Confidence string       `json:"confidence"` // "high", "low"
	Reason     string       `json:"reason"`
}

// Classify inspects the journey's leg countries against the EU member
// set. Pure function, no side effects.
//
// Decision order: any non-EU country → intl_beyond_eu; differing EU
// countries → intl_inside_eu; one country + long-distance markers →
// long_domestic; no reliable country → operator home-country hint with
// low confidence; regional only as last resort.
func Classify(j *domain.Journey) Result {
	countries := j.Countries()

	if len(countries) == 0 {
		if cc := strings.ToUpper(j.OperatorCountry); cc != "" {
			return classifySingle(j, cc, "low", "no leg country codes; fell back to operator home country "+cc)
		}
		return Result{Scope: domain.ScopeUnknown, Confidence: "low", Reason: "no leg carries a country code and no operator hint available"}
	}

	for _, cc := range countries {
		if !domain.IsEUMember(cc) {
			return Result{Scope: domain.ScopeIntlBeyondEU, Confidence: "high", Reason: "leg country " + cc + " is outside the EU"}
		}
	}

	if len(countries) > 1 {
		return Result{Scope: domain.ScopeIntlInsideEU, Confidence: "high", Reason: "legs span EU countries " + strings.Join(countries, ",")}
	}

	return classifySingle(j, countries[0], "high", "all legs in "+countries[0])
}

func classifySingle(j *domain.Journey, cc, confidence, reason string) Result {
	if !domain.IsEUMember(cc) {
		return Result{Scope: domain.ScopeIntlBeyondEU, Confidence: confidence, Reason: reason + "; country outside EU"}
	}
	if prod := longDistanceMarker(j); prod != "" {
		return Result{Scope: domain.ScopeLongDomestic, Confidence: confidence, Reason: reason + "; long-distance product " + prod}
	}
	if km, ok := j.DistanceKm(); ok && km >= 150 {
		return Result{Scope: domain.ScopeLongDomestic, Confidence: confidence, Reason: reason + "; distance >= 150 km"}
	}
	// Last resort: regional is the least restrictive bucket.
	return Result{Scope: domain.ScopeRegional, Confidence: "low", Reason: reason + "; no long-distance marker, defaulting to regional"}
}

func longDistanceMarker(j *domain.Journey) string {
	for i := range j.Legs {
		prod := strings.ToUpper(strings.TrimSpace(j.Legs[i].ProductCategory))
		if prod == "" {
			continue
		}
		for _, marker := range longDistanceProducts {
			if prod == marker || strings.HasPrefix(prod, marker+" ") {
				return j.Legs[i].ProductCategory
			}
		}
	}
	return ""
}
