package compensation

import (
	"strings"

	"github.com/opensource-rail/redress/internal/domain"
)

// Thresholds are the delay minutes at which the 25% and 50% compensation
// tiers open.
type Thresholds struct {
	FirstTierMin  int
	SecondTierMin int
}

// euThresholds is the regulation default: 25% from 60 minutes, 50% from
// 120 minutes.
var euThresholds = Thresholds{FirstTierMin: 60, SecondTierMin: 120}

// nationalPolicy is a voluntary domestic scheme that opens the first
// tier earlier than the regulation. National schemes never touch the
// second tier.
type nationalPolicy struct {
	SchemeID     string
	FirstTierMin int
}

// nationalPolicies maps an operator country to its lenient domestic
// scheme. Only domestic scopes qualify.
var nationalPolicies = map[string]nationalPolicy{
	"FR": {SchemeID: "fr_g30", FirstTierMin: 30},
	"IT": {SchemeID: "it_indennita", FirstTierMin: 30},
	"NL": {SchemeID: "nl_gld", FirstTierMin: 30},
	"DK": {SchemeID: "dk_rejsetidsgaranti", FirstTierMin: 30},
	"ES": {SchemeID: "es_puntualidad", FirstTierMin: 60},
}

// schemeCountry picks the country whose national scheme may apply: the
// single leg country of a domestic journey, else the operator home
// country hint.
func schemeCountry(j *domain.Journey) string {
	if cs := j.Countries(); len(cs) == 1 {
		return cs[0]
	}
	return strings.ToUpper(j.OperatorCountry)
}

// thresholdsFor picks the tier thresholds for a journey. A national
// scheme applies only to domestic scopes and only lowers the first tier;
// the returned rule names the scheme when it differs from the default.
func thresholdsFor(j *domain.Journey, scope domain.Scope) (Thresholds, string) {
	if !scope.Domestic() {
		return euThresholds, "EU"
	}
	p, ok := nationalPolicies[schemeCountry(j)]
	if !ok || p.FirstTierMin >= euThresholds.FirstTierMin {
		return euThresholds, "EU"
	}
	return Thresholds{FirstTierMin: p.FirstTierMin, SecondTierMin: euThresholds.SecondTierMin}, p.SchemeID
}

// tierPct maps a delay onto the compensation percentage.
func tierPct(delayMin int, t Thresholds) int {
	switch {
	case delayMin >= t.SecondTierMin:
		return 50
	case delayMin >= t.FirstTierMin:
		return 25
	default:
		return 0
	}
}
