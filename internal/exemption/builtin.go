package exemption

import "github.com/opensource-rail/redress/internal/domain"

// BuiltinMatrix returns the bundled country×scope exemption matrix.
// Tenants may replace it via the API; this set covers the member states
// with notified exemptions.
func BuiltinMatrix() []*domain.MatrixRecord {
	return []*domain.MatrixRecord{
		{
			Country: "PL", Scope: domain.ScopeRegional, Blocked: true,
			Notes: []string{"PL regional: compensation and assistance handled under national scheme"},
		},
		{
			Country: "SE", Scope: domain.ScopeRegional,
			Disables: []domain.ArticleID{domain.ArtCompensation, domain.ArtAssistance},
			Notes:    []string{"SE regional: exemption notified for services under 150 km"},
		},
		{
			Country: "DE", Scope: domain.ScopeRegional,
			Disables: []domain.ArticleID{domain.ArtHundredMin},
			Notes:    []string{"DE regional: 100-minute rerouting rule exempted"},
		},
		{
			Country: "FR", Scope: domain.ScopeRegional,
			Disables: []domain.ArticleID{domain.ArtCompensation},
			Notes:    []string{"FR regional (TER): Art. 19 compensation exempted"},
		},
		{
			Country: "FI", Scope: domain.ScopeRegional,
			Disables: []domain.ArticleID{domain.ArtCompensation},
			Notes:    []string{"FI commuter services: Art. 19 compensation exempted"},
		},
	}
}

// BuiltinOverrides returns the bundled override records: conditional
// gates that the flat matrix cannot express, plus national claim-form
// routings. Conditions are CEL over the journey context.
func BuiltinOverrides() []*domain.OverrideRecord {
	return []*domain.OverrideRecord{
		{
			ID: "se-regional-150km", Country: "SE", Scope: domain.ScopeRegional,
			Condition: "distance_known && distance_km >= 150.0",
			Enables:   []domain.ArticleID{domain.ArtCompensation, domain.ArtAssistance},
			Notes:     []string{"SE: 150 km condition not met; regional exemptions do not apply"},
			Enabled:   true,
		},
		{
			ID: "fi-beyond-eu-ru-by", Country: "FI", Scope: domain.ScopeIntlBeyondEU,
			Condition: "countries.exists(c, c == 'RU' || c == 'BY')",
			Disables:  []domain.ArticleID{domain.ArtThroughTicket, domain.ArtHundredMin},
			Notes:     []string{"FI: route touches RU/BY; through-ticket and 100-minute rules restricted"},
			Enabled:   true,
		},
		{
			ID: "cz-third-country-terminal", Country: "CZ", Scope: domain.ScopeIntlBeyondEU,
			Condition: "(!first_eu && first_country != 'CH') || (!last_eu && last_country != 'CH')",
			Disables:  []domain.ArticleID{domain.ArtThroughTicket, domain.ArtHundredMin},
			Notes:     []string{"CZ: terminal station in a third country (excl. CH); Art. 12 and 18(3) exempted"},
			Enabled:   true,
		},

		// National claim-channel routings. No article toggles; the form
		// selector picks these up when compensation routes nationally.
		{ID: "fr-sncf-g30", Country: "FR", Operator: "SNCF", FormID: "fr_sncf_g30", Enabled: true},
		{ID: "es-renfe-punctuality", Country: "ES", Operator: "Renfe", FormID: "es_renfe_punctuality", Enabled: true},
		{ID: "it-frecce-bonus", Country: "IT", Operator: "Trenitalia", FormID: "it_trenitalia_frecce_bonus", Enabled: true},
		{ID: "nl-ns-delay", Country: "NL", Operator: "NS", FormID: "nl_ns_delay", Enabled: true},
		{ID: "dk-dsb-guarantee", Country: "DK", Operator: "DSB", FormID: "dk_dsb_rejsetidsgaranti", Enabled: true},
		{ID: "se-sj-law", Country: "SE", Operator: "SJ", FormID: "se_sj_law", Enabled: true},
	}
}
