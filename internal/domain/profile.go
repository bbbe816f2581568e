package domain

// ArticleID identifies a regulatory article toggled by the exemption
// matrix. Identifiers follow the article numbering of the regulation.
type ArticleID string

const (
	ArtInformation   ArticleID = "art9"    // pre-journey information duties
	ArtRealtime      ArticleID = "art10"   // real-time travel data
	ArtThroughTicket ArticleID = "art12"   // through-ticket liability
	ArtRefundReroute ArticleID = "art18"   // refund and rerouting
	ArtHundredMin    ArticleID = "art18_3" // rerouting 100-minute rule
	ArtCompensation  ArticleID = "art19"   // tiered delay compensation
	ArtAssistance    ArticleID = "art20_2" // meals, lodging, transport
	ArtComplaint     ArticleID = "art30_2" // complaint handling
)

// AllArticles lists every article the engine models, in numbering order.
func AllArticles() []ArticleID {
	return []ArticleID{
		ArtInformation, ArtRealtime, ArtThroughTicket, ArtRefundReroute,
		ArtHundredMin, ArtCompensation, ArtAssistance, ArtComplaint,
	}
}

// CompensationArticles are the articles forced off when a journey's
// (country, scope) is blocked in the matrix. Informational duties stay on.
func CompensationArticles() []ArticleID {
	return []ArticleID{ArtThroughTicket, ArtRefundReroute, ArtHundredMin, ArtCompensation, ArtAssistance}
}

// ExemptionProfile is the resolved set of active articles for a journey.
// It is created fresh per evaluation and never mutated afterwards.
type ExemptionProfile struct {
	Scope    Scope              `json:"scope"`
	Blocked  bool               `json:"blocked"`
	Articles map[ArticleID]bool `json:"articles"`
	Notes    []string           `json:"notes,omitempty"`
}

// Allows reports whether an article is active. Articles absent from the
// map default to active.
func (p *ExemptionProfile) Allows(a ArticleID) bool {
	if p == nil {
		return true
	}
	if p.Blocked {
		for _, c := range CompensationArticles() {
			if c == a {
				return false
			}
		}
	}
	on, ok := p.Articles[a]
	if !ok {
		return true
	}
	return on
}

// MatrixRecord is one row of the exemption matrix, keyed by
// (country, scope). Disabled articles merge across legs with
// most-restrictive-wins.
type MatrixRecord struct {
	Country  string      `json:"country"`
	Scope    Scope       `json:"scope"`
	Blocked  bool        `json:"blocked,omitempty"`
	Disables []ArticleID `json:"disables,omitempty"`
	Notes    []string    `json:"notes,omitempty"`
}

// OverrideRecord re-enables or further disables articles after the base
// matrix merge. Precedence: product match beats operator match beats
// country-only match. Condition is an optional CEL expression over the
// journey context; an override that re-enables an article must carry a
// note explaining why.
type OverrideRecord struct {
	ID        string      `json:"id"`
	Country   string      `json:"country"`
	Operator  string      `json:"operator,omitempty"`
	Product   string      `json:"product,omitempty"`
	Scope     Scope       `json:"scope,omitempty"`
	Condition string      `json:"condition,omitempty"`
	Enables   []ArticleID `json:"enables,omitempty"`
	Disables  []ArticleID `json:"disables,omitempty"`
	Notes     []string    `json:"notes,omitempty"`

	// FormID routes claims to a national claim channel when set.
	FormID  string `json:"formId,omitempty"`
	Enabled bool   `json:"enabled"`
}

// Specificity scores an override for precedence ordering.
// Product-level overrides are the most specific key.
func (o *OverrideRecord) Specificity() int {
	s := 0
	if o.Country != "" {
		s++
	}
	if o.Operator != "" {
		s += 2
	}
	if o.Product != "" {
		s += 4
	}
	return s
}
