// Package domain defines the core interfaces and types for Redress.
package domain

import (
	"strconv"
	"strings"
	"time"
)

// Scope is the regulatory service classification of a journey.
type Scope string

const (
	ScopeRegional     Scope = "regional"
	ScopeLongDomestic Scope = "long_domestic"
	ScopeIntlInsideEU Scope = "intl_inside_eu"
	ScopeIntlBeyondEU Scope = "intl_beyond_eu"
	ScopeUnknown      Scope = "unknown"
)

// Domestic reports whether the scope is a domestic classification.
// National compensation policies only apply to domestic scopes.
func (s Scope) Domestic() bool {
	return s == ScopeRegional || s == ScopeLongDomestic
}

// SellerType identifies who sold the ticket(s).
type SellerType string

const (
	SellerOperator SellerType = "operator"
	SellerAgency   SellerType = "agency"
	SellerUnknown  SellerType = "unknown"
)

// Leg is one scheduled train ride between two stations.
type Leg struct {
	From        string `json:"from"`
	To          string `json:"to"`
	CountryCode string `json:"countryCode,omitempty"`

	ScheduledDeparture time.Time  `json:"scheduledDeparture"`
	ScheduledArrival   time.Time  `json:"scheduledArrival"`
	ActualDeparture    *time.Time `json:"actualDeparture,omitempty"`
	ActualArrival      *time.Time `json:"actualArrival,omitempty"`

	Operator        string `json:"operator,omitempty"`
	ProductCategory string `json:"productCategory,omitempty"`

	// Booking identifiers used by contract splitting. A leg without any
	// identifier falls back to an operator+date contract key.
	TicketID string `json:"ticketId,omitempty"`
	PNR      string `json:"pnr,omitempty"`

	// Optional per-leg data. Pointers distinguish "absent" from zero.
	Price      *float64 `json:"price,omitempty"`
	DistanceKm *float64 `json:"distanceKm,omitempty"`
}

// DelayMinutes returns the arrival delay of this leg, or -1 when the
// actual arrival is not known.
func (l *Leg) DelayMinutes() int {
	if l.ActualArrival == nil || l.ScheduledArrival.IsZero() {
		return -1
	}
	d := l.ActualArrival.Sub(l.ScheduledArrival)
	if d < 0 {
		return 0
	}
	return int(d.Minutes())
}

// Money is a monetary value in a specific currency.
type Money struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currencyCode"`
}

// ParseMoney parses a loosely formatted price string ("12,50", "300 EUR").
// Malformed input yields 0 EUR and ok=false; it never fails hard.
func ParseMoney(raw string, currency string) (Money, bool) {
	if currency == "" {
		currency = "EUR"
	}
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, ",", ".")
	// Strip a trailing currency token if present ("300 EUR").
	if fields := strings.Fields(s); len(fields) == 2 {
		s = fields[0]
		if len(fields[1]) == 3 {
			currency = strings.ToUpper(fields[1])
		}
	}
	amount, err := strconv.ParseFloat(s, 64)
	if err != nil || amount < 0 {
		return Money{Amount: 0, Currency: "EUR"}, false
	}
	return Money{Amount: amount, Currency: currency}, true
}

// Journey is an ordered list of legs plus the ticket-level facts needed
// for eligibility and compensation. Legs must be temporally ordered.
type Journey struct {
	ID   string `json:"id,omitempty"`
	Legs []Leg  `json:"legs"`

	TicketPrice Money `json:"ticketPrice"`

	// RawTicketPrice is the unparsed price string from ingestion (OCR,
	// wizard). It is consulted only when TicketPrice carries no amount;
	// malformed input degrades to 0 EUR with a warning, never an error.
	RawTicketPrice string `json:"rawTicketPrice,omitempty"`

	BookingReferences []string   `json:"bookingReferences,omitempty"`
	SellerType        SellerType `json:"sellerType,omitempty"`

	// ReturnTicket marks a return fare without split per-leg prices;
	// the compensation basis is then half the total fare.
	ReturnTicket bool `json:"returnTicket,omitempty"`

	// OperatorCountry is a collaborator-supplied hint used when no leg
	// carries a country code.
	OperatorCountry string `json:"operatorCountry,omitempty"`

	// TotalDistanceKm overrides the per-leg distance sum when set.
	TotalDistanceKm *float64 `json:"totalDistanceKm,omitempty"`
}

// Countries returns the distinct leg country codes in journey order.
func (j *Journey) Countries() []string {
	seen := make(map[string]bool, len(j.Legs))
	out := make([]string, 0, len(j.Legs))
	for i := range j.Legs {
		cc := strings.ToUpper(j.Legs[i].CountryCode)
		if cc == "" || seen[cc] {
			continue
		}
		seen[cc] = true
		out = append(out, cc)
	}
	return out
}

// Operators returns the distinct operators in journey order.
func (j *Journey) Operators() []string {
	seen := make(map[string]bool, len(j.Legs))
	out := make([]string, 0, len(j.Legs))
	for i := range j.Legs {
		op := j.Legs[i].Operator
		if op == "" || seen[op] {
			continue
		}
		seen[op] = true
		out = append(out, op)
	}
	return out
}

// DistanceKm returns the journey distance and whether it is known.
func (j *Journey) DistanceKm() (float64, bool) {
	if j.TotalDistanceKm != nil {
		return *j.TotalDistanceKm, true
	}
	sum := 0.0
	have := false
	for i := range j.Legs {
		if j.Legs[i].DistanceKm != nil {
			sum += *j.Legs[i].DistanceKm
			have = true
		}
	}
	return sum, have
}

// FinalDelayMinutes computes the end-to-end arrival delay from the last
// leg, or -1 when the actual arrival is unknown.
func (j *Journey) FinalDelayMinutes() int {
	if len(j.Legs) == 0 {
		return -1
	}
	return j.Legs[len(j.Legs)-1].DelayMinutes()
}

// EUMembers is the fixed EU membership set used by scope classification
// and exemption gates.
var EUMembers = map[string]bool{
	"AT": true, "BE": true, "BG": true, "HR": true, "CY": true, "CZ": true,
	"DK": true, "EE": true, "FI": true, "FR": true, "DE": true, "GR": true,
	"HU": true, "IE": true, "IT": true, "LV": true, "LT": true, "LU": true,
	"MT": true, "NL": true, "PL": true, "PT": true, "RO": true, "SK": true,
	"SI": true, "ES": true, "SE": true,
}

// IsEUMember reports whether the country code belongs to the EU set.
func IsEUMember(cc string) bool {
	return EUMembers[strings.ToUpper(cc)]
}
