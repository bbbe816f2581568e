package domain

import "strings"

// Tri is a tri-state fact value. "unknown" is first class and is never
// coerced to "no"; evaluators must ask rather than guess.
type Tri string

const (
	TriYes     Tri = "yes"
	TriNo      Tri = "no"
	TriUnknown Tri = "unknown"
)

// Known reports whether the value carries a definite answer.
func (t Tri) Known() bool {
	return t == TriYes || t == TriNo
}

// TriOf normalizes a raw hook value into a tri-state.
func TriOf(raw string) Tri {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "yes", "ja", "true", "1":
		return TriYes
	case "no", "nej", "false", "0":
		return TriNo
	default:
		return TriUnknown
	}
}

// Hooks is a read-only bag of named facts populated by upstream
// collaborators (OCR, wizard). The engine only reads it.
type Hooks map[string]string

// Tri returns the tri-state value of a hook. Missing hooks are unknown.
func (h Hooks) Tri(name string) Tri {
	if h == nil {
		return TriUnknown
	}
	return TriOf(h[name])
}

// Value returns the raw value of an enumerated hook, or "".
func (h Hooks) Value(name string) string {
	if h == nil {
		return ""
	}
	return strings.TrimSpace(h[name])
}

// Hook names consumed by the article evaluators.
const (
	// Through-ticket liability (Art. 12)
	HookThroughTicketDisclosure = "through_ticket_disclosure" // "through"|"separate"|unknown
	HookSingleTxnOperator       = "single_txn_operator"
	HookSingleTxnRetailer       = "single_txn_retailer"
	HookSeparateContractNotice  = "separate_contract_notice"
	HookSharedPNRScope          = "shared_pnr_scope"
	HookSellerTypeOperator      = "seller_type_operator"
	HookSellerTypeAgency        = "seller_type_agency"
	HookMultiOperatorTrip       = "multi_operator_trip"
	HookConnectionTimeRealistic = "connection_time_realistic"
	HookOneContractSchedule     = "one_contract_schedule"
	HookContactInfoProvided     = "contact_info_provided"
	HookResponsibilityExplained = "responsibility_explained"
	HookSingleBookingReference  = "single_booking_reference"

	// Information duties (Art. 9/10)
	HookPrePurchaseInfoShown = "prepurchase_info_shown"
	HookRealtimeInfoSeen     = "realtime_info_seen"
	HookDisruptionInfoGiven  = "disruption_info_given"

	// Assistance duties (Art. 20)
	HookAssistanceOffered = "assistance_offered"
	HookMealsProvided     = "meals_provided"
	HookLodgingProvided   = "lodging_provided"

	// Rerouting / refund duties (Art. 18)
	HookReroutingOffered      = "rerouting_offered"
	HookRefundOffered         = "refund_offered"
	HookRemedyChoicePresented = "remedy_choice_presented"
	HookContinuedJourney      = "continued_journey"

	// Compensation gatekeepers
	HookPreNotifiedBeforeSale = "prenotified_before_purchase"
	HookSelfInflicted         = "self_inflicted"
	HookExtraordinaryCause    = "extraordinary_cause"

	// Downgrade facts (enumerated values, not tri-state)
	HookFareClassPurchased       = "fare_class_purchased"       // "1"|"2"|...
	HookClassDeliveredStatus     = "class_delivered_status"     // "same"|"lower"|"higher"
	HookReservedAmenityDelivered = "reserved_amenity_delivered" // tri-state
	HookBerthTypeBooked          = "berth_type_booked"          // "seat"|"couchette"|"sleeper"
)

// Disclosure values for HookThroughTicketDisclosure.
const (
	DisclosureThrough  = "through"
	DisclosureSeparate = "separate"
)
