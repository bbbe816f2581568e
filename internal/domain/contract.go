package domain

import "time"

// Contract is an independent booking unit produced by contract splitting
// when through-ticket liability does not hold. It holds indices into the
// journey's legs rather than copies; the journey owns the legs.
type Contract struct {
	ContractKey string     `json:"contractKey"`
	PNR         string     `json:"pnr,omitempty"`
	TicketID    string     `json:"ticketId,omitempty"`
	LegIndexes  []int      `json:"legIndexes"`
	Operators   []string   `json:"operators,omitempty"`
	LiableParty SellerType `json:"liableParty"`

	// TicketValueShare is this contract's fraction of the total ticket
	// price, in [0,1]. Zero when unknown.
	TicketValueShare float64 `json:"ticketValueShare,omitempty"`
}

// Delay status values for ContractDelay.
const (
	DelayStatusOK             = "OK"
	DelayStatusMissingActual  = "MISSING_ACTUAL"
	DelayStatusMissingPlanned = "MISSING_PLANNED"
)

// ContractDelay is the planned-vs-actual arrival of a contract's last leg.
type ContractDelay struct {
	PlannedArrival *time.Time `json:"plannedArrival,omitempty"`
	ActualArrival  *time.Time `json:"actualArrival,omitempty"`
	DelayMinutes   int        `json:"delayMinutes"`
	Status         string     `json:"status"`
}

// ConnectionCheck is the MCT verdict for one interchange inside a contract.
// Realistic is unknown for gaps between the hard bounds; the UI must ask.
type ConnectionCheck struct {
	Station      string `json:"station"`
	GapMinutes   int    `json:"gapMinutes"`
	ThresholdMin int    `json:"thresholdMin"`
	Realistic    Tri    `json:"realistic"`
}

// ContractResult bundles a contract with its computed delay, connection
// checks and per-contract compensation.
type ContractResult struct {
	Contract     Contract          `json:"contract"`
	Delay        ContractDelay     `json:"delay"`
	Connections  []ConnectionCheck `json:"connections,omitempty"`
	Compensation *CompensationLine `json:"compensation,omitempty"`
}
