package charge

import (
	"time"

	"github.com/recorrente/recorrente/internal/types"
)

// StatusHistory is an append-only record of a raw provider status
// transition, written only when the raw status actually changed
type StatusHistory struct {
	// Unique identifier for this history entry
	ID string `db:"id" json:"id"`
	// The charge_id this entry belongs to
	ChargeID string `db:"charge_id" json:"charge_id"`
	// The previous_raw_status before the transition
	PreviousRawStatus string `db:"previous_raw_status" json:"previous_raw_status"`
	// The new_raw_status after the transition
	NewRawStatus string `db:"new_raw_status" json:"new_raw_status"`
	// The payload is the raw provider response snapshot as JSON
	Payload string `db:"payload" json:"payload"`
	// The event_time the transition was observed
	EventTime time.Time `db:"event_time" json:"event_time"`

	types.BaseModel
}

// TableName returns the table name for the status history entry
func (h *StatusHistory) TableName() string {
	return "charge_status_histories"
}
