package audit

import "time"

// Record is one append-only audit entry: a raw payload tagged with the API step that
// produced it.
//
// Invariants:
// - Records are never updated or deleted.
// - Payload is stored verbatim (JSON text for structured payloads).
// - Writing a record is best-effort; no call flow waits on or fails because of it.
type Record struct {
	ID        string    `json:"id"`
	APIName   string    `json:"api_name"`
	Payload   string    `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
}

// API step names used as Record.APIName.
const (
	APIInput            = "api_input"
	APIOutboundCall     = "millis_data"
	APIEndOfCall        = "end_of_call"
	APIEndOfCallSummary = "end_of_call_structured"
	APIPrefetch         = "prefetch_data"
)
