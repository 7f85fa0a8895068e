package telephony

import (
	"context"
)

// OutboundProvider defines the provider-agnostic interface used by the call flow.
//
// Rules:
// - No provider HTTP calls outside telephony adapters.
// - Keep request/response types provider-agnostic; keep provider raw payloads in Raw.
type OutboundProvider interface {
	Name() string

	StartOutboundCall(ctx context.Context, req OutboundCallRequest) (OutboundCallResult, error)
	GetCallLog(ctx context.Context, sessionID string) (CallLog, error)
}

// OutboundCallRequest asks the voice agent to call ToPhone from FromPhone.
type OutboundCallRequest struct {
	FromPhone string `json:"from_phone"`
	ToPhone   string `json:"to_phone"`
	AgentID   string `json:"agent_id"`

	// Metadata is exposed to the agent; merged contact enrichment and identity fields.
	Metadata map[string]any `json:"metadata"`

	IncludeMetadataInPrompt bool `json:"include_metadata_in_prompt"`
}

// OutboundCallResult identifies the call session created by the provider.
type OutboundCallResult struct {
	SessionID string `json:"session_id"`

	// Raw is the provider response body, for debugging/audit.
	Raw string `json:"-"`
}

// CallLog is the provider's view of a call session at poll time.
type CallLog struct {
	SessionID  string `json:"session_id"`
	CallStatus string `json:"call_status"`

	Raw string `json:"-"`
}

// Call statuses reported by the voice provider that the call flow cares about.
const (
	// CallStatusUserEnded means the callee answered and the conversation ended normally.
	CallStatusUserEnded = "user-ended"
	// CallStatusInProgress means the call was still running at poll time.
	CallStatusInProgress = "in-progress"
)

// Answered reports whether the call log proves the contact talked to the agent.
//
// Only "user-ended" counts; "in-progress" at poll time is not answered.
func (l CallLog) Answered() bool {
	return l.CallStatus == CallStatusUserEnded
}
