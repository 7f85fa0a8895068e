package calls

import (
	"strings"

	"callbridge/internal/routing"
)

// CallRequest is the CRM-initiated call request as posted to /api_input.
//
// Phone is required; everything else is carried through to audit and the voice agent.
type CallRequest struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ContactID   string `json:"contactId"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Company     string `json:"company"`
}

func (r CallRequest) normalized() CallRequest {
	r.Email = strings.TrimSpace(r.Email)
	r.Phone = strings.TrimSpace(r.Phone)
	return r
}

// Outcome is the state a call request ends in.
//
// Calling is returned for requests whose poll runs in the background or was
// interrupted by shutdown; the other values are terminal.
type Outcome string

const (
	OutcomeCalling          Outcome = "calling"
	OutcomeTalked           Outcome = "talked"
	OutcomeFailedAttempt    Outcome = "failed_attempt"
	OutcomeNotAnswered      Outcome = "not_answered"
	OutcomeNoAgent          Outcome = "no_agent"
	OutcomeInitiationFailed Outcome = "initiation_failed"
)

// MessageInitiated is the response body once the provider accepted the call.
const MessageInitiated = "Call initiated successfully."

// Result is what Start reports back to the HTTP layer.
type Result struct {
	Outcome Outcome
	Message string

	Route     routing.Decision
	SessionID string

	// FailureTag is the tag that was (or would be) written if the call did not connect.
	FailureTag string
}
