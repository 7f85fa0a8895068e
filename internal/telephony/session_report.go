package telephony

import (
	"encoding/json"
	"strings"

	"callbridge/internal/crm"
)

// SessionReport captures the subset of the provider's end-of-call report we act on.
// Unknown fields are ignored; the raw payload is kept separately by the handler.
type SessionReport struct {
	CallStatus    string         `json:"call_status"`
	ErrorMessage  any            `json:"error_message"`
	FunctionCalls []FunctionCall `json:"function_calls"`

	Metadata struct {
		Email string `json:"email"`
	} `json:"metadata"`

	Recording struct {
		RecordingURL string `json:"recording_url"`
	} `json:"recording"`

	CallAnalysis struct {
		OptOut Flag `json:"opt_out"`
	} `json:"call_analysis"`
}

// Flag is a loosely typed boolean: JSON booleans, non-zero numbers and the strings
// true/yes/y/on/1 are true; null and anything else is false.
type Flag bool

func (f *Flag) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case bool:
		*f = Flag(t)
	case float64:
		*f = t != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes", "y", "on", "1":
			*f = true
		default:
			*f = false
		}
	default:
		*f = false
	}
	return nil
}

// FunctionCall is one tool invocation made by the agent during the call.
type FunctionCall struct {
	Name   string          `json:"name"`
	Result json.RawMessage `json:"result"`
}

// ResultText renders the tool result as text: JSON strings are unquoted, anything
// else is returned as its JSON encoding, absent/null is empty.
func (f FunctionCall) ResultText() string {
	raw := strings.TrimSpace(string(f.Result))
	if raw == "" || raw == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(f.Result, &s); err == nil {
		return s
	}
	return raw
}

const (
	bookMeetingTool = "book_meeting_slot"

	BookingSuccess = "Success"
	BookingFailed  = "Failed"

	noBookingInfo = "No info"
	engagementTBD = "ToBeFilled"
)

// SessionStats is the summary echoed back to the provider and written to audit.
type SessionStats struct {
	Booking      *string `json:"booking"`
	BookingInfo  string  `json:"booking_info"`
	Engagement   string  `json:"engagement"`
	CallStatus   string  `json:"call_status"`
	ErrorMessage any     `json:"error_message"`
	RecordingURL string  `json:"recording_url"`
}

// SessionOutcome is everything derived from one end-of-call report.
type SessionOutcome struct {
	Email string
	Tags  []string
	Stats SessionStats
}

// DeriveSessionOutcome turns a report into CRM tags and stats.
//
// The contact always gets TALKED (the provider only reports sessions that connected),
// plus MEETING when the last book_meeting_slot call did not fail and MEETING_FAILED
// otherwise, MILLIS_<STATUS> when a status is present, and MILLIS_DNC on opt-out.
func DeriveSessionOutcome(r SessionReport) SessionOutcome {
	stats := SessionStats{
		BookingInfo:  noBookingInfo,
		Engagement:   engagementTBD,
		CallStatus:   r.CallStatus,
		ErrorMessage: r.ErrorMessage,
		RecordingURL: r.Recording.RecordingURL,
	}

	for _, fc := range r.FunctionCalls {
		if fc.Name != bookMeetingTool {
			continue
		}
		result := fc.ResultText()
		booking := BookingSuccess
		if strings.Contains(result, "Failed") {
			booking = BookingFailed
		}
		stats.Booking = &booking
		stats.BookingInfo = result
	}

	tags := []string{crm.TagTalked}
	if stats.Booking != nil && *stats.Booking == BookingSuccess {
		tags = append(tags, crm.TagMeeting)
	} else {
		tags = append(tags, crm.TagMeetingFailed)
	}
	if status := strings.TrimSpace(r.CallStatus); status != "" {
		tags = append(tags, crm.TagCallStatusPrefix+strings.ToUpper(status))
	}
	if r.CallAnalysis.OptOut {
		tags = append(tags, crm.TagDoNotCall)
	}

	return SessionOutcome{
		Email: strings.TrimSpace(r.Metadata.Email),
		Tags:  tags,
		Stats: stats,
	}
}
