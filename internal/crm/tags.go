package crm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"callbridge/pkg/logger"
)

type upsertRequest struct {
	envelope
	UpsertDetails []upsertDetail `json:"upsertDetails"`
}

type upsertDetail struct {
	Contact    upsertContact     `json:"contact"`
	Tags       []string          `json:"tags,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
}

type upsertContact struct {
	Email string `json:"email"`
}

type upsertResponse struct {
	Success *bool    `json:"success"`
	Message []string `json:"message"`
}

// Upsert applies tags and/or the call-session property to the contact keyed by email.
//
// The CRM treats repeated upserts with the same tags as no-ops. Callers decide what to do
// with the returned error; the call flow only logs it.
func (c *Client) Upsert(ctx context.Context, u TagUpdate) error {
	email := strings.TrimSpace(u.Email)
	if email == "" {
		return ErrMissingEmail
	}

	d := upsertDetail{Contact: upsertContact{Email: email}}
	if len(u.Tags) > 0 {
		d.Tags = u.Tags
	}
	if u.CallID != "" {
		d.Properties = map[string]string{c.cfg.SessionProperty: u.CallID}
	}

	body, err := c.post(ctx, batchUpsertPath, upsertRequest{envelope: c.sign(), UpsertDetails: []upsertDetail{d}})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpsertFailed, err)
	}

	var resp upsertResponse
	if err := json.Unmarshal(body, &resp); err == nil && resp.Success != nil && !*resp.Success {
		return fmt.Errorf("%w: %s", ErrUpsertFailed, strings.Join(resp.Message, "; "))
	}

	logger.From(ctx).Debug("crm contact upserted", "email", email, "tags", u.Tags, "call_id", u.CallID)
	return nil
}
