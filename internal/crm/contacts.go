package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"callbridge/internal/metricfmt"
	"callbridge/pkg/logger"
)

// sharedLookupTimeout bounds a lookup that no longer follows any caller's deadline.
const sharedLookupTimeout = 30 * time.Second

type listRequest struct {
	envelope
	Email []string `json:"email"`
}

type listResponse struct {
	Contacts []contact `json:"contacts"`
}

type contact struct {
	Name        string       `json:"name"`
	Company     string       `json:"company"`
	Email       string       `json:"email"`
	Properties  []property   `json:"properties"`
	ContactTags []contactTag `json:"contactTags"`
}

type property struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

type contactTag struct {
	Tag string `json:"tag"`
}

// LookupByEmail fetches the CRM contact for email and flattens it into ContactMetadata.
//
// The CRM returns at most one meaningful match per email; only the first contact is
// used, and an empty result yields zero-value metadata. Any transport, status or decode
// failure is reported as ErrLookupFailed. Concurrent lookups of one email share a request;
// the shared request is detached from any single caller, and each caller stops waiting
// when its own ctx is done.
func (c *Client) LookupByEmail(ctx context.Context, email string) (ContactMetadata, error) {
	key := strings.ToLower(strings.TrimSpace(email))
	ch := c.lookups.DoChan(key, func() (any, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedLookupTimeout)
		defer cancel()
		return c.lookupByEmail(shared, email)
	})
	select {
	case r := <-ch:
		if r.Err != nil {
			return ContactMetadata{}, r.Err
		}
		return r.Val.(ContactMetadata), nil
	case <-ctx.Done():
		return ContactMetadata{}, fmt.Errorf("%w: %w", ErrLookupFailed, ctx.Err())
	}
}

func (c *Client) lookupByEmail(ctx context.Context, email string) (ContactMetadata, error) {
	log := logger.From(ctx)

	body, err := c.post(ctx, contactListPath, listRequest{envelope: c.sign(), Email: []string{email}})
	if err != nil {
		return ContactMetadata{}, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}

	var resp listResponse
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&resp); err != nil {
		return ContactMetadata{}, fmt.Errorf("%w: decode: %v", ErrLookupFailed, err)
	}

	var first contact
	if len(resp.Contacts) > 0 {
		first = resp.Contacts[0]
	}
	log.Debug("crm contact fetched", "email", email, "contacts", len(resp.Contacts))

	return first.metadata(), nil
}

func (ct contact) metadata() ContactMetadata {
	props := make(map[string]any, len(ct.Properties))
	for _, p := range ct.Properties {
		props[p.Name] = p.Value
	}

	tags := make([]string, 0, len(ct.ContactTags))
	for _, t := range ct.ContactTags {
		if t.Tag != "" {
			tags = append(tags, t.Tag)
		}
	}

	return ContactMetadata{
		Name:         ct.Name,
		FirstName:    FirstName(ct.Name),
		CompanyName:  ct.Company,
		Traffic:      metricfmt.Format(props["traffic"]),
		Keywords:     metricfmt.Format(props["keywords"]),
		Package:      metricfmt.Format(props["package"]),
		Clients:      metricfmt.Format(props["clients"]),
		PackageShort: metricfmt.Format(props["package_short"]),
		Tags:         tags,
	}
}
