package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	DefaultBaseURL         = "https://app3.salesmanago.pl"
	DefaultSessionProperty = "millis_session_id"

	contactListPath = "/api/contact/list"
	batchUpsertPath = "/api/contact/batchupsertv2"
)

var (
	ErrLookupFailed = errors.New("crm: contact lookup failed")
	ErrUpsertFailed = errors.New("crm: contact upsert failed")
	ErrMissingEmail = errors.New("crm: contact email required")
)

// Config holds the SalesManago credentials. Signature is the pre-shared "sha" token.
type Config struct {
	BaseURL   string
	ClientID  string
	APIKey    string
	Signature string
	Owner     string

	// SessionProperty is the custom contact property that receives the call session id.
	SessionProperty string
}

// Client talks to the SalesManago contact API. It is safe for concurrent use.
type Client struct {
	cfg  Config
	http *http.Client
	now  func() time.Time

	lookups singleflight.Group
}

func NewClient(cfg Config, httpClient *http.Client) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.SessionProperty == "" {
		cfg.SessionProperty = DefaultSessionProperty
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{cfg: cfg, http: httpClient, now: time.Now}
}

// envelope is the signed header every SalesManago request carries.
type envelope struct {
	ClientID    string `json:"clientId"`
	APIKey      string `json:"apiKey"`
	RequestTime int64  `json:"requestTime"`
	Sha         string `json:"sha"`
	Owner       string `json:"owner"`
}

func (c *Client) sign() envelope {
	return envelope{
		ClientID:    c.cfg.ClientID,
		APIKey:      c.cfg.APIKey,
		RequestTime: c.now().UnixMilli(),
		Sha:         c.cfg.Signature,
		Owner:       c.cfg.Owner,
	}
}

// post sends body as JSON and returns the response body for 2xx statuses.
func (c *Client) post(ctx context.Context, path string, body any) ([]byte, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, truncate(out, 256))
	}
	return out, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
