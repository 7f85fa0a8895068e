package telephony

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const DefaultMillisBaseURL = "https://api-west.millis.ai"

var ErrEmptySessionID = errors.New("telephony: empty session id")

// MillisProvider places outbound calls through the Millis voice-agent API.
type MillisProvider struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewMillisProvider(baseURL, apiKey string, httpClient *http.Client) *MillisProvider {
	if baseURL == "" {
		baseURL = DefaultMillisBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &MillisProvider{baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey, http: httpClient}
}

func (p *MillisProvider) Name() string { return "millis" }

// StartOutboundCall returns an error for transport failures and non-2xx statuses.
// A 2xx response without a session id is still a started call.
func (p *MillisProvider) StartOutboundCall(ctx context.Context, req OutboundCallRequest) (OutboundCallResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return OutboundCallResult{}, err
	}
	raw, err := p.do(ctx, http.MethodPost, "/start_outbound_call", bytes.NewReader(body))
	if err != nil {
		return OutboundCallResult{}, fmt.Errorf("telephony: start outbound call: %w", err)
	}

	res := OutboundCallResult{Raw: string(raw)}
	var parsed struct {
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(raw, &parsed); err == nil {
		res.SessionID = parsed.SessionID
	}
	return res, nil
}

func (p *MillisProvider) GetCallLog(ctx context.Context, sessionID string) (CallLog, error) {
	if sessionID == "" {
		return CallLog{}, ErrEmptySessionID
	}
	raw, err := p.do(ctx, http.MethodGet, "/call-logs/"+url.PathEscape(sessionID), nil)
	if err != nil {
		return CallLog{}, fmt.Errorf("telephony: get call log: %w", err)
	}

	var parsed struct {
		CallStatus string `json:"call_status"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return CallLog{}, fmt.Errorf("telephony: decode call log: %w", err)
	}
	return CallLog{SessionID: sessionID, CallStatus: parsed.CallStatus, Raw: string(raw)}, nil
}

func (p *MillisProvider) do(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", p.apiKey)

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return raw, nil
}
