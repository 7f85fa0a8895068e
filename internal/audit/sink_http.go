package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const DefaultTable = "millis_raw_response2"

// HTTPSink posts records to the warehouse insert endpoint ({base}/insert-data).
type HTTPSink struct {
	baseURL string
	table   string
	http    *http.Client
}

func NewHTTPSink(baseURL, table string, httpClient *http.Client) *HTTPSink {
	if table == "" {
		table = DefaultTable
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPSink{baseURL: strings.TrimRight(baseURL, "/"), table: table, http: httpClient}
}

type insertRequest struct {
	TableName string         `json:"table_name"`
	Data      []insertColumn `json:"data"`
}

type insertColumn struct {
	ColumnName string `json:"column_name"`
	ColumnData string `json:"column_data"`
}

func (s *HTTPSink) Insert(ctx context.Context, r Record) error {
	body, err := json.Marshal(insertRequest{
		TableName: s.table,
		Data: []insertColumn{
			{ColumnName: "responses", ColumnData: r.Payload},
			{ColumnName: "api_name", ColumnData: r.APIName},
		},
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/insert-data", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("audit: insert-data returned status %d", resp.StatusCode)
	}
	return nil
}
