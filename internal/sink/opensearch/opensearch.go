package opensearch

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/loykin/agenttrail/internal/sink"
)

// DefaultIndex is the index documents land in unless configured.
const DefaultIndex = "agent-events"

// Sink sends event rows to OpenSearch via HTTP.
// Documents go to: baseURL + "/" + index + "/_doc".
type Sink struct {
	client  *http.Client
	baseURL string
	index   string
}

func New(baseURL, index string) *Sink {
	if index == "" {
		index = DefaultIndex
	}
	c := &http.Client{Timeout: 5 * time.Second}
	return &Sink{client: c, baseURL: strings.TrimRight(baseURL, "/"), index: index}
}

// Provision creates the index with explicit mappings. An index that
// already exists is left untouched.
func (s *Sink) Provision(ctx context.Context) error {
	body := `{"mappings":{"properties":{
		"timestamp":{"type":"date"},
		"event_type":{"type":"keyword"},
		"agent":{"type":"keyword"},
		"session_id":{"type":"keyword"},
		"invocation_id":{"type":"keyword"},
		"user_id":{"type":"keyword"},
		"content":{"type":"text"},
		"error_message":{"type":"text"}
	}}}`

	u := fmt.Sprintf("%s/%s", s.baseURL, s.index)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u, strings.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 300 {
		return nil
	}
	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == http.StatusBadRequest && strings.Contains(string(b), "resource_already_exists_exception") {
		return nil
	}
	return fmt.Errorf("opensearch provision status %d: %s", resp.StatusCode, bytes.TrimSpace(b))
}

func (s *Sink) Insert(ctx context.Context, row sink.Row) error {
	doc := map[string]any{
		"timestamp":     row.Timestamp.UTC().Format(time.RFC3339Nano),
		"event_type":    strOrNil(row.EventType),
		"agent":         strOrNil(row.Agent),
		"session_id":    strOrNil(row.SessionID),
		"invocation_id": strOrNil(row.InvocationID),
		"user_id":       strOrNil(row.UserID),
		"content":       strOrNil(row.Content),
		"error_message": strOrNil(row.ErrorMessage),
	}
	b, _ := json.Marshal(doc)

	u := fmt.Sprintf("%s/%s/_doc", s.baseURL, s.index)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("opensearch sink status %d", resp.StatusCode)
	}
	return nil
}

func (s *Sink) Close() error { return nil }

// strOrNil keeps NULL columns as JSON null in the document.
func strOrNil(ns sql.NullString) any {
	if !ns.Valid {
		return nil
	}
	return ns.String
}
