package opensearch

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/loykin/agenttrail/internal/sink"
)

func testRow() sink.Row {
	return sink.Row{
		Timestamp: time.Now().UTC(),
		EventType: sql.NullString{String: "TOOL_COMPLETED", Valid: true},
		Agent:     sql.NullString{String: "researcher", Valid: true},
		SessionID: sql.NullString{String: "s-1", Valid: true},
		Content:   sql.NullString{String: "Tool Name: search", Valid: true},
	}
}

func TestSink_Insert(t *testing.T) {
	var receivedBody []byte
	var receivedURL string
	var receivedMethod string

	// Create test server to mock OpenSearch
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedMethod = r.Method
		receivedURL = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		receivedBody = body

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"_id":"test","_index":"agent-events","result":"created"}`))
	}))
	defer server.Close()

	s := New(server.URL, "agent-events")

	if err := s.Insert(context.Background(), testRow()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if receivedMethod != "POST" {
		t.Errorf("Expected POST method, got: %s", receivedMethod)
	}
	if expectedPath := "/agent-events/_doc"; receivedURL != expectedPath {
		t.Errorf("Expected URL path %s, got: %s", expectedPath, receivedURL)
	}

	var doc map[string]any
	if err := json.Unmarshal(receivedBody, &doc); err != nil {
		t.Fatalf("Failed to parse received JSON: %v", err)
	}
	if doc["event_type"] != "TOOL_COMPLETED" {
		t.Errorf("event_type = %v", doc["event_type"])
	}
	if doc["agent"] != "researcher" {
		t.Errorf("agent = %v", doc["agent"])
	}

	// Absent columns must arrive as explicit nulls, not be dropped.
	for _, field := range []string{"invocation_id", "user_id", "error_message"} {
		v, ok := doc[field]
		if !ok {
			t.Errorf("field %s missing from document", field)
			continue
		}
		if v != nil {
			t.Errorf("field %s = %v, want null", field, v)
		}
	}
}

func TestSink_InsertError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"bad request"}`))
	}))
	defer server.Close()

	s := New(server.URL, "agent-events")
	err := s.Insert(context.Background(), testRow())
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if !strings.Contains(err.Error(), "opensearch sink status 400") {
		t.Errorf("Expected status error message, got: %v", err)
	}
}

func TestSink_Provision(t *testing.T) {
	var receivedMethod, receivedPath string
	var receivedBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedMethod = r.Method
		receivedPath = r.URL.Path
		receivedBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"acknowledged":true}`))
	}))
	defer server.Close()

	s := New(server.URL, "agent-events")
	if err := s.Provision(context.Background()); err != nil {
		t.Fatalf("provision: %v", err)
	}
	if receivedMethod != "PUT" {
		t.Errorf("Expected PUT method, got %s", receivedMethod)
	}
	if receivedPath != "/agent-events" {
		t.Errorf("Expected index path, got %s", receivedPath)
	}
	if !strings.Contains(string(receivedBody), `"timestamp":{"type":"date"}`) {
		t.Errorf("mappings missing timestamp field: %s", receivedBody)
	}
}

func TestSink_ProvisionExistingIndex(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"type":"resource_already_exists_exception","reason":"index [agent-events] already exists"}}`))
	}))
	defer server.Close()

	s := New(server.URL, "agent-events")
	if err := s.Provision(context.Background()); err != nil {
		t.Fatalf("existing index must not fail provisioning: %v", err)
	}
}

func TestSink_ProvisionError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"no permission"}`))
	}))
	defer server.Close()

	s := New(server.URL, "agent-events")
	err := s.Provision(context.Background())
	if err == nil {
		t.Fatal("expected provisioning error")
	}
	if !strings.Contains(err.Error(), "status 403") {
		t.Errorf("error should carry the status, got %v", err)
	}
}

func TestNew_Defaults(t *testing.T) {
	s := New("http://localhost:9200/", "")
	if s.index != DefaultIndex {
		t.Errorf("index = %s, want %s", s.index, DefaultIndex)
	}
	if s.baseURL != "http://localhost:9200" {
		t.Errorf("trailing slash not trimmed: %s", s.baseURL)
	}
}
