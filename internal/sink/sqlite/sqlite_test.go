package sqlite

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/loykin/agenttrail/internal/event"
	"github.com/loykin/agenttrail/internal/sink"
)

func TestSink_RoundTrip(t *testing.T) {
	dbPath := t.TempDir() + "/events.db"

	s, err := New("sqlite://"+dbPath, "")
	if err != nil {
		t.Fatalf("Failed to create sink: %v", err)
	}
	defer func() {
		if err := s.Close(); err != nil {
			t.Errorf("Failed to close sink: %v", err)
		}
	}()

	ctx := context.Background()
	if err := s.Provision(ctx); err != nil {
		t.Fatalf("Failed to provision: %v", err)
	}
	// Provisioning twice must be a no-op.
	if err := s.Provision(ctx); err != nil {
		t.Fatalf("Second provision failed: %v", err)
	}

	rows := []sink.Row{
		sink.NewRow(event.Record{
			Timestamp:    time.Now().Add(-time.Minute),
			Type:         event.TypeUserInput,
			Agent:        "planner",
			SessionID:    "s-1",
			InvocationID: "inv-1",
			UserID:       "u-1",
			Content:      "User Content: text: 'hi'",
		}),
		sink.NewRow(event.Record{
			Timestamp:    time.Now(),
			Type:         event.TypeToolError,
			Agent:        "planner",
			SessionID:    "s-1",
			InvocationID: "inv-1",
			Content:      "Tool Name: search",
			ErrorMessage: "timeout",
		}),
		sink.NewRow(event.Record{
			Timestamp: time.Now(),
			Type:      event.TypeSystem,
			SessionID: "s-2",
		}),
	}
	for _, r := range rows {
		if err := s.Insert(ctx, r); err != nil {
			t.Fatalf("Failed to insert row: %v", err)
		}
	}

	got, err := s.Query(ctx, sink.QueryFilter{SessionID: "s-1"})
	if err != nil {
		t.Fatalf("Failed to query: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("query returned %d rows, want 2", len(got))
	}
	// Newest first.
	if got[0].EventType.String != "TOOL_ERROR" || got[1].EventType.String != "USER_INPUT" {
		t.Errorf("unexpected order: %s then %s", got[0].EventType.String, got[1].EventType.String)
	}
	if !got[0].ErrorMessage.Valid || got[0].ErrorMessage.String != "timeout" {
		t.Errorf("error_message = %+v", got[0].ErrorMessage)
	}
	if got[0].UserID.Valid {
		t.Errorf("user_id should be NULL, got %+v", got[0].UserID)
	}

	byType, err := s.Query(ctx, sink.QueryFilter{EventType: "SYSTEM"})
	if err != nil {
		t.Fatalf("Failed to query by type: %v", err)
	}
	if len(byType) != 1 || byType[0].SessionID.String != "s-2" {
		t.Errorf("type filter returned %+v", byType)
	}

	limited, err := s.Query(ctx, sink.QueryFilter{Limit: 1})
	if err != nil {
		t.Fatalf("Failed to query with limit: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("limit ignored, got %d rows", len(limited))
	}
}

func TestSink_InMemory(t *testing.T) {
	s, err := New(":memory:", "trail")
	if err != nil {
		t.Fatalf("Failed to create in-memory sink: %v", err)
	}
	defer func() { _ = s.Close() }()

	ctx := context.Background()
	if err := s.Provision(ctx); err != nil {
		t.Fatalf("Failed to provision: %v", err)
	}
	row := sink.Row{
		Timestamp: time.Now().UTC(),
		EventType: sql.NullString{String: "AGENT_STARTING", Valid: true},
		Agent:     sql.NullString{String: "mem-agent", Valid: true},
	}
	if err := s.Insert(ctx, row); err != nil {
		t.Fatalf("Failed to insert: %v", err)
	}

	got, err := s.Query(ctx, sink.QueryFilter{})
	if err != nil {
		t.Fatalf("Failed to query: %v", err)
	}
	if len(got) != 1 || got[0].Agent.String != "mem-agent" {
		t.Errorf("round trip returned %+v", got)
	}
}

func TestSink_EmptyDSN(t *testing.T) {
	if _, err := New("", ""); err == nil {
		t.Fatal("expected error for empty DSN")
	}
}

func TestSink_InsertBeforeProvision(t *testing.T) {
	s, err := New(":memory:", "")
	if err != nil {
		t.Fatalf("Failed to create sink: %v", err)
	}
	defer func() { _ = s.Close() }()

	// The table does not exist yet, so the insert must surface an error.
	err = s.Insert(context.Background(), sink.NewRow(event.Record{Type: event.TypeSystem}))
	if err == nil {
		t.Fatal("expected error inserting before provisioning")
	}
}
