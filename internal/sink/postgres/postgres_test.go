package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/loykin/agenttrail/internal/event"
	"github.com/loykin/agenttrail/internal/sink"
)

func TestSink_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer func() {
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Errorf("Failed to terminate PostgreSQL container: %v", err)
		}
	}()

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("Failed to get connection string: %v", err)
	}

	s, err := New(connStr, "")
	if err != nil {
		t.Fatalf("Failed to create PostgreSQL sink: %v", err)
	}
	defer func() {
		if err := s.Close(); err != nil {
			t.Errorf("Failed to close sink: %v", err)
		}
	}()

	if err := s.Provision(ctx); err != nil {
		t.Fatalf("Failed to provision: %v", err)
	}
	if err := s.Provision(ctx); err != nil {
		t.Fatalf("Second provision failed: %v", err)
	}

	rows := []sink.Row{
		sink.NewRow(event.Record{
			Timestamp:    time.Now().Add(-time.Second).UTC(),
			Type:         event.TypeToolStarting,
			Agent:        "executor",
			SessionID:    "s-pg-1",
			InvocationID: "inv-pg-1",
			Content:      "Tool Name: fetch, Description: HTTP fetch, Arguments: {}",
		}),
		sink.NewRow(event.Record{
			Timestamp:    time.Now().UTC(),
			Type:         event.TypeToolCompleted,
			Agent:        "executor",
			SessionID:    "s-pg-1",
			InvocationID: "inv-pg-1",
			ErrorMessage: "connection refused",
		}),
	}
	for _, r := range rows {
		if err := s.Insert(ctx, r); err != nil {
			t.Fatalf("Failed to insert: %v", err)
		}
	}

	got, err := s.Query(ctx, sink.QueryFilter{InvocationID: "inv-pg-1"})
	if err != nil {
		t.Fatalf("Failed to query: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(got))
	}
	if got[0].EventType.String != "TOOL_COMPLETED" {
		t.Errorf("rows not newest-first: %s", got[0].EventType.String)
	}
	if got[0].UserID.Valid {
		t.Errorf("user_id should be NULL, got %+v", got[0].UserID)
	}
	if !got[0].ErrorMessage.Valid || got[0].ErrorMessage.String != "connection refused" {
		t.Errorf("error_message = %+v", got[0].ErrorMessage)
	}
}

func TestSink_EmptyDSN(t *testing.T) {
	if _, err := New("", ""); err == nil {
		t.Fatal("expected error for empty DSN")
	}
}
