// Package sink defines the storage boundary of the pipeline: a fixed
// eight-column row shape and the destinations that persist it.
package sink

import (
	"context"
	"database/sql"
	"time"

	"github.com/loykin/agenttrail/internal/event"
)

// DefaultTable is the table event rows land in unless a sink is
// configured otherwise.
const DefaultTable = "agent_events"

// Row is the storage shape of one event. Every column except the
// timestamp is nullable; the zero Row is the all-null template rows are
// merged onto.
type Row struct {
	Timestamp    time.Time      `json:"timestamp"`
	EventType    sql.NullString `json:"event_type"`
	Agent        sql.NullString `json:"agent"`
	SessionID    sql.NullString `json:"session_id"`
	InvocationID sql.NullString `json:"invocation_id"`
	UserID       sql.NullString `json:"user_id"`
	Content      sql.NullString `json:"content"`
	ErrorMessage sql.NullString `json:"error_message"`
}

// NewRow maps a record onto the row template. Empty strings stay NULL;
// a zero timestamp defaults to the current time. Times are stored UTC.
func NewRow(rec event.Record) Row {
	ts := rec.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return Row{
		Timestamp:    ts.UTC(),
		EventType:    nullable(string(rec.Type)),
		Agent:        nullable(rec.Agent),
		SessionID:    nullable(rec.SessionID),
		InvocationID: nullable(rec.InvocationID),
		UserID:       nullable(rec.UserID),
		Content:      nullable(rec.Content),
		ErrorMessage: nullable(rec.ErrorMessage),
	}
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Sink is a destination for event rows (analytics/statistics systems).
// Implementations must be safe for concurrent use.
type Sink interface {
	// Provision creates the backing database, table or index when it
	// does not exist yet. It must be idempotent.
	Provision(ctx context.Context) error
	Insert(ctx context.Context, row Row) error
	Close() error
}

// QueryFilter narrows a row query. Zero values match everything.
type QueryFilter struct {
	SessionID    string
	InvocationID string
	EventType    string
	Limit        int
}

// Querier is implemented by sinks that can read rows back, newest
// first.
type Querier interface {
	Query(ctx context.Context, f QueryFilter) ([]Row, error)
}

// Opener constructs and authenticates a sink. The Lazy writer calls it
// at most once, on first use.
type Opener func(ctx context.Context) (Sink, error)
