package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/loykin/agenttrail/internal/sink"
)

// Sink writes event rows to a SQLite database.
type Sink struct {
	db    *sql.DB
	table string
}

// New opens a SQLite sink.
// DSN format:
//   - "sqlite:///path/to/file.db"
//   - "sqlite://:memory:"
//   - "/path/to/file.db" (without prefix)
//   - ":memory:" (in-memory database)
func New(dsn, table string) (*Sink, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("empty SQLite DSN")
	}
	if strings.HasPrefix(strings.ToLower(dsn), "sqlite://") {
		dsn = strings.TrimPrefix(dsn, "sqlite://")
	}
	if table == "" {
		table = sink.DefaultTable
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// SQLite works best with a single writer connection.
	db.SetMaxOpenConns(1)
	// Wait briefly on locked databases instead of failing with SQLITE_BUSY.
	_, _ = db.Exec("PRAGMA busy_timeout=3000;")

	return &Sink{db: db, table: table}, nil
}

// Provision creates the events table and its indexes when missing.
func (s *Sink) Provision(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s(
			timestamp TIMESTAMP NOT NULL,
			event_type TEXT NULL,
			agent TEXT NULL,
			session_id TEXT NULL,
			invocation_id TEXT NULL,
			user_id TEXT NULL,
			content TEXT NULL,
			error_message TEXT NULL
		);`, s.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_session_id ON %s(session_id);`, s.table, s.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_event_type ON %s(event_type);`, s.table, s.table),
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sink) Insert(ctx context.Context, row sink.Row) error {
	// Stored as text; keeping everything in UTC keeps timestamp ordering sane.
	ts := row.Timestamp.UTC()
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s(timestamp, event_type, agent, session_id, invocation_id, user_id, content, error_message)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?);`, s.table),
		ts, row.EventType, row.Agent, row.SessionID,
		row.InvocationID, row.UserID, row.Content, row.ErrorMessage)
	return err
}

// Query reads rows back, newest first.
func (s *Sink) Query(ctx context.Context, f sink.QueryFilter) ([]sink.Row, error) {
	query := fmt.Sprintf(`SELECT timestamp, event_type, agent, session_id, invocation_id, user_id, content, error_message FROM %s`, s.table)

	var (
		conds []string
		args  []any
	)
	if f.SessionID != "" {
		conds = append(conds, "session_id = ?")
		args = append(args, f.SessionID)
	}
	if f.InvocationID != "" {
		conds = append(conds, "invocation_id = ?")
		args = append(args, f.InvocationID)
	}
	if f.EventType != "" {
		conds = append(conds, "event_type = ?")
		args = append(args, f.EventType)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY timestamp DESC"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []sink.Row
	for rows.Next() {
		var r sink.Row
		if err := rows.Scan(&r.Timestamp, &r.EventType, &r.Agent, &r.SessionID,
			&r.InvocationID, &r.UserID, &r.Content, &r.ErrorMessage); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Sink) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
