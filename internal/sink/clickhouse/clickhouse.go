package clickhouse

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/loykin/agenttrail/internal/sink"
	"github.com/loykin/agenttrail/internal/version"
)

// Config describes a ClickHouse sink target. Empty credentials fall
// back to the ambient CLICKHOUSE_USER / CLICKHOUSE_PASSWORD environment.
type Config struct {
	Addr     string // host:port, native protocol
	Database string
	Table    string
	Username string
	Password string
}

// Sink writes event rows to ClickHouse using the official Go client.
type Sink struct {
	conn     driver.Conn
	database string
	table    string
}

// New connects to ClickHouse and verifies the connection. The target
// database does not have to exist yet; Provision creates it.
func New(cfg Config) (*Sink, error) {
	if cfg.Addr == "" {
		cfg.Addr = "localhost:9000"
	}
	if cfg.Database == "" {
		cfg.Database = "default"
	}
	if cfg.Table == "" {
		cfg.Table = sink.DefaultTable
	}
	if cfg.Username == "" {
		cfg.Username = os.Getenv("CLICKHOUSE_USER")
	}
	if cfg.Username == "" {
		cfg.Username = "default"
	}
	if cfg.Password == "" {
		cfg.Password = os.Getenv("CLICKHOUSE_PASSWORD")
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			// Connect against the default database; the target one may
			// not exist before Provision runs.
			Database: "default",
			Username: cfg.Username,
			Password: cfg.Password,
		},
		ClientInfo: clickhouse.ClientInfo{
			Products: []struct {
				Name    string
				Version string
			}{
				{Name: "agenttrail", Version: version.Version},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	// Test the connection
	if err := conn.Ping(context.Background()); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	return &Sink{
		conn:     conn,
		database: cfg.Database,
		table:    cfg.Table,
	}, nil
}

// Provision creates the database and table when missing.
func (s *Sink) Provision(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE DATABASE IF NOT EXISTS %s`, s.database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
			timestamp DateTime64(6, 'UTC'),
			event_type Nullable(String),
			agent Nullable(String),
			session_id Nullable(String),
			invocation_id Nullable(String),
			user_id Nullable(String),
			content Nullable(String),
			error_message Nullable(String)
		) ENGINE = MergeTree ORDER BY timestamp`, s.database, s.table),
	}
	for _, q := range stmts {
		if err := s.conn.Exec(ctx, q); err != nil {
			return fmt.Errorf("failed to provision ClickHouse table: %w", err)
		}
	}
	return nil
}

func (s *Sink) Insert(ctx context.Context, row sink.Row) error {
	query := fmt.Sprintf(`INSERT INTO %s.%s (timestamp, event_type, agent, session_id, invocation_id, user_id, content, error_message) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, s.database, s.table)

	err := s.conn.Exec(ctx, query,
		row.Timestamp,
		nullArg(row.EventType),
		nullArg(row.Agent),
		nullArg(row.SessionID),
		nullArg(row.InvocationID),
		nullArg(row.UserID),
		nullArg(row.Content),
		nullArg(row.ErrorMessage),
	)
	if err != nil {
		return fmt.Errorf("failed to insert event into ClickHouse: %w", err)
	}
	return nil
}

// Query reads rows back, newest first.
func (s *Sink) Query(ctx context.Context, f sink.QueryFilter) ([]sink.Row, error) {
	query := fmt.Sprintf(`SELECT timestamp, event_type, agent, session_id, invocation_id, user_id, content, error_message FROM %s.%s`, s.database, s.table)

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

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ClickHouse: %w", err)
	}
	defer rows.Close()

	var out []sink.Row
	for rows.Next() {
		var (
			ts                                   time.Time
			et, ag, sid, inv, uid, content, errM *string
		)
		if err := rows.Scan(&ts, &et, &ag, &sid, &inv, &uid, &content, &errM); err != nil {
			return nil, fmt.Errorf("failed to scan ClickHouse row: %w", err)
		}
		out = append(out, sink.Row{
			Timestamp:    ts,
			EventType:    fromPtr(et),
			Agent:        fromPtr(ag),
			SessionID:    fromPtr(sid),
			InvocationID: fromPtr(inv),
			UserID:       fromPtr(uid),
			Content:      fromPtr(content),
			ErrorMessage: fromPtr(errM),
		})
	}
	return out, rows.Err()
}

func (s *Sink) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// nullArg converts a NullString into the *string binding the native
// protocol expects for Nullable(String) columns.
func nullArg(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

func fromPtr(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}
