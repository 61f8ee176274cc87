package sink

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/loykin/agenttrail/internal/metrics"
)

// State is the lifecycle of a lazily initialized sink.
type State int32

const (
	StateUninitialized State = iota
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Lazy defers sink construction and provisioning to the first write.
// Initialization runs at most once across goroutines; when it fails the
// Lazy stays failed for its lifetime and later writes are dropped
// without another attempt. Write failures are logged and swallowed so
// recording never disturbs the caller.
type Lazy struct {
	open   Opener
	logger *slog.Logger

	once  sync.Once
	state atomic.Int32
	sink  Sink
}

// NewLazy wraps open in a lazily initialized writer. A nil logger
// falls back to slog.Default().
func NewLazy(open Opener, logger *slog.Logger) *Lazy {
	if logger == nil {
		logger = slog.Default()
	}
	return &Lazy{open: open, logger: logger}
}

// State reports the current lifecycle state.
func (l *Lazy) State() State { return State(l.state.Load()) }

// EnsureReady runs initialization if it has not run yet and reports the
// resulting state. Concurrent callers block until the single attempt
// finishes.
func (l *Lazy) EnsureReady(ctx context.Context) State {
	l.once.Do(func() { l.init(ctx) })
	return l.State()
}

func (l *Lazy) init(ctx context.Context) {
	metrics.IncSinkInitAttempt()
	if l.open == nil {
		l.fail(errors.New("no sink opener configured"))
		return
	}
	s, err := l.open(ctx)
	if err != nil {
		l.fail(err)
		return
	}
	if err := s.Provision(ctx); err != nil {
		_ = s.Close()
		l.fail(err)
		return
	}
	l.sink = s
	l.state.Store(int32(StateReady))
	metrics.SetSinkState(int(StateReady))
	l.logger.Debug("sink initialized")
}

func (l *Lazy) fail(err error) {
	l.state.Store(int32(StateFailed))
	metrics.SetSinkState(int(StateFailed))
	l.logger.Error("sink initialization failed, recording disabled", "error", err)
}

// Write inserts one row, initializing the sink on first use. It never
// returns an error: failed writes are logged and counted, and writes
// after a failed initialization are silently dropped.
func (l *Lazy) Write(ctx context.Context, row Row) {
	if l.EnsureReady(ctx) != StateReady {
		return
	}
	if err := l.sink.Insert(ctx, row); err != nil {
		metrics.IncSinkWriteFailure()
		l.logger.Warn("sink write failed", "event_type", row.EventType.String, "error", err)
		return
	}
	metrics.IncSinkWrite()
}

// Sink exposes the underlying sink once it is ready, for read paths.
// It returns nil before initialization and after a failed one.
func (l *Lazy) Sink() Sink {
	if l.State() != StateReady {
		return nil
	}
	return l.sink
}

// Close releases the underlying sink if one was opened.
func (l *Lazy) Close() error {
	if l.State() != StateReady {
		return nil
	}
	return l.sink.Close()
}
