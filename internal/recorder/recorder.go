// Package recorder turns agent lifecycle hooks into telemetry rows and
// hands them to a lazily initialized sink. It is a pure observer: no
// hook ever alters the run it watches, and no failure inside the
// pipeline ever reaches the caller.
package recorder

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/loykin/agenttrail/internal/event"
	"github.com/loykin/agenttrail/internal/format"
	"github.com/loykin/agenttrail/internal/metrics"
	"github.com/loykin/agenttrail/internal/sink"
)

// Config controls which events are recorded and how their content is
// shaped before persisting.
type Config struct {
	// Enabled gates the whole pipeline. When false no sink is ever
	// initialized and hooks return immediately.
	Enabled bool
	// Allowlist, when non-empty, restricts recording to these types.
	Allowlist []event.Type
	// Denylist drops these types. Deny wins over allow.
	Denylist []event.Type
	// Formatter optionally rewrites formatted content before storage.
	// A failing formatter is logged and the original content kept.
	Formatter format.ContentFormatter
}

// Scope identifies the actor and correlation ids a hook fires under.
// Empty fields end up as NULL columns.
type Scope struct {
	Agent        string
	SessionID    string
	InvocationID string
	UserID       string
}

type filter struct {
	allow map[event.Type]struct{}
	deny  map[event.Type]struct{}
}

func newFilter(allowlist, denylist []event.Type) filter {
	f := filter{}
	if len(allowlist) > 0 {
		f.allow = make(map[event.Type]struct{}, len(allowlist))
		for _, t := range allowlist {
			f.allow[t] = struct{}{}
		}
	}
	if len(denylist) > 0 {
		f.deny = make(map[event.Type]struct{}, len(denylist))
		for _, t := range denylist {
			f.deny[t] = struct{}{}
		}
	}
	return f
}

// admit reports whether an event type passes the configured lists.
func (f filter) admit(t event.Type) bool {
	if _, denied := f.deny[t]; denied {
		return false
	}
	if len(f.allow) == 0 {
		return true
	}
	_, allowed := f.allow[t]
	return allowed
}

// Recorder is the hook surface agents call into. All methods are safe
// for concurrent use.
type Recorder struct {
	cfg    Config
	filter filter
	lazy   *sink.Lazy
	logger *slog.Logger
}

// Option customizes a Recorder.
type Option func(*Recorder)

// WithLogger routes pipeline diagnostics to l instead of slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Recorder) {
		if l != nil {
			r.logger = l
		}
	}
}

// New builds a Recorder over the given sink opener. The opener runs at
// most once, on the first admitted event. An enabled config without an
// opener is rejected.
func New(cfg Config, open sink.Opener, opts ...Option) (*Recorder, error) {
	if cfg.Enabled && open == nil {
		return nil, errors.New("recorder enabled but no sink opener configured")
	}
	for _, lists := range [][]event.Type{cfg.Allowlist, cfg.Denylist} {
		for _, t := range lists {
			if !t.Valid() {
				return nil, errors.New("unknown event type in filter list: " + string(t))
			}
		}
	}

	r := &Recorder{
		cfg:    cfg,
		filter: newFilter(cfg.Allowlist, cfg.Denylist),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.lazy = sink.NewLazy(open, r.logger)
	return r, nil
}

// record runs one event through filter, formatter override and the
// sink write. The write itself runs on its own goroutine with a
// caller-independent context: the hook waits for it so events of one
// invocation land in order, but a cancelled caller leaves the write
// running to completion instead of tearing it down.
func (r *Recorder) record(ctx context.Context, rec event.Record) {
	if !r.cfg.Enabled {
		return
	}
	if !r.filter.admit(rec.Type) {
		metrics.IncFiltered(string(rec.Type))
		return
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	if r.cfg.Formatter != nil && rec.Content != "" {
		out, err := format.ApplyOverride(r.cfg.Formatter, rec.Content)
		if err != nil {
			metrics.IncFormatterFailure()
			r.logger.Warn("content formatter failed, keeping original content",
				"event_type", rec.Type, "error", err)
		}
		rec.Content = out
	}
	metrics.IncRecorded(string(rec.Type))

	row := sink.NewRow(rec)
	wctx := context.WithoutCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.lazy.Write(wctx, row)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

// Enabled reports whether the pipeline records at all.
func (r *Recorder) Enabled() bool { return r.cfg.Enabled }

// SinkState reports the sink lifecycle state.
func (r *Recorder) SinkState() sink.State { return r.lazy.State() }

// EnsureSinkReady initializes the sink eagerly. Daemons call this at
// startup so query endpoints work before the first event arrives; the
// library path stays lazy.
func (r *Recorder) EnsureSinkReady(ctx context.Context) sink.State {
	if !r.cfg.Enabled {
		return r.lazy.State()
	}
	return r.lazy.EnsureReady(ctx)
}

// Querier exposes the sink's read side, or nil when the sink is not
// ready or cannot be queried.
func (r *Recorder) Querier() sink.Querier {
	s := r.lazy.Sink()
	if s == nil {
		return nil
	}
	q, ok := s.(sink.Querier)
	if !ok {
		return nil
	}
	return q
}

// Close releases the sink if it was opened.
func (r *Recorder) Close() error { return r.lazy.Close() }
