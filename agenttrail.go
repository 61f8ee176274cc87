package agenttrail

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	cfg "github.com/loykin/agenttrail/internal/config"
	"github.com/loykin/agenttrail/internal/event"
	"github.com/loykin/agenttrail/internal/format"
	"github.com/loykin/agenttrail/internal/metrics"
	"github.com/loykin/agenttrail/internal/recorder"
	iapi "github.com/loykin/agenttrail/internal/server"
	"github.com/loykin/agenttrail/internal/sink"
	"github.com/loykin/agenttrail/internal/sink/factory"
	"github.com/prometheus/client_golang/prometheus"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type Config = recorder.Config

type Scope = recorder.Scope

type Option = recorder.Option

type EventType = event.Type

type Record = event.Record

type Notification = event.Notification

type Content = event.Content

type Part = event.Part

type FunctionCall = event.FunctionCall

type FunctionResponse = event.FunctionResponse

type ModelRequest = event.ModelRequest

type ModelResponse = event.ModelResponse

type GenerationParams = event.GenerationParams

type TokenUsage = event.TokenUsage

type Tool = event.Tool

type ContentFormatter = format.ContentFormatter

type Sink = sink.Sink

type Row = sink.Row

type Opener = sink.Opener

type Querier = sink.Querier

type QueryFilter = sink.QueryFilter

type SinkState = sink.State

type SinkOptions = factory.Options

type ServerConfig = cfg.ServerConfig

// Event type constants.
const (
	EventUserInput           = event.TypeUserInput
	EventUserMessageReceived = event.TypeUserMessageReceived
	EventInvocationStarting  = event.TypeInvocationStarting
	EventInvocationCompleted = event.TypeInvocationCompleted
	EventAgentStarting       = event.TypeAgentStarting
	EventAgentCompleted      = event.TypeAgentCompleted
	EventLLMRequest          = event.TypeLLMRequest
	EventLLMResponse         = event.TypeLLMResponse
	EventToolStarting        = event.TypeToolStarting
	EventToolCompleted       = event.TypeToolCompleted
	EventLLMError            = event.TypeLLMError
	EventToolError           = event.TypeToolError
	EventToolCall            = event.TypeToolCall
	EventToolResult          = event.TypeToolResult
	EventModelResponse       = event.TypeModelResponse
	EventError               = event.TypeError
	EventSystem              = event.TypeSystem
)

// Sink lifecycle states.
const (
	SinkUninitialized = sink.StateUninitialized
	SinkReady         = sink.StateReady
	SinkFailed        = sink.StateFailed
)

// TextContent builds a single-part text content payload.
func TextContent(role, text string) *Content { return event.TextContent(role, text) }

// WithLogger routes recorder diagnostics to the given logger.
func WithLogger(l *slog.Logger) Option { return recorder.WithLogger(l) }

// Recorder is a thin facade over internal/recorder.Recorder.
// It provides a stable public API for embedding.

type Recorder struct{ inner *recorder.Recorder }

// New builds a recorder from an explicit configuration and sink opener.
func New(c Config, open Opener, opts ...Option) (*Recorder, error) {
	r, err := recorder.New(c, open, opts...)
	if err != nil {
		return nil, err
	}
	return &Recorder{inner: r}, nil
}

// NewFromConfig builds a recorder from a loaded daemon configuration.
func NewFromConfig(c *cfg.Config, opts ...Option) (*Recorder, error) {
	allow, deny, err := c.EventTypes()
	if err != nil {
		return nil, err
	}
	var open sink.Opener
	if c.Sink.DSN != "" {
		open = factory.OpenerFromDSN(c.Sink.DSN, c.SinkOptions())
	}
	rc := Config{
		Enabled:   c.Recorder.Enabled,
		Allowlist: allow,
		Denylist:  deny,
	}
	r, err := recorder.New(rc, open, opts...)
	if err != nil {
		return nil, err
	}
	return &Recorder{inner: r}, nil
}

func (r *Recorder) Enabled() bool    { return r.inner.Enabled() }
func (r *Recorder) Close() error     { return r.inner.Close() }
func (r *Recorder) State() SinkState { return r.inner.SinkState() }
func (r *Recorder) Querier() Querier { return r.inner.Querier() }
func (r *Recorder) EnsureSinkReady(ctx context.Context) SinkState {
	return r.inner.EnsureSinkReady(ctx)
}

// Lifecycle hooks. Each records one event and returns the pass-through
// value unchanged, so the calls can be spliced into an agent framework's
// callback chain.

func (r *Recorder) OnUserMessage(ctx context.Context, scope Scope, msg *Content) *Content {
	return r.inner.OnUserMessage(ctx, scope, msg)
}

func (r *Recorder) OnInvocationStart(ctx context.Context, scope Scope) *Content {
	return r.inner.OnInvocationStart(ctx, scope)
}

func (r *Recorder) OnInvocationComplete(ctx context.Context, scope Scope) *Content {
	return r.inner.OnInvocationComplete(ctx, scope)
}

func (r *Recorder) OnAgentStart(ctx context.Context, scope Scope) *Content {
	return r.inner.OnAgentStart(ctx, scope)
}

func (r *Recorder) OnAgentComplete(ctx context.Context, scope Scope) *Content {
	return r.inner.OnAgentComplete(ctx, scope)
}

func (r *Recorder) OnModelRequest(ctx context.Context, scope Scope, req ModelRequest) *ModelResponse {
	return r.inner.OnModelRequest(ctx, scope, req)
}

func (r *Recorder) OnModelResponse(ctx context.Context, scope Scope, resp ModelResponse) *ModelResponse {
	return r.inner.OnModelResponse(ctx, scope, resp)
}

func (r *Recorder) OnModelError(ctx context.Context, scope Scope, req ModelRequest, callErr error) *ModelResponse {
	return r.inner.OnModelError(ctx, scope, req, callErr)
}

func (r *Recorder) OnToolStart(ctx context.Context, scope Scope, tool Tool, args map[string]any) map[string]any {
	return r.inner.OnToolStart(ctx, scope, tool, args)
}

func (r *Recorder) OnToolComplete(ctx context.Context, scope Scope, tool Tool, result map[string]any) map[string]any {
	return r.inner.OnToolComplete(ctx, scope, tool, result)
}

func (r *Recorder) OnToolError(ctx context.Context, scope Scope, tool Tool, args map[string]any, callErr error) map[string]any {
	return r.inner.OnToolError(ctx, scope, tool, args, callErr)
}

func (r *Recorder) OnEvent(ctx context.Context, scope Scope, n Notification) *Notification {
	return r.inner.OnEvent(ctx, scope, n)
}

// Sink construction helpers.

func NewSinkFromDSN(dsn string, opts SinkOptions) (Sink, error) {
	return factory.NewSinkFromDSN(dsn, opts)
}

func OpenerFromDSN(dsn string, opts SinkOptions) Opener {
	return factory.OpenerFromDSN(dsn, opts)
}

func LoadConfig(path string) (*cfg.Config, error) {
	return cfg.Load(path)
}

// NewHTTPServer starts an HTTP server exposing the internal API using the given recorder.
func NewHTTPServer(addr, basePath, token string, r *Recorder) (*http.Server, error) {
	return iapi.NewServer(addr, basePath, token, r.inner)
}

// NewHTTPServerFromConfig starts an HTTP server from a server config
// section, including TLS when configured.
func NewHTTPServerFromConfig(sc ServerConfig, r *Recorder) (*http.Server, error) {
	return iapi.NewServerFromConfig(sc, r.inner)
}

// Metrics helpers (public facade)

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
func RegisterMetricsDefault() error                 { return metrics.Register(prometheus.DefaultRegisterer) }

// ServeMetrics starts an HTTP server on addr exposing /metrics using the default registry.
// It returns any immediate listen error; otherwise it runs the server in the caller goroutine.
func ServeMetrics(addr string) error {
	http.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           nil,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv.ListenAndServe()
}
