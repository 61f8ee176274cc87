package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/loykin/agenttrail/internal/auth"
	"github.com/loykin/agenttrail/internal/config"
	"github.com/loykin/agenttrail/internal/event"
	"github.com/loykin/agenttrail/internal/recorder"
	"github.com/loykin/agenttrail/internal/sink"
	tlsutil "github.com/loykin/agenttrail/internal/tls"
	"github.com/loykin/agenttrail/internal/version"
)

// Router provides embeddable HTTP handlers for the event trail.
// Endpoints:
//   GET  {basePath}/status   recorder state, sink state and version
//   GET  {basePath}/events   query: session_id=...&invocation_id=...&event_type=...&limit=N
//   POST {basePath}/record   body: RecordRequest JSON
// All filters on /events are optional; results come back newest first.
// basePath may be empty or start with '/'; no trailing slash.

type Router struct {
	rec      *recorder.Recorder
	basePath string
	mw       *auth.Middleware
}

// NewRouter constructs a new Router with configurable basePath.
// An empty token leaves the API unauthenticated.
func NewRouter(rec *recorder.Recorder, basePath, token string) *Router {
	return &Router{
		rec:      rec,
		basePath: sanitizeBase(basePath),
		mw:       auth.NewMiddleware(token),
	}
}

// Handler returns an http.Handler powered by gin that can be mounted in any server/mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	group := g.Group(r.basePath)
	group.Use(r.mw.GinAuth())
	group.GET("/status", r.handleStatus)
	group.GET("/events", r.handleEvents)
	group.POST("/record", r.handleRecord)
	return g
}

// NewServer starts a standalone HTTP server on addr using this router.
// The caller shuts it down via http.Server's Close or Shutdown.
func NewServer(addr, basePath, token string, rec *recorder.Recorder) (*http.Server, error) {
	r := NewRouter(rec, basePath, token)
	server := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() { _ = server.ListenAndServe() }()
	return server, nil
}

// NewServerFromConfig builds and starts the API server described by the
// config section, serving TLS when configured.
func NewServerFromConfig(sc config.ServerConfig, rec *recorder.Recorder) (*http.Server, error) {
	tlsCfg, err := tlsutil.SetupTLS(sc)
	if err != nil {
		return nil, err
	}
	addr := sc.Listen
	if addr == "" {
		addr = ":8080"
	}
	r := NewRouter(rec, sc.BasePath, sc.Token)
	server := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		TLSConfig:         tlsCfg,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	if tlsCfg != nil {
		go func() { _ = server.ListenAndServeTLS("", "") }()
	} else {
		go func() { _ = server.ListenAndServe() }()
	}
	return server, nil
}

// --- Handlers ---

type errorResp struct {
	Error string `json:"error"`
}

type statusResp struct {
	Enabled   bool   `json:"enabled"`
	SinkState string `json:"sink_state"`
	Version   string `json:"version"`
}

type recordResp struct {
	OK       bool `json:"ok"`
	Recorded bool `json:"recorded"`
}

// EventRecord is the wire form of one stored row. Pointer fields carry
// NULL columns as JSON null.
type EventRecord struct {
	Timestamp    time.Time `json:"timestamp"`
	EventType    *string   `json:"event_type"`
	Agent        *string   `json:"agent"`
	SessionID    *string   `json:"session_id"`
	InvocationID *string   `json:"invocation_id"`
	UserID       *string   `json:"user_id"`
	Content      *string   `json:"content"`
	ErrorMessage *string   `json:"error_message"`
}

// RecordRequest carries one externally observed notification.
type RecordRequest struct {
	Agent        string             `json:"agent"`
	SessionID    string             `json:"session_id"`
	InvocationID string             `json:"invocation_id"`
	UserID       string             `json:"user_id"`
	Event        event.Notification `json:"event"`
}

func (r *Router) handleStatus(c *gin.Context) {
	writeJSON(c, http.StatusOK, statusResp{
		Enabled:   r.rec.Enabled(),
		SinkState: r.rec.SinkState().String(),
		Version:   version.Version,
	})
}

func (r *Router) handleEvents(c *gin.Context) {
	limit := 100
	if ls := c.Query("limit"); ls != "" {
		n, err := strconv.Atoi(ls)
		if err != nil || n <= 0 {
			writeJSON(c, http.StatusBadRequest, errorResp{Error: "limit must be a positive integer"})
			return
		}
		if n > 1000 {
			n = 1000
		}
		limit = n
	}
	eventType := strings.ToUpper(strings.TrimSpace(c.Query("event_type")))
	if eventType != "" && !event.Type(eventType).Valid() {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "unknown event_type: " + eventType})
		return
	}

	r.rec.EnsureSinkReady(c.Request.Context())
	q := r.rec.Querier()
	if q == nil {
		writeJSON(c, http.StatusServiceUnavailable, errorResp{Error: "event store unavailable"})
		return
	}
	rows, err := q.Query(c.Request.Context(), sink.QueryFilter{
		SessionID:    c.Query("session_id"),
		InvocationID: c.Query("invocation_id"),
		EventType:    eventType,
		Limit:        limit,
	})
	if err != nil {
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	out := make([]EventRecord, len(rows))
	for i, row := range rows {
		out[i] = fromRow(row)
	}
	writeJSON(c, http.StatusOK, out)
}

func (r *Router) handleRecord(c *gin.Context) {
	var req RecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid JSON: " + err.Error()})
		return
	}
	if req.SessionID == "" || req.InvocationID == "" {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "session_id and invocation_id required"})
		return
	}
	scope := recorder.Scope{
		Agent:        req.Agent,
		SessionID:    req.SessionID,
		InvocationID: req.InvocationID,
		UserID:       req.UserID,
	}
	r.rec.OnEvent(c.Request.Context(), scope, req.Event)
	writeJSON(c, http.StatusOK, recordResp{OK: true, Recorded: r.rec.Enabled()})
}

func fromRow(row sink.Row) EventRecord {
	return EventRecord{
		Timestamp:    row.Timestamp,
		EventType:    fromNull(row.EventType),
		Agent:        fromNull(row.Agent),
		SessionID:    fromNull(row.SessionID),
		InvocationID: fromNull(row.InvocationID),
		UserID:       fromNull(row.UserID),
		Content:      fromNull(row.Content),
		ErrorMessage: fromNull(row.ErrorMessage),
	}
}
