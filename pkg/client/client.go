package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"
)

// Client talks to a running agenttrail daemon over its HTTP API.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *slog.Logger
}

// Config holds client configuration.
type Config struct {
	BaseURL  string
	Token    string // bearer token; empty for unauthenticated daemons
	Timeout  time.Duration
	Logger   *slog.Logger
	TLS      *TLSClientConfig
	Insecure bool // skip TLS verification
}

// TLSClientConfig carries the client-side TLS material.
type TLSClientConfig struct {
	Enabled    bool
	CACert     string // CA certificate file
	ClientCert string // client certificate file
	ClientKey  string // client private key file
	ServerName string // override for certificate verification
	SkipVerify bool
}

// DefaultConfig returns a config pointed at a local daemon.
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://localhost:8080",
		Timeout: 10 * time.Second,
	}
}

// New builds a client. Zero-value config fields fall back to defaults.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8080"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	transport := &http.Transport{}
	if cfg.Insecure || (cfg.TLS != nil && cfg.TLS.Enabled) {
		tc, err := clientTLS(cfg)
		if err != nil {
			cfg.Logger.Error("TLS setup failed", "error", err)
		} else {
			transport.TLSClientConfig = tc
		}
	}

	return &Client{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		logger:  cfg.Logger,
		client:  &http.Client{Timeout: cfg.Timeout, Transport: transport},
	}
}

// IsReachable checks if the daemon is running and reachable.
func (c *Client) IsReachable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/status", nil)
	if err != nil {
		return false
	}
	c.setAuth(req)

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("daemon unreachable", "error", err)
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	return resp.StatusCode != http.StatusNotFound
}

// Status reports the recorder and sink state of the daemon.
func (c *Client) Status(ctx context.Context) (Status, error) {
	var st Status
	err := c.doJSON(ctx, http.MethodGet, c.baseURL+"/status", nil, &st)
	return st, err
}

// Events fetches stored events, newest first.
func (c *Client) Events(ctx context.Context, q EventsQuery) ([]EventRecord, error) {
	u := c.baseURL + "/events"
	params := url.Values{}
	if q.SessionID != "" {
		params.Set("session_id", q.SessionID)
	}
	if q.InvocationID != "" {
		params.Set("invocation_id", q.InvocationID)
	}
	if q.EventType != "" {
		params.Set("event_type", q.EventType)
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if enc := params.Encode(); enc != "" {
		u += "?" + enc
	}

	var events []EventRecord
	if err := c.doJSON(ctx, http.MethodGet, u, nil, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// Record submits one externally observed notification for recording.
func (c *Client) Record(ctx context.Context, req RecordRequest) (RecordResponse, error) {
	var out RecordResponse
	err := c.doJSON(ctx, http.MethodPost, c.baseURL+"/record", req, &out)
	return out, err
}

// clientTLS assembles the tls.Config for the transport.
func clientTLS(cfg Config) (*tls.Config, error) {
	tc := &tls.Config{MinVersion: tls.VersionTLS12}
	if cfg.Insecure {
		tc.InsecureSkipVerify = true
		return tc, nil
	}

	t := cfg.TLS
	tc.InsecureSkipVerify = t.SkipVerify
	tc.ServerName = t.ServerName

	if t.CACert != "" {
		pemBytes, err := os.ReadFile(t.CACert)
		if err != nil {
			return nil, fmt.Errorf("read CA certificate: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pemBytes) {
			return nil, fmt.Errorf("no certificates parsed from %s", t.CACert)
		}
		tc.RootCAs = pool
	}
	if t.ClientCert != "" && t.ClientKey != "" {
		pair, err := tls.LoadX509KeyPair(t.ClientCert, t.ClientKey)
		if err != nil {
			return nil, fmt.Errorf("load client certificate: %w", err)
		}
		tc.Certificates = []tls.Certificate{pair}
	}
	return tc, nil
}

func (c *Client) setAuth(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// doJSON performs one API request, decoding the response into out when
// out is non-nil.
func (c *Client) doJSON(ctx context.Context, method, url string, body, out any) error {
	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, payload)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.setAuth(req)

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("HTTP request failed", "error", err, "url", url)
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.apiError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// apiError turns an error response into a Go error, preferring the
// daemon's own message when the body parses.
func (c *Client) apiError(resp *http.Response) error {
	var er ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil || er.Error == "" {
		c.logger.Error("API request failed", "status", resp.StatusCode)
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	c.logger.Error("API request failed", "error", er.Error, "status", resp.StatusCode)
	return fmt.Errorf("API error: %s", er.Error)
}
