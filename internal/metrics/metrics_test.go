package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

// reopen clears the registration gate so a test can drive Register
// itself, and restores the previous state afterwards.
func reopen(t *testing.T) {
	t.Helper()
	prev := regOK.Load()
	regOK.Store(false)
	t.Cleanup(func() { regOK.Store(prev) })
}

func familyNames() []string {
	return []string{
		"agenttrail_recorder_events_recorded_total",
		"agenttrail_recorder_events_filtered_total",
		"agenttrail_recorder_formatter_failures_total",
		"agenttrail_sink_writes_total",
		"agenttrail_sink_write_failures_total",
		"agenttrail_sink_init_attempts_total",
		"agenttrail_sink_state",
	}
}

func TestRegisterOnce(t *testing.T) {
	reopen(t)

	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("register: %v", err)
	}
	// Later calls are no-ops regardless of the registry they name.
	if err := Register(prometheus.NewRegistry()); err != nil {
		t.Fatalf("repeat register: %v", err)
	}

	IncRecorded("LLM_REQUEST")
	IncFiltered("TOOL_STARTING")
	IncFormatterFailure()
	IncSinkWrite()
	IncSinkWriteFailure()
	IncSinkInitAttempt()
	SetSinkState(1)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	sampled := map[string]bool{}
	for _, mf := range mfs {
		sampled[mf.GetName()] = len(mf.GetMetric()) > 0
	}
	for _, name := range familyNames() {
		hasSamples, gathered := sampled[name]
		if !gathered {
			t.Errorf("family %s not gathered", name)
			continue
		}
		if !hasSamples {
			t.Errorf("family %s has no samples", name)
		}
	}
}

func TestRecordedCounterIsLabeledByType(t *testing.T) {
	reopen(t)

	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("register: %v", err)
	}
	// A type no other test touches, so the count is exact.
	IncRecorded("AGENT_COMPLETED")
	IncRecorded("AGENT_COMPLETED")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != "agenttrail_recorder_events_recorded_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "event_type" && lp.GetValue() == "AGENT_COMPLETED" {
					if got := m.GetCounter().GetValue(); got != 2 {
						t.Errorf("counter = %v, want 2", got)
					}
					return
				}
			}
		}
	}
	t.Error("no sample labeled event_type=AGENT_COMPLETED")
}

func TestSinkStateGauge(t *testing.T) {
	reopen(t)

	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("register: %v", err)
	}
	SetSinkState(2)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() == "agenttrail_sink_state" {
			if got := mf.GetMetric()[0].GetGauge().GetValue(); got != 2 {
				t.Errorf("gauge = %v, want 2", got)
			}
			return
		}
	}
	t.Error("sink state gauge not gathered")
}

func TestHandlerExposesFamilies(t *testing.T) {
	reopen(t)
	if err := Register(prometheus.DefaultRegisterer); err != nil {
		t.Fatalf("register default: %v", err)
	}
	IncRecorded("USER_INPUT")

	srv := httptest.NewServer(Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	for _, name := range []string{"agenttrail_recorder_events_recorded_total", "agenttrail_sink_state"} {
		if !strings.Contains(string(body), name) {
			t.Errorf("scrape output missing %s", name)
		}
	}
}

func TestHelpersNoOpBeforeRegister(t *testing.T) {
	reopen(t)

	// Must not panic and must not register anything.
	IncRecorded("SYSTEM")
	IncFiltered("SYSTEM")
	IncFormatterFailure()
	IncSinkWrite()
	IncSinkWriteFailure()
	IncSinkInitAttempt()
	SetSinkState(2)

	if regOK.Load() {
		t.Error("helpers must not flip the registration gate")
	}
}

func TestConcurrentHelpers(t *testing.T) {
	reopen(t)

	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("register: %v", err)
	}
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			IncRecorded("TOOL_CALL")
			IncSinkWrite()
			IncSinkWriteFailure()
		}()
	}
	wg.Wait()
	if _, err := reg.Gather(); err != nil {
		t.Fatalf("gather after concurrent increments: %v", err)
	}
}

func TestRegisterPropagatesError(t *testing.T) {
	reopen(t)

	boom := errors.New("registry full")
	err := Register(failingRegistry{err: boom})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if regOK.Load() {
		t.Error("failed registration must leave the gate closed")
	}
}

type failingRegistry struct{ err error }

func (f failingRegistry) Register(prometheus.Collector) error  { return f.err }
func (f failingRegistry) MustRegister(...prometheus.Collector) {}
func (f failingRegistry) Unregister(prometheus.Collector) bool { return false }
