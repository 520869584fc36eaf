package nwsalert

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/mattermost/mattermost/server/public/model"
	"github.com/mattermost/mattermost/server/public/pluginapi/cluster"
	"github.com/stretchr/testify/require"

	"github.com/mattermost/mattermost-plugin-nws-alerts/server/hass"
	"github.com/mattermost/mattermost-plugin-nws-alerts/server/nws"
	"github.com/mattermost/mattermost-plugin-nws-alerts/server/widget"
)

const (
	testWidgetID  = "550e8400-e29b-41d4-a716-446655440000"
	testChannelID = "channel123"
)

// memKV is an in-memory KVStore
type memKV struct {
	mu      sync.Mutex
	data    map[string][]byte
	failGet bool
	failSet bool
}

func newMemKV() *memKV {
	return &memKV{data: make(map[string][]byte)}
}

func (m *memKV) KVGet(key string) ([]byte, *model.AppError) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet {
		return nil, model.NewAppError("KVGet", "test.kv.unavailable", nil, "", http.StatusInternalServerError)
	}
	return m.data[key], nil
}

func (m *memKV) KVSet(key string, value []byte) *model.AppError {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSet {
		return model.NewAppError("KVSet", "test.kv.unavailable", nil, "", http.StatusInternalServerError)
	}
	m.data[key] = value
	return nil
}

func (m *memKV) KVDelete(key string) *model.AppError {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memKV) get(key string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key]
}

// testLogger records log messages by level
type testLogger struct {
	mu       sync.Mutex
	messages map[string][]string
}

func newTestLogger() *testLogger {
	return &testLogger{messages: make(map[string][]string)}
}

func (l *testLogger) record(level, message string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages[level] = append(l.messages[level], message)
}

func (l *testLogger) Debug(message string, _ ...any) { l.record("debug", message) }
func (l *testLogger) Info(message string, _ ...any)  { l.record("info", message) }
func (l *testLogger) Warn(message string, _ ...any)  { l.record("warn", message) }
func (l *testLogger) Error(message string, _ ...any) { l.record("error", message) }

func (l *testLogger) has(level, message string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, m := range l.messages[level] {
		if m == message {
			return true
		}
	}
	return false
}

// fakeJob records Close
type fakeJob struct {
	mu     sync.Mutex
	closed bool
}

func (j *fakeJob) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.closed = true
	return nil
}

func (j *fakeJob) isClosed() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.closed
}

// fakeScheduler captures the scheduled callback so tests can tick by hand
type fakeScheduler struct {
	mu       sync.Mutex
	jobID    string
	wait     cluster.NextWaitInterval
	callback func()
	job      *fakeJob
	err      error
}

func (s *fakeScheduler) Schedule(jobID string, wait cluster.NextWaitInterval, callback func()) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.jobID = jobID
	s.wait = wait
	s.callback = callback
	s.job = &fakeJob{}
	return s.job, nil
}

func (s *fakeScheduler) tick() {
	s.mu.Lock()
	callback := s.callback
	s.mu.Unlock()
	if callback != nil {
		callback()
	}
}

// fakeNWS serves alerts, points and zone names from functions
type fakeNWS struct {
	mu         sync.Mutex
	alertsFn   func(zone string) (*nws.AlertsResponse, error)
	zoneFn     func(lat, lon float64) (string, error)
	zoneNames  map[string]string
	alertCalls []alertCall
	pointCalls int
}

type alertCall struct {
	zone string
	at   time.Time
}

func (f *fakeNWS) FetchActiveAlerts(_ context.Context, zone string) (*nws.AlertsResponse, error) {
	f.mu.Lock()
	f.alertCalls = append(f.alertCalls, alertCall{zone: zone, at: time.Now()})
	fn := f.alertsFn
	f.mu.Unlock()

	if fn == nil {
		return &nws.AlertsResponse{}, nil
	}
	return fn(zone)
}

func (f *fakeNWS) LookupPoint(_ context.Context, lat, lon float64) (*nws.PointResponse, error) {
	f.mu.Lock()
	f.pointCalls++
	fn := f.zoneFn
	f.mu.Unlock()

	if fn == nil {
		return nil, fmt.Errorf("no points handler")
	}

	zone, err := fn(lat, lon)
	if err != nil {
		return nil, err
	}

	resp := &nws.PointResponse{}
	resp.Properties.ForecastZone = "https://api.weather.gov/zones/forecast/" + zone
	return resp, nil
}

func (f *fakeNWS) FetchZone(_ context.Context, zone string) (*nws.ZoneResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	name, ok := f.zoneNames[zone]
	if !ok {
		return nil, fmt.Errorf("HTTP 404")
	}
	return &nws.ZoneResponse{Properties: nws.ZoneProperties{ID: zone, Name: name}}, nil
}

func (f *fakeNWS) setAlerts(fn func(zone string) (*nws.AlertsResponse, error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alertsFn = fn
}

func (f *fakeNWS) calls() []alertCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]alertCall(nil), f.alertCalls...)
}

func (f *fakeNWS) lookups() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pointCalls
}

// fakeRenderer records every rendered view
type fakeRenderer struct {
	mu    sync.Mutex
	views []widget.View
}

func (r *fakeRenderer) Render(view widget.View, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views = append(r.views, view)
	return nil
}

func (r *fakeRenderer) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.views)
}

func (r *fakeRenderer) last() widget.View {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.views) == 0 {
		return widget.View{}
	}
	return r.views[len(r.views)-1]
}

// fakeInvoker records action invocations and can hold them until released
type fakeInvoker struct {
	mu      sync.Mutex
	invoked []string
	running int
	overlap bool
	err     error
	block   chan struct{}
	started chan string
}

func (f *fakeInvoker) RunAction(_ context.Context, entityID string) error {
	f.mu.Lock()
	f.running++
	if f.running > 1 {
		f.overlap = true
	}
	block, started := f.block, f.started
	f.mu.Unlock()

	if started != nil {
		started <- entityID
	}
	if block != nil {
		<-block
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.running--
	f.invoked = append(f.invoked, entityID)
	return f.err
}

func (f *fakeInvoker) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.invoked...)
}

// fakeStates serves a fixed snapshot
type fakeStates struct {
	snapshot hass.Snapshot
}

func (f *fakeStates) Snapshot(context.Context, []string) (hass.Snapshot, error) {
	return f.snapshot, nil
}

func feature(id, severity string) nws.Feature {
	return nws.Feature{
		ID: id,
		Properties: nws.AlertProperties{
			Event:       severity + " Test Event",
			Description: "Line one\nline two",
			Severity:    severity,
			Urgency:     "Immediate",
			Certainty:   "Observed",
		},
	}
}

func alertsResponse(features ...nws.Feature) *nws.AlertsResponse {
	return &nws.AlertsResponse{Features: features}
}

func intPtr(v int) *int { return &v }

func baseConfig() widget.Config {
	return widget.Config{
		ID:                    testWidgetID,
		Name:                  "Seattle",
		Enabled:               true,
		ChannelID:             testChannelID,
		Zone:                  "WAZ558",
		UpdateIntervalSeconds: 300,
		MinorAction:           "script.minor",
		ModerateAction:        "script.moderate",
		SevereAction:          "automation.severe",
		ExtremeAction:         "script.extreme",
		CooldownMinutes:       intPtr(0),
	}
}

// harness wires a widget to fakes with short timings
type harness struct {
	widget    *Widget
	kv        *memKV
	log       *testLogger
	nws       *fakeNWS
	renderer  *fakeRenderer
	scheduler *fakeScheduler
	invoker   *fakeInvoker
}

func newHarness(t *testing.T, cfg widget.Config, opts ...func(*Dependencies)) *harness {
	t.Helper()

	h := &harness{
		kv:        newMemKV(),
		log:       newTestLogger(),
		nws:       &fakeNWS{zoneNames: map[string]string{}},
		renderer:  &fakeRenderer{},
		scheduler: &fakeScheduler{},
		invoker:   &fakeInvoker{},
	}

	deps := Dependencies{
		Log:       h.log,
		KV:        h.kv,
		Renderer:  h.renderer,
		Scheduler: h.scheduler,
		ZoneCache: widget.NewZoneCache(),
		Alerts:    h.nws,
		Actions:   h.invoker,
	}
	for _, opt := range opts {
		opt(&deps)
	}

	w, err := New(cfg, deps)
	require.NoError(t, err)

	w.retryBase = 10 * time.Millisecond
	w.debounce = 30 * time.Millisecond
	w.actionSpacing = 5 * time.Millisecond

	h.widget = w
	t.Cleanup(func() { _ = w.Stop() })

	return h
}

// sync waits for everything already queued on the session to run
func (h *harness) sync(t *testing.T) {
	t.Helper()
	sess := h.widget.currentSession()
	require.NotNil(t, sess)
	require.NoError(t, sess.do(func() {}))
}

func (h *harness) waitForView(t *testing.T, check func(widget.View) bool) widget.View {
	t.Helper()
	require.Eventually(t, func() bool {
		return check(h.renderer.last())
	}, 2*time.Second, 5*time.Millisecond)
	return h.renderer.last()
}

// idle waits until no fetch, retry, action or debounce is outstanding
func (h *harness) idle(t *testing.T) {
	t.Helper()
	sess := h.widget.currentSession()
	require.NotNil(t, sess)

	require.Eventually(t, func() bool {
		idle := false
		_ = sess.do(func() {
			idle = !sess.requesting && sess.retryTimer == nil && !sess.actions.inProgress && !sess.debouncing
		})
		return idle
	}, 2*time.Second, 5*time.Millisecond)
}

func (r *fakeRenderer) all() []widget.View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]widget.View(nil), r.views...)
}
