package nwsalert

import (
	"fmt"
	"sync"
	"time"

	"github.com/mattermost/mattermost-plugin-nws-alerts/server/hass"
	"github.com/mattermost/mattermost-plugin-nws-alerts/server/nws"
	"github.com/mattermost/mattermost-plugin-nws-alerts/server/widget"
)

// Logger is the structured logger widgets write to.
// *pluginapi.LogService satisfies it.
type Logger interface {
	Debug(message string, keyValuePairs ...any)
	Info(message string, keyValuePairs ...any)
	Warn(message string, keyValuePairs ...any)
	Error(message string, keyValuePairs ...any)
}

// Dependencies are the collaborators a widget needs.
// Alerts, Actions and States are optional: Alerts defaults to an NWS client
// identifying itself with the widget's contact email, a nil Actions skips
// action triggers and a nil States leaves entity coordinates to pushed
// snapshots.
type Dependencies struct {
	Log       Logger
	KV        KVStore
	Renderer  widget.Renderer
	Scheduler JobScheduler
	ZoneCache *widget.ZoneCache
	Alerts    AlertClient
	Actions   ActionInvoker
	States    StateSource
}

var _ widget.Widget = (*Widget)(nil)

// Widget implements widget.Widget for NWS active alerts
type Widget struct {
	config    widget.Config
	log       Logger
	renderer  widget.Renderer
	scheduler JobScheduler
	alerts    AlertClient
	invoker   ActionInvoker
	resolver  *Resolver
	status    *StatusStore
	cooldowns *CooldownStore

	retryBase     time.Duration
	debounce      time.Duration
	actionSpacing time.Duration

	mu        sync.RWMutex
	lifecycle widget.Lifecycle
	session   *session
	job       Job
	view      widget.View
	zone      string
}

// New creates a widget from its configuration. The configuration is
// normalized first; an unusable location yields a *widget.ConfigurationError.
func New(config widget.Config, deps Dependencies) (*Widget, error) {
	if config.ID == "" {
		return nil, fmt.Errorf("widget ID is required")
	}
	if config.ChannelID == "" {
		return nil, fmt.Errorf("channel ID is required")
	}
	if deps.Log == nil || deps.KV == nil || deps.Renderer == nil || deps.Scheduler == nil {
		return nil, fmt.Errorf("widget %s: logger, KV store, renderer and scheduler are required", config.ID)
	}

	w := &Widget{
		log:       deps.Log,
		lifecycle: widget.LifecycleUnconfigured,
	}

	normalized, warnings := widget.Normalize(config)
	for _, warning := range warnings {
		w.log.Warn("Widget configuration adjusted", "widgetId", config.ID, "warning", warning)
	}

	if err := widget.ValidateLocation(normalized); err != nil {
		return nil, &widget.ConfigurationError{Widget: config.Name, Reason: err.Error()}
	}

	alerts := deps.Alerts
	if alerts == nil {
		alerts = nws.NewClient(nws.DefaultBaseURL, normalized.Email)
	}

	cache := deps.ZoneCache
	if cache == nil {
		cache = widget.NewZoneCache()
	}

	w.config = normalized
	w.renderer = deps.Renderer
	w.scheduler = deps.Scheduler
	w.alerts = alerts
	w.invoker = deps.Actions
	w.resolver = NewResolver(alerts, deps.States, cache, deps.Log)
	w.status = NewStatusStore(deps.KV, normalized.ID)
	w.cooldowns = NewCooldownStore(deps.KV, deps.Log)
	w.retryBase = widget.BaseRetryDelay
	w.debounce = widget.ZoneResolveDebounce
	w.actionSpacing = widget.ActionQueueSpacing
	w.lifecycle = widget.LifecycleConfigured

	return w, nil
}

// Start attaches the widget: it begins a fresh session, renders, resolves
// the zone, fetches, and schedules the poll.
func (w *Widget) Start() error {
	w.mu.Lock()
	if w.session != nil {
		w.mu.Unlock()
		return fmt.Errorf("widget already running")
	}
	if !w.config.Enabled {
		w.mu.Unlock()
		return fmt.Errorf("widget is disabled")
	}

	sess := newSession(w)
	w.session = sess
	w.lifecycle = widget.LifecycleActive
	w.mu.Unlock()

	go sess.run()
	sess.post(sess.activate)

	jobID := fmt.Sprintf("nws_alerts_poll_%s", w.config.ID)
	job, err := w.scheduler.Schedule(jobID, pollWaitInterval(w.config.PollInterval()), func() {
		sess.post(sess.tick)
	})
	if err != nil {
		w.detach()
		return fmt.Errorf("failed to schedule cluster job: %w", err)
	}

	w.mu.Lock()
	if w.session == sess {
		w.job = job
		job = nil
	}
	w.mu.Unlock()

	// Stopped while scheduling
	if job != nil {
		_ = job.Close()
	}

	w.log.Info("Widget started",
		"widgetId", w.config.ID,
		"name", w.config.Name,
		"interval", w.config.PollInterval().String())
	return nil
}

// Stop detaches the widget. Timers are cancelled and results of requests
// still in flight are discarded.
func (w *Widget) Stop() error {
	job, stopped := w.detach()
	if !stopped {
		return nil
	}

	if job != nil {
		if err := job.Close(); err != nil {
			w.log.Error("Failed to close cluster job", "widgetId", w.config.ID, "error", err.Error())
			return fmt.Errorf("failed to close cluster job: %w", err)
		}
	}

	w.log.Info("Widget stopped", "widgetId", w.config.ID, "name", w.config.Name)
	return nil
}

// detach ends the current session and waits for its goroutine to exit
func (w *Widget) detach() (Job, bool) {
	w.mu.Lock()
	sess, job := w.session, w.job
	w.session, w.job = nil, nil
	if sess != nil {
		w.lifecycle = widget.LifecycleStopped
	}
	w.mu.Unlock()

	if sess == nil {
		return nil, false
	}

	sess.cancel()
	<-sess.done

	w.setZone("")

	return job, true
}

// GetID returns the unique identifier for this widget
func (w *Widget) GetID() string {
	return w.config.ID
}

// GetName returns the display name for this widget
func (w *Widget) GetName() string {
	return w.config.Name
}

// Config returns the normalized configuration
func (w *Widget) Config() widget.Config {
	return w.config
}

// Lifecycle returns the current lifecycle state
func (w *Widget) Lifecycle() widget.Lifecycle {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return w.lifecycle
}

// GetStatus returns the current operational status of the widget
func (w *Widget) GetStatus() widget.Status {
	w.mu.RLock()
	status := widget.Status{
		Enabled:   w.config.Enabled && w.session != nil,
		Lifecycle: w.lifecycle,
		Zone:      w.zone,
	}
	w.mu.RUnlock()

	lastPoll, err := w.status.GetLastPoll()
	if err != nil {
		w.log.Warn("Failed to get last poll time", "widgetId", w.config.ID, "error", err.Error())
	} else {
		status.LastPollTime = lastPoll
	}

	lastSuccess, err := w.status.GetLastSuccess()
	if err != nil {
		w.log.Warn("Failed to get last success time", "widgetId", w.config.ID, "error", err.Error())
	} else {
		status.LastSuccessTime = lastSuccess
	}

	failures, err := w.status.GetFailures()
	if err != nil {
		w.log.Warn("Failed to get failure count", "widgetId", w.config.ID, "error", err.Error())
	} else {
		status.ConsecutiveFailures = failures
	}

	lastError, err := w.status.GetLastError()
	if err != nil {
		w.log.Warn("Failed to get last error", "widgetId", w.config.ID, "error", err.Error())
	} else {
		status.LastError = lastError
	}

	return status
}

// ClearStatus forgets the persisted poll status so a re-enabled widget
// starts with a clean failure count
func (w *Widget) ClearStatus() error {
	return w.status.ClearAll()
}

// View returns the most recently rendered view
func (w *Widget) View() (widget.View, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.view.WidgetID == "" {
		return widget.View{}, fmt.Errorf("widget %s has not rendered yet", w.config.ID)
	}

	return w.view, nil
}

// ToggleAlert flips the expand state of an alert and re-renders
func (w *Widget) ToggleAlert(alertID string) error {
	sess := w.currentSession()
	if sess == nil {
		return errSessionClosed
	}

	return sess.do(func() { sess.toggle(alertID) })
}

// Refresh forces an immediate fetch
func (w *Widget) Refresh() error {
	sess := w.currentSession()
	if sess == nil {
		return errSessionClosed
	}

	return sess.do(func() { sess.requestFetch(true) })
}

// UpdateStates delivers a new entity-state snapshot
func (w *Widget) UpdateStates(snapshot hass.Snapshot) error {
	sess := w.currentSession()
	if sess == nil {
		return errSessionClosed
	}

	snapshot = snapshot.Clone()
	return sess.do(func() { sess.updateStates(snapshot) })
}

func (w *Widget) currentSession() *session {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return w.session
}

func (w *Widget) setZone(zone string) {
	w.mu.Lock()
	w.zone = zone
	w.mu.Unlock()
}

// publish records view as current and hands it to the renderer
func (w *Widget) publish(view widget.View) {
	w.mu.Lock()
	w.view = view
	w.mu.Unlock()

	if err := w.renderer.Render(view, w.config.ChannelID); err != nil {
		w.log.Error("Failed to render widget", "widgetId", w.config.ID, "error", err.Error())
	}
}
