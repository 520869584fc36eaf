package nwsalert

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/mattermost/mattermost-plugin-nws-alerts/server/hass"
	"github.com/mattermost/mattermost-plugin-nws-alerts/server/widget"
)

var errSessionClosed = errors.New("widget is not running")

// session holds everything a widget knows between Start and Stop. Its
// fields are owned by the run goroutine: background work (requests,
// timers) reports back through post, and anything posted after the
// session is cancelled is dropped.
type session struct {
	w      *Widget
	ctx    context.Context
	cancel context.CancelFunc
	events chan func()
	done   chan struct{}

	mobile   bool
	snapshot hass.Snapshot

	zone     string
	zoneName string

	// cache accumulates every alert fetched this session
	cache      map[string]widget.Alert
	lastIDs    idSet
	lastOrder  []string
	lastMax    widget.Severity
	hasLastMax bool
	shown      widget.ViewState
	viewState  *ViewState

	requesting   bool
	pendingFetch bool
	retry        backoff.BackOff
	retryTimer   *time.Timer
	retrySeq     uint64

	debouncing    bool
	debounceTimer *time.Timer

	actions actionState
}

func newSession(w *Widget) *session {
	ctx, cancel := context.WithCancel(context.Background())

	return &session{
		w:         w,
		ctx:       ctx,
		cancel:    cancel,
		events:    make(chan func(), 16),
		done:      make(chan struct{}),
		cache:     make(map[string]widget.Alert),
		lastIDs:   make(idSet),
		viewState: NewViewState(w.config.ShowExpanded),
		retry:     newRetryPolicy(w.retryBase),
	}
}

func (s *session) run() {
	defer close(s.done)
	defer s.teardown()

	for {
		select {
		case <-s.ctx.Done():
			return
		case fn := <-s.events:
			if s.ctx.Err() != nil {
				return
			}
			fn()
		}
	}
}

// post queues fn to run on the session goroutine. It reports false when
// the session has been cancelled. It must not be called from the session
// goroutine itself.
func (s *session) post(fn func()) bool {
	select {
	case s.events <- fn:
		return true
	case <-s.ctx.Done():
		return false
	}
}

// do runs fn on the session goroutine and waits for it to finish
func (s *session) do(fn func()) error {
	finished := make(chan struct{})
	if !s.post(func() {
		defer close(finished)
		fn()
	}) {
		return errSessionClosed
	}

	select {
	case <-finished:
		return nil
	case <-s.done:
		return errSessionClosed
	}
}

func (s *session) teardown() {
	if s.retryTimer != nil {
		s.retryTimer.Stop()
	}
	if s.debounceTimer != nil {
		s.debounceTimer.Stop()
	}
	if s.actions.timer != nil {
		s.actions.timer.Stop()
	}
}

// activate renders the loading state, resolves the zone and runs the first fetch
func (s *session) activate() {
	cfg := s.w.config
	s.mobile = IsMobileDevice(cfg.DeviceUserAgent, cfg.DeviceViewportWidth)

	s.render(loadingView(cfg))

	s.resolveZone(func(zone string, err error) {
		if err != nil {
			s.w.log.Error("Unable to determine zone", "widgetId", cfg.ID, "error", err.Error())
			s.render(errorView(cfg, MessageNoZone))
			return
		}

		s.setZone(zone)
		s.fetchZoneName()
		s.requestFetch(true)
	})
}

// resolveZone resolves off the session goroutine and delivers the result back to it
func (s *session) resolveZone(onResolved func(zone string, err error)) {
	cfg, snapshot, mobile := s.w.config, s.snapshot.Clone(), s.mobile

	go func() {
		zone, err := s.w.resolver.Resolve(s.ctx, cfg, snapshot, mobile)
		s.post(func() { onResolved(zone, err) })
	}()
}

func (s *session) setZone(zone string) {
	if zone != s.zone {
		s.w.log.Info("Active zone set", "widgetId", s.w.config.ID, "from", s.zone, "to", zone)
	}
	s.zone = zone
	s.w.setZone(zone)
}

// tick is the scheduled poll
func (s *session) tick() {
	if s.zone == "" {
		s.w.log.Debug("No active zone, skipping scheduled fetch", "widgetId", s.w.config.ID)
		return
	}
	s.requestFetch(false)
}

// updateStates stores a new entity snapshot and, for entity-backed
// locations, opens a debounce window. Changes inside an open window only
// replace the snapshot the window will resolve with.
func (s *session) updateStates(snapshot hass.Snapshot) {
	s.snapshot = snapshot

	if !s.w.config.HasEntityCoordinates() || s.debouncing {
		return
	}

	s.debouncing = true
	s.debounceTimer = time.AfterFunc(s.w.debounce, func() {
		s.post(s.resolveDebounced)
	})
}

func (s *session) resolveDebounced() {
	s.debounceTimer = nil

	s.resolveZone(func(zone string, err error) {
		s.debouncing = false

		if err != nil {
			s.w.log.Warn("Zone re-resolution failed", "widgetId", s.w.config.ID, "error", err.Error())
			return
		}

		if zone == s.zone {
			return
		}

		s.setZone(zone)
		s.zoneName = ""
		s.fetchZoneName()
		s.requestFetch(true)
	})
}

func (s *session) toggle(alertID string) {
	s.viewState.Toggle(alertID)

	if s.shown == widget.ViewAlerts {
		s.renderAlerts()
	}
}

func (s *session) renderAlerts() {
	alerts := make([]widget.Alert, 0, len(s.lastOrder))
	for _, id := range s.lastOrder {
		if alert, ok := s.cache[id]; ok {
			alerts = append(alerts, alert)
		}
	}

	s.render(alertsView(s.w.config, s.zoneName, alerts, s.viewState))
}

func (s *session) render(view widget.View) {
	s.shown = view.State
	s.w.publish(view)
}
