package nwsalert

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/mattermost/mattermost-plugin-nws-alerts/server/nws"
	"github.com/mattermost/mattermost-plugin-nws-alerts/server/widget"
)

// AlertClient is the subset of the NWS API a widget uses
type AlertClient interface {
	PointLookup
	FetchActiveAlerts(ctx context.Context, zone string) (*nws.AlertsResponse, error)
	FetchZone(ctx context.Context, zone string) (*nws.ZoneResponse, error)
}

// newRetryPolicy returns the fetch retry schedule: base, 2*base, 4*base,
// then backoff.Stop. Reset restarts the schedule.
func newRetryPolicy(base time.Duration) backoff.BackOff {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     base,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         base << widget.MaxFetchRetries,
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	b.Reset()

	return backoff.WithMaxRetries(b, widget.MaxFetchRetries)
}

// requestFetch starts a fetch for the active zone. At most one fetch cycle,
// including its retry waits, runs at a time: an unforced request during a
// cycle is dropped, while a forced one runs as soon as the current request
// completes or immediately if the cycle is only waiting to retry.
func (s *session) requestFetch(forced bool) {
	if s.zone == "" {
		s.render(errorView(s.w.config, MessageNoActiveZone))
		return
	}

	if s.requesting {
		if forced {
			s.pendingFetch = true
		}
		s.w.log.Debug("Fetch already in flight", "widgetId", s.w.config.ID, "forced", forced)
		return
	}

	if s.retryTimer != nil {
		if !forced {
			s.w.log.Debug("Retry pending, skipping scheduled fetch", "widgetId", s.w.config.ID)
			return
		}
		s.cancelRetry()
	}

	s.startFetch()
}

func (s *session) startFetch() {
	zone := s.zone
	s.requesting = true
	s.w.saveLastPoll()

	client := s.w.alerts
	go func() {
		resp, err := client.FetchActiveAlerts(s.ctx, zone)
		s.post(func() { s.onFetchResult(zone, resp, err) })
	}()
}

func (s *session) onFetchResult(zone string, resp *nws.AlertsResponse, err error) {
	s.requesting = false

	switch {
	case zone != s.zone:
		s.w.log.Debug("Discarding alerts for inactive zone", "widgetId", s.w.config.ID, "zone", zone)
	case err != nil:
		s.onFetchFailure(err)
	default:
		s.onFetchSuccess(resp)
	}

	if s.pendingFetch {
		s.pendingFetch = false
		s.cancelRetry()
		s.startFetch()
	}
}

func (s *session) onFetchFailure(err error) {
	s.w.recordFailure(err)

	delay := s.retry.NextBackOff()
	if delay == backoff.Stop {
		s.retry.Reset()
		s.w.log.Error("Unable to fetch alerts",
			"widgetId", s.w.config.ID,
			"zone", s.zone,
			"error", fmt.Errorf("%w: %w", widget.ErrFetch, err).Error())
		s.render(errorView(s.w.config, MessageFetchFailed))
		return
	}

	s.w.log.Warn("Alert fetch failed, retrying",
		"widgetId", s.w.config.ID,
		"zone", s.zone,
		"retryIn", delay.String(),
		"error", err.Error())

	s.retrySeq++
	seq := s.retrySeq
	s.retryTimer = time.AfterFunc(delay, func() {
		s.post(func() {
			if seq != s.retrySeq {
				return
			}
			s.retryTimer = nil
			s.startFetch()
		})
	})
}

// cancelRetry abandons a pending retry and restarts the retry schedule
func (s *session) cancelRetry() {
	if s.retryTimer != nil {
		s.retryTimer.Stop()
		s.retryTimer = nil
	}
	s.retrySeq++
	s.retry.Reset()
}

func (s *session) onFetchSuccess(resp *nws.AlertsResponse) {
	s.retry.Reset()
	s.w.recordSuccess()

	var features []nws.Feature
	if resp != nil {
		features = resp.Features
	}
	alerts := NormalizeAlerts(features)

	for _, alert := range alerts {
		s.cache[alert.ID] = alert
	}

	current := newIDSet(alerts)
	if !hasChanged(s.shown == widget.ViewAlerts, s.lastIDs, current) {
		s.w.log.Debug("Alerts unchanged", "widgetId", s.w.config.ID, "count", len(current))
		return
	}

	decision := decideTrigger(alerts, s.lastMax, s.hasLastMax, s.lastIDs)

	s.lastIDs = current
	s.lastOrder = s.lastOrder[:0]
	seen := make(map[string]bool, len(alerts))
	for _, alert := range alerts {
		if !seen[alert.ID] {
			seen[alert.ID] = true
			s.lastOrder = append(s.lastOrder, alert.ID)
		}
	}

	if decision.ShouldTrigger {
		s.requestAction(decision.Severity)
	}

	s.lastMax, s.hasLastMax = widget.MaxSeverity(alerts)

	s.renderAlerts()
}

// fetchZoneName looks up the display name of the active zone once per zone
func (s *session) fetchZoneName() {
	if s.zoneName != "" || s.zone == "" {
		return
	}

	zone := s.zone
	client := s.w.alerts
	go func() {
		resp, err := client.FetchZone(s.ctx, zone)
		s.post(func() { s.onZoneName(zone, resp, err) })
	}()
}

func (s *session) onZoneName(zone string, resp *nws.ZoneResponse, err error) {
	if err != nil {
		s.w.log.Warn("Unable to fetch zone name", "widgetId", s.w.config.ID, "zone", zone, "error", err.Error())
		return
	}

	if zone != s.zone || resp == nil || resp.Properties.Name == "" {
		return
	}

	s.zoneName = resp.Properties.Name
	if s.shown == widget.ViewAlerts {
		s.renderAlerts()
	}
}

func (w *Widget) saveLastPoll() {
	if err := w.status.SaveLastPoll(time.Now()); err != nil {
		w.log.Error("Failed to save last poll time", "widgetId", w.config.ID, "error", err.Error())
	}
}

func (w *Widget) recordSuccess() {
	if err := w.status.SaveLastSuccess(time.Now()); err != nil {
		w.log.Error("Failed to save last success time", "widgetId", w.config.ID, "error", err.Error())
	}

	if err := w.status.ResetFailures(); err != nil {
		w.log.Error("Failed to reset failure counter", "widgetId", w.config.ID, "error", err.Error())
	}

	if err := w.status.SaveLastError(""); err != nil {
		w.log.Error("Failed to clear last error", "widgetId", w.config.ID, "error", err.Error())
	}
}

func (w *Widget) recordFailure(fetchErr error) {
	if err := w.status.SaveLastError(fetchErr.Error()); err != nil {
		w.log.Error("Failed to save last error", "widgetId", w.config.ID, "error", err.Error())
	}

	if _, err := w.status.IncrementFailures(); err != nil {
		w.log.Error("Failed to increment failure counter", "widgetId", w.config.ID, "error", err.Error())
	}
}
