package nwsalert

import (
	"context"
	"fmt"
	"time"

	"github.com/mattermost/mattermost-plugin-nws-alerts/server/widget"
)

// ActionInvoker runs a downstream action such as a script or automation
type ActionInvoker interface {
	RunAction(ctx context.Context, entityID string) error
}

// TriggerDecision is the outcome of evaluating a detected change
type TriggerDecision struct {
	ShouldTrigger bool
	Severity      widget.Severity
}

// decideTrigger evaluates the trigger rules against the state recorded
// before this change. Callers must update lastMax and lastIDs afterwards.
func decideTrigger(alerts []widget.Alert, lastMax widget.Severity, hasLastMax bool, lastIDs idSet) TriggerDecision {
	current, ok := widget.MaxSeverity(alerts)
	if !ok {
		return TriggerDecision{}
	}

	if !hasLastMax {
		return TriggerDecision{ShouldTrigger: true, Severity: current}
	}

	if current.Rank() > lastMax.Rank() {
		return TriggerDecision{ShouldTrigger: true, Severity: current}
	}

	if !newIDSet(alerts).equal(lastIDs) {
		return TriggerDecision{ShouldTrigger: true, Severity: current}
	}

	return TriggerDecision{}
}

// pendingAction is one trigger request. The zone is captured when the
// request is made so a later zone swap does not move its cooldown record.
type pendingAction struct {
	severity widget.Severity
	zone     string
	entityID string
}

// actionState serializes action execution: at most one action runs at a
// time and the rest wait in FIFO order.
type actionState struct {
	inProgress bool
	queue      []pendingAction
	timer      *time.Timer
}

// requestAction runs, queues, or suppresses the action mapped to severity
func (s *session) requestAction(severity widget.Severity) {
	cfg := s.w.config

	entityID := cfg.ActionFor(severity)
	if entityID == "" {
		return
	}

	if s.w.invoker == nil {
		s.w.log.Warn("No action endpoint configured, skipping action trigger",
			"widgetId", cfg.ID,
			"severity", severity.String(),
			"entityId", entityID)
		return
	}

	action := pendingAction{severity: severity, zone: s.zone, entityID: entityID}

	if s.w.cooldowns.InCooldown(action.severity, action.zone, cfg.Cooldown()) {
		s.w.log.Info("Skipping action trigger, still in cooldown period",
			"widgetId", cfg.ID,
			"severity", severity.String(),
			"zone", action.zone)
		return
	}

	if s.actions.inProgress {
		s.w.log.Debug("Action in progress, queueing",
			"widgetId", cfg.ID,
			"entityId", entityID,
			"queued", len(s.actions.queue)+1)
		s.actions.queue = append(s.actions.queue, action)
		return
	}

	s.startAction(action)
}

func (s *session) startAction(action pendingAction) {
	s.actions.inProgress = true

	s.w.log.Info("Triggering severity action",
		"widgetId", s.w.config.ID,
		"severity", action.severity.String(),
		"entityId", action.entityID)

	invoker := s.w.invoker
	go func() {
		err := invoker.RunAction(s.ctx, action.entityID)
		s.post(func() { s.onActionDone(action, err) })
	}()
}

func (s *session) onActionDone(action pendingAction, err error) {
	if err != nil {
		err = fmt.Errorf("%w: %s: %w", widget.ErrActionInvocation, action.entityID, err)
		s.w.log.Error("Failed to trigger action",
			"widgetId", s.w.config.ID,
			"severity", action.severity.String(),
			"error", err.Error())
	} else {
		s.w.log.Info("Successfully triggered action",
			"widgetId", s.w.config.ID,
			"entityId", action.entityID)
		s.w.cooldowns.Record(action.severity, action.zone)
	}

	s.dispatchNextAction()
}

// dispatchNextAction hands the execution slot to the next queued request
// after the queue spacing. The slot stays held during the wait so later
// requests cannot overtake queued ones.
func (s *session) dispatchNextAction() {
	if len(s.actions.queue) == 0 {
		s.actions.inProgress = false
		return
	}

	next := s.actions.queue[0]
	s.actions.queue = s.actions.queue[1:]

	s.actions.timer = time.AfterFunc(s.w.actionSpacing, func() {
		s.post(func() {
			s.actions.timer = nil
			s.runQueuedAction(next)
		})
	})
}

func (s *session) runQueuedAction(action pendingAction) {
	if s.w.cooldowns.InCooldown(action.severity, action.zone, s.w.config.Cooldown()) {
		s.w.log.Info("Skipping queued action trigger, still in cooldown period",
			"widgetId", s.w.config.ID,
			"severity", action.severity.String(),
			"zone", action.zone)
		s.dispatchNextAction()
		return
	}

	s.startAction(action)
}
