package nwsalert

import (
	"time"

	"github.com/mattermost/mattermost-plugin-nws-alerts/server/nws"
	"github.com/mattermost/mattermost-plugin-nws-alerts/server/widget"
)

// NormalizeAlert converts an NWS feature to the widget alert model
func NormalizeAlert(feature nws.Feature) widget.Alert {
	p := feature.Properties

	return widget.Alert{
		ID:          feature.ID,
		Event:       p.Event,
		Headline:    p.Headline,
		Description: p.Description,
		Severity:    widget.ParseSeverity(p.Severity),
		Urgency:     p.Urgency,
		Certainty:   p.Certainty,
		Onset:       parseTimestamp(p.Onset),
		Expires:     parseTimestamp(p.Expires),
		URI:         p.URI,
	}
}

// NormalizeAlerts converts a feature list, preserving order
func NormalizeAlerts(features []nws.Feature) []widget.Alert {
	alerts := make([]widget.Alert, 0, len(features))
	for _, feature := range features {
		alerts = append(alerts, NormalizeAlert(feature))
	}
	return alerts
}

// parseTimestamp parses an ISO 8601 timestamp; empty or malformed input yields nil
func parseTimestamp(value string) *time.Time {
	if value == "" {
		return nil
	}

	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil
	}

	return &t
}
