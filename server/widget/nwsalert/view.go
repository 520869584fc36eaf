package nwsalert

import (
	"regexp"
	"strings"

	"github.com/mattermost/mattermost-plugin-nws-alerts/server/widget"
)

// Display messages
const (
	MessageLoading       = "Loading..."
	MessageNoZone        = "Unable to determine NWS zone. Check configuration."
	MessageNoActiveZone  = "No active zone configured."
	MessageFetchFailed   = "Unable to fetch weather alerts. Check zone configuration."
	MessageNoAlerts      = "✓ No active alerts at this time"
	MessageNoDescription = "No description available"
	markerExtreme        = "🔴🔴🔴"
	markerSevere         = "🟠🟠"
)

var paragraphBreak = regexp.MustCompile(`\n\s*\n`)

// NormalizeDescription reflows NWS hard-wrapped text: lines within a
// paragraph are joined with spaces and paragraphs are separated by one
// blank line.
func NormalizeDescription(text string) string {
	text = strings.TrimSpace(text)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var paragraphs []string
	for _, paragraph := range paragraphBreak.Split(text, -1) {
		var lines []string
		for _, line := range strings.Split(paragraph, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				lines = append(lines, line)
			}
		}
		if len(lines) > 0 {
			paragraphs = append(paragraphs, strings.Join(lines, " "))
		}
	}

	return strings.Join(paragraphs, "\n\n")
}

// SeverityMarker returns the danger marker shown before an alert's event name
func SeverityMarker(severity widget.Severity) string {
	switch severity {
	case widget.SeverityExtreme:
		return markerExtreme
	case widget.SeveritySevere:
		return markerSevere
	default:
		return ""
	}
}

func loadingView(cfg widget.Config) widget.View {
	return widget.View{
		WidgetID: cfg.ID,
		Title:    cfg.Title,
		State:    widget.ViewLoading,
		Message:  MessageLoading,
	}
}

func errorView(cfg widget.Config, message string) widget.View {
	return widget.View{
		WidgetID: cfg.ID,
		Title:    cfg.Title,
		State:    widget.ViewError,
		Message:  message,
	}
}

// alertsView composes the alert list. Descriptions are normalized here so
// renderers only lay out text.
func alertsView(cfg widget.Config, zoneName string, alerts []widget.Alert, viewState *ViewState) widget.View {
	view := widget.View{
		WidgetID: cfg.ID,
		Title:    cfg.Title,
		ZoneName: zoneName,
		State:    widget.ViewAlerts,
		Alerts:   make([]widget.AlertRow, 0, len(alerts)),
	}

	if len(alerts) == 0 {
		view.Message = MessageNoAlerts
		return view
	}

	for _, alert := range alerts {
		row := widget.AlertRow{
			Alert:    alert,
			Expanded: viewState.IsExpanded(alert.ID),
		}

		description := alert.Description
		if description == "" {
			description = MessageNoDescription
		}
		row.Description = NormalizeDescription(description)

		if !cfg.HideSeverityMarkers {
			row.Marker = SeverityMarker(alert.Severity)
		}

		view.Alerts = append(view.Alerts, row)
	}

	return view
}
