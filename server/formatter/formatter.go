package formatter

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mattermost/mattermost/server/public/model"

	"github.com/mattermost/mattermost-plugin-nws-alerts/server/hashtag"
	"github.com/mattermost/mattermost-plugin-nws-alerts/server/widget"
)

// Severity colors
const (
	ColorExtreme  = "#dc3545" // Red
	ColorSevere   = "#fd7e14" // Orange
	ColorModerate = "#ffc107" // Yellow
	ColorMinor    = "#28a745" // Green
	ColorUnknown  = "#808080" // Gray
)

// Toggle button labels
const (
	LabelShowMore = "Show more ▼"
	LabelShowLess = "Show less ▲"
)

// Keys of the toggle button's action context
const (
	ContextWidgetID = "widget_id"
	ContextAlertID  = "alert_id"
)

// ToggleURL returns the integration URL the toggle buttons of a widget post to.
// The alert is named by the ContextAlertID entry of the action context.
func ToggleURL(pluginID, widgetID string) string {
	return fmt.Sprintf("/plugins/%s/api/v1/widgets/%s/toggle", pluginID, url.PathEscape(widgetID))
}

// FormatView converts a widget view into Mattermost SlackAttachments: a header
// with the title, zone name and any status message, followed by one attachment
// per alert.
func FormatView(view widget.View, pluginID string) []*model.SlackAttachment {
	attachments := []*model.SlackAttachment{formatHeader(view)}

	for _, row := range view.Alerts {
		attachments = append(attachments, FormatAlert(row, view.WidgetID, pluginID))
	}

	return attachments
}

func formatHeader(view widget.View) *model.SlackAttachment {
	header := &model.SlackAttachment{
		Title: view.Title,
	}

	var lines []string
	if view.ZoneName != "" {
		lines = append(lines, fmt.Sprintf("_%s_", view.ZoneName))
	}
	if view.Message != "" {
		lines = append(lines, view.Message)
	}
	header.Text = strings.Join(lines, "\n")

	if view.State == widget.ViewError {
		header.Color = ColorExtreme
	}

	return header
}

// FormatAlert converts one alert row into a SlackAttachment colored by
// severity. Collapsed rows show the summary fields; expanded rows add the
// timing, description and source link.
func FormatAlert(row widget.AlertRow, widgetID, pluginID string) *model.SlackAttachment {
	attachment := &model.SlackAttachment{}

	title := row.Event
	if title == "" {
		title = "Weather Alert"
	}
	if row.Marker != "" {
		title = row.Marker + " " + title
	}
	attachment.Text = fmt.Sprintf("#### %s", title)

	attachment.Color = getSeverityColor(row.Severity)

	fields := []*model.SlackAttachmentField{
		{Title: "Severity", Value: row.Severity.String(), Short: true},
		{Title: "Urgency", Value: valueOrNA(row.Urgency), Short: true},
		{Title: "Certainty", Value: valueOrNA(row.Certainty), Short: true},
	}

	if row.Expanded {
		if row.Headline != "" {
			fields = append(fields, &model.SlackAttachmentField{
				Title: "Headline",
				Value: row.Headline,
				Short: false,
			})
		}

		fields = append(fields,
			&model.SlackAttachmentField{Title: "Onset", Value: formatTime(row.Onset), Short: true},
			&model.SlackAttachmentField{Title: "Expires", Value: formatTime(row.Expires), Short: true},
			&model.SlackAttachmentField{Title: "Description", Value: row.Description, Short: false},
		)

		if row.URI != "" {
			fields = append(fields, &model.SlackAttachmentField{
				Title: "More Information",
				Value: fmt.Sprintf("[Link](%s)", row.URI),
				Short: false,
			})
		}
	}

	attachment.Fields = fields
	attachment.Footer = hashtag.Generate(row.Alert)

	label := LabelShowMore
	if row.Expanded {
		label = LabelShowLess
	}
	attachment.Actions = []*model.PostAction{
		{
			Type: model.PostActionTypeButton,
			Name: label,
			Integration: &model.PostActionIntegration{
				URL: ToggleURL(pluginID, widgetID),
				Context: map[string]any{
					ContextWidgetID: widgetID,
					ContextAlertID:  row.ID,
				},
			},
		},
	}

	return attachment
}

// getSeverityColor returns the color code for a severity
func getSeverityColor(severity widget.Severity) string {
	switch severity {
	case widget.SeverityExtreme:
		return ColorExtreme
	case widget.SeveritySevere:
		return ColorSevere
	case widget.SeverityModerate:
		return ColorModerate
	case widget.SeverityMinor:
		return ColorMinor
	default:
		return ColorUnknown
	}
}

// formatTime formats an optional timestamp to a readable string
func formatTime(t *time.Time) string {
	if t == nil {
		return "N/A"
	}
	return t.Format("2006-01-02 15:04:05 MST")
}

func valueOrNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
