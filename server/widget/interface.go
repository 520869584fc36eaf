package widget

import "github.com/mattermost/mattermost-plugin-nws-alerts/server/hass"

// Widget defines the interface the plugin uses to drive one widget instance.
// Start and Stop correspond to attaching to and detaching from the host;
// everything else may be called at any time and is safe for concurrent use.
type Widget interface {
	// Start attaches the widget: resolves its zone, renders, and starts polling.
	// Mutable session state is initialized from scratch on every Start.
	Start() error

	// Stop detaches the widget, cancelling its timers. Late completions of
	// in-flight requests are discarded.
	Stop() error

	// GetID returns the unique identifier for this widget (UUID v4).
	GetID() string

	// GetName returns the display name for this widget.
	GetName() string

	// GetStatus returns the current operational status of the widget.
	GetStatus() Status

	// View returns the view model most recently rendered.
	View() (View, error)

	// ToggleAlert flips the expand/collapse state of one alert and re-renders.
	ToggleAlert(alertID string) error

	// Refresh forces an immediate fetch.
	Refresh() error

	// UpdateStates delivers a new entity-state snapshot.
	UpdateStates(snapshot hass.Snapshot) error
}

// ViewState is the kind of content a widget is showing
type ViewState string

const (
	ViewLoading ViewState = "loading"
	ViewAlerts  ViewState = "alerts"
	ViewError   ViewState = "error"
)

// View is the already-composed view model handed to the renderer.
type View struct {
	WidgetID string     `json:"widgetId"`
	Title    string     `json:"title"`
	ZoneName string     `json:"zoneName,omitempty"`
	State    ViewState  `json:"state"`
	Message  string     `json:"message,omitempty"`
	Alerts   []AlertRow `json:"alerts"`
}

// AlertRow is one alert as displayed.
type AlertRow struct {
	Alert
	Expanded bool   `json:"expanded"`
	Marker   string `json:"marker,omitempty"`
}

// Renderer displays a view in the host.
type Renderer interface {
	Render(view View, channelID string) error
}
