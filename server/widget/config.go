package widget

import (
	"encoding/json"
	"fmt"
	"time"
)

// Coordinate is a configured latitude or longitude. It is either a literal
// number or the ID of an entity whose attribute supplies the value at
// resolution time.
//
// In JSON a number selects the literal form and a string the entity form.
type Coordinate struct {
	Value  float64
	Entity string
}

// IsEntity reports whether the coordinate refers to an entity
func (c Coordinate) IsEntity() bool {
	return c.Entity != ""
}

// MarshalJSON encodes the coordinate as a number or an entity ID string
func (c Coordinate) MarshalJSON() ([]byte, error) {
	if c.IsEntity() {
		return json.Marshal(c.Entity)
	}
	return json.Marshal(c.Value)
}

// UnmarshalJSON accepts a JSON number or string
func (c *Coordinate) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch v := raw.(type) {
	case float64:
		*c = Coordinate{Value: v}
	case string:
		*c = Coordinate{Entity: v}
	default:
		return fmt.Errorf("coordinate must be a number or an entity ID, got %s", string(data))
	}

	return nil
}

// Config represents the configuration for one widget instance.
// Each widget is uniquely identified by its ID (UUID v4) and watches exactly one zone.
type Config struct {
	// ID is the unique stable identifier for this widget (UUID v4, immutable)
	ID string `json:"id"`

	// Name is the display name for this widget (mutable, must be unique)
	Name string `json:"name"`

	// Enabled indicates whether this widget should be actively polling
	Enabled bool `json:"enabled"`

	// ChannelID is the Mattermost channel the widget renders into
	ChannelID string `json:"channelId"`

	// Zone is a static NWS zone code; also the fallback when coordinates fail to resolve
	Zone string `json:"nwsZone,omitempty"`

	Latitude        *Coordinate `json:"latitude,omitempty"`
	Longitude       *Coordinate `json:"longitude,omitempty"`
	MobileLatitude  *Coordinate `json:"mobileLatitude,omitempty"`
	MobileLongitude *Coordinate `json:"mobileLongitude,omitempty"`

	// Email is sent in the User-Agent header of every NWS request
	Email string `json:"email,omitempty"`

	// UpdateIntervalSeconds is how often to poll for alerts
	UpdateIntervalSeconds int `json:"updateIntervalSeconds,omitempty"`

	Title               string `json:"title,omitempty"`
	ShowExpanded        bool   `json:"showExpanded,omitempty"`
	HideSeverityMarkers bool   `json:"hideSeverityMarkers,omitempty"`

	// Actions run when alerts of the matching maximum severity appear
	MinorAction    string `json:"minorAction,omitempty"`
	ModerateAction string `json:"moderateAction,omitempty"`
	SevereAction   string `json:"severeAction,omitempty"`
	ExtremeAction  string `json:"extremeAction,omitempty"`

	// CooldownMinutes is the minimum time between two runs of the same
	// severity's action for the same zone; 0 disables the cooldown.
	// Nil selects DefaultCooldownMinutes.
	CooldownMinutes *int `json:"alertTriggerCooldown,omitempty"`

	// DeviceUserAgent and DeviceViewportWidth describe the device the widget is
	// shown on; they select the mobile coordinate pair.
	DeviceUserAgent     string `json:"deviceUserAgent,omitempty"`
	DeviceViewportWidth int    `json:"deviceViewportWidth,omitempty"`
}

// HasCoordinates reports whether a base coordinate pair is configured
func (c Config) HasCoordinates() bool {
	return c.Latitude != nil && c.Longitude != nil
}

// HasMobileCoordinates reports whether a mobile coordinate pair is configured
func (c Config) HasMobileCoordinates() bool {
	return c.MobileLatitude != nil && c.MobileLongitude != nil
}

// EntityIDs returns the entity IDs referenced by any configured coordinate
func (c Config) EntityIDs() []string {
	var ids []string
	seen := make(map[string]bool)
	for _, coord := range []*Coordinate{c.Latitude, c.Longitude, c.MobileLatitude, c.MobileLongitude} {
		if coord != nil && coord.IsEntity() && !seen[coord.Entity] {
			seen[coord.Entity] = true
			ids = append(ids, coord.Entity)
		}
	}
	return ids
}

// HasEntityCoordinates reports whether any coordinate is entity-backed
func (c Config) HasEntityCoordinates() bool {
	return len(c.EntityIDs()) > 0
}

// ActionFor returns the action entity ID configured for a severity, or "".
func (c Config) ActionFor(severity Severity) string {
	switch severity {
	case SeverityMinor:
		return c.MinorAction
	case SeverityModerate:
		return c.ModerateAction
	case SeveritySevere:
		return c.SevereAction
	case SeverityExtreme:
		return c.ExtremeAction
	default:
		return ""
	}
}

// PollInterval returns the poll interval as a duration
func (c Config) PollInterval() time.Duration {
	if c.UpdateIntervalSeconds <= 0 {
		return DefaultUpdateIntervalSeconds * time.Second
	}
	return time.Duration(c.UpdateIntervalSeconds) * time.Second
}

// Cooldown returns the action cooldown as a duration
func (c Config) Cooldown() time.Duration {
	if c.CooldownMinutes == nil {
		return DefaultCooldownMinutes * time.Minute
	}
	return time.Duration(*c.CooldownMinutes) * time.Minute
}

// Status represents the current operational status of a widget instance.
type Status struct {
	// Enabled indicates whether the widget is enabled and running
	Enabled bool `json:"enabled"`

	// Lifecycle is the widget's lifecycle state
	Lifecycle Lifecycle `json:"lifecycle"`

	// Zone is the active zone code (empty until resolved)
	Zone string `json:"zone"`

	// LastPollTime is the timestamp of the last fetch attempt
	LastPollTime time.Time `json:"lastPollTime"`

	// LastSuccessTime is the timestamp of the last successful fetch
	LastSuccessTime time.Time `json:"lastSuccessTime"`

	// ConsecutiveFailures is the count of consecutive failed fetch attempts
	ConsecutiveFailures int `json:"consecutiveFailures"`

	// LastError contains the error message from the most recent failure (empty if no error)
	LastError string `json:"lastError"`
}

// Lifecycle is the state of a widget instance.
type Lifecycle string

const (
	LifecycleUnconfigured Lifecycle = "unconfigured"
	LifecycleConfigured   Lifecycle = "configured"
	LifecycleActive       Lifecycle = "active"
	LifecycleStopped      Lifecycle = "stopped"
)
