package widget

import "time"

// Severity is the CAP severity of an alert. Values are ordered by rank.
type Severity int

const (
	SeverityUnknown Severity = iota
	SeverityMinor
	SeverityModerate
	SeveritySevere
	SeverityExtreme
)

var severityNames = [...]string{"Unknown", "Minor", "Moderate", "Severe", "Extreme"}

// ParseSeverity maps a CAP severity string to a Severity.
// Anything unrecognized, including the empty string, is SeverityUnknown.
func ParseSeverity(s string) Severity {
	for i, name := range severityNames {
		if name == s {
			return Severity(i)
		}
	}
	return SeverityUnknown
}

// String returns the CAP name of the severity
func (s Severity) String() string {
	if s < SeverityUnknown || s > SeverityExtreme {
		return severityNames[SeverityUnknown]
	}
	return severityNames[s]
}

// Rank returns the comparison rank (higher is more severe)
func (s Severity) Rank() int {
	return int(s)
}

// MarshalText encodes the severity by name
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a severity name
func (s *Severity) UnmarshalText(text []byte) error {
	*s = ParseSeverity(string(text))
	return nil
}

// Alert represents a normalized weather alert.
// Alerts are immutable once fetched and identified by ID.
type Alert struct {
	// ID is the unique identifier of this event occurrence
	ID string `json:"id"`

	// Event is the alert event name (e.g., "Winter Storm Warning")
	Event string `json:"event"`

	// Headline is the one-line summary, if provided
	Headline string `json:"headline,omitempty"`

	// Description is the free-text body
	Description string `json:"description"`

	Severity  Severity `json:"severity"`
	Urgency   string   `json:"urgency"`
	Certainty string   `json:"certainty"`

	// Onset and Expires are nil when the API omits them or they do not parse
	Onset   *time.Time `json:"onset,omitempty"`
	Expires *time.Time `json:"expires,omitempty"`

	// URI is an external reference to the full alert
	URI string `json:"uri,omitempty"`
}

// MaxSeverity returns the highest severity across alerts.
// The second return value is false for an empty list.
func MaxSeverity(alerts []Alert) (Severity, bool) {
	if len(alerts) == 0 {
		return SeverityUnknown, false
	}

	maxSeverity := SeverityUnknown
	for _, alert := range alerts {
		if alert.Severity.Rank() > maxSeverity.Rank() {
			maxSeverity = alert.Severity
		}
	}

	return maxSeverity, true
}
