package nwsalert

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattermost/mattermost-plugin-nws-alerts/server/nws"
	"github.com/mattermost/mattermost-plugin-nws-alerts/server/widget"
)

func TestNormalizeAlert(t *testing.T) {
	f := nws.Feature{
		ID: "urn:oid:2.49.0.1.840.0.abc",
		Properties: nws.AlertProperties{
			Event:       "Winter Storm Warning",
			Headline:    "Winter Storm Warning issued January 7",
			Description: "Heavy snow expected.",
			Severity:    "Severe",
			Urgency:     "Expected",
			Certainty:   "Likely",
			Onset:       "2026-01-07T18:00:00-08:00",
			Expires:     "not a timestamp",
			URI:         "https://api.weather.gov/alerts/urn:oid:2.49.0.1.840.0.abc",
		},
	}

	a := NormalizeAlert(f)
	assert.Equal(t, f.ID, a.ID)
	assert.Equal(t, "Winter Storm Warning", a.Event)
	assert.Equal(t, widget.SeveritySevere, a.Severity)
	assert.Equal(t, "Expected", a.Urgency)
	assert.Equal(t, "Likely", a.Certainty)
	assert.Equal(t, f.Properties.URI, a.URI)

	require.NotNil(t, a.Onset)
	assert.True(t, a.Onset.Equal(time.Date(2026, 1, 8, 2, 0, 0, 0, time.UTC)))
	assert.Nil(t, a.Expires, "malformed timestamps are dropped")
}

func TestNormalizeAlerts(t *testing.T) {
	assert.Empty(t, NormalizeAlerts(nil))

	alerts := NormalizeAlerts([]nws.Feature{feature("a", "Minor"), feature("b", "Bogus")})
	require.Len(t, alerts, 2)
	assert.Equal(t, "a", alerts[0].ID)
	assert.Equal(t, widget.SeverityUnknown, alerts[1].Severity)
}
