package cmd

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattermost/mattermost-plugin-nws-alerts/server/nws"
)

func TestFormatZoneTable(t *testing.T) {
	zones := []nws.ZoneProperties{
		{ID: "WAZ558", Name: "City of Seattle", State: "WA"},
		{ID: "ORZ006", Name: "Greater Portland Metro Area", State: "OR"},
		{ID: "WAZ001", Name: "Bellevue", State: "WA"},
		{ID: "ANZ530", Name: "Chesapeake Bay"},
	}

	expected := "" +
		"State | Name                        | Zone ID\n" +
		"----- | --------------------------- | -------\n" +
		"N/A   | Chesapeake Bay              | ANZ530 \n" +
		"OR    | Greater Portland Metro Area | ORZ006 \n" +
		"WA    | Bellevue                    | WAZ001 \n" +
		"WA    | City of Seattle             | WAZ558 "

	assert.Equal(t, expected, FormatZoneTable(zones))
}

func TestFormatZoneTable_Empty(t *testing.T) {
	assert.Equal(t, "No data to display.", FormatZoneTable(nil))
}

func TestFormatZoneTable_UnicodeWidth(t *testing.T) {
	table := FormatZoneTable([]nws.ZoneProperties{{ID: "PRZ001", Name: "San Juan y Vecindad", State: "PR"}, {ID: "PRZ002", Name: "Añasco", State: "PR"}})
	assert.Contains(t, table, "Añasco              | PRZ002")
}

func TestParseCoordinates(t *testing.T) {
	lat, lon, err := parseCoordinates("47.6062", "-122.3321")
	require.NoError(t, err)
	assert.Equal(t, 47.6062, lat)
	assert.Equal(t, -122.3321, lon)

	_, _, err = parseCoordinates("north", "0")
	assert.ErrorContains(t, err, "invalid latitude")

	_, _, err = parseCoordinates("0", "200")
	assert.ErrorContains(t, err, "must be -180 to 180")
}

func TestCommands(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/geo+json")
		switch r.URL.Path {
		case "/zones":
			_, _ = w.Write([]byte(`{"features":[{"properties":{"id":"WAZ558","name":"City of Seattle","state":"WA"}}]}`))
		case "/points/47.6062,-122.3321":
			_, _ = w.Write([]byte(`{"properties":{"forecastZone":"https://api.weather.gov/zones/forecast/WAZ558"}}`))
		case "/points/45.5152,-122.6784":
			_, _ = w.Write([]byte(`{"properties":{"forecastZone":"https://api.weather.gov/zones/forecast/BAD1"}}`))
		case "/zones/forecast/WAZ558":
			_, _ = w.Write([]byte(`{"properties":{"id":"WAZ558","name":"City of Seattle","state":"WA"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	run := func(args ...string) (string, error) {
		var out bytes.Buffer
		rootCmd.SetOut(&out)
		rootCmd.SetErr(&out)
		rootCmd.SetArgs(append([]string{"--base-url", server.URL}, args...))
		err := rootCmd.Execute()
		return out.String(), err
	}

	t.Run("list", func(t *testing.T) {
		out, err := run("list")
		require.NoError(t, err)
		assert.Contains(t, out, "WA    | City of Seattle | WAZ558 ")
	})

	t.Run("lookup", func(t *testing.T) {
		out, err := run("lookup", "47.6062", "-122.3321")
		require.NoError(t, err)
		assert.Equal(t, "WAZ558\tCity of Seattle\n", out)
	})

	t.Run("lookup with verbose flag before coordinates", func(t *testing.T) {
		t.Cleanup(func() { verbose = false })

		out, err := run("lookup", "-v", "47.6062", "-122.3321")
		require.NoError(t, err)
		assert.Contains(t, out, "WAZ558\tCity of Seattle\n")
	})

	t.Run("lookup malformed zone", func(t *testing.T) {
		_, err := run("lookup", "45.5152", "-122.6784")
		assert.ErrorContains(t, err, "invalid zone format: BAD1")
	})

	t.Run("lookup outside coverage", func(t *testing.T) {
		_, err := run("lookup", "10", "10")
		assert.Error(t, err)
	})
}
