package nws

import (
	"fmt"
	"strings"
)

// AlertsResponse represents the GeoJSON feature collection returned by the
// active-alerts-by-zone endpoint. A missing features list decodes as nil.
type AlertsResponse struct {
	Features []Feature `json:"features"`
}

// Feature represents one alert record in the feature collection.
type Feature struct {
	ID         string          `json:"id"`
	Properties AlertProperties `json:"properties"`
}

// AlertProperties carries the CAP fields of an alert.
type AlertProperties struct {
	Event       string `json:"event"`
	Headline    string `json:"headline,omitempty"`
	Description string `json:"description"`
	Instruction string `json:"instruction,omitempty"`
	AreaDesc    string `json:"areaDesc,omitempty"`
	Severity    string `json:"severity"`
	Urgency     string `json:"urgency"`
	Certainty   string `json:"certainty"`
	Onset       string `json:"onset,omitempty"`
	Expires     string `json:"expires,omitempty"`
	URI         string `json:"uri,omitempty"`
}

// PointResponse represents the response of the points endpoint.
type PointResponse struct {
	Properties struct {
		ForecastZone string `json:"forecastZone"`
	} `json:"properties"`
}

// ZoneCode extracts the trailing path segment of the forecast zone URL.
func (p *PointResponse) ZoneCode() (string, error) {
	ref := p.Properties.ForecastZone
	if ref == "" {
		return "", fmt.Errorf("no forecastZone in points response")
	}

	return ref[strings.LastIndex(ref, "/")+1:], nil
}

// ZoneResponse represents the response of the zone metadata endpoint.
type ZoneResponse struct {
	Properties ZoneProperties `json:"properties"`
}

// ZoneProperties describes a forecast zone.
type ZoneProperties struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	State string `json:"state"`
}

// ZoneListResponse represents the response of the zone listing endpoint.
type ZoneListResponse struct {
	Features []struct {
		Properties ZoneProperties `json:"properties"`
	} `json:"features"`
}

// ProblemDetail is the RFC 7807 body weather.gov returns on errors.
type ProblemDetail struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Status int    `json:"status"`
}

// Error implements the error interface for ProblemDetail
func (p *ProblemDetail) Error() string {
	if p.Detail != "" {
		return fmt.Sprintf("%s: %s", p.Title, p.Detail)
	}
	return p.Title
}
