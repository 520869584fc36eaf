package nwsalert

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/mattermost/mattermost-plugin-nws-alerts/server/hass"
	"github.com/mattermost/mattermost-plugin-nws-alerts/server/nws"
	"github.com/mattermost/mattermost-plugin-nws-alerts/server/widget"
)

// homeAssistantAppSignature appears in the user agent of the companion app
const homeAssistantAppSignature = "home assistant"

var mobileUserAgent = regexp.MustCompile(`(?i)android|webos|iphone|ipad|ipod|blackberry|iemobile|opera mini`)

// PointLookup resolves a coordinate pair to its forecast zone
type PointLookup interface {
	LookupPoint(ctx context.Context, lat, lon float64) (*nws.PointResponse, error)
}

// StateSource reads entity states on demand
type StateSource interface {
	Snapshot(ctx context.Context, entityIDs []string) (hass.Snapshot, error)
}

// IsMobileDevice reports whether a device should use the mobile location.
// The companion app always counts as mobile; otherwise a mobile user agent
// must be paired with a narrow viewport. A zero width is unknown and never
// counts as narrow.
func IsMobileDevice(userAgent string, viewportWidth int) bool {
	ua := strings.ToLower(userAgent)
	if strings.Contains(ua, homeAssistantAppSignature) {
		return true
	}

	narrow := viewportWidth > 0 && viewportWidth <= widget.MobileViewportWidth
	return mobileUserAgent.MatchString(ua) && narrow
}

// Resolver turns a widget's location configuration into a zone code
type Resolver struct {
	points PointLookup
	states StateSource
	cache  *widget.ZoneCache
	log    Logger
}

// NewResolver creates a resolver. states may be nil when no entity source is configured.
func NewResolver(points PointLookup, states StateSource, cache *widget.ZoneCache, log Logger) *Resolver {
	return &Resolver{
		points: points,
		states: states,
		cache:  cache,
		log:    log,
	}
}

// Resolve returns the zone for cfg. The mobile pair is used when mobile is
// set and the pair is configured, then the base pair, then the static zone.
// A coordinate failure falls back to the static zone when one is configured.
// snapshot may be nil, in which case entity states are read from the state
// source if any coordinate needs them.
func (r *Resolver) Resolve(ctx context.Context, cfg widget.Config, snapshot hass.Snapshot, mobile bool) (string, error) {
	var latCfg, lonCfg *widget.Coordinate
	switch {
	case mobile && cfg.HasMobileCoordinates():
		latCfg, lonCfg = cfg.MobileLatitude, cfg.MobileLongitude
		r.log.Debug("Using mobile location configuration", "widgetId", cfg.ID)
	case cfg.HasCoordinates():
		latCfg, lonCfg = cfg.Latitude, cfg.Longitude
	case cfg.Zone != "":
		return cfg.Zone, nil
	default:
		return "", fmt.Errorf("%w: no location configured", widget.ErrResolution)
	}

	if snapshot == nil && r.states != nil && (latCfg.IsEntity() || lonCfg.IsEntity()) {
		pulled, err := r.states.Snapshot(ctx, cfg.EntityIDs())
		if err != nil {
			r.log.Warn("Unable to read entity states", "widgetId", cfg.ID, "error", err.Error())
		}
		snapshot = pulled
	}

	zone, err := r.resolvePair(ctx, latCfg, lonCfg, snapshot)
	if err != nil {
		if cfg.Zone != "" {
			r.log.Warn("Coordinate resolution failed, falling back to static zone",
				"widgetId", cfg.ID,
				"zone", cfg.Zone,
				"error", err.Error())
			return cfg.Zone, nil
		}
		return "", fmt.Errorf("%w: %w", widget.ErrResolution, err)
	}

	return zone, nil
}

func (r *Resolver) resolvePair(ctx context.Context, latCfg, lonCfg *widget.Coordinate, snapshot hass.Snapshot) (string, error) {
	lat, err := resolveCoordinate(latCfg, "latitude", snapshot)
	if err != nil {
		return "", err
	}

	lon, err := resolveCoordinate(lonCfg, "longitude", snapshot)
	if err != nil {
		return "", err
	}

	zone, cached, err := r.cache.Resolve(ctx, lat, lon, func(ctx context.Context) (string, error) {
		return r.lookupZone(ctx, lat, lon)
	})
	if err != nil {
		return "", fmt.Errorf("failed to fetch zone for %s: %w", widget.CoordinateKey(lat, lon), err)
	}

	r.log.Debug("Resolved coordinates to zone",
		"coordinates", widget.CoordinateKey(lat, lon),
		"zone", zone,
		"cached", cached)

	return zone, nil
}

func (r *Resolver) lookupZone(ctx context.Context, lat, lon float64) (string, error) {
	point, err := r.points.LookupPoint(ctx, lat, lon)
	if err != nil {
		return "", err
	}

	zone, err := point.ZoneCode()
	if err != nil {
		return "", err
	}

	if !widget.IsValidZone(zone) {
		return "", fmt.Errorf("invalid zone format: %s", zone)
	}

	return zone, nil
}

// resolveCoordinate returns the numeric value of a latitude or longitude,
// reading entity-backed values from the snapshot.
func resolveCoordinate(coord *widget.Coordinate, axis string, snapshot hass.Snapshot) (float64, error) {
	value := coord.Value

	if coord.IsEntity() {
		if !strings.Contains(coord.Entity, ".") {
			return 0, fmt.Errorf("'%s' does not appear to be a valid entity ID", coord.Entity)
		}

		if snapshot == nil {
			return 0, fmt.Errorf("entity state not available")
		}

		if _, ok := snapshot[coord.Entity]; !ok {
			return 0, fmt.Errorf("entity '%s' not found", coord.Entity)
		}

		raw, ok := snapshot.Attribute(coord.Entity, axis)
		if !ok {
			return 0, fmt.Errorf("entity '%s' missing '%s' attribute", coord.Entity, axis)
		}

		parsed, err := toFloat(raw)
		if err != nil {
			return 0, fmt.Errorf("invalid %s value in entity '%s': %w", axis, coord.Entity, err)
		}
		value = parsed
	}

	if err := widget.ValidateCoordinate(axis, value); err != nil {
		return 0, err
	}

	return value, nil
}

func toFloat(raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	default:
		return 0, fmt.Errorf("unsupported type %T", raw)
	}
}
