package widget

import "time"

// Constants for widget behavior and thresholds
const (
	// DefaultTitle is the heading shown when no title is configured
	DefaultTitle = "NWS Weather Alert"

	// DefaultUpdateIntervalSeconds is the poll interval used when none is configured
	DefaultUpdateIntervalSeconds = 300

	// DefaultEmail is the contact identifier sent to the NWS API when none is
	// configured or the configured one is malformed
	DefaultEmail = "homeassistant@example.com"

	// DefaultCooldownMinutes is the per-severity action cooldown used when none is configured
	DefaultCooldownMinutes = 60

	// MaxFetchRetries is the number of retries after a failed alert fetch
	MaxFetchRetries = 3

	// BaseRetryDelay is the first retry delay; each further retry doubles it
	BaseRetryDelay = 5 * time.Second

	// ZoneResolveDebounce is the window in which entity state changes collapse
	// into one zone re-resolution
	ZoneResolveDebounce = 5 * time.Second

	// ActionQueueSpacing is the pause between queued action executions
	ActionQueueSpacing = 100 * time.Millisecond

	// ZoneCacheTTL is how long a coordinate-to-zone resolution stays valid
	ZoneCacheTTL = 24 * time.Hour

	// ZoneCacheSize is the maximum number of cached coordinate keys
	ZoneCacheSize = 10

	// ZoneLookupTimeout bounds one shared coordinate-to-zone lookup
	ZoneLookupTimeout = 30 * time.Second

	// MobileViewportWidth is the widest viewport still treated as a phone
	MobileViewportWidth = 768
)
