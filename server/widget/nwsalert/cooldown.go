package nwsalert

import (
	"fmt"
	"strconv"
	"time"

	"github.com/mattermost/mattermost-plugin-nws-alerts/server/widget"
)

// cooldownKeyPrefix prefixes every persisted cooldown record
const cooldownKeyPrefix = "nws_alert_cooldown"

// CooldownStore records when each severity's action last ran for a zone.
// Records live in the plugin KV store so they survive widget restarts and
// are shared by widgets watching the same zone.
//
// Storage failures are permissive: a record that cannot be read counts as
// never triggered, and a record that cannot be written is logged and dropped.
type CooldownStore struct {
	kv  KVStore
	log Logger
	now func() time.Time
}

// NewCooldownStore creates a cooldown store backed by kv
func NewCooldownStore(kv KVStore, log Logger) *CooldownStore {
	return &CooldownStore{
		kv:  kv,
		log: log,
		now: time.Now,
	}
}

// CooldownKey returns the KV key for a severity and zone
func CooldownKey(severity widget.Severity, zone string) string {
	if zone == "" {
		zone = "unknown"
	}
	return fmt.Sprintf("%s-%s-%s", cooldownKeyPrefix, severity, zone)
}

// LastTriggered returns the last successful trigger time for a severity and
// zone. The zero time means never triggered.
func (c *CooldownStore) LastTriggered(severity widget.Severity, zone string) (time.Time, error) {
	data, appErr := c.kv.KVGet(CooldownKey(severity, zone))
	if appErr != nil {
		return time.Time{}, fmt.Errorf("%w: %s", widget.ErrStorageUnavailable, appErr.Error())
	}

	if len(data) == 0 {
		return time.Time{}, nil
	}

	millis, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: malformed timestamp %q", widget.ErrStorageUnavailable, string(data))
	}

	return time.UnixMilli(millis), nil
}

// InCooldown reports whether less than window has elapsed since the last
// successful trigger. A zero window disables the check.
func (c *CooldownStore) InCooldown(severity widget.Severity, zone string, window time.Duration) bool {
	if window <= 0 {
		return false
	}

	last, err := c.LastTriggered(severity, zone)
	if err != nil {
		c.log.Warn("Unable to read cooldown record, allowing trigger",
			"severity", severity.String(),
			"zone", zone,
			"error", err.Error())
		return false
	}

	if last.IsZero() {
		return false
	}

	elapsed := c.now().Sub(last)
	if elapsed < window {
		c.log.Debug("Action in cooldown",
			"severity", severity.String(),
			"zone", zone,
			"remaining", (window - elapsed).Round(time.Minute).String())
		return true
	}

	return false
}

// Record stores now as the last successful trigger for a severity and zone
func (c *CooldownStore) Record(severity widget.Severity, zone string) {
	value := strconv.FormatInt(c.now().UnixMilli(), 10)
	if appErr := c.kv.KVSet(CooldownKey(severity, zone), []byte(value)); appErr != nil {
		c.log.Warn("Unable to save cooldown timestamp",
			"severity", severity.String(),
			"zone", zone,
			"error", appErr.Error())
	}
}
