package widget

import (
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var (
	// zonePattern matches a forecast/county zone code such as WAZ558 or WAC033
	zonePattern = regexp.MustCompile(`^[A-Z]{2}[CZ]\d{3}$`)

	emailPattern  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	actionPattern = regexp.MustCompile(`^(script|automation)\.`)
)

// IsValidZone reports whether s is a well-formed zone code
func IsValidZone(s string) bool {
	return zonePattern.MatchString(s)
}

// ValidateWidgets validates widget configurations.
// A configuration that cannot run at all yields a *ConfigurationError.
func ValidateWidgets(configs []Config) error {
	if len(configs) == 0 {
		// Empty configuration is valid - no widgets configured
		return nil
	}

	seenIDs := make(map[string]bool)
	seenNames := make(map[string]bool)

	for i, config := range configs {
		if err := validateRequiredFields(config); err != nil {
			return fmt.Errorf("widget configuration at position %d: %w", i+1, err)
		}

		if err := validateUUID(config.ID); err != nil {
			return &ConfigurationError{Widget: config.Name, Reason: err.Error()}
		}

		if seenIDs[config.ID] {
			return &ConfigurationError{Reason: fmt.Sprintf("duplicate widget ID found: %s", config.ID)}
		}
		seenIDs[config.ID] = true

		if seenNames[config.Name] {
			return &ConfigurationError{Reason: fmt.Sprintf("duplicate widget name found: '%s'", config.Name)}
		}
		seenNames[config.Name] = true

		if err := ValidateLocation(config); err != nil {
			return &ConfigurationError{Widget: config.Name, Reason: err.Error()}
		}

		if config.UpdateIntervalSeconds < 0 {
			return &ConfigurationError{
				Widget: config.Name,
				Reason: fmt.Sprintf("update interval must be positive (got %d)", config.UpdateIntervalSeconds),
			}
		}
	}

	return nil
}

// ValidateLocation checks that either a zone code or a coordinate pair is present.
func ValidateLocation(config Config) error {
	if config.Zone == "" && !config.HasCoordinates() {
		return fmt.Errorf("either 'nwsZone' or both 'latitude' and 'longitude' are required")
	}

	if config.Zone != "" && !IsValidZone(config.Zone) {
		return fmt.Errorf("invalid zone code '%s' (expected e.g. WAZ558)", config.Zone)
	}

	return nil
}

// ValidateCoordinate range-checks a latitude (axis "latitude") or longitude
func ValidateCoordinate(axis string, value float64) error {
	limit := 90.0
	if axis == "longitude" {
		limit = 180.0
	}
	if math.IsNaN(value) || value < -limit || value > limit {
		return fmt.Errorf("invalid %s %v (must be -%v to %v)", axis, value, limit, limit)
	}
	return nil
}

// ValidateCoordinatePair range-checks a latitude/longitude pair
func ValidateCoordinatePair(lat, lon float64) error {
	if err := ValidateCoordinate("latitude", lat); err != nil {
		return err
	}
	return ValidateCoordinate("longitude", lon)
}

// validateRequiredFields checks that all required fields are present and non-empty
func validateRequiredFields(config Config) error {
	if config.ID == "" {
		return &ConfigurationError{Widget: config.Name, Reason: "missing required field 'id'"}
	}
	if config.Name == "" {
		return &ConfigurationError{Reason: "missing required field 'name'"}
	}
	if config.ChannelID == "" {
		return &ConfigurationError{Widget: config.Name, Reason: "missing required field 'channelId'"}
	}
	return nil
}

// validateUUID checks that the ID is a valid UUID v4
func validateUUID(id string) error {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid UUID format for id: %w", err)
	}

	if parsed.Version() != 4 {
		return fmt.Errorf("id must be a UUID v4 (got version %d)", parsed.Version())
	}

	return nil
}

// Normalize applies defaults and drops settings that cannot be used.
// It returns the normalized copy and one warning per adjustment that the
// caller should log. The input is not modified.
func Normalize(config Config) (Config, []string) {
	var warnings []string
	normalized := config

	if normalized.Title == "" {
		normalized.Title = DefaultTitle
	}

	if normalized.UpdateIntervalSeconds == 0 {
		normalized.UpdateIntervalSeconds = DefaultUpdateIntervalSeconds
	}

	email := strings.ToLower(strings.TrimSpace(normalized.Email))
	if email == "" {
		email = DefaultEmail
	} else if !emailPattern.MatchString(email) {
		warnings = append(warnings, "invalid email format, using default")
		email = DefaultEmail
	}
	normalized.Email = email

	if (normalized.MobileLatitude != nil) != (normalized.MobileLongitude != nil) {
		warnings = append(warnings, "both 'mobileLatitude' and 'mobileLongitude' must be provided together; mobile override will be ignored")
		normalized.MobileLatitude = nil
		normalized.MobileLongitude = nil
	}

	actions := []struct {
		field string
		value *string
	}{
		{"minorAction", &normalized.MinorAction},
		{"moderateAction", &normalized.ModerateAction},
		{"severeAction", &normalized.SevereAction},
		{"extremeAction", &normalized.ExtremeAction},
	}
	for _, action := range actions {
		*action.value = strings.TrimSpace(*action.value)
		if *action.value == "" {
			continue
		}
		if !actionPattern.MatchString(*action.value) {
			warnings = append(warnings, fmt.Sprintf("'%s' must be a script or automation entity ID (e.g., script.my_script), got: %s", action.field, *action.value))
			*action.value = ""
		}
	}

	if normalized.CooldownMinutes == nil {
		cooldown := DefaultCooldownMinutes
		normalized.CooldownMinutes = &cooldown
	} else if *normalized.CooldownMinutes < 0 {
		warnings = append(warnings, fmt.Sprintf("'alertTriggerCooldown' must be a positive number, got: %d; using default: %d", *normalized.CooldownMinutes, DefaultCooldownMinutes))
		cooldown := DefaultCooldownMinutes
		normalized.CooldownMinutes = &cooldown
	}

	return normalized, warnings
}

// DiffWidgetConfigs compares old and new widget configurations and returns IDs to add, update, and remove.
func DiffWidgetConfigs(oldConfigs, newConfigs []Config) (toAdd, toUpdate, toRemove []string) {
	oldMap := make(map[string]Config)
	newMap := make(map[string]Config)

	for _, cfg := range oldConfigs {
		oldMap[cfg.ID] = cfg
	}

	for _, cfg := range newConfigs {
		newMap[cfg.ID] = cfg
	}

	for id, newCfg := range newMap {
		if oldCfg, exists := oldMap[id]; !exists {
			toAdd = append(toAdd, id)
		} else if !reflect.DeepEqual(oldCfg, newCfg) {
			// Coordinates and cooldown are pointers, so compare by value
			toUpdate = append(toUpdate, id)
		}
	}

	for id := range oldMap {
		if _, exists := newMap[id]; !exists {
			toRemove = append(toRemove, id)
		}
	}

	return toAdd, toUpdate, toRemove
}
