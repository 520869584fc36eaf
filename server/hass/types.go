package hass

import (
	"fmt"
	"strings"
)

// EntityState represents the state object Home Assistant returns for an entity.
type EntityState struct {
	EntityID   string         `json:"entity_id"`
	State      string         `json:"state"`
	Attributes map[string]any `json:"attributes"`
}

// Snapshot is a point-in-time view of entity states keyed by entity ID.
type Snapshot map[string]EntityState

// Attribute returns a named attribute of an entity.
// The second return value reports whether both the entity and attribute exist.
func (s Snapshot) Attribute(entityID, name string) (any, bool) {
	entity, ok := s[entityID]
	if !ok {
		return nil, false
	}

	value, ok := entity.Attributes[name]
	if !ok || value == nil {
		return nil, false
	}

	return value, true
}

// Clone returns a shallow copy of the snapshot map
func (s Snapshot) Clone() Snapshot {
	if s == nil {
		return nil
	}

	clone := make(Snapshot, len(s))
	for k, v := range s {
		clone[k] = v
	}
	return clone
}

// SplitEntityID splits "<domain>.<name>" into its parts.
func SplitEntityID(entityID string) (domain, name string, err error) {
	domain, name, found := strings.Cut(entityID, ".")
	if !found || domain == "" || name == "" {
		return "", "", fmt.Errorf("invalid entity ID %q", entityID)
	}
	return domain, name, nil
}

// ServiceForDomain returns the service verb used to run an entity of the given domain.
// Scripts are turned on; everything else (automations) is triggered.
func ServiceForDomain(domain string) string {
	if domain == "script" {
		return "turn_on"
	}
	return "trigger"
}
