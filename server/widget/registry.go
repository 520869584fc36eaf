package widget

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrWidgetNotFound is returned for IDs that have no registered widget
var ErrWidgetNotFound = errors.New("widget not found")

// Entry is a registered widget together with the configuration it was built
// from. The configuration carries the channel used for permission checks.
type Entry struct {
	Widget Widget
	Config Config
}

// ChannelID returns the channel the widget posts to
func (e Entry) ChannelID() string {
	return e.Config.ChannelID
}

// Registry tracks every configured widget, running or not, keyed by widget ID.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]Entry),
	}
}

// Register records a widget under its configuration. The widget must have
// been built from cfg and cfg must name a channel.
func (r *Registry) Register(w Widget, cfg Config) error {
	if w == nil {
		return &ConfigurationError{Widget: cfg.Name, Reason: "no widget instance"}
	}
	if cfg.ID == "" || w.GetID() != cfg.ID {
		return &ConfigurationError{Widget: cfg.Name, Reason: fmt.Sprintf("widget ID %q does not match configuration ID %q", w.GetID(), cfg.ID)}
	}
	if cfg.ChannelID == "" {
		return &ConfigurationError{Widget: cfg.Name, Reason: "no channel"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, exists := r.entries[cfg.ID]; exists {
		return fmt.Errorf("widget %s is already registered as '%s'", cfg.ID, existing.Config.Name)
	}

	r.entries[cfg.ID] = Entry{Widget: w, Config: cfg}
	return nil
}

// Lookup returns the widget registered under id and its configuration
func (r *Registry) Lookup(id string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[id]
	return entry, ok
}

// Unregister detaches a widget and forgets it. The entry is removed even when
// Stop fails.
func (r *Registry) Unregister(id string) error {
	r.mu.Lock()
	entry, exists := r.entries[id]
	if !exists {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrWidgetNotFound, id)
	}

	delete(r.entries, id)
	r.mu.Unlock()

	// Stop waits for the widget's event loop, so it runs outside the lock
	if err := entry.Widget.Stop(); err != nil {
		return fmt.Errorf("failed to stop widget '%s': %w", entry.Config.Name, err)
	}

	return nil
}

// UnregisterAll detaches every widget in ID order. All widgets are stopped;
// the first Stop failure is returned.
func (r *Registry) UnregisterAll() error {
	r.mu.Lock()
	entries := make([]Entry, 0, len(r.entries))
	for _, entry := range r.entries {
		entries = append(entries, entry)
	}
	r.entries = make(map[string]Entry)
	r.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Config.ID < entries[j].Config.ID
	})

	var firstError error
	for _, entry := range entries {
		if err := entry.Widget.Stop(); err != nil && firstError == nil {
			firstError = fmt.Errorf("failed to stop widget '%s': %w", entry.Config.Name, err)
		}
	}

	return firstError
}

// Count returns the number of registered widgets
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.entries)
}
