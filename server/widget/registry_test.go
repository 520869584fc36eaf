package widget

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattermost/mattermost-plugin-nws-alerts/server/hass"
)

// mockWidget is a simple mock implementation of the Widget interface for testing
type mockWidget struct {
	id      string
	name    string
	stopped bool
	mu      sync.Mutex

	stopErr error
}

func newMockWidget(id, name string) *mockWidget {
	return &mockWidget{id: id, name: name}
}

func (m *mockWidget) Start() error { return nil }

func (m *mockWidget) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
	return m.stopErr
}

func (m *mockWidget) GetID() string   { return m.id }
func (m *mockWidget) GetName() string { return m.name }

func (m *mockWidget) GetStatus() Status                { return Status{} }
func (m *mockWidget) View() (View, error)              { return View{}, nil }
func (m *mockWidget) ToggleAlert(string) error         { return nil }
func (m *mockWidget) Refresh() error                   { return nil }
func (m *mockWidget) UpdateStates(hass.Snapshot) error { return nil }

func (m *mockWidget) isStopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}

func testEntryConfig(id, name string) Config {
	return Config{ID: id, Name: name, ChannelID: "channel-" + id, Zone: "WAZ558"}
}

func register(t *testing.T, registry *Registry, w *mockWidget) {
	t.Helper()
	require.NoError(t, registry.Register(w, testEntryConfig(w.id, w.name)))
}

func TestRegistry_Register(t *testing.T) {
	registry := NewRegistry()
	w := newMockWidget("widget1", "Seattle")

	err := registry.Register(w, testEntryConfig("widget1", "Seattle"))
	assert.NoError(t, err)
	assert.Equal(t, 1, registry.Count())

	entry, ok := registry.Lookup("widget1")
	require.True(t, ok)
	assert.Equal(t, w, entry.Widget)
	assert.Equal(t, "Seattle", entry.Config.Name)
	assert.Equal(t, "channel-widget1", entry.ChannelID())
}

func TestRegistry_RegisterInvalid(t *testing.T) {
	tests := []struct {
		name        string
		widget      Widget
		config      Config
		errContains string
	}{
		{
			name:        "nil widget",
			config:      testEntryConfig("widget1", "Seattle"),
			errContains: "no widget instance",
		},
		{
			name:        "empty ID",
			widget:      newMockWidget("", "No ID"),
			config:      testEntryConfig("", "No ID"),
			errContains: "does not match configuration ID",
		},
		{
			name:        "ID mismatch",
			widget:      newMockWidget("widget1", "Seattle"),
			config:      testEntryConfig("widget2", "Seattle"),
			errContains: `widget ID "widget1" does not match configuration ID "widget2"`,
		},
		{
			name:        "no channel",
			widget:      newMockWidget("widget1", "Seattle"),
			config:      Config{ID: "widget1", Name: "Seattle"},
			errContains: "no channel",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := NewRegistry()

			err := registry.Register(tt.widget, tt.config)
			require.Error(t, err)
			assert.True(t, IsConfigurationError(err))
			assert.Contains(t, err.Error(), tt.errContains)
			assert.Equal(t, 0, registry.Count())
		})
	}
}

func TestRegistry_RegisterDuplicateID(t *testing.T) {
	registry := NewRegistry()
	first := newMockWidget("widget1", "First")
	second := newMockWidget("widget1", "Second")

	register(t, registry, first)

	err := registry.Register(second, testEntryConfig("widget1", "Second"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already registered as 'First'")

	entry, ok := registry.Lookup("widget1")
	require.True(t, ok)
	assert.Equal(t, first, entry.Widget)
}

func TestRegistry_LookupMissing(t *testing.T) {
	registry := NewRegistry()

	entry, ok := registry.Lookup("missing")
	assert.False(t, ok)
	assert.Nil(t, entry.Widget)
}

func TestRegistry_Unregister(t *testing.T) {
	registry := NewRegistry()
	w := newMockWidget("widget1", "Seattle")
	register(t, registry, w)

	err := registry.Unregister("widget1")
	assert.NoError(t, err)
	assert.Equal(t, 0, registry.Count())
	assert.True(t, w.isStopped())

	_, ok := registry.Lookup("widget1")
	assert.False(t, ok)

	err = registry.Unregister("widget1")
	assert.ErrorIs(t, err, ErrWidgetNotFound)
}

func TestRegistry_UnregisterStopError(t *testing.T) {
	registry := NewRegistry()
	w := newMockWidget("widget1", "Seattle")
	w.stopErr = fmt.Errorf("stop failed")
	register(t, registry, w)

	err := registry.Unregister("widget1")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to stop widget 'Seattle'")

	// Widget is removed even though Stop failed
	assert.Equal(t, 0, registry.Count())
}

func TestRegistry_UnregisterAll(t *testing.T) {
	registry := NewRegistry()

	w1 := newMockWidget("widget1", "One")
	w2 := newMockWidget("widget2", "Two")
	w2.stopErr = fmt.Errorf("widget2 stop failed")
	w3 := newMockWidget("widget3", "Three")
	w3.stopErr = fmt.Errorf("widget3 stop failed")

	register(t, registry, w3)
	register(t, registry, w1)
	register(t, registry, w2)

	err := registry.UnregisterAll()
	require.Error(t, err)
	// Widgets stop in ID order, so the first failure is widget2's
	assert.Contains(t, err.Error(), "widget2 stop failed")

	assert.Equal(t, 0, registry.Count())
	assert.True(t, w1.isStopped())
	assert.True(t, w2.isStopped())
	assert.True(t, w3.isStopped())

	// The registry is usable again afterwards
	register(t, registry, newMockWidget("widget4", "Four"))
	assert.Equal(t, 1, registry.Count())
}
