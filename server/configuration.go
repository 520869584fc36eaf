package main

import (
	"reflect"

	"github.com/mattermost/mattermost/server/public/plugin"
	"github.com/pkg/errors"

	"github.com/mattermost/mattermost-plugin-nws-alerts/server/widget"
)

// configuration captures the plugin's external configuration as exposed in the Mattermost server
// configuration, as well as values computed from the configuration. Any public fields will be
// deserialized from the Mattermost server configuration in OnConfigurationChange.
//
// As plugins are inherently concurrent (hooks being called asynchronously), and the plugin
// configuration can change at any time, access to the configuration must be synchronized. The
// strategy used in this plugin is to guard a pointer to the configuration, and clone the entire
// struct whenever it changes.
type configuration struct {
	// HomeAssistantURL and HomeAssistantToken connect to the Home Assistant
	// REST API for severity actions and entity states. Both empty disables it.
	HomeAssistantURL   string `json:"homeAssistantURL"`
	HomeAssistantToken string `json:"homeAssistantToken"`

	// WebhookSecret authenticates entity-state pushes. Empty disables the webhook.
	WebhookSecret string `json:"webhookSecret"`

	BotUsername    string `json:"botUsername"`
	BotDisplayName string `json:"botDisplayName"`

	// Widgets is an array of widget configurations.
	// Each widget watches one location and keeps one post up to date.
	Widgets []widget.Config `json:"widgets"`
}

// Clone creates a deep copy of the configuration.
// This ensures that slice modifications don't affect the original.
func (c *configuration) Clone() *configuration {
	clone := *c

	if c.Widgets != nil {
		clone.Widgets = make([]widget.Config, len(c.Widgets))
		copy(clone.Widgets, c.Widgets)
	}

	return &clone
}

// homeAssistantChanged reports whether the Home Assistant connection differs,
// which requires every widget to be rebuilt
func (c *configuration) homeAssistantChanged(other *configuration) bool {
	return c.HomeAssistantURL != other.HomeAssistantURL || c.HomeAssistantToken != other.HomeAssistantToken
}

// getConfiguration retrieves the active configuration under lock, making it safe to use
// concurrently. The active configuration may change underneath the client of this method, but
// the struct returned by this API call is considered immutable.
func (p *Plugin) getConfiguration() *configuration {
	p.configurationLock.RLock()
	defer p.configurationLock.RUnlock()

	if p.configuration == nil {
		return &configuration{}
	}

	return p.configuration
}

// setConfiguration replaces the active configuration under lock.
//
// Do not call setConfiguration while holding the configurationLock, as sync.Mutex is not
// reentrant. In particular, avoid using the plugin API entirely, as this may in turn trigger a
// hook back into the plugin. If that hook attempts to acquire this lock, a deadlock may occur.
//
// This method panics if setConfiguration is called with the existing configuration. This almost
// certainly means that the configuration was modified without being cloned and may result in
// an unsafe access.
func (p *Plugin) setConfiguration(configuration *configuration) {
	p.configurationLock.Lock()
	defer p.configurationLock.Unlock()

	if configuration != nil && p.configuration == configuration {
		// Ignore assignment if the configuration struct is empty. Go will optimize the
		// allocation for same to point at the same memory address, breaking the check
		// above.
		if reflect.ValueOf(*configuration).NumField() == 0 {
			return
		}

		panic("setConfiguration called with the existing configuration")
	}

	p.configuration = configuration
}

// findWidgetConfigByID finds a widget configuration by ID in a slice of configs.
// Returns the config and true if found, or an empty config and false if not found.
func findWidgetConfigByID(configs []widget.Config, id string) (widget.Config, bool) {
	for _, cfg := range configs {
		if cfg.ID == id {
			return cfg, true
		}
	}
	return widget.Config{}, false
}

// unregisterWidget unregisters a widget from the registry and logs the result.
func unregisterWidget(registry *widget.Registry, api plugin.API, id string, reason string) {
	if err := registry.Unregister(id); err != nil {
		api.LogWarn("Failed to unregister widget", "id", id, "reason", reason, "error", err.Error())
	} else {
		api.LogInfo("Unregistered widget", "id", id, "reason", reason)
	}
}

// OnConfigurationChange is invoked when configuration changes may have been made.
func (p *Plugin) OnConfigurationChange() error {
	var newConfig = new(configuration)

	// Load the public configuration fields from the Mattermost server configuration.
	if err := p.API.LoadPluginConfiguration(newConfig); err != nil {
		return errors.Wrap(err, "failed to load plugin configuration")
	}

	if err := widget.ValidateWidgets(newConfig.Widgets); err != nil {
		return errors.Wrap(err, "invalid widget configuration")
	}

	oldConfig := p.getConfiguration()

	toAdd, toUpdate, toRemove := widget.DiffWidgetConfigs(oldConfig.Widgets, newConfig.Widgets)
	if oldConfig.homeAssistantChanged(newConfig) {
		toUpdate = unchangedWidgetIDs(newConfig.Widgets, toAdd, toUpdate)
	}

	// Update the configuration before managing widgets
	p.setConfiguration(newConfig)

	if p.registry != nil {
		for _, id := range toRemove {
			unregisterWidget(p.registry, p.API, id, "widget removed from configuration")
			if err := p.poster.Remove(id); err != nil {
				p.API.LogWarn("Failed to remove widget post", "id", id, "error", err.Error())
			}
		}

		// Stop old, start new
		for _, id := range toUpdate {
			unregisterWidget(p.registry, p.API, id, "widget configuration changed")
			if cfg, found := findWidgetConfigByID(newConfig.Widgets, id); found {
				p.createAndStartWidget(cfg)
			}
		}

		for _, id := range toAdd {
			if cfg, found := findWidgetConfigByID(newConfig.Widgets, id); found {
				p.createAndStartWidget(cfg)
			}
		}
	}

	return nil
}

// unchangedWidgetIDs extends toUpdate with every configured widget that is
// neither added nor already updated
func unchangedWidgetIDs(configs []widget.Config, toAdd, toUpdate []string) []string {
	skip := make(map[string]bool, len(toAdd)+len(toUpdate))
	for _, id := range toAdd {
		skip[id] = true
	}
	for _, id := range toUpdate {
		skip[id] = true
	}

	for _, cfg := range configs {
		if !skip[cfg.ID] {
			toUpdate = append(toUpdate, cfg.ID)
		}
	}

	return toUpdate
}
