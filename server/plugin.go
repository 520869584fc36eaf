package main

import (
	"sync"

	"github.com/mattermost/mattermost/server/public/model"
	"github.com/mattermost/mattermost/server/public/plugin"
	"github.com/mattermost/mattermost/server/public/pluginapi"
	"github.com/pkg/errors"

	"github.com/mattermost/mattermost-plugin-nws-alerts/server/hass"
	"github.com/mattermost/mattermost-plugin-nws-alerts/server/poster"
	"github.com/mattermost/mattermost-plugin-nws-alerts/server/widget"
	"github.com/mattermost/mattermost-plugin-nws-alerts/server/widget/nwsalert"
)

const (
	defaultBotUsername    = "nws-alerts"
	defaultBotDisplayName = "NWS Alerts"
)

// Plugin implements the interface expected by the Mattermost server to communicate between the server and plugin processes.
type Plugin struct {
	plugin.MattermostPlugin

	// client is the Mattermost server API client.
	client *pluginapi.Client

	// configurationLock synchronizes access to the configuration.
	configurationLock sync.RWMutex

	// configuration is the active plugin configuration. Consult getConfiguration and
	// setConfiguration for usage.
	configuration *configuration

	// registry manages all active widget instances.
	registry *widget.Registry

	// poster keeps each widget's post up to date.
	poster *poster.Poster

	// zoneCache is shared across all widgets so widgets at the same location
	// resolve their zone once
	zoneCache *widget.ZoneCache

	// scheduler runs widget polls as cluster jobs
	scheduler nwsalert.JobScheduler
}

// OnActivate is invoked when the plugin is activated. If an error is returned, the plugin will be deactivated.
func (p *Plugin) OnActivate() error {
	p.client = pluginapi.NewClient(p.API, p.Driver)
	p.zoneCache = widget.NewZoneCache()
	p.scheduler = nwsalert.NewClusterJobScheduler(p.API)

	config := p.getConfiguration()

	botUsername := config.BotUsername
	if botUsername == "" {
		botUsername = defaultBotUsername
	}
	botDisplayName := config.BotDisplayName
	if botDisplayName == "" {
		botDisplayName = defaultBotDisplayName
	}

	botID, err := p.API.EnsureBotUser(&model.Bot{
		Username:    botUsername,
		DisplayName: botDisplayName,
		Description: "Bot for posting National Weather Service alerts to Mattermost channels",
	})
	if err != nil {
		return errors.Wrap(err, "failed to ensure bot user")
	}

	p.API.LogInfo("Bot user initialized", "botID", botID, "username", botUsername)

	p.poster = poster.New(p.API, botID, manifest.Id)
	p.registry = widget.NewRegistry()

	for _, widgetConfig := range config.Widgets {
		p.createAndStartWidget(widgetConfig)
	}

	return nil
}

// OnDeactivate is invoked when the plugin is deactivated.
func (p *Plugin) OnDeactivate() error {
	if p.registry != nil {
		if err := p.registry.UnregisterAll(); err != nil {
			p.API.LogError("Failed to unregister all widgets during deactivation", "error", err.Error())
			return err
		}
	}

	return nil
}

// homeAssistant returns a client for the configured Home Assistant instance,
// or nil when none is configured.
func (p *Plugin) homeAssistant() *hass.Client {
	config := p.getConfiguration()
	if config.HomeAssistantURL == "" || config.HomeAssistantToken == "" {
		return nil
	}

	return hass.NewClient(config.HomeAssistantURL, config.HomeAssistantToken)
}

// widgetDependencies wires a widget to the plugin's shared services
func (p *Plugin) widgetDependencies() nwsalert.Dependencies {
	deps := nwsalert.Dependencies{
		Log:       &p.client.Log,
		KV:        p.API,
		Renderer:  p.poster,
		Scheduler: p.scheduler,
		ZoneCache: p.zoneCache,
	}

	// Leave the interfaces nil rather than holding a nil *hass.Client
	if ha := p.homeAssistant(); ha != nil {
		deps.Actions = ha
		deps.States = ha
	}

	return deps
}

// createAndStartWidget creates a widget instance and registers it.
// If the widget is enabled, it also starts the widget.
// Logs errors but does not fail - errors are non-fatal for individual widgets.
func (p *Plugin) createAndStartWidget(config widget.Config) {
	w, err := nwsalert.New(config, p.widgetDependencies())
	if err != nil {
		p.API.LogError("Failed to create widget", "id", config.ID, "name", config.Name, "error", err.Error())
		return
	}

	// Register widget (always register, even if disabled)
	if err := p.registry.Register(w, w.Config()); err != nil {
		p.API.LogError("Failed to register widget", "id", config.ID, "name", config.Name, "error", err.Error())
		return
	}

	if !config.Enabled {
		// Clear poll status for disabled widgets so they start fresh when re-enabled
		if err := w.ClearStatus(); err != nil {
			p.API.LogWarn("Failed to clear status for disabled widget", "id", config.ID, "name", config.Name, "error", err.Error())
		}
		p.API.LogInfo("Widget registered but not started (disabled)", "id", config.ID, "name", config.Name)
		return
	}

	if err := w.Start(); err != nil {
		p.API.LogError("Failed to start widget", "id", config.ID, "name", config.Name, "error", err.Error())
		// Keep widget registered even if start fails - it will show error state in status
		return
	}

	p.API.LogInfo("Widget started successfully", "id", config.ID, "name", config.Name)
}

// See https://developers.mattermost.com/extend/plugins/server/reference/
