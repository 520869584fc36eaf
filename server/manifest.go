package main

import (
	"encoding/json"
	"strings"

	"github.com/mattermost/mattermost/server/public/model"
)

var manifest *model.Manifest

const manifestStr = `
{
  "id": "com.mattermost.plugin-nws-alerts",
  "name": "NWS Weather Alerts",
  "description": "Keeps a live list of National Weather Service alerts in a channel and triggers Home Assistant actions by severity.",
  "version": "0.1.0",
  "min_server_version": "9.5.0",
  "server": {
    "executables": {
      "linux-amd64": "server/dist/plugin-linux-amd64",
      "linux-arm64": "server/dist/plugin-linux-arm64"
    },
    "executable": ""
  },
  "settings_schema": {
    "header": "",
    "footer": "",
    "settings": [
      {"key": "HomeAssistantURL", "display_name": "Home Assistant URL", "type": "text", "help_text": "Base URL of the Home Assistant instance used for actions and entity states."},
      {"key": "HomeAssistantToken", "display_name": "Home Assistant Token", "type": "text", "secret": true, "help_text": "Long-lived access token."},
      {"key": "WebhookSecret", "display_name": "State Webhook Secret", "type": "text", "secret": true, "help_text": "Shared secret Home Assistant sends in the X-NWS-Alerts-Secret header when pushing entity states."},
      {"key": "BotUsername", "display_name": "Bot Username", "type": "text", "default": "nws-alerts"},
      {"key": "BotDisplayName", "display_name": "Bot Display Name", "type": "text", "default": "NWS Alerts"},
      {"key": "Widgets", "display_name": "Widgets", "type": "custom"}
    ]
  }
}
`

func init() {
	_ = json.NewDecoder(strings.NewReader(manifestStr)).Decode(&manifest)
}
