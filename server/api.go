package main

import (
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/mattermost/mattermost/server/public/model"
	"github.com/mattermost/mattermost/server/public/plugin"

	"github.com/mattermost/mattermost-plugin-nws-alerts/server/formatter"
	"github.com/mattermost/mattermost-plugin-nws-alerts/server/hass"
	"github.com/mattermost/mattermost-plugin-nws-alerts/server/widget"
)

// WebhookSecretHeader carries the shared secret on entity-state pushes
const WebhookSecretHeader = "X-NWS-Alerts-Secret"

// Request body limits
const (
	maxStatesBodyBytes = 1 << 20
	maxActionBodyBytes = 64 << 10
)

// ServeHTTP handles HTTP requests for the plugin.
// The root URL is currently <siteUrl>/plugins/com.mattermost.plugin-nws-alerts/api/v1/.
func (p *Plugin) ServeHTTP(c *plugin.Context, w http.ResponseWriter, r *http.Request) {
	p.router().ServeHTTP(w, r)
}

func (p *Plugin) router() *mux.Router {
	router := mux.NewRouter()

	apiRouter := router.PathPrefix("/api/v1").Subrouter()

	// Home Assistant authenticates with the shared secret instead of a session
	apiRouter.Handle("/widgets/{id}/states", p.WebhookSecretRequired(http.HandlerFunc(p.handleStates))).Methods(http.MethodPost)

	userRouter := apiRouter.NewRoute().Subrouter()
	userRouter.Use(p.MattermostAuthorizationRequired)
	userRouter.HandleFunc("/widgets/{id}/view", p.handleView).Methods(http.MethodGet)
	userRouter.HandleFunc("/widgets/{id}/status", p.handleStatus).Methods(http.MethodGet)
	userRouter.HandleFunc("/widgets/{id}/refresh", p.handleRefresh).Methods(http.MethodPost)
	userRouter.HandleFunc("/widgets/{id}/toggle", p.handleToggle).Methods(http.MethodPost)

	return router
}

func (p *Plugin) MattermostAuthorizationRequired(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get("Mattermost-User-ID")
		if userID == "" {
			http.Error(w, "Not authorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (p *Plugin) WebhookSecretRequired(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		secret := p.getConfiguration().WebhookSecret
		if secret == "" {
			http.Error(w, "State webhook is disabled", http.StatusForbidden)
			return
		}

		provided := r.Header.Get(WebhookSecretHeader)
		if subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
			http.Error(w, "Not authorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// widgetForUser returns the requested widget if the user can read its channel.
// It writes the error response and returns nil otherwise.
func (p *Plugin) widgetForUser(w http.ResponseWriter, r *http.Request) widget.Widget {
	entry, found := p.lookupWidget(mux.Vars(r)["id"])
	if !found {
		http.Error(w, "Widget not found", http.StatusNotFound)
		return nil
	}

	userID := r.Header.Get("Mattermost-User-ID")
	if !p.API.HasPermissionToChannel(userID, entry.ChannelID(), model.PermissionReadChannel) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return nil
	}

	return entry.Widget
}

func (p *Plugin) lookupWidget(id string) (widget.Entry, bool) {
	if p.registry == nil {
		return widget.Entry{}, false
	}
	return p.registry.Lookup(id)
}

func (p *Plugin) handleView(w http.ResponseWriter, r *http.Request) {
	instance := p.widgetForUser(w, r)
	if instance == nil {
		return
	}

	view, err := instance.View()
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	p.writeJSON(w, view)
}

func (p *Plugin) handleStatus(w http.ResponseWriter, r *http.Request) {
	instance := p.widgetForUser(w, r)
	if instance == nil {
		return
	}

	p.writeJSON(w, instance.GetStatus())
}

func (p *Plugin) handleRefresh(w http.ResponseWriter, r *http.Request) {
	instance := p.widgetForUser(w, r)
	if instance == nil {
		return
	}

	if err := instance.Refresh(); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// handleToggle serves the expand/collapse buttons of a widget post. The
// alert arrives in the action context; the widget re-renders its post, so the
// integration response carries no update.
func (p *Plugin) handleToggle(w http.ResponseWriter, r *http.Request) {
	instance := p.widgetForUser(w, r)
	if instance == nil {
		return
	}

	var request model.PostActionIntegrationRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxActionBodyBytes)).Decode(&request); err != nil {
		http.Error(w, "Invalid action request", http.StatusBadRequest)
		return
	}

	alertID, _ := request.Context[formatter.ContextAlertID].(string)
	if alertID == "" {
		http.Error(w, "Missing alert ID", http.StatusBadRequest)
		return
	}

	if err := instance.ToggleAlert(alertID); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	p.writeJSON(w, &model.PostActionIntegrationResponse{})
}

// handleStates accepts an entity-state push. The body is either the array
// Home Assistant's /api/states returns or an object keyed by entity ID.
func (p *Plugin) handleStates(w http.ResponseWriter, r *http.Request) {
	entry, found := p.lookupWidget(mux.Vars(r)["id"])
	if !found {
		http.Error(w, "Widget not found", http.StatusNotFound)
		return
	}

	snapshot, err := decodeSnapshot(http.MaxBytesReader(w, r.Body, maxStatesBodyBytes))
	if err != nil {
		http.Error(w, "Invalid state payload: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := entry.Widget.UpdateStates(snapshot); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

func decodeSnapshot(body io.Reader) (hass.Snapshot, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return nil, err
	}

	var states []hass.EntityState
	if err := json.Unmarshal(raw, &states); err == nil {
		snapshot := make(hass.Snapshot, len(states))
		for _, state := range states {
			if state.EntityID != "" {
				snapshot[state.EntityID] = state
			}
		}
		return snapshot, nil
	}

	var snapshot hass.Snapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return nil, err
	}
	for entityID, state := range snapshot {
		if state.EntityID == "" {
			state.EntityID = entityID
			snapshot[entityID] = state
		}
	}

	return snapshot, nil
}

func (p *Plugin) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		p.API.LogWarn("Failed to write response", "error", err.Error())
	}
}
