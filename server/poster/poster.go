package poster

import (
	"fmt"
	"sync"

	"github.com/mattermost/mattermost/server/public/model"
	"github.com/mattermost/mattermost/server/public/plugin"

	"github.com/mattermost/mattermost-plugin-nws-alerts/server/formatter"
	"github.com/mattermost/mattermost-plugin-nws-alerts/server/widget"
)

const postKeyPrefix = "widget_post_"

// Poster keeps one post per widget up to date in its channel.
// The post ID is persisted in the KV store so the same post is edited
// across plugin restarts; a post that has been deleted is recreated.
type Poster struct {
	api      plugin.API
	botID    string
	pluginID string

	// mu serializes create-or-update so concurrent renders of one widget
	// cannot both create a post
	mu sync.Mutex
}

var _ widget.Renderer = (*Poster)(nil)

// New creates a new Poster instance.
func New(api plugin.API, botID, pluginID string) *Poster {
	return &Poster{
		api:      api,
		botID:    botID,
		pluginID: pluginID,
	}
}

func postKey(widgetID string) string {
	return postKeyPrefix + widgetID
}

// Render shows view in channelID, editing the widget's existing post when
// there is one.
func (p *Poster) Render(view widget.View, channelID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	attachments := formatter.FormatView(view, p.pluginID)

	existing, err := p.existingPost(view.WidgetID, channelID)
	if err != nil {
		return err
	}

	if existing != nil {
		post := existing.Clone()
		model.ParseSlackAttachment(post, attachments)
		if _, appErr := p.api.UpdatePost(post); appErr != nil {
			return fmt.Errorf("failed to update widget post: %w", appErr)
		}
		return nil
	}

	post := &model.Post{
		UserId:    p.botID,
		ChannelId: channelID,
		Type:      model.PostTypeSlackAttachment,
		Props:     model.StringInterface{},
	}
	model.ParseSlackAttachment(post, attachments)

	created, appErr := p.api.CreatePost(post)
	if appErr != nil {
		return fmt.Errorf("failed to create widget post: %w", appErr)
	}

	if appErr := p.api.KVSet(postKey(view.WidgetID), []byte(created.Id)); appErr != nil {
		return fmt.Errorf("failed to save widget post ID: %w", appErr)
	}

	return nil
}

// existingPost returns the widget's live post in channelID, or nil when a
// new one must be created
func (p *Poster) existingPost(widgetID, channelID string) (*model.Post, error) {
	data, appErr := p.api.KVGet(postKey(widgetID))
	if appErr != nil {
		return nil, fmt.Errorf("failed to load widget post ID: %w", appErr)
	}
	if len(data) == 0 {
		return nil, nil
	}

	post, appErr := p.api.GetPost(string(data))
	if appErr != nil {
		p.api.LogDebug("Widget post not found, creating a new one", "widgetId", widgetID, "postId", string(data))
		return nil, nil
	}

	if post.DeleteAt != 0 || post.ChannelId != channelID {
		return nil, nil
	}

	return post, nil
}

// Remove deletes the widget's post and forgets its ID
func (p *Poster) Remove(widgetID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	data, appErr := p.api.KVGet(postKey(widgetID))
	if appErr != nil {
		return fmt.Errorf("failed to load widget post ID: %w", appErr)
	}
	if len(data) == 0 {
		return nil
	}

	if appErr := p.api.DeletePost(string(data)); appErr != nil {
		p.api.LogWarn("Failed to delete widget post", "widgetId", widgetID, "postId", string(data), "error", appErr.Error())
	}

	if appErr := p.api.KVDelete(postKey(widgetID)); appErr != nil {
		return fmt.Errorf("failed to delete widget post ID: %w", appErr)
	}

	return nil
}
