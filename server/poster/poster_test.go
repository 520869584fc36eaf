package poster

import (
	"net/http"
	"testing"

	"github.com/mattermost/mattermost/server/public/model"
	"github.com/mattermost/mattermost/server/public/plugin/plugintest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mattermost/mattermost-plugin-nws-alerts/server/widget"
)

const (
	botID     = "bot-user-id"
	channelID = "channel-id"
	pluginID  = "com.mattermost.plugin-nws-alerts"
	widgetID  = "550e8400-e29b-41d4-a716-446655440000"
	postID    = "post-id"
)

func testView() widget.View {
	return widget.View{
		WidgetID: widgetID,
		Title:    "NWS Weather Alert",
		State:    widget.ViewAlerts,
		Alerts: []widget.AlertRow{
			{Alert: widget.Alert{ID: "alert-1", Event: "Flood Watch", Severity: widget.SeverityModerate}},
		},
	}
}

func attachmentsOf(post *model.Post) []*model.SlackAttachment {
	attachments, _ := post.Props["attachments"].([]*model.SlackAttachment)
	return attachments
}

func TestRender_CreatesPost(t *testing.T) {
	api := &plugintest.API{}
	defer api.AssertExpectations(t)

	api.On("KVGet", "widget_post_"+widgetID).Return(nil, nil).Once()

	api.On("CreatePost", mock.MatchedBy(func(post *model.Post) bool {
		assert.Equal(t, botID, post.UserId, "Post should use bot user ID")
		assert.Equal(t, channelID, post.ChannelId, "Post should target correct channel")
		assert.Equal(t, model.PostTypeSlackAttachment, post.Type, "Post should be slack_attachment type")
		assert.Len(t, attachmentsOf(post), 2, "Header plus one attachment per alert")
		return true
	})).Return(&model.Post{Id: postID}, nil).Once()

	api.On("KVSet", "widget_post_"+widgetID, []byte(postID)).Return(nil).Once()

	poster := New(api, botID, pluginID)
	require.NoError(t, poster.Render(testView(), channelID))
}

func TestRender_UpdatesExistingPost(t *testing.T) {
	api := &plugintest.API{}
	defer api.AssertExpectations(t)

	api.On("KVGet", "widget_post_"+widgetID).Return([]byte(postID), nil).Once()
	api.On("GetPost", postID).Return(&model.Post{
		Id:        postID,
		UserId:    botID,
		ChannelId: channelID,
		Props:     model.StringInterface{},
	}, nil).Once()

	api.On("UpdatePost", mock.MatchedBy(func(post *model.Post) bool {
		assert.Equal(t, postID, post.Id, "Existing post should be edited in place")
		assert.Len(t, attachmentsOf(post), 2)
		return true
	})).Return(&model.Post{Id: postID}, nil).Once()

	poster := New(api, botID, pluginID)
	require.NoError(t, poster.Render(testView(), channelID))
}

func TestRender_RecreatesMissingPost(t *testing.T) {
	api := &plugintest.API{}
	defer api.AssertExpectations(t)

	api.On("KVGet", "widget_post_"+widgetID).Return([]byte("gone"), nil).Once()
	api.On("GetPost", "gone").Return(nil, model.NewAppError("GetPost", "app.post.get.app_error", nil, "", http.StatusNotFound)).Once()
	api.On("LogDebug", "Widget post not found, creating a new one", "widgetId", widgetID, "postId", "gone").Once()
	api.On("CreatePost", mock.AnythingOfType("*model.Post")).Return(&model.Post{Id: "new-post"}, nil).Once()
	api.On("KVSet", "widget_post_"+widgetID, []byte("new-post")).Return(nil).Once()

	poster := New(api, botID, pluginID)
	require.NoError(t, poster.Render(testView(), channelID))
}

func TestRender_RecreatesWhenChannelChanged(t *testing.T) {
	api := &plugintest.API{}
	defer api.AssertExpectations(t)

	api.On("KVGet", "widget_post_"+widgetID).Return([]byte(postID), nil).Once()
	api.On("GetPost", postID).Return(&model.Post{Id: postID, ChannelId: "old-channel"}, nil).Once()
	api.On("CreatePost", mock.MatchedBy(func(post *model.Post) bool {
		return post.ChannelId == channelID
	})).Return(&model.Post{Id: "new-post"}, nil).Once()
	api.On("KVSet", "widget_post_"+widgetID, []byte("new-post")).Return(nil).Once()

	poster := New(api, botID, pluginID)
	require.NoError(t, poster.Render(testView(), channelID))
}

func TestRender_Errors(t *testing.T) {
	appErr := model.NewAppError("test", "test.error", nil, "", http.StatusInternalServerError)

	t.Run("KV read fails", func(t *testing.T) {
		api := &plugintest.API{}
		defer api.AssertExpectations(t)
		api.On("KVGet", "widget_post_"+widgetID).Return(nil, appErr).Once()

		err := New(api, botID, pluginID).Render(testView(), channelID)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load widget post ID")
	})

	t.Run("create fails", func(t *testing.T) {
		api := &plugintest.API{}
		defer api.AssertExpectations(t)
		api.On("KVGet", "widget_post_"+widgetID).Return(nil, nil).Once()
		api.On("CreatePost", mock.AnythingOfType("*model.Post")).Return(nil, appErr).Once()

		err := New(api, botID, pluginID).Render(testView(), channelID)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create widget post")
	})

	t.Run("update fails", func(t *testing.T) {
		api := &plugintest.API{}
		defer api.AssertExpectations(t)
		api.On("KVGet", "widget_post_"+widgetID).Return([]byte(postID), nil).Once()
		api.On("GetPost", postID).Return(&model.Post{Id: postID, ChannelId: channelID}, nil).Once()
		api.On("UpdatePost", mock.AnythingOfType("*model.Post")).Return(nil, appErr).Once()

		err := New(api, botID, pluginID).Render(testView(), channelID)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to update widget post")
	})
}

func TestRemove(t *testing.T) {
	t.Run("deletes post and key", func(t *testing.T) {
		api := &plugintest.API{}
		defer api.AssertExpectations(t)
		api.On("KVGet", "widget_post_"+widgetID).Return([]byte(postID), nil).Once()
		api.On("DeletePost", postID).Return(nil).Once()
		api.On("KVDelete", "widget_post_"+widgetID).Return(nil).Once()

		require.NoError(t, New(api, botID, pluginID).Remove(widgetID))
	})

	t.Run("no post", func(t *testing.T) {
		api := &plugintest.API{}
		defer api.AssertExpectations(t)
		api.On("KVGet", "widget_post_"+widgetID).Return(nil, nil).Once()

		require.NoError(t, New(api, botID, pluginID).Remove(widgetID))
	})
}
