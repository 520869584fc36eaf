package nwsalert

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/mattermost/mattermost/server/public/model"
	"github.com/mattermost/mattermost/server/public/plugin/plugintest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestStatusStore_LastPoll(t *testing.T) {
	t.Run("save and retrieve", func(t *testing.T) {
		api := &plugintest.API{}
		store := NewStatusStore(api, "widget-123")

		ts := time.Date(2026, 1, 7, 12, 0, 0, 0, time.UTC)
		data, _ := json.Marshal(ts)

		api.On("KVSet", "widget_widget-123_last_poll", data).Return(nil)
		require.NoError(t, store.SaveLastPoll(ts))

		api.On("KVGet", "widget_widget-123_last_poll").Return(data, nil)
		got, err := store.GetLastPoll()
		require.NoError(t, err)
		assert.True(t, got.Equal(ts))
		api.AssertExpectations(t)
	})

	t.Run("none stored", func(t *testing.T) {
		api := &plugintest.API{}
		store := NewStatusStore(api, "widget-123")

		api.On("KVGet", "widget_widget-123_last_poll").Return(nil, nil)
		got, err := store.GetLastPoll()
		require.NoError(t, err)
		assert.True(t, got.IsZero())
	})

	t.Run("corrupted data", func(t *testing.T) {
		api := &plugintest.API{}
		store := NewStatusStore(api, "widget-123")

		api.On("KVGet", "widget_widget-123_last_poll").Return([]byte("garbage"), nil)
		_, err := store.GetLastPoll()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to unmarshal last_poll")
	})

	t.Run("KV error", func(t *testing.T) {
		api := &plugintest.API{}
		store := NewStatusStore(api, "widget-123")

		api.On("KVSet", "widget_widget-123_last_poll", mock.Anything).Return(model.NewAppError("KVSet", "app.kv.error", nil, "", 500))
		err := store.SaveLastPoll(time.Now())
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to save last_poll")
	})
}

func TestStatusStore_Failures(t *testing.T) {
	kv := newMemKV()
	store := NewStatusStore(kv, "widget-123")

	count, err := store.GetFailures()
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	count, err = store.IncrementFailures()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = store.IncrementFailures()
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, store.ResetFailures())
	count, err = store.GetFailures()
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestStatusStore_LastErrorAndClear(t *testing.T) {
	kv := newMemKV()
	store := NewStatusStore(kv, "widget-123")

	require.NoError(t, store.SaveLastError("HTTP 503"))
	msg, err := store.GetLastError()
	require.NoError(t, err)
	assert.Equal(t, "HTTP 503", msg)

	require.NoError(t, store.SaveLastSuccess(time.Now()))
	require.NoError(t, store.ClearAll())

	msg, err = store.GetLastError()
	require.NoError(t, err)
	assert.Empty(t, msg)

	success, err := store.GetLastSuccess()
	require.NoError(t, err)
	assert.True(t, success.IsZero())
}
