package nwsalert

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mattermost/mattermost/server/public/model"
)

// KVStore is the subset of plugin.API used for widget persistence
type KVStore interface {
	KVGet(key string) ([]byte, *model.AppError)
	KVSet(key string, value []byte) *model.AppError
	KVDelete(key string) *model.AppError
}

// StatusStore persists the operational status of one widget in the plugin
// KV store. All keys are scoped to the widget ID.
type StatusStore struct {
	kv       KVStore
	widgetID string
}

// NewStatusStore creates a status store for a specific widget
func NewStatusStore(kv KVStore, widgetID string) *StatusStore {
	return &StatusStore{
		kv:       kv,
		widgetID: widgetID,
	}
}

func (s *StatusStore) key(name string) string {
	return fmt.Sprintf("widget_%s_%s", s.widgetID, name)
}

func (s *StatusStore) saveTime(name string, t time.Time) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}

	if appErr := s.kv.KVSet(s.key(name), data); appErr != nil {
		return fmt.Errorf("failed to save %s: %w", name, appErr)
	}

	return nil
}

func (s *StatusStore) getTime(name string) (time.Time, error) {
	data, appErr := s.kv.KVGet(s.key(name))
	if appErr != nil {
		return time.Time{}, fmt.Errorf("failed to get %s: %w", name, appErr)
	}

	if data == nil {
		return time.Time{}, nil
	}

	var t time.Time
	if err := json.Unmarshal(data, &t); err != nil {
		return time.Time{}, fmt.Errorf("failed to unmarshal %s: %w", name, err)
	}

	return t, nil
}

// SaveLastPoll stores the timestamp of the last fetch attempt
func (s *StatusStore) SaveLastPoll(t time.Time) error {
	return s.saveTime("last_poll", t)
}

// GetLastPoll returns the last fetch attempt, or zero time if none
func (s *StatusStore) GetLastPoll() (time.Time, error) {
	return s.getTime("last_poll")
}

// SaveLastSuccess stores the timestamp of the last successful fetch
func (s *StatusStore) SaveLastSuccess(t time.Time) error {
	return s.saveTime("last_success", t)
}

// GetLastSuccess returns the last successful fetch, or zero time if none
func (s *StatusStore) GetLastSuccess() (time.Time, error) {
	return s.getTime("last_success")
}

// IncrementFailures increments the consecutive failures counter and returns the new count
func (s *StatusStore) IncrementFailures() (int, error) {
	count, err := s.GetFailures()
	if err != nil {
		return 0, err
	}

	count++

	data, err := json.Marshal(count)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal failures count: %w", err)
	}

	if appErr := s.kv.KVSet(s.key("failures"), data); appErr != nil {
		return 0, fmt.Errorf("failed to save failures count: %w", appErr)
	}

	return count, nil
}

// ResetFailures resets the consecutive failures counter to zero
func (s *StatusStore) ResetFailures() error {
	if appErr := s.kv.KVSet(s.key("failures"), []byte("0")); appErr != nil {
		return fmt.Errorf("failed to reset failures count: %w", appErr)
	}
	return nil
}

// GetFailures returns the consecutive failures count, 0 if none stored
func (s *StatusStore) GetFailures() (int, error) {
	data, appErr := s.kv.KVGet(s.key("failures"))
	if appErr != nil {
		return 0, fmt.Errorf("failed to get failures count: %w", appErr)
	}

	if data == nil {
		return 0, nil
	}

	var count int
	if err := json.Unmarshal(data, &count); err != nil {
		return 0, fmt.Errorf("failed to unmarshal failures count: %w", err)
	}

	return count, nil
}

// SaveLastError stores the message of the most recent failure
func (s *StatusStore) SaveLastError(errMsg string) error {
	if appErr := s.kv.KVSet(s.key("last_error"), []byte(errMsg)); appErr != nil {
		return fmt.Errorf("failed to save last error: %w", appErr)
	}
	return nil
}

// GetLastError returns the message of the most recent failure
func (s *StatusStore) GetLastError() (string, error) {
	data, appErr := s.kv.KVGet(s.key("last_error"))
	if appErr != nil {
		return "", fmt.Errorf("failed to get last error: %w", appErr)
	}

	return string(data), nil
}

// ClearAll removes all status for this widget from the KV store
func (s *StatusStore) ClearAll() error {
	for _, name := range []string{"last_poll", "last_success", "failures", "last_error"} {
		if appErr := s.kv.KVDelete(s.key(name)); appErr != nil {
			return fmt.Errorf("failed to delete key %s: %w", s.key(name), appErr)
		}
	}

	return nil
}
