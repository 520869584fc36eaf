package widget

import (
	"errors"
	"fmt"
)

// Non-fatal failure classes. Each degrades to a visible state or a log line;
// none of them stops the polling loop.
var (
	// ErrResolution means neither coordinates nor the static zone produced a zone code
	ErrResolution = errors.New("unable to determine zone")

	// ErrFetch means an alert fetch failed after all retries
	ErrFetch = errors.New("unable to fetch alerts")

	// ErrActionInvocation means a downstream action call failed
	ErrActionInvocation = errors.New("action invocation failed")

	// ErrStorageUnavailable means the cooldown store could not be read or written
	ErrStorageUnavailable = errors.New("cooldown storage unavailable")
)

// ConfigurationError reports a widget configuration that cannot run at all.
// It is surfaced to the host when the configuration is saved.
type ConfigurationError struct {
	Widget string
	Reason string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	if e.Widget == "" {
		return fmt.Sprintf("configuration error: %s", e.Reason)
	}
	return fmt.Sprintf("configuration error in widget '%s': %s", e.Widget, e.Reason)
}

// IsConfigurationError reports whether err is or wraps a ConfigurationError
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}
