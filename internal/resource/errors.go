package resource

import "errors"

// ErrNotOpen is the failure carried by futures returned from operations on a
// context that is not open.
var ErrNotOpen = errors.New("resource: context not open")

// ErrSchedulerStopped is returned when a lifecycle operation is requested
// after the context's scheduler was shut down by a completed close.
var ErrSchedulerStopped = errors.New("resource: scheduler stopped")

// ConfigurationError reports an invalid resource configuration. It is the
// only synchronous failure in this layer, raised at construction time.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return "resource: " + e.Message
}
