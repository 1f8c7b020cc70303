package instance

import (
	"errors"
	"fmt"
)

// ErrNotOpen is the failure carried by futures returned from submissions on
// an instance whose session is not open.
var ErrNotOpen = errors.New("instance: client not open")

// PartialDeleteError reports that a resource's delete command committed but
// the follow-up removal control command failed. The resource's data is gone;
// its manager registration may linger until the removal is retried.
type PartialDeleteError struct {
	Resource uint64
	Err      error
}

func (e *PartialDeleteError) Error() string {
	return fmt.Sprintf("instance: resource %d deleted but removal failed: %v", e.Resource, e.Err)
}

func (e *PartialDeleteError) Unwrap() error { return e.Err }
