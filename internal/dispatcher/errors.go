package dispatcher

import (
	"errors"
	"fmt"
)

// ErrStopped is returned by Submit once the dispatcher has exited.
var ErrStopped = errors.New("dispatcher stopped")

// ShutdownFlushError reports that the final session could not be persisted
// while shutting down.
type ShutdownFlushError struct {
	Err error
}

func (e *ShutdownFlushError) Error() string {
	return fmt.Sprintf("shutdown flush failed: %v", e.Err)
}

func (e *ShutdownFlushError) Unwrap() error {
	return e.Err
}
