package orchestrator

import (
	"errors"
	"fmt"
)

// ErrNoActiveCall reports that an operation needs an active room and none is
// set
var ErrNoActiveCall = errors.New("no active call")

// ValidationError reports bad or missing user input. The action is blocked
// before any side effect.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// TransportError wraps a network or remote failure talking to the call-agent
// service. Existing state is never lost when one is returned.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
