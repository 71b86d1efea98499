package shipyard

import (
	"errors"
	"fmt"

	"github.com/vesselworks/shipyard/config"
	"github.com/vesselworks/shipyard/internal/remotepath"
)

// ErrUnknownTargetType is returned when no plugin factory is registered for
// a target's declared type.
var ErrUnknownTargetType = errors.New("unknown deploy target type")

// ErrRelativePath indicates a file could not be expressed relative to the
// configured base directory.
var ErrRelativePath = remotepath.ErrRelativePath

// TransportError wraps an opaque failure from an underlying transport or
// vendor SDK call.
type TransportError struct {
	Op     string
	Target string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s to target %q failed: %v", e.Op, e.Target, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Transport wraps err as a TransportError for the given operation and target.
func Transport(op string, target *config.Target, err error) error {
	name := ""
	if target != nil {
		name = target.Name
	}
	return &TransportError{Op: op, Target: name, Err: err}
}
