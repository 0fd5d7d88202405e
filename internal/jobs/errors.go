package jobs

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates the requested job id is unknown.
var ErrNotFound = errors.New("job not found")

// TransitionError indicates an attempted lifecycle transition that is not on
// the legal generating -> compiling -> completed|failed path.
type TransitionError struct {
	ID   string
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("job %s: illegal transition %s -> %s", e.ID, e.From, e.To)
}
