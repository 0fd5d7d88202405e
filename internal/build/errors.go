package build

import "fmt"

// BuildError indicates the external toolchain failed. Output holds the tail
// of the captured compiler output, bounded for transport in API responses.
type BuildError struct {
	SmartName string
	Output    string
	Cause     error
}

func (e *BuildError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("build failed for %s: %s", e.SmartName, e.Output)
	}
	return fmt.Sprintf("build failed for %s: %v", e.SmartName, e.Cause)
}

func (e *BuildError) Unwrap() error {
	return e.Cause
}
