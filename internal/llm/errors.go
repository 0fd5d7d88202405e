package llm

import "fmt"

// GenerationError indicates the text-generation service was unreachable or
// still failing after the retry budget was exhausted. It carries the final
// attempt's error verbatim, including any diagnostic text from the service.
type GenerationError struct {
	Attempts int
	Cause    error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed after %d attempt(s): %v", e.Attempts, e.Cause)
}

func (e *GenerationError) Unwrap() error {
	return e.Cause
}
