package pipeline

import "fmt"

// NoInputError ends a run without output: there was nothing to convert.
type NoInputError struct {
	Reason string
}

func (e *NoInputError) Error() string {
	return fmt.Sprintf("nothing to convert: %s", e.Reason)
}
