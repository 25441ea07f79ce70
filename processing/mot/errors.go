package mot

import "fmt"

// WriteError is a filesystem failure while emitting one sequence. Outputs of
// other videos are unaffected.
type WriteError struct {
	Video string
	Path  string
	Err   error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s for %s: %v", e.Path, e.Video, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
