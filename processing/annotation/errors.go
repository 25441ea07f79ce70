package annotation

import (
	"fmt"
	"strings"
)

// MalformedAnnotationError is fatal for the whole export: a partially parsed
// export would misalign an unknown subset of tracks.
type MalformedAnnotationError struct {
	File     string
	TaskID   string
	TrackKey string
	// Index is the position of the keyframe within the result's sequence,
	// -1 when the problem is not tied to one keyframe.
	Index  int
	Field  string
	Reason string
}

func (e *MalformedAnnotationError) Error() string {
	var b strings.Builder
	b.WriteString("malformed annotation")
	if e.File != "" {
		fmt.Fprintf(&b, " in %s", e.File)
	}
	if e.TaskID != "" {
		fmt.Fprintf(&b, ": task %s", e.TaskID)
	}
	if e.TrackKey != "" {
		fmt.Fprintf(&b, ", track %s", e.TrackKey)
	}
	if e.Index >= 0 {
		fmt.Fprintf(&b, ", keyframe #%d", e.Index)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, ", field %q", e.Field)
	}
	fmt.Fprintf(&b, ": %s", e.Reason)
	return b.String()
}
