package annotation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path"
	"strings"

	"motconv/internal/models"
)

// ParseFile reads a Label Studio JSON export from disk.
func ParseFile(filename string) (*TrackSet, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open export: %w", err)
	}
	defer f.Close()

	return Parse(f, filename)
}

// Parse decodes an export and groups its tracked rectangles by video and
// track key. Any malformed enabled keyframe fails the whole export.
func Parse(r io.Reader, filename string) (*TrackSet, error) {
	var tasks []json.RawMessage

	dec := json.NewDecoder(r)
	if err := dec.Decode(&tasks); err != nil {
		return nil, &MalformedAnnotationError{File: filename, Index: -1, Reason: err.Error()}
	}

	acc := NewAccumulator()

	for i, raw := range tasks {
		var task models.Task
		if err := json.Unmarshal(raw, &task); err != nil {
			return nil, &MalformedAnnotationError{
				File:   filename,
				TaskID: taskID(peekID(raw), i),
				Index:  -1,
				Reason: err.Error(),
			}
		}

		if err := extractTask(acc, task, i, filename); err != nil {
			return nil, err
		}
	}

	return acc.Finalize(), nil
}

func extractTask(acc *Accumulator, task models.Task, taskIndex int, filename string) error {
	if task.Data.Video == "" {
		return nil
	}

	video := VideoName(task.Data.Video)
	id := taskID(task.ID, taskIndex)

	for ai, ann := range task.Annotations {
		for ri, res := range ann.Result {
			if res.Type != models.ResultTypeVideoRectangle {
				continue
			}

			key := TrackKey(id, ai, ri, res)

			for ki, item := range res.Value.Sequence {
				if item.Enabled != nil && !*item.Enabled {
					continue
				}

				kf, err := toKeyframe(item)
				if err != nil {
					err.File = filename
					err.TaskID = id
					err.TrackKey = key
					err.Index = ki
					return err
				}

				acc.Add(video, key, kf)
			}
		}
	}

	return nil
}

// VideoName derives the sequence name from a task's media reference: the
// file stem, minus the "<prefix>-" the upload system puts in front of the
// original name.
func VideoName(mediaRef string) string {
	base := path.Base(strings.ReplaceAll(mediaRef, "\\", "/"))
	stem := strings.TrimSuffix(base, path.Ext(base))

	if _, name, ok := strings.Cut(stem, "-"); ok {
		return name
	}
	return stem
}

// TrackKey is the result's own id, or a key built from the task id, the
// result's endpoint names and its position inside the task. The position
// keeps two id-less results with the same endpoints apart.
func TrackKey(taskID string, annIndex, resIndex int, res models.Result) string {
	if res.ID != "" {
		return res.ID
	}
	return fmt.Sprintf("%s-%s-%s-%d.%d", taskID, res.FromName, res.ToName, annIndex, resIndex)
}

func toKeyframe(item models.SequenceItem) (models.Keyframe, *MalformedAnnotationError) {
	if item.Frame == nil {
		return models.Keyframe{}, missing("frame")
	}

	frame, err := frameNumber(*item.Frame)
	if err != nil {
		return models.Keyframe{}, &MalformedAnnotationError{Field: "frame", Reason: err.Error()}
	}

	fields := []struct {
		name string
		v    *float64
	}{
		{"x", item.X},
		{"y", item.Y},
		{"width", item.Width},
		{"height", item.Height},
	}
	for _, f := range fields {
		if f.v == nil {
			return models.Keyframe{}, missing(f.name)
		}
	}

	return models.Keyframe{
		SourceFrame: frame,
		X:           *item.X,
		Y:           *item.Y,
		W:           *item.Width,
		H:           *item.Height,
	}, nil
}

func frameNumber(n json.Number) (int, error) {
	if i, err := n.Int64(); err == nil {
		if i < 1 {
			return 0, fmt.Errorf("frame %d is not 1-based", i)
		}
		return int(i), nil
	}

	f, err := n.Float64()
	if err != nil {
		return 0, fmt.Errorf("frame %q is not a number", n.String())
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("frame %v is not an integer", f)
	}
	if f < 1 {
		return 0, fmt.Errorf("frame %v is not 1-based", f)
	}
	return int(f), nil
}

func missing(field string) *MalformedAnnotationError {
	return &MalformedAnnotationError{Field: field, Reason: "missing"}
}

// taskID is the task's own id, or "#<position>" in the export when it has
// none, so fallback track keys of id-less tasks stay distinct.
func taskID(raw json.RawMessage, index int) string {
	if id := rawID(raw); id != "" {
		return id
	}
	return fmt.Sprintf("#%d", index)
}

func rawID(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// peekID recovers the id of a task that failed to decode as a whole.
func peekID(raw json.RawMessage) json.RawMessage {
	var head struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil
	}
	return head.ID
}
