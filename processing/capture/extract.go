package capture

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ExtractRequest describes one frame extraction. Width and Height of zero
// keep the source resolution.
type ExtractRequest struct {
	Input     string
	OutputDir string
	Stride    int
	Width     int
	Height    int
	Ext       string
}

type Extractor interface {
	Extract(ctx context.Context, req ExtractRequest) error
}

// FFmpegExtractor keeps every Stride-th decoded frame, starting with frame
// 0, and numbers the images from 1. This is the rule mot.DestinationFrame
// inverts.
type FFmpegExtractor struct {
	Binary string
}

func NewFFmpegExtractor() *FFmpegExtractor {
	return &FFmpegExtractor{Binary: "ffmpeg"}
}

func (e *FFmpegExtractor) Extract(ctx context.Context, req ExtractRequest) error {
	if req.Stride < 1 {
		return fmt.Errorf("invalid stride %d", req.Stride)
	}

	if err := os.MkdirAll(req.OutputDir, 0755); err != nil {
		return err
	}
	if err := clearFrames(req.OutputDir, req.Ext); err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, e.Binary, ExtractArgs(req)...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg extract %s: %w. Details: %s", req.Input, err, strings.TrimSpace(stderr.String()))
	}

	return nil
}

// ExtractArgs builds the ffmpeg argument list. setpts renumbers the kept
// frames so the image sequence does not drift by one after the first frame.
func ExtractArgs(req ExtractRequest) []string {
	filter := fmt.Sprintf(`select=not(mod(n\,%d)),setpts=N/FRAME_RATE/TB`, req.Stride)
	if req.Width > 0 && req.Height > 0 {
		filter += fmt.Sprintf(",scale=%d:%d", req.Width, req.Height)
	}

	return []string{
		"-v", "error",
		"-y",
		"-i", req.Input,
		"-vf", filter,
		"-fps_mode", "vfr",
		"-qscale:v", "2",
		"-start_number", "1",
		filepath.Join(req.OutputDir, "%06d"+req.Ext),
	}
}

// clearFrames removes images of a previous extraction so that a shorter
// new sequence is not padded with stale frames.
func clearFrames(dir, ext string) error {
	frames, err := listFrames(dir, ext)
	if err != nil {
		return err
	}
	for _, f := range frames {
		if err := os.Remove(f); err != nil {
			return err
		}
	}
	return nil
}
