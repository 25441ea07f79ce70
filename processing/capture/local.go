package capture

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"motconv/internal/models"
)

// MediaProbeError means the decoder could not read a video. Only that video
// is skipped.
type MediaProbeError struct {
	Video string
	Err   error
}

func (e *MediaProbeError) Error() string {
	return fmt.Sprintf("probe %s: %v", e.Video, e.Err)
}

func (e *MediaProbeError) Unwrap() error {
	return e.Err
}

type Prober interface {
	Probe(ctx context.Context, path string) (models.VideoMetadata, error)
}

// FFProbe reads stream metadata with the ffprobe binary.
type FFProbe struct {
	Binary string
}

func NewFFProbe() *FFProbe {
	return &FFProbe{Binary: "ffprobe"}
}

func (p *FFProbe) Probe(ctx context.Context, path string) (models.VideoMetadata, error) {
	cmd := exec.CommandContext(ctx, p.Binary,
		"-v", "error",
		"-print_format", "json",
		"-show_streams",
		"-show_format",
		path,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		return models.VideoMetadata{}, &MediaProbeError{
			Video: path,
			Err:   fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String())),
		}
	}

	meta, err := decodeProbe(output)
	if err != nil {
		return models.VideoMetadata{}, &MediaProbeError{Video: path, Err: err}
	}

	return meta, nil
}

type probeData struct {
	Streams []struct {
		CodecType  string `json:"codec_type"`
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		RFrameRate string `json:"r_frame_rate"`
		NbFrames   string `json:"nb_frames"`
		Duration   string `json:"duration"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// decodeProbe picks the first video stream. The source frame count is the
// stream's nb_frames when the container reports it, else duration * fps
// truncated.
func decodeProbe(output []byte) (models.VideoMetadata, error) {
	var data probeData
	if err := json.Unmarshal(output, &data); err != nil {
		return models.VideoMetadata{}, fmt.Errorf("decode ffprobe output: %w", err)
	}

	for _, s := range data.Streams {
		if s.CodecType != "video" {
			continue
		}

		if s.Width <= 0 || s.Height <= 0 {
			return models.VideoMetadata{}, fmt.Errorf("invalid video size %dx%d", s.Width, s.Height)
		}

		fps, err := parseRate(s.RFrameRate)
		if err != nil {
			return models.VideoMetadata{}, err
		}

		durationText := data.Format.Duration
		if durationText == "" {
			durationText = s.Duration
		}
		duration, err := strconv.ParseFloat(durationText, 64)
		if err != nil {
			return models.VideoMetadata{}, fmt.Errorf("invalid duration %q", durationText)
		}

		total := int(duration * fps)
		if n, err := strconv.Atoi(s.NbFrames); err == nil && n > 0 {
			total = n
		}

		return models.VideoMetadata{
			Width:             s.Width,
			Height:            s.Height,
			FrameRate:         fps,
			DurationSeconds:   duration,
			TotalSourceFrames: total,
		}, nil
	}

	return models.VideoMetadata{}, fmt.Errorf("no video streams found")
}

func parseRate(rate string) (float64, error) {
	num, den, ok := strings.Cut(rate, "/")
	if !ok {
		den = "1"
	}

	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid frame rate %q", rate)
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0, fmt.Errorf("invalid frame rate %q", rate)
	}
	if n <= 0 {
		return 0, fmt.Errorf("invalid frame rate %q", rate)
	}

	return n / d, nil
}
