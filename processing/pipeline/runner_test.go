package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"motconv/internal/config"
	"motconv/internal/models"
	"motconv/processing/annotation"
	"motconv/processing/capture"
	"motconv/processing/mot"
	"motconv/processing/notify"
)

type fakeProber struct {
	meta map[string]models.VideoMetadata
}

func (p *fakeProber) Probe(_ context.Context, path string) (models.VideoMetadata, error) {
	meta, ok := p.meta[filepath.Base(path)]
	if !ok {
		return models.VideoMetadata{}, errors.New("moov atom not found")
	}
	return meta, nil
}

// fakeExtractor writes the number of images ffmpeg would produce for the
// probed frame count, or extra images when short is negative.
type fakeExtractor struct {
	mu       sync.Mutex
	total    map[string]int
	short    int
	requests []capture.ExtractRequest
}

func (e *fakeExtractor) Extract(_ context.Context, req capture.ExtractRequest) error {
	e.mu.Lock()
	e.requests = append(e.requests, req)
	e.mu.Unlock()

	if err := os.MkdirAll(req.OutputDir, 0755); err != nil {
		return err
	}

	w, h := req.Width, req.Height
	if w == 0 {
		w, h = 16, 8
	}

	n := mot.SequenceLength(e.total[filepath.Base(req.Input)], req.Stride) - e.short
	for i := 1; i <= n; i++ {
		f, err := os.Create(filepath.Join(req.OutputDir, fmt.Sprintf("%06d%s", i, req.Ext)))
		if err != nil {
			return err
		}
		err = png.Encode(f, image.NewGray(image.Rect(0, 0, w, h)))
		f.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

type recorder struct {
	events []notify.Event
}

func (r *recorder) Publish(e notify.Event) {
	r.events = append(r.events, e)
}

func testOptions(outDir string) Options {
	return Options{
		OutputDir:             outDir,
		Stride:                12,
		UseOriginalResolution: true,
		Layout: mot.Layout{
			Columns:         mot.Columns10,
			WriteDetections: true,
			ImageExt:        ".png",
		},
		Extract:      true,
		VerifyFrames: true,
		Workers:      1,
	}
}

func trackSet(videos map[string][]int) *annotation.TrackSet {
	acc := annotation.NewAccumulator()
	for video, frames := range videos {
		for _, f := range frames {
			acc.Add(video, "track-"+video, models.Keyframe{SourceFrame: f, X: 50, Y: 50, W: 25, H: 25})
		}
	}
	return acc.Finalize()
}

func videoList(dir string, names ...string) []capture.Video {
	var out []capture.Video
	for _, n := range names {
		out = append(out, capture.Video{Name: n, Path: filepath.Join(dir, n+".mp4")})
	}
	return out
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

func TestRunEndToEndStride12(t *testing.T) {
	out := t.TempDir()
	prober := &fakeProber{meta: map[string]models.VideoMetadata{
		"clip.mp4": {Width: 16, Height: 8, FrameRate: 24, DurationSeconds: 37.0 / 24, TotalSourceFrames: 37},
	}}
	extractor := &fakeExtractor{total: map[string]int{"clip.mp4": 37}}
	rec := &recorder{}

	r := NewRunner(testOptions(out), prober, extractor, rec)
	summary, err := r.Run(context.Background(), videoList("videos", "clip"), trackSet(map[string][]int{"clip": {1, 13, 25}}))
	require.NoError(t, err)

	require.Len(t, summary.Results, 1)
	res := summary.Results[0]
	require.NoError(t, res.Err)
	assert.Equal(t, StatusWritten, res.Status)
	assert.Equal(t, 4, res.SeqLength)
	assert.Equal(t, 3, res.Records)

	assert.Equal(t, []string{
		"1,1,8.0,4.0,4.0,2.0,1,-1,-1,-1",
		"2,1,8.0,4.0,4.0,2.0,1,-1,-1,-1",
		"3,1,8.0,4.0,4.0,2.0,1,-1,-1,-1",
	}, readLines(t, filepath.Join(out, "clip", "gt", "gt.txt")))

	seqinfo := readLines(t, filepath.Join(out, "clip", "seqinfo.ini"))
	assert.Contains(t, seqinfo, "seqLength=4")
	assert.Contains(t, seqinfo, "frameRate=2")
	assert.Contains(t, seqinfo, "imExt=.png")

	require.Len(t, extractor.requests, 1)
	assert.Equal(t, 12, extractor.requests[0].Stride)
	assert.Equal(t, filepath.Join(out, "clip", "img1"), extractor.requests[0].OutputDir)
	assert.Zero(t, extractor.requests[0].Width)

	var stages []notify.Stage
	for _, e := range rec.events {
		assert.Equal(t, r.RunID, e.RunID)
		stages = append(stages, e.Stage)
	}
	assert.Equal(t, []notify.Stage{
		notify.StageStarted, notify.StageProbed, notify.StageExtracted,
		notify.StageWritten, notify.StageFinished,
	}, stages)
}

func TestRunIsolatesProbeFailures(t *testing.T) {
	out := t.TempDir()
	prober := &fakeProber{meta: map[string]models.VideoMetadata{
		"good.mp4": {Width: 16, Height: 8, FrameRate: 24, TotalSourceFrames: 24},
	}}
	extractor := &fakeExtractor{total: map[string]int{"good.mp4": 24}}

	r := NewRunner(testOptions(out), prober, extractor, nil)
	summary, err := r.Run(context.Background(),
		videoList("videos", "bad", "good", "unlabeled"),
		trackSet(map[string][]int{"bad": {1}, "good": {1, 13}}))
	require.NoError(t, err)

	require.Len(t, summary.Results, 3)
	assert.Equal(t, StatusFailed, summary.Results[0].Status)
	var perr *capture.MediaProbeError
	assert.ErrorAs(t, summary.Results[0].Err, &perr)

	assert.Equal(t, StatusWritten, summary.Results[1].Status)
	assert.Equal(t, StatusSkipped, summary.Results[2].Status)

	assert.Equal(t, 1, summary.Count(StatusWritten))
	assert.Equal(t, 1, summary.Count(StatusFailed))
	assert.Equal(t, 1, summary.Count(StatusSkipped))

	_, statErr := os.Stat(filepath.Join(out, "bad"))
	assert.True(t, os.IsNotExist(statErr))
	assert.FileExists(t, filepath.Join(out, "good", "gt", "gt.txt"))
}

func TestRunFrameCountMismatchWritesNoAnnotations(t *testing.T) {
	out := t.TempDir()
	prober := &fakeProber{meta: map[string]models.VideoMetadata{
		"clip.mp4": {Width: 16, Height: 8, FrameRate: 24, TotalSourceFrames: 48},
	}}
	extractor := &fakeExtractor{total: map[string]int{"clip.mp4": 48}, short: 1}

	r := NewRunner(testOptions(out), prober, extractor, nil)
	summary, err := r.Run(context.Background(), videoList("videos", "clip"), trackSet(map[string][]int{"clip": {1}}))
	require.NoError(t, err)

	var cerr *capture.FrameCountError
	require.ErrorAs(t, summary.Results[0].Err, &cerr)
	assert.Equal(t, 4, cerr.Want)
	assert.Equal(t, 3, cerr.Got)

	_, statErr := os.Stat(filepath.Join(out, "clip", "gt", "gt.txt"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunDefaultResolution(t *testing.T) {
	out := t.TempDir()
	opts := testOptions(out)
	opts.UseOriginalResolution = false
	opts.Width, opts.Height = 200, 100
	opts.FrameRate = 5

	prober := &fakeProber{meta: map[string]models.VideoMetadata{
		"clip.mp4": {Width: 1920, Height: 1080, FrameRate: 30, TotalSourceFrames: 12},
	}}
	extractor := &fakeExtractor{total: map[string]int{"clip.mp4": 12}}

	r := NewRunner(opts, prober, extractor, nil)
	summary, err := r.Run(context.Background(), videoList("videos", "clip"), trackSet(map[string][]int{"clip": {1}}))
	require.NoError(t, err)
	require.NoError(t, summary.Results[0].Err)

	require.Len(t, extractor.requests, 1)
	assert.Equal(t, 200, extractor.requests[0].Width)
	assert.Equal(t, 100, extractor.requests[0].Height)

	assert.Equal(t, []string{"1,1,100.0,50.0,50.0,25.0,1,-1,-1,-1"},
		readLines(t, filepath.Join(out, "clip", "gt", "gt.txt")))

	seqinfo := readLines(t, filepath.Join(out, "clip", "seqinfo.ini"))
	assert.Contains(t, seqinfo, "frameRate=5")
	assert.Contains(t, seqinfo, "imWidth=200")
	assert.Contains(t, seqinfo, "imHeight=100")
}

func TestRunWithoutExtraction(t *testing.T) {
	out := t.TempDir()
	opts := testOptions(out)
	opts.Extract = false

	prober := &fakeProber{meta: map[string]models.VideoMetadata{
		"clip.mp4": {Width: 16, Height: 8, FrameRate: 24, TotalSourceFrames: 24},
	}}
	extractor := &fakeExtractor{}

	r := NewRunner(opts, prober, extractor, nil)
	summary, err := r.Run(context.Background(), videoList("videos", "clip"), trackSet(map[string][]int{"clip": {1}}))
	require.NoError(t, err)
	assert.Equal(t, StatusWritten, summary.Results[0].Status)
	assert.Empty(t, extractor.requests)
}

func TestRunParallelWorkers(t *testing.T) {
	out := t.TempDir()
	opts := testOptions(out)
	opts.Workers = 3

	names := []string{"a", "b", "c", "d", "e"}
	meta := map[string]models.VideoMetadata{}
	total := map[string]int{}
	tracks := map[string][]int{}
	for _, n := range names {
		meta[n+".mp4"] = models.VideoMetadata{Width: 16, Height: 8, FrameRate: 24, TotalSourceFrames: 60}
		total[n+".mp4"] = 60
		tracks[n] = []int{1, 30, 60}
	}

	rec := &recorder{}
	r := NewRunner(opts, &fakeProber{meta: meta}, &fakeExtractor{total: total}, rec)
	summary, err := r.Run(context.Background(), videoList("videos", names...), trackSet(tracks))
	require.NoError(t, err)

	require.Len(t, summary.Results, len(names))
	for i, res := range summary.Results {
		assert.Equal(t, names[i], res.Video)
		assert.Equal(t, StatusWritten, res.Status)
		assert.Equal(t, 5, res.SeqLength)
		assert.FileExists(t, filepath.Join(out, names[i], "gt", "gt.txt"))
	}

	last := rec.events[len(rec.events)-1]
	assert.Equal(t, notify.StageFinished, last.Stage)
	assert.Equal(t, len(names), last.Done)
}

func TestRunNoInput(t *testing.T) {
	r := NewRunner(testOptions(t.TempDir()), &fakeProber{}, &fakeExtractor{}, nil)

	tests := []struct {
		name   string
		videos []capture.Video
		tracks *annotation.TrackSet
	}{
		{"no videos", nil, trackSet(map[string][]int{"a": {1}})},
		{"no tracks", videoList("v", "a"), trackSet(nil)},
		{"no match", videoList("v", "a"), trackSet(map[string][]int{"b": {1}})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Run(context.Background(), tt.videos, tt.tracks)
			var nerr *NoInputError
			assert.ErrorAs(t, err, &nerr)
		})
	}
}

func TestConvertMalformedExportWritesNothing(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "mot")
	videos := filepath.Join(dir, "videos")
	require.NoError(t, os.MkdirAll(videos, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(videos, "clip.mp4"), nil, 0644))

	exportFile := filepath.Join(dir, "export.json")
	require.NoError(t, os.WriteFile(exportFile, []byte(`[{"id": 1, "data": {"video": "/u/x-clip.mp4"},
	  "annotations": [{"result": [{"id": "t", "type": "videorectangle", "value": {"sequence": [
	    {"frame": 1, "x": 1, "y": 1, "height": 1}]}}]}]}]`), 0644))

	prober := &fakeProber{meta: map[string]models.VideoMetadata{"clip.mp4": {Width: 16, Height: 8, FrameRate: 24, TotalSourceFrames: 1}}}
	r := NewRunner(testOptions(out), prober, &fakeExtractor{total: map[string]int{"clip.mp4": 1}}, nil)

	_, err := r.Convert(context.Background(), exportFile, videos, []string{".mp4"})

	var merr *annotation.MalformedAnnotationError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, "width", merr.Field)

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
}

func TestConvert(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "mot")
	videos := filepath.Join(dir, "videos")
	require.NoError(t, os.MkdirAll(videos, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(videos, "clip.mp4"), nil, 0644))

	exportFile := filepath.Join(dir, "export.json")
	require.NoError(t, os.WriteFile(exportFile, []byte(`[{"id": 1, "data": {"video": "/u/x-clip.mp4"},
	  "annotations": [{"result": [{"id": "t", "type": "videorectangle", "value": {"sequence": [
	    {"frame": 1, "x": 0, "y": 0, "width": 50, "height": 50},
	    {"frame": 2, "x": 10, "y": 10, "width": 50, "height": 50, "enabled": false},
	    {"frame": 3, "x": 25, "y": 25, "width": 50, "height": 50}]}}]}]}]`), 0644))

	opts := testOptions(out)
	opts.Stride = 1
	prober := &fakeProber{meta: map[string]models.VideoMetadata{"clip.mp4": {Width: 16, Height: 8, FrameRate: 24, TotalSourceFrames: 3}}}
	r := NewRunner(opts, prober, &fakeExtractor{total: map[string]int{"clip.mp4": 3}}, nil)

	summary, err := r.Convert(context.Background(), exportFile, videos, []string{".mp4"})
	require.NoError(t, err)
	require.NoError(t, summary.Results[0].Err)

	assert.Equal(t, []string{
		"1,1,0.0,0.0,8.0,4.0,1,-1,-1,-1",
		"3,1,4.0,2.0,8.0,4.0,1,-1,-1,-1",
	}, readLines(t, filepath.Join(out, "clip", "gt", "gt.txt")))
	assert.Equal(t, []string{
		"1,-1,0.0,0.0,8.0,4.0,1.0,-1,-1,-1",
		"3,-1,4.0,2.0,8.0,4.0,1.0,-1,-1,-1",
	}, readLines(t, filepath.Join(out, "clip", "det", "det.txt")))
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.MOT.Schema = config.SchemaMOT9
	cfg.MOT.Coordinates = config.OriginOne
	cfg.VideoProcessing.FrameStride = 24

	opts := OptionsFromConfig(cfg)
	assert.Equal(t, mot.Columns9, opts.Layout.Columns)
	assert.True(t, opts.Layout.OneBasedOrigin)
	assert.Equal(t, 24, opts.Stride)
	assert.Equal(t, "mot", opts.OutputDir)
	assert.True(t, opts.Extract)
}

func TestResolveExport(t *testing.T) {
	cfg := config.NewDefaultConfig()

	path, err := ResolveExport(context.Background(), cfg, "local.json", config.Credentials{})
	require.NoError(t, err)
	assert.Equal(t, "local.json", path)

	_, err = ResolveExport(context.Background(), cfg, "", config.Credentials{})
	var cerr *config.ConfigurationError
	assert.ErrorAs(t, err, &cerr)
}
