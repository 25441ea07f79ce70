package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"motconv/internal/models"
	"motconv/processing/annotation"
	"motconv/processing/capture"
	"motconv/processing/mot"
	"motconv/processing/notify"
)

type Status string

const (
	StatusWritten Status = "written"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// VideoResult is the outcome of one video.
type VideoResult struct {
	Video     string
	Status    Status
	Tracks    int
	Records   int
	SeqLength int
	Err       error
}

type Summary struct {
	RunID   string
	Results []VideoResult
}

func (s Summary) Count(status Status) int {
	n := 0
	for _, r := range s.Results {
		if r.Status == status {
			n++
		}
	}
	return n
}

// Runner converts the annotations of a set of videos into MOT sequences.
// Videos are independent: a probe, extraction or write failure is recorded
// for that video and the others continue.
type Runner struct {
	Options   Options
	Prober    capture.Prober
	Extractor capture.Extractor
	Sink      notify.Sink
	RunID     string

	writer *mot.SequenceWriter
	mu     sync.Mutex
}

func NewRunner(opts Options, prober capture.Prober, extractor capture.Extractor, sink notify.Sink) *Runner {
	if sink == nil {
		sink = notify.Discard{}
	}
	return &Runner{
		Options:   opts,
		Prober:    prober,
		Extractor: extractor,
		Sink:      sink,
		RunID:     uuid.NewString(),
		writer:    mot.NewSequenceWriter(opts.OutputDir, opts.Layout),
	}
}

// Convert parses the export, then runs every video found in videoDir. A
// malformed export aborts before anything is written.
func (r *Runner) Convert(ctx context.Context, exportFile, videoDir string, exts []string) (Summary, error) {
	tracks, err := annotation.ParseFile(exportFile)
	if err != nil {
		return Summary{RunID: r.RunID}, err
	}
	log.Printf("parsed %s: %d tracks in %d videos", exportFile, tracks.TrackCount(), len(tracks.Videos()))

	videos, err := capture.ListVideos(videoDir, exts)
	if err != nil {
		return Summary{RunID: r.RunID}, fmt.Errorf("list videos: %w", err)
	}

	return r.Run(ctx, videos, tracks)
}

func (r *Runner) Run(ctx context.Context, videos []capture.Video, tracks *annotation.TrackSet) (Summary, error) {
	summary := Summary{RunID: r.RunID}

	if err := r.Options.Layout.Validate(); err != nil {
		return summary, err
	}
	if r.Options.Stride < 1 {
		return summary, fmt.Errorf("invalid stride %d", r.Options.Stride)
	}

	if len(videos) == 0 {
		return summary, &NoInputError{Reason: "no videos found"}
	}
	if tracks.TrackCount() == 0 {
		return summary, &NoInputError{Reason: "export contains no tracked rectangles"}
	}

	matched := 0
	for _, v := range videos {
		if _, ok := tracks.Lookup(v.Name); ok {
			matched++
		}
	}
	if matched == 0 {
		return summary, &NoInputError{Reason: "no video has annotation tracks"}
	}

	summary.Results = make([]VideoResult, len(videos))
	total := len(videos)

	progress := r.startProgress(total)
	defer progress.finish()

	workers := r.Options.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > total {
		workers = total
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	var mu sync.Mutex
	done := 0

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				v := videos[i]
				res := r.runVideo(ctx, v, tracks)
				summary.Results[i] = res

				mu.Lock()
				done++
				r.publish(v.Name, stageOf(res.Status), res.Err, done, total)
				mu.Unlock()

				progress.increment()
			}
		}()
	}

	for i := range videos {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	r.publish("", notify.StageFinished, nil, total, total)

	return summary, nil
}

func (r *Runner) runVideo(ctx context.Context, v capture.Video, tracks *annotation.TrackSet) VideoResult {
	vt, ok := tracks.Lookup(v.Name)
	if !ok {
		log.Printf("%s: no annotations found, skipping", v.Name)
		return VideoResult{Video: v.Name, Status: StatusSkipped}
	}

	log.Printf("processing %s (%d tracks)", v.Name, len(vt.Tracks))

	seq, err := r.processVideo(ctx, v, vt)
	if err != nil {
		log.Printf("%s: %v", v.Name, err)
		return VideoResult{Video: v.Name, Status: StatusFailed, Tracks: len(vt.Tracks), Err: err}
	}

	log.Printf("completed sequence %s -> %s", v.Name, r.writer.SequenceDir(v.Name))
	return VideoResult{
		Video:     v.Name,
		Status:    StatusWritten,
		Tracks:    len(vt.Tracks),
		Records:   len(seq.Records),
		SeqLength: seq.Info.Length,
	}
}

func (r *Runner) processVideo(ctx context.Context, v capture.Video, vt models.VideoTracks) (mot.Sequence, error) {
	r.publish(v.Name, notify.StageStarted, nil, 0, 0)

	meta, err := r.Prober.Probe(ctx, v.Path)
	if err != nil {
		var perr *capture.MediaProbeError
		if !errors.As(err, &perr) {
			err = &capture.MediaProbeError{Video: v.Path, Err: err}
		}
		return mot.Sequence{}, err
	}
	r.publish(v.Name, notify.StageProbed, nil, 0, 0)

	geo := r.geometry(meta)
	seq := mot.BuildSequence(v.Name, geo, vt.Tracks)

	if r.Options.Extract {
		req := capture.ExtractRequest{
			Input:     v.Path,
			OutputDir: r.writer.ImageDir(v.Name),
			Stride:    r.Options.Stride,
			Ext:       r.Options.Layout.ImageExt,
		}
		if !r.Options.UseOriginalResolution {
			req.Width, req.Height = geo.Width, geo.Height
		}

		if err := r.Extractor.Extract(ctx, req); err != nil {
			return mot.Sequence{}, err
		}

		if r.Options.VerifyFrames {
			if err := capture.VerifyFrames(req.OutputDir, req.Ext, seq.Info.Length, geo.Width, geo.Height); err != nil {
				return mot.Sequence{}, err
			}
		}
		r.publish(v.Name, notify.StageExtracted, nil, 0, 0)
	}

	if err := r.writer.Write(seq); err != nil {
		return mot.Sequence{}, err
	}

	return seq, nil
}

// geometry applies the resolution and frame rate policy to a probe result.
func (r *Runner) geometry(meta models.VideoMetadata) mot.Geometry {
	geo := mot.Geometry{
		Stride:            r.Options.Stride,
		Width:             meta.Width,
		Height:            meta.Height,
		FrameRate:         r.Options.FrameRate,
		TotalSourceFrames: meta.TotalSourceFrames,
	}

	if !r.Options.UseOriginalResolution {
		geo.Width, geo.Height = r.Options.Width, r.Options.Height
	}
	if geo.FrameRate <= 0 {
		geo.FrameRate = meta.FrameRate / float64(r.Options.Stride)
	}

	return geo
}

// publish serializes calls into the sink, so sinks need not be safe for
// concurrent use.
func (r *Runner) publish(video string, stage notify.Stage, err error, done, total int) {
	e := notify.Event{
		RunID: r.RunID,
		Video: video,
		Stage: stage,
		Done:  done,
		Total: total,
		Time:  time.Now(),
	}
	if err != nil {
		e.Error = err.Error()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.Sink.Publish(e)
}

func stageOf(s Status) notify.Stage {
	switch s {
	case StatusWritten:
		return notify.StageWritten
	case StatusSkipped:
		return notify.StageSkipped
	default:
		return notify.StageFailed
	}
}
