package pipeline

import (
	"motconv/internal/config"
	"motconv/processing/mot"
)

// Options is the explicit per-run configuration handed to the Runner.
type Options struct {
	OutputDir string
	Stride    int
	// FrameRate written to seqinfo.ini; 0 means probed fps / Stride.
	FrameRate float64

	UseOriginalResolution bool
	Width                 int
	Height                int

	Layout       mot.Layout
	Extract      bool
	VerifyFrames bool
	Workers      int
	ShowProgress bool
}

func OptionsFromConfig(cfg *config.Config) Options {
	c := cfg.Clone()

	columns := mot.Columns10
	if c.MOT.Schema == config.SchemaMOT9 {
		columns = mot.Columns9
	}

	return Options{
		OutputDir:             c.MOT.OutputDir,
		Stride:                c.VideoProcessing.FrameStride,
		FrameRate:             c.VideoProcessing.MOTFPS,
		UseOriginalResolution: c.VideoProcessing.UseOriginalResolution,
		Width:                 c.VideoProcessing.DefaultWidth,
		Height:                c.VideoProcessing.DefaultHeight,
		Layout: mot.Layout{
			Columns:         columns,
			OneBasedOrigin:  c.MOT.Coordinates == config.OriginOne,
			WriteDetections: c.MOT.WriteDetections,
			ImageExt:        c.MOT.ImageExt,
		},
		Extract:      true,
		VerifyFrames: c.VideoProcessing.VerifyFrames,
		Workers:      c.VideoProcessing.Workers,
	}
}
