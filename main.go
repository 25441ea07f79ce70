package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"

	"motconv/internal/config"
	"motconv/internal/ui"
	"motconv/processing/capture"
	"motconv/processing/notify"
	"motconv/processing/pipeline"
)

var (
	configPath string
	exportFile string
	stride     int
	schema     string
	coords     string
	workers    int
	noExtract  bool
	noDet      bool
	quiet      bool
	gui        bool
)

func init() {
	flag.StringVar(&configPath, "config", config.DefaultConfigPath, "path to the YAML config file")
	flag.StringVar(&exportFile, "export", "", "use this Label Studio JSON export instead of downloading one")
	flag.IntVar(&stride, "stride", 0, "frame stride (overrides video_processing.frame_stride)")
	flag.StringVar(&schema, "schema", "", "row schema {mot10, mot9} (overrides mot.schema)")
	flag.StringVar(&coords, "coords", "", "pixel origin {zero, one} (overrides mot.coordinates)")
	flag.IntVar(&workers, "workers", 0, "videos converted in parallel (overrides video_processing.workers)")
	flag.BoolVar(&noExtract, "no-extract", false, "do not extract frames; img1/ is assumed to be in place")
	flag.BoolVar(&noDet, "no-det", false, "do not write det/det.txt")
	flag.BoolVar(&quiet, "quiet", false, "disable the progress bar")
	flag.BoolVar(&gui, "gui", false, "open the desktop front end")
}

func main() {
	flag.Parse()

	cfg, err := config.LoadConfigFile(configPath)
	if err != nil {
		log.Fatal(err)
	}
	applyFlags(cfg)

	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	if gui {
		ui.CreateApp(cfg, configPath).Run()
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, cfg)
	stop()

	os.Exit(code)
}

func applyFlags(cfg *config.Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "stride":
			cfg.SetStride(stride)
		case "schema":
			cfg.SetSchema(config.RowSchema(schema))
		case "coords":
			cfg.SetCoordinates(config.CoordinateOrigin(coords))
		case "workers":
			cfg.SetWorkers(workers)
		case "no-det":
			cfg.SetWriteDetections(!noDet)
		}
	})
}

func run(ctx context.Context, cfg *config.Config) int {
	exportPath, err := pipeline.ResolveExport(ctx, cfg, exportFile, config.CredentialsFromEnv())
	if err != nil {
		log.Println(err)
		return 1
	}

	opts := pipeline.OptionsFromConfig(cfg)
	opts.Extract = !noExtract
	opts.ShowProgress = !quiet

	var sink notify.Sink = notify.Discard{}
	if url := cfg.Notify.WebsocketURL; url != "" {
		pub := notify.NewPublisher(url)
		pub.Start()
		defer pub.Stop()
		sink = pub
	}

	runner := pipeline.NewRunner(opts, capture.NewFFProbe(), capture.NewFFmpegExtractor(), sink)
	log.Printf("run %s: stride=%d schema=%s output=%s", runner.RunID, opts.Stride, cfg.MOT.Schema, opts.OutputDir)

	summary, err := runner.Convert(ctx, exportPath, cfg.Videos.Directory, cfg.Videos.Extensions)

	var noInput *pipeline.NoInputError
	switch {
	case errors.As(err, &noInput):
		color.Yellow("%s", noInput.Error())
		return 0
	case err != nil:
		color.Red("conversion aborted: %v", err)
		return 1
	}

	printSummary(summary)

	if summary.Count(pipeline.StatusFailed) > 0 {
		return 1
	}
	return 0
}

func printSummary(s pipeline.Summary) {
	fmt.Println()
	for _, r := range s.Results {
		switch r.Status {
		case pipeline.StatusWritten:
			color.Green("  %-30s written  %d tracks, %d rows, %d frames", r.Video, r.Tracks, r.Records, r.SeqLength)
		case pipeline.StatusSkipped:
			color.Yellow("  %-30s skipped  no annotations", r.Video)
		case pipeline.StatusFailed:
			color.Red("  %-30s failed   %v", r.Video, r.Err)
		}
	}

	fmt.Printf("\nrun %s: %d written, %d skipped, %d failed\n",
		s.RunID,
		s.Count(pipeline.StatusWritten),
		s.Count(pipeline.StatusSkipped),
		s.Count(pipeline.StatusFailed))
}
