package ui

import (
	"context"
	"errors"
	"fmt"
	"log"

	"motconv/internal/config"
	"motconv/internal/ui/cwidget"
	"motconv/processing/capture"
	"motconv/processing/notify"
	"motconv/processing/pipeline"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

// ConvertApp is the desktop front end of the converter. It edits the same
// config the CLI reads and runs conversions in the background.
type ConvertApp struct {
	fyneApp fyne.App
	mainWin fyne.Window

	config     *config.Config
	configPath string

	exportEntry *widget.Entry
	runButton   *widget.Button
	cancelRun   context.CancelFunc

	progressBar *widget.ProgressBar
	statusLabel *widget.Label
	eventList   *widget.List
	events      []string
}

func CreateApp(cfg *config.Config, configPath string) *ConvertApp {
	a := app.New()
	w := a.NewWindow("Label Studio to MOT")

	w.Resize(fyne.NewSize(1100, 640))

	return &ConvertApp{
		fyneApp:    a,
		mainWin:    w,
		config:     cfg,
		configPath: configPath,
	}
}

func (a *ConvertApp) Run() {
	settingsLabel := widget.NewLabelWithStyle("Configuration", fyne.TextAlignLeading, fyne.TextStyle{Bold: true})

	a.runButton = widget.NewButtonWithIcon("Convert", theme.MediaPlayIcon(), func() {
		a.StartConversion()
	})

	sidebar := container.NewVBox(
		settingsLabel,
		widget.NewSeparator(),
		a.sourceSettings(),
		widget.NewSeparator(),
		a.outputSettings(),
		widget.NewSeparator(),
		a.processingSettings(),
		widget.NewSeparator(),
		a.runButton,
	)

	a.progressBar = widget.NewProgressBar()
	a.statusLabel = widget.NewLabel("Idle")

	a.eventList = widget.NewList(
		func() int { return len(a.events) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(id widget.ListItemID, o fyne.CanvasObject) {
			o.(*widget.Label).SetText(a.events[id])
		},
	)

	runPanel := container.NewBorder(
		container.NewVBox(a.statusLabel, a.progressBar),
		nil, nil, nil,
		a.eventList,
	)

	split := container.NewHSplit(
		container.NewVScroll(container.NewPadded(sidebar)),
		container.NewPadded(runPanel),
	)
	split.SetOffset(0.35)

	a.mainWin.SetContent(split)

	a.mainWin.SetCloseIntercept(func() {
		if a.cancelRun != nil {
			a.cancelRun()
		}
		if err := a.config.Save(a.configPath); err != nil {
			log.Printf("save config %s: %v", a.configPath, err)
		}
		a.fyneApp.Quit()
	})

	a.mainWin.CenterOnScreen()
	a.mainWin.ShowAndRun()
}

func (a *ConvertApp) sourceSettings() fyne.CanvasObject {
	a.exportEntry = widget.NewEntry()
	a.exportEntry.SetPlaceHolder("empty: download from Label Studio")

	exportBtn := widget.NewButtonWithIcon("", theme.FileIcon(), func() {
		dialog.ShowFileOpen(func(reader fyne.URIReadCloser, err error) {
			if err == nil && reader != nil {
				a.exportEntry.SetText(reader.URI().Path())
				reader.Close()
			}
		}, a.mainWin)
	})

	projectInput := cwidget.NewIntInput(
		"Project",
		"Label Studio project id",
		a.config.LabelStudio.ProjectID,
		1,
		func(i int) {
			a.config.LabelStudio.ProjectID = i
		},
	)

	videosEntry := a.folderEntry(a.config.Videos.Directory, func(s string) {
		a.config.Videos.Directory = s
	})

	return container.NewVBox(
		widget.NewLabel("Export JSON:"),
		container.NewBorder(nil, nil, nil, exportBtn, a.exportEntry),
		projectInput,
		widget.NewLabel("Videos:"),
		videosEntry,
	)
}

func (a *ConvertApp) outputSettings() fyne.CanvasObject {
	outputEntry := a.folderEntry(a.config.MOT.OutputDir, func(s string) {
		a.config.MOT.OutputDir = s
	})

	schemaSelect := widget.NewSelect(config.SchemasList[:], func(s string) {
		a.config.SetSchema(config.RowSchema(s))
	})
	schemaSelect.SetSelected(string(a.config.GetSchema()))

	originSelect := widget.NewSelect(config.OriginsList[:], func(s string) {
		a.config.SetCoordinates(config.CoordinateOrigin(s))
	})
	originSelect.SetSelected(string(a.config.GetCoordinates()))

	detCheck := widget.NewCheck("Write det/det.txt", func(b bool) {
		a.config.SetWriteDetections(b)
	})
	detCheck.SetChecked(a.config.GetWriteDetections())

	return container.NewVBox(
		widget.NewLabel("Output:"),
		outputEntry,
		widget.NewLabel("Row schema:"),
		schemaSelect,
		widget.NewLabel("Pixel origin:"),
		originSelect,
		detCheck,
	)
}

func (a *ConvertApp) processingSettings() fyne.CanvasObject {
	strideInput := cwidget.NewIntInput(
		"Stride",
		"Enter integer",
		a.config.GetStride(),
		1,
		func(i int) {
			a.config.SetStride(i)
		},
	)

	fpsInput := cwidget.NewFloatInput(
		"MOT FPS",
		"0: source fps / stride",
		a.config.GetFPS(),
		func(f float64) {
			a.config.SetFPS(f)
		},
	)

	workersInput := cwidget.NewIntInput(
		"Workers",
		"Enter integer",
		a.config.GetWorkers(),
		1,
		func(i int) {
			a.config.SetWorkers(i)
		},
	)

	widthInput := cwidget.NewIntInput(
		"Width",
		"Enter integer",
		a.config.VideoProcessing.DefaultWidth,
		1,
		func(i int) {
			a.config.VideoProcessing.DefaultWidth = i
		},
	)

	heightInput := cwidget.NewIntInput(
		"Height",
		"Enter integer",
		a.config.VideoProcessing.DefaultHeight,
		1,
		func(i int) {
			a.config.VideoProcessing.DefaultHeight = i
		},
	)

	setResolution := func(original bool) {
		if original {
			widthInput.Disable()
			heightInput.Disable()
		} else {
			widthInput.Enable()
			heightInput.Enable()
		}
	}

	originalCheck := widget.NewCheck("Keep original resolution", func(b bool) {
		a.config.VideoProcessing.UseOriginalResolution = b
		setResolution(b)
	})
	originalCheck.SetChecked(a.config.VideoProcessing.UseOriginalResolution)
	setResolution(a.config.VideoProcessing.UseOriginalResolution)

	verifyCheck := widget.NewCheck("Verify extracted frames", func(b bool) {
		a.config.VideoProcessing.VerifyFrames = b
	})
	verifyCheck.SetChecked(a.config.VideoProcessing.VerifyFrames)

	return container.NewVBox(
		strideInput,
		fpsInput,
		workersInput,
		originalCheck,
		container.NewGridWithColumns(2, widthInput, heightInput),
		verifyCheck,
	)
}

func (a *ConvertApp) folderEntry(value string, onChanged func(string)) fyne.CanvasObject {
	entry := widget.NewEntry()
	entry.SetText(value)
	entry.OnChanged = onChanged

	btn := widget.NewButtonWithIcon("", theme.FolderOpenIcon(), func() {
		dialog.ShowFolderOpen(func(uri fyne.ListableURI, err error) {
			if err == nil && uri != nil {
				entry.SetText(uri.Path())
			}
		}, a.mainWin)
	})

	return container.NewBorder(nil, nil, nil, btn, entry)
}

// StartConversion runs one conversion with a snapshot of the current
// settings. Only one run is active at a time.
func (a *ConvertApp) StartConversion() {
	if a.cancelRun != nil {
		return
	}

	cfg := a.config.Clone()
	if err := cfg.Validate(); err != nil {
		dialog.ShowError(err, a.mainWin)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.cancelRun = cancel
	a.runButton.Disable()

	a.events = nil
	a.eventList.Refresh()
	a.progressBar.SetValue(0)
	a.statusLabel.SetText("Preparing export...")

	go a.convert(ctx, cfg, a.exportEntry.Text)
}

func (a *ConvertApp) convert(ctx context.Context, cfg *config.Config, exportFile string) {
	summary, err := a.runConversion(ctx, cfg, exportFile)

	fyne.Do(func() {
		a.cancelRun = nil
		a.runButton.Enable()

		var noInput *pipeline.NoInputError
		switch {
		case errors.As(err, &noInput):
			a.statusLabel.SetText(noInput.Error())
		case err != nil:
			a.statusLabel.SetText("Conversion aborted")
			dialog.ShowError(err, a.mainWin)
		default:
			a.statusLabel.SetText(fmt.Sprintf("Done: %d written, %d skipped, %d failed",
				summary.Count(pipeline.StatusWritten),
				summary.Count(pipeline.StatusSkipped),
				summary.Count(pipeline.StatusFailed)))
		}
	})
}

func (a *ConvertApp) runConversion(ctx context.Context, cfg *config.Config, exportFile string) (pipeline.Summary, error) {
	exportPath, err := pipeline.ResolveExport(ctx, cfg, exportFile, config.CredentialsFromEnv())
	if err != nil {
		return pipeline.Summary{}, err
	}

	sinks := notify.Sinks{a}
	if url := cfg.Notify.WebsocketURL; url != "" {
		pub := notify.NewPublisher(url)
		pub.Start()
		defer pub.Stop()
		sinks = append(sinks, pub)
	}

	runner := pipeline.NewRunner(pipeline.OptionsFromConfig(cfg), capture.NewFFProbe(), capture.NewFFmpegExtractor(), sinks)

	fyne.Do(func() {
		a.statusLabel.SetText(fmt.Sprintf("Run %s", runner.RunID))
	})

	return runner.Convert(ctx, exportPath, cfg.Videos.Directory, cfg.Videos.Extensions)
}

// Publish shows runner events in the event list and the progress bar.
func (a *ConvertApp) Publish(e notify.Event) {
	line := formatEvent(e)

	fyne.Do(func() {
		a.events = append(a.events, line)
		a.eventList.Refresh()
		a.eventList.ScrollToBottom()

		if e.Total > 0 {
			a.progressBar.SetValue(float64(e.Done) / float64(e.Total))
		}
	})
}

func formatEvent(e notify.Event) string {
	video := e.Video
	if video == "" {
		video = "-"
	}

	line := fmt.Sprintf("%s  %-24s %s", e.Time.Format("15:04:05"), video, e.Stage)
	if e.Total > 0 {
		line += fmt.Sprintf(" (%d/%d)", e.Done, e.Total)
	}
	if e.Error != "" {
		line += ": " + e.Error
	}
	return line
}
