package mot

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"motconv/internal/models"
)

// SequenceWriter emits gt/gt.txt, det/det.txt and seqinfo.ini under
// OutputDir/<sequence name>.
type SequenceWriter struct {
	OutputDir string
	Layout    Layout
}

func NewSequenceWriter(outputDir string, layout Layout) *SequenceWriter {
	return &SequenceWriter{OutputDir: outputDir, Layout: layout}
}

// SequenceDir is where the files of the named sequence are written.
func (w *SequenceWriter) SequenceDir(name string) string {
	return filepath.Join(w.OutputDir, name)
}

// ImageDir is where the extracted frames of the named sequence belong.
func (w *SequenceWriter) ImageDir(name string) string {
	return filepath.Join(w.SequenceDir(name), ImageDir)
}

// Write stages every file next to its destination and renames them only
// once all were written. gt.txt is removed first and renamed last, so a
// gt.txt on disk always belongs to a complete sequence. A det.txt left by an
// earlier run is removed when detections are not written.
func (w *SequenceWriter) Write(seq Sequence) error {
	name := seq.Info.Name
	seqDir := w.SequenceDir(name)

	gtPath := filepath.Join(seqDir, gtDir, gtFile)
	detPath := filepath.Join(seqDir, detDir, detFile)

	files := []outputFile{{
		path: filepath.Join(seqDir, seqFile),
		content: func(out io.Writer) error {
			return w.writeSeqInfo(out, seq.Info)
		},
	}}
	if w.Layout.WriteDetections {
		files = append(files, outputFile{
			path: detPath,
			content: func(out io.Writer) error {
				return writeRows(out, seq.Records, w.Layout.DetRow)
			},
		})
	}
	files = append(files, outputFile{
		path: gtPath,
		content: func(out io.Writer) error {
			return writeRows(out, seq.Records, w.Layout.GTRow)
		},
	})

	var staged []stagedFile
	cleanup := func() {
		for _, s := range staged {
			os.Remove(s.tmp)
		}
	}

	for _, f := range files {
		tmp, err := stage(f.path, f.content)
		if err != nil {
			cleanup()
			return &WriteError{Video: name, Path: f.path, Err: err}
		}
		staged = append(staged, stagedFile{tmp: tmp, final: f.path})
	}

	stale := []string{gtPath}
	if !w.Layout.WriteDetections {
		stale = append(stale, detPath)
	}
	for _, path := range stale {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			cleanup()
			return &WriteError{Video: name, Path: path, Err: err}
		}
	}

	for i, s := range staged {
		if err := os.Rename(s.tmp, s.final); err != nil {
			for _, rest := range staged[i:] {
				os.Remove(rest.tmp)
			}
			return &WriteError{Video: name, Path: s.final, Err: err}
		}
	}

	return nil
}

type outputFile struct {
	path    string
	content func(io.Writer) error
}

type stagedFile struct {
	tmp   string
	final string
}

func stage(path string, content func(io.Writer) error) (string, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	f, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return "", err
	}

	fail := func(err error) (string, error) {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}

	bw := bufio.NewWriter(f)
	if err := content(bw); err != nil {
		return fail(err)
	}
	if err := bw.Flush(); err != nil {
		return fail(err)
	}
	if err := f.Sync(); err != nil {
		return fail(err)
	}
	if err := f.Chmod(0644); err != nil {
		return fail(err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}

	return f.Name(), nil
}

func writeRows(out io.Writer, records []models.OutputRecord, row func(models.OutputRecord) string) error {
	for _, r := range records {
		if _, err := io.WriteString(out, row(r)+"\n"); err != nil {
			return err
		}
	}
	return nil
}

func (w *SequenceWriter) writeSeqInfo(out io.Writer, info SequenceInfo) error {
	var b strings.Builder
	b.WriteString("[Sequence]\n")
	fmt.Fprintf(&b, "name=%s\n", info.Name)
	fmt.Fprintf(&b, "imDir=%s\n", ImageDir)
	fmt.Fprintf(&b, "frameRate=%s\n", FormatFrameRate(info.FrameRate))
	fmt.Fprintf(&b, "seqLength=%d\n", info.Length)
	fmt.Fprintf(&b, "imWidth=%d\n", info.Width)
	fmt.Fprintf(&b, "imHeight=%d\n", info.Height)
	fmt.Fprintf(&b, "imExt=%s\n", w.Layout.ImageExt)
	b.WriteString("\n")

	_, err := io.WriteString(out, b.String())
	return err
}

// FormatFrameRate prints integral rates without a fraction.
func FormatFrameRate(fps float64) string {
	return strconv.FormatFloat(fps, 'f', -1, 64)
}
