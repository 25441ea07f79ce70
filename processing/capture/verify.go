package capture

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// FrameCountError reports an image sequence that does not have the length
// the annotations were aligned to.
type FrameCountError struct {
	Dir  string
	Want int
	Got  int
}

func (e *FrameCountError) Error() string {
	return fmt.Sprintf("%s: expected %d frames, found %d", e.Dir, e.Want, e.Got)
}

// VerifyFrames checks that dir holds exactly want images numbered 1..want
// and that the first one has the given size.
func VerifyFrames(dir, ext string, want, width, height int) error {
	frames, err := listFrames(dir, ext)
	if err != nil {
		return err
	}

	if len(frames) != want {
		return &FrameCountError{Dir: dir, Want: want, Got: len(frames)}
	}

	for i, f := range frames {
		expected := fmt.Sprintf("%06d%s", i+1, ext)
		if filepath.Base(f) != expected {
			return fmt.Errorf("%s: frame %d is %s, expected %s", dir, i+1, filepath.Base(f), expected)
		}
	}

	if want == 0 {
		return nil
	}

	w, h, err := imageSize(frames[0])
	if err != nil {
		return err
	}
	if w != width || h != height {
		return fmt.Errorf("%s: frames are %dx%d, expected %dx%d", dir, w, h, width, height)
	}

	return nil
}

func imageSize(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("decode %s: %w", path, err)
	}
	return cfg.Width, cfg.Height, nil
}

// listFrames returns the image files in dir with the given extension, sorted
// by name. A missing dir has no frames.
func listFrames(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var frames []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ext) {
			continue
		}
		frames = append(frames, filepath.Join(dir, e.Name()))
	}
	sort.Strings(frames)
	return frames, nil
}
