package capture

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Video is one media file found in the videos directory. Name is the file
// stem and doubles as the sequence name.
type Video struct {
	Name string
	Path string
}

// ListVideos returns the files directly inside dir whose extension is one of
// exts (case-insensitive), sorted by name.
func ListVideos(dir string, exts []string) ([]Video, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var videos []Video
	for _, e := range entries {
		if e.IsDir() {
			continue
		}

		ext := filepath.Ext(e.Name())
		if !hasExt(exts, ext) {
			continue
		}

		videos = append(videos, Video{
			Name: strings.TrimSuffix(e.Name(), ext),
			Path: filepath.Join(dir, e.Name()),
		})
	}

	sort.Slice(videos, func(i, j int) bool {
		return videos[i].Name < videos[j].Name
	})

	return videos, nil
}

func hasExt(exts []string, ext string) bool {
	for _, e := range exts {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}
