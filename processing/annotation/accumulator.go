package annotation

import (
	"sort"

	"motconv/internal/models"
)

// Accumulator collects keyframes in arrival order. It is the in-progress
// side of the video -> track -> keyframes grouping; Finalize produces the
// sorted, read-only TrackSet handed to the writers.
type Accumulator struct {
	videos map[string]map[string][]models.Keyframe
}

func NewAccumulator() *Accumulator {
	return &Accumulator{videos: make(map[string]map[string][]models.Keyframe)}
}

func (a *Accumulator) Add(video, key string, kf models.Keyframe) {
	tracks, ok := a.videos[video]
	if !ok {
		tracks = make(map[string][]models.Keyframe)
		a.videos[video] = tracks
	}
	tracks[key] = append(tracks[key], kf)
}

// Finalize sorts every track by source frame (stable, so duplicate frames
// keep their export order) and every video's tracks by key. The
// accumulator must not be used afterwards.
func (a *Accumulator) Finalize() *TrackSet {
	set := &TrackSet{videos: make(map[string]models.VideoTracks, len(a.videos))}

	for video, byKey := range a.videos {
		vt := models.VideoTracks{Video: video, Tracks: make([]models.Track, 0, len(byKey))}

		for key, kfs := range byKey {
			sort.SliceStable(kfs, func(i, j int) bool {
				return kfs[i].SourceFrame < kfs[j].SourceFrame
			})
			vt.Tracks = append(vt.Tracks, models.Track{Key: key, Keyframes: kfs})
		}

		sort.Slice(vt.Tracks, func(i, j int) bool {
			return vt.Tracks[i].Key < vt.Tracks[j].Key
		})

		set.videos[video] = vt
		set.tracks += len(vt.Tracks)
	}

	a.videos = nil
	return set
}

// TrackSet is the finalized result of parsing one export.
type TrackSet struct {
	videos map[string]models.VideoTracks
	tracks int
}

func (s *TrackSet) Lookup(video string) (models.VideoTracks, bool) {
	vt, ok := s.videos[video]
	return vt, ok
}

// Videos returns the video names in ascending order.
func (s *TrackSet) Videos() []string {
	names := make([]string, 0, len(s.videos))
	for name := range s.videos {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *TrackSet) TrackCount() int {
	return s.tracks
}
