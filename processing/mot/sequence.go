package mot

import (
	"sort"

	"motconv/internal/models"
)

// SequenceInfo is the content of seqinfo.ini.
type SequenceInfo struct {
	Name      string
	FrameRate float64
	Length    int
	Width     int
	Height    int
}

// Sequence is one video's converted annotations, ready to be written.
type Sequence struct {
	Info    SequenceInfo
	Records []models.OutputRecord
}

// Geometry describes how a video was sampled and at which size its images
// were extracted.
type Geometry struct {
	Stride            int
	Width             int
	Height            int
	FrameRate         float64
	TotalSourceFrames int
}

// BuildSequence turns the tracks of one video into output records ordered
// by destination frame, then track id.
func BuildSequence(name string, geo Geometry, tracks []models.Track) Sequence {
	keys := make([]string, len(tracks))
	for i, t := range tracks {
		keys[i] = t.Key
	}
	ids := AssignTrackIDs(keys)

	var records []models.OutputRecord
	for _, t := range tracks {
		id := ids[t.Key]
		for _, kf := range t.Keyframes {
			records = append(records, models.OutputRecord{
				Frame:   DestinationFrame(kf.SourceFrame, geo.Stride),
				TrackID: id,
				Box:     PixelBox(kf.X, kf.Y, kf.W, kf.H, geo.Width, geo.Height),
			})
		}
	}

	SortRecords(records)

	return Sequence{
		Info: SequenceInfo{
			Name:      name,
			FrameRate: geo.FrameRate,
			Length:    SequenceLength(geo.TotalSourceFrames, geo.Stride),
			Width:     geo.Width,
			Height:    geo.Height,
		},
		Records: records,
	}
}

// SortRecords orders by frame, then track id. The sort is stable so records
// sharing both keep their insertion order.
func SortRecords(records []models.OutputRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Frame != records[j].Frame {
			return records[i].Frame < records[j].Frame
		}
		return records[i].TrackID < records[j].TrackID
	})
}
