package models

// Keyframe is one observation of one tracked object at one source frame.
// X, Y, W and H are percentages of the frame dimensions.
type Keyframe struct {
	SourceFrame int
	X, Y, W, H  float64
}

// Track is the keyframe list of one object, sorted by SourceFrame.
type Track struct {
	Key       string
	Keyframes []Keyframe
}

// VideoTracks holds the finalized tracks of one video sorted by Key.
type VideoTracks struct {
	Video  string
	Tracks []Track
}

// VideoMetadata is what the decoder probe reports for one media file.
type VideoMetadata struct {
	Width             int
	Height            int
	FrameRate         float64
	DurationSeconds   float64
	TotalSourceFrames int
}

// Box is a pixel-space rectangle in (left, top, width, height) form.
type Box struct {
	X, Y, W, H float64
}

// OutputRecord is one row of gt.txt / det.txt before formatting.
type OutputRecord struct {
	Frame   int
	TrackID int
	Box     Box
}
