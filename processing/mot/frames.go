package mot

// DestinationFrame maps a 1-based source frame to the 1-based index of the
// extracted image it lands on, when every stride-th source frame starting
// at source index 0 is kept. The frame extractor must use the same rule.
func DestinationFrame(sourceFrame, stride int) int {
	return (sourceFrame-1)/stride + 1
}

// SequenceLength is the number of images the extractor produces for a video
// of totalSourceFrames frames.
func SequenceLength(totalSourceFrames, stride int) int {
	if totalSourceFrames <= 0 {
		return 0
	}
	return (totalSourceFrames-1)/stride + 1
}
