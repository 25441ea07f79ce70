package mot

import "motconv/internal/models"

// PixelBox scales a percentage box to pixels. Values outside the frame are
// kept as they are.
func PixelBox(x, y, w, h float64, width, height int) models.Box {
	fw, fh := float64(width), float64(height)

	return models.Box{
		X: x / 100 * fw,
		Y: y / 100 * fh,
		W: w / 100 * fw,
		H: h / 100 * fh,
	}
}

// PercentBox is the inverse of PixelBox.
func PercentBox(b models.Box, width, height int) (x, y, w, h float64) {
	fw, fh := float64(width), float64(height)
	return b.X / fw * 100, b.Y / fh * 100, b.W / fw * 100, b.H / fh * 100
}
