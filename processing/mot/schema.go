package mot

import (
	"fmt"
	"strconv"

	"motconv/internal/models"
)

// Columns selects one of the two MOT row layouts in circulation.
type Columns int

const (
	// Columns10: frame,id,x,y,w,h,conf,x3d,y3d,z3d
	Columns10 Columns = 10
	// Columns9: frame,id,x,y,w,h,consider,class,visibility
	Columns9 Columns = 9
)

const (
	ImageDir = "img1"

	gtDir   = "gt"
	gtFile  = "gt.txt"
	detDir  = "det"
	detFile = "det.txt"
	seqFile = "seqinfo.ini"
)

// Layout is the output policy of a sequence: row schema, pixel origin,
// whether det.txt is written and the image extension announced in
// seqinfo.ini.
type Layout struct {
	Columns         Columns
	OneBasedOrigin  bool
	WriteDetections bool
	ImageExt        string
}

func DefaultLayout() Layout {
	return Layout{
		Columns:         Columns10,
		WriteDetections: true,
		ImageExt:        ".jpg",
	}
}

func (l Layout) Validate() error {
	if l.Columns != Columns10 && l.Columns != Columns9 {
		return fmt.Errorf("unsupported column count %d", l.Columns)
	}
	if l.ImageExt == "" || l.ImageExt[0] != '.' {
		return fmt.Errorf("image extension %q must start with a dot", l.ImageExt)
	}
	return nil
}

func (l Layout) GTRow(r models.OutputRecord) string {
	box := l.coords(r.Box)
	if l.Columns == Columns9 {
		return fmt.Sprintf("%d,%d,%s,1,1,1.0", r.Frame, r.TrackID, box)
	}
	return fmt.Sprintf("%d,%d,%s,1,-1,-1,-1", r.Frame, r.TrackID, box)
}

func (l Layout) DetRow(r models.OutputRecord) string {
	box := l.coords(r.Box)
	if l.Columns == Columns9 {
		return fmt.Sprintf("%d,-1,%s,1.0,-1,-1", r.Frame, box)
	}
	return fmt.Sprintf("%d,-1,%s,1.0,-1,-1,-1", r.Frame, box)
}

func (l Layout) coords(b models.Box) string {
	x, y := b.X, b.Y
	if l.OneBasedOrigin {
		x++
		y++
	}
	return fmtCoord(x) + "," + fmtCoord(y) + "," + fmtCoord(b.W) + "," + fmtCoord(b.H)
}

func fmtCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}
