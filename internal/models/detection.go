package models

// BoundingBox is an object's location as [origin x, origin y, width, height] in pixels.
type BoundingBox [4]int

func (b BoundingBox) X() int      { return b[0] }
func (b BoundingBox) Y() int      { return b[1] }
func (b BoundingBox) Width() int  { return b[2] }
func (b BoundingBox) Height() int { return b[3] }

// Detection represents a detected object in an image.
type Detection struct {
	BBox  BoundingBox `json:"bbox"`
	Class string      `json:"class"`
	Score float64     `json:"score"`
}

// NewDetection converts corner coordinates (min_x, min_y, max_x, max_y) to a
// Detection. Origin, width and height are truncated toward zero.
func NewDetection(minX, minY, maxX, maxY float64, class string, score float64) Detection {
	width := maxX - minX
	height := maxY - minY
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return Detection{
		BBox:  BoundingBox{int(minX), int(minY), int(width), int(height)},
		Class: class,
		Score: score,
	}
}
