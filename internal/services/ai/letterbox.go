package ai

import (
	"image"
	"image/color"
	"math"

	"github.com/nfnt/resize"
)

// PadValue is the grey level used for letterbox borders.
const PadValue = 114

// Frame describes how a source image is fitted into the square model input:
// scaled by Scale keeping its aspect ratio, then padded to Size x Size.
type Frame struct {
	SrcWidth  int
	SrcHeight int
	Size      int
	Scale     float64
	NewWidth  int
	NewHeight int
	PadLeft   int
	PadRight  int
	PadTop    int
	PadBottom int
}

// NewFrame computes the letterbox geometry for a srcWidth x srcHeight image.
func NewFrame(srcWidth, srcHeight, size int) Frame {
	scale := math.Min(float64(size)/float64(srcWidth), float64(size)/float64(srcHeight))

	newWidth := clampInt(int(math.Round(float64(srcWidth)*scale)), 1, size)
	newHeight := clampInt(int(math.Round(float64(srcHeight)*scale)), 1, size)

	dw := size - newWidth
	dh := size - newHeight

	return Frame{
		SrcWidth:  srcWidth,
		SrcHeight: srcHeight,
		Size:      size,
		Scale:     scale,
		NewWidth:  newWidth,
		NewHeight: newHeight,
		PadLeft:   dw / 2,
		PadRight:  dw - dw/2,
		PadTop:    dh / 2,
		PadBottom: dh - dh/2,
	}
}

// ToSource maps a point from model input space back to source pixels,
// clipped to the image bounds.
func (f Frame) ToSource(x, y float64) (float64, float64) {
	sx := (x - float64(f.PadLeft)) / f.Scale
	sy := (y - float64(f.PadTop)) / f.Scale
	return clampFloat(sx, 0, float64(f.SrcWidth)), clampFloat(sy, 0, float64(f.SrcHeight))
}

// LetterboxImage resizes img into the frame and returns the model input as
// RGB planes (CHW) scaled to [0,1].
func LetterboxImage(img image.Image, frame Frame) []float32 {
	plane := frame.Size * frame.Size
	data := make([]float32, 3*plane)

	pad := float32(PadValue) / 255.0
	for i := range data {
		data[i] = pad
	}

	resized := resize.Resize(uint(frame.NewWidth), uint(frame.NewHeight), OpaqueImage(img), resize.Bilinear)
	bounds := resized.Bounds()

	for y := 0; y < frame.NewHeight && y < bounds.Dy(); y++ {
		for x := 0; x < frame.NewWidth && x < bounds.Dx(); x++ {
			r, g, b, _ := resized.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()

			idx := (y+frame.PadTop)*frame.Size + (x + frame.PadLeft)
			data[idx] = float32(r>>8) / 255.0
			data[plane+idx] = float32(g>>8) / 255.0
			data[2*plane+idx] = float32(b>>8) / 255.0
		}
	}

	return data
}

// OpaqueImage drops the alpha channel and keeps the straight colour of every
// pixel. Images that are already opaque are returned as is.
func OpaqueImage(img image.Image) image.Image {
	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		return img
	}

	bounds := img.Bounds()
	out := image.NewRGBA(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			c.A = 0xff
			out.SetRGBA(x, y, color.RGBA(c))
		}
	}
	return out
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
