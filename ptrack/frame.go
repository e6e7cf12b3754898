package ptrack

import (
	"image"
	"image/color"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// Frame is a grayscale intensity grid of a single time point.
// Pix is stored row-major: sample (x, y) lives at Pix[y*Width+x].
type Frame struct {
	Index  int
	Width  int
	Height int
	Pix    []float64
}

// NewFrame creates frame and checks that pixel buffer matches dimensions
func NewFrame(index, width, height int, pix []float64) (*Frame, error) {
	frame := &Frame{
		Index:  index,
		Width:  width,
		Height: height,
		Pix:    pix,
	}
	if err := frame.check(); err != nil {
		return nil, &InvalidFrameError{Position: -1, Index: index, Reason: err.Error()}
	}
	return frame, nil
}

// NewEmptyFrame creates zero-filled frame
func NewEmptyFrame(index, width, height int) *Frame {
	return &Frame{
		Index:  index,
		Width:  width,
		Height: height,
		Pix:    make([]float64, width*height),
	}
}

// NewFrameFromImage converts any image into intensity frame.
// *image.Gray16 keeps its 16-bit depth, everything else goes through color.Gray16Model
// and is scaled back to 8-bit range.
func NewFrameFromImage(index int, img image.Image) *Frame {
	bounds := img.Bounds()
	frame := NewEmptyFrame(index, bounds.Dx(), bounds.Dy())
	switch src := img.(type) {
	case *image.Gray:
		for y := 0; y < frame.Height; y++ {
			row := src.Pix[y*src.Stride : y*src.Stride+frame.Width]
			for x, v := range row {
				frame.Pix[y*frame.Width+x] = float64(v)
			}
		}
	case *image.Gray16:
		for y := 0; y < frame.Height; y++ {
			for x := 0; x < frame.Width; x++ {
				frame.Pix[y*frame.Width+x] = float64(src.Gray16At(bounds.Min.X+x, bounds.Min.Y+y).Y)
			}
		}
	default:
		for y := 0; y < frame.Height; y++ {
			for x := 0; x < frame.Width; x++ {
				g := color.Gray16Model.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray16)
				frame.Pix[y*frame.Width+x] = float64(g.Y) / 257.0
			}
		}
	}
	return frame
}

// At returns intensity at (x, y). No bounds check beyond slice indexing
func (frame *Frame) At(x, y int) float64 {
	return frame.Pix[y*frame.Width+x]
}

// Set sets intensity at (x, y)
func (frame *Frame) Set(x, y int, v float64) {
	frame.Pix[y*frame.Width+x] = v
}

// Max returns the brightest sample. Zero for empty frame
func (frame *Frame) Max() float64 {
	if len(frame.Pix) == 0 {
		return 0
	}
	return floats.Max(frame.Pix)
}

// Clone returns deep copy of frame
func (frame *Frame) Clone() *Frame {
	pix := make([]float64, len(frame.Pix))
	copy(pix, frame.Pix)
	return &Frame{
		Index:  frame.Index,
		Width:  frame.Width,
		Height: frame.Height,
		Pix:    pix,
	}
}

// SameShape reports whether both frames have equal dimensions
func (frame *Frame) SameShape(other *Frame) bool {
	return frame.Width == other.Width && frame.Height == other.Height
}

func (frame *Frame) check() error {
	if frame.Width <= 0 || frame.Height <= 0 {
		return errors.Errorf("non-positive dimensions %dx%d", frame.Width, frame.Height)
	}
	if len(frame.Pix) != frame.Width*frame.Height {
		return errors.Errorf("pixel buffer has %d samples, expected %d", len(frame.Pix), frame.Width*frame.Height)
	}
	if frame.Index < 0 {
		return errors.New("negative frame index")
	}
	return nil
}
