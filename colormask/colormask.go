// Package colormask finds coloured blobs in RGB images.
//
// A pixel is foreground when its HSV colour falls inside [Low, High]. The mask is cleaned with a median
// filter followed by morphological opening and closing, then split into 8-connected components.
package colormask

import (
	"image"
	"image/color"
	"math"

	"github.com/LdDl/ptrack-go/ptrack"
	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/segment"
	"github.com/lucasb-eyer/go-colorful"
)

// HSV is a colour bound. H is in degrees [0, 360), S and V are in [0, 1]
type HSV struct {
	H float64
	S float64
	V float64
}

// FromOpenCV converts 8-bit OpenCV HSV (H in [0, 180), S and V in [0, 255]) to HSV
func FromOpenCV(h, s, v uint8) HSV {
	return HSV{
		H: float64(h) * 2,
		S: float64(s) / 255.0,
		V: float64(v) / 255.0,
	}
}

// Finder holds colour range and mask cleaning parameters
type Finder struct {
	Low  HSV
	High HSV
	// Components with less pixels are noise
	MinArea int
	// Radii of bild filters: radius R is a (2R+1)x(2R+1) square. Zero disables a step
	MedianRadius float64
	OpenRadius   float64
	CloseRadius  float64
}

// NewGreenFinder returns Finder for bright green markers
func NewGreenFinder() *Finder {
	return &Finder{
		Low:          FromOpenCV(40, 80, 80),
		High:         FromOpenCV(85, 255, 255),
		MinArea:      10,
		MedianRadius: 2,
		OpenRadius:   1,
		CloseRadius:  2,
	}
}

// Blob is a connected region of the mask
type Blob struct {
	// Center of mass of region pixels (pixel centers), image coordinates
	Center ptrack.Point
	// Largest distance from Center to a pixel of the region plus half a pixel
	Radius float64
	// Number of pixels
	Area   int
	Bounds image.Rectangle
}

// Detection converts blob into detection of given frame: mass is the area, size is the radius
func (b Blob) Detection(frame int) ptrack.Detection {
	return ptrack.Detection{
		Frame:  frame,
		X:      b.Center.X,
		Y:      b.Center.Y,
		Mass:   float64(b.Area),
		Size:   b.Radius,
		Signal: 1,
	}
}

// inRange checks colour against bounds. Low.H > High.H means hue range wraps around 0 (reds)
func (f *Finder) inRange(h, s, v float64) bool {
	if s < f.Low.S || s > f.High.S || v < f.Low.V || v > f.High.V {
		return false
	}
	if f.Low.H <= f.High.H {
		return h >= f.Low.H && h <= f.High.H
	}
	return h >= f.Low.H || h <= f.High.H
}

// Mask returns cleaned binary mask (0 or 255) with the same bounds as img
func (f *Finder) Mask(img image.Image) *image.Gray {
	bounds := img.Bounds()
	mask := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c, ok := colorful.MakeColor(img.At(x, y))
			if !ok {
				continue
			}
			h, s, v := c.Hsv()
			if f.inRange(h, s, v) {
				mask.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	if f.MedianRadius <= 0 && f.OpenRadius <= 0 && f.CloseRadius <= 0 {
		return mask
	}
	var cleaned image.Image = mask
	if f.MedianRadius > 0 {
		cleaned = effect.Median(cleaned, f.MedianRadius)
	}
	if f.OpenRadius > 0 {
		cleaned = effect.Dilate(effect.Erode(cleaned, f.OpenRadius), f.OpenRadius)
	}
	if f.CloseRadius > 0 {
		cleaned = effect.Erode(effect.Dilate(cleaned, f.CloseRadius), f.CloseRadius)
	}
	return segment.Threshold(cleaned, 128)
}

// Find returns blobs of at least MinArea pixels in row-major order of their first pixel
func (f *Finder) Find(img image.Image) []Blob {
	mask := f.Mask(img)
	bounds := mask.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	labels := make([]int, width*height)
	blobs := make([]Blob, 0)
	label := 0
	stack := make([]int, 0, 64)
	for start := range labels {
		sx, sy := start%width, start/width
		if labels[start] != 0 || mask.GrayAt(bounds.Min.X+sx, bounds.Min.Y+sy).Y == 0 {
			continue
		}
		label++
		labels[start] = label
		stack = append(stack[:0], start)
		pixels := make([]image.Point, 0, 16)
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			cx, cy := cur%width, cur/width
			pixels = append(pixels, image.Point{X: cx, Y: cy})
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := cx+dx, cy+dy
					if nx < 0 || ny < 0 || nx >= width || ny >= height {
						continue
					}
					next := ny*width + nx
					if labels[next] != 0 || mask.GrayAt(bounds.Min.X+nx, bounds.Min.Y+ny).Y == 0 {
						continue
					}
					labels[next] = label
					stack = append(stack, next)
				}
			}
		}
		if len(pixels) < f.MinArea {
			continue
		}
		blobs = append(blobs, newBlob(pixels, bounds.Min))
	}
	return blobs
}

func newBlob(pixels []image.Point, origin image.Point) Blob {
	var sx, sy float64
	rect := image.Rectangle{Min: pixels[0], Max: pixels[0].Add(image.Point{X: 1, Y: 1})}
	for _, p := range pixels {
		sx += float64(p.X)
		sy += float64(p.Y)
		rect = rect.Union(image.Rect(p.X, p.Y, p.X+1, p.Y+1))
	}
	n := float64(len(pixels))
	center := ptrack.Point{X: sx/n + float64(origin.X), Y: sy/n + float64(origin.Y)}
	radius := 0.0
	for _, p := range pixels {
		dx := float64(p.X+origin.X) - center.X
		dy := float64(p.Y+origin.Y) - center.Y
		radius = math.Max(radius, math.Hypot(dx, dy))
	}
	return Blob{
		Center: center,
		Radius: radius + 0.5,
		Area:   len(pixels),
		Bounds: rect.Add(origin),
	}
}

// Detections converts blobs of a frame into detections
func Detections(frame int, blobs []Blob) []ptrack.Detection {
	dets := make([]ptrack.Detection, len(blobs))
	for i := range blobs {
		dets[i] = blobs[i].Detection(frame)
	}
	return dets
}
