package colormask

import (
	"image"
	"image/color"
	"testing"

	"github.com/LdDl/ptrack-go/ptrack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	green = color.RGBA{R: 20, G: 200, B: 30, A: 255}
	red   = color.RGBA{R: 220, G: 20, B: 10, A: 255}
)

func fillDisk(img *image.RGBA, cx, cy, r int, c color.Color) {
	for y := cy - r; y <= cy+r; y++ {
		for x := cx - r; x <= cx+r; x++ {
			if (x-cx)*(x-cx)+(y-cy)*(y-cy) <= r*r {
				img.Set(x, y, c)
			}
		}
	}
}

func newCanvas(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	return img
}

func TestFindInSubImage(t *testing.T) {
	img := newCanvas(100, 80)
	fillDisk(img, 60, 50, 4, green)
	sub := img.SubImage(image.Rect(40, 30, 90, 75))

	finder := NewGreenFinder()
	mask := finder.Mask(sub)
	assert.Equal(t, sub.Bounds(), mask.Bounds())
	assert.Equal(t, uint8(255), mask.GrayAt(60, 50).Y)

	blobs := finder.Find(sub)
	require.Len(t, blobs, 1)
	assert.InDelta(t, 60.0, blobs[0].Center.X, 1e-9)
	assert.InDelta(t, 50.0, blobs[0].Center.Y, 1e-9)
	assert.True(t, blobs[0].Bounds.In(image.Rect(54, 44, 67, 57)))
}

func TestFromOpenCV(t *testing.T) {
	hsv := FromOpenCV(60, 255, 51)
	assert.Equal(t, 120.0, hsv.H)
	assert.Equal(t, 1.0, hsv.S)
	assert.InDelta(t, 0.2, hsv.V, 1e-12)
}

func TestFindGreenBlob(t *testing.T) {
	img := newCanvas(60, 40)
	fillDisk(img, 20, 15, 4, green)
	// Red disk has wrong hue
	fillDisk(img, 45, 20, 4, red)
	// Single green pixel is noise
	img.Set(50, 5, green)

	blobs := NewGreenFinder().Find(img)
	require.Len(t, blobs, 1)
	blob := blobs[0]
	assert.InDelta(t, 20.0, blob.Center.X, 1e-9)
	assert.InDelta(t, 15.0, blob.Center.Y, 1e-9)
	assert.Greater(t, blob.Area, 30)
	assert.InDelta(t, 4.5, blob.Radius, 1.5)
	assert.True(t, blob.Bounds.In(image.Rect(14, 9, 27, 22)))
}

func TestFindWrappedHue(t *testing.T) {
	img := newCanvas(40, 40)
	fillDisk(img, 20, 20, 5, red)
	finder := &Finder{
		Low:     HSV{H: 340, S: 0.5, V: 0.5},
		High:    HSV{H: 20, S: 1, V: 1},
		MinArea: 10,
	}
	blobs := finder.Find(img)
	require.Len(t, blobs, 1)
	assert.Equal(t, 81, blobs[0].Area)
}

func TestFindMinArea(t *testing.T) {
	img := newCanvas(30, 30)
	fillDisk(img, 10, 10, 1, green)
	finder := &Finder{
		Low:     FromOpenCV(40, 80, 80),
		High:    FromOpenCV(85, 255, 255),
		MinArea: 10,
	}
	assert.Empty(t, finder.Find(img))
	finder.MinArea = 5
	assert.Len(t, finder.Find(img), 1)
}

func TestBlobsCanBeLinked(t *testing.T) {
	finder := NewGreenFinder()
	dets := make([]ptrack.Detection, 0)
	for f := 0; f < 4; f++ {
		img := newCanvas(64, 32)
		fillDisk(img, 10+3*f, 16, 4, green)
		dets = append(dets, Detections(f, finder.Find(img))...)
	}
	cfg := ptrack.DefaultConfig()
	cfg.SearchRange = 5
	trajs, err := ptrack.LinkDetections(dets, cfg)
	require.NoError(t, err)
	require.Len(t, trajs, 1)
	assert.Equal(t, 4, trajs[0].Len())
	assert.InDelta(t, 19.0, trajs[0].Last().X, 1e-9)
}
