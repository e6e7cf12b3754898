package ptrack

import (
	"math"
)

// gaussianTruncate is the kernel half width in units of sigma
const gaussianTruncate = 4.0

// preprocess prepares a frame for peak finding: optional inversion followed by optional bandpass.
// The input frame is never modified.
func preprocess(frame *Frame, cfg PipelineConfig) []float64 {
	pix := make([]float64, len(frame.Pix))
	copy(pix, frame.Pix)
	if cfg.Invert {
		invertInPlace(pix)
	}
	if cfg.Preprocess {
		pix = bandpass(pix, frame.Width, frame.Height, cfg.NoiseSize, cfg.smoothingSize(), cfg.Threshold)
	}
	return pix
}

// invertInPlace turns dark particles on bright background into bright ones on dark background
func invertInPlace(pix []float64) {
	if len(pix) == 0 {
		return
	}
	maxV := pix[0]
	for _, v := range pix {
		maxV = maxFloat64(maxV, v)
	}
	for i := range pix {
		pix[i] = maxV - pix[i]
	}
}

// bandpass subtracts a boxcar background of width 2*smoothing+1 from a Gaussian-smoothed copy
// (sigma = noise). Samples below threshold are zeroed.
func bandpass(pix []float64, width, height int, noise float64, smoothing int, threshold float64) []float64 {
	lowpass := pix
	if noise > 0 {
		kernel := gaussianKernel(noise)
		lowpass = convolveSeparable(pix, width, height, kernel)
	}
	size := 2*smoothing + 1
	box := make([]float64, size)
	for i := range box {
		box[i] = 1.0 / float64(size)
	}
	background := convolveSeparable(pix, width, height, box)
	result := make([]float64, len(pix))
	for i := range result {
		v := lowpass[i] - background[i]
		if v < threshold || v <= 0 {
			continue
		}
		result[i] = v
	}
	return result
}

func gaussianKernel(sigma float64) []float64 {
	half := int(gaussianTruncate*sigma + 0.5)
	kernel := make([]float64, 2*half+1)
	sum := 0.0
	for i := -half; i <= half; i++ {
		v := math.Exp(-0.5 * float64(i*i) / (sigma * sigma))
		kernel[i+half] = v
		sum += v
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel
}

// convolveSeparable applies the same 1-D odd kernel along rows then columns.
// Borders replicate the nearest sample.
func convolveSeparable(pix []float64, width, height int, kernel []float64) []float64 {
	half := len(kernel) / 2
	tmp := make([]float64, len(pix))
	for y := 0; y < height; y++ {
		row := pix[y*width : (y+1)*width]
		for x := 0; x < width; x++ {
			acc := 0.0
			for k := -half; k <= half; k++ {
				acc += kernel[k+half] * row[clampInt(x+k, 0, width-1)]
			}
			tmp[y*width+x] = acc
		}
	}
	out := make([]float64, len(pix))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			acc := 0.0
			for k := -half; k <= half; k++ {
				acc += kernel[k+half] * tmp[clampInt(y+k, 0, height-1)*width+x]
			}
			out[y*width+x] = acc
		}
	}
	return out
}
