package cred

import (
	"gonum.org/v1/gonum/mat"

	"github.com/nasa-jpl/cred/stretch"
)

// AdjustCenter shifts each coordinate of a beam center past the detector's
// central cross.  The increments are cumulative: a coordinate above 257 moves
// by 4 pixels.
//
// The thresholds are an empirical hardware calibration and are kept exactly
// as measured.
func AdjustCenter(center [2]float64) [2]float64 {
	out := center
	for i, v := range center {
		if v > 255 {
			out[i]++
		}
		if v > 256 {
			out[i] += 2
		}
		if v > 257 {
			out[i]++
		}
	}
	return out
}

// FixDistortion removes the elliptical lens distortion from img, using the
// adjusted beam center as the center of the stretch
func FixDistortion(img *mat.Dense, center [2]float64) *mat.Dense {
	return stretch.Apply(img, AdjustCenter(center), StretchAzimuth, StretchAmplitude)
}
