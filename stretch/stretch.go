// Package stretch corrects the elliptical distortion of diffraction rings
// caused by the projector lens system.
package stretch

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Transform returns the 2x2 affine matrix mapping an ellipse of the given
// azimuth (degrees) and amplitude (percent) onto a circle.
//
// The matrix is R(az) * diag(1-s, 1+s) * R(-az) with s = amplitude / 200.
func Transform(azimuth, amplitude float64) *mat.Dense {
	az := azimuth * math.Pi / 180
	s := amplitude / (2 * 100)
	sin, cos := math.Sincos(az)

	rot1 := mat.NewDense(2, 2, []float64{cos, -sin, sin, cos})
	scale := mat.NewDense(2, 2, []float64{1 - s, 0, 0, 1 + s})
	rot2 := mat.NewDense(2, 2, []float64{cos, sin, -sin, cos})

	var tmp, out mat.Dense
	tmp.Mul(rot1, scale)
	out.Mul(&tmp, rot2)
	return &out
}

// Apply remaps img about center (row, column) with the stretch correction
// of the given azimuth (degrees) and amplitude (percent).
//
// Each output pixel o samples the input at T(o - center) + center with
// bilinear interpolation; samples that fall outside the frame are zero.
func Apply(img mat.Matrix, center [2]float64, azimuth, amplitude float64) *mat.Dense {
	return ApplyTransform(img, center, Transform(azimuth, amplitude))
}

// ApplyTransform remaps img about center with an arbitrary 2x2 matrix tf
func ApplyTransform(img mat.Matrix, center [2]float64, tf mat.Matrix) *mat.Dense {
	r, c := img.Dims()
	t00, t01 := tf.At(0, 0), tf.At(0, 1)
	t10, t11 := tf.At(1, 0), tf.At(1, 1)
	cy, cx := center[0], center[1]

	out := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		dy := float64(i) - cy
		for j := 0; j < c; j++ {
			dx := float64(j) - cx
			y := t00*dy + t01*dx + cy
			x := t10*dy + t11*dx + cx
			out.Set(i, j, bilinear(img, r, c, y, x))
		}
	}
	return out
}

func bilinear(img mat.Matrix, r, c int, y, x float64) float64 {
	if y <= -1 || x <= -1 || y >= float64(r) || x >= float64(c) {
		return 0
	}
	y0, x0 := math.Floor(y), math.Floor(x)
	fy, fx := y-y0, x-x0
	i, j := int(y0), int(x0)
	at := func(i, j int) float64 {
		if i < 0 || j < 0 || i >= r || j >= c {
			return 0
		}
		return img.At(i, j)
	}
	return at(i, j)*(1-fy)*(1-fx) +
		at(i, j+1)*(1-fy)*fx +
		at(i+1, j)*fy*(1-fx) +
		at(i+1, j+1)*fy*fx
}
