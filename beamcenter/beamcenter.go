/*Package beamcenter locates the undiffracted primary beam on a detector frame.

The frame is smoothed with a Gaussian kernel and the beam is taken as the
centroid of the brightest plateau of the smoothed frame.  Coordinates are
returned in array order, (axis 0, axis 1) = (row, column), in pixels.

*/
package beamcenter

import (
	"errors"
	"image"

	"github.com/disintegration/gift"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Sigma is the smoothing used for cRED frames
const Sigma = 10

var (
	// ErrNoSignal is returned when a frame holds no positive intensity
	ErrNoSignal = errors.New("frame holds no signal")

	// ErrNoCenters is returned when averaging an empty set of centers
	ErrNoCenters = errors.New("no beam centers to average")
)

// Find returns the beam center of img after Gaussian smoothing with sigma
func Find(img mat.Matrix, sigma float64) ([2]float64, error) {
	src, ok := toGray16(img)
	if !ok {
		return [2]float64{}, ErrNoSignal
	}
	g := gift.New(gift.GaussianBlur(float32(sigma)))
	dst := image.NewGray16(g.Bounds(src.Bounds()))
	g.Draw(dst, src)

	b := dst.Bounds()
	var (
		peak   uint16
		sumR   float64
		sumC   float64
		nPeak  float64
		stride = dst.Stride
	)
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			i := y*stride + 2*x
			v := uint16(dst.Pix[i])<<8 | uint16(dst.Pix[i+1])
			switch {
			case v > peak:
				peak = v
				sumR, sumC, nPeak = float64(y), float64(x), 1
			case v == peak:
				sumR += float64(y)
				sumC += float64(x)
				nPeak++
			}
		}
	}
	if peak == 0 {
		return [2]float64{}, ErrNoSignal
	}
	return [2]float64{sumR / nPeak, sumC / nPeak}, nil
}

// Mean returns the component-wise arithmetic mean of centers
func Mean(centers [][2]float64) ([2]float64, error) {
	if len(centers) == 0 {
		return [2]float64{}, ErrNoCenters
	}
	rows := make([]float64, len(centers))
	cols := make([]float64, len(centers))
	for i, c := range centers {
		rows[i], cols[i] = c[0], c[1]
	}
	return [2]float64{stat.Mean(rows, nil), stat.Mean(cols, nil)}, nil
}

// toGray16 scales img onto the full 16-bit range.  ok is false when the
// image has no positive pixel.
func toGray16(img mat.Matrix) (*image.Gray16, bool) {
	r, c := img.Dims()
	hi := 0.
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v := img.At(i, j); v > hi {
				hi = v
			}
		}
	}
	if hi <= 0 {
		return nil, false
	}
	scale := 65535 / hi
	out := image.NewGray16(image.Rect(0, 0, c, r))
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := img.At(i, j) * scale
			if v < 0 {
				v = 0
			}
			u := uint16(v + 0.5)
			k := i*out.Stride + 2*j
			out.Pix[k] = byte(u >> 8)
			out.Pix[k+1] = byte(u)
		}
	}
	return out, true
}
