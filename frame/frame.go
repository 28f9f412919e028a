/*Package frame holds the detector frames that flow from acquisition into
conversion.

A Frame couples the pixel data of one rotation step with the metadata that
was recorded alongside it.  Pixels are stored row-major in a gonum
*mat.Dense, axis 0 being the detector row and axis 1 the column.

*/
package frame

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/nasa-jpl/cred/util"
)

// Header keys written by the acquisition loop and read by the encoders
const (
	// KeyGetTime is the unix timestamp (seconds, float) the frame was read out
	KeyGetTime = "ImageGetTime"

	// KeyExposureTime is the exposure time in seconds
	KeyExposureTime = "ImageExposureTime"

	// KeyCameraName is the name of the detector that produced the frame
	KeyCameraName = "ImageCameraName"

	// KeyBinsize is the hardware binning factor
	KeyBinsize = "ImageBinsize"
)

// Header holds the acquisition metadata of a single frame
type Header map[string]interface{}

// Copy returns a shallow copy of h
func (h Header) Copy() Header {
	out := make(Header, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}

// Frame is one detector image and its header
type Frame struct {
	// Image is the pixel data, row major
	Image *mat.Dense

	// Header is the acquisition metadata
	Header Header
}

// Res returns the (H, W) of the frame
func (f Frame) Res() [2]int {
	r, c := f.Image.Dims()
	return [2]int{r, c}
}

// FromU16 converts a strided uint16 buffer of height h and width w into a
// *mat.Dense
func FromU16(buf []uint16, h, w int) (*mat.Dense, error) {
	if h <= 0 || w <= 0 {
		return nil, fmt.Errorf("invalid frame resolution %dx%d", h, w)
	}
	if len(buf) != h*w {
		return nil, fmt.Errorf("buffer holds %d pixels, expected %dx%d=%d", len(buf), h, w, h*w)
	}
	data := make([]float64, len(buf))
	for i, v := range buf {
		data[i] = float64(v)
	}
	return mat.NewDense(h, w, data), nil
}

// ToU16 casts img to uint16, saturating at the bounds of the type.  Values
// are truncated toward zero.
func ToU16(img mat.Matrix) []uint16 {
	r, c := img.Dims()
	out := make([]uint16, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out[i*c+j] = uint16(util.Clamp(math.Trunc(img.At(i, j)), 0, math.MaxUint16))
		}
	}
	return out
}

// ToI16 casts img to int16, saturating at the bounds of the type.  Values
// are truncated toward zero.
func ToI16(img mat.Matrix) []int16 {
	r, c := img.Dims()
	out := make([]int16, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out[i*c+j] = int16(util.Clamp(math.Trunc(img.At(i, j)), math.MinInt16, math.MaxInt16))
		}
	}
	return out
}

// FlipUD returns a copy of img with the row order reversed
func FlipUD(img mat.Matrix) *mat.Dense {
	r, c := img.Dims()
	out := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.Set(r-1-i, j, img.At(i, j))
		}
	}
	return out
}
