// Package flatfield normalises detector frames against a flatfield reference
package flatfield

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"

	"golang.org/x/image/tiff"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ErrShape is returned when a frame and its reference differ in resolution
var ErrShape = errors.New("frame and reference differ in shape")

// Load reads a flatfield (or darkfield) reference from a TIFF file
func Load(path string) (*mat.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, err := tiff.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return FromImage(img), nil
}

// FromImage converts a grayscale image to a *mat.Dense.  Color images are
// reduced to their 16-bit luminance.
func FromImage(img image.Image) *mat.Dense {
	b := img.Bounds()
	h, w := b.Dy(), b.Dx()
	out := mat.NewDense(h, w, nil)
	switch g := img.(type) {
	case *image.Gray16:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				out.Set(y, x, float64(g.Gray16At(b.Min.X+x, b.Min.Y+y).Y))
			}
		}
	case *image.Gray:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				out.Set(y, x, float64(g.GrayAt(b.Min.X+x, b.Min.Y+y).Y))
			}
		}
	default:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				c := color.Gray16Model.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray16)
				out.Set(y, x, float64(c.Y))
			}
		}
	}
	return out
}

// Apply returns img * mean(flat) / flat.  Pixels where the reference is zero
// (dead pixels) are set to zero.
func Apply(img, flat mat.Matrix) (*mat.Dense, error) {
	return ApplyWithDark(img, flat, nil)
}

// ApplyWithDark returns (img - dark) * mean(flat - dark) / (flat - dark).
// A nil dark reduces to Apply.
func ApplyWithDark(img, flat, dark mat.Matrix) (*mat.Dense, error) {
	r, c := img.Dims()
	fr, fc := flat.Dims()
	if r != fr || c != fc {
		return nil, fmt.Errorf("%w: frame %dx%d, flatfield %dx%d", ErrShape, r, c, fr, fc)
	}
	gain := mat.NewDense(r, c, nil)
	gain.Copy(flat)
	if dark != nil {
		dr, dc := dark.Dims()
		if r != dr || c != dc {
			return nil, fmt.Errorf("%w: frame %dx%d, darkfield %dx%d", ErrShape, r, c, dr, dc)
		}
		gain.Sub(gain, dark)
	}
	mean := stat.Mean(gain.RawMatrix().Data, nil)

	out := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			g := gain.At(i, j)
			if g == 0 {
				continue
			}
			v := img.At(i, j)
			if dark != nil {
				v -= dark.At(i, j)
			}
			out.Set(i, j, v*mean/g)
		}
	}
	return out, nil
}
