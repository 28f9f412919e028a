package stretch

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestZeroAmplitudeIsIdentity(t *testing.T) {
	tf := Transform(-6.61, 0)
	if !mat.EqualApprox(tf, mat.NewDiagDense(2, []float64{1, 1}), 1e-15) {
		t.Fatalf("expected identity transform, got %v", mat.Formatted(tf))
	}
	img := mat.NewDense(4, 5, []float64{
		1, 2, 3, 4, 5,
		6, 7, 8, 9, 10,
		11, 12, 13, 14, 15,
		16, 17, 18, 19, 20})
	out := Apply(img, [2]float64{1.5, 2.25}, -6.61, 0)
	if !mat.EqualApprox(out, img, 1e-9) {
		t.Errorf("expected unchanged image, got %v", mat.Formatted(out))
	}
}

func TestTransformAlongAzimuth(t *testing.T) {
	// with no rotation the axes are scaled by 1-s and 1+s
	tf := Transform(0, 2.43)
	s := 2.43 / 200
	want := mat.NewDense(2, 2, []float64{1 - s, 0, 0, 1 + s})
	if !mat.EqualApprox(tf, want, 1e-15) {
		t.Errorf("expected %v got %v", mat.Formatted(want), mat.Formatted(tf))
	}
	// the determinant is rotation invariant
	d := mat.Det(Transform(-6.61, 2.43))
	if math.Abs(d-(1-s)*(1+s)) > 1e-12 {
		t.Errorf("expected determinant %f, got %f", (1-s)*(1+s), d)
	}
}

func TestCenterIsFixedPoint(t *testing.T) {
	img := mat.NewDense(9, 9, nil)
	img.Set(4, 4, 100)
	out := Apply(img, [2]float64{4, 4}, 30, 10)
	if math.Abs(out.At(4, 4)-100) > 1e-9 {
		t.Errorf("expected the pixel at the center to be preserved, got %f", out.At(4, 4))
	}
}

func TestOutsideSamplesAreZero(t *testing.T) {
	img := mat.NewDense(3, 3, []float64{1, 1, 1, 1, 1, 1, 1, 1, 1})
	// a 2x magnification about the origin samples outside for the far corner
	out := ApplyTransform(img, [2]float64{0, 0}, mat.NewDiagDense(2, []float64{2, 2}))
	if out.At(2, 2) != 0 {
		t.Errorf("expected zero fill outside the frame, got %f", out.At(2, 2))
	}
	if out.At(0, 0) != 1 {
		t.Errorf("expected origin to be preserved, got %f", out.At(0, 0))
	}
}
