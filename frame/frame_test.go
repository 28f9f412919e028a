package frame

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"gonum.org/v1/gonum/mat"
)

func TestBufferPopDrainsInOrder(t *testing.T) {
	b := NewBuffer()
	for i := 0; i < 4; i++ {
		b.Push(Frame{Image: mat.NewDense(1, 1, []float64{float64(i)}), Header: Header{"i": i}})
	}
	if b.Len() != 4 {
		t.Fatalf("expected 4 pending frames, got %d", b.Len())
	}
	for i := 0; i < 4; i++ {
		f, ok := b.Pop()
		if !ok {
			t.Fatalf("buffer empty after %d pops", i)
		}
		if f.Header["i"] != i {
			t.Errorf("pop %d returned frame %v", i, f.Header["i"])
		}
	}
	if _, ok := b.Pop(); ok {
		t.Error("expected Pop on an empty buffer to report !ok")
	}
	if b.Len() != 0 {
		t.Errorf("expected empty buffer, %d frames remain", b.Len())
	}
}

func TestFromU16RejectsShortBuffer(t *testing.T) {
	if _, err := FromU16(make([]uint16, 5), 2, 3); err == nil {
		t.Fatal("expected an error for a 5 pixel buffer described as 2x3")
	}
}

func TestCastsSaturate(t *testing.T) {
	img := mat.NewDense(1, 4, []float64{-5, 1.9, 70000, 40000})
	u := ToU16(img)
	if diff := cmp.Diff([]uint16{0, 1, 65535, 40000}, u); diff != "" {
		t.Errorf("ToU16 mismatch (-want +got):\n%s", diff)
	}
	i := ToI16(img)
	if diff := cmp.Diff([]int16{-5, 1, 32767, 32767}, i); diff != "" {
		t.Errorf("ToI16 mismatch (-want +got):\n%s", diff)
	}
}

func TestFlipUD(t *testing.T) {
	img := mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6})
	got := FlipUD(img)
	want := mat.NewDense(3, 2, []float64{5, 6, 3, 4, 1, 2})
	if !mat.Equal(got, want) {
		t.Errorf("FlipUD returned\n%v\nexpected\n%v", mat.Formatted(got), mat.Formatted(want))
	}
}
