package formats

import (
	"bytes"
	"errors"
	"image"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/image/tiff"
	"gonum.org/v1/gonum/mat"

	"github.com/nasa-jpl/cred/frame"
)

func TestTIFFRoundTrip(t *testing.T) {
	img := mat.NewDense(3, 4, []float64{0, 1.5, 2, 3, 4, 5, 6, 7, 8, 9, 10, 65535.25})
	h := frame.Header{"ImageExposureTime": 0.5, "ImageCameraName": "timepix", "ImageBinsize": 1}
	var buf bytes.Buffer
	if err := EncodeTIFF(&buf, img, h); err != nil {
		t.Fatal(err)
	}
	got, gotH, err := DecodeTIFF(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if !mat.Equal(got, img) {
		t.Errorf("pixels differ after round trip: %v", mat.Formatted(got))
	}
	if diff := cmp.Diff(h, gotH); diff != "" {
		t.Errorf("header mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteTIFFNamesFrames(t *testing.T) {
	dir := t.TempDir()
	frames := testFrames(3, 8, 8)
	if err := WriteTIFF(dir, frames); err != nil {
		t.Fatal(err)
	}
	for i, want := range []string{"00001.tiff", "00002.tiff", "00003.tiff"} {
		f, err := ReadTIFF(filepath.Join(dir, want))
		if err != nil {
			t.Fatal(err)
		}
		if !mat.Equal(f.Image, frames[i].Image) {
			t.Errorf("%s does not hold frame %d", want, i)
		}
		if f.Header[frame.KeyGetTime] != frames[i].Header[frame.KeyGetTime] {
			t.Errorf("%s has header %v", want, f.Header)
		}
	}
}

func TestWriteTIFFReportsFrame(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "missing")
	err := WriteTIFF(dir, testFrames(2, 4, 4))
	var fe *FrameError
	if !errors.As(err, &fe) {
		t.Fatalf("expected a FrameError, got %v", err)
	}
	if fe.Index != 0 || fe.Path != filepath.Join(dir, "00001.tiff") {
		t.Errorf("unexpected frame error %+v", fe)
	}
}

func TestDecodeTIFFRejectsGarbage(t *testing.T) {
	if _, _, err := DecodeTIFF([]byte("GIF89a..")); !errors.Is(err, ErrTIFF) {
		t.Fatalf("expected ErrTIFF, got %v", err)
	}
}

func TestDecodeTIFFGray16(t *testing.T) {
	src := image.NewGray16(image.Rect(0, 0, 3, 2))
	vals := []uint16{0, 1, 512, 4096, 60000, 65535}
	for i, v := range vals {
		src.Pix[2*i] = uint8(v >> 8)
		src.Pix[2*i+1] = uint8(v)
	}
	var buf bytes.Buffer
	if err := tiff.Encode(&buf, src, nil); err != nil {
		t.Fatal(err)
	}
	got, h, err := DecodeTIFF(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	want := mat.NewDense(2, 3, []float64{0, 1, 512, 4096, 60000, 65535})
	if !mat.Equal(got, want) {
		t.Errorf("pixels differ: %v", mat.Formatted(got))
	}
	if len(h) != 0 {
		t.Errorf("expected an empty header, got %v", h)
	}
}
