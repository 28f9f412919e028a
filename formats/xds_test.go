package formats

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestXDSParamsRotationAxis(t *testing.T) {
	s := testScan()
	s.RotationAngle = math.Pi / 3
	p := NewXDSParams(5, testGeometry(), s)
	if math.Abs(p.RotX-0.5) > 1e-12 || math.Abs(p.RotY+math.Sqrt(3)/2) > 1e-12 || p.RotZ != 0 {
		t.Errorf("unexpected rotation axis (%f, %f, %f)", p.RotX, p.RotY, p.RotZ)
	}
	if p.DataBegin != 1 || p.DataEnd != 5 {
		t.Errorf("expected data range 1..5, got %d..%d", p.DataBegin, p.DataEnd)
	}
}

func TestWriteXDSDefaultTemplate(t *testing.T) {
	dir := t.TempDir()
	if err := WriteXDS(dir, 3, testGeometry(), testScan(), nil); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(filepath.Join(dir, XDSName))
	if err != nil {
		t.Fatal(err)
	}
	out := string(b)
	for _, want := range []string{
		"DATA_RANGE=          1 3\n",
		"STARTING_ANGLE= 10.0000\n",
		"OSCILLATION_RANGE= 0.5000\n",
		"ORGX= 255.50  ORGY= 260.25\n",
		"DETECTOR_DISTANCE= +237.90\n",
		"ROTATION_AXIS= 1.0000 0.0000 0.0000\n",
		"X-RAY_WAVELENGTH= 0.025080\n",
		"INCLUDE_RESOLUTION_RANGE= 20.00 0.80\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("XDS.INP lacks %q", want)
		}
	}
}

func TestWriteXDSCustomTemplate(t *testing.T) {
	tmpl, err := ParseXDSTemplate("{{.DataBegin}}-{{.DataEnd}} {{.Sign}}")
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	if err = WriteXDS(dir, 7, testGeometry(), testScan(), tmpl); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(filepath.Join(dir, XDSName))
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "1-7 +" {
		t.Errorf("unexpected output %q", b)
	}
}
