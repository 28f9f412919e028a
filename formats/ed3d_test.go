package formats

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestED3DAngles(t *testing.T) {
	dir := t.TempDir()
	s := Scan{OscAngle: 0.5, StartAngle: 10}
	if err := WriteED3D(dir, 3, testGeometry(), s); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(filepath.Join(dir, ED3DName))
	if err != nil {
		t.Fatal(err)
	}
	var angles []string
	for _, line := range strings.Split(string(b), "\n") {
		if strings.HasPrefix(line, "FILE ") {
			fields := strings.Fields(line)
			if fields[2] != fields[4] || fields[3] != "0" {
				t.Errorf("malformed FILE line %q", line)
			}
			angles = append(angles, fields[2])
		}
	}
	want := []string{"10.0", "10.5", "11.0"}
	if strings.Join(angles, ",") != strings.Join(want, ",") {
		t.Errorf("expected angles %v, got %v", want, angles)
	}
}

func TestED3DLayout(t *testing.T) {
	var buf bytes.Buffer
	g := testGeometry()
	s := Scan{OscAngle: 0.25, StartAngle: -30, RotationAngle: 2.5}
	if err := EncodeED3D(&buf, "/data/RED", 2, g, s); err != nil {
		t.Fatal(err)
	}
	want := "WAVELENGTH    0.02508\n" +
		"ROTATIONAXIS    2.5\n" +
		"CCDPIXELSIZE    0.00838\n" +
		"GONIOTILTSTEP    0.25\n" +
		"BEAMTILTSTEP    0\n" +
		"BEAMTILTRANGE    0.000\n" +
		"STRETCHINGMP    0.0\n" +
		"STRETCHINGAZIMUTH    0.0\n" +
		"\n" +
		"FILELIST\n" +
		"FILE /data/RED/00001.img    -30.0    0    -30.0\n" +
		"FILE /data/RED/00002.img    -29.75    0    -29.75\n" +
		"ENDFILELIST"
	if got := buf.String(); got != want {
		t.Errorf("unexpected ed3d contents:\n%s\nexpected:\n%s", got, want)
	}
}
