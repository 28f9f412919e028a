package formats

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"path/filepath"

	"github.com/nasa-jpl/cred/util"
)

// ED3DName is the name of the REDp frame list
const ED3DName = "1.ed3d"

// WriteED3D writes the REDp frame list for n frames to dir/1.ed3d.  The
// frames are referenced as dir/NNNNN.img.
func WriteED3D(dir string, n int, g Geometry, s Scan) error {
	log.Println("Creating ed3d file......")
	fn := filepath.Join(dir, ED3DName)
	err := writeFile(fn, func(w io.Writer) error {
		return EncodeED3D(w, dir, n, g, s)
	})
	if err != nil {
		return fmt.Errorf("ED3D: %s: %w", fn, err)
	}
	log.Printf("Ed3d file created in path: %s", dir)
	return nil
}

// EncodeED3D streams the ED3D manifest for n frames located in dir to w
func EncodeED3D(w io.Writer, dir string, n int, g Geometry, s Scan) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "WAVELENGTH    %s\n", util.FormatFloat(g.Wavelength))
	fmt.Fprintf(bw, "ROTATIONAXIS    %s\n", util.FormatFloat(s.RotationAngle))
	fmt.Fprintf(bw, "CCDPIXELSIZE    %s\n", util.FormatFloat(g.PixelSize))
	fmt.Fprintf(bw, "GONIOTILTSTEP    %s\n", util.FormatFloat(s.OscAngle))
	bw.WriteString("BEAMTILTSTEP    0\n")
	bw.WriteString("BEAMTILTRANGE    0.000\n")
	bw.WriteString("STRETCHINGMP    0.0\n")
	bw.WriteString("STRETCHINGAZIMUTH    0.0\n")
	bw.WriteString("\n")
	bw.WriteString("FILELIST\n")
	for i := 0; i < n; i++ {
		ang := util.FormatFloat(s.Angle(i))
		fmt.Fprintf(bw, "FILE %s    %s    0    %s\n", filepath.Join(dir, Filename(i, "img")), ang, ang)
	}
	bw.WriteString("ENDFILELIST")
	return bw.Flush()
}
