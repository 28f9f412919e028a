package formats

import (
	_ "embed"
	"fmt"
	"io"
	"log"
	"math"
	"path/filepath"
	"text/template"
)

// XDSName is the name of the XDS control file
const XDSName = "XDS.INP"

//go:embed xds.tmpl
var defaultXDSTemplate string

// XDSParams are the values substituted into the XDS.INP template
type XDSParams struct {
	DataBegin, DataEnd int
	StartingAngle      float64
	Wavelength         float64
	DMin, DMax         float64
	OriginX, OriginY   float64
	Sign               string
	DetectorDistance   float64
	OscAngle           float64
	RotX, RotY, RotZ   float64
}

// NewXDSParams returns the template values for n frames
func NewXDSParams(n int, g Geometry, s Scan) XDSParams {
	return XDSParams{
		DataBegin:        1,
		DataEnd:          n,
		StartingAngle:    s.StartAngle,
		Wavelength:       g.Wavelength,
		DMin:             s.DMin,
		DMax:             s.DMax,
		OriginX:          g.BeamCenter[0],
		OriginY:          g.BeamCenter[1],
		Sign:             "+",
		DetectorDistance: g.Distance,
		OscAngle:         s.OscAngle,
		RotX:             math.Cos(s.RotationAngle),
		RotY:             math.Cos(s.RotationAngle + math.Pi/2),
		RotZ:             0,
	}
}

// ParseXDSTemplate parses tmpl as a text/template.  An empty tmpl selects the
// built in template.
func ParseXDSTemplate(tmpl string) (*template.Template, error) {
	if tmpl == "" {
		tmpl = defaultXDSTemplate
	}
	return template.New(XDSName).Option("missingkey=error").Parse(tmpl)
}

// WriteXDS fills tmpl for n frames and writes it to dir/XDS.INP.  A nil tmpl
// selects the built in template.
func WriteXDS(dir string, n int, g Geometry, s Scan, tmpl *template.Template) error {
	log.Println("Creating XDS inp file......")
	if tmpl == nil {
		var err error
		if tmpl, err = ParseXDSTemplate(""); err != nil {
			return err
		}
	}
	p := NewXDSParams(n, g, s)
	fn := filepath.Join(dir, XDSName)
	err := writeFile(fn, func(w io.Writer) error { return tmpl.Execute(w, p) })
	if err != nil {
		return fmt.Errorf("XDS: %s: %w", fn, err)
	}
	log.Printf(" >> Wrote %s.", fn)
	return nil
}
