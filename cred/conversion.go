/*Package cred converts a cRED (continuous rotation electron diffraction)
frame sequence into the file formats used by crystallographic processing
software.

A Conversion is built once from a buffer of raw frames.  Construction
flatfield-corrects every frame, estimates a single experiment geometry and
takes ownership of the frames, leaving the buffer empty.  The Conversion is
read-only afterwards; its Write methods may be called any number of times, in
any order, each writing one format into a caller supplied folder.

*/
package cred

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"gonum.org/v1/gonum/mat"

	"github.com/nasa-jpl/cred/flatfield"
	"github.com/nasa-jpl/cred/formats"
	"github.com/nasa-jpl/cred/frame"
)

// Format names understood by Conversion.Write
const (
	FormatTIFF = "tiff"
	FormatSMV  = "smv"
	FormatMRC  = "mrc"
	FormatED3D = "ed3d"
	FormatXDS  = "xds"
)

// Formats lists every format in the order a full conversion writes them
var Formats = []string{FormatTIFF, FormatSMV, FormatMRC, FormatED3D, FormatXDS}

var (
	// ErrUnknownFormat is returned by Write for a format not in Formats
	ErrUnknownFormat = errors.New("unknown output format")

	// ErrIMGCollision is returned when SMV and MRC frames would share a folder
	ErrIMGCollision = errors.New(".img files of another format already present")
)

// Conversion holds the corrected frames of one experiment and its geometry
type Conversion struct {
	frames []frame.Frame
	geom   formats.Geometry
	scan   formats.Scan
	xds    *template.Template
}

// New builds a Conversion from buf.  Every resource named by cfg is loaded
// and the geometry is estimated before buf is touched; on any error buf is
// left as it was.  On success buf is empty.
func New(buf *frame.Buffer, cfg Config, exp Experiment) (*Conversion, error) {
	if err := cfg.check(); err != nil {
		return nil, err
	}
	flat, err := flatfield.Load(cfg.Flatfield)
	if err != nil {
		return nil, fmt.Errorf("%w: flatfield: %w", ErrConfig, err)
	}
	var dark *mat.Dense
	if cfg.Darkfield != "" {
		dark, err = flatfield.Load(cfg.Darkfield)
		if err != nil {
			return nil, fmt.Errorf("%w: darkfield: %w", ErrConfig, err)
		}
	}
	tmpl, err := loadXDSTemplate(cfg.XDSTemplate)
	if err != nil {
		return nil, err
	}

	n := buf.Len()
	if n == 0 {
		return nil, ErrNoFrames
	}
	frames := make([]frame.Frame, n)
	for i := 0; i < n; i++ {
		f := buf.Peek(i)
		var img *mat.Dense
		if dark == nil {
			img, err = flatfield.Apply(f.Image, flat)
		} else {
			img, err = flatfield.ApplyWithDark(f.Image, flat, dark)
		}
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		frames[i] = frame.Frame{Image: img, Header: f.Header}
	}

	geom, err := EstimateGeometry(frames, cfg, exp.CameraLength)
	if err != nil {
		return nil, err
	}
	for buf.Len() > 0 {
		buf.Pop()
	}
	log.Printf("Primary beam at: %v", geom.BeamCenter)
	return &Conversion{frames: frames, geom: geom, scan: exp.Scan, xds: tmpl}, nil
}

func loadXDSTemplate(path string) (*template.Template, error) {
	var text string
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: XDS template: %w", ErrConfig, err)
		}
		text = string(b)
	}
	tmpl, err := formats.ParseXDSTemplate(text)
	if err != nil {
		return nil, fmt.Errorf("%w: XDS template: %w", ErrConfig, err)
	}
	return tmpl, nil
}

// Len is the number of frames in the conversion
func (c *Conversion) Len() int {
	return len(c.frames)
}

// Geometry returns the experiment geometry
func (c *Conversion) Geometry() formats.Geometry {
	return c.geom
}

// Scan returns the rotation parameters
func (c *Conversion) Scan() formats.Scan {
	return c.scan
}

// Header returns a copy of the acquisition header of frame i
func (c *Conversion) Header(i int) frame.Header {
	return c.frames[i].Header.Copy()
}

// WriteTIFF writes the corrected frames as TIFF files in dir
func (c *Conversion) WriteTIFF(dir string) error {
	return formats.WriteTIFF(dir, c.frames)
}

// WriteSMV writes the frames as SMV files in dir.  It refuses a folder that
// holds MRC frames.
func (c *Conversion) WriteSMV(dir string) error {
	if err := c.checkIMG(dir, formats.KindMRC); err != nil {
		return err
	}
	return formats.WriteSMV(dir, c.frames, c.geom, c.scan)
}

// WriteMRC writes the distortion corrected frames as MRC files in dir.  It
// refuses a folder that holds SMV frames.
func (c *Conversion) WriteMRC(dir string) error {
	if err := c.checkIMG(dir, formats.KindSMV); err != nil {
		return err
	}
	center := c.geom.BeamCenter
	return formats.WriteMRC(dir, c.frames, func(img *mat.Dense) *mat.Dense {
		return FixDistortion(img, center)
	})
}

// WriteED3D writes the REDp frame list to dir.  The list names the .img
// files in dir, so it belongs next to the MRC frames.
func (c *Conversion) WriteED3D(dir string) error {
	return formats.WriteED3D(dir, len(c.frames), c.geom, c.scan)
}

// WriteXDS writes XDS.INP to dir
func (c *Conversion) WriteXDS(dir string) error {
	return formats.WriteXDS(dir, len(c.frames), c.geom, c.scan, c.xds)
}

// Write writes one format, by name, to dir
func (c *Conversion) Write(format, dir string) error {
	switch strings.ToLower(format) {
	case FormatTIFF:
		return c.WriteTIFF(dir)
	case FormatSMV:
		return c.WriteSMV(dir)
	case FormatMRC:
		return c.WriteMRC(dir)
	case FormatED3D:
		return c.WriteED3D(dir)
	case FormatXDS:
		return c.WriteXDS(dir)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// checkIMG returns ErrIMGCollision if any of the .img files this conversion
// would write to dir already holds a frame of kind other.  Unrecognised files,
// such as those left truncated by an earlier failed write, are overwritten.
func (c *Conversion) checkIMG(dir, other string) error {
	for i := range c.frames {
		fn := filepath.Join(dir, formats.Filename(i, "img"))
		kind, err := formats.SniffIMG(fn)
		if errors.Is(err, formats.ErrUnknownIMG) {
			continue
		}
		if err != nil {
			return fmt.Errorf("%s: %w", fn, err)
		}
		if kind == other {
			return fmt.Errorf("%w: %s is %s", ErrIMGCollision, fn, kind)
		}
	}
	return nil
}
