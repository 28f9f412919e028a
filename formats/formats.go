/*Package formats writes cRED frame sequences in the file formats consumed by
downstream crystallography software.

Five encoders are provided:

	WriteTIFF  NNNNN.tiff  corrected frames with their acquisition header
	WriteSMV   NNNNN.img   ADSC/SMV frames for XDS and DIALS
	WriteMRC   NNNNN.img   MRC frames for REDp
	WriteED3D  1.ed3d      REDp frame list
	WriteXDS   XDS.INP     XDS control file

All encoders are stateless.  Frame i (0-based) is always written to index
i+1 so that every format describes the same sequence.  SMV and MRC share the
.img extension and must be written to different folders.

*/
package formats

import (
	"errors"
	"fmt"
)

// Geometry is the experiment-wide detector geometry shared by all frames
type Geometry struct {
	// BeamCenter is the primary beam position in pixels, (axis 0, axis 1)
	BeamCenter [2]float64

	// PixelSize is the reciprocal space size of one pixel for the camera length
	PixelSize float64

	// PhysicalPixelSize is the detector pixel pitch in mm
	PhysicalPixelSize float64

	// Wavelength is the electron wavelength in Angstrom
	Wavelength float64

	// Distance is the effective sample to detector distance in mm
	Distance float64
}

// Scan holds the rotation parameters of a continuous rotation scan
type Scan struct {
	// OscAngle is the rotation per frame in degrees
	OscAngle float64 `koanf:"OscAngle" yaml:"OscAngle"`

	// StartAngle is the goniometer angle of the first frame in degrees
	StartAngle float64 `koanf:"StartAngle" yaml:"StartAngle"`

	// EndAngle is the goniometer angle at the end of the scan in degrees
	EndAngle float64 `koanf:"EndAngle" yaml:"EndAngle"`

	// RotationAngle is the direction of the rotation axis on the detector, radians
	RotationAngle float64 `koanf:"RotationAngle" yaml:"RotationAngle"`

	// DMax is the low resolution limit in Angstrom
	DMax float64 `koanf:"DMax" yaml:"DMax"`

	// DMin is the high resolution limit in Angstrom
	DMin float64 `koanf:"DMin" yaml:"DMin"`
}

// Angle is the goniometer angle of frame i (0-based)
func (s Scan) Angle(i int) float64 {
	return s.StartAngle + s.OscAngle*float64(i)
}

// Filename returns the name of frame i (0-based) with extension ext
func Filename(i int, ext string) string {
	return fmt.Sprintf("%05d.%s", i+1, ext)
}

// Field is one KEY=value pair of a text header
type Field struct {
	Key   string
	Value string
}

// ErrShape is returned when a frame does not match the geometry a format requires
var ErrShape = errors.New("unsupported frame shape")

// FrameError reports the failure to write one frame
type FrameError struct {
	// Format is the name of the encoder, e.g. "SMV"
	Format string

	// Index is the 0-based frame index
	Index int

	// Path is the file that was being written
	Path string

	Err error
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("%s: frame %d (%s): %v", e.Format, e.Index, e.Path, e.Err)
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

// HeaderError reports a frame header that lacks a field an encoder needs
type HeaderError struct {
	// Index is the 0-based frame index
	Index int

	// Field is the missing header key
	Field string
}

func (e *HeaderError) Error() string {
	return fmt.Sprintf("frame %d: header has no field %q", e.Index, e.Field)
}
