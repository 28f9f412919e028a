package cred

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/nasa-jpl/cred/formats"
)

// Calibration constants of the Timepix detector on the JEOL 2100.  They were
// fitted empirically and are kept verbatim.
const (
	// PhysicalPixelSize is the detector pixel pitch in mm
	PhysicalPixelSize = 0.055

	// Wavelength is the electron wavelength at 200 kV in Angstrom
	Wavelength = 0.025080

	// distanceNumerator and distanceScale map a pixel size to the
	// effective sample to detector distance
	distanceNumerator = 483.89
	distanceScale     = 0.00412

	// StretchAzimuth is the azimuth of the elliptical distortion in degrees
	StretchAzimuth = -6.61

	// StretchAmplitude is the amplitude of the elliptical distortion in percent
	StretchAmplitude = 2.43

	// CenterSigma is the smoothing used to find the primary beam
	CenterSigma = 10
)

// ErrConfig is wrapped by every configuration error
var ErrConfig = errors.New("configuration error")

// Config holds the calibration and resources of a conversion.  It is passed
// to New and not retained.
type Config struct {
	// Flatfield is the path to the flatfield reference TIFF
	Flatfield string `koanf:"Flatfield" yaml:"Flatfield"`

	// Darkfield is an optional path to a darkfield reference TIFF
	Darkfield string `koanf:"Darkfield" yaml:"Darkfield"`

	// PixelSizes maps a camera length (as text, e.g. "150") to the pixel size
	// in reciprocal Angstrom
	PixelSizes map[string]float64 `koanf:"PixelSizes" yaml:"PixelSizes"`

	// PhysicalPixelSize is the detector pixel pitch in mm
	PhysicalPixelSize float64 `koanf:"PhysicalPixelSize" yaml:"PhysicalPixelSize"`

	// Wavelength is the electron wavelength in Angstrom
	Wavelength float64 `koanf:"Wavelength" yaml:"Wavelength"`

	// XDSTemplate is an optional path to an XDS.INP text/template.  The
	// built in template is used when empty.
	XDSTemplate string `koanf:"XDSTemplate" yaml:"XDSTemplate"`
}

// DefaultConfig returns a Config holding the calibrated constants and no
// pixel size table
func DefaultConfig() Config {
	return Config{
		Flatfield:         "flatfield.tiff",
		PixelSizes:        map[string]float64{},
		PhysicalPixelSize: PhysicalPixelSize,
		Wavelength:        Wavelength,
	}
}

// Experiment holds the per-experiment settings of a conversion
type Experiment struct {
	// CameraLength is the microscope camera length, used to look up the
	// pixel size
	CameraLength int `koanf:"CameraLength" yaml:"CameraLength"`

	// Scan holds the rotation parameters
	Scan formats.Scan `koanf:"Scan" yaml:"Scan"`
}

// PixelSize returns the pixel size for a camera length.  Missing entries and
// the sentinel values 0 and 1 are configuration errors.
func (c Config) PixelSize(cameraLength int) (float64, error) {
	px, ok := c.PixelSizes[strconv.Itoa(cameraLength)]
	if !ok {
		return 0, fmt.Errorf("%w: no pixel size for camera length %d", ErrConfig, cameraLength)
	}
	if px == 0 || px == 1 || !positiveFinite(px) {
		return 0, fmt.Errorf("%w: invalid pixel size %v for camera length %d", ErrConfig, px, cameraLength)
	}
	return px, nil
}

// Distance returns the effective sample to detector distance in mm for a
// pixel size
func Distance(pixelSize float64) (float64, error) {
	if pixelSize == 0 || pixelSize == 1 || !positiveFinite(pixelSize) {
		return 0, fmt.Errorf("%w: invalid pixel size %v", ErrConfig, pixelSize)
	}
	d := distanceNumerator * distanceScale / pixelSize
	if !positiveFinite(d) {
		return 0, fmt.Errorf("%w: pixel size %v gives distance %v", ErrConfig, pixelSize, d)
	}
	return d, nil
}

// check validates the physical constants of c
func (c Config) check() error {
	if !positiveFinite(c.Wavelength) {
		return fmt.Errorf("%w: invalid wavelength %v", ErrConfig, c.Wavelength)
	}
	if !positiveFinite(c.PhysicalPixelSize) {
		return fmt.Errorf("%w: invalid physical pixel size %v", ErrConfig, c.PhysicalPixelSize)
	}
	if c.Flatfield == "" {
		return fmt.Errorf("%w: no flatfield reference configured", ErrConfig)
	}
	return nil
}

func positiveFinite(f float64) bool {
	return f > 0 && !math.IsInf(f, 0) && !math.IsNaN(f)
}
