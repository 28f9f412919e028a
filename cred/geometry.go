package cred

import (
	"errors"
	"fmt"

	"github.com/nasa-jpl/cred/beamcenter"
	"github.com/nasa-jpl/cred/formats"
	"github.com/nasa-jpl/cred/frame"
)

// ErrNoFrames is returned when a conversion is asked to work on an empty buffer
var ErrNoFrames = errors.New("no frames to convert")

// EstimateGeometry derives the experiment geometry from the corrected frames.
// The beam center is the mean of the per-frame primary beam positions; beam
// drift during the scan is not tracked.
func EstimateGeometry(frames []frame.Frame, cfg Config, cameraLength int) (formats.Geometry, error) {
	var g formats.Geometry
	if err := cfg.check(); err != nil {
		return g, err
	}
	px, err := cfg.PixelSize(cameraLength)
	if err != nil {
		return g, err
	}
	d, err := Distance(px)
	if err != nil {
		return g, err
	}
	if len(frames) == 0 {
		return g, ErrNoFrames
	}
	centers := make([][2]float64, len(frames))
	for i, f := range frames {
		c, err := beamcenter.Find(f.Image, CenterSigma)
		if err != nil {
			return g, fmt.Errorf("frame %d: %w", i, err)
		}
		centers[i] = c
	}
	mean, err := beamcenter.Mean(centers)
	if err != nil {
		return g, err
	}
	g = formats.Geometry{
		BeamCenter:        mean,
		PixelSize:         px,
		PhysicalPixelSize: cfg.PhysicalPixelSize,
		Wavelength:        cfg.Wavelength,
		Distance:          d,
	}
	return g, nil
}
