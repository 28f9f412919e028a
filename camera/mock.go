package camera

import (
	"math"
	"math/rand"
	"time"
)

// Mock is a simulated detector.  Each frame holds a Gaussian primary beam
// on a noisy background.
type Mock struct {
	// Res is the (H, W) of the frames
	Res [2]int

	// Center is the (row, col) of the primary beam
	Center [2]float64

	// Width is the 1/e half width of the primary beam in pixels
	Width float64

	// Peak is the beam intensity in counts
	Peak float64

	// Background is the mean background level in counts
	Background float64

	// Exposure is the reported exposure time
	Exposure time.Duration

	rng *rand.Rand
}

// NewMock returns a 516x516 mock detector with the beam at center
func NewMock(center [2]float64, exposure time.Duration) *Mock {
	return &Mock{
		Res:        [2]int{516, 516},
		Center:     center,
		Width:      3,
		Peak:       30000,
		Background: 10,
		Exposure:   exposure,
		rng:        rand.New(rand.NewSource(1)),
	}
}

// GetRes returns the resolution of the mock
func (m *Mock) GetRes() ([2]int, error) {
	return m.Res, nil
}

// GetFrameU16 renders one frame
func (m *Mock) GetFrameU16() (*[]uint16, error) {
	h, w := m.Res[0], m.Res[1]
	buf := make([]uint16, h*w)
	for i := 0; i < h; i++ {
		dy := float64(i) - m.Center[0]
		for j := 0; j < w; j++ {
			dx := float64(j) - m.Center[1]
			v := m.Peak * math.Exp(-(dx*dx+dy*dy)/(m.Width*m.Width))
			if m.rng != nil && m.Background > 0 {
				v += m.rng.Float64() * 2 * m.Background
			}
			buf[i*w+j] = uint16(math.Min(v, math.MaxUint16))
		}
	}
	return &buf, nil
}

// GetExposureTime returns the configured exposure time
func (m *Mock) GetExposureTime() (time.Duration, error) {
	return m.Exposure, nil
}

// Name identifies the mock
func (m *Mock) Name() string {
	return "mock"
}
