/*Package camera describes the interfaces a diffraction detector satisfies and
the acquisition loop that fills a frame buffer from one.

The Minimal type contains the basics; Exposer, Binner and Namer are optional
and add metadata to the frame headers when a camera implements them.

*/
package camera

import (
	"errors"
	"fmt"
	"time"

	"github.com/nasa-jpl/cred/frame"
	"github.com/nasa-jpl/cred/util"
)

// Minimal describes a minimal camera interface with only the basics.
type Minimal interface {
	// GetRes gets the (H, W) associated with the data returned by GetFrameU16
	GetRes() ([2]int, error)

	// GetFrameU16 gets a frame as uint16.  The data is a 1D slice which is
	// strided by the frame width.
	GetFrameU16() (*[]uint16, error)
}

// Exposer is a camera with a readable exposure time
type Exposer interface {
	// GetExposureTime gets the exposure time
	GetExposureTime() (time.Duration, error)
}

// Binner is a camera with hardware binning
type Binner interface {
	// GetBinning gets the binning factor
	GetBinning() (int, error)
}

// Namer is a camera which can identify itself
type Namer interface {
	Name() string
}

// ErrNoFrames is returned by Acquire when asked for fewer than one frame
var ErrNoFrames = errors.New("frame count must be positive")

// now is the clock used to timestamp frames
var now = time.Now

// Acquire reads n frames from cam into a new buffer.  Each header carries the
// readout time and whatever metadata the optional interfaces provide.
func Acquire(cam Minimal, n int) (*frame.Buffer, error) {
	if n < 1 {
		return nil, ErrNoFrames
	}
	buf := frame.NewBuffer()
	for i := 0; i < n; i++ {
		f, err := acquireOne(cam)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		buf.Push(f)
	}
	return buf, nil
}

func acquireOne(cam Minimal) (frame.Frame, error) {
	res, err := cam.GetRes()
	if err != nil {
		return frame.Frame{}, err
	}
	pix, err := cam.GetFrameU16()
	if err != nil {
		return frame.Frame{}, err
	}
	t := now()
	img, err := frame.FromU16(*pix, res[0], res[1])
	if err != nil {
		return frame.Frame{}, err
	}
	h := frame.Header{
		frame.KeyGetTime: float64(t.Unix()) + float64(t.Nanosecond())/1e9,
	}
	if e, ok := cam.(Exposer); ok {
		d, err := e.GetExposureTime()
		if err != nil {
			return frame.Frame{}, err
		}
		h[frame.KeyExposureTime] = util.DurationToSecs(d)
	}
	if b, ok := cam.(Binner); ok {
		bin, err := b.GetBinning()
		if err != nil {
			return frame.Frame{}, err
		}
		h[frame.KeyBinsize] = bin
	}
	if nm, ok := cam.(Namer); ok {
		h[frame.KeyCameraName] = nm.Name()
	}
	return frame.Frame{Image: img, Header: h}, nil
}
