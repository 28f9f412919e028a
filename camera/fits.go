package camera

import (
	"errors"
	"fmt"
	"io"

	"github.com/astrogo/fitsio"

	"github.com/nasa-jpl/cred/frame"
)

// FITS keyword prefixes for the per-frame headers.  The frame number (1-based,
// 4 digits) completes the 8 character keyword, e.g. GETT0001.
const (
	fitsGetTime  = "GETT"
	fitsExposure = "EXPT"
	fitsCamera   = "CAMN"
	fitsBinsize  = "BINS"
)

// MaxFITSFrames is the most frames SaveFITS can index in 8 character keywords
const MaxFITSFrames = 9999

// ErrFITS is returned for FITS files that do not hold a frame cube
var ErrFITS = errors.New("FITS file is not a 16-bit frame cube")

func fitsKey(prefix string, i int) string {
	return fmt.Sprintf("%s%04d", prefix, i+1)
}

// SaveFITS streams the frames of buf to w as one 16-bit cube, offset by
// BZERO=32768.  The buffer is not consumed.  All frames must share a shape.
func SaveFITS(w io.Writer, buf *frame.Buffer) error {
	n := buf.Len()
	if n == 0 {
		return ErrNoFrames
	}
	if n > MaxFITSFrames {
		return fmt.Errorf("%d frames exceeds the FITS limit of %d", n, MaxFITSFrames)
	}
	res := buf.Peek(0).Res()
	height, width := res[0], res[1]
	metadata := []fitsio.Card{
		{Name: "BZERO", Value: 32768},
		{Name: "BSCALE", Value: 1.0},
	}
	ints := make([]int16, 0, n*height*width)
	for i := 0; i < n; i++ {
		f := buf.Peek(i)
		if f.Res() != res {
			return fmt.Errorf("frame %d: shape %v differs from frame 0 %v", i, f.Res(), res)
		}
		for _, u := range frame.ToU16(f.Image) {
			ints = append(ints, int16(u-32768))
		}
		metadata = append(metadata, headerCards(f.Header, i)...)
	}

	fits, err := fitsio.Create(w)
	if err != nil {
		return err
	}
	defer fits.Close()
	dims := []int{width, height}
	if n > 1 {
		dims = append(dims, n)
	}
	im := fitsio.NewImage(16, dims)
	defer im.Close()
	err = im.Header().Append(metadata...)
	if err != nil {
		return err
	}
	err = im.Write(ints)
	if err != nil {
		return err
	}
	return fits.Write(im)
}

func headerCards(h frame.Header, i int) []fitsio.Card {
	var cards []fitsio.Card
	if v, ok := toFloat(h[frame.KeyGetTime]); ok {
		cards = append(cards, fitsio.Card{Name: fitsKey(fitsGetTime, i), Value: v, Comment: "readout unix time"})
	}
	if v, ok := toFloat(h[frame.KeyExposureTime]); ok {
		cards = append(cards, fitsio.Card{Name: fitsKey(fitsExposure, i), Value: v, Comment: "exposure time [s]"})
	}
	if v, ok := h[frame.KeyCameraName].(string); ok {
		cards = append(cards, fitsio.Card{Name: fitsKey(fitsCamera, i), Value: v})
	}
	if v, ok := toFloat(h[frame.KeyBinsize]); ok {
		cards = append(cards, fitsio.Card{Name: fitsKey(fitsBinsize, i), Value: int(v)})
	}
	return cards
}

// LoadFITS reads a cube written by SaveFITS into a new buffer
func LoadFITS(r io.Reader) (*frame.Buffer, error) {
	fits, err := fitsio.Open(r)
	if err != nil {
		return nil, err
	}
	defer fits.Close()
	img, ok := fits.HDU(0).(fitsio.Image)
	if !ok {
		return nil, ErrFITS
	}
	hdr := img.Header()
	axes := hdr.Axes()
	if hdr.Bitpix() != 16 || len(axes) < 2 || len(axes) > 3 {
		return nil, ErrFITS
	}
	width, height, n := axes[0], axes[1], 1
	if len(axes) == 3 {
		n = axes[2]
	}
	ints := make([]int16, width*height*n)
	err = img.Read(&ints)
	if err != nil {
		return nil, err
	}

	buf := frame.NewBuffer()
	sz := width * height
	for i := 0; i < n; i++ {
		uints := make([]uint16, sz)
		for j, v := range ints[i*sz : (i+1)*sz] {
			uints[j] = uint16(v) + 32768
		}
		m, err := frame.FromU16(uints, height, width)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		buf.Push(frame.Frame{Image: m, Header: headerFromCards(hdr, i)})
	}
	return buf, nil
}

func headerFromCards(hdr *fitsio.Header, i int) frame.Header {
	h := frame.Header{}
	if c := hdr.Get(fitsKey(fitsGetTime, i)); c != nil {
		if v, ok := toFloat(c.Value); ok {
			h[frame.KeyGetTime] = v
		}
	}
	if c := hdr.Get(fitsKey(fitsExposure, i)); c != nil {
		if v, ok := toFloat(c.Value); ok {
			h[frame.KeyExposureTime] = v
		}
	}
	if c := hdr.Get(fitsKey(fitsCamera, i)); c != nil {
		if v, ok := c.Value.(string); ok {
			h[frame.KeyCameraName] = v
		}
	}
	if c := hdr.Get(fitsKey(fitsBinsize, i)); c != nil {
		if v, ok := toFloat(c.Value); ok {
			h[frame.KeyBinsize] = int(v)
		}
	}
	return h
}

func toFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case int32:
		return float64(t), true
	default:
		return 0, false
	}
}
