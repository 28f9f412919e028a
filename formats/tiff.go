package formats

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"

	"golang.org/x/image/tiff"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v2"

	"github.com/nasa-jpl/cred/frame"
)

// TIFF tags used by the writer and reader
const (
	tagImageWidth       = 256
	tagImageLength      = 257
	tagBitsPerSample    = 258
	tagCompression      = 259
	tagPhotometric      = 262
	tagImageDescription = 270
	tagStripOffsets     = 273
	tagSamplesPerPixel  = 277
	tagRowsPerStrip     = 278
	tagStripByteCounts  = 279
	tagSoftware         = 305
	tagSampleFormat     = 339

	dtASCII = 2
	dtShort = 3
	dtLong  = 4

	sampleUint  = 1
	sampleFloat = 3
)

// Software is written to the Software tag of TIFF files
var Software = "cred"

// ErrTIFF is returned for TIFF files the reader does not understand
var ErrTIFF = errors.New("unsupported TIFF layout")

// ifdEntry is the 12 byte on-disk layout of one IFD entry
type ifdEntry struct {
	Tag, Type uint16
	Count     uint32
	Value     uint32
}

// WriteTIFF writes each frame to dir/NNNNN.tiff as a 32-bit float image with
// its header stored as YAML in the ImageDescription tag
func WriteTIFF(dir string, frames []frame.Frame) error {
	log.Println("Writing TIFF files......")
	for i, f := range frames {
		fn := filepath.Join(dir, Filename(i, "tiff"))
		if err := writeFile(fn, func(w io.Writer) error { return EncodeTIFF(w, f.Image, f.Header) }); err != nil {
			return &FrameError{Format: "TIFF", Index: i, Path: fn, Err: err}
		}
	}
	log.Printf("TIFF files saved in folder: %s", dir)
	return nil
}

// EncodeTIFF streams a single-strip little endian float32 TIFF to w
func EncodeTIFF(w io.Writer, img mat.Matrix, h frame.Header) error {
	if h == nil {
		h = frame.Header{}
	}
	desc, err := yaml.Marshal(map[string]interface{}(h))
	if err != nil {
		return fmt.Errorf("encoding header: %w", err)
	}
	desc = append(desc, 0)
	soft := append([]byte(Software), 0)

	rows, cols := img.Dims()
	const nEntries = 12
	ifdOff := uint32(8)
	descOff := ifdOff + 2 + nEntries*12 + 4
	softOff := descOff + uint32(len(desc))
	dataOff := softOff + uint32(len(soft))
	pad := (4 - dataOff%4) % 4
	dataOff += pad
	nbytes := uint32(rows * cols * 4)

	entries := []ifdEntry{
		{tagImageWidth, dtLong, 1, uint32(cols)},
		{tagImageLength, dtLong, 1, uint32(rows)},
		{tagBitsPerSample, dtShort, 1, 32},
		{tagCompression, dtShort, 1, 1},
		{tagPhotometric, dtShort, 1, 1},
		{tagImageDescription, dtASCII, uint32(len(desc)), descOff},
		{tagStripOffsets, dtLong, 1, dataOff},
		{tagSamplesPerPixel, dtShort, 1, 1},
		{tagRowsPerStrip, dtLong, 1, uint32(rows)},
		{tagStripByteCounts, dtLong, 1, nbytes},
		{tagSoftware, dtASCII, uint32(len(soft)), softOff},
		{tagSampleFormat, dtShort, 1, sampleFloat},
	}

	bw := bufio.NewWriter(w)
	le := binary.LittleEndian
	hdr := []interface{}{[2]byte{'I', 'I'}, uint16(42), ifdOff, uint16(len(entries))}
	for _, v := range hdr {
		if err := binary.Write(bw, le, v); err != nil {
			return err
		}
	}
	for _, e := range entries {
		if err := binary.Write(bw, le, e); err != nil {
			return err
		}
	}
	if err := binary.Write(bw, le, uint32(0)); err != nil { // no next IFD
		return err
	}
	bw.Write(desc)
	bw.Write(soft)
	bw.Write(make([]byte, pad))

	row := make([]float32, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			row[j] = float32(img.At(i, j))
		}
		if err := binary.Write(bw, le, row); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadTIFF reads a TIFF frame and its YAML header from disk
func ReadTIFF(path string) (frame.Frame, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return frame.Frame{}, err
	}
	img, h, err := DecodeTIFF(b)
	if err != nil {
		return frame.Frame{}, fmt.Errorf("%s: %w", path, err)
	}
	return frame.Frame{Image: img, Header: h}, nil
}

// DecodeTIFF decodes an uncompressed single channel TIFF holding uint16 or
// float32 samples.  The ImageDescription tag is parsed as a YAML header; a
// description that is not a YAML mapping is returned under the key
// "ImageDescription".
func DecodeTIFF(b []byte) (*mat.Dense, frame.Header, error) {
	if len(b) < 8 {
		return nil, nil, io.ErrUnexpectedEOF
	}
	var bo binary.ByteOrder
	switch string(b[:2]) {
	case "II":
		bo = binary.LittleEndian
	case "MM":
		bo = binary.BigEndian
	default:
		return nil, nil, fmt.Errorf("%w: bad byte order mark", ErrTIFF)
	}
	if bo.Uint16(b[2:]) != 42 {
		return nil, nil, fmt.Errorf("%w: not a classic TIFF", ErrTIFF)
	}
	off := int(bo.Uint32(b[4:]))
	if off+2 > len(b) {
		return nil, nil, io.ErrUnexpectedEOF
	}
	n := int(bo.Uint16(b[off:]))
	if off+2+n*12 > len(b) {
		return nil, nil, io.ErrUnexpectedEOF
	}

	var (
		width, height, bits, format, compression int
		offsets, counts                          []int
		desc                                     string
	)
	format, compression = sampleUint, 1
	for k := 0; k < n; k++ {
		e := b[off+2+k*12:]
		tag, typ, count := bo.Uint16(e), bo.Uint16(e[2:]), int(bo.Uint32(e[4:]))
		vals, err := entryValues(b, bo, e, typ, count)
		if err != nil {
			return nil, nil, err
		}
		switch tag {
		case tagImageWidth:
			width = first(vals)
		case tagImageLength:
			height = first(vals)
		case tagBitsPerSample:
			bits = first(vals)
		case tagCompression:
			compression = first(vals)
		case tagSampleFormat:
			format = first(vals)
		case tagStripOffsets:
			offsets = vals
		case tagStripByteCounts:
			counts = vals
		case tagImageDescription:
			s, err := entryASCII(b, bo, e, count)
			if err != nil {
				return nil, nil, err
			}
			desc = s
		}
	}
	if compression != 1 {
		return nil, nil, fmt.Errorf("%w: compression %d", ErrTIFF, compression)
	}
	if width == 0 || height == 0 || len(offsets) == 0 || len(offsets) != len(counts) {
		return nil, nil, fmt.Errorf("%w: missing image structure tags", ErrTIFF)
	}

	var img *mat.Dense
	switch {
	case bits == 32 && format == sampleFloat:
		var pix []byte
		for s := range offsets {
			if offsets[s]+counts[s] > len(b) {
				return nil, nil, io.ErrUnexpectedEOF
			}
			pix = append(pix, b[offsets[s]:offsets[s]+counts[s]]...)
		}
		data := make([]float64, width*height)
		if len(pix) < 4*len(data) {
			return nil, nil, io.ErrUnexpectedEOF
		}
		for i := range data {
			data[i] = float64(math.Float32frombits(bo.Uint32(pix[4*i:])))
		}
		img = mat.NewDense(height, width, data)
	case bits == 16 && format == sampleUint:
		var err error
		img, err = decodeGray16(b)
		if err != nil {
			return nil, nil, err
		}
	default:
		return nil, nil, fmt.Errorf("%w: %d bit samples of format %d", ErrTIFF, bits, format)
	}

	h := frame.Header{}
	if desc != "" {
		m := map[string]interface{}{}
		if err := yaml.Unmarshal([]byte(desc), &m); err != nil {
			h["ImageDescription"] = desc
		} else {
			for k, v := range m {
				h[k] = v
			}
		}
	}
	return img, h, nil
}

// decodeGray16 decodes 16-bit integer frames with x/image/tiff
func decodeGray16(b []byte) (*mat.Dense, error) {
	src, err := tiff.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTIFF, err)
	}
	g, ok := src.(*image.Gray16)
	if !ok {
		return nil, fmt.Errorf("%w: decoded %T, expected 16-bit gray", ErrTIFF, src)
	}
	r := g.Bounds()
	out := mat.NewDense(r.Dy(), r.Dx(), nil)
	for y := 0; y < r.Dy(); y++ {
		for x := 0; x < r.Dx(); x++ {
			out.Set(y, x, float64(g.Gray16At(r.Min.X+x, r.Min.Y+y).Y))
		}
	}
	return out, nil
}

func first(vals []int) int {
	if len(vals) == 0 {
		return 0
	}
	return vals[0]
}

// entryValues decodes the SHORT or LONG values of an IFD entry
func entryValues(b []byte, bo binary.ByteOrder, e []byte, typ uint16, count int) ([]int, error) {
	var size int
	switch typ {
	case dtShort:
		size = 2
	case dtLong:
		size = 4
	default:
		return nil, nil
	}
	raw := e[8:12]
	if size*count > 4 {
		off := int(bo.Uint32(e[8:]))
		if off+size*count > len(b) {
			return nil, io.ErrUnexpectedEOF
		}
		raw = b[off : off+size*count]
	}
	out := make([]int, count)
	for i := range out {
		if size == 2 {
			out[i] = int(bo.Uint16(raw[2*i:]))
		} else {
			out[i] = int(bo.Uint32(raw[4*i:]))
		}
	}
	return out, nil
}

func entryASCII(b []byte, bo binary.ByteOrder, e []byte, count int) (string, error) {
	raw := e[8:12]
	if count > 4 {
		off := int(bo.Uint32(e[8:]))
		if off+count > len(b) {
			return "", io.ErrUnexpectedEOF
		}
		raw = b[off : off+count]
	} else {
		raw = raw[:count]
	}
	return string(bytes.TrimRight(raw, "\x00")), nil
}

// writeFile creates fn and streams its contents with fill
func writeFile(fn string, fill func(io.Writer) error) error {
	f, err := os.Create(fn)
	if err != nil {
		return err
	}
	if err = fill(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
