package formats

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nasa-jpl/cred/frame"
	"github.com/nasa-jpl/cred/util"
)

const (
	// SMVHeaderBytes is the size of the text header block of an SMV file
	SMVHeaderBytes = 512

	// SMVSize is the edge length of an SMV frame
	SMVSize = 512

	// gapSize is the edge length of a frame that still holds the 4 rows and
	// columns of the quadrant seam
	gapSize = 516

	// smvDistanceFactor scales the distance written to SMV headers, it was
	// fitted for DIALS after the pixel size was changed to 0.055 mm
	smvDistanceFactor = 1.1

	smvBeamline   = "TIMEPIX_SU"
	smvDetectorSN = 901
)

// Repack516 removes the quadrant seam from a 516x516 frame, returning a
// 512x512 frame.  Rows and columns 256-259 are dropped.  Frames of any other
// shape are returned unchanged.
func Repack516(pix []uint16, rows, cols int) ([]uint16, int, int) {
	if rows != gapSize || cols != gapSize {
		return pix, rows, cols
	}
	const half = SMVSize / 2
	const skip = gapSize - SMVSize
	out := make([]uint16, SMVSize*SMVSize)
	for i := 0; i < SMVSize; i++ {
		si := i
		if i >= half {
			si += skip
		}
		for j := 0; j < SMVSize; j++ {
			sj := j
			if j >= half {
				sj += skip
			}
			out[i*SMVSize+j] = pix[si*cols+sj]
		}
	}
	return out, SMVSize, SMVSize
}

// SMVHeader returns the ordered header fields of frame index i
func SMVHeader(i int, h frame.Header, g Geometry, s Scan) ([]Field, error) {
	date, ok := h[frame.KeyGetTime]
	if !ok {
		return nil, &HeaderError{Index: i, Field: frame.KeyGetTime}
	}
	exp, ok := h[frame.KeyExposureTime]
	if !ok {
		return nil, &HeaderError{Index: i, Field: frame.KeyExposureTime}
	}
	f2 := func(f float64) string { return strconv.FormatFloat(f, 'f', 2, 64) }
	return []Field{
		{"HEADER_BYTES", strconv.Itoa(SMVHeaderBytes)},
		{"DIM", "2"},
		{"BYTE_ORDER", "little_endian"},
		{"TYPE", "unsigned_short"},
		{"SIZE1", strconv.Itoa(SMVSize)},
		{"SIZE2", strconv.Itoa(SMVSize)},
		{"PIXEL_SIZE", util.FormatFloat(g.PhysicalPixelSize)},
		{"BIN", "1x1"},
		{"BIN_TYPE", "HW"},
		{"ADC", "fast"},
		{"CREV", "1"},
		{"BEAMLINE", smvBeamline},
		{"DETECTOR_SN", strconv.Itoa(smvDetectorSN)},
		{"DATE", util.FormatValue(date)},
		{"TIME", util.FormatValue(exp)},
		{"DISTANCE", f2(g.Distance * smvDistanceFactor)},
		{"TWOTHETA", util.FormatFloat(0)},
		{"PHI", util.FormatFloat(s.StartAngle)},
		{"OSC_START", util.FormatFloat(s.StartAngle)},
		{"OSC_RANGE", util.FormatFloat(s.OscAngle)},
		{"WAVELENGTH", util.FormatFloat(g.Wavelength)},
		{"BEAM_CENTER_X", f2(g.BeamCenter[0])},
		{"BEAM_CENTER_Y", f2(g.BeamCenter[1])},
		{"DENZO_X_BEAM", f2(g.BeamCenter[0] * g.PhysicalPixelSize)},
		{"DENZO_Y_BEAM", f2(g.BeamCenter[1] * g.PhysicalPixelSize)},
	}, nil
}

// EncodeSMVHeader lays fields out as an SMV header block of exactly size
// bytes: "{\n", one "KEY=value;\n" line per field, space padding, "}\n"
func EncodeSMVHeader(fields []Field, size int) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("{\n")
	for _, f := range fields {
		fmt.Fprintf(&buf, "%s=%s;\n", f.Key, f.Value)
	}
	pad := size - buf.Len() - 2
	if pad < 0 {
		return nil, fmt.Errorf("SMV header needs %d bytes, only %d available", buf.Len()+2, size)
	}
	buf.WriteString(strings.Repeat(" ", pad))
	buf.WriteString("}\n")
	return buf.Bytes(), nil
}

// ParseSMVHeader reads the header block at the start of r.  The fields are
// returned in file order.
func ParseSMVHeader(r io.Reader) ([]Field, error) {
	br := bufio.NewReader(r)
	var (
		fields []Field
		read   int
		size   = -1
	)
	for {
		line, err := br.ReadString('\n')
		read += len(line)
		if err != nil {
			return nil, fmt.Errorf("reading SMV header: %w", err)
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "{" || trimmed == "" {
			continue
		}
		if trimmed == "}" {
			break
		}
		kv := strings.SplitN(strings.TrimSuffix(trimmed, ";"), "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("malformed SMV header line %q", trimmed)
		}
		fields = append(fields, Field{Key: kv[0], Value: kv[1]})
		if kv[0] == "HEADER_BYTES" {
			size, err = strconv.Atoi(kv[1])
			if err != nil {
				return nil, fmt.Errorf("HEADER_BYTES: %w", err)
			}
		}
		if size > 0 && read > size {
			return nil, fmt.Errorf("SMV header overruns HEADER_BYTES=%d", size)
		}
	}
	return fields, nil
}

// WriteSMV writes each frame to dir/NNNNN.img in SMV format
func WriteSMV(dir string, frames []frame.Frame, g Geometry, s Scan) error {
	log.Println("Writing SMV files......")
	for i, f := range frames {
		fn := filepath.Join(dir, Filename(i, "img"))
		rows, cols := f.Image.Dims()
		pix, rows, cols := Repack516(frame.ToU16(f.Image), rows, cols)
		if rows != SMVSize || cols != SMVSize {
			return &FrameError{Format: "SMV", Index: i, Path: fn,
				Err: fmt.Errorf("%w: %dx%d, SMV frames are %dx%d", ErrShape, rows, cols, SMVSize, SMVSize)}
		}
		fields, err := SMVHeader(i, f.Header, g, s)
		if err != nil {
			return &FrameError{Format: "SMV", Index: i, Path: fn, Err: err}
		}
		hdr, err := EncodeSMVHeader(fields, SMVHeaderBytes)
		if err != nil {
			return &FrameError{Format: "SMV", Index: i, Path: fn, Err: err}
		}
		err = writeFile(fn, func(w io.Writer) error {
			bw := bufio.NewWriter(w)
			bw.Write(hdr)
			if err := binary.Write(bw, binary.LittleEndian, pix); err != nil {
				return err
			}
			return bw.Flush()
		})
		if err != nil {
			return &FrameError{Format: "SMV", Index: i, Path: fn, Err: err}
		}
	}
	log.Printf("SMV files (size %d*%d) saved in folder: %s", SMVSize, SMVSize, dir)
	return nil
}

// ReadSMV reads an SMV file written by WriteSMV, returning its header and
// pixels.  Only little endian unsigned_short data is supported.
func ReadSMV(path string) ([]Field, []uint16, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	fields, err := ParseSMVHeader(bytes.NewReader(b))
	if err != nil {
		return nil, nil, err
	}
	get := func(key string) string {
		for _, f := range fields {
			if f.Key == key {
				return f.Value
			}
		}
		return ""
	}
	if get("BYTE_ORDER") != "little_endian" || get("TYPE") != "unsigned_short" {
		return nil, nil, fmt.Errorf("%s: only little endian unsigned_short SMV files are supported", path)
	}
	size, err := strconv.Atoi(get("HEADER_BYTES"))
	if err != nil {
		return nil, nil, fmt.Errorf("%s: HEADER_BYTES: %w", path, err)
	}
	s1, err1 := strconv.Atoi(get("SIZE1"))
	s2, err2 := strconv.Atoi(get("SIZE2"))
	if err1 != nil || err2 != nil {
		return nil, nil, fmt.Errorf("%s: invalid SIZE1/SIZE2", path)
	}
	if len(b) < size+2*s1*s2 {
		return nil, nil, fmt.Errorf("%s: %w", path, io.ErrUnexpectedEOF)
	}
	pix := make([]uint16, s1*s2)
	for i := range pix {
		pix[i] = binary.LittleEndian.Uint16(b[size+2*i:])
	}
	return fields, pix, nil
}
