package formats

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"math"
	"path/filepath"

	"gonum.org/v1/gonum/mat"

	"github.com/nasa-jpl/cred/frame"
	"github.com/nasa-jpl/cred/util"
)

// MRCHeaderBytes is the size of the MRC header
const MRCHeaderBytes = 1024

// mrcMode1 is the MRC mode for signed 16-bit integers
const mrcMode1 = 1

// MRCHeader is the on-disk MRC2000 header.  Fields are written in order,
// little endian.
type MRCHeader struct {
	NX, NY, NZ                int32
	Mode                      int32
	NXStart, NYStart, NZStart int32
	MX, MY, MZ                int32
	CellA                     [3]float32
	CellB                     [3]float32
	MapC, MapR, MapS          int32
	DMin, DMax, DMean         float32
	ISPG                      int32
	NSymBT                    int32
	Extra                     [100]byte
	Origin                    [3]float32
	Map                       [4]byte
	MachSt                    [4]byte
	RMS                       float32
	NLabl                     int32
	Label                     [10][80]byte
}

// mrcLabel is the label REDp expects in the first label slot
const mrcLabel = "aaaaaaaaaaaaaaaaaaaaaa,aaaaaaaaaaa"

// NewMRCHeader returns the header used for cRED frames of rows x cols
// pixels.  The statistics fields hold the values REDp was calibrated with,
// not the statistics of the frame.
func NewMRCHeader(rows, cols int) MRCHeader {
	h := MRCHeader{
		NX:     int32(cols),
		NY:     int32(rows),
		NZ:     1,
		Mode:   mrcMode1,
		MX:     int32(cols),
		MY:     int32(rows),
		MZ:     1,
		CellB:  [3]float32{90, 90, 90},
		MapC:   1,
		MapR:   2,
		MapS:   3,
		DMax:   11810,
		DMean:  math.Float32frombits(0x41730678), // 15.189079
		Map:    [4]byte{'M', 'A', 'P', ' '},
		MachSt: [4]byte{'D', 'A', 0, 0},
		NLabl:  1,
	}
	copy(h.Label[0][:], mrcLabel)
	return h
}

// WriteMRC writes each frame to dir/NNNNN.img in MRC format.
//
// Frames are cast to int16, flipped vertically and passed through correct
// before writing; a nil correct writes the flipped frame.
func WriteMRC(dir string, frames []frame.Frame, correct func(*mat.Dense) *mat.Dense) error {
	log.Println("Writing MRC files......")
	for i, f := range frames {
		fn := filepath.Join(dir, Filename(i, "img"))
		rows, cols := f.Image.Dims()
		pix := mrcPixels(f.Image, correct)
		hdr := NewMRCHeader(rows, cols)
		err := writeFile(fn, func(w io.Writer) error {
			bw := bufio.NewWriter(w)
			if err := binary.Write(bw, binary.LittleEndian, hdr); err != nil {
				return err
			}
			if err := binary.Write(bw, binary.LittleEndian, pix); err != nil {
				return err
			}
			return bw.Flush()
		})
		if err != nil {
			return &FrameError{Format: "MRC", Index: i, Path: fn, Err: err}
		}
	}
	log.Printf("MRC files created in folder: %s", dir)
	return nil
}

// mrcPixels returns the int16 pixel data of img as written to an MRC file
func mrcPixels(img mat.Matrix, correct func(*mat.Dense) *mat.Dense) []int16 {
	rows, cols := img.Dims()
	i16 := frame.ToI16(img)
	cast := make([]float64, len(i16))
	for k, v := range i16 {
		cast[k] = float64(v)
	}
	out := frame.FlipUD(mat.NewDense(rows, cols, cast))
	if correct != nil {
		out = correct(out)
	}
	pix := make([]int16, rows*cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := util.Clamp(math.Round(out.At(i, j)), math.MinInt16, math.MaxInt16)
			pix[i*cols+j] = int16(v)
		}
	}
	return pix
}

// ReadMRCHeader decodes the MRC header at the start of r
func ReadMRCHeader(r io.Reader) (MRCHeader, error) {
	var h MRCHeader
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return h, fmt.Errorf("reading MRC header: %w", err)
	}
	return h, nil
}
