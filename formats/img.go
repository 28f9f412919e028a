package formats

import (
	"encoding/binary"
	"errors"
	"io"
	"os"
)

// Kinds of .img files
const (
	KindNone = ""
	KindSMV  = "SMV"
	KindMRC  = "MRC"
)

// ErrUnknownIMG is returned by SniffIMG for .img files of neither kind
var ErrUnknownIMG = errors.New("unrecognised .img file")

// SniffIMG reports whether path holds an SMV or an MRC frame.  A missing
// file is KindNone.
func SniffIMG(path string) (string, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return KindNone, nil
	}
	if err != nil {
		return KindNone, err
	}
	defer f.Close()
	b := make([]byte, 212)
	n, err := io.ReadFull(f, b)
	if n >= 2 && b[0] == '{' && b[1] == '\n' {
		return KindSMV, nil
	}
	if err == nil && string(b[208:212]) == "MAP " && int32(binary.LittleEndian.Uint32(b[12:])) == mrcMode1 {
		return KindMRC, nil
	}
	return KindNone, ErrUnknownIMG
}
