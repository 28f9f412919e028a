package main

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/theckman/yacspin"

	"github.com/nasa-jpl/cred/camera"
	"github.com/nasa-jpl/cred/cred"
	"github.com/nasa-jpl/cred/formats"
	"github.com/nasa-jpl/cred/frame"
	"github.com/nasa-jpl/cred/server"
	"github.com/nasa-jpl/cred/server/middleware/locker"
	"github.com/nasa-jpl/cred/util"
	"github.com/nasa-jpl/cred/workspace"
)

// Config is the configuration of credconv.  It is populated by koanf from
// defaults and credconv.yml.
type Config struct {
	// Addr is the address to listen at in serve mode
	Addr string `koanf:"Addr" yaml:"Addr"`

	// Root is the folder experiment workspaces are created under
	Root string `koanf:"Root" yaml:"Root"`

	// Stem is the prefix of the experiment folders, stem_N
	Stem string `koanf:"Stem" yaml:"Stem"`

	// Input is a FITS frame cube or a folder of TIFF frames
	Input string `koanf:"Input" yaml:"Input"`

	// Mock replaces Input with frames from a simulated detector
	Mock bool `koanf:"Mock" yaml:"Mock"`

	// MockFrames is the number of frames the simulated detector produces
	MockFrames int `koanf:"MockFrames" yaml:"MockFrames"`

	// MockExposure is the simulated exposure time in seconds
	MockExposure float64 `koanf:"MockExposure" yaml:"MockExposure"`

	// SaveRaw keeps a FITS copy of the raw frames in the workspace
	SaveRaw bool `koanf:"SaveRaw" yaml:"SaveRaw"`

	// Formats lists the formats written by run, in order
	Formats []string `koanf:"Formats" yaml:"Formats"`

	Flatfield         string             `koanf:"Flatfield" yaml:"Flatfield"`
	Darkfield         string             `koanf:"Darkfield" yaml:"Darkfield"`
	PixelSizes        map[string]float64 `koanf:"PixelSizes" yaml:"PixelSizes"`
	PhysicalPixelSize float64            `koanf:"PhysicalPixelSize" yaml:"PhysicalPixelSize"`
	Wavelength        float64            `koanf:"Wavelength" yaml:"Wavelength"`
	XDSTemplate       string             `koanf:"XDSTemplate" yaml:"XDSTemplate"`

	CameraLength int          `koanf:"CameraLength" yaml:"CameraLength"`
	Scan         formats.Scan `koanf:"Scan" yaml:"Scan"`
}

// DefaultConfig is the configuration used when credconv.yml is absent
func DefaultConfig() Config {
	cc := cred.DefaultConfig()
	return Config{
		Addr:              ":8000",
		Root:              ".",
		Stem:              workspace.DefaultStem,
		Input:             "frames.fits",
		MockFrames:        10,
		MockExposure:      0.5,
		Formats:           cred.Formats,
		Flatfield:         cc.Flatfield,
		PixelSizes:        map[string]float64{},
		PhysicalPixelSize: cc.PhysicalPixelSize,
		Wavelength:        cc.Wavelength,
		CameraLength:      150,
		Scan:              formats.Scan{OscAngle: 0.5, DMax: 20, DMin: 0.8},
	}
}

// Cred splits out the calibration part of c
func (c Config) Cred() cred.Config {
	return cred.Config{
		Flatfield:         c.Flatfield,
		Darkfield:         c.Darkfield,
		PixelSizes:        c.PixelSizes,
		PhysicalPixelSize: c.PhysicalPixelSize,
		Wavelength:        c.Wavelength,
		XDSTemplate:       c.XDSTemplate,
	}
}

// Experiment splits out the experiment part of c
func (c Config) Experiment() cred.Experiment {
	return cred.Experiment{CameraLength: c.CameraLength, Scan: c.Scan}
}

// Subdir is the workspace folder a format is written to.  SMV frames and
// XDS.INP go together, as do MRC frames and the REDp frame list.
func Subdir(format string) (string, error) {
	switch strings.ToLower(format) {
	case cred.FormatTIFF:
		return workspace.TIFF, nil
	case cred.FormatSMV, cred.FormatXDS:
		return workspace.SMV, nil
	case cred.FormatMRC, cred.FormatED3D:
		return workspace.RED, nil
	default:
		return "", fmt.Errorf("%w: %q", cred.ErrUnknownFormat, format)
	}
}

// LoadInput reads the raw frames named by c
func LoadInput(c Config) (*frame.Buffer, error) {
	if c.Mock {
		cam := camera.NewMock([2]float64{255.5, 258.5}, util.SecsToDuration(c.MockExposure))
		return camera.Acquire(cam, c.MockFrames)
	}
	st, err := os.Stat(c.Input)
	if err != nil {
		return nil, err
	}
	if st.IsDir() {
		return loadTIFFs(c.Input)
	}
	f, err := os.Open(c.Input)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return camera.LoadFITS(f)
}

// loadTIFFs reads every .tif/.tiff file in dir, in name order
func loadTIFFs(dir string) (*frame.Buffer, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if !e.IsDir() && (ext == ".tif" || ext == ".tiff") {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no TIFF frames in %s", dir)
	}
	sort.Strings(names)
	buf := frame.NewBuffer()
	for _, name := range names {
		f, err := formats.ReadTIFF(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		buf.Push(f)
	}
	return buf, nil
}

// saveRaw writes buf to raw.fits in the workspace
func saveRaw(ws *workspace.Workspace, buf *frame.Buffer) error {
	fn := filepath.Join(ws.Path(), "raw.fits")
	f, err := os.Create(fn)
	if err != nil {
		return err
	}
	defer f.Close()
	err = camera.SaveFITS(f, buf)
	if err != nil {
		return err
	}
	log.Printf("raw frames saved to %s", fn)
	return nil
}

// Convert loads the input, builds the conversion and a new workspace for it
func Convert(c Config) (*cred.Conversion, *workspace.Workspace, error) {
	buf, err := LoadInput(c)
	if err != nil {
		return nil, nil, err
	}
	log.Printf("loaded %d frames", buf.Len())
	ws, err := workspace.New(c.Root, c.Stem)
	if err != nil {
		return nil, nil, err
	}
	log.Println("experiment folder", ws.Path())
	if c.SaveRaw {
		if err := saveRaw(ws, buf); err != nil {
			return nil, nil, err
		}
	}
	conv, err := cred.New(buf, c.Cred(), c.Experiment())
	if err != nil {
		return nil, nil, err
	}
	return conv, ws, nil
}

// permanent reports whether a write error will not go away on retry
func permanent(err error) bool {
	var he *formats.HeaderError
	return errors.Is(err, cred.ErrUnknownFormat) ||
		errors.Is(err, cred.ErrIMGCollision) ||
		errors.Is(err, formats.ErrShape) ||
		errors.As(err, &he)
}

// writeWithRetry writes one format, retrying transient (I/O) failures
func writeWithRetry(conv *cred.Conversion, format, dir string) error {
	op := func() error {
		err := conv.Write(format, dir)
		if err != nil && permanent(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	b := &backoff.ExponentialBackOff{
		InitialInterval:     100 * time.Millisecond,
		RandomizationFactor: 0.,
		Multiplier:          2.,
		MaxInterval:         1 * time.Second,
		MaxElapsedTime:      5 * time.Second,
		Clock:               backoff.SystemClock}
	return backoff.Retry(op, backoff.WithMaxRetries(b, 3))
}

// WriteAll writes every format in c.Formats into its workspace subfolder
func WriteAll(conv *cred.Conversion, ws *workspace.Workspace, c Config) error {
	spinner, err := yacspin.New(yacspin.Config{
		Frequency:         100 * time.Millisecond,
		CharSet:           yacspin.CharSets[14],
		Suffix:            " ",
		SuffixAutoColon:   true,
		StopCharacter:     "✓",
		StopFailCharacter: "✗",
		StopMessage:       "done",
		StopFailMessage:   "failed",
	})
	if err != nil {
		return err
	}
	err = spinner.Start()
	if err != nil {
		return err
	}
	for _, format := range c.Formats {
		spinner.Message(format)
		sub, err := Subdir(format)
		if err != nil {
			spinner.StopFail()
			return err
		}
		dir, err := ws.Subdir(sub)
		if err != nil {
			spinner.StopFail()
			return err
		}
		err = writeWithRetry(conv, format, dir)
		if err != nil {
			spinner.StopFail()
			return fmt.Errorf("writing %s: %w", format, err)
		}
	}
	return spinner.Stop()
}

// BuildMux returns a router serving conv under /cred, with a lock that
// refuses writes while set.  Output folders are confined to root.
func BuildMux(conv *cred.Conversion, root string) chi.Router {
	mux := chi.NewRouter()
	mux.Use(middleware.Logger)

	wrap := cred.NewHTTPWrapper(conv, root)
	lock := locker.New()
	locker.Inject(wrap, lock)

	hndlS := server.SubMuxSanitize("cred")
	r := chi.NewRouter()
	r.Use(lock.Check)
	wrap.RT().Bind(r)
	mux.Mount(hndlS, r)

	endpoints := map[string][]string{hndlS: wrap.RT().Endpoints()}
	mux.Get("/endpoints", func(w http.ResponseWriter, r *http.Request) {
		server.RespondJSON(w, endpoints)
	})
	return mux
}
