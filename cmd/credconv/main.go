package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"

	yml "gopkg.in/yaml.v2"
)

var (
	// Version is the version number.  Typically injected via ldflags with git build
	Version = "1"

	// ConfigFileName is what it sounds like
	ConfigFileName = "credconv.yml"
	k              = koanf.New(".")
)

func setupconfig() {
	k.Load(structs.Provider(DefaultConfig(), "koanf"), nil)
	if err := k.Load(file.Provider(ConfigFileName), yaml.Parser()); err != nil {
		errtxt := err.Error()
		if !strings.Contains(errtxt, "no such") { // file missing, who cares
			log.Fatalf("error loading config: %v", err)
		}
	}
}

func root() {
	str := `credconv converts a series of cRED (continuous rotation electron diffraction)
frames into the formats read by crystallographic data processing programs:
TIFF, SMV (XDS, DIALS), MRC and ED3D (REDp), and an XDS.INP control file.

Usage:
	credconv <command>

Commands:
	run
	serve
	help
	mkconf
	conf
	version`
	fmt.Println(str)
}

func help() {
	str := `credconv is amenable to configuration via its .yml file.  For a primer on YAML, see
https://yaml.org/start.html

run converts the frames named by Input (a FITS cube saved by a previous run, or
a folder of TIFF frames) into a new folder Root/Stem_N, picking the first N
that is free.  The folder holds:
	tiff/     NNNNN.tiff, flatfield corrected frames with their headers
	SMV/      NNNNN.img SMV frames and XDS.INP
	RED/      NNNNN.img MRC frames and 1.ed3d
Only the formats listed in Formats are written.

serve converts the frames and then serves the conversion over HTTP at Addr.
GET /endpoints lists the routes.  POST /cred/write/{format} with {"str": folder}
writes one format to a folder.  POST /cred/lock with {"bool": true} refuses
writes until unlocked.

PixelSizes maps each camera length to its calibrated pixel size, for example
	PixelSizes:
	  "150": 0.00838
A camera length missing from the table, or an uncalibrated 0 or 1 entry, is an
error.  Flatfield must name a TIFF of the same shape as the frames.

Set Mock to convert frames from a simulated detector instead of Input, and
SaveRaw to keep a FITS copy of the raw frames in the experiment folder.`
	fmt.Println(str)
}

func mkconf() {
	c := Config{}
	err := k.Unmarshal("", &c)
	if err != nil {
		log.Fatal(err)
	}
	f, err := os.Create(ConfigFileName)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()
	err = yml.NewEncoder(f).Encode(c)
	if err != nil {
		log.Fatal(err)
	}
}

func printconf() {
	c := Config{}
	k.Unmarshal("", &c)
	err := yml.NewEncoder(os.Stdout).Encode(c)
	if err != nil {
		log.Fatal(err)
	}
}

func pversion() {
	fmt.Printf("credconv version %v\n", Version)
}

func loadconf() Config {
	c := Config{}
	err := k.Unmarshal("", &c)
	if err != nil {
		log.Fatal(err)
	}
	return c
}

func run() {
	c := loadconf()
	conv, ws, err := Convert(c)
	if err != nil {
		log.Fatal(err)
	}
	err = WriteAll(conv, ws, c)
	if err != nil {
		log.Fatal(err)
	}
	log.Println("conversion complete in", ws.Path())
}

func serve() {
	c := loadconf()
	conv, ws, err := Convert(c)
	if err != nil {
		log.Fatal(err)
	}
	mux := BuildMux(conv, ws.Path())
	log.Println("now listening for requests at ", c.Addr)
	log.Fatal(http.ListenAndServe(c.Addr, mux))
}

func main() {
	var cmd string
	args := os.Args
	if len(args) == 1 {
		root()
		return
	}
	setupconfig()
	cmd = args[1]
	cmd = strings.ToLower(cmd)
	switch cmd {
	case "help":
		help()
		return
	case "mkconf":
		mkconf()
		return
	case "conf":
		printconf()
		return
	case "run":
		run()
		return
	case "serve":
		serve()
		return
	case "version":
		pversion()
		return
	default:
		log.Fatal("unknown command")
	}
}
