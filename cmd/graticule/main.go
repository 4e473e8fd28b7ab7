package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pspoerri/robinson/internal/coord"
	"github.com/pspoerri/robinson/internal/encode"
	"github.com/pspoerri/robinson/internal/graticule"
)

// Set via -ldflags at build time.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	var (
		step        float64
		res         float64
		width       int
		format      string
		quality     int
		asGeoJSON   bool
		stylePath   string
		projName    string
		verbose     bool
		showVersion bool
	)

	flag.Float64Var(&step, "step", graticule.DefaultConfig.Step, "Spacing of meridians and parallels in degrees")
	flag.Float64Var(&res, "res", graticule.DefaultConfig.Resolution, "Sampling interval along each line in degrees")
	flag.IntVar(&width, "width", graticule.DefaultStyle.Width, "Image width in pixels")
	flag.StringVar(&format, "format", "", "Image encoding: png, jpeg, webp (default: from output extension)")
	flag.IntVar(&quality, "quality", 85, "JPEG/WebP quality 1-100")
	flag.BoolVar(&asGeoJSON, "geojson", false, "Write the graticule as a GeoJSON FeatureCollection instead of an image")
	flag.StringVar(&stylePath, "style", "", "TOML file with image colors (fill, line, outline), width and margin")
	flag.StringVar(&projName, "proj", "robinson", "Projection name ("+strings.Join(coord.Names(), ", ")+")")
	flag.BoolVar(&verbose, "verbose", false, "Verbose output")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: graticule [flags] <output>\n\n")
		fmt.Fprintf(os.Stderr, "Draw the projected graticule as an image or GeoJSON.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("graticule %s (commit %s, built %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) != 1 {
		flag.Usage()
		os.Exit(1)
	}
	outputPath := args[0]

	p, err := coord.ForName(projName)
	if err != nil {
		log.Fatalf("Projection: %v", err)
	}
	cfg := graticule.Config{Step: step, Resolution: res}

	start := time.Now()
	var data []byte
	if asGeoJSON {
		fc, err := graticule.FeatureCollection(p, cfg)
		if err != nil {
			log.Fatalf("Graticule: %v", err)
		}
		data, err = fc.MarshalJSON()
		if err != nil {
			log.Fatalf("Encoding GeoJSON: %v", err)
		}
	} else {
		var enc encode.Encoder
		enc, outputPath, err = pickEncoder(format, outputPath, quality)
		if err != nil {
			log.Fatalf("Encoder: %v", err)
		}

		style, err := buildStyle(width, stylePath)
		if err != nil {
			log.Fatalf("Style: %v", err)
		}
		img, err := graticule.Render(p, cfg, style)
		if err != nil {
			log.Fatalf("Rendering: %v", err)
		}
		data, err = enc.Encode(img)
		if err != nil {
			log.Fatalf("Encoding %s: %v", enc.Format(), err)
		}
		if verbose {
			b := img.Bounds()
			log.Printf("Rendered %dx%d %s image", b.Dx(), b.Dy(), enc.Format())
		}
	}

	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		log.Fatalf("Writing %s: %v", outputPath, err)
	}
	if verbose {
		log.Printf("Wrote %s (%d bytes) in %v", outputPath, len(data), time.Since(start).Round(time.Millisecond))
	}
}

// pickEncoder returns the image encoder for format, or for the extension
// of outputPath when format is empty, and the output path with the
// encoder's extension appended if it had none.
func pickEncoder(format, outputPath string, quality int) (encode.Encoder, string, error) {
	if format == "" {
		enc, err := encode.ForPath(outputPath, quality)
		return enc, outputPath, err
	}
	enc, err := encode.NewEncoder(format, quality)
	if err != nil {
		return nil, outputPath, err
	}
	if filepath.Ext(outputPath) == "" {
		outputPath += enc.FileExtension()
	}
	return enc, outputPath, nil
}

// buildStyle starts from the default style at the given width and applies
// the TOML file at stylePath, whose values take precedence.
func buildStyle(width int, stylePath string) (graticule.Style, error) {
	style := graticule.DefaultStyle
	style.Width = width
	if stylePath == "" {
		return style, nil
	}
	f, err := os.Open(stylePath)
	if err != nil {
		return style, err
	}
	defer f.Close()
	return graticule.ReadStyle(f, style)
}
