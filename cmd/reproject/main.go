package main

import (
	"bytes"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pspoerri/robinson/internal/coord"
	"github.com/pspoerri/robinson/internal/vector"
)

// Set via -ldflags at build time.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	var (
		inverse     bool
		projName    string
		verbose     bool
		showVersion bool
	)

	flag.BoolVar(&inverse, "inverse", false, "Inverse projection: read projected plane coordinates, write WGS84 degrees")
	flag.StringVar(&projName, "proj", "robinson", "Projection name ("+strings.Join(coord.Names(), ", ")+")")
	flag.BoolVar(&verbose, "verbose", false, "Verbose output")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: reproject [flags] <input.geojson|input.shp> <output>\n\n")
		fmt.Fprintf(os.Stderr, "Reproject vector data between WGS84 degrees and the Robinson plane.\n")
		fmt.Fprintf(os.Stderr, "The output must use the same format as the input.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("reproject %s (commit %s, built %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) != 2 {
		flag.Usage()
		os.Exit(1)
	}
	inputPath, outputPath := args[0], args[1]

	p, err := coord.ForName(projName)
	if err != nil {
		log.Fatalf("Projection: %v", err)
	}
	dir := vector.Forward
	if inverse {
		dir = vector.Inverse
	}

	start := time.Now()
	stats, err := reproject(inputPath, outputPath, p, dir)
	if err != nil {
		log.Fatalf("Reprojecting %s: %v", inputPath, err)
	}

	if stats.Invalid > 0 {
		log.Printf("WARNING: %d vertex/vertices fell outside the %s map", stats.Invalid, p)
	}
	if verbose {
		log.Printf("%s %s: %d feature(s), %d point(s) in %v",
			p, dir, stats.Features, stats.Points, time.Since(start).Round(time.Millisecond))
	}
}

// reproject converts inputPath into outputPath, which must share its
// vector format.
func reproject(inputPath, outputPath string, p coord.Projection, dir vector.Direction) (vector.Stats, error) {
	format, err := formatOf(inputPath)
	if err != nil {
		return vector.Stats{}, err
	}
	if out, err := formatOf(outputPath); err != nil || out != format {
		return vector.Stats{}, fmt.Errorf("output %s must be a %s file", outputPath, format)
	}
	if format == "shapefile" {
		return vector.ReprojectShapefile(inputPath, outputPath, p, dir)
	}
	return reprojectGeoJSONFile(inputPath, outputPath, p, dir)
}

// formatOf maps a file extension to a vector format name.
func formatOf(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		return "shapefile", nil
	case ".geojson", ".json":
		return "geojson", nil
	default:
		return "", fmt.Errorf("%s: %w (want .geojson, .json or .shp)", path, vector.ErrUnsupportedFormat)
	}
}

func reprojectGeoJSONFile(src, dst string, p coord.Projection, dir vector.Direction) (vector.Stats, error) {
	in, err := os.Open(src)
	if err != nil {
		return vector.Stats{}, err
	}
	defer in.Close()

	// Buffer the result so a failed run leaves no partial output file.
	var buf bytes.Buffer
	stats, err := vector.ReprojectGeoJSON(in, &buf, p, dir)
	if err != nil {
		return stats, err
	}
	if err := os.WriteFile(dst, buf.Bytes(), 0o644); err != nil {
		return stats, fmt.Errorf("writing %s: %w", dst, err)
	}
	return stats, nil
}
