package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/paulmach/orb"

	"github.com/pspoerri/robinson/internal/coord"
)

// Set via -ldflags at build time.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// options controls how input lines are read and written.
type options struct {
	inverse   bool
	radians   bool
	precision int
	invalid   string // printed in place of coordinates that fall off the map
	strict    bool
}

// counts summarizes one run.
type counts struct {
	points  int
	invalid int
	skipped int
}

func main() {
	var (
		opts        options
		projName    string
		verbose     bool
		showVersion bool
	)

	flag.BoolVar(&opts.inverse, "inverse", false, "Inverse projection: read x y, write lon lat")
	flag.BoolVar(&opts.radians, "radians", false, "Geographic coordinates in radians instead of degrees")
	flag.IntVar(&opts.precision, "precision", -1, "Digits after the decimal point (-1 = shortest exact)")
	flag.StringVar(&opts.invalid, "invalid", "NaN NaN", "Output for points outside the projection's range")
	flag.BoolVar(&opts.strict, "strict", false, "Fail on malformed input lines instead of skipping them")
	flag.StringVar(&projName, "proj", "robinson", "Projection name ("+strings.Join(coord.Names(), ", ")+")")
	flag.BoolVar(&verbose, "verbose", false, "Print a summary to stderr")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: robinson [flags] [file...]\n\n")
		fmt.Fprintf(os.Stderr, "Project \"lon lat\" lines (or \"x y\" with -inverse) read from files or stdin.\n")
		fmt.Fprintf(os.Stderr, "Columns may be separated by whitespace or commas; extra columns are passed through.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("robinson %s (commit %s, built %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	p, err := coord.ForName(projName)
	if err != nil {
		log.Fatalf("Projection: %v", err)
	}
	if opts.inverse && !p.HasInverse() {
		log.Fatalf("Projection %s: %v", p, coord.ErrNoInverse)
	}

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	var total counts
	inputs := flag.Args()
	if len(inputs) == 0 {
		inputs = []string{"-"}
	}
	for _, name := range inputs {
		c, err := processFile(name, out, p, opts)
		total.points += c.points
		total.invalid += c.invalid
		total.skipped += c.skipped
		if err != nil {
			out.Flush()
			log.Fatalf("%s: %v", name, err)
		}
	}

	if verbose {
		log.Printf("%s: %d point(s), %d off the map, %d line(s) skipped",
			p, total.points, total.invalid, total.skipped)
	}
}

func processFile(name string, w io.Writer, p coord.Projection, opts options) (counts, error) {
	if name == "-" {
		return process(os.Stdin, w, p, opts)
	}
	f, err := os.Open(name)
	if err != nil {
		return counts{}, err
	}
	defer f.Close()
	return process(f, w, p, opts)
}

// process reads coordinate lines from r and writes the projected lines to w.
// Blank lines and lines starting with '#' are copied unchanged.
func process(r io.Reader, w io.Writer, p coord.Projection, opts options) (counts, error) {
	var c counts
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			if _, err := fmt.Fprintln(w, line); err != nil {
				return c, err
			}
			continue
		}

		fields := splitFields(trimmed)
		a, b, err := parsePair(fields)
		if err != nil {
			if opts.strict {
				return c, fmt.Errorf("line %d: %w", lineNo, err)
			}
			log.Printf("line %d: %v (skipped)", lineNo, err)
			c.skipped++
			continue
		}

		c.points++
		out, ok := transform(p, a, b, opts)
		var coords string
		if ok {
			coords = formatFloat(out[0], opts.precision) + " " + formatFloat(out[1], opts.precision)
		} else {
			c.invalid++
			coords = opts.invalid
		}
		if rest := fields[2:]; len(rest) > 0 {
			coords += " " + strings.Join(rest, " ")
		}
		if _, err := fmt.Fprintln(w, coords); err != nil {
			return c, err
		}
	}
	return c, sc.Err()
}

func transform(p coord.Projection, a, b float64, opts options) (orb.Point, bool) {
	switch {
	case opts.inverse && opts.radians:
		return p.Inverse(a, b)
	case opts.inverse:
		return coord.InverseDeg(p, a, b)
	case opts.radians:
		return p.Forward(a, b), true
	default:
		return coord.ForwardDeg(p, a, b), true
	}
}

func splitFields(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == ';'
	})
}

func parsePair(fields []string) (float64, float64, error) {
	if len(fields) < 2 {
		return 0, 0, fmt.Errorf("expected two coordinates, got %d field(s)", len(fields))
	}
	a, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parse %q: %w", fields[0], err)
	}
	b, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parse %q: %w", fields[1], err)
	}
	return a, b, nil
}

func formatFloat(v float64, precision int) string {
	return strconv.FormatFloat(v, 'f', precision, 64)
}
