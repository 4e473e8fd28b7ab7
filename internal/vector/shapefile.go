package vector

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	shp "github.com/jonas-p/go-shp"

	"github.com/pspoerri/robinson/internal/coord"
)

// ReprojectShapefile reads the shapefile at src, reprojects every shape
// with p and writes a new shapefile (.shp/.shx/.dbf) at dst. Shape type,
// DBF fields and attribute values are copied unchanged. Z and M variants
// are not supported. The output is assembled next to dst and only moved
// into place once complete, so a failed run leaves dst untouched.
func ReprojectShapefile(src, dst string, p coord.Projection, dir Direction) (Stats, error) {
	if !strings.EqualFold(filepath.Ext(dst), ".shp") {
		return Stats{}, fmt.Errorf("output %s: shapefile path must end in .shp", dst)
	}
	t, err := newTransformer(p, dir)
	if err != nil {
		return Stats{}, err
	}

	r, err := shp.Open(src)
	if err != nil {
		return Stats{}, fmt.Errorf("open shapefile %s: %w", src, err)
	}
	defer r.Close()

	switch r.GeometryType {
	case shp.POINT, shp.POLYLINE, shp.POLYGON, shp.MULTIPOINT:
	default:
		return Stats{}, fmt.Errorf("%s: shape type %d: %w", src, r.GeometryType, ErrUnsupportedFormat)
	}

	tmpDir, err := os.MkdirTemp(filepath.Dir(dst), ".reproject-")
	if err != nil {
		return Stats{}, fmt.Errorf("output %s: %w", dst, err)
	}
	defer os.RemoveAll(tmpDir)

	tmp := filepath.Join(tmpDir, "out.shp")
	if err := t.writeShapefile(r, src, tmp); err != nil {
		return t.stats, err
	}
	if err := moveShapefile(tmp, dst); err != nil {
		return t.stats, err
	}
	return t.stats, nil
}

// writeShapefile copies every record of r into a new shapefile at path.
// The writer is closed on return.
func (t *transformer) writeShapefile(r *shp.Reader, src, path string) error {
	w, err := shp.Create(path, r.GeometryType)
	if err != nil {
		return fmt.Errorf("create shapefile: %w", err)
	}
	defer w.Close()

	fields := r.Fields()
	if len(fields) > 0 {
		if err := w.SetFields(fields); err != nil {
			return fmt.Errorf("copy fields: %w", err)
		}
	}

	for r.Next() {
		idx, shape := r.Shape()
		out, err := t.shape(shape)
		if err != nil {
			return fmt.Errorf("%s record %d: %w", src, idx, err)
		}
		row := int(w.Write(out))
		for i := range fields {
			if err := w.WriteAttribute(row, i, r.ReadAttribute(idx, i)); err != nil {
				return fmt.Errorf("%s record %d field %s: %w", src, idx, fields[i], err)
			}
		}
		t.stats.Features++
	}
	return r.Err()
}

// shapefileParts lists the files moved into place, .shp last so a reader
// never sees a main file without its index and table.
var shapefileParts = []string{".shx", ".dbf", ".shp"}

// moveShapefile renames the closed shapefile at from (and its .shx/.dbf)
// to to.
func moveShapefile(from, to string) error {
	if err := fixDBFName(from); err != nil {
		return err
	}
	fromBase := strings.TrimSuffix(from, filepath.Ext(from))
	toBase := strings.TrimSuffix(to, filepath.Ext(to))
	for _, ext := range shapefileParts {
		src := fromBase + ext
		if _, err := os.Stat(src); errors.Is(err, fs.ErrNotExist) {
			// No table was written; drop a stale one from an earlier run.
			os.Remove(toBase + ext)
			continue
		}
		if err := os.Rename(src, toBase+ext); err != nil {
			return fmt.Errorf("output %s: %w", to, err)
		}
	}
	return nil
}

// fixDBFName renames "<base>dbf" to "<base>.dbf" for the shapefile at
// path. shp.Writer names its attribute table without the dot.
func fixDBFName(path string) error {
	base := strings.TrimSuffix(path, filepath.Ext(path))
	if _, err := os.Stat(base + "dbf"); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := os.Rename(base+"dbf", base+".dbf"); err != nil {
		return fmt.Errorf("rename attribute table: %w", err)
	}
	return nil
}

func (t *transformer) shape(s shp.Shape) (shp.Shape, error) {
	switch s := s.(type) {
	case *shp.Null:
		return s, nil
	case *shp.Point:
		x, y := t.point(s.X, s.Y)
		return &shp.Point{X: x, Y: y}, nil
	case *shp.MultiPoint:
		pts := t.points(s.Points)
		return &shp.MultiPoint{
			Box:       shp.BBoxFromPoints(pts),
			NumPoints: int32(len(pts)),
			Points:    pts,
		}, nil
	case *shp.PolyLine:
		pts := t.points(s.Points)
		return &shp.PolyLine{
			Box:       shp.BBoxFromPoints(pts),
			NumParts:  s.NumParts,
			NumPoints: int32(len(pts)),
			Parts:     append([]int32(nil), s.Parts...),
			Points:    pts,
		}, nil
	case *shp.Polygon:
		pts := t.points(s.Points)
		return &shp.Polygon{
			Box:       shp.BBoxFromPoints(pts),
			NumParts:  s.NumParts,
			NumPoints: int32(len(pts)),
			Parts:     append([]int32(nil), s.Parts...),
			Points:    pts,
		}, nil
	default:
		return nil, fmt.Errorf("shape %T: %w", s, ErrUnsupportedFormat)
	}
}

func (t *transformer) points(in []shp.Point) []shp.Point {
	out := make([]shp.Point, len(in))
	for i, pt := range in {
		out[i].X, out[i].Y = t.point(pt.X, pt.Y)
	}
	return out
}
