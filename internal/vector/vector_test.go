package vector

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	shp "github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/pspoerri/robinson/internal/coord"
)

const sampleGeoJSON = `{
  "type": "FeatureCollection",
  "bbox": [-180, -90, 180, 90],
  "features": [
    {"type": "Feature", "id": "zrh", "properties": {"name": "Zurich"},
     "geometry": {"type": "Point", "coordinates": [8.5417, 47.3769]}},
    {"type": "Feature", "properties": {"name": "equator"},
     "geometry": {"type": "LineString", "coordinates": [[-180, 0], [0, 0], [180, 0]]}},
    {"type": "Feature", "properties": {"name": "box"},
     "geometry": {"type": "Polygon", "coordinates": [[[-10, -10], [10, -10], [10, 10], [-10, 10], [-10, -10]]]}}
  ]
}`

func TestReprojectGeoJSON_RoundTrip(t *testing.T) {
	p := coord.Robinson{}

	var projected bytes.Buffer
	stats, err := ReprojectGeoJSON(strings.NewReader(sampleGeoJSON), &projected, p, Forward)
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	if stats.Features != 3 || stats.Points != 1+3+5 || stats.Invalid != 0 {
		t.Errorf("forward stats = %+v, want 3 features, 9 points, 0 invalid", stats)
	}

	fc, err := geojson.UnmarshalFeatureCollection(projected.Bytes())
	if err != nil {
		t.Fatalf("decoding forward output: %v", err)
	}
	if fc.BBox != nil {
		t.Errorf("bbox kept after reprojection: %v", fc.BBox)
	}
	if fc.Features[0].ID != "zrh" || fc.Features[0].Properties.MustString("name") != "Zurich" {
		t.Errorf("feature 0 lost id/properties: %v %v", fc.Features[0].ID, fc.Features[0].Properties)
	}
	eq := fc.Features[1].Geometry.(orb.LineString)
	if math.Abs(eq[2][0]-math.Pi*coord.RobinsonFXC) > 1e-9 || eq[2][1] != 0 {
		t.Errorf("projected equator end = %v, want (%v, 0)", eq[2], math.Pi*coord.RobinsonFXC)
	}

	var back bytes.Buffer
	stats, err = ReprojectGeoJSON(&projected, &back, p, Inverse)
	if err != nil {
		t.Fatalf("inverse: %v", err)
	}
	if stats.Invalid != 0 {
		t.Errorf("inverse stats = %+v, want 0 invalid", stats)
	}
	fc, err = geojson.UnmarshalFeatureCollection(back.Bytes())
	if err != nil {
		t.Fatalf("decoding inverse output: %v", err)
	}
	pt := fc.Features[0].Geometry.(orb.Point)
	if math.Abs(pt[0]-8.5417) > 1e-4 || math.Abs(pt[1]-47.3769) > 1e-4 {
		t.Errorf("roundtrip Zurich = %v", pt)
	}
}

func TestReprojectGeoJSON_InvalidInput(t *testing.T) {
	var out bytes.Buffer
	_, err := ReprojectGeoJSON(strings.NewReader("not json"), &out, coord.Robinson{}, Forward)
	if err == nil {
		t.Error("expected error for malformed input")
	}
}

func TestReprojectGeoJSON_OffMapCounted(t *testing.T) {
	in := `{"type":"FeatureCollection","features":[
	  {"type":"Feature","properties":{},"geometry":{"type":"MultiPoint","coordinates":[[0,0],[0,3],[1,1]]}}]}`
	var out bytes.Buffer
	stats, err := ReprojectGeoJSON(strings.NewReader(in), &out, coord.Robinson{}, Inverse)
	if err != nil {
		t.Fatalf("inverse: %v", err)
	}
	if stats.Points != 3 || stats.Invalid != 1 {
		t.Errorf("stats = %+v, want 3 points, 1 invalid", stats)
	}
	fc, err := geojson.UnmarshalFeatureCollection(out.Bytes())
	if err != nil {
		t.Fatalf("decoding output: %v", err)
	}
	if len(fc.Features) != 1 || fc.Features[0].Geometry != nil {
		t.Errorf("off-map feature geometry = %v, want null", fc.Features[0].Geometry)
	}
}

// noInverse is a projection without an inverse.
type noInverse struct{ coord.Robinson }

func (noInverse) HasInverse() bool { return false }

func TestReprojectGeoJSON_NoInverse(t *testing.T) {
	var out bytes.Buffer
	_, err := ReprojectGeoJSON(strings.NewReader(sampleGeoJSON), &out, noInverse{}, Inverse)
	if !errors.Is(err, coord.ErrNoInverse) {
		t.Errorf("error = %v, want ErrNoInverse", err)
	}
}

func writeTestShapefile(t *testing.T, path string) {
	t.Helper()
	w, err := shp.Create(path, shp.POLYGON)
	if err != nil {
		t.Fatalf("shp.Create: %v", err)
	}

	if err := w.SetFields([]shp.Field{
		shp.StringField("NAME", 20),
		shp.NumberField("POP", 10),
	}); err != nil {
		t.Fatalf("SetFields: %v", err)
	}

	boxes := []struct {
		name           string
		pop            int
		minX, minY, sz float64
	}{
		{"alpha", 1200, -20, -20, 10},
		{"beta", 34, 100, 40, 20},
	}
	for _, b := range boxes {
		ring := []shp.Point{
			{X: b.minX, Y: b.minY},
			{X: b.minX, Y: b.minY + b.sz},
			{X: b.minX + b.sz, Y: b.minY + b.sz},
			{X: b.minX + b.sz, Y: b.minY},
			{X: b.minX, Y: b.minY},
		}
		poly := &shp.Polygon{
			Box:       shp.BBoxFromPoints(ring),
			NumParts:  1,
			NumPoints: int32(len(ring)),
			Parts:     []int32{0},
			Points:    ring,
		}
		row := int(w.Write(poly))
		if err := w.WriteAttribute(row, 0, b.name); err != nil {
			t.Fatalf("WriteAttribute: %v", err)
		}
		if err := w.WriteAttribute(row, 1, b.pop); err != nil {
			t.Fatalf("WriteAttribute: %v", err)
		}
	}
	w.Close()
	if err := fixDBFName(path); err != nil {
		t.Fatalf("fixDBFName: %v", err)
	}
}

func clean(s string) string { return strings.Trim(s, " \x00") }

func TestReprojectShapefile_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "boxes.shp")
	fwd := filepath.Join(dir, "boxes_robinson.shp")
	back := filepath.Join(dir, "boxes_wgs84.shp")
	writeTestShapefile(t, src)

	p := coord.Robinson{}
	stats, err := ReprojectShapefile(src, fwd, p, Forward)
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	if stats.Features != 2 || stats.Points != 10 {
		t.Errorf("forward stats = %+v, want 2 features, 10 points", stats)
	}

	if _, err := ReprojectShapefile(fwd, back, p, Inverse); err != nil {
		t.Fatalf("inverse: %v", err)
	}

	r, err := shp.Open(fwd)
	if err != nil {
		t.Fatalf("open forward output: %v", err)
	}
	defer r.Close()
	if r.GeometryType != shp.POLYGON {
		t.Errorf("GeometryType = %d, want POLYGON", r.GeometryType)
	}
	fields := r.Fields()
	if len(fields) != 2 || fields[0].String() != "NAME" || fields[1].String() != "POP" {
		t.Fatalf("fields = %v, want [NAME POP]", fields)
	}
	var n int
	for r.Next() {
		idx, shape := r.Shape()
		poly := shape.(*shp.Polygon)
		want := coord.ForwardDeg(p, -20, -20)
		if idx == 0 && (math.Abs(poly.Points[0].X-want[0]) > 1e-9 || math.Abs(poly.Points[0].Y-want[1]) > 1e-9) {
			t.Errorf("first vertex = %+v, want %v", poly.Points[0], want)
		}
		if idx == 1 && clean(r.ReadAttribute(idx, 0)) != "beta" {
			t.Errorf("NAME[1] = %q, want beta", r.ReadAttribute(idx, 0))
		}
		if idx == 0 && clean(r.ReadAttribute(idx, 1)) != "1200" {
			t.Errorf("POP[0] = %q, want 1200", r.ReadAttribute(idx, 1))
		}
		n++
	}
	if n != 2 {
		t.Errorf("records = %d, want 2", n)
	}

	rb, err := shp.Open(back)
	if err != nil {
		t.Fatalf("open inverse output: %v", err)
	}
	defer rb.Close()
	for rb.Next() {
		idx, shape := rb.Shape()
		poly := shape.(*shp.Polygon)
		if idx == 1 {
			got := poly.Points[2]
			if math.Abs(got.X-120) > 1e-4 || math.Abs(got.Y-60) > 1e-4 {
				t.Errorf("roundtrip vertex = %+v, want (120, 60)", got)
			}
		}
	}
}

func TestReprojectShapefile_OutputFiles(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "boxes.shp")
	writeTestShapefile(t, src)

	if _, err := ReprojectShapefile(src, filepath.Join(dir, "out.shp"), coord.Robinson{}, Forward); err != nil {
		t.Fatalf("forward: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	want := []string{"boxes.dbf", "boxes.shp", "boxes.shx", "out.dbf", "out.shp", "out.shx"}
	if strings.Join(names, " ") != strings.Join(want, " ") {
		t.Errorf("files = %v, want %v", names, want)
	}
}

func TestReprojectShapefile_FailureKeepsOutput(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "boxes.shp")
	dst := filepath.Join(dir, "out.shp")
	writeTestShapefile(t, src)
	if err := os.WriteFile(dst, []byte("previous"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := ReprojectShapefile(src, dst, noInverse{}, Inverse); !errors.Is(err, coord.ErrNoInverse) {
		t.Fatalf("error = %v, want ErrNoInverse", err)
	}
	if got, err := os.ReadFile(dst); err != nil || string(got) != "previous" {
		t.Errorf("existing output = %q, %v; want it untouched", got, err)
	}
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".reproject-") {
			t.Errorf("temporary directory %s left behind", e.Name())
		}
	}
}

func TestFixDBFName(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "roads.shp")
	if err := os.WriteFile(filepath.Join(dir, "roadsdbf"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := fixDBFName(path); err != nil {
		t.Fatalf("fixDBFName: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "roads.dbf")); err != nil {
		t.Errorf("roads.dbf missing: %v", err)
	}
	// Nothing to rename is not an error.
	if err := fixDBFName(filepath.Join(dir, "none.shp")); err != nil {
		t.Errorf("fixDBFName without table: %v", err)
	}
}

func TestReprojectShapefile_BadOutputPath(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "boxes.shp")
	writeTestShapefile(t, src)
	if _, err := ReprojectShapefile(src, filepath.Join(dir, "out.geojson"), coord.Robinson{}, Forward); err == nil {
		t.Error("expected error for non-.shp output path")
	}
}

func TestReprojectShapefile_MissingInput(t *testing.T) {
	dir := t.TempDir()
	_, err := ReprojectShapefile(filepath.Join(dir, "missing.shp"), filepath.Join(dir, "out.shp"), coord.Robinson{}, Forward)
	if err == nil {
		t.Error("expected error for missing input")
	}
}

func TestDirection_String(t *testing.T) {
	if Forward.String() != "forward" || Inverse.String() != "inverse" {
		t.Errorf("Direction strings = %q, %q", Forward, Inverse)
	}
}
