package main

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"honnef.co/go/curve"
)

func testOptions(width, height float64) *Options {
	factor := unitFactors["cm"]
	return &Options{
		Width:         width,
		Height:        height,
		Units:         "cm",
		UnitsPerCM:    factor.PerCM,
		InchesPerUnit: factor.Inches,
		DPI:           300,
		Skip:          map[int]bool{},
	}
}

func lineSegment(x0, y0, x1, y1 float64) Segment {
	return Segment{Kind: SegmentLine, Line: curve.Line{P0: curve.Pt(x0, y0), P1: curve.Pt(x1, y1)}}
}

func TestConvertStraightLine(t *testing.T) {
	// A 10-unit horizontal line on a 10 cm page plus a bare anchor that
	// stretches the bounds to y=5. Scale comes out to 1500m/10cm = 0.01
	// map units per pixel with no map file.
	paths := []SVGPath{
		{
			Index:     0,
			Segments:  []Segment{lineSegment(0, 0, 10, 0)},
			Subpaths:  1,
			Anchor:    curve.Pt(0, 0),
			HasAnchor: true,
		},
		{
			Index:     1,
			Subpaths:  1,
			Anchor:    curve.Pt(5, 5),
			HasAnchor: true,
		},
	}

	conv := NewConverter(testOptions(10, 1), nil)
	fc, report, err := conv.Convert(context.Background(), paths)
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}

	if report.Paths != 2 {
		t.Errorf("Paths = %d, expected 2", report.Paths)
	}
	if report.Features != 1 {
		t.Errorf("Features = %d, expected 1", report.Features)
	}
	if diff := cmp.Diff([]int{1}, report.Dropped); diff != "" {
		t.Errorf("Dropped mismatch (-want +got):\n%s", diff)
	}
	if len(fc.Features) != 1 {
		t.Fatalf("feature count = %d, expected 1", len(fc.Features))
	}

	want := orb.LineString{{4.95, 2.525}, {5.05, 2.525}}
	got := fc.Features[0].Geometry.(orb.LineString)
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("coordinates mismatch (-want +got):\n%s", diff)
	}
	if npts := fc.Features[0].Properties["npts"]; npts != 2 {
		t.Errorf("npts property = %v, expected 2", npts)
	}
	if id := fc.Features[0].Properties["id"]; id != 0 {
		t.Errorf("id property = %v, expected 0", id)
	}
}

func TestConvertDeduplication(t *testing.T) {
	testCases := []struct {
		name     string
		segments []Segment
		expected int
	}{
		{
			name: "Open polyline shares interior endpoints",
			segments: []Segment{
				lineSegment(0, 0, 1, 0),
				lineSegment(1, 0, 2, 1),
			},
			expected: 3,
		},
		{
			name: "Closed triangle repeats its start point once",
			segments: []Segment{
				lineSegment(0, 0, 4, 0),
				lineSegment(4, 0, 0, 3),
				lineSegment(0, 3, 0, 0),
			},
			expected: 4,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			paths := []SVGPath{{
				Segments:  tc.segments,
				Subpaths:  1,
				Anchor:    tc.segments[0].Start(),
				HasAnchor: true,
			}}
			conv := NewConverter(testOptions(1, 1), nil)
			fc, _, err := conv.Convert(context.Background(), paths)
			if err != nil {
				t.Fatalf("Convert failed: %v", err)
			}
			got := len(fc.Features[0].Geometry.(orb.LineString))
			if got != tc.expected {
				t.Errorf("point count = %d, expected %d", got, tc.expected)
			}
		})
	}
}

func TestConvertRotation(t *testing.T) {
	// 90 degrees counterclockwise about the drawing center turns a
	// horizontal line into a vertical one.
	opts := testOptions(10, 1)
	opts.Rotation = 90
	paths := []SVGPath{{
		Segments:  []Segment{lineSegment(0, 0, 10, 0)},
		Subpaths:  1,
		Anchor:    curve.Pt(0, 0),
		HasAnchor: true,
	}}

	conv := NewConverter(opts, nil)
	fc, _, err := conv.Convert(context.Background(), paths)
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}

	want := orb.LineString{{5, 0.05}, {5, -0.05}}
	got := fc.Features[0].Geometry.(orb.LineString)
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("coordinates mismatch (-want +got):\n%s", diff)
	}
}

func TestConvertSkipList(t *testing.T) {
	opts := testOptions(10, 1)
	opts.Skip = map[int]bool{0: true}
	paths := []SVGPath{
		{
			Segments:  []Segment{lineSegment(0, 0, 10, 0)},
			Subpaths:  1,
			Anchor:    curve.Pt(0, 0),
			HasAnchor: true,
		},
		{
			Segments:  []Segment{lineSegment(0, 0, 5, 5)},
			Subpaths:  1,
			Anchor:    curve.Pt(0, 0),
			HasAnchor: true,
		},
	}

	conv := NewConverter(opts, nil)
	fc, report, err := conv.Convert(context.Background(), paths)
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	if len(fc.Features) != 1 {
		t.Fatalf("feature count = %d, expected 1", len(fc.Features))
	}
	if diff := cmp.Diff([]int{0}, report.Skipped); diff != "" {
		t.Errorf("Skipped mismatch (-want +got):\n%s", diff)
	}
	if id := fc.Features[0].Properties["id"]; id != 1 {
		t.Errorf("id property = %v, expected 1", id)
	}
}

func TestConvertCompoundPathFails(t *testing.T) {
	paths := []SVGPath{{
		Segments:  []Segment{lineSegment(0, 0, 1, 0), lineSegment(5, 5, 6, 5)},
		Subpaths:  2,
		Anchor:    curve.Pt(0, 0),
		HasAnchor: true,
	}}
	conv := NewConverter(testOptions(1, 1), nil)
	if _, _, err := conv.Convert(context.Background(), paths); err == nil {
		t.Error("expected error for compound path, got nil")
	}
}

func TestConvertNoPaths(t *testing.T) {
	conv := NewConverter(testOptions(1, 1), nil)
	if _, _, err := conv.Convert(context.Background(), nil); err == nil {
		t.Error("expected error for empty input, got nil")
	}
}

func TestSampleCurve(t *testing.T) {
	quad := Segment{Kind: SegmentQuad, Quad: curve.QuadBez{
		P0: curve.Pt(0, 0),
		P1: curve.Pt(1, 1),
		P2: curve.Pt(2, 0),
	}}

	// Step 0.25 samples t = 0, 0.25, 0.5, 0.75 plus the exact endpoint.
	points := sampleCurve(quad, 0.25, nil)
	if len(points) != 5 {
		t.Fatalf("sample count = %d, expected 5", len(points))
	}
	if points[0] != quad.Start() {
		t.Errorf("first sample = %v, expected exact start %v", points[0], quad.Start())
	}
	if points[len(points)-1] != quad.End() {
		t.Errorf("last sample = %v, expected exact end %v", points[len(points)-1], quad.End())
	}
}

func TestSampleStep(t *testing.T) {
	testCases := []struct {
		name      string
		side      float64
		dots      float64
		expected  float64
		tolerance float64
	}{
		{
			name:      "Typical path",
			side:      10,
			dots:      100,
			expected:  0.012574334,
			tolerance: 1e-8,
		},
		{
			name:      "Degenerate bounds",
			side:      0,
			dots:      0,
			expected:  0,
			tolerance: 0,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			step := sampleStep(tc.side, tc.dots)
			if math.Abs(step-tc.expected) > tc.tolerance {
				t.Errorf("step = %g, expected %g", step, tc.expected)
			}
		})
	}
}

func TestCountPoint(t *testing.T) {
	points := []curve.Point{curve.Pt(1, 2), curve.Pt(3, 4), curve.Pt(1, 2)}
	if n := countPoint(points, curve.Pt(1, 2)); n != 2 {
		t.Errorf("count = %d, expected 2", n)
	}
	if n := countPoint(points, curve.Pt(9, 9)); n != 0 {
		t.Errorf("count = %d, expected 0", n)
	}
}

func TestEndToEndConversion(t *testing.T) {
	dir := t.TempDir()
	svgPath := filepath.Join(dir, "drawing.svg")
	mapPath := filepath.Join(dir, "project.omap")
	outPath := filepath.Join(dir, "drawing.geojson")

	svg := `<?xml version="1.0"?>
<svg xmlns="http://www.w3.org/2000/svg">
  <g>
    <path d="M0,0 L10,0" style="stroke:#202020;fill:none"/>
    <path d="M5,5"/>
  </g>
</svg>`
	mapXML := `<?xml version="1.0"?>
<map xmlns="http://openorienteering.org/apps/mapper/xml/v2">
  <georeferencing scale="15000" declination="0">
    <projected_crs id="UTM">
      <spec language="PROJ.4">+proj=utm +datum=WGS84 +zone=33</spec>
      <parameter>33 N</parameter>
      <ref_point x="500000" y="6000000"/>
    </projected_crs>
    <geographic_crs id="Geographic coordinates">
      <ref_point_deg lat="54.1" lon="15.0"/>
    </geographic_crs>
  </georeferencing>
</map>`
	if err := os.WriteFile(svgPath, []byte(svg), 0644); err != nil {
		t.Fatalf("failed to write SVG fixture: %v", err)
	}
	if err := os.WriteFile(mapPath, []byte(mapXML), 0644); err != nil {
		t.Fatalf("failed to write map fixture: %v", err)
	}

	opts, err := NewOptions(Params{
		InputPath:  svgPath,
		OutputPath: outPath,
		MapPath:    mapPath,
		Width:      10,
		Height:     1,
		Units:      "cm",
		DPI:        300,
	})
	if err != nil {
		t.Fatalf("NewOptions failed: %v", err)
	}

	georef, err := ParseMapFile(mapPath)
	if err != nil {
		t.Fatalf("ParseMapFile failed: %v", err)
	}
	epsg := resolveEPSG(opts, georef)
	if epsg != 32633 {
		t.Errorf("epsg = %d, expected 32633", epsg)
	}

	paths, err := ParseSVGFile(svgPath)
	if err != nil {
		t.Fatalf("ParseSVGFile failed: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("path count = %d, expected 2", len(paths))
	}

	conv := NewConverter(opts, georef)
	fc, report, err := conv.Convert(context.Background(), paths)
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	if report.Features != 1 {
		t.Fatalf("Features = %d, expected 1", report.Features)
	}

	// 10 cm at 1:15000 is 1500 map meters, so the scale factor is 150 and
	// the endpoints land 750m either side of the reference easting.
	want := orb.LineString{{499255, 6000377.5}, {500755, 6000377.5}}
	got := fc.Features[0].Geometry.(orb.LineString)
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-6)); diff != "" {
		t.Errorf("coordinates mismatch (-want +got):\n%s", diff)
	}
	if stroke := fc.Features[0].Properties["stroke"]; stroke != "#202020" {
		t.Errorf("stroke property = %v, expected #202020", stroke)
	}

	if err := WriteFeatureCollection(fc, epsg, outPath); err != nil {
		t.Fatalf("WriteFeatureCollection failed: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	crs, ok := raw["crs"].(map[string]interface{})
	if !ok {
		t.Fatal("output carries no crs member")
	}
	props := crs["properties"].(map[string]interface{})
	if props["name"] != "EPSG:32633" {
		t.Errorf("crs name = %v, expected EPSG:32633", props["name"])
	}

	decoded, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		t.Fatalf("output is not a valid feature collection: %v", err)
	}
	if len(decoded.Features) != 1 {
		t.Errorf("decoded feature count = %d, expected 1", len(decoded.Features))
	}
}

func TestWriteFeatureCollectionNoCRS(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	fc.Append(geojson.NewFeature(orb.LineString{{0, 0}, {1, 1}}))
	outPath := filepath.Join(t.TempDir(), "out.geojson")

	if err := WriteFeatureCollection(fc, 0, outPath); err != nil {
		t.Fatalf("WriteFeatureCollection failed: %v", err)
	}
	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if _, ok := raw["crs"]; ok {
		t.Error("unexpected crs member for unknown EPSG")
	}
}
