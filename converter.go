package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"honnef.co/go/curve"
)

// minStep is the smallest allowed sampling step. Steps below this floor
// would emit an unusable number of points for a single path.
const minStep = 0.001

// Converter transforms parsed SVG paths into georeferenced GeoJSON
// features.
type Converter struct {
	opts   *Options
	georef *Georeferencing
	logger *slog.Logger
}

// NewConverter creates a new converter for the given options and optional
// georeferencing metadata.
func NewConverter(opts *Options, georef *Georeferencing) *Converter {
	return &Converter{
		opts:   opts,
		georef: georef,
		logger: slog.With("component", "converter"),
	}
}

// Convert runs the full pipeline: global bounds, scale factor, per-path
// rotation, scaling, sampling and deduplication, Y inversion and
// reference-point translation, then feature assembly in path order.
func (c *Converter) Convert(ctx context.Context, paths []SVGPath) (*geojson.FeatureCollection, *ConversionReport, error) {
	if len(paths) == 0 {
		return nil, nil, fmt.Errorf("no paths found in input")
	}

	// Global drawing bounds before any transform. The Y maximum recorded
	// here drives the axis inversion for every path.
	var bounds curve.Rect
	for i, p := range paths {
		r, err := p.BoundingBox()
		if err != nil {
			return nil, nil, fmt.Errorf("unable to parse SVG path %d (try releasing compound paths): %w", i, err)
		}
		if i == 0 {
			bounds = r
		} else {
			bounds = bounds.Union(r)
		}
	}

	mapScale := 1.0
	declination := 0.0
	refX, refY := 0.0, 0.0
	if c.georef != nil {
		if c.georef.Scale > 0 {
			mapScale = c.georef.Scale
		}
		declination = c.georef.Declination
		refX, refY = c.georef.RefX, c.georef.RefY
	}

	rotation := c.opts.Rotation
	if rotation == 0 {
		rotation = declination
	}

	// The page's longer dimension, converted to meters and blown up to
	// map meters at the map's scale, is paired with the matching axis of
	// the drawing bounds. Their ratio is the uniform scale factor applied
	// to every path.
	pageD := c.opts.Width
	spanPx := bounds.Width()
	if c.opts.Height >= c.opts.Width {
		pageD = c.opts.Height
		spanPx = bounds.Height()
	}
	if spanPx <= 0 {
		return nil, nil, fmt.Errorf("drawing has no extent")
	}
	meters := pageD / (100 * c.opts.UnitsPerCM)
	mapD := meters * mapScale
	scale := mapD / spanPx
	pxPerInch := spanPx / (pageD * c.opts.InchesPerUnit)

	center := curve.Pt((bounds.X0+bounds.X1)/2, (bounds.Y0+bounds.Y1)/2)
	yMax := bounds.Y1

	c.logger.Debug("derived transform",
		"span_px", spanPx,
		"map_meters", mapD,
		"scale", scale,
		"px_per_inch", pxPerInch,
		"rotation", rotation,
		"center_x", center.X,
		"center_y", center.Y,
	)

	fc := geojson.NewFeatureCollection()
	report := &ConversionReport{Paths: len(paths)}

	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		if c.opts.Skip[i] {
			c.logger.Warn("skipping excluded path", "path", i, "id", path.ID)
			report.Skipped = append(report.Skipped, i)
			continue
		}
		c.logger.Debug("processing path", "path", i, "segments", len(path.Segments))

		if len(path.Segments) == 0 {
			report.Dropped = append(report.Dropped, i)
			continue
		}

		if rotation != 0 {
			path = path.rotatedAbout(center, rotation*math.Pi/180)
		}
		path = path.scaledAbout(center, scale)

		pb, err := path.BoundingBox()
		if err != nil {
			return nil, nil, fmt.Errorf("unable to parse SVG path %d (try releasing compound paths): %w", i, err)
		}
		side := math.Max(pb.Width(), pb.Height())
		dots := (side / pxPerInch) * float64(c.opts.DPI)

		step := sampleStep(side, dots)
		if step < minStep {
			c.logger.Warn("sampling step below floor, clamping", "path", i, "step", step)
			report.StepCorrections = append(report.StepCorrections, i)
			step = minStep
		}

		var points []curve.Point
		for _, seg := range path.Segments {
			switch seg.Kind {
			case SegmentLine:
				if countPoint(points, seg.Start()) < 1 {
					points = append(points, seg.Start())
				}
				if countPoint(points, seg.End()) < 2 {
					points = append(points, seg.End())
				}
			case SegmentQuad, SegmentCubic, SegmentArc:
				points = sampleCurve(seg, step, points)
			default:
				c.logger.Warn("unknown segment kind", "path", i, "kind", seg.Kind)
				report.UnknownSegments++
			}
		}

		if len(points) < 2 {
			c.logger.Warn("path yields fewer than two points, dropping", "path", i)
			report.Dropped = append(report.Dropped, i)
			continue
		}

		coords := make(orb.LineString, len(points))
		for j, pt := range points {
			coords[j] = orb.Point{pt.X + refX, (yMax - pt.Y) + refY}
		}

		feature := geojson.NewFeature(coords)
		feature.Properties = geojson.Properties{
			"id":     i,
			"npts":   len(points),
			"stroke": path.Stroke,
			"fill":   path.Fill,
		}
		fc.Append(feature)
		report.Features++
	}

	return fc, report, nil
}

// sampleStep derives the curve sampling step from the path's larger bounds
// dimension and its dot count at the output resolution.
func sampleStep(side, dots float64) float64 {
	if side <= 0 || dots <= 0 {
		return 0
	}
	xx := math.Sqrt(side/dots) * 20
	if xx == 0 {
		xx = 1
	}
	dpiAdjust := math.Sqrt(side) / math.Sqrt(xx)
	return (side / (dots * side)) * dpiAdjust
}

// sampleCurve appends samples of one curve segment taken at parameter
// increments of step over the segment's own [0, 1] range. Interior samples
// are kept only when new; the exact endpoint closes the segment and may
// repeat once so rings come out closed.
func sampleCurve(seg Segment, step float64, points []curve.Point) []curve.Point {
	for t := 0.0; t < 1; t += step {
		pt := seg.Eval(t)
		if countPoint(points, pt) < 1 {
			points = append(points, pt)
		}
	}
	end := seg.End()
	if countPoint(points, end) < 2 {
		points = append(points, end)
	}
	return points
}

// countPoint counts exact occurrences of p in points. Segment endpoints
// are carried verbatim from the parse, so equality is exact for the shared
// points the deduplication cares about.
func countPoint(points []curve.Point, p curve.Point) int {
	n := 0
	for _, q := range points {
		if q == p {
			n++
		}
	}
	return n
}

// WriteFeatureCollection marshals the collection and writes it to path in
// one operation. A known EPSG code is recorded as a named crs member.
func WriteFeatureCollection(fc *geojson.FeatureCollection, epsg int, path string) error {
	if epsg > 0 {
		fc.ExtraMembers = map[string]interface{}{
			"crs": map[string]interface{}{
				"type": "name",
				"properties": map[string]interface{}{
					"name": fmt.Sprintf("EPSG:%d", epsg),
				},
			},
		}
	}

	data, err := json.Marshal(fc)
	if err != nil {
		return fmt.Errorf("failed to marshal feature collection: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}
