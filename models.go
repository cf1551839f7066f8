package main

import (
	"fmt"
	"math"

	"honnef.co/go/curve"
)

// SegmentKind tags the geometric kind of a path segment. The kind is
// decided once while parsing the source document, never re-derived.
type SegmentKind int

const (
	SegmentLine SegmentKind = iota
	SegmentQuad
	SegmentCubic
	SegmentArc
)

// String returns a readable name for the segment kind
func (k SegmentKind) String() string {
	switch k {
	case SegmentLine:
		return "line"
	case SegmentQuad:
		return "quad"
	case SegmentCubic:
		return "cubic"
	case SegmentArc:
		return "arc"
	}
	return "unknown"
}

// Segment is one drawable piece of an SVG path. Exactly one of the
// geometry fields is meaningful, selected by Kind.
type Segment struct {
	Kind  SegmentKind
	Line  curve.Line
	Quad  curve.QuadBez
	Cubic curve.CubicBez
	Arc   Arc
}

// Eval returns the point on the segment at parameter t in [0, 1].
func (s Segment) Eval(t float64) curve.Point {
	switch s.Kind {
	case SegmentLine:
		return s.Line.Eval(t)
	case SegmentQuad:
		return s.Quad.Eval(t)
	case SegmentCubic:
		return s.Cubic.Eval(t)
	default:
		return s.Arc.Eval(t)
	}
}

// Start returns the exact start point as parsed from the source document.
func (s Segment) Start() curve.Point {
	switch s.Kind {
	case SegmentLine:
		return s.Line.P0
	case SegmentQuad:
		return s.Quad.P0
	case SegmentCubic:
		return s.Cubic.P0
	default:
		return s.Arc.P0
	}
}

// End returns the exact end point as parsed from the source document.
// Shared endpoints between adjacent segments compare equal because they
// are never recomputed through curve evaluation.
func (s Segment) End() curve.Point {
	switch s.Kind {
	case SegmentLine:
		return s.Line.P1
	case SegmentQuad:
		return s.Quad.P2
	case SegmentCubic:
		return s.Cubic.P3
	default:
		return s.Arc.P1
	}
}

// BoundingBox returns the tight axis-aligned bounds of the segment.
func (s Segment) BoundingBox() curve.Rect {
	switch s.Kind {
	case SegmentLine:
		return s.Line.BoundingBox()
	case SegmentQuad:
		return s.Quad.BoundingBox()
	case SegmentCubic:
		return s.Cubic.BoundingBox()
	default:
		return s.Arc.BoundingBox()
	}
}

// rotatedAbout returns the segment rotated counterclockwise by radians
// around center.
func (s Segment) rotatedAbout(center curve.Point, radians float64) Segment {
	switch s.Kind {
	case SegmentLine:
		return Segment{Kind: SegmentLine, Line: curve.Line{
			P0: rotatePointAbout(s.Line.P0, center, radians),
			P1: rotatePointAbout(s.Line.P1, center, radians),
		}}
	case SegmentQuad:
		return Segment{Kind: SegmentQuad, Quad: curve.QuadBez{
			P0: rotatePointAbout(s.Quad.P0, center, radians),
			P1: rotatePointAbout(s.Quad.P1, center, radians),
			P2: rotatePointAbout(s.Quad.P2, center, radians),
		}}
	case SegmentCubic:
		return Segment{Kind: SegmentCubic, Cubic: curve.CubicBez{
			P0: rotatePointAbout(s.Cubic.P0, center, radians),
			P1: rotatePointAbout(s.Cubic.P1, center, radians),
			P2: rotatePointAbout(s.Cubic.P2, center, radians),
			P3: rotatePointAbout(s.Cubic.P3, center, radians),
		}}
	default:
		a := s.Arc
		a.P0 = rotatePointAbout(a.P0, center, radians)
		a.P1 = rotatePointAbout(a.P1, center, radians)
		a.Center = rotatePointAbout(a.Center, center, radians)
		a.XRotation += radians
		return Segment{Kind: SegmentArc, Arc: a}
	}
}

// scaledAbout returns the segment scaled uniformly by factor around center.
func (s Segment) scaledAbout(center curve.Point, factor float64) Segment {
	switch s.Kind {
	case SegmentLine:
		return Segment{Kind: SegmentLine, Line: curve.Line{
			P0: scalePointAbout(s.Line.P0, center, factor),
			P1: scalePointAbout(s.Line.P1, center, factor),
		}}
	case SegmentQuad:
		return Segment{Kind: SegmentQuad, Quad: curve.QuadBez{
			P0: scalePointAbout(s.Quad.P0, center, factor),
			P1: scalePointAbout(s.Quad.P1, center, factor),
			P2: scalePointAbout(s.Quad.P2, center, factor),
		}}
	case SegmentCubic:
		return Segment{Kind: SegmentCubic, Cubic: curve.CubicBez{
			P0: scalePointAbout(s.Cubic.P0, center, factor),
			P1: scalePointAbout(s.Cubic.P1, center, factor),
			P2: scalePointAbout(s.Cubic.P2, center, factor),
			P3: scalePointAbout(s.Cubic.P3, center, factor),
		}}
	default:
		a := s.Arc
		a.P0 = scalePointAbout(a.P0, center, factor)
		a.P1 = scalePointAbout(a.P1, center, factor)
		a.Center = scalePointAbout(a.Center, center, factor)
		a.Rx *= factor
		a.Ry *= factor
		return Segment{Kind: SegmentArc, Arc: a}
	}
}

// Arc is an elliptical arc in center parameterization. P0 and P1 hold the
// exact endpoints from the source document; Eval returns them untouched at
// t = 0 and t = 1.
type Arc struct {
	P0, P1    curve.Point
	Center    curve.Point
	Rx, Ry    float64
	XRotation float64 // radians
	StartEta  float64
	DeltaEta  float64
}

// Eval returns the point on the arc at parameter t in [0, 1].
func (a Arc) Eval(t float64) curve.Point {
	switch t {
	case 0:
		return a.P0
	case 1:
		return a.P1
	}
	return a.pointAtEta(a.StartEta + t*a.DeltaEta)
}

// pointAtEta evaluates the ellipse at angular parameter eta.
func (a Arc) pointAtEta(eta float64) curve.Point {
	sinPhi, cosPhi := math.Sincos(a.XRotation)
	x := a.Rx * math.Cos(eta)
	y := a.Ry * math.Sin(eta)
	return curve.Pt(a.Center.X+x*cosPhi-y*sinPhi, a.Center.Y+x*sinPhi+y*cosPhi)
}

// BoundingBox returns the bounds of the arc: the endpoints plus every axis
// extreme of the ellipse whose angular parameter falls inside the swept
// range.
func (a Arc) BoundingBox() curve.Rect {
	minX := math.Min(a.P0.X, a.P1.X)
	maxX := math.Max(a.P0.X, a.P1.X)
	minY := math.Min(a.P0.Y, a.P1.Y)
	maxY := math.Max(a.P0.Y, a.P1.Y)

	lo, hi := a.StartEta, a.StartEta+a.DeltaEta
	if lo > hi {
		lo, hi = hi, lo
	}

	// Angular parameters of the horizontal and vertical extremes of the
	// ellipse, repeating every half turn.
	sinPhi, cosPhi := math.Sincos(a.XRotation)
	etaX := math.Atan2(-a.Ry*sinPhi, a.Rx*cosPhi)
	etaY := math.Atan2(a.Ry*cosPhi, a.Rx*sinPhi)
	for _, base := range [2]float64{etaX, etaY} {
		for k := -4.0; k <= 4; k++ {
			eta := base + k*math.Pi
			if eta < lo || eta > hi {
				continue
			}
			p := a.pointAtEta(eta)
			minX = math.Min(minX, p.X)
			maxX = math.Max(maxX, p.X)
			minY = math.Min(minY, p.Y)
			maxY = math.Max(maxY, p.Y)
		}
	}
	return curve.Rect{X0: minX, Y0: minY, X1: maxX, Y1: maxY}
}

// arcFromEndpoints converts an arc from SVG endpoint parameterization to
// center parameterization. Radii too small to span the endpoints are scaled
// up minimally, preserving their ratio. ok is false when either radius is
// zero and the arc degenerates to a straight line.
func arcFromEndpoints(p0, p1 curve.Point, rx, ry, xRotDeg float64, largeArc, sweep bool) (arc Arc, ok bool) {
	rx, ry = math.Abs(rx), math.Abs(ry)
	if rx == 0 || ry == 0 {
		return Arc{}, false
	}
	phi := xRotDeg * math.Pi / 180
	sinPhi, cosPhi := math.Sincos(phi)

	dx := (p0.X - p1.X) / 2
	dy := (p0.Y - p1.Y) / 2
	x1p := cosPhi*dx + sinPhi*dy
	y1p := -sinPhi*dx + cosPhi*dy

	lambda := x1p*x1p/(rx*rx) + y1p*y1p/(ry*ry)
	if lambda > 1 {
		s := math.Sqrt(lambda)
		rx *= s
		ry *= s
	}

	num := rx*rx*ry*ry - rx*rx*y1p*y1p - ry*ry*x1p*x1p
	if num < 0 {
		num = 0
	}
	den := rx*rx*y1p*y1p + ry*ry*x1p*x1p
	var coef float64
	if den > 0 {
		coef = math.Sqrt(num / den)
	}
	if largeArc == sweep {
		coef = -coef
	}

	cxp := coef * rx * y1p / ry
	cyp := -coef * ry * x1p / rx
	cx := cosPhi*cxp - sinPhi*cyp + (p0.X+p1.X)/2
	cy := sinPhi*cxp + cosPhi*cyp + (p0.Y+p1.Y)/2

	startEta := math.Atan2((y1p-cyp)/ry, (x1p-cxp)/rx)
	endEta := math.Atan2((-y1p-cyp)/ry, (-x1p-cxp)/rx)
	delta := endEta - startEta
	if !sweep && delta > 0 {
		delta -= 2 * math.Pi
	} else if sweep && delta < 0 {
		delta += 2 * math.Pi
	}

	return Arc{
		P0:        p0,
		P1:        p1,
		Center:    curve.Pt(cx, cy),
		Rx:        rx,
		Ry:        ry,
		XRotation: phi,
		StartEta:  startEta,
		DeltaEta:  delta,
	}, true
}

// SVGPath is one drawable path extracted from the input document.
type SVGPath struct {
	Index     int
	ID        string
	Stroke    string
	Fill      string
	Segments  []Segment
	Subpaths  int         // number of explicit movetos
	Anchor    curve.Point // first moveto of the path
	HasAnchor bool
}

// BoundingBox returns the bounds of the whole path in its current
// coordinate frame. Compound paths (more than one explicit moveto) and
// paths without any coordinate data cannot report bounds and fail with a
// parse error. A bare moveto reports its single point as the bounds.
func (p SVGPath) BoundingBox() (curve.Rect, error) {
	if p.Subpaths > 1 {
		return curve.Rect{}, fmt.Errorf("compound path with %d subpaths", p.Subpaths)
	}
	if len(p.Segments) == 0 {
		if !p.HasAnchor {
			return curve.Rect{}, fmt.Errorf("path has no geometry")
		}
		return curve.Rect{X0: p.Anchor.X, Y0: p.Anchor.Y, X1: p.Anchor.X, Y1: p.Anchor.Y}, nil
	}
	r := p.Segments[0].BoundingBox()
	for _, s := range p.Segments[1:] {
		r = r.Union(s.BoundingBox())
	}
	return r, nil
}

// rotatedAbout returns a copy of the path rotated counterclockwise by
// radians around center.
func (p SVGPath) rotatedAbout(center curve.Point, radians float64) SVGPath {
	q := p
	q.Anchor = rotatePointAbout(p.Anchor, center, radians)
	q.Segments = make([]Segment, len(p.Segments))
	for i, s := range p.Segments {
		q.Segments[i] = s.rotatedAbout(center, radians)
	}
	return q
}

// scaledAbout returns a copy of the path scaled uniformly by factor around
// center.
func (p SVGPath) scaledAbout(center curve.Point, factor float64) SVGPath {
	q := p
	q.Anchor = scalePointAbout(p.Anchor, center, factor)
	q.Segments = make([]Segment, len(p.Segments))
	for i, s := range p.Segments {
		q.Segments[i] = s.scaledAbout(center, factor)
	}
	return q
}

// rotatePointAbout rotates p counterclockwise by radians around c. The arc
// segment carries its own parameterization, so transforms are applied per
// segment kind through these helpers rather than an affine on the shapes.
func rotatePointAbout(p, c curve.Point, radians float64) curve.Point {
	sin, cos := math.Sincos(radians)
	dx, dy := p.X-c.X, p.Y-c.Y
	return curve.Pt(c.X+dx*cos-dy*sin, c.Y+dx*sin+dy*cos)
}

// scalePointAbout scales p by factor around c.
func scalePointAbout(p, c curve.Point, factor float64) curve.Point {
	return curve.Pt(c.X+(p.X-c.X)*factor, c.Y+(p.Y-c.Y)*factor)
}
