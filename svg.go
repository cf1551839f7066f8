package main

import (
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"

	"honnef.co/go/curve"
)

var (
	// One submatch per drawing command: the command letter and everything
	// up to the next command letter.
	dCommands = regexp.MustCompile(`(?i)([mlhvcsqtaz])([^mlhvcsqtaz]*)`)
	dNumbers  = regexp.MustCompile(`(?i)-?[0-9]*\.?[0-9]+(?:e[-+]?\d+)?`)
)

// ParseSVGFile reads an SVG document and extracts every drawable element
// as a path, in document order.
func ParseSVGFile(path string) ([]SVGPath, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SVG file: %w", err)
	}
	defer f.Close()
	return parseSVG(f)
}

// parseSVG walks the XML token stream and collects path, line, polyline,
// polygon, rect, circle and ellipse elements at any nesting depth,
// converting the basic shapes to their path equivalent.
func parseSVG(r io.Reader) ([]SVGPath, error) {
	dec := xml.NewDecoder(r)
	var paths []SVGPath
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse SVG document: %w", err)
		}
		se, isStart := tok.(xml.StartElement)
		if !isStart {
			continue
		}
		attrs := attrMap(se.Attr)

		var p SVGPath
		var ok bool
		var perr error
		switch se.Name.Local {
		case "path":
			p, perr = pathFromData(attrs["d"])
			ok = true
		case "line":
			p, perr = pathFromLine(attrs)
			ok = true
		case "polyline":
			p, ok, perr = pathFromPoints(attrs["points"], false)
		case "polygon":
			p, ok, perr = pathFromPoints(attrs["points"], true)
		case "rect":
			p, ok, perr = pathFromRect(attrs)
		case "circle", "ellipse":
			p, ok, perr = pathFromEllipse(attrs)
		default:
			continue
		}
		if perr != nil {
			return nil, fmt.Errorf("failed to parse %s element: %w", se.Name.Local, perr)
		}
		if !ok {
			continue
		}
		p.Index = len(paths)
		p.ID = attrs["id"]
		p.Stroke, p.Fill = styleColors(attrs["style"])
		paths = append(paths, p)
	}
	return paths, nil
}

// attrMap flattens element attributes by local name.
func attrMap(attrs []xml.Attr) map[string]string {
	m := make(map[string]string, len(attrs))
	for _, a := range attrs {
		m[a.Name.Local] = a.Value
	}
	return m
}

// styleColors extracts the stroke and fill declarations from a CSS style
// attribute. Declarations are parsed key by key so values containing
// colons or the words "stroke"/"fill" cannot bleed into each other.
func styleColors(style string) (stroke, fill string) {
	for _, decl := range strings.Split(style, ";") {
		key, value, found := strings.Cut(decl, ":")
		if !found {
			continue
		}
		switch strings.TrimSpace(strings.ToLower(key)) {
		case "stroke":
			stroke = strings.TrimSpace(value)
		case "fill":
			fill = strings.TrimSpace(value)
		}
	}
	return stroke, fill
}

// sanitizePathData blanks out commands the converter does not recognize,
// together with their arguments, so they cannot be misread as coordinates
// of the preceding command. Each occurrence is reported as a notice.
func sanitizePathData(d string) string {
	out := []byte(d)
	for i := 0; i < len(out); i++ {
		ch := out[i]
		if !isASCIILetter(ch) || isPathCommand(ch) || ch == 'e' || ch == 'E' {
			continue
		}
		slog.Warn("unrecognized path command, skipping", "command", string(ch))
		for i < len(out) && !(isASCIILetter(out[i]) && isPathCommand(out[i])) {
			out[i] = ' '
			i++
		}
		i--
	}
	return string(out)
}

func isASCIILetter(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isPathCommand(ch byte) bool {
	return strings.ContainsRune("mlhvcsqtazMLHVCSQTAZ", rune(ch))
}

// parseNumberList extracts all numbers from a coordinate string,
// tolerating comma, whitespace and sign separators.
func parseNumberList(s string) ([]float64, error) {
	matches := dNumbers.FindAllString(s, -1)
	nums := make([]float64, 0, len(matches))
	for _, m := range matches {
		f, err := strconv.ParseFloat(m, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", m)
		}
		nums = append(nums, f)
	}
	return nums, nil
}

// pathFromData parses an SVG path data attribute into tagged segments.
// Segment kinds are decided here, once, and carried on each segment.
func pathFromData(d string) (SVGPath, error) {
	var p SVGPath
	var cur, subStart, prevCtrl curve.Point
	var prevCmd byte

	addLine := func(to curve.Point) {
		p.Segments = append(p.Segments, Segment{Kind: SegmentLine, Line: curve.Line{P0: cur, P1: to}})
		cur = to
	}

	for _, m := range dCommands.FindAllStringSubmatch(sanitizePathData(d), -1) {
		cmd := m[1][0]
		rel := cmd >= 'a'
		op := cmd
		if rel {
			op = cmd - 'a' + 'A'
		}
		args, err := parseNumberList(m[2])
		if err != nil {
			return p, err
		}
		abs := func(x, y float64) curve.Point {
			if rel {
				return curve.Pt(cur.X+x, cur.Y+y)
			}
			return curve.Pt(x, y)
		}

		switch op {
		case 'M':
			if len(args) < 2 || len(args)%2 != 0 {
				return p, fmt.Errorf("malformed moveto %q", strings.TrimSpace(m[0]))
			}
			pt := abs(args[0], args[1])
			cur, subStart = pt, pt
			p.Subpaths++
			if !p.HasAnchor {
				p.Anchor, p.HasAnchor = pt, true
			}
			// additional pairs are implicit linetos
			for i := 2; i < len(args); i += 2 {
				addLine(abs(args[i], args[i+1]))
			}
		case 'L':
			if len(args) == 0 || len(args)%2 != 0 {
				return p, fmt.Errorf("malformed lineto %q", strings.TrimSpace(m[0]))
			}
			for i := 0; i < len(args); i += 2 {
				addLine(abs(args[i], args[i+1]))
			}
		case 'H':
			if len(args) == 0 {
				return p, fmt.Errorf("malformed horizontal lineto %q", strings.TrimSpace(m[0]))
			}
			for _, a := range args {
				x := a
				if rel {
					x = cur.X + a
				}
				addLine(curve.Pt(x, cur.Y))
			}
		case 'V':
			if len(args) == 0 {
				return p, fmt.Errorf("malformed vertical lineto %q", strings.TrimSpace(m[0]))
			}
			for _, a := range args {
				y := a
				if rel {
					y = cur.Y + a
				}
				addLine(curve.Pt(cur.X, y))
			}
		case 'C':
			if len(args) == 0 || len(args)%6 != 0 {
				return p, fmt.Errorf("malformed curveto %q", strings.TrimSpace(m[0]))
			}
			for i := 0; i < len(args); i += 6 {
				c1 := abs(args[i], args[i+1])
				c2 := abs(args[i+2], args[i+3])
				end := abs(args[i+4], args[i+5])
				p.Segments = append(p.Segments, Segment{Kind: SegmentCubic, Cubic: curve.CubicBez{P0: cur, P1: c1, P2: c2, P3: end}})
				prevCtrl, cur = c2, end
			}
		case 'S':
			if len(args) == 0 || len(args)%4 != 0 {
				return p, fmt.Errorf("malformed smooth curveto %q", strings.TrimSpace(m[0]))
			}
			smooth := prevCmd == 'C' || prevCmd == 'S'
			for i := 0; i < len(args); i += 4 {
				c1 := cur
				if smooth {
					c1 = reflectPoint(prevCtrl, cur)
				}
				c2 := abs(args[i], args[i+1])
				end := abs(args[i+2], args[i+3])
				p.Segments = append(p.Segments, Segment{Kind: SegmentCubic, Cubic: curve.CubicBez{P0: cur, P1: c1, P2: c2, P3: end}})
				prevCtrl, cur = c2, end
				smooth = true
			}
		case 'Q':
			if len(args) == 0 || len(args)%4 != 0 {
				return p, fmt.Errorf("malformed quadratic curveto %q", strings.TrimSpace(m[0]))
			}
			for i := 0; i < len(args); i += 4 {
				c := abs(args[i], args[i+1])
				end := abs(args[i+2], args[i+3])
				p.Segments = append(p.Segments, Segment{Kind: SegmentQuad, Quad: curve.QuadBez{P0: cur, P1: c, P2: end}})
				prevCtrl, cur = c, end
			}
		case 'T':
			if len(args) == 0 || len(args)%2 != 0 {
				return p, fmt.Errorf("malformed smooth quadratic curveto %q", strings.TrimSpace(m[0]))
			}
			smooth := prevCmd == 'Q' || prevCmd == 'T'
			for i := 0; i < len(args); i += 2 {
				c := cur
				if smooth {
					c = reflectPoint(prevCtrl, cur)
				}
				end := abs(args[i], args[i+1])
				p.Segments = append(p.Segments, Segment{Kind: SegmentQuad, Quad: curve.QuadBez{P0: cur, P1: c, P2: end}})
				prevCtrl, cur = c, end
				smooth = true
			}
		case 'A':
			if len(args) == 0 || len(args)%7 != 0 {
				return p, fmt.Errorf("malformed arc %q", strings.TrimSpace(m[0]))
			}
			for i := 0; i < len(args); i += 7 {
				end := abs(args[i+5], args[i+6])
				if end == cur {
					continue
				}
				arc, valid := arcFromEndpoints(cur, end, args[i], args[i+1], args[i+2], args[i+3] != 0, args[i+4] != 0)
				if valid {
					p.Segments = append(p.Segments, Segment{Kind: SegmentArc, Arc: arc})
					cur = end
				} else {
					addLine(end)
				}
			}
		case 'Z':
			if cur != subStart {
				addLine(subStart)
			}
			cur = subStart
		}
		prevCmd = op
	}
	return p, nil
}

// reflectPoint mirrors ctrl through about, the control-point reflection
// used by the smooth curveto shorthands.
func reflectPoint(ctrl, about curve.Point) curve.Point {
	return curve.Pt(2*about.X-ctrl.X, 2*about.Y-ctrl.Y)
}

// pathFromLine converts a line element to a single-segment path.
func pathFromLine(attrs map[string]string) (SVGPath, error) {
	x1, err := floatAttr(attrs, "x1")
	if err != nil {
		return SVGPath{}, err
	}
	y1, err := floatAttr(attrs, "y1")
	if err != nil {
		return SVGPath{}, err
	}
	x2, err := floatAttr(attrs, "x2")
	if err != nil {
		return SVGPath{}, err
	}
	y2, err := floatAttr(attrs, "y2")
	if err != nil {
		return SVGPath{}, err
	}
	start := curve.Pt(x1, y1)
	return SVGPath{
		Segments:  []Segment{{Kind: SegmentLine, Line: curve.Line{P0: start, P1: curve.Pt(x2, y2)}}},
		Subpaths:  1,
		Anchor:    start,
		HasAnchor: true,
	}, nil
}

// pathFromPoints converts polyline/polygon points to line segments.
// Polygons are closed back to their first point.
func pathFromPoints(points string, closed bool) (SVGPath, bool, error) {
	nums, err := parseNumberList(points)
	if err != nil {
		return SVGPath{}, false, err
	}
	if len(nums) == 0 {
		return SVGPath{}, false, nil
	}
	if len(nums)%2 != 0 {
		return SVGPath{}, false, fmt.Errorf("odd number of point coordinates")
	}
	start := curve.Pt(nums[0], nums[1])
	p := SVGPath{Subpaths: 1, Anchor: start, HasAnchor: true}
	cur := start
	for i := 2; i < len(nums); i += 2 {
		next := curve.Pt(nums[i], nums[i+1])
		p.Segments = append(p.Segments, Segment{Kind: SegmentLine, Line: curve.Line{P0: cur, P1: next}})
		cur = next
	}
	if closed && cur != start {
		p.Segments = append(p.Segments, Segment{Kind: SegmentLine, Line: curve.Line{P0: cur, P1: start}})
	}
	return p, true, nil
}

// pathFromRect converts a rect element to four line segments. Zero-size
// rects are not drawn, matching renderer behavior.
func pathFromRect(attrs map[string]string) (SVGPath, bool, error) {
	x, err := floatAttr(attrs, "x")
	if err != nil {
		return SVGPath{}, false, err
	}
	y, err := floatAttr(attrs, "y")
	if err != nil {
		return SVGPath{}, false, err
	}
	w, err := floatAttr(attrs, "width")
	if err != nil {
		return SVGPath{}, false, err
	}
	h, err := floatAttr(attrs, "height")
	if err != nil {
		return SVGPath{}, false, err
	}
	if w == 0 || h == 0 {
		return SVGPath{}, false, nil
	}
	if attrs["rx"] != "" || attrs["ry"] != "" {
		slog.Warn("rect corner radii not supported, using sharp corners")
	}
	corners := [4]curve.Point{
		curve.Pt(x, y),
		curve.Pt(x+w, y),
		curve.Pt(x+w, y+h),
		curve.Pt(x, y+h),
	}
	p := SVGPath{Subpaths: 1, Anchor: corners[0], HasAnchor: true}
	for i := range corners {
		p.Segments = append(p.Segments, Segment{Kind: SegmentLine, Line: curve.Line{P0: corners[i], P1: corners[(i+1)%4]}})
	}
	return p, true, nil
}

// pathFromEllipse converts a circle or ellipse element to two half-turn
// arc segments starting at the rightmost point.
func pathFromEllipse(attrs map[string]string) (SVGPath, bool, error) {
	cx, err := floatAttr(attrs, "cx")
	if err != nil {
		return SVGPath{}, false, err
	}
	cy, err := floatAttr(attrs, "cy")
	if err != nil {
		return SVGPath{}, false, err
	}
	rx, err := floatAttr(attrs, "rx")
	if err != nil {
		return SVGPath{}, false, err
	}
	ry, err := floatAttr(attrs, "ry")
	if err != nil {
		return SVGPath{}, false, err
	}
	if r, rerr := floatAttr(attrs, "r"); rerr != nil {
		return SVGPath{}, false, rerr
	} else if r != 0 {
		rx, ry = r, r
	}
	if rx == 0 || ry == 0 {
		return SVGPath{}, false, nil
	}
	center := curve.Pt(cx, cy)
	right := curve.Pt(cx+rx, cy)
	left := curve.Pt(cx-rx, cy)
	p := SVGPath{Subpaths: 1, Anchor: right, HasAnchor: true}
	p.Segments = append(p.Segments,
		Segment{Kind: SegmentArc, Arc: Arc{P0: right, P1: left, Center: center, Rx: rx, Ry: ry, StartEta: 0, DeltaEta: math.Pi}},
		Segment{Kind: SegmentArc, Arc: Arc{P0: left, P1: right, Center: center, Rx: rx, Ry: ry, StartEta: math.Pi, DeltaEta: math.Pi}},
	)
	return p, true, nil
}

// floatAttr parses a numeric attribute, treating a missing or empty
// attribute as zero.
func floatAttr(attrs map[string]string, name string) (float64, error) {
	v := strings.TrimSpace(attrs[name])
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSuffix(v, "px"), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s attribute %q", name, v)
	}
	return f, nil
}
