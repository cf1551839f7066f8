package main

import (
	"encoding/xml"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Georeferencing represents the georeferencing metadata of an
// OpenOrienteering map project file.
type Georeferencing struct {
	Scale       float64
	Declination float64
	Grivation   float64
	RefX        float64
	RefY        float64
	ProjID      string
	ProjSpec    string
	Parameter   string
	RefLat      float64
	RefLon      float64

	HasGeographic bool
}

type mapDocument struct {
	XMLName        xml.Name            `xml:"map"`
	Georeferencing *georeferencingElem `xml:"georeferencing"`
}

type georeferencingElem struct {
	Scale       string             `xml:"scale,attr"`
	Declination string             `xml:"declination,attr"`
	Grivation   string             `xml:"grivation,attr"`
	Projected   *projectedCRSElem  `xml:"projected_crs"`
	Geographic  *geographicCRSElem `xml:"geographic_crs"`
}

type projectedCRSElem struct {
	ID        string        `xml:"id,attr"`
	Spec      *specElem     `xml:"spec"`
	Parameter string        `xml:"parameter"`
	RefPoint  *refPointElem `xml:"ref_point"`
}

type specElem struct {
	Language string `xml:"language,attr"`
	Value    string `xml:",chardata"`
}

type refPointElem struct {
	X float64 `xml:"x,attr"`
	Y float64 `xml:"y,attr"`
}

type geographicCRSElem struct {
	RefPointDeg *refPointDegElem `xml:"ref_point_deg"`
}

type refPointDegElem struct {
	Lat float64 `xml:"lat,attr"`
	Lon float64 `xml:"lon,attr"`
}

// ParseMapFile reads the georeferencing metadata from a map project file.
// A map file without a georeferencing element yields (nil, nil) and the
// conversion proceeds in input coordinates.
func ParseMapFile(path string) (*Georeferencing, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read map file: %w", err)
	}

	var doc mapDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse map file: %w", err)
	}

	if doc.Georeferencing == nil {
		slog.Warn("map file has no georeferencing element, using input coordinates")
		return nil, nil
	}
	g := doc.Georeferencing
	if g.Projected == nil {
		return nil, fmt.Errorf("map file georeferencing has no projected_crs element")
	}

	geo := &Georeferencing{
		Scale:       floatOrZero(g.Scale),
		Declination: floatOrZero(g.Declination),
		Grivation:   floatOrZero(g.Grivation),
		ProjID:      g.Projected.ID,
		Parameter:   strings.TrimSpace(g.Projected.Parameter),
	}
	if g.Projected.Spec != nil {
		geo.ProjSpec = strings.TrimSpace(g.Projected.Spec.Value)
	}
	if g.Projected.RefPoint != nil {
		geo.RefX = g.Projected.RefPoint.X
		geo.RefY = g.Projected.RefPoint.Y
	}
	if g.Geographic != nil && g.Geographic.RefPointDeg != nil {
		geo.RefLat = g.Geographic.RefPointDeg.Lat
		geo.RefLon = g.Geographic.RefPointDeg.Lon
		geo.HasGeographic = true
	}

	if strings.EqualFold(geo.ProjID, "local") {
		slog.Warn("map uses local coordinates, no CRS will be derived")
	}

	slog.Info("parsed map georeferencing",
		"scale", geo.Scale,
		"declination", geo.Declination,
		"grivation", geo.Grivation,
		"crs_id", geo.ProjID,
		"crs_spec", geo.ProjSpec,
		"ref_x", geo.RefX,
		"ref_y", geo.RefY,
	)
	return geo, nil
}

// floatOrZero parses an optional numeric attribute, treating an absent or
// empty value as zero.
func floatOrZero(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		slog.Warn("ignoring malformed numeric attribute", "value", s)
		return 0
	}
	return f
}
