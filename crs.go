package main

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// CRS represents a coordinate reference system parsed from a PROJ.4
// definition string.
type CRS struct {
	Projection string
	Datum      string
	Ellipsoid  string
	Zone       int
	South      bool
	Definition string
}

// ParseCRS parses a PROJ.4 definition string of +key=value tokens.
func ParseCRS(definition string) (*CRS, error) {
	definition = strings.TrimSpace(definition)
	if definition == "" {
		return nil, fmt.Errorf("empty CRS definition")
	}
	crs := &CRS{Definition: definition}
	for _, token := range strings.Fields(definition) {
		if !strings.HasPrefix(token, "+") {
			return nil, fmt.Errorf("malformed CRS token %q", token)
		}
		key, value, _ := strings.Cut(token[1:], "=")
		switch key {
		case "proj":
			crs.Projection = strings.ToLower(value)
		case "datum":
			crs.Datum = strings.ToUpper(value)
		case "ellps":
			crs.Ellipsoid = strings.ToUpper(value)
		case "zone":
			zone, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("invalid zone %q", value)
			}
			crs.Zone = zone
		case "south":
			crs.South = true
		}
	}
	if crs.Projection == "" {
		return nil, fmt.Errorf("CRS definition has no +proj: %q", definition)
	}
	return crs, nil
}

// EPSG returns the registry code for the parsed system, if it matches one
// of the supported UTM or geographic registries.
func (c *CRS) EPSG() (int, bool) {
	datum := c.Datum
	if datum == "" {
		// Common shorthand definitions name only the ellipsoid.
		switch c.Ellipsoid {
		case "WGS84":
			datum = "WGS84"
		case "GRS80":
			datum = "NAD83"
		case "CLRK66":
			datum = "NAD27"
		}
	}

	switch c.Projection {
	case "utm":
		if c.Zone < 1 || c.Zone > 60 {
			return 0, false
		}
		switch datum {
		case "WGS84":
			if c.South {
				return 32700 + c.Zone, true
			}
			return 32600 + c.Zone, true
		case "NAD83":
			return 26900 + c.Zone, true
		case "NAD27":
			return 26700 + c.Zone, true
		}
	case "latlong", "longlat":
		switch datum {
		case "WGS84":
			return 4326, true
		case "NAD83":
			return 4269, true
		case "NAD27":
			return 4267, true
		}
	}
	return 0, false
}

// DeriveEPSG resolves a PROJ.4 definition to an EPSG code. When the
// geographic reference point lies in the southern hemisphere the +south
// modifier is applied before lookup, since map files omit it.
func DeriveEPSG(definition string, south bool) (int, error) {
	if south && !strings.Contains(definition, "+south") {
		definition += " +south"
	}
	crs, err := ParseCRS(definition)
	if err != nil {
		return 0, err
	}
	code, ok := crs.EPSG()
	if !ok {
		return 0, fmt.Errorf("no EPSG code for projection %q datum %q zone %d", crs.Projection, crs.Datum, crs.Zone)
	}
	return code, nil
}

// resolveEPSG picks the EPSG code for the output: an explicit override
// always wins, otherwise the code is derived from the map file's CRS.
// Returns 0 when no code can be determined.
func resolveEPSG(opts *Options, georef *Georeferencing) int {
	if opts.EPSGOverride > 0 {
		return opts.EPSGOverride
	}
	if georef == nil || georef.ProjSpec == "" {
		return 0
	}
	south := georef.HasGeographic && georef.RefLat < 0
	code, err := DeriveEPSG(georef.ProjSpec, south)
	if err != nil {
		slog.Warn("could not derive EPSG code, output will carry no crs member", "error", err)
		return 0
	}
	return code
}
