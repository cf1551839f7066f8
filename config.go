package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// unitFactor holds the two conversion factors kept per page unit:
// how many units make up a centimeter, and how many inches one unit spans.
type unitFactor struct {
	PerCM  float64
	Inches float64
}

var unitFactors = map[string]unitFactor{
	"mm": {PerCM: 10, Inches: 1.0 / 25.4},
	"cm": {PerCM: 1, Inches: 1.0 / 2.54},
	"in": {PerCM: 1.0 / 2.54, Inches: 1},
	"pt": {PerCM: 72.0 / 2.54, Inches: 1.0 / 72.0},
}

// Params represents the raw command-line values before validation.
type Params struct {
	InputPath  string
	OutputPath string
	MapPath    string
	Width      float64
	Height     float64
	Units      string
	DPI        int
	Rotation   float64
	EPSG       int
	SkipList   string
	Debug      bool
}

// Options represents the validated, resolved conversion settings.
// Once built it is never mutated.
type Options struct {
	InputPath     string
	OutputPath    string
	MapPath       string
	Width         float64
	Height        float64
	Units         string
	UnitsPerCM    float64
	InchesPerUnit float64
	DPI           int
	Rotation      float64
	EPSGOverride  int
	Skip          map[int]bool
	Debug         bool
}

// NewOptions validates raw parameters and resolves defaults.
func NewOptions(p Params) (*Options, error) {
	if p.InputPath == "" {
		return nil, fmt.Errorf("input SVG file is required")
	}
	if _, err := os.Stat(p.InputPath); err != nil {
		return nil, fmt.Errorf("file not found: %s", p.InputPath)
	}
	if p.MapPath != "" {
		if _, err := os.Stat(p.MapPath); err != nil {
			return nil, fmt.Errorf("file not found: %s", p.MapPath)
		}
	}

	if p.Width <= 0 {
		return nil, fmt.Errorf("invalid argument: width must be positive, got %g", p.Width)
	}
	if p.Height <= 0 {
		return nil, fmt.Errorf("invalid argument: height must be positive, got %g", p.Height)
	}
	if p.DPI <= 0 {
		return nil, fmt.Errorf("invalid argument: dpi must be positive, got %d", p.DPI)
	}

	units := strings.ToLower(strings.TrimSpace(p.Units))
	if units == "" {
		units = "cm"
	}
	factor, ok := unitFactors[units]
	if !ok {
		return nil, fmt.Errorf("invalid argument: unknown units %q (expected mm, cm, in or pt)", p.Units)
	}

	rotation := p.Rotation
	if rotation <= -360 || rotation > 360 {
		slog.Warn("rotation out of range, ignoring", "rotation", rotation)
		rotation = 0
	}

	epsg := p.EPSG
	if epsg < 0 {
		epsg = 0
	}

	skip, err := parseSkipList(p.SkipList)
	if err != nil {
		return nil, err
	}

	output := p.OutputPath
	if output == "" {
		output = strings.TrimSuffix(p.InputPath, filepath.Ext(p.InputPath)) + ".geojson"
	}

	return &Options{
		InputPath:     p.InputPath,
		OutputPath:    output,
		MapPath:       p.MapPath,
		Width:         p.Width,
		Height:        p.Height,
		Units:         units,
		UnitsPerCM:    factor.PerCM,
		InchesPerUnit: factor.Inches,
		DPI:           p.DPI,
		Rotation:      rotation,
		EPSGOverride:  epsg,
		Skip:          skip,
		Debug:         p.Debug,
	}, nil
}

// parseSkipList parses a comma-separated list of path indices to exclude.
func parseSkipList(s string) (map[int]bool, error) {
	skip := make(map[int]bool)
	if strings.TrimSpace(s) == "" {
		return skip, nil
	}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid argument: skip list entry %q is not an integer", part)
		}
		skip[n] = true
	}
	return skip, nil
}

// loadEnvDefaults loads defaults from a .env file if present and returns
// the environment-backed defaults for the units and dpi flags.
func loadEnvDefaults() (units string, dpi int) {
	if err := godotenv.Load(); err == nil {
		slog.Debug("loaded .env file")
	}
	return getEnv("SVG2OMAP_UNITS", "cm"), getEnvInt("SVG2OMAP_DPI", 300)
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

// getEnvInt gets an environment variable as integer with a default value
func getEnvInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}
