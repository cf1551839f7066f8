package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
)

func main() {
	envUnits, envDPI := loadEnvDefaults()

	// Parse flags
	input := flag.String("in", "", "Input SVG file (required)")
	output := flag.String("out", "", "Output GeoJSON file (default: input with .geojson extension)")
	mapPath := flag.String("map", "", "Map project file with scale, CRS and declination (default: SVG coordinates)")
	width := flag.Float64("width", 1, "Page width in page units")
	height := flag.Float64("height", 1, "Page height in page units")
	units := flag.String("units", envUnits, "Page units: mm, cm, in or pt")
	dpi := flag.Int("dpi", envDPI, "Output resolution for curve interpolation")
	rotation := flag.Float64("rotation", 0, "Rotation counterclockwise in degrees (default: map declination)")
	epsg := flag.Int("epsg", 0, "EPSG code override for the output crs member")
	skipList := flag.String("skip", "", "Comma-separated path indices to exclude")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	// Setup logging
	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	opts, err := NewOptions(Params{
		InputPath:  *input,
		OutputPath: *output,
		MapPath:    *mapPath,
		Width:      *width,
		Height:     *height,
		Units:      *units,
		DPI:        *dpi,
		Rotation:   *rotation,
		EPSG:       *epsg,
		SkipList:   *skipList,
		Debug:      *debug,
	})
	if err != nil {
		slog.Error("invalid parameters", "error", err)
		os.Exit(1)
	}

	var georef *Georeferencing
	if opts.MapPath != "" {
		georef, err = ParseMapFile(opts.MapPath)
		if err != nil {
			slog.Error("failed to load map file", "error", err)
			os.Exit(1)
		}
	} else {
		slog.Warn("no map file specified, using input coordinates")
	}

	epsgCode := resolveEPSG(opts, georef)

	paths, err := ParseSVGFile(opts.InputPath)
	if err != nil {
		slog.Error("failed to parse SVG file", "error", err)
		os.Exit(1)
	}
	slog.Info("parsed input", "file", opts.InputPath, "paths", len(paths))

	converter := NewConverter(opts, georef)
	fc, report, err := converter.Convert(context.Background(), paths)
	if err != nil {
		slog.Error("conversion failed", "error", err)
		os.Exit(1)
	}

	if err := WriteFeatureCollection(fc, epsgCode, opts.OutputPath); err != nil {
		slog.Error("failed to write output", "error", err)
		os.Exit(1)
	}

	report.Print()
	slog.Info("created output file", "file", opts.OutputPath, "features", report.Features, "epsg", epsgCode)
}
