package main

import (
	"log/slog"
)

// ConversionReport represents the outcome of one conversion run.
type ConversionReport struct {
	Paths           int
	Features        int
	Skipped         []int // path indices excluded by request
	Dropped         []int // path indices yielding fewer than two points
	StepCorrections []int // path indices whose sampling step was clamped
	UnknownSegments int
}

// Print logs the report details
func (r *ConversionReport) Print() {
	logger := slog.With("paths", r.Paths, "features", r.Features)

	logger.Info("conversion summary",
		"skipped", len(r.Skipped),
		"dropped", len(r.Dropped),
		"step_corrections", len(r.StepCorrections),
	)

	if len(r.Skipped) > 0 {
		slog.Info("skipped paths", "indices", r.Skipped)
	}
	if len(r.Dropped) > 0 {
		slog.Warn("dropped paths", "indices", r.Dropped)
	}
	if len(r.StepCorrections) > 0 {
		slog.Info("clamped sampling steps", "indices", r.StepCorrections)
	}
	if r.UnknownSegments > 0 {
		slog.Warn("unknown segments encountered", "count", r.UnknownSegments)
	}
}
