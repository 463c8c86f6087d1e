// Package analysis fronts the satellite-image analysis pipeline. The
// real model inference lives in a separate service; this package
// simulates its latency and produces deterministic placeholder results
// so the dashboard's success/failure paths are exercisable end to end.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"time"

	"github.com/forestwatch-dev/forestwatch/pkg/maplayer"
	"github.com/forestwatch-dev/forestwatch/pkg/regiondata"
	"github.com/forestwatch-dev/forestwatch/pkg/upload"
)

// ErrNoFile is returned when Analyze is called without a claimed file.
var ErrNoFile = errors.New("analysis: no file to analyze")

// DefaultLatency approximates the pipeline's processing time.
const DefaultLatency = 2 * time.Second

// Result is the outcome of analyzing one satellite image.
type Result struct {
	Success           bool              `json:"success"`
	Filename          string            `json:"filename"`
	ForestPercent     float64           `json:"forestPercent"`
	DeforestedPercent float64           `json:"deforestedPercent"`
	Severity          maplayer.Severity `json:"severity"`
	ProcessedAt       time.Time         `json:"processedAt"`
	Error             string            `json:"error,omitempty"`
}

// Analyzer runs the stubbed analysis.
type Analyzer struct {
	latency time.Duration
	logger  *slog.Logger
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithLatency overrides the simulated processing time. Tests use very
// small values here.
func WithLatency(d time.Duration) Option {
	return func(a *Analyzer) { a.latency = d }
}

// NewAnalyzer creates an analyzer.
func NewAnalyzer(logger *slog.Logger, opts ...Option) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Analyzer{latency: DefaultLatency, logger: logger.With("component", "analysis")}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze processes a claimed upload. It blocks for the simulated
// latency or until ctx is cancelled, then returns a deterministic
// placeholder result derived from the filename. Cancellation surfaces
// as the context's error with no Result.
func (a *Analyzer) Analyze(ctx context.Context, file *upload.File) (Result, error) {
	if file == nil {
		return Result{}, ErrNoFile
	}

	a.logger.Info("analysis started", "file", file.Filename, "size", file.Size)

	select {
	case <-ctx.Done():
		a.logger.Warn("analysis cancelled", "file", file.Filename)
		return Result{}, ctx.Err()
	case <-time.After(a.latency):
	}

	// Placeholder inference: stable pseudo-values per filename so the
	// same image always reports the same numbers.
	deforested := pseudoPercent(file.Filename)
	res := Result{
		Success:           true,
		Filename:          file.Filename,
		ForestPercent:     100 - deforested,
		DeforestedPercent: deforested,
		Severity:          regiondata.ClassifySeverity(deforested),
		ProcessedAt:       time.Now(),
	}
	a.logger.Info("analysis finished",
		"file", file.Filename,
		"deforested_percent", fmt.Sprintf("%.1f", res.DeforestedPercent),
		"severity", res.Severity)
	return res, nil
}

// pseudoPercent maps a filename to a stable value in [0, 40).
func pseudoPercent(name string) float64 {
	h := fnv.New32a()
	h.Write([]byte(name))
	return float64(h.Sum32()%4000) / 100
}
