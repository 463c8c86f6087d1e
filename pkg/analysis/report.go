package analysis

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/forestwatch-dev/forestwatch/pkg/regiondata"
)

// ErrUnknownFormat is returned for an export format outside {json, csv}.
var ErrUnknownFormat = errors.New("analysis: unknown report format")

// Report is a generated data export.
type Report struct {
	ID          string    `json:"id"`
	Format      string    `json:"format"`
	GeneratedAt time.Time `json:"generatedAt"`
	Regions     int       `json:"regions"`
	Body        []byte    `json:"-"`
}

// ContentType returns the MIME type for the report body.
func (r Report) ContentType() string {
	if r.Format == "csv" {
		return "text/csv"
	}
	return "application/json"
}

// Reporter generates region data exports with simulated pipeline
// latency.
type Reporter struct {
	latency time.Duration
	logger  *slog.Logger
}

// NewReporter creates a reporter. latency <= 0 uses DefaultLatency.
func NewReporter(logger *slog.Logger, latency time.Duration) *Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	if latency <= 0 {
		latency = DefaultLatency
	}
	return &Reporter{latency: latency, logger: logger.With("component", "report")}
}

// Generate builds an export of regions in the requested format
// ("json" or "csv"). It blocks for the simulated latency or until ctx
// is cancelled.
func (r *Reporter) Generate(ctx context.Context, regions []regiondata.Region, format string) (Report, error) {
	if format != "json" && format != "csv" {
		return Report{}, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	select {
	case <-ctx.Done():
		return Report{}, ctx.Err()
	case <-time.After(r.latency):
	}

	rep := Report{
		ID:          uuid.NewString(),
		Format:      format,
		GeneratedAt: time.Now(),
		Regions:     len(regions),
	}

	var err error
	switch format {
	case "json":
		rep.Body, err = exportJSON(regions)
	case "csv":
		rep.Body, err = exportCSV(regions)
	}
	if err != nil {
		return Report{}, err
	}

	r.logger.Info("report generated", "id", rep.ID, "format", format, "regions", len(regions))
	return rep, nil
}

type exportRow struct {
	Region            string  `json:"region"`
	TotalArea         float64 `json:"totalArea"`
	DeforestedPercent float64 `json:"deforestedPercent"`
	Severity          string  `json:"severity"`
	DataPoints        int     `json:"dataPoints"`
}

func exportRows(regions []regiondata.Region) []exportRow {
	rows := make([]exportRow, 0, len(regions))
	for _, reg := range regions {
		stats, err := regiondata.Compute(reg.Observations)
		if err != nil {
			// Regions without observations are skipped, not fatal.
			continue
		}
		rows = append(rows, exportRow{
			Region:            reg.Name,
			TotalArea:         stats.TotalArea,
			DeforestedPercent: stats.DeforestedPercent,
			Severity:          string(stats.Severity),
			DataPoints:        stats.DataPoints,
		})
	}
	return rows
}

func exportJSON(regions []regiondata.Region) ([]byte, error) {
	return json.MarshalIndent(exportRows(regions), "", "  ")
}

func exportCSV(regions []regiondata.Region) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"region", "total_area", "deforested_percent", "severity", "data_points"}); err != nil {
		return nil, err
	}
	for _, row := range exportRows(regions) {
		rec := []string{
			row.Region,
			strconv.FormatFloat(row.TotalArea, 'f', 2, 64),
			strconv.FormatFloat(row.DeforestedPercent, 'f', 2, 64),
			row.Severity,
			strconv.Itoa(row.DataPoints),
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
