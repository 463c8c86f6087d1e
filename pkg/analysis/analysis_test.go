package analysis

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/forestwatch-dev/forestwatch/pkg/regiondata"
	"github.com/forestwatch-dev/forestwatch/pkg/upload"
)

func TestAnalyzeNilFile(t *testing.T) {
	a := NewAnalyzer(nil, WithLatency(time.Millisecond))
	_, err := a.Analyze(context.Background(), nil)
	if !errors.Is(err, ErrNoFile) {
		t.Fatalf("expected ErrNoFile, got %v", err)
	}
}

func TestAnalyzeDeterministic(t *testing.T) {
	a := NewAnalyzer(nil, WithLatency(time.Millisecond))
	file := &upload.File{Filename: "amazon-2026-06.png", Size: 1024}

	first, err := a.Analyze(context.Background(), file)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	second, err := a.Analyze(context.Background(), file)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if !first.Success {
		t.Error("expected Success = true")
	}
	if first.DeforestedPercent != second.DeforestedPercent {
		t.Errorf("results differ for the same file: %.2f vs %.2f",
			first.DeforestedPercent, second.DeforestedPercent)
	}
	if first.DeforestedPercent < 0 || first.DeforestedPercent >= 40 {
		t.Errorf("deforested percent %.2f outside [0, 40)", first.DeforestedPercent)
	}
	if got := first.ForestPercent + first.DeforestedPercent; got != 100 {
		t.Errorf("percentages sum to %.2f, want 100", got)
	}
	if first.Severity != regiondata.ClassifySeverity(first.DeforestedPercent) {
		t.Errorf("severity %q does not match its percentage", first.Severity)
	}
}

func TestAnalyzeCancellation(t *testing.T) {
	a := NewAnalyzer(nil, WithLatency(time.Minute))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := a.Analyze(ctx, &upload.File{Filename: "slow.png"})
		done <- err
	}()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Analyze did not return after cancellation")
	}
}

func TestReporterUnknownFormat(t *testing.T) {
	r := NewReporter(nil, time.Millisecond)
	_, err := r.Generate(context.Background(), regiondata.SeedRegions(), "xml")
	if !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestReporterJSON(t *testing.T) {
	r := NewReporter(nil, time.Millisecond)
	regions := regiondata.SeedRegions()

	rep, err := r.Generate(context.Background(), regions, "json")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if rep.ID == "" {
		t.Error("expected a report ID")
	}
	if rep.ContentType() != "application/json" {
		t.Errorf("ContentType = %q, want application/json", rep.ContentType())
	}

	var rows []exportRow
	if err := json.Unmarshal(rep.Body, &rows); err != nil {
		t.Fatalf("body is not valid JSON: %v", err)
	}
	if len(rows) != len(regions) {
		t.Fatalf("got %d rows, want %d", len(rows), len(regions))
	}
	for _, row := range rows {
		if row.Region == "" || row.DataPoints == 0 {
			t.Errorf("incomplete row: %+v", row)
		}
	}
}

func TestReporterCSV(t *testing.T) {
	r := NewReporter(nil, time.Millisecond)
	regions := regiondata.SeedRegions()

	rep, err := r.Generate(context.Background(), regions, "csv")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if rep.ContentType() != "text/csv" {
		t.Errorf("ContentType = %q, want text/csv", rep.ContentType())
	}

	records, err := csv.NewReader(strings.NewReader(string(rep.Body))).ReadAll()
	if err != nil {
		t.Fatalf("body is not valid CSV: %v", err)
	}
	// Header plus one record per region.
	if len(records) != len(regions)+1 {
		t.Fatalf("got %d records, want %d", len(records), len(regions)+1)
	}
	if records[0][0] != "region" {
		t.Errorf("header = %v", records[0])
	}
}

func TestReporterCancellation(t *testing.T) {
	r := NewReporter(nil, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Generate(ctx, regiondata.SeedRegions(), "json")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestReporterSkipsEmptyRegions(t *testing.T) {
	r := NewReporter(nil, time.Millisecond)
	regions := append(regiondata.SeedRegions(), regiondata.Region{ID: 99, Name: "Empty"})

	rep, err := r.Generate(context.Background(), regions, "json")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	var rows []exportRow
	if err := json.Unmarshal(rep.Body, &rows); err != nil {
		t.Fatalf("body is not valid JSON: %v", err)
	}
	if len(rows) != len(regions)-1 {
		t.Errorf("got %d rows, want %d (empty region skipped)", len(rows), len(regions)-1)
	}
	if rep.Regions != len(regions) {
		t.Errorf("Regions = %d, want %d", rep.Regions, len(regions))
	}
}
