package regiondata

import (
	"errors"
	"testing"
	"time"

	"github.com/forestwatch-dev/forestwatch/pkg/maplayer"
)

func TestClassifySeverity(t *testing.T) {
	tests := []struct {
		pct  float64
		want maplayer.Severity
	}{
		{25, maplayer.SeverityHigh},
		{20.01, maplayer.SeverityHigh},
		{20, maplayer.SeverityMedium},
		{15, maplayer.SeverityMedium},
		{10.01, maplayer.SeverityMedium},
		{10, maplayer.SeverityLow},
		{0, maplayer.SeverityLow},
	}
	for _, tt := range tests {
		if got := ClassifySeverity(tt.pct); got != tt.want {
			t.Errorf("ClassifySeverity(%v) = %s, want %s", tt.pct, got, tt.want)
		}
	}
}

func TestComputeStats(t *testing.T) {
	obs := []Observation{
		{ForestArea: 700, DeforestedArea: 100, PercentChange: -2},
		{ForestArea: 100, DeforestedArea: 100, PercentChange: -4},
	}
	s, err := Compute(obs)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if s.TotalArea != 1000 {
		t.Errorf("TotalArea = %v, want 1000", s.TotalArea)
	}
	if s.DeforestedPercent != 20 {
		t.Errorf("DeforestedPercent = %v, want 20", s.DeforestedPercent)
	}
	if s.ForestPercent != 80 {
		t.Errorf("ForestPercent = %v, want 80", s.ForestPercent)
	}
	if s.AvgPercentChange != -3 {
		t.Errorf("AvgPercentChange = %v, want -3", s.AvgPercentChange)
	}
	if s.Severity != maplayer.SeverityMedium {
		t.Errorf("Severity = %s, want medium", s.Severity)
	}
	if s.DataPoints != 2 {
		t.Errorf("DataPoints = %d, want 2", s.DataPoints)
	}
}

func TestComputeEmpty(t *testing.T) {
	if _, err := Compute(nil); !errors.Is(err, ErrNoObservations) {
		t.Errorf("expected ErrNoObservations, got %v", err)
	}
}

func TestRegionMarker(t *testing.T) {
	r := Region{
		Name:        "Test Basin",
		Coordinates: maplayer.Coordinates{Lat: 1, Lng: 2},
		Observations: []Observation{
			{ForestArea: 60, DeforestedArea: 40, PercentChange: -9},
		},
	}
	m, err := r.Marker()
	if err != nil {
		t.Fatalf("Marker: %v", err)
	}
	if m.Severity != maplayer.SeverityHigh {
		t.Errorf("Severity = %s, want high (40%% deforested)", m.Severity)
	}
	if m.AreaAffected != 40 {
		t.Errorf("AreaAffected = %v, want 40", m.AreaAffected)
	}

	if _, err := (Region{}).Marker(); err == nil {
		t.Error("region without observations must error")
	}
}

func TestAlertsHighOnlyNewestFirst(t *testing.T) {
	day := func(s string) time.Time {
		tm, _ := time.Parse("2006-01-02", s)
		return tm
	}
	regions := []Region{
		{ID: 1, Name: "older-high", Observations: []Observation{
			{Date: day("2026-01-01"), ForestArea: 50, DeforestedArea: 50},
		}},
		{ID: 2, Name: "calm", Observations: []Observation{
			{Date: day("2026-03-01"), ForestArea: 95, DeforestedArea: 5},
		}},
		{ID: 3, Name: "newer-high", Observations: []Observation{
			{Date: day("2026-02-01"), ForestArea: 40, DeforestedArea: 60},
		}},
	}

	alerts := Alerts(regions)
	if len(alerts) != 2 {
		t.Fatalf("alerts = %d, want 2", len(alerts))
	}
	if alerts[0].Region != "newer-high" || alerts[1].Region != "older-high" {
		t.Errorf("alert order = %q, %q", alerts[0].Region, alerts[1].Region)
	}
	for _, a := range alerts {
		if a.Severity != maplayer.SeverityHigh {
			t.Errorf("alert severity = %s", a.Severity)
		}
	}
}

func TestSeedRegionsMarkers(t *testing.T) {
	for _, r := range SeedRegions() {
		if _, err := r.Marker(); err != nil {
			t.Errorf("seed region %q has no usable marker: %v", r.Name, err)
		}
	}
}
