// Package regiondata aggregates per-region forest observations into the
// statistics and alert feed the dashboard presents.
package regiondata

import (
	"errors"
	"sort"
	"time"

	"github.com/forestwatch-dev/forestwatch/pkg/maplayer"
)

// ErrNoObservations is returned when a computation needs at least one
// observation.
var ErrNoObservations = errors.New("regiondata: no observations")

// Observation is one dated measurement of a region.
type Observation struct {
	Date           time.Time `json:"date"`
	ForestArea     float64   `json:"forestArea"`     // hectares
	DeforestedArea float64   `json:"deforestedArea"` // hectares
	PercentChange  float64   `json:"percentChange"`
}

// Region is a monitored area and its observation history.
type Region struct {
	ID           int                  `json:"id"`
	Name         string               `json:"name"`
	Coordinates  maplayer.Coordinates `json:"coordinates"`
	Observations []Observation        `json:"observations,omitempty"`
}

// Stats summarizes a set of observations.
type Stats struct {
	TotalArea           float64           `json:"totalArea"`
	TotalForestArea     float64           `json:"totalForestArea"`
	TotalDeforestedArea float64           `json:"totalDeforestedArea"`
	ForestPercent       float64           `json:"forestPercent"`
	DeforestedPercent   float64           `json:"deforestedPercent"`
	AvgPercentChange    float64           `json:"avgPercentChange"`
	Severity            maplayer.Severity `json:"severity"`
	DataPoints          int               `json:"dataPoints"`
}

// ClassifySeverity maps a deforested percentage to the ordinal scale:
// above 20 is high, above 10 is medium, anything else low.
func ClassifySeverity(deforestedPercent float64) maplayer.Severity {
	switch {
	case deforestedPercent > 20:
		return maplayer.SeverityHigh
	case deforestedPercent > 10:
		return maplayer.SeverityMedium
	default:
		return maplayer.SeverityLow
	}
}

// Compute aggregates observations into Stats.
func Compute(obs []Observation) (Stats, error) {
	if len(obs) == 0 {
		return Stats{}, ErrNoObservations
	}
	var s Stats
	for _, o := range obs {
		s.TotalForestArea += o.ForestArea
		s.TotalDeforestedArea += o.DeforestedArea
		s.AvgPercentChange += o.PercentChange
	}
	s.TotalArea = s.TotalForestArea + s.TotalDeforestedArea
	if s.TotalArea > 0 {
		s.ForestPercent = s.TotalForestArea / s.TotalArea * 100
		s.DeforestedPercent = s.TotalDeforestedArea / s.TotalArea * 100
	}
	s.AvgPercentChange /= float64(len(obs))
	s.Severity = ClassifySeverity(s.DeforestedPercent)
	s.DataPoints = len(obs)
	return s, nil
}

// Marker converts a region's latest state into a map hotspot marker.
func (r Region) Marker() (maplayer.Marker, error) {
	stats, err := Compute(r.Observations)
	if err != nil {
		return maplayer.Marker{}, err
	}
	return maplayer.Marker{
		Name:          r.Name,
		Coordinates:   r.Coordinates,
		Severity:      stats.Severity,
		AreaAffected:  stats.TotalDeforestedArea,
		PercentChange: stats.AvgPercentChange,
	}, nil
}

// Alert is a high-severity entry in the dashboard feed.
type Alert struct {
	RegionID int               `json:"regionId"`
	Region   string            `json:"region"`
	Severity maplayer.Severity `json:"severity"`
	Date     time.Time         `json:"date"`
	Message  string            `json:"message"`
}

// Alerts extracts high-severity regions, most recent observation first.
func Alerts(regions []Region) []Alert {
	var out []Alert
	for _, r := range regions {
		stats, err := Compute(r.Observations)
		if err != nil || stats.Severity != maplayer.SeverityHigh {
			continue
		}
		latest := r.Observations[0].Date
		for _, o := range r.Observations {
			if o.Date.After(latest) {
				latest = o.Date
			}
		}
		out = append(out, Alert{
			RegionID: r.ID,
			Region:   r.Name,
			Severity: stats.Severity,
			Date:     latest,
			Message:  "deforestation above critical threshold",
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out
}

// SeedRegions returns the demo dataset the dashboard ships with.
func SeedRegions() []Region {
	day := func(s string) time.Time {
		t, _ := time.Parse("2006-01-02", s)
		return t
	}
	return []Region{
		{
			ID:          1,
			Name:        "Amazon Basin",
			Coordinates: maplayer.Coordinates{Lat: -3.4653, Lng: -62.2159},
			Observations: []Observation{
				{Date: day("2026-05-14"), ForestArea: 5200, DeforestedArea: 1580, PercentChange: -8.4},
				{Date: day("2026-06-14"), ForestArea: 5050, DeforestedArea: 1730, PercentChange: -2.9},
			},
		},
		{
			ID:          2,
			Name:        "Congo Basin",
			Coordinates: maplayer.Coordinates{Lat: -0.7264, Lng: 23.6558},
			Observations: []Observation{
				{Date: day("2026-05-20"), ForestArea: 6100, DeforestedArea: 940, PercentChange: -1.6},
				{Date: day("2026-06-20"), ForestArea: 6030, DeforestedArea: 1010, PercentChange: -1.1},
			},
		},
		{
			ID:          3,
			Name:        "Borneo Lowlands",
			Coordinates: maplayer.Coordinates{Lat: 0.9619, Lng: 114.5548},
			Observations: []Observation{
				{Date: day("2026-06-01"), ForestArea: 2900, DeforestedArea: 260, PercentChange: -0.7},
			},
		},
	}
}
