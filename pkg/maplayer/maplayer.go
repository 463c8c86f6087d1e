// Package maplayer defines the hotspot marker contract between the
// monitoring data and the mapping client, plus the severity color
// scale.
//
// Layer composes over a MarkerRenderer interface rather than reaching
// into the mapping library's own types; the renderer stays free to be a
// real map, a test fake, or a recording sink.
package maplayer

import (
	"fmt"
	"log/slog"
)

// Severity classifies a monitored region's deforestation level.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Severity color scale. Unknown severities fall back to DefaultColor.
const (
	ColorHigh    = "#f44336"
	ColorMedium  = "#ff9800"
	ColorLow     = "#4caf50"
	DefaultColor = "#2196f3"
)

// ColorFor maps a severity to its display color hex.
func ColorFor(s Severity) string {
	switch s {
	case SeverityHigh:
		return ColorHigh
	case SeverityMedium:
		return ColorMedium
	case SeverityLow:
		return ColorLow
	default:
		return DefaultColor
	}
}

// Coordinates is a WGS84 point.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Marker is one monitored hotspot.
type Marker struct {
	Name          string      `json:"name"`
	Coordinates   Coordinates `json:"coordinates"`
	Severity      Severity    `json:"severity"`
	AreaAffected  float64     `json:"areaAffected"` // hectares
	PercentChange float64     `json:"percentChange"`
}

// PopupText is the human-readable summary shown when a marker is
// selected.
func (m Marker) PopupText() string {
	return fmt.Sprintf("%s: %.1f ha affected (%+.1f%%), severity %s",
		m.Name, m.AreaAffected, m.PercentChange, m.Severity)
}

// MarkerRenderer is the mapping library's surface as this package
// consumes it.
type MarkerRenderer interface {
	AddMarker(m Marker, colorHex string) error
	SetPopup(name, text string) error
	RemoveMarker(name string) error
}

// Layer places markers on a renderer with the severity color scale
// applied. It owns no marker state beyond what it forwarded.
type Layer struct {
	renderer MarkerRenderer
	logger   *slog.Logger
}

// NewLayer wraps renderer.
func NewLayer(renderer MarkerRenderer, logger *slog.Logger) *Layer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Layer{renderer: renderer, logger: logger.With("component", "maplayer")}
}

// Render places every marker, coloring by severity and binding its
// popup summary. Markers the renderer rejects are logged and skipped;
// one bad record does not abort the layer. Returns how many markers
// were placed.
func (l *Layer) Render(markers []Marker) int {
	placed := 0
	for _, m := range markers {
		if err := l.renderer.AddMarker(m, ColorFor(m.Severity)); err != nil {
			l.logger.Warn("marker rejected", "name", m.Name, "error", err)
			continue
		}
		if err := l.renderer.SetPopup(m.Name, m.PopupText()); err != nil {
			l.logger.Warn("popup rejected", "name", m.Name, "error", err)
		}
		placed++
	}
	return placed
}

// Remove takes a marker off the renderer.
func (l *Layer) Remove(name string) error {
	return l.renderer.RemoveMarker(name)
}
