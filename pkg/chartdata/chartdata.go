// Package chartdata holds the dashboard's chart data contract: a period
// selector maps to parallel label/loss/gain arrays that the charting
// client consumes as-is.
package chartdata

import (
	"errors"
	"fmt"
	"sync"
)

// Period selects the time-series granularity.
type Period string

const (
	PeriodMonthly   Period = "monthly"
	PeriodQuarterly Period = "quarterly"
	PeriodYearly    Period = "yearly"
)

// ErrUnknownPeriod is returned for a period outside the selector enum.
var ErrUnknownPeriod = errors.New("chartdata: unknown period")

// ErrLengthMismatch is returned when a series' arrays disagree in length.
var ErrLengthMismatch = errors.New("chartdata: labels and datasets must have matching lengths")

// ParsePeriod validates a raw selector value.
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case PeriodMonthly, PeriodQuarterly, PeriodYearly:
		return Period(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPeriod, s)
}

// Series is one chart payload. Labels, LossData and GainData are
// parallel arrays; consumers index them together.
type Series struct {
	Labels   []string  `json:"labels"`
	LossData []float64 `json:"lossData"`
	GainData []float64 `json:"gainData"`
}

// Validate enforces the parity invariant.
func (s Series) Validate() error {
	if len(s.Labels) != len(s.LossData) || len(s.Labels) != len(s.GainData) {
		return fmt.Errorf("%w: labels=%d loss=%d gain=%d",
			ErrLengthMismatch, len(s.Labels), len(s.LossData), len(s.GainData))
	}
	return nil
}

// Source provides the builtin per-period series the dashboard ships
// with. Values are hectares of forest loss/gain per bucket.
type Source struct {
	series map[Period]Series
}

// NewSource returns a source seeded with the default datasets.
func NewSource() *Source {
	return &Source{series: map[Period]Series{
		PeriodMonthly: {
			Labels: []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun",
				"Jul", "Aug", "Sep", "Oct", "Nov", "Dec"},
			LossData: []float64{420, 380, 510, 650, 720, 890, 1040, 980, 760, 590, 470, 430},
			GainData: []float64{120, 140, 150, 170, 160, 150, 140, 150, 180, 200, 190, 160},
		},
		PeriodQuarterly: {
			Labels:   []string{"Q1", "Q2", "Q3", "Q4"},
			LossData: []float64{1310, 2260, 2780, 1490},
			GainData: []float64{410, 480, 470, 550},
		},
		PeriodYearly: {
			Labels:   []string{"2019", "2020", "2021", "2022", "2023", "2024"},
			LossData: []float64{6400, 7100, 8300, 7800, 8600, 7840},
			GainData: []float64{1500, 1620, 1700, 1850, 1910, 2030},
		},
	}}
}

// SeriesFor returns the series for a period.
func (s *Source) SeriesFor(p Period) (Series, error) {
	series, ok := s.series[p]
	if !ok {
		return Series{}, fmt.Errorf("%w: %q", ErrUnknownPeriod, p)
	}
	return series, nil
}

// Update is the externally callable refresh hook. The new series is
// validated before it replaces the stored one.
func (s *Source) Update(p Period, series Series) error {
	if _, err := ParsePeriod(string(p)); err != nil {
		return err
	}
	if err := series.Validate(); err != nil {
		return err
	}
	s.series[p] = series
	return nil
}

// Registry is the explicit update hook: callers push new series in,
// subscribers (the live-update hub, open extension points) hear about
// it. It replaces the reference's page-global mutable hook with a
// constructed object passed to whoever needs it.
type Registry struct {
	mu     sync.Mutex
	source *Source
	subs   map[int]func(Period, Series)
	nextID int
}

// NewRegistry wraps source with subscription fan-out.
func NewRegistry(source *Source) *Registry {
	return &Registry{
		source: source,
		subs:   make(map[int]func(Period, Series)),
	}
}

// SeriesFor reads through to the underlying source.
func (r *Registry) SeriesFor(p Period) (Series, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.source.SeriesFor(p)
}

// Update validates and stores a new series, then notifies subscribers.
func (r *Registry) Update(p Period, series Series) error {
	r.mu.Lock()
	if err := r.source.Update(p, series); err != nil {
		r.mu.Unlock()
		return err
	}
	subs := make([]func(Period, Series), 0, len(r.subs))
	for _, fn := range r.subs {
		subs = append(subs, fn)
	}
	r.mu.Unlock()

	for _, fn := range subs {
		fn(p, series)
	}
	return nil
}

// Subscribe registers fn for update notifications. The returned func
// unsubscribes; calling it more than once is safe.
func (r *Registry) Subscribe(fn func(Period, Series)) (unsubscribe func()) {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.subs[id] = fn
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.subs, id)
		r.mu.Unlock()
	}
}
