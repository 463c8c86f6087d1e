package chartdata

import (
	"errors"
	"testing"
)

func TestQuarterlyShape(t *testing.T) {
	src := NewSource()
	s, err := src.SeriesFor(PeriodQuarterly)
	if err != nil {
		t.Fatalf("SeriesFor(quarterly): %v", err)
	}

	want := []string{"Q1", "Q2", "Q3", "Q4"}
	if len(s.Labels) != 4 {
		t.Fatalf("quarterly labels = %d, want 4", len(s.Labels))
	}
	for i, l := range want {
		if s.Labels[i] != l {
			t.Errorf("label %d = %q, want %q", i, s.Labels[i], l)
		}
	}
	if len(s.LossData) != 4 || len(s.GainData) != 4 {
		t.Errorf("dataset lengths = %d/%d, want 4/4", len(s.LossData), len(s.GainData))
	}
}

func TestBuiltinSeriesParity(t *testing.T) {
	src := NewSource()
	for _, p := range []Period{PeriodMonthly, PeriodQuarterly, PeriodYearly} {
		s, err := src.SeriesFor(p)
		if err != nil {
			t.Fatalf("SeriesFor(%s): %v", p, err)
		}
		if err := s.Validate(); err != nil {
			t.Errorf("builtin %s series invalid: %v", p, err)
		}
	}
}

func TestParsePeriod(t *testing.T) {
	if _, err := ParsePeriod("quarterly"); err != nil {
		t.Errorf("quarterly should parse: %v", err)
	}
	if _, err := ParsePeriod("weekly"); !errors.Is(err, ErrUnknownPeriod) {
		t.Errorf("expected ErrUnknownPeriod, got %v", err)
	}
}

func TestUpdateRejectsMismatch(t *testing.T) {
	src := NewSource()
	bad := Series{Labels: []string{"Q1", "Q2"}, LossData: []float64{1}, GainData: []float64{1, 2}}
	if err := src.Update(PeriodQuarterly, bad); !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("expected ErrLengthMismatch, got %v", err)
	}

	// Stored series untouched after the rejected update.
	s, _ := src.SeriesFor(PeriodQuarterly)
	if len(s.Labels) != 4 {
		t.Errorf("rejected update mutated stored series")
	}
}

func TestRegistryNotifies(t *testing.T) {
	reg := NewRegistry(NewSource())

	var gotPeriod Period
	notified := 0
	unsub := reg.Subscribe(func(p Period, s Series) {
		gotPeriod = p
		notified++
	})

	next := Series{
		Labels:   []string{"Q1", "Q2", "Q3", "Q4"},
		LossData: []float64{1, 2, 3, 4},
		GainData: []float64{4, 3, 2, 1},
	}
	if err := reg.Update(PeriodQuarterly, next); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if notified != 1 || gotPeriod != PeriodQuarterly {
		t.Errorf("notified=%d period=%s", notified, gotPeriod)
	}

	s, _ := reg.SeriesFor(PeriodQuarterly)
	if s.LossData[0] != 1 {
		t.Error("update not visible through registry read")
	}

	unsub()
	unsub()
	if err := reg.Update(PeriodQuarterly, next); err != nil {
		t.Fatalf("Update after unsubscribe: %v", err)
	}
	if notified != 1 {
		t.Errorf("unsubscribed listener notified, count=%d", notified)
	}
}

func TestRegistryRejectsUnknownPeriod(t *testing.T) {
	reg := NewRegistry(NewSource())
	err := reg.Update(Period("weekly"), Series{})
	if !errors.Is(err, ErrUnknownPeriod) {
		t.Errorf("expected ErrUnknownPeriod, got %v", err)
	}
}
