package motion

import (
	"testing"
	"time"

	"github.com/forestwatch-dev/forestwatch/pkg/dom"
)

func TestFormatGrouped(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "0"},
		{7, "7"},
		{999, "999"},
		{1000, "1,000"},
		{1234, "1,234"},
		{56789, "56,789"},
		{1234567, "1,234,567"},
		{1000000000, "1,000,000,000"},
	}
	for _, tt := range tests {
		if got := FormatGrouped(tt.n); got != tt.want {
			t.Errorf("FormatGrouped(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestGroupedRoundTrip(t *testing.T) {
	// parseDisplayed(format(n)) == n across magnitudes and ragged
	// leading-group widths.
	cases := []int{0, 1, 9, 10, 99, 100, 999, 1000, 1001, 9999, 10000,
		123456, 999999, 1000000, 7654321, 2147483647}
	for _, n := range cases {
		got, err := ParseGrouped(FormatGrouped(n))
		if err != nil {
			t.Fatalf("ParseGrouped(FormatGrouped(%d)): %v", n, err)
		}
		if got != n {
			t.Errorf("round trip %d -> %d", n, got)
		}
	}
}

func counterNode(target string) *dom.Node {
	root := dom.NewNode("body", "root")
	n := dom.NewNode("span", "stat")
	n.AddClass("stat-value")
	if target != "" {
		n.Dataset["target"] = target
	}
	root.Append(n)
	dom.NewDocument(root)
	return n
}

func TestCounterConvergesExactly(t *testing.T) {
	n := counterNode("")
	job := NewCounterJob(n, 1234)

	steps := 0
	prev := 0
	for !job.Step() {
		steps++
		cur, err := ParseGrouped(n.Text)
		if err != nil {
			t.Fatalf("displayed text %q does not parse: %v", n.Text, err)
		}
		if cur <= prev {
			t.Fatalf("intermediate values not strictly increasing: %d then %d", prev, cur)
		}
		if cur >= 1234 {
			t.Fatalf("intermediate value %d reached target before terminal step", cur)
		}
		prev = cur
		if steps > 1234 {
			t.Fatal("counter failed to converge")
		}
	}

	if n.Text != "1,234" {
		t.Errorf("terminal display = %q, want 1,234", n.Text)
	}
	if !job.Converged() || job.Current() != 1234 {
		t.Errorf("job state: converged=%v current=%d", job.Converged(), job.Current())
	}
	// Terminal state is stable.
	if !job.Step() {
		t.Error("Step after convergence must stay converged")
	}
}

func TestCounterStepCount(t *testing.T) {
	// Increment is ceil(target/200), so convergence takes exactly
	// ceil(target/inc) steps.
	for _, target := range []int{1, 10, 199, 200, 201, 1234, 100000} {
		job := NewCounterJob(counterNode(""), target)
		inc := (target + 199) / 200
		want := (target + inc - 1) / inc

		steps := 0
		for !job.Step() {
			steps++
		}
		steps++ // the converging step
		if steps != want {
			t.Errorf("target %d: %d steps, want %d", target, steps, want)
		}
	}
}

func TestCounterZeroTarget(t *testing.T) {
	n := counterNode("")
	job := NewCounterJob(n, 0)
	if !job.Step() {
		t.Fatal("zero target must converge in one step")
	}
	if n.Text != "0" {
		t.Errorf("display = %q, want 0", n.Text)
	}
}

func TestCounterDetachedStops(t *testing.T) {
	n := counterNode("")
	job := NewCounterJob(n, 1000)
	job.Step()
	textBefore := n.Text

	n.Detach()
	if !job.Step() {
		t.Error("job over detached node must terminate")
	}
	if n.Text != textBefore {
		t.Errorf("detached node was written to: %q", n.Text)
	}
}

func TestCounterJobFromData(t *testing.T) {
	if _, err := NewCounterJobFromData(counterNode("1,234")); err != nil {
		t.Errorf("grouped data-target should parse: %v", err)
	}
	if _, err := NewCounterJobFromData(counterNode("")); err == nil {
		t.Error("missing data-target must error")
	}
	if _, err := NewCounterJobFromData(counterNode("12k")); err == nil {
		t.Error("malformed data-target must error")
	}
}

func TestCounterStartOnLoop(t *testing.T) {
	loop := NewLoop(nil)
	defer loop.Close()

	n := counterNode("")
	job := NewCounterJob(n, 40) // 40 steps of 1 at 10ms, ~400ms total

	done := make(chan struct{})
	cancel := job.Start(loop)
	defer cancel()

	deadline := time.After(2 * time.Second)
	for {
		var converged bool
		loop.DispatchWait(func() { converged = job.Converged() })
		if converged {
			close(done)
			break
		}
		select {
		case <-deadline:
			t.Fatal("counter never converged on the loop")
		case <-time.After(5 * time.Millisecond):
		}
	}
	<-done

	loop.DispatchWait(func() {
		if n.Text != "40" {
			t.Errorf("terminal display = %q, want 40", n.Text)
		}
	})
}

func TestCounterCancelMidFlight(t *testing.T) {
	loop := NewLoop(nil)
	defer loop.Close()

	n := counterNode("")
	job := NewCounterJob(n, 1000000)
	cancel := job.Start(loop)

	time.Sleep(30 * time.Millisecond)
	loop.DispatchWait(cancel)

	var frozen string
	loop.DispatchWait(func() { frozen = n.Text })
	time.Sleep(50 * time.Millisecond)
	loop.DispatchWait(func() {
		if n.Text != frozen {
			t.Errorf("counter advanced after cancel: %q -> %q", frozen, n.Text)
		}
	})
}
