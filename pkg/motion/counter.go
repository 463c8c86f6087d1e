package motion

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/forestwatch-dev/forestwatch/pkg/dom"
)

// counterStepDelay is the pause between counter increments.
const counterStepDelay = 10 * time.Millisecond

// counterSteps splits the climb into ~200 increments.
const counterSteps = 200

// ErrBadCounterTarget is returned when a counter element carries a
// data-target that does not parse as a non-negative integer.
var ErrBadCounterTarget = errors.New("motion: invalid counter target")

// FormatGrouped renders a non-negative integer with comma thousands
// separators, the display format the stat elements use.
func FormatGrouped(n int) string {
	s := strconv.Itoa(n)
	if n < 0 || len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// ParseGrouped parses a separator-formatted integer back to its value.
// ParseGrouped(FormatGrouped(n)) == n for all n >= 0.
func ParseGrouped(s string) (int, error) {
	clean := strings.ReplaceAll(s, ",", "")
	if clean == "" {
		return 0, nil
	}
	return strconv.Atoi(clean)
}

// CounterJob steps an element's displayed integer from zero up to a
// target. The job owns its numeric state; the displayed text is derived
// from it, never parsed back, so formatting changes cannot corrupt the
// count.
//
// State machine: Running -> ... -> Converged (terminal). Convergence
// means the displayed value equals the target exactly.
type CounterJob struct {
	node    *dom.Node
	target  int
	current int
	done    bool

	cancel Cleanup
}

// NewCounterJob creates a job for node climbing to target. A negative
// target is clamped to zero.
func NewCounterJob(node *dom.Node, target int) *CounterJob {
	if target < 0 {
		target = 0
	}
	return &CounterJob{node: node, target: target}
}

// NewCounterJobFromData builds a job from the node's data-target value.
func NewCounterJobFromData(node *dom.Node) (*CounterJob, error) {
	raw, ok := node.Data("target")
	if !ok {
		return nil, ErrBadCounterTarget
	}
	target, err := ParseGrouped(raw)
	if err != nil || target < 0 {
		return nil, ErrBadCounterTarget
	}
	return NewCounterJob(node, target), nil
}

// Step advances the counter once and reports whether it converged.
// A target of zero, or a current value already at the target, converges
// on the first step. On convergence the exact target is displayed and
// no further state changes occur.
func (j *CounterJob) Step() (converged bool) {
	if j.done {
		return true
	}
	if j.node.Detached() {
		// The element left the document mid-climb; stop without
		// writing to it.
		j.done = true
		return true
	}
	inc := (j.target + counterSteps - 1) / counterSteps
	next := j.current + inc
	if next < j.target {
		j.current = next
		j.node.SetText(FormatGrouped(next))
		return false
	}
	j.current = j.target
	j.done = true
	j.node.SetText(FormatGrouped(j.target))
	return true
}

// Current returns the last committed value.
func (j *CounterJob) Current() int { return j.current }

// Converged reports whether the job reached its terminal state.
func (j *CounterJob) Converged() bool { return j.done }

// Start schedules the job on loop, one step per counterStepDelay,
// self-rescheduling until convergence. The returned Cleanup stops the
// chain; after convergence it is a no-op.
func (j *CounterJob) Start(loop *Loop) Cleanup {
	var schedule func()
	schedule = func() {
		j.cancel = loop.Timeout(counterStepDelay, func() {
			if !j.Step() {
				schedule()
			}
		})
	}
	schedule()
	return func() {
		j.done = true
		if j.cancel != nil {
			j.cancel()
		}
	}
}

// StartCounters finds every counter element in the section, wires each
// to the loop, and returns one Cleanup covering them all. Elements whose
// data-target is missing or malformed are skipped. Trigger policy: call
// this from an Observer subscription at threshold 0.5 so counters begin
// only when their section is half visible, and never restart — the
// subscription disposes itself on first fire.
func StartCounters(loop *Loop, section *dom.Node, selector string) Cleanup {
	var cancels []Cleanup
	for _, n := range dom.QueryAll(section, selector) {
		job, err := NewCounterJobFromData(n)
		if err != nil {
			continue
		}
		cancels = append(cancels, job.Start(loop))
	}
	return func() {
		for _, c := range cancels {
			c()
		}
	}
}
