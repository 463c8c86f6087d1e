package motion

import (
	"fmt"
	"time"

	"github.com/forestwatch-dev/forestwatch/pkg/dom"
)

// typewriterLead is the pause before the first character appears.
const typewriterLead = 1000 * time.Millisecond

// typewriterCadence is the fixed per-character reveal interval.
const typewriterCadence = 50 * time.Millisecond

// StaggerGroup assigns incremental animation delays to the children of
// a parent element: child i gets i * Increment. The assignment is purely
// declarative; once written, the CSS engine consumes the delays and no
// runtime scheduling happens here.
type StaggerGroup struct {
	Parent    string // parent selector
	Child     string // child selector within the parent
	Increment time.Duration
}

// DelayFor returns the delay for child index i. Pure function of the
// index.
func (g StaggerGroup) DelayFor(i int) time.Duration {
	if i < 0 {
		return 0
	}
	return time.Duration(i) * g.Increment
}

// Apply writes animation-delay styles for every matched child and
// returns how many were written. A parent or child selector that
// matches nothing is a no-op.
func (g StaggerGroup) Apply(doc *dom.Document) int {
	parent := dom.Query(doc.Root(), g.Parent)
	if parent == nil {
		return 0
	}
	children := dom.QueryAll(parent, g.Child)
	for i, c := range children {
		c.SetStyle("animation-delay", formatDelay(g.DelayFor(i)))
	}
	return len(children)
}

func formatDelay(d time.Duration) string {
	return fmt.Sprintf("%gs", d.Seconds())
}

// Typewriter reveals a string one rune per tick. The element is cleared
// before the lead-in, then text grows until the full string is
// displayed (terminal, no further scheduling). Every tick checks that
// the element is still in the document before writing.
type Typewriter struct {
	node  *dom.Node
	runes []rune
	index int
	done  bool

	cancel Cleanup
}

// NewTypewriter creates a typewriter over node revealing text. Passing
// a nil node yields a finished typewriter.
func NewTypewriter(node *dom.Node, text string) *Typewriter {
	tw := &Typewriter{node: node, runes: []rune(text)}
	if node == nil {
		tw.done = true
	}
	return tw
}

// Tick reveals the next rune and reports whether the sequence finished.
// Intermediate states never exceed the source string.
func (t *Typewriter) Tick() (finished bool) {
	if t.done {
		return true
	}
	if t.node.Detached() {
		// Never write to a node that left the document.
		t.done = true
		return true
	}
	if t.index >= len(t.runes) {
		t.done = true
		return true
	}
	t.index++
	t.node.SetText(string(t.runes[:t.index]))
	if t.index == len(t.runes) {
		t.done = true
	}
	return t.done
}

// Finished reports whether the full string is displayed (or the
// sequence was cancelled).
func (t *Typewriter) Finished() bool { return t.done }

// Start clears the element, waits the lead-in, then ticks at the fixed
// cadence until the string is complete. The returned Cleanup stops the
// sequence mid-flight; the reference implementation had no such handle
// and kept writing to removed nodes.
func (t *Typewriter) Start(loop *Loop) Cleanup {
	if t.done {
		return func() {}
	}
	if len(t.runes) == 0 {
		t.done = true
		loop.Dispatch(func() { t.node.SetText("") })
		return func() {}
	}

	loop.Dispatch(func() {
		if !t.node.Detached() {
			t.node.SetText("")
		}
	})

	var schedule func(d time.Duration)
	schedule = func(d time.Duration) {
		t.cancel = loop.Timeout(d, func() {
			if !t.Tick() {
				schedule(typewriterCadence)
			}
		})
	}
	schedule(typewriterLead)

	return func() {
		t.done = true
		if t.cancel != nil {
			t.cancel()
		}
	}
}
