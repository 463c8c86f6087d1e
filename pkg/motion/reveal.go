package motion

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/forestwatch-dev/forestwatch/pkg/dom"
)

// RevealedClass is the state class applied when an element reveals.
const RevealedClass = "animated"

// revealDivisor: an element reveals once its top sits above
// viewport height / revealDivisor.
const revealDivisor = 1.2

// defaultParallaxSpeed applies when an element carries no data-speed.
const defaultParallaxSpeed = 0.5

// RevealController flips tracked elements into their revealed state the
// first time they scroll into range. Revealing is monotonic: once an
// element has revealed it never hides again, so re-checking is always
// idempotent.
//
// All methods must be called from the motion Loop.
type RevealController struct {
	doc    *dom.Document
	logger *slog.Logger

	tracked  []*dom.Node
	revealed map[*dom.Node]bool

	parallax []*dom.Node
}

// NewRevealController creates a controller over doc.
func NewRevealController(doc *dom.Document, logger *slog.Logger) *RevealController {
	if logger == nil {
		logger = slog.Default()
	}
	return &RevealController{
		doc:      doc,
		logger:   logger.With("component", "reveal"),
		revealed: make(map[*dom.Node]bool),
	}
}

// Tag marks every element matching selector as revealable. Re-tagging
// an already tracked element is a no-op, so Tag may be called with
// overlapping selectors.
func (rc *RevealController) Tag(selector string) int {
	nodes := dom.QueryAll(rc.doc.Root(), selector)
	if len(nodes) == 0 {
		rc.logger.Debug("tag matched nothing", "selector", selector)
		return 0
	}
	added := 0
	for _, n := range nodes {
		if _, seen := rc.revealed[n]; seen {
			continue
		}
		rc.revealed[n] = false
		rc.tracked = append(rc.tracked, n)
		added++
	}
	return added
}

// TagParallax registers elements matching selector for the continuous
// parallax transform. Parallax is stateless and sits outside the reveal
// state machine.
func (rc *RevealController) TagParallax(selector string) int {
	nodes := dom.QueryAll(rc.doc.Root(), selector)
	rc.parallax = append(rc.parallax, nodes...)
	return len(nodes)
}

// CheckAndReveal tests every tracked, not-yet-revealed element against
// the trigger predicate and reveals those in range. Call it on every
// scroll tick and once eagerly at initialization so elements already in
// view on load reveal without a scroll. Returns how many elements
// revealed on this pass.
func (rc *RevealController) CheckAndReveal(vp Viewport) int {
	count := 0
	for _, n := range rc.tracked {
		if rc.revealed[n] || n.Detached() {
			continue
		}
		if !inRevealRange(n, vp) {
			continue
		}
		rc.revealed[n] = true
		rc.reveal(n)
		count++
	}
	return count
}

// inRevealRange: top offset relative to the viewport under
// Height/1.2. Elements without geometry reveal immediately.
func inRevealRange(n *dom.Node, vp Viewport) bool {
	if n.Geom == nil {
		return true
	}
	return TopInViewport(*n.Geom, vp) < vp.Height/revealDivisor
}

func (rc *RevealController) reveal(n *dom.Node) {
	n.AddClass(RevealedClass)
	// Progress bars take their terminal width from the markup contract.
	if w, ok := n.Data("width"); ok {
		n.SetStyle("width", w)
	}
}

// Revealed reports whether n has been revealed. Unknown nodes report
// false.
func (rc *RevealController) Revealed(n *dom.Node) bool { return rc.revealed[n] }

// OnScroll recomputes the parallax transform for every registered
// element and re-runs the reveal check. This is the scroll-event entry
// point.
func (rc *RevealController) OnScroll(vp Viewport) {
	for _, n := range rc.parallax {
		if n.Detached() {
			continue
		}
		speed := defaultParallaxSpeed
		if raw, ok := n.Data("speed"); ok {
			if v, err := strconv.ParseFloat(raw, 64); err == nil {
				speed = v
			}
		}
		n.SetStyle("transform", fmt.Sprintf("translateY(%.2fpx)", vp.ScrollY*speed))
	}
	rc.CheckAndReveal(vp)
}
