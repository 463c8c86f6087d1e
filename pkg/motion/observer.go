package motion

import (
	"log/slog"

	"github.com/forestwatch-dev/forestwatch/pkg/dom"
)

// DefaultThreshold is the visibility fraction generic reveals use.
// Stat and skill sections observe at 0.5.
const DefaultThreshold = 0.1

// Subscription pairs a tracked element with its registration in the
// Observer. It fires at most once; the Observer disposes it the instant
// its callback runs. Dispose is also independently invokable for
// teardown.
type Subscription struct {
	node      *dom.Node
	threshold float64
	fn        func(*dom.Node)
	disposed  bool
}

// Dispose removes the subscription from observation. The callback will
// never fire afterwards. Safe to call repeatedly.
func (s *Subscription) Dispose() { s.disposed = true }

// Disposed reports whether the subscription has been disposed.
func (s *Subscription) Disposed() bool { return s.disposed }

// Observer notifies subscribers exactly once when a registered element
// becomes sufficiently visible. It is the engine's single observation
// primitive; RevealController and counter triggers both ride on it.
//
// All methods must be called from the motion Loop.
type Observer struct {
	subs   []*Subscription
	logger *slog.Logger
}

// NewObserver creates an empty observer.
func NewObserver(logger *slog.Logger) *Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Observer{logger: logger.With("component", "observer")}
}

// Observe registers node with a visibility threshold in (0, 1]. The
// callback fires at most once, on the first Check where the node's
// intersection ratio reaches the threshold. Observing a nil node
// returns a pre-disposed subscription.
func (o *Observer) Observe(node *dom.Node, threshold float64, fn func(*dom.Node)) *Subscription {
	if node == nil {
		o.logger.Debug("observe skipped: nil node")
		return &Subscription{disposed: true}
	}
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	sub := &Subscription{node: node, threshold: threshold, fn: fn}
	o.subs = append(o.subs, sub)
	return sub
}

// Check fires the callback for every live subscription whose element
// is now sufficiently visible, then unsubscribes it. Elements with no
// reported geometry are treated as immediately visible: when the
// measurement primitive is unavailable the engine reveals rather than
// silently never firing.
func (o *Observer) Check(vp Viewport) {
	var fired []*Subscription
	live := make([]*Subscription, 0, len(o.subs))
	for _, sub := range o.subs {
		if sub.disposed || sub.node.Detached() {
			continue
		}
		if sub.visible(vp) {
			sub.disposed = true
			fired = append(fired, sub)
			continue
		}
		live = append(live, sub)
	}
	o.subs = live
	// Callbacks run after the list is rebuilt so they may freely
	// register new subscriptions.
	for _, sub := range fired {
		sub.fn(sub.node)
	}
}

func (s *Subscription) visible(vp Viewport) bool {
	if s.node.Geom == nil {
		return true
	}
	return IntersectionRatio(*s.node.Geom, vp) >= s.threshold
}

// Len returns the number of live subscriptions.
func (o *Observer) Len() int {
	n := 0
	for _, sub := range o.subs {
		if !sub.disposed {
			n++
		}
	}
	return n
}
