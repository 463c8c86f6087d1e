package motion

import "github.com/forestwatch-dev/forestwatch/pkg/dom"

// Viewport is the client's reported scroll state.
type Viewport struct {
	// ScrollY is the document offset of the viewport top.
	ScrollY float64
	// Height is the visible viewport height.
	Height float64
}

// IntersectionRatio returns the fraction of the element's area inside
// the viewport, in [0, 1]. Zero-height elements intersect fully when
// their top edge is inside the viewport.
func IntersectionRatio(r dom.Rect, vp Viewport) float64 {
	top := r.Top - vp.ScrollY
	bottom := top + r.Height

	visibleTop := max(top, 0)
	visibleBottom := min(bottom, vp.Height)
	if visibleBottom <= visibleTop {
		if r.Height == 0 && top >= 0 && top <= vp.Height {
			return 1
		}
		return 0
	}
	if r.Height == 0 {
		return 1
	}
	return (visibleBottom - visibleTop) / r.Height
}

// TopInViewport returns the element's top offset relative to the
// viewport top, the quantity the reveal predicate compares against
// Height/1.2.
func TopInViewport(r dom.Rect, vp Viewport) float64 {
	return r.Top - vp.ScrollY
}
