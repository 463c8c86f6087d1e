// Package dashboard composes the landing page: the element tree, the
// scroll-driven reveal/counter/typewriter wiring, and the teardown of
// every animation handle when the session ends.
package dashboard

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/forestwatch-dev/forestwatch/pkg/dom"
	"github.com/forestwatch-dev/forestwatch/pkg/maplayer"
	"github.com/forestwatch-dev/forestwatch/pkg/motion"
	"github.com/forestwatch-dev/forestwatch/pkg/regiondata"
)

const (
	// CounterThreshold is the visibility ratio at which the stats
	// counters begin. Half the section must be on screen.
	CounterThreshold = 0.5

	// StaggerIncrement spaces region card entrances apart.
	StaggerIncrement = 100 * time.Millisecond

	// HeroHeadline is typed out across the hero banner.
	HeroHeadline = "Watching the world's forests"
)

// Page is one user's live view of the dashboard. All mutation happens
// on its loop; HandleScroll and Flush are safe from any goroutine.
type Page struct {
	doc      *dom.Document
	loop     *motion.Loop
	reveal   *motion.RevealController
	observer *motion.Observer
	logger   *slog.Logger

	// cleanups is only touched on the loop goroutine.
	cleanups []motion.Cleanup
}

// NewPage builds the element tree for the given regions and wires up
// the scroll animations. The returned page owns its loop; call
// Teardown when the session ends.
func NewPage(regions []regiondata.Region, logger *slog.Logger) *Page {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "dashboard")

	p := &Page{
		loop:   motion.NewLoop(logger),
		logger: logger,
	}
	p.doc = dom.NewDocument(buildTree(regions))
	p.reveal = motion.NewRevealController(p.doc, logger)
	p.observer = motion.NewObserver(logger)

	p.reveal.Tag(".animate-on-scroll")
	p.reveal.TagParallax(".parallax")

	motion.StaggerGroup{
		Parent:    ".regions",
		Child:     ".region-card",
		Increment: StaggerIncrement,
	}.Apply(p.doc)

	// Counters start once their section is half visible and never
	// restart; the subscription removes itself after the first fire.
	if stats := dom.Query(p.doc.Root(), "#stats"); stats != nil {
		p.observer.Observe(stats, CounterThreshold, func(section *dom.Node) {
			p.cleanups = append(p.cleanups, motion.StartCounters(p.loop, section, ".counter"))
		})
	}

	if title := dom.Query(p.doc.Root(), "#hero-title"); title != nil {
		tw := motion.NewTypewriter(title, HeroHeadline)
		p.cleanups = append(p.cleanups, tw.Start(p.loop))
	}

	// Elements in the initial viewport reveal before any scroll report
	// arrives. Client measurements refine the estimate afterwards.
	p.loop.Dispatch(func() {
		p.reveal.CheckAndReveal(initialViewport)
		p.observer.Check(initialViewport)
	})

	return p
}

// initialViewport stands in for the client's viewport until the first
// scroll report lands. 800px covers common desktop heights without
// tripping the below-the-fold sections.
var initialViewport = motion.Viewport{ScrollY: 0, Height: 800}

// HandleScroll processes one scroll report from the client: parallax
// offsets, reveals, and observer thresholds, in that order.
func (p *Page) HandleScroll(vp motion.Viewport) {
	p.loop.Dispatch(func() {
		p.reveal.OnScroll(vp)
		p.observer.Check(vp)
	})
}

// UpdateGeometry records a client-measured element box. Unmeasured
// elements fall back to always-visible, so fresh measurements only
// ever tighten behavior.
func (p *Page) UpdateGeometry(id string, rect dom.Rect) {
	p.loop.Dispatch(func() {
		if n := dom.Query(p.doc.Root(), "#"+id); n != nil {
			r := rect
			n.Geom = &r
		}
	})
}

// Flush drains the patches accumulated since the last call. It waits
// for in-flight loop work so the snapshot is consistent.
func (p *Page) Flush() []dom.Patch {
	var patches []dom.Patch
	p.loop.DispatchWait(func() {
		patches = p.doc.DrainPatches()
	})
	return patches
}

// Doc exposes the document for rendering and tests.
func (p *Page) Doc() *dom.Document { return p.doc }

// Teardown cancels every outstanding animation handle and stops the
// loop. Safe to call once; the page is unusable afterwards.
func (p *Page) Teardown() {
	p.loop.DispatchWait(func() {
		for _, c := range p.cleanups {
			c()
		}
		p.cleanups = nil
	})
	p.loop.Close()
	p.logger.Debug("page torn down")
}

// Section geometry is estimated at build time and replaced by client
// measurements as they arrive.
var sectionGeom = map[string]dom.Rect{
	"hero":     {Top: 0, Height: 600},
	"stats":    {Top: 700, Height: 400},
	"coverage": {Top: 1200, Height: 500},
	"regions":  {Top: 1800, Height: 600},
	"alerts":   {Top: 2500, Height: 400},
}

func section(id string, classes ...string) *dom.Node {
	n := dom.NewNode("section", id)
	for _, c := range classes {
		n.AddClass(c)
	}
	if g, ok := sectionGeom[id]; ok {
		r := g
		n.Geom = &r
	}
	return n
}

// buildTree assembles the landing page for the given regions.
func buildTree(regions []regiondata.Region) *dom.Node {
	root := dom.NewNode("div", "page")

	root.Append(buildHero())
	root.Append(buildStats(regions))
	root.Append(buildCoverage(regions))
	root.Append(buildRegions(regions))
	root.Append(buildAlerts(regions))

	return root
}

func buildHero() *dom.Node {
	hero := section("hero", "hero")

	bg := hero.Append(dom.NewNode("div", "hero-bg"))
	bg.AddClass("parallax")
	bg.Dataset["speed"] = "0.3"
	bg.Geom = &dom.Rect{Top: 0, Height: 600}

	overlay := hero.Append(dom.NewNode("div", "hero-overlay"))
	overlay.AddClass("parallax") // default speed
	overlay.Geom = &dom.Rect{Top: 0, Height: 600}

	hero.Append(dom.NewNode("h1", "hero-title"))

	sub := hero.Append(dom.NewNode("p", "hero-sub"))
	sub.AddClass("animate-on-scroll")
	sub.SetText("Deforestation alerts in near real time")
	sub.Geom = &dom.Rect{Top: 420, Height: 60}

	return hero
}

func buildStats(regions []regiondata.Region) *dom.Node {
	stats := section("stats", "stats", "animate-on-scroll")

	var hectares float64
	alerts := regiondata.Alerts(regions)
	for _, r := range regions {
		if s, err := regiondata.Compute(r.Observations); err == nil {
			hectares += s.TotalDeforestedArea
		}
	}

	addStat(stats, "stat-regions", "Regions monitored", len(regions))
	addStat(stats, "stat-hectares", "Hectares lost", int(hectares))
	addStat(stats, "stat-alerts", "Active alerts", len(alerts))

	return stats
}

func addStat(parent *dom.Node, id, label string, target int) {
	card := parent.Append(dom.NewNode("div", id+"-card"))
	card.AddClass("stat-card")

	value := card.Append(dom.NewNode("span", id))
	value.AddClass("counter")
	value.Dataset["target"] = motion.FormatGrouped(target)
	value.SetText("0")

	caption := card.Append(dom.NewNode("span", id+"-label"))
	caption.SetText(label)
}

func buildCoverage(regions []regiondata.Region) *dom.Node {
	coverage := section("coverage", "coverage")

	for _, r := range regions {
		stats, err := regiondata.Compute(r.Observations)
		if err != nil {
			continue
		}
		bar := coverage.Append(dom.NewNode("div", fmt.Sprintf("coverage-%d", r.ID)))
		bar.AddClass("coverage-bar")
		bar.AddClass("animate-on-scroll")
		bar.Dataset["width"] = fmt.Sprintf("%.0f%%", stats.ForestPercent)
		if g, ok := sectionGeom["coverage"]; ok {
			bar.Geom = &dom.Rect{Top: g.Top + 60, Height: 40}
		}

		label := bar.Append(dom.NewNode("span", fmt.Sprintf("coverage-%d-label", r.ID)))
		label.SetText(r.Name)
	}

	return coverage
}

func buildRegions(regions []regiondata.Region) *dom.Node {
	grid := section("regions", "regions", "animate-on-scroll")

	for _, r := range regions {
		card := grid.Append(dom.NewNode("div", fmt.Sprintf("region-%d", r.ID)))
		card.AddClass("region-card")

		name := card.Append(dom.NewNode("h3", fmt.Sprintf("region-%d-name", r.ID)))
		name.SetText(r.Name)

		stats, err := regiondata.Compute(r.Observations)
		if err != nil {
			continue
		}
		badge := card.Append(dom.NewNode("span", fmt.Sprintf("region-%d-severity", r.ID)))
		badge.AddClass("severity-badge")
		badge.SetText(string(stats.Severity))
		badge.SetStyle("background-color", maplayer.ColorFor(stats.Severity))

		pct := card.Append(dom.NewNode("span", fmt.Sprintf("region-%d-pct", r.ID)))
		pct.SetText(fmt.Sprintf("%.1f%% deforested", stats.DeforestedPercent))
	}

	return grid
}

func buildAlerts(regions []regiondata.Region) *dom.Node {
	sec := section("alerts", "alerts", "animate-on-scroll")

	heading := sec.Append(dom.NewNode("h2", "alerts-heading"))
	heading.SetText("Active alerts")

	for i, a := range regiondata.Alerts(regions) {
		item := sec.Append(dom.NewNode("div", fmt.Sprintf("alert-%d", i)))
		item.AddClass("alert-item")
		item.SetStyle("border-color", maplayer.ColorFor(a.Severity))
		item.SetText(fmt.Sprintf("%s: %s (%s)", a.Region, a.Message, a.Date.Format("2006-01-02")))
	}

	return sec
}
