// Package motion drives the dashboard's progressive-disclosure
// animations: scroll-triggered reveals, staggered delays, numeric
// counters and the typewriter headline.
//
// All element mutations are serialized onto a single Loop goroutine, so
// no locking discipline is needed around the document tree. Every
// deferred chain (counter stepping, typewriter, auto-dismiss timers)
// returns a Cleanup handle; disposing it stops future ticks, which keeps
// scheduled callbacks from writing to elements that left the document.
package motion
