// Package toast is the dashboard's notification surface. Messages are
// emitted as custom events the client renders; auto-dismiss timers run
// on the motion loop and return explicit cancellation handles, so a
// dismissed or torn-down page never has timers firing into it.
package toast

import (
	"time"

	"github.com/forestwatch-dev/forestwatch/pkg/motion"
)

// EventName is the event name dispatched for toasts.
// Client-side code should listen for this event.
const EventName = "forestwatch:toast"

// DismissEventName is dispatched when a toast's display window ends.
const DismissEventName = "forestwatch:toast-dismiss"

// DefaultDuration is how long a toast stays up before auto-dismissal.
const DefaultDuration = 3 * time.Second

// Type represents the toast notification type.
type Type string

const (
	TypeSuccess Type = "success"
	TypeError   Type = "error"
	TypeWarning Type = "warning"
	TypeInfo    Type = "info"
)

// Emitter delivers a custom event to the client. The server's
// websocket hub implements it; tests use a recording fake.
type Emitter interface {
	Emit(event string, data map[string]any)
}

// Show displays a toast notification to the user.
//
// The client receives an event with:
//   - event.type = "forestwatch:toast"
//   - event.detail = { level: "success|error|warning|info", message: "..." }
func Show(e Emitter, level Type, message string) {
	e.Emit(EventName, map[string]any{
		"level":   string(level),
		"message": message,
	})
}

// Success shows a success toast.
//
//	toast.Success(hub, "Analysis complete")
func Success(e Emitter, message string) {
	Show(e, TypeSuccess, message)
}

// Error shows an error toast.
func Error(e Emitter, message string) {
	Show(e, TypeError, message)
}

// Warning shows a warning toast.
func Warning(e Emitter, message string) {
	Show(e, TypeWarning, message)
}

// Info shows an info toast.
func Info(e Emitter, message string) {
	Show(e, TypeInfo, message)
}

// WithTitle shows a toast with a title and message.
func WithTitle(e Emitter, level Type, title, message string) {
	e.Emit(EventName, map[string]any{
		"level":   string(level),
		"title":   title,
		"message": message,
	})
}

// ShowAutoDismiss shows a toast and schedules its dismissal on loop
// after d (DefaultDuration when d <= 0). The returned Cleanup cancels
// the pending dismissal; page teardown should invoke it so no timer
// outlives the session.
func ShowAutoDismiss(e Emitter, loop *motion.Loop, level Type, message string, d time.Duration) motion.Cleanup {
	if d <= 0 {
		d = DefaultDuration
	}
	Show(e, level, message)
	return loop.Timeout(d, func() {
		e.Emit(DismissEventName, map[string]any{"message": message})
	})
}
