package toast

import (
	"sync"
	"testing"
	"time"

	"github.com/forestwatch-dev/forestwatch/pkg/motion"
)

type recordingEmitter struct {
	mu     sync.Mutex
	events []string
	data   []map[string]any
}

func (r *recordingEmitter) Emit(event string, data map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	r.data = append(r.data, data)
}

func (r *recordingEmitter) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func TestShowLevels(t *testing.T) {
	e := &recordingEmitter{}

	Success(e, "saved")
	Error(e, "failed")
	Warning(e, "careful")
	Info(e, "fyi")

	if len(e.events) != 4 {
		t.Fatalf("emitted %d events, want 4", len(e.events))
	}
	wantLevels := []string{"success", "error", "warning", "info"}
	for i, want := range wantLevels {
		if e.events[i] != EventName {
			t.Errorf("event %d name = %q", i, e.events[i])
		}
		if got := e.data[i]["level"]; got != want {
			t.Errorf("event %d level = %v, want %q", i, got, want)
		}
	}
}

func TestWithTitle(t *testing.T) {
	e := &recordingEmitter{}
	WithTitle(e, TypeSuccess, "Upload", "3 images queued")
	if e.data[0]["title"] != "Upload" || e.data[0]["message"] != "3 images queued" {
		t.Errorf("unexpected payload %v", e.data[0])
	}
}

func TestAutoDismiss(t *testing.T) {
	e := &recordingEmitter{}
	loop := motion.NewLoop(nil)
	defer loop.Close()

	ShowAutoDismiss(e, loop, TypeInfo, "hello", 10*time.Millisecond)

	deadline := time.After(time.Second)
	for {
		events := e.snapshot()
		if len(events) == 2 {
			if events[1] != DismissEventName {
				t.Fatalf("second event = %q, want dismiss", events[1])
			}
			return
		}
		select {
		case <-deadline:
			t.Fatal("dismiss event never fired")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestAutoDismissCancel(t *testing.T) {
	e := &recordingEmitter{}
	loop := motion.NewLoop(nil)
	defer loop.Close()

	cancel := ShowAutoDismiss(e, loop, TypeInfo, "hello", 20*time.Millisecond)
	cancel()

	time.Sleep(60 * time.Millisecond)
	loop.DispatchWait(func() {})
	if got := len(e.snapshot()); got != 1 {
		t.Errorf("expected only the show event after cancel, got %d events", got)
	}
}
