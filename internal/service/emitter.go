package service

import (
	"context"
	"sync"
)

// ─────────────────────────────────────────────────────────────
// EventEmitter — decouples services from wailsRuntime
// ─────────────────────────────────────────────────────────────

// EventEmitter is an interface for emitting events to the frontend.
// The App struct implements this by delegating to wailsRuntime.EventsEmit.
// It also satisfies studio.Observer, so the editing session emits through
// the same path.
type EventEmitter interface {
	Emit(ctx context.Context, event string, data any)
}

// Events emitted by the services.
const (
	EventToast         = "studio:toast"
	EventDesignSaved   = "design:saved"
	EventDraftsChanged = "drafts:changed"
	EventExportDone    = "export:done"
	EventAssetsChanged = "assets:changed"
)

// Toast is a user-facing notification.
type Toast struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

func toast(ctx context.Context, e EventEmitter, level, msg string) {
	if e != nil {
		e.Emit(ctx, EventToast, Toast{Level: level, Message: msg})
	}
}

// MockEmitter is a test-friendly EventEmitter that records all calls.
// Safe for the background goroutines of the session and export services.
type MockEmitter struct {
	mu     sync.Mutex
	Events []EmittedEvent
}

// EmittedEvent holds a single recorded emission for test assertions.
type EmittedEvent struct {
	Event string
	Data  any
}

func (m *MockEmitter) Emit(_ context.Context, event string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, EmittedEvent{Event: event, Data: data})
}

// Named returns the recorded payloads of one event name.
func (m *MockEmitter) Named(event string) []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []any
	for _, e := range m.Events {
		if e.Event == event {
			out = append(out, e.Data)
		}
	}
	return out
}
