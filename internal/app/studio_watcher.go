package app

import (
	"context"
	"sync"
	"time"

	mcpserver "studio/internal/mcp"
	"studio/internal/service"
	"studio/internal/storage"
)

// Events for work done by a standalone MCP process.
const (
	EventMCPActivity         = "mcp:activity"
	EventMCPApprovalRequired = mcpserver.EventApprovalRequired
)

const watchInterval = 2 * time.Second

type approvalLister interface {
	ListPendingApprovals() ([]storage.PendingApproval, error)
}

// fingerprinter summarizes the draft table so changes can be detected
// without loading every draft.
type fingerprinter interface {
	Fingerprint() (string, error)
}

func fingerprinterOf(st *stack) fingerprinter {
	f, _ := st.drafts.(fingerprinter)
	return f
}

// studioWatcher polls the database for changes made by another process
// (the standalone MCP server) and emits events so the frontend refreshes.
type studioWatcher struct {
	ctx       context.Context
	approvals approvalLister
	drafts    fingerprinter
	emitter   service.EventEmitter
	interval  time.Duration

	mu         sync.Mutex
	lastDrafts string
	// approval IDs already announced, so each is emitted once
	emitted map[string]bool
	stopCh  chan struct{}
}

func newStudioWatcher(ctx context.Context, approvals approvalLister, drafts fingerprinter, emitter service.EventEmitter) *studioWatcher {
	return &studioWatcher{
		ctx:       ctx,
		approvals: approvals,
		drafts:    drafts,
		emitter:   emitter,
		interval:  watchInterval,
		emitted:   map[string]bool{},
	}
}

// Start begins the polling loop. Should be called once on app startup.
func (w *studioWatcher) Start() {
	w.stopCh = make(chan struct{})
	go w.pollLoop(w.stopCh)
}

// Stop terminates the polling loop.
func (w *studioWatcher) Stop() {
	if w.stopCh != nil {
		close(w.stopCh)
		w.stopCh = nil
	}
}

func (w *studioWatcher) pollLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.check()
		case <-stop:
			return
		case <-w.ctx.Done():
			return
		}
	}
}

func (w *studioWatcher) check() {
	// ── Drafts written elsewhere ────────────────────────
	if w.drafts != nil {
		if fp, err := w.drafts.Fingerprint(); err == nil {
			w.mu.Lock()
			changed := w.lastDrafts != "" && w.lastDrafts != fp
			w.lastDrafts = fp
			w.mu.Unlock()
			if changed {
				w.emitter.Emit(w.ctx, service.EventDraftsChanged, nil)
			}
		}
	}

	// ── Pending MCP approvals (cross-process IPC) ───────
	pending, err := w.approvals.ListPendingApprovals()
	if err != nil {
		return
	}
	live := make(map[string]bool, len(pending))
	for _, p := range pending {
		live[p.ID] = true
		w.mu.Lock()
		sent := w.emitted[p.ID]
		w.emitted[p.ID] = true
		w.mu.Unlock()
		if sent {
			continue
		}
		w.emitter.Emit(w.ctx, EventMCPActivity, map[string]any{"tool": p.Tool})
		w.emitter.Emit(w.ctx, EventMCPApprovalRequired, p)
	}

	// Forget resolved ones; the MCP process deletes them after reading
	w.mu.Lock()
	for id := range w.emitted {
		if !live[id] {
			delete(w.emitted, id)
		}
	}
	w.mu.Unlock()
}
