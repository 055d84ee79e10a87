package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventEmitter allows the approval queue to notify the frontend.
type EventEmitter interface {
	Emit(ctx context.Context, event string, data any)
}

// Approval events for the in-process frontend.
const (
	EventApprovalRequired  = "mcp:approval-required"
	EventApprovalDismissed = "mcp:approval-dismissed"
)

// Statuses written by the desktop app; they match storage.Approval*.
const (
	approvalApproved = "approved"
	approvalRejected = "rejected"
)

var (
	ErrRejected        = errors.New("action rejected by user")
	ErrApprovalTimeout = errors.New("approval timed out")
)

// ApprovalStore persists approval requests so a standalone MCP process can
// ask the desktop app. *storage.ApprovalStore implements it.
type ApprovalStore interface {
	CreateApproval(id, tool, description, metadata string) error
	ApprovalStatus(id string) (string, error)
	DeleteApproval(id string) error
}

// PendingAction represents a destructive operation awaiting user approval.
type PendingAction struct {
	ID          string `json:"id"`
	Tool        string `json:"tool"`
	Description string `json:"description"`
	CreatedAt   string `json:"createdAt"`
	Metadata    string `json:"metadata"` // JSON with extra context (e.g. element IDs)
}

// ApprovalQueue manages human-in-the-loop approval for destructive MCP tool calls.
// It supports two modes:
//   - In-process (Wails app running MCP): uses channels + Wails events
//   - Store-based (standalone MCP): writes to mcp_approvals, polls for result
type ApprovalQueue struct {
	mu      sync.Mutex
	pending map[string]chan bool
	ctx     context.Context
	emitter EventEmitter
	timeout time.Duration
	poll    time.Duration
	store   ApprovalStore
}

func NewApprovalQueue(ctx context.Context, emitter EventEmitter) *ApprovalQueue {
	return &ApprovalQueue{
		pending: make(map[string]chan bool),
		ctx:     ctx,
		emitter: emitter,
		timeout: 120 * time.Second,
		poll:    500 * time.Millisecond,
	}
}

// SetStore enables store-based approval for standalone MCP.
func (q *ApprovalQueue) SetStore(store ApprovalStore) {
	q.store = store
}

// SetTimeout changes how long a request waits for the user.
func (q *ApprovalQueue) SetTimeout(d time.Duration) {
	q.timeout = d
}

// Request sends an approval request and blocks until approved/rejected.
// metadata is optional JSON with extra context (e.g. element IDs for highlighting).
// A rejection returns ErrRejected, an unanswered request ErrApprovalTimeout.
func (q *ApprovalQueue) Request(tool, description string, metadata ...string) (bool, error) {
	id := uuid.New().String()
	meta := "{}"
	if len(metadata) > 0 && metadata[0] != "" {
		meta = metadata[0]
	}

	decisions := make(chan bool, 1)
	ctx, cancel := context.WithCancel(q.ctx)
	defer cancel()

	if q.store != nil {
		if err := q.store.CreateApproval(id, tool, description, meta); err != nil {
			return false, fmt.Errorf("record approval: %w", err)
		}
		defer q.store.DeleteApproval(id)
		go q.pollStore(ctx, id, decisions)
	} else {
		q.mu.Lock()
		q.pending[id] = decisions
		q.mu.Unlock()
		defer q.cleanup(id)
		q.notify(EventApprovalRequired, PendingAction{
			ID:          id,
			Tool:        tool,
			Description: description,
			CreatedAt:   time.Now().UTC().Format(time.RFC3339),
			Metadata:    meta,
		})
	}

	approved, err := q.await(ctx, decisions)
	if errors.Is(err, ErrApprovalTimeout) && q.store == nil {
		q.notify(EventApprovalDismissed, map[string]string{"id": id})
	}
	if err != nil {
		return false, fmt.Errorf("%s: %w", tool, err)
	}
	if !approved {
		return false, fmt.Errorf("%s: %w", tool, ErrRejected)
	}
	return true, nil
}

// await blocks for the first decision, the timeout, or cancellation.
func (q *ApprovalQueue) await(ctx context.Context, decisions <-chan bool) (bool, error) {
	deadline := time.NewTimer(q.timeout)
	defer deadline.Stop()

	select {
	case approved := <-decisions:
		return approved, nil
	case <-deadline.C:
		return false, fmt.Errorf("%w after %s", ErrApprovalTimeout, q.timeout)
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// pollStore watches the shared approval row until the desktop app
// resolves it. Read errors are retried on the next tick.
func (q *ApprovalQueue) pollStore(ctx context.Context, id string, decisions chan<- bool) {
	ticker := time.NewTicker(q.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			status, err := q.store.ApprovalStatus(id)
			if err != nil {
				continue
			}
			switch status {
			case approvalApproved, approvalRejected:
				decisions <- status == approvalApproved
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (q *ApprovalQueue) notify(event string, data any) {
	if q.emitter != nil {
		q.emitter.Emit(q.ctx, event, data)
	}
}

// Approve marks a pending action as approved (in-process mode).
func (q *ApprovalQueue) Approve(actionID string) {
	q.resolve(actionID, true)
}

// Reject marks a pending action as rejected (in-process mode).
func (q *ApprovalQueue) Reject(actionID string) {
	q.resolve(actionID, false)
}

func (q *ApprovalQueue) resolve(actionID string, approved bool) {
	q.mu.Lock()
	ch, ok := q.pending[actionID]
	q.mu.Unlock()
	if ok {
		select {
		case ch <- approved:
		default:
		}
	}
}

func (q *ApprovalQueue) cleanup(id string) {
	q.mu.Lock()
	delete(q.pending, id)
	q.mu.Unlock()
}

// approvalReply is the tool result text for a request that was not approved.
func approvalReply(err error) string {
	if errors.Is(err, ErrApprovalTimeout) {
		return "Approval timed out; nothing was changed"
	}
	return "Action rejected by user"
}
