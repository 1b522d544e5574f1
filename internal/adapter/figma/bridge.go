// Package figma bridges MCP tool calls to a single Figma plugin over one
// persistent WebSocket connection, correlating each command to its reply.
package figma

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nmfisher/figma-mcp/internal/domain"
	"github.com/nmfisher/figma-mcp/internal/infra/config"
)

// Transport sends one text frame to the active plugin connection.
// The Server attaches and detaches transports as sessions come and go.
type Transport interface {
	Send(ctx context.Context, data []byte) error
}

// outcome carries exactly one of result / err through a pending call's
// completion channel.
type outcome struct {
	result json.RawMessage
	err    error
}

type pendingCall struct {
	id      string
	created time.Time
	done    chan outcome // buffered 1; written at most once
}

// Bridge is the correlator: it owns the pending-command table, allocates
// command ids, sends envelopes over the active transport and resolves
// pending entries when tagged replies arrive.
//
// Any number of Call invocations may be in flight concurrently; a single
// reader loop (the Server's) feeds HandleMessage. The table is the only
// shared state between them and every access holds mu. Resolution never
// blocks the reader: completion channels are buffered and written once.
type Bridge struct {
	timeout        time.Duration
	maxOutstanding int
	logger         *slog.Logger

	mu        sync.Mutex
	transport Transport
	pending   map[string]*pendingCall
	seq       uint64
}

// NewBridge creates a Bridge with no transport attached. Calls fail with
// ErrNoPlugin until a plugin connects.
func NewBridge(cfg config.CommandsConfig, logger *slog.Logger) *Bridge {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	maxOutstanding := cfg.MaxOutstanding
	if maxOutstanding <= 0 {
		maxOutstanding = 32
	}
	return &Bridge{
		timeout:        timeout,
		maxOutstanding: maxOutstanding,
		logger:         logger,
		pending:        make(map[string]*pendingCall),
	}
}

// Attach makes t the active transport. Any commands still pending against a
// previous transport fail with ErrConnectionLost immediately: their replies
// can never arrive once the old socket is gone.
func (b *Bridge) Attach(t Transport) {
	b.mu.Lock()
	replaced := b.transport != nil
	b.transport = t
	var stale []*pendingCall
	if replaced {
		stale = b.takeAllLocked()
	}
	b.mu.Unlock()

	b.failAll(stale)
}

// Detach clears the active transport if t is still it, failing every pending
// command with ErrConnectionLost. A Detach for an already-replaced transport
// is a no-op: the replacement owns the table now.
func (b *Bridge) Detach(t Transport) {
	b.mu.Lock()
	if b.transport != t {
		b.mu.Unlock()
		return
	}
	b.transport = nil
	stale := b.takeAllLocked()
	b.mu.Unlock()

	b.failAll(stale)
}

// Connected reports whether a plugin transport is attached.
func (b *Bridge) Connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.transport != nil
}

// Outstanding returns the number of commands awaiting replies.
func (b *Bridge) Outstanding() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Call sends one command to the plugin and blocks until its tagged reply
// arrives, the configured timeout elapses, ctx is cancelled, or the plugin
// disconnects. Every exit path removes the pending entry.
func (b *Bridge) Call(ctx context.Context, method string, params map[string]any) (json.RawMessage, error) {
	const op = "Bridge.Call"

	b.mu.Lock()
	t := b.transport
	if t == nil {
		b.mu.Unlock()
		return nil, domain.NewDomainError(op, domain.ErrNoPlugin, "ensure the Figma plugin is running")
	}
	if len(b.pending) >= b.maxOutstanding {
		b.mu.Unlock()
		return nil, domain.NewDomainError(op, domain.ErrTooManyCalls,
			fmt.Sprintf("%d commands already pending", b.maxOutstanding))
	}
	id := fmt.Sprintf("%s-%d", method, b.seq)
	b.seq++
	pc := &pendingCall{id: id, created: time.Now(), done: make(chan outcome, 1)}
	b.pending[id] = pc
	b.mu.Unlock()

	data, err := EncodeCommand(id, method, params)
	if err != nil {
		b.remove(id)
		return nil, err
	}

	parent := ctx
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	if err := t.Send(ctx, data); err != nil {
		b.remove(id)
		return nil, domain.NewDomainError(op, domain.ErrConnectionLost, err.Error())
	}
	b.logger.Debug("command sent", "id", id, "method", method)

	select {
	case out := <-pc.done:
		return out.result, out.err
	case <-ctx.Done():
		b.remove(id)
		// The reply may have raced the deadline: if it was already resolved,
		// prefer it over the timeout.
		select {
		case out := <-pc.done:
			return out.result, out.err
		default:
		}
		if parent.Err() != nil {
			// Caller abandoned the command; the entry is gone, nothing leaks.
			return nil, domain.WrapOp(op, parent.Err())
		}
		return nil, domain.NewDomainError(op, domain.ErrCommandTimeout, method)
	}
}

// HandleMessage is the reply-side path, invoked by the Server's read loop
// for every inbound frame. Decoding and dispatch are O(1) and never wait on
// a caller; anything unaddressed is logged and dropped.
func (b *Bridge) HandleMessage(data []byte) {
	reply, err := DecodeReply(data)
	if err != nil {
		b.logger.Debug("dropping inbound message", "error", err)
		return
	}

	b.mu.Lock()
	pc, ok := b.pending[reply.ID]
	if ok {
		delete(b.pending, reply.ID)
	}
	b.mu.Unlock()

	if !ok {
		// Late reply after timeout, or an id we never issued. Benign.
		b.logger.Debug("dropping reply with no pending command", "id", reply.ID)
		return
	}

	if reply.Err != nil {
		pc.done <- outcome{err: &domain.RemoteError{Message: reply.Err.Message}}
		return
	}
	result := reply.Result
	if result == nil {
		result = json.RawMessage("null")
	}
	pc.done <- outcome{result: result}
	b.logger.Debug("command resolved", "id", reply.ID, "elapsed", time.Since(pc.created))
}

// remove deletes a pending entry if it is still registered.
func (b *Bridge) remove(id string) {
	b.mu.Lock()
	delete(b.pending, id)
	b.mu.Unlock()
}

// takeAllLocked empties the pending table and returns the displaced calls.
// Caller holds mu.
func (b *Bridge) takeAllLocked() []*pendingCall {
	if len(b.pending) == 0 {
		return nil
	}
	calls := make([]*pendingCall, 0, len(b.pending))
	for _, pc := range b.pending {
		calls = append(calls, pc)
	}
	b.pending = make(map[string]*pendingCall)
	return calls
}

// failAll resolves displaced calls with ErrConnectionLost, exactly once each.
func (b *Bridge) failAll(calls []*pendingCall) {
	if len(calls) == 0 {
		return
	}
	err := domain.NewDomainError("Bridge", domain.ErrConnectionLost, "plugin disconnected")
	for _, pc := range calls {
		pc.done <- outcome{err: err}
	}
	b.logger.Warn("failed pending commands after disconnect", "count", len(calls))
}

// IsIgnorable reports whether err classifies an inbound frame that was
// logged and dropped rather than routed.
func IsIgnorable(err error) bool {
	return errors.Is(err, domain.ErrIgnorableMessage)
}
