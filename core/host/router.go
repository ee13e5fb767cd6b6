// Package host is the call/reply substrate the contracts run on. Each
// top-level invocation and every reply it triggers execute as one atomic
// unit over a state overlay: commit on success, discard on any error.
// Outbound calls run strictly in issue order, and a call tagged with a
// continuation token hands its emitted events back to the issuing engine's
// reply handler before the next queued call runs, mirroring how the original
// sub-message protocol interleaved replies with remaining messages.
package host

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"farmchain/core/types"
	"farmchain/storage"
)

var errNilPrepare = errors.New("host: nil transaction body")

// Replyer receives the result of an outbound call it tagged with a
// continuation token.
type Replyer interface {
	OnReply(ctx *Context, reply Reply) error
}

// Call is one queued outbound call. Invoke performs the call against the
// target engine and returns the events it emitted.
type Call struct {
	// Issuer receives the reply when Continuation is non-empty.
	Issuer Replyer
	// Continuation correlates the reply with the in-flight workflow step.
	Continuation string
	Invoke       func(ctx *Context) ([]*types.Event, error)
}

// Reply delivers a completed call's events back to its issuer.
type Reply struct {
	Continuation string
	Events       []*types.Event
}

// SplitContinuation separates a "step:workflowID" token.
func SplitContinuation(token string) (step, workflowID string) {
	step, workflowID, _ = strings.Cut(token, ":")
	return step, workflowID
}

// JoinContinuation builds a "step:workflowID" token.
func JoinContinuation(step, workflowID string) string {
	return step + ":" + workflowID
}

// Context carries per-transaction facilities: the host clock, the outbound
// call queue and the accumulated event log.
type Context struct {
	// Timestamp is the unix time of the enclosing transaction. All accrual
	// inside the transaction observes this single value.
	Timestamp int64

	queue  []Call
	events []*types.Event
}

// Issue appends an outbound call to the transaction's ordered queue.
func (c *Context) Issue(call Call) {
	c.queue = append(c.queue, call)
}

// Emit records events from the invocation itself (as opposed to its
// outbound calls).
func (c *Context) Emit(events ...*types.Event) {
	c.events = append(c.events, events...)
}

// Router executes transactions against a shared database.
type Router struct {
	db  storage.Database
	now func() int64
}

func NewRouter(db storage.Database) *Router {
	return &Router{db: db, now: func() int64 { return time.Now().Unix() }}
}

// SetClock overrides the transaction clock. Tests use a fixed clock.
func (r *Router) SetClock(now func() int64) { r.now = now }

// Transact runs one atomic invocation. The prepare function receives the
// transaction context and the overlayed database to build engines against;
// it queues outbound calls on the context. After prepare returns, the router
// drains the queue in order and dispatches tagged replies. Any error
// discards every buffered write.
func (r *Router) Transact(prepare func(ctx *Context, db storage.Database) error) ([]*types.Event, error) {
	if prepare == nil {
		return nil, errNilPrepare
	}
	overlay := NewOverlay(r.db)
	ctx := &Context{Timestamp: r.now()}
	if err := prepare(ctx, overlay); err != nil {
		overlay.Discard()
		return nil, err
	}
	for len(ctx.queue) > 0 {
		call := ctx.queue[0]
		ctx.queue = ctx.queue[1:]
		events, err := call.Invoke(ctx)
		if err != nil {
			overlay.Discard()
			return nil, err
		}
		ctx.events = append(ctx.events, events...)
		if call.Continuation != "" {
			if call.Issuer == nil {
				overlay.Discard()
				return nil, fmt.Errorf("host: continuation %q has no issuer", call.Continuation)
			}
			if err := call.Issuer.OnReply(ctx, Reply{Continuation: call.Continuation, Events: events}); err != nil {
				overlay.Discard()
				return nil, err
			}
		}
	}
	if err := overlay.Commit(); err != nil {
		return nil, err
	}
	return ctx.events, nil
}
