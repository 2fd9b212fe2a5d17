package chatsync

import (
	"context"
	"sync"
	"time"

	errs "MediChat/tools/errs"
)

// Tracker correlates fire-and-forget requests with asynchronously delivered
// responses. A tracked request completes exactly once: with the next
// matching response frame, with an error frame, or with its deadline —
// whichever lands first. Later completions for the same request are
// ignored.
//
// Correlation is positional: the server answers requests of a given kind in
// issue order, so the oldest waiter is the one a response belongs to.
type Tracker[T any] struct {
	mu      sync.Mutex
	nextID  uint64
	order   []uint64
	waiters map[uint64]*waiter[T]
}

type result[T any] struct {
	val T
	err error
}

type waiter[T any] struct {
	id    uint64
	ch    chan result[T]
	timer *time.Timer
}

// Pending is the caller's handle on one tracked request.
type Pending[T any] struct {
	t  *Tracker[T]
	id uint64
	ch chan result[T]
}

func NewTracker[T any]() *Tracker[T] {
	return &Tracker[T]{waiters: make(map[uint64]*waiter[T])}
}

// Track registers a one-shot continuation with a deadline.
func (t *Tracker[T]) Track(timeout time.Duration) *Pending[T] {
	t.mu.Lock()
	t.nextID++
	id := t.nextID
	w := &waiter[T]{id: id, ch: make(chan result[T], 1)}
	t.waiters[id] = w
	t.order = append(t.order, id)
	t.mu.Unlock()

	w.timer = time.AfterFunc(timeout, func() {
		t.complete(id, result[T]{err: errs.ErrRequestTimeout.Wrap()})
	})
	return &Pending[T]{t: t, id: id, ch: w.ch}
}

// Await blocks until the request completes or ctx is done. A ctx
// cancellation withdraws the waiter so a late response cannot leak into a
// reused handle.
func (p *Pending[T]) Await(ctx context.Context) (T, error) {
	select {
	case r := <-p.ch:
		return r.val, r.err
	case <-ctx.Done():
		var zero T
		p.t.complete(p.id, result[T]{err: errs.ErrRequestCanceled.WrapMsg(ctx.Err().Error())})
		// complete either delivered the cancellation or lost the race to a
		// real result already buffered; return whichever is there.
		r := <-p.ch
		if r.err != nil {
			return zero, r.err
		}
		return r.val, nil
	}
}

// ResolveNext completes the oldest waiter with a value. False when no
// request is outstanding.
func (t *Tracker[T]) ResolveNext(v T) bool {
	return t.completeNext(result[T]{val: v})
}

// RejectNext completes the oldest waiter with an error.
func (t *Tracker[T]) RejectNext(err error) bool {
	return t.completeNext(result[T]{err: err})
}

// RejectAll fails every outstanding waiter. Called on connection teardown
// so stale resolutions cannot land after an identity switch.
func (t *Tracker[T]) RejectAll(err error) {
	t.mu.Lock()
	ws := make([]*waiter[T], 0, len(t.waiters))
	for _, w := range t.waiters {
		ws = append(ws, w)
	}
	t.waiters = make(map[uint64]*waiter[T])
	t.order = nil
	t.mu.Unlock()

	for _, w := range ws {
		if w.timer != nil {
			w.timer.Stop()
		}
		w.ch <- result[T]{err: err}
	}
}

// Len reports outstanding waiters.
func (t *Tracker[T]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.waiters)
}

func (t *Tracker[T]) completeNext(r result[T]) bool {
	t.mu.Lock()
	var w *waiter[T]
	for len(t.order) > 0 {
		id := t.order[0]
		t.order = t.order[1:]
		if cand, ok := t.waiters[id]; ok {
			delete(t.waiters, id)
			w = cand
			break
		}
	}
	t.mu.Unlock()

	if w == nil {
		return false
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.ch <- r
	return true
}

// complete finishes one specific waiter; used by deadline and cancellation.
func (t *Tracker[T]) complete(id uint64, r result[T]) bool {
	t.mu.Lock()
	w, ok := t.waiters[id]
	if ok {
		delete(t.waiters, id)
	}
	t.mu.Unlock()

	if !ok {
		return false
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.ch <- r
	return true
}
