package chatsync

import (
	"sync"

	"MediChat/logger"
	"MediChat/module/chat/model"
)

// Registry guarantees a single live connection per identity for the whole
// process, however many UI subscribers come and go. Switching identity
// always tears the previous socket down before the new one dials, so no
// frame from the old identity can leak into the new session.
type Registry struct {
	mu      sync.Mutex
	opts    Options
	current *Manager
}

func NewRegistry(opts Options) *Registry {
	return &Registry{opts: opts}
}

var (
	defaultRegistry *Registry
	defaultOnce     sync.Once
)

// Default returns the process-wide registry built from config.Global.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry(Options{})
	})
	return defaultRegistry
}

// Acquire returns the live manager for identity, creating or replacing one
// as needed. An existing non-terminal connection for the same identity is
// reused; a connection for a different identity (or a terminal one) is torn
// down first. On construction failure the manager is returned alongside the
// error so the caller observes a non-connected state; the registry itself
// never retries.
func (r *Registry) Acquire(identity model.Identity) (*Manager, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur := r.current; cur != nil {
		if cur.Identity() == identity && cur.State() != StateClosed {
			return cur, nil
		}
		logger.Infof("chat registry: replacing session user=%d role=%s",
			cur.Identity().UserID, cur.Identity().UserType)
		cur.Teardown()
		r.current = nil
	}

	m := NewManager(identity, r.opts)
	if err := m.Open(); err != nil {
		return m, err
	}
	r.current = m
	return m, nil
}

// Current returns the live manager, if any.
func (r *Registry) Current() *Manager {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Shutdown tears down the live connection, if any.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	cur := r.current
	r.current = nil
	r.mu.Unlock()
	if cur != nil {
		cur.Teardown()
	}
}
