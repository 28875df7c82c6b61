// Package lazy provides a holder that constructs an expensive resource at
// most once, on first use, and is safe under concurrent first calls.
package lazy

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
)

// State is the lifecycle state of a Holder
type State int32

const (
	StateEmpty State = iota
	StateInitializing
	StateReady
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// InitFunc constructs the held resource
type InitFunc[T any] func(ctx context.Context) (T, error)

// Holder owns a lazily constructed value of type T.
//
// The value is either absent or fully constructed; a failed construction
// leaves the holder empty so a later call retries.
type Holder[T any] struct {
	name  string
	init  InitFunc[T]
	log   *zap.Logger
	sem   chan struct{}
	value atomic.Pointer[T]
	state atomic.Int32
}

// New creates an empty holder for the resource identified by name
func New[T any](name string, init InitFunc[T], log *zap.Logger) *Holder[T] {
	if log == nil {
		log = zap.NewNop()
	}
	return &Holder[T]{
		name: name,
		init: init,
		log:  log,
		sem:  make(chan struct{}, 1),
	}
}

// Name returns the resource identifier
func (h *Holder[T]) Name() string {
	return h.name
}

// State returns the current lifecycle state
func (h *Holder[T]) State() State {
	return State(h.state.Load())
}

// Ready reports whether the resource has been constructed
func (h *Holder[T]) Ready() bool {
	return h.value.Load() != nil
}

// EnsureReady constructs the resource if it is not constructed yet
func (h *Holder[T]) EnsureReady(ctx context.Context) error {
	_, err := h.Get(ctx)
	return err
}

// Get returns the resource, constructing it on the first call.
// Concurrent callers wait for the single construction to finish, or give up
// with ctx.Err() when their own context ends first.
func (h *Holder[T]) Get(ctx context.Context) (T, error) {
	if v := h.value.Load(); v != nil {
		return *v, nil
	}

	select {
	case h.sem <- struct{}{}:
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
	defer func() { <-h.sem }()

	// another caller may have finished while we waited
	if v := h.value.Load(); v != nil {
		return *v, nil
	}

	h.state.Store(int32(StateInitializing))
	ready := false
	defer func() {
		if !ready {
			h.state.Store(int32(StateEmpty))
		}
	}()

	h.log.Info("Loading pipeline", zap.String("resource", h.name))

	v, err := h.init(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	h.value.Store(&v)
	h.state.Store(int32(StateReady))
	ready = true
	return v, nil
}
