package queue

import (
	"context"
	"fmt"

	"github.com/billing/backend/internal/domain/job"
)

// Handler processes jobs of exactly one kind. Handlers are side-effect
// only and must tolerate duplicate deliveries.
type Handler interface {
	Kind() job.Kind
	Handle(ctx context.Context, j *job.Job) error
}

// Registry resolves handlers by job kind. The kind set is closed, so an
// unknown kind is a programming error surfaced at lookup time.
type Registry struct {
	handlers map[job.Kind]Handler
}

// NewRegistry creates a registry from the given handlers
func NewRegistry(handlers ...Handler) (*Registry, error) {
	r := &Registry{handlers: make(map[job.Kind]Handler, len(handlers))}
	for _, h := range handlers {
		kind := h.Kind()
		if !kind.IsValid() {
			return nil, fmt.Errorf("handler registered for unknown job kind %q", kind)
		}
		if _, exists := r.handlers[kind]; exists {
			return nil, fmt.Errorf("duplicate handler for job kind %q", kind)
		}
		r.handlers[kind] = h
	}
	return r, nil
}

// Resolve returns the handler for the given kind
func (r *Registry) Resolve(kind job.Kind) (Handler, error) {
	h, ok := r.handlers[kind]
	if !ok {
		return nil, fmt.Errorf("no handler for job kind %q", kind)
	}
	return h, nil
}
