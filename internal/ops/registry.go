// Package ops exposes every engine capability as a named operation with
// a uniform wire contract, so embedding hosts and the CLI drive the
// engine the same way.
//
// Requests are an operation name plus a JSON parameter object. A
// successful dispatch returns the operation's result value; a failed
// one returns the error payload shape
// {error: true, errorType, message, ...} with the cycle path attached
// for cycle rejections.
package ops

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	maestroerrors "github.com/mrz1836/maestro/internal/errors"
)

// Handler executes one operation. Params is the raw JSON parameter
// object; nil means no parameters were supplied.
type Handler func(ctx context.Context, params json.RawMessage) (any, error)

// Registry maps operation names to handlers. Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	logger   zerolog.Logger
}

// NewRegistry creates an empty operation registry.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
		logger:   logger,
	}
}

// Register binds a handler to an operation name, replacing any
// previous binding.
func (r *Registry) Register(name string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = h
}

// Names returns all registered operation names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch runs the named operation. The second return value is nil on
// success and the wire error payload on failure; exactly one of the two
// returns is populated.
func (r *Registry) Dispatch(ctx context.Context, name string, params json.RawMessage) (any, *maestroerrors.Payload) {
	r.mu.RLock()
	h, ok := r.handlers[name]
	r.mu.RUnlock()

	if !ok {
		err := fmt.Errorf("%w: %q", maestroerrors.ErrUnknownOperation, name)
		return nil, maestroerrors.ToPayload(err)
	}

	result, err := h(ctx, params)
	if err != nil {
		r.logger.Debug().Str("operation", name).Err(err).Msg("operation failed")
		return nil, maestroerrors.ToPayload(err)
	}

	return result, nil
}

// decodeParams unmarshals the parameter object into dst. A nil or
// empty params leaves dst at its zero value.
func decodeParams(params json.RawMessage, dst any) error {
	if len(params) == 0 {
		return nil
	}
	if err := json.Unmarshal(params, dst); err != nil {
		return fmt.Errorf("%w: %v", maestroerrors.ErrInvalidInput, err)
	}
	return nil
}
