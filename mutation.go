package querysync

import (
	"context"
	"sync"
)

// Mutator performs a remote write.
type Mutator[In, Out any] func(ctx context.Context, in In) (Out, error)

type MutationOptions[In, Out any] struct {
	// OnMutate runs before the mutator; its result is handed to the other
	// callbacks. An error aborts the mutation.
	OnMutate  func(ctx context.Context, in In) (any, error)
	OnSuccess func(out Out, mctx any)
	OnError   func(err error, in In, mctx any)
	OnSettled func(in In, err error, mctx any)

	// With Engine and UpdateKey set, a successful result is published to
	// UpdateKey(in, out) as a Mutate outcome.
	Engine    *Engine
	UpdateKey func(in In, out Out) Key
}

type MutationState[Out any] struct {
	Data       Out
	Err        error
	IsMutating bool
	IsError    bool
}

// Mutation runs one mutator at a time. Results are not cached unless
// UpdateKey routes them through the engine.
type Mutation[In, Out any] struct {
	fn   Mutator[In, Out]
	opts MutationOptions[In, Out]

	mu sync.Mutex
	st MutationState[Out]
}

func NewMutation[In, Out any](fn Mutator[In, Out], opts MutationOptions[In, Out]) (*Mutation[In, Out], error) {
	if fn == nil {
		return nil, invalid("mutator", "nil", ErrNilFetcher)
	}
	if opts.UpdateKey != nil && opts.Engine == nil {
		return nil, invalid("engine", "UpdateKey needs an engine", ErrNilEngine)
	}
	return &Mutation[In, Out]{fn: fn, opts: opts}, nil
}

func (m *Mutation[In, Out]) State() MutationState[Out] {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st
}

// Mutate runs the mutator. A call made while another is running returns
// ErrMutationInFlight without doing anything.
func (m *Mutation[In, Out]) Mutate(ctx context.Context, in In) (Out, error) {
	var zero Out
	m.mu.Lock()
	if m.st.IsMutating {
		m.mu.Unlock()
		return zero, ErrMutationInFlight
	}
	m.st.IsMutating, m.st.IsError = true, false
	m.mu.Unlock()

	out, mctx, err := m.run(ctx, in)

	m.mu.Lock()
	m.st.IsMutating = false
	m.st.Data, m.st.Err, m.st.IsError = out, err, err != nil
	m.mu.Unlock()

	if fn := m.opts.OnSettled; fn != nil {
		fn(in, err, mctx)
	}
	return out, err
}

func (m *Mutation[In, Out]) run(ctx context.Context, in In) (out Out, mctx any, err error) {
	defer func() {
		if err != nil {
			var zero Out
			out = zero
			if fn := m.opts.OnError; fn != nil {
				fn(err, in, mctx)
			}
		}
	}()

	if fn := m.opts.OnMutate; fn != nil {
		if mctx, err = fn(ctx, in); err != nil {
			return out, mctx, err
		}
	}
	if out, err = m.fn(ctx, in); err != nil {
		return out, mctx, err
	}
	if m.opts.UpdateKey != nil {
		if err = m.opts.Engine.Mutate(ctx, m.opts.UpdateKey(in, out), out); err != nil {
			return out, mctx, err
		}
	}
	if fn := m.opts.OnSuccess; fn != nil {
		fn(out, mctx)
	}
	return out, mctx, nil
}
