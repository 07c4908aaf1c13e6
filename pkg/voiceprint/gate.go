package voiceprint

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Gate serializes access to the single shared embedding [Model].
//
// The model is a non-reentrant resource: at most one inference runs at
// any time. Concurrent callers queue on a capacity-1 semaphore and
// suspend cooperatively until the slot frees; no request is dropped.
// The slot is released on every exit path, so one failed inference
// never deadlocks the gate.
//
// Two independent time bounds apply per call: how long a caller may
// wait for the slot, and how long the model may run. Both fail with
// [ErrEmbedTimeout] rather than hanging the request.
type Gate struct {
	model Model
	sem   chan struct{}

	queueTimeout time.Duration
	inferTimeout time.Duration
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithQueueTimeout bounds the time a caller waits for the inference
// slot. Zero means the caller's context is the only bound.
func WithQueueTimeout(d time.Duration) GateOption {
	return func(g *Gate) { g.queueTimeout = d }
}

// WithInferTimeout bounds a single model invocation. Zero means the
// caller's context is the only bound.
func WithInferTimeout(d time.Duration) GateOption {
	return func(g *Gate) { g.inferTimeout = d }
}

// NewGate wraps model. The gate owns the model handle for the life of
// the process; it does not copy or reinitialize it.
func NewGate(model Model, opts ...GateOption) *Gate {
	g := &Gate{
		model: model,
		sem:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Embed runs one fresh forward pass over the canonical WAV at path.
// Results are never cached here; persistence is the store's job.
func (g *Gate) Embed(ctx context.Context, path string) ([]float32, error) {
	if g.model == nil {
		return nil, ErrProviderNotReady
	}

	waitCtx := ctx
	if g.queueTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, g.queueTimeout)
		defer cancel()
	}
	select {
	case g.sem <- struct{}{}:
	case <-waitCtx.Done():
		return nil, fmt.Errorf("%w: waiting for inference slot: %v", ErrEmbedTimeout, waitCtx.Err())
	}
	defer func() { <-g.sem }()

	runCtx := ctx
	if g.inferTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, g.inferTimeout)
		defer cancel()
	}

	vec, err := g.model.Extract(runCtx, path)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", ErrEmbedTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrInferenceFailed, err)
	}
	if dim := g.model.Dimension(); dim > 0 && len(vec) != dim {
		return nil, fmt.Errorf("%w: model produced %d values, want %d", ErrDimensionMismatch, len(vec), dim)
	}
	return vec, nil
}

// Dimension reports the embedding dimensionality of the wrapped model,
// or 0 when no model is configured.
func (g *Gate) Dimension() int {
	if g.model == nil {
		return 0
	}
	return g.model.Dimension()
}

// Close closes the wrapped model.
func (g *Gate) Close() error {
	if g.model == nil {
		return nil
	}
	return g.model.Close()
}
