package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Gate serializes access to a single shared inference engine: at most one
// in-flight call system-wide, first-come-first-served, each call bounded by
// a timeout so the pipeline never blocks indefinitely.
type Gate struct {
	mu      sync.Mutex
	eng     Engine
	timeout time.Duration
}

func NewGate(eng Engine, timeout time.Duration) *Gate {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &Gate{eng: eng, timeout: timeout}
}

func (g *Gate) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	out, err := g.eng.Generate(callCtx, req)
	if err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return GenerateResponse{}, fmt.Errorf("%w after %s: %v", ErrTimeout, g.timeout, err)
	}
	return out, err
}

func (g *Gate) Available(ctx context.Context) bool {
	return g.eng.Available(ctx)
}

func (g *Gate) Name() string {
	return g.eng.Name()
}
