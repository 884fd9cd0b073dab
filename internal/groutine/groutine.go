// Package groutine starts named goroutines. The name is attached as a pprof
// label and stored in the goroutine's context, so profiles and log lines can
// tell the radio timer, the bridge pump and the payload feeder apart.
package groutine

import (
	"context"
	"runtime/pprof"
	"sync"
)

type ctxKey struct{}

const labelKey = "goroutine_name"

// Go runs fn on a new goroutine named name. A nil parentCtx means
// context.Background().
func Go(parentCtx context.Context, name string, fn func(ctx context.Context)) {
	if parentCtx == nil {
		parentCtx = context.Background()
	}

	go pprof.Do(parentCtx, pprof.Labels(labelKey, name), func(ctx context.Context) {
		fn(context.WithValue(ctx, ctxKey{}, name))
	})
}

// Name returns the name given to the goroutine owning ctx, or ""
func Name(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	s, _ := ctx.Value(ctxKey{}).(string)
	return s
}

// Group tracks named goroutines sharing one cancelable context
type Group struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewGroup creates a group whose goroutines stop when parent is done or
// Stop is called
func NewGroup(parent context.Context) *Group {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	return &Group{ctx: ctx, cancel: cancel}
}

// Go starts fn as a named member of the group
func (g *Group) Go(name string, fn func(ctx context.Context)) {
	g.wg.Add(1)
	Go(g.ctx, name, func(ctx context.Context) {
		defer g.wg.Done()
		fn(ctx)
	})
}

// Context is canceled once the group is stopped
func (g *Group) Context() context.Context {
	return g.ctx
}

// Stop cancels the group and waits for every member to return
func (g *Group) Stop() {
	g.cancel()
	g.wg.Wait()
}
