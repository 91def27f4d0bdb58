package bootstrap

import (
	"context"
	"fmt"
)

// Hook is a lifecycle callback.
type Hook func(ctx context.Context) error

// OnStart registers hooks that run right after components start.
func (a *App[C]) OnStart(hooks ...Hook) {
	a.onStart = append(a.onStart, hooks...)
}

// OnReady registers hooks that run once the app is about to serve.
func (a *App[C]) OnReady(hooks ...Hook) {
	a.onReady = append(a.onReady, hooks...)
}

// OnStop registers hooks that run before components are stopped.
func (a *App[C]) OnStop(hooks ...Hook) {
	a.onStop = append(a.onStop, hooks...)
}

// runHooks runs every hook in order and returns the first error.
func runHooks(ctx context.Context, hooks []Hook) error {
	var first error
	for i, h := range hooks {
		if err := h(ctx); err != nil && first == nil {
			first = fmt.Errorf("hook %d: %w", i, err)
		}
	}
	return first
}
