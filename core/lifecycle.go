package core

import (
	"context"

	"github.com/gocrud/tenantengine/di"
)

// LifecycleEvents manages the start/stop hooks of a Runtime.
type LifecycleEvents struct {
	onStart []func(context.Context) error
	onStop  []func(context.Context) error
}

// NewLifecycle creates an empty lifecycle manager.
func NewLifecycle() *LifecycleEvents {
	return &LifecycleEvents{
		onStart: make([]func(context.Context) error, 0),
		onStop:  make([]func(context.Context) error, 0),
	}
}

// OnStart registers a hook to run during Start, in registration order.
func (l *LifecycleEvents) OnStart(fn func(context.Context) error) {
	l.onStart = append(l.onStart, fn)
}

// OnStop registers a hook to run during Stop.
func (l *LifecycleEvents) OnStop(fn func(context.Context) error) {
	l.onStop = append(l.onStop, fn)
}

// Start runs every registered start hook in order, stopping at the first
// error.
func (l *LifecycleEvents) Start(ctx context.Context, container di.Container) error {
	for _, fn := range l.onStart {
		if err := fn(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Stop runs every registered stop hook in reverse registration order.
func (l *LifecycleEvents) Stop(ctx context.Context) error {
	for i := len(l.onStop) - 1; i >= 0; i-- {
		fn := l.onStop[i]
		if err := fn(ctx); err != nil {
			// TODO: log error instead of swallowing it; continue stopping
			// the rest regardless.
		}
	}
	return nil
}
