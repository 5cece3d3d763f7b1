package core

import (
	"fmt"

	"github.com/gocrud/tenantengine/di"
)

// Runtime is the framework's god object: a state container threaded through
// every Option during bootstrap.
type Runtime struct {
	// Features holds build-time capabilities (e.g. the resource-group builders).
	Features FeatureCollection

	// Container is the DI container backing the engine's singletons.
	Container di.Container

	// Lifecycle manages start/stop hooks.
	Lifecycle *LifecycleEvents

	// shutdownCh is closed to request process shutdown.
	shutdownCh chan struct{}

	// ErrorHandler records fatal errors raised by hosted services.
	// Callers may override this to route errors into their own logger.
	ErrorHandler func(err error)
}

// NewRuntime creates a new runtime instance.
func NewRuntime() *Runtime {
	return &Runtime{
		Container:  di.NewContainer(),
		Lifecycle:  NewLifecycle(),
		shutdownCh: make(chan struct{}),
		ErrorHandler: func(err error) {
			fmt.Printf("[Runtime Error] %v\n", err)
		},
	}
}

// Shutdown requests the application to exit.
func (rt *Runtime) Shutdown() {
	select {
	case <-rt.shutdownCh:
	default:
		close(rt.shutdownCh)
	}
}

// Done returns a channel that closes when the application should exit.
func (rt *Runtime) Done() <-chan struct{} {
	return rt.shutdownCh
}

// Provide registers a service provider (sugar over di.Provide).
func (rt *Runtime) Provide(target any, opts ...di.Option) error {
	_, err := di.Provide(rt.Container, target, opts...)
	return err
}

// Invoke calls a function with arguments resolved from the container.
func (rt *Runtime) Invoke(function any) error {
	return di.Invoke(rt.Container, function)
}

// Apply runs a sequence of Options against the runtime.
func (rt *Runtime) Apply(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(rt); err != nil {
			return err
		}
	}
	return nil
}

// As is sugar for di.Use[T](), so core package consumers don't need to
// import di directly just to bind an interface to an implementation.
func As[T any]() di.Option {
	return di.Use[T]()
}
