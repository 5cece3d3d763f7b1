package core

import (
	"context"
	"fmt"
	"reflect"

	"github.com/gocrud/tenantengine/di"
)

// HostedService mirrors hosting.HostedService's Start/Stop contract. It is
// declared independently here (rather than imported) because hosting
// depends on logging, which depends on core for core.Option/core.Runtime —
// importing hosting from core would create an import cycle. Any type
// satisfying hosting.HostedService also satisfies this interface.
type HostedService interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// WithHostedService registers a constructor or instance as a HostedService.
// The framework starts it in its own goroutine on Lifecycle start and calls Stop
// on shutdown; a Start error trips the runtime's fail-fast shutdown.
func WithHostedService(constructor any) Option {
	return func(rt *Runtime) error {
		serviceType, err := di.Provide(rt.Container, constructor)
		if err != nil {
			return fmt.Errorf("WithHostedService: failed to provide service: %w", err)
		}

		hostedServiceType := reflect.TypeOf((*HostedService)(nil)).Elem()
		if !serviceType.Implements(hostedServiceType) {
			return fmt.Errorf("WithHostedService: service %v does not implement core.HostedService", serviceType)
		}

		var serviceCtx context.Context
		var serviceCancel context.CancelFunc

		rt.Lifecycle.OnStart(func(ctx context.Context) error {
			val, err := rt.Container.Get(serviceType)
			if err != nil {
				return fmt.Errorf("failed to resolve hosted service %v: %w", serviceType, err)
			}

			serviceCtx, serviceCancel = context.WithCancel(context.Background())

			go func() {
				if err := val.(HostedService).Start(serviceCtx); err != nil {
					if rt.ErrorHandler != nil {
						rt.ErrorHandler(fmt.Errorf("hosted service %v exited with error: %w", serviceType, err))
					}
					rt.Shutdown()
				}
			}()
			return nil
		})

		rt.Lifecycle.OnStop(func(ctx context.Context) error {
			if serviceCancel != nil {
				serviceCancel()
			}

			val, err := rt.Container.Get(serviceType)
			if err != nil {
				return nil
			}
			return val.(HostedService).Stop(ctx)
		})

		return nil
	}
}

// WorkerFunc is a blocking background task that exits when ctx is cancelled.
type WorkerFunc func(ctx context.Context) error

// WithWorker adapts a blocking function into a HostedService: started async,
// stopped by cancelling its context.
func WithWorker(fn WorkerFunc) Option {
	return func(rt *Runtime) error {
		var workerCtx context.Context
		var workerCancel context.CancelFunc

		rt.Lifecycle.OnStart(func(ctx context.Context) error {
			workerCtx, workerCancel = context.WithCancel(context.Background())

			go func() {
				if err := fn(workerCtx); err != nil {
					if rt.ErrorHandler != nil {
						rt.ErrorHandler(fmt.Errorf("worker exited with error: %w", err))
					}
					rt.Shutdown()
				}
			}()
			return nil
		})

		rt.Lifecycle.OnStop(func(ctx context.Context) error {
			if workerCancel != nil {
				workerCancel()
			}
			return nil
		})

		return nil
	}
}
