package hosting

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gocrud/tenantengine/logging"
)

// HostedService mirrors .NET Core's IHostedService: the framework calls
// Start in its own goroutine, so implementations never spawn their own.
type HostedService interface {
	// Start runs the service. It should block until ctx is cancelled or an
	// error occurs; the framework calls it from a dedicated goroutine.
	Start(ctx context.Context) error

	// Stop performs graceful shutdown. Start's context being cancelled
	// should already make the service exit on its own — Stop is for any
	// extra cleanup beyond that (optional).
	Stop(ctx context.Context) error
}

// HostedServiceManager owns a set of hosted services and starts/stops them
// concurrently.
type HostedServiceManager struct {
	services []HostedService
	logger   logging.Logger
	mu       sync.RWMutex
	wg       sync.WaitGroup
}

// NewHostedServiceManager creates an empty manager.
func NewHostedServiceManager(logger logging.Logger) *HostedServiceManager {
	return &HostedServiceManager{
		services: make([]HostedService, 0),
		logger:   logger,
	}
}

// Add registers a hosted service.
func (m *HostedServiceManager) Add(service HostedService) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.services = append(m.services, service)
}

// StartAll starts every registered service in its own goroutine and
// returns a channel that receives any non-cancellation errors.
func (m *HostedServiceManager) StartAll(ctx context.Context) <-chan error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	errCh := make(chan error, len(m.services))

	m.logger.Info(fmt.Sprintf("Starting %d hosted services", len(m.services)))

	for i, service := range m.services {
		m.wg.Add(1)
		go func(index int, svc HostedService) {
			defer m.wg.Done()

			m.logger.Debug(fmt.Sprintf("Starting hosted service %d", index+1))

			if err := svc.Start(ctx); err != nil {
				// Context cancellation is a normal shutdown path, not an error.
				if err == context.Canceled || err == context.DeadlineExceeded {
					m.logger.Debug(fmt.Sprintf("Hosted service %d stopped (context done)", index+1))
				} else {
					m.logger.Error(fmt.Sprintf("Hosted service %d error", index+1),
						logging.Field{Key: "error", Value: err.Error()})
					select {
					case errCh <- err:
					default:
						// Channel is sized to len(services), so this never happens.
					}
				}
				return
			}

			m.logger.Info(fmt.Sprintf("Hosted service %d completed", index+1))
		}(i, service)
	}

	m.logger.Info("All hosted services started")
	return errCh
}

// StopAll stops every registered service concurrently, in reverse
// registration order.
func (m *HostedServiceManager) StopAll(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	m.logger.Info(fmt.Sprintf("Stopping %d hosted services", len(m.services)))

	var wg sync.WaitGroup

	for i := len(m.services) - 1; i >= 0; i-- {
		service := m.services[i]
		index := i

		wg.Add(1)
		go func(idx int, svc HostedService) {
			defer wg.Done()

			m.logger.Debug(fmt.Sprintf("Stopping hosted service %d", idx+1))

			if err := svc.Stop(ctx); err != nil {
				m.logger.Error(fmt.Sprintf("Failed to stop hosted service %d", idx+1),
					logging.Field{Key: "error", Value: err.Error()})
			} else {
				m.logger.Info(fmt.Sprintf("Hosted service %d stopped successfully", idx+1))
			}
		}(index, service)
	}

	wg.Wait()

	m.logger.Info("All hosted services stopped")
	return nil
}

// Wait blocks until every started service has returned from Start.
func (m *HostedServiceManager) Wait() {
	m.wg.Wait()
}

// BackgroundService is a base type for services that just run until
// signalled to stop.
type BackgroundService struct {
	name   string
	logger logging.Logger
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewBackgroundService creates a background service named name.
func NewBackgroundService(name string, logger logging.Logger) *BackgroundService {
	return &BackgroundService{
		name:   name,
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start blocks until Stop is called or ctx is cancelled.
func (s *BackgroundService) Start(ctx context.Context) error {
	s.logger.Info(fmt.Sprintf("BackgroundService '%s' starting", s.name))

	select {
	case <-s.stopCh:
		s.logger.Info(fmt.Sprintf("BackgroundService '%s' stopped by signal", s.name))
	case <-ctx.Done():
		s.logger.Info(fmt.Sprintf("BackgroundService '%s' context cancelled", s.name))
	}

	s.Done()
	return nil
}

// Stop signals the service to stop and waits for it to finish, or for ctx
// to expire first.
func (s *BackgroundService) Stop(ctx context.Context) error {
	s.logger.Info(fmt.Sprintf("BackgroundService '%s' stopping", s.name))
	close(s.stopCh)

	select {
	case <-s.doneCh:
		s.logger.Info(fmt.Sprintf("BackgroundService '%s' stopped gracefully", s.name))
	case <-ctx.Done():
		s.logger.Warn(fmt.Sprintf("BackgroundService '%s' stop timeout", s.name))
		return ctx.Err()
	}

	return nil
}

// ShouldStop reports whether a stop has been signalled.
func (s *BackgroundService) ShouldStop() bool {
	select {
	case <-s.stopCh:
		return true
	default:
		return false
	}
}

// StopChan returns the stop signal channel, for use in a select.
func (s *BackgroundService) StopChan() <-chan struct{} {
	return s.stopCh
}

// Done marks the service as finished. Safe to call more than once.
func (s *BackgroundService) Done() {
	select {
	case <-s.doneCh:
		return
	default:
		close(s.doneCh)
	}
}

// TimedHostedService runs task on a fixed interval until stopped.
type TimedHostedService struct {
	*BackgroundService
	interval time.Duration
	task     func(ctx context.Context) error
}

// NewTimedHostedService creates a service that runs task every interval.
func NewTimedHostedService(name string, interval time.Duration, task func(ctx context.Context) error, logger logging.Logger) *TimedHostedService {
	return &TimedHostedService{
		BackgroundService: NewBackgroundService(name, logger),
		interval:          interval,
		task:              task,
	}
}

// Start runs the ticker loop until stopped.
func (s *TimedHostedService) Start(ctx context.Context) error {
	s.logger.Info(fmt.Sprintf("TimedHostedService '%s' running with interval %v", s.name, s.interval))
	return s.run(ctx)
}

func (s *TimedHostedService) run(ctx context.Context) error {
	defer s.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.logger.Debug(fmt.Sprintf("TimedHostedService '%s' executing task", s.name))
			if err := s.task(ctx); err != nil {
				s.logger.Error(fmt.Sprintf("TimedHostedService '%s' task failed", s.name),
					logging.Field{Key: "error", Value: err.Error()})
			}
		case <-s.stopCh:
			s.logger.Info(fmt.Sprintf("TimedHostedService '%s' stopped", s.name))
			return nil
		case <-ctx.Done():
			s.logger.Info(fmt.Sprintf("TimedHostedService '%s' context cancelled", s.name))
			return ctx.Err()
		}
	}
}
