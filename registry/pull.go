package registry

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/gocrud/tenantengine/logging"
	"github.com/gocrud/tenantengine/reqcontext"
	"github.com/gocrud/tenantengine/resources"
	"github.com/gocrud/tenantengine/updater"
)

// PullLoop drives an updater.Updater on a schedule and applies its result
// to a Registry. It implements hosting.HostedService (Start/Stop) so it
// can be wired in via core.WithHostedService.
type PullLoop struct {
	Registry  *Registry
	Updater   updater.Updater
	Preparer  Preparer
	Processor reqcontext.RequestProcessor
	Groups    *resources.Registry

	Root          string
	PullInterval  time.Duration
	Modules       []string
	IncludeAppIDs []string
	Logger        logging.Logger
	WarningsDir   string

	sf   singleflight.Group
	mu   sync.Mutex
	last map[string]time.Time // appID -> last known update time

	stop chan struct{}
	done chan struct{}
}

// NewPullLoop wires a PullLoop against the given registry and updater. Every
// built App gets reqcontext.SniffingRequestProcessor as its RequestProcessor
// unless the caller overrides PullLoop.Processor before Start.
func NewPullLoop(registry *Registry, up updater.Updater, preparer Preparer, groups *resources.Registry) *PullLoop {
	return &PullLoop{
		Registry:  registry,
		Updater:   up,
		Preparer:  preparer,
		Processor: reqcontext.SniffingRequestProcessor{},
		Groups:    groups,
		last:      make(map[string]time.Time),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start runs one synchronous update immediately, then — if PullInterval is
// positive — keeps rescheduling the next update to fire PullInterval after
// each completion, regardless of outcome (§4.1 "Scheduling"). A
// non-positive PullInterval means updates are manual-only via PullOnce.
func (p *PullLoop) Start(ctx context.Context) error {
	if err := p.PullOnce(ctx); err != nil {
		p.logf("initial app config pull failed: %v", err)
	}

	if p.PullInterval <= 0 {
		close(p.done)
		return nil
	}

	go p.loop(ctx)
	return nil
}

func (p *PullLoop) loop(ctx context.Context) {
	defer close(p.done)
	timer := time.NewTimer(p.PullInterval)
	defer timer.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ctx.Done():
			return
		case <-timer.C:
			if err := p.PullOnce(ctx); err != nil {
				p.logf("scheduled app config pull failed: %v", err)
			}
			timer.Reset(p.PullInterval)
		}
	}
}

// Stop halts the scheduling loop.
func (p *PullLoop) Stop(ctx context.Context) error {
	select {
	case <-p.stop:
	default:
		close(p.stop)
	}
	select {
	case <-p.done:
	case <-ctx.Done():
	}
	return nil
}

// PullOnce runs exactly one update cycle. Concurrent callers (a manual
// trigger racing the scheduled tick) collapse into a single underlying
// call via singleflight.
func (p *PullLoop) PullOnce(ctx context.Context) error {
	_, err, _ := p.sf.Do("pull", func() (any, error) {
		return nil, p.pull(ctx)
	})
	return err
}

func (p *PullLoop) pull(ctx context.Context) error {
	p.mu.Lock()
	lastSnapshot := make(map[string]time.Time, len(p.last))
	for k, v := range p.last {
		lastSnapshot[k] = v
	}
	p.mu.Unlock()

	result, err := p.Updater.Update(ctx, updater.UpdateInput{
		Root:            p.Root,
		Logger:          p.Logger,
		IncludeAppIDs:   p.IncludeAppIDs,
		LastUpdateTimes: lastSnapshot,
		Modules:         p.Modules,
		SkipIfNoChange:  true,
	})
	if err != nil {
		// A failure of the updater as a whole leaves all prior apps live.
		return fmt.Errorf("registry: updater failed: %w", err)
	}

	previous := p.Registry.Snapshot()
	newApps := make(map[string]*App, len(previous))
	for id, app := range previous {
		newApps[id] = app
	}

	built, prepareErr := p.buildApps(ctx, result)
	if prepareErr != nil {
		p.logf("some apps failed to prepare: %v", prepareErr)
	}
	for id, app := range built {
		newApps[id] = app
	}

	for _, id := range result.RemovedAppIDs {
		delete(newApps, id)
	}

	p.mu.Lock()
	for id, t := range result.UpdatedApps {
		if _, skipped := result.SkippedApps[id]; skipped {
			continue
		}
		if _, built := built[id]; built {
			p.last[id] = t
		}
	}
	for _, id := range result.RemovedAppIDs {
		delete(p.last, id)
	}
	p.mu.Unlock()

	p.persistWarnings(result)
	p.Registry.replace(newApps)

	return nil
}

// buildApps constructs and prepares one App per updated+parsed config set,
// concurrently (§4.1 step 2). A single app's build failure never aborts the
// batch — that app is simply omitted, so the caller retains whatever was
// previously live for that ID — but every failure is aggregated into the
// returned error so the cycle as a whole reports what went wrong.
func (p *PullLoop) buildApps(ctx context.Context, result *updater.UpdateResult) (map[string]*App, error) {
	built := make(map[string]*App)
	var mu sync.Mutex
	var errs error

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for appID, set := range result.UpdatedAppConfigs {
		appID, set := appID, set
		g.Go(func() error {
			group := p.resolveGroup(set.Main.AppGroup)
			app := newApp(appID, set, group, p.Processor, result.UpdatedApps[appID])

			if app.Processor != nil {
				if err := app.Processor.Prepare(app.Config("")); err != nil {
					mu.Lock()
					errs = multierr.Append(errs, fmt.Errorf("app %q: request processor prepare: %w", appID, err))
					mu.Unlock()
					return nil
				}
			}

			if p.Preparer != nil {
				if err := p.Preparer(app); err != nil {
					mu.Lock()
					errs = multierr.Append(errs, fmt.Errorf("app %q: %w", appID, err))
					mu.Unlock()
					return nil
				}
			}

			mu.Lock()
			built[appID] = app
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // buildApps never fails the batch; failures are per-app and aggregated

	return built, errs
}

func (p *PullLoop) resolveGroup(groupID string) *resources.Group {
	if p.Groups == nil {
		return nil
	}
	return p.Groups.Resolve(groupID)
}

func (p *PullLoop) logf(format string, args ...any) {
	if p.Logger == nil {
		return
	}
	p.Logger.Error(fmt.Sprintf(format, args...))
}
