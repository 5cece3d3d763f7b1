package engine

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
	"gorm.io/driver/sqlite"

	"github.com/gocrud/tenantengine/apperrors"
	"github.com/gocrud/tenantengine/core"
	"github.com/gocrud/tenantengine/detect"
	"github.com/gocrud/tenantengine/di"
	"github.com/gocrud/tenantengine/enginehttp"
	"github.com/gocrud/tenantengine/logging"
	"github.com/gocrud/tenantengine/registry"
	"github.com/gocrud/tenantengine/reqcontext"
	"github.com/gocrud/tenantengine/resources"
	"github.com/gocrud/tenantengine/serviceregister"
	"github.com/gocrud/tenantengine/updater"
)

// Options gathers what a hosting process supplies beyond EngineConfig
// itself: the Preparer that turns a parsed AppConfigSet into a populated
// router.Router (§4.1 step 2), the RequestProcessor every app's bodies flow
// through (defaults to reqcontext.SniffingRequestProcessor when nil), and
// the resource-group wiring the engine can't infer from a bare EngineConfig.
type Options struct {
	Config    *EngineConfig
	Preparer  registry.Preparer
	Processor reqcontext.RequestProcessor
	Groups    []resources.GroupSpec
}

// New composes the whole framework onto a core.Runtime: verbose-flag
// parsing, structured logging, Resource Groups, the Service Register and
// its Snowflake generator, the App Registry, the host detector, the App
// Registry pull loop, and the HTTP responder, in that order. The stages
// that need the Resource Group registry resolve it with rt.Invoke; the App
// Registry and host detector are handed to later stages as Go values. This
// mirrors the teacher's run.go composition of independent core.Options.
func New(opts Options) core.Option {
	return func(rt *core.Runtime) error {
		cfg := opts.Config
		if cfg == nil {
			return fmt.Errorf("engine: Options.Config is required")
		}

		verbose := ParseVerboseEnv()
		apperrors.SetCaptureCaller(verbose.ErrorCaller)

		if err := rt.Provide(cfg, di.WithValue(cfg)); err != nil {
			return fmt.Errorf("engine: failed to register EngineConfig: %w", err)
		}

		minLevel := logging.LogLevelInfo
		sinks := map[string]logging.SinkSpec{}
		for role, sink := range cfg.LoggerSinks {
			sinks[role] = logging.SinkSpec{Console: sink.Console, FilePath: sink.FilePath, TCPAddr: sink.TCPAddr}
		}
		if len(sinks) == 0 {
			sinks["default"] = logging.SinkSpec{Console: true}
		}
		if err := logging.Configure(sinks, minLevel)(rt); err != nil {
			return fmt.Errorf("engine: failed to configure logging: %w", err)
		}

		groups := opts.Groups
		if len(groups) == 0 {
			groups = defaultGroupSpecs(cfg)
		}
		if err := resources.New(groups...)(rt); err != nil {
			return fmt.Errorf("engine: failed to build resource groups: %w", err)
		}

		regOpts := serviceregister.Options{ServiceName: cfg.ServiceName}
		if err := rt.Invoke(func(groupRegistry *resources.Registry) error {
			if group := groupRegistry.Resolve(resources.DefaultGroupID); group != nil {
				regOpts.DB = group.Database("")
			}
			return nil
		}); err != nil {
			return err
		}
		if err := serviceregister.New(regOpts)(rt); err != nil {
			return fmt.Errorf("engine: failed to start service register: %w", err)
		}

		up, err := buildUpdater(cfg)
		if err != nil {
			return fmt.Errorf("engine: failed to build config updater: %w", err)
		}

		appRegistry := registry.New()
		if err := rt.Provide(appRegistry, di.WithValue(appRegistry)); err != nil {
			return fmt.Errorf("engine: failed to register app registry: %w", err)
		}

		hostDetector := detect.NewHostDetector()
		hostDetector.AllowDebugHostHeader = cfg.DebugFeatureEnabled("engine_extractDebugHost")
		appRegistry.AddListener(registry.ListenerFunc(func(apps map[string]*registry.App) {
			rebuildHostIndex(hostDetector, apps)
		}))

		if err := rt.Invoke(func(groupRegistry *resources.Registry) error {
			pull := registry.NewPullLoop(appRegistry, up, opts.Preparer, groupRegistry)
			if opts.Processor != nil {
				pull.Processor = opts.Processor
			}
			pull.Root = cfg.AppSource.LocalPath
			pull.PullInterval = cfg.AppSource.PullInterval
			pull.IncludeAppIDs = cfg.DebugIncludeAppIDs()
			return core.WithHostedService(func(logger logging.Logger) *registry.PullLoop {
				pull.Logger = logger
				return pull
			})(rt)
		}); err != nil {
			return err
		}

		responderCfg := enginehttp.Config{
			Host:            cfg.Server.Host,
			Port:            cfg.Server.Port,
			ShutdownTimeout: cfg.Server.ShutdownTimeout,
			BodyLimitBytes:  cfg.Server.BodyLimitBytes,
		}
		return core.WithHostedService(func(reg *serviceregister.Register, logger logging.Logger) *enginehttp.Responder {
			return enginehttp.NewResponder(responderCfg, appRegistry, hostDetector, reg, logger)
		})(rt)
	}
}

func rebuildHostIndex(detector *detect.HostDetector, apps map[string]*registry.App) {
	var bindings []detect.HostBinding
	for appID, app := range apps {
		main := app.ConfigSet.Main
		for _, host := range main.RequestHosts() {
			bindings = append(bindings, detect.HostBinding{Host: host, AppID: appID})
		}
		for envName, variant := range app.ConfigSet.Variants {
			for _, host := range variant.RequestHosts() {
				bindings = append(bindings, detect.HostBinding{Host: host, AppID: appID, Environment: envName})
			}
		}
	}
	detector.Rebuild(bindings)
}

func defaultGroupSpecs(cfg *EngineConfig) []resources.GroupSpec {
	if len(cfg.ResourceGroups) == 0 {
		return nil
	}
	specs := make([]resources.GroupSpec, 0, len(cfg.ResourceGroups))
	for _, g := range cfg.ResourceGroups {
		if g.SQLitePath == "" {
			specs = append(specs, resources.Spec(g.ID))
			continue
		}
		specs = append(specs, resources.Spec(g.ID, resources.WithDatabase("", sqlite.Open(g.SQLitePath))))
	}
	return specs
}

func buildUpdater(cfg *EngineConfig) (updater.Updater, error) {
	switch cfg.AppSource.RemoteKind {
	case "etcd":
		if len(cfg.AppSource.EtcdEndpoints) == 0 {
			return nil, fmt.Errorf("engine: app_source.remote_kind is etcd but no endpoints are configured")
		}
		client, err := clientv3.New(clientv3.Config{
			Endpoints:   cfg.AppSource.EtcdEndpoints,
			Username:    cfg.AppSource.EtcdUsername,
			Password:    cfg.AppSource.EtcdPassword,
			DialTimeout: 5 * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("engine: failed to dial etcd app source: %w", err)
		}
		return updater.NewEtcdUpdater(client, cfg.AppSource.RemotePath), nil
	default:
		return updater.NewLocalFilesystemUpdater(cfg.AppSource.LocalPath), nil
	}
}

// Run applies opts as a single core.Option atop a fresh runtime, then
// blocks the way the teacher's run.go does: start the lifecycle, wait for
// an OS signal (Ctrl+C, kill) or an internal rt.Shutdown() call (e.g. a
// hosted service crashing), then stop with the configured timeout.
func Run(opts Options) error {
	rt := core.NewRuntime()
	if err := rt.Apply(New(opts)); err != nil {
		return err
	}
	if err := rt.Container.Build(); err != nil {
		return fmt.Errorf("engine: failed to build DI container: %w", err)
	}

	startCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := rt.Lifecycle.Start(startCtx, rt.Container); err != nil {
		return fmt.Errorf("engine: failed to start lifecycle: %w", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case <-quit:
	case <-rt.Done():
	}

	timeout := 5 * time.Second
	if opts.Config != nil && opts.Config.Server.ShutdownTimeout > 0 {
		timeout = opts.Config.Server.ShutdownTimeout
	}
	stopCtx, stopCancel := context.WithTimeout(context.Background(), timeout)
	defer stopCancel()
	return rt.Lifecycle.Stop(stopCtx)
}
