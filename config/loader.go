package config

import (
	"context"
	"strings"

	"github.com/gocrud/tenantengine/core"
	"github.com/gocrud/tenantengine/di"
)

// LoadOptions configures how engine-level configuration is assembled.
type LoadOptions struct {
	HotReload  bool
	EnvPrefix  string
	Optional   bool
}

type LoadOption func(*LoadOptions)

// WithHotReload is accepted for forward-compatibility with a future file
// watcher; local filesystem config hot-reload for the app registry itself
// is handled by the registry/updater packages, not this loader.
func WithHotReload() LoadOption {
	return func(o *LoadOptions) {
		o.HotReload = true
	}
}

// WithEnvPrefix layers environment variables with the given prefix over
// the file source, last-wins.
func WithEnvPrefix(prefix string) LoadOption {
	return func(o *LoadOptions) {
		o.EnvPrefix = prefix
	}
}

// WithOptionalFile tolerates a missing config file instead of failing
// bootstrap (useful for a cmd/ entrypoint that also accepts flags/env).
func WithOptionalFile() LoadOption {
	return func(o *LoadOptions) {
		o.Optional = true
	}
}

// Load builds process configuration from a JSON or YAML file plus
// environment variables, and registers the result into the DI container
// as Configuration.
func Load(path string, opts ...LoadOption) core.Option {
	return func(rt *core.Runtime) error {
		options := &LoadOptions{}
		for _, opt := range opts {
			opt(options)
		}

		builder := NewConfigurationBuilder()
		if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
			builder.AddYamlFile(path, options.Optional)
		} else {
			builder.AddJsonFile(path, options.Optional)
		}
		if options.EnvPrefix != "" {
			builder.AddEnvironmentVariables(options.EnvPrefix)
		}

		cfg, err := builder.Build()
		if err != nil {
			return err
		}

		di.Register[Configuration](rt.Container, di.WithValue(cfg))

		if options.HotReload {
			rt.Lifecycle.OnStart(func(ctx context.Context) error {
				return nil
			})
		}

		return nil
	}
}

// Bind resolves a config section into a T and registers *T as a DI
// singleton (e.g. config.Bind[EngineConfig](rt, "engine")).
func Bind[T any](rt *core.Runtime, section string) error {
	return rt.Invoke(func(cfg Configuration) error {
		var settings T
		if err := cfg.Bind(section, &settings); err != nil {
			return err
		}
		return rt.Provide(&settings)
	})
}
