package etcd

import (
	"fmt"

	"github.com/gocrud/tenantengine/logging"
)

// Builder accumulates EtcdClientOptions before Build dials the clients.
type Builder struct {
	configs map[string]EtcdClientOptions
	errors  []error
}

func NewBuilder() *Builder {
	return &Builder{
		configs: make(map[string]EtcdClientOptions),
		errors:  make([]error, 0),
	}
}

func (b *Builder) AddClient(name string, configure func(*EtcdClientOptions)) *Builder {
	if _, exists := b.configs[name]; exists {
		b.errors = append(b.errors, fmt.Errorf("etcd client '%s' already configured", name))
		return b
	}

	opts := NewDefaultOptions(name)
	if configure != nil {
		configure(opts)
	}

	if err := opts.Validate(); err != nil {
		b.errors = append(b.errors, fmt.Errorf("invalid etcd configuration for '%s': %w", name, err))
		return b
	}

	b.configs[name] = *opts
	return b
}

func (b *Builder) Build(logger logging.Logger) (*EtcdClientFactory, error) {
	if len(b.errors) > 0 {
		return nil, fmt.Errorf("etcd configuration errors: %v", b.errors)
	}
	if len(b.configs) == 0 {
		return nil, nil
	}

	factory := NewEtcdClientFactory()
	for _, opts := range b.configs {
		if err := factory.Register(opts); err != nil {
			return nil, fmt.Errorf("failed to register etcd client '%s': %w", opts.Name, err)
		}
		if logger != nil {
			logger.Info("etcd client registered",
				logging.Field{Key: "name", Value: opts.Name},
				logging.Field{Key: "endpoints", Value: fmt.Sprintf("%v", opts.Endpoints)})
		}
	}

	return factory, nil
}
