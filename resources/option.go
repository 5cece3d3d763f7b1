package resources

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/gocrud/tenantengine/core"
	"github.com/gocrud/tenantengine/database"
	"github.com/gocrud/tenantengine/di"
	"github.com/gocrud/tenantengine/etcd"
	"github.com/gocrud/tenantengine/mongodb"
	"github.com/gocrud/tenantengine/redis"
)

// GroupOption configures a single Resource Group's builders.
type GroupOption func(*groupBuilder)

type groupBuilder struct {
	id       string
	dbB      *database.Builder
	cacheB   *redis.Builder
	docB     *mongodb.Builder
	etcdB    *etcd.Builder
	objects  ObjectStore
}

func newGroupBuilder(id string) *groupBuilder {
	return &groupBuilder{
		id:     id,
		dbB:    database.NewBuilder(),
		cacheB: redis.NewBuilder(),
		docB:   mongodb.NewBuilder(),
		etcdB:  etcd.NewBuilder(),
	}
}

// WithDatabase adds a named SQL connection to the group.
func WithDatabase(name string, dialector gorm.Dialector, opts ...func(*database.DatabaseOptions)) GroupOption {
	return func(b *groupBuilder) {
		var configure func(*database.DatabaseOptions)
		if len(opts) > 0 {
			configure = func(o *database.DatabaseOptions) {
				for _, opt := range opts {
					opt(o)
				}
			}
		}
		b.dbB.Add(name, dialector, configure)
	}
}

// WithCache adds a named Redis connection to the group.
func WithCache(name string, opts ...func(*redis.RedisClientOptions)) GroupOption {
	return func(b *groupBuilder) {
		var configure func(*redis.RedisClientOptions)
		if len(opts) > 0 {
			configure = func(o *redis.RedisClientOptions) {
				for _, opt := range opts {
					opt(o)
				}
			}
		}
		b.cacheB.AddClient(name, configure)
	}
}

// WithDocumentStore adds a named Mongo connection to the group.
func WithDocumentStore(name, uri string, opts ...func(*mongodb.MongoOptions)) GroupOption {
	return func(b *groupBuilder) {
		var configure func(*mongodb.MongoOptions)
		if len(opts) > 0 {
			configure = func(o *mongodb.MongoOptions) {
				for _, opt := range opts {
					opt(o)
				}
			}
		}
		b.docB.Add(name, uri, configure)
	}
}

// WithEtcd adds a named etcd connection to the group.
func WithEtcd(name string, opts ...func(*etcd.EtcdClientOptions)) GroupOption {
	return func(b *groupBuilder) {
		var configure func(*etcd.EtcdClientOptions)
		if len(opts) > 0 {
			configure = func(o *etcd.EtcdClientOptions) {
				for _, opt := range opts {
					opt(o)
				}
			}
		}
		b.etcdB.AddClient(name, configure)
	}
}

// WithObjectStore attaches an object store (used by the zipped-config
// updater) to the group.
func WithObjectStore(store ObjectStore) GroupOption {
	return func(b *groupBuilder) {
		b.objects = store
	}
}

// GroupSpec names one Resource Group and the connections it should open.
type GroupSpec struct {
	ID      string
	Options []GroupOption
}

// Spec is sugar for constructing a GroupSpec.
func Spec(id string, opts ...GroupOption) GroupSpec {
	return GroupSpec{ID: id, Options: opts}
}

// New builds every configured group eagerly, registers the resulting
// *Registry into the DI container, and schedules its shutdown. Matching
// the teacher's database/redis/etcd New() options, failures during any
// group's construction abort bootstrap rather than starting half-wired.
func New(specs ...GroupSpec) core.Option {
	return func(rt *core.Runtime) error {
		registry := NewRegistry()

		for _, spec := range specs {
			id := spec.ID
			if id == "" {
				id = DefaultGroupID
			}

			gb := newGroupBuilder(id)
			for _, opt := range spec.Options {
				opt(gb)
			}

			group, err := gb.build()
			if err != nil {
				return fmt.Errorf("resources: failed to build group '%s': %w", id, err)
			}
			registry.groups[id] = group
		}

		if err := rt.Provide(registry, di.WithValue(registry)); err != nil {
			return err
		}

		rt.Lifecycle.OnStop(func(ctx context.Context) error {
			return registry.Close(ctx)
		})

		return nil
	}
}

func (b *groupBuilder) build() (*Group, error) {
	group := &Group{ID: b.id, objects: b.objects}

	dbFactory, err := b.dbB.Build(nil)
	if err != nil {
		return nil, err
	}
	group.databases = dbFactory

	cacheFactory, err := b.cacheB.Build(nil)
	if err != nil {
		return nil, err
	}
	group.caches = cacheFactory

	docFactory, err := b.docB.Build(nil)
	if err != nil {
		return nil, err
	}
	group.documents = docFactory

	etcdFactory, err := b.etcdB.Build(nil)
	if err != nil {
		return nil, err
	}
	group.etcd = etcdFactory

	return group, nil
}
