// Package resources groups the engine's database, cache, document-store,
// coordination, and object-storage connections into named Resource Groups
// (tenant config's "app_group" selects one by ID; apps with no group use
// "default"). Each underlying connection pool is built with the
// gocrud-app-style Builder -> Factory pattern (see database, redis,
// mongodb, etcd), generalized here so one process can host more than one
// independently-configured set of backing stores.
package resources

import (
	"context"
	"fmt"

	clientv3 "go.etcd.io/etcd/client/v3"
	"github.com/gocrud/mgo"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/gocrud/tenantengine/database"
	"github.com/gocrud/tenantengine/etcd"
	"github.com/gocrud/tenantengine/mongodb"
	"github.com/gocrud/tenantengine/redis"
)

// DefaultGroupID names the group an app resolves to when its config does
// not set app_group.
const DefaultGroupID = "default"

// Group bundles one resource group's connections. Any factory may be nil
// if the group's spec never configured that backend.
type Group struct {
	ID string

	databases *database.DatabaseFactory
	caches    *redis.RedisClientFactory
	documents *mongodb.MongoFactory
	etcd      *etcd.EtcdClientFactory
	objects   ObjectStore
}

// Database returns the named SQL connection, or nil if absent.
func (g *Group) Database(name string) *gorm.DB {
	if g.databases == nil {
		return nil
	}
	return g.databases.Get(name)
}

// Cache returns the named Redis client, or nil if absent.
func (g *Group) Cache(name string) *goredis.Client {
	if g.caches == nil {
		return nil
	}
	return g.caches.Get(name)
}

// Documents returns the named Mongo client, or nil if absent.
func (g *Group) Documents(name string) *mgo.Client {
	if g.documents == nil {
		return nil
	}
	return g.documents.Get(name)
}

// Etcd returns the named etcd client, or nil if absent.
func (g *Group) Etcd(name string) *clientv3.Client {
	if g.etcd == nil {
		return nil
	}
	return g.etcd.Get(name)
}

// Objects returns the group's object store, or nil if none was configured.
func (g *Group) Objects() ObjectStore {
	return g.objects
}

// Close releases every connection the group opened.
func (g *Group) Close(ctx context.Context) error {
	var errs []error
	if g.databases != nil {
		if err := g.databases.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if g.caches != nil {
		if err := g.caches.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if g.documents != nil {
		if err := g.documents.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if g.etcd != nil {
		if err := g.etcd.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("resources: errors closing group '%s': %v", g.ID, errs)
	}
	return nil
}

// Registry holds every Resource Group configured for the process.
type Registry struct {
	groups map[string]*Group
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{groups: make(map[string]*Group)}
}

// Get returns the group by ID, and whether it was found.
func (r *Registry) Get(id string) (*Group, bool) {
	g, ok := r.groups[id]
	return g, ok
}

// Resolve returns the group for id, falling back to the default group, and
// finally to an empty group if even "default" was never configured — a
// group with every factory nil, so callers degrade to "no such resource"
// errors instead of a nil-pointer panic.
func (r *Registry) Resolve(id string) *Group {
	if id == "" {
		id = DefaultGroupID
	}
	if g, ok := r.groups[id]; ok {
		return g
	}
	if g, ok := r.groups[DefaultGroupID]; ok {
		return g
	}
	return &Group{ID: id}
}

// Each visits every configured group.
func (r *Registry) Each(fn func(id string, g *Group)) {
	for id, g := range r.groups {
		fn(id, g)
	}
}

// Close releases every group's connections, collecting all errors.
func (r *Registry) Close(ctx context.Context) error {
	var errs []error
	for _, g := range r.groups {
		if err := g.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("resources: errors closing registry: %v", errs)
	}
	return nil
}
