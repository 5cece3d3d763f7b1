package core

import (
	"reflect"
	"sync"
)

// FeatureCollection is a type-safe bag of build-time features, keyed by
// type — builders like the cron service stash themselves here.
type FeatureCollection struct {
	features sync.Map
}

// Set registers a feature, keyed by its own type.
func (fc *FeatureCollection) Set(feature any) {
	typ := reflect.TypeOf(feature)
	fc.features.Store(typ, feature)
}

// Get retrieves a feature by type.
func (fc *FeatureCollection) Get(typ reflect.Type) (any, bool) {
	return fc.features.Load(typ)
}

// GetFeature is a generic helper for fetching a feature off the Runtime.
func GetFeature[T any](rt *Runtime) T {
	var zero T
	// reflect.TypeOf(zero) is nil when T is an interface and zero is a nil
	// interface value, so go through (*T)(nil).Elem() instead.
	targetType := reflect.TypeOf((*T)(nil)).Elem()

	if val, ok := rt.Features.Get(targetType); ok {
		return val.(T)
	}
	return zero
}
