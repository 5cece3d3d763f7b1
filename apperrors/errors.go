// Package apperrors implements the framework's closed error taxonomy:
// every user-facing failure is a Wrappable with a base Kind that carries a
// pre-assigned HTTP status, an optional original cause, an optional wrapped
// inner error, an extras map, and an optionally captured caller stack.
package apperrors

import (
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"sync/atomic"
)

// Kind is one entry in the closed base-kind taxonomy.
type Kind string

const (
	InvalidParameter           Kind = "invalid_parameter"
	BadRequest                 Kind = "bad_request"
	AppNotFound                Kind = "app_not_found"
	EnvironmentNotFound        Kind = "environment_not_found"
	RouteNotFound               Kind = "route_not_found"
	DatabaseConstraintViolation Kind = "database_constraint_violation"
	Unauthorized                Kind = "unauthorized"
	Forbidden                   Kind = "forbidden"
	NotFound                    Kind = "not_found"
	Timeout                     Kind = "timeout"
	NotModified                 Kind = "not_modified"
	APIRateLimit                Kind = "api_rate_limit"
	InvalidAppConfig            Kind = "invalid_app_config"
	Internal                    Kind = "internal"
	InvalidEngineConfig         Kind = "invalid_engine_config"
	Database                    Kind = "database"
	Cache                       Kind = "cache"
	OSSUnavailable              Kind = "oss_unavailable"
)

var statusByKind = map[Kind]int{
	InvalidParameter:            http.StatusBadRequest,
	BadRequest:                  http.StatusBadRequest,
	AppNotFound:                 http.StatusBadRequest,
	EnvironmentNotFound:         http.StatusBadRequest,
	RouteNotFound:               http.StatusBadRequest,
	DatabaseConstraintViolation: http.StatusBadRequest,
	Unauthorized:                http.StatusUnauthorized,
	Forbidden:                   http.StatusForbidden,
	NotFound:                    http.StatusNotFound,
	Timeout:                     http.StatusRequestTimeout,
	NotModified:                 http.StatusNotModified,
	APIRateLimit:                http.StatusTooManyRequests,
	InvalidAppConfig:            http.StatusExpectationFailed,
	Internal:                    http.StatusInternalServerError,
	InvalidEngineConfig:         http.StatusInternalServerError,
	Database:                    http.StatusInternalServerError,
	Cache:                       http.StatusInternalServerError,
	OSSUnavailable:              http.StatusInternalServerError,
}

// HTTPStatus returns the HTTP status pre-assigned to a Kind, defaulting to 500
// for an unrecognized kind (should not happen for a closed taxonomy).
func (k Kind) HTTPStatus() int {
	if s, ok := statusByKind[k]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// captureCaller is a process-wide flag set once at startup (RUNTIME_VERBOSE
// containing "error_caller"). It is the only mutable global state besides
// the logging bootstrap, per the framework's "global state" design note.
var captureCaller atomic.Bool

// SetCaptureCaller enables or disables caller-stack capture for every error
// created afterwards. Intended to be called once during engine construction.
func SetCaptureCaller(enabled bool) {
	captureCaller.Store(enabled)
}

// CaptureCallerEnabled reports the current state of the caller-capture flag.
func CaptureCallerEnabled() bool {
	return captureCaller.Load()
}

// Wrappable is the shape every user-facing error conforms to.
type Wrappable struct {
	base     Kind
	original error // the cause that triggered this error, if any
	inner    *Wrappable
	extras   map[string]any
	stack    string
}

// Error implements the error interface.
func (e *Wrappable) Error() string {
	var b strings.Builder
	b.WriteString(string(e.base))
	if e.original != nil {
		fmt.Fprintf(&b, "(%s)", e.original.Error())
	}
	if e.inner != nil {
		fmt.Fprintf(&b, ": %s", e.inner.Error())
	}
	return b.String()
}

// Unwrap exposes the wrapped inner error to errors.Is/errors.As.
func (e *Wrappable) Unwrap() error {
	if e.inner == nil {
		return nil
	}
	return e.inner
}

// Base returns the error's base kind.
func (e *Wrappable) Base() Kind { return e.base }

// Original returns the original cause, if any.
func (e *Wrappable) Original() error { return e.original }

// Inner returns the wrapped framework error, if any.
func (e *Wrappable) Inner() *Wrappable { return e.inner }

// Extras returns the merged extra key/value map (never nil).
func (e *Wrappable) Extras() map[string]any {
	if e.extras == nil {
		return map[string]any{}
	}
	return e.extras
}

// Stack returns the captured caller stack, empty if capture was disabled.
func (e *Wrappable) Stack() string { return e.stack }

// HTTPStatus returns the HTTP status derived from the base kind.
func (e *Wrappable) HTTPStatus() int { return e.base.HTTPStatus() }

// WithExtra returns a copy of e with an additional extra key/value set.
func (e *Wrappable) WithExtra(key string, value any) *Wrappable {
	n := *e
	n.extras = mergeExtras(e.extras, map[string]any{key: value})
	return &n
}

// New creates a fresh Wrappable of the given base kind.
func New(base Kind, original error) *Wrappable {
	e := &Wrappable{base: base, original: original}
	if captureCaller.Load() {
		e.stack = captureStack(2)
	}
	return e
}

// Wrap creates a Wrappable of the given base kind around an existing
// framework error, chaining it as the inner error.
func Wrap(base Kind, inner *Wrappable) *Wrappable {
	e := &Wrappable{base: base, inner: inner}
	if inner != nil {
		e.extras = mergeExtras(e.extras, inner.extras)
	}
	if captureCaller.Load() {
		e.stack = captureStack(2)
	}
	return e
}

// ConvertOrWrap converts an arbitrary error into a Wrappable. If err is
// already a *Wrappable it is returned unchanged (idempotent: ConvertOrWrap
// twice equals ConvertOrWrap once, same base, same chain length). Otherwise
// it is wrapped as an Internal error with the original cause preserved.
func ConvertOrWrap(err error) *Wrappable {
	if err == nil {
		return nil
	}
	if w, ok := err.(*Wrappable); ok {
		return w
	}
	e := &Wrappable{base: Internal, original: err}
	if captureCaller.Load() {
		e.stack = captureStack(2)
	}
	return e
}

func mergeExtras(dst, src map[string]any) map[string]any {
	if dst == nil && src == nil {
		return nil
	}
	out := make(map[string]any, len(dst)+len(src))
	for k, v := range dst {
		out[k] = v
	}
	for k, v := range src {
		out[k] = v
	}
	return out
}

func captureStack(skip int) string {
	const depth = 32
	pcs := make([]uintptr, depth)
	n := runtime.Callers(skip+1, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	var b strings.Builder
	for {
		frame, more := frames.Next()
		fmt.Fprintf(&b, "%s\n\t%s:%d\n", frame.Function, frame.File, frame.Line)
		if !more {
			break
		}
	}
	return b.String()
}

// Constructors for the taxonomy's common members, mirroring how the teacher
// repo exposes small factory helpers rather than requiring call sites to
// spell out New(apperrors.X, err) everywhere.

func NewInvalidParameter(err error) *Wrappable    { return New(InvalidParameter, err) }
func NewBadRequest(err error) *Wrappable          { return New(BadRequest, err) }
func NewAppNotFound(err error) *Wrappable         { return New(AppNotFound, err) }
func NewEnvironmentNotFound(err error) *Wrappable { return New(EnvironmentNotFound, err) }
func NewRouteNotFound(err error) *Wrappable       { return New(RouteNotFound, err) }
func NewUnauthorized(err error) *Wrappable        { return New(Unauthorized, err) }
func NewForbidden(err error) *Wrappable           { return New(Forbidden, err) }
func NewNotFound(err error) *Wrappable            { return New(NotFound, err) }
func NewTimeout(err error) *Wrappable             { return New(Timeout, err) }
func NewInternal(err error) *Wrappable            { return New(Internal, err) }
func NewDatabase(err error) *Wrappable            { return New(Database, err) }
func NewCache(err error) *Wrappable               { return New(Cache, err) }
func NewInvalidAppConfig(err error) *Wrappable    { return New(InvalidAppConfig, err) }
func NewInvalidEngineConfig(err error) *Wrappable { return New(InvalidEngineConfig, err) }
func NewNotModified(err error) *Wrappable         { return New(NotModified, err) }
