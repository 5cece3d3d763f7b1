// Package reqcontext builds the per-request Context described in §4.3: the
// matched endpoint and app, a request-scoped structured logger, a typed
// value store, and the middleware cursor that drives dispatch without
// nested closures.
package reqcontext

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gocrud/tenantengine/apperrors"
	"github.com/gocrud/tenantengine/appconfig"
	"github.com/gocrud/tenantengine/logging"
	"github.com/gocrud/tenantengine/resources"
	"github.com/gocrud/tenantengine/router"
	"github.com/gocrud/tenantengine/snowflake"
)

// Context is the request-scoped object threaded through an endpoint's
// middleware chain and invocation. It satisfies router.RequestContext.
type Context struct {
	context.Context

	Request  *http.Request
	Response http.ResponseWriter

	Endpoint *router.Endpoint
	Route    *router.CachedRoute
	App      *appconfig.AppConfig
	Group    *resources.Group
	Params   map[string]string

	Logger    logging.Logger
	TraceID   string
	StartTime time.Time
	UserID    string

	// DiscardBody is set by the HEAD->GET fallback (§4.2): the endpoint
	// still runs, but nothing is written to Response's body.
	DiscardBody bool

	Processor RequestProcessor

	store   map[string]any
	storeMu sync.RWMutex

	chain      []router.Middleware
	cursor     int
	status     int
	written    bool
	lastErr    error
	cachedBody []byte
}

// New constructs a Context for one matched request. The trace ID is a
// freshly generated Snowflake rendered in base-36, matching the teacher's
// compact correlation-ID convention.
func New(w http.ResponseWriter, r *http.Request, route *router.CachedRoute, app *appconfig.AppConfig, group *resources.Group, gen *snowflake.Generator, baseLogger logging.Logger, timeOffset time.Duration) *Context {
	traceID := snowflake.Base36(gen.Generate())

	appID := "unknown"
	if app != nil {
		appID = app.AppID
	}

	logger := baseLogger
	if logger != nil {
		logger = logger.WithCategory(appID + ".request." + traceID)
	}

	return &Context{
		Context:   r.Context(),
		Request:   r,
		Response:  w,
		Endpoint:  route.Endpoint,
		Route:     route,
		App:       app,
		Group:     group,
		Params:    map[string]string{},
		Logger:    logger,
		TraceID:   traceID,
		StartTime: time.Now().Add(timeOffset),
		store:     make(map[string]any),
		chain:     route.Chain,
		cursor:    -1,
	}
}

// Set stores a typed value under key for the lifetime of the request.
func (c *Context) Set(key string, value any) {
	c.storeMu.Lock()
	defer c.storeMu.Unlock()
	c.store[key] = value
}

// Value returns the stored value for key, or nil.
func (c *Context) Value(key any) any {
	if s, ok := key.(string); ok {
		c.storeMu.RLock()
		defer c.storeMu.RUnlock()
		if v, ok := c.store[s]; ok {
			return v
		}
	}
	return c.Context.Value(key)
}

// GetValue is the typed-store accessor used by handler code; it reports
// whether a value was stored under key at all.
func GetValue[T any](c *Context, key string) (T, bool) {
	c.storeMu.RLock()
	defer c.storeMu.RUnlock()
	var zero T
	raw, ok := c.store[key]
	if !ok {
		return zero, false
	}
	v, ok := raw.(T)
	return v, ok
}

// Next drives the middleware cursor described in §4.3: it increments i,
// then either invokes middleware i, invokes the endpoint, or returns the
// last recorded response if called again past the end of the chain.
func (c *Context) Next() error {
	c.cursor++

	switch {
	case c.cursor < len(c.chain):
		err := c.chain[c.cursor](c)
		c.lastErr = err
		return err

	case c.cursor == len(c.chain):
		err := c.invokeEndpoint()
		c.lastErr = err
		return err

	default:
		return c.lastErr
	}
}

func (c *Context) invokeEndpoint() error {
	if c.Route.IsShadow {
		c.WriteStatus(http.StatusOK)
		return nil
	}

	inv := c.Endpoint.Invocation
	switch inv.Kind {
	case router.RequestInvocation:
		if inv.Handler == nil {
			return apperrors.NewInternal(nil)
		}
		if c.DiscardBody {
			original := c.Response
			c.Response = discardWriter{ResponseWriter: original}
			defer func() { c.Response = original }()
		}
		return inv.Handler(c)
	case router.WebSocketInvocation:
		if inv.WebSocket == nil {
			return apperrors.NewInternal(nil)
		}
		return c.serveWebSocket()
	default:
		return apperrors.NewInternal(nil)
	}
}

// WriteStatus records the response status without a body, used by the
// synthesized HEAD shadow and by discard-body dispatch.
func (c *Context) WriteStatus(status int) {
	if c.written {
		return
	}
	c.status = status
	c.written = true
	c.Response.WriteHeader(status)
}

// Status returns the recorded response status, or 0 if nothing was
// written yet.
func (c *Context) Status() int {
	return c.status
}
