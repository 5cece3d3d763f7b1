// Package router implements the per-app trie router: path compilation,
// GET->HEAD shadow-route synthesis, and per-route middleware chain
// composition. It never nests middleware as closures; the composed chain
// is a plain slice walked by a cursor the request context owns (§4.3),
// mirroring the teacher's preference for explicit state over hidden
// call-stack recursion (see core.LifecycleEvents' hook slices).
package router

import "context"

// RequestContext is the minimal surface a middleware or invocation needs
// from the request-scoped context (reqcontext.Context implements it). The
// interface lives here, not in reqcontext, so router has no dependency on
// the heavier request-context package.
type RequestContext interface {
	context.Context
	Next() error
}

// RequestHandler answers a normal HTTP request.
type RequestHandler func(ctx RequestContext) error

// WebSocketHandler answers a request whose endpoint speaks WebSocket; it is
// invoked once per lifecycle event (text, binary, ping, pong, close) by the
// dispatcher, always with the same Context.
type WebSocketHandler func(ctx RequestContext) error

// Middleware intercepts a request before (and, if it calls ctx.Next(),
// after) the endpoint invocation runs.
type Middleware func(ctx RequestContext) error

// InvocationKind tags which shape an Endpoint's Invocation takes.
type InvocationKind int

const (
	RequestInvocation InvocationKind = iota
	WebSocketInvocation
)

// Invocation is the tagged union of the two things an Endpoint can run.
type Invocation struct {
	Kind      InvocationKind
	Handler   RequestHandler
	WebSocket WebSocketHandler
}

// NewRequestInvocation wraps a plain request handler.
func NewRequestInvocation(h RequestHandler) Invocation {
	return Invocation{Kind: RequestInvocation, Handler: h}
}

// NewWebSocketInvocation wraps a WebSocket lifecycle handler.
func NewWebSocketInvocation(h WebSocketHandler) Invocation {
	return Invocation{Kind: WebSocketInvocation, WebSocket: h}
}

// Route is one (method, path) pattern an Endpoint answers to.
type Route struct {
	Method string
	Path   string
}

// Endpoint is a named group of routes sharing one invocation and one
// ordered list of endpoint-scoped middlewares.
type Endpoint struct {
	Name        string
	Routes      []Route
	Invocation  Invocation
	Middlewares []Middleware

	// ShadowRouteMethods lists extra methods this endpoint's middlewares
	// want synthesized against the same paths, answered by an
	// always-200-OK invocation that still traverses the chain (§4.2).
	ShadowRouteMethods []string
}

// CachedRoute is what a trie terminal resolves to: the endpoint plus the
// middleware chain to run before it, precomposed at registration time so
// dispatch never re-walks Endpoint.Middlewares.
type CachedRoute struct {
	Endpoint    *Endpoint
	Chain       []Middleware
	IsShadow    bool
	ShadowIsGet bool // true for the synthesized 200-OK HEAD shadow specifically
}
