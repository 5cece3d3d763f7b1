package router

import (
	"fmt"
	"strings"

	"github.com/gocrud/tenantengine/apperrors"
)

// node is one level of the method+path trie. literalChildren indexes
// literal segments directly; paramChild and catchAllChild are at most one
// each per node, matching the "no ambiguous siblings" route-compilation
// contract.
type node struct {
	literalChildren map[string]*node
	paramChild      *node
	paramName       string
	catchAllChild   *node
	terminal        *CachedRoute
}

func newNode() *node {
	return &node{literalChildren: make(map[string]*node)}
}

// Router is a per-app trie over (method, path) keyed by method as the
// trie's root selector, then path components.
type Router struct {
	roots     map[string]*node // method -> trie root
	names     map[string]bool  // endpoint names already registered
	endpoints []*Endpoint
	global    []Middleware // run ahead of every endpoint's own middlewares
}

// New creates an empty router. Any global middlewares run first in every
// registered endpoint's chain, ahead of the endpoint's own middlewares —
// this is how framework-wide concerns like CORS get applied without every
// caller of Register having to know about them.
func New(global ...Middleware) *Router {
	return &Router{
		roots:  make(map[string]*node),
		names:  make(map[string]bool),
		global: global,
	}
}

// Register compiles every route of ep into the trie, synthesizes any
// shadow routes it implies, and records ep for later listing/reload diffs.
// Registering two endpoints with the same name returns a forbidden error
// (§8 "Endpoint-name uniqueness").
func (r *Router) Register(ep *Endpoint) error {
	if ep.Name == "" {
		return apperrors.NewBadRequest(fmt.Errorf("router: endpoint name is required"))
	}
	if r.names[ep.Name] {
		return apperrors.New(apperrors.Forbidden, fmt.Errorf("router: endpoint %q already registered", ep.Name))
	}

	chain := make([]Middleware, 0, len(r.global)+len(ep.Middlewares))
	chain = append(chain, r.global...)
	chain = append(chain, ep.Middlewares...)

	for _, route := range ep.Routes {
		components, err := compilePath(route.Path)
		if err != nil {
			return apperrors.NewInvalidParameter(err)
		}

		method := strings.ToUpper(route.Method)
		if err := r.insert(method, components, &CachedRoute{Endpoint: ep, Chain: chain}); err != nil {
			return err
		}

		if method == "GET" && isLiteralOnly(components) {
			shadow := &CachedRoute{Endpoint: ep, Chain: nil, IsShadow: true, ShadowIsGet: true}
			// A user-registered HEAD terminal on the same path wins; the
			// shadow is best-effort and silently skipped on conflict.
			_ = r.insert("HEAD", components, shadow)
		}

		for _, shadowMethod := range ep.ShadowRouteMethods {
			shadowMethod = strings.ToUpper(shadowMethod)
			shadow := &CachedRoute{Endpoint: ep, Chain: chain, IsShadow: true}
			_ = r.insert(shadowMethod, components, shadow)
		}
	}

	r.names[ep.Name] = true
	r.endpoints = append(r.endpoints, ep)
	return nil
}

func (r *Router) insert(method string, components []pathComponent, route *CachedRoute) error {
	root, ok := r.roots[method]
	if !ok {
		root = newNode()
		r.roots[method] = root
	}

	current := root
	for _, c := range components {
		switch c.kind {
		case literalComponent:
			child, ok := current.literalChildren[c.value]
			if !ok {
				child = newNode()
				current.literalChildren[c.value] = child
			}
			current = child
		case paramComponent:
			if current.paramChild == nil {
				current.paramChild = newNode()
				current.paramName = c.value
			}
			current = current.paramChild
		case catchAllComponent:
			if current.catchAllChild == nil {
				current.catchAllChild = newNode()
			}
			current = current.catchAllChild
		}
	}

	if current.terminal != nil && !route.IsShadow {
		return apperrors.New(apperrors.Forbidden,
			fmt.Errorf("router: duplicate route for method %q", method))
	}
	if current.terminal == nil {
		current.terminal = route
	}
	return nil
}

// Lookup finds the terminal matching method+path, extracting any :param
// and catch-all values along the way.
func (r *Router) Lookup(method, path string) (*CachedRoute, map[string]string, bool) {
	root, ok := r.roots[strings.ToUpper(method)]
	if !ok {
		return nil, nil, false
	}

	segments := splitRequestPath(path)
	params := make(map[string]string)

	current := root
	for i := 0; i < len(segments); i++ {
		seg := segments[i]

		if child, ok := current.literalChildren[seg]; ok {
			current = child
			continue
		}
		if current.paramChild != nil {
			params[current.paramName] = seg
			current = current.paramChild
			continue
		}
		if current.catchAllChild != nil {
			params["**"] = strings.Join(segments[i:], pathSeparator)
			current = current.catchAllChild
			break
		}
		return nil, nil, false
	}

	if current.terminal == nil {
		return nil, nil, false
	}
	return current.terminal, params, true
}

// LookupWithHeadFallback implements §4.2's HEAD->GET fallback: a HEAD
// request first tries a HEAD terminal (including synthesized shadows);
// failing that, it falls back to the GET terminal and reports that the
// caller must discard the response body.
func (r *Router) LookupWithHeadFallback(method, path string) (route *CachedRoute, params map[string]string, discardBody bool, ok bool) {
	route, params, ok = r.Lookup(method, path)
	if ok || !strings.EqualFold(method, "HEAD") {
		return route, params, false, ok
	}

	route, params, ok = r.Lookup("GET", path)
	return route, params, ok, ok
}

// Endpoints returns every endpoint registered so far, in registration order.
func (r *Router) Endpoints() []*Endpoint {
	return append([]*Endpoint(nil), r.endpoints...)
}
