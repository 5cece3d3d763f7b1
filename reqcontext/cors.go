package reqcontext

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gocrud/tenantengine/appconfig"
	"github.com/gocrud/tenantengine/router"
)

// NewCORSMiddleware returns the standard per-app CORS middleware (§6): it
// honors the matched app's AllowedOrigin/AllowedMethods/AllowedHeaders/
// AllowCredentials/CacheExpiration/ExposedHeaders, set once per App and
// run ahead of every endpoint via router.New's global middleware slot, so
// no Preparer has to remember to attach it.
func NewCORSMiddleware() router.Middleware {
	return func(rc router.RequestContext) error {
		c, ok := rc.(*Context)
		if !ok {
			return rc.Next()
		}
		applyCORSHeaders(c)
		return c.Next()
	}
}

func applyCORSHeaders(c *Context) {
	if c.App == nil || c.App.CorsOptions == nil {
		return
	}
	opts := c.App.CorsOptions
	if !opts.Enabled || opts.AllowedOrigin == "" || opts.AllowedOrigin == "none" {
		return
	}

	origin := c.Request.Header.Get("Origin")
	if origin == "" {
		return
	}

	allowOrigin, allowed := resolveAllowedOrigin(c.App, opts, origin)
	if !allowed {
		return
	}

	header := c.Response.Header()
	header.Set("Access-Control-Allow-Origin", allowOrigin)
	header.Add("Vary", "Origin")

	if opts.AllowCredentials {
		header.Set("Access-Control-Allow-Credentials", "true")
	}
	if len(opts.ExposedHeaders) > 0 {
		header.Set("Access-Control-Expose-Headers", strings.Join(opts.ExposedHeaders, ", "))
	}

	if c.Request.Method != http.MethodOptions {
		return
	}

	if len(opts.AllowedMethods) > 0 {
		header.Set("Access-Control-Allow-Methods", strings.Join(opts.AllowedMethods, ", "))
	}
	if len(opts.AllowedHeaders) > 0 {
		header.Set("Access-Control-Allow-Headers", strings.Join(opts.AllowedHeaders, ", "))
	}
	if opts.CacheExpiration > 0 {
		header.Set("Access-Control-Max-Age", strconv.Itoa(int(opts.CacheExpiration.Seconds())))
	}
}

// resolveAllowedOrigin decides whether origin may be reflected back for
// the given mode, returning the header value to send.
//
// "custom" has no host-specific hook at this layer to defer to, so it
// falls back to the same allow-list semantics as "any" — the closest
// standard behavior a framework-level middleware can offer.
func resolveAllowedOrigin(app *appconfig.AppConfig, opts *appconfig.CorsOptions, origin string) (string, bool) {
	switch opts.AllowedOrigin {
	case "all":
		if opts.AllowCredentials {
			// "*" is invalid alongside Allow-Credentials; reflect instead.
			return origin, true
		}
		return "*", true
	case "any", "custom":
		if containsFold(opts.AllowedOriginAny, origin) {
			return origin, true
		}
		return "", false
	case "origin_based":
		if containsFold(app.RequestHosts(), originHost(origin)) {
			return origin, true
		}
		return "", false
	default:
		return "", false
	}
}

func originHost(origin string) string {
	u, err := url.Parse(origin)
	if err != nil {
		return origin
	}
	return u.Hostname()
}

func containsFold(list []string, want string) bool {
	for _, v := range list {
		if strings.EqualFold(v, want) {
			return true
		}
	}
	return false
}
