package reqcontext

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gocrud/tenantengine/appconfig"
	"github.com/gocrud/tenantengine/router"
)

func newCORSEndpoint() *router.Endpoint {
	return &router.Endpoint{
		Name: "cors",
		Invocation: router.NewRequestInvocation(func(rc router.RequestContext) error {
			c := rc.(*Context)
			return c.WriteJSON(http.StatusOK, map[string]string{"ok": "ok"})
		}),
		Middlewares: []router.Middleware{NewCORSMiddleware()},
	}
}

func newCORSRequest(t *testing.T, method, origin string, app *appconfig.AppConfig) (*Context, *httptest.ResponseRecorder) {
	ep := newCORSEndpoint()
	route := &router.CachedRoute{Endpoint: ep, Chain: ep.Middlewares}

	req := httptest.NewRequest(method, "/cors", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	rec := httptest.NewRecorder()

	ctx := New(rec, req, route, app, nil, newTestGenerator(t), nil, 0)
	return ctx, rec
}

func TestCORSMiddlewareAllowAllReflectsWildcard(t *testing.T) {
	app := &appconfig.AppConfig{
		CorsOptions: &appconfig.CorsOptions{
			Enabled:       true,
			AllowedOrigin: "all",
		},
	}

	ctx, rec := newCORSRequest(t, http.MethodGet, "https://example.com", app)
	require.NoError(t, ctx.Next())

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSMiddlewareAllowAllWithCredentialsReflectsOrigin(t *testing.T) {
	app := &appconfig.AppConfig{
		CorsOptions: &appconfig.CorsOptions{
			Enabled:          true,
			AllowedOrigin:    "all",
			AllowCredentials: true,
		},
	}

	ctx, rec := newCORSRequest(t, http.MethodGet, "https://example.com", app)
	require.NoError(t, ctx.Next())

	assert.Equal(t, "https://example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORSMiddlewareAnyRejectsUnlistedOrigin(t *testing.T) {
	app := &appconfig.AppConfig{
		CorsOptions: &appconfig.CorsOptions{
			Enabled:          true,
			AllowedOrigin:    "any",
			AllowedOriginAny: []string{"https://allowed.example.com"},
		},
	}

	ctx, rec := newCORSRequest(t, http.MethodGet, "https://not-allowed.example.com", app)
	require.NoError(t, ctx.Next())

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSMiddlewareAnyAllowsListedOrigin(t *testing.T) {
	app := &appconfig.AppConfig{
		CorsOptions: &appconfig.CorsOptions{
			Enabled:          true,
			AllowedOrigin:    "any",
			AllowedOriginAny: []string{"https://allowed.example.com"},
		},
	}

	ctx, rec := newCORSRequest(t, http.MethodGet, "https://allowed.example.com", app)
	require.NoError(t, ctx.Next())

	assert.Equal(t, "https://allowed.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSMiddlewareOriginBasedMatchesAppHosts(t *testing.T) {
	app := &appconfig.AppConfig{
		Hosts: []appconfig.Host{{Host: "tenant.example.com", Usage: appconfig.RequestUsage}},
		CorsOptions: &appconfig.CorsOptions{
			Enabled:       true,
			AllowedOrigin: "origin_based",
		},
	}

	ctx, rec := newCORSRequest(t, http.MethodGet, "https://tenant.example.com", app)
	require.NoError(t, ctx.Next())

	assert.Equal(t, "https://tenant.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSMiddlewarePreflightSetsMethodsHeadersAndMaxAge(t *testing.T) {
	app := &appconfig.AppConfig{
		CorsOptions: &appconfig.CorsOptions{
			Enabled:         true,
			AllowedOrigin:   "all",
			AllowedMethods:  []string{"GET", "POST"},
			AllowedHeaders:  []string{"Content-Type"},
			CacheExpiration: 10 * time.Minute,
			ExposedHeaders:  []string{"X-Trace-Id"},
		},
	}

	ctx, rec := newCORSRequest(t, http.MethodOptions, "https://example.com", app)
	require.NoError(t, ctx.Next())

	assert.Equal(t, "GET, POST", rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type", rec.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "600", rec.Header().Get("Access-Control-Max-Age"))
	assert.Equal(t, "X-Trace-Id", rec.Header().Get("Access-Control-Expose-Headers"))
}

func TestCORSMiddlewareDisabledSetsNoHeaders(t *testing.T) {
	app := &appconfig.AppConfig{
		CorsOptions: &appconfig.CorsOptions{
			Enabled:       false,
			AllowedOrigin: "all",
		},
	}

	ctx, rec := newCORSRequest(t, http.MethodGet, "https://example.com", app)
	require.NoError(t, ctx.Next())

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
