// Package enginehttp is the HTTP transport binding every other module
// answers through: a single gin.Engine with one catch-all route per
// method, which detects the tenant, looks up its router, and runs the
// matched endpoint's middleware chain via reqcontext.Context.Next. Gin's
// own mux is never used beyond that one mount point — the trie in
// router.Router does all per-app routing, per the teacher's Host pattern
// in web/builder.go generalized from "resolve one controller" to
// "resolve one tenant per request".
package enginehttp

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gocrud/tenantengine/apperrors"
	"github.com/gocrud/tenantengine/detect"
	"github.com/gocrud/tenantengine/logging"
	"github.com/gocrud/tenantengine/registry"
	"github.com/gocrud/tenantengine/reqcontext"
	"github.com/gocrud/tenantengine/snowflake"
)

var catchAllMethods = []string{
	http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
	http.MethodPatch, http.MethodDelete, http.MethodOptions,
}

// Config configures a Responder's binding and limits.
type Config struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
	BodyLimitBytes  int64
}

// GeneratorSource lazily hands back the Snowflake generator a dispatching
// request should stamp its trace ID with. It is satisfied structurally by
// *serviceregister.Register, whose Generator() method returns nil until the
// register has leased a node ID on Lifecycle start — resolving through this
// interface at request time, rather than capturing *snowflake.Generator at
// construction, is what keeps the Responder from baking in that nil.
type GeneratorSource interface {
	Generator() *snowflake.Generator
}

// Responder is the engine's HostedService-shaped HTTP front door.
type Responder struct {
	cfg    Config
	engine *gin.Engine
	server *http.Server

	Registry  *registry.Registry
	Detector  detect.Detector
	GenSource GeneratorSource
	Logger    logging.Logger
}

// NewResponder builds the gin.Engine and mounts the catch-all dispatch
// route for every HTTP method this framework answers.
func NewResponder(cfg Config, reg *registry.Registry, detector detect.Detector, genSource GeneratorSource, logger logging.Logger) *Responder {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}
	if cfg.BodyLimitBytes <= 0 {
		cfg.BodyLimitBytes = 100 << 20
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	r := &Responder{
		cfg:       cfg,
		engine:    engine,
		Registry:  reg,
		Detector:  detector,
		GenSource: genSource,
		Logger:    logger,
	}

	for _, method := range catchAllMethods {
		engine.Handle(method, "/*catchAll", r.dispatch)
	}

	return r
}

// Start listens and serves until Stop is called or the listener fails;
// it blocks, matching the teacher's Host.Start contract.
func (r *Responder) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", r.cfg.Host, r.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("enginehttp: failed to listen on %s: %w", addr, err)
	}

	r.server = &http.Server{Handler: r.engine}

	if r.Logger != nil {
		r.Logger.Info("http responder started", logging.Field{Key: "address", Value: ln.Addr().String()})
	}

	if err := r.server.Serve(ln); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("enginehttp: serve failed: %w", err)
	}
	return nil
}

// Stop gracefully shuts the server down within the configured timeout.
func (r *Responder) Stop(ctx context.Context) error {
	if r.server == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, r.cfg.ShutdownTimeout)
	defer cancel()
	return r.server.Shutdown(shutdownCtx)
}

func (r *Responder) dispatch(c *gin.Context) {
	result := r.Detector.Detect(c.Request)
	if !result.Found {
		writeEarlyError(c, apperrors.NewAppNotFound(fmt.Errorf("enginehttp: no app bound to host %q", c.Request.Host)))
		return
	}

	app, ok := r.Registry.Get(result.AppID)
	if !ok {
		writeEarlyError(c, apperrors.NewAppNotFound(fmt.Errorf("enginehttp: app %q is not live", result.AppID)))
		return
	}

	cfg := app.Config(result.Environment)
	if cfg == nil {
		writeEarlyError(c, apperrors.NewEnvironmentNotFound(fmt.Errorf("enginehttp: app %q has no environment %q", app.ID, result.Environment)))
		return
	}

	route, params, discardBody, ok := app.Router.LookupWithHeadFallback(c.Request.Method, c.Request.URL.Path)
	if !ok {
		writeEarlyError(c, apperrors.NewRouteNotFound(fmt.Errorf("enginehttp: no route for %s %s", c.Request.Method, c.Request.URL.Path)))
		return
	}

	if r.cfg.BodyLimitBytes > 0 && c.Request.Body != nil {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, r.cfg.BodyLimitBytes)
	}

	rc := reqcontext.New(c.Writer, c.Request, route, cfg, app.Group, r.GenSource.Generator(), r.Logger, cfg.TimeOffset)
	rc.Params = params
	rc.DiscardBody = discardBody
	rc.Processor = app.Processor

	if err := rc.Next(); err != nil {
		rc.WriteError(err)
	}
}

// writeEarlyError answers a request that never reached a matched route —
// there is no reqcontext.Context yet to render through, so this writes
// the same error envelope reqcontext.Context.WriteError would produce.
func writeEarlyError(c *gin.Context, err error) {
	wrapped := apperrors.ConvertOrWrap(err)
	accept := c.Request.Header.Get("Accept")
	if accept == "text/plain" {
		c.Data(wrapped.HTTPStatus(), "text/plain; charset=utf-8", wrapped.PlainTextBody())
		return
	}
	c.Data(wrapped.HTTPStatus(), "application/json", wrapped.JSONBody())
}
