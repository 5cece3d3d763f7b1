package enginehttp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gocrud/tenantengine/appconfig"
	"github.com/gocrud/tenantengine/detect"
	"github.com/gocrud/tenantengine/registry"
	"github.com/gocrud/tenantengine/reqcontext"
	"github.com/gocrud/tenantengine/router"
	"github.com/gocrud/tenantengine/snowflake"
	"github.com/gocrud/tenantengine/updater"
)

type staticGenSource struct{ gen *snowflake.Generator }

func (s staticGenSource) Generator() *snowflake.Generator { return s.gen }

func newTestResponder(t *testing.T) (*Responder, *registry.Registry, *detect.HostDetector) {
	t.Helper()
	gen, err := snowflake.New(1, snowflake.DefaultEpoch)
	require.NoError(t, err)

	reg := registry.New()
	detector := detect.NewHostDetector()

	r := NewResponder(Config{Host: "127.0.0.1", Port: 0}, reg, detector, staticGenSource{gen: gen}, nil)
	return r, reg, detector
}

func TestDispatchReturnsAppNotFoundForUnknownHost(t *testing.T) {
	r, _, _ := newTestResponder(t)

	req := httptest.NewRequest(http.MethodGet, "/anything", nil)
	req.Host = "unknown.example.com"
	w := httptest.NewRecorder()

	r.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "app_not_found")
}

func TestDispatchReturnsAppNotFoundWhenDetectedAppIsNotLive(t *testing.T) {
	r, _, detector := newTestResponder(t)
	detector.Rebuild([]detect.HostBinding{{Host: "tenant.example.com", AppID: "missing-app", Environment: ""}})

	req := httptest.NewRequest(http.MethodGet, "/anything", nil)
	req.Host = "tenant.example.com"
	w := httptest.NewRecorder()

	r.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "app_not_found")
}

type recordingProcessor struct {
	mu            sync.Mutex
	requestCalls  int
	responseCalls int
}

func (p *recordingProcessor) Prepare(app *appconfig.AppConfig) error { return nil }

func (p *recordingProcessor) ProcessRequest(r *http.Request, body []byte) ([]byte, error) {
	p.mu.Lock()
	p.requestCalls++
	p.mu.Unlock()
	return body, nil
}

func (p *recordingProcessor) ProcessResponse(c *reqcontext.Context, response []byte) ([]byte, error) {
	p.mu.Lock()
	p.responseCalls++
	p.mu.Unlock()
	return response, nil
}

// TestDispatchRunsAppRequestProcessor confirms a live request is actually
// routed through the app's RequestProcessor — not just its own unit tests —
// by registering an app whose processor records ProcessRequest/ProcessResponse
// calls and driving a real request through Responder.dispatch.
func TestDispatchRunsAppRequestProcessor(t *testing.T) {
	r, reg, detector := newTestResponder(t)
	detector.Rebuild([]detect.HostBinding{{Host: "tenant.example.com", AppID: "app1", Environment: ""}})

	processor := &recordingProcessor{}
	up := updater.NewClosureUpdater(func(ctx context.Context, in updater.UpdateInput) (*updater.UpdateResult, error) {
		result := updater.NewUpdateResult()
		result.UpdatedApps["app1"] = time.Unix(1, 0)
		result.UpdatedAppConfigs["app1"] = &appconfig.AppConfigSet{
			Main:     &appconfig.AppConfig{AppID: "app1", AppName: "App One"},
			Variants: map[string]*appconfig.AppConfig{},
			Warnings: map[string]map[string]string{},
		}
		return result, nil
	})

	preparer := func(app *registry.App) error {
		return app.Router.Register(&router.Endpoint{
			Name:   "echo",
			Routes: []router.Route{{Method: http.MethodPost, Path: "/echo"}},
			Invocation: router.NewRequestInvocation(func(ctx router.RequestContext) error {
				rc := ctx.(*reqcontext.Context)
				body, err := reqcontext.Decode[map[string]any](rc, "application/json")
				if err != nil {
					return err
				}
				return rc.WriteJSON(http.StatusOK, body)
			}),
		})
	}

	loop := registry.NewPullLoop(reg, up, preparer, nil)
	loop.Processor = processor
	require.NoError(t, loop.PullOnce(context.Background()))

	req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(`{"a":1}`))
	req.Host = "tenant.example.com"
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	r.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, processor.requestCalls)
	assert.Equal(t, 1, processor.responseCalls)
}
