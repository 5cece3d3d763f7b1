package registry

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gocrud/tenantengine/appconfig"
	"github.com/gocrud/tenantengine/reqcontext"
	"github.com/gocrud/tenantengine/updater"
)

func configSet(appID string) *appconfig.AppConfigSet {
	return &appconfig.AppConfigSet{
		Main: &appconfig.AppConfig{
			AppID:   appID,
			AppName: appID,
		},
		Variants: map[string]*appconfig.AppConfig{},
		Warnings: map[string]map[string]string{},
	}
}

func TestRegistrySnapshotStartsEmpty(t *testing.T) {
	r := New()
	assert.Empty(t, r.Snapshot())

	_, ok := r.Get("missing")
	assert.False(t, ok)
}

func TestPullLoopBuildsAndPublishesApps(t *testing.T) {
	r := New()
	up := updater.NewClosureUpdater(func(ctx context.Context, in updater.UpdateInput) (*updater.UpdateResult, error) {
		result := updater.NewUpdateResult()
		result.UpdatedApps["app1"] = time.Unix(100, 0)
		result.UpdatedAppConfigs["app1"] = configSet("app1")
		return result, nil
	})

	loop := NewPullLoop(r, up, func(app *App) error { return nil }, nil)
	require.NoError(t, loop.PullOnce(context.Background()))

	app, ok := r.Get("app1")
	require.True(t, ok)
	assert.Equal(t, "app1", app.ID)
	assert.NotNil(t, app.Router)
	assert.Equal(t, reqcontext.SniffingRequestProcessor{}, app.Processor, "a built app defaults to the sniffing processor")
}

type prepareTrackingProcessor struct {
	prepared *[]string
}

func (p prepareTrackingProcessor) Prepare(app *appconfig.AppConfig) error {
	*p.prepared = append(*p.prepared, app.AppID)
	return nil
}

func (prepareTrackingProcessor) ProcessRequest(r *http.Request, body []byte) ([]byte, error) {
	return body, nil
}

func (prepareTrackingProcessor) ProcessResponse(c *reqcontext.Context, response []byte) ([]byte, error) {
	return response, nil
}

func TestPullLoopPreparesConfiguredProcessorPerApp(t *testing.T) {
	r := New()
	up := updater.NewClosureUpdater(func(ctx context.Context, in updater.UpdateInput) (*updater.UpdateResult, error) {
		result := updater.NewUpdateResult()
		result.UpdatedApps["app1"] = time.Unix(1, 0)
		result.UpdatedAppConfigs["app1"] = configSet("app1")
		return result, nil
	})

	var prepared []string
	loop := NewPullLoop(r, up, nil, nil)
	loop.Processor = prepareTrackingProcessor{prepared: &prepared}
	require.NoError(t, loop.PullOnce(context.Background()))

	app, ok := r.Get("app1")
	require.True(t, ok)
	assert.Equal(t, []string{"app1"}, prepared)
	assert.Equal(t, loop.Processor, app.Processor)
}

type failingPrepareProcessor struct{}

func (failingPrepareProcessor) Prepare(app *appconfig.AppConfig) error {
	return errors.New("processor prepare boom")
}

func (failingPrepareProcessor) ProcessRequest(r *http.Request, body []byte) ([]byte, error) {
	return body, nil
}

func (failingPrepareProcessor) ProcessResponse(c *reqcontext.Context, response []byte) ([]byte, error) {
	return response, nil
}

func TestPullLoopDropsAppWhenProcessorPrepareFails(t *testing.T) {
	r := New()
	up := updater.NewClosureUpdater(func(ctx context.Context, in updater.UpdateInput) (*updater.UpdateResult, error) {
		result := updater.NewUpdateResult()
		result.UpdatedApps["app1"] = time.Unix(1, 0)
		result.UpdatedAppConfigs["app1"] = configSet("app1")
		return result, nil
	})

	loop := NewPullLoop(r, up, nil, nil)
	loop.Processor = failingPrepareProcessor{}
	require.NoError(t, loop.PullOnce(context.Background()))

	_, ok := r.Get("app1")
	assert.False(t, ok, "a failed processor prepare must not publish that app")
}

func TestPullLoopCarriesOverUnmentionedApps(t *testing.T) {
	r := New()
	var call int32

	up := updater.NewClosureUpdater(func(ctx context.Context, in updater.UpdateInput) (*updater.UpdateResult, error) {
		result := updater.NewUpdateResult()
		if atomic.AddInt32(&call, 1) == 1 {
			result.UpdatedApps["app1"] = time.Unix(100, 0)
			result.UpdatedAppConfigs["app1"] = configSet("app1")
		}
		// Second call updates nothing and removes nothing; app1 must survive.
		return result, nil
	})

	loop := NewPullLoop(r, up, func(app *App) error { return nil }, nil)
	require.NoError(t, loop.PullOnce(context.Background()))
	require.NoError(t, loop.PullOnce(context.Background()))

	_, ok := r.Get("app1")
	assert.True(t, ok)
}

func TestPullLoopHonorsExplicitRemoval(t *testing.T) {
	r := New()
	var call int32

	up := updater.NewClosureUpdater(func(ctx context.Context, in updater.UpdateInput) (*updater.UpdateResult, error) {
		result := updater.NewUpdateResult()
		n := atomic.AddInt32(&call, 1)
		if n == 1 {
			result.UpdatedApps["app1"] = time.Unix(100, 0)
			result.UpdatedAppConfigs["app1"] = configSet("app1")
		} else {
			result.RemovedAppIDs = append(result.RemovedAppIDs, "app1")
		}
		return result, nil
	})

	loop := NewPullLoop(r, up, func(app *App) error { return nil }, nil)
	require.NoError(t, loop.PullOnce(context.Background()))
	_, ok := r.Get("app1")
	require.True(t, ok)

	require.NoError(t, loop.PullOnce(context.Background()))
	_, ok = r.Get("app1")
	assert.False(t, ok)
}

func TestPullLoopIsolatesSingleAppPrepareFailure(t *testing.T) {
	r := New()
	up := updater.NewClosureUpdater(func(ctx context.Context, in updater.UpdateInput) (*updater.UpdateResult, error) {
		result := updater.NewUpdateResult()
		result.UpdatedApps["good"] = time.Unix(1, 0)
		result.UpdatedAppConfigs["good"] = configSet("good")
		result.UpdatedApps["bad"] = time.Unix(1, 0)
		result.UpdatedAppConfigs["bad"] = configSet("bad")
		return result, nil
	})

	preparer := func(app *App) error {
		if app.ID == "bad" {
			return errors.New("boom")
		}
		return nil
	}

	loop := NewPullLoop(r, up, preparer, nil)
	require.NoError(t, loop.PullOnce(context.Background()))

	_, ok := r.Get("good")
	assert.True(t, ok)
	_, ok = r.Get("bad")
	assert.False(t, ok, "a failed prepare must not publish that app")
}

func TestPullLoopKeepsPriorAppsWhenUpdaterFails(t *testing.T) {
	r := New()
	var call int32
	up := updater.NewClosureUpdater(func(ctx context.Context, in updater.UpdateInput) (*updater.UpdateResult, error) {
		if atomic.AddInt32(&call, 1) == 1 {
			result := updater.NewUpdateResult()
			result.UpdatedApps["app1"] = time.Unix(1, 0)
			result.UpdatedAppConfigs["app1"] = configSet("app1")
			return result, nil
		}
		return nil, errors.New("updater unavailable")
	})

	loop := NewPullLoop(r, up, func(app *App) error { return nil }, nil)
	require.NoError(t, loop.PullOnce(context.Background()))

	err := loop.PullOnce(context.Background())
	assert.Error(t, err)

	_, ok := r.Get("app1")
	assert.True(t, ok, "prior apps must remain live when the updater fails outright")
}

func TestRegistryNotifiesListenersOnReplace(t *testing.T) {
	r := New()
	var mu sync.Mutex
	var seen map[string]*App

	r.AddListener(ListenerFunc(func(apps map[string]*App) {
		mu.Lock()
		defer mu.Unlock()
		seen = apps
	}))

	up := updater.NewClosureUpdater(func(ctx context.Context, in updater.UpdateInput) (*updater.UpdateResult, error) {
		result := updater.NewUpdateResult()
		result.UpdatedApps["app1"] = time.Unix(1, 0)
		result.UpdatedAppConfigs["app1"] = configSet("app1")
		return result, nil
	})

	loop := NewPullLoop(r, up, func(app *App) error { return nil }, nil)
	require.NoError(t, loop.PullOnce(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	require.Contains(t, seen, "app1")
}

func TestPullLoopConcurrentPullsCollapseViaSingleflight(t *testing.T) {
	r := New()
	var calls int32
	release := make(chan struct{})

	up := updater.NewClosureUpdater(func(ctx context.Context, in updater.UpdateInput) (*updater.UpdateResult, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return updater.NewUpdateResult(), nil
	})

	loop := NewPullLoop(r, up, func(app *App) error { return nil }, nil)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = loop.PullOnce(context.Background())
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
