// Package registry implements the App Registry & Hot-Reload Pipeline
// (§4.1): it drives a pluggable updater.Updater on a schedule, builds an
// App per returned config set, and atomically swaps the live appID->App
// map so readers never observe a partial update.
package registry

import (
	"time"

	"github.com/gocrud/tenantengine/appconfig"
	"github.com/gocrud/tenantengine/reqcontext"
	"github.com/gocrud/tenantengine/resources"
	"github.com/gocrud/tenantengine/router"
)

// App is one live tenant: its parsed configuration (main plus environment
// variants), the router its endpoints were registered into, the Resource
// Group it was bound to, and the RequestProcessor its bodies flow through.
type App struct {
	ID         string
	ConfigSet  *appconfig.AppConfigSet
	Router     *router.Router
	Group      *resources.Group
	Processor  reqcontext.RequestProcessor
	UpdateTime time.Time
}

func newApp(id string, set *appconfig.AppConfigSet, group *resources.Group, processor reqcontext.RequestProcessor, updateTime time.Time) *App {
	return &App{
		ID:         id,
		ConfigSet:  set,
		Router:     router.New(reqcontext.NewCORSMiddleware()),
		Group:      group,
		Processor:  processor,
		UpdateTime: updateTime,
	}
}

// Config resolves this app's configuration for an environment ("" resolves
// to the main config; an unknown name resolves to nil).
func (a *App) Config(env string) *appconfig.AppConfig {
	return a.ConfigSet.Resolve(env)
}

// Preparer is the "app-will-prepare" hook (§4.1 step 2): called once per
// (re)built App, before it becomes visible, to register its endpoints into
// app.Router. A failing Preparer drops only that app's update; the prior
// version of the app, if any, remains live.
type Preparer func(app *App) error
