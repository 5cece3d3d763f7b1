// Command engined hosts the multi-tenant application engine as a single
// process: it loads EngineConfig from a YAML/JSON file (plus ENGINE_*
// environment overrides) and blocks until terminated. It runs with no
// registry.Preparer — see the comment below.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/gocrud/tenantengine/engine"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the engine config file")
	flag.Parse()

	cfg, err := engine.LoadEngineConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "engined: failed to load config %q: %v\n", *configPath, err)
		os.Exit(1)
	}

	// Preparer is left nil here: turning an app's ModuleConfig into
	// registered router endpoints is host-specific business logic, not
	// something this framework binary can know in advance. A real
	// deployment supplies its own registry.Preparer that switches on
	// each app's declared modules.
	opts := engine.Options{Config: cfg}

	if err := engine.Run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "engined: %v\n", err)
		os.Exit(1)
	}
}
