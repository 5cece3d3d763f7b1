package serviceregister

import (
	"context"

	"github.com/gocrud/tenantengine/core"
	"github.com/gocrud/tenantengine/di"
)

// New publishes a *Register into the DI container and runs node-ID
// acquisition on runtime start. The container can only accept new
// providers before Build(), so the *snowflake.Generator itself — only
// known once acquisition completes — is not provided directly; callers
// resolve *Register and call its Generator() method once the runtime has
// started (reg.Generator() blocks on nothing; it simply returns nil until
// Start has run).
func New(opts Options) core.Option {
	return func(rt *core.Runtime) error {
		reg := NewRegister(opts)

		if err := rt.Provide(reg, di.WithValue(reg)); err != nil {
			return err
		}

		rt.Lifecycle.OnStart(func(ctx context.Context) error {
			return reg.Start(ctx)
		})

		rt.Lifecycle.OnStop(func(ctx context.Context) error {
			return reg.Stop(ctx)
		})

		return nil
	}
}
