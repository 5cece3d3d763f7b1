package updater

import "context"

// ClosureUpdater adapts a plain function to the Updater interface, used by
// tests and by embedding hosts that already hold app configs in memory.
type ClosureUpdater struct {
	Func func(ctx context.Context, input UpdateInput) (*UpdateResult, error)
}

func NewClosureUpdater(fn func(ctx context.Context, input UpdateInput) (*UpdateResult, error)) *ClosureUpdater {
	return &ClosureUpdater{Func: fn}
}

func (u *ClosureUpdater) Update(ctx context.Context, input UpdateInput) (*UpdateResult, error) {
	return u.Func(ctx, input)
}
