package license

import (
	"context"

	"go.uber.org/fx"
)

var Module = fx.Module("license.module",
	fx.Provide(
		NewStore,
		NewEvaluator,
		NewService,
	),
	fx.Invoke(restoreOnStart),
)

func restoreOnStart(lc fx.Lifecycle, service *Service) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			service.Restore(ctx)
			return nil
		},
	})
}
