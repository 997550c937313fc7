package ability

import (
	"appforge-controlplane/services/license"

	"go.uber.org/fx"
)

var Module = fx.Module("ability.module",
	fx.Provide(
		NewFactory,
		func(e *license.Evaluator) FeatureChecker { return e },
	),
)
