package organization

import (
	"appforge-controlplane/services/ability"

	"go.uber.org/fx"
)

var Module = fx.Module("organization.module",
	fx.Provide(
		NewService,
		fx.Annotate(NewGroups, fx.As(new(ability.GroupResolver))),
	),
)
