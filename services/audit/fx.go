package audit

import "go.uber.org/fx"

var Module = fx.Module("audit.module",
	fx.Provide(NewRecorder),
)

var WorkerModule = fx.Module("audit.worker",
	fx.Provide(NewHandler),
	fx.Invoke(RegisterHandlers),
)
