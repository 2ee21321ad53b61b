package http

import (
	"go.uber.org/fx"

	httpAdapter "github.com/priyaranjankumar/linkly/internal/adapters/http"
)

// Module serves the redirect and management API. Its OnStart hook binds
// the listener after the stores are constructed; OnStop drains requests
// before the visit recorder and the stores shut down.
var Module = fx.Module("http",
	fx.Provide(
		ProvideHandlers,
		httpAdapter.NewRouter,
		ProvideHTTPServer,
	),
	fx.Invoke(RegisterHTTPServerHooks),
)
