package fx

import (
	"go.uber.org/fx"

	httpFX "github.com/priyaranjankumar/linkly/internal/fx/http"
)

// HTTPServerModules combines all modules needed for HTTP server entrypoint
var HTTPServerModules = fx.Options(
	CoreModules,
	httpFX.Module,
)

// MigrateModules applies pending schema migrations during construction. The
// resulting app has nothing to run; callers only check app.Err().
var MigrateModules = fx.Options(
	ConfigModule,
	fx.Provide(ProvideLogger),
	fx.Invoke(RunMigrations),
)
