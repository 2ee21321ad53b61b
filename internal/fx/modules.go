package fx

import (
	"go.uber.org/fx"

	"github.com/priyaranjankumar/linkly/config"
)

var ConfigModule = fx.Module("config",
	fx.Provide(config.Load),
)

// ObservabilityModule provides the process logger and the metrics registry.
var ObservabilityModule = fx.Module("observability",
	fx.Provide(ProvideLogger),
	fx.Provide(ProvideMetricsRegistry),
)

// StorageModule provides the durable mapping store selected by database.type.
var StorageModule = fx.Module("storage",
	fx.Provide(ProvideRepository),
	fx.Invoke(RegisterRepositoryHooks),
)

// CacheModule provides the lookup cache selected by cache.type. The redis
// client is nil for the other backends.
var CacheModule = fx.Module("cache",
	fx.Provide(ProvideRedisClient),
	fx.Provide(ProvideCache),
	fx.Invoke(RegisterCacheHooks),
)

// ApplicationModule provides the redirect resolver, the management service
// and the visit recorder between them.
var ApplicationModule = fx.Module("application",
	fx.Provide(ProvideVisitRecorder),
	fx.Provide(ProvideResolver),
	fx.Provide(ProvideLinkService),
)

// CoreModules is everything but the transport.
var CoreModules = fx.Options(
	ConfigModule,
	ObservabilityModule,
	StorageModule,
	CacheModule,
	ApplicationModule,
)
