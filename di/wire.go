//go:build wireinject
// +build wireinject

package di

import (
	"tukang/config"
	"tukang/infras/jwt"
	"tukang/infras/kafka"
	"tukang/infras/otel"
	"tukang/infras/postgres"
	"tukang/infras/redis"
	"tukang/permissions"
	"tukang/shared/cache"
	"tukang/transport/http"
	"tukang/transport/http/middleware"
	"tukang/transport/http/router"

	bookingRepository "tukang/internal/domains/booking/repository"
	bookingService "tukang/internal/domains/booking/service"
	jobRepository "tukang/internal/domains/job/repository"
	jobService "tukang/internal/domains/job/service"
	notificationRepository "tukang/internal/domains/notification/repository"
	notificationService "tukang/internal/domains/notification/service"
	"tukang/internal/domains/pricing"
	workerRepository "tukang/internal/domains/worker/repository"
	workerService "tukang/internal/domains/worker/service"

	bookingHandler "tukang/internal/handlers/booking"
	jobHandler "tukang/internal/handlers/job"
	notificationHandler "tukang/internal/handlers/notification"
	workerHandler "tukang/internal/handlers/worker"

	"github.com/google/wire"
)

var configurations = wire.NewSet(
	config.Get,
	permissions.Get,
)

var infrastructures = wire.NewSet(
	postgres.New,
	otel.New,
	redis.New,
	jwt.New,
	kafka.New,
)

var middlewares = wire.NewSet(
	middleware.NewAppMiddleware,
	middleware.NewAuthRoleMiddleware,
)

var sharedHelpers = wire.NewSet(
	cache.NewRedisCache,
)

var workerDomain = wire.NewSet(
	workerRepository.New,
	workerService.New,
)

var notificationDomain = wire.NewSet(
	notificationRepository.New,
	notificationService.New,
)

var jobDomain = wire.NewSet(
	jobRepository.New,
	jobService.New,
)

var bookingDomain = wire.NewSet(
	bookingRepository.New,
	bookingService.New,
	pricing.New,
)

var domains = wire.NewSet(
	workerDomain,
	notificationDomain,
	jobDomain,
	bookingDomain,
)

var routing = wire.NewSet(
	wire.Struct(new(router.DomainHandlers), "*"),
	bookingHandler.New,
	jobHandler.New,
	workerHandler.New,
	notificationHandler.New,
	router.New,
)

func InitializeService() *http.HTTP {
	wire.Build(
		configurations,
		infrastructures,
		middlewares,
		sharedHelpers,
		domains,
		routing,
		http.New,
	)

	return &http.HTTP{}
}
