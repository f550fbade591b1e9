package service

//go:generate go run go.uber.org/mock/mockgen -source=./service.go -destination=../mocks/service_mock.go -package=mocks -mock_names=Worker=MockWorkerService

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"tukang/config"
	"tukang/infras/otel"
	"tukang/internal/domains/worker/model"
	"tukang/internal/domains/worker/model/dto"
	"tukang/internal/domains/worker/repository"
	"tukang/shared"
	"tukang/shared/cache"
	"tukang/shared/constant"
	gDto "tukang/shared/dto"
	"tukang/shared/failure"
)

const (
	cacheGetWorker    = "worker:get"
	cacheGetAllWorker = "worker:gets"
	cacheCountWorker  = "worker:count"
	cacheWorkerStats  = "worker:stats"
)

type Worker interface {
	Get(ctx context.Context, id string) (dto.WorkerResponse, error)
	GetModel(ctx context.Context, id string) (model.Worker, error)
	GetAll(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (dto.GetWorkersResponse, error)
	Count(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (int, error)
	FindCandidates(ctx context.Context, serviceType string) ([]model.Worker, error)
	SetAvailability(ctx context.Context, workerID string, req dto.SetAvailabilityRequest) error
	Stats(ctx context.Context, workerID string) (dto.WorkerStatsResponse, error)
	RecordAssignment(ctx context.Context, workerID string) error
	CreditCompletion(ctx context.Context, workerID string, amount float64, completedAt time.Time) error
	RecomputeRating(ctx context.Context, workerID string) error
}

type serviceImpl struct {
	repo  repository.Worker
	cfg   *config.Config
	cache cache.RedisCache
	otel  otel.Otel
}

func New(repo repository.Worker, cfg *config.Config, cache cache.RedisCache, otel otel.Otel) Worker {
	return &serviceImpl{
		repo:  repo,
		cfg:   cfg,
		cache: cache,
		otel:  otel,
	}
}

func (s *serviceImpl) Get(ctx context.Context, id string) (res dto.WorkerResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".worker.Get")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildCacheKey(cacheGetWorker, id)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for worker")

		return res, nil
	}

	worker, err := s.GetModel(ctx, id)
	if err != nil {
		return res, err
	}

	res.FromModel(worker)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save worker to cache")
		}
	}()

	return res, nil
}

// GetModel returns the raw worker row for other services that need eligibility
// checks or counters, bypassing the response cache.
func (s *serviceImpl) GetModel(ctx context.Context, id string) (res model.Worker, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".worker.GetModel")
	defer scope.End()
	defer scope.TraceIfError(err)

	worker, err := s.repo.Get(ctx, shared.FilterByID(id, model.FieldID, model.TableName))
	if err != nil {
		log.Error().Err(err).Msg("failed to get worker")

		return res, fmt.Errorf("failed to get worker: %w", err)
	}

	if worker.ID == constant.Empty {
		return res, failure.NotFound("worker not found") // nolint:wrapcheck
	}

	return worker, nil
}

func (s *serviceImpl) GetAll(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (res dto.GetWorkersResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".worker.GetAll")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildCacheKeyWithQuery(cacheGetAllWorker, req, filter)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for workers")

		return res, nil
	}

	total, err := s.Count(ctx, req, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count workers")

		return res, fmt.Errorf("failed to count workers: %w", err)
	}

	models, err := s.repo.GetAll(ctx, req, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to get workers")

		return res, fmt.Errorf("failed to get workers: %w", err)
	}

	res.FromModels(models, total, req.Limit)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save workers to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) Count(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (res int, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".worker.Count")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildCacheKeyWithQuery(cacheCountWorker, req, filter)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for worker count")

		return res, nil
	}

	res, err = s.repo.Count(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count workers")

		return res, fmt.Errorf("failed to count workers: %w", err)
	}

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save worker count to cache")
		}
	}()

	return res, nil
}

// FindCandidates returns the eligible workers for a service type in insertion
// order. An empty result is not an error; callers decide how to react.
func (s *serviceImpl) FindCandidates(ctx context.Context, serviceType string) (res []model.Worker, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".worker.FindCandidates")
	defer scope.End()
	defer scope.TraceIfError(err)

	res, err = s.repo.FindCandidates(ctx, serviceType)
	if err != nil {
		log.Error().Err(err).Str("serviceType", serviceType).Msg("failed to find candidate workers")

		return nil, fmt.Errorf("failed to find candidate workers: %w", err)
	}

	return res, nil
}

func (s *serviceImpl) SetAvailability(ctx context.Context, workerID string, req dto.SetAvailabilityRequest) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".worker.SetAvailability")
	defer scope.End()
	defer scope.TraceIfError(err)

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	filter := shared.FilterByID(workerID, model.FieldID, model.TableName)

	exist, err := s.repo.Exist(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to check if worker exists")

		return fmt.Errorf("failed to check if worker exists: %w", err)
	}

	if !exist {
		log.Error().Msg("worker not found")

		return failure.NotFound("worker not found") // nolint:wrapcheck
	}

	updatedFields := shared.TransformFields(req, user)
	updatedFields[model.FieldIsAvailable] = *req.IsAvailable

	if err = s.repo.Update(ctx, updatedFields, filter); err != nil {
		log.Error().Err(err).Msg("failed to update worker availability")

		return fmt.Errorf("failed to update worker availability: %w", err)
	}

	s.invalidateWorker(ctx, workerID)

	return nil
}

func (s *serviceImpl) Stats(ctx context.Context, workerID string) (res dto.WorkerStatsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".worker.Stats")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildCacheKey(cacheWorkerStats, workerID)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for worker stats")

		return res, nil
	}

	worker, err := s.GetModel(ctx, workerID)
	if err != nil {
		return res, err
	}

	earnings, err := s.repo.GetEarnings(ctx, workerID)
	if err != nil {
		log.Error().Err(err).Msg("failed to get worker earnings")

		return res, fmt.Errorf("failed to get worker earnings: %w", err)
	}

	res.FromModel(worker, earnings)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save worker stats to cache")
		}
	}()

	return res, nil
}

// RecordAssignment refreshes the worker's lifetime counters after a booking is
// assigned to them.
func (s *serviceImpl) RecordAssignment(ctx context.Context, workerID string) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".worker.RecordAssignment")
	defer scope.End()
	defer scope.TraceIfError(err)

	if err = s.repo.RecomputeStats(ctx, workerID); err != nil {
		log.Error().Err(err).Str("workerID", workerID).Msg("failed to record worker assignment")

		return fmt.Errorf("failed to record worker assignment: %w", err)
	}

	s.invalidateWorker(ctx, workerID)

	return nil
}

// CreditCompletion refreshes the worker's lifetime totals from their bookings
// and adds the credited payment to the daily earnings bucket.
func (s *serviceImpl) CreditCompletion(ctx context.Context, workerID string, amount float64, completedAt time.Time) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".worker.CreditCompletion")
	defer scope.End()
	defer scope.TraceIfError(err)

	if err = s.repo.RecomputeStats(ctx, workerID); err != nil {
		log.Error().Err(err).Str("workerID", workerID).Msg("failed to credit worker completion")

		return fmt.Errorf("failed to credit worker completion: %w", err)
	}

	day := completedAt.UTC()
	day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)

	if err = s.repo.UpsertEarning(ctx, workerID, day, amount); err != nil {
		log.Error().Err(err).Str("workerID", workerID).Msg("failed to upsert worker earning bucket")

		return fmt.Errorf("failed to upsert worker earning bucket: %w", err)
	}

	s.invalidateWorker(ctx, workerID)

	return nil
}

// RecomputeRating re-averages the worker's rating from their reviewed bookings.
func (s *serviceImpl) RecomputeRating(ctx context.Context, workerID string) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".worker.RecomputeRating")
	defer scope.End()
	defer scope.TraceIfError(err)

	if err = s.repo.RecomputeRating(ctx, workerID); err != nil {
		log.Error().Err(err).Str("workerID", workerID).Msg("failed to recompute worker rating")

		return fmt.Errorf("failed to recompute worker rating: %w", err)
	}

	s.invalidateWorker(ctx, workerID)

	return nil
}

func (s *serviceImpl) invalidateWorker(ctx context.Context, workerID string) {
	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Delete(c, shared.BuildCacheKey(cacheGetWorker, workerID)); err != nil {
			log.Error().Err(err).Msg("failed to delete worker cache")
		}

		if err := s.cache.Delete(c, shared.BuildCacheKey(cacheWorkerStats, workerID)); err != nil {
			log.Error().Err(err).Msg("failed to delete worker stats cache")
		}

		shared.InvalidateCaches(c, s.cache, cacheGetAllWorker)
		shared.InvalidateCaches(c, s.cache, cacheCountWorker)
	}()
}
