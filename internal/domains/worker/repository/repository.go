package repository

//go:generate go run go.uber.org/mock/mockgen -source=./repository.go -destination=../mocks/repository_mock.go -package=mocks

import (
	"context"
	"fmt"
	"time"

	"tukang/infras/otel"
	"tukang/infras/postgres"
	"tukang/internal/domains/worker/model"
	"tukang/shared/constant"
	gDto "tukang/shared/dto"
	"tukang/shared/logger"
	gRepo "tukang/shared/repository"
)

type Worker interface {
	Insert(ctx context.Context, model model.Worker) error
	Get(ctx context.Context, filter gDto.FilterGroup, columns ...string) (model.Worker, error)
	GetAll(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup, columns ...string) ([]model.Worker, error)
	Exist(ctx context.Context, filter gDto.FilterGroup) (bool, error)
	Count(ctx context.Context, filter gDto.FilterGroup) (int, error)
	Update(ctx context.Context, req map[string]any, filter gDto.FilterGroup) error
	FindCandidates(ctx context.Context, serviceType string) ([]model.Worker, error)
	RecomputeStats(ctx context.Context, workerID string) error
	RecomputeRating(ctx context.Context, workerID string) error
	UpsertEarning(ctx context.Context, workerID string, day time.Time, amount float64) error
	GetEarnings(ctx context.Context, workerID string) ([]model.EarningEntry, error)
}

type repositoryImpl struct {
	gRepo.Repository[model.Worker]
	db   *postgres.Connection
	otel otel.Otel
}

func New(db *postgres.Connection, otel otel.Otel) Worker {
	return &repositoryImpl{
		Repository: gRepo.NewRepository[model.Worker](model.EntityName, model.TableName, model.FieldID, db, otel),
		db:         db,
		otel:       otel,
	}
}

// FindCandidates returns verified, available workers offering the service type,
// in insertion order. The head of the list is the next candidate after a
// rejection cascade.
func (repo *repositoryImpl) FindCandidates(ctx context.Context, serviceType string) ([]model.Worker, error) {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".worker.FindCandidates")
	defer scope.End()

	query := fmt.Sprintf(`SELECT * FROM %s
		WHERE is_verified = TRUE AND is_available = TRUE AND :service_type = ANY(service_types)
		ORDER BY created_at ASC`, model.TableName)
	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	var workers []model.Worker

	prepare, err := repo.db.Read.PrepareNamedContext(ctx, query)
	if err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return nil, fmt.Errorf("failed to prepare statement (%s): %w", model.EntityName, err)
	}
	defer prepare.Close()

	err = prepare.SelectContext(ctx, &workers, map[string]any{"service_type": serviceType})
	if err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return nil, fmt.Errorf("failed to find candidate workers: %w", err)
	}

	return workers, nil
}

// RecomputeStats rederives the worker's lifetime counters from the bookings
// table in one statement. Recomputing instead of incrementing keeps the totals
// correct even when a transition is retried.
func (repo *repositoryImpl) RecomputeStats(ctx context.Context, workerID string) error {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".worker.RecomputeStats")
	defer scope.End()

	query := fmt.Sprintf(`UPDATE %s SET
		total_bookings = (SELECT COUNT(*) FROM bookings b WHERE b.worker_id = :id),
		completed_bookings = (SELECT COUNT(*) FROM bookings b WHERE b.worker_id = :id AND b.status = 'completed'),
		total_earnings = COALESCE((SELECT SUM(b.worker_payment) FROM bookings b WHERE b.worker_id = :id AND b.status = 'completed'), 0),
		modified_at = NOW()
		WHERE id = :id`, model.TableName)
	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	_, err := repo.db.Write.NamedExecContext(ctx, query, map[string]any{"id": workerID})
	if err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return fmt.Errorf("failed to recompute worker stats: %w", err)
	}

	return nil
}

// RecomputeRating averages the ratings of the worker's reviewed bookings.
func (repo *repositoryImpl) RecomputeRating(ctx context.Context, workerID string) error {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".worker.RecomputeRating")
	defer scope.End()

	query := fmt.Sprintf(`UPDATE %s SET
		rating = COALESCE((SELECT ROUND(AVG(b.rating)::numeric, 2) FROM bookings b WHERE b.worker_id = :id AND b.rating > 0), 0),
		modified_at = NOW()
		WHERE id = :id`, model.TableName)
	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	_, err := repo.db.Write.NamedExecContext(ctx, query, map[string]any{"id": workerID})
	if err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return fmt.Errorf("failed to recompute worker rating: %w", err)
	}

	return nil
}

// UpsertEarning adds the amount into the worker's bucket for the given day,
// creating the bucket when absent.
func (repo *repositoryImpl) UpsertEarning(ctx context.Context, workerID string, day time.Time, amount float64) error {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".worker.UpsertEarning")
	defer scope.End()

	query := fmt.Sprintf(`INSERT INTO %s (worker_id, day, amount)
		VALUES (:worker_id, :day, :amount)
		ON CONFLICT (worker_id, day) DO UPDATE SET amount = %s.amount + EXCLUDED.amount`,
		model.EarningsTableName, model.EarningsTableName)
	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	_, err := repo.db.Write.NamedExecContext(ctx, query, map[string]any{
		"worker_id": workerID,
		"day":       day,
		"amount":    amount,
	})
	if err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return fmt.Errorf("failed to upsert worker earning: %w", err)
	}

	return nil
}

func (repo *repositoryImpl) GetEarnings(ctx context.Context, workerID string) ([]model.EarningEntry, error) {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".worker.GetEarnings")
	defer scope.End()

	query := fmt.Sprintf(`SELECT worker_id, day, amount FROM %s WHERE worker_id = :worker_id ORDER BY day ASC`, model.EarningsTableName)
	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	var entries []model.EarningEntry

	prepare, err := repo.db.Read.PrepareNamedContext(ctx, query)
	if err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return nil, fmt.Errorf("failed to prepare statement (%s): %w", model.EntityName, err)
	}
	defer prepare.Close()

	err = prepare.SelectContext(ctx, &entries, map[string]any{"worker_id": workerID})
	if err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return nil, fmt.Errorf("failed to get worker earnings: %w", err)
	}

	return entries, nil
}
