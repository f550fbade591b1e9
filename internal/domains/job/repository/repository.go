package repository

//go:generate go run go.uber.org/mock/mockgen -source=./repository.go -destination=../mocks/repository_mock.go -package=mocks

import (
	"context"
	"fmt"

	"tukang/infras/otel"
	"tukang/infras/postgres"
	"tukang/internal/domains/job/model"
	"tukang/shared/constant"
	gDto "tukang/shared/dto"
	"tukang/shared/logger"
	gRepo "tukang/shared/repository"
)

type Job interface {
	Insert(ctx context.Context, model model.Job) error
	Get(ctx context.Context, filter gDto.FilterGroup, columns ...string) (model.Job, error)
	GetAll(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup, columns ...string) ([]model.Job, error)
	Count(ctx context.Context, filter gDto.FilterGroup) (int, error)
	Update(ctx context.Context, req map[string]any, filter gDto.FilterGroup) error
	UpdateChecked(ctx context.Context, req map[string]any, filter gDto.FilterGroup) (int64, error)
	AcceptCandidate(ctx context.Context, jobID, workerID string) (int64, error)
	RejectCandidate(ctx context.Context, jobID, workerID string) (int64, error)
	UnassignWorker(ctx context.Context, jobID, workerID string) (int64, error)
}

type repositoryImpl struct {
	gRepo.Repository[model.Job]
	db   *postgres.Connection
	otel otel.Otel
}

func New(db *postgres.Connection, otel otel.Otel) Job {
	return &repositoryImpl{
		Repository: gRepo.NewRepository[model.Job](model.EntityName, model.TableName, model.FieldID, db, otel),
		db:         db,
		otel:       otel,
	}
}

// AcceptCandidate claims a pending job for the worker. The status and
// pool-membership predicates make the claim a compare-and-swap: of two racing
// workers exactly one sees a row affected.
func (repo *repositoryImpl) AcceptCandidate(ctx context.Context, jobID, workerID string) (int64, error) {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".job.AcceptCandidate")
	defer scope.End()

	query := fmt.Sprintf(`UPDATE %s SET
		assigned_worker = :worker_id,
		status = '%s',
		accepted_at = NOW(),
		modified_at = NOW(),
		modified_by = :worker_id
		WHERE id = :id AND status = '%s' AND :worker_id = ANY(candidate_workers)`,
		model.TableName, model.StatusAccepted, model.StatusPending)
	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	result, err := repo.db.Write.NamedExecContext(ctx, query, map[string]any{
		"id":        jobID,
		"worker_id": workerID,
	})
	if err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return 0, fmt.Errorf("failed to accept job candidate: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}

	return affected, nil
}

// UnassignWorker hands an accepted job back to the pending pool. The status
// and assignment predicates make the hand-back a compare-and-swap: it fails
// once the job has started or was claimed by somebody else.
func (repo *repositoryImpl) UnassignWorker(ctx context.Context, jobID, workerID string) (int64, error) {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".job.UnassignWorker")
	defer scope.End()

	query := fmt.Sprintf(`UPDATE %s SET
		assigned_worker = NULL,
		status = '%s',
		accepted_at = NULL,
		candidate_workers = array_remove(candidate_workers, :worker_id),
		rejected_by = array_append(rejected_by, :worker_id),
		modified_at = NOW(),
		modified_by = :worker_id
		WHERE id = :id AND status = '%s' AND assigned_worker = :worker_id`,
		model.TableName, model.StatusPending, model.StatusAccepted)
	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	result, err := repo.db.Write.NamedExecContext(ctx, query, map[string]any{
		"id":        jobID,
		"worker_id": workerID,
	})
	if err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return 0, fmt.Errorf("failed to unassign job worker: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}

	return affected, nil
}

// RejectCandidate moves the worker from the candidate pool to rejected_by in a
// single statement, so the two arrays can never both contain the worker.
func (repo *repositoryImpl) RejectCandidate(ctx context.Context, jobID, workerID string) (int64, error) {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".job.RejectCandidate")
	defer scope.End()

	query := fmt.Sprintf(`UPDATE %s SET
		candidate_workers = array_remove(candidate_workers, :worker_id),
		rejected_by = array_append(rejected_by, :worker_id),
		modified_at = NOW(),
		modified_by = :worker_id
		WHERE id = :id AND status = '%s' AND :worker_id = ANY(candidate_workers)`,
		model.TableName, model.StatusPending)
	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	result, err := repo.db.Write.NamedExecContext(ctx, query, map[string]any{
		"id":        jobID,
		"worker_id": workerID,
	})
	if err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return 0, fmt.Errorf("failed to reject job candidate: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}

	return affected, nil
}
