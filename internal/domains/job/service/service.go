package service

//go:generate go run go.uber.org/mock/mockgen -source=./service.go -destination=../mocks/service_mock.go -package=mocks -mock_names=Job=MockJobService

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"tukang/config"
	"tukang/infras/otel"
	bookingModel "tukang/internal/domains/booking/model"
	bookingRepo "tukang/internal/domains/booking/repository"
	"tukang/internal/domains/commission"
	"tukang/internal/domains/job/model"
	"tukang/internal/domains/job/model/dto"
	"tukang/internal/domains/job/repository"
	notificationModel "tukang/internal/domains/notification/model"
	notificationDto "tukang/internal/domains/notification/model/dto"
	notificationService "tukang/internal/domains/notification/service"
	workerService "tukang/internal/domains/worker/service"
	"tukang/shared"
	"tukang/shared/cache"
	"tukang/shared/constant"
	gDto "tukang/shared/dto"
	"tukang/shared/failure"
	"tukang/shared/timezone"
)

const (
	cacheGetJob    = "job:get"
	cacheGetAllJob = "job:gets"
	cacheCountJob  = "job:count"
)

type Job interface {
	Get(ctx context.Context, id string) (dto.JobResponse, error)
	GetAll(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (dto.GetJobsResponse, error)
	Count(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (int, error)
	Accept(ctx context.Context, jobID, workerID string) error
	Reject(ctx context.Context, jobID, workerID string) error
	Start(ctx context.Context, jobID, workerID string) error
	Complete(ctx context.Context, jobID, workerID string) error
	Cancel(ctx context.Context, jobID, actorID string, req dto.CancelJobRequest) error
}

type serviceImpl struct {
	repo         repository.Job
	bookings     bookingRepo.Booking
	workers      workerService.Worker
	notification notificationService.Notification
	cfg          *config.Config
	cache        cache.RedisCache
	otel         otel.Otel
}

func New(
	repo repository.Job,
	bookings bookingRepo.Booking,
	workers workerService.Worker,
	notification notificationService.Notification,
	cfg *config.Config,
	cache cache.RedisCache,
	otel otel.Otel,
) Job {
	return &serviceImpl{
		repo:         repo,
		bookings:     bookings,
		workers:      workers,
		notification: notification,
		cfg:          cfg,
		cache:        cache,
		otel:         otel,
	}
}

func (s *serviceImpl) Get(ctx context.Context, id string) (res dto.JobResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".job.Get")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildCacheKey(cacheGetJob, id)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for job")

		return res, nil
	}

	job, err := s.getJob(ctx, id)
	if err != nil {
		return res, err
	}

	res.FromModel(job)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save job to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) GetAll(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (res dto.GetJobsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".job.GetAll")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildCacheKeyWithQuery(cacheGetAllJob, req, filter)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for jobs")

		return res, nil
	}

	total, err := s.Count(ctx, req, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count jobs")

		return res, fmt.Errorf("failed to count jobs: %w", err)
	}

	models, err := s.repo.GetAll(ctx, req, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to get jobs")

		return res, fmt.Errorf("failed to get jobs: %w", err)
	}

	res.FromModels(models, total, req.Limit)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save jobs to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) Count(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (res int, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".job.Count")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildCacheKeyWithQuery(cacheCountJob, req, filter)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for job count")

		return res, nil
	}

	res, err = s.repo.Count(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count jobs")

		return res, fmt.Errorf("failed to count jobs: %w", err)
	}

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save job count to cache")
		}
	}()

	return res, nil
}

// Accept claims a pending job for the worker. The claim itself is a single
// conditional UPDATE; between two racing workers exactly one wins, the other
// gets a Conflict. A winning claim mirrors the booking to worker_assigned.
func (s *serviceImpl) Accept(ctx context.Context, jobID, workerID string) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".job.Accept")
	defer scope.End()
	defer scope.TraceIfError(err)

	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return err
	}

	worker, err := s.workers.GetModel(ctx, workerID)
	if err != nil {
		return err
	}

	if !worker.Eligible(job.ServiceType) {
		return failure.Forbidden("worker is not eligible for this job") // nolint:wrapcheck
	}

	affected, err := s.repo.AcceptCandidate(ctx, jobID, workerID)
	if err != nil {
		log.Error().Err(err).Msg("failed to accept job")

		return fmt.Errorf("failed to accept job: %w", err)
	}

	if affected == 0 {
		return failure.Conflict("job is no longer available") // nolint:wrapcheck
	}

	s.syncBooking(ctx, job.BookingID,
		[]string{bookingModel.StatusPending},
		map[string]any{
			bookingModel.FieldWorkerID: workerID,
			bookingModel.FieldStatus:   bookingModel.StatusWorkerAssigned,
			"assigned_at":              timezone.Now(),
			constant.FieldModifiedAt:   timezone.Now(),
			constant.FieldModifiedBy:   workerID,
		})

	if err := s.workers.RecordAssignment(ctx, workerID); err != nil {
		log.Error().Err(err).Str("workerID", workerID).Msg("failed to refresh worker counters after accept")
	}

	s.notification.Dispatch(ctx, notificationDto.DispatchRequest{
		Type:      notificationModel.TypeJobAccepted,
		Message:   fmt.Sprintf("Your %s request has been accepted by a worker", job.ServiceType),
		BookingID: job.BookingID,
		JobID:     job.ID,
		Recipients: []notificationDto.Recipient{
			{ID: job.CustomerID, Kind: notificationModel.RecipientCustomer},
		},
	})

	s.invalidateJob(ctx, jobID)

	return nil
}

// Reject backs the worker out of the job. A candidate is removed from the
// pool and the next in line is offered the job; the assigned worker gives the
// claim back, which reverts the booking to pending and rebuilds the pool from
// the currently eligible workers. Either way, when nobody is left the job is
// marked rejected and admins are alerted.
func (s *serviceImpl) Reject(ctx context.Context, jobID, workerID string) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".job.Reject")
	defer scope.End()
	defer scope.TraceIfError(err)

	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return err
	}

	if job.AssignedWorker.Valid && job.AssignedWorker.String == workerID {
		return s.withdraw(ctx, job, workerID)
	}

	affected, err := s.repo.RejectCandidate(ctx, jobID, workerID)
	if err != nil {
		log.Error().Err(err).Msg("failed to reject job")

		return fmt.Errorf("failed to reject job: %w", err)
	}

	if affected == 0 {
		return failure.Conflict("worker is not a pending candidate of this job") // nolint:wrapcheck
	}

	job, err = s.getJob(ctx, jobID)
	if err != nil {
		return err
	}

	if head := job.HeadCandidate(); head != constant.Empty {
		s.notification.Dispatch(ctx, notificationDto.DispatchRequest{
			Type:      notificationModel.TypeJobOffered,
			Message:   fmt.Sprintf("A %s job is waiting for your response", job.ServiceType),
			BookingID: job.BookingID,
			JobID:     job.ID,
			Recipients: []notificationDto.Recipient{
				{ID: head, Kind: notificationModel.RecipientWorker},
			},
		})

		s.invalidateJob(ctx, jobID)

		return nil
	}

	return s.exhaust(ctx, job, workerID)
}

// withdraw hands an accepted job back. The job reverts to pending, the booking
// loses its worker, and the pool is rebuilt from the eligible workers minus
// everyone who already rejected.
func (s *serviceImpl) withdraw(ctx context.Context, job model.Job, workerID string) error {
	affected, err := s.repo.UnassignWorker(ctx, job.ID, workerID)
	if err != nil {
		log.Error().Err(err).Msg("failed to withdraw from job")

		return fmt.Errorf("failed to withdraw from job: %w", err)
	}

	if affected == 0 {
		return failure.Conflict("job can no longer be rejected") // nolint:wrapcheck
	}

	now := timezone.Now()

	s.syncBooking(ctx, job.BookingID,
		[]string{bookingModel.StatusWorkerAssigned, bookingModel.StatusAccepted},
		map[string]any{
			bookingModel.FieldWorkerID: nil,
			bookingModel.FieldStatus:   bookingModel.StatusPending,
			"assigned_at":              nil,
			"accepted_at":              nil,
			constant.FieldModifiedAt:   now,
			constant.FieldModifiedBy:   workerID,
		})

	rejected := map[string]struct{}{workerID: {}}
	for _, id := range job.RejectedBy {
		rejected[id] = struct{}{}
	}

	candidates, err := s.workers.FindCandidates(ctx, job.ServiceType)
	if err != nil {
		log.Error().Err(err).Str("jobID", job.ID).Msg("failed to find candidates after withdrawal")
	}

	pool := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		if _, ok := rejected[candidate.ID]; ok {
			continue
		}

		pool = append(pool, candidate.ID)
	}

	if len(pool) == 0 {
		return s.exhaust(ctx, job, workerID)
	}

	if _, err := s.repo.UpdateChecked(ctx, map[string]any{
		model.FieldCandidateWorkers: pq.StringArray(pool),
		constant.FieldModifiedAt:    now,
		constant.FieldModifiedBy:    constant.System,
	}, filterByIDAndStatus(job.ID, model.StatusPending)); err != nil {
		log.Error().Err(err).Str("jobID", job.ID).Msg("failed to refresh candidate pool")
	}

	recipients := make([]notificationDto.Recipient, len(pool))
	for i, id := range pool {
		recipients[i] = notificationDto.Recipient{ID: id, Kind: notificationModel.RecipientWorker}
	}

	s.notification.Dispatch(ctx, notificationDto.DispatchRequest{
		Type:       notificationModel.TypeJobOffered,
		Message:    fmt.Sprintf("A %s job is available again", job.ServiceType),
		BookingID:  job.BookingID,
		JobID:      job.ID,
		Recipients: recipients,
	})

	s.invalidateJob(ctx, job.ID)

	return nil
}

// exhaust marks a job nobody will take as rejected and alerts admins. The
// booking stays pending for manual assignment.
func (s *serviceImpl) exhaust(ctx context.Context, job model.Job, actorID string) error {
	affected, err := s.repo.UpdateChecked(ctx, map[string]any{
		model.FieldStatus:        model.StatusRejected,
		constant.FieldModifiedAt: timezone.Now(),
		constant.FieldModifiedBy: actorID,
	}, filterByIDAndStatus(job.ID, model.StatusPending))
	if err != nil {
		log.Error().Err(err).Msg("failed to mark job rejected")

		return fmt.Errorf("failed to mark job rejected: %w", err)
	}

	if affected > 0 {
		s.notification.Dispatch(ctx, notificationDto.DispatchRequest{
			Type:      notificationModel.TypeJobExhausted,
			Message:   fmt.Sprintf("All candidates rejected %s job %s, manual assignment needed", job.ServiceType, job.ID),
			BookingID: job.BookingID,
			JobID:     job.ID,
			Recipients: []notificationDto.Recipient{
				{ID: notificationModel.AdminBroadcastID, Kind: notificationModel.RecipientAdmin},
			},
		})
	}

	s.invalidateJob(ctx, job.ID)

	return nil
}

func (s *serviceImpl) Start(ctx context.Context, jobID, workerID string) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".job.Start")
	defer scope.End()
	defer scope.TraceIfError(err)

	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return err
	}

	if job.AssignedWorker.String != workerID {
		return failure.Forbidden("only the assigned worker can start this job") // nolint:wrapcheck
	}

	affected, err := s.repo.UpdateChecked(ctx, map[string]any{
		model.FieldStatus:        model.StatusInProgress,
		"started_at":             timezone.Now(),
		constant.FieldModifiedAt: timezone.Now(),
		constant.FieldModifiedBy: workerID,
	}, filterByIDAndStatus(jobID, model.StatusAccepted))
	if err != nil {
		log.Error().Err(err).Msg("failed to start job")

		return fmt.Errorf("failed to start job: %w", err)
	}

	if affected == 0 {
		return failure.Conflict("job is not in an accepted state") // nolint:wrapcheck
	}

	s.syncBooking(ctx, job.BookingID,
		[]string{bookingModel.StatusWorkerAssigned, bookingModel.StatusAccepted},
		map[string]any{
			bookingModel.FieldStatus: bookingModel.StatusInProgress,
			"started_at":             timezone.Now(),
			constant.FieldModifiedAt: timezone.Now(),
			constant.FieldModifiedBy: workerID,
		})

	s.notification.Dispatch(ctx, notificationDto.DispatchRequest{
		Type:      notificationModel.TypeBookingStarted,
		Message:   fmt.Sprintf("Work on your %s booking has started", job.ServiceType),
		BookingID: job.BookingID,
		JobID:     job.ID,
		Recipients: []notificationDto.Recipient{
			{ID: job.CustomerID, Kind: notificationModel.RecipientCustomer},
		},
	})

	s.invalidateJob(ctx, jobID)

	return nil
}

// Complete finishes the job, settles the commission split, and credits the
// worker's earnings ledger.
func (s *serviceImpl) Complete(ctx context.Context, jobID, workerID string) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".job.Complete")
	defer scope.End()
	defer scope.TraceIfError(err)

	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return err
	}

	if job.AssignedWorker.String != workerID {
		return failure.Forbidden("only the assigned worker can complete this job") // nolint:wrapcheck
	}

	now := timezone.Now()

	affected, err := s.repo.UpdateChecked(ctx, map[string]any{
		model.FieldStatus:        model.StatusCompleted,
		"completed_at":           now,
		constant.FieldModifiedAt: now,
		constant.FieldModifiedBy: workerID,
	}, filterByIDAndStatus(jobID, model.StatusInProgress))
	if err != nil {
		log.Error().Err(err).Msg("failed to complete job")

		return fmt.Errorf("failed to complete job: %w", err)
	}

	if affected == 0 {
		return failure.Conflict("job is not in progress") // nolint:wrapcheck
	}

	s.syncBooking(ctx, job.BookingID,
		[]string{bookingModel.StatusInProgress},
		map[string]any{
			bookingModel.FieldStatus: bookingModel.StatusCompleted,
			"completed_at":           now,
			constant.FieldModifiedAt: now,
			constant.FieldModifiedBy: workerID,
		})

	if err := s.workers.CreditCompletion(ctx, workerID, s.workerPayment(ctx, job), now); err != nil {
		log.Error().Err(err).Str("workerID", workerID).Msg("failed to credit worker after job completion")
	}

	s.notification.Dispatch(ctx, notificationDto.DispatchRequest{
		Type:      notificationModel.TypeJobCompleted,
		Message:   fmt.Sprintf("Your %s job has been completed", job.ServiceType),
		BookingID: job.BookingID,
		JobID:     job.ID,
		Recipients: []notificationDto.Recipient{
			{ID: job.CustomerID, Kind: notificationModel.RecipientCustomer},
			{ID: notificationModel.AdminBroadcastID, Kind: notificationModel.RecipientAdmin},
		},
	})

	s.invalidateJob(ctx, jobID)

	return nil
}

func (s *serviceImpl) Cancel(ctx context.Context, jobID, actorID string, req dto.CancelJobRequest) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".job.Cancel")
	defer scope.End()
	defer scope.TraceIfError(err)

	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return err
	}

	if actorID != job.CustomerID {
		return failure.Forbidden("only the customer can cancel this job") // nolint:wrapcheck
	}

	now := timezone.Now()

	affected, err := s.repo.UpdateChecked(ctx, map[string]any{
		model.FieldStatus:        model.StatusCancelled,
		constant.FieldModifiedAt: now,
		constant.FieldModifiedBy: actorID,
	}, filterByIDAndStatuses(jobID, []string{model.StatusPending, model.StatusAccepted, model.StatusInProgress}))
	if err != nil {
		log.Error().Err(err).Msg("failed to cancel job")

		return fmt.Errorf("failed to cancel job: %w", err)
	}

	if affected == 0 {
		return failure.Conflict("job can no longer be cancelled") // nolint:wrapcheck
	}

	s.syncBooking(ctx, job.BookingID,
		[]string{bookingModel.StatusPending, bookingModel.StatusWorkerAssigned, bookingModel.StatusAccepted, bookingModel.StatusInProgress},
		map[string]any{
			bookingModel.FieldStatus: bookingModel.StatusCancelled,
			"cancelled_at":           now,
			"cancel_reason":          req.Reason,
			constant.FieldModifiedAt: now,
			constant.FieldModifiedBy: actorID,
		})

	recipients := []notificationDto.Recipient{
		{ID: job.CustomerID, Kind: notificationModel.RecipientCustomer},
	}
	if job.AssignedWorker.Valid {
		recipients = append(recipients, notificationDto.Recipient{
			ID:   job.AssignedWorker.String,
			Kind: notificationModel.RecipientWorker,
		})
	}

	s.notification.Dispatch(ctx, notificationDto.DispatchRequest{
		Type:       notificationModel.TypeJobCancelled,
		Message:    fmt.Sprintf("The %s job was cancelled: %s", job.ServiceType, req.Reason),
		BookingID:  job.BookingID,
		JobID:      job.ID,
		Recipients: recipients,
	})

	s.invalidateJob(ctx, jobID)

	return nil
}

func (s *serviceImpl) getJob(ctx context.Context, id string) (model.Job, error) {
	job, err := s.repo.Get(ctx, shared.FilterByID(id, model.FieldID, model.TableName))
	if err != nil {
		log.Error().Err(err).Msg("failed to get job")

		return job, fmt.Errorf("failed to get job: %w", err)
	}

	if job.ID == constant.Empty {
		return job, failure.NotFound("job not found") // nolint:wrapcheck
	}

	return job, nil
}

// workerPayment reads the settled split from the job details. When the details
// are absent or unreadable the paired booking row is the fallback, so a corrupt
// payload never credits the worker zero.
func (s *serviceImpl) workerPayment(ctx context.Context, job model.Job) float64 {
	var details model.Details
	if err := json.Unmarshal([]byte(job.Details), &details); err == nil {
		if details.WorkerPayment > 0 {
			return details.WorkerPayment
		}

		if details.Amount > 0 {
			return commission.SplitAmount(details.Amount, details.DistanceCharge).WorkerPayment
		}
	}

	booking, err := s.bookings.Get(ctx, shared.FilterByID(job.BookingID, bookingModel.FieldID, bookingModel.TableName))
	if err != nil {
		log.Error().Err(err).Str("bookingID", job.BookingID).Msg("failed to get booking for payment fallback")

		return 0
	}

	if booking.WorkerPayment > 0 {
		return booking.WorkerPayment
	}

	return commission.SplitAmount(booking.Amount, booking.DistanceCharge).WorkerPayment
}

// syncBooking mirrors a job transition onto the paired booking row. Losing the
// sync race is tolerated: the booking has moved on and its own guards decide.
func (s *serviceImpl) syncBooking(ctx context.Context, bookingID string, expectedStatuses []string, fields map[string]any) {
	affected, err := s.bookings.UpdateChecked(ctx, fields, filterBookingByIDAndStatuses(bookingID, expectedStatuses))
	if err != nil {
		log.Error().Err(err).Str("bookingID", bookingID).Msg("failed to sync booking with job transition")

		return
	}

	if affected == 0 {
		log.Warn().Str("bookingID", bookingID).Msg("booking not synced, state moved on")
	}
}

func (s *serviceImpl) invalidateJob(ctx context.Context, jobID string) {
	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Delete(c, shared.BuildCacheKey(cacheGetJob, jobID)); err != nil {
			log.Error().Err(err).Msg("failed to delete job cache")
		}

		shared.InvalidateCaches(c, s.cache, cacheGetAllJob)
		shared.InvalidateCaches(c, s.cache, cacheCountJob)
	}()
}

func filterByIDAndStatus(jobID, status string) gDto.FilterGroup {
	return filterByIDAndStatuses(jobID, []string{status})
}

func filterByIDAndStatuses(jobID string, statuses []string) gDto.FilterGroup {
	return gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters: []any{
			gDto.Filter{
				Field:    model.FieldID,
				Value:    jobID,
				Operator: gDto.FilterOperatorEq,
				Table:    model.TableName,
			},
			gDto.Filter{
				Field:    model.FieldStatus,
				Value:    statuses,
				Operator: gDto.FilterOperatorIn,
				Table:    model.TableName,
			},
		},
	}
}

func filterBookingByIDAndStatuses(bookingID string, statuses []string) gDto.FilterGroup {
	return gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters: []any{
			gDto.Filter{
				Field:    bookingModel.FieldID,
				Value:    bookingID,
				Operator: gDto.FilterOperatorEq,
				Table:    bookingModel.TableName,
			},
			gDto.Filter{
				Field:    bookingModel.FieldStatus,
				Value:    statuses,
				Operator: gDto.FilterOperatorIn,
				Table:    bookingModel.TableName,
			},
		},
	}
}
