package service_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"tukang/config"
	"tukang/infras/otel/mocks"
	bookingMocks "tukang/internal/domains/booking/mocks"
	bookingModel "tukang/internal/domains/booking/model"
	jobMocks "tukang/internal/domains/job/mocks"
	"tukang/internal/domains/job/model"
	"tukang/internal/domains/job/model/dto"
	"tukang/internal/domains/job/service"
	notificationDto "tukang/internal/domains/notification/model/dto"
	notificationMocks "tukang/internal/domains/notification/mocks"
	workerMocks "tukang/internal/domains/worker/mocks"
	workerModel "tukang/internal/domains/worker/model"
	cacheMocks "tukang/shared/cache/mocks"
	"tukang/shared/failure"
)

type jobMockSet struct {
	repo         *jobMocks.MockJob
	bookings     *bookingMocks.MockBooking
	workers      *workerMocks.MockWorkerService
	notification *notificationMocks.MockNotificationService
	cache        *cacheMocks.MockRedisCache
}

func newService(t *testing.T) (service.Job, jobMockSet) {
	t.Helper()

	ctrl := gomock.NewController(t)

	set := jobMockSet{
		repo:         jobMocks.NewMockJob(ctrl),
		bookings:     bookingMocks.NewMockBooking(ctrl),
		workers:      workerMocks.NewMockWorkerService(ctrl),
		notification: notificationMocks.NewMockNotificationService(ctrl),
		cache:        cacheMocks.NewMockRedisCache(ctrl),
	}

	cfg := &config.Config{}
	cfg.Cache.TTL = 3600

	svc := service.New(set.repo, set.bookings, set.workers, set.notification, cfg, set.cache, mocks.NewOtel())

	return svc, set
}

func pendingJob() model.Job {
	return model.Job{
		ID:               "job-1",
		BookingID:        "booking-1",
		CustomerID:       "customer-1",
		ServiceType:      "plumbing",
		CandidateWorkers: []string{"worker-1", "worker-2"},
		RejectedBy:       []string{},
		Status:           model.StatusPending,
		Details:          `{"amount":1000,"distance_charge":50,"total_amount":1050,"worker_payment":800}`,
	}
}

func eligibleWorker(id string) workerModel.Worker {
	return workerModel.Worker{
		ID:           id,
		Name:         "Asep",
		ServiceTypes: []string{"plumbing"},
		IsVerified:   true,
		IsAvailable:  true,
	}
}

func allowCacheOps(set jobMockSet) {
	set.cache.EXPECT().Delete(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	set.cache.EXPECT().Clear(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
}

func TestJobService_Accept(t *testing.T) {
	t.Run("successful accept claims the job and assigns the booking", func(t *testing.T) {
		svc, set := newService(t)
		allowCacheOps(set)

		set.repo.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(pendingJob(), nil)

		set.workers.EXPECT().
			GetModel(gomock.Any(), "worker-1").
			Return(eligibleWorker("worker-1"), nil)

		set.repo.EXPECT().
			AcceptCandidate(gomock.Any(), "job-1", "worker-1").
			Return(int64(1), nil)

		set.bookings.EXPECT().
			UpdateChecked(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, fields map[string]any, _ any) (int64, error) {
				assert.Equal(t, bookingModel.StatusWorkerAssigned, fields[bookingModel.FieldStatus])
				assert.Equal(t, "worker-1", fields[bookingModel.FieldWorkerID])
				assert.NotNil(t, fields["assigned_at"])
				assert.NotContains(t, fields, "accepted_at")

				return 1, nil
			})

		set.workers.EXPECT().
			RecordAssignment(gomock.Any(), "worker-1").
			Return(nil)

		set.notification.EXPECT().
			Dispatch(gomock.Any(), gomock.Any())

		err := svc.Accept(context.Background(), "job-1", "worker-1")

		assert.NoError(t, err)
	})

	t.Run("losing the accept race yields conflict", func(t *testing.T) {
		svc, set := newService(t)

		set.repo.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(pendingJob(), nil)

		set.workers.EXPECT().
			GetModel(gomock.Any(), "worker-2").
			Return(eligibleWorker("worker-2"), nil)

		set.repo.EXPECT().
			AcceptCandidate(gomock.Any(), "job-1", "worker-2").
			Return(int64(0), nil)

		err := svc.Accept(context.Background(), "job-1", "worker-2")

		assert.Error(t, err)
		assert.Equal(t, 409, failure.GetCode(err))
	})

	t.Run("ineligible worker is forbidden", func(t *testing.T) {
		svc, set := newService(t)

		set.repo.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(pendingJob(), nil)

		worker := eligibleWorker("worker-1")
		worker.IsAvailable = false

		set.workers.EXPECT().
			GetModel(gomock.Any(), "worker-1").
			Return(worker, nil)

		err := svc.Accept(context.Background(), "job-1", "worker-1")

		assert.Error(t, err)
		assert.Equal(t, 403, failure.GetCode(err))
	})

	t.Run("unknown job is not found", func(t *testing.T) {
		svc, set := newService(t)

		set.repo.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(model.Job{}, nil)

		err := svc.Accept(context.Background(), "missing", "worker-1")

		assert.Error(t, err)
		assert.Equal(t, 404, failure.GetCode(err))
	})
}

func TestJobService_Reject(t *testing.T) {
	t.Run("remaining pool offers the job to the head candidate", func(t *testing.T) {
		svc, set := newService(t)
		allowCacheOps(set)

		set.repo.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(pendingJob(), nil)

		set.repo.EXPECT().
			RejectCandidate(gomock.Any(), "job-1", "worker-1").
			Return(int64(1), nil)

		afterReject := pendingJob()
		afterReject.CandidateWorkers = []string{"worker-2"}
		afterReject.RejectedBy = []string{"worker-1"}

		set.repo.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(afterReject, nil)

		set.notification.EXPECT().
			Dispatch(gomock.Any(), gomock.Any()).
			Do(func(_ context.Context, req notificationDto.DispatchRequest) {
				assert.Len(t, req.Recipients, 1)
				assert.Equal(t, "worker-2", req.Recipients[0].ID)
			})

		err := svc.Reject(context.Background(), "job-1", "worker-1")

		assert.NoError(t, err)
	})

	t.Run("exhausted pool marks the job rejected and alerts admins", func(t *testing.T) {
		svc, set := newService(t)
		allowCacheOps(set)

		almostExhausted := pendingJob()
		almostExhausted.CandidateWorkers = []string{"worker-2"}
		almostExhausted.RejectedBy = []string{"worker-1"}

		set.repo.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(almostExhausted, nil)

		set.repo.EXPECT().
			RejectCandidate(gomock.Any(), "job-1", "worker-2").
			Return(int64(1), nil)

		exhausted := pendingJob()
		exhausted.CandidateWorkers = []string{}
		exhausted.RejectedBy = []string{"worker-1", "worker-2"}

		set.repo.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(exhausted, nil)

		set.repo.EXPECT().
			UpdateChecked(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(int64(1), nil)

		set.notification.EXPECT().
			Dispatch(gomock.Any(), gomock.Any()).
			Do(func(_ context.Context, req notificationDto.DispatchRequest) {
				assert.Len(t, req.Recipients, 1)
				assert.Equal(t, "admin", req.Recipients[0].ID)
			})

		err := svc.Reject(context.Background(), "job-1", "worker-2")

		assert.NoError(t, err)
	})

	t.Run("non-candidate rejection yields conflict", func(t *testing.T) {
		svc, set := newService(t)

		set.repo.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(pendingJob(), nil)

		set.repo.EXPECT().
			RejectCandidate(gomock.Any(), "job-1", "worker-9").
			Return(int64(0), nil)

		err := svc.Reject(context.Background(), "job-1", "worker-9")

		assert.Error(t, err)
		assert.Equal(t, 409, failure.GetCode(err))
	})

	t.Run("assigned worker rejection reverts the booking and re-offers the job", func(t *testing.T) {
		svc, set := newService(t)
		allowCacheOps(set)

		accepted := pendingJob()
		accepted.Status = model.StatusAccepted
		accepted.CandidateWorkers = []string{}
		accepted.AssignedWorker = sql.NullString{String: "worker-1", Valid: true}

		set.repo.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(accepted, nil)

		set.repo.EXPECT().
			UnassignWorker(gomock.Any(), "job-1", "worker-1").
			Return(int64(1), nil)

		set.bookings.EXPECT().
			UpdateChecked(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, fields map[string]any, _ any) (int64, error) {
				assert.Equal(t, bookingModel.StatusPending, fields[bookingModel.FieldStatus])
				assert.Nil(t, fields[bookingModel.FieldWorkerID])
				assert.Nil(t, fields["assigned_at"])
				assert.Nil(t, fields["accepted_at"])

				return 1, nil
			})

		set.workers.EXPECT().
			FindCandidates(gomock.Any(), "plumbing").
			Return([]workerModel.Worker{eligibleWorker("worker-1"), eligibleWorker("worker-2")}, nil)

		set.repo.EXPECT().
			UpdateChecked(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, fields map[string]any, _ any) (int64, error) {
				assert.Equal(t, pq.StringArray{"worker-2"}, fields[model.FieldCandidateWorkers])

				return 1, nil
			})

		set.notification.EXPECT().
			Dispatch(gomock.Any(), gomock.Any()).
			Do(func(_ context.Context, req notificationDto.DispatchRequest) {
				assert.Len(t, req.Recipients, 1)
				assert.Equal(t, "worker-2", req.Recipients[0].ID)
			})

		err := svc.Reject(context.Background(), "job-1", "worker-1")

		assert.NoError(t, err)
	})

	t.Run("assigned worker rejection with nobody left exhausts the job", func(t *testing.T) {
		svc, set := newService(t)
		allowCacheOps(set)

		accepted := pendingJob()
		accepted.Status = model.StatusAccepted
		accepted.CandidateWorkers = []string{}
		accepted.RejectedBy = []string{"worker-2"}
		accepted.AssignedWorker = sql.NullString{String: "worker-1", Valid: true}

		set.repo.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(accepted, nil)

		set.repo.EXPECT().
			UnassignWorker(gomock.Any(), "job-1", "worker-1").
			Return(int64(1), nil)

		set.bookings.EXPECT().
			UpdateChecked(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(int64(1), nil)

		set.workers.EXPECT().
			FindCandidates(gomock.Any(), "plumbing").
			Return([]workerModel.Worker{eligibleWorker("worker-2")}, nil)

		set.repo.EXPECT().
			UpdateChecked(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(int64(1), nil)

		set.notification.EXPECT().
			Dispatch(gomock.Any(), gomock.Any()).
			Do(func(_ context.Context, req notificationDto.DispatchRequest) {
				assert.Equal(t, "admin", req.Recipients[0].ID)
			})

		err := svc.Reject(context.Background(), "job-1", "worker-1")

		assert.NoError(t, err)
	})

	t.Run("assigned worker cannot reject once work has started", func(t *testing.T) {
		svc, set := newService(t)

		started := pendingJob()
		started.Status = model.StatusInProgress
		started.CandidateWorkers = []string{}
		started.AssignedWorker = sql.NullString{String: "worker-1", Valid: true}

		set.repo.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(started, nil)

		set.repo.EXPECT().
			UnassignWorker(gomock.Any(), "job-1", "worker-1").
			Return(int64(0), nil)

		err := svc.Reject(context.Background(), "job-1", "worker-1")

		assert.Error(t, err)
		assert.Equal(t, 409, failure.GetCode(err))
	})
}

func TestJobService_Start(t *testing.T) {
	accepted := pendingJob()
	accepted.Status = model.StatusAccepted
	accepted.AssignedWorker = sql.NullString{String: "worker-1", Valid: true}

	t.Run("assigned worker starts the job", func(t *testing.T) {
		svc, set := newService(t)
		allowCacheOps(set)

		set.repo.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(accepted, nil)

		set.repo.EXPECT().
			UpdateChecked(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(int64(1), nil)

		set.bookings.EXPECT().
			UpdateChecked(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(int64(1), nil)

		set.notification.EXPECT().
			Dispatch(gomock.Any(), gomock.Any())

		err := svc.Start(context.Background(), "job-1", "worker-1")

		assert.NoError(t, err)
	})

	t.Run("other workers are forbidden", func(t *testing.T) {
		svc, set := newService(t)

		set.repo.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(accepted, nil)

		err := svc.Start(context.Background(), "job-1", "worker-2")

		assert.Error(t, err)
		assert.Equal(t, 403, failure.GetCode(err))
	})

	t.Run("stale status yields conflict", func(t *testing.T) {
		svc, set := newService(t)

		set.repo.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(accepted, nil)

		set.repo.EXPECT().
			UpdateChecked(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(int64(0), nil)

		err := svc.Start(context.Background(), "job-1", "worker-1")

		assert.Error(t, err)
		assert.Equal(t, 409, failure.GetCode(err))
	})
}

func TestJobService_Complete(t *testing.T) {
	inProgress := pendingJob()
	inProgress.Status = model.StatusInProgress
	inProgress.AssignedWorker = sql.NullString{String: "worker-1", Valid: true}

	t.Run("completion pays the settled worker share", func(t *testing.T) {
		svc, set := newService(t)
		allowCacheOps(set)

		set.repo.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(inProgress, nil)

		set.repo.EXPECT().
			UpdateChecked(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(int64(1), nil)

		set.bookings.EXPECT().
			UpdateChecked(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(int64(1), nil)

		set.workers.EXPECT().
			CreditCompletion(gomock.Any(), "worker-1", float64(800), gomock.Any()).
			Return(nil)

		set.notification.EXPECT().
			Dispatch(gomock.Any(), gomock.Any()).
			Do(func(_ context.Context, req notificationDto.DispatchRequest) {
				assert.Len(t, req.Recipients, 2)
			})

		err := svc.Complete(context.Background(), "job-1", "worker-1")

		assert.NoError(t, err)
	})

	t.Run("unreadable details fall back to the booking row", func(t *testing.T) {
		svc, set := newService(t)
		allowCacheOps(set)

		corrupt := inProgress
		corrupt.Details = "{not json"

		set.repo.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(corrupt, nil)

		set.repo.EXPECT().
			UpdateChecked(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(int64(1), nil)

		set.bookings.EXPECT().
			UpdateChecked(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(int64(1), nil)

		set.bookings.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(bookingModel.Booking{ID: "booking-1", Amount: 1000, DistanceCharge: 50, WorkerPayment: 800}, nil)

		set.workers.EXPECT().
			CreditCompletion(gomock.Any(), "worker-1", float64(800), gomock.Any()).
			Return(nil)

		set.notification.EXPECT().
			Dispatch(gomock.Any(), gomock.Any())

		err := svc.Complete(context.Background(), "job-1", "worker-1")

		assert.NoError(t, err)
	})

	t.Run("not in progress yields conflict", func(t *testing.T) {
		svc, set := newService(t)

		set.repo.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(inProgress, nil)

		set.repo.EXPECT().
			UpdateChecked(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(int64(0), nil)

		err := svc.Complete(context.Background(), "job-1", "worker-1")

		assert.Error(t, err)
		assert.Equal(t, 409, failure.GetCode(err))
	})
}

func TestJobService_Cancel(t *testing.T) {
	job := pendingJob()

	t.Run("customer cancels a pending job", func(t *testing.T) {
		svc, set := newService(t)
		allowCacheOps(set)

		set.repo.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(job, nil)

		set.repo.EXPECT().
			UpdateChecked(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(int64(1), nil)

		set.bookings.EXPECT().
			UpdateChecked(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(int64(1), nil)

		set.notification.EXPECT().
			Dispatch(gomock.Any(), gomock.Any())

		err := svc.Cancel(context.Background(), "job-1", "customer-1", dto.CancelJobRequest{Reason: "changed my mind"})

		assert.NoError(t, err)
	})

	t.Run("customer cancels an in-progress job", func(t *testing.T) {
		svc, set := newService(t)
		allowCacheOps(set)

		started := pendingJob()
		started.Status = model.StatusInProgress
		started.AssignedWorker = sql.NullString{String: "worker-1", Valid: true}

		set.repo.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(started, nil)

		set.repo.EXPECT().
			UpdateChecked(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(int64(1), nil)

		set.bookings.EXPECT().
			UpdateChecked(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(int64(1), nil)

		set.notification.EXPECT().
			Dispatch(gomock.Any(), gomock.Any())

		err := svc.Cancel(context.Background(), "job-1", "customer-1", dto.CancelJobRequest{Reason: "worker stopped responding"})

		assert.NoError(t, err)
	})

	t.Run("outsiders are forbidden", func(t *testing.T) {
		svc, set := newService(t)

		set.repo.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(job, nil)

		err := svc.Cancel(context.Background(), "job-1", "stranger", dto.CancelJobRequest{Reason: "nope"})

		assert.Error(t, err)
		assert.Equal(t, 403, failure.GetCode(err))
	})

	t.Run("assigned worker is forbidden", func(t *testing.T) {
		svc, set := newService(t)

		assigned := pendingJob()
		assigned.Status = model.StatusAccepted
		assigned.AssignedWorker = sql.NullString{String: "worker-1", Valid: true}

		set.repo.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(assigned, nil)

		err := svc.Cancel(context.Background(), "job-1", "worker-1", dto.CancelJobRequest{Reason: "double booked"})

		assert.Error(t, err)
		assert.Equal(t, 403, failure.GetCode(err))
	})

	t.Run("late cancellation yields conflict", func(t *testing.T) {
		svc, set := newService(t)

		set.repo.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(job, nil)

		set.repo.EXPECT().
			UpdateChecked(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(int64(0), nil)

		err := svc.Cancel(context.Background(), "job-1", "customer-1", dto.CancelJobRequest{Reason: "too late"})

		assert.Error(t, err)
		assert.Equal(t, 409, failure.GetCode(err))
	})
}

func TestJobService_Get(t *testing.T) {
	t.Run("cache miss decodes details", func(t *testing.T) {
		svc, set := newService(t)

		set.cache.EXPECT().
			Get(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(errors.New("cache miss"))

		set.repo.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(pendingJob(), nil)

		set.cache.EXPECT().
			Save(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil).
			AnyTimes()

		res, err := svc.Get(context.Background(), "job-1")

		assert.NoError(t, err)
		assert.Equal(t, "job-1", res.ID)
		if assert.NotNil(t, res.Details) {
			assert.Equal(t, float64(800), res.Details.WorkerPayment)
			assert.Equal(t, float64(1050), res.Details.TotalAmount)
		}
	})

	t.Run("unknown job is not found", func(t *testing.T) {
		svc, set := newService(t)

		set.cache.EXPECT().
			Get(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(errors.New("cache miss"))

		set.repo.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(model.Job{}, nil)

		_, err := svc.Get(context.Background(), "missing")

		assert.Error(t, err)
		assert.Equal(t, 404, failure.GetCode(err))
	})
}
