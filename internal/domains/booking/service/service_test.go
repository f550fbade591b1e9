package service_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"tukang/config"
	"tukang/infras/otel/mocks"
	bookingMocks "tukang/internal/domains/booking/mocks"
	"tukang/internal/domains/booking/model"
	"tukang/internal/domains/booking/model/dto"
	"tukang/internal/domains/booking/service"
	jobMocks "tukang/internal/domains/job/mocks"
	jobModel "tukang/internal/domains/job/model"
	notificationDto "tukang/internal/domains/notification/model/dto"
	notificationMocks "tukang/internal/domains/notification/mocks"
	"tukang/internal/domains/pricing"
	pricingMocks "tukang/internal/domains/pricing/mocks"
	workerMocks "tukang/internal/domains/worker/mocks"
	workerModel "tukang/internal/domains/worker/model"
	cacheMocks "tukang/shared/cache/mocks"
	"tukang/shared/failure"
)

type bookingMockSet struct {
	repo         *bookingMocks.MockBooking
	jobs         *jobMocks.MockJob
	jobService   *jobMocks.MockJobService
	workers      *workerMocks.MockWorkerService
	notification *notificationMocks.MockNotificationService
	pricing      *pricingMocks.MockResolver
	cache        *cacheMocks.MockRedisCache
}

func newService(t *testing.T) (service.Booking, bookingMockSet) {
	t.Helper()

	ctrl := gomock.NewController(t)

	set := bookingMockSet{
		repo:         bookingMocks.NewMockBooking(ctrl),
		jobs:         jobMocks.NewMockJob(ctrl),
		jobService:   jobMocks.NewMockJobService(ctrl),
		workers:      workerMocks.NewMockWorkerService(ctrl),
		notification: notificationMocks.NewMockNotificationService(ctrl),
		pricing:      pricingMocks.NewMockResolver(ctrl),
		cache:        cacheMocks.NewMockRedisCache(ctrl),
	}

	cfg := &config.Config{}
	cfg.Cache.TTL = 3600
	cfg.Booking.OTPTTLMinutes = 10
	cfg.Booking.OTPDigits = 6

	svc := service.New(
		set.repo, set.jobs, set.jobService, set.workers,
		set.notification, set.pricing, cfg, set.cache, mocks.NewOtel(),
	)

	return svc, set
}

func allowCacheOps(set bookingMockSet) {
	set.cache.EXPECT().Delete(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	set.cache.EXPECT().Clear(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	set.cache.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
}

func createRequest() dto.CreateBookingRequest {
	return dto.CreateBookingRequest{
		ServiceType:    "plumbing",
		ServiceTitle:   "Leaky tap repair",
		Amount:         1000,
		AddressStreet:  "12 MG Road",
		AddressCity:    "Bengaluru",
		AddressState:   "Karnataka",
		AddressPincode: "560001",
		Phone:          "9876543210",
		ScheduledDate:  "2026-09-02",
		ScheduledTime:  "10:30",
	}
}

func candidate(id string) workerModel.Worker {
	return workerModel.Worker{
		ID:           id,
		ServiceTypes: []string{"plumbing", "cleaning"},
		IsVerified:   true,
		IsAvailable:  true,
	}
}

func inProgressBooking() model.Booking {
	return model.Booking{
		ID:            "booking-1",
		CustomerID:    "customer-1",
		ServiceType:   "plumbing",
		ServiceTitle:  "Leaky tap repair",
		Amount:        1000,
		TotalAmount:   1050,
		WorkerPayment: 800,
		Status:        model.StatusInProgress,
		WorkerID:      sql.NullString{String: "worker-1", Valid: true},
	}
}

func TestBookingService_Create(t *testing.T) {
	quote := pricing.Quote{DistanceKm: 7.5, DistanceCharge: 50, Resolved: true}

	t.Run("single booking splits commission and stays pending while candidates are notified", func(t *testing.T) {
		svc, set := newService(t)
		allowCacheOps(set)

		set.pricing.EXPECT().
			Resolve(gomock.Any(), gomock.Any()).
			Return(quote)

		set.workers.EXPECT().
			FindCandidates(gomock.Any(), "plumbing").
			Return([]workerModel.Worker{candidate("worker-1"), candidate("worker-2")}, nil)

		set.repo.EXPECT().
			Insert(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, booking model.Booking) error {
				assert.Equal(t, float64(200), booking.AdminCommission)
				assert.Equal(t, float64(800), booking.WorkerPayment)
				assert.Equal(t, float64(1050), booking.TotalAmount)
				assert.Equal(t, float64(50), booking.DistanceCharge)
				assert.Equal(t, model.StatusPending, booking.Status)
				assert.False(t, booking.AssignedAt.Valid)
				assert.False(t, booking.WorkerID.Valid)

				return nil
			})

		set.jobs.EXPECT().
			Insert(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, job jobModel.Job) error {
				assert.Equal(t, []string{"worker-1", "worker-2"}, []string(job.CandidateWorkers))
				assert.Equal(t, jobModel.StatusPending, job.Status)
				assert.NotEmpty(t, job.Details)

				return nil
			})

		set.notification.EXPECT().
			Dispatch(gomock.Any(), gomock.Any()).
			Times(2)

		res, err := svc.Create(context.Background(), "customer-1", createRequest())

		assert.NoError(t, err)
		assert.Equal(t, float64(1050), res.TotalAmount)
		assert.Equal(t, model.StatusPending, res.Status)
	})

	t.Run("no candidates leaves the booking pending", func(t *testing.T) {
		svc, set := newService(t)
		allowCacheOps(set)

		set.pricing.EXPECT().
			Resolve(gomock.Any(), gomock.Any()).
			Return(pricing.Quote{})

		set.workers.EXPECT().
			FindCandidates(gomock.Any(), "plumbing").
			Return([]workerModel.Worker{}, nil)

		set.repo.EXPECT().
			Insert(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, booking model.Booking) error {
				assert.Equal(t, model.StatusPending, booking.Status)
				assert.False(t, booking.AssignedAt.Valid)

				return nil
			})

		set.jobs.EXPECT().
			Insert(gomock.Any(), gomock.Any()).
			Return(nil)

		set.notification.EXPECT().
			Dispatch(gomock.Any(), gomock.Any())

		res, err := svc.Create(context.Background(), "customer-1", createRequest())

		assert.NoError(t, err)
		assert.Equal(t, model.StatusPending, res.Status)
	})

	t.Run("composite booking distributes the distance charge across children", func(t *testing.T) {
		svc, set := newService(t)
		allowCacheOps(set)

		req := createRequest()
		req.ServiceType = ""
		req.ServiceTitle = ""
		req.Amount = 0
		req.Services = []dto.ServiceLine{
			{ServiceType: "plumbing", Title: "Leaky tap repair", Amount: 1000, Quantity: 1},
			{ServiceType: "cleaning", Title: "Deep clean", Amount: 500, Quantity: 2},
		}

		set.pricing.EXPECT().
			Resolve(gomock.Any(), gomock.Any()).
			Return(pricing.Quote{DistanceKm: 12, DistanceCharge: 90, Resolved: true})

		set.workers.EXPECT().
			FindCandidates(gomock.Any(), "plumbing").
			Return([]workerModel.Worker{candidate("worker-1")}, nil)

		set.workers.EXPECT().
			FindCandidates(gomock.Any(), "cleaning").
			Return([]workerModel.Worker{candidate("worker-2")}, nil)

		var parent model.Booking

		set.repo.EXPECT().
			Insert(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, booking model.Booking) error {
				parent = booking
				assert.True(t, booking.IsMultipleServiceBooking)
				assert.Equal(t, float64(2000), booking.Amount)
				assert.Equal(t, float64(2090), booking.TotalAmount)
				assert.True(t, booking.ServiceBreakdown.Valid)

				return nil
			})

		set.repo.EXPECT().
			InsertBulk(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, children []model.Booking) error {
				assert.Len(t, children, 2)

				var childTotal float64
				for _, child := range children {
					assert.Equal(t, parent.ID, child.ParentBookingID.String)
					assert.Equal(t, model.StatusPending, child.Status)
					childTotal += child.TotalAmount
				}
				assert.Equal(t, parent.TotalAmount, childTotal)

				return nil
			})

		set.jobs.EXPECT().
			Insert(gomock.Any(), gomock.Any()).
			Return(nil).
			Times(2)

		set.notification.EXPECT().
			Dispatch(gomock.Any(), gomock.Any()).
			Times(4)

		res, err := svc.Create(context.Background(), "customer-1", req)

		assert.NoError(t, err)
		assert.Len(t, res.Children, 2)
		assert.Equal(t, model.StatusPending, res.Status)
	})
}

func TestBookingService_AcceptByWorker(t *testing.T) {
	t.Run("delegates the claim to the paired job", func(t *testing.T) {
		svc, set := newService(t)
		allowCacheOps(set)

		set.repo.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(model.Booking{ID: "booking-1", CustomerID: "customer-1", Status: model.StatusPending}, nil)

		set.jobs.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(jobModel.Job{ID: "job-1", BookingID: "booking-1"}, nil)

		set.jobService.EXPECT().
			Accept(gomock.Any(), "job-1", "worker-1").
			Return(nil)

		err := svc.AcceptByWorker(context.Background(), "booking-1", "worker-1")

		assert.NoError(t, err)
	})

	t.Run("accepting a composite parent is rejected", func(t *testing.T) {
		svc, set := newService(t)

		set.repo.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(model.Booking{ID: "booking-1", IsMultipleServiceBooking: true}, nil)

		err := svc.AcceptByWorker(context.Background(), "booking-1", "worker-1")

		assert.Error(t, err)
		assert.Equal(t, 400, failure.GetCode(err))
	})

	t.Run("child accept promotes the parent once all children are assigned", func(t *testing.T) {
		svc, set := newService(t)
		allowCacheOps(set)

		child := model.Booking{
			ID:              "child-1",
			CustomerID:      "customer-1",
			Status:          model.StatusPending,
			ParentBookingID: sql.NullString{String: "parent-1", Valid: true},
		}

		set.repo.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(child, nil)

		set.jobs.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(jobModel.Job{ID: "job-1", BookingID: "child-1"}, nil)

		set.jobService.EXPECT().
			Accept(gomock.Any(), "job-1", "worker-1").
			Return(nil)

		siblings := []model.Booking{
			{ID: "child-1", Status: model.StatusWorkerAssigned, WorkerID: sql.NullString{String: "worker-1", Valid: true}},
			{ID: "child-2", Status: model.StatusWorkerAssigned, WorkerID: sql.NullString{String: "worker-2", Valid: true}},
		}

		set.repo.EXPECT().
			GetChildren(gomock.Any(), "parent-1").
			Return(siblings, nil)

		set.repo.EXPECT().
			UpdateChecked(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, fields map[string]any, _ any) (int64, error) {
				assert.Equal(t, model.StatusWorkerAssigned, fields[model.FieldStatus])
				assert.NotNil(t, fields["assigned_at"])

				return 1, nil
			})

		err := svc.AcceptByWorker(context.Background(), "child-1", "worker-1")

		assert.NoError(t, err)
	})
}

func TestBookingService_RejectByWorker(t *testing.T) {
	t.Run("delegates to the paired job for candidates and assigned workers alike", func(t *testing.T) {
		svc, set := newService(t)
		allowCacheOps(set)

		set.jobs.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(jobModel.Job{
				ID:             "job-1",
				BookingID:      "booking-1",
				Status:         jobModel.StatusAccepted,
				AssignedWorker: sql.NullString{String: "worker-1", Valid: true},
			}, nil)

		set.jobService.EXPECT().
			Reject(gomock.Any(), "job-1", "worker-1").
			Return(nil)

		err := svc.RejectByWorker(context.Background(), "booking-1", "worker-1")

		assert.NoError(t, err)
	})
}

func TestBookingService_RequestCompletion(t *testing.T) {
	t.Run("issues a code and notifies the customer", func(t *testing.T) {
		svc, set := newService(t)
		allowCacheOps(set)

		set.repo.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(inProgressBooking(), nil)

		var storedOTP string

		set.repo.EXPECT().
			UpdateChecked(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, fields map[string]any, _ any) (int64, error) {
				otp, ok := fields["completion_otp"].(string)
				assert.True(t, ok)
				assert.Len(t, otp, 6)
				storedOTP = otp

				return 1, nil
			})

		set.notification.EXPECT().
			Dispatch(gomock.Any(), gomock.Any()).
			Do(func(_ context.Context, req notificationDto.DispatchRequest) {
				assert.Contains(t, req.Message, storedOTP)
				assert.Equal(t, "customer-1", req.Recipients[0].ID)
			})

		res, err := svc.RequestCompletion(context.Background(), "booking-1", "worker-1")

		assert.NoError(t, err)
		assert.Equal(t, "booking-1", res.BookingID)
		assert.NotEmpty(t, res.ExpiresAt)
	})

	t.Run("other workers are forbidden", func(t *testing.T) {
		svc, set := newService(t)

		set.repo.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(inProgressBooking(), nil)

		_, err := svc.RequestCompletion(context.Background(), "booking-1", "worker-2")

		assert.Error(t, err)
		assert.Equal(t, 403, failure.GetCode(err))
	})

	t.Run("terminal booking yields conflict", func(t *testing.T) {
		svc, set := newService(t)

		set.repo.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(inProgressBooking(), nil)

		set.repo.EXPECT().
			UpdateChecked(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(int64(0), nil)

		_, err := svc.RequestCompletion(context.Background(), "booking-1", "worker-1")

		assert.Error(t, err)
		assert.Equal(t, 409, failure.GetCode(err))
	})
}

func TestBookingService_VerifyCompletion(t *testing.T) {
	withOTP := func(otp string, expires time.Time) model.Booking {
		booking := inProgressBooking()
		booking.CompletionOTP = sql.NullString{String: otp, Valid: true}
		booking.CompletionOTPExpires = sql.NullTime{Time: expires, Valid: true}

		return booking
	}

	t.Run("matching code completes the booking and credits the worker", func(t *testing.T) {
		svc, set := newService(t)
		allowCacheOps(set)

		set.repo.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(withOTP("123456", time.Now().Add(5*time.Minute)), nil)

		set.repo.EXPECT().
			UpdateChecked(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, fields map[string]any, _ any) (int64, error) {
				assert.Equal(t, model.StatusCompleted, fields[model.FieldStatus])
				assert.Nil(t, fields["completion_otp"])

				return 1, nil
			})

		set.jobs.EXPECT().
			UpdateChecked(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(int64(1), nil)

		set.workers.EXPECT().
			CreditCompletion(gomock.Any(), "worker-1", float64(800), gomock.Any()).
			Return(nil)

		set.notification.EXPECT().
			Dispatch(gomock.Any(), gomock.Any())

		err := svc.VerifyCompletion(context.Background(), "booking-1", "worker-1", dto.VerifyCompletionRequest{OTP: "123456"})

		assert.NoError(t, err)
	})

	t.Run("expired code is rejected", func(t *testing.T) {
		svc, set := newService(t)

		set.repo.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(withOTP("123456", time.Now().Add(-time.Minute)), nil)

		err := svc.VerifyCompletion(context.Background(), "booking-1", "worker-1", dto.VerifyCompletionRequest{OTP: "123456"})

		assert.Error(t, err)
		assert.Equal(t, 409, failure.GetCode(err))
	})

	t.Run("mismatching code is rejected", func(t *testing.T) {
		svc, set := newService(t)

		set.repo.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(withOTP("123456", time.Now().Add(5*time.Minute)), nil)

		err := svc.VerifyCompletion(context.Background(), "booking-1", "worker-1", dto.VerifyCompletionRequest{OTP: "654321"})

		assert.Error(t, err)
		assert.Equal(t, 400, failure.GetCode(err))
	})

	t.Run("missing code is rejected", func(t *testing.T) {
		svc, set := newService(t)

		set.repo.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(inProgressBooking(), nil)

		err := svc.VerifyCompletion(context.Background(), "booking-1", "worker-1", dto.VerifyCompletionRequest{OTP: "123456"})

		assert.Error(t, err)
		assert.Equal(t, 409, failure.GetCode(err))
	})

	t.Run("losing the completion race yields conflict", func(t *testing.T) {
		svc, set := newService(t)

		set.repo.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(withOTP("123456", time.Now().Add(5*time.Minute)), nil)

		set.repo.EXPECT().
			UpdateChecked(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(int64(0), nil)

		err := svc.VerifyCompletion(context.Background(), "booking-1", "worker-1", dto.VerifyCompletionRequest{OTP: "123456"})

		assert.Error(t, err)
		assert.Equal(t, 409, failure.GetCode(err))
	})
}

func TestBookingService_SubmitReview(t *testing.T) {
	completed := func() model.Booking {
		booking := inProgressBooking()
		booking.Status = model.StatusCompleted

		return booking
	}

	t.Run("first review sticks and refreshes the worker's average", func(t *testing.T) {
		svc, set := newService(t)
		allowCacheOps(set)

		set.repo.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(completed(), nil)

		set.repo.EXPECT().
			UpdateChecked(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(int64(1), nil)

		set.workers.EXPECT().
			RecomputeRating(gomock.Any(), "worker-1").
			Return(nil)

		set.notification.EXPECT().
			Dispatch(gomock.Any(), gomock.Any())

		err := svc.SubmitReview(context.Background(), "booking-1", "customer-1", dto.ReviewRequest{Rating: 5, Review: "great work"})

		assert.NoError(t, err)
	})

	t.Run("second review is rejected", func(t *testing.T) {
		svc, set := newService(t)

		booking := completed()
		booking.Rating = 4

		set.repo.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(booking, nil)

		err := svc.SubmitReview(context.Background(), "booking-1", "customer-1", dto.ReviewRequest{Rating: 5})

		assert.Error(t, err)
		assert.Equal(t, 409, failure.GetCode(err))
	})

	t.Run("uncompleted booking cannot be reviewed", func(t *testing.T) {
		svc, set := newService(t)

		set.repo.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(inProgressBooking(), nil)

		err := svc.SubmitReview(context.Background(), "booking-1", "customer-1", dto.ReviewRequest{Rating: 5})

		assert.Error(t, err)
		assert.Equal(t, 409, failure.GetCode(err))
	})

	t.Run("other customers are forbidden", func(t *testing.T) {
		svc, set := newService(t)

		set.repo.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(completed(), nil)

		err := svc.SubmitReview(context.Background(), "booking-1", "customer-2", dto.ReviewRequest{Rating: 5})

		assert.Error(t, err)
		assert.Equal(t, 403, failure.GetCode(err))
	})
}

func TestBookingService_Cancel(t *testing.T) {
	t.Run("single booking cancel goes through the paired job", func(t *testing.T) {
		svc, set := newService(t)
		allowCacheOps(set)

		set.repo.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(model.Booking{ID: "booking-1", CustomerID: "customer-1", Status: model.StatusPending}, nil)

		set.jobs.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(jobModel.Job{ID: "job-1", BookingID: "booking-1"}, nil)

		set.jobService.EXPECT().
			Cancel(gomock.Any(), "job-1", "customer-1", gomock.Any()).
			Return(nil)

		err := svc.Cancel(context.Background(), "booking-1", "customer-1", dto.CancelBookingRequest{Reason: "changed plans"})

		assert.NoError(t, err)
	})

	t.Run("composite cancel sweeps active children then the parent", func(t *testing.T) {
		svc, set := newService(t)
		allowCacheOps(set)

		parent := model.Booking{
			ID:                       "parent-1",
			CustomerID:               "customer-1",
			Status:                   model.StatusWorkerAssigned,
			IsMultipleServiceBooking: true,
		}

		set.repo.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(parent, nil)

		set.repo.EXPECT().
			GetChildren(gomock.Any(), "parent-1").
			Return([]model.Booking{
				{ID: "child-1", Status: model.StatusWorkerAssigned},
				{ID: "child-2", Status: model.StatusCancelled},
			}, nil)

		set.jobs.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(jobModel.Job{ID: "job-1", BookingID: "child-1"}, nil)

		set.jobService.EXPECT().
			Cancel(gomock.Any(), "job-1", "customer-1", gomock.Any()).
			Return(nil)

		set.repo.EXPECT().
			UpdateChecked(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(int64(1), nil)

		set.notification.EXPECT().
			Dispatch(gomock.Any(), gomock.Any())

		err := svc.Cancel(context.Background(), "parent-1", "customer-1", dto.CancelBookingRequest{Reason: "changed plans"})

		assert.NoError(t, err)
	})

	t.Run("composite cancel by a stranger is forbidden", func(t *testing.T) {
		svc, set := newService(t)

		set.repo.EXPECT().
			Get(gomock.Any(), gomock.Any()).
			Return(model.Booking{ID: "parent-1", CustomerID: "customer-1", IsMultipleServiceBooking: true}, nil)

		err := svc.Cancel(context.Background(), "parent-1", "stranger", dto.CancelBookingRequest{Reason: "nope"})

		assert.Error(t, err)
		assert.Equal(t, 403, failure.GetCode(err))
	})
}
