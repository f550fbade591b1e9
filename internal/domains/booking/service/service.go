package service

//go:generate go run go.uber.org/mock/mockgen -source=./service.go -destination=../mocks/service_mock.go -package=mocks -mock_names=Booking=MockBookingService

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"tukang/config"
	"tukang/infras/otel"
	"tukang/internal/domains/booking/model"
	"tukang/internal/domains/booking/model/dto"
	"tukang/internal/domains/booking/repository"
	"tukang/internal/domains/commission"
	jobModel "tukang/internal/domains/job/model"
	jobDto "tukang/internal/domains/job/model/dto"
	jobRepo "tukang/internal/domains/job/repository"
	jobService "tukang/internal/domains/job/service"
	notificationModel "tukang/internal/domains/notification/model"
	notificationDto "tukang/internal/domains/notification/model/dto"
	notificationService "tukang/internal/domains/notification/service"
	"tukang/internal/domains/pricing"
	workerService "tukang/internal/domains/worker/service"
	"tukang/shared"
	"tukang/shared/cache"
	"tukang/shared/constant"
	gDto "tukang/shared/dto"
	"tukang/shared/failure"
	"tukang/shared/timezone"
)

const (
	cacheGetBooking    = "booking:get"
	cacheGetAllBooking = "booking:gets"
	cacheCountBooking  = "booking:count"
)

// CompositeServiceType marks the parent row of a multi-service booking. The
// parent carries the aggregate money figures and the per-line breakdown; the
// work itself lives on the children.
const CompositeServiceType = "multiple"

type Booking interface {
	Create(ctx context.Context, customerID string, req dto.CreateBookingRequest) (dto.BookingResponse, error)
	Get(ctx context.Context, id string) (dto.BookingResponse, error)
	GetAll(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (dto.GetBookingsResponse, error)
	Count(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (int, error)
	My(ctx context.Context, customerID string, req gDto.QueryParams) (dto.GetBookingsResponse, error)
	AcceptByWorker(ctx context.Context, bookingID, workerID string) error
	RejectByWorker(ctx context.Context, bookingID, workerID string) error
	Cancel(ctx context.Context, bookingID, actorID string, req dto.CancelBookingRequest) error
	RequestCompletion(ctx context.Context, bookingID, workerID string) (dto.CompletionOTPResponse, error)
	VerifyCompletion(ctx context.Context, bookingID, workerID string, req dto.VerifyCompletionRequest) error
	SubmitReview(ctx context.Context, bookingID, customerID string, req dto.ReviewRequest) error
}

type serviceImpl struct {
	repo         repository.Booking
	jobs         jobRepo.Job
	jobService   jobService.Job
	workers      workerService.Worker
	notification notificationService.Notification
	pricing      pricing.Resolver
	cfg          *config.Config
	cache        cache.RedisCache
	otel         otel.Otel
}

func New(
	repo repository.Booking,
	jobs jobRepo.Job,
	jobSvc jobService.Job,
	workers workerService.Worker,
	notification notificationService.Notification,
	resolver pricing.Resolver,
	cfg *config.Config,
	cache cache.RedisCache,
	otel otel.Otel,
) Booking {
	return &serviceImpl{
		repo:         repo,
		jobs:         jobs,
		jobService:   jobSvc,
		workers:      workers,
		notification: notification,
		pricing:      resolver,
		cfg:          cfg,
		cache:        cache,
		otel:         otel,
	}
}

// Create books one service, or a whole set at once. Pricing never blocks the
// booking: a failed distance resolution falls back to a zero-distance quote.
// The booking stays pending until a worker claims the paired job; candidate
// fan-out is notification only.
func (s *serviceImpl) Create(ctx context.Context, customerID string, req dto.CreateBookingRequest) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".booking.Create")
	defer scope.End()
	defer scope.TraceIfError(err)

	quote := s.pricing.Resolve(ctx, pricing.Address{
		Street:  req.AddressStreet,
		City:    req.AddressCity,
		State:   req.AddressState,
		Pincode: req.AddressPincode,
	})

	if req.Composite() {
		return s.createComposite(ctx, customerID, req, quote)
	}

	now := timezone.Now()
	split := commission.SplitAmount(req.Amount, quote.DistanceCharge)

	booking := baseBooking(customerID, req, now)
	booking.ServiceType = req.ServiceType
	booking.ServiceTitle = req.ServiceTitle
	booking.Amount = req.Amount
	booking.DistanceCharge = quote.DistanceCharge
	booking.TotalAmount = split.TotalAmount
	booking.AdminCommission = split.AdminCommission
	booking.WorkerPayment = split.WorkerPayment
	booking.DistanceKm = quote.DistanceKm

	candidates, err := s.candidateIDs(ctx, req.ServiceType)
	if err != nil {
		return res, err
	}

	if err = s.repo.Insert(ctx, booking); err != nil {
		log.Error().Err(err).Msg("failed to insert booking")

		return res, fmt.Errorf("failed to insert booking: %w", err)
	}

	job := buildJob(booking, candidates, now)
	if err = s.jobs.Insert(ctx, job); err != nil {
		log.Error().Err(err).Str("bookingID", booking.ID).Msg("failed to insert job for booking")

		return res, fmt.Errorf("failed to insert job for booking: %w", err)
	}

	s.notifyCreated(ctx, booking, job, candidates)
	s.invalidateLists(ctx)

	res.FromModel(booking)

	return res, nil
}

func (s *serviceImpl) createComposite(ctx context.Context, customerID string, req dto.CreateBookingRequest, quote pricing.Quote) (res dto.BookingResponse, err error) {
	now := timezone.Now()

	lines := make([]commission.Line, len(req.Services))
	for i, service := range req.Services {
		lines[i] = commission.Line{
			ServiceType: service.ServiceType,
			Title:       service.Title,
			Amount:      service.Amount,
			Quantity:    service.Quantity,
		}
	}

	multi := commission.SplitLines(lines, quote.DistanceCharge)
	shares := commission.DistributeCharge(quote.DistanceCharge, len(lines))

	parent := baseBooking(customerID, req, now)
	parent.ServiceType = CompositeServiceType
	parent.ServiceTitle = "Multiple Services"
	parent.IsMultipleServiceBooking = true
	parent.DistanceCharge = quote.DistanceCharge
	parent.DistanceKm = quote.DistanceKm
	parent.AdminCommission = multi.Aggregate.AdminCommission
	parent.WorkerPayment = multi.Aggregate.WorkerPayment
	parent.TotalAmount = multi.Aggregate.TotalAmount
	parent.Amount = multi.Aggregate.TotalAmount - quote.DistanceCharge

	children := make([]model.Booking, len(multi.Lines))
	jobs := make([]jobModel.Job, len(multi.Lines))
	breakdown := make([]model.BreakdownLine, len(multi.Lines))
	candidatesPerChild := make([][]string, len(multi.Lines))

	for i, line := range multi.Lines {
		candidates, err := s.candidateIDs(ctx, line.ServiceType)
		if err != nil {
			return res, err
		}

		lineAmount := line.Amount * float64(max(line.Quantity, 1))
		split := commission.SplitAmount(lineAmount, shares[i])

		child := baseBooking(customerID, req, now)
		child.ServiceType = line.ServiceType
		child.ServiceTitle = line.Title
		child.Amount = lineAmount
		child.DistanceCharge = shares[i]
		child.TotalAmount = split.TotalAmount
		child.AdminCommission = split.AdminCommission
		child.WorkerPayment = split.WorkerPayment
		child.DistanceKm = quote.DistanceKm
		child.ParentBookingID = sql.NullString{String: parent.ID, Valid: true}

		children[i] = child
		jobs[i] = buildJob(child, candidates, now)
		candidatesPerChild[i] = candidates
		breakdown[i] = model.BreakdownLine{
			ServiceType:    line.ServiceType,
			Title:          line.Title,
			Amount:         lineAmount,
			Quantity:       max(line.Quantity, 1),
			ChildBookingID: child.ID,
		}
	}

	payload, err := json.Marshal(breakdown)
	if err != nil {
		log.Error().Err(err).Msg("failed to encode service breakdown")

		return res, fmt.Errorf("failed to encode service breakdown: %w", err)
	}
	parent.ServiceBreakdown = sql.NullString{String: string(payload), Valid: true}

	if err = s.repo.Insert(ctx, parent); err != nil {
		log.Error().Err(err).Msg("failed to insert parent booking")

		return res, fmt.Errorf("failed to insert parent booking: %w", err)
	}

	if err = s.repo.InsertBulk(ctx, children); err != nil {
		log.Error().Err(err).Str("parentID", parent.ID).Msg("failed to insert child bookings")

		return res, fmt.Errorf("failed to insert child bookings: %w", err)
	}

	for i, job := range jobs {
		if err = s.jobs.Insert(ctx, job); err != nil {
			log.Error().Err(err).Str("bookingID", children[i].ID).Msg("failed to insert job for booking")

			return res, fmt.Errorf("failed to insert job for booking: %w", err)
		}

		s.notifyCreated(ctx, children[i], job, candidatesPerChild[i])
	}

	s.invalidateLists(ctx)

	res.FromModel(parent)
	res.Children = make([]dto.BookingResponse, len(children))
	for i, child := range children {
		res.Children[i].FromModel(child)
	}

	return res, nil
}

func (s *serviceImpl) Get(ctx context.Context, id string) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".booking.Get")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildCacheKey(cacheGetBooking, id)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for booking")

		return res, nil
	}

	booking, err := s.getBooking(ctx, id)
	if err != nil {
		return res, err
	}

	res.FromModel(booking)

	if booking.IsMultipleServiceBooking {
		children, err := s.repo.GetChildren(ctx, booking.ID)
		if err != nil {
			log.Error().Err(err).Str("bookingID", booking.ID).Msg("failed to get child bookings")

			return res, fmt.Errorf("failed to get child bookings: %w", err)
		}

		res.Children = make([]dto.BookingResponse, len(children))
		for i, child := range children {
			res.Children[i].FromModel(child)
		}
	}

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save booking to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) GetAll(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (res dto.GetBookingsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".booking.GetAll")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildCacheKeyWithQuery(cacheGetAllBooking, req, filter)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for bookings")

		return res, nil
	}

	total, err := s.Count(ctx, req, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count bookings")

		return res, fmt.Errorf("failed to count bookings: %w", err)
	}

	models, err := s.repo.GetAll(ctx, req, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to get bookings")

		return res, fmt.Errorf("failed to get bookings: %w", err)
	}

	res.FromModels(models, total, req.Limit)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save bookings to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) Count(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (res int, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".booking.Count")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildCacheKeyWithQuery(cacheCountBooking, req, filter)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for booking count")

		return res, nil
	}

	res, err = s.repo.Count(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count bookings")

		return res, fmt.Errorf("failed to count bookings: %w", err)
	}

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save booking count to cache")
		}
	}()

	return res, nil
}

// My lists the caller's own bookings, child rows excluded so a composite order
// shows up once.
func (s *serviceImpl) My(ctx context.Context, customerID string, req gDto.QueryParams) (dto.GetBookingsResponse, error) {
	filter := gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters: []any{
			gDto.Filter{
				Field:    model.FieldCustomerID,
				Value:    customerID,
				Operator: gDto.FilterOperatorEq,
				Table:    model.TableName,
			},
			gDto.Filter{
				Field:    model.FieldParentBookingID,
				Operator: gDto.FilterIsNull,
				Table:    model.TableName,
			},
		},
	}

	return s.GetAll(ctx, req, filter)
}

// AcceptByWorker claims the paired job for the worker. The job row is the claim
// authority; its conditional UPDATE decides races and mirrors the state back
// onto this booking.
func (s *serviceImpl) AcceptByWorker(ctx context.Context, bookingID, workerID string) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".booking.AcceptByWorker")
	defer scope.End()
	defer scope.TraceIfError(err)

	booking, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return err
	}

	if booking.IsMultipleServiceBooking {
		return failure.BadRequestFromString("accept the individual service bookings of this order") // nolint:wrapcheck
	}

	job, err := s.jobByBooking(ctx, bookingID)
	if err != nil {
		return err
	}

	if err = s.jobService.Accept(ctx, job.ID, workerID); err != nil {
		return err
	}

	if booking.ParentBookingID.Valid {
		s.advanceParent(ctx, booking.ParentBookingID.String)
	}

	s.invalidateBooking(ctx, bookingID)

	return nil
}

// RejectByWorker backs the worker out of the paired job. A candidate leaves
// the pool; the assigned worker gives the claim back, which reverts this
// booking to pending and re-offers the job. When nobody is left the job side
// alerts admins.
func (s *serviceImpl) RejectByWorker(ctx context.Context, bookingID, workerID string) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".booking.RejectByWorker")
	defer scope.End()
	defer scope.TraceIfError(err)

	job, err := s.jobByBooking(ctx, bookingID)
	if err != nil {
		return err
	}

	if err = s.jobService.Reject(ctx, job.ID, workerID); err != nil {
		return err
	}

	s.invalidateBooking(ctx, bookingID)

	return nil
}

func (s *serviceImpl) Cancel(ctx context.Context, bookingID, actorID string, req dto.CancelBookingRequest) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".booking.Cancel")
	defer scope.End()
	defer scope.TraceIfError(err)

	booking, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return err
	}

	if booking.IsMultipleServiceBooking {
		return s.cancelComposite(ctx, booking, actorID, req)
	}

	job, err := s.jobByBooking(ctx, bookingID)
	if err != nil {
		return err
	}

	if err = s.jobService.Cancel(ctx, job.ID, actorID, jobDto.CancelJobRequest{Reason: req.Reason}); err != nil {
		return err
	}

	if booking.ParentBookingID.Valid {
		s.advanceParent(ctx, booking.ParentBookingID.String)
	}

	s.invalidateBooking(ctx, bookingID)

	return nil
}

// cancelComposite cancels every still-active child, then the parent itself.
// Children already in progress are left alone and keep the parent active.
func (s *serviceImpl) cancelComposite(ctx context.Context, parent model.Booking, actorID string, req dto.CancelBookingRequest) error {
	if actorID != parent.CustomerID {
		return failure.Forbidden("only the customer can cancel this booking") // nolint:wrapcheck
	}

	children, err := s.repo.GetChildren(ctx, parent.ID)
	if err != nil {
		log.Error().Err(err).Str("bookingID", parent.ID).Msg("failed to get child bookings")

		return fmt.Errorf("failed to get child bookings: %w", err)
	}

	for _, child := range children {
		if !child.Active() {
			continue
		}

		job, err := s.jobByBooking(ctx, child.ID)
		if err != nil {
			log.Error().Err(err).Str("bookingID", child.ID).Msg("failed to resolve job for child booking")

			continue
		}

		if err := s.jobService.Cancel(ctx, job.ID, actorID, jobDto.CancelJobRequest{Reason: req.Reason}); err != nil {
			log.Warn().Err(err).Str("bookingID", child.ID).Msg("child booking not cancelled")
		}

		s.invalidateBooking(ctx, child.ID)
	}

	now := timezone.Now()

	affected, err := s.repo.UpdateChecked(ctx, map[string]any{
		model.FieldStatus:        model.StatusCancelled,
		"cancelled_at":           now,
		"cancel_reason":          req.Reason,
		constant.FieldModifiedAt: now,
		constant.FieldModifiedBy: actorID,
	}, filterByIDAndStatuses(parent.ID, []string{model.StatusPending, model.StatusWorkerAssigned, model.StatusAccepted, model.StatusInProgress}))
	if err != nil {
		log.Error().Err(err).Msg("failed to cancel booking")

		return fmt.Errorf("failed to cancel booking: %w", err)
	}

	if affected == 0 {
		return failure.Conflict("booking can no longer be cancelled") // nolint:wrapcheck
	}

	s.notification.Dispatch(ctx, notificationDto.DispatchRequest{
		Type:      notificationModel.TypeBookingCancelled,
		Message:   fmt.Sprintf("Your multi-service booking was cancelled: %s", req.Reason),
		BookingID: parent.ID,
		Recipients: []notificationDto.Recipient{
			{ID: parent.CustomerID, Kind: notificationModel.RecipientCustomer},
			{ID: notificationModel.AdminBroadcastID, Kind: notificationModel.RecipientAdmin},
		},
	})

	s.invalidateBooking(ctx, parent.ID)

	return nil
}

// RequestCompletion issues a short-lived completion code and delivers it to the
// customer. The worker closes the loop through VerifyCompletion.
func (s *serviceImpl) RequestCompletion(ctx context.Context, bookingID, workerID string) (res dto.CompletionOTPResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".booking.RequestCompletion")
	defer scope.End()
	defer scope.TraceIfError(err)

	booking, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return res, err
	}

	if booking.WorkerID.String != workerID {
		return res, failure.Forbidden("only the assigned worker can request completion") // nolint:wrapcheck
	}

	otp, err := s.generateOTP()
	if err != nil {
		log.Error().Err(err).Msg("failed to generate completion code")

		return res, fmt.Errorf("failed to generate completion code: %w", err)
	}

	now := timezone.Now()
	expires := now.Add(time.Duration(s.cfg.Booking.OTPTTLMinutes) * time.Minute)

	affected, err := s.repo.UpdateChecked(ctx, map[string]any{
		"completion_otp":         otp,
		"completion_otp_expires": expires,
		constant.FieldModifiedAt: now,
		constant.FieldModifiedBy: workerID,
	}, filterByIDAndStatuses(bookingID, []string{model.StatusWorkerAssigned, model.StatusAccepted, model.StatusInProgress}))
	if err != nil {
		log.Error().Err(err).Msg("failed to store completion code")

		return res, fmt.Errorf("failed to store completion code: %w", err)
	}

	if affected == 0 {
		return res, failure.Conflict("booking cannot be completed in its current state") // nolint:wrapcheck
	}

	s.notification.Dispatch(ctx, notificationDto.DispatchRequest{
		Type:      notificationModel.TypeCompletionOTP,
		Message:   fmt.Sprintf("Share this code with your worker to confirm completion: %s", otp),
		BookingID: bookingID,
		Recipients: []notificationDto.Recipient{
			{ID: booking.CustomerID, Kind: notificationModel.RecipientCustomer},
		},
	})

	s.invalidateBooking(ctx, bookingID)

	res.BookingID = bookingID
	res.ExpiresAt = expires.Format(constant.DateFormat)

	return res, nil
}

// VerifyCompletion consumes the completion code. Expiry is checked lazily here,
// there is no background sweeper. The status guard makes the code single-use.
func (s *serviceImpl) VerifyCompletion(ctx context.Context, bookingID, workerID string, req dto.VerifyCompletionRequest) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".booking.VerifyCompletion")
	defer scope.End()
	defer scope.TraceIfError(err)

	booking, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return err
	}

	if booking.WorkerID.String != workerID {
		return failure.Forbidden("only the assigned worker can verify completion") // nolint:wrapcheck
	}

	if !booking.CompletionOTP.Valid {
		return failure.Conflict("no completion code has been requested") // nolint:wrapcheck
	}

	now := timezone.Now()

	if booking.CompletionOTPExpires.Valid && now.After(booking.CompletionOTPExpires.Time) {
		return failure.Conflict("completion code has expired") // nolint:wrapcheck
	}

	if booking.CompletionOTP.String != req.OTP {
		return failure.BadRequestFromString("completion code does not match") // nolint:wrapcheck
	}

	affected, err := s.repo.UpdateChecked(ctx, map[string]any{
		model.FieldStatus:        model.StatusCompleted,
		"completed_at":           now,
		"completion_otp":         nil,
		"completion_otp_expires": nil,
		constant.FieldModifiedAt: now,
		constant.FieldModifiedBy: workerID,
	}, filterByIDAndStatuses(bookingID, []string{model.StatusWorkerAssigned, model.StatusAccepted, model.StatusInProgress}))
	if err != nil {
		log.Error().Err(err).Msg("failed to complete booking")

		return fmt.Errorf("failed to complete booking: %w", err)
	}

	if affected == 0 {
		return failure.Conflict("booking cannot be completed in its current state") // nolint:wrapcheck
	}

	s.syncJob(ctx, bookingID, map[string]any{
		jobModel.FieldStatus:     jobModel.StatusCompleted,
		"completed_at":           now,
		constant.FieldModifiedAt: now,
		constant.FieldModifiedBy: workerID,
	})

	if err := s.workers.CreditCompletion(ctx, workerID, booking.WorkerPayment, now); err != nil {
		log.Error().Err(err).Str("workerID", workerID).Msg("failed to credit worker after completion")
	}

	if booking.ParentBookingID.Valid {
		s.advanceParent(ctx, booking.ParentBookingID.String)
	}

	s.notification.Dispatch(ctx, notificationDto.DispatchRequest{
		Type:      notificationModel.TypeBookingCompleted,
		Message:   fmt.Sprintf("Your %s booking has been completed", booking.ServiceType),
		BookingID: bookingID,
		Recipients: []notificationDto.Recipient{
			{ID: booking.CustomerID, Kind: notificationModel.RecipientCustomer},
			{ID: notificationModel.AdminBroadcastID, Kind: notificationModel.RecipientAdmin},
		},
	})

	s.invalidateBooking(ctx, bookingID)

	return nil
}

// SubmitReview stores a write-once rating and refreshes the worker's average.
func (s *serviceImpl) SubmitReview(ctx context.Context, bookingID, customerID string, req dto.ReviewRequest) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".booking.SubmitReview")
	defer scope.End()
	defer scope.TraceIfError(err)

	booking, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return err
	}

	if booking.CustomerID != customerID {
		return failure.Forbidden("only the customer can review this booking") // nolint:wrapcheck
	}

	if booking.Status != model.StatusCompleted {
		return failure.Conflict("only completed bookings can be reviewed") // nolint:wrapcheck
	}

	if booking.Reviewed() {
		return failure.Conflict("booking has already been reviewed") // nolint:wrapcheck
	}

	now := timezone.Now()

	affected, err := s.repo.UpdateChecked(ctx, map[string]any{
		model.FieldRating:        req.Rating,
		"review":                 req.Review,
		constant.FieldModifiedAt: now,
		constant.FieldModifiedBy: customerID,
	}, gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters: []any{
			gDto.Filter{
				Field:    model.FieldID,
				Value:    bookingID,
				Operator: gDto.FilterOperatorEq,
				Table:    model.TableName,
			},
			gDto.Filter{
				Field:    model.FieldStatus,
				Value:    model.StatusCompleted,
				Operator: gDto.FilterOperatorEq,
				Table:    model.TableName,
			},
			gDto.Filter{
				Field:    model.FieldRating,
				Value:    0,
				Operator: gDto.FilterOperatorEq,
				Table:    model.TableName,
			},
		},
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to store review")

		return fmt.Errorf("failed to store review: %w", err)
	}

	if affected == 0 {
		return failure.Conflict("booking has already been reviewed") // nolint:wrapcheck
	}

	if booking.WorkerID.Valid {
		if err := s.workers.RecomputeRating(ctx, booking.WorkerID.String); err != nil {
			log.Error().Err(err).Str("workerID", booking.WorkerID.String).Msg("failed to recompute worker rating")
		}

		s.notification.Dispatch(ctx, notificationDto.DispatchRequest{
			Type:      notificationModel.TypeReviewReceived,
			Message:   fmt.Sprintf("You received a %d-star review", req.Rating),
			BookingID: bookingID,
			Recipients: []notificationDto.Recipient{
				{ID: booking.WorkerID.String, Kind: notificationModel.RecipientWorker},
			},
		})
	}

	s.invalidateBooking(ctx, bookingID)

	return nil
}

func (s *serviceImpl) getBooking(ctx context.Context, id string) (model.Booking, error) {
	booking, err := s.repo.Get(ctx, shared.FilterByID(id, model.FieldID, model.TableName))
	if err != nil {
		log.Error().Err(err).Msg("failed to get booking")

		return booking, fmt.Errorf("failed to get booking: %w", err)
	}

	if booking.ID == constant.Empty {
		return booking, failure.NotFound("booking not found") // nolint:wrapcheck
	}

	return booking, nil
}

func (s *serviceImpl) jobByBooking(ctx context.Context, bookingID string) (jobModel.Job, error) {
	job, err := s.jobs.Get(ctx, gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters: []any{
			gDto.Filter{
				Field:    jobModel.FieldBookingID,
				Value:    bookingID,
				Operator: gDto.FilterOperatorEq,
				Table:    jobModel.TableName,
			},
		},
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to get job for booking")

		return job, fmt.Errorf("failed to get job for booking: %w", err)
	}

	if job.ID == constant.Empty {
		return job, failure.NotFound("job not found for booking") // nolint:wrapcheck
	}

	return job, nil
}

func (s *serviceImpl) candidateIDs(ctx context.Context, serviceType string) ([]string, error) {
	workers, err := s.workers.FindCandidates(ctx, serviceType)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(workers))
	for i, worker := range workers {
		ids[i] = worker.ID
	}

	return ids, nil
}

// syncJob mirrors a booking transition onto the paired job row. Losing the sync
// race is tolerated, the job's own guards decide.
func (s *serviceImpl) syncJob(ctx context.Context, bookingID string, fields map[string]any) {
	affected, err := s.jobs.UpdateChecked(ctx, fields, gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters: []any{
			gDto.Filter{
				Field:    jobModel.FieldBookingID,
				Value:    bookingID,
				Operator: gDto.FilterOperatorEq,
				Table:    jobModel.TableName,
			},
			gDto.Filter{
				Field:    jobModel.FieldStatus,
				Value:    []string{jobModel.StatusAccepted, jobModel.StatusInProgress},
				Operator: gDto.FilterOperatorIn,
				Table:    jobModel.TableName,
			},
		},
	})
	if err != nil {
		log.Error().Err(err).Str("bookingID", bookingID).Msg("failed to sync job with booking transition")

		return
	}

	if affected == 0 {
		log.Warn().Str("bookingID", bookingID).Msg("job not synced, state moved on")
	}
}

// advanceParent re-reads the children of a composite booking and promotes the
// parent when they all line up: every child assigned moves the parent to
// worker_assigned, every child settled moves it to completed. A transient lag
// between a child transition and the parent catching up is expected.
func (s *serviceImpl) advanceParent(ctx context.Context, parentID string) {
	children, err := s.repo.GetChildren(ctx, parentID)
	if err != nil {
		log.Error().Err(err).Str("parentID", parentID).Msg("failed to get child bookings for promotion")

		return
	}

	if len(children) == 0 {
		return
	}

	allAssigned := true
	allSettled := true

	for _, child := range children {
		if !child.WorkerID.Valid && child.Status != model.StatusCancelled {
			allAssigned = false
		}
		if child.Active() {
			allSettled = false
		}
	}

	now := timezone.Now()

	switch {
	case allSettled:
		s.promote(ctx, parentID, map[string]any{
			model.FieldStatus:        model.StatusCompleted,
			"completed_at":           now,
			constant.FieldModifiedAt: now,
			constant.FieldModifiedBy: constant.System,
		}, []string{model.StatusPending, model.StatusWorkerAssigned, model.StatusAccepted, model.StatusInProgress})
	case allAssigned:
		s.promote(ctx, parentID, map[string]any{
			model.FieldStatus:        model.StatusWorkerAssigned,
			"assigned_at":            now,
			constant.FieldModifiedAt: now,
			constant.FieldModifiedBy: constant.System,
		}, []string{model.StatusPending})
	}
}

func (s *serviceImpl) promote(ctx context.Context, parentID string, fields map[string]any, expectedStatuses []string) {
	affected, err := s.repo.UpdateChecked(ctx, fields, filterByIDAndStatuses(parentID, expectedStatuses))
	if err != nil {
		log.Error().Err(err).Str("parentID", parentID).Msg("failed to promote parent booking")

		return
	}

	if affected > 0 {
		s.invalidateBooking(ctx, parentID)
	}
}

func (s *serviceImpl) notifyCreated(ctx context.Context, booking model.Booking, job jobModel.Job, candidates []string) {
	s.notification.Dispatch(ctx, notificationDto.DispatchRequest{
		Type:      notificationModel.TypeBookingCreated,
		Message:   fmt.Sprintf("Your booking for %s has been received", booking.ServiceTitle),
		BookingID: booking.ID,
		JobID:     job.ID,
		Recipients: []notificationDto.Recipient{
			{ID: booking.CustomerID, Kind: notificationModel.RecipientCustomer},
			{ID: notificationModel.AdminBroadcastID, Kind: notificationModel.RecipientAdmin},
		},
	})

	if len(candidates) == 0 {
		return
	}

	recipients := make([]notificationDto.Recipient, len(candidates))
	for i, candidate := range candidates {
		recipients[i] = notificationDto.Recipient{ID: candidate, Kind: notificationModel.RecipientWorker}
	}

	s.notification.Dispatch(ctx, notificationDto.DispatchRequest{
		Type:       notificationModel.TypeJobOffered,
		Message:    fmt.Sprintf("A %s job is available near %s", booking.ServiceType, booking.AddressCity),
		BookingID:  booking.ID,
		JobID:      job.ID,
		Recipients: recipients,
	})
}

func (s *serviceImpl) generateOTP() (string, error) {
	digits := s.cfg.Booking.OTPDigits
	if digits <= 0 {
		digits = 6
	}

	bound := big.NewInt(int64(math.Pow10(digits)))

	n, err := rand.Int(rand.Reader, bound)
	if err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	return fmt.Sprintf("%0*d", digits, n), nil
}

func (s *serviceImpl) invalidateBooking(ctx context.Context, bookingID string) {
	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Delete(c, shared.BuildCacheKey(cacheGetBooking, bookingID)); err != nil {
			log.Error().Err(err).Msg("failed to delete booking cache")
		}

		shared.InvalidateCaches(c, s.cache, cacheGetAllBooking)
		shared.InvalidateCaches(c, s.cache, cacheCountBooking)
	}()
}

func (s *serviceImpl) invalidateLists(ctx context.Context) {
	go func() {
		c := context.WithoutCancel(ctx)

		shared.InvalidateCaches(c, s.cache, cacheGetAllBooking)
		shared.InvalidateCaches(c, s.cache, cacheCountBooking)
	}()
}

func baseBooking(customerID string, req dto.CreateBookingRequest, now time.Time) model.Booking {
	booking := model.Booking{
		ID:             uuid.NewString(),
		CustomerID:     customerID,
		AddressStreet:  req.AddressStreet,
		AddressCity:    req.AddressCity,
		AddressState:   req.AddressState,
		AddressPincode: req.AddressPincode,
		Phone:          req.Phone,
		ScheduledDate:  req.ScheduledDate,
		ScheduledTime:  req.ScheduledTime,
		Status:         model.StatusPending,
	}
	booking.CreatedAt = now
	booking.ModifiedAt = now
	booking.CreatedBy = customerID
	booking.ModifiedBy = customerID

	return booking
}

func buildJob(booking model.Booking, candidates []string, now time.Time) jobModel.Job {
	details := jobModel.Details{
		Title:          booking.ServiceTitle,
		AddressStreet:  booking.AddressStreet,
		AddressCity:    booking.AddressCity,
		AddressState:   booking.AddressState,
		AddressPincode: booking.AddressPincode,
		ScheduledDate:  booking.ScheduledDate,
		ScheduledTime:  booking.ScheduledTime,
		Amount:         booking.Amount,
		DistanceCharge: booking.DistanceCharge,
		TotalAmount:    booking.TotalAmount,
		WorkerPayment:  booking.WorkerPayment,
	}

	payload, err := json.Marshal(details)
	if err != nil {
		log.Error().Err(err).Str("bookingID", booking.ID).Msg("failed to encode job details")
	}

	job := jobModel.Job{
		ID:               uuid.NewString(),
		BookingID:        booking.ID,
		CustomerID:       booking.CustomerID,
		ServiceType:      booking.ServiceType,
		CandidateWorkers: pq.StringArray(candidates),
		RejectedBy:       pq.StringArray{},
		Status:           jobModel.StatusPending,
		Details:          string(payload),
		RequestedAt:      sql.NullTime{Time: now, Valid: true},
	}
	job.CreatedAt = now
	job.ModifiedAt = now
	job.CreatedBy = booking.CustomerID
	job.ModifiedBy = booking.CustomerID

	return job
}

func filterByIDAndStatuses(bookingID string, statuses []string) gDto.FilterGroup {
	return gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters: []any{
			gDto.Filter{
				Field:    model.FieldID,
				Value:    bookingID,
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
