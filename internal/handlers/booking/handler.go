package booking

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"tukang/infras/otel"
	"tukang/internal/domains/booking/model"
	"tukang/internal/domains/booking/model/dto"
	"tukang/internal/domains/booking/service"
	"tukang/shared/constant"
	gDto "tukang/shared/dto"
	"tukang/shared/validator"
	"tukang/transport/http/response"
)

type Handler struct {
	service service.Booking
	otel    otel.Otel
}

func New(service service.Booking, otel otel.Otel) Handler {
	return Handler{
		service: service,
		otel:    otel,
	}
}

func (handler *Handler) Router(router chi.Router) {
	router.Route("/bookings", func(routerGroup chi.Router) {
		routerGroup.Post("/", handler.CreateBooking)
		routerGroup.Get("/", handler.GetBookings)
		routerGroup.Get("/my", handler.GetMyBookings)
		routerGroup.Get("/{id}", handler.GetBookingByID)
		routerGroup.Post("/{id}/accept", handler.AcceptBooking)
		routerGroup.Post("/{id}/reject", handler.RejectBooking)
		routerGroup.Post("/{id}/cancel", handler.CancelBooking)
		routerGroup.Post("/{id}/request-completion", handler.RequestCompletion)
		routerGroup.Post("/{id}/verify-completion", handler.VerifyCompletion)
		routerGroup.Post("/{id}/review", handler.SubmitReview)
	})
}

// CreateBooking books one or several services for the authenticated customer.
// @Summary Create a booking
// @Description Book a single service, or several at once via the services array.
// @Tags Booking
// @Accept json
// @Produce json
// @Param request body dto.CreateBookingRequest true "Create Booking Request"
// @Success 201 {object} dto.BookingResponse
// @Failure 400 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/bookings [post]
// @Security BearerAuth
func (handler *Handler) CreateBooking(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".CreateBooking")
	defer scope.End()

	req := dto.CreateBookingRequest{}

	if err := validator.Validate(request.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(writer, err)

		return
	}

	customerID, _ := ctx.Value(constant.ContextKeyUserID).(string)

	res, err := handler.service.Create(ctx, customerID, req)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to create booking")

		response.WithError(writer, err)

		return
	}

	scope.AddEvent("Booking created successfully by user " + customerID)

	response.WithJSON(writer, http.StatusCreated, res)
}

// GetBookings lists bookings with optional status and service type filters.
// @Summary Get all bookings
// @Tags Booking
// @Produce json
// @Param status query string false "Filter by status"
// @Param service_type query string false "Filter by service type"
// @Success 200 {object} dto.GetBookingsResponse
// @Failure 500 {object} response.Error
// @Router /v1/bookings [get]
// @Security BearerAuth
func (handler *Handler) GetBookings(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetBookings")
	defer scope.End()

	queryParams := gDto.QueryParams{}
	queryParams.FromRequest(r, true)

	filterGroup := gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
	}

	if status := r.URL.Query().Get(model.FieldStatus); status != "" {
		filterGroup.Filters = append(filterGroup.Filters, gDto.Filter{
			Field:    model.FieldStatus,
			Operator: gDto.FilterOperatorEq,
			Value:    status,
			Table:    model.TableName,
		})
	}

	if serviceType := r.URL.Query().Get(model.FieldServiceType); serviceType != "" {
		filterGroup.Filters = append(filterGroup.Filters, gDto.Filter{
			Field:    model.FieldServiceType,
			Operator: gDto.FilterOperatorEq,
			Value:    serviceType,
			Table:    model.TableName,
		})
	}

	bookings, err := handler.service.GetAll(ctx, queryParams, filterGroup)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get bookings")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Bookings retrieved successfully")

	response.WithJSON(w, http.StatusOK, bookings)
}

// GetMyBookings lists the authenticated customer's own bookings.
// @Summary Get my bookings
// @Tags Booking
// @Produce json
// @Success 200 {object} dto.GetBookingsResponse
// @Failure 500 {object} response.Error
// @Router /v1/bookings/my [get]
// @Security BearerAuth
func (handler *Handler) GetMyBookings(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetMyBookings")
	defer scope.End()

	queryParams := gDto.QueryParams{}
	queryParams.FromRequest(r, true)

	customerID, _ := ctx.Value(constant.ContextKeyUserID).(string)

	bookings, err := handler.service.My(ctx, customerID, queryParams)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get my bookings")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Bookings retrieved successfully")

	response.WithJSON(w, http.StatusOK, bookings)
}

// GetBookingByID returns one booking, children included for composite parents.
// @Summary Get a booking by ID
// @Tags Booking
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} dto.BookingResponse
// @Failure 404 {object} response.Error
// @Router /v1/bookings/{id} [get]
// @Security BearerAuth
func (handler *Handler) GetBookingByID(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetBookingByID")
	defer scope.End()

	id := chi.URLParam(r, constant.RequestParamID)

	booking, err := handler.service.Get(ctx, id)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get booking by ID")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Booking retrieved successfully")

	response.WithJSON(w, http.StatusOK, booking)
}

// AcceptBooking claims the booking for the authenticated worker.
// @Summary Accept a booking
// @Tags Booking
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} response.Message
// @Failure 403 {object} response.Error
// @Failure 409 {object} response.Error
// @Router /v1/bookings/{id}/accept [post]
// @Security BearerAuth
func (handler *Handler) AcceptBooking(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".AcceptBooking")
	defer scope.End()

	id := chi.URLParam(r, constant.RequestParamID)
	workerID, _ := ctx.Value(constant.ContextKeyUserID).(string)

	if err := handler.service.AcceptByWorker(ctx, id, workerID); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to accept booking")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Booking accepted successfully by worker " + workerID)

	response.WithMessage(w, http.StatusOK, "Booking accepted successfully")
}

// RejectBooking backs the authenticated worker out of the booking, whether
// they are still a candidate or already assigned.
// @Summary Reject a booking
// @Tags Booking
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} response.Message
// @Failure 409 {object} response.Error
// @Router /v1/bookings/{id}/reject [post]
// @Security BearerAuth
func (handler *Handler) RejectBooking(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".RejectBooking")
	defer scope.End()

	id := chi.URLParam(r, constant.RequestParamID)
	workerID, _ := ctx.Value(constant.ContextKeyUserID).(string)

	if err := handler.service.RejectByWorker(ctx, id, workerID); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to reject booking")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Booking rejected by worker " + workerID)

	response.WithMessage(w, http.StatusOK, "Booking rejected successfully")
}

// CancelBooking cancels the booking on behalf of the customer.
// @Summary Cancel a booking
// @Tags Booking
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param request body dto.CancelBookingRequest true "Cancel Booking Request"
// @Success 200 {object} response.Message
// @Failure 409 {object} response.Error
// @Router /v1/bookings/{id}/cancel [post]
// @Security BearerAuth
func (handler *Handler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".CancelBooking")
	defer scope.End()

	id := chi.URLParam(r, constant.RequestParamID)

	req := dto.CancelBookingRequest{}
	if err := validator.Validate(r.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(w, err)

		return
	}

	actorID, _ := ctx.Value(constant.ContextKeyUserID).(string)

	if err := handler.service.Cancel(ctx, id, actorID, req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to cancel booking")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Booking cancelled by user " + actorID)

	response.WithMessage(w, http.StatusOK, "Booking cancelled successfully")
}

// RequestCompletion issues a completion code for the booking and sends it to
// the customer.
// @Summary Request booking completion
// @Tags Booking
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} dto.CompletionOTPResponse
// @Failure 409 {object} response.Error
// @Router /v1/bookings/{id}/request-completion [post]
// @Security BearerAuth
func (handler *Handler) RequestCompletion(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".RequestCompletion")
	defer scope.End()

	id := chi.URLParam(r, constant.RequestParamID)
	workerID, _ := ctx.Value(constant.ContextKeyUserID).(string)

	res, err := handler.service.RequestCompletion(ctx, id, workerID)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to request completion")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Completion requested by worker " + workerID)

	response.WithJSON(w, http.StatusOK, res)
}

// VerifyCompletion consumes the completion code and settles the booking.
// @Summary Verify booking completion
// @Tags Booking
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param request body dto.VerifyCompletionRequest true "Verify Completion Request"
// @Success 200 {object} response.Message
// @Failure 400 {object} response.Error
// @Failure 409 {object} response.Error
// @Router /v1/bookings/{id}/verify-completion [post]
// @Security BearerAuth
func (handler *Handler) VerifyCompletion(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".VerifyCompletion")
	defer scope.End()

	id := chi.URLParam(r, constant.RequestParamID)

	req := dto.VerifyCompletionRequest{}
	if err := validator.Validate(r.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(w, err)

		return
	}

	workerID, _ := ctx.Value(constant.ContextKeyUserID).(string)

	if err := handler.service.VerifyCompletion(ctx, id, workerID, req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to verify completion")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Booking completed by worker " + workerID)

	response.WithMessage(w, http.StatusOK, "Booking completed successfully")
}

// SubmitReview stores the customer's write-once rating for the booking.
// @Summary Review a booking
// @Tags Booking
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param request body dto.ReviewRequest true "Review Request"
// @Success 200 {object} response.Message
// @Failure 409 {object} response.Error
// @Router /v1/bookings/{id}/review [post]
// @Security BearerAuth
func (handler *Handler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".SubmitReview")
	defer scope.End()

	id := chi.URLParam(r, constant.RequestParamID)

	req := dto.ReviewRequest{}
	if err := validator.Validate(r.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(w, err)

		return
	}

	customerID, _ := ctx.Value(constant.ContextKeyUserID).(string)

	if err := handler.service.SubmitReview(ctx, id, customerID, req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to submit review")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Review submitted by user " + customerID)

	response.WithMessage(w, http.StatusOK, "Review submitted successfully")
}
