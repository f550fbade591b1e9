package job

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"tukang/infras/otel"
	"tukang/internal/domains/job/model"
	"tukang/internal/domains/job/model/dto"
	"tukang/internal/domains/job/service"
	"tukang/shared/constant"
	gDto "tukang/shared/dto"
	"tukang/shared/validator"
	"tukang/transport/http/response"
)

type Handler struct {
	service service.Job
	otel    otel.Otel
}

func New(service service.Job, otel otel.Otel) Handler {
	return Handler{
		service: service,
		otel:    otel,
	}
}

func (handler *Handler) Router(router chi.Router) {
	router.Route("/jobs", func(routerGroup chi.Router) {
		routerGroup.Get("/", handler.GetJobs)
		routerGroup.Get("/{id}", handler.GetJobByID)
		routerGroup.Post("/{id}/accept", handler.AcceptJob)
		routerGroup.Post("/{id}/reject", handler.RejectJob)
		routerGroup.Post("/{id}/start", handler.StartJob)
		routerGroup.Post("/{id}/complete", handler.CompleteJob)
		routerGroup.Post("/{id}/cancel", handler.CancelJob)
	})
}

// GetJobs lists jobs with optional status and service type filters.
// @Summary Get all jobs
// @Tags Job
// @Produce json
// @Param status query string false "Filter by status"
// @Param service_type query string false "Filter by service type"
// @Success 200 {object} dto.GetJobsResponse
// @Failure 500 {object} response.Error
// @Router /v1/jobs [get]
// @Security BearerAuth
func (handler *Handler) GetJobs(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetJobs")
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

	jobs, err := handler.service.GetAll(ctx, queryParams, filterGroup)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get jobs")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Jobs retrieved successfully")

	response.WithJSON(w, http.StatusOK, jobs)
}

// GetJobByID returns one job with its decoded payment details.
// @Summary Get a job by ID
// @Tags Job
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} dto.JobResponse
// @Failure 404 {object} response.Error
// @Router /v1/jobs/{id} [get]
// @Security BearerAuth
func (handler *Handler) GetJobByID(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetJobByID")
	defer scope.End()

	id := chi.URLParam(r, constant.RequestParamID)

	job, err := handler.service.Get(ctx, id)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get job by ID")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Job retrieved successfully")

	response.WithJSON(w, http.StatusOK, job)
}

// AcceptJob claims the job for the authenticated worker. The first candidate
// to land here wins; late arrivals get a conflict.
// @Summary Accept a job
// @Tags Job
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Message
// @Failure 403 {object} response.Error
// @Failure 409 {object} response.Error
// @Router /v1/jobs/{id}/accept [post]
// @Security BearerAuth
func (handler *Handler) AcceptJob(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".AcceptJob")
	defer scope.End()

	id := chi.URLParam(r, constant.RequestParamID)
	workerID, _ := ctx.Value(constant.ContextKeyUserID).(string)

	if err := handler.service.Accept(ctx, id, workerID); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to accept job")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Job accepted successfully by worker " + workerID)

	response.WithMessage(w, http.StatusOK, "Job accepted successfully")
}

// RejectJob backs the authenticated worker out of the job, whether they are
// still a candidate or already assigned.
// @Summary Reject a job
// @Tags Job
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Message
// @Failure 409 {object} response.Error
// @Router /v1/jobs/{id}/reject [post]
// @Security BearerAuth
func (handler *Handler) RejectJob(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".RejectJob")
	defer scope.End()

	id := chi.URLParam(r, constant.RequestParamID)
	workerID, _ := ctx.Value(constant.ContextKeyUserID).(string)

	if err := handler.service.Reject(ctx, id, workerID); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to reject job")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Job rejected by worker " + workerID)

	response.WithMessage(w, http.StatusOK, "Job rejected successfully")
}

// StartJob moves the assigned worker's job into progress.
// @Summary Start a job
// @Tags Job
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Message
// @Failure 403 {object} response.Error
// @Failure 409 {object} response.Error
// @Router /v1/jobs/{id}/start [post]
// @Security BearerAuth
func (handler *Handler) StartJob(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".StartJob")
	defer scope.End()

	id := chi.URLParam(r, constant.RequestParamID)
	workerID, _ := ctx.Value(constant.ContextKeyUserID).(string)

	if err := handler.service.Start(ctx, id, workerID); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to start job")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Job started by worker " + workerID)

	response.WithMessage(w, http.StatusOK, "Job started successfully")
}

// CompleteJob settles the job and credits the worker's earnings.
// @Summary Complete a job
// @Tags Job
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Message
// @Failure 403 {object} response.Error
// @Failure 409 {object} response.Error
// @Router /v1/jobs/{id}/complete [post]
// @Security BearerAuth
func (handler *Handler) CompleteJob(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".CompleteJob")
	defer scope.End()

	id := chi.URLParam(r, constant.RequestParamID)
	workerID, _ := ctx.Value(constant.ContextKeyUserID).(string)

	if err := handler.service.Complete(ctx, id, workerID); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to complete job")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Job completed by worker " + workerID)

	response.WithMessage(w, http.StatusOK, "Job completed successfully")
}

// CancelJob cancels the job on behalf of the customer.
// @Summary Cancel a job
// @Tags Job
// @Accept json
// @Produce json
// @Param id path string true "Job ID"
// @Param request body dto.CancelJobRequest true "Cancel Job Request"
// @Success 200 {object} response.Message
// @Failure 403 {object} response.Error
// @Failure 409 {object} response.Error
// @Router /v1/jobs/{id}/cancel [post]
// @Security BearerAuth
func (handler *Handler) CancelJob(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".CancelJob")
	defer scope.End()

	id := chi.URLParam(r, constant.RequestParamID)

	req := dto.CancelJobRequest{}
	if err := validator.Validate(r.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(w, err)

		return
	}

	actorID, _ := ctx.Value(constant.ContextKeyUserID).(string)

	if err := handler.service.Cancel(ctx, id, actorID, req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to cancel job")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Job cancelled by user " + actorID)

	response.WithMessage(w, http.StatusOK, "Job cancelled successfully")
}
