package worker

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"tukang/infras/otel"
	"tukang/internal/domains/worker/model"
	"tukang/internal/domains/worker/model/dto"
	"tukang/internal/domains/worker/service"
	"tukang/shared/constant"
	gDto "tukang/shared/dto"
	"tukang/shared/failure"
	"tukang/shared/validator"
	"tukang/transport/http/response"
)

type Handler struct {
	service service.Worker
	otel    otel.Otel
}

func New(service service.Worker, otel otel.Otel) Handler {
	return Handler{
		service: service,
		otel:    otel,
	}
}

func (handler *Handler) Router(router chi.Router) {
	router.Route("/workers", func(routerGroup chi.Router) {
		routerGroup.Get("/", handler.GetWorkers)
		routerGroup.Get("/candidates", handler.GetCandidates)
		routerGroup.Get("/{id}", handler.GetWorkerByID)
		routerGroup.Get("/{id}/stats", handler.GetWorkerStats)
		routerGroup.Patch("/availability", handler.SetAvailability)
	})
}

// GetWorkers lists workers with an optional availability filter.
// @Summary Get all workers
// @Tags Worker
// @Produce json
// @Param is_available query string false "Filter by availability"
// @Success 200 {object} dto.GetWorkersResponse
// @Failure 500 {object} response.Error
// @Router /v1/workers [get]
// @Security BearerAuth
func (handler *Handler) GetWorkers(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetWorkers")
	defer scope.End()

	queryParams := gDto.QueryParams{}
	queryParams.FromRequest(r, true)

	filterGroup := gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
	}

	if isAvailable := r.URL.Query().Get(model.FieldIsAvailable); isAvailable != "" {
		filterGroup.Filters = append(filterGroup.Filters, gDto.Filter{
			Field:    model.FieldIsAvailable,
			Operator: gDto.FilterOperatorEq,
			Value:    isAvailable == "true",
			Table:    model.TableName,
		})
	}

	workers, err := handler.service.GetAll(ctx, queryParams, filterGroup)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get workers")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Workers retrieved successfully")

	response.WithJSON(w, http.StatusOK, workers)
}

// GetCandidates returns the eligible worker pool for a service type, best
// rated first.
// @Summary Get candidate workers for a service type
// @Tags Worker
// @Produce json
// @Param service_type query string true "Service type"
// @Success 200 {object} dto.GetWorkersResponse
// @Failure 400 {object} response.Error
// @Router /v1/workers/candidates [get]
// @Security BearerAuth
func (handler *Handler) GetCandidates(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetCandidates")
	defer scope.End()

	query := dto.CandidateQuery{
		ServiceType: r.URL.Query().Get("service_type"),
	}

	if err := validator.ValidateStruct(&query); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate candidate query")

		response.WithError(w, failure.BadRequest(err))

		return
	}

	candidates, err := handler.service.FindCandidates(ctx, query.ServiceType)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to find candidate workers")

		response.WithError(w, err)

		return
	}

	res := dto.GetWorkersResponse{}
	res.FromModels(candidates, len(candidates), max(len(candidates), 1))

	scope.AddEvent("Candidate workers retrieved successfully")

	response.WithJSON(w, http.StatusOK, res)
}

// GetWorkerByID returns one worker profile.
// @Summary Get a worker by ID
// @Tags Worker
// @Produce json
// @Param id path string true "Worker ID"
// @Success 200 {object} dto.WorkerResponse
// @Failure 404 {object} response.Error
// @Router /v1/workers/{id} [get]
// @Security BearerAuth
func (handler *Handler) GetWorkerByID(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetWorkerByID")
	defer scope.End()

	id := chi.URLParam(r, constant.RequestParamID)

	worker, err := handler.service.Get(ctx, id)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get worker by ID")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Worker retrieved successfully")

	response.WithJSON(w, http.StatusOK, worker)
}

// GetWorkerStats returns booking counters and the daily earnings ledger.
// Workers may only read their own stats; admins may read anyone's.
// @Summary Get worker statistics
// @Tags Worker
// @Produce json
// @Param id path string true "Worker ID"
// @Success 200 {object} dto.WorkerStatsResponse
// @Failure 403 {object} response.Error
// @Failure 404 {object} response.Error
// @Router /v1/workers/{id}/stats [get]
// @Security BearerAuth
func (handler *Handler) GetWorkerStats(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetWorkerStats")
	defer scope.End()

	id := chi.URLParam(r, constant.RequestParamID)

	userID, _ := ctx.Value(constant.ContextKeyUserID).(string)
	userRole, _ := ctx.Value(constant.ContextKeyUserRole).(string)

	if userRole == constant.RoleWorker && userID != id {
		err := failure.Forbidden("workers may only view their own statistics")
		scope.TraceError(err)

		response.WithError(w, err)

		return
	}

	stats, err := handler.service.Stats(ctx, id)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get worker stats")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Worker stats retrieved successfully")

	response.WithJSON(w, http.StatusOK, stats)
}

// SetAvailability toggles whether the authenticated worker receives offers.
// @Summary Set worker availability
// @Tags Worker
// @Accept json
// @Produce json
// @Param request body dto.SetAvailabilityRequest true "Set Availability Request"
// @Success 200 {object} response.Message
// @Failure 400 {object} response.Error
// @Router /v1/workers/availability [patch]
// @Security BearerAuth
func (handler *Handler) SetAvailability(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".SetAvailability")
	defer scope.End()

	req := dto.SetAvailabilityRequest{}
	if err := validator.Validate(r.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(w, err)

		return
	}

	workerID, _ := ctx.Value(constant.ContextKeyUserID).(string)

	if err := handler.service.SetAvailability(ctx, workerID, req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to set worker availability")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Availability updated for worker " + workerID)

	response.WithMessage(w, http.StatusOK, "Availability updated successfully")
}
