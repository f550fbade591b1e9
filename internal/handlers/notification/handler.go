package notification

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"tukang/infras/otel"
	"tukang/internal/domains/notification/service"
	"tukang/shared/constant"
	gDto "tukang/shared/dto"
	"tukang/transport/http/response"
)

type Handler struct {
	service service.Notification
	otel    otel.Otel
}

func New(service service.Notification, otel otel.Otel) Handler {
	return Handler{
		service: service,
		otel:    otel,
	}
}

func (handler *Handler) Router(router chi.Router) {
	router.Route("/notifications", func(routerGroup chi.Router) {
		routerGroup.Get("/", handler.GetNotifications)
		routerGroup.Get("/unread-count", handler.GetUnreadCount)
		routerGroup.Post("/{id}/read", handler.MarkRead)
		routerGroup.Post("/read-all", handler.MarkAllRead)
	})
}

// GetNotifications lists the authenticated user's notifications, newest first.
// @Summary Get my notifications
// @Tags Notification
// @Produce json
// @Success 200 {object} dto.GetNotificationsResponse
// @Failure 500 {object} response.Error
// @Router /v1/notifications [get]
// @Security BearerAuth
func (handler *Handler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetNotifications")
	defer scope.End()

	queryParams := gDto.QueryParams{}
	queryParams.FromRequest(r, true)

	recipientID, _ := ctx.Value(constant.ContextKeyUserID).(string)

	notifications, err := handler.service.GetAll(ctx, recipientID, queryParams)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get notifications")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Notifications retrieved successfully")

	response.WithJSON(w, http.StatusOK, notifications)
}

// GetUnreadCount returns how many notifications the user has not read yet.
// @Summary Get unread notification count
// @Tags Notification
// @Produce json
// @Success 200 {object} map[string]int
// @Failure 500 {object} response.Error
// @Router /v1/notifications/unread-count [get]
// @Security BearerAuth
func (handler *Handler) GetUnreadCount(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetUnreadCount")
	defer scope.End()

	recipientID, _ := ctx.Value(constant.ContextKeyUserID).(string)

	count, err := handler.service.UnreadCount(ctx, recipientID)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to count unread notifications")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Unread notifications counted: " + strconv.Itoa(count))

	response.WithJSON(w, http.StatusOK, map[string]int{"unread": count})
}

// MarkRead marks one of the user's notifications as read.
// @Summary Mark a notification as read
// @Tags Notification
// @Produce json
// @Param id path string true "Notification ID"
// @Success 200 {object} response.Message
// @Failure 404 {object} response.Error
// @Router /v1/notifications/{id}/read [post]
// @Security BearerAuth
func (handler *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".MarkRead")
	defer scope.End()

	id := chi.URLParam(r, constant.RequestParamID)
	recipientID, _ := ctx.Value(constant.ContextKeyUserID).(string)

	if err := handler.service.MarkRead(ctx, id, recipientID); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to mark notification as read")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Notification marked as read")

	response.WithMessage(w, http.StatusOK, "Notification marked as read")
}

// MarkAllRead marks every unread notification of the user as read.
// @Summary Mark all notifications as read
// @Tags Notification
// @Produce json
// @Success 200 {object} response.Message
// @Failure 500 {object} response.Error
// @Router /v1/notifications/read-all [post]
// @Security BearerAuth
func (handler *Handler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".MarkAllRead")
	defer scope.End()

	recipientID, _ := ctx.Value(constant.ContextKeyUserID).(string)

	if err := handler.service.MarkAllRead(ctx, recipientID); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to mark notifications as read")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("All notifications marked as read")

	response.WithMessage(w, http.StatusOK, "All notifications marked as read")
}
