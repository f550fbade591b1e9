package service

//go:generate go run go.uber.org/mock/mockgen -source=./service.go -destination=../mocks/service_mock.go -package=mocks -mock_names=Notification=MockNotificationService

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"tukang/config"
	"tukang/infras/kafka"
	"tukang/infras/otel"
	"tukang/internal/domains/notification/model"
	"tukang/internal/domains/notification/model/dto"
	"tukang/internal/domains/notification/repository"
	"tukang/shared/constant"
	gDto "tukang/shared/dto"
	"tukang/shared/failure"
	"tukang/shared/timezone"
)

type Notification interface {
	Dispatch(ctx context.Context, req dto.DispatchRequest)
	GetAll(ctx context.Context, recipientID string, params gDto.QueryParams) (dto.GetNotificationsResponse, error)
	UnreadCount(ctx context.Context, recipientID string) (int, error)
	MarkRead(ctx context.Context, id, recipientID string) error
	MarkAllRead(ctx context.Context, recipientID string) error
}

type serviceImpl struct {
	repo  repository.Notification
	cfg   *config.Config
	kafka kafka.Client
	otel  otel.Otel
}

func New(repo repository.Notification, cfg *config.Config, kafkaClient kafka.Client, otel otel.Otel) Notification {
	return &serviceImpl{
		repo:  repo,
		cfg:   cfg,
		kafka: kafkaClient,
		otel:  otel,
	}
}

// Dispatch fans the event out to every recipient. Each insert stands alone: a
// failure is logged and the remaining recipients are still notified, so a
// lifecycle transition is never rolled back over a notification.
func (s *serviceImpl) Dispatch(ctx context.Context, req dto.DispatchRequest) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".notification.Dispatch")
	defer scope.End()

	now := timezone.Now()
	events := make([]dto.Event, 0, len(req.Recipients))

	for _, recipient := range req.Recipients {
		notification := model.Notification{
			ID:            uuid.NewString(),
			RecipientID:   recipient.ID,
			RecipientKind: recipient.Kind,
			Type:          req.Type,
			Message:       req.Message,
			BookingID:     sql.NullString{String: req.BookingID, Valid: req.BookingID != constant.Empty},
			JobID:         sql.NullString{String: req.JobID, Valid: req.JobID != constant.Empty},
		}
		notification.CreatedAt = now
		notification.ModifiedAt = now
		notification.CreatedBy = constant.System
		notification.ModifiedBy = constant.System

		if err := s.repo.Insert(ctx, notification); err != nil {
			scope.TraceError(err)
			log.Error().Err(err).
				Str("recipientID", recipient.ID).
				Str("type", req.Type).
				Msg("failed to insert notification, continuing with remaining recipients")

			continue
		}

		events = append(events, dto.Event{
			NotificationID: notification.ID,
			RecipientID:    recipient.ID,
			RecipientKind:  recipient.Kind,
			Type:           req.Type,
			Message:        req.Message,
			BookingID:      req.BookingID,
			JobID:          req.JobID,
		})
	}

	if len(events) == 0 {
		return
	}

	go s.publish(context.WithoutCancel(ctx), events)
}

func (s *serviceImpl) publish(ctx context.Context, events []dto.Event) {
	messages := make([]kafka.Message, len(events))
	for i, event := range events {
		messages[i] = kafka.Message{
			Key:   event.RecipientID,
			Value: event,
		}
	}

	if err := s.kafka.SendMessages(ctx, s.cfg.Kafka.Topics.Notifications, messages...); err != nil {
		log.Error().Err(err).Msg("failed to publish notification events")
	}
}

func (s *serviceImpl) GetAll(ctx context.Context, recipientID string, params gDto.QueryParams) (res dto.GetNotificationsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".notification.GetAll")
	defer scope.End()
	defer scope.TraceIfError(err)

	filter := filterByRecipient(recipientID)

	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count notifications")

		return res, fmt.Errorf("failed to count notifications: %w", err)
	}

	unread, err := s.UnreadCount(ctx, recipientID)
	if err != nil {
		return res, err
	}

	models, err := s.repo.GetAll(ctx, params, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to get notifications")

		return res, fmt.Errorf("failed to get notifications: %w", err)
	}

	res.FromModels(models, unread, total, params.Limit)

	return res, nil
}

func (s *serviceImpl) UnreadCount(ctx context.Context, recipientID string) (res int, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".notification.UnreadCount")
	defer scope.End()
	defer scope.TraceIfError(err)

	filter := filterByRecipient(recipientID)
	filter.Filters = append(filter.Filters, gDto.Filter{
		Field:    model.FieldRead,
		Value:    false,
		Operator: gDto.FilterOperatorEq,
		Table:    model.TableName,
	})

	res, err = s.repo.Count(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count unread notifications")

		return res, fmt.Errorf("failed to count unread notifications: %w", err)
	}

	return res, nil
}

// MarkRead flips one notification owned by the recipient. A foreign or unknown
// id comes back as not found so ownership is never leaked.
func (s *serviceImpl) MarkRead(ctx context.Context, id, recipientID string) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".notification.MarkRead")
	defer scope.End()
	defer scope.TraceIfError(err)

	filter := filterByRecipient(recipientID)
	filter.Filters = append(filter.Filters, gDto.Filter{
		Field:    model.FieldID,
		Value:    id,
		Operator: gDto.FilterOperatorEq,
		Table:    model.TableName,
	})

	notification, err := s.repo.Get(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to get notification")

		return fmt.Errorf("failed to get notification: %w", err)
	}

	if notification.ID == constant.Empty {
		return failure.NotFound("notification not found") // nolint:wrapcheck
	}

	updatedFields := map[string]any{
		model.FieldRead:          true,
		constant.FieldModifiedAt: timezone.Now(),
	}

	if err = s.repo.Update(ctx, updatedFields, filter); err != nil {
		log.Error().Err(err).Msg("failed to mark notification read")

		return fmt.Errorf("failed to mark notification read: %w", err)
	}

	return nil
}

func (s *serviceImpl) MarkAllRead(ctx context.Context, recipientID string) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".notification.MarkAllRead")
	defer scope.End()
	defer scope.TraceIfError(err)

	if err = s.repo.MarkAllRead(ctx, recipientID); err != nil {
		log.Error().Err(err).Msg("failed to mark all notifications read")

		return fmt.Errorf("failed to mark all notifications read: %w", err)
	}

	return nil
}

func filterByRecipient(recipientID string) gDto.FilterGroup {
	return gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters: []any{
			gDto.Filter{
				Field:    model.FieldRecipientID,
				Value:    recipientID,
				Operator: gDto.FilterOperatorEq,
				Table:    model.TableName,
			},
		},
	}
}
