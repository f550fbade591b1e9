package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"tukang/config"
	"tukang/infras/kafka"
	kafkaMocks "tukang/infras/kafka/mocks"
	"tukang/infras/otel/mocks"
	notificationMocks "tukang/internal/domains/notification/mocks"
	"tukang/internal/domains/notification/model"
	"tukang/internal/domains/notification/model/dto"
	"tukang/internal/domains/notification/service"
	gDto "tukang/shared/dto"
)

func newService(t *testing.T) (service.Notification, *notificationMocks.MockNotification, *kafkaMocks.MockClient) {
	t.Helper()

	ctrl := gomock.NewController(t)
	mockRepo := notificationMocks.NewMockNotification(ctrl)
	mockKafka := kafkaMocks.NewMockClient(ctrl)

	cfg := &config.Config{}
	cfg.Kafka.Topics.Notifications = "notifications"

	return service.New(mockRepo, cfg, mockKafka, mocks.NewOtel()), mockRepo, mockKafka
}

func TestNotificationService_Dispatch(t *testing.T) {
	req := dto.DispatchRequest{
		Type:      model.TypeBookingAssigned,
		Message:   "A new booking has been assigned to you",
		BookingID: "booking-1",
		Recipients: []dto.Recipient{
			{ID: "worker-1", Kind: model.RecipientWorker},
			{ID: "customer-1", Kind: model.RecipientCustomer},
			{ID: "admin-1", Kind: model.RecipientAdmin},
		},
	}

	t.Run("inserts one row per recipient and publishes events", func(t *testing.T) {
		svc, mockRepo, mockKafka := newService(t)

		var inserted []model.Notification
		mockRepo.EXPECT().
			Insert(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, mod model.Notification) error {
				inserted = append(inserted, mod)

				return nil
			}).
			Times(3)

		var wg sync.WaitGroup
		wg.Add(1)
		mockKafka.EXPECT().
			SendMessages(gomock.Any(), "notifications", gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ string, messages ...kafka.Message) error {
				defer wg.Done()
				assert.Len(t, messages, 3)

				return nil
			})

		svc.Dispatch(context.Background(), req)
		wg.Wait()

		assert.Len(t, inserted, 3)
		assert.Equal(t, "worker-1", inserted[0].RecipientID)
		assert.Equal(t, model.RecipientWorker, inserted[0].RecipientKind)
		assert.True(t, inserted[0].BookingID.Valid)
		assert.Equal(t, "booking-1", inserted[0].BookingID.String)
		assert.False(t, inserted[0].JobID.Valid)
	})

	t.Run("one failed insert does not block the others", func(t *testing.T) {
		svc, mockRepo, mockKafka := newService(t)

		calls := 0
		mockRepo.EXPECT().
			Insert(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ model.Notification) error {
				calls++
				if calls == 2 {
					return errors.New("insert failed")
				}

				return nil
			}).
			Times(3)

		var wg sync.WaitGroup
		wg.Add(1)
		mockKafka.EXPECT().
			SendMessages(gomock.Any(), "notifications", gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ string, messages ...kafka.Message) error {
				defer wg.Done()
				// only the two successful inserts are published
				assert.Len(t, messages, 2)

				return nil
			})

		svc.Dispatch(context.Background(), req)
		wg.Wait()

		assert.Equal(t, 3, calls)
	})

	t.Run("no events published when every insert fails", func(t *testing.T) {
		svc, mockRepo, _ := newService(t)

		mockRepo.EXPECT().
			Insert(gomock.Any(), gomock.Any()).
			Return(errors.New("insert failed")).
			Times(3)

		svc.Dispatch(context.Background(), req)
	})
}

func TestNotificationService_GetAll(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(repo *notificationMocks.MockNotification)
		wantErr   bool
	}{
		{
			name: "successful listing with unread count",
			setupMock: func(repo *notificationMocks.MockNotification) {
				repo.EXPECT().
					Count(gomock.Any(), gomock.Any()).
					Return(2, nil)

				repo.EXPECT().
					Count(gomock.Any(), gomock.Any()).
					Return(1, nil)

				repo.EXPECT().
					GetAll(gomock.Any(), gomock.Any(), gomock.Any()).
					Return([]model.Notification{
						{ID: "n-1", RecipientID: "worker-1", Read: false},
						{ID: "n-2", RecipientID: "worker-1", Read: true},
					}, nil)
			},
		},
		{
			name: "count error",
			setupMock: func(repo *notificationMocks.MockNotification) {
				repo.EXPECT().
					Count(gomock.Any(), gomock.Any()).
					Return(0, errors.New("count error"))
			},
			wantErr: true,
		},
		{
			name: "get all error",
			setupMock: func(repo *notificationMocks.MockNotification) {
				repo.EXPECT().
					Count(gomock.Any(), gomock.Any()).
					Return(2, nil).
					Times(2)

				repo.EXPECT().
					GetAll(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil, errors.New("get all error"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, mockRepo, _ := newService(t)
			tt.setupMock(mockRepo)

			res, err := svc.GetAll(context.Background(), "worker-1", gDto.QueryParams{Limit: 10, Page: 1})

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, 2, res.TotalData)
				assert.Equal(t, 1, res.UnreadCount)
				assert.Len(t, res.Notifications, 2)
			}
		})
	}
}

func TestNotificationService_MarkRead(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(repo *notificationMocks.MockNotification)
		wantErr   bool
	}{
		{
			name: "successful mark read",
			setupMock: func(repo *notificationMocks.MockNotification) {
				repo.EXPECT().
					Get(gomock.Any(), gomock.Any()).
					Return(model.Notification{ID: "n-1", RecipientID: "worker-1"}, nil)

				repo.EXPECT().
					Update(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil)
			},
		},
		{
			name: "notification not owned by recipient",
			setupMock: func(repo *notificationMocks.MockNotification) {
				repo.EXPECT().
					Get(gomock.Any(), gomock.Any()).
					Return(model.Notification{}, nil)
			},
			wantErr: true,
		},
		{
			name: "update error",
			setupMock: func(repo *notificationMocks.MockNotification) {
				repo.EXPECT().
					Get(gomock.Any(), gomock.Any()).
					Return(model.Notification{ID: "n-1"}, nil)

				repo.EXPECT().
					Update(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(errors.New("update error"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, mockRepo, _ := newService(t)
			tt.setupMock(mockRepo)

			err := svc.MarkRead(context.Background(), "n-1", "worker-1")

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNotificationService_MarkAllRead(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(repo *notificationMocks.MockNotification)
		wantErr   bool
	}{
		{
			name: "successful mark all read",
			setupMock: func(repo *notificationMocks.MockNotification) {
				repo.EXPECT().
					MarkAllRead(gomock.Any(), "worker-1").
					Return(nil)
			},
		},
		{
			name: "repository error",
			setupMock: func(repo *notificationMocks.MockNotification) {
				repo.EXPECT().
					MarkAllRead(gomock.Any(), "worker-1").
					Return(errors.New("database error"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, mockRepo, _ := newService(t)
			tt.setupMock(mockRepo)

			err := svc.MarkAllRead(context.Background(), "worker-1")

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
