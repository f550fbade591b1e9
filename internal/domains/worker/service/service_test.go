package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"tukang/config"
	"tukang/infras/otel/mocks"
	workerMocks "tukang/internal/domains/worker/mocks"
	"tukang/internal/domains/worker/model"
	"tukang/internal/domains/worker/model/dto"
	"tukang/internal/domains/worker/service"
	cacheMocks "tukang/shared/cache/mocks"
	"tukang/shared/constant"
	gDto "tukang/shared/dto"
)

func newService(t *testing.T) (service.Worker, *workerMocks.MockWorker, *cacheMocks.MockRedisCache) {
	t.Helper()

	ctrl := gomock.NewController(t)
	mockRepo := workerMocks.NewMockWorker(ctrl)
	mockCache := cacheMocks.NewMockRedisCache(ctrl)

	cfg := &config.Config{}
	cfg.Cache.TTL = 3600

	return service.New(mockRepo, cfg, mockCache, mocks.NewOtel()), mockRepo, mockCache
}

func boolPtr(v bool) *bool {
	return &v
}

func TestWorkerService_Get(t *testing.T) {
	worker := model.Worker{
		ID:           "worker-1",
		Name:         "Asep",
		ServiceTypes: []string{"plumbing", "electrical"},
		IsVerified:   true,
		IsAvailable:  true,
		Rating:       4.5,
	}

	tests := []struct {
		name      string
		id        string
		setupMock func(repo *workerMocks.MockWorker, cache *cacheMocks.MockRedisCache)
		wantErr   bool
		wantID    string
	}{
		{
			name: "cache hit",
			id:   "worker-1",
			setupMock: func(_ *workerMocks.MockWorker, cache *cacheMocks.MockRedisCache) {
				cache.EXPECT().
					Get(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil)
			},
			wantErr: false,
		},
		{
			name: "cache miss, found in db",
			id:   "worker-1",
			setupMock: func(repo *workerMocks.MockWorker, cache *cacheMocks.MockRedisCache) {
				cache.EXPECT().
					Get(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(errors.New("cache miss"))

				repo.EXPECT().
					Get(gomock.Any(), gomock.Any()).
					Return(worker, nil)

				cache.EXPECT().
					Save(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil).
					AnyTimes()
			},
			wantErr: false,
			wantID:  "worker-1",
		},
		{
			name: "worker not found",
			id:   "missing",
			setupMock: func(repo *workerMocks.MockWorker, cache *cacheMocks.MockRedisCache) {
				cache.EXPECT().
					Get(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(errors.New("cache miss"))

				repo.EXPECT().
					Get(gomock.Any(), gomock.Any()).
					Return(model.Worker{}, nil)
			},
			wantErr: true,
		},
		{
			name: "repository error",
			id:   "worker-1",
			setupMock: func(repo *workerMocks.MockWorker, cache *cacheMocks.MockRedisCache) {
				cache.EXPECT().
					Get(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(errors.New("cache miss"))

				repo.EXPECT().
					Get(gomock.Any(), gomock.Any()).
					Return(model.Worker{}, errors.New("database error"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, mockRepo, mockCache := newService(t)
			tt.setupMock(mockRepo, mockCache)

			result, err := svc.Get(context.Background(), tt.id)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				if tt.wantID != "" {
					assert.Equal(t, tt.wantID, result.ID)
				}
			}
		})
	}
}

func TestWorkerService_GetAll(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(repo *workerMocks.MockWorker, cache *cacheMocks.MockRedisCache)
		wantErr   bool
		wantTotal int
	}{
		{
			name: "successful get all",
			setupMock: func(repo *workerMocks.MockWorker, cache *cacheMocks.MockRedisCache) {
				cache.EXPECT().
					Get(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(errors.New("cache miss")).
					Times(2)

				repo.EXPECT().
					Count(gomock.Any(), gomock.Any()).
					Return(2, nil)

				repo.EXPECT().
					GetAll(gomock.Any(), gomock.Any(), gomock.Any()).
					Return([]model.Worker{{ID: "w-1"}, {ID: "w-2"}}, nil)

				cache.EXPECT().
					Save(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil).
					AnyTimes()
			},
			wantErr:   false,
			wantTotal: 2,
		},
		{
			name: "count error",
			setupMock: func(repo *workerMocks.MockWorker, cache *cacheMocks.MockRedisCache) {
				cache.EXPECT().
					Get(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(errors.New("cache miss")).
					Times(2)

				repo.EXPECT().
					Count(gomock.Any(), gomock.Any()).
					Return(0, errors.New("count error"))
			},
			wantErr: true,
		},
		{
			name: "get all error",
			setupMock: func(repo *workerMocks.MockWorker, cache *cacheMocks.MockRedisCache) {
				cache.EXPECT().
					Get(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(errors.New("cache miss")).
					Times(2)

				repo.EXPECT().
					Count(gomock.Any(), gomock.Any()).
					Return(2, nil)

				repo.EXPECT().
					GetAll(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil, errors.New("get all error"))

				cache.EXPECT().
					Save(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil).
					AnyTimes()
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, mockRepo, mockCache := newService(t)
			tt.setupMock(mockRepo, mockCache)

			result, err := svc.GetAll(context.Background(), gDto.QueryParams{Limit: 10, Page: 1}, gDto.FilterGroup{})

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.wantTotal, result.TotalData)
				assert.Len(t, result.Workers, tt.wantTotal)
			}
		})
	}
}

func TestWorkerService_FindCandidates(t *testing.T) {
	tests := []struct {
		name        string
		serviceType string
		setupMock   func(repo *workerMocks.MockWorker)
		wantErr     bool
		wantCount   int
	}{
		{
			name:        "candidates found in insertion order",
			serviceType: "plumbing",
			setupMock: func(repo *workerMocks.MockWorker) {
				repo.EXPECT().
					FindCandidates(gomock.Any(), "plumbing").
					Return([]model.Worker{{ID: "w-1"}, {ID: "w-2"}, {ID: "w-3"}}, nil)
			},
			wantCount: 3,
		},
		{
			name:        "no candidates is not an error",
			serviceType: "gardening",
			setupMock: func(repo *workerMocks.MockWorker) {
				repo.EXPECT().
					FindCandidates(gomock.Any(), "gardening").
					Return([]model.Worker{}, nil)
			},
			wantCount: 0,
		},
		{
			name:        "repository error",
			serviceType: "plumbing",
			setupMock: func(repo *workerMocks.MockWorker) {
				repo.EXPECT().
					FindCandidates(gomock.Any(), "plumbing").
					Return(nil, errors.New("database error"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, mockRepo, _ := newService(t)
			tt.setupMock(mockRepo)

			candidates, err := svc.FindCandidates(context.Background(), tt.serviceType)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Len(t, candidates, tt.wantCount)
			}
		})
	}
}

func TestWorkerService_SetAvailability(t *testing.T) {
	tests := []struct {
		name      string
		req       dto.SetAvailabilityRequest
		setupMock func(repo *workerMocks.MockWorker, cache *cacheMocks.MockRedisCache)
		wantErr   bool
	}{
		{
			name: "successful availability change",
			req:  dto.SetAvailabilityRequest{IsAvailable: boolPtr(false)},
			setupMock: func(repo *workerMocks.MockWorker, cache *cacheMocks.MockRedisCache) {
				repo.EXPECT().
					Exist(gomock.Any(), gomock.Any()).
					Return(true, nil)

				repo.EXPECT().
					Update(gomock.Any(), gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, fields map[string]any, _ gDto.FilterGroup) error {
						assert.Equal(t, false, fields[model.FieldIsAvailable])

						return nil
					})

				cache.EXPECT().Delete(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
				cache.EXPECT().Clear(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
			},
			wantErr: false,
		},
		{
			name: "worker not found",
			req:  dto.SetAvailabilityRequest{IsAvailable: boolPtr(true)},
			setupMock: func(repo *workerMocks.MockWorker, _ *cacheMocks.MockRedisCache) {
				repo.EXPECT().
					Exist(gomock.Any(), gomock.Any()).
					Return(false, nil)
			},
			wantErr: true,
		},
		{
			name: "exist check error",
			req:  dto.SetAvailabilityRequest{IsAvailable: boolPtr(true)},
			setupMock: func(repo *workerMocks.MockWorker, _ *cacheMocks.MockRedisCache) {
				repo.EXPECT().
					Exist(gomock.Any(), gomock.Any()).
					Return(false, errors.New("database error"))
			},
			wantErr: true,
		},
		{
			name: "update error",
			req:  dto.SetAvailabilityRequest{IsAvailable: boolPtr(true)},
			setupMock: func(repo *workerMocks.MockWorker, _ *cacheMocks.MockRedisCache) {
				repo.EXPECT().
					Exist(gomock.Any(), gomock.Any()).
					Return(true, nil)

				repo.EXPECT().
					Update(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(errors.New("update error"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, mockRepo, mockCache := newService(t)
			tt.setupMock(mockRepo, mockCache)

			ctx := context.WithValue(context.Background(), constant.ContextKeyUserID, "worker-1")
			err := svc.SetAvailability(ctx, "worker-1", tt.req)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestWorkerService_Stats(t *testing.T) {
	worker := model.Worker{
		ID:                "worker-1",
		TotalBookings:     10,
		CompletedBookings: 8,
		TotalEarnings:     6400,
		Rating:            4.2,
	}

	day := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		setupMock func(repo *workerMocks.MockWorker, cache *cacheMocks.MockRedisCache)
		wantErr   bool
		verify    func(t *testing.T, res dto.WorkerStatsResponse)
	}{
		{
			name: "stats with daily earnings",
			setupMock: func(repo *workerMocks.MockWorker, cache *cacheMocks.MockRedisCache) {
				cache.EXPECT().
					Get(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(errors.New("cache miss"))

				repo.EXPECT().
					Get(gomock.Any(), gomock.Any()).
					Return(worker, nil)

				repo.EXPECT().
					GetEarnings(gomock.Any(), "worker-1").
					Return([]model.EarningEntry{
						{WorkerID: "worker-1", Day: day, Amount: 800},
						{WorkerID: "worker-1", Day: day.AddDate(0, 0, 1), Amount: 1600},
					}, nil)

				cache.EXPECT().
					Save(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil).
					AnyTimes()
			},
			verify: func(t *testing.T, res dto.WorkerStatsResponse) {
				assert.Equal(t, 10, res.TotalBookings)
				assert.Equal(t, 8, res.CompletedBookings)
				assert.Equal(t, float64(6400), res.TotalEarnings)
				assert.Len(t, res.Earnings, 2)
				assert.Equal(t, "2026-08-20", res.Earnings[0].Day)
				assert.Equal(t, float64(800), res.Earnings[0].Amount)
			},
		},
		{
			name: "earnings lookup error",
			setupMock: func(repo *workerMocks.MockWorker, cache *cacheMocks.MockRedisCache) {
				cache.EXPECT().
					Get(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(errors.New("cache miss"))

				repo.EXPECT().
					Get(gomock.Any(), gomock.Any()).
					Return(worker, nil)

				repo.EXPECT().
					GetEarnings(gomock.Any(), "worker-1").
					Return(nil, errors.New("database error"))
			},
			wantErr: true,
		},
		{
			name: "worker not found",
			setupMock: func(repo *workerMocks.MockWorker, cache *cacheMocks.MockRedisCache) {
				cache.EXPECT().
					Get(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(errors.New("cache miss"))

				repo.EXPECT().
					Get(gomock.Any(), gomock.Any()).
					Return(model.Worker{}, nil)
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, mockRepo, mockCache := newService(t)
			tt.setupMock(mockRepo, mockCache)

			res, err := svc.Stats(context.Background(), "worker-1")

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				tt.verify(t, res)
			}
		})
	}
}

func TestWorkerService_CreditCompletion(t *testing.T) {
	completedAt := time.Date(2026, 8, 20, 17, 45, 12, 0, time.UTC)
	bucketDay := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		setupMock func(repo *workerMocks.MockWorker, cache *cacheMocks.MockRedisCache)
		wantErr   bool
	}{
		{
			name: "recomputes totals and credits the daily bucket",
			setupMock: func(repo *workerMocks.MockWorker, cache *cacheMocks.MockRedisCache) {
				repo.EXPECT().
					RecomputeStats(gomock.Any(), "worker-1").
					Return(nil)

				repo.EXPECT().
					UpsertEarning(gomock.Any(), "worker-1", bucketDay, float64(800)).
					Return(nil)

				cache.EXPECT().Delete(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
				cache.EXPECT().Clear(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
			},
			wantErr: false,
		},
		{
			name: "recompute error",
			setupMock: func(repo *workerMocks.MockWorker, _ *cacheMocks.MockRedisCache) {
				repo.EXPECT().
					RecomputeStats(gomock.Any(), "worker-1").
					Return(errors.New("database error"))
			},
			wantErr: true,
		},
		{
			name: "bucket upsert error",
			setupMock: func(repo *workerMocks.MockWorker, _ *cacheMocks.MockRedisCache) {
				repo.EXPECT().
					RecomputeStats(gomock.Any(), "worker-1").
					Return(nil)

				repo.EXPECT().
					UpsertEarning(gomock.Any(), "worker-1", bucketDay, float64(800)).
					Return(errors.New("database error"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, mockRepo, mockCache := newService(t)
			tt.setupMock(mockRepo, mockCache)

			err := svc.CreditCompletion(context.Background(), "worker-1", 800, completedAt)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestWorkerService_RecordAssignment(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(repo *workerMocks.MockWorker, cache *cacheMocks.MockRedisCache)
		wantErr   bool
	}{
		{
			name: "successful recompute",
			setupMock: func(repo *workerMocks.MockWorker, cache *cacheMocks.MockRedisCache) {
				repo.EXPECT().
					RecomputeStats(gomock.Any(), "worker-1").
					Return(nil)

				cache.EXPECT().Delete(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
				cache.EXPECT().Clear(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
			},
			wantErr: false,
		},
		{
			name: "recompute error",
			setupMock: func(repo *workerMocks.MockWorker, _ *cacheMocks.MockRedisCache) {
				repo.EXPECT().
					RecomputeStats(gomock.Any(), "worker-1").
					Return(errors.New("database error"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, mockRepo, mockCache := newService(t)
			tt.setupMock(mockRepo, mockCache)

			err := svc.RecordAssignment(context.Background(), "worker-1")

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestWorkerService_RecomputeRating(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(repo *workerMocks.MockWorker, cache *cacheMocks.MockRedisCache)
		wantErr   bool
	}{
		{
			name: "successful rating recompute",
			setupMock: func(repo *workerMocks.MockWorker, cache *cacheMocks.MockRedisCache) {
				repo.EXPECT().
					RecomputeRating(gomock.Any(), "worker-1").
					Return(nil)

				cache.EXPECT().Delete(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
				cache.EXPECT().Clear(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
			},
			wantErr: false,
		},
		{
			name: "recompute error",
			setupMock: func(repo *workerMocks.MockWorker, _ *cacheMocks.MockRedisCache) {
				repo.EXPECT().
					RecomputeRating(gomock.Any(), "worker-1").
					Return(errors.New("database error"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, mockRepo, mockCache := newService(t)
			tt.setupMock(mockRepo, mockCache)

			err := svc.RecomputeRating(context.Background(), "worker-1")

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
