package dto

import (
	"tukang/internal/domains/worker/model"
	"tukang/shared"
	"tukang/shared/constant"
)

type SetAvailabilityRequest struct {
	IsAvailable *bool `json:"is_available" validate:"required"`
}

type WorkerResponse struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	ServiceTypes []string `json:"service_types"`
	IsVerified   bool     `json:"is_verified"`
	IsAvailable  bool     `json:"is_available"`
	Rating       float64  `json:"rating"`
}

func (r *WorkerResponse) FromModel(mod model.Worker) {
	r.ID = mod.ID
	r.Name = mod.Name
	r.ServiceTypes = mod.ServiceTypes
	r.IsVerified = mod.IsVerified
	r.IsAvailable = mod.IsAvailable
	r.Rating = mod.Rating
}

type GetWorkersResponse struct {
	Workers   []WorkerResponse `json:"workers"`
	TotalPage int              `json:"total_page"`
	TotalData int              `json:"total_data"`
}

func (r *GetWorkersResponse) FromModels(models []model.Worker, totalData, limit int) {
	r.TotalData = totalData
	r.TotalPage = shared.CalculateTotalPage(totalData, limit)

	r.Workers = make([]WorkerResponse, len(models))
	for i, mod := range models {
		r.Workers[i].FromModel(mod)
	}
}

type EarningBucket struct {
	Day    string  `json:"date"`
	Amount float64 `json:"amount"`
}

type WorkerStatsResponse struct {
	WorkerID          string          `json:"worker_id"`
	TotalBookings     int             `json:"total_bookings"`
	CompletedBookings int             `json:"completed_bookings"`
	TotalEarnings     float64         `json:"total_earnings"`
	Rating            float64         `json:"rating"`
	Earnings          []EarningBucket `json:"earnings"`
}

func (r *WorkerStatsResponse) FromModel(mod model.Worker, earnings []model.EarningEntry) {
	r.WorkerID = mod.ID
	r.TotalBookings = mod.TotalBookings
	r.CompletedBookings = mod.CompletedBookings
	r.TotalEarnings = mod.TotalEarnings
	r.Rating = mod.Rating

	r.Earnings = make([]EarningBucket, len(earnings))
	for i, entry := range earnings {
		r.Earnings[i] = EarningBucket{
			Day:    entry.Day.Format(constant.DayFormat),
			Amount: entry.Amount,
		}
	}
}

type CandidateQuery struct {
	ServiceType string `json:"service_type" validate:"required"`
}
