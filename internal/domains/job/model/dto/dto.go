package dto

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"tukang/internal/domains/job/model"
	"tukang/shared"
	"tukang/shared/constant"
)

type CancelJobRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type JobResponse struct {
	ID               string         `json:"id"`
	BookingID        string         `json:"booking_id"`
	CustomerID       string         `json:"customer_id"`
	ServiceType      string         `json:"service_type"`
	AssignedWorker   string         `json:"assigned_worker,omitempty"`
	CandidateWorkers []string       `json:"candidate_workers"`
	RejectedBy       []string       `json:"rejected_by"`
	Status           string         `json:"status"`
	Details          *model.Details `json:"details,omitempty"`
	RequestedAt      string         `json:"requested_at,omitempty"`
	AcceptedAt       string         `json:"accepted_at,omitempty"`
	StartedAt        string         `json:"started_at,omitempty"`
	CompletedAt      string         `json:"completed_at,omitempty"`
}

func (r *JobResponse) FromModel(mod model.Job) {
	r.ID = mod.ID
	r.BookingID = mod.BookingID
	r.CustomerID = mod.CustomerID
	r.ServiceType = mod.ServiceType
	r.AssignedWorker = mod.AssignedWorker.String
	r.CandidateWorkers = mod.CandidateWorkers
	r.RejectedBy = mod.RejectedBy
	r.Status = mod.Status

	if mod.Details != constant.Empty {
		var details model.Details
		if err := json.Unmarshal([]byte(mod.Details), &details); err != nil {
			log.Warn().Err(err).Str("jobID", mod.ID).Msg("failed to decode job details")
		} else {
			r.Details = &details
		}
	}

	if mod.RequestedAt.Valid {
		r.RequestedAt = mod.RequestedAt.Time.Format(constant.DateFormat)
	}
	if mod.AcceptedAt.Valid {
		r.AcceptedAt = mod.AcceptedAt.Time.Format(constant.DateFormat)
	}
	if mod.StartedAt.Valid {
		r.StartedAt = mod.StartedAt.Time.Format(constant.DateFormat)
	}
	if mod.CompletedAt.Valid {
		r.CompletedAt = mod.CompletedAt.Time.Format(constant.DateFormat)
	}
}

type GetJobsResponse struct {
	Jobs      []JobResponse `json:"jobs"`
	TotalPage int           `json:"total_page"`
	TotalData int           `json:"total_data"`
}

func (r *GetJobsResponse) FromModels(models []model.Job, totalData, limit int) {
	r.TotalData = totalData
	r.TotalPage = shared.CalculateTotalPage(totalData, limit)

	r.Jobs = make([]JobResponse, len(models))
	for i, mod := range models {
		r.Jobs[i].FromModel(mod)
	}
}
