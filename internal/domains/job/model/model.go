package model

import (
	"database/sql"

	"github.com/lib/pq"

	"tukang/shared/model"
)

const (
	TableName  = "jobs"
	EntityName = "job"

	FieldID               = "id"
	FieldBookingID        = "booking_id"
	FieldCustomerID       = "customer_id"
	FieldServiceType      = "service_type"
	FieldAssignedWorker   = "assigned_worker"
	FieldCandidateWorkers = "candidate_workers"
	FieldRejectedBy       = "rejected_by"
	FieldStatus           = "status"
)

// Job statuses. A job is the worker-side view of a booking: it is offered to a
// pool of candidates and settles on exactly one of them, or on nobody.
const (
	StatusPending    = "pending"
	StatusAccepted   = "accepted"
	StatusInProgress = "in_progress"
	StatusRejected   = "rejected"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

type Job struct {
	ID               string         `db:"id"`
	BookingID        string         `db:"booking_id"`
	CustomerID       string         `db:"customer_id"`
	ServiceType      string         `db:"service_type"`
	AssignedWorker   sql.NullString `db:"assigned_worker"`
	CandidateWorkers pq.StringArray `db:"candidate_workers"`
	RejectedBy       pq.StringArray `db:"rejected_by"`
	Status           string         `db:"status"`
	Details          string         `db:"details"`

	RequestedAt sql.NullTime `db:"requested_at"`
	AcceptedAt  sql.NullTime `db:"accepted_at"`
	StartedAt   sql.NullTime `db:"started_at"`
	CompletedAt sql.NullTime `db:"completed_at"`

	model.Metadata
}

// HeadCandidate returns the next worker in line, or "" when the pool is empty.
func (j Job) HeadCandidate() string {
	if len(j.CandidateWorkers) == 0 {
		return ""
	}

	return j.CandidateWorkers[0]
}

// Details is the denormalized payload shown to candidate workers: where the
// work is and what it pays.
type Details struct {
	Title          string  `json:"title"`
	AddressStreet  string  `json:"address_street"`
	AddressCity    string  `json:"address_city"`
	AddressState   string  `json:"address_state"`
	AddressPincode string  `json:"address_pincode"`
	ScheduledDate  string  `json:"scheduled_date"`
	ScheduledTime  string  `json:"scheduled_time"`
	Amount         float64 `json:"amount"`
	DistanceCharge float64 `json:"distance_charge"`
	TotalAmount    float64 `json:"total_amount"`
	WorkerPayment  float64 `json:"worker_payment"`
}
