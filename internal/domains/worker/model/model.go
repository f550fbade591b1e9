package model

import (
	"slices"
	"time"

	"github.com/lib/pq"

	"tukang/shared/model"
)

const (
	TableName  = "workers"
	EntityName = "worker"

	FieldID           = "id"
	FieldName         = "name"
	FieldPhone        = "phone"
	FieldServiceTypes = "service_types"
	FieldIsVerified   = "is_verified"
	FieldIsAvailable  = "is_available"

	FieldTotalBookings     = "total_bookings"
	FieldCompletedBookings = "completed_bookings"
	FieldTotalEarnings     = "total_earnings"
	FieldRating            = "rating"
)

type Worker struct {
	ID           string         `db:"id"`
	Name         string         `db:"name"`
	Phone        string         `db:"phone"`
	ServiceTypes pq.StringArray `db:"service_types"`
	IsVerified   bool           `db:"is_verified"`
	IsAvailable  bool           `db:"is_available"`

	TotalBookings     int     `db:"total_bookings"`
	CompletedBookings int     `db:"completed_bookings"`
	TotalEarnings     float64 `db:"total_earnings"`
	Rating            float64 `db:"rating"`

	model.Metadata
}

// Offers reports whether the worker services the given type.
func (w Worker) Offers(serviceType string) bool {
	return slices.Contains(w.ServiceTypes, serviceType)
}

// Eligible reports whether the worker can be offered a job of the given type.
func (w Worker) Eligible(serviceType string) bool {
	return w.IsVerified && w.IsAvailable && w.Offers(serviceType)
}

const EarningsTableName = "worker_earnings"

// EarningEntry is one daily earnings bucket of a worker.
type EarningEntry struct {
	WorkerID string    `db:"worker_id" json:"worker_id"`
	Day      time.Time `db:"day"       json:"day"`
	Amount   float64   `db:"amount"    json:"amount"`
}
