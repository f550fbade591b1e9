package model

import (
	"database/sql"

	"tukang/shared/model"
)

const (
	TableName  = "bookings"
	EntityName = "booking"

	FieldID              = "id"
	FieldCustomerID      = "customer_id"
	FieldServiceType     = "service_type"
	FieldServiceTitle    = "service_title"
	FieldStatus          = "status"
	FieldWorkerID        = "worker_id"
	FieldScheduledDate   = "scheduled_date"
	FieldParentBookingID = "parent_booking_id"
	FieldRating          = "rating"
)

// Booking statuses. A booking stays pending while candidates are being
// offered the job; worker_assigned means one of them has claimed it.
const (
	StatusPending        = "pending"
	StatusWorkerAssigned = "worker_assigned"
	StatusAccepted       = "accepted"
	StatusInProgress     = "in_progress"
	StatusCompleted      = "completed"
	StatusCancelled      = "cancelled"
)

type Booking struct {
	ID           string `db:"id"`
	CustomerID   string `db:"customer_id"`
	ServiceType  string `db:"service_type"`
	ServiceTitle string `db:"service_title"`

	AddressStreet  string `db:"address_street"`
	AddressCity    string `db:"address_city"`
	AddressState   string `db:"address_state"`
	AddressPincode string `db:"address_pincode"`
	Phone          string `db:"phone"`

	ScheduledDate string `db:"scheduled_date"`
	ScheduledTime string `db:"scheduled_time"`

	Amount          float64 `db:"amount"`
	DistanceCharge  float64 `db:"distance_charge"`
	TotalAmount     float64 `db:"total_amount"`
	AdminCommission float64 `db:"admin_commission"`
	WorkerPayment   float64 `db:"worker_payment"`
	DistanceKm      float64 `db:"distance_km"`

	Status   string         `db:"status"`
	WorkerID sql.NullString `db:"worker_id"`

	AssignedAt   sql.NullTime   `db:"assigned_at"`
	AcceptedAt   sql.NullTime   `db:"accepted_at"`
	StartedAt    sql.NullTime   `db:"started_at"`
	CompletedAt  sql.NullTime   `db:"completed_at"`
	CancelledAt  sql.NullTime   `db:"cancelled_at"`
	CancelReason sql.NullString `db:"cancel_reason"`

	CompletionOTP        sql.NullString `db:"completion_otp"`
	CompletionOTPExpires sql.NullTime   `db:"completion_otp_expires"`

	Rating float64        `db:"rating"`
	Review sql.NullString `db:"review"`

	PaymentVerified bool    `db:"payment_verified"`
	PaidAmount      float64 `db:"paid_amount"`

	IsMultipleServiceBooking bool           `db:"is_multiple_service_booking"`
	ParentBookingID          sql.NullString `db:"parent_booking_id"`
	ServiceBreakdown         sql.NullString `db:"service_breakdown"`

	model.Metadata
}

// Active reports whether the booking still occupies a worker slot.
func (b Booking) Active() bool {
	return b.Status != StatusCompleted && b.Status != StatusCancelled
}

// Reviewed reports whether a rating has already been submitted. Ratings are
// write-once.
func (b Booking) Reviewed() bool {
	return b.Rating > 0
}

// BreakdownLine is one service of a composite booking, stored as JSON on the
// parent row only.
type BreakdownLine struct {
	ServiceType    string  `json:"service_type"`
	Title          string  `json:"title"`
	Amount         float64 `json:"amount"`
	Quantity       int     `json:"quantity"`
	ChildBookingID string  `json:"child_booking_id"`
}
