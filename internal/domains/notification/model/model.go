package model

import (
	"database/sql"

	"tukang/shared/model"
)

const (
	TableName  = "notifications"
	EntityName = "notification"

	FieldID            = "id"
	FieldRecipientID   = "recipient_id"
	FieldRecipientKind = "recipient_kind"
	FieldType          = "type"
	FieldMessage       = "message"
	FieldBookingID     = "booking_id"
	FieldJobID         = "job_id"
	FieldRead          = "read"
)

// Recipient kinds.
const (
	RecipientCustomer = "customer"
	RecipientWorker   = "worker"
	RecipientAdmin    = "admin"
)

// AdminBroadcastID is the shared inbox id admin notifications are addressed to.
const AdminBroadcastID = "admin"

// Notification types mirror lifecycle events of bookings and jobs.
const (
	TypeBookingCreated   = "booking_created"
	TypeBookingAssigned  = "booking_assigned"
	TypeBookingAccepted  = "booking_accepted"
	TypeBookingRejected  = "booking_rejected"
	TypeBookingStarted   = "booking_started"
	TypeBookingCompleted = "booking_completed"
	TypeBookingCancelled = "booking_cancelled"
	TypeCompletionOTP    = "completion_otp"
	TypeJobOffered       = "job_offered"
	TypeJobAccepted      = "job_accepted"
	TypeJobRejected      = "job_rejected"
	TypeJobExhausted     = "job_exhausted"
	TypeJobCompleted     = "job_completed"
	TypeJobCancelled     = "job_cancelled"
	TypeReviewReceived   = "review_received"
)

type Notification struct {
	ID            string         `db:"id"`
	RecipientID   string         `db:"recipient_id"`
	RecipientKind string         `db:"recipient_kind"`
	Type          string         `db:"type"`
	Message       string         `db:"message"`
	BookingID     sql.NullString `db:"booking_id"`
	JobID         sql.NullString `db:"job_id"`
	Read          bool           `db:"read"`

	model.Metadata
}
