package dto

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"tukang/internal/domains/booking/model"
	"tukang/shared"
	"tukang/shared/constant"
)

// ServiceLine is one service of a composite booking request.
type ServiceLine struct {
	ServiceType string  `json:"service_type" validate:"required,max=100"`
	Title       string  `json:"title" validate:"required,max=255"`
	Amount      float64 `json:"amount" validate:"required,gt=0"`
	Quantity    int     `json:"quantity" validate:"omitempty,gte=1"`
}

// CreateBookingRequest books a single service, or several at once when Services
// is set. A composite request creates a parent booking plus one child booking
// and job per line.
type CreateBookingRequest struct {
	ServiceType  string        `json:"service_type" validate:"required_without=Services,max=100"`
	ServiceTitle string        `json:"service_title" validate:"required_without=Services,max=255"`
	Amount       float64       `json:"amount" validate:"required_without=Services,omitempty,gt=0"`
	Services     []ServiceLine `json:"services" validate:"omitempty,min=2,dive"`

	AddressStreet  string `json:"address_street" validate:"required,max=255"`
	AddressCity    string `json:"address_city" validate:"required,max=100"`
	AddressState   string `json:"address_state" validate:"required,max=100"`
	AddressPincode string `json:"address_pincode" validate:"required,len=6,numeric"`
	Phone          string `json:"phone" validate:"required,len=10,numeric"`

	ScheduledDate string `json:"scheduled_date" validate:"required,datetime=2006-01-02"`
	ScheduledTime string `json:"scheduled_time" validate:"required,datetime=15:04"`
}

// Composite reports whether the request books multiple services.
func (r CreateBookingRequest) Composite() bool {
	return len(r.Services) > 0
}

type CancelBookingRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type VerifyCompletionRequest struct {
	OTP string `json:"otp" validate:"required,numeric"`
}

type ReviewRequest struct {
	Rating int    `json:"rating" validate:"required,gte=1,lte=5"`
	Review string `json:"review" validate:"omitempty,max=1000"`
}

// CompletionOTPResponse acknowledges a completion request. The code itself is
// delivered to the customer only.
type CompletionOTPResponse struct {
	BookingID string `json:"booking_id"`
	ExpiresAt string `json:"expires_at"`
}

type BookingResponse struct {
	ID           string `json:"id"`
	CustomerID   string `json:"customer_id"`
	ServiceType  string `json:"service_type,omitempty"`
	ServiceTitle string `json:"service_title,omitempty"`

	AddressStreet  string `json:"address_street"`
	AddressCity    string `json:"address_city"`
	AddressState   string `json:"address_state"`
	AddressPincode string `json:"address_pincode"`
	Phone          string `json:"phone"`

	ScheduledDate string `json:"scheduled_date"`
	ScheduledTime string `json:"scheduled_time"`

	Amount          float64 `json:"amount"`
	DistanceCharge  float64 `json:"distance_charge"`
	TotalAmount     float64 `json:"total_amount"`
	AdminCommission float64 `json:"admin_commission"`
	WorkerPayment   float64 `json:"worker_payment"`
	DistanceKm      float64 `json:"distance_km"`

	Status   string `json:"status"`
	WorkerID string `json:"worker_id,omitempty"`

	AssignedAt   string `json:"assigned_at,omitempty"`
	AcceptedAt   string `json:"accepted_at,omitempty"`
	StartedAt    string `json:"started_at,omitempty"`
	CompletedAt  string `json:"completed_at,omitempty"`
	CancelledAt  string `json:"cancelled_at,omitempty"`
	CancelReason string `json:"cancel_reason,omitempty"`

	Rating float64 `json:"rating,omitempty"`
	Review string  `json:"review,omitempty"`

	PaymentVerified bool    `json:"payment_verified"`
	PaidAmount      float64 `json:"paid_amount,omitempty"`

	IsMultipleServiceBooking bool                  `json:"is_multiple_service_booking"`
	ParentBookingID          string                `json:"parent_booking_id,omitempty"`
	ServiceBreakdown         []model.BreakdownLine `json:"service_breakdown,omitempty"`
	Children                 []BookingResponse     `json:"children,omitempty"`

	CreatedAt string `json:"created_at"`
}

func (r *BookingResponse) FromModel(mod model.Booking) {
	r.ID = mod.ID
	r.CustomerID = mod.CustomerID
	r.ServiceType = mod.ServiceType
	r.ServiceTitle = mod.ServiceTitle
	r.AddressStreet = mod.AddressStreet
	r.AddressCity = mod.AddressCity
	r.AddressState = mod.AddressState
	r.AddressPincode = mod.AddressPincode
	r.Phone = mod.Phone
	r.ScheduledDate = mod.ScheduledDate
	r.ScheduledTime = mod.ScheduledTime
	r.Amount = mod.Amount
	r.DistanceCharge = mod.DistanceCharge
	r.TotalAmount = mod.TotalAmount
	r.AdminCommission = mod.AdminCommission
	r.WorkerPayment = mod.WorkerPayment
	r.DistanceKm = mod.DistanceKm
	r.Status = mod.Status
	r.WorkerID = mod.WorkerID.String
	r.CancelReason = mod.CancelReason.String
	r.Rating = mod.Rating
	r.Review = mod.Review.String
	r.PaymentVerified = mod.PaymentVerified
	r.PaidAmount = mod.PaidAmount
	r.IsMultipleServiceBooking = mod.IsMultipleServiceBooking
	r.ParentBookingID = mod.ParentBookingID.String
	r.CreatedAt = mod.CreatedAt.Format(constant.DateFormat)

	if mod.AssignedAt.Valid {
		r.AssignedAt = mod.AssignedAt.Time.Format(constant.DateFormat)
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
	if mod.CancelledAt.Valid {
		r.CancelledAt = mod.CancelledAt.Time.Format(constant.DateFormat)
	}

	if mod.ServiceBreakdown.Valid && mod.ServiceBreakdown.String != constant.Empty {
		var breakdown []model.BreakdownLine
		if err := json.Unmarshal([]byte(mod.ServiceBreakdown.String), &breakdown); err != nil {
			log.Warn().Err(err).Str("bookingID", mod.ID).Msg("failed to decode service breakdown")
		} else {
			r.ServiceBreakdown = breakdown
		}
	}
}

type GetBookingsResponse struct {
	Bookings  []BookingResponse `json:"bookings"`
	TotalPage int               `json:"total_page"`
	TotalData int               `json:"total_data"`
}

func (r *GetBookingsResponse) FromModels(models []model.Booking, totalData, limit int) {
	r.TotalData = totalData
	r.TotalPage = shared.CalculateTotalPage(totalData, limit)

	r.Bookings = make([]BookingResponse, len(models))
	for i, mod := range models {
		r.Bookings[i].FromModel(mod)
	}
}
