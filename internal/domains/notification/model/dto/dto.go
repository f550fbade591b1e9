package dto

import (
	"tukang/internal/domains/notification/model"
	"tukang/shared"
)

// Recipient is one target of a dispatch. Dispatches fan out to several
// recipients and each insert succeeds or fails on its own.
type Recipient struct {
	ID   string
	Kind string
}

// DispatchRequest describes one lifecycle event to announce.
type DispatchRequest struct {
	Type       string
	Message    string
	BookingID  string
	JobID      string
	Recipients []Recipient
}

// Event is the payload published to the notification topic.
type Event struct {
	NotificationID string `json:"notification_id"`
	RecipientID    string `json:"recipient_id"`
	RecipientKind  string `json:"recipient_kind"`
	Type           string `json:"type"`
	Message        string `json:"message"`
	BookingID      string `json:"booking_id,omitempty"`
	JobID          string `json:"job_id,omitempty"`
}

type NotificationResponse struct {
	ID            string `json:"id"`
	RecipientID   string `json:"recipient_id"`
	RecipientKind string `json:"recipient_kind"`
	Type          string `json:"type"`
	Message       string `json:"message"`
	BookingID     string `json:"booking_id,omitempty"`
	JobID         string `json:"job_id,omitempty"`
	Read          bool   `json:"read"`
	CreatedAt     string `json:"created_at"`
}

func (r *NotificationResponse) FromModel(mod model.Notification) {
	r.ID = mod.ID
	r.RecipientID = mod.RecipientID
	r.RecipientKind = mod.RecipientKind
	r.Type = mod.Type
	r.Message = mod.Message
	r.BookingID = mod.BookingID.String
	r.JobID = mod.JobID.String
	r.Read = mod.Read
	r.CreatedAt = mod.CreatedAt.Format("2006-01-02 15:04:05")
}

type GetNotificationsResponse struct {
	Notifications []NotificationResponse `json:"notifications"`
	UnreadCount   int                    `json:"unread_count"`
	TotalPage     int                    `json:"total_page"`
	TotalData     int                    `json:"total_data"`
}

func (r *GetNotificationsResponse) FromModels(models []model.Notification, unread, totalData, limit int) {
	r.UnreadCount = unread
	r.TotalData = totalData
	r.TotalPage = shared.CalculateTotalPage(totalData, limit)

	r.Notifications = make([]NotificationResponse, len(models))
	for i, mod := range models {
		r.Notifications[i].FromModel(mod)
	}
}
