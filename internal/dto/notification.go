package dto

import "github.com/noah-isme/grievance-api/internal/models"

// NotificationSummary is the header badge view.
type NotificationSummary struct {
	Latest      []models.Notification `json:"latest"`
	UnreadCount int                   `json:"unread_count"`
}

// MarkReadResponse returns the unread count after marking.
type MarkReadResponse struct {
	UnreadCount int `json:"unread_count"`
}
