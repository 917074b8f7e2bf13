package dto

import (
	"time"

	"github.com/connexa-app/connexa-api/internal/models"
)

// NotificationListQuery filters a user's inbox.
type NotificationListQuery struct {
	Read     *bool
	Type     string
	Page     int
	PageSize int
}

// NotificationResponse represents notification data returned to clients.
type NotificationResponse struct {
	ID        uint      `json:"id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	GroupID   *uint     `json:"group_id"`
	GroupName string    `json:"group_name,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// NotificationListResponse is a page of notifications plus the inbox unread count.
type NotificationListResponse struct {
	Items       []NotificationResponse `json:"items"`
	UnreadCount int64                  `json:"unread_count"`
	Pagination  PaginationMeta         `json:"pagination"`
}

// NotificationStatsResponse summarises an inbox.
type NotificationStatsResponse struct {
	Total  int64            `json:"total"`
	Read   int64            `json:"read"`
	Unread int64            `json:"unread"`
	ByType map[string]int64 `json:"by_type"`
}

// BulkResult reports how many rows a bulk operation touched.
type BulkResult struct {
	Affected int64 `json:"affected"`
}

// NewNotificationResponse converts a notification model to DTO.
func NewNotificationResponse(model models.Notification) NotificationResponse {
	response := NotificationResponse{
		ID:        model.ID,
		Type:      model.Type,
		Title:     model.Title,
		Body:      model.Body,
		GroupID:   model.GroupID,
		Read:      model.Read,
		CreatedAt: model.CreatedAt,
	}
	if model.Group != nil {
		response.GroupName = model.Group.Name
	}
	return response
}

// NewNotificationResponseSlice converts a slice of notification models.
func NewNotificationResponseSlice(items []models.Notification) []NotificationResponse {
	out := make([]NotificationResponse, 0, len(items))
	for _, item := range items {
		out = append(out, NewNotificationResponse(item))
	}
	return out
}
