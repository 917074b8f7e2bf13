package dto

import (
	"time"

	"github.com/connexa-app/connexa-api/internal/models"
)

// SendMessageRequest is the payload for posting into a group.
type SendMessageRequest struct {
	Content string `json:"content"`
}

// MessageResponse is a group message with its author's display profile.
type MessageResponse struct {
	ID        uint         `json:"id"`
	GroupID   uint         `json:"group_id"`
	AuthorID  uint         `json:"author_id"`
	Author    *UserSummary `json:"author,omitempty"`
	Content   string       `json:"content"`
	CreatedAt time.Time    `json:"created_at"`
}

// MessageListResponse wraps a page of messages in chronological order.
type MessageListResponse struct {
	Items      []MessageResponse `json:"items"`
	Pagination PaginationMeta    `json:"pagination"`
}

// NewMessageResponse converts a message model.
func NewMessageResponse(message models.Message) MessageResponse {
	response := MessageResponse{
		ID:        message.ID,
		GroupID:   message.GroupID,
		AuthorID:  message.AuthorID,
		Content:   message.Content,
		CreatedAt: message.CreatedAt,
	}
	if message.Author.ID != 0 {
		author := NewUserSummary(message.Author)
		response.Author = &author
	}
	return response
}

// NewMessageResponseSlice converts a slice of messages preserving order.
func NewMessageResponseSlice(messages []models.Message) []MessageResponse {
	out := make([]MessageResponse, 0, len(messages))
	for _, message := range messages {
		out = append(out, NewMessageResponse(message))
	}
	return out
}
