package dto

import (
	"time"

	"github.com/connexa-app/connexa-api/internal/models"
)

// CreateGroupRequest is the payload for creating a study group.
type CreateGroupRequest struct {
	Name     string `json:"name" validate:"required,min=3,max=100"`
	Subject  string `json:"subject" validate:"required,min=2,max=100"`
	Goal     string `json:"goal" validate:"required,min=10,max=500"`
	Location string `json:"location" validate:"required,oneof=online in-person"`
	Capacity int    `json:"capacity" validate:"required,gt=0"`
}

// GroupSearchQuery holds the search filters; empty values match everything.
type GroupSearchQuery struct {
	Subject  string `query:"subject" validate:"omitempty,max=100"`
	Location string `query:"location" validate:"omitempty,oneof=online in-person any"`
	Text     string `query:"q" validate:"omitempty,max=100"`
	Page     int    `query:"page"`
	PageSize int    `query:"page_size"`
}

// GroupResponse is the public representation of a group.
type GroupResponse struct {
	ID               uint         `json:"id"`
	Name             string       `json:"name"`
	Subject          string       `json:"subject"`
	Goal             string       `json:"goal"`
	Location         string       `json:"location"`
	Capacity         int          `json:"capacity"`
	ParticipantCount int          `json:"participant_count"`
	AvailableSlots   int          `json:"available_slots"`
	Active           bool         `json:"active"`
	CreatorID        uint         `json:"creator_id"`
	Creator          *UserSummary `json:"creator,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
}

// ParticipantResponse is a roster entry.
type ParticipantResponse struct {
	UserSummary
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

// GroupDetailResponse is a group together with its roster.
type GroupDetailResponse struct {
	GroupResponse
	Participants []ParticipantResponse `json:"participants"`
}

// GroupSearchResponse wraps a page of search results.
type GroupSearchResponse struct {
	Items      []GroupResponse `json:"items"`
	Pagination PaginationMeta  `json:"pagination"`
}

// NewGroupResponse converts a group model. The creator summary is included when preloaded.
func NewGroupResponse(group models.Group) GroupResponse {
	response := GroupResponse{
		ID:               group.ID,
		Name:             group.Name,
		Subject:          group.Subject,
		Goal:             group.Goal,
		Location:         group.Location,
		Capacity:         group.Capacity,
		ParticipantCount: group.ParticipantCount,
		AvailableSlots:   group.Capacity - group.ParticipantCount,
		Active:           group.Active,
		CreatorID:        group.CreatorID,
		CreatedAt:        group.CreatedAt,
	}
	if response.AvailableSlots < 0 {
		response.AvailableSlots = 0
	}
	if group.Creator.ID != 0 {
		creator := NewUserSummary(group.Creator)
		response.Creator = &creator
	}
	return response
}

// NewGroupResponseSlice converts a slice of group models.
func NewGroupResponseSlice(groups []models.Group) []GroupResponse {
	out := make([]GroupResponse, 0, len(groups))
	for _, group := range groups {
		out = append(out, NewGroupResponse(group))
	}
	return out
}

// NewParticipantResponse converts a membership with its preloaded user.
func NewParticipantResponse(member models.GroupMember) ParticipantResponse {
	return ParticipantResponse{
		UserSummary: NewUserSummary(member.User),
		Role:        member.Role,
		JoinedAt:    member.JoinedAt,
	}
}

// NewParticipantResponseSlice converts a roster.
func NewParticipantResponseSlice(members []models.GroupMember) []ParticipantResponse {
	out := make([]ParticipantResponse, 0, len(members))
	for _, member := range members {
		out = append(out, NewParticipantResponse(member))
	}
	return out
}
