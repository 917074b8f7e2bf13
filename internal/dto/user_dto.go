package dto

import (
	"time"

	"github.com/connexa-app/connexa-api/internal/models"
)

// UserResponse is the public profile of an account.
type UserResponse struct {
	ID             uint      `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Course         string    `json:"course"`
	Period         string    `json:"period"`
	Interests      []string  `json:"interests"`
	Avatar         string    `json:"avatar"`
	PhotoURL       string    `json:"photo_url,omitempty"`
	EmailConfirmed bool      `json:"email_confirmed"`
	CreatedAt      time.Time `json:"created_at"`
}

// UserSummary is the display profile embedded in group and message payloads.
type UserSummary struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	Course   string `json:"course"`
	Period   string `json:"period"`
	Avatar   string `json:"avatar"`
	PhotoURL string `json:"photo_url,omitempty"`
}

// UpdateProfileRequest carries the optional profile fields a user may change.
type UpdateProfileRequest struct {
	Name      *string   `json:"name" validate:"omitempty,min=2,max=100"`
	Course    *string   `json:"course" validate:"omitempty,min=2,max=100"`
	Period    *string   `json:"period" validate:"omitempty,min=1,max=20"`
	Interests *[]string `json:"interests" validate:"omitempty,max=20,dive,min=1,max=50"`
	Avatar    *string   `json:"avatar" validate:"omitempty,avatar"`
}

// IsEmpty reports whether no field was supplied.
func (r UpdateProfileRequest) IsEmpty() bool {
	return r.Name == nil && r.Course == nil && r.Period == nil && r.Interests == nil && r.Avatar == nil
}

// DeleteAccountRequest confirms account removal with the current password.
type DeleteAccountRequest struct {
	Password string `json:"password" validate:"required"`
}

// PhotoResponse is returned after a profile photo upload.
type PhotoResponse struct {
	PhotoURL  string `json:"photo_url"`
	MimeType  string `json:"mime_type"`
	SizeBytes int64  `json:"size_bytes"`
}

// AvatarCatalogueResponse lists the selectable avatars.
type AvatarCatalogueResponse struct {
	Avatars []models.Avatar `json:"avatars"`
	Default string          `json:"default"`
}

// MyGroupResponse is a group the caller belongs to.
type MyGroupResponse struct {
	GroupResponse
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

// NewUserResponse converts a user model into its public profile.
func NewUserResponse(user models.User) UserResponse {
	interests := []string(user.Interests)
	if interests == nil {
		interests = []string{}
	}
	return UserResponse{
		ID:             user.ID,
		Name:           user.Name,
		Email:          user.Email,
		Course:         user.Course,
		Period:         user.Period,
		Interests:      interests,
		Avatar:         user.Avatar,
		PhotoURL:       user.PhotoURL,
		EmailConfirmed: user.EmailConfirmed,
		CreatedAt:      user.CreatedAt,
	}
}

// NewUserSummary converts a user model into its display profile.
func NewUserSummary(user models.User) UserSummary {
	return UserSummary{
		ID:       user.ID,
		Name:     user.Name,
		Course:   user.Course,
		Period:   user.Period,
		Avatar:   user.Avatar,
		PhotoURL: user.PhotoURL,
	}
}

// NewMyGroupResponse converts a membership with its preloaded group.
func NewMyGroupResponse(member models.GroupMember) MyGroupResponse {
	return MyGroupResponse{
		GroupResponse: NewGroupResponse(member.Group),
		Role:          member.Role,
		JoinedAt:      member.JoinedAt,
	}
}
