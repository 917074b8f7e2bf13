package models

import "time"

// Group locations.
const (
	LocationOnline   = "online"
	LocationInPerson = "in-person"
)

// Membership roles.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// Group is a study group. Groups are never hard-deleted; Active=false hides them.
type Group struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	Name             string    `gorm:"size:100;not null" json:"name"`
	Subject          string    `gorm:"size:100;not null;index" json:"subject"`
	Goal             string    `gorm:"size:500;not null" json:"goal"`
	Location         string    `gorm:"size:16;not null" json:"location"`
	Capacity         int       `gorm:"not null" json:"capacity"`
	ParticipantCount int       `gorm:"not null;default:1" json:"participant_count"`
	CreatorID        uint      `gorm:"not null;index" json:"creator_id"`
	Creator          User      `gorm:"foreignKey:CreatorID" json:"-"`
	Active           bool      `gorm:"not null;default:true;index" json:"active"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TableName keeps the table name clear of the SQL GROUPS keyword.
func (Group) TableName() string {
	return "study_groups"
}

// GroupMember links a user to a group with a role. One row per (group, user).
type GroupMember struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	GroupID  uint      `gorm:"not null;index;uniqueIndex:idx_group_member" json:"group_id"`
	UserID   uint      `gorm:"not null;index;uniqueIndex:idx_group_member" json:"user_id"`
	Role     string    `gorm:"size:16;not null;default:'member'" json:"role"`
	JoinedAt time.Time `gorm:"not null" json:"joined_at"`
	User     User      `gorm:"foreignKey:UserID" json:"-"`
	Group    Group     `gorm:"foreignKey:GroupID" json:"-"`
}
