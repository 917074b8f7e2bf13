package models

import "time"

// Notification types.
const (
	NotificationNewMember   = "new_member"
	NotificationNewMessage  = "new_message"
	NotificationGroupChange = "group_change"
)

// NotificationTypes lists every notification type in display order.
var NotificationTypes = []string{NotificationNewMember, NotificationNewMessage, NotificationGroupChange}

// Notification is an inbox entry owned by its recipient.
type Notification struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Type      string    `gorm:"size:32;not null" json:"type"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	GroupID   *uint     `gorm:"index" json:"group_id"`
	Group     *Group    `gorm:"foreignKey:GroupID" json:"-"`
	Read      bool      `gorm:"not null;default:false;index" json:"read"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// IsValidNotificationType reports whether t is a known notification type.
func IsValidNotificationType(t string) bool {
	for _, known := range NotificationTypes {
		if known == t {
			return true
		}
	}
	return false
}
