package models

// All returns every persisted model in migration order.
func All() []interface{} {
	return []interface{}{&User{}, &Group{}, &GroupMember{}, &Message{}, &Notification{}}
}
