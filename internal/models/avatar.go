package models

// DefaultAvatar is assigned to accounts that register without choosing one.
const DefaultAvatar = "avatar-1"

// Avatar is an entry of the built-in avatar catalogue.
type Avatar struct {
	ID          string `json:"id"`
	Description string `json:"description"`
}

// Avatars is the fixed catalogue users pick from.
var Avatars = []Avatar{
	{ID: "avatar-1", Description: "Student with books"},
	{ID: "avatar-2", Description: "Student with laptop"},
	{ID: "avatar-3", Description: "Graduate cap"},
	{ID: "avatar-4", Description: "Scientist with flask"},
	{ID: "avatar-5", Description: "Artist with palette"},
	{ID: "avatar-6", Description: "Engineer with helmet"},
	{ID: "avatar-7", Description: "Musician with headphones"},
	{ID: "avatar-8", Description: "Athlete with ball"},
}

// IsValidAvatar reports whether id names a catalogue avatar.
func IsValidAvatar(id string) bool {
	for _, avatar := range Avatars {
		if avatar.ID == id {
			return true
		}
	}
	return false
}
