package domain

import "strings"

// Identity is what the authentication collaborator hands us for a session.
type Identity struct {
	UserID string
	Email  string
}

// Username is the local part of the email address.
func (i Identity) Username() string {
	if at := strings.IndexByte(i.Email, '@'); at >= 0 {
		return i.Email[:at]
	}
	return i.Email
}

type UserProfile struct {
	Username        string     `json:"username"`
	Email           string     `json:"email"`
	ProfileImageURL string     `json:"profileImageUrl,omitempty"`
	Favorites       []Location `json:"favoriteLocations"`
}

// Message is one turn of the assistant conversation.
type Message struct {
	Text   string `json:"text"`
	IsUser bool   `json:"isUser"`
}
