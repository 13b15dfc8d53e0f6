package models

// Sender identifies the author of a message.
type Sender struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar,omitempty"`
	Role      string `json:"role,omitempty"`
}

// Participant is a member of a conversation as listed by the chat backend.
type Participant struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
	Online bool   `json:"isOnline"`
}
