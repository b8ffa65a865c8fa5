package model

import (
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// MaxMessageLength caps a chat message, in characters.
	MaxMessageLength = 2000
	// lastMessagePreview is how much of the newest message a thread keeps.
	lastMessagePreview = 100
)

// Thread is a private conversation about an item between its owner and one
// other user.
type Thread struct {
	ID            int64     `json:"id"`
	ItemID        string    `json:"item_id"`
	OwnerID       int64     `json:"owner_id"`
	ParticipantID int64     `json:"participant_id"`
	LastMessage   string    `json:"last_message,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// HasMember reports whether userID is one of the two sides of the thread.
func (t *Thread) HasMember(userID int64) bool {
	return userID != 0 && (userID == t.OwnerID || userID == t.ParticipantID)
}

// Message is a single chat message in a thread.
type Message struct {
	ID        int64     `json:"id"`
	ThreadID  int64     `json:"thread_id"`
	SenderID  int64     `json:"sender_id"`
	Content   string    `json:"content"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// ValidateMessage checks a message body and returns it trimmed.
func ValidateMessage(content string) (string, error) {
	content = strings.TrimSpace(content)
	switch {
	case content == "":
		return "", NewValidationError("content", "required")
	case utf8.RuneCountInString(content) > MaxMessageLength:
		return "", NewValidationError("content", "max 2000 characters")
	}
	return content, nil
}

// Preview shortens content to the length a thread keeps as its last message.
func Preview(content string) string {
	if utf8.RuneCountInString(content) <= lastMessagePreview {
		return content
	}
	return string([]rune(content)[:lastMessagePreview])
}
