package models

import "gorm.io/gorm"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one entry of a user's chat transcript.
type ChatMessage struct {
	gorm.Model
	UserID  string `gorm:"index;not null" json:"user_id"`
	Role    string `gorm:"size:16;not null" json:"role"`
	Content string `gorm:"type:text" json:"content"`
}
