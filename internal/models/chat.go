package models

import (
	"time"

	"github.com/google/uuid"
)

// ChatConversation - диалог пользователя с ассистентом.
type ChatConversation struct {
	ID           uuid.UUID `db:"id" json:"id"`
	UserID       uuid.UUID `db:"user_id" json:"user_id"`
	Title        *string   `db:"title" json:"title,omitempty"`
	MessageCount int       `db:"message_count" json:"message_count"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// ChatMessage - сообщение внутри диалога.
type ChatMessage struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	ConversationID uuid.UUID  `db:"conversation_id" json:"conversation_id"`
	UserID         *uuid.UUID `db:"user_id" json:"user_id,omitempty"`
	Role           string     `db:"role" json:"role"`
	Content        string     `db:"content" json:"content"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}

// ChatConversationDetail - диалог с сообщениями для админки.
type ChatConversationDetail struct {
	ChatConversation
	Messages []ChatMessage `json:"messages"`
}
