package domain

import (
	"time"

	"github.com/google/uuid"
)

// Sender identifies who authored a conversation message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Disease is a persisted disease entity. Rows are created lazily the first
// time an analysis references a disease name that is not yet stored; name is
// unique (case-sensitive exact match).
type Disease struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Conversation is a consultation thread between a user and the assistant.
type Conversation struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// ConversationMessage is a single message within a conversation.
type ConversationMessage struct {
	ID             uuid.UUID `json:"id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	Sender         Sender    `json:"sender"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// Report is an auto-generated health analysis report for a conversation.
// Reports are immutable once created.
type Report struct {
	ID               uuid.UUID            `json:"id"`
	ConversationID   uuid.UUID            `json:"conversation_id"`
	Title            string               `json:"title"`
	Summary          string               `json:"summary"`
	Content          string               `json:"content"`
	DetectedSymptoms []string             `json:"detected_symptoms"`
	Diseases         []DiseaseProbability `json:"diseases_with_probabilities"`
	Suggestions      []string             `json:"health_suggestions"`
	SeverityLevel    SeverityLevel        `json:"severity_level"`
	CreatedAt        time.Time            `json:"created_at"`
}

// UserProfile carries the profile fields the greeting and report prompts
// personalize on. It is a read-only projection of the user record owned by
// the surrounding CRUD layer.
type UserProfile struct {
	ID           uuid.UUID `json:"id"`
	Nickname     string    `json:"nickname"`
	Gender       string    `json:"gender"`
	AgeRange     string    `json:"age_range"`
	UsualIllness []string  `json:"usual_illness"`
}
