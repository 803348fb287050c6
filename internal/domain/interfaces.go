package domain

import (
	"context"
)

// DiseaseRepository persists disease entities. FindOrCreate must be safe
// against concurrent creation of the same name: implementations resolve the
// insert race with a unique constraint and re-read on conflict, so exactly
// one row per name survives.
type DiseaseRepository interface {
	FindByName(ctx context.Context, name string) (*Disease, error)
	FindOrCreate(ctx context.Context, name, description string) (*Disease, error)
}

// ConversationRepository reads consultation threads and their messages.
type ConversationRepository interface {
	GetConversation(ctx context.Context, id string) (*Conversation, error)
	ListMessages(ctx context.Context, conversationID string) ([]ConversationMessage, error)
	AddMessage(ctx context.Context, msg *ConversationMessage) error
}

// ReportRepository persists generated health reports.
type ReportRepository interface {
	Create(ctx context.Context, report *Report) error
	GetByID(ctx context.Context, id string) (*Report, error)
	ListByConversation(ctx context.Context, conversationID string) ([]Report, error)
}

// UserProfileRepository reads the profile projection used for greetings and
// report prompts.
type UserProfileRepository interface {
	GetProfile(ctx context.Context, userID string) (*UserProfile, error)
}

// ConfigManager provides access to application configuration.
type ConfigManager interface {
	GetConfig() *Config
	GetServerConfig() *ServerConfig
	GetDatabaseConfig() *DatabaseConfig
	Validate() error
}
