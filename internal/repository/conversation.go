package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/health-consult-server/internal/domain"
)

// ConversationRepository handles conversation and message persistence.
type ConversationRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewConversationRepository creates a new conversation repository.
func NewConversationRepository(db *pgxpool.Pool, logger *logrus.Logger) *ConversationRepository {
	return &ConversationRepository{
		db:  db,
		log: logger,
	}
}

// GetConversation retrieves a conversation by ID.
func (r *ConversationRepository) GetConversation(ctx context.Context, id string) (*domain.Conversation, error) {
	query := `
		SELECT id, user_id, title, created_at
		FROM conversations
		WHERE id = $1`

	var conversation domain.Conversation
	err := r.db.QueryRow(ctx, query, id).Scan(
		&conversation.ID,
		&conversation.UserID,
		&conversation.Title,
		&conversation.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("conversation not found: %w", domain.ErrNotFound)
		}
		r.log.WithFields(logrus.Fields{
			"conversation_id": id,
			"error":           err,
		}).Error("Failed to get conversation")
		return nil, fmt.Errorf("getting conversation: %w", err)
	}

	return &conversation, nil
}

// ListMessages returns all messages of a conversation ordered by creation
// time.
func (r *ConversationRepository) ListMessages(ctx context.Context, conversationID string) ([]domain.ConversationMessage, error) {
	query := `
		SELECT id, conversation_id, sender, content, created_at
		FROM conversation_messages
		WHERE conversation_id = $1
		ORDER BY created_at`

	rows, err := r.db.Query(ctx, query, conversationID)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"conversation_id": conversationID,
			"error":           err,
		}).Error("Failed to list messages")
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	defer rows.Close()

	var messages []domain.ConversationMessage
	for rows.Next() {
		var msg domain.ConversationMessage
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Sender, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message row: %w", err)
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating message rows: %w", err)
	}

	return messages, nil
}

// AddMessage appends a message to a conversation.
func (r *ConversationRepository) AddMessage(ctx context.Context, msg *domain.ConversationMessage) error {
	query := `
		INSERT INTO conversation_messages (id, conversation_id, sender, content, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.Exec(ctx, query, msg.ID, msg.ConversationID, msg.Sender, msg.Content, msg.CreatedAt)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"conversation_id": msg.ConversationID,
			"error":           err,
		}).Error("Failed to add message")
		return fmt.Errorf("adding message: %w", err)
	}

	return nil
}
