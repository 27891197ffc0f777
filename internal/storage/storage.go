package storage

import (
	"context"
	"errors"

	"github.com/qinche/penpal-bot/internal/models"
)

// ErrNotFound is returned when no conversation exists for a user.
// Callers are expected to degrade to a fresh persona record.
var ErrNotFound = errors.New("conversation not found")

type ConversationStore interface {
	LoadConversation(ctx context.Context, userID int64) (*models.Conversation, error)
	SaveConversation(ctx context.Context, userID int64, conv *models.Conversation) error
}

// UserRegistry is the durable set of users who have ever started a
// session. The set only grows; there is no removal operation.
type UserRegistry interface {
	ActiveUsers(ctx context.Context) ([]int64, error)
	AddActiveUser(ctx context.Context, userID int64) error
}

type Storage interface {
	ConversationStore
	UserRegistry
	Close() error
}
