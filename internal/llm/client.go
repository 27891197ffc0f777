package llm

import (
	"context"

	"github.com/qinche/penpal-bot/internal/models"
)

// Client generates the next assistant message for a conversation.
type Client interface {
	Complete(ctx context.Context, messages []models.Message) (string, error)
}
