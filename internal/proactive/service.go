package proactive

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/qinche/penpal-bot/internal/llm"
	"github.com/qinche/penpal-bot/internal/models"
	"github.com/qinche/penpal-bot/internal/splitter"
	"github.com/qinche/penpal-bot/internal/storage"
)

const (
	topicWindow = 10
	topicMax    = 3
)

// Sender delivers one already-split segment to a user.
type Sender interface {
	SendText(userID int64, text string) error
}

// Service generates and delivers one proactive message per run. It is
// invoked by fired timers and by the /sendnow command.
type Service struct {
	store   storage.ConversationStore
	client  llm.Client
	sender  Sender
	persona string
	pause   time.Duration
	loc     *time.Location
	now     func() time.Time
	logger  *zap.Logger
}

func NewService(store storage.ConversationStore, client llm.Client, sender Sender,
	persona string, pause time.Duration, loc *time.Location, logger *zap.Logger) *Service {
	return &Service{
		store:   store,
		client:  client,
		sender:  sender,
		persona: persona,
		pause:   pause,
		loc:     loc,
		now:     time.Now,
		logger:  logger,
	}
}

// Run composes a time-of-day-aware prompt, requests a fresh completion
// (deliberately without the full conversation history), and delivers
// the reply segment by segment. A completion failure aborts the run
// before anything is sent or persisted; a save failure after delivery
// is logged only, so the user may hold a message history never saw.
func (s *Service) Run(ctx context.Context, userID int64) error {
	log := s.logger.With(
		zap.String("run_id", uuid.New().String()),
		zap.Int64("user_id", userID))

	conv, err := s.store.LoadConversation(ctx, userID)
	if err != nil {
		log.Warn("Conversation unavailable, starting fresh", zap.Error(err))
		conv = models.NewConversation(s.persona)
	}

	now := s.now().In(s.loc)
	prompt := BuildPrompt(now, DayPart(now.Hour()), conv.LastUserContents(topicWindow, topicMax))

	reply, err := s.client.Complete(ctx, []models.Message{
		{Role: models.RoleSystem, Content: prompt},
	})
	if err != nil {
		return fmt.Errorf("generate proactive message: %w", err)
	}

	segments := splitter.Split(reply)
	for i, segment := range segments {
		if i > 0 {
			time.Sleep(s.pause)
		}
		if err := s.sender.SendText(userID, segment); err != nil {
			return fmt.Errorf("send segment %d of %d: %w", i+1, len(segments), err)
		}
	}

	conv.Append(models.RoleAssistant, reply)
	if err := s.store.SaveConversation(ctx, userID, conv); err != nil {
		log.Error("Failed to save conversation after delivery", zap.Error(err))
	}

	log.Info("Proactive message delivered", zap.Int("segments", len(segments)))
	return nil
}
