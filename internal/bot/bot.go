package bot

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/qinche/penpal-bot/internal/llm"
	"github.com/qinche/penpal-bot/internal/models"
	"github.com/qinche/penpal-bot/internal/proactive"
	"github.com/qinche/penpal-bot/internal/scheduler"
	"github.com/qinche/penpal-bot/internal/splitter"
	"github.com/qinche/penpal-bot/internal/storage"
)

// api is the slice of the Telegram client the handlers need.
type api interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Bot struct {
	api        api
	updates    *tgbotapi.BotAPI
	store      storage.Storage
	client     llm.Client
	proactive  *proactive.Service
	scheduler  *scheduler.Service
	persona    string
	replyPause time.Duration
	logger     *zap.Logger
}

func New(token string, store storage.Storage, client llm.Client,
	persona string, replyPause time.Duration, logger *zap.Logger) (*Bot, error) {
	botAPI, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}

	return &Bot{
		api:        botAPI,
		updates:    botAPI,
		store:      store,
		client:     client,
		persona:    persona,
		replyPause: replyPause,
		logger:     logger,
	}, nil
}

// Attach wires the proactive service and scheduler. Both depend on the
// bot as their transport, so they are built after it.
func (b *Bot) Attach(p *proactive.Service, s *scheduler.Service) {
	b.proactive = p
	b.scheduler = s
}

func (b *Bot) Start() error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.updates.GetUpdatesChan(u)

	for update := range updates {
		if update.Message == nil {
			continue
		}
		go b.handleMessage(update.Message)
	}

	return nil
}

// SendText delivers a single already-split segment; the proactive
// service uses the user id as the private chat id.
func (b *Bot) SendText(userID int64, text string) error {
	_, err := b.api.Send(tgbotapi.NewMessage(userID, text))
	return err
}

func (b *Bot) handleMessage(message *tgbotapi.Message) {
	ctx := context.Background()

	if message.IsCommand() {
		b.handleCommand(ctx, message)
		return
	}
	if message.Text == "" {
		return
	}

	userID := message.From.ID
	conv, err := b.store.LoadConversation(ctx, userID)
	if err != nil {
		conv = models.NewConversation(b.persona)
	}
	conv.Append(models.RoleUser, message.Text)

	reply, err := b.client.Complete(ctx, conv.History)
	if err != nil {
		b.logger.Error("Failed to generate reply",
			zap.Error(err),
			zap.Int64("user_id", userID))
		return
	}

	conv.Append(models.RoleAssistant, reply)
	if err := b.store.SaveConversation(ctx, userID, conv); err != nil {
		b.logger.Error("Failed to save conversation",
			zap.Error(err),
			zap.Int64("user_id", userID))
	}

	b.sendSegments(message.Chat.ID, reply, b.replyPause)
}

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	switch message.Command() {
	case "start":
		b.handleStart(ctx, message)
	case "sendnow":
		b.handleSendNow(ctx, message)
	case "help":
		b.handleHelp(message)
	default:
		b.sendMessage(message.Chat.ID, "Unknown command. Use /help to see available commands.")
	}
}

func (b *Bot) handleStart(ctx context.Context, message *tgbotapi.Message) {
	userID := message.From.ID

	b.sendMessage(message.Chat.ID, fmt.Sprintf(
		"Hello %s! I'm your AI pen-pal, nice to meet you. I'll chat with you periodically!",
		message.From.FirstName))

	if _, err := b.store.LoadConversation(ctx, userID); err != nil {
		conv := models.NewConversation(b.persona)
		if err := b.store.SaveConversation(ctx, userID, conv); err != nil {
			b.logger.Error("Failed to initialize conversation",
				zap.Error(err),
				zap.Int64("user_id", userID))
		}
	}

	if err := b.store.AddActiveUser(ctx, userID); err != nil {
		b.logger.Error("Failed to register active user",
			zap.Error(err),
			zap.Int64("user_id", userID))
	}

	b.scheduler.ScheduleWelcome(userID)
}

func (b *Bot) handleSendNow(ctx context.Context, message *tgbotapi.Message) {
	userID := message.From.ID
	b.logger.Info("Immediate proactive message requested", zap.Int64("user_id", userID))

	b.sendMessage(message.Chat.ID, "Generating and sending a proactive message...")

	if err := b.proactive.Run(ctx, userID); err != nil {
		b.logger.Error("Manual proactive message failed",
			zap.Error(err),
			zap.Int64("user_id", userID))
		b.sendMessage(message.Chat.ID, fmt.Sprintf("Error sending message: %v", err))
	}
}

func (b *Bot) handleHelp(message *tgbotapi.Message) {
	help := `Available commands:
/start - Start chatting and enable daily check-ins
/sendnow - Ask me to write to you right now
/help - Show this help message

Just send me any text message and I'll reply. I'll also write to you
on my own once in a while!`

	b.sendMessage(message.Chat.ID, help)
}

// sendSegments delivers a reply sentence by sentence with a short
// pause between segments. A failed send aborts the remaining segments.
func (b *Bot) sendSegments(chatID int64, text string, pause time.Duration) {
	for i, segment := range splitter.Split(text) {
		if i > 0 {
			time.Sleep(pause)
		}
		if _, err := b.api.Send(tgbotapi.NewMessage(chatID, segment)); err != nil {
			b.logger.Error("Failed to send segment",
				zap.Error(err),
				zap.Int64("chat_id", chatID))
			return
		}
	}
}

func (b *Bot) sendMessage(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}
