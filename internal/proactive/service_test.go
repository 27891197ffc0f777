package proactive

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/qinche/penpal-bot/internal/models"
	"github.com/qinche/penpal-bot/internal/storage"
)

type stubClient struct {
	reply    string
	err      error
	received []models.Message
}

func (c *stubClient) Complete(_ context.Context, messages []models.Message) (string, error) {
	c.received = messages
	return c.reply, c.err
}

type recordingSender struct {
	sent []string
	err  error
}

func (r *recordingSender) SendText(_ int64, text string) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, text)
	return nil
}

func newTestService(store storage.ConversationStore, client *stubClient, sender *recordingSender) *Service {
	s := NewService(store, client, sender, "persona", 0, time.UTC, zap.NewNop())
	s.now = func() time.Time { return time.Date(2024, 5, 12, 10, 0, 0, 0, time.UTC) }
	return s
}

func TestRunDeliversAndPersists(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStorage()

	conv := models.NewConversation("persona")
	conv.Append(models.RoleUser, "我想去爬山")
	conv.Append(models.RoleAssistant, "好主意！")
	if err := store.SaveConversation(ctx, 42, conv); err != nil {
		t.Fatalf("seed: %v", err)
	}

	client := &stubClient{reply: "早上好！你的爬山计划怎么样了？"}
	sender := &recordingSender{}
	s := newTestService(store, client, sender)

	if err := s.Run(ctx, 42); err != nil {
		t.Fatalf("run: %v", err)
	}

	// Fresh one-shot request: a single system message, not the history
	if len(client.received) != 1 || client.received[0].Role != models.RoleSystem {
		t.Fatalf("unexpected request messages: %#v", client.received)
	}
	if !strings.Contains(client.received[0].Content, "我想去爬山") {
		t.Fatalf("prompt missing recent topic:\n%s", client.received[0].Content)
	}

	want := []string{"早上好！", "你的爬山计划怎么样了？"}
	if len(sender.sent) != len(want) {
		t.Fatalf("sent %d segments, want %d: %#v", len(sender.sent), len(want), sender.sent)
	}
	for i := range want {
		if sender.sent[i] != want[i] {
			t.Fatalf("segment %d = %q, want %q", i, sender.sent[i], want[i])
		}
	}

	saved, err := store.LoadConversation(ctx, 42)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	last := saved.History[len(saved.History)-1]
	if last.Role != models.RoleAssistant || last.Content != client.reply {
		t.Fatalf("reply not appended as one message: %+v", last)
	}
	if len(saved.History) != len(conv.History)+1 {
		t.Fatalf("history grew by %d, want 1", len(saved.History)-len(conv.History))
	}
}

func TestRunStartsFreshOnMissingRecord(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStorage()
	client := &stubClient{reply: "你好！"}
	sender := &recordingSender{}
	s := newTestService(store, client, sender)

	if err := s.Run(ctx, 7); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(client.received[0].Content, "none") {
		t.Fatalf("fresh record should yield no topics:\n%s", client.received[0].Content)
	}

	saved, err := store.LoadConversation(ctx, 7)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(saved.History) != 2 || saved.History[0].Role != models.RoleSystem {
		t.Fatalf("unexpected persisted record: %#v", saved.History)
	}
}

func TestRunAbortsOnCompletionFailure(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStorage()
	client := &stubClient{err: errors.New("backend down")}
	sender := &recordingSender{}
	s := newTestService(store, client, sender)

	if err := s.Run(ctx, 42); err == nil {
		t.Fatalf("completion failure did not surface")
	}
	if len(sender.sent) != 0 {
		t.Fatalf("segments sent despite failure: %#v", sender.sent)
	}
	if _, err := store.LoadConversation(ctx, 42); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("history mutated despite failure: %v", err)
	}
}

func TestRunSkipsSaveOnTransportFailure(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStorage()
	client := &stubClient{reply: "你好！"}
	sender := &recordingSender{err: errors.New("blocked")}
	s := newTestService(store, client, sender)

	if err := s.Run(ctx, 42); err == nil {
		t.Fatalf("transport failure did not surface")
	}
	if _, err := store.LoadConversation(ctx, 42); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("history mutated despite transport failure: %v", err)
	}
}
