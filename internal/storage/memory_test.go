package storage

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/qinche/penpal-bot/internal/models"
)

func TestMemoryStorageBasics(t *testing.T) {
	s := NewMemoryStorage()
	ctx := context.Background()

	if _, err := s.LoadConversation(ctx, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}

	conv := models.NewConversation("p")
	conv.Append(models.RoleUser, "hi")
	if err := s.SaveConversation(ctx, 1, conv); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Mutating the saved record must not leak into the store
	conv.Append(models.RoleUser, "extra")
	loaded, err := s.LoadConversation(ctx, 1)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded.History) != 2 {
		t.Fatalf("store shares state with caller: %#v", loaded.History)
	}

	if err := s.AddActiveUser(ctx, 5); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.AddActiveUser(ctx, 5); err != nil {
		t.Fatalf("second add: %v", err)
	}
	if err := s.AddActiveUser(ctx, 2); err != nil {
		t.Fatalf("add: %v", err)
	}

	users, err := s.ActiveUsers(ctx)
	if err != nil {
		t.Fatalf("ActiveUsers: %v", err)
	}
	if !reflect.DeepEqual(users, []int64{2, 5}) {
		t.Fatalf("want [2 5], got %v", users)
	}
}
