package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/qinche/penpal-bot/internal/models"
)

// MemoryStorage is an in-process backend for tests and ephemeral runs.
type MemoryStorage struct {
	mu            sync.RWMutex
	conversations map[int64]*models.Conversation
	active        map[int64]struct{}
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		conversations: make(map[int64]*models.Conversation),
		active:        make(map[int64]struct{}),
	}
}

func (s *MemoryStorage) LoadConversation(_ context.Context, userID int64) (*models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, exists := s.conversations[userID]
	if !exists {
		return nil, ErrNotFound
	}
	return conv.Clone(), nil
}

func (s *MemoryStorage) SaveConversation(_ context.Context, userID int64, conv *models.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.conversations[userID] = conv.Clone()
	return nil
}

func (s *MemoryStorage) ActiveUsers(_ context.Context) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]int64, 0, len(s.active))
	for id := range s.active {
		users = append(users, id)
	}
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })
	return users, nil
}

func (s *MemoryStorage) AddActiveUser(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.active[userID] = struct{}{}
	return nil
}

func (s *MemoryStorage) Close() error {
	return nil
}
