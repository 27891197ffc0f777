package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/qinche/penpal-bot/internal/models"
)

const registryFile = "active_users.txt"

// FileStorage keeps one JSON file per user conversation and a plain
// text active-user registry, one identifier per line. Saves are
// unconditional overwrites; the last writer wins.
type FileStorage struct {
	dir string
	mu  sync.Mutex
}

func NewFileStorage(dir string) (*FileStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure data dir: %w", err)
	}
	// Touch the registry so a fresh deployment starts with an empty set
	f, err := os.OpenFile(filepath.Join(dir, registryFile), os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("touch registry: %w", err)
	}
	_ = f.Close()
	return &FileStorage{dir: dir}, nil
}

func (s *FileStorage) conversationPath(userID int64) string {
	return filepath.Join(s.dir, fmt.Sprintf("user_history_%d.json", userID))
}

func (s *FileStorage) LoadConversation(_ context.Context, userID int64) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.conversationPath(userID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read conversation: %w", err)
	}

	var conv models.Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, fmt.Errorf("decode conversation: %w", err)
	}
	return &conv, nil
}

func (s *FileStorage) SaveConversation(_ context.Context, userID int64, conv *models.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(conv, "", "  ")
	if err != nil {
		return fmt.Errorf("encode conversation: %w", err)
	}
	if err := os.WriteFile(s.conversationPath(userID), data, 0o644); err != nil {
		return fmt.Errorf("write conversation: %w", err)
	}
	return nil
}

func (s *FileStorage) ActiveUsers(_ context.Context) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadRegistry()
}

func (s *FileStorage) AddActiveUser(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.loadRegistry()
	if err != nil {
		return err
	}
	for _, id := range users {
		if id == userID {
			return nil
		}
	}
	users = append(users, userID)
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })

	var b strings.Builder
	for _, id := range users {
		fmt.Fprintf(&b, "%d\n", id)
	}
	if err := os.WriteFile(filepath.Join(s.dir, registryFile), []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write registry: %w", err)
	}
	return nil
}

// loadRegistry parses the registry file, skipping blank and
// non-numeric lines. A missing file is recreated empty.
func (s *FileStorage) loadRegistry() ([]int64, error) {
	path := filepath.Join(s.dir, registryFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if err := os.WriteFile(path, nil, 0o644); err != nil {
				return nil, fmt.Errorf("create registry: %w", err)
			}
			return nil, nil
		}
		return nil, fmt.Errorf("read registry: %w", err)
	}

	var users []int64
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		id, err := strconv.ParseInt(line, 10, 64)
		if err != nil || id <= 0 {
			continue
		}
		users = append(users, id)
	}
	return users, nil
}

func (s *FileStorage) Close() error {
	return nil
}
