package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"

	"github.com/kiranaconnect/kiranaconnect-backend/pkg/config"
)

type mockStore struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
}

func newMockStore() *mockStore {
	return &mockStore{data: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (m *mockStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = fmt.Sprint(value)
	m.ttls[key] = ttl
	return nil
}

func (m *mockStore) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.data[key]
	if !ok {
		return "", redislib.Nil
	}
	return val, nil
}

func (m *mockStore) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *mockStore) AccessSessionKey(accessID string) string {
	return fmt.Sprintf("sess:%s", accessID)
}

func TestManagerCreateHasRevoke(t *testing.T) {
	store := newMockStore()
	manager := &Manager{store: store, keyer: store, ttl: time.Hour}

	ctx := context.Background()
	userID := uuid.New()
	accessID, err := manager.Create(ctx, userID)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	key := store.AccessSessionKey(accessID)
	if store.data[key] != userID.String() {
		t.Fatalf("expected stored user id, got %q", store.data[key])
	}
	if store.ttls[key] != time.Hour {
		t.Fatalf("expected ttl of one hour, got %s", store.ttls[key])
	}

	ok, err := manager.HasSession(ctx, accessID)
	if err != nil || !ok {
		t.Fatalf("expected live session, ok=%v err=%v", ok, err)
	}

	if err := manager.Revoke(ctx, accessID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	ok, err = manager.HasSession(ctx, accessID)
	if err != nil || ok {
		t.Fatalf("expected revoked session, ok=%v err=%v", ok, err)
	}
}

func TestManagerRejectsBlankInputs(t *testing.T) {
	store := newMockStore()
	manager := &Manager{store: store, keyer: store, ttl: time.Hour}
	ctx := context.Background()

	if _, err := manager.Create(ctx, uuid.Nil); err == nil {
		t.Fatal("expected nil user id to fail")
	}
	if _, err := manager.HasSession(ctx, " "); err == nil {
		t.Fatal("expected blank access id to fail")
	}
	if err := manager.Revoke(ctx, ""); err == nil {
		t.Fatal("expected blank access id to fail")
	}
}

func TestInMemoryManagerExpiresSessions(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore(func() time.Time { return now })
	manager, err := newManager(store, store, config.JWTConfig{ExpirationMinutes: 10})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	ctx := context.Background()
	accessID, err := manager.Create(ctx, uuid.New())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ok, _ := manager.HasSession(ctx, accessID); !ok {
		t.Fatal("expected session to be live")
	}

	now = now.Add(11 * time.Minute)
	if ok, err := manager.HasSession(ctx, accessID); err != nil || ok {
		t.Fatalf("expected expired session, ok=%v err=%v", ok, err)
	}
}

func TestNewInMemoryManagerRequiresTTL(t *testing.T) {
	if _, err := NewInMemoryManager(config.JWTConfig{}); err == nil {
		t.Fatal("expected zero ttl to fail")
	}
}
