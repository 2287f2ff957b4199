package services_test

import (
	"sync"
	"testing"

	"github.com/abrezinsky/consensus/internal/models"
	"github.com/abrezinsky/consensus/internal/storage"
)

type published struct {
	topic string
	event models.ChangeEvent
}

// mockPublisher records published events
type mockPublisher struct {
	mu     sync.Mutex
	events []published
}

func (m *mockPublisher) Publish(topic string, event models.ChangeEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, published{topic: topic, event: event})
}

func (m *mockPublisher) all() []published {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]published(nil), m.events...)
}

func newTestStore(t *testing.T) *storage.LocalStore {
	t.Helper()
	s, err := storage.NewLocalStore(t.TempDir(), "photos", "http://localhost:8080", 1024)
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}
	return s
}
