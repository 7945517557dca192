package storage

import (
	"context"
	"strings"
	"sync"

	"ecotachos/internal/domain/entity"
	"ecotachos/internal/domain/port"
)

// MemoryActuationStore in-memory хранилище ожидающих команд (одна на тачо)
type MemoryActuationStore struct {
	mu      sync.Mutex
	pending map[string]entity.ActuationSignal
}

// NewMemoryActuationStore создаёт пустое хранилище
func NewMemoryActuationStore() *MemoryActuationStore {
	return &MemoryActuationStore{
		pending: make(map[string]entity.ActuationSignal),
	}
}

// Put перезаписывает сигнал для тачо
func (s *MemoryActuationStore) Put(ctx context.Context, binCode string, signal entity.ActuationSignal) error {
	s.mu.Lock()
	s.pending[strings.TrimSpace(binCode)] = signal
	s.mu.Unlock()

	return nil
}

// Take забирает сигнал под одной блокировкой, чтобы два опроса не получили одну команду
func (s *MemoryActuationStore) Take(ctx context.Context, binCode string) (entity.ActuationSignal, error) {
	key := strings.TrimSpace(binCode)

	s.mu.Lock()
	defer s.mu.Unlock()

	signal, ok := s.pending[key]
	if !ok {
		return entity.SignalNone, nil
	}
	delete(s.pending, key)

	return signal, nil
}

// Проверка реализации интерфейса
var _ port.ActuationStore = (*MemoryActuationStore)(nil)
