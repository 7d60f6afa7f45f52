package journal

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"subroute/internal/domain/dispatch"
)

const (
	defaultLimit = 20
	maxLimit     = 200
)

// Store persists dispatch records, newest first.
type Store interface {
	Append(ctx context.Context, rec dispatch.Record) error
	Recent(ctx context.Context, limit int) ([]dispatch.Record, error)
	Clear(ctx context.Context) error
}

// Service records navigations and lists recent ones.
type Service struct {
	store  Store
	logger *slog.Logger
}

// NewService builds a journal service.
func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// Record stores rec.
func (s *Service) Record(ctx context.Context, rec dispatch.Record) error {
	if s.store == nil {
		return nil
	}
	if err := s.store.Append(ctx, rec); err != nil {
		return fmt.Errorf("append dispatch record: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (s *Service) Recent(ctx context.Context, limit int) ([]dispatch.Record, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if s.store == nil {
		return []dispatch.Record{}, nil
	}
	records, err := s.store.Recent(ctx, limit)
	if err != nil {
		s.logger.Error("failed to list dispatch records", "error", err)
		return nil, err
	}
	return records, nil
}

// Clear drops every stored record.
func (s *Service) Clear(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear dispatch records: %w", err)
	}
	s.logger.Info("dispatch journal cleared")
	return nil
}

// MemoryStore keeps the most recent records in memory.
type MemoryStore struct {
	mu      sync.Mutex
	size    int
	records []dispatch.Record
}

// NewMemoryStore keeps at most size records.
func NewMemoryStore(size int) *MemoryStore {
	if size <= 0 {
		size = maxLimit
	}
	return &MemoryStore{size: size}
}

// Append implements Store.
func (m *MemoryStore) Append(ctx context.Context, rec dispatch.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	if over := len(m.records) - m.size; over > 0 {
		m.records = append(m.records[:0], m.records[over:]...)
	}
	return nil
}

// Recent implements Store.
func (m *MemoryStore) Recent(ctx context.Context, limit int) ([]dispatch.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.records)
	if limit < 0 {
		limit = 0
	}
	if limit > n {
		limit = n
	}
	out := make([]dispatch.Record, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, m.records[i])
	}
	return out, nil
}

// Clear implements Store.
func (m *MemoryStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = nil
	return nil
}
