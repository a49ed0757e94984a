package auth

import (
	"context"
	"sync"
	"time"
)

// MemorySessionStore はプロセス内のセッションストアです。
// ローカル開発とテストで使用します。単一インスタンス前提。
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]Session
}

// NewMemorySessionStore は MemorySessionStore を作成します。
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]Session)}
}

func (s *MemorySessionStore) Get(_ context.Context, id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, nil
	}
	copied := session
	return &copied, nil
}

func (s *MemorySessionStore) Put(_ context.Context, session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = *session
	return nil
}

func (s *MemorySessionStore) Update(_ context.Context, id string, mutate func(*Session)) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, nil
	}
	mutate(&session)
	s.sessions[id] = session
	copied := session
	return &copied, nil
}

func (s *MemorySessionStore) Rotate(_ context.Context, oldID string, session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, oldID)
	s.sessions[session.ID] = *session
	return nil
}

func (s *MemorySessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// MemoryAttemptStore はプロセス内の試行レコードストアです。
// ミューテックスで直列化するため、同一識別子への並行リクエストでも
// 加算が失われません。
type MemoryAttemptStore struct {
	mu      sync.Mutex
	records map[string]AttemptRecord
}

// NewMemoryAttemptStore は MemoryAttemptStore を作成します。
func NewMemoryAttemptStore() *MemoryAttemptStore {
	return &MemoryAttemptStore{records: make(map[string]AttemptRecord)}
}

func (s *MemoryAttemptStore) Get(_ context.Context, key string) (*AttemptRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[key]
	if !ok {
		return nil, nil
	}
	copied := record
	return &copied, nil
}

func (s *MemoryAttemptStore) Update(_ context.Context, key string, _ time.Duration, mutate func(*AttemptRecord)) (*AttemptRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := s.records[key]
	mutate(&record)
	s.records[key] = record
	copied := record
	return &copied, nil
}

func (s *MemoryAttemptStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}
