package auth

import (
	"sync"
	"time"

	"github.com/hitoshi/startupnetwork/internal/model"
)

// SessionStore はプロセス内でセッションを保持する。
// 複数ゴルーチンから安全に利用できる。
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]model.Session
}

// NewSessionStore は空のSessionStoreを生成する。
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]model.Session)}
}

// Create はセッションを登録する。
func (s *SessionStore) Create(session model.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
}

// Find は有効期限内のセッションを返す。期限切れまたは未登録の場合はfalseを返す。
func (s *SessionStore) Find(id string, now time.Time) (model.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok || !now.Before(session.ExpiresAt) {
		return model.Session{}, false
	}
	return session, true
}

// Delete はセッションを削除する。
func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// DeleteExpired は期限切れのセッションを削除し、削除件数を返す。
func (s *SessionStore) DeleteExpired(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for id, session := range s.sessions {
		if !now.Before(session.ExpiresAt) {
			delete(s.sessions, id)
			deleted++
		}
	}
	return deleted
}

// Len は保持しているセッション数を返す。
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
