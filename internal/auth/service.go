// Package auth はログイン・ログアウトとセッション管理を提供する。
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/startupnetwork/internal/idgen"
	"github.com/hitoshi/startupnetwork/internal/model"
)

// UserService は認証に必要なユーザー操作のインターフェース。
// user.Serviceが実装する。
type UserService interface {
	Authenticate(ctx context.Context, username, password string) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	users    UserService
	sessions *SessionStore
	config   ServiceConfig
	clock    func() time.Time
}

// NewService はServiceを生成する。
func NewService(users UserService, sessions *SessionStore, config ServiceConfig) *Service {
	return &Service{
		users:    users,
		sessions: sessions,
		config:   config,
		clock:    time.Now,
	}
}

// Login はユーザー名とパスワードを検証し、新しいセッションを発行する。
func (s *Service) Login(ctx context.Context, username, password string) (*model.Session, error) {
	user, err := s.users.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}

	session, err := s.StartSession(user.Username)
	if err != nil {
		return nil, err
	}

	slog.Info("user logged in", slog.String("username", user.Username))
	return session, nil
}

// StartSession は認証済みユーザーのセッションを発行する。
// 登録直後の自動ログインにも使う。
func (s *Service) StartSession(username string) (*model.Session, error) {
	id, err := idgen.NewID(idgen.SessionIDBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := s.clock()
	session := model.Session{
		ID:        id,
		Username:  username,
		ExpiresAt: now.Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: now,
	}
	s.sessions.Create(session)
	return &session, nil
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	s.sessions.Delete(sessionID)
	slog.Info("user logged out")
	return nil
}

// CurrentUser はセッションから現在のユーザーを取得する。
// セッションが無効な場合やユーザーが削除された場合はnilを返す。
func (s *Service) CurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if sessionID == "" {
		return nil, nil
	}

	session, ok := s.sessions.Find(sessionID, s.clock())
	if !ok {
		return nil, nil
	}

	user, err := s.users.FindByUsername(ctx, session.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		s.sessions.Delete(sessionID)
		return nil, nil
	}
	return user, nil
}

// PurgeExpired は期限切れのセッションを削除し、削除件数を返す。
func (s *Service) PurgeExpired() int {
	return s.sessions.DeleteExpired(s.clock())
}
