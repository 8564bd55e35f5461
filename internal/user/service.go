// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/startupnetwork/internal/model"
	"github.com/hitoshi/startupnetwork/internal/store"
)

// CollectionName はユーザーを保存するコレクション名。
const CollectionName = "users"

// 入力制約
const (
	MinUsernameLength = 3
	MinPasswordLength = 6
	// MaxPasswordBytes はbcryptが扱える最大バイト数。
	MaxPasswordBytes = 72
)

// 検証エラーメッセージ
const (
	msgUsernameTooShort = "Username must be at least 3 characters"
	msgPasswordTooShort = "Password must be at least 6 characters"
	msgPasswordTooLong  = "Password must be at most 72 bytes"
)

// Service はユーザー管理のサービス層。
// 登録・認証・管理者の初期作成を提供する。
type Service struct {
	users    *store.Collection[model.User]
	hashCost int
	clock    func() time.Time
}

// Option はServiceの設定を変更する。
type Option func(*Service)

// WithHashCost はbcryptのコストを指定する。テストで計算量を下げるために使う。
func WithHashCost(cost int) Option {
	return func(s *Service) { s.hashCost = cost }
}

// WithClock は現在時刻の取得関数を差し替える。
func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(st *store.Store, opts ...Option) *Service {
	s := &Service{
		users:    store.NewCollection[model.User](st, CollectionName, nil),
		hashCost: bcrypt.DefaultCost,
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Bootstrap は管理者ユーザーが存在しない場合に作成する。
// 既に同名のユーザーが存在する場合は何もしない。
func (s *Service) Bootstrap(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return fmt.Errorf("管理者ユーザー名が指定されていません")
	}
	if len(password) > MaxPasswordBytes {
		return fmt.Errorf("ADMIN_PASSWORD must be at most %d bytes", MaxPasswordBytes)
	}

	hash, err := s.hash(password)
	if err != nil {
		return err
	}

	created := false
	err = s.users.Update(ctx, func(users []model.User) ([]model.User, error) {
		if indexOf(users, username) >= 0 {
			return nil, store.ErrNoChange
		}
		created = true
		return append(users, model.User{
			Username:     username,
			PasswordHash: hash,
			IsAdmin:      true,
			CreatedAt:    s.clock().UTC(),
		}), nil
	})
	if err != nil {
		return fmt.Errorf("管理者ユーザーの作成に失敗しました: %w", err)
	}

	if created {
		slog.Info("管理者ユーザーを作成しました", slog.String("username", username))
	}
	return nil
}

// Signup は一般ユーザーを登録する。
// ユーザー名の重複確認と追加は同一のロック区間で行う。
func (s *Service) Signup(ctx context.Context, username, password, email string) (*model.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if len([]rune(username)) < MinUsernameLength {
		return nil, model.NewValidationError(msgUsernameTooShort)
	}
	if len([]rune(password)) < MinPasswordLength {
		return nil, model.NewValidationError(msgPasswordTooShort)
	}
	if len(password) > MaxPasswordBytes {
		return nil, model.NewValidationError(msgPasswordTooLong)
	}

	hash, err := s.hash(password)
	if err != nil {
		return nil, err
	}

	user := model.User{
		Username:     username,
		PasswordHash: hash,
		Email:        email,
		CreatedAt:    s.clock().UTC(),
	}
	err = s.users.Update(ctx, func(users []model.User) ([]model.User, error) {
		if indexOf(users, username) >= 0 {
			return nil, model.NewUsernameTakenError(username)
		}
		return append(users, user), nil
	})
	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) {
			return nil, err
		}
		return nil, fmt.Errorf("ユーザーの登録に失敗しました: %w", err)
	}

	slog.Info("ユーザーを登録しました", slog.String("username", username))
	return &user, nil
}

// Authenticate はユーザー名とパスワードを検証し、一致したユーザーを返す。
// ユーザーが存在しない場合もパスワード不一致と同じエラーを返す。
func (s *Service) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	user, err := s.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, model.NewInvalidCredentialsError()
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, model.NewInvalidCredentialsError()
	}
	return user, nil
}

// FindByUsername はユーザー名でユーザーを検索する。見つからない場合はnilを返す。
func (s *Service) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	user, ok, err := s.users.Find(ctx, func(u model.User) bool { return u.Username == username })
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return &user, nil
}

func (s *Service) hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return "", fmt.Errorf("パスワードのハッシュ化に失敗しました: %w", err)
	}
	return string(hash), nil
}

func indexOf(users []model.User, username string) int {
	for i, u := range users {
		if u.Username == username {
			return i
		}
	}
	return -1
}
