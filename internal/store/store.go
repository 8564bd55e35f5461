// Package store はフラットファイル（JSON配列）によるコレクション単位の永続化を提供する。
//
// 各コレクションは1ファイルとして保存され、書き込みは一時ファイルへの書き出しと
// renameによって原子的に置き換えられる。読み取り→変更→書き込みのサイクルは
// コレクションごとの排他ロックで直列化され、同時実行による更新の消失を防ぐ。
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// ErrCorrupt はコレクションファイルのJSONが不正な場合に返される。
var ErrCorrupt = errors.New("collection file is corrupt")

// ErrNoChange はUpdateの変更関数が保存不要を示すために返す。
// Updateはこのエラーを受け取ると保存をスキップしてnilを返す。
var ErrNoChange = errors.New("no change")

// Observer はストア操作の計測を受け取るインターフェース。
// metrics.Collectorが実装する。
type Observer interface {
	ObserveLoad(collection string, duration time.Duration, err error)
	ObserveSave(collection string, duration time.Duration, err error)
	ObserveLockWait(collection string, duration time.Duration)
}

// nopObserver は計測を行わないObserver。
type nopObserver struct{}

func (nopObserver) ObserveLoad(string, time.Duration, error) {}
func (nopObserver) ObserveSave(string, time.Duration, error) {}
func (nopObserver) ObserveLockWait(string, time.Duration)    {}

// Option はStoreの生成オプション。
type Option func(*Store)

// WithObserver はストア操作の計測先を設定する。
func WithObserver(o Observer) Option {
	return func(s *Store) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithLogger はストアが使用するロガーを設定する。
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// Store はデータディレクトリ配下のコレクションファイルを管理する。
// コレクション名ごとのロックを保持し、同名のコレクションハンドルは同じロックを共有する。
type Store struct {
	dir      string
	observer Observer
	logger   *slog.Logger

	mu    sync.Mutex
	locks map[string]chan struct{}
}

// Open はデータディレクトリを作成し、Storeを返す。
func Open(dir string, opts ...Option) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("data directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	s := &Store{
		dir:      dir,
		observer: nopObserver{},
		logger:   slog.Default(),
		locks:    make(map[string]chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dir はデータディレクトリのパスを返す。
func (s *Store) Dir() string {
	return s.dir
}

// Ping はデータディレクトリがディレクトリとして存在することを確認する。
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	info, err := os.Stat(s.dir)
	if err != nil {
		return fmt.Errorf("failed to stat data directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("data directory is not a directory: %s", s.dir)
	}
	return nil
}

// lockFor はコレクション名に対応するロックを取得または作成する。
// ロックは容量1のチャネルで表現し、コンテキストのキャンセルで待機を打ち切れるようにする。
func (s *Store) lockFor(name string) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[name]
	if !ok {
		lock = make(chan struct{}, 1)
		s.locks[name] = lock
	}
	return lock
}
