package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"
)

// テストで書き込み失敗を再現するための差し替えポイント。
var (
	renameFile = os.Rename
	syncFile   = func(f *os.File) error { return f.Sync() }
)

// Collection はT型レコードの配列を1ファイルとして扱うコレクション。
type Collection[T any] struct {
	store    *Store
	name     string
	path     string
	lock     chan struct{}
	defaults func() []T
}

// NewCollection は名前付きコレクションのハンドルを返す。
// ファイルは<dir>/<name>.jsonに配置される。defaultsはファイルが存在しない場合の
// 初期値を返す関数で、nilの場合は空配列で初期化する。
func NewCollection[T any](s *Store, name string, defaults func() []T) *Collection[T] {
	return &Collection[T]{
		store:    s,
		name:     name,
		path:     filepath.Join(s.dir, name+".json"),
		lock:     s.lockFor(name),
		defaults: defaults,
	}
}

// Name はコレクション名を返す。
func (c *Collection[T]) Name() string {
	return c.name
}

// Path はコレクションファイルのパスを返す。
func (c *Collection[T]) Path() string {
	return c.path
}

// Load はコレクション全体を読み込む。
// 返すスライスは呼び出しごとに新しくデコードしたもので、他の呼び出し元と共有されない。
// ファイルが存在しない場合は初期値を書き込んでから返す。
// JSONが不正な場合はErrCorruptをラップしたエラーを返す（部分的な読み取りは行わない）。
//
// 読み取り自体はロックを取らない。書き込みはrenameで原子的に行われるため、
// 書きかけのファイルを読むことはない。
func (c *Collection[T]) Load(ctx context.Context) ([]T, error) {
	records, err := c.read()
	if err == nil {
		return records, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	// 初期化は書き込みを伴うためロックを取る
	release, err := c.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	return c.loadLocked()
}

// Snapshot はLoadと同じ内容を返すが、ファイルが存在しない場合も書き込まずに初期値を返す。
// ロックはプロセス内でしか効かないため、別プロセス（ワーカー等）の読み取りに使う。
func (c *Collection[T]) Snapshot(ctx context.Context) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	records, err := c.read()
	if err == nil {
		return records, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return slices.Clone(c.defaultRecords()), nil
}

// Save はコレクション全体を原子的に置き換える。
func (c *Collection[T]) Save(ctx context.Context, records []T) error {
	release, err := c.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	return c.write(records)
}

// Update はロックを保持したまま読み込み→fn→保存を行う。
// 同一コレクションに対するUpdateは同時に1つしか実行されない。
// fnがエラーを返した場合は保存せずにそのエラーをそのまま返す。
// fnがErrNoChangeを返した場合は保存せずにnilを返す。
func (c *Collection[T]) Update(ctx context.Context, fn func(records []T) ([]T, error)) error {
	release, err := c.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	records, err := c.loadLocked()
	if err != nil {
		return err
	}

	next, err := fn(records)
	if errors.Is(err, ErrNoChange) {
		return nil
	}
	if err != nil {
		return err
	}

	return c.write(next)
}

// Append はレコードを末尾に追加して保存する。
func (c *Collection[T]) Append(ctx context.Context, record T) error {
	return c.Update(ctx, func(records []T) ([]T, error) {
		return append(records, record), nil
	})
}

// UpdateWhere はpredに一致する全レコードにmutateを適用して保存し、更新件数を返す。
// 一致するレコードがない場合は保存しない。
func (c *Collection[T]) UpdateWhere(ctx context.Context, pred func(T) bool, mutate func(*T)) (int, error) {
	count := 0
	err := c.Update(ctx, func(records []T) ([]T, error) {
		for i := range records {
			if pred(records[i]) {
				mutate(&records[i])
				count++
			}
		}
		if count == 0 {
			return nil, ErrNoChange
		}
		return records, nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// DeleteWhere はpredに一致するレコードを削除して保存し、削除したレコードを返す。
// 一致するレコードがない場合は保存しない。
func (c *Collection[T]) DeleteWhere(ctx context.Context, pred func(T) bool) ([]T, error) {
	var removed []T
	err := c.Update(ctx, func(records []T) ([]T, error) {
		kept := records[:0]
		for _, r := range records {
			if pred(r) {
				removed = append(removed, r)
				continue
			}
			kept = append(kept, r)
		}
		if len(removed) == 0 {
			return nil, ErrNoChange
		}
		return kept, nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

// Find はpredに最初に一致するレコードを返す。ファイルが存在しなくても作成しない。
func (c *Collection[T]) Find(ctx context.Context, pred func(T) bool) (T, bool, error) {
	var zero T
	records, err := c.Snapshot(ctx)
	if err != nil {
		return zero, false, err
	}
	for _, r := range records {
		if pred(r) {
			return r, true, nil
		}
	}
	return zero, false, nil
}

// acquire はコレクションのロックを取得し、解放関数を返す。
func (c *Collection[T]) acquire(ctx context.Context) (func(), error) {
	start := time.Now()
	select {
	case c.lock <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for collection %s lock: %w", c.name, ctx.Err())
	}
	c.store.observer.ObserveLockWait(c.name, time.Since(start))

	return func() { <-c.lock }, nil
}

// loadLocked はロック保持中に読み込み、ファイルがなければ初期値で作成する。
func (c *Collection[T]) loadLocked() ([]T, error) {
	records, err := c.read()
	if err == nil {
		return records, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	records = c.defaultRecords()
	if err := c.write(records); err != nil {
		return nil, fmt.Errorf("failed to initialize collection %s: %w", c.name, err)
	}

	c.store.logger.Info("collection initialized",
		slog.String("collection", c.name),
		slog.Int("records", len(records)),
	)

	// 呼び出し元が初期値のスライスを変更しても影響しないよう読み直す
	return c.read()
}

// read はファイルを読み込んでデコードする。
func (c *Collection[T]) read() (records []T, err error) {
	start := time.Now()
	defer func() {
		c.store.observer.ObserveLoad(c.name, time.Since(start), err)
	}()

	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to read collection %s: %w", c.name, err)
	}

	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, c.path, err)
	}
	if records == nil {
		records = []T{}
	}
	return records, nil
}

// write はレコードを一時ファイルに書き出し、renameで置き換える。
// 一時ファイルへの書き込みに失敗した場合、既存ファイルは変更されない。
// 失敗した一時ファイルは調査用に残す。
func (c *Collection[T]) write(records []T) (err error) {
	start := time.Now()
	defer func() {
		c.store.observer.ObserveSave(c.name, time.Since(start), err)
		if err != nil {
			c.store.logger.Error("failed to save collection",
				slog.String("collection", c.name),
				slog.String("path", c.path),
				slog.String("error", err.Error()),
			)
		}
	}()

	data, err := encode(records)
	if err != nil {
		return fmt.Errorf("failed to encode collection %s: %w", c.name, err)
	}

	tmp, err := os.CreateTemp(c.store.dir, c.name+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", c.name, err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file %s: %w", tmp.Name(), err)
	}
	if err := syncFile(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp file %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file %s: %w", tmp.Name(), err)
	}

	if err := renameFile(tmp.Name(), c.path); err != nil {
		return fmt.Errorf("failed to replace collection %s: %w", c.name, err)
	}

	syncDir(c.store.dir)
	return nil
}

// defaultRecords は初期値を返す。
func (c *Collection[T]) defaultRecords() []T {
	if c.defaults == nil {
		return []T{}
	}
	records := c.defaults()
	if records == nil {
		return []T{}
	}
	return records
}

// encode はレコードを2スペースインデントのJSONに変換する。
// HTMLエスケープは行わず、非ASCII文字はそのまま出力する。
func encode[T any](records []T) ([]byte, error) {
	if records == nil {
		records = []T{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// syncDir はrenameをディスクに反映させるためディレクトリをfsyncする。
// 失敗しても書き込み自体は完了しているため無視する。
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}
