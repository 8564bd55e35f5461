// Package cleanup は参照されなくなったロゴファイルの自動削除ジョブを提供する。
// スタートアップの更新・削除でロゴの削除に失敗した場合や、作成中に
// プロセスが停止した場合に残るファイルを定期的に回収する。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/startupnetwork/internal/logo"
)

// DefaultGrace は作成直後のロゴを削除対象から除外する猶予期間。
const DefaultGrace = time.Hour

// LogoStore はロゴディレクトリの列挙と削除を抽象化するインターフェース。
// logo.Storageが実装する。
type LogoStore interface {
	List() ([]logo.FileInfo, error)
	Remove(name string) error
}

// ReferenceLister はスタートアップが参照中のロゴファイル名を返すインターフェース。
// startup.Serviceが実装する。
type ReferenceLister interface {
	ReferencedLogos(ctx context.Context) (map[string]struct{}, error)
}

// Recorder は削除件数の記録先。metrics.Collectorが実装する。
type Recorder interface {
	RecordLogosCleaned(count int)
}

// CleanupJob は孤立したロゴファイルの削除ジョブ。
// 冪等であり、削除対象がない場合でもエラーにならない。
type CleanupJob struct {
	logos    LogoStore
	refs     ReferenceLister
	logger   *slog.Logger
	recorder Recorder
	clock    func() time.Time
	Grace    time.Duration // 更新時刻がこの期間内のファイルは削除しない（デフォルト: 1時間）
}

// NewCleanupJob は新しいCleanupJobを生成する。recorderはnilでもよい。
func NewCleanupJob(logos LogoStore, refs ReferenceLister, logger *slog.Logger, recorder Recorder) *CleanupJob {
	return &CleanupJob{
		logos:    logos,
		refs:     refs,
		logger:   logger,
		recorder: recorder,
		clock:    time.Now,
		Grace:    DefaultGrace,
	}
}

// Run はどのスタートアップからも参照されず、猶予期間を過ぎたロゴを削除する。
// 参照一覧はロゴ列挙の後に取得する。列挙後に保存されたレコードが
// 参照するファイルは猶予期間内なので削除対象にならない。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := j.clock()

	files, err := j.logos.List()
	if err != nil {
		j.logger.Error("ロゴファイルの列挙に失敗しました", slog.String("error", err.Error()))
		return fmt.Errorf("ロゴファイルの列挙に失敗: %w", err)
	}

	refs, err := j.refs.ReferencedLogos(ctx)
	if err != nil {
		j.logger.Error("参照中ロゴの取得に失敗しました", slog.String("error", err.Error()))
		return fmt.Errorf("参照中ロゴの取得に失敗: %w", err)
	}

	cutoff := start.Add(-j.Grace)
	deleted, failed := 0, 0
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, ok := refs[f.Name]; ok || f.ModTime.After(cutoff) {
			continue
		}
		if err := j.logos.Remove(f.Name); err != nil {
			failed++
			j.logger.Warn("孤立ロゴの削除に失敗しました",
				slog.String("filename", f.Name),
				slog.String("error", err.Error()),
			)
			continue
		}
		deleted++
	}

	if j.recorder != nil && deleted > 0 {
		j.recorder.RecordLogosCleaned(deleted)
	}

	j.logger.Info("ロゴクリーンアップジョブが完了しました",
		slog.Int("deleted_count", deleted),
		slog.Int("failed_count", failed),
		slog.Int("scanned_count", len(files)),
		slog.Float64("duration_ms", float64(j.clock().Sub(start).Milliseconds())),
	)
	return nil
}

// Start は起動直後に1回、その後intervalごとにRunを実行する。
// ctxがキャンセルされるまでブロックする。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	j.runLogged(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.runLogged(ctx)
		}
	}
}

func (j *CleanupJob) runLogged(ctx context.Context) {
	if err := j.Run(ctx); err != nil && ctx.Err() == nil {
		j.logger.Error("cleanup job failed", slog.String("error", err.Error()))
	}
}
