package cleanup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/startupnetwork/internal/logo"
)

type fakeRefs struct {
	refs map[string]struct{}
	err  error
}

func (f *fakeRefs) ReferencedLogos(ctx context.Context) (map[string]struct{}, error) {
	return f.refs, f.err
}

type countingRecorder struct {
	total int
}

func (r *countingRecorder) RecordLogosCleaned(count int) { r.total += count }

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// saveLogo は保存済みロゴを作成し、更新時刻をageだけ過去にする。
func saveLogo(t *testing.T, storage *logo.Storage, age time.Duration) string {
	t.Helper()
	name, err := storage.Save(image.NewRGBA(image.Rect(0, 0, 4, 4)))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	mtime := time.Now().Add(-age)
	if err := os.Chtimes(filepath.Join(storage.Dir(), name), mtime, mtime); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}
	return name
}

func remaining(t *testing.T, storage *logo.Storage) []string {
	t.Helper()
	files, err := storage.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	return names
}

func newTestStorage(t *testing.T) *logo.Storage {
	t.Helper()
	storage, err := logo.NewStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewStorage: %v", err)
	}
	return storage
}

func TestNewCleanupJob_DefaultGrace(t *testing.T) {
	var buf bytes.Buffer
	job := NewCleanupJob(newTestStorage(t), &fakeRefs{}, newTestLogger(&buf), nil)

	if job == nil {
		t.Fatal("NewCleanupJob は nil を返してはならない")
	}
	if job.Grace != DefaultGrace {
		t.Errorf("Grace = %v, want %v", job.Grace, DefaultGrace)
	}
}

func TestRun_RemovesOnlyOldUnreferencedLogos(t *testing.T) {
	storage := newTestStorage(t)
	referenced := saveLogo(t, storage, 3*time.Hour)
	orphan := saveLogo(t, storage, 3*time.Hour)
	fresh := saveLogo(t, storage, time.Minute)

	var buf bytes.Buffer
	recorder := &countingRecorder{}
	job := NewCleanupJob(storage, &fakeRefs{refs: map[string]struct{}{referenced: {}}}, newTestLogger(&buf), recorder)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []string{referenced, fresh}
	sort.Strings(want)
	got := remaining(t, storage)
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("remaining = %v, want %v (orphan %s removed)", got, want, orphan)
	}
	if recorder.total != 1 {
		t.Errorf("recorded = %d, want 1", recorder.total)
	}

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("ログ出力がJSONではない: %v\n%s", err, buf.String())
	}
	if entry["deleted_count"] != float64(1) || entry["scanned_count"] != float64(3) {
		t.Errorf("log entry = %v", entry)
	}
}

func TestRun_Idempotent(t *testing.T) {
	storage := newTestStorage(t)
	saveLogo(t, storage, 2*time.Hour)

	var buf bytes.Buffer
	recorder := &countingRecorder{}
	job := NewCleanupJob(storage, &fakeRefs{}, newTestLogger(&buf), recorder)

	for i := 0; i < 2; i++ {
		if err := job.Run(context.Background()); err != nil {
			t.Fatalf("Run() #%d error = %v", i+1, err)
		}
	}
	if got := remaining(t, storage); len(got) != 0 {
		t.Errorf("remaining = %v, want none", got)
	}
	if recorder.total != 1 {
		t.Errorf("recorded = %d, want 1", recorder.total)
	}
}

func TestRun_IgnoresTempFiles(t *testing.T) {
	storage := newTestStorage(t)
	tmp := filepath.Join(storage.Dir(), "0123.png.42.tmp")
	if err := os.WriteFile(tmp, []byte("partial"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	old := time.Now().Add(-48 * time.Hour)
	os.Chtimes(tmp, old, old)

	var buf bytes.Buffer
	job := NewCleanupJob(storage, &fakeRefs{}, newTestLogger(&buf), nil)
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if _, err := os.Stat(tmp); err != nil {
		t.Errorf("temp file removed: %v", err)
	}
}

func TestRun_ReferenceError_DeletesNothing(t *testing.T) {
	storage := newTestStorage(t)
	saveLogo(t, storage, 2*time.Hour)

	var buf bytes.Buffer
	job := NewCleanupJob(storage, &fakeRefs{err: errors.New("corrupt startups.json")}, newTestLogger(&buf), nil)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("Run() should fail when references cannot be loaded")
	}
	if got := remaining(t, storage); len(got) != 1 {
		t.Errorf("remaining = %v, want the logo kept", got)
	}
	if !strings.Contains(buf.String(), `"level":"ERROR"`) {
		t.Errorf("expected ERROR log, got %s", buf.String())
	}
}

func TestStart_StopsOnCancel(t *testing.T) {
	storage := newTestStorage(t)
	saveLogo(t, storage, 2*time.Hour)

	var buf bytes.Buffer
	job := NewCleanupJob(storage, &fakeRefs{}, newTestLogger(&buf), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		job.Start(ctx, time.Hour)
		close(done)
	}()

	// 起動直後の1回目の実行を待つ
	deadline := time.Now().Add(5 * time.Second)
	for len(remaining(t, storage)) != 0 {
		if time.Now().After(deadline) {
			t.Fatal("initial run did not remove the orphan logo")
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}
