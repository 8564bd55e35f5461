package app

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"testing"
)

func setRequiredEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DATA_DIR", dir)
	t.Setenv("LOGO_DIR", "")
	t.Setenv("ADMIN_PASSWORD", "test-admin-password")
	t.Setenv("ALLOW_DEFAULT_ADMIN_PASSWORD", "")
	t.Setenv("LOG_LEVEL", "")
	return dir
}

func TestInit_WithValidConfig_Succeeds(t *testing.T) {
	dir := setRequiredEnv(t)

	var buf bytes.Buffer
	cfg, err := Init(&buf)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg == nil {
		t.Fatal("expected non-nil config")
	}
	if cfg.DataDir != dir {
		t.Errorf("DataDir = %q, want %q", cfg.DataDir, dir)
	}
	if cfg.LogoDir != filepath.Join(dir, "logos") {
		t.Errorf("LogoDir = %q, want %q", cfg.LogoDir, filepath.Join(dir, "logos"))
	}

	// slogのグローバルロガーがJSON出力に設定されていること
	slog.Default().Info("init test")
	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON log output, got error: %v\nraw: %s", err, buf.String())
	}
	if entry["msg"] != "init test" {
		t.Errorf("msg = %q, want %q", entry["msg"], "init test")
	}
	if entry["service"] != "startupnetwork" {
		t.Errorf("service = %v, want startupnetwork", entry["service"])
	}
}

func TestInit_WithMissingAdminPassword_ReturnsError(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ADMIN_PASSWORD", "")

	var buf bytes.Buffer
	cfg, err := Init(&buf)
	if err == nil {
		t.Fatal("expected error for missing ADMIN_PASSWORD, got nil")
	}
	if cfg != nil {
		t.Error("expected nil config on error")
	}
}

func TestInit_LogLevelFromEnv(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("LOG_LEVEL", "warn")

	var buf bytes.Buffer
	if _, err := Init(&buf); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	slog.Default().Info("suppressed")
	if buf.Len() != 0 {
		t.Errorf("expected info log to be suppressed at warn level, got %s", buf.String())
	}
}
