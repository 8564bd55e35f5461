package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// ServiceName はすべてのログに付与するサービス名。
const ServiceName = "startupnetwork"

// Setup はJSON構造化ログ出力のslog.Loggerを生成して返す。
// writerが指定された場合はそのwriterに出力する。
// すべてのエントリにservice属性を付与する。
func Setup(w io.Writer, level slog.Leveler) *slog.Logger {
	if level == nil {
		level = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})
	return slog.New(handler).With(slog.String("service", ServiceName))
}

// SetupDefault はJSON構造化ログ出力をグローバルロガーとして設定する。
// 本番ではos.Stdoutを渡すことを想定している。
func SetupDefault(w io.Writer, level slog.Leveler) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	logger := Setup(w, level)
	slog.SetDefault(logger)
	return logger
}

// ParseLevel はLOG_LEVEL環境変数の値をslog.Levelに変換する。
// 空または未知の値はInfoとして扱う。
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
