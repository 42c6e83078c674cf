package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
)

var globalLogger *slog.Logger

// ParseLevel はレベル名をslog.Levelに変換する
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("invalid log level: %s", level)
}

// InitLogger ログレベルに応じてslogを初期化（標準エラー出力、テキスト形式）
func InitLogger(level string) error {
	return InitLoggerWithWriter(level, "text", os.Stderr)
}

// InitLoggerWithWriter 出力先と形式（text / json）を指定して初期化
func InitLoggerWithWriter(level, format string, w io.Writer) error {
	slogLevel, err := ParseLevel(level)
	if err != nil {
		return err
	}
	opts := &slog.HandlerOptions{Level: slogLevel}

	var handler slog.Handler
	switch strings.ToLower(format) {
	case "", "text":
		handler = slog.NewTextHandler(w, opts)
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		return fmt.Errorf("invalid log format: %s", format)
	}

	globalLogger = slog.New(handler)
	slog.SetDefault(globalLogger)
	return nil
}

// GetLogger グローバルロガーを取得
func GetLogger() *slog.Logger {
	if globalLogger == nil {
		return slog.Default()
	}
	return globalLogger
}

// NewRunID は実行ごとの識別子を生成する
func NewRunID() string {
	return uuid.NewString()
}

// WithRun は run_id 属性付きのロガーを返す
func WithRun(l *slog.Logger, id string) *slog.Logger {
	if l == nil {
		l = GetLogger()
	}
	return l.With("run_id", id)
}
