package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Level はログレベルを表す
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// ParseLevel は文字列をログレベルに変換する
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level: %s", s)
	}
}

// Config はロガーの出力設定
type Config struct {
	Level      Level
	Format     string // console, json
	File       string // 空ならファイル出力なし
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Logger はスレッドセーフなロガー
type Logger struct {
	mu    sync.Mutex
	level zap.AtomicLevel
	base  *zap.Logger
	sugar *zap.SugaredLogger
	file  *lumberjack.Logger
}

var (
	defaultMu sync.RWMutex
	// Default はデフォルトのロガー
	Default = New(os.Stdout, LevelInfo)
)

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:          "time",
		LevelKey:         "level",
		MessageKey:       "msg",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeLevel:      zapcore.CapitalLevelEncoder,
		EncodeTime:       zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000"),
		EncodeDuration:   zapcore.StringDurationEncoder,
		ConsoleSeparator: " ",
	}
}

func newEncoder(format string) zapcore.Encoder {
	if strings.EqualFold(format, "json") {
		return zapcore.NewJSONEncoder(encoderConfig())
	}
	return zapcore.NewConsoleEncoder(encoderConfig())
}

// New は新しいロガーを作成する
func New(out io.Writer, minLevel Level) *Logger {
	level := zap.NewAtomicLevelAt(minLevel.zapLevel())
	core := zapcore.NewCore(newEncoder("console"), zapcore.Lock(zapcore.AddSync(out)), level)
	return newLogger(core, level, nil)
}

// NewFromConfig は設定からロガーを作成する
// File が指定されている場合は標準出力とローテーションファイルの両方に出力する
func NewFromConfig(out io.Writer, cfg Config) *Logger {
	level := zap.NewAtomicLevelAt(cfg.Level.zapLevel())
	encoder := newEncoder(cfg.Format)

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(out)), level),
	}

	var file *lumberjack.Logger
	if cfg.File != "" {
		file = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		}
		// ファイルは常にJSONで出力する
		cores = append(cores, zapcore.NewCore(newEncoder("json"), zapcore.AddSync(file), level))
	}

	return newLogger(zapcore.NewTee(cores...), level, file)
}

func newLogger(core zapcore.Core, level zap.AtomicLevel, file *lumberjack.Logger) *Logger {
	base := zap.New(core)
	return &Logger{
		level: level,
		base:  base,
		sugar: base.Sugar(),
		file:  file,
	}
}

// SetLevel はログレベルを設定する
func (l *Logger) SetLevel(level Level) {
	l.level.SetLevel(level.zapLevel())
}

// Enabled は指定レベルが出力対象かを返す
func (l *Logger) Enabled(level Level) bool {
	return l.level.Enabled(level.zapLevel())
}

// Zap は内部のzap.Loggerを返す
func (l *Logger) Zap() *zap.Logger {
	return l.base
}

// log は指定されたレベルでログを出力する
func (l *Logger) log(level Level, hostID string, format string, args ...any) {
	if !l.Enabled(level) {
		return
	}

	msg := fmt.Sprintf(format, args...)
	if hostID != "" {
		msg = "[" + hostID + "] " + msg
	}

	switch level {
	case LevelDebug:
		l.sugar.Debug(msg)
	case LevelInfo:
		l.sugar.Info(msg)
	case LevelWarn:
		l.sugar.Warn(msg)
	default:
		l.sugar.Error(msg)
	}
}

// Debug はデバッグログを出力する
func (l *Logger) Debug(hostID string, format string, args ...any) {
	l.log(LevelDebug, hostID, format, args...)
}

// Info は情報ログを出力する
func (l *Logger) Info(hostID string, format string, args ...any) {
	l.log(LevelInfo, hostID, format, args...)
}

// Warn は警告ログを出力する
func (l *Logger) Warn(hostID string, format string, args ...any) {
	l.log(LevelWarn, hostID, format, args...)
}

// Error はエラーログを出力する
func (l *Logger) Error(hostID string, format string, args ...any) {
	l.log(LevelError, hostID, format, args...)
}

// Writer は指定レベルで1行ずつ出力するio.Writerを返す
// 外部プロセスの出力をログに流すために使う
func (l *Logger) Writer(level Level, hostID string) io.Writer {
	return &lineWriter{l: l, level: level, hostID: hostID}
}

// Close はバッファをフラッシュしファイルを閉じる
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	_ = l.base.Sync()
	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

type lineWriter struct {
	mu     sync.Mutex
	l      *Logger
	level  Level
	hostID string
	buf    []byte
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf = append(w.buf, p...)
	for {
		i := strings.IndexByte(string(w.buf), '\n')
		if i < 0 {
			break
		}
		line := strings.TrimRight(string(w.buf[:i]), "\r")
		w.buf = w.buf[i+1:]
		if line != "" {
			w.l.log(w.level, w.hostID, "%s", line)
		}
	}
	return len(p), nil
}

// SetDefault はデフォルトロガーを差し替える
func SetDefault(l *Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	Default = l
}

func current() *Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return Default
}

// グローバル関数（デフォルトロガーを使用）

// Debug はデバッグログを出力する
func Debug(hostID string, format string, args ...any) {
	current().Debug(hostID, format, args...)
}

// Info は情報ログを出力する
func Info(hostID string, format string, args ...any) {
	current().Info(hostID, format, args...)
}

// Warn は警告ログを出力する
func Warn(hostID string, format string, args ...any) {
	current().Warn(hostID, format, args...)
}

// Error はエラーログを出力する
func Error(hostID string, format string, args ...any) {
	current().Error(hostID, format, args...)
}
