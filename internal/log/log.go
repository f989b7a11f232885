package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelError Level = "ERROR"
)

var (
	logger     zerolog.Logger
	loggerOnce sync.Once
	mu         sync.RWMutex
)

// initLogger initializes the global logger to write to stderr with timestamps.
func initLogger() {
	loggerOnce.Do(func() {
		logger = newLogger(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339Nano}, LevelInfo)
	})
}

func newLogger(w io.Writer, l Level) zerolog.Logger {
	return zerolog.New(w).Level(toZerolog(l)).With().Timestamp().Logger()
}

// SetOutput redirects the global logger. Used by tests to capture lines.
func SetOutput(w io.Writer) {
	initLogger()
	mu.Lock()
	defer mu.Unlock()
	logger = logger.Output(w)
}

func SetLevel(l Level) {
	initLogger()
	mu.Lock()
	defer mu.Unlock()
	logger = logger.Level(toZerolog(l))
}

// ParseLevel maps a config string ("debug", "info", "error") to a Level.
// Unknown values fall back to INFO.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(LevelDebug):
		return LevelDebug
	case string(LevelError):
		return LevelError
	default:
		return LevelInfo
	}
}

func Debug(msg string, kv ...any) {
	logWithLevel(zerolog.DebugLevel, msg, nil, kv...)
}

func Info(msg string, kv ...any) {
	logWithLevel(zerolog.InfoLevel, msg, nil, kv...)
}

func Error(msg string, err error, kv ...any) {
	logWithLevel(zerolog.ErrorLevel, msg, err, kv...)
}

func logWithLevel(level zerolog.Level, msg string, err error, kv ...any) {
	initLogger()
	mu.RLock()
	l := logger
	mu.RUnlock()

	ev := l.WithLevel(level)
	if ev == nil {
		return
	}
	if err != nil {
		ev = ev.Err(err)
	}
	ev.Fields(fields(kv...)).Msg(msg)
}

func toZerolog(l Level) zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// fields converts key, value, key, value, ... into a field map.
// Non-string keys are skipped and a trailing odd value is ignored.
func fields(kv ...any) map[string]any {
	out := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		out[key] = safeValue(kv[i+1])
	}
	return out
}

func safeValue(v any) any {
	switch t := v.(type) {
	case fmt.Stringer:
		return fmt.Sprint(t)
	case error:
		return t.Error()
	default:
		return v
	}
}
