package log

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

var (
	logger     *zap.SugaredLogger
	loggerOnce sync.Once
	atomLevel  = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

// initLogger initializes the global logger to write to stderr with timestamps.
func initLogger() {
	loggerOnce.Do(func() {
		encCfg := zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.RFC3339NanoTimeEncoder
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

		core := zapcore.NewCore(
			zapcore.NewConsoleEncoder(encCfg),
			zapcore.Lock(os.Stderr),
			atomLevel,
		)
		logger = zap.New(core).Sugar()
	})
}

func SetLevel(l Level) {
	initLogger()
	atomLevel.SetLevel(toZap(l))
}

// ParseLevel maps a config string to a Level. Unknown values yield LevelInfo.
func ParseLevel(s string) Level {
	switch Level(s) {
	case LevelDebug, LevelInfo, LevelWarn, LevelError:
		return Level(s)
	}
	switch s {
	case "debug":
		return LevelDebug
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	}
	return LevelInfo
}

func Debug(msg string, kv ...any) {
	initLogger()
	logger.Debugw(msg, kv...)
}

func Info(msg string, kv ...any) {
	initLogger()
	logger.Infow(msg, kv...)
}

func Warn(msg string, err error, kv ...any) {
	initLogger()
	logger.Warnw(msg, withErr(err, kv)...)
}

func Error(msg string, err error, kv ...any) {
	initLogger()
	logger.Errorw(msg, withErr(err, kv)...)
}

// Sync flushes buffered entries; call before exit.
func Sync() {
	initLogger()
	_ = logger.Sync()
}

func withErr(err error, kv []any) []any {
	if err == nil {
		return kv
	}
	// Prepend error into key-value list.
	return append([]any{"err", err}, kv...)
}

func toZap(l Level) zapcore.Level {
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
