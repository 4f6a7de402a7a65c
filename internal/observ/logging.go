package observ

import (
	"sort"
	"sync/atomic"

	"go.uber.org/zap"
)

var logger atomic.Pointer[zap.Logger]

func init() {
	l, err := zap.NewProduction()
	if err != nil {
		l = zap.NewNop()
	}
	logger.Store(l)
}

// SetLogger replaces the process logger. Passing nil installs a no-op logger.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger.Store(l)
}

// Logger returns the process logger for components that log through zap directly.
func Logger() *zap.Logger {
	return logger.Load()
}

// Log emits one structured line named after event. Keys are written in sorted
// order so lines for the same event diff cleanly.
func Log(event string, kv map[string]any) {
	logger.Load().Info(event, fields(kv)...)
}

// LogError is Log at error level with the error attached.
func LogError(event string, err error, kv map[string]any) {
	logger.Load().Error(event, append(fields(kv), zap.Error(err))...)
}

// LogWarn is Log at warn level.
func LogWarn(event string, kv map[string]any) {
	logger.Load().Warn(event, fields(kv)...)
}

func fields(kv map[string]any) []zap.Field {
	if len(kv) == 0 {
		return nil
	}
	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		out = append(out, zap.Any(k, kv[k]))
	}
	return out
}
