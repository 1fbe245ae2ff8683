package logger

import (
	"io"
	"os"
	"sort"
	"sync"

	"github.com/hashicorp/go-hclog"
)

const name = "pizza42-api"

var (
	mu   sync.RWMutex
	base hclog.Logger = newLogger(os.Stdout, hclog.Info)
)

func newLogger(w io.Writer, level hclog.Level) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:       name,
		Level:      level,
		Output:     w,
		JSONFormat: true,
	})
}

// Init configures the process logger. Unknown levels fall back to info.
func Init(level string) {
	lvl := hclog.LevelFromString(level)
	if lvl == hclog.NoLevel {
		lvl = hclog.Info
	}

	mu.Lock()
	base = newLogger(os.Stdout, lvl)
	mu.Unlock()

	Info("logger initialized", map[string]any{"level": lvl.String()})
}

// SetOutput redirects log output, mostly for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	base = newLogger(w, base.GetLevel())
}

// L returns the underlying hclog logger.
func L() hclog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

func Debug(msg string, fields map[string]any) {
	L().Debug(msg, args(fields)...)
}

func Info(msg string, fields map[string]any) {
	L().Info(msg, args(fields)...)
}

func Warn(msg string, fields map[string]any) {
	L().Warn(msg, args(fields)...)
}

func Error(msg string, fields map[string]any) {
	L().Error(msg, args(fields)...)
}

func Fatal(msg string, fields map[string]any) {
	L().Error(msg, args(fields)...)
	os.Exit(1)
}

// args flattens fields into hclog key/value pairs in a stable order.
func args(fields map[string]any) []any {
	if len(fields) == 0 {
		return nil
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]any, 0, len(fields)*2)
	for _, k := range keys {
		out = append(out, k, fields[k])
	}
	return out
}
