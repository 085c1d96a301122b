package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/m3rciful/officebot/core/buildinfo"
	coreconfig "github.com/m3rciful/officebot/core/config"
)

var (
	initOnce sync.Once
	stopOnce sync.Once

	out     *asyncWriter
	closers []io.Closer

	levelVar slog.LevelVar
	sampler  = newRatioSampler(1, 50)
	trace    bool

	// L is the base logger. It stays nil until Init runs, and every helper
	// in this package is a no-op while it is nil.
	L *slog.Logger
)

// Component names used across the module.
const (
	CompTG      = "tg"
	CompTWire   = "tg.wire"
	CompSender  = "tg.sender"
	CompDialog  = "dialog"
	CompRoster  = "roster"
	CompDB      = "db"
	CompMigrate = "db.migrate"
	CompBot     = "bot"
)

// Init installs the structured logger described by cfg as the slog default.
// Only the first call has an effect.
func Init(cfg *coreconfig.Config) error {
	var err error
	initOnce.Do(func() {
		var lc coreconfig.LoggingConfig
		if cfg != nil {
			lc = cfg.Logging
		}
		levelVar.Set(parseLevel(lc.Level))
		sampler.Set(debugRatio(lc.DebugSample))
		trace = truthy(os.Getenv("TRACE")) || truthy(os.Getenv("LOG_TRACE"))

		sinks, files, openErr := openSinks(lc)
		if openErr != nil {
			err = openErr
			return
		}
		closers = files
		out = newAsyncWriter(sinks, 64<<10)

		L = slog.New(newStructuredHandler(handlerConfig{
			level:    &levelVar,
			writer:   out,
			format:   pickFormat(lc),
			keyOrder: parseKeyOrder(lc.KeysOrder),
		}))
		slog.SetDefault(L)

		Info(context.Background(), "app", "startup",
			slog.String("go_version", runtime.Version()),
			slog.String("version", buildinfo.Version),
			slog.String("build_commit", buildinfo.Commit),
			slog.String("build_time", buildinfo.Date),
			slog.String("cfg_profile", profile(lc)),
		)
	})
	return err
}

// Shutdown flushes pending lines and closes log files.
func Shutdown() error {
	var errs []error
	stopOnce.Do(func() {
		if out != nil {
			errs = append(errs, out.Flush(), out.Close())
		}
		for _, c := range closers {
			errs = append(errs, c.Close())
		}
	})
	return errors.Join(errs...)
}

func pickFormat(lc coreconfig.LoggingConfig) logFormat {
	switch strings.ToLower(strings.TrimSpace(lc.Format)) {
	case "kv", "text", "pretty":
		return formatKV
	case "json":
		return formatJSON
	}
	switch profile(lc) {
	case "debug", "dev":
		return formatKV
	}
	return formatJSON
}

func parseKeyOrder(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "default" {
		return append([]string(nil), defaultKeyOrder...)
	}
	var order []string
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			order = append(order, k)
		}
	}
	if len(order) == 0 {
		return append([]string(nil), defaultKeyOrder...)
	}
	return order
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func debugRatio(raw string) (int, int) {
	if strings.TrimSpace(raw) == "" {
		return 1, 50
	}
	num, den := parseRatio(raw)
	if num <= 0 || den <= 0 {
		return 0, 0
	}
	return num, den
}

// openSinks returns stdout plus the configured log file, if any.
func openSinks(lc coreconfig.LoggingConfig) ([]io.Writer, []io.Closer, error) {
	sinks := []io.Writer{os.Stdout}
	dir, name := strings.TrimSpace(lc.Dir), strings.TrimSpace(lc.File)
	if dir == "" || name == "" {
		return sinks, nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("logger: create dir %s: %w", dir, err)
	}
	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("logger: open %s: %w", path, err)
	}
	return append(sinks, f), []io.Closer{f}, nil
}

func profile(lc coreconfig.LoggingConfig) string {
	if p := strings.ToLower(strings.TrimSpace(lc.Profile)); p != "" {
		return p
	}
	return "prod"
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// Background returns a fresh root context for log calls outside a request.
func Background() context.Context {
	return context.Background()
}

// LogEvent writes an event line through logg, falling back to the context or base logger.
func LogEvent(ctx context.Context, logg *slog.Logger, level slog.Level, event string, attrs ...slog.Attr) {
	if logg == nil {
		logg = FromContext(ctx)
	}
	if logg == nil {
		return
	}
	if event != "" {
		attrs = append([]slog.Attr{slog.String("event", event)}, attrs...)
	}
	logg.LogAttrs(ensure(ctx), level, "", attrs...)
}

// Component returns the base logger tagged with a component name.
func Component(name string) *slog.Logger {
	if L == nil {
		return nil
	}
	if name = strings.TrimSpace(name); name == "" {
		return L
	}
	return L.With("component", name)
}

// Event logs at level for the given component.
func Event(ctx context.Context, component string, level slog.Level, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), level, event, attrs...)
}

// Debug logs a debug event.
func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelDebug, event, attrs...)
}

// Info logs an info event.
func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelInfo, event, attrs...)
}

// Warn logs a warning event.
func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelWarn, event, attrs...)
}

// Error logs an error event.
func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelError, event, attrs...)
}

// ShouldSampleDebug reports whether a high-volume debug line should be written.
func ShouldSampleDebug() bool {
	return trace || sampler.Allow()
}

// TraceEnabled reports whether TRACE or LOG_TRACE forces full debug output.
func TraceEnabled() bool {
	return trace
}
