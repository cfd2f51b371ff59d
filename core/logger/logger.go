package logger

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/m3rciful/photogeo/core/buildinfo"
	coreconfig "github.com/m3rciful/photogeo/core/config"
)

var (
	initOnce     sync.Once
	shutdownOnce sync.Once
	shutdownErr  error

	logWriter  *asyncWriter
	logClosers []io.Closer

	levelVar slog.LevelVar

	debugSampler  = newRatioSampler(1, 50)
	traceOverride bool

	// L is the base logger. It stays nil until InitLogger runs and every
	// helper in this package tolerates that, so tests can log without setup.
	L *slog.Logger
)

// options is the resolved logging section.
type options struct {
	level    slog.Level
	format   logFormat
	colorize bool
	keyOrder []string
	profile  string
	// sampleNum/sampleDen of debug update lines pass; 0/0 keeps all.
	sampleNum, sampleDen int
}

func resolveOptions(cfg *coreconfig.Config) options {
	o := options{
		level:     slog.LevelInfo,
		format:    formatJSON,
		keyOrder:  append([]string(nil), defaultKeyOrder...),
		profile:   "prod",
		sampleNum: 1,
		sampleDen: 50,
	}
	if cfg == nil {
		return o
	}
	lc := cfg.Logging

	if p := strings.ToLower(strings.TrimSpace(lc.Profile)); p != "" {
		o.profile = p
	}
	dev := o.profile == "debug" || o.profile == "dev"

	if l, ok := parseLevel(lc.Level); ok {
		o.level = l
	}

	switch strings.ToLower(strings.TrimSpace(lc.Format)) {
	case "kv", "text", "pretty":
		o.format = formatKV
	case "json":
	default:
		if dev {
			o.format = formatKV
		}
	}

	switch strings.ToLower(strings.TrimSpace(lc.Color)) {
	case "always", "on", "true":
		o.colorize = true
	case "never", "off", "false":
	default:
		o.colorize = dev && !color.NoColor
	}
	o.colorize = o.colorize && o.format == formatKV

	if raw := strings.TrimSpace(lc.KeysOrder); raw != "" && raw != "default" {
		var order []string
		for _, k := range strings.Split(raw, ",") {
			if k = strings.TrimSpace(k); k != "" {
				order = append(order, k)
			}
		}
		if len(order) > 0 {
			o.keyOrder = order
		}
	}

	if spec := strings.TrimSpace(lc.DebugSample); spec != "" {
		o.sampleNum, o.sampleDen = parseRatioSpec(spec)
		if spec != "0" && (o.sampleNum <= 0 || o.sampleDen <= 0) {
			o.sampleNum, o.sampleDen = 1, 50
		}
	}
	return o
}

// InitLogger configures the global structured logger. Only the first call
// has any effect.
func InitLogger(cfg *coreconfig.Config) error {
	initOnce.Do(func() {
		o := resolveOptions(cfg)
		levelVar.Set(o.level)
		debugSampler.Set(o.sampleNum, o.sampleDen)
		traceOverride = isTruthy(os.Getenv("TRACE")) || isTruthy(os.Getenv("LOG_TRACE"))

		outputs, closers := buildOutputs(cfg)
		logClosers = closers
		logWriter = newAsyncWriter(outputs, 64*1024)

		L = slog.New(newStructuredHandler(handlerConfig{
			level:    &levelVar,
			writer:   logWriter,
			format:   o.format,
			keyOrder: o.keyOrder,
			colorize: o.colorize,
		}))
		slog.SetDefault(L)

		attrs := []slog.Attr{
			slog.String("go_version", runtime.Version()),
			slog.String("build_version", buildinfo.Version),
			slog.String("build_commit", buildinfo.Commit),
			slog.String("build_time", buildinfo.Date),
			slog.String("cfg_profile", o.profile),
		}
		if cfg != nil {
			attrs = append(attrs, slog.String("mode", cfg.Telegram.RunMode))
		}
		Info(context.Background(), "app", "startup", attrs...)
	})
	return nil
}

// Shutdown flushes buffered output and closes log files. It is idempotent.
func Shutdown() error {
	shutdownOnce.Do(func() {
		var errs []error
		if logWriter != nil {
			errs = append(errs, logWriter.Close())
		}
		for _, c := range logClosers {
			errs = append(errs, c.Close())
		}
		shutdownErr = errors.Join(errs...)
	})
	return shutdownErr
}

// buildOutputs returns stdout plus the optional log file. A file that cannot
// be opened is reported on the standard logger and skipped.
func buildOutputs(cfg *coreconfig.Config) ([]io.Writer, []io.Closer) {
	writers := []io.Writer{os.Stdout}
	if cfg == nil {
		return writers, nil
	}
	dir := strings.TrimSpace(cfg.Logging.Dir)
	file := strings.TrimSpace(cfg.Logging.BotFile)
	if dir == "" || file == "" {
		return writers, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Printf("logger: create log dir %s: %v", dir, err)
		return writers, nil
	}
	path := filepath.Join(dir, file)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Printf("logger: open log file %s: %v", path, err)
		return writers, nil
	}
	return append(writers, f), []io.Closer{f}
}

// Background returns context.Background(); kept so call sites read uniformly.
func Background() context.Context {
	return context.Background()
}

// LogEvent logs event with attrs through logg, or the context logger when logg is nil.
func LogEvent(ctx context.Context, logg *slog.Logger, level slog.Level, event string, attrs ...slog.Attr) {
	if logg == nil {
		logg = FromContext(ctx)
	}
	if logg == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if event != "" {
		attrs = append([]slog.Attr{slog.String("event", event)}, attrs...)
	}
	logg.LogAttrs(ctx, level, "", attrs...)
}

// Component returns L scoped to a component, or nil before InitLogger.
func Component(name string) *slog.Logger {
	if L == nil {
		return nil
	}
	if name = strings.TrimSpace(name); name == "" {
		return L
	}
	return L.With("component", name)
}

// Event logs at level for component.
func Event(ctx context.Context, component string, level slog.Level, event string, attrs ...slog.Attr) {
	logg := Component(component)
	if logg == nil {
		if logg = FromContext(ctx); logg != nil && strings.TrimSpace(component) != "" {
			logg = logg.With("component", strings.TrimSpace(component))
		}
	}
	LogEvent(ctx, logg, level, event, attrs...)
}

// Debug logs a debug-level event for the given component.
func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelDebug, event, attrs...)
}

// Info logs an info-level event for the given component.
func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelInfo, event, attrs...)
}

// Warn logs a warn-level event for the given component.
func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelWarn, event, attrs...)
}

// Error logs an error-level event for the given component.
func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelError, event, attrs...)
}

func isTruthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// ShouldSampleDebug reports whether a high-volume debug line should be logged.
// TRACE=1 or LOG_TRACE=1 disables sampling.
func ShouldSampleDebug() bool {
	return traceOverride || debugSampler.Allow()
}
