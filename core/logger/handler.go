package logger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"
)

type logFormat string

const (
	formatJSON logFormat = "json"
	formatKV   logFormat = "kv"

	timeFormatMillis = "2006-01-02T15:04:05.000Z07:00"
)

type handlerConfig struct {
	level    slog.Leveler
	writer   *asyncWriter
	format   logFormat
	keyOrder []string
	// colorize paints the level value in kv output.
	colorize bool
}

// structuredHandler renders one flat line per record. Keys listed in
// keyOrder come first, the rest follow alphabetically.
type structuredHandler struct {
	cfg    handlerConfig
	attrs  []slog.Attr
	prefix string
}

func newStructuredHandler(cfg handlerConfig) *structuredHandler {
	if cfg.level == nil {
		cfg.level = slog.LevelInfo
	}
	if cfg.keyOrder == nil {
		cfg.keyOrder = append([]string(nil), defaultKeyOrder...)
	}
	return &structuredHandler{cfg: cfg}
}

// Enabled implements slog.Handler.
func (h *structuredHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.cfg.level.Level()
}

// Handle implements slog.Handler.
func (h *structuredHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.cfg.writer == nil {
		return errors.New("logger: writer not initialized")
	}

	f := make(fields, 16)
	ts := r.Time.UTC()
	f["ts"] = ts.Truncate(time.Millisecond).Format(timeFormatMillis)
	f["level"] = levelName(r.Level)
	if h.cfg.format == formatJSON {
		f["ts_unix_nano"] = ts.UnixNano()
	}
	for _, a := range h.attrs {
		f.add(h.prefix, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		f.add(h.prefix, a)
		return true
	})
	f.fromContext(ctx)
	f.normalize(r.Message, h.cfg.format == formatJSON)

	var line []byte
	switch h.cfg.format {
	case formatJSON:
		var err error
		if line, err = encodeJSON(f, h.cfg.keyOrder); err != nil {
			return err
		}
	default:
		if h.cfg.colorize {
			f["level"] = colorLevel(f.str("level"))
		}
		line = encodeKV(f, h.cfg.keyOrder)
	}
	return h.cfg.writer.Write(append(line, '\n'))
}

// WithAttrs implements slog.Handler.
func (h *structuredHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &clone
}

// WithGroup implements slog.Handler; groups become dotted key prefixes.
func (h *structuredHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = joinKey(h.prefix, name)
	return &clone
}

type fields map[string]any

func joinKey(prefix, key string) string {
	switch {
	case prefix == "":
		return key
	case key == "":
		return prefix
	}
	return prefix + "." + key
}

func (f fields) add(prefix string, a slog.Attr) {
	key := joinKey(prefix, a.Key)
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		for _, child := range v.Group() {
			f.add(key, child)
		}
		return
	}
	if key == "" {
		return
	}
	if k, val, ok := normalizeValue(key, v); ok {
		f[k] = val
	}
}

// durationKey appends the _ms unit: "duration" -> "duration_ms", "wait" -> "wait_ms".
func durationKey(key string) string {
	if strings.HasSuffix(key, "_ms") {
		return key
	}
	return key + "_ms"
}

func normalizeValue(key string, v slog.Value) (string, any, bool) {
	switch v.Kind() {
	case slog.KindString:
		return key, strings.TrimSpace(v.String()), true
	case slog.KindBool:
		return key, v.Bool(), true
	case slog.KindInt64:
		return key, v.Int64(), true
	case slog.KindUint64:
		if u := v.Uint64(); u <= math.MaxInt64 {
			return key, int64(u), true
		}
		return key, v.Uint64(), true
	case slog.KindFloat64:
		return key, v.Float64(), true
	case slog.KindDuration:
		return durationKey(key), RoundMS(v.Duration()).Milliseconds(), true
	case slog.KindTime:
		return key, v.Time().UTC().Format(time.RFC3339Nano), true
	}

	switch x := v.Any().(type) {
	case nil:
		return key, nil, false
	case error:
		return key, x.Error(), true
	case time.Duration:
		return durationKey(key), RoundMS(x).Milliseconds(), true
	case fmt.Stringer:
		return key, x.String(), true
	default:
		return key, fmt.Sprint(x), true
	}
}

// contextFields lists values copied from the context unless set explicitly.
var contextFields = []struct {
	key string
	get func(context.Context) any
}{
	{"rid", func(ctx context.Context) any { return RIDFrom(ctx) }},
	{"update_id", func(ctx context.Context) any { return UpdateIDFrom(ctx) }},
	{"user_id", func(ctx context.Context) any { return UserIDFrom(ctx) }},
	{"chat_id", func(ctx context.Context) any { return ChatIDFrom(ctx) }},
	{"group_id", func(ctx context.Context) any { return GroupIDFrom(ctx) }},
	{"handler", func(ctx context.Context) any { return HandlerFrom(ctx) }},
}

func (f fields) fromContext(ctx context.Context) {
	if ctx == nil {
		return
	}
	for _, cf := range contextFields {
		if _, set := f[cf.key]; set {
			continue
		}
		switch v := cf.get(ctx).(type) {
		case string:
			if v != "" {
				f[cf.key] = v
			}
		case int:
			if v != 0 {
				f[cf.key] = v
			}
		case int64:
			if v != 0 {
				f[cf.key] = v
			}
		}
	}
}

func (f fields) str(key string) string {
	switch v := f[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// normalize fills event and component, compacts the rid and drops empty or
// unknown enumeration values.
func (f fields) normalize(msg string, keepFullRID bool) {
	if rid := f.str("rid"); rid != "" {
		if compact := CompactRID(rid); compact != rid {
			if _, set := f["rid_full"]; keepFullRID && !set {
				f["rid_full"] = rid
			}
			f["rid"] = compact
		}
	}
	if f.str("event") == "" {
		f["event"] = "unknown"
		if msg != "" {
			f["event"] = msg
		}
	}
	if f.str("component") == "" {
		f["component"] = "app"
	}
	if s := f.str("status"); s != "" {
		f["status"] = normalizeStatus(s)
	}
	if o := f.str("outcome"); o != "" {
		if v, ok := normalizeOutcome(o); ok {
			f["outcome"] = v
		} else {
			delete(f, "outcome")
		}
	}
	for k, v := range f {
		if v == nil || f.str(k) == "" {
			delete(f, k)
		}
	}
}
