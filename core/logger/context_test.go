package logger

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	coreconfig "github.com/m3rciful/photogeo/core/config"
)

func TestContextRoundTrip(t *testing.T) {
	ctx := WithRID(context.Background(), "1:2:3")
	ctx = WithUpdateMeta(ctx, 1, 3, 2)
	ctx = WithHandler(ctx, "photo")
	ctx = WithGroupID(ctx, "album-9")

	if RIDFrom(ctx) != "1:2:3" || UpdateIDFrom(ctx) != 1 || UserIDFrom(ctx) != 3 || ChatIDFrom(ctx) != 2 {
		t.Fatalf("unexpected update meta")
	}
	if HandlerFrom(ctx) != "photo" || GroupIDFrom(ctx) != "album-9" {
		t.Fatalf("unexpected handler/group: %q %q", HandlerFrom(ctx), GroupIDFrom(ctx))
	}
	if GroupIDFrom(WithGroupID(context.Background(), "")) != "" {
		t.Fatal("empty group id must not be stored")
	}
	if RIDFrom(nil) != "" || UserIDFrom(nil) != 0 {
		t.Fatal("nil context must yield zero values")
	}
}

func TestGroupIDIsLogged(t *testing.T) {
	line := captureLine(t, handlerConfig{level: slog.LevelInfo, format: formatKV}, func() slogCall {
		return slogCall{ctx: WithGroupID(Background(), "album-1"), component: "album", event: "album.finalize"}
	})
	if !strings.Contains(line, "group_id=album-1") {
		t.Fatalf("expected group_id, got %s", line)
	}
}

func TestCompactRID(t *testing.T) {
	cases := map[string]string{
		"35:36:-1": "z.10.-1",
		"a:b:c":    "a:b:c",
		"1:2":      "1:2",
		"":         "",
	}
	for in, want := range cases {
		if got := CompactRID(in); got != want {
			t.Fatalf("CompactRID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSanitizeLimit(t *testing.T) {
	if got := SanitizeLimit("a\x00b\u200bc\td", 10); got != "abc\td" {
		t.Fatalf("unexpected sanitize result %q", got)
	}
	if got := SanitizeLimit("привет", 3); got != "при" {
		t.Fatalf("expected rune limit, got %q", got)
	}
	if SanitizeLimit("x", 0) != "" {
		t.Fatal("zero limit must yield empty string")
	}
}

func TestRatioSampler(t *testing.T) {
	s := newRatioSampler(1, 4)
	allowed := 0
	for i := 0; i < 40; i++ {
		if s.Allow() {
			allowed++
		}
	}
	if allowed != 10 {
		t.Fatalf("expected 10 of 40 sampled, got %d", allowed)
	}

	s.Set(0, 0)
	for i := 0; i < 5; i++ {
		if !s.Allow() {
			t.Fatal("disabled sampler must allow everything")
		}
	}
}

func TestParseRatioSpec(t *testing.T) {
	cases := []struct {
		in       string
		num, den int
	}{
		{"1/10", 1, 10},
		{" 2 / 5 ", 2, 5},
		{"20", 1, 20},
		{"0", 0, 0},
		{"x/y", 0, 0},
		{"", 0, 0},
	}
	for _, tc := range cases {
		num, den := parseRatioSpec(tc.in)
		if num != tc.num || den != tc.den {
			t.Fatalf("parseRatioSpec(%q) = %d/%d, want %d/%d", tc.in, num, den, tc.num, tc.den)
		}
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestAsyncWriterKeepsHealthySinks(t *testing.T) {
	buf := &bytes.Buffer{}
	w := newAsyncWriter([]io.Writer{failingWriter{}, buf}, 16)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = w.Write([]byte("line\n"))
		}()
	}
	wg.Wait()
	if err := w.Flush(); err == nil {
		t.Fatal("expected the failing sink error to be reported")
	}
	if got := strings.Count(buf.String(), "line\n"); got != 50 {
		t.Fatalf("expected 50 lines after flush, got %d", got)
	}
	if err := w.Close(); err == nil {
		t.Fatal("expected close to report the sink error")
	}
	if err := w.Write([]byte("late\n")); !errors.Is(err, errWriterClosed) {
		t.Fatalf("expected errWriterClosed, got %v", err)
	}
}

func TestResolveOptions(t *testing.T) {
	o := resolveOptions(nil)
	if o.format != formatJSON || o.level != slog.LevelInfo || o.colorize {
		t.Fatalf("unexpected defaults: %+v", o)
	}

	cfg := &coreconfig.Config{Logging: coreconfig.LoggingConfig{
		Level:       "debug",
		Profile:     "Dev",
		Color:       "always",
		KeysOrder:   "event, ts",
		DebugSample: "0",
	}}
	o = resolveOptions(cfg)
	if o.format != formatKV || o.level != slog.LevelDebug || !o.colorize || o.profile != "dev" {
		t.Fatalf("unexpected dev options: %+v", o)
	}
	if len(o.keyOrder) != 2 || o.keyOrder[0] != "event" {
		t.Fatalf("unexpected key order: %v", o.keyOrder)
	}
	if o.sampleNum != 0 || o.sampleDen != 0 {
		t.Fatalf("debug_sample 0 must disable sampling, got %d/%d", o.sampleNum, o.sampleDen)
	}

	cfg.Logging.Format = "json"
	if resolveOptions(cfg).colorize {
		t.Fatal("json output must never be colorized")
	}
	cfg.Logging.DebugSample = "garbage"
	if o := resolveOptions(cfg); o.sampleNum != 1 || o.sampleDen != 50 {
		t.Fatalf("invalid debug_sample must fall back to 1/50, got %d/%d", o.sampleNum, o.sampleDen)
	}
}

func TestLevelNames(t *testing.T) {
	cases := map[slog.Level]string{
		slog.LevelDebug - 4: LevelDebug,
		slog.LevelDebug:     LevelDebug,
		slog.LevelInfo:      LevelInfo,
		slog.LevelInfo + 2:  LevelInfo,
		slog.LevelWarn:      LevelWarn,
		slog.LevelError:     LevelError,
		slog.LevelError + 4: LevelError,
	}
	for l, want := range cases {
		if got := levelName(l); got != want {
			t.Fatalf("levelName(%v) = %s, want %s", l, got, want)
		}
	}
	if l, ok := parseLevel(" Warning "); !ok || l != slog.LevelWarn {
		t.Fatalf("parseLevel(warning) = %v, %v", l, ok)
	}
	if _, ok := parseLevel("verbose"); ok {
		t.Fatal("unknown level must not parse")
	}
}
