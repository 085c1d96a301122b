package logger

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func renderLine(t *testing.T, format logFormat, emit func(*slog.Logger)) string {
	t.Helper()
	buf := &bytes.Buffer{}
	aw := newAsyncWriter([]io.Writer{buf}, 1024)
	h := newStructuredHandler(handlerConfig{
		level:  slog.LevelDebug,
		writer: aw,
		format: format,
	})
	emit(slog.New(h))
	if err := aw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	line := strings.TrimSpace(buf.String())
	if line == "" {
		t.Fatal("expected a log line")
	}
	return line
}

func TestKVLineKeepsLeadingOrder(t *testing.T) {
	ctx := WithUpdateMeta(WithRID(Background(), "rid-123"), 42, 7, 9)
	line := renderLine(t, formatKV, func(l *slog.Logger) {
		LogEvent(ctx, l.With("component", "dialog"), slog.LevelInfo, "dialog.transition",
			slog.String("state", "SELECTING_GROUP"),
			slog.String("status", "OK"),
			slog.String("conv", "notice"),
		)
	})
	tokens := strings.Split(line, " ")
	want := []string{"ts=", "level=INFO", "component=dialog", "event=dialog.transition", "status=ok", "rid=rid-123", "update_id=42", "user_id=7", "chat_id=9", "conv=notice", "state=SELECTING_GROUP"}
	if len(tokens) < len(want) {
		t.Fatalf("too few tokens in %s", line)
	}
	for i, prefix := range want {
		if !strings.HasPrefix(tokens[i], prefix) {
			t.Fatalf("token %d = %s, want prefix %s (line %s)", i, tokens[i], prefix, line)
		}
	}
}

func TestJSONLineKeepsLeadingOrder(t *testing.T) {
	ctx := WithRID(Background(), "rid-json")
	line := renderLine(t, formatJSON, func(l *slog.Logger) {
		LogEvent(ctx, l.With("component", "roster"), slog.LevelError, "roster.write",
			slog.String("status", "error"),
			slog.String("err", "disk full"),
		)
	})
	if !strings.HasPrefix(line, `{"ts":`) {
		t.Fatalf("expected JSON, got %s", line)
	}
	pos := -1
	for _, part := range []string{`"level":"ERROR"`, `"component":"roster"`, `"event":"roster.write"`, `"status":"fail"`, `"rid":"rid-json"`, `"err":"disk full"`} {
		i := strings.Index(line, part)
		if i < 0 || i < pos {
			t.Fatalf("%s missing or out of order in %s", part, line)
		}
		pos = i
	}
}

func TestCompactRID(t *testing.T) {
	raw := BuildRID(123, 456, 789)
	if raw != "123:456:789" {
		t.Fatalf("BuildRID = %s", raw)
	}

	kv := renderLine(t, formatKV, func(l *slog.Logger) {
		LogEvent(WithRID(Background(), raw), l, slog.LevelInfo, "rid.test")
	})
	if !strings.Contains(kv, "rid="+CompactRID(raw)) || strings.Contains(kv, "rid_full=") {
		t.Fatalf("unexpected kv rid rendering: %s", kv)
	}

	js := renderLine(t, formatJSON, func(l *slog.Logger) {
		LogEvent(WithRID(Background(), raw), l, slog.LevelInfo, "rid.test")
	})
	if !strings.Contains(js, `"rid":"`+CompactRID(raw)+`"`) || !strings.Contains(js, `"rid_full":"`+raw+`"`) {
		t.Fatalf("unexpected json rid rendering: %s", js)
	}
	if !strings.Contains(js, `"ts_unix_nano"`) {
		t.Fatalf("expected ts_unix_nano in %s", js)
	}
}

func TestDurationsBecomeMilliseconds(t *testing.T) {
	line := renderLine(t, formatKV, func(l *slog.Logger) {
		LogEvent(Background(), l, slog.LevelInfo, "timing",
			slog.Duration("duration", 1500*time.Microsecond),
			slog.Duration("idle", 2*time.Second),
		)
	})
	if !strings.Contains(line, "duration_ms=2") || !strings.Contains(line, "idle_ms=2000") {
		t.Fatalf("unexpected durations in %s", line)
	}
}

func TestGroupsAndEmptyValues(t *testing.T) {
	line := renderLine(t, formatKV, func(l *slog.Logger) {
		l.WithGroup("db").LogAttrs(Background(), slog.LevelInfo, "grouped",
			slog.String("host", "localhost"),
			slog.String("empty", ""),
			slog.String("quoted", "two words"),
		)
	})
	if !strings.Contains(line, "db.host=localhost") {
		t.Fatalf("expected flattened group key in %s", line)
	}
	if strings.Contains(line, "db.empty") {
		t.Fatalf("empty value should be dropped: %s", line)
	}
	if !strings.Contains(line, `db.quoted="two words"`) {
		t.Fatalf("expected quoted value in %s", line)
	}
	if !strings.Contains(line, "event=grouped") || !strings.Contains(line, "component=app") {
		t.Fatalf("expected message as event and default component in %s", line)
	}
}

func TestLevelFiltering(t *testing.T) {
	h := newStructuredHandler(handlerConfig{level: slog.LevelWarn})
	if h.Enabled(Background(), slog.LevelInfo) {
		t.Fatal("info enabled at warn level")
	}
	if !h.Enabled(Background(), slog.LevelError) {
		t.Fatal("error disabled at warn level")
	}
}

func TestRatioSampler(t *testing.T) {
	s := newRatioSampler(1, 3)
	var allowed int
	for i := 0; i < 9; i++ {
		if s.Allow() {
			allowed++
		}
	}
	if allowed != 3 {
		t.Fatalf("allowed %d of 9", allowed)
	}
	for _, tc := range []struct {
		in       string
		num, den int
	}{
		{"2/5", 2, 5},
		{"10", 1, 10},
		{"0", 0, 0},
		{"x/y", 0, 0},
	} {
		if n, d := parseRatio(tc.in); n != tc.num || d != tc.den {
			t.Fatalf("parseRatio(%q) = %d/%d", tc.in, n, d)
		}
	}
}

func TestSanitizeLimit(t *testing.T) {
	if got := SanitizeLimit("a\x00b​c\td", 10); got != "abc\td" {
		t.Fatalf("SanitizeLimit = %q", got)
	}
	if got := SanitizeLimit("привет", 3); got != "при" {
		t.Fatalf("SanitizeLimit cut = %q", got)
	}
}
