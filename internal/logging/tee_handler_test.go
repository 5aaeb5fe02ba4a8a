package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNewTeeHandlerCollapses(t *testing.T) {
	if _, ok := newTeeHandler(nil, nil).(NoopHandler); !ok {
		t.Fatal("expected NoopHandler when every handler is nil")
	}
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	if h := newTeeHandler(nil, inner); h != inner {
		t.Fatalf("expected single handler unwrapped, got %T", h)
	}
}

func TestTeeLoggerRoutesByLevel(t *testing.T) {
	var console, runLog bytes.Buffer
	base := slog.New(slog.NewTextHandler(&console, &slog.HandlerOptions{Level: slog.LevelWarn}))
	file := slog.NewJSONHandler(&runLog, &slog.HandlerOptions{Level: slog.LevelDebug})

	logger := TeeLogger(base, file).With(String(FieldModel, "bark"))
	logger.Debug("batch finished")
	logger.Warn("sample unreadable")

	if strings.Contains(console.String(), "batch finished") {
		t.Fatalf("debug line leaked to console: %q", console.String())
	}
	if !strings.Contains(console.String(), "sample unreadable") {
		t.Fatalf("warning missing from console: %q", console.String())
	}
	for _, want := range []string{"batch finished", "sample unreadable", `"model":"bark"`} {
		if !strings.Contains(runLog.String(), want) {
			t.Fatalf("run log missing %q: %q", want, runLog.String())
		}
	}
}

func TestTeeLoggerWithGroup(t *testing.T) {
	var a, b bytes.Buffer
	logger := TeeLogger(slog.New(slog.NewJSONHandler(&a, nil)), slog.NewJSONHandler(&b, nil))
	logger.WithGroup("eval").Info("scored", Float64("loss", 0.5))
	for _, out := range []string{a.String(), b.String()} {
		if !strings.Contains(out, `"eval":{"loss":0.5}`) {
			t.Fatalf("expected grouped attrs, got %q", out)
		}
	}
}

func TestTeeLoggerNilBase(t *testing.T) {
	var buf bytes.Buffer
	TeeLogger(nil, slog.NewJSONHandler(&buf, nil)).Info("only extra")
	if !strings.Contains(buf.String(), "only extra") {
		t.Fatalf("expected output, got %q", buf.String())
	}
}
