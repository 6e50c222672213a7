package bflog_test

import (
	"bytes"
	"strings"
	"testing"

	"bfoptc/internal/bflog"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := bflog.New(&buf, bflog.LevelWarn)
	log.Debug("should not appear")
	log.Info("should not appear either")
	log.Warn("first warning")
	log.Error("then an error")

	out := buf.String()
	if strings.Contains(out, "should not appear") {
		t.Fatalf("expected Debug/Info to be filtered below LevelWarn, got:\n%s", out)
	}
	if !strings.Contains(out, "[WARN] first warning") {
		t.Errorf("expected a WARN line, got:\n%s", out)
	}
	if !strings.Contains(out, "[ERROR] then an error") {
		t.Errorf("expected an ERROR line, got:\n%s", out)
	}
}

func TestWithAddsFieldsWithoutMutatingParent(t *testing.T) {
	var buf bytes.Buffer
	parent := bflog.New(&buf, bflog.LevelDebug)
	child := parent.With("build_id", "abc123")

	child.Info("hello")
	parent.Info("world")

	out := buf.String()
	if !strings.Contains(out, "build_id=abc123 hello") {
		t.Errorf("expected child's line to carry the field, got:\n%s", out)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), out)
	}
	if strings.Contains(lines[1], "build_id") {
		t.Errorf("expected parent's own line to stay unaffected by the child's field, got:\n%s", lines[1])
	}
}

func TestWithChainsMultipleFields(t *testing.T) {
	var buf bytes.Buffer
	log := bflog.New(&buf, bflog.LevelDebug).With("a", 1).With("b", 2)
	log.Debug("msg")
	if !strings.Contains(buf.String(), "a=1 b=2 msg") {
		t.Errorf("expected chained fields in insertion order, got:\n%s", buf.String())
	}
}

func TestNopDiscardsEverything(t *testing.T) {
	log := bflog.Nop()
	// Nop has no backing writer a test can observe; the property under
	// test is simply that calling every level never panics.
	log.Debug("x")
	log.Info("x")
	log.Warn("x")
	log.Error("x")
}

func TestLevelStrings(t *testing.T) {
	cases := map[bflog.Level]string{
		bflog.LevelDebug: "DEBUG",
		bflog.LevelInfo:  "INFO",
		bflog.LevelWarn:  "WARN",
		bflog.LevelError: "ERROR",
	}
	for level, want := range cases {
		if got := level.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", level, got, want)
		}
	}
}
