package corddebug

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestOpen_WritesScopedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debug.log")
	l, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer l.Close()

	l.Named("scheduler").Debugf("tick %d", 1)
	l.Named("toolserver").Agent(7).Debugf("tool=%s", "create")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, "scheduler") || !strings.Contains(out, "tick 1") {
		t.Errorf("trace missing scheduler line:\n%s", out)
	}
	if !strings.Contains(out, "toolserver agent=7") || !strings.Contains(out, "tool=create") {
		t.Errorf("trace missing agent-scoped line:\n%s", out)
	}
}

func TestOpen_EmptyPathDiscards(t *testing.T) {
	l, err := Open("")
	if err != nil {
		t.Fatalf("Open(\"\"): %v", err)
	}
	l.Debugf("dropped")
	l.Named("x").Agent(1).Debugf("dropped too")
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	var l *Logger
	l.Debugf("dropped")
	l.Named("x").Debugf("dropped")
	l.Agent(3).Debugf("dropped")
	if err := l.Close(); err != nil {
		t.Fatalf("Close on nil: %v", err)
	}
}

func TestNamed_NestsScopes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debug.log")
	l, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer l.Close()

	l.Named("driver").Named("human").Debugf("answered")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), "driver/human") {
		t.Errorf("expected nested scope in trace:\n%s", data)
	}
}
