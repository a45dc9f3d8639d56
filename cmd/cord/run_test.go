package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kimjune01/cord/internal/config"
	"github.com/kimjune01/cord/internal/supervisor"
)

func TestResolveGoal_LiteralString(t *testing.T) {
	goal, err := resolveGoal("build a thing")
	if err != nil {
		t.Fatalf("resolveGoal: %v", err)
	}
	if goal != "build a thing" {
		t.Errorf("resolveGoal = %q, want literal passthrough", goal)
	}
}

func TestResolveGoal_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "goal.txt")
	if err := os.WriteFile(path, []byte("goal from file\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	goal, err := resolveGoal(path)
	if err != nil {
		t.Fatalf("resolveGoal: %v", err)
	}
	if goal != "goal from file\n" {
		t.Errorf("resolveGoal = %q, want file contents", goal)
	}
}

func TestResolveGoal_DirectoryIsTreatedAsLiteral(t *testing.T) {
	dir := t.TempDir()
	goal, err := resolveGoal(dir)
	if err != nil {
		t.Fatalf("resolveGoal: %v", err)
	}
	if goal != dir {
		t.Errorf("resolveGoal(dir) = %q, want the literal directory path back", goal)
	}
}

func TestCheckRuntimeBinary_MissingBinary(t *testing.T) {
	adapter, err := supervisor.AdapterFromDefinition(config.RuntimeDefinition{
		Name:       "ghost",
		Binary:     "cord-test-no-such-binary",
		PromptFlag: "-p",
	})
	if err != nil {
		t.Fatalf("AdapterFromDefinition: %v", err)
	}
	if err := checkRuntimeBinary(adapter); err == nil {
		t.Error("checkRuntimeBinary should report a binary that is not on PATH")
	}
}

func TestJoinRuntimeNames_IsNonEmpty(t *testing.T) {
	if joinRuntimeNames() == "" {
		t.Error("joinRuntimeNames() returned empty string")
	}
}
