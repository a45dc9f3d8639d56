package supervisor

import (
	"strings"
	"testing"

	"github.com/kimjune01/cord/internal/config"
)

func TestNewAdapter_KnownAndUnknown(t *testing.T) {
	for _, name := range []string{"claude", "codex-app-server", "amp"} {
		a, err := NewAdapter(name, nil)
		if err != nil {
			t.Errorf("NewAdapter(%q): %v", name, err)
			continue
		}
		if a.Name() != name {
			t.Errorf("NewAdapter(%q).Name() = %q", name, a.Name())
		}
	}

	if _, err := NewAdapter("nonexistent", nil); err == nil {
		t.Fatal("expected error for unknown runtime")
	}
}

func TestNewAdapter_ResolvesDefinition(t *testing.T) {
	defs := []config.RuntimeDefinition{{
		Name:         "local-llm",
		Binary:       "llamacli",
		PromptFlag:   "--prompt",
		ModelFlag:    "-m",
		ExtraArgs:    []string{"--json"},
		DefaultModel: "llama3",
	}}

	a, err := NewAdapter("local-llm", defs)
	if err != nil {
		t.Fatalf("NewAdapter: %v", err)
	}
	if a.Name() != "local-llm" || a.Binary() != "llamacli" || a.DefaultModel() != "llama3" {
		t.Fatalf("unexpected adapter identity: name=%q binary=%q model=%q", a.Name(), a.Binary(), a.DefaultModel())
	}

	req := LaunchRequest{NodeID: "#7", Prompt: "do it", SocketPath: "/tmp/x.sock", WorkDir: "/work", Model: "llama3", MaxBudgetUSD: 1.0}
	cmd, err := a.BuildCommand(req)
	if err != nil {
		t.Fatalf("BuildCommand: %v", err)
	}
	want := []string{"llamacli", "--json", "--prompt", "do it", "-m", "llama3"}
	if len(cmd.Args) != len(want) {
		t.Fatalf("cmd.Args = %v, want %v", cmd.Args, want)
	}
	for i := range want {
		if cmd.Args[i] != want[i] {
			t.Fatalf("cmd.Args = %v, want %v", cmd.Args, want)
		}
	}
	foundEnv := false
	for _, e := range cmd.Env {
		if e == "CORD_AGENT_ID=#7" {
			foundEnv = true
		}
	}
	if !foundEnv {
		t.Errorf("cmd.Env missing CORD_AGENT_ID: %v", cmd.Env)
	}
}

func TestNewAdapter_DefinitionShadowsBuiltin(t *testing.T) {
	defs := []config.RuntimeDefinition{{Name: "claude", Binary: "claude-next", PromptFlag: "-p"}}
	a, err := NewAdapter("claude", defs)
	if err != nil {
		t.Fatalf("NewAdapter: %v", err)
	}
	if a.Binary() != "claude-next" {
		t.Fatalf("expected definition to shadow built-in, got binary %q", a.Binary())
	}
}

func TestAdapterFromDefinition_RejectsIncomplete(t *testing.T) {
	for _, def := range []config.RuntimeDefinition{
		{Binary: "x", PromptFlag: "-p"},
		{Name: "x", PromptFlag: "-p"},
		{Name: "x", Binary: "x"},
	} {
		if _, err := AdapterFromDefinition(def); err == nil {
			t.Errorf("AdapterFromDefinition(%+v): expected error", def)
		}
	}
}

func TestDefinedAdapter_OmitsModelWithoutFlag(t *testing.T) {
	a, err := AdapterFromDefinition(config.RuntimeDefinition{Name: "bare", Binary: "bare", PromptFlag: "-p"})
	if err != nil {
		t.Fatalf("AdapterFromDefinition: %v", err)
	}
	cmd, err := a.BuildCommand(LaunchRequest{NodeID: "#1", Prompt: "go", Model: "something"})
	if err != nil {
		t.Fatalf("BuildCommand: %v", err)
	}
	if len(cmd.Args) != 3 {
		t.Fatalf("cmd.Args = %v, want just binary, prompt flag, prompt", cmd.Args)
	}
}

func TestClaudeAdapter_BuildCommand(t *testing.T) {
	a := claudeAdapter{}
	req := LaunchRequest{NodeID: "#3", Prompt: "do it", SocketPath: "/tmp/x.sock", WorkDir: "/work", Model: "opus", MaxBudgetUSD: 1.5}
	cmd, err := a.BuildCommand(req)
	if err != nil {
		t.Fatalf("BuildCommand: %v", err)
	}
	if cmd.Dir != "/work" {
		t.Errorf("cmd.Dir = %q, want /work", cmd.Dir)
	}
	joined := strings.Join(cmd.Args, " ")
	if !strings.Contains(joined, "do it") || !strings.Contains(joined, "opus") {
		t.Errorf("cmd.Args missing expected flags: %v", cmd.Args)
	}
	foundEnv := false
	for _, e := range cmd.Env {
		if e == "CORD_AGENT_ID=#3" {
			foundEnv = true
		}
	}
	if !foundEnv {
		t.Errorf("cmd.Env missing CORD_AGENT_ID: %v", cmd.Env)
	}
}

func TestClaudeAdapter_OmitsModelFlagWhenEmpty(t *testing.T) {
	a := claudeAdapter{}
	req := LaunchRequest{NodeID: "#3", Prompt: "do it", SocketPath: "/tmp/x.sock", WorkDir: "/work"}
	cmd, err := a.BuildCommand(req)
	if err != nil {
		t.Fatalf("BuildCommand: %v", err)
	}
	for _, arg := range cmd.Args {
		if arg == "--model" {
			t.Fatalf("cmd.Args contains --model with no model set: %v", cmd.Args)
		}
	}
}

func TestRuntimeNames_IncludesDefault(t *testing.T) {
	names := RuntimeNames()
	found := false
	for _, n := range names {
		if n == DefaultRuntime() {
			found = true
		}
	}
	if !found {
		t.Fatalf("RuntimeNames() = %v, missing default %q", names, DefaultRuntime())
	}
}
