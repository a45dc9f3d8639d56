package driver

import (
	"bytes"
	"os/exec"
	"testing"
	"time"

	"github.com/kimjune01/cord/internal/scheduler"
	"github.com/kimjune01/cord/internal/store"
	"github.com/kimjune01/cord/internal/supervisor"
	"github.com/kimjune01/cord/internal/toolserver"
	"github.com/kimjune01/cord/pkg/cordmodel"
)

// echoAdapter is a supervisor.Adapter stand-in that runs a shell command
// printing a fixed string to stdout, standing in for a real agent runtime
// so Driver.Run can be exercised against a real Supervisor end to end.
type echoAdapter struct{}

func (echoAdapter) Name() string         { return "echo" }
func (echoAdapter) Binary() string       { return "sh" }
func (echoAdapter) DefaultModel() string { return "" }

func (echoAdapter) BuildCommand(req supervisor.LaunchRequest) (*exec.Cmd, error) {
	return exec.Command("sh", "-c", "echo done"), nil
}

type noHumanAsker struct{}

func (noHumanAsker) Deliver(n *cordmodel.Node) error { return nil }

func TestDriver_Run_CompletesSingleNodeGoal(t *testing.T) {
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer st.Close()

	sv := supervisor.New(st, echoAdapter{}, t.TempDir(), t.TempDir(), "", 0,
		func(agentID int64) *toolserver.Server {
			return &toolserver.Server{AgentID: agentID, Store: st}
		}, nil)

	sched := scheduler.New(st, sv, noHumanAsker{}, 4, nil)

	var out bytes.Buffer
	d := New(st, sched, sv, Options{
		Goal:       "a goal with no decomposition",
		Returns:    cordmodel.ReturnsText,
		TickPeriod: 10 * time.Millisecond,
		Out:        &out,
		ShowTree:   false,
	})

	done := make(chan error, 1)
	go func() { done <- d.Run() }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Driver.Run did not terminate in time")
	}

	root, err := st.Root()
	if err != nil {
		t.Fatalf("Root: %v", err)
	}
	if root.Status != cordmodel.StatusComplete {
		t.Fatalf("root status = %s, want complete", root.Status)
	}
}
