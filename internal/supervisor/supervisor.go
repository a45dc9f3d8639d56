// Package supervisor owns per-node agent subprocess lifecycle: launch,
// signal, and reap, plus the cascading cancel that follows a cancelled
// node down its subtree.
package supervisor

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/google/uuid"

	"github.com/kimjune01/cord/internal/corddebug"
	"github.com/kimjune01/cord/internal/store"
	"github.com/kimjune01/cord/internal/toolserver"
	"github.com/kimjune01/cord/pkg/cordmodel"
)

// ErrAtCapacity is returned by Launch when the configured concurrency cap
// is already saturated with live subprocesses.
var ErrAtCapacity = errors.New("agent concurrency cap reached")

// Supervisor launches, signals, and reaps agent subprocesses, and enforces
// a global concurrency cap across them.
type Supervisor struct {
	Store        *store.Store
	Runtime      Adapter
	SocketDir    string
	WorkDir      string
	Model        string
	MaxBudgetUSD float64
	// MaxAgents caps live subprocesses; zero means unlimited.
	MaxAgents int
	Log       *corddebug.Logger

	NewToolServer func(agentID int64) *toolserver.Server

	mu      sync.Mutex
	handles map[int64]*handle
}

// New constructs a Supervisor. socketDir holds the per-agent Unix domain
// sockets the Tool Server listens on; it is created if missing.
func New(st *store.Store, runtime Adapter, socketDir, workDir, model string, maxBudgetUSD float64, newToolServer func(int64) *toolserver.Server, log *corddebug.Logger) *Supervisor {
	return &Supervisor{
		Store:         st,
		Runtime:       runtime,
		SocketDir:     socketDir,
		WorkDir:       workDir,
		Model:         model,
		MaxBudgetUSD:  maxBudgetUSD,
		Log:           log,
		NewToolServer: newToolServer,
		handles:       map[int64]*handle{},
	}
}

// ActiveCount returns the number of currently-registered subprocesses,
// satisfying scheduler.Launcher.
func (sv *Supervisor) ActiveCount() int {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	return len(sv.handles)
}

// Launch performs the pending -> active transition for id, then starts
// its agent subprocess and a Tool Server bound to id. On any setup
// failure the node is transitioned to failed, with the diagnostic
// written to the debug log, rather than left active with no process
// behind it.
func (sv *Supervisor) Launch(id int64, assembledPrompt string) error {
	sv.mu.Lock()
	saturated := sv.MaxAgents > 0 && len(sv.handles) >= sv.MaxAgents
	sv.mu.Unlock()
	if saturated {
		return ErrAtCapacity
	}

	if err := sv.Store.Transition(id, cordmodel.StatusPending, cordmodel.StatusActive, nil); err != nil {
		return fmt.Errorf("activate %s: %w", cordmodel.RenderID(id), err)
	}

	if err := sv.launchProcess(id, assembledPrompt); err != nil {
		sv.Log.Debugf("%s launch diagnostic: %v", cordmodel.RenderID(id), err)
		if tErr := sv.Store.Transition(id, cordmodel.StatusActive, cordmodel.StatusFailed, nil); tErr != nil {
			sv.Log.Debugf("%s: failed to record launch failure: %v (original: %v)", cordmodel.RenderID(id), tErr, err)
		}
		return fmt.Errorf("launch %s: %w", cordmodel.RenderID(id), err)
	}
	return nil
}

func (sv *Supervisor) launchProcess(id int64, assembledPrompt string) error {
	if err := os.MkdirAll(sv.SocketDir, 0o755); err != nil {
		return fmt.Errorf("create socket dir: %w", err)
	}
	sockPath := filepath.Join(sv.SocketDir, fmt.Sprintf("toolserver-%s.sock", uuid.NewString()))
	l, err := net.Listen("unix", sockPath)
	if err != nil {
		return fmt.Errorf("listen on tool server socket: %w", err)
	}

	model := sv.Model
	if model == "" {
		model = sv.Runtime.DefaultModel()
	}
	req := LaunchRequest{
		NodeID:       cordmodel.RenderID(id),
		Prompt:       assembledPrompt,
		SocketPath:   sockPath,
		WorkDir:      sv.WorkDir,
		MaxBudgetUSD: sv.MaxBudgetUSD,
		Model:        model,
	}
	cmd, err := sv.Runtime.BuildCommand(req)
	if err != nil {
		l.Close()
		return fmt.Errorf("build command: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		l.Close()
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		l.Close()
		return fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		l.Close()
		return fmt.Errorf("start subprocess: %w", err)
	}

	h := &handle{nodeID: id, cmd: cmd, listener: l, done: make(chan struct{})}
	sv.mu.Lock()
	sv.handles[id] = h
	sv.mu.Unlock()

	go serveToolServer(id, l, sv.NewToolServer)
	go func() {
		h.readOutput(bufio.NewReader(stdout), bufio.NewReader(stderr))
		h.exitErr = cmd.Wait()
		close(h.done)
	}()

	sv.Log.Debugf("launched %s via %s (socket %s)", cordmodel.RenderID(id), sv.Runtime.Name(), sockPath)
	return nil
}

// Signal delivers SIGTERM to id's process, used both for cancel and
// pause. A no-op if id has no registered process.
func (sv *Supervisor) Signal(id int64) error {
	sv.mu.Lock()
	h, ok := sv.handles[id]
	sv.mu.Unlock()
	if !ok {
		return nil
	}
	h.mu.Lock()
	h.signalled = true
	h.mu.Unlock()
	if h.cmd.Process == nil {
		return nil
	}
	return h.cmd.Process.Signal(syscall.SIGTERM)
}

// Poll checks every registered process for exit and reaps it, then
// reconciles any active process whose node status changed out from under
// it (cancel/pause delivered by another agent's tool call) by signalling
// it. It is the Driver's per-tick call into the Supervisor.
func (sv *Supervisor) Poll() error {
	sv.mu.Lock()
	ids := make([]int64, 0, len(sv.handles))
	for id := range sv.handles {
		ids = append(ids, id)
	}
	sv.mu.Unlock()

	for _, id := range ids {
		sv.mu.Lock()
		h := sv.handles[id]
		sv.mu.Unlock()
		if h == nil {
			continue
		}

		select {
		case <-h.done:
			if err := sv.reap(h); err != nil {
				return fmt.Errorf("reap %s: %w", cordmodel.RenderID(id), err)
			}
			sv.mu.Lock()
			delete(sv.handles, id)
			sv.mu.Unlock()
			h.listener.Close()
		default:
			if err := sv.reconcile(h); err != nil {
				return fmt.Errorf("reconcile %s: %w", cordmodel.RenderID(id), err)
			}
		}
	}
	return nil
}

// reconcile signals a still-running process whose node has been moved to
// cancelled or paused by a tool call from another agent, so the cascading
// cancel/pause the Store already recorded actually reaches the process.
func (sv *Supervisor) reconcile(h *handle) error {
	h.mu.Lock()
	already := h.signalled
	h.mu.Unlock()
	if already {
		return nil
	}

	n, err := sv.Store.GetNode(h.nodeID)
	if err != nil {
		return err
	}
	if n.Status == cordmodel.StatusCancelled || n.Status == cordmodel.StatusPaused {
		return sv.Signal(h.nodeID)
	}
	return nil
}

// reap settles the store state for a process that has exited: an explicit
// complete() from the agent wins; a clean exit with non-empty stdout
// completes implicitly with the stdout as result; anything else fails the
// node with a logged diagnostic.
func (sv *Supervisor) reap(h *handle) error {
	n, err := sv.Store.GetNode(h.nodeID)
	if err != nil {
		return err
	}

	if n.Status == cordmodel.StatusComplete {
		return nil
	}
	if n.Status == cordmodel.StatusCancelled || n.Status == cordmodel.StatusPaused {
		// A signal was already delivered and the Store already reflects the
		// outcome; the exit just confirms it.
		return nil
	}

	exitCode := 0
	if h.exitErr != nil {
		exitCode = 1
	}

	if exitCode == 0 {
		out := h.stdoutString()
		if out != "" {
			result := out
			if err := sv.Store.Transition(h.nodeID, cordmodel.StatusActive, cordmodel.StatusComplete, &result); err != nil && err != store.ErrConflict {
				return fmt.Errorf("implicit completion: %w", err)
			}
			sv.Log.Debugf("%s completed implicitly via stdout (%d bytes)", cordmodel.RenderID(h.nodeID), len(out))
			return nil
		}
	}

	sv.Log.Debugf("%s failed: exit_code=%d stderr=%q", cordmodel.RenderID(h.nodeID), exitCode, h.stderrString())
	if err := sv.Store.Transition(h.nodeID, cordmodel.StatusActive, cordmodel.StatusFailed, nil); err != nil && err != store.ErrConflict {
		return fmt.Errorf("mark failed: %w", err)
	}
	return nil
}

// CascadeCancel marks id and its whole subtree cancelled in one store
// transaction, then delivers terminate signals to whichever of them had a
// live process.
func (sv *Supervisor) CascadeCancel(id int64) error {
	wasActive, err := sv.Store.CascadeCancel(id)
	if err != nil {
		return err
	}
	for _, t := range wasActive {
		if err := sv.Signal(t); err != nil {
			sv.Log.Debugf("signal %s during cascade cancel: %v", cordmodel.RenderID(t), err)
		}
	}
	return nil
}
