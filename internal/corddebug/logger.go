// Package corddebug is Cord's run-scoped debug trace: one line-oriented
// file per run, shared by every component. Each line carries the time
// elapsed since the run began and the scope of the logger that emitted
// it, so a single trace interleaves scheduler ticks, supervisor launches,
// and per-agent tool calls in causal order.
package corddebug

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Logger is a cheap scoped handle onto the run's trace. Named and Agent
// derive children that share the same backing file, and a nil *Logger
// discards everything, so components hold whatever handle they were
// given without nil checks of their own.
type Logger struct {
	trace *trace
	scope string
}

// trace is the backing file, shared by every Logger derived from the
// one Open returned.
type trace struct {
	mu    sync.Mutex
	f     *os.File
	start time.Time
}

// Open starts a fresh debug trace at path, truncating any previous one.
// An empty path yields a discard logger.
func Open(path string) (*Logger, error) {
	if path == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create debug log directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create debug log: %w", err)
	}
	tr := &trace{f: f, start: time.Now()}
	fmt.Fprintf(f, "cord debug trace, run started %s\n", tr.start.Format(time.RFC3339))
	return &Logger{trace: tr}, nil
}

// ForRun opens the conventional trace location under runDir. If the file
// cannot be created the run proceeds with a discard logger.
func ForRun(runDir string) *Logger {
	l, err := Open(filepath.Join(runDir, ".cord", "logs", "debug.log"))
	if err != nil {
		return nil
	}
	return l
}

// Named returns a child logger whose lines carry name as their scope.
func (l *Logger) Named(name string) *Logger {
	if l == nil {
		return nil
	}
	scope := name
	if l.scope != "" {
		scope = l.scope + "/" + name
	}
	return &Logger{trace: l.trace, scope: scope}
}

// Agent returns a child logger scoped to one agent node, for components
// that run an instance per agent.
func (l *Logger) Agent(id int64) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{trace: l.trace, scope: fmt.Sprintf("%s agent=%d", l.scope, id)}
}

// Debugf writes one trace line. Discards on a nil Logger.
func (l *Logger) Debugf(format string, args ...interface{}) {
	if l == nil || l.trace == nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	t := l.trace
	t.mu.Lock()
	defer t.mu.Unlock()
	if l.scope == "" {
		fmt.Fprintf(t.f, "%9.3fs  %s\n", time.Since(t.start).Seconds(), msg)
		return
	}
	fmt.Fprintf(t.f, "%9.3fs  %-18s %s\n", time.Since(t.start).Seconds(), l.scope, msg)
}

// Close closes the backing file. All loggers derived from the same Open
// share it, so only the opener should call Close.
func (l *Logger) Close() error {
	if l == nil || l.trace == nil {
		return nil
	}
	l.trace.mu.Lock()
	defer l.trace.mu.Unlock()
	return l.trace.f.Close()
}
