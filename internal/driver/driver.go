// Package driver implements Cord's top-level loop: seed the root goal,
// tick the scheduler, poll the supervisor, render the tree, sleep, and
// repeat until the scheduler reports termination.
package driver

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/kimjune01/cord/internal/corddebug"
	"github.com/kimjune01/cord/internal/scheduler"
	"github.com/kimjune01/cord/internal/store"
	"github.com/kimjune01/cord/internal/supervisor"
	"github.com/kimjune01/cord/pkg/cordmodel"
)

// Options configures a single Driver run.
type Options struct {
	Goal       string
	Returns    cordmodel.Returns
	TickPeriod time.Duration
	Out        io.Writer
	Log        *corddebug.Logger
	ShowTree   bool
}

// Driver owns a run's Store, Scheduler, and Supervisor and drives the
// tick loop until the tree is terminated.
type Driver struct {
	Store      *store.Store
	Scheduler  *scheduler.Scheduler
	Supervisor *supervisor.Supervisor
	Options    Options
}

// New constructs a Driver wired to a freshly-opened store and the given
// scheduler/supervisor pair.
func New(st *store.Store, sched *scheduler.Scheduler, sup *supervisor.Supervisor, opts Options) *Driver {
	if opts.Out == nil {
		opts.Out = os.Stderr
	}
	if opts.TickPeriod <= 0 {
		opts.TickPeriod = 2 * time.Second
	}
	return &Driver{Store: st, Scheduler: sched, Supervisor: sup, Options: opts}
}

// Run inserts the root goal node and loops scheduler-tick -> supervisor-poll
// -> render -> sleep until the scheduler reports the run terminated.
func (d *Driver) Run() error {
	rootID, err := d.Store.CreateRoot(d.Options.Goal, "", d.Options.Returns)
	if err != nil {
		return fmt.Errorf("create root goal: %w", err)
	}
	d.Options.Log.Debugf("created root %s: %q", cordmodel.RenderID(rootID), d.Options.Goal)

	// An interrupt cancels the whole tree instead of killing the engine
	// outright, so agents get SIGTERM and the store survives for
	// inspection. The loop then observes termination on its next tick.
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	defer signal.Stop(interrupt)
	go func() {
		<-interrupt
		d.Options.Log.Debugf("interrupt received, cancelling %s", cordmodel.RenderID(rootID))
		if err := d.Supervisor.CascadeCancel(rootID); err != nil {
			d.Options.Log.Debugf("cancel on interrupt: %v", err)
		}
	}()

	for {
		done, err := d.Scheduler.Tick()
		if err != nil {
			return fmt.Errorf("scheduler tick: %w", err)
		}
		if err := d.Supervisor.Poll(); err != nil {
			return fmt.Errorf("supervisor poll: %w", err)
		}

		if d.Options.ShowTree {
			if tree, err := d.Store.Snapshot(); err == nil {
				fmt.Fprint(d.Options.Out, RenderTree(tree))
			}
		}

		if done {
			fmt.Fprintln(d.Options.Out, "Done.")
			return nil
		}

		time.Sleep(d.Options.TickPeriod)
	}
}
