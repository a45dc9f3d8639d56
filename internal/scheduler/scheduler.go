// Package scheduler implements Cord's stateless tick algorithm: on each
// call to Tick it reads the ready set from the Store, hands ready nodes
// to the Supervisor in ascending-id order, and triggers synthesis
// relaunches for parents whose children have all gone terminal. It holds
// no state of its own between ticks beyond the concurrency cap.
package scheduler

import (
	"fmt"

	"github.com/kimjune01/cord/internal/corddebug"
	"github.com/kimjune01/cord/internal/prompt"
	"github.com/kimjune01/cord/internal/store"
	"github.com/kimjune01/cord/pkg/cordmodel"
)

// Launcher starts an agent subprocess for a node, performing the
// pending -> active transition itself before the process exists. It is
// satisfied by *supervisor.Supervisor.
type Launcher interface {
	Launch(id int64, assembledPrompt string) error
	ActiveCount() int
}

// HumanAsker delivers an ask(target=human) node to the Driver's
// human-input channel without launching a subprocess.
type HumanAsker interface {
	Deliver(n *cordmodel.Node) error
}

// Scheduler runs one tick of the launch/synthesis algorithm against a
// Store, a Launcher, and a HumanAsker.
type Scheduler struct {
	Store     *store.Store
	Launcher  Launcher
	HumanAsk  HumanAsker
	MaxAgents int
	Log       *corddebug.Logger
}

// New constructs a Scheduler with the given global concurrency cap.
func New(st *store.Store, launcher Launcher, humanAsk HumanAsker, maxAgents int, log *corddebug.Logger) *Scheduler {
	return &Scheduler{Store: st, Launcher: launcher, HumanAsk: humanAsk, MaxAgents: maxAgents, Log: log}
}

// Tick runs one iteration: launch what's ready, trigger due syntheses,
// and report whether the run has terminated.
func (s *Scheduler) Tick() (done bool, err error) {
	if err := s.launchReady(); err != nil {
		return false, fmt.Errorf("launch ready nodes: %w", err)
	}
	if err := s.triggerSynthesis(); err != nil {
		return false, fmt.Errorf("trigger synthesis: %w", err)
	}
	return s.Store.Terminated()
}

func (s *Scheduler) launchReady() error {
	ready, err := s.Store.ReadySet()
	if err != nil {
		return fmt.Errorf("read ready set: %w", err)
	}

	for _, id := range ready {
		if s.Launcher.ActiveCount() >= s.MaxAgents {
			s.Log.Debugf("concurrency cap %d reached, deferring remaining ready nodes", s.MaxAgents)
			return nil
		}

		n, err := s.Store.GetNode(id)
		if err != nil {
			return fmt.Errorf("load ready node %s: %w", cordmodel.RenderID(id), err)
		}

		if n.Kind == cordmodel.KindAsk && n.Ask != nil && n.Ask.Target == cordmodel.AskTargetHuman {
			if err := s.Store.Transition(id, cordmodel.StatusPending, cordmodel.StatusActive, nil); err != nil {
				return fmt.Errorf("activate human ask %s: %w", cordmodel.RenderID(id), err)
			}
			if err := s.HumanAsk.Deliver(n); err != nil {
				return fmt.Errorf("deliver human ask %s: %w", cordmodel.RenderID(id), err)
			}
			continue
		}

		p, err := s.assemble(n)
		if err != nil {
			return err
		}
		if err := s.Launcher.Launch(id, p); err != nil {
			return fmt.Errorf("launch %s: %w", cordmodel.RenderID(id), err)
		}
	}
	return nil
}

func (s *Scheduler) triggerSynthesis() error {
	candidates, err := s.Store.SynthesisCandidates()
	if err != nil {
		return fmt.Errorf("read synthesis candidates: %w", err)
	}

	for _, id := range candidates {
		if s.Launcher.ActiveCount() >= s.MaxAgents {
			s.Log.Debugf("concurrency cap %d reached, deferring synthesis candidates", s.MaxAgents)
			return nil
		}

		if err := s.Store.PrepareSynthesis(id); err != nil {
			if err == store.ErrConflict || err == store.ErrInvalidStatus {
				// Another tick (or a concurrent caller) already moved this
				// node on; skip rather than fail the whole tick.
				continue
			}
			return fmt.Errorf("prepare synthesis for %s: %w", cordmodel.RenderID(id), err)
		}

		n, err := s.Store.GetNode(id)
		if err != nil {
			return fmt.Errorf("load synthesis node %s: %w", cordmodel.RenderID(id), err)
		}
		p, err := prompt.AssembleSynthesis(s.Store, n)
		if err != nil {
			return fmt.Errorf("assemble synthesis prompt for %s: %w", cordmodel.RenderID(id), err)
		}
		if err := s.Launcher.Launch(id, p); err != nil {
			return fmt.Errorf("launch synthesis %s: %w", cordmodel.RenderID(id), err)
		}
		s.Log.Debugf("synthesis relaunch scheduled for %s", cordmodel.RenderID(id))
	}
	return nil
}

func (s *Scheduler) assemble(n *cordmodel.Node) (string, error) {
	ancestors, err := s.Store.AncestorChain(n.ID)
	if err != nil {
		return "", fmt.Errorf("load ancestor chain for %s: %w", cordmodel.RenderID(n.ID), err)
	}
	p, err := prompt.Assemble(s.Store, n, ancestors)
	if err != nil {
		return "", fmt.Errorf("assemble prompt for %s: %w", cordmodel.RenderID(n.ID), err)
	}
	return p, nil
}
