// Package toolserver implements Cord's per-agent tool server: a
// length-framed JSON-RPC endpoint, bound to a single agent id, that
// translates tool invocations into Store transactions after enforcing
// authority. One instance is created per active agent process; the
// agent's identity is a property of which server it connected to, not a
// parameter it supplies.
package toolserver

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/kimjune01/cord/internal/corddebug"
	"github.com/kimjune01/cord/internal/store"
	"github.com/kimjune01/cord/pkg/cordmodel"
)

// Server is a single agent's tool-server instance: every inbound call is
// evaluated from AgentID's perspective. ask(target=human) nodes are only
// created here, not delivered anywhere; the Scheduler is the one that
// notices a pending human ask and hands it to the Driver's HumanAsker.
type Server struct {
	AgentID int64
	Store   *store.Store
	Log     *corddebug.Logger
}

// Serve reads framed requests from r and writes framed responses to w
// until r is exhausted or yields an unrecoverable framing error. Each
// request is handled synchronously and completes without waiting on any
// other agent.
func (s *Server) Serve(r io.Reader, w io.Writer) error {
	fr := newFrameReader(r)
	for {
		body, err := fr.ReadMessage()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read request: %w", err)
		}

		var req Request
		if err := json.Unmarshal(body, &req); err != nil {
			return fmt.Errorf("decode request: %w", err)
		}

		resp := s.handle(req)
		payload, err := json.Marshal(resp)
		if err != nil {
			return fmt.Errorf("encode response: %w", err)
		}
		if err := writeMessage(w, payload); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
	}
}

func (s *Server) handle(req Request) Response {
	s.Log.Debugf("tool=%s", req.Tool)

	result, err := s.dispatch(req.Tool, req.Params)
	if err != nil {
		s.Log.Debugf("tool=%s error=%v", req.Tool, err)
		return Response{ID: req.ID, Error: toWireError(err)}
	}
	return Response{ID: req.ID, Result: result}
}

func (s *Server) dispatch(tool string, params json.RawMessage) (interface{}, error) {
	switch tool {
	case "read_tree":
		return s.readTree()
	case "read_node":
		var p struct {
			ID int64 `json:"id"`
		}
		if err := unmarshalParams(params, &p); err != nil {
			return nil, err
		}
		return s.readNode(p.ID)
	case "create":
		var p struct {
			Goal    string  `json:"goal"`
			Prompt  string  `json:"prompt"`
			Returns string  `json:"returns"`
			Needs   []int64 `json:"needs"`
			Kind    string  `json:"kind"`
		}
		if err := unmarshalParams(params, &p); err != nil {
			return nil, err
		}
		return s.create(p.Goal, p.Prompt, p.Returns, p.Kind, p.Needs)
	case "complete":
		var p struct {
			Result string `json:"result"`
		}
		if err := unmarshalParams(params, &p); err != nil {
			return nil, err
		}
		return s.complete(p.Result)
	case "stop":
		var p struct {
			ID int64 `json:"id"`
		}
		if err := unmarshalParams(params, &p); err != nil {
			return nil, err
		}
		return s.stop(p.ID)
	case "pause":
		var p struct {
			ID int64 `json:"id"`
		}
		if err := unmarshalParams(params, &p); err != nil {
			return nil, err
		}
		return s.pause(p.ID)
	case "resume":
		var p struct {
			ID int64 `json:"id"`
		}
		if err := unmarshalParams(params, &p); err != nil {
			return nil, err
		}
		return s.resume(p.ID)
	case "modify":
		var p struct {
			ID     int64   `json:"id"`
			Goal   *string `json:"goal"`
			Prompt *string `json:"prompt"`
		}
		if err := unmarshalParams(params, &p); err != nil {
			return nil, err
		}
		return s.modify(p.ID, p.Goal, p.Prompt)
	case "ask":
		var p struct {
			Question string   `json:"question"`
			Target   string   `json:"target"`
			Options  []string `json:"options"`
			Default  string   `json:"default"`
			Timeout  int      `json:"timeout"`
		}
		if err := unmarshalParams(params, &p); err != nil {
			return nil, err
		}
		return s.ask(p.Question, p.Target, p.Options, p.Default, p.Timeout)
	default:
		return nil, fmt.Errorf("%w: unknown tool %q", store.ErrNotFound, tool)
	}
}

func unmarshalParams(raw json.RawMessage, dst interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("invalid parameters: %w", err)
	}
	return nil
}

func (s *Server) readTree() (interface{}, error) {
	return s.Store.Snapshot()
}

func (s *Server) readNode(id int64) (interface{}, error) {
	return s.Store.GetNode(id)
}

func (s *Server) create(goal, prompt, returns, kind string, needs []int64) (interface{}, error) {
	if returns == "" {
		returns = string(cordmodel.ReturnsText)
	}
	k := cordmodel.Kind(kind)
	if !k.Valid() || k == cordmodel.KindGoal {
		return nil, fmt.Errorf("%w: kind must be task, serial, or ask", store.ErrInvalidStatus)
	}
	id, err := s.Store.CreateChild(s.AgentID, k, goal, prompt, cordmodel.Returns(returns), needs)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"created": cordmodel.RenderID(id), "goal": goal}, nil
}

func (s *Server) complete(result string) (interface{}, error) {
	n, err := s.Store.GetNode(s.AgentID)
	if err != nil {
		return nil, err
	}
	if n.Status == cordmodel.StatusComplete {
		return nil, fmt.Errorf("%w: %s is already complete", store.ErrInvalidStatus, cordmodel.RenderID(s.AgentID))
	}
	if err := s.Store.Transition(s.AgentID, cordmodel.StatusActive, cordmodel.StatusComplete, &result); err != nil {
		return nil, err
	}
	return map[string]interface{}{"completed": cordmodel.RenderID(s.AgentID)}, nil
}

// inSubtree reports whether target is a strict descendant of s.AgentID,
// returning ErrAuthorityDenied otherwise. It never silently widens scope.
func (s *Server) inSubtree(target int64) error {
	if target == s.AgentID {
		return fmt.Errorf("%w: caller %s may not target itself", ErrAuthorityDenied, cordmodel.RenderID(s.AgentID))
	}
	descendants, err := s.Store.Subtree(s.AgentID)
	if err != nil {
		return err
	}
	if !slices.Contains(descendants, target) {
		return fmt.Errorf("%w: %s is not in %s's subtree", ErrAuthorityDenied, cordmodel.RenderID(target), cordmodel.RenderID(s.AgentID))
	}
	return nil
}

// stop cancels id and its whole subtree in one store transaction. Signal
// delivery to any live processes is the Supervisor's job; it observes the
// cancelled statuses on its next poll. Idempotent on already-terminal
// targets.
func (s *Server) stop(id int64) (interface{}, error) {
	if err := s.inSubtree(id); err != nil {
		return nil, err
	}
	if _, err := s.Store.CascadeCancel(id); err != nil {
		return nil, err
	}
	return map[string]interface{}{"cancelled": cordmodel.RenderID(id)}, nil
}

func (s *Server) pause(id int64) (interface{}, error) {
	if err := s.inSubtree(id); err != nil {
		return nil, err
	}
	node, err := s.Store.GetNode(id)
	if err != nil {
		return nil, err
	}
	if node.Status != cordmodel.StatusActive {
		return nil, fmt.Errorf("%w: %s is %s, not active", store.ErrInvalidStatus, cordmodel.RenderID(id), node.Status)
	}
	if err := s.Store.Transition(id, cordmodel.StatusActive, cordmodel.StatusPaused, nil); err != nil {
		return nil, err
	}
	return map[string]interface{}{"paused": cordmodel.RenderID(id)}, nil
}

func (s *Server) resume(id int64) (interface{}, error) {
	if err := s.inSubtree(id); err != nil {
		return nil, err
	}
	node, err := s.Store.GetNode(id)
	if err != nil {
		return nil, err
	}
	if node.Status != cordmodel.StatusPaused {
		return nil, fmt.Errorf("%w: %s is %s, not paused", store.ErrInvalidStatus, cordmodel.RenderID(id), node.Status)
	}
	if err := s.Store.Transition(id, cordmodel.StatusPaused, cordmodel.StatusPending, nil); err != nil {
		return nil, err
	}
	return map[string]interface{}{"resumed": cordmodel.RenderID(id)}, nil
}

func (s *Server) modify(id int64, goal, prompt *string) (interface{}, error) {
	if err := s.inSubtree(id); err != nil {
		return nil, err
	}
	if goal == nil && prompt == nil {
		return nil, fmt.Errorf("%w: provide at least one of goal or prompt", store.ErrInvalidStatus)
	}
	if err := s.Store.Modify(id, goal, prompt); err != nil {
		return nil, err
	}
	updated, err := s.Store.GetNode(id)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"modified": cordmodel.RenderID(id), "goal": updated.Goal}, nil
}

func (s *Server) ask(question, target string, options []string, def string, timeoutSeconds int) (interface{}, error) {
	t := cordmodel.AskTarget(target)
	if target == "" {
		t = cordmodel.AskTargetParent
	}
	if !t.Valid() {
		return nil, fmt.Errorf("%w: target must be human, parent, or children", store.ErrInvalidStatus)
	}

	parent := s.AgentID
	if t == cordmodel.AskTargetParent {
		node, err := s.Store.GetNode(s.AgentID)
		if err != nil {
			return nil, err
		}
		if node.ParentID == nil {
			return nil, fmt.Errorf("%w: %s has no parent to escalate to", ErrAuthorityDenied, cordmodel.RenderID(s.AgentID))
		}
		parent = *node.ParentID
	}

	id, err := s.Store.CreateAsk(parent, question, cordmodel.AskMeta{
		Target:         t,
		Options:        options,
		Default:        def,
		TimeoutSeconds: timeoutSeconds,
	})
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"created": cordmodel.RenderID(id), "question": question}, nil
}
