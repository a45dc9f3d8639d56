package toolserver

import (
	"errors"
	"testing"

	"github.com/kimjune01/cord/internal/store"
	"github.com/kimjune01/cord/pkg/cordmodel"
)

func newTestServer(t *testing.T, agentID int64) (*Server, *store.Store) {
	t.Helper()
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return &Server{AgentID: agentID, Store: st}, st
}

func mustCreateRoot(t *testing.T, st *store.Store) int64 {
	t.Helper()
	id, err := st.CreateRoot("goal", "", cordmodel.ReturnsText)
	if err != nil {
		t.Fatalf("CreateRoot: %v", err)
	}
	if err := st.Transition(id, cordmodel.StatusPending, cordmodel.StatusActive, nil); err != nil {
		t.Fatalf("activate root: %v", err)
	}
	return id
}

func TestServer_Create(t *testing.T) {
	s, st := newTestServer(t, 0)
	rootID := mustCreateRoot(t, st)
	s.AgentID = rootID

	result, err := s.create("sub task", "do the thing", "", "task", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	m := result.(map[string]interface{})
	if m["goal"] != "sub task" {
		t.Fatalf("unexpected create result: %+v", m)
	}

	children, err := st.Children(rootID)
	if err != nil {
		t.Fatalf("Children: %v", err)
	}
	if len(children) != 1 || children[0].Returns != cordmodel.ReturnsText {
		t.Fatalf("child not created as expected: %+v", children)
	}
}

func TestServer_Create_RejectsGoalKind(t *testing.T) {
	s, st := newTestServer(t, 0)
	rootID := mustCreateRoot(t, st)
	s.AgentID = rootID

	if _, err := s.create("nope", "", "", "goal", nil); !errors.Is(err, store.ErrInvalidStatus) {
		t.Fatalf("create with kind=goal: got %v, want ErrInvalidStatus", err)
	}
}

func TestServer_Complete(t *testing.T) {
	s, st := newTestServer(t, 0)
	rootID := mustCreateRoot(t, st)
	s.AgentID = rootID

	result, err := s.complete("all done")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	m := result.(map[string]interface{})
	if m["completed"] != cordmodel.RenderID(rootID) {
		t.Fatalf("unexpected complete result: %+v", m)
	}

	n, err := st.GetNode(rootID)
	if err != nil {
		t.Fatalf("GetNode: %v", err)
	}
	if n.Status != cordmodel.StatusComplete || n.Result == nil || *n.Result != "all done" {
		t.Fatalf("unexpected node after complete: %+v", n)
	}
}

func TestServer_Complete_SecondCallIsInvalidStatus(t *testing.T) {
	s, st := newTestServer(t, 0)
	rootID := mustCreateRoot(t, st)
	s.AgentID = rootID

	if _, err := s.complete("all done"); err != nil {
		t.Fatalf("first complete: %v", err)
	}
	if _, err := s.complete("again"); !errors.Is(err, store.ErrInvalidStatus) {
		t.Fatalf("second complete: got %v, want ErrInvalidStatus", err)
	}
}

func TestServer_Stop_DeniesOutsideSubtree(t *testing.T) {
	s, st := newTestServer(t, 0)
	rootID := mustCreateRoot(t, st)

	childA, err := st.CreateChild(rootID, cordmodel.KindTask, "a", "", cordmodel.ReturnsText, nil)
	if err != nil {
		t.Fatalf("CreateChild a: %v", err)
	}
	childB, err := st.CreateChild(rootID, cordmodel.KindTask, "b", "", cordmodel.ReturnsText, nil)
	if err != nil {
		t.Fatalf("CreateChild b: %v", err)
	}

	s.AgentID = childA
	if _, err := s.stop(childB); !errors.Is(err, ErrAuthorityDenied) {
		t.Fatalf("stop on sibling: got %v, want ErrAuthorityDenied", err)
	}
}

func TestServer_Stop_DeniesSelf(t *testing.T) {
	s, st := newTestServer(t, 0)
	rootID := mustCreateRoot(t, st)
	childA, err := st.CreateChild(rootID, cordmodel.KindTask, "a", "", cordmodel.ReturnsText, nil)
	if err != nil {
		t.Fatalf("CreateChild: %v", err)
	}
	s.AgentID = childA
	if _, err := s.stop(childA); !errors.Is(err, ErrAuthorityDenied) {
		t.Fatalf("stop on self: got %v, want ErrAuthorityDenied", err)
	}
}

func TestServer_Stop_CascadesToDescendants(t *testing.T) {
	s, st := newTestServer(t, 0)
	rootID := mustCreateRoot(t, st)
	s.AgentID = rootID

	child, err := st.CreateChild(rootID, cordmodel.KindTask, "a", "", cordmodel.ReturnsText, nil)
	if err != nil {
		t.Fatalf("CreateChild: %v", err)
	}
	grandchild, err := st.CreateChild(child, cordmodel.KindTask, "b", "", cordmodel.ReturnsText, nil)
	if err != nil {
		t.Fatalf("CreateChild grandchild: %v", err)
	}

	if _, err := s.stop(child); err != nil {
		t.Fatalf("stop: %v", err)
	}

	n1, _ := st.GetNode(child)
	n2, _ := st.GetNode(grandchild)
	if n1.Status != cordmodel.StatusCancelled || n2.Status != cordmodel.StatusCancelled {
		t.Fatalf("expected cascade cancel, got %s, %s", n1.Status, n2.Status)
	}
}

func TestServer_PauseResume(t *testing.T) {
	s, st := newTestServer(t, 0)
	rootID := mustCreateRoot(t, st)
	s.AgentID = rootID

	child, err := st.CreateChild(rootID, cordmodel.KindTask, "a", "", cordmodel.ReturnsText, nil)
	if err != nil {
		t.Fatalf("CreateChild: %v", err)
	}
	if err := st.Transition(child, cordmodel.StatusPending, cordmodel.StatusActive, nil); err != nil {
		t.Fatalf("activate child: %v", err)
	}

	if _, err := s.pause(child); err != nil {
		t.Fatalf("pause: %v", err)
	}
	n, _ := st.GetNode(child)
	if n.Status != cordmodel.StatusPaused {
		t.Fatalf("expected paused, got %s", n.Status)
	}

	if _, err := s.resume(child); err != nil {
		t.Fatalf("resume: %v", err)
	}
	n, _ = st.GetNode(child)
	if n.Status != cordmodel.StatusPending {
		t.Fatalf("expected pending after resume, got %s", n.Status)
	}
}

func TestServer_Ask_DefaultsToParent(t *testing.T) {
	s, st := newTestServer(t, 0)
	rootID := mustCreateRoot(t, st)
	child, err := st.CreateChild(rootID, cordmodel.KindTask, "a", "", cordmodel.ReturnsText, nil)
	if err != nil {
		t.Fatalf("CreateChild: %v", err)
	}
	s.AgentID = child

	result, err := s.ask("what now?", "", nil, "", 0)
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	m := result.(map[string]interface{})
	idStr := m["created"].(string)

	// the new ask node's parent should be the caller's own parent, i.e. rootID
	children, err := st.Children(rootID)
	if err != nil {
		t.Fatalf("Children: %v", err)
	}
	found := false
	for _, c := range children {
		if cordmodel.RenderID(c.ID) == idStr {
			found = true
			if c.Ask == nil || c.Ask.Target != cordmodel.AskTargetParent {
				t.Fatalf("unexpected ask metadata: %+v", c.Ask)
			}
		}
	}
	if !found {
		t.Fatalf("ask node %s not created under root", idStr)
	}
}

func TestServer_Ask_RootHasNoParentToEscalateTo(t *testing.T) {
	s, st := newTestServer(t, 0)
	rootID := mustCreateRoot(t, st)
	s.AgentID = rootID

	if _, err := s.ask("anyone there?", "parent", nil, "", 0); !errors.Is(err, ErrAuthorityDenied) {
		t.Fatalf("ask from root with target=parent: got %v, want ErrAuthorityDenied", err)
	}
}

func TestToWireError_MapsSentinels(t *testing.T) {
	cases := []struct {
		err  error
		kind string
	}{
		{store.ErrNotFound, "not_found"},
		{store.ErrAlreadyExists, "already_exists"},
		{store.ErrInvalidStatus, "invalid_status"},
		{store.ErrInvalidNeeds, "invalid_needs"},
		{store.ErrConflict, "conflict"},
		{ErrAuthorityDenied, "authority_denied"},
		{errors.New("boom"), "internal"},
	}
	for _, c := range cases {
		we := toWireError(c.err)
		if we.Kind != c.kind {
			t.Errorf("toWireError(%v).Kind = %q, want %q", c.err, we.Kind, c.kind)
		}
	}
}
