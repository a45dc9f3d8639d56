// Package cordmodel holds the data types shared by every Cord component:
// the coordination Node, its closed enums, and dependency edges.
package cordmodel

import (
	"strconv"
	"time"
)

// Status represents the current lifecycle state of a node.
type Status string

const (
	// StatusPending indicates the node has not yet launched.
	StatusPending Status = "pending"
	// StatusActive indicates the node's agent process is running.
	StatusActive Status = "active"
	// StatusPaused indicates the node's process was terminated by a pause call.
	StatusPaused Status = "paused"
	// StatusComplete indicates the node finished with a result.
	StatusComplete Status = "complete"
	// StatusCancelled indicates the node was cancelled before or during execution.
	StatusCancelled Status = "cancelled"
	// StatusFailed indicates the node's agent could not be launched, exited
	// with a non-zero code, or exited cleanly with empty stdout and no
	// complete() call.
	StatusFailed Status = "failed"
)

// Valid returns true if s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusPaused, StatusComplete, StatusCancelled, StatusFailed:
		return true
	default:
		return false
	}
}

// Terminal returns true if s is one of the run-ending statuses.
func (s Status) Terminal() bool {
	switch s {
	case StatusComplete, StatusCancelled, StatusFailed:
		return true
	default:
		return false
	}
}

// Kind represents the role a node plays in the coordination tree.
type Kind string

const (
	// KindGoal is the single root node of a run.
	KindGoal Kind = "goal"
	// KindTask is an ordinary child node.
	KindTask Kind = "task"
	// KindSerial is a node whose children must launch one at a time in ordinal order.
	KindSerial Kind = "serial"
	// KindAsk is a node representing a question routed to a human, parent, or children.
	KindAsk Kind = "ask"
)

// Valid returns true if k is a known kind value.
func (k Kind) Valid() bool {
	switch k {
	case KindGoal, KindTask, KindSerial, KindAsk:
		return true
	default:
		return false
	}
}

// Returns declares the contract for a node's result payload. It is never
// validated against the actual result text; it only shapes the output-format
// instruction a prompt carries.
type Returns string

const (
	ReturnsText       Returns = "text"
	ReturnsBoolean    Returns = "boolean"
	ReturnsList       Returns = "list"
	ReturnsStructured Returns = "structured"
	ReturnsFile       Returns = "file"
	ReturnsApproval   Returns = "approval"
)

// Valid returns true if r is a known returns value.
func (r Returns) Valid() bool {
	switch r {
	case ReturnsText, ReturnsBoolean, ReturnsList, ReturnsStructured, ReturnsFile, ReturnsApproval:
		return true
	default:
		return false
	}
}

// AskTarget names who an ask node is routed to.
type AskTarget string

const (
	AskTargetHuman    AskTarget = "human"
	AskTargetParent   AskTarget = "parent"
	AskTargetChildren AskTarget = "children"
)

// Valid returns true if t is a known ask target.
func (t AskTarget) Valid() bool {
	switch t {
	case AskTargetHuman, AskTargetParent, AskTargetChildren:
		return true
	default:
		return false
	}
}

// Node is the fundamental entity of the coordination tree.
type Node struct {
	// ID is a dense monotonic integer id, never reused. Rendered "#N" at the edges.
	ID int64 `json:"id"`
	// Kind is one of goal (root only), task, serial, ask.
	Kind Kind `json:"kind"`
	// ParentID is the id of the parent node, or nil for the unique goal root.
	ParentID *int64 `json:"parent_id,omitempty"`
	// Ordinal is this node's position among siblings in insertion order.
	Ordinal int `json:"ordinal"`
	// Goal is a short human-readable label.
	Goal string `json:"goal"`
	// Prompt is the full instruction text, mutable while pending/paused.
	Prompt string `json:"prompt"`
	// Returns declares the expected result contract; never validated.
	Returns Returns `json:"returns"`
	// Status is the current lifecycle state.
	Status Status `json:"status"`
	// Result is written only on the active -> complete transition. A parent
	// keeps its first result while pending for synthesis, and the synthesis
	// relaunch's completion replaces it.
	Result *string `json:"result,omitempty"`
	// Synthesized is set when this node is moved back to pending for its
	// one-time synthesis relaunch.
	Synthesized bool `json:"synthesized"`
	// CreatedAt and UpdatedAt are advisory monotonic timestamps.
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Ask is non-nil only for Kind == KindAsk; it carries the extra
	// parameters the ask tool call accepted, which the base node schema
	// otherwise has nowhere to live.
	Ask *AskMeta `json:"ask,omitempty"`
}

// AskMeta carries the parameters supplied to an ask() tool call.
type AskMeta struct {
	Target  AskTarget `json:"target"`
	Options []string  `json:"options,omitempty"`
	Default string    `json:"default,omitempty"`
	// TimeoutSeconds is 0 when no timeout was requested.
	TimeoutSeconds int `json:"timeout_seconds,omitempty"`
}

// RenderID renders a node id in the "#N" form used throughout prompts and
// tool responses.
func RenderID(id int64) string {
	return "#" + strconv.FormatInt(id, 10)
}

// Tree is a node together with its recursively-attached children, used for
// the snapshot returned by read_tree.
type Tree struct {
	Node
	BlockedBy []int64 `json:"blocked_by,omitempty"`
	Children  []*Tree `json:"children,omitempty"`
}
