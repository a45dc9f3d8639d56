// Package prompt assembles the text handed to an agent subprocess at
// launch: identity, goal chain, own goal and instructions, dependency
// results, output format, and tool usage, in that fixed order.
package prompt

import (
	"fmt"
	"strings"

	"github.com/kimjune01/cord/pkg/cordmodel"
)

// Deps resolves the store reads the assembler needs without importing the
// store package directly, keeping prompt free of any SQL dependency.
type Deps interface {
	GetNode(id int64) (*cordmodel.Node, error)
	NeedsOf(id int64) ([]int64, error)
	Children(id int64) ([]*cordmodel.Node, error)
}

// Assemble builds the launch prompt for node n, given its ancestor chain
// (root first, n's parent last) already resolved by the caller.
func Assemble(deps Deps, n *cordmodel.Node, ancestors []*cordmodel.Node) (string, error) {
	var b strings.Builder

	// 1. Identity.
	fmt.Fprintf(&b, "You are node %s in a coordination tree.\n\n", cordmodel.RenderID(n.ID))

	// 2. Goal chain, nested indent tree.
	chain := append(append([]*cordmodel.Node{}, ancestors...), n)
	if len(chain) > 1 {
		b.WriteString("Goal chain:\n")
		for i, a := range chain {
			indent := strings.Repeat("  ", i)
			marker := ""
			if a.ID == n.ID {
				marker = " <- your task"
			}
			fmt.Fprintf(&b, "%s%s \"%s\"%s\n", indent, cordmodel.RenderID(a.ID), a.Goal, marker)
		}
		b.WriteString("\n")
	}

	// 3. The node's own goal.
	fmt.Fprintf(&b, "Your goal: %s\n\n", n.Goal)

	// 4. The node's own prompt.
	if n.Prompt != "" {
		b.WriteString("Your task:\n")
		b.WriteString(n.Prompt)
		b.WriteString("\n\n")
	}

	// 5. Result blocks for each satisfied need.
	needs, err := deps.NeedsOf(n.ID)
	if err != nil {
		return "", fmt.Errorf("load needs for %s: %w", cordmodel.RenderID(n.ID), err)
	}
	if len(needs) > 0 {
		b.WriteString("Results from completed dependencies:\n\n")
		for _, depID := range needs {
			dep, err := deps.GetNode(depID)
			if err != nil {
				return "", fmt.Errorf("load need %s: %w", cordmodel.RenderID(depID), err)
			}
			writeResultBlock(&b, dep)
		}
	}

	// 6. Output format instruction.
	b.WriteString(outputInstructions(n.Returns))
	b.WriteString("\n\n")

	// 7. Tool-usage instructions.
	b.WriteString(toolInstructions)

	return b.String(), nil
}

// AssembleSynthesis builds the relaunch prompt for a parent whose children
// have all reached a terminal status: section 5 is replaced by the
// children's results in ordinal order, and the call is explicitly framed
// as producing the final synthesis.
func AssembleSynthesis(deps Deps, n *cordmodel.Node) (string, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "You are node %s: \"%s\"\n\n", cordmodel.RenderID(n.ID), n.Goal)
	b.WriteString("Your child tasks have completed. Here are their results:\n\n")

	children, err := deps.Children(n.ID)
	if err != nil {
		return "", fmt.Errorf("load children for synthesis of %s: %w", cordmodel.RenderID(n.ID), err)
	}
	for _, c := range children {
		if c.Status == cordmodel.StatusComplete && c.Result != nil {
			writeResultBlock(&b, c)
		}
	}

	if n.Prompt != "" {
		b.WriteString("Original instructions:\n")
		b.WriteString(n.Prompt)
		b.WriteString("\n\n")
	}

	b.WriteString("Your decomposed children have completed; produce the final synthesis.\n\n")
	b.WriteString("IMPORTANT: when you are done, you MUST call the `complete` tool with your result.\n\n")
	b.WriteString(outputInstructions(n.Returns))
	b.WriteString("\n\n")
	b.WriteString(toolInstructions)

	return b.String(), nil
}

func writeResultBlock(b *strings.Builder, dep *cordmodel.Node) {
	fmt.Fprintf(b, "--- %s \"%s\" ---\n", cordmodel.RenderID(dep.ID), dep.Goal)
	if dep.Result != nil {
		b.WriteString(*dep.Result)
	}
	b.WriteString("\n\n")
}

const toolInstructions = `You have tools available for coordination:
- create(goal, prompt, returns, needs, kind): create a child task
- ask(question, target, options?, default?, timeout?): ask a question, routed to human, parent, or children
- complete(result): mark your task done with a result
- stop(id) / pause(id) / resume(id) / modify(id, goal?, prompt?): manage a descendant
- read_tree() / read_node(id): inspect the coordination tree

WORKFLOW:
1. Assess whether your task has independent parts.
2. If yes: create() child tasks, wire dependencies with needs, then call complete() once you have synthesized their outputs or determined none are required of you directly.
3. If no: do the work yourself, then call complete().

IMPORTANT: when you are done, you MUST call the complete tool with your result.
`

func outputInstructions(returns cordmodel.Returns) string {
	switch returns {
	case cordmodel.ReturnsText:
		return "Output your result as plain text."
	case cordmodel.ReturnsList:
		return "Output ONLY a JSON array. No markdown formatting, no explanation."
	case cordmodel.ReturnsStructured:
		return "Output ONLY valid JSON. No markdown formatting, no explanation."
	case cordmodel.ReturnsFile:
		return "Write your result to a file and output the file path."
	case cordmodel.ReturnsBoolean:
		return "Output ONLY 'true' or 'false'. No explanation."
	case cordmodel.ReturnsApproval:
		return "Output ONLY 'approved' or 'rejected'. No explanation."
	default:
		return fmt.Sprintf("Output your result (expected type: %s).", returns)
	}
}
