package driver

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/kimjune01/cord/pkg/cordmodel"
)

// statusStyle maps a status to a display color and icon.
func statusStyle(s cordmodel.Status) (*color.Color, string) {
	switch s {
	case cordmodel.StatusPending:
		return color.New(color.FgHiBlack), "○"
	case cordmodel.StatusActive:
		return color.New(color.FgBlue), "●"
	case cordmodel.StatusComplete:
		return color.New(color.FgGreen), "✓"
	case cordmodel.StatusFailed:
		return color.New(color.FgRed), "✗"
	case cordmodel.StatusCancelled:
		return color.New(color.FgYellow), "⊘"
	case cordmodel.StatusPaused:
		return color.New(color.FgCyan), "‖"
	default:
		return color.New(color.Reset), "?"
	}
}

// RenderTree renders the full coordination tree as a colored, indented
// listing.
func RenderTree(tree *cordmodel.Tree) string {
	var b strings.Builder
	bold := color.New(color.Bold)
	b.WriteString(bold.Sprint("cord run"))
	b.WriteString("\n\n")
	renderNode(&b, tree, 0)
	return b.String()
}

func renderNode(b *strings.Builder, n *cordmodel.Tree, depth int) {
	prefix := strings.Repeat("  ", depth)
	c, icon := statusStyle(n.Status)
	dim := color.New(color.Faint)
	bold := color.New(color.Bold)

	fmt.Fprintf(b, "%s%s %s %s %s %s\n",
		prefix,
		c.Sprint(icon),
		bold.Sprint(cordmodel.RenderID(n.ID)),
		c.Sprintf("[%s]", n.Status),
		dim.Sprint(strings.ToUpper(string(n.Kind))),
		n.Goal,
	)

	if len(n.BlockedBy) > 0 {
		ids := make([]string, len(n.BlockedBy))
		for i, id := range n.BlockedBy {
			ids[i] = cordmodel.RenderID(id)
		}
		fmt.Fprintf(b, "%s  %s\n", prefix, dim.Sprintf("blocked-by: %s", strings.Join(ids, ", ")))
	}

	if n.Result != nil {
		preview := *n.Result
		preview = strings.ReplaceAll(preview, "\n", " ")
		if len(preview) > 60 {
			preview = preview[:60] + "..."
		}
		fmt.Fprintf(b, "%s  %s\n", prefix, dim.Sprintf("result: %s", preview))
	}

	for _, c := range n.Children {
		renderNode(b, c, depth+1)
	}
}
