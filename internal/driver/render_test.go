package driver

import (
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/kimjune01/cord/pkg/cordmodel"
)

func TestRenderTree_IncludesIDsAndGoals(t *testing.T) {
	color.NoColor = true

	longResult := strings.Repeat("x", 100)
	tree := &cordmodel.Tree{
		Node: cordmodel.Node{ID: 1, Kind: cordmodel.KindGoal, Status: cordmodel.StatusActive, Goal: "root goal"},
		Children: []*cordmodel.Tree{
			{
				Node:      cordmodel.Node{ID: 2, Kind: cordmodel.KindTask, Status: cordmodel.StatusPending, Goal: "child task"},
				BlockedBy: []int64{3},
			},
			{
				Node: cordmodel.Node{ID: 3, Kind: cordmodel.KindTask, Status: cordmodel.StatusComplete, Goal: "other task", Result: &longResult},
			},
		},
	}

	out := RenderTree(tree)

	for _, want := range []string{"#1", "root goal", "#2", "child task", "blocked-by: #3", "#3", "other task", "result:"} {
		if !strings.Contains(out, want) {
			t.Errorf("RenderTree missing %q\n--- output ---\n%s", want, out)
		}
	}
	if strings.Contains(out, longResult) {
		t.Error("RenderTree should truncate long results, found full result text")
	}
}
