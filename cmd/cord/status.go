package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kimjune01/cord/internal/driver"
	"github.com/kimjune01/cord/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status <path-to-store>",
	Short: "Print the coordination tree of an existing run, read-only",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.Open(args[0])
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()

		tree, err := st.Snapshot()
		if err != nil {
			return fmt.Errorf("read tree: %w", err)
		}
		fmt.Print(driver.RenderTree(tree))
		return nil
	},
}
