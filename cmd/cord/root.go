package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "cord",
	Short: "Coordinate a tree of LLM-agent subprocesses toward a goal",
	Long: `Cord runs a root goal to completion by decomposing it into a tree
of agent subprocesses that coordinate through a shared store: agents
spawn children, wait on each other's results, ask questions, and
synthesize their children's output into a final answer.`,
}

// Execute runs the root command, exiting the process with status 1 on
// any returned error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to a config file (overrides XDG/project discovery)")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(statusCmd)
}
