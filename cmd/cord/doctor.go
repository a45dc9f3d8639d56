package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kimjune01/cord/internal/config"
	"github.com/kimjune01/cord/internal/supervisor"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that the runtimes cord knows about are installed",
	RunE: func(cmd *cobra.Command, args []string) error {
		names := supervisor.RuntimeNames()

		var defs []config.RuntimeDefinition
		if cfg, err := loadConfig(); err == nil {
			if defs, err = config.LoadRuntimeDefinitions(cfg.Runtime.DefinitionsFile); err != nil {
				return err
			}
			for _, def := range defs {
				names = append(names, def.Name)
			}
		}

		anyMissing := false
		for _, name := range names {
			adapter, err := supervisor.NewAdapter(name, defs)
			if err != nil {
				fmt.Printf("✗ %s: %v\n", name, err)
				anyMissing = true
				continue
			}
			if err := checkRuntimeBinary(adapter); err != nil {
				fmt.Printf("✗ %s: %v\n", name, err)
				anyMissing = true
				continue
			}
			fmt.Printf("✓ %s: available\n", name)
		}
		if anyMissing {
			return fmt.Errorf("one or more runtimes are missing")
		}
		return nil
	},
}
