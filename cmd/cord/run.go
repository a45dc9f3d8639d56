package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/kimjune01/cord/internal/config"
	"github.com/kimjune01/cord/internal/corddebug"
	"github.com/kimjune01/cord/internal/driver"
	"github.com/kimjune01/cord/internal/scheduler"
	"github.com/kimjune01/cord/internal/store"
	"github.com/kimjune01/cord/internal/supervisor"
	"github.com/kimjune01/cord/internal/toolserver"
	"github.com/kimjune01/cord/internal/tui"
	"github.com/kimjune01/cord/pkg/cordmodel"
)

var (
	runBudget  float64
	runModel   string
	runRuntime string
	runTUI     bool
)

var runCmd = &cobra.Command{
	Use:   "run <goal-or-path>",
	Short: "Run a goal to completion",
	Long: `Run accepts a goal either as a literal string argument or as the
path to a file containing one, initializes a fresh store for the run,
and drives the coordination tree to completion.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().Float64Var(&runBudget, "budget", 2.0, "per-agent budget in USD, passed to the runtime")
	runCmd.Flags().StringVar(&runModel, "model", "", "model name override, passed to the runtime")
	runCmd.Flags().StringVar(&runRuntime, "runtime", "", "agent runtime to use ("+joinRuntimeNames()+", or one declared in the runtime definitions file)")
	runCmd.Flags().BoolVar(&runTUI, "tui", false, "show a live-updating terminal view of the tree instead of printing it to stderr each tick")
}

func joinRuntimeNames() string {
	names := supervisor.RuntimeNames()
	out := ""
	for i, n := range names {
		if i > 0 {
			out += ", "
		}
		out += n
	}
	return out
}

func runRun(cmd *cobra.Command, args []string) error {
	goal, err := resolveGoal(args[0])
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if runModel != "" {
		cfg.Runtime.Model = runModel
	}
	if runRuntime != "" {
		cfg.Runtime.Name = runRuntime
	}
	if cmd.Flags().Changed("budget") {
		cfg.Runtime.MaxBudgetUSD = runBudget
	}
	if runTUI {
		cfg.Driver.TUI = true
	}

	defs, err := config.LoadRuntimeDefinitions(cfg.Runtime.DefinitionsFile)
	if err != nil {
		return err
	}
	adapter, err := supervisor.NewAdapter(cfg.Runtime.Name, defs)
	if err != nil {
		return err
	}
	if err := checkRuntimeBinary(adapter); err != nil {
		return err
	}

	runDir, err := os.MkdirTemp("", "cord-run-*")
	if err != nil {
		return fmt.Errorf("create run directory: %w", err)
	}

	dbPath := cfg.Store.Path
	if dbPath == "" {
		dbPath = filepath.Join(runDir, "cord.db")
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	log := corddebug.ForRun(runDir)
	defer log.Close()

	workDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	human := driver.NewHumanStation(st, filepath.Join(runDir, "answers"), log.Named("human"))

	sup := supervisor.New(st, adapter, filepath.Join(runDir, "sockets"), workDir, cfg.Runtime.Model, cfg.Runtime.MaxBudgetUSD,
		func(agentID int64) *toolserver.Server {
			return &toolserver.Server{AgentID: agentID, Store: st, Log: log.Named("toolserver").Agent(agentID)}
		}, log.Named("supervisor"))
	sup.MaxAgents = cfg.Scheduler.MaxAgents

	sched := scheduler.New(st, sup, human, cfg.Scheduler.MaxAgents, log.Named("scheduler"))

	d := driver.New(st, sched, sup, driver.Options{
		Goal:       goal,
		Returns:    cordmodel.ReturnsText,
		TickPeriod: cfg.Scheduler.TickPeriod,
		Log:        log.Named("driver"),
		ShowTree:   !cfg.Driver.TUI,
	})

	if cfg.Driver.TUI {
		err = runWithTUI(d, st, cfg.Scheduler.TickPeriod)
	} else {
		err = d.Run()
	}
	if err != nil {
		return err
	}
	return printRootOutcome(st)
}

// printRootOutcome prints the root's result to stdout and maps a failed
// or cancelled root to a non-zero exit.
func printRootOutcome(st *store.Store) error {
	root, err := st.Root()
	if err != nil {
		return fmt.Errorf("read root outcome: %w", err)
	}
	if root.Status == cordmodel.StatusComplete {
		if root.Result != nil {
			fmt.Println(*root.Result)
		}
		return nil
	}
	return fmt.Errorf("root goal %s", root.Status)
}

// runWithTUI drives the run loop in the background while a bubbletea
// program polls the same store in the foreground. If the TUI fails its
// error is returned at once; otherwise, once the TUI exits, it waits for
// the loop and returns the loop's error (both observe the same
// Terminated() condition, so they normally finish within a tick).
func runWithTUI(d *driver.Driver, st *store.Store, tickPeriod time.Duration) error {
	loopErr := make(chan error, 1)
	go func() { loopErr <- d.Run() }()

	program := tea.NewProgram(tui.New(st, tickPeriod))
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}

	return <-loopErr
}

// resolveGoal treats arg as a path if it names an existing file,
// otherwise as the literal goal text.
func resolveGoal(arg string) (string, error) {
	if info, err := os.Stat(arg); err == nil && !info.IsDir() {
		data, err := os.ReadFile(arg)
		if err != nil {
			return "", fmt.Errorf("read goal file %s: %w", arg, err)
		}
		return string(data), nil
	}
	return arg, nil
}

func loadConfig() (*config.Config, error) {
	if cfgPath != "" {
		return config.LoadFromPath(cfgPath)
	}
	return config.Load()
}

// checkRuntimeBinary verifies the adapter's CLI is on PATH before any
// launch is attempted.
func checkRuntimeBinary(adapter supervisor.Adapter) error {
	if _, err := exec.LookPath(adapter.Binary()); err != nil {
		return fmt.Errorf("%s CLI not found in PATH; install it before running with --runtime %s", adapter.Binary(), adapter.Name())
	}
	return nil
}
