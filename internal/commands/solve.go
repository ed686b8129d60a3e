package commands

import (
	"fmt"
	"os"

	"github.com/google/uuid"

	"upside-down-research.com/oss/masokoban/internal/config"
	"upside-down-research.com/oss/masokoban/internal/level"
	"upside-down-research.com/oss/masokoban/internal/manager"
	"upside-down-research.com/oss/masokoban/internal/memgov"
	"upside-down-research.com/oss/masokoban/internal/progress"
	"upside-down-research.com/oss/masokoban/internal/search"
	"upside-down-research.com/oss/masokoban/internal/sokoban"
	"upside-down-research.com/oss/masokoban/internal/telemetry"
)

// SolveCommand reads a level, runs the Manager to completion, and prints
// the resulting per-agent action sequences: mutually exclusive strategy
// flags, --max-memory with a 2048MB default, exit 0 on success and 1
// when unsolvable.
type SolveCommand struct {
	LevelFile string `arg:"" name:"level" help:"Level file to solve (use '-' for stdin)" type:"path"`
	Config    string `name:"config" help:"Configuration file path" type:"path"`
	Strategy  string `name:"strategy" help:"astar, wastar, or greedy" enum:"astar,wastar,greedy" default:"astar"`
	MaxMemory float64 `name:"max-memory" help:"Memory ceiling in megabytes"`
	Rounds    int     `name:"rounds" help:"Round budget"`
	Quiet     bool    `name:"quiet" help:"Suppress round-by-round progress output"`
}

// Run executes the solve command.
func (cmd *SolveCommand) Run() error {
	cfg, err := config.LoadConfig(cmd.Config)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cmd.Strategy != "" {
		cfg.Search.Strategy = cmd.Strategy
	}
	if cmd.MaxMemory > 0 {
		cfg.Memory.CeilingMB = cmd.MaxMemory
	}
	if cmd.Rounds > 0 {
		cfg.Manager.RoundBudget = cmd.Rounds
	}

	state, err := cmd.parseLevel()
	if err != nil {
		return err
	}

	strategy := search.AStar
	if cfg.Search.Strategy == "greedy" {
		strategy = search.Greedy
	}

	runID, err := uuid.NewUUID()
	if err != nil {
		return fmt.Errorf("failed to generate run id: %w", err)
	}

	governor := memgov.New(cfg.Memory.CeilingMB)
	metrics := telemetry.NewMetrics(cfg.Telemetry.PushgatewayURL, runID.String())
	defer metrics.Publish()

	ind := progress.NewIndicator(!cmd.Quiet)
	ind.Info(fmt.Sprintf("run id: %s", runID))
	ind.Phase(fmt.Sprintf("solving %s", cmd.LevelFile))

	mgr := manager.New(state, manager.Config{
		Strategy:    strategy,
		Governor:    governor,
		RoundBudget: cfg.Manager.RoundBudget,
		RunID:       runID.String(),
		Telemetry:   metrics,
		Progress:    ind,
	})

	summary, err := mgr.Run()
	if err != nil {
		ind.Summary(false, err.Error())
		fmt.Println("Unable to solve level.")
		return err
	}

	ind.Summary(true, fmt.Sprintf("%d rounds, %d nodes explored, %s", summary.Rounds, summary.NodesExplored, summary.Elapsed))
	printActions(summary)
	return nil
}

func (cmd *SolveCommand) parseLevel() (*sokoban.State, error) {
	var f *os.File
	if cmd.LevelFile == "-" {
		f = os.Stdin
	} else {
		var err error
		f, err = os.Open(cmd.LevelFile)
		if err != nil {
			return nil, fmt.Errorf("cannot open level file: %w", err)
		}
		defer f.Close()
	}

	state, _, err := level.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse level: %w", err)
	}
	return state, nil
}

func printActions(summary *manager.RunSummary) {
	keys := make([]sokoban.Key, 0, len(summary.Actions))
	for k := range summary.Actions {
		keys = append(keys, k)
	}
	sortKeys(keys)
	for _, k := range keys {
		fmt.Printf("%s:\n", k)
		for i, action := range summary.Actions[k] {
			fmt.Printf("  %d: %s\n", i, action)
		}
	}
}

func sortKeys(keys []sokoban.Key) {
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j] < keys[j-1]; j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
}
