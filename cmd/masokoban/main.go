package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"

	"upside-down-research.com/oss/masokoban/internal/commands"
)

var CLI struct {
	Solve    commands.SolveCommand    `cmd:"" help:"Solve a multi-agent Sokoban level" default:"withargs"`
	Validate commands.ValidateCommand `cmd:"" help:"Validate a level file's structure"`
	Doctor   commands.DoctorCommand   `cmd:"" help:"Run environment diagnostics"`
	Config   commands.ConfigCommand   `cmd:"" help:"Manage configuration"`
}

const banner = `
                    _       _
 _ __ ___   __ _ ___ ___ | | _____ | |__   __ _ _ __
| '_ ' _ \ / _' / __|/ _ \| |/ / _ \| '_ \ / _' | '_ \
| | | | | | (_| \__ \ (_) |   < (_) | |_) | (_| | | | |
|_| |_| |_|\__,_|___/\___/|_|\_\___/|_.__/ \__,_|_| |_|

Multi-Agent Sokoban Planner - BDI Coordination over Best-First Search
`

func main() {
	log.SetLevel(log.InfoLevel)

	ctx := kong.Parse(&CLI,
		kong.Name("masokoban"),
		kong.Description("masokoban - multi-agent Sokoban planner\n\nPartitions a level across BDI agents, coordinates help requests, and plans with A*/Greedy best-first search."),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: false,
			Summary: true,
		}),
	)

	if ctx.Command() == "" {
		fmt.Println(banner)
		fmt.Println("Quick start:")
		fmt.Println("  $ masokoban config init            # create a config file")
		fmt.Println("  $ masokoban doctor                 # verify the environment")
		fmt.Println("  $ masokoban validate level.lvl      # check a level's structure")
		fmt.Println("  $ masokoban solve level.lvl          # plan a level")
		fmt.Println()
		fmt.Println("Run 'masokoban --help' for all commands")
		os.Exit(0)
	}

	if err := ctx.Run(); err != nil {
		log.Error("command failed", "error", err)
		os.Exit(1)
	}
}
