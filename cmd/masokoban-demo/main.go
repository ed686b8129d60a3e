// Command masokoban-demo runs a small, fixed two-agent level chosen to
// force the full BDI handoff: a stuck requester's SOS, the Manager
// routing it to an idle same-color helper, the helper's re-planned
// timeline, and the requester finally re-planning against that timeline
// as a concurrent overlay.
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"upside-down-research.com/oss/masokoban/internal/manager"
	"upside-down-research.com/oss/masokoban/internal/memgov"
	"upside-down-research.com/oss/masokoban/internal/search"
	"upside-down-research.com/oss/masokoban/internal/sokoban"
)

const banner = `
masokoban-demo - the SOS / helper handoff, end to end
`

func main() {
	log.SetLevel(log.InfoLevel)
	fmt.Println(banner)

	initial := buildLevel()
	fmt.Println("Level (1/0 = agents, A/B = boxes, G = box B's goal, A's goal is")
	fmt.Println("one cell right of A):")
	for _, row := range levelRows {
		fmt.Println("  " + row)
	}
	fmt.Println()

	fmt.Println("Agent 0 (blue) wants box A on its goal, but box B (red) sits")
	fmt.Println("in the only corridor connecting them. Agent 0 cannot push a red")
	fmt.Println("box, so it will fail, SOS, and wait for agent 1 (red) to clear it.")
	fmt.Println()

	runID, err := uuid.NewUUID()
	if err != nil {
		log.Error("failed to generate run id", "error", err)
		os.Exit(1)
	}
	fmt.Printf("run id: %s\n\n", runID)

	mgr := manager.New(initial, manager.Config{
		Strategy:    search.AStar,
		Governor:    memgov.New(512),
		RoundBudget: 20,
		RunID:       runID.String(),
	})

	summary, err := mgr.Run()
	if err != nil {
		log.Error("demo level did not resolve", "error", err)
		os.Exit(1)
	}

	fmt.Printf("\nResolved in %d round(s), %d node(s) explored, %s.\n\n",
		summary.Rounds, summary.NodesExplored, summary.Elapsed)

	for _, key := range []sokoban.Key{"0", "1"} {
		fmt.Printf("agent %s plan:\n", key)
		if len(summary.Actions[key]) == 0 {
			fmt.Println("  (no actions: already at its goal)")
		}
		for i, action := range summary.Actions[key] {
			fmt.Printf("  %d: %s\n", i, action)
		}
	}
}

var levelRows = []string{
	"+++++++++++++",
	"++++++1++++++",
	"+0    B  A  +",
	"++++++ ++++++",
	"++++++G++++++",
	"+++++++++++++",
}

// buildLevel lays out a single horizontal corridor (row 2) as the only
// path between agent 0 and box A, crossed at column 6 by a one-wide
// vertical shaft. Box B starts in the corridor at that crossing; agent 1
// starts above it in the shaft, with its own goal at the shaft's far end
// two cells below. Pushing box B down the shaft to its goal is exactly
// what clears the corridor for agent 0. Agent 1, the only red agent, wins
// goal B in the auction and plans that push on its own in round 1; agent
// 0's plan is made against its own view of the board, in which box B
// still sits at the crossing.
func buildLevel() *sokoban.State {
	m := sokoban.NewMap(levelRows)

	s := sokoban.NewState(m)
	s.AddAgent("0", sokoban.Position{Row: 2, Col: 1}, "blue")
	s.AddAgent("1", sokoban.Position{Row: 1, Col: 6}, "red")
	s.AddBox("A", sokoban.Position{Row: 2, Col: 9}, "blue")
	s.AddBox("B", sokoban.Position{Row: 2, Col: 6}, "red")
	s.AddGoal("A", sokoban.Position{Row: 2, Col: 10}, "blue")
	s.AddGoal("B", sokoban.Position{Row: 4, Col: 6}, "red")
	return s
}
