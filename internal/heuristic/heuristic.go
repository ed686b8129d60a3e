// Package heuristic implements the pluggable cost estimators scored onto
// search states: EasyRule, WeightedRule, GoAway, and the visibility-graph
// heuristic in visibility.go.
package heuristic

import (
	"upside-down-research.com/oss/masokoban/internal/sokoban"
)

// Heuristic scores a batch of states in place, writing H and F.
type Heuristic interface {
	Score(states []*sokoban.State)
}

func manhattan(a, b sokoban.Position) int {
	return a.Manhattan(b)
}

// EasyRule sums, per goal key, the minimum Manhattan distance from any box
// of that key to each goal (skipping already-satisfied pairs) plus the
// Manhattan distance from every same-color agent to every box of that key.
// f = g + 5h, a calibrated non-admissible weighting that trades
// optimality for speed.
type EasyRule struct{}

func (EasyRule) Score(states []*sokoban.State) {
	for _, s := range states {
		boxGoalCost, agentBoxCost := scoreCore(s, "")
		s.H = float64(boxGoalCost + agentBoxCost)
		s.F = float64(s.G) + 5*s.H
	}
}

// WeightedRule is EasyRule with the box-to-goal contribution for the
// named weight key (case-insensitive) multiplied by 10 — used after an
// SOS to bias a helper's search toward clearing a specific blocker.
type WeightedRule struct {
	Weight sokoban.Key
}

func NewWeightedRule(weight sokoban.Key) WeightedRule {
	return WeightedRule{Weight: weight}
}

func (w WeightedRule) Score(states []*sokoban.State) {
	for _, s := range states {
		boxGoalCost, agentBoxCost := scoreCore(s, w.Weight)
		s.H = float64(boxGoalCost + agentBoxCost)
		s.F = float64(s.G) + 5*s.H
	}
}

// GoAway inverts the agent-to-box term, rewarding states where an idle
// agent is far from boxes; f = 25h (no g term).
type GoAway struct{}

// GoAway deliberately scans every agent, not just same-colored ones, away
// from every box: it is meant to clear an idle agent out of the way
// regardless of whose boxes are nearby.
func (GoAway) Score(states []*sokoban.State) {
	for _, s := range states {
		agentKeys := s.AgentKeys()
		boxGoalCost := 0
		agentBoxCost := 0
		for _, key := range s.GoalKeys() {
			goals := s.GoalsByKey(key)
			boxes := s.BoxesByKey(key)
			for _, goal := range goals {
				var boxGoalCosts []int
				for _, box := range boxes {
					if manhattan(box.Pos, goal.Pos) == 0 {
						continue
					}
					for _, agentKey := range agentKeys {
						for _, agent := range s.AgentsByKey(agentKey) {
							agentBoxCost += -10 * manhattan(agent.Pos, box.Pos)
						}
					}
					boxGoalCosts = append(boxGoalCosts, manhattan(box.Pos, goal.Pos))
				}
				if len(boxGoalCosts) > 0 {
					boxGoalCost += min(boxGoalCosts)
				}
			}
		}
		s.H = float64(boxGoalCost + agentBoxCost)
		s.F = 25 * s.H
	}
}

// scoreCore computes the shared EasyRule/WeightedRule accumulation: for
// each goal key, the minimum box-to-goal distance (×10 if key matches
// weightKey, case-insensitively) summed across keys, plus the sum of
// every same-color-agent-to-box distance for boxes still needing help.
func scoreCore(s *sokoban.State, weightKey sokoban.Key) (boxGoalCost, agentBoxCost int) {
	for _, key := range s.GoalKeys() {
		goals := s.GoalsByKey(key)
		boxes := s.BoxesByKey(key)
		var agentBoxCosts []int
		for _, goal := range goals {
			var boxGoalCosts []int
			for _, box := range boxes {
				if manhattan(box.Pos, goal.Pos) == 0 {
					continue
				}
				for _, agentKey := range s.GetAgentsByColor(goal.Color) {
					for _, agent := range s.AgentsByKey(agentKey) {
						agentBoxCosts = append(agentBoxCosts, manhattan(agent.Pos, box.Pos))
					}
				}
				boxGoalCosts = append(boxGoalCosts, manhattan(box.Pos, goal.Pos))
			}
			if len(boxGoalCosts) > 0 {
				cost := min(boxGoalCosts)
				if weightKey != "" && equalFold(key, weightKey) {
					cost *= 10
				}
				boxGoalCost += cost
			}
		}
		if len(agentBoxCosts) > 0 {
			agentBoxCost += sum(agentBoxCosts)
		}
	}
	return boxGoalCost, agentBoxCost
}

func equalFold(a, b sokoban.Key) bool {
	return toLower(string(a)) == toLower(string(b))
}

func toLower(s string) string {
	out := []byte(s)
	for i, c := range out {
		if c >= 'A' && c <= 'Z' {
			out[i] = c + ('a' - 'A')
		}
	}
	return string(out)
}

func min(xs []int) int {
	m := xs[0]
	for _, x := range xs[1:] {
		if x < m {
			m = x
		}
	}
	return m
}

func sum(xs []int) int {
	total := 0
	for _, x := range xs {
		total += x
	}
	return total
}
