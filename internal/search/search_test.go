package search

import (
	"testing"

	"upside-down-research.com/oss/masokoban/internal/heuristic"
	"upside-down-research.com/oss/masokoban/internal/sokoban"
)

type okGovernor struct{}

func (okGovernor) Check() error { return nil }

func corridorMap() *sokoban.Map {
	return sokoban.NewMap([]string{
		"+++++++",
		"+     +",
		"+++++++",
	})
}

func TestKernelSolvesTrivialMove(t *testing.T) {
	m := corridorMap()
	s := sokoban.NewState(m)
	s.AddAgent("0", sokoban.Position{Row: 1, Col: 1}, "blue")
	s.AddBox("A", sokoban.Position{Row: 1, Col: 2}, "blue")
	s.AddGoal("A", sokoban.Position{Row: 1, Col: 2}, "blue")

	k := New(s, heuristic.EasyRule{}, AStar)
	path, err := k.Run(okGovernor{})
	if err != nil {
		t.Fatalf("expected a plan, got error %v", err)
	}
	if len(path) != 0 {
		t.Errorf("expected an already-satisfied goal to need no actions, got %v", path)
	}
}

func TestKernelSolvesSinglePush(t *testing.T) {
	m := corridorMap()
	s := sokoban.NewState(m)
	s.AddAgent("0", sokoban.Position{Row: 1, Col: 1}, "blue")
	s.AddBox("A", sokoban.Position{Row: 1, Col: 2}, "blue")
	s.AddGoal("A", sokoban.Position{Row: 1, Col: 3}, "blue")

	k := New(s, heuristic.EasyRule{}, AStar)
	path, err := k.Run(okGovernor{})
	if err != nil {
		t.Fatalf("expected a plan, got error %v", err)
	}
	if len(path) == 0 {
		t.Fatal("expected at least one action to push the box onto its goal")
	}
	last := path[len(path)-1]
	if last.Kind != sokoban.ActionPush {
		t.Errorf("expected the final action to be a push, got %v", last)
	}
}

func TestKernelReturnsErrNoPlanWhenUnsolvable(t *testing.T) {
	// Two free pockets, col1 and col3, separated by a wall at col2: the
	// goal cell is never reachable from the agent/box's starting pocket.
	m := sokoban.NewMap([]string{
		"+++++",
		"+ + +",
		"+++++",
	})
	s := sokoban.NewState(m)
	s.AddAgent("0", sokoban.Position{Row: 1, Col: 1}, "blue")
	s.AddBox("A", sokoban.Position{Row: 1, Col: 1}, "blue")
	s.AddGoal("A", sokoban.Position{Row: 1, Col: 3}, "blue")

	k := New(s, heuristic.EasyRule{}, Greedy)
	_, err := k.Run(okGovernor{})
	if err == nil {
		t.Fatal("expected ErrNoPlan for a box and agent sharing a starting cell")
	}
	if _, ok := err.(*sokoban.ErrNoPlan); !ok {
		t.Errorf("expected *sokoban.ErrNoPlan, got %T", err)
	}
}

type breachingGovernor struct{}

func (breachingGovernor) Check() error {
	return &sokoban.ErrResourceLimit{UsageMB: 9999, CeilingMB: 1}
}

func TestKernelAbortsOnMemoryCeiling(t *testing.T) {
	m := corridorMap()
	s := sokoban.NewState(m)
	s.AddAgent("0", sokoban.Position{Row: 1, Col: 1}, "blue")
	s.AddBox("A", sokoban.Position{Row: 1, Col: 2}, "blue")
	s.AddGoal("A", sokoban.Position{Row: 1, Col: 5}, "blue")

	k := New(s, heuristic.EasyRule{}, AStar)
	_, err := k.Run(breachingGovernor{})
	if err == nil {
		t.Fatal("expected an immediate ErrResourceLimit")
	}
	if _, ok := err.(*sokoban.ErrResourceLimit); !ok {
		t.Errorf("expected *sokoban.ErrResourceLimit, got %T", err)
	}
}

func TestGreedyOrdersByHAlone(t *testing.T) {
	m := corridorMap()
	s := sokoban.NewState(m)
	s.AddAgent("0", sokoban.Position{Row: 1, Col: 1}, "blue")
	s.AddBox("A", sokoban.Position{Row: 1, Col: 2}, "blue")
	s.AddGoal("A", sokoban.Position{Row: 1, Col: 4}, "blue")

	k := New(s, heuristic.EasyRule{}, Greedy)
	k.ExploreAndAdd()
	if k.FrontierEmpty() {
		t.Fatal("expected successors after one expansion")
	}
	popped := k.GetAndRemoveLeaf()
	got := popped.StateData().H
	// Every remaining frontier entry's own h must be >= the popped node's h,
	// since Greedy orders strictly by h.
	for k.frontier.Len() > 0 {
		next := heapPopForTest(&k.frontier)
		if next.task.StateData().H < got {
			t.Errorf("greedy ordering violated: popped h=%v then found smaller h=%v later", got, next.task.StateData().H)
		}
	}
}

func heapPopForTest(pq *priorityQueue) *frontierEntry {
	old := *pq
	n := len(old)
	entry := old[n-1]
	*pq = old[:n-1]
	return entry
}
