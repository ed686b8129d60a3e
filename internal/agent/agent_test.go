package agent

import (
	"math"
	"testing"

	"upside-down-research.com/oss/masokoban/internal/search"
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

func singleGoalTask(m *sokoban.Map, agentCol, boxCol, goalCol int) *sokoban.State {
	s := sokoban.NewState(m)
	s.AddAgent("0", sokoban.Position{Row: 1, Col: agentCol}, "blue")
	s.AddBox("A", sokoban.Position{Row: 1, Col: boxCol}, "blue")
	s.AddGoal("A", sokoban.Position{Row: 1, Col: goalCol}, "blue")
	return s
}

func TestSolveTrivialGoalIsOkImmediately(t *testing.T) {
	m := corridorMap()
	task := singleGoalTask(m, 1, 2, 2)
	a := New(task, search.AStar, okGovernor{})

	path, msg := a.Solve(&[]sokoban.Message{})
	if a.Status() != sokoban.StatusOk {
		t.Fatalf("expected status Ok, got %v", a.Status())
	}
	if len(path) != 0 {
		t.Errorf("expected an empty plan for an already-satisfied goal, got %v", path)
	}
	if msg != nil {
		t.Errorf("an Ok agent with nothing to report should not broadcast, got %v", msg)
	}
}

func TestSolveFindsPushPlan(t *testing.T) {
	m := corridorMap()
	task := singleGoalTask(m, 1, 2, 3)
	a := New(task, search.AStar, okGovernor{})

	path, _ := a.Solve(&[]sokoban.Message{})
	if a.Status() != sokoban.StatusOk {
		t.Fatalf("expected status Ok, got %v", a.Status())
	}
	if len(path) == 0 {
		t.Fatal("expected a non-empty plan to push the box onto its goal")
	}
}

func TestSolveFailsAndBroadcastsSOS(t *testing.T) {
	// Goal unreachable: box and agent share a pocket separated by a wall
	// from the goal cell.
	m := sokoban.NewMap([]string{
		"+++++",
		"+ + +",
		"+++++",
	})
	task := sokoban.NewState(m)
	task.AddAgent("0", sokoban.Position{Row: 1, Col: 1}, "blue")
	task.AddBox("A", sokoban.Position{Row: 1, Col: 1}, "blue")
	task.AddGoal("A", sokoban.Position{Row: 1, Col: 3}, "blue")

	a := New(task, search.AStar, okGovernor{})
	_, msg := a.Solve(&[]sokoban.Message{})

	if a.Status() != sokoban.StatusFail {
		t.Fatalf("expected status Fail, got %v", a.Status())
	}
	if msg == nil || msg.Status != sokoban.StatusFail {
		t.Fatalf("expected a Fail-status SOS broadcast, got %v", msg)
	}
	if msg.Requester != "0" {
		t.Errorf("expected SOS requester to be the agent's own name, got %q", msg.Requester)
	}
}

func TestMarginalTaskCostRejectsColorMismatch(t *testing.T) {
	m := corridorMap()
	task := singleGoalTask(m, 1, 2, 2)
	a := New(task, search.AStar, okGovernor{})

	other := sokoban.NewState(m)
	other.AddGoal("B", sokoban.Position{Row: 1, Col: 4}, "red")

	cost := a.MarginalTaskCost(other)
	if !math.IsInf(cost, 1) {
		t.Errorf("expected +Inf for a mismatched color, got %v", cost)
	}
}

func TestConsumeMessageBecomingHelperRestartsFromCommittedTask(t *testing.T) {
	m := corridorMap()
	task := singleGoalTask(m, 1, 2, 3)
	a := New(task, search.AStar, okGovernor{})

	// Let the agent solve its own goal first, accumulating search lineage
	// on a.task, then freeze that solved task as the restart point.
	if _, msg := a.Solve(&[]sokoban.Message{}); msg != nil {
		t.Fatalf("expected no broadcast from a freshly solved agent, got %v", msg)
	}
	a.Commit()

	sos := sokoban.NewSOS("1", "B", "blue")
	a.ConsumeMessage(sos)

	if !a.IsHelping() {
		t.Fatal("expected the agent to be marked as helping after consuming a fresh SOS")
	}
	if got := a.Task().StateData().GoalKeys(); len(got) != 1 || got[0] != "A" {
		t.Errorf("expected the restarted task to still carry the agent's own committed goal A, got %v", got)
	}
}

func TestMarginalTaskCostDoesNotMutateCallerState(t *testing.T) {
	m := corridorMap()
	task := singleGoalTask(m, 1, 2, 2)
	a := New(task, search.AStar, okGovernor{})

	broadcast := sokoban.NewState(m)
	broadcast.AddGoal("B", sokoban.Position{Row: 1, Col: 5}, "blue")
	broadcast.AddBox("B", sokoban.Position{Row: 1, Col: 4}, "blue")

	before := len(broadcast.GoalKeys())
	_ = a.MarginalTaskCost(broadcast)
	after := len(broadcast.GoalKeys())
	if before != after {
		t.Errorf("MarginalTaskCost must not mutate the caller's broadcast task, goals went from %d to %d", before, after)
	}
	if broadcast.F != 0 || broadcast.H != 0 {
		t.Errorf("MarginalTaskCost must score into a scratch copy, not the caller's state; got H=%v F=%v", broadcast.H, broadcast.F)
	}
}
