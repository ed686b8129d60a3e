// Package agent implements the BDI planning loop: search for a plan to an
// assigned task, broadcast an SOS when stuck, and absorb either another
// agent's committed timeline (a concurrent overlay) or another agent's
// subtask (a merged goal) between rounds. Grounded on
// original_source/multi_sokoban/bdi.py's Agent/Message classes.
package agent

import (
	"fmt"
	"math"
	"sort"

	"github.com/charmbracelet/log"

	"upside-down-research.com/oss/masokoban/internal/heuristic"
	"upside-down-research.com/oss/masokoban/internal/search"
	"upside-down-research.com/oss/masokoban/internal/sokoban"
)

// Agent holds one agent's belief state: its current task (a plain State or
// a ConcurrentState overlaying a helper's committed timeline), its BDI
// status, and the solution it last found.
type Agent struct {
	Name    sokoban.Key
	Color   sokoban.Color
	InitPos sokoban.Position

	task      sokoban.Task
	initTask  *sokoban.State
	strategy  search.Strategy
	heuristic heuristic.Heuristic
	governor  search.MemoryChecker

	status        sokoban.Status
	helping       *sokoban.Message
	savedSolution []sokoban.JointAction
	nodesExplored int
}

// New constructs an Agent from its seed task: itself plus every box in the
// level, before the Manager has auctioned any goals onto it. initTask is
// left nil until Commit is called — the Manager's auction runs against
// the live task incrementally (MarginalTaskCost must see earlier rounds'
// winning bids), so there is no complete "originally-assigned task" to
// snapshot yet.
func New(task *sokoban.State, strategy search.Strategy, governor search.MemoryChecker) *Agent {
	name := task.AgentKeys()[0]
	inst := task.AgentsByKey(name)[0]

	return &Agent{
		Name:      name,
		Color:     inst.Color,
		InitPos:   inst.Pos,
		task:      task,
		strategy:  strategy,
		heuristic: heuristic.EasyRule{},
		governor:  governor,
		status:    sokoban.StatusInit,
	}
}

// Commit snapshots the agent's current task as its originally-assigned
// one. The Manager calls this once per agent after every goal has been
// auctioned, so a later helping assignment (ConsumeMessage's become-a-
// helper branch) restarts from the agent's complete own task — including
// whatever goals it won — rather than from the bare seed or wherever
// search left off.
func (a *Agent) Commit() {
	a.initTask = a.task.StateData().Clone()
}

// Status returns the agent's current BDI state.
func (a *Agent) Status() sokoban.Status { return a.status }

// IsHelping reports whether the agent currently owes another agent a
// success response.
func (a *Agent) IsHelping() bool { return a.helping != nil }

// NodesExplored returns the cumulative node count across every search
// call this agent has made.
func (a *Agent) NodesExplored() int { return a.nodesExplored }

// Task returns the agent's current belief state, for introspection by the
// Manager and the CLI (e.g. to report which goals a bidder won).
func (a *Agent) Task() sokoban.Task { return a.task }

// Pos returns the agent's current position in its belief state, for the
// Manager's helper-selection distance comparison.
func (a *Agent) Pos() sokoban.Position {
	if list := a.task.StateData().AgentsByKey(a.Name); len(list) > 0 {
		return list[0].Pos
	}
	return a.InitPos
}

// Solve runs one BDI round: consume a matching message from inbox if the
// agent is currently stuck, search for (or reuse) a plan, and return the
// plan plus whatever message the agent wants to broadcast this round.
// inbox is mutated in place: a consumed message is deleted by its found
// index, never by using the Message value itself as an index.
func (a *Agent) Solve(inbox *[]sokoban.Message) ([]sokoban.JointAction, *sokoban.Message) {
	if a.status == sokoban.StatusOk && a.helping == nil {
		return a.savedSolution, a.Broadcast()
	}

	if len(*inbox) > 0 && a.status == sokoban.StatusFail {
		found := -1
		for i, msg := range *inbox {
			if msg.Requester == string(a.Name) {
				a.ConsumeMessage(msg)
				found = i
				break
			}
		}
		if found >= 0 {
			*inbox = append((*inbox)[:found], (*inbox)[found+1:]...)
		}
	}

	path, err := a.search()
	if err != nil {
		log.Debug("agent found no plan this round", "agent", a.Name, "reason", err)
		a.status = sokoban.StatusFail
		a.savedSolution = nil
	} else {
		a.status = sokoban.StatusOk
		a.savedSolution = path
	}
	return a.savedSolution, a.Broadcast()
}

func (a *Agent) search() ([]sokoban.JointAction, error) {
	k := search.New(a.task, a.heuristic, a.strategy)
	path, err := k.Run(a.governor)
	a.nodesExplored += k.NodesExplored()
	if err != nil {
		return nil, err
	}
	a.task = k.Leaf()
	return path, nil
}

// Broadcast returns the message this agent wants to send this round: an
// SOS if it just failed, or a success response if it owed one. A Fail
// broadcast also resets the task's explored set so next round's retry
// (likely against a changed world model) doesn't dead-end against stale
// ancestry.
func (a *Agent) Broadcast() *sokoban.Message {
	var msg *sokoban.Message
	if a.status == sokoban.StatusFail {
		m := a.sos()
		msg = &m
		a.task.ForgetExploration()
	}
	if a.helping != nil {
		m := a.sendSuccess()
		msg = &m
	}
	return msg
}

func (a *Agent) sos() sokoban.Message {
	box, color := a.identifyProblem()
	return sokoban.NewSOS(string(a.Name), box, color)
}

func (a *Agent) sendSuccess() sokoban.Message {
	timeline := a.task.BestPathTimeline(a.helping.ObjectProblem)
	msg, err := sokoban.NewSuccess(a.helping.Requester, a.helping.ObjectProblem, a.helping.Color, timeline)
	if err != nil {
		// No timeline to offer (the requested box is not in the helper's
		// task at all): restate the SOS so the requester is retried next
		// round instead of receiving a malformed Ok.
		fallback := sokoban.NewSOS(string(a.Name), a.helping.ObjectProblem, a.helping.Color)
		a.helping = nil
		return fallback
	}
	a.helping = nil
	return msg
}

// identifyProblem walks this agent's ancestry (via State.Ancestors, not
// the original's eval()-based minrep replay) looking for an off-color box
// it was ever adjacent to, and names it as the likely blocker.
func (a *Agent) identifyProblem() (sokoban.Key, sokoban.Color) {
	state := a.task.StateData()
	otherBoxes := state.OtherColorBoxes(a.Color)

	keys := make([]sokoban.Key, 0, len(otherBoxes))
	for k := range otherBoxes {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	trace := a.trackBack()
	for _, key := range keys {
		pos := otherBoxes[key]
		for _, agentPos := range trace {
			if pos.IsNeighbor(agentPos) {
				if boxes := state.BoxesByKey(key); len(boxes) > 0 {
					return key, boxes[0].Color
				}
			}
		}
	}
	return "", ""
}

// trackBack returns this agent's position at every ancestor state, oldest
// last. Replaces the original's string-eval of serialized explored-set
// snapshots with a direct Parent-pointer walk.
func (a *Agent) trackBack() []sokoban.Position {
	var trace []sokoban.Position
	for _, s := range a.task.StateData().Ancestors() {
		if list := s.AgentsByKey(a.Name); len(list) > 0 {
			trace = append(trace, list[0].Pos)
		}
	}
	return trace
}

// AddTask merges a broadcasted subtask's goal into this agent's own task.
// Returns ErrIncorrectTask if the subtask's color does not match this
// agent's color.
func (a *Agent) AddTask(task *sokoban.State) error {
	goalKeys := task.GoalKeys()
	if len(goalKeys) == 0 {
		return &sokoban.ErrIncorrectTask{Reason: "broadcasted task has no goals"}
	}
	goals := task.GoalsByKey(goalKeys[0])
	color := goals[0].Color
	if color != a.Color {
		return &sokoban.ErrIncorrectTask{Reason: fmt.Sprintf("agent %s is %s, not %s", a.Name, a.Color, color)}
	}
	for _, key := range goalKeys {
		for _, g := range task.GoalsByKey(key) {
			a.task.StateData().AddGoal(key, g.Pos, g.Color)
		}
	}
	return nil
}

// MarginalTaskCost estimates the cost of adding broadcastedTask's single
// goal to this agent's existing commitments, for the Manager's auction.
// Both the broadcasted task and this agent's own task are scored via
// scratch clones — never the caller's state or this agent's live task —
// so calling this repeatedly during an auction never perturbs search
// state shared with other bidders.
func (a *Agent) MarginalTaskCost(broadcastedTask *sokoban.State) float64 {
	goalKeys := broadcastedTask.GoalKeys()
	if len(goalKeys) == 0 {
		return math.Inf(1)
	}
	goals := broadcastedTask.GoalsByKey(goalKeys[0])
	if len(goals) == 0 {
		return math.Inf(1)
	}
	pos, color := goals[0].Pos, goals[0].Color
	if color != a.Color {
		return math.Inf(1)
	}

	solo := broadcastedTask.Clone()
	a.heuristic.Score([]*sokoban.State{solo})
	soloCost := solo.F

	joint := a.task.StateData().Clone()
	joint.AddGoal(goalKeys[0], pos, color)
	a.heuristic.Score([]*sokoban.State{joint})
	jointCost := joint.F

	return jointCost - soloCost
}

// ConsumeMessage applies an inbox message addressed to this agent: a
// success response becomes a ConcurrentState overlay of the helper's
// committed timeline, while a fresh SOS from someone else makes this
// agent the helper (it restarts from its originally-assigned task,
// reweighted toward the named blocking box).
func (a *Agent) ConsumeMessage(msg sokoban.Message) {
	if a.status == sokoban.StatusFail {
		overlay := buildOverlay(msg.Timeline, msg.ObjectProblem)
		a.task = sokoban.NewConcurrentState(a.task.StateData(), overlay)
		return
	}
	m := msg
	a.helping = &m
	a.task = a.initTask.Clone()
	a.heuristic = heuristic.NewWeightedRule(msg.ObjectProblem)
}

func buildOverlay(timeline []sokoban.TimedPos, key sokoban.Key) map[int]map[sokoban.Key]sokoban.Position {
	compressed := sokoban.CompressTimeline(timeline)
	out := make(map[int]map[sokoban.Key]sokoban.Position, len(compressed))
	for t, pos := range compressed {
		out[t] = map[sokoban.Key]sokoban.Position{key: pos}
	}
	return out
}
