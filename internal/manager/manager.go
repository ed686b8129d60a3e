// Package manager implements the round-robin coordinator: partition a
// level into per-agent subtasks, auction each goal to the lowest
// marginal_task_cost bidder among same-color agents, then drive the
// solve/broadcast loop until every agent succeeds, the round budget runs
// out, or a full pass makes no progress. searchclient.py references a
// Manager/Boss class whose source was never available alongside it, so
// the round-loop structure here was designed directly from how bdi.py's
// Agent expects to be driven, rather than ported from a concrete file.
//
// bdi.py's Solve only ever matches an inbox entry whose Requester equals
// the agent's own name, which is exactly how a stuck agent recognizes its
// own success reply coming back — it is not how a fresh SOS ever finds a
// helper in the first place. That assignment is this package's job: each
// round, every freshly broadcast SOS (Status Fail) is routed directly to
// the nearest idle same-color agent via Agent.ConsumeMessage, the same
// way the (unavailable) Python Manager/Boss must have driven it.
package manager

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"upside-down-research.com/oss/masokoban/internal/agent"
	"upside-down-research.com/oss/masokoban/internal/search"
	"upside-down-research.com/oss/masokoban/internal/sokoban"
	"upside-down-research.com/oss/masokoban/internal/telemetry"
)

// ProgressReporter receives a notification at the end of every round.
// Satisfied by *progress.Indicator; declared here so the manager need
// not know how progress is rendered.
type ProgressReporter interface {
	Round(round int)
}

// ErrRoundBudgetExhausted reports that the round loop ran out of rounds
// before every agent reached Ok with no pending helpers.
type ErrRoundBudgetExhausted struct {
	Rounds int
}

func (e *ErrRoundBudgetExhausted) Error() string {
	return fmt.Sprintf("round budget of %d exhausted before every agent succeeded", e.Rounds)
}

// ErrStalled reports a full round in which every agent ended with the same
// status and broadcast the same message as in the previous round: further
// rounds cannot make progress.
type ErrStalled struct {
	Round int
}

func (e *ErrStalled) Error() string {
	return fmt.Sprintf("no progress over a full pass at round %d", e.Round)
}

// RunSummary is the Manager's final report: the time-aligned per-agent
// action sequences plus the aggregate counters the original's run_loop
// printed (boss.nodes_explored and the round count).
type RunSummary struct {
	RunID         string
	Actions       map[sokoban.Key][]sokoban.JointAction
	NodesExplored int
	Rounds        int
	Elapsed       time.Duration
}

// Config collects the Manager's tunables and optional collaborators.
// Telemetry and Progress may be left nil; both are no-ops in that case.
// RunID is an opaque label threaded through to the summary and to
// Telemetry's push-gateway grouping key, so distinct solve invocations
// pushing to the same gateway never clobber each other's gauges.
type Config struct {
	Strategy    search.Strategy
	Governor    search.MemoryChecker
	RoundBudget int
	RunID       string
	Telemetry   *telemetry.Metrics
	Progress    ProgressReporter
}

// Manager owns one Agent per agent key and the message bus between them.
type Manager struct {
	cfg    Config
	agents map[sokoban.Key]*agent.Agent
	order  []sokoban.Key
}

// New partitions initial into one subtask per agent key, auctions every
// goal to the lowest bidder among same-color agents (ties broken by the
// lexicographically lower agent key), and constructs one Agent per key
// with its merged task.
func New(initial *sokoban.State, cfg Config) *Manager {
	tasks := seedTasks(initial)

	agents := make(map[sokoban.Key]*agent.Agent, len(tasks))
	order := make([]sokoban.Key, 0, len(tasks))
	for key, task := range tasks {
		agents[key] = agent.New(task, cfg.Strategy, cfg.Governor)
		order = append(order, key)
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	for _, goalKey := range initial.GoalKeys() {
		for _, goal := range initial.GoalsByKey(goalKey) {
			auction(initial, agents, order, goalKey, goal.Pos, goal.Color)
		}
	}

	// Every agent's task now holds its full set of won goals: freeze it
	// as the restart point a later helping assignment returns to.
	for _, a := range agents {
		a.Commit()
	}

	return &Manager{cfg: cfg, agents: agents, order: order}
}

// seedTasks builds one per-agent State containing that agent alone and
// every box in the level, with no goals yet — goals are attached by
// auction. Off-color boxes still occupy a cell and still block movement
// (State.occupantAt does not check color), they just can't be pushed or
// pulled by this agent (tryPush/tryPull require a color match) — that
// combination is exactly what lets an agent plan into a dead end and
// SOS instead of silently walking through an obstacle it never knew
// about.
func seedTasks(initial *sokoban.State) map[sokoban.Key]*sokoban.State {
	tasks := make(map[sokoban.Key]*sokoban.State, len(initial.AgentKeys()))
	for _, agentKey := range initial.AgentKeys() {
		inst := initial.AgentsByKey(agentKey)[0]
		t := sokoban.NewState(initial.Map)
		t.AddAgent(agentKey, inst.Pos, inst.Color)
		for boxKey, boxes := range initial.Boxes {
			for _, b := range boxes {
				t.AddBox(boxKey, b.Pos, b.Color)
			}
		}
		tasks[agentKey] = t
	}
	return tasks
}

// auction builds a single-goal bid task (the goal cell plus any same-key,
// same-color boxes from the level) and awards it to the agent of matching
// color with the lowest MarginalTaskCost.
func auction(initial *sokoban.State, agents map[sokoban.Key]*agent.Agent, order []sokoban.Key, goalKey sokoban.Key, pos sokoban.Position, color sokoban.Color) {
	bid := sokoban.NewState(initial.Map)
	bid.AddGoal(goalKey, pos, color)
	for _, b := range initial.Boxes[goalKey] {
		if b.Color == color {
			bid.AddBox(goalKey, b.Pos, b.Color)
		}
	}

	var winner sokoban.Key
	best := math.Inf(1)
	for _, key := range order {
		candidate := agents[key]
		if candidate.Color != color {
			continue
		}
		if cost := candidate.MarginalTaskCost(bid); cost < best {
			best = cost
			winner = key
		}
	}
	if winner == "" {
		return
	}
	_ = agents[winner].AddTask(bid)
}

// Run drives the round-robin solve/broadcast loop to completion.
func (m *Manager) Run() (*RunSummary, error) {
	start := time.Now()
	var inbox []sokoban.Message
	plans := make(map[sokoban.Key][]sokoban.JointAction, len(m.order))

	round := 0
	lastSignature := ""
	for {
		round++
		var sig strings.Builder

		for _, key := range m.order {
			a := m.agents[key]

			t0 := time.Now()
			path, msg := a.Solve(&inbox)
			elapsed := time.Since(t0)

			plans[key] = path
			if m.cfg.Telemetry != nil {
				m.cfg.Telemetry.ObserveSearch(string(a.Color), a.NodesExplored(), elapsed.Seconds())
			}
			if msg != nil {
				inbox = append(inbox, *msg)
			}
			fmt.Fprintf(&sig, "%s=%s:%s;", key, a.Status(), messageSignature(msg))
		}

		inbox = m.routeHelpRequests(inbox)

		if m.cfg.Telemetry != nil {
			m.cfg.Telemetry.ObserveRound(round)
		}
		if m.cfg.Progress != nil {
			m.cfg.Progress.Round(round)
		}

		if allOk(m.agents) {
			return m.summarize(plans, round, time.Since(start)), nil
		}
		if m.cfg.RoundBudget > 0 && round >= m.cfg.RoundBudget {
			return nil, &ErrRoundBudgetExhausted{Rounds: m.cfg.RoundBudget}
		}
		// Every agent produced exactly the same (status, broadcast) pair as
		// last round: the bus carries no new information, so every future
		// round would replay identically. Stop instead of spinning.
		signature := sig.String()
		if round > 1 && signature == lastSignature {
			return nil, &ErrStalled{Round: round}
		}
		lastSignature = signature
	}
}

// routeHelpRequests assigns every fresh SOS (Status Fail) in inbox to the
// nearest eligible idle agent by calling ConsumeMessage on it directly,
// then drops the SOS from the bus either way: a still-stuck requester
// rebroadcasts an identical one next round, so nothing is lost by not
// keeping it around. Success replies (Status Ok, carrying a Timeline)
// are left in place for their requester's own self-addressed pickup in
// Agent.Solve.
//
// A requester's SOS and its helper's success reply can land in the same
// round's batch (the helper clears IsHelping the instant it broadcasts
// success, a round before the requester notices). Without the satisfied
// check below, that freshly-idle helper would look eligible again and
// get reassigned to redo work already in flight — harmless, since it
// converges to the same answer, but wasted. Skip an SOS whose requester
// already has a success reply sitting in this same batch.
func (m *Manager) routeHelpRequests(inbox []sokoban.Message) []sokoban.Message {
	satisfied := make(map[string]bool)
	for _, msg := range inbox {
		if msg.Status == sokoban.StatusOk {
			satisfied[msg.Requester] = true
		}
	}

	kept := inbox[:0]
	for _, msg := range inbox {
		if msg.Status != sokoban.StatusFail {
			kept = append(kept, msg)
			continue
		}
		if satisfied[msg.Requester] {
			continue
		}
		if helper := m.selectHelper(msg); helper != nil {
			helper.ConsumeMessage(msg)
		}
	}
	return kept
}

// selectHelper picks the nearest agent able to answer msg: idle (Ok,
// not already helping), sharing the blocking box's color, other than
// the requester itself, and currently holding that box in its own
// belief state (every box in the level was seeded into every agent's
// task, so an eligible same-color helper always has it).
func (m *Manager) selectHelper(msg sokoban.Message) *agent.Agent {
	var winner *agent.Agent
	best := math.Inf(1)
	for _, key := range m.order {
		if string(key) == msg.Requester {
			continue
		}
		candidate := m.agents[key]
		if candidate.Color != msg.Color || candidate.Status() != sokoban.StatusOk || candidate.IsHelping() {
			continue
		}
		boxes := candidate.Task().StateData().BoxesByKey(msg.ObjectProblem)
		if len(boxes) == 0 {
			continue
		}
		if cost := float64(candidate.Pos().Manhattan(boxes[0].Pos)); cost < best {
			best = cost
			winner = candidate
		}
	}
	return winner
}

// messageSignature renders the parts of a Message that matter for
// progress detection: a repeat SOS for the same box, or a repeat success
// response with the same timeline length, carries no new information.
func messageSignature(msg *sokoban.Message) string {
	if msg == nil {
		return "nil"
	}
	return fmt.Sprintf("%s/%s/%s/%d", msg.Requester, msg.ObjectProblem, msg.Status, len(msg.Timeline))
}

// Agent returns the agent constructed for the given key, or nil if key
// was never an agent in the partitioned level.
func (m *Manager) Agent(key sokoban.Key) *agent.Agent {
	return m.agents[key]
}

func allOk(agents map[sokoban.Key]*agent.Agent) bool {
	for _, a := range agents {
		if a.Status() != sokoban.StatusOk || a.IsHelping() {
			return false
		}
	}
	return true
}

func (m *Manager) summarize(plans map[sokoban.Key][]sokoban.JointAction, rounds int, elapsed time.Duration) *RunSummary {
	nodes := 0
	for _, a := range m.agents {
		nodes += a.NodesExplored()
	}
	return &RunSummary{RunID: m.cfg.RunID, Actions: plans, NodesExplored: nodes, Rounds: rounds, Elapsed: elapsed}
}
