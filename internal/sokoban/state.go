package sokoban

import (
	"fmt"
	"sort"
	"strings"
)

// TimedPos is one entry of a bestPath(format=key) timeline: where an
// object will be at logical time t.
type TimedPos struct {
	T   int
	Pos Position
}

// Task is the interface the search kernel and the Agent drive: both a
// plain State and a ConcurrentState overlay satisfy it, so re-planning
// against a helper's committed timeline needs no special-casing in the
// kernel itself.
type Task interface {
	StateData() *State
	Successors() []Task
	IsGoalState() bool
	BestPath() []JointAction
	BestPathTimeline(key Key) []TimedPos
	ForgetExploration()
}

// State is an immutable-ish snapshot of the world: agents, boxes, goals,
// the shared static map, and the g/h/f costs used by the search kernel.
// Children are created during expansion and retain a Parent pointer,
// forming a DAG rooted at the level's initial state.
type State struct {
	Map *Map

	Agents map[Key][]objectPos
	Boxes  map[Key][]objectPos
	Goals  map[Key][]objectPos

	Parent *State
	Action JointAction

	G int
	H, F float64

	// Explored holds canonical hashes of this state and its ancestors,
	// used only to block re-expansion of already-visited configurations
	// along this branch. It is monotonically growing along any
	// root-to-leaf chain. It is deliberately NOT a serialized snapshot of
	// the objects themselves (see DESIGN.md) — lineage queries walk
	// Parent directly instead.
	Explored map[string]struct{}

	// T is the logical time index, advanced by one on every expanded child.
	// A ConcurrentState resets it to 0 at the start of a re-plan and looks
	// up its overlay by it.
	T int
}

// NewState creates an empty State bound to m, ready for addAgent/addBox/
// addGoal calls.
func NewState(m *Map) *State {
	return &State{
		Map:      m,
		Agents:   make(map[Key][]objectPos),
		Boxes:    make(map[Key][]objectPos),
		Goals:    make(map[Key][]objectPos),
		Explored: make(map[string]struct{}),
	}
}

// AddAgent registers an agent of the given key/color at pos.
func (s *State) AddAgent(key Key, pos Position, color Color) {
	s.Agents[key] = append(s.Agents[key], objectPos{Pos: pos, Color: color})
}

// AddBox registers a box of the given key/color at pos.
func (s *State) AddBox(key Key, pos Position, color Color) {
	s.Boxes[key] = append(s.Boxes[key], objectPos{Pos: pos, Color: color})
}

// AddGoal registers a goal cell requiring a box of the given key/color.
func (s *State) AddGoal(key Key, pos Position, color Color) {
	s.Goals[key] = append(s.Goals[key], objectPos{Pos: pos, Color: color})
}

// StateData returns the receiver: State is its own concrete representation.
func (s *State) StateData() *State { return s }

// Clone returns an independent snapshot of s: fresh agent/box/goal maps, no
// Parent/Action history, and an empty Explored set. Used to save an
// agent's originally-assigned task before search accumulates lineage on
// it, and to build scratch copies for cost estimation that must not
// perturb the caller's state.
func (s *State) Clone() *State {
	return s.clone0()
}

// ForgetExploration resets the explored set, used before a re-plan when a
// helper has changed the world model so the next search does not dead-end
// against stale ancestry.
func (s *State) ForgetExploration() {
	s.Explored = map[string]struct{}{s.Hash(): {}}
}

// Hash returns the canonical string identity of this state's mutable
// layout (agent and box positions; goals are fixed per task and excluded).
// Used both as the Explored-set member and as the duplicate-state key
// during expansion.
func (s *State) Hash() string {
	var b strings.Builder
	writeGroup(&b, "A", s.Agents)
	writeGroup(&b, "B", s.Boxes)
	return b.String()
}

func writeGroup(b *strings.Builder, tag string, group map[Key][]objectPos) {
	keys := make([]Key, 0, len(group))
	for k := range group {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	for _, k := range keys {
		positions := append([]objectPos(nil), group[k]...)
		sort.Slice(positions, func(i, j int) bool {
			if positions[i].Pos.Row != positions[j].Pos.Row {
				return positions[i].Pos.Row < positions[j].Pos.Row
			}
			return positions[i].Pos.Col < positions[j].Pos.Col
		})
		for _, p := range positions {
			fmt.Fprintf(b, "%s%s@%d,%d;", tag, k, p.Pos.Row, p.Pos.Col)
		}
	}
}

// IsGoalState reports whether every goal cell contains a box of matching
// key and color.
func (s *State) IsGoalState() bool {
	for key, goals := range s.Goals {
		boxes := s.Boxes[key]
		for _, g := range goals {
			if !anyBoxAt(boxes, g.Pos, g.Color) {
				return false
			}
		}
	}
	return true
}

func anyBoxAt(boxes []objectPos, pos Position, color Color) bool {
	for _, b := range boxes {
		if b.Pos == pos && b.Color == color {
			return true
		}
	}
	return false
}

// occupantAt reports whether any agent or box currently occupies pos.
func (s *State) occupantAt(pos Position) bool {
	for _, list := range s.Agents {
		for _, o := range list {
			if o.Pos == pos {
				return true
			}
		}
	}
	for _, list := range s.Boxes {
		for _, o := range list {
			if o.Pos == pos {
				return true
			}
		}
	}
	return false
}

// boxAt returns the key and color of the box at pos, if any.
func (s *State) boxAt(pos Position) (Key, Color, bool) {
	for key, list := range s.Boxes {
		for _, o := range list {
			if o.Pos == pos {
				return key, o.Color, true
			}
		}
	}
	return "", "", false
}

// Successors returns the legal one-agent joint actions reachable from s:
// moves in four directions, pushes, and pulls, each costing 1. A
// successor is legal iff target cells are not walls, not occupied (checked
// via blocked, which plain states never report as externally occupied),
// and color constraints are honored.
func (s *State) Successors() []Task {
	children := s.expand(func(Position) bool { return false })
	out := make([]Task, len(children))
	for i, c := range children {
		out[i] = c
	}
	return out
}

// expand is the shared successor-generation core; blocked reports whether
// an external overlay occupies pos at the state's current logical time.
// A plain State always passes a blocked that returns false; ConcurrentState
// passes one consulting its overlay.
func (s *State) expand(blocked func(Position) bool) []*State {
	var children []*State
	for agentKey, instances := range s.Agents {
		for idx, agent := range instances {
			for _, dir := range Directions {
				if c := s.tryMove(agentKey, idx, agent, dir, blocked); c != nil {
					children = append(children, c)
				}
				if c := s.tryPush(agentKey, idx, agent, dir, blocked); c != nil {
					children = append(children, c)
				}
				if c := s.tryPull(agentKey, idx, agent, dir, blocked); c != nil {
					children = append(children, c)
				}
			}
		}
	}
	return children
}

func (s *State) legalDest(pos Position, blocked func(Position) bool) bool {
	return s.Map.InBounds(pos) && !s.Map.IsWall(pos) && !s.occupantAt(pos) && !blocked(pos)
}

func (s *State) tryMove(agentKey Key, idx int, agent objectPos, dir Direction, blocked func(Position) bool) *State {
	dr, dc := dir.Delta()
	dest := Position{Row: agent.Pos.Row + dr, Col: agent.Pos.Col + dc}
	if !s.legalDest(dest, blocked) {
		return nil
	}
	child := s.clone()
	child.Agents[agentKey][idx].Pos = dest
	child.Action = JointAction{Kind: ActionMove, AgentKey: agentKey, Direction: dir}
	return s.finalize(child)
}

func (s *State) tryPush(agentKey Key, idx int, agent objectPos, dir Direction, blocked func(Position) bool) *State {
	dr, dc := dir.Delta()
	boxPos := Position{Row: agent.Pos.Row + dr, Col: agent.Pos.Col + dc}
	boxKey, boxColor, ok := s.boxAt(boxPos)
	if !ok || boxColor != agent.Color {
		return nil
	}
	beyond := Position{Row: boxPos.Row + dr, Col: boxPos.Col + dc}
	if !s.legalDest(beyond, blocked) {
		return nil
	}
	child := s.clone()
	child.Agents[agentKey][idx].Pos = boxPos
	child.moveBox(boxKey, boxPos, beyond)
	child.Action = JointAction{Kind: ActionPush, AgentKey: agentKey, Direction: dir, BoxKey: boxKey}
	return s.finalize(child)
}

func (s *State) tryPull(agentKey Key, idx int, agent objectPos, dir Direction, blocked func(Position) bool) *State {
	dr, dc := dir.Delta()
	dest := Position{Row: agent.Pos.Row + dr, Col: agent.Pos.Col + dc}
	if !s.legalDest(dest, blocked) {
		return nil
	}
	behind := Position{Row: agent.Pos.Row - dr, Col: agent.Pos.Col - dc}
	boxKey, boxColor, ok := s.boxAt(behind)
	if !ok || boxColor != agent.Color {
		return nil
	}
	child := s.clone()
	child.Agents[agentKey][idx].Pos = dest
	child.moveBox(boxKey, behind, agent.Pos)
	child.Action = JointAction{Kind: ActionPull, AgentKey: agentKey, Direction: dir, BoxKey: boxKey}
	return s.finalize(child)
}

func (s *State) moveBox(key Key, from, to Position) {
	list := s.Boxes[key]
	for i, o := range list {
		if o.Pos == from {
			list[i].Pos = to
			return
		}
	}
}

// clone makes a shallow-structural copy of s with fresh agent/box maps
// (so mutating the copy never perturbs s or its other children), sharing
// the immutable Map and Goals.
func (s *State) clone() *State {
	c := &State{
		Map:    s.Map,
		Agents: cloneGroup(s.Agents),
		Boxes:  cloneGroup(s.Boxes),
		Goals:  s.Goals,
		Parent: s,
		G:      s.G + 1,
		T:      s.T + 1,
	}
	return c
}

func cloneGroup(group map[Key][]objectPos) map[Key][]objectPos {
	out := make(map[Key][]objectPos, len(group))
	for k, list := range group {
		out[k] = append([]objectPos(nil), list...)
	}
	return out
}

// finalize seeds the child's Explored set from the parent's (monotonic
// growth along the branch) and returns it as a Task, skipping it
// entirely if its hash has already been explored on this branch.
func (s *State) finalize(child *State) *State {
	h := child.Hash()
	if _, seen := s.Explored[h]; seen {
		return nil
	}
	child.Explored = make(map[string]struct{}, len(s.Explored)+1)
	for k := range s.Explored {
		child.Explored[k] = struct{}{}
	}
	child.Explored[h] = struct{}{}
	return child
}

// BestPath walks back from s to the root via Parent and reverses the
// action chain.
func (s *State) BestPath() []JointAction {
	var actions []JointAction
	for cur := s; cur.Parent != nil; cur = cur.Parent {
		actions = append(actions, cur.Action)
	}
	for i, j := 0, len(actions)-1; i < j; i, j = i+1, j-1 {
		actions[i], actions[j] = actions[j], actions[i]
	}
	return actions
}

// BestPathTimeline walks back from s to the root, recording the position
// of the object named by key at every step (t = state.G).
func (s *State) BestPathTimeline(key Key) []TimedPos {
	var chain []*State
	for cur := s; cur != nil; cur = cur.Parent {
		chain = append(chain, cur)
	}
	timeline := make([]TimedPos, 0, len(chain))
	for i := len(chain) - 1; i >= 0; i-- {
		if pos, ok := positionOf(chain[i], key); ok {
			timeline = append(timeline, TimedPos{T: chain[i].G, Pos: pos})
		}
	}
	return timeline
}

func positionOf(s *State, key Key) (Position, bool) {
	if list, ok := s.Agents[key]; ok && len(list) > 0 {
		return list[0].Pos, true
	}
	if list, ok := s.Boxes[key]; ok && len(list) > 0 {
		return list[0].Pos, true
	}
	return Position{}, false
}

// Ancestors returns s and every ancestor up to (and including) the root,
// nearest first. Used to track back an agent's position history by
// walking parent pointers directly, rather than replaying serialized
// snapshots.
func (s *State) Ancestors() []*State {
	var chain []*State
	for cur := s; cur != nil; cur = cur.Parent {
		chain = append(chain, cur)
	}
	return chain
}

// GetAgentsByColor returns the keys of agents sharing the given color.
func (s *State) GetAgentsByColor(color Color) []Key {
	var keys []Key
	for key, list := range s.Agents {
		for _, o := range list {
			if o.Color == color {
				keys = append(keys, key)
				break
			}
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// GoalKeys returns the set of keys that have at least one goal cell.
func (s *State) GoalKeys() []Key {
	keys := make([]Key, 0, len(s.Goals))
	for k := range s.Goals {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// GoalsByKey returns the goal cells for the given key.
func (s *State) GoalsByKey(key Key) []objectPos { return s.Goals[key] }

// BoxesByKey returns the box instances for the given key.
func (s *State) BoxesByKey(key Key) []objectPos { return s.Boxes[key] }

// AgentsByKey returns the agent instances for the given key.
func (s *State) AgentsByKey(key Key) []objectPos { return s.Agents[key] }

// AgentKeys returns every agent key present, regardless of color.
func (s *State) AgentKeys() []Key {
	keys := make([]Key, 0, len(s.Agents))
	for k := range s.Agents {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// OtherColorBoxes returns every (key, position) pair for boxes whose color
// differs from mine, the candidate set Agent._identify_problem scans.
func (s *State) OtherColorBoxes(mine Color) map[Key]Position {
	out := map[Key]Position{}
	for key, list := range s.Boxes {
		for _, o := range list {
			if o.Color != mine {
				out[key] = o.Pos
				break
			}
		}
	}
	return out
}

func (s *State) String() string {
	return fmt.Sprintf("State{g=%d h=%.1f f=%.1f agents=%d boxes=%d goals=%d}",
		s.G, s.H, s.F, len(s.Agents), len(s.Boxes), len(s.Goals))
}
