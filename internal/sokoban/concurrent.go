package sokoban

// ConcurrentState overlays another agent's committed moves onto a base
// task. Rather than subclassing, it composes a *State with a sparse
// t -> (object key -> position) occupancy delta: the successor function
// consults the overlay for the state's current logical time when checking
// whether a target cell is externally occupied.
type ConcurrentState struct {
	*State
	Overlay map[int]map[Key]Position
}

// NewConcurrentState overlays ov onto base, resetting local time to 0 and
// starting a fresh exploration branch (the helper's commitments change the
// world model, so stale ancestry must not block re-expansion).
func NewConcurrentState(base *State, ov map[int]map[Key]Position) *ConcurrentState {
	root := base.clone0()
	root.T = 0
	root.ForgetExploration()
	return &ConcurrentState{State: root, Overlay: ov}
}

// clone0 copies s without advancing G/T or setting Parent — used when
// establishing a new root task rather than expanding a child.
func (s *State) clone0() *State {
	return &State{
		Map:      s.Map,
		Agents:   cloneGroup(s.Agents),
		Boxes:    cloneGroup(s.Boxes),
		Goals:    cloneGroup(s.Goals),
		G:        s.G,
		T:        s.T,
		Explored: map[string]struct{}{},
	}
}

// occupiedAt reports whether pos is externally occupied at logical time t.
func (c *ConcurrentState) occupiedAt(t int, pos Position) bool {
	byKey, ok := c.Overlay[t]
	if !ok {
		return false
	}
	for _, p := range byKey {
		if p == pos {
			return true
		}
	}
	return false
}

// Successors overrides State.Successors to check the overlay at the
// state's current logical time, and keeps every child wrapped in the same
// overlay so it continues to apply as the branch deepens.
func (c *ConcurrentState) Successors() []Task {
	blocked := func(pos Position) bool { return c.occupiedAt(c.State.T, pos) }
	var out []Task
	for _, t := range c.State.expand(blocked) {
		out = append(out, &ConcurrentState{State: t, Overlay: c.Overlay})
	}
	return out
}

// ForgetExploration resets the wrapped state's explored set.
func (c *ConcurrentState) ForgetExploration() {
	c.State.ForgetExploration()
}
