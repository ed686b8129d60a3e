package heuristic

import (
	"container/heap"

	"upside-down-research.com/oss/masokoban/internal/sokoban"
)

// VisibilityGraph is the map-aware heuristic: it extracts concave wall
// corners as keypoints once per level, builds a keypoint graph from the
// wall contours, and answers agent→box and box→goal distance queries via
// a Dijkstra search over the graph plus per-query temporary edges from
// each endpoint to its nearest visible keypoints. The base graph is built
// once and never mutated afterward, so concurrent queries (each working
// off its own temporary-edge overlay) are safe without locking.
type VisibilityGraph struct {
	gridMap   *sokoban.Map
	keypoints []sokoban.Position
	adjacency map[sokoban.Position][]edge
}

type edge struct {
	To     sokoban.Position
	Weight int
}

// NewVisibilityGraph builds the keypoint graph for m immediately; the
// graph is immutable once constructed and safe for concurrent queries.
func NewVisibilityGraph(m *sokoban.Map) *VisibilityGraph {
	g := &VisibilityGraph{gridMap: m, adjacency: map[sokoban.Position][]edge{}}
	g.build()
	return g
}

// contour direction set: turning right-then-forward means trying the
// current direction, then +1 (clockwise), wrapping through all four.
var turnOrder = [4]sokoban.Direction{sokoban.North, sokoban.East, sokoban.South, sokoban.West}

func (g *VisibilityGraph) build() {
	explored := map[sokoban.Position]bool{}
	m := g.gridMap
	for col := 0; col < m.Cols; col++ {
		explored[sokoban.Position{Row: 0, Col: col}] = true
		explored[sokoban.Position{Row: m.Rows - 1, Col: col}] = true
	}
	for row := 0; row < m.Rows; row++ {
		explored[sokoban.Position{Row: row, Col: 0}] = true
		explored[sokoban.Position{Row: row, Col: m.Cols - 1}] = true
	}

	unique := map[sokoban.Position]bool{}
	for col := 1; col < m.Cols; col++ {
		for row := 1; row < m.Rows; row++ {
			pos := sokoban.Position{Row: row, Col: col}
			left := sokoban.Position{Row: row, Col: col - 1}
			if m.IsWall(pos) && !m.IsWall(left) && !explored[pos] {
				contour := g.walkContour(left, explored)
				if len(contour) > 1 {
					g.addContourEdges(contour)
					for _, c := range contour {
						unique[c] = true
					}
				}
			}
		}
	}

	g.keypoints = make([]sokoban.Position, 0, len(unique))
	for p := range unique {
		g.keypoints = append(g.keypoints, p)
	}
}

// walkContour traces the wall boundary starting at a free cell adjacent to
// a wall by always turning right-then-forward, recording the adjacent
// free cell at every concave corner as a keypoint. Each round tries
// candidates in turn-left, straight, turn-right, back order relative to
// the previous move (dirIdx is rewound by one after every successful
// move); a concave corner is exactly the case where the turn-left
// candidate, tried first with no rejections ahead of it, is the one that
// succeeds. The walk's first move has no previous direction to turn
// relative to, so it is exempt.
func (g *VisibilityGraph) walkContour(start sokoban.Position, explored map[sokoban.Position]bool) []sokoban.Position {
	var corners []sokoban.Position
	pos := start
	dirIdx := 0
	initDirIdx := -1
	steps := 0
	maxSteps := 4 * (g.gridMap.Rows + g.gridMap.Cols) * 4
	for steps < maxSteps {
		steps++
		moved := false
		for j := 0; j < 4; j++ {
			dir := turnOrder[dirIdx%4]
			dr, dc := dir.Delta()
			next := sokoban.Position{Row: pos.Row + dr, Col: pos.Col + dc}
			if g.gridMap.IsWall(next) {
				explored[next] = true
				dirIdx++
				continue
			}
			if explored[next] {
				dirIdx++
				continue
			}
			if j == 0 && initDirIdx != -1 {
				corners = appendUnique(corners, pos)
			}
			pos = next
			if initDirIdx == -1 {
				initDirIdx = dirIdx % 4
			} else if pos == start && dirIdx%4 == initDirIdx {
				return corners
			}
			dirIdx = (dirIdx%4 - 1 + 4) % 4
			moved = true
			break
		}
		if !moved {
			break
		}
	}
	return corners
}

func appendUnique(list []sokoban.Position, p sokoban.Position) []sokoban.Position {
	for _, q := range list {
		if q == p {
			return list
		}
	}
	return append(list, p)
}

func (g *VisibilityGraph) addContourEdges(contour []sokoban.Position) {
	for i := 0; i < len(contour); i++ {
		a := contour[i]
		b := contour[(i+1)%len(contour)]
		if a == b {
			continue
		}
		d := a.Manhattan(b)
		g.adjacency[a] = append(g.adjacency[a], edge{To: b, Weight: d})
		g.adjacency[b] = append(g.adjacency[b], edge{To: a, Weight: d})
	}
}

// keypointDist pairs a keypoint with its L1 distance from some query
// position, used only to rank anchor candidates.
type keypointDist struct {
	p sokoban.Position
	d int
}

// anchors returns the up-to-4 nearest keypoints to pos, by L1 distance,
// for which the axis-aligned L-shaped probe (row-wise then column-wise)
// from pos is wall-free.
func (g *VisibilityGraph) anchors(pos sokoban.Position) []sokoban.Position {
	cands := make([]keypointDist, len(g.keypoints))
	for i, kp := range g.keypoints {
		cands[i] = keypointDist{p: kp, d: pos.Manhattan(kp)}
	}
	sortByDist(cands)

	var out []sokoban.Position
	for _, c := range cands {
		if g.lProbe(pos, c.p) {
			out = append(out, c.p)
			if len(out) == 4 {
				break
			}
		}
	}
	return out
}

func sortByDist(cands []keypointDist) {
	for i := 1; i < len(cands); i++ {
		for j := i; j > 0 && cands[j].d < cands[j-1].d; j-- {
			cands[j], cands[j-1] = cands[j-1], cands[j]
		}
	}
}

// lProbe checks that the row-then-column L path from a to b never crosses
// a wall.
func (g *VisibilityGraph) lProbe(a, b sokoban.Position) bool {
	row, col := a.Row, a.Col
	stepRow := sign(b.Row - row)
	for row != b.Row {
		row += stepRow
		if g.gridMap.IsWall(sokoban.Position{Row: row, Col: col}) {
			return false
		}
	}
	stepCol := sign(b.Col - col)
	for col != b.Col {
		col += stepCol
		if g.gridMap.IsWall(sokoban.Position{Row: row, Col: col}) {
			return false
		}
	}
	return true
}

func sign(x int) int {
	if x > 0 {
		return 1
	}
	if x < 0 {
		return -1
	}
	return 0
}

// Query estimates the shortest-path length between a and b: temporarily
// adds edges from a to its anchors and from b's anchors to b on a cloned
// adjacency view, runs Dijkstra from a to b, and discards the temporary
// edges by simply letting the clone go out of scope.
func (g *VisibilityGraph) Query(a, b sokoban.Position) int {
	if a == b {
		return 0
	}
	// On a wall-free map there are no keypoints at all, so the graph query
	// below would return the Manhattan fallback anyway; short-circuit it
	// directly instead of walking an empty graph.
	if len(g.keypoints) == 0 {
		return a.Manhattan(b)
	}

	startAnchors := g.anchors(a)
	goalAnchors := g.anchors(b)

	overlay := map[sokoban.Position][]edge{}
	if g.lProbe(a, b) {
		overlay[a] = append(overlay[a], edge{To: b, Weight: a.Manhattan(b)})
	}
	for _, kp := range startAnchors {
		overlay[a] = append(overlay[a], edge{To: kp, Weight: a.Manhattan(kp)})
	}
	for _, kp := range goalAnchors {
		overlay[kp] = append(overlay[kp], edge{To: b, Weight: kp.Manhattan(b)})
	}

	return g.dijkstra(a, b, overlay)
}

type pqItem struct {
	pos  sokoban.Position
	dist int
	idx  int
}

type distPQ []*pqItem

func (pq distPQ) Len() int            { return len(pq) }
func (pq distPQ) Less(i, j int) bool  { return pq[i].dist < pq[j].dist }
func (pq distPQ) Swap(i, j int)       { pq[i], pq[j] = pq[j], pq[i]; pq[i].idx = i; pq[j].idx = j }
func (pq *distPQ) Push(x interface{}) { item := x.(*pqItem); item.idx = len(*pq); *pq = append(*pq, item) }
func (pq *distPQ) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*pq = old[:n-1]
	return item
}

// dijkstra runs single-source shortest path from start to goal over the
// base adjacency plus the query-local overlay. Seeding the overlay from
// both ends before a single forward search gets the effect of a
// bidirectional query, since the overlay already connects start/goal
// directly into the shared keypoint graph from both sides.
func (g *VisibilityGraph) dijkstra(start, goal sokoban.Position, overlay map[sokoban.Position][]edge) int {
	dist := map[sokoban.Position]int{start: 0}
	pq := &distPQ{{pos: start, dist: 0}}
	heap.Init(pq)
	visited := map[sokoban.Position]bool{}

	neighbors := func(p sokoban.Position) []edge {
		all := append([]edge(nil), g.adjacency[p]...)
		all = append(all, overlay[p]...)
		return all
	}

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(*pqItem)
		if visited[cur.pos] {
			continue
		}
		visited[cur.pos] = true
		if cur.pos == goal {
			return cur.dist
		}
		for _, e := range neighbors(cur.pos) {
			nd := cur.dist + e.Weight
			if d, ok := dist[e.To]; !ok || nd < d {
				dist[e.To] = nd
				heap.Push(pq, &pqItem{pos: e.To, dist: nd})
			}
		}
	}
	if d, ok := dist[goal]; ok {
		return d
	}
	return start.Manhattan(goal)
}

// Score implements Heuristic: h = query(agent, box) + query(box, goal),
// f = 2h + g. Only the first agent/box/goal of the task's single subgoal
// are scored — the Manager only ever hands an Agent one goal per subtask.
func (g *VisibilityGraph) Score(states []*sokoban.State) {
	for _, s := range states {
		agentKeys := s.AgentKeys()
		goalKeys := s.GoalKeys()
		if len(agentKeys) == 0 || len(goalKeys) == 0 {
			continue
		}
		agentPos := s.AgentsByKey(agentKeys[0])[0].Pos
		goalList := s.GoalsByKey(goalKeys[0])
		if len(goalList) == 0 {
			continue
		}
		goalPos := goalList[0].Pos
		boxes := s.BoxesByKey(goalKeys[0])
		if len(boxes) == 0 {
			continue
		}
		boxPos := boxes[0].Pos

		h := g.Query(agentPos, boxPos) + g.Query(boxPos, goalPos)
		s.H = float64(h)
		s.F = 2*s.H + float64(s.G)
	}
}
