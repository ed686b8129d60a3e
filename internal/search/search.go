// Package search implements the best-first search kernel: a priority-queue
// frontier driving A* and Greedy expansion over sokoban.Task (State or
// ConcurrentState), scored by a pluggable heuristic.Heuristic.
package search

import (
	"container/heap"

	"github.com/charmbracelet/log"

	"upside-down-research.com/oss/masokoban/internal/heuristic"
	"upside-down-research.com/oss/masokoban/internal/sokoban"
)

// Strategy selects how frontier priority is derived from a scored state.
type Strategy int

const (
	// AStar sorts by f = g + 5h, a conscious non-admissible weighting.
	AStar Strategy = iota
	// Greedy sorts by h alone, ignoring path cost so far.
	Greedy
)

// MemoryChecker reports whether resource usage has crossed a ceiling.
// Satisfied by *memgov.Governor; declared here to avoid the kernel
// depending on how memory is actually measured.
type MemoryChecker interface {
	Check() error
}

// Kernel drives one best-first search over a single Task DAG. Not safe
// for concurrent use by multiple goroutines against the same instance.
type Kernel struct {
	strategy      Strategy
	heuristic     heuristic.Heuristic
	frontier      priorityQueue
	leaf          sokoban.Task
	tiebreak      uint64
	nodesExplored int
}

// New constructs a Kernel rooted at initial, scoring it immediately so the
// frontier (and leaf, until the first pop) reflect a consistent priority.
func New(initial sokoban.Task, h heuristic.Heuristic, strategy Strategy) *Kernel {
	k := &Kernel{strategy: strategy, heuristic: h, leaf: initial}
	heap.Init(&k.frontier)
	k.score([]sokoban.Task{initial})
	return k
}

// Leaf returns the current search frontier pointer.
func (k *Kernel) Leaf() sokoban.Task { return k.leaf }

// NodesExplored returns the number of ExploreAndAdd calls made so far.
func (k *Kernel) NodesExplored() int { return k.nodesExplored }

func (k *Kernel) score(tasks []sokoban.Task) {
	states := make([]*sokoban.State, len(tasks))
	for i, t := range tasks {
		states[i] = t.StateData()
	}
	k.heuristic.Score(states)
}

func (k *Kernel) priorityOf(t sokoban.Task) float64 {
	s := t.StateData()
	if k.strategy == Greedy {
		return s.H
	}
	return s.F
}

func (k *Kernel) push(t sokoban.Task) {
	k.tiebreak++
	heap.Push(&k.frontier, &frontierEntry{priority: k.priorityOf(t), tiebreak: k.tiebreak, task: t})
}

// ExploreAndAdd expands the current leaf, scores its children, and inserts
// each into the frontier keyed by (priority, monotonic tiebreak).
func (k *Kernel) ExploreAndAdd() {
	children := k.leaf.Successors()
	k.score(children)
	for _, c := range children {
		k.push(c)
	}
	k.nodesExplored++
}

// FrontierEmpty reports whether the frontier has no entries left.
func (k *Kernel) FrontierEmpty() bool {
	return k.frontier.Len() == 0
}

// GetAndRemoveLeaf pops the least-priority entry and sets it as the
// current leaf.
func (k *Kernel) GetAndRemoveLeaf() sokoban.Task {
	entry := heap.Pop(&k.frontier).(*frontierEntry)
	k.leaf = entry.task
	return k.leaf
}

// WalkBestPath reconstructs the action sequence ending at the current leaf.
func (k *Kernel) WalkBestPath() []sokoban.JointAction {
	return k.leaf.BestPath()
}

// Run drives the full Agent.search loop: explore, bail on an empty
// frontier, check the memory ceiling every iteration, and stop as soon as
// the popped leaf satisfies the goal. Every 1000 iterations it emits a
// progress diagnostic (observable only, not semantically required).
func (k *Kernel) Run(governor MemoryChecker) ([]sokoban.JointAction, error) {
	if k.leaf.IsGoalState() {
		return nil, nil
	}

	iterations := 0
	for {
		if err := governor.Check(); err != nil {
			return nil, err
		}

		k.ExploreAndAdd()
		if k.FrontierEmpty() {
			return nil, &sokoban.ErrNoPlan{NodesExplored: k.nodesExplored}
		}
		k.GetAndRemoveLeaf()
		iterations++
		if iterations%1000 == 0 {
			log.Debug("search progress", "iterations", iterations, "nodesExplored", k.nodesExplored, "frontier", k.frontier.Len())
		}
		if k.leaf.IsGoalState() {
			return k.WalkBestPath(), nil
		}
	}
}

// frontierEntry is one priority-queue slot: priority (f or h depending on
// strategy), a strictly increasing tiebreak for deterministic FIFO among
// equal priorities, and the task it represents.
type frontierEntry struct {
	priority float64
	tiebreak uint64
	task     sokoban.Task
}

type priorityQueue []*frontierEntry

func (pq priorityQueue) Len() int { return len(pq) }

func (pq priorityQueue) Less(i, j int) bool {
	if pq[i].priority != pq[j].priority {
		return pq[i].priority < pq[j].priority
	}
	return pq[i].tiebreak < pq[j].tiebreak
}

func (pq priorityQueue) Swap(i, j int) { pq[i], pq[j] = pq[j], pq[i] }

func (pq *priorityQueue) Push(x interface{}) {
	*pq = append(*pq, x.(*frontierEntry))
}

func (pq *priorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	entry := old[n-1]
	old[n-1] = nil
	*pq = old[:n-1]
	return entry
}
