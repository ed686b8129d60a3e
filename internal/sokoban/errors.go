package sokoban

import "fmt"

// ErrIncorrectTask indicates inconsistent input: an SOS response lacking a
// timeline, a helper asked to solve an off-color task, or a task merge
// between agents of differing colors. Fatal to the current agent.
type ErrIncorrectTask struct {
	Reason string
}

func (e *ErrIncorrectTask) Error() string {
	return fmt.Sprintf("incorrect task: %s", e.Reason)
}

// ErrResourceLimit indicates the memory ceiling was breached during search.
// The current search call returns no plan.
type ErrResourceLimit struct {
	UsageMB   float64
	CeilingMB float64
}

func (e *ErrResourceLimit) Error() string {
	return fmt.Sprintf("memory usage %.1fMB exceeds ceiling %.1fMB", e.UsageMB, e.CeilingMB)
}

// ErrNoPlan indicates the frontier was exhausted without finding a goal
// state. Recoverable: the caller should enter Fail and issue an SOS.
type ErrNoPlan struct {
	NodesExplored int
}

func (e *ErrNoPlan) Error() string {
	return fmt.Sprintf("no plan found after exploring %d nodes", e.NodesExplored)
}

// ErrParseError indicates malformed level input. Fatal to the run.
type ErrParseError struct {
	Line    int
	Message string
}

func (e *ErrParseError) Error() string {
	return fmt.Sprintf("parse error at line %d: %s", e.Line, e.Message)
}
