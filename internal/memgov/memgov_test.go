package memgov

import (
	"testing"

	"upside-down-research.com/oss/masokoban/internal/sokoban"
)

func TestGovernorCheckUnderCeiling(t *testing.T) {
	g := New(1 << 20) // absurdly high ceiling: 1TB
	if err := g.Check(); err != nil {
		t.Errorf("expected no error under a huge ceiling, got %v", err)
	}
}

func TestGovernorCheckOverCeiling(t *testing.T) {
	g := New(0)
	err := g.Check()
	if err == nil {
		t.Fatal("expected ErrResourceLimit with a zero ceiling")
	}
	var rl *sokoban.ErrResourceLimit
	if _, ok := err.(*sokoban.ErrResourceLimit); !ok {
		t.Errorf("expected *sokoban.ErrResourceLimit, got %T", err)
	} else {
		rl = err.(*sokoban.ErrResourceLimit)
		if rl.CeilingMB != 0 {
			t.Errorf("expected ceiling 0, got %v", rl.CeilingMB)
		}
	}
}

func TestGovernorCeilingMB(t *testing.T) {
	g := New(2048)
	if g.CeilingMB() != 2048 {
		t.Errorf("expected ceiling 2048, got %v", g.CeilingMB())
	}
}
