package heuristic

import (
	"testing"

	"upside-down-research.com/oss/masokoban/internal/sokoban"
)

func simpleMap(rows []string) *sokoban.Map {
	return sokoban.NewMap(rows)
}

func TestEasyRule(t *testing.T) {
	t.Run("zero at goal", func(t *testing.T) {
		m := simpleMap([]string{
			"+++++",
			"+   +",
			"+++++",
		})
		s := sokoban.NewState(m)
		s.AddAgent("0", sokoban.Position{Row: 1, Col: 1}, "blue")
		s.AddBox("A", sokoban.Position{Row: 1, Col: 2}, "blue")
		s.AddGoal("A", sokoban.Position{Row: 1, Col: 2}, "blue")

		EasyRule{}.Score([]*sokoban.State{s})
		if s.H != 0 {
			t.Errorf("expected h=0 when box already on goal, got %v", s.H)
		}
	})

	t.Run("f is g plus 5h", func(t *testing.T) {
		m := simpleMap([]string{
			"+++++",
			"+   +",
			"+++++",
		})
		s := sokoban.NewState(m)
		s.G = 3
		s.AddAgent("0", sokoban.Position{Row: 1, Col: 1}, "blue")
		s.AddBox("A", sokoban.Position{Row: 1, Col: 2}, "blue")
		s.AddGoal("A", sokoban.Position{Row: 1, Col: 3}, "blue")

		EasyRule{}.Score([]*sokoban.State{s})
		if s.F != float64(s.G)+5*s.H {
			t.Errorf("f=%v does not equal g+5h (g=%v h=%v)", s.F, s.G, s.H)
		}
		if s.H == 0 {
			t.Errorf("expected nonzero h, box is not on its goal")
		}
	})
}

func TestWeightedRule(t *testing.T) {
	m := simpleMap([]string{
		"++++++",
		"+    +",
		"++++++",
	})
	s1 := sokoban.NewState(m)
	s1.AddAgent("0", sokoban.Position{Row: 1, Col: 1}, "blue")
	s1.AddBox("A", sokoban.Position{Row: 1, Col: 2}, "blue")
	s1.AddGoal("A", sokoban.Position{Row: 1, Col: 4}, "blue")

	s2 := sokoban.NewState(m)
	s2.AddAgent("0", sokoban.Position{Row: 1, Col: 1}, "blue")
	s2.AddBox("A", sokoban.Position{Row: 1, Col: 2}, "blue")
	s2.AddGoal("A", sokoban.Position{Row: 1, Col: 4}, "blue")

	EasyRule{}.Score([]*sokoban.State{s1})
	NewWeightedRule("A").Score([]*sokoban.State{s2})

	if s2.H <= s1.H {
		t.Errorf("weighted h (%v) should exceed plain h (%v) for the weighted key", s2.H, s1.H)
	}
}

func TestGoAwayRewardsDistance(t *testing.T) {
	m := simpleMap([]string{
		"+++++++",
		"+     +",
		"+++++++",
	})
	near := sokoban.NewState(m)
	near.AddAgent("0", sokoban.Position{Row: 1, Col: 2}, "blue")
	near.AddBox("A", sokoban.Position{Row: 1, Col: 1}, "blue")
	near.AddGoal("A", sokoban.Position{Row: 1, Col: 5}, "blue")

	far := sokoban.NewState(m)
	far.AddAgent("0", sokoban.Position{Row: 1, Col: 5}, "blue")
	far.AddBox("A", sokoban.Position{Row: 1, Col: 1}, "blue")
	far.AddGoal("A", sokoban.Position{Row: 1, Col: 5}, "blue")

	GoAway{}.Score([]*sokoban.State{near, far})
	// Lower f is preferred by best-first search, and the agent-to-box term
	// is negative, so being farther from the box yields a lower (more
	// attractive) f.
	if far.F >= near.F {
		t.Errorf("expected GoAway to favor (lower f for) the far-from-box state, got far=%v near=%v", far.F, near.F)
	}
	if near.F != 25*near.H || far.F != 25*far.H {
		t.Errorf("expected f=25h with no g term")
	}
}

func TestGoAwayIgnoresColor(t *testing.T) {
	m := simpleMap([]string{
		"+++++++",
		"+     +",
		"+++++++",
	})
	s := sokoban.NewState(m)
	s.AddAgent("0", sokoban.Position{Row: 1, Col: 2}, "red")
	s.AddBox("A", sokoban.Position{Row: 1, Col: 1}, "blue")
	s.AddGoal("A", sokoban.Position{Row: 1, Col: 5}, "blue")

	GoAway{}.Score([]*sokoban.State{s})
	if s.H == 0 {
		t.Errorf("expected a cross-color agent-box term to contribute to h")
	}
}
