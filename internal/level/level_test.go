package level

import (
	"strings"
	"testing"
)

const sampleLevel = `blue: 0, A
#initial
+++++
+0A +
+++++
#goal
+++++
+  A+
+++++
#end
`

func TestParseSampleLevel(t *testing.T) {
	state, colors, err := Parse(strings.NewReader(sampleLevel))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if colors["0"] != "blue" || colors["A"] != "blue" {
		t.Errorf("expected agent 0 and box A to be blue, got %v", colors)
	}
	if len(state.AgentsByKey("0")) != 1 {
		t.Fatalf("expected exactly one agent 0")
	}
	if len(state.BoxesByKey("A")) != 1 {
		t.Fatalf("expected exactly one box A")
	}
	if len(state.GoalsByKey("A")) != 1 {
		t.Fatalf("expected exactly one goal A")
	}
}

func TestParseMissingEndMarker(t *testing.T) {
	bad := `blue: 0
#initial
+++
+0+
+++
#goal
+++
+ +
+++
`
	_, _, err := Parse(strings.NewReader(bad))
	if err == nil {
		t.Fatal("expected a parse error for a level missing #end")
	}
}

func TestParseUnassignedColorIsError(t *testing.T) {
	bad := `blue: 0
#initial
+++++
+0A +
+++++
#goal
+++++
+  A+
+++++
#end
`
	_, _, err := Parse(strings.NewReader(bad))
	if err == nil {
		t.Fatal("expected a parse error for a box with no assigned color")
	}
}
