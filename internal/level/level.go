// Package level parses the server-protocol level format into a
// sokoban.State: a color header, an #initial map section, a #goal
// section, and a terminating #end marker. Grounded on
// searchclient.py's parse_map/build_map/_locate_objects.
package level

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"

	"upside-down-research.com/oss/masokoban/internal/sokoban"
)

// ErrParse wraps a sokoban.ErrParseError so callers outside this package
// can type-switch on the domain error without importing the parser's
// section-tracking internals.
type ErrParse struct {
	Cause *sokoban.ErrParseError
}

func (e *ErrParse) Error() string { return e.Cause.Error() }
func (e *ErrParse) Unwrap() error { return e.Cause }

func parseErr(line int, format string, args ...interface{}) error {
	return &ErrParse{Cause: &sokoban.ErrParseError{Line: line, Message: fmt.Sprintf(format, args...)}}
}

var colorHeaderRe = regexp.MustCompile(`^([a-z]+):\s*(.+)$`)

type section int

const (
	sectionHeader section = iota
	sectionInitial
	sectionGoal
	sectionDone
)

// Parse reads a complete level from r and returns the populated initial
// State plus the color table (key -> color, for callers that need it,
// e.g. `validate`).
func Parse(r io.Reader) (*sokoban.State, map[string]sokoban.Color, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	colors := map[string]sokoban.Color{}
	var mapLines, goalLines []string

	cur := sectionHeader
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")

		switch cur {
		case sectionHeader:
			if strings.Contains(line, "#initial") {
				cur = sectionInitial
				continue
			}
			if m := colorHeaderRe.FindStringSubmatch(line); m != nil {
				color := sokoban.Color(m[1])
				for _, obj := range strings.Split(m[2], ",") {
					key := strings.TrimSpace(obj)
					if key != "" {
						colors[key] = color
					}
				}
			}
		case sectionInitial:
			if strings.Contains(line, "#goal") {
				cur = sectionGoal
				continue
			}
			mapLines = append(mapLines, line)
		case sectionGoal:
			if strings.Contains(line, "#end") {
				cur = sectionDone
				continue
			}
			goalLines = append(goalLines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, parseErr(lineNo, "reading level: %v", err)
	}
	if cur != sectionDone {
		return nil, nil, parseErr(lineNo, "level is missing its #end marker")
	}
	if len(mapLines) == 0 {
		return nil, nil, parseErr(lineNo, "level has no map rows between #initial and #goal")
	}

	m := sokoban.NewMap(mapLines)
	state := sokoban.NewState(m)

	for _, o := range locateObjects(mapLines, isAgentOrBox) {
		color, ok := colors[o.key]
		if !ok {
			return nil, nil, parseErr(lineNo, "object %q has no assigned color", o.key)
		}
		if isDigit(o.key[0]) {
			state.AddAgent(sokoban.Key(o.key), o.pos, color)
		} else {
			state.AddBox(sokoban.Key(o.key), o.pos, color)
		}
	}
	for _, o := range locateObjects(goalLines, isUpper) {
		color, ok := colors[o.key]
		if !ok {
			return nil, nil, parseErr(lineNo, "goal %q has no assigned color", o.key)
		}
		state.AddGoal(sokoban.Key(o.key), o.pos, color)
	}

	return state, colors, nil
}

type located struct {
	key string
	pos sokoban.Position
}

// locateObjects scans rows for characters matching pred, returning the
// key and position of each. The level format uses a single map for both
// static walls and the agents/boxes that start on it; only the matched
// characters are extracted, matching np.where(map == obj) in the original.
func locateObjects(rows []string, pred func(byte) bool) []located {
	var out []located
	for r, row := range rows {
		for c := 0; c < len(row); c++ {
			if ch := row[c]; pred(ch) {
				out = append(out, located{key: string(ch), pos: sokoban.Position{Row: r, Col: c}})
			}
		}
	}
	return out
}

func isDigit(ch byte) bool        { return ch >= '0' && ch <= '9' }
func isUpper(ch byte) bool        { return ch >= 'A' && ch <= 'Z' }
func isAgentOrBox(ch byte) bool   { return isDigit(ch) || isUpper(ch) }
