// Package validation provides pre-flight checks for config and parsed
// levels, with actionable fix hints: search strategy, round budget,
// memory ceiling, and level structural invariants.
package validation

import (
	"fmt"
	"os"

	"upside-down-research.com/oss/masokoban/internal/config"
	"upside-down-research.com/oss/masokoban/internal/sokoban"
)

// ValidationError represents one validation finding, with an optional
// suggested fix.
type ValidationError struct {
	Field   string
	Message string
	Fix     string
}

func (e ValidationError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Field, e.Message)
	if e.Fix != "" {
		msg += fmt.Sprintf("\n  Fix: %s", e.Fix)
	}
	return msg
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// IsValid returns true if there are no errors.
func (v *ValidationResult) IsValid() bool {
	return len(v.Errors) == 0
}

// AddError adds a validation error.
func (v *ValidationResult) AddError(field, message, fix string) {
	v.Errors = append(v.Errors, ValidationError{Field: field, Message: message, Fix: fix})
}

// AddWarning adds a validation warning.
func (v *ValidationResult) AddWarning(field, message, fix string) {
	v.Warnings = append(v.Warnings, ValidationError{Field: field, Message: message, Fix: fix})
}

var validStrategies = map[string]bool{
	"astar":  true,
	"wastar": true,
	"greedy": true,
}

// ValidateConfig validates the search/manager/memory configuration.
func ValidateConfig(cfg *config.Config) *ValidationResult {
	result := &ValidationResult{}

	if !validStrategies[cfg.Search.Strategy] {
		result.AddError("search.strategy",
			fmt.Sprintf("invalid strategy '%s'", cfg.Search.Strategy),
			"use one of: astar, wastar, greedy")
	}

	if cfg.Manager.RoundBudget < 1 {
		result.AddError("manager.round_budget",
			"must be at least 1",
			"set manager.round_budget to a positive number")
	}
	if cfg.Manager.RoundBudget > 100000 {
		result.AddWarning("manager.round_budget",
			"very high round budget may mask a genuinely stuck level",
			"consider a few thousand rounds at most")
	}

	if cfg.Memory.CeilingMB <= 0 {
		result.AddError("memory.ceiling_mb",
			"must be positive",
			"set memory.ceiling_mb to a positive number, e.g. 2048")
	}

	return result
}

// ValidateLevel checks the structural invariants a parsed level must
// satisfy, without running search: every goal must have a matching box
// available, and no two objects (of any kind) may share a cell.
func ValidateLevel(state *sokoban.State) *ValidationResult {
	result := &ValidationResult{}

	for _, goalKey := range state.GoalKeys() {
		for _, goal := range state.GoalsByKey(goalKey) {
			if !hasMatchingBox(state, goalKey, goal.Color) {
				result.AddError("level.goals",
					fmt.Sprintf("goal %q at %v requires a %s box of key %q, but none exists", goalKey, goal.Pos, goal.Color, goalKey),
					"add a matching box to the level's #initial section, or fix the goal's color")
			}
		}
	}

	if key, a, b := firstCollision(state); key != "" {
		result.AddError("level.layout",
			fmt.Sprintf("two objects (%s) occupy the same cell %v and %v", key, a, b),
			"no two objects may share a cell; check the level's initial layout")
	}

	if len(state.AgentKeys()) == 0 {
		result.AddWarning("level.agents",
			"level has no agents",
			"a level with no agents can never progress toward its goals")
	}

	return result
}

func hasMatchingBox(state *sokoban.State, key sokoban.Key, color sokoban.Color) bool {
	for _, box := range state.BoxesByKey(key) {
		if box.Color == color {
			return true
		}
	}
	return false
}

// firstCollision scans every agent and box position for a duplicate
// cell, returning the combined key label and the shared position if
// found.
func firstCollision(state *sokoban.State) (sokoban.Key, sokoban.Position, sokoban.Position) {
	seen := make(map[sokoban.Position]sokoban.Key)
	check := func(key sokoban.Key, pos sokoban.Position) (sokoban.Key, bool) {
		if prior, ok := seen[pos]; ok {
			return sokoban.Key(fmt.Sprintf("%s/%s", prior, key)), true
		}
		seen[pos] = key
		return "", false
	}
	for _, key := range state.AgentKeys() {
		for _, a := range state.AgentsByKey(key) {
			if combined, hit := check(key, a.Pos); hit {
				return combined, a.Pos, a.Pos
			}
		}
	}
	for key, boxes := range state.Boxes {
		for _, b := range boxes {
			if combined, hit := check(key, b.Pos); hit {
				return combined, b.Pos, b.Pos
			}
		}
	}
	return "", sokoban.Position{}, sokoban.Position{}
}

// ValidateOutputDirectory checks that a directory exists and is
// writable, creating it if necessary.
func ValidateOutputDirectory(path string) error {
	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("cannot create output directory: %w", err)
	}
	testFile := path + "/.masokoban-write-test"
	if err := os.WriteFile(testFile, []byte("test"), 0644); err != nil {
		return fmt.Errorf("cannot write to output directory: %w", err)
	}
	os.Remove(testFile)
	return nil
}

// PrintValidationResult prints validation results to stdout.
func PrintValidationResult(result *ValidationResult) {
	if len(result.Errors) > 0 {
		fmt.Println("Validation errors:")
		for _, err := range result.Errors {
			fmt.Printf("  - %s\n", err.Error())
		}
		fmt.Println()
	}

	if len(result.Warnings) > 0 {
		fmt.Println("Warnings:")
		for _, warn := range result.Warnings {
			fmt.Printf("  - %s: %s\n", warn.Field, warn.Message)
			if warn.Fix != "" {
				fmt.Printf("    suggestion: %s\n", warn.Fix)
			}
		}
		fmt.Println()
	}

	if result.IsValid() && len(result.Warnings) == 0 {
		fmt.Println("all validations passed")
	}
}
