package commands

import (
	"fmt"
	"os"

	"upside-down-research.com/oss/masokoban/internal/level"
	"upside-down-research.com/oss/masokoban/internal/validation"
)

// ValidateCommand validates a level file's structure without running
// search: parse errors, unmatched goals, and overlapping objects.
type ValidateCommand struct {
	LevelFile string `arg:"" name:"level" help:"Level file to validate" type:"path"`
}

// Run executes the validate command.
func (cmd *ValidateCommand) Run() error {
	fmt.Printf("validating level file: %s\n\n", cmd.LevelFile)

	f, err := os.Open(cmd.LevelFile)
	if err != nil {
		return fmt.Errorf("cannot open level file: %w", err)
	}
	defer f.Close()

	state, _, err := level.Parse(f)
	if err != nil {
		fmt.Printf("parse error: %v\n", err)
		return fmt.Errorf("validation failed")
	}

	result := validation.ValidateLevel(state)
	validation.PrintValidationResult(result)

	if !result.IsValid() {
		return fmt.Errorf("validation failed")
	}
	return nil
}
