package commands

import (
	"fmt"

	"upside-down-research.com/oss/masokoban/internal/config"
	"upside-down-research.com/oss/masokoban/internal/memgov"
	"upside-down-research.com/oss/masokoban/internal/validation"
)

// DoctorCommand runs environment diagnostics.
type DoctorCommand struct {
	Config string `name:"config" help:"Configuration file path" type:"path"`
}

// Run executes the doctor command.
func (cmd *DoctorCommand) Run() error {
	fmt.Println("running masokoban diagnostics...")
	fmt.Println()

	ok := true

	cfg, err := config.LoadConfig(cmd.Config)
	if err != nil {
		fmt.Printf("config: %v\n", err)
		return fmt.Errorf("diagnostics failed: %w", err)
	}

	result := validation.ValidateConfig(cfg)
	if result.IsValid() {
		fmt.Println("configuration: valid")
	} else {
		fmt.Println("configuration: has errors")
		for _, e := range result.Errors {
			fmt.Printf("  - %s\n", e.Error())
		}
		ok = false
	}
	for _, w := range result.Warnings {
		fmt.Printf("warning: %s: %s\n", w.Field, w.Message)
	}

	governor := memgov.New(cfg.Memory.CeilingMB)
	if governor.UsingFallback() {
		fmt.Println("memory governor: /proc RSS polling unavailable, falling back to runtime.MemStats.Sys")
	} else {
		fmt.Println("memory governor: /proc RSS polling available")
	}
	fmt.Printf("memory governor: ceiling %.0fMB, current usage %.1fMB\n", governor.CeilingMB(), governor.UsageMB())

	fmt.Println()
	if ok {
		fmt.Println("all systems ready")
		return nil
	}
	fmt.Println("issues found — please fix before running solve")
	return fmt.Errorf("diagnostics failed")
}
