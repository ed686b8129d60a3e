// Package memgov polls process RSS against a configurable ceiling so the
// search kernel can abort before the OS starts swapping or the OOM killer
// intervenes. RSS (not Go heap) is what the original's psutil-based
// get_usage() measured, so we read /proc/self/status directly via
// prometheus/procfs rather than runtime.MemStats.
package memgov

import (
	"sync"

	"github.com/charmbracelet/log"
	"github.com/prometheus/procfs"

	"upside-down-research.com/oss/masokoban/internal/sokoban"
)

const bytesPerMB = 1024 * 1024

// Governor checks whether current process RSS has crossed a ceiling.
// Safe for concurrent use: the fallback flag and the /proc handle are
// only read or switched under mu.
type Governor struct {
	ceilingMB float64

	mu       sync.Mutex
	fallback bool
	proc     procfs.Proc
}

// New constructs a Governor with the given ceiling in megabytes. It probes
// /proc once at construction to decide whether RSS polling is available,
// logging a single line if it falls back to runtime.MemStats.Sys.
func New(ceilingMB float64) *Governor {
	g := &Governor{ceilingMB: ceilingMB}

	fs, err := procfs.NewDefaultFS()
	if err != nil {
		g.enableFallback("procfs unavailable", err)
		return g
	}
	proc, err := fs.Self()
	if err != nil {
		g.enableFallback("could not resolve /proc/self", err)
		return g
	}
	if _, err := proc.NewStatus(); err != nil {
		g.enableFallback("could not read /proc/self/status", err)
		return g
	}
	g.proc = proc
	return g
}

func (g *Governor) enableFallback(reason string, err error) {
	g.fallback = true
	log.Warn("memory governor falling back to runtime.MemStats.Sys", "reason", reason, "error", err)
}

// UsageMB returns current process memory usage in megabytes: VmRSS when
// /proc is available, otherwise the Go runtime's reported system memory.
func (g *Governor) UsageMB() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.fallback {
		status, err := g.proc.NewStatus()
		if err == nil {
			return float64(status.VmRSS) / bytesPerMB
		}
		g.enableFallback("status read failed mid-run", err)
	}
	return runtimeMemStatsSysMB()
}

// Check returns ErrResourceLimit if current usage has crossed the
// configured ceiling.
func (g *Governor) Check() error {
	usage := g.UsageMB()
	if usage > g.ceilingMB {
		return &sokoban.ErrResourceLimit{UsageMB: usage, CeilingMB: g.ceilingMB}
	}
	return nil
}

// CeilingMB returns the configured ceiling.
func (g *Governor) CeilingMB() float64 { return g.ceilingMB }

// UsingFallback reports whether /proc RSS polling is unavailable on this
// system, so callers (e.g. the doctor command) can surface it.
func (g *Governor) UsingFallback() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.fallback
}
