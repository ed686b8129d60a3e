package memgov

import "runtime"

// runtimeMemStatsSysMB reports the Go runtime's total obtained system
// memory, used only when /proc/self/status is unavailable (non-Linux).
// This tracks Go-runtime memory rather than true process RSS, so the
// configured ceiling is necessarily an approximation on those platforms.
func runtimeMemStatsSysMB() float64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return float64(m.Sys) / bytesPerMB
}
