package api

import (
	"context"
	"os"
	"runtime"

	"github.com/labstack/gommon/bytes"
	"github.com/shirou/gopsutil/v3/process"
)

// ProcessStats describes the server process for the health endpoint.
type ProcessStats struct {
	PID        int32  `json:"pid"`
	Resident   string `json:"resident_memory"`
	Virtual    string `json:"virtual_memory"`
	Goroutines int    `json:"goroutines"`
}

// processStats samples the current process. It returns nil when the platform
// does not expose memory counters.
func processStats(ctx context.Context) *ProcessStats {
	pid := int32(os.Getpid())
	proc, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return nil
	}
	memInfo, err := proc.MemoryInfoWithContext(ctx)
	if err != nil {
		return nil
	}
	return &ProcessStats{
		PID:        pid,
		Resident:   bytes.Format(int64(memInfo.RSS)),
		Virtual:    bytes.Format(int64(memInfo.VMS)),
		Goroutines: runtime.NumGoroutine(),
	}
}
