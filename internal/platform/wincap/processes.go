package wincap

import (
	"fmt"

	"github.com/shirou/gopsutil/v3/process"

	"nexuscap/internal/locator"
)

type gopsutilLister struct{}

// NewProcessLister enumerates the OS process table.
func NewProcessLister() locator.ProcessLister { return gopsutilLister{} }

func (gopsutilLister) Processes() ([]locator.Process, error) {
	procs, err := process.Processes()
	if err != nil {
		return nil, fmt.Errorf("enumerate processes: %w", err)
	}
	out := make([]locator.Process, 0, len(procs))
	for _, p := range procs {
		name, err := p.Name()
		if err != nil {
			// Processes can vanish mid-enumeration.
			continue
		}
		out = append(out, locator.Process{PID: p.Pid, Name: name})
	}
	return out, nil
}
