// Package hostprobe reads CPU, load, disk, process and OS inventory off the
// local host using gopsutil, matching the synchronous (non-blocking)
// host-probe helpers the dispatcher calls directly for cheap queries.
package hostprobe

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	apperr "github.com/kandev/ironhive/internal/common/errors"
	"github.com/kandev/ironhive/internal/protocol"
)

// excludedDeviceSubstrings filters pseudo filesystems out of disk listings.
var excludedDeviceSubstrings = []string{"dev/loop", "devfs"}

// CPUUsage returns the global CPU percentage, sampled over a short interval.
func CPUUsage() (float64, error) {
	percents, err := cpu.Percent(200*time.Millisecond, false)
	if err != nil {
		return 0, apperr.IoError(err)
	}
	if len(percents) == 0 {
		return 0, nil
	}
	return percents[0], nil
}

// LoadAvg returns the 1/5/15 minute load averages.
func LoadAvg() (one, five, fifteen float64, err error) {
	avg, lerr := load.Avg()
	if lerr != nil {
		return 0, 0, 0, apperr.IoError(lerr)
	}
	return avg.Load1, avg.Load5, avg.Load15, nil
}

// Disks returns mounted filesystems, excluding pseudo devices.
func Disks() ([]protocol.DiskInfo, error) {
	partitions, err := disk.Partitions(false)
	if err != nil {
		return nil, apperr.IoError(err)
	}

	out := make([]protocol.DiskInfo, 0, len(partitions))
	for _, p := range partitions {
		if isExcludedDevice(p.Device) {
			continue
		}
		usage, err := disk.Usage(p.Mountpoint)
		if err != nil {
			continue
		}
		percent := float64(0)
		if usage.Total > 0 {
			percent = float64(usage.Used) * 100 / float64(usage.Total)
		}
		out = append(out, protocol.DiskInfo{
			Device:  p.Device,
			Fstype:  p.Fstype,
			Total:   humanize.Bytes(usage.Total),
			Used:    humanize.Bytes(usage.Used),
			Free:    humanize.Bytes(usage.Free),
			Percent: fmt.Sprintf("%.1f", percent),
		})
	}
	return out, nil
}

func isExcludedDevice(device string) bool {
	for _, substr := range excludedDeviceSubstrings {
		if strings.Contains(device, substr) {
			return true
		}
	}
	return false
}

// Procs lists running processes, excluding PID 0.
func Procs() ([]protocol.ProcessInfo, error) {
	procs, err := process.Processes()
	if err != nil {
		return nil, apperr.IoError(err)
	}

	out := make([]protocol.ProcessInfo, 0, len(procs))
	for _, p := range procs {
		if p.Pid == 0 {
			continue
		}
		name, _ := p.Name()
		username, _ := p.Username()
		memInfo, _ := p.MemoryInfo()
		cpuPercent, _ := p.CPUPercent()

		var rss uint64
		if memInfo != nil {
			rss = memInfo.RSS
		}

		out = append(out, protocol.ProcessInfo{
			Name:       name,
			Pid:        p.Pid,
			MemBytes:   rss,
			Username:   username,
			ID:         p.Pid,
			CPUPercent: fmt.Sprintf("%.1f%%", cpuPercent),
		})
	}
	return out, nil
}

// KillProc locates the process by pid and requests its termination.
func KillProc(pid int32) error {
	if pid == 0 {
		return apperr.NotFoundProcess(int(pid))
	}
	p, err := process.NewProcess(pid)
	if err != nil {
		return apperr.NotFoundProcess(int(pid))
	}
	if err := p.Kill(); err != nil {
		return apperr.KillProcessFailed(int(pid), err)
	}
	return nil
}

// OSString returns "<long_os_version> <arch> <kernel_version>".
func OSString() (string, error) {
	info, err := host.Info()
	if err != nil {
		return "", apperr.IoError(err)
	}
	return fmt.Sprintf("%s %s %s", info.PlatformVersion, runtime.GOARCH, info.KernelVersion), nil
}

// LoggedOnUser returns the current interactively logged-in user, or the
// process owner if no session is reported.
func LoggedOnUser() (string, error) {
	users, err := host.Users()
	if err == nil && len(users) > 0 {
		return users[0].User, nil
	}
	return currentUser()
}

// SystemInfo is the subset of host information the agent-info check-in mode
// reports beyond OS string, logged-on user and reboot-required.
type SystemInfo struct {
	TotalRAM uint64
	BootTime uint64
	Arch     string
	Plat     string
}

// GetSystemInfo returns total RAM, boot time, architecture and platform
// name for the agent-info check-in payload.
func GetSystemInfo() (SystemInfo, error) {
	info, err := host.Info()
	if err != nil {
		return SystemInfo{}, apperr.IoError(err)
	}
	vm, err := mem.VirtualMemory()
	if err != nil {
		return SystemInfo{}, apperr.IoError(err)
	}
	return SystemInfo{
		TotalRAM: vm.Total,
		BootTime: info.BootTime,
		Arch:     runtime.GOARCH,
		Plat:     info.Platform,
	}, nil
}
