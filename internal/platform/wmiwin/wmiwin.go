//go:build windows

// Package wmiwin implements the blocking WMI inventory collector that runs
// on the dedicated OS thread wmicache.Start spins up. It queries a fixed
// set of WMI classes and assembles them into the named mapping the
// check-in producer publishes under the "wmi" key.
package wmiwin

import (
	"go.uber.org/zap"

	"github.com/go-ole/go-ole"
	"github.com/yusufpapurcu/wmi"

	"github.com/kandev/ironhive/internal/common/logger"
	"github.com/kandev/ironhive/internal/wmicache"
)

// Collector runs the fixed WMI query set against the local machine.
type Collector struct {
	log *logger.Logger
}

// New returns a Collector. Call Collect only from the OS thread wmicache.Start
// dedicates to it; the constructor itself does no COM work.
func New(log *logger.Logger) *Collector {
	return &Collector{log: log}
}

// Collect initializes COM on the calling (dedicated) thread, runs every
// query, and returns the assembled snapshot. Row-level errors are logged
// and skipped; the operation never aborts for a single bad row.
func (c *Collector) Collect() (wmicache.Snapshot, error) {
	if err := ole.CoInitializeEx(0, ole.COINIT_MULTITHREADED); err != nil {
		return nil, err
	}
	defer ole.CoUninitialize()

	snapshot := wmicache.Snapshot{}

	c.queryWithExFallback(snapshot, "comp_sys_prod", "Win32_ComputerSystemProduct", "")
	c.queryWithExFallback(snapshot, "comp_sys", "Win32_ComputerSystem", "Win32_ComputerSystemEX")
	c.queryWithExFallback(snapshot, "network_config", "Win32_NetworkAdapterConfiguration", "")
	c.queryWithExFallback(snapshot, "mem", "Win32_PhysicalMemory", "Win32_PhysicalMemoryEX")
	c.queryWithExFallback(snapshot, "os", "Win32_OperatingSystem", "")
	c.queryWithExFallback(snapshot, "base_board", "Win32_BaseBoard", "")
	c.queryWithExFallback(snapshot, "bios", "Win32_BIOS", "Win32_BIOSEX")
	c.queryWithExFallback(snapshot, "disk", "Win32_DiskDrive", "")
	c.queryWithExFallback(snapshot, "network_adapter", "Win32_NetworkAdapter", "")
	c.queryWithExFallback(snapshot, "desktop_monitor", "Win32_DesktopMonitor", "")
	c.queryWithExFallback(snapshot, "cpu", "Win32_Processor", "Win32_ProcessorEX")
	c.queryWithExFallback(snapshot, "usb", "Win32_USBHub", "")
	c.queryWithExFallback(snapshot, "graphics", "Win32_VideoController", "")

	return snapshot, nil
}

// queryWithExFallback runs the *EX variant of a class first (for the four
// classes that have one); if the query fails to prepare it falls back to
// the plain class name. Individual row errors are logged and skipped.
func (c *Collector) queryWithExFallback(snapshot wmicache.Snapshot, key, class, exVariant string) {
	var rows []map[string]interface{}

	target := class
	if exVariant != "" {
		target = exVariant
	}

	query := wmi.CreateQuery(&rows, "", target)
	if err := wmi.Query(query, &rows); err != nil && exVariant != "" {
		c.log.Debug("wmi ex-variant query failed, falling back",
			zap.String("class", exVariant), zap.Error(err))
		query = wmi.CreateQuery(&rows, "", class)
		if err := wmi.Query(query, &rows); err != nil {
			c.log.Warn("wmi query failed", zap.String("class", class), zap.Error(err))
			snapshot[key] = []map[string]interface{}{}
			return
		}
	} else if err != nil {
		c.log.Warn("wmi query failed", zap.String("class", class), zap.Error(err))
		snapshot[key] = []map[string]interface{}{}
		return
	}

	snapshot[key] = rows
}
