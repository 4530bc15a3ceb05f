// Package platform is the build-tag-gated façade the dispatcher calls
// through: it forwards to the real Windows implementations (svcwin,
// wuawin, wmiwin) or to their non-Windows UnsupportedRequest stubs,
// without the dispatcher itself needing any //go:build conditionals.
package platform

import (
	"sync"

	"github.com/kandev/ironhive/internal/common/logger"
	"github.com/kandev/ironhive/internal/protocol"
	"github.com/kandev/ironhive/internal/wmicache"
)

// UpdateAgent is implemented by both the real Windows Update Agent wrapper
// and its non-Windows stub.
type UpdateAgent interface {
	GetWinUpdates() ([]protocol.WinUpdateInfo, error)
	InstallWinUpdates(guids []string) (bool, error)
}

// Collector is implemented by both the real WMI collector and its
// non-Windows stub; it satisfies wmicache.Collector.
type Collector interface {
	Collect() (wmicache.Snapshot, error)
}

func NewWMICollector(log *logger.Logger) Collector {
	return newWMICollector(log)
}

// updateAgent is constructed once and shared by every GetWinUpdates/
// InstallWinUpdates request: its try-lock (spec §5, §4.8) only serializes
// concurrent operations if every caller acquires the same mutex.
var (
	updateAgentOnce     sync.Once
	updateAgentInstance UpdateAgent
)

// NewUpdateAgent returns the process-wide UpdateAgent, constructing it on
// first use.
func NewUpdateAgent() UpdateAgent {
	updateAgentOnce.Do(func() {
		updateAgentInstance = newUpdateAgent()
	})
	return updateAgentInstance
}

func WinServicesEnumerate() ([]protocol.WinServiceInfo, error) {
	return winServicesEnumerate()
}

func WinServiceDetail(name string) (*protocol.WinServiceInfo, error) {
	return winServiceDetail(name)
}

func WinServiceAction(name, action string) (bool, string) {
	return winServiceAction(name, action)
}

func WinServiceEdit(name, startType string) (bool, string) {
	return winServiceEdit(name, startType)
}

func InstalledSoftware() ([]protocol.WinSoftwareInfo, error) {
	return installedSoftware()
}

// SetAUOptions writes the AUOptions policy value (1 to enable automatic
// update scanning, 0 to disable) under the WindowsUpdate\AU policy key.
func SetAUOptions(enable bool) error {
	return setAUOptions(enable)
}
