//go:build !windows

package platform

import (
	"github.com/kandev/ironhive/internal/common/logger"
	"github.com/kandev/ironhive/internal/platform/svcunix"
	"github.com/kandev/ironhive/internal/platform/wmiwin"
	"github.com/kandev/ironhive/internal/platform/wuawin"
	"github.com/kandev/ironhive/internal/protocol"
)

func newWMICollector(log *logger.Logger) Collector { return wmiwin.New(log) }

func newUpdateAgent() UpdateAgent { return wuawin.New() }

func winServicesEnumerate() ([]protocol.WinServiceInfo, error) { return svcunix.Enumerate() }

func winServiceDetail(name string) (*protocol.WinServiceInfo, error) { return svcunix.Detail(name) }

func winServiceAction(name, action string) (bool, string) { return svcunix.Action(name, action) }

func winServiceEdit(name, startType string) (bool, string) { return svcunix.Edit(name, startType) }

func installedSoftware() ([]protocol.WinSoftwareInfo, error) { return svcunix.InstalledSoftware() }

func setAUOptions(enable bool) error { return svcunix.SetAUOptions(enable) }
