//go:build windows

package platform

import (
	"github.com/kandev/ironhive/internal/common/logger"
	"github.com/kandev/ironhive/internal/platform/svcwin"
	"github.com/kandev/ironhive/internal/platform/wmiwin"
	"github.com/kandev/ironhive/internal/platform/wuawin"
	"github.com/kandev/ironhive/internal/protocol"
)

func newWMICollector(log *logger.Logger) Collector { return wmiwin.New(log) }

func newUpdateAgent() UpdateAgent { return wuawin.New() }

func winServicesEnumerate() ([]protocol.WinServiceInfo, error) { return svcwin.Enumerate() }

func winServiceDetail(name string) (*protocol.WinServiceInfo, error) { return svcwin.Detail(name) }

func winServiceAction(name, action string) (bool, string) { return svcwin.Action(name, action) }

func winServiceEdit(name, startType string) (bool, string) { return svcwin.Edit(name, startType) }

func installedSoftware() ([]protocol.WinSoftwareInfo, error) { return svcwin.InstalledSoftware() }

func setAUOptions(enable bool) error { return svcwin.SetAUOptions(enable) }
