//go:build windows

// Package svcwin enumerates, inspects, edits, starts and stops Windows
// services through the Service Control Manager, and reads installed
// software off the Uninstall registry keys.
package svcwin

import (
	"fmt"
	"runtime"
	"time"
	"unsafe"

	"github.com/dustin/go-humanize"
	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/registry"
	"golang.org/x/sys/windows/svc"
	"golang.org/x/sys/windows/svc/mgr"

	apperr "github.com/kandev/ironhive/internal/common/errors"
	"github.com/kandev/ironhive/internal/protocol"
)

var statusText = map[svc.State]string{
	svc.Stopped:         "stopped",
	svc.StartPending:    "start_pending",
	svc.StopPending:     "stop_pending",
	svc.Running:         "running",
	svc.ContinuePending: "continue_pending",
	svc.PausePending:    "pause_pending",
	svc.Paused:          "paused",
}

var startTypeText = map[uint32]string{
	mgr.StartManual: "Manual",
	0:               "Boot",
	1:               "System",
	2:               "Automatic",
	4:               "Disabled",
}

func statusString(s svc.State) string {
	if t, ok := statusText[s]; ok {
		return t
	}
	return "unknown"
}

func startTypeString(t uint32) string {
	if s, ok := startTypeText[t]; ok {
		return s
	}
	return "unknown"
}

// Enumerate lists every service known to the SCM, in all states.
func Enumerate() ([]protocol.WinServiceInfo, error) {
	m, err := mgr.Connect()
	if err != nil {
		return nil, apperr.WindowsError(err)
	}
	defer m.Disconnect()

	names, err := m.ListServices()
	if err != nil {
		return nil, apperr.WindowsError(err)
	}

	out := make([]protocol.WinServiceInfo, 0, len(names))
	for _, name := range names {
		info, err := detailLocked(m, name)
		if err != nil {
			continue
		}
		out = append(out, *info)
	}
	return out, nil
}

// Detail returns the record for one named service.
func Detail(name string) (*protocol.WinServiceInfo, error) {
	m, err := mgr.Connect()
	if err != nil {
		return nil, apperr.WindowsError(err)
	}
	defer m.Disconnect()

	return detailLocked(m, name)
}

func detailLocked(m *mgr.Mgr, name string) (*protocol.WinServiceInfo, error) {
	s, err := m.OpenService(name)
	if err != nil {
		return nil, apperr.WindowsError(err)
	}
	defer s.Close()

	status, err := s.Query()
	if err != nil {
		return nil, apperr.WindowsError(err)
	}
	cfg, err := s.Config()
	if err != nil {
		return nil, apperr.WindowsError(err)
	}

	delayed, _ := queryDelayedAutoStart(s)

	return &protocol.WinServiceInfo{
		Name:             name,
		Status:           statusString(status.State),
		DisplayName:      cfg.DisplayName,
		BinPath:          cfg.BinaryPathName,
		Description:      cfg.Description,
		Username:         cfg.ServiceStartName,
		Pid:              status.ProcessId,
		StartType:        startTypeString(cfg.StartType),
		DelayedAutoStart: delayed,
	}, nil
}

func queryDelayedAutoStart(s *mgr.Service) (bool, error) {
	buf := make([]byte, unsafe.Sizeof(windows.SERVICE_DELAYED_AUTO_START_INFO{}))
	var needed uint32
	if err := windows.QueryServiceConfig2(s.Handle,
		windows.SERVICE_CONFIG_DELAYED_AUTO_START_INFO,
		&buf[0], uint32(len(buf)), &needed); err != nil {
		return false, err // best-effort; caller defaults to false on error
	}
	info := (*windows.SERVICE_DELAYED_AUTO_START_INFO)(unsafe.Pointer(&buf[0]))
	return info.IsDelayedAutoStartUp != 0, nil
}

// Action issues start or stop on the named service. Stop polls every 500ms
// until the service reports Stopped, or 30s elapse.
func Action(name, action string) (bool, string) {
	m, err := mgr.Connect()
	if err != nil {
		return false, err.Error()
	}
	defer m.Disconnect()

	s, err := m.OpenService(name)
	if err != nil {
		return false, err.Error()
	}
	defer s.Close()

	switch action {
	case "start":
		if err := s.Start(); err != nil {
			return false, err.Error()
		}
		return true, ""
	case "stop":
		if _, err := s.Control(svc.Stop); err != nil {
			return false, err.Error()
		}
		deadline := time.Now().Add(30 * time.Second)
		for {
			status, err := s.Query()
			if err != nil {
				return false, err.Error()
			}
			if status.State == svc.Stopped {
				return true, ""
			}
			if time.Now().After(deadline) {
				return false, "timeout waiting for service to stop"
			}
			time.Sleep(500 * time.Millisecond)
		}
	default:
		return false, fmt.Sprintf("unknown action: %s", action)
	}
}

// Edit rewrites start_type (and delayed-auto-start when start_type is
// "autodelay") for a named service.
func Edit(name, startType string) (bool, string) {
	m, err := mgr.Connect()
	if err != nil {
		return false, err.Error()
	}
	defer m.Disconnect()

	s, err := m.OpenService(name)
	if err != nil {
		return false, err.Error()
	}
	defer s.Close()

	cfg, err := s.Config()
	if err != nil {
		return false, err.Error()
	}

	delayed := false
	switch startType {
	case "auto":
		cfg.StartType = mgr.StartAutomatic
	case "autodelay":
		cfg.StartType = mgr.StartAutomatic
		delayed = true
	case "manual":
		cfg.StartType = mgr.StartManual
	case "disabled":
		cfg.StartType = mgr.StartDisabled
	default:
		return false, fmt.Sprintf("unknown start_type: %s", startType)
	}

	if err := s.UpdateConfig(cfg); err != nil {
		return false, err.Error()
	}
	if err := setDelayedAutoStart(s, delayed); err != nil {
		return false, err.Error()
	}
	return true, ""
}

func setDelayedAutoStart(s *mgr.Service, delayed bool) error {
	info := windows.SERVICE_DELAYED_AUTO_START_INFO{}
	if delayed {
		info.IsDelayedAutoStartUp = 1
	}
	return windows.ChangeServiceConfig2(s.Handle,
		windows.SERVICE_CONFIG_DELAYED_AUTO_START_INFO,
		(*byte)(unsafe.Pointer(&info)))
}

// uninstallKeyPaths returns the registry keys to scan for installed
// software. On 64-bit Windows both the native and Wow6432Node keys are read.
func uninstallKeyPaths() []string {
	paths := []string{`SOFTWARE\Microsoft\Windows\CurrentVersion\Uninstall`}
	if runtime.GOARCH == "amd64" || runtime.GOARCH == "arm64" {
		paths = append(paths, `SOFTWARE\Wow6432Node\Microsoft\Windows\CurrentVersion\Uninstall`)
	}
	return paths
}

// InstalledSoftware reads the Uninstall registry keys and returns one entry
// per sub-key that carries a DisplayName value.
func InstalledSoftware() ([]protocol.WinSoftwareInfo, error) {
	var out []protocol.WinSoftwareInfo

	for _, path := range uninstallKeyPaths() {
		k, err := registry.OpenKey(registry.LOCAL_MACHINE, path, registry.READ)
		if err != nil {
			continue
		}
		names, err := k.ReadSubKeyNames(-1)
		k.Close()
		if err != nil {
			continue
		}

		for _, name := range names {
			entry, ok := readSoftwareEntry(path, name)
			if ok {
				out = append(out, entry)
			}
		}
	}
	return out, nil
}

func readSoftwareEntry(basePath, name string) (protocol.WinSoftwareInfo, bool) {
	k, err := registry.OpenKey(registry.LOCAL_MACHINE, basePath+`\`+name, registry.READ)
	if err != nil {
		return protocol.WinSoftwareInfo{}, false
	}
	defer k.Close()

	displayName, _, err := k.GetStringValue("DisplayName")
	if err != nil || displayName == "" {
		return protocol.WinSoftwareInfo{}, false
	}

	getString := func(key string) string {
		v, _, _ := k.GetStringValue(key)
		return v
	}

	installDate := formatInstallDate(getString("InstallDate"))
	size := formatSize(k)

	return protocol.WinSoftwareInfo{
		Name:        displayName,
		Version:     getString("DisplayVersion"),
		Publisher:   getString("Publisher"),
		InstallDate: installDate,
		Size:        size,
		Source:      getString("InstallSource"),
		Location:    getString("InstallLocation"),
		Uninstall:   getString("UninstallString"),
	}, true
}

// formatInstallDate converts YYYYMMDD to YYYY-MM-DD; any other shape is
// passed through unchanged.
func formatInstallDate(raw string) string {
	if len(raw) != 8 {
		return raw
	}
	return raw[0:4] + "-" + raw[4:6] + "-" + raw[6:8]
}

// auPolicyKeyPath is the WindowsUpdate policy key PatchMgmt writes AUOptions
// under: 1 enables automatic update scanning, 0 disables it.
const auPolicyKeyPath = `SOFTWARE\Policies\Microsoft\Windows\WindowsUpdate\AU`

// SetAUOptions writes the AUOptions policy value, creating the key if it
// does not already exist.
func SetAUOptions(enable bool) error {
	k, _, err := registry.CreateKey(registry.LOCAL_MACHINE, auPolicyKeyPath, registry.SET_VALUE)
	if err != nil {
		return apperr.WindowsError(err)
	}
	defer k.Close()

	value := uint32(0)
	if enable {
		value = 1
	}
	if err := k.SetDWordValue("AUOptions", value); err != nil {
		return apperr.WindowsError(err)
	}
	return nil
}

func formatSize(k registry.Key) string {
	kib, _, err := k.GetIntegerValue("EstimatedSize")
	if err != nil {
		return ""
	}
	return humanize.Bytes(kib * 1024)
}
