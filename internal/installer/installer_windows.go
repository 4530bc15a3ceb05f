//go:build windows

package installer

import (
	"go.uber.org/zap"

	"github.com/kandev/ironhive/internal/common/logger"
)

// TODO(install): register the executable as a Windows service via
// golang.org/x/sys/windows/svc/mgr.CreateService (same mgr handle svcwin
// already uses for service control) so `ironhive rpc` runs at boot under
// the Local System account. Left as an explicit follow-up: the core's
// contract with this collaborator is the CLI surface, not SCM registration
// mechanics (spec §1 "installer/uninstaller... are treated as
// collaborators; only the interfaces they expose to the core are
// specified").
func registerService(exePath string, log *logger.Logger) error {
	log.Warn("windows service registration not yet implemented", zap.String("exe_path", exePath))
	return nil
}

func unregisterService(log *logger.Logger) error {
	log.Warn("windows service removal not yet implemented")
	return nil
}
