//go:build !windows

package installer

import (
	"go.uber.org/zap"

	"github.com/kandev/ironhive/internal/common/logger"
)

// TODO(install): author a systemd unit file (or equivalent init script)
// pointing at exePath and enable it via `systemctl enable --now`. Left as
// an explicit follow-up: the core's contract with this collaborator is the
// CLI surface, not systemd unit-file authorship mechanics (spec §1).
func registerService(exePath string, log *logger.Logger) error {
	log.Warn("unix service registration not yet implemented", zap.String("exe_path", exePath))
	return nil
}

func unregisterService(log *logger.Logger) error {
	log.Warn("unix service removal not yet implemented")
	return nil
}
