//go:build !windows

package hostprobe

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/kandev/ironhive/internal/executor"
)

var rebootRequiredFiles = []string{"/var/run/reboot-required", "/run/reboot-required"}

// SystemRebootRequired checks the distro-standard marker files first; if
// neither exists it falls back to running needs-restarting -r.
func SystemRebootRequired() (bool, error) {
	for _, path := range rebootRequiredFiles {
		if _, err := os.Stat(path); err == nil {
			return true, nil
		}
	}

	for _, dir := range []string{"/usr/bin", "/bin"} {
		bin := filepath.Join(dir, "needs-restarting")
		if _, err := os.Stat(bin); err != nil {
			continue
		}
		out, err := executor.Run(context.Background(), executor.Options{
			Program: bin,
			Args:    []string{"-r"},
			Timeout: 15 * time.Second,
		})
		if err != nil {
			return false, nil
		}
		return out.ExitStatus == 0, nil
	}
	return false, nil
}

// RebootNow issues an immediate reboot.
func RebootNow(ctx context.Context) error {
	_, err := executor.Run(ctx, executor.Options{
		Program: "reboot",
		Timeout: 15 * time.Second,
	})
	return err
}
