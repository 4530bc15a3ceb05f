//go:build windows

package hostprobe

import (
	"context"
	"time"

	"golang.org/x/sys/windows/registry"

	"github.com/kandev/ironhive/internal/executor"
)

const rebootRequiredKeyPath = `SOFTWARE\Microsoft\Windows\CurrentVersion\WindowsUpdate\Auto Update\RebootRequired`

// SystemRebootRequired checks the well-known Windows Update registry marker.
func SystemRebootRequired() (bool, error) {
	k, err := registry.OpenKey(registry.LOCAL_MACHINE, rebootRequiredKeyPath, registry.QUERY_VALUE)
	if err != nil {
		return false, nil
	}
	defer k.Close()
	return true, nil
}

// RebootNow issues a 5-second delayed, forced reboot.
func RebootNow(ctx context.Context) error {
	_, err := executor.Run(ctx, executor.Options{
		Program: "shutdown.exe",
		Args:    []string{"/r", "/t", "5", "/f"},
		Timeout: 15 * time.Second,
	})
	return err
}
