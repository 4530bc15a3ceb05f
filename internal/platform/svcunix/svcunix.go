//go:build !windows

// Package svcunix satisfies the service-control and installed-software
// contract on platforms with no Service Control Manager: every operation
// reports UnsupportedRequest, matching the dispatcher's platform-parity
// error path rather than a build failure.
package svcunix

import (
	apperr "github.com/kandev/ironhive/internal/common/errors"
	"github.com/kandev/ironhive/internal/protocol"
)

func Enumerate() ([]protocol.WinServiceInfo, error) {
	return nil, apperr.UnsupportedRequest("winservices")
}

func Detail(name string) (*protocol.WinServiceInfo, error) {
	return nil, apperr.UnsupportedRequest("winsvcdetail")
}

func Action(name, action string) (bool, string) {
	return false, apperr.UnsupportedRequest("winsvcaction").Error()
}

func Edit(name, startType string) (bool, string) {
	return false, apperr.UnsupportedRequest("editwinsvc").Error()
}

func InstalledSoftware() ([]protocol.WinSoftwareInfo, error) {
	return nil, apperr.UnsupportedRequest("softwarelist")
}

func SetAUOptions(enable bool) error {
	return apperr.UnsupportedRequest("patchmgmt")
}
