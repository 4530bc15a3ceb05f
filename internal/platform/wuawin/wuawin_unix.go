//go:build !windows

package wuawin

import (
	apperr "github.com/kandev/ironhive/internal/common/errors"
	"github.com/kandev/ironhive/internal/protocol"
)

// Agent is a platform-parity stub: the Windows Update Agent COM object has
// no non-Windows equivalent, so both operations report UnsupportedRequest.
type Agent struct{}

func New() *Agent { return &Agent{} }

func (a *Agent) GetWinUpdates() ([]protocol.WinUpdateInfo, error) {
	return nil, apperr.UnsupportedRequest("getwinupdates")
}

func (a *Agent) InstallWinUpdates(guids []string) (bool, error) {
	return false, apperr.UnsupportedRequest("installwinupdates")
}
