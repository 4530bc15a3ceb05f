//go:build windows

package executor

import (
	"fmt"
	"os/exec"
	"syscall"
	"time"

	apperr "github.com/kandev/ironhive/internal/common/errors"
)

// detachedCreationFlags matches the spec's Windows detachment requirement:
// CREATE_NEW_PROCESS_GROUP so the child survives the parent's console, and
// DETACHED_PROCESS (0x8) so it gets no console of its own.
const detachedCreationFlags = syscall.CREATE_NEW_PROCESS_GROUP | 0x00000008

func setDetached(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.CreationFlags |= detachedCreationFlags
}

func setRawCmdLine(cmd *exec.Cmd, raw string) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.CmdLine = raw
}

func killProcessTree(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	_ = cmd.Process.Kill()
}

func cmdProgram() string {
	return resolveProgram("cmd.exe", `C:\Windows\System32\cmd.exe`)
}

func powershellProgram() string {
	return resolveProgram("powershell.exe", `C:\Windows\System32\WindowsPowerShell\v1.0\powershell.exe`)
}

// resolveProgram probes name via PATH lookup (equivalent to the spec's
// zero-arg invocation probe); on failure it falls back to the well-known
// System32 path for that binary.
func resolveProgram(name, fallback string) string {
	if path, err := exec.LookPath(name); err == nil {
		return path
	}
	return fallback
}

// shellOptions builds a cmd.exe or powershell.exe invocation. cmd appends
// the raw command as an unparsed tail of "/C " to preserve the caller's
// quoting; splitting it into argv elements would corrupt embedded quotes.
func shellOptions(shell, command string, timeout time.Duration) (Options, error) {
	switch shell {
	case "cmd":
		program := cmdProgram()
		return Options{
			Detached:   true,
			Program:    program,
			Timeout:    timeout,
			RawCmdLine: fmt.Sprintf(`%s /C %s`, quoteProgram(program), command),
		}, nil
	case "powershell":
		return Options{
			Detached: true,
			Program:  powershellProgram(),
			Args:     []string{"-NonInteractive", "-NoProfile", command},
			Timeout:  timeout,
		}, nil
	default:
		return Options{}, apperr.UnsupportedShell(shell)
	}
}

func quoteProgram(program string) string {
	return `"` + program + `"`
}
