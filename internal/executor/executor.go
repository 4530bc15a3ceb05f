// Package executor spawns external processes and scripts with a timeout,
// captures their stdout and stderr separately, and reports exit status. All three
// invocation shapes the dispatcher needs (shell command, script body,
// raw exe) share the same bounded-execution core; only command-line
// construction differs.
package executor

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"time"

	apperr "github.com/kandev/ironhive/internal/common/errors"
	"github.com/kandev/ironhive/internal/protocol"
	"github.com/kandev/ironhive/internal/tempfile"
)

// Options configures one bounded external-process invocation.
type Options struct {
	Detached bool
	Program  string
	Args     []string
	EnvVars  []string
	Timeout  time.Duration

	// RawCmdLine, when set, overrides the Windows command line verbatim
	// instead of letting exec.Cmd re-quote Args. This is required for
	// cmd.exe /C <tail>: splitting the user's command into argv elements
	// would corrupt embedded quotes. Ignored on non-Windows platforms.
	RawCmdLine string
}

// Output is the captured result of a process that exited before its timeout.
type Output struct {
	Stdout     string
	Stderr     string
	ExitStatus int32
}

// signalExitCode is reported when a process is killed by signal with no
// numeric exit code available from the OS.
const signalExitCode = 85

// Run spawns Program with Args and EnvVars, waits up to Timeout, and
// returns the captured output. If the timeout elapses the process is
// killed (on Unix its process group receives SIGTERM), Run waits for it to
// exit, and apperr.Elapsed is returned.
func Run(ctx context.Context, opts Options) (*Output, error) {
	runCtx := ctx
	var cancel context.CancelFunc
	if opts.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cmd := exec.Command(opts.Program, opts.Args...)
	if len(opts.EnvVars) > 0 {
		cmd.Env = append(os.Environ(), opts.EnvVars...)
	}

	if opts.RawCmdLine != "" {
		setRawCmdLine(cmd, opts.RawCmdLine)
	}

	if opts.Detached {
		setDetached(cmd)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, apperr.IoError(err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-runCtx.Done():
		killProcessTree(cmd)
		<-done
		return nil, apperr.Elapsed(opts.Timeout)
	case err := <-done:
		code, waitErr := exitCode(err)
		if waitErr != nil {
			return nil, apperr.IoError(waitErr)
		}
		return &Output{Stdout: stdout.String(), Stderr: stderr.String(), ExitStatus: code}, nil
	}
}

// exitCode interprets a Wait() error as a numeric exit code.
func exitCode(err error) (int32, error) {
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if exitErr.ExitCode() >= 0 {
			return int32(exitErr.ExitCode()), nil
		}
		return signalExitCode, nil
	}
	return 0, err
}

// RunShell builds the appropriate command line for shell, then runs it.
// On Windows "cmd" invokes cmd.exe /C <raw tail> preserving the user's
// quoting; "powershell" invokes powershell.exe -NonInteractive -NoProfile
// <command>; any other shell name is UnsupportedShell. On non-Windows any
// requested shell is invoked as "<shell> -c <command>".
func RunShell(ctx context.Context, shell, command string, timeout time.Duration) (*Output, error) {
	opts, err := shellOptions(shell, command, timeout)
	if err != nil {
		return nil, err
	}
	return Run(ctx, opts)
}

// RunScript materializes code to a uniquely named temp file (whose
// extension is mode.Extension()) and invokes it per mode, deleting the
// temp file on every exit path. Cmd mode is the exception: it runs cmd.exe
// with args alone, creates no temp file and does not use code.
func RunScript(ctx context.Context, code string, mode protocol.ScriptMode, args []string, env []string, timeout time.Duration) (*Output, error) {
	if mode.Kind == "" {
		// An omitted "mode" field decodes to the zero value; the original's
		// #[serde(default)] resolves that to Directly rather than an error.
		mode.Kind = protocol.ScriptModeDirectly
	}

	if mode.Kind == protocol.ScriptModeCmd {
		opts := Options{
			Detached: true,
			Program:  cmdProgram(),
			Args:     args,
			EnvVars:  env,
			Timeout:  timeout,
		}
		return Run(ctx, opts)
	}

	file, err := tempfile.New(mode.Extension())
	if err != nil {
		return nil, err
	}
	defer file.Remove()

	body := trimScript(code)
	if err := file.WriteString(body); err != nil {
		return nil, apperr.IoError(err)
	}
	if err := file.Close(); err != nil {
		return nil, apperr.IoError(err)
	}

	opts, err := scriptOptions(mode, file.Path(), args, env, timeout)
	if err != nil {
		return nil, err
	}
	return Run(ctx, opts)
}

func trimScript(code string) string {
	start, end := 0, len(code)
	for start < end && isSpace(code[start]) {
		start++
	}
	for end > start && isSpace(code[end-1]) {
		end--
	}
	return code[start:end]
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

func scriptOptions(mode protocol.ScriptMode, path string, args, env []string, timeout time.Duration) (Options, error) {
	switch mode.Kind {
	case protocol.ScriptModePowerShell:
		return Options{
			Detached: true,
			Program:  powershellProgram(),
			Args:     append([]string{"-NonInteractive", "-NoProfile", "-ExecutionPolicy", "Bypass", path}, args...),
			EnvVars:  env,
			Timeout:  timeout,
		}, nil
	case protocol.ScriptModeBinary:
		return Options{
			Detached: true,
			Program:  mode.Path,
			Args:     append([]string{path}, args...),
			EnvVars:  env,
			Timeout:  timeout,
		}, nil
	case protocol.ScriptModeDirectly:
		return Options{
			Detached: true,
			Program:  path,
			Args:     args,
			EnvVars:  env,
			Timeout:  timeout,
		}, nil
	default:
		return Options{}, apperr.UnsupportedShell(string(mode.Kind))
	}
}
