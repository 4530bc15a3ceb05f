//go:build !windows

package executor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperr "github.com/kandev/ironhive/internal/common/errors"
	"github.com/kandev/ironhive/internal/protocol"
)

func TestRunShellEchoesOutput(t *testing.T) {
	out, err := RunShell(context.Background(), "bash", "echo hi", 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "hi\n", out.Stdout)
	assert.EqualValues(t, 0, out.ExitStatus)
}

func TestRunShellTimesOut(t *testing.T) {
	_, err := RunShell(context.Background(), "bash", "sleep 5", 50*time.Millisecond)
	require.Error(t, err)
	var appErr *apperr.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.CodeElapsed, appErr.Code)
}

func TestRunScriptDirectlyMode(t *testing.T) {
	out, err := RunScript(context.Background(), "#!/bin/sh\necho from-script", protocol.ScriptMode{Kind: protocol.ScriptModeDirectly}, nil, nil, 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "from-script\n", out.Stdout)
}

func TestRunScriptBinaryMode(t *testing.T) {
	mode := protocol.ScriptMode{Kind: protocol.ScriptModeBinary, Path: "sh", Ext: ".sh"}
	out, err := RunScript(context.Background(), "echo via-interpreter", mode, nil, nil, 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "via-interpreter\n", out.Stdout)
}
