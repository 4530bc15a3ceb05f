package hostprobe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCPUUsageIsFinite(t *testing.T) {
	usage, err := CPUUsage()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, usage, 0.0)
	assert.LessOrEqual(t, usage, 100.0)
}

func TestLoadAvgIsFinite(t *testing.T) {
	one, five, fifteen, err := LoadAvg()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, one, 0.0)
	assert.GreaterOrEqual(t, five, 0.0)
	assert.GreaterOrEqual(t, fifteen, 0.0)
}

func TestProcsExcludesPidZero(t *testing.T) {
	procs, err := Procs()
	require.NoError(t, err)
	for _, p := range procs {
		assert.NotEqual(t, int32(0), p.Pid)
	}
}

func TestKillProcPidZeroIsNotFound(t *testing.T) {
	err := KillProc(0)
	assert.Error(t, err)
}

func TestDisksExcludePseudoDevices(t *testing.T) {
	disks, err := Disks()
	require.NoError(t, err)
	for _, d := range disks {
		assert.NotContains(t, d.Device, "dev/loop")
		assert.NotContains(t, d.Device, "devfs")
	}
}
