package tempfile

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCreatesUniqueFiles(t *testing.T) {
	a, err := New(".ps1")
	require.NoError(t, err)
	defer a.Remove()

	b, err := New(".ps1")
	require.NoError(t, err)
	defer b.Remove()

	assert.NotEqual(t, a.Path(), b.Path())
	assert.Contains(t, a.Path(), "ironhive-tmp-file-")
	assert.Contains(t, a.Path(), ".ps1")
}

func TestWriteAndRemove(t *testing.T) {
	f, err := New(".txt")
	require.NoError(t, err)

	require.NoError(t, f.WriteString("hello"))
	require.NoError(t, f.Close())

	data, err := os.ReadFile(f.Path())
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	require.NoError(t, f.Remove())
	_, err = os.Stat(f.Path())
	assert.True(t, os.IsNotExist(err))
}

func TestRemoveIsIdempotent(t *testing.T) {
	f, err := New("")
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.NoError(t, f.Remove())
	assert.NoError(t, f.Remove())
}
