package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateIDLengthAndAlphabet(t *testing.T) {
	id, err := GenerateID()
	require.NoError(t, err)
	assert.Len(t, id, idLength)
	for _, c := range id {
		assert.Contains(t, alphabet, string(c))
	}
}

func TestGenerateIDIsUnique(t *testing.T) {
	a, err := GenerateID()
	require.NoError(t, err)
	b, err := GenerateID()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestNewPopulatesFields(t *testing.T) {
	ident, err := New("1.2.3", "host01", []string{"nats://broker:4222"})
	require.NoError(t, err)
	assert.Len(t, ident.AgentID, idLength)
	assert.Equal(t, "1.2.3", ident.Version)
	assert.Equal(t, "host01", ident.HostName)
	assert.Equal(t, []string{"nats://broker:4222"}, ident.BrokerAddresses)
}

func TestFromAgentIDPreservesGivenID(t *testing.T) {
	ident := FromAgentID("fixed-id", "1.2.3", "host01", nil)
	assert.Equal(t, "fixed-id", ident.AgentID)
}
