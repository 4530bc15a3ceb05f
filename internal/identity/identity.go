// Package identity generates and holds the agent's stable identity: the
// 40-character subscription subject the agent listens on, which also
// doubles as the broker "user" credential and the self-identifier echoed
// in every check-in.
package identity

import (
	"crypto/rand"
	"math/big"
)

const (
	idLength = 40
	alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// Identity is the immutable per-process agent identity.
type Identity struct {
	AgentID         string   `json:"agent_id"`
	Version         string   `json:"version"`
	HostName        string   `json:"host_name"`
	BrokerAddresses []string `json:"broker_addresses"`
}

// New generates a fresh random 40-character alphanumeric agent ID.
func New(version, hostName string, brokerAddresses []string) (*Identity, error) {
	id, err := GenerateID()
	if err != nil {
		return nil, err
	}
	return &Identity{
		AgentID:         id,
		Version:         version,
		HostName:        hostName,
		BrokerAddresses: brokerAddresses,
	}, nil
}

// FromAgentID builds an Identity around a previously persisted agent_id,
// preserving the invariant that agent_id is immutable across restarts.
func FromAgentID(agentID, version, hostName string, brokerAddresses []string) *Identity {
	return &Identity{
		AgentID:         agentID,
		Version:         version,
		HostName:        hostName,
		BrokerAddresses: brokerAddresses,
	}
}

// GenerateID produces a new random 40-character alphanumeric string using a
// cryptographically secure source.
func GenerateID() (string, error) {
	b := make([]byte, idLength)
	max := big.NewInt(int64(len(alphabet)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = alphabet[n.Int64()]
	}
	return string(b), nil
}
