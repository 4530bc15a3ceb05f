package checkin

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kandev/ironhive/internal/common/logger"
	"github.com/kandev/ironhive/internal/identity"
	"github.com/kandev/ironhive/internal/protocol"
	"github.com/kandev/ironhive/internal/wmicache"
)

type recordingBroker struct {
	agentID string
	msgs    []*nats.Msg
}

func (b *recordingBroker) AgentID() string { return b.agentID }

func (b *recordingBroker) PublishMsg(msg *nats.Msg) error {
	b.msgs = append(b.msgs, msg)
	return nil
}

type emptyCollector struct{}

func (emptyCollector) Collect() (wmicache.Snapshot, error) {
	return wmicache.Snapshot{}, nil
}

func newTestProducer(broker *recordingBroker) *Producer {
	ident := identity.FromAgentID(broker.agentID, "1.2.3", "test-host", nil)
	return New(broker, ident, wmicache.Start(emptyCollector{}), logger.Default())
}

func TestSendHelloPublishesOnOwnSubject(t *testing.T) {
	broker := &recordingBroker{agentID: "agent-abc"}
	p := newTestProducer(broker)

	err := p.Send(context.Background(), protocol.CheckinHello)
	require.NoError(t, err)

	require.Len(t, broker.msgs, 1)
	msg := broker.msgs[0]
	assert.Equal(t, "agent-abc", msg.Subject)

	wantSubject, err := protocol.CheckinHello.Subject()
	require.NoError(t, err)
	assert.Equal(t, wantSubject, msg.Reply)

	var payload HelloPayload
	require.NoError(t, json.Unmarshal(msg.Data, &payload))
	assert.Equal(t, "agent-abc", payload.AgentID)
	assert.Equal(t, "1.2.3", payload.Version)
}

func TestSendAgentInfoIncludesHostName(t *testing.T) {
	broker := &recordingBroker{agentID: "agent-xyz"}
	p := newTestProducer(broker)

	err := p.Send(context.Background(), protocol.CheckinAgentInfo)
	require.NoError(t, err)

	require.Len(t, broker.msgs, 1)
	var payload AgentInfoPayload
	require.NoError(t, json.Unmarshal(broker.msgs[0].Data, &payload))
	assert.Equal(t, "test-host", payload.HostName)
	assert.Equal(t, "agent-xyz", payload.AgentID)
}

func TestSendWMIPublishesCollectorSnapshot(t *testing.T) {
	broker := &recordingBroker{agentID: "agent-wmi"}
	p := newTestProducer(broker)

	err := p.Send(context.Background(), protocol.CheckinWMI)
	require.NoError(t, err)

	var payload WMIPayload
	require.NoError(t, json.Unmarshal(broker.msgs[0].Data, &payload))
	assert.Equal(t, "agent-wmi", payload.AgentID)
}
