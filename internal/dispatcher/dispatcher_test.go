package dispatcher

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kandev/ironhive/internal/checkin"
	"github.com/kandev/ironhive/internal/common/logger"
	"github.com/kandev/ironhive/internal/identity"
	"github.com/kandev/ironhive/internal/wmicache"
)

// fakeBroker is an in-process stand-in for *transport.Broker: Subscribe
// hands back a no-op subscription and records the handler so tests can feed
// it messages directly; PublishMsg records replies.
type fakeBroker struct {
	mu      sync.Mutex
	agentID string
	handler nats.MsgHandler
	replies []*nats.Msg
	flushed int
}

func (b *fakeBroker) AgentID() string { return b.agentID }

func (b *fakeBroker) Subscribe(handler nats.MsgHandler) (*nats.Subscription, error) {
	b.mu.Lock()
	b.handler = handler
	b.mu.Unlock()
	return &nats.Subscription{}, nil
}

func (b *fakeBroker) PublishMsg(msg *nats.Msg) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.replies = append(b.replies, msg)
	return nil
}

func (b *fakeBroker) Flush() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.flushed++
	return nil
}

func (b *fakeBroker) lastReply() *nats.Msg {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.replies) == 0 {
		return nil
	}
	return b.replies[len(b.replies)-1]
}

func newTestDispatcher(t *testing.T, broker *fakeBroker) *Dispatcher {
	t.Helper()
	ident := identity.FromAgentID(broker.agentID, "1.2.3", "test-host", nil)
	producer := checkin.New(broker, ident, wmicache.Handle{}, logger.Default())
	return New(broker, ident, producer, logger.Default())
}

// awaitReply polls until PublishMsg has recorded a reply or the deadline
// passes, since handleMessage runs on its own goroutine.
func awaitReply(t *testing.T, broker *fakeBroker) *nats.Msg {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if msg := broker.lastReply(); msg != nil {
			return msg
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("timed out waiting for reply")
	return nil
}

func TestDispatchPingRepliesPong(t *testing.T) {
	broker := &fakeBroker{agentID: "agent-ping"}
	d := newTestDispatcher(t, broker)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		require.NoError(t, d.Run(ctx))
	}()

	// Wait for Subscribe to register the handler.
	deadline := time.Now().Add(time.Second)
	for broker.handler == nil && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	require.NotNil(t, broker.handler)

	broker.handler(&nats.Msg{
		Subject: "agent-ping",
		Reply:   "agent-ping.reply",
		Data:    []byte(`{"func":"ping"}`),
	})

	reply := awaitReply(t, broker)
	assert.Equal(t, "agent-ping.reply", reply.Subject)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(reply.Data, &decoded))
	assert.Equal(t, "pong", decoded["resp"])
}

func TestDispatchKillProcFailureSetsErrorHeader(t *testing.T) {
	broker := &fakeBroker{agentID: "agent-killproc"}
	d := newTestDispatcher(t, broker)

	d.handleMessage(context.Background(), &nats.Msg{
		Subject: "agent-killproc",
		Reply:   "agent-killproc.reply",
		Header:  nats.Header{},
		Data:    []byte(`{"func":"killproc","proc_pid":0}`),
	})

	reply := broker.lastReply()
	require.NotNil(t, reply)
	assert.NotEmpty(t, reply.Header.Get(errorHeader))
	assert.NotEmpty(t, reply.Header.Get(errorCodeHeader))
}

func TestDispatchWithNoReplySubjectIsDropped(t *testing.T) {
	broker := &fakeBroker{agentID: "agent-noreply"}
	d := newTestDispatcher(t, broker)

	d.handleMessage(context.Background(), &nats.Msg{
		Subject: "agent-noreply",
		Data:    []byte(`{"func":"ping"}`),
	})

	assert.Nil(t, broker.lastReply())
	assert.Equal(t, 1, broker.flushed)
}

func TestDispatchDecodeFailureDropsSilently(t *testing.T) {
	broker := &fakeBroker{agentID: "agent-badjson"}
	d := newTestDispatcher(t, broker)

	d.handleMessage(context.Background(), &nats.Msg{
		Subject: "agent-badjson",
		Reply:   "agent-badjson.reply",
		Data:    []byte(`not json`),
	})

	assert.Nil(t, broker.lastReply())
}
