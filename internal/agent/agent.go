// Package agent wires the identity, transport, check-in producer, and
// dispatcher into the long-lived object the rpc command runs: an agent
// object that is created by configuration at start, runs until its context
// is canceled, and is destroyed when the dispatcher loop terminates.
package agent

import (
	"context"
	"os"

	"go.uber.org/zap"

	"github.com/kandev/ironhive/internal/checkin"
	"github.com/kandev/ironhive/internal/common/config"
	"github.com/kandev/ironhive/internal/common/logger"
	"github.com/kandev/ironhive/internal/dispatcher"
	"github.com/kandev/ironhive/internal/identity"
	"github.com/kandev/ironhive/internal/platform"
	"github.com/kandev/ironhive/internal/transport"
	"github.com/kandev/ironhive/internal/wmicache"
)

// Version is overridden at build time via -ldflags.
var Version = "dev"

// Agent is the single long-lived object per process: one broker connection,
// one identity, one dispatcher.
type Agent struct {
	ident      *identity.Identity
	broker     *transport.Broker
	dispatcher *dispatcher.Dispatcher
	log        *logger.Logger
}

// New resolves the agent's identity from configuration, dials the broker,
// and constructs the dispatcher and check-in producer. A configured
// cfg.Agent.AgentID is used as is. Without one, a fresh agent_id is generated
// and stored in cfg.Agent.AgentID for this process only; it is not written
// to the configuration file, so the next start without a configured id
// generates a different one. Either way agent_id stays fixed for the
// lifetime of the process.
func New(cfg *config.Config, log *logger.Logger) (*Agent, error) {
	hostName, err := os.Hostname()
	if err != nil {
		hostName = "unknown"
	}

	var ident *identity.Identity
	if cfg.Agent.AgentID != "" {
		ident = identity.FromAgentID(cfg.Agent.AgentID, Version, hostName, cfg.Broker.Addrs)
	} else {
		ident, err = identity.New(Version, hostName, cfg.Broker.Addrs)
		if err != nil {
			return nil, err
		}
		cfg.Agent.AgentID = ident.AgentID
	}

	alog := log.WithFields(zap.String("agent_id", ident.AgentID))

	broker, err := transport.Connect(cfg.Broker, ident.AgentID, alog)
	if err != nil {
		return nil, err
	}

	wmiHandle := wmicache.Start(platform.NewWMICollector(alog))
	producer := checkin.New(broker, ident, wmiHandle, alog)
	disp := dispatcher.New(broker, ident, producer, alog)

	return &Agent{ident: ident, broker: broker, dispatcher: disp, log: alog}, nil
}

// Identity returns the agent's resolved identity.
func (a *Agent) Identity() *identity.Identity {
	return a.ident
}

// Run services requests until ctx is canceled; a closed broker connection
// does not end it. In-flight handlers are awaited before Run returns, and
// the broker connection is always drained on exit.
func (a *Agent) Run(ctx context.Context) error {
	a.log.Info("agent started", zap.String("version", Version))
	defer a.broker.Close()

	return a.dispatcher.Run(ctx)
}
