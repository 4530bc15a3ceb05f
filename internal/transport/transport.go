// Package transport owns the broker connection and subscription lifecycle:
// dialing the NATS cluster with the options spec'd for the agent, listening
// on the agent's own identity subject, and publishing replies/check-ins.
package transport

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/kandev/ironhive/internal/common/config"
	"github.com/kandev/ironhive/internal/common/logger"
)

// Broker wraps a NATS connection with the subscription/publish surface the
// dispatcher and check-in producer need.
type Broker struct {
	conn   *nats.Conn
	log    *logger.Logger
	cfg    config.BrokerConfig
	agentID string
}

// Connect dials the broker cluster using the agent's identity as both the
// logical connection name and, when UserAndPassword is set, the user
// credential. TLS is opt-in: RequireTLS defaults to false and plaintext
// connections are accepted.
func Connect(cfg config.BrokerConfig, agentID string, log *logger.Logger) (*Broker, error) {
	b := &Broker{log: log, cfg: cfg, agentID: agentID}

	opts := []nats.Option{
		nats.Name(agentID),
		nats.Timeout(cfg.ConnectionTimeout()),
		nats.PingInterval(cfg.PingInterval()),
		nats.MaxReconnects(-1),
		nats.RetryOnFailedConnect(true),
		nats.CustomReconnectDelay(reconnectDelay),
		nats.NoEcho(cfg.NoEcho),

		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.Warn("broker disconnected", zap.Error(err))
			} else {
				log.Debug("broker disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Debug("broker reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			if err := nc.LastError(); err != nil {
				log.Error("broker connection closed", zap.Error(err))
			} else {
				log.Debug("broker connection closed")
			}
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			subject := ""
			if sub != nil {
				subject = sub.Subject
			}
			log.Error("broker error", zap.Error(err), zap.String("subject", subject))
		}),
	}

	if cfg.ReadBufferCapacity > 0 {
		opts = append(opts, nats.ReconnectBufSize(int(cfg.ReadBufferCapacity)))
	}
	if cfg.SubscriptionCapacity > 0 {
		opts = append(opts, nats.SubChanLen(cfg.SubscriptionCapacity))
	}
	if cfg.RetainServersOrder {
		opts = append(opts, nats.DontRandomize())
	}
	if cfg.IgnoreDiscoveredServers {
		opts = append(opts, nats.IgnoreDiscoveredServers())
	}

	if cfg.UserAndPassword {
		opts = append(opts, nats.UserInfo(agentID, cfg.Pass))
	}
	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}
	if cfg.NKey != "" {
		opt, err := nats.NkeyOptionFromSeed(cfg.NKey)
		if err != nil {
			return nil, fmt.Errorf("transport: invalid nkey seed: %w", err)
		}
		opts = append(opts, opt)
	}
	if cfg.CredentialsFile != "" {
		opts = append(opts, nats.UserCredentials(cfg.CredentialsFile))
	}
	if cfg.RootCertificates != "" {
		opts = append(opts, nats.RootCAs(cfg.RootCertificates))
	}
	if cfg.ClientCertificateCert != "" && cfg.ClientCertificateKey != "" {
		opts = append(opts, nats.ClientCert(cfg.ClientCertificateCert, cfg.ClientCertificateKey))
	}
	if cfg.RequireTLS {
		opts = append(opts, nats.Secure())
	}

	addr := joinAddrs(cfg.Addrs)
	conn, err := nats.Connect(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("transport: failed to connect to broker: %w", err)
	}

	b.conn = conn
	log.Info("connected to broker", zap.String("addr", addr), zap.String("agent_id", agentID))
	return b, nil
}

// reconnectDelay implements the spec'd backoff: a random base in [2,4)
// seconds multiplied by the attempt count.
func reconnectDelay(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	base := 2 + rand.Float64()*2
	return time.Duration(base * float64(attempts) * float64(time.Second))
}

func joinAddrs(addrs []string) string {
	out := ""
	for i, a := range addrs {
		if i > 0 {
			out += ","
		}
		out += a
	}
	return out
}

// Subscribe listens on the agent's own identity subject for inbound requests.
func (b *Broker) Subscribe(handler nats.MsgHandler) (*nats.Subscription, error) {
	sub, err := b.conn.Subscribe(b.agentID, handler)
	if err != nil {
		return nil, fmt.Errorf("transport: failed to subscribe on %s: %w", b.agentID, err)
	}
	return sub, nil
}

// Publish sends a raw payload on subject. Errors are logged by the caller;
// a broker publish failure never terminates the dispatcher.
func (b *Broker) Publish(subject string, data []byte) error {
	return b.conn.Publish(subject, data)
}

// PublishMsg sends a pre-built message, header and all (used for error
// replies carrying Nats-Service-Error headers).
func (b *Broker) PublishMsg(msg *nats.Msg) error {
	return b.conn.PublishMsg(msg)
}

// Flush flushes any buffered outbound data and returns the flush error; the
// dispatcher logs it rather than propagating it further.
func (b *Broker) Flush() error {
	return b.conn.FlushTimeout(b.cfg.ConnectionTimeout())
}

// IsConnected reports whether the underlying connection is currently up.
func (b *Broker) IsConnected() bool {
	return b.conn != nil && b.conn.IsConnected()
}

// Close drains and closes the broker connection.
func (b *Broker) Close() {
	if b.conn == nil {
		return
	}
	if err := b.conn.Drain(); err != nil {
		b.log.Warn("error draining broker connection", zap.Error(err))
		b.conn.Close()
		return
	}
	b.log.Info("broker connection closed")
}

// AgentID returns the subject this broker subscribes requests on.
func (b *Broker) AgentID() string {
	return b.agentID
}
