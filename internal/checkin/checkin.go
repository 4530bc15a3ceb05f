// Package checkin builds and publishes the agent's unsolicited "check-in"
// snapshots: tagged payloads published on the agent's own subject with a
// reply subject equal to the mode string, so any broker subscriber watching
// that mode tag observes them without issuing a request.
package checkin

import (
	"context"
	"encoding/json"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	apperr "github.com/kandev/ironhive/internal/common/errors"
	"github.com/kandev/ironhive/internal/common/logger"
	"github.com/kandev/ironhive/internal/hostprobe"
	"github.com/kandev/ironhive/internal/identity"
	"github.com/kandev/ironhive/internal/platform"
	"github.com/kandev/ironhive/internal/protocol"
	"github.com/kandev/ironhive/internal/publicip"
	"github.com/kandev/ironhive/internal/wmicache"
)

// Broker is the publish surface the producer needs; satisfied by
// *transport.Broker.
type Broker interface {
	AgentID() string
	PublishMsg(msg *nats.Msg) error
}

// Producer builds and publishes the six check-in snapshot modes.
type Producer struct {
	broker Broker
	ident  *identity.Identity
	wmi    wmicache.Handle
	log    *logger.Logger
}

// New returns a Producer. wmi must come from wmicache.Start; on non-Windows
// hosts platform.NewWMICollector supplies a stub collector that always
// yields an empty snapshot, so the WMI mode still publishes normally.
func New(broker Broker, ident *identity.Identity, wmi wmicache.Handle, log *logger.Logger) *Producer {
	return &Producer{broker: broker, ident: ident, wmi: wmi, log: log}
}

// HelloPayload is published for protocol.CheckinHello.
type HelloPayload struct {
	AgentID string `json:"agent_id"`
	Version string `json:"version"`
}

// AgentInfoPayload is published for protocol.CheckinAgentInfo.
type AgentInfoPayload struct {
	AgentID      string `json:"agent_id"`
	HostName     string `json:"host_name"`
	OS           string `json:"os"`
	LoggedOnUser string `json:"logged_on_user"`
	NeedsReboot  bool   `json:"needs_reboot"`
	TotalRAM     uint64 `json:"total_ram"`
	BootTime     uint64 `json:"boot_time"`
	Arch         string `json:"arch"`
	Plat         string `json:"plat"`
}

// WinSvcPayload is published for protocol.CheckinWinSvc.
type WinSvcPayload struct {
	AgentID  string                    `json:"agent_id"`
	Services []protocol.WinServiceInfo `json:"services"`
}

// WMIPayload is published for protocol.CheckinWMI.
type WMIPayload struct {
	AgentID string            `json:"agent_id"`
	WMI     wmicache.Snapshot `json:"wmi"`
}

// DisksPayload is published for protocol.CheckinDisks.
type DisksPayload struct {
	AgentID string              `json:"agent_id"`
	Disks   []protocol.DiskInfo `json:"disks"`
}

// PublicIpPayload is published for protocol.CheckinPublicIp.
type PublicIpPayload struct {
	AgentID string `json:"agent_id"`
	IP      string `json:"ip"`
}

// Send builds the payload for mode and publishes it on the agent's own
// subject with the reply subject set to the mode's tag string. Exactly one
// frame is published per call.
func (p *Producer) Send(ctx context.Context, mode protocol.CheckinMode) error {
	subject, err := mode.Subject()
	if err != nil {
		return apperr.SerdeError(err)
	}

	payload, err := p.build(ctx, mode)
	if err != nil {
		return err
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return apperr.SerdeError(err)
	}

	msg := &nats.Msg{Subject: p.broker.AgentID(), Reply: subject, Data: data}
	if err := p.broker.PublishMsg(msg); err != nil {
		p.log.Warn("checkin publish failed", zap.String("mode", subject), zap.Error(err))
		return apperr.BrokerError(err)
	}
	p.log.Debug("checkin published", zap.String("mode", subject))
	return nil
}

func (p *Producer) build(ctx context.Context, mode protocol.CheckinMode) (interface{}, error) {
	switch mode {
	case protocol.CheckinHello:
		return HelloPayload{AgentID: p.ident.AgentID, Version: p.ident.Version}, nil

	case protocol.CheckinAgentInfo:
		osString, _ := hostprobe.OSString()
		user, _ := hostprobe.LoggedOnUser()
		needsReboot, _ := hostprobe.SystemRebootRequired()
		sysInfo, _ := hostprobe.GetSystemInfo()
		return AgentInfoPayload{
			AgentID:      p.ident.AgentID,
			HostName:     p.ident.HostName,
			OS:           osString,
			LoggedOnUser: user,
			NeedsReboot:  needsReboot,
			TotalRAM:     sysInfo.TotalRAM,
			BootTime:     sysInfo.BootTime,
			Arch:         sysInfo.Arch,
			Plat:         sysInfo.Plat,
		}, nil

	case protocol.CheckinWinSvc:
		services, err := platform.WinServicesEnumerate()
		if err != nil {
			// Non-Windows hosts report UnsupportedRequest; the check-in still
			// publishes, just with an empty list (spec §4.7).
			return WinSvcPayload{AgentID: p.ident.AgentID, Services: nil}, nil
		}
		return WinSvcPayload{AgentID: p.ident.AgentID, Services: services}, nil

	case protocol.CheckinWMI:
		snapshot, err := p.wmi.Query(ctx)
		if err != nil {
			return WMIPayload{AgentID: p.ident.AgentID, WMI: wmicache.Snapshot{}}, nil
		}
		return WMIPayload{AgentID: p.ident.AgentID, WMI: snapshot}, nil

	case protocol.CheckinDisks:
		disks, err := hostprobe.Disks()
		if err != nil {
			return nil, err
		}
		return DisksPayload{AgentID: p.ident.AgentID, Disks: disks}, nil

	case protocol.CheckinPublicIp:
		ip, err := publicip.Get()
		if err != nil {
			return nil, err
		}
		return PublicIpPayload{AgentID: p.ident.AgentID, IP: ip}, nil

	default:
		return nil, apperr.SerdeError(nil)
	}
}
