// Package dispatcher decodes inbound broker requests, routes them to the
// matching handler, and publishes a typed response or a structured error.
// It drives the subscription as a long-lived loop, spawning one task per
// accepted message into a scoped supervisor so in-flight handlers are always
// awaited before Run returns.
package dispatcher

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/kandev/ironhive/internal/checkin"
	apperr "github.com/kandev/ironhive/internal/common/errors"
	"github.com/kandev/ironhive/internal/common/logger"
	"github.com/kandev/ironhive/internal/executor"
	"github.com/kandev/ironhive/internal/hostprobe"
	"github.com/kandev/ironhive/internal/identity"
	"github.com/kandev/ironhive/internal/platform"
	"github.com/kandev/ironhive/internal/protocol"
	"github.com/kandev/ironhive/internal/publicip"
)

// Broker is the subset of the broker transport the dispatcher needs.
type Broker interface {
	AgentID() string
	Subscribe(handler nats.MsgHandler) (*nats.Subscription, error)
	PublishMsg(msg *nats.Msg) error
	Flush() error
}

// errorHeader and errorCodeHeader are the wire headers a failing handler's
// empty-body reply frame carries (spec §4.8, §7).
const (
	errorHeader     = "Nats-Service-Error"
	errorCodeHeader = "Nats-Service-Error-Code"
)

// Dispatcher routes decoded requests to handlers and publishes replies.
type Dispatcher struct {
	broker   Broker
	ident    *identity.Identity
	producer *checkin.Producer
	log      *logger.Logger

	wg  sync.WaitGroup
	sub *nats.Subscription
}

// New builds a Dispatcher. producer is the check-in producer the SysInfo,
// WMI and Checkin handlers call through.
func New(broker Broker, ident *identity.Identity, producer *checkin.Producer, log *logger.Logger) *Dispatcher {
	return &Dispatcher{broker: broker, ident: ident, producer: producer, log: log}
}

// Run subscribes on the agent's own identity subject and services requests
// until ctx is canceled. A subscription closed by the broker does not end
// Run; only ctx cancellation does. Every in-flight handler is awaited before
// Run returns.
func (d *Dispatcher) Run(ctx context.Context) error {
	sub, err := d.broker.Subscribe(func(msg *nats.Msg) {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.handleMessage(ctx, msg)
		}()
	})
	if err != nil {
		return apperr.BrokerError(err)
	}
	d.sub = sub

	<-ctx.Done()

	if err := sub.Unsubscribe(); err != nil {
		d.log.Warn("failed to unsubscribe", zap.Error(err))
	}
	d.wg.Wait()
	return nil
}

// handleMessage decodes one frame, dispatches it, and publishes the reply.
// It never panics the caller's goroutine beyond what a handler itself does;
// decode failures and unknown variants are logged and dropped without reply.
func (d *Dispatcher) handleMessage(ctx context.Context, msg *nats.Msg) {
	// correlationID ties one request's log lines together without being
	// part of the wire protocol; callers correlate replies by reply subject
	// or the RunScript id field instead (spec §5).
	correlationID := uuid.NewString()
	log := d.log.WithFields(zap.String("correlation_id", correlationID))

	req, err := protocol.DecodeRequest(msg.Data)
	if err != nil {
		log.Trace("failed to decode request", zap.Error(err))
		return
	}

	log.Debug("dispatching request", zap.String("func", req.Func()))
	resp, hErr := d.dispatch(ctx, req)
	d.reply(msg, resp, hErr)

	if err := d.broker.Flush(); err != nil {
		log.Warn("flush failed", zap.Error(err))
	}
}

// reply publishes resp on msg.Reply, or an error frame if hErr is set. If
// msg carries no reply subject, the result is logged and dropped (spec
// invariant 2: NoReplySubject is never surfaced).
func (d *Dispatcher) reply(msg *nats.Msg, resp protocol.Response, hErr error) {
	if msg.Reply == "" {
		if hErr != nil {
			d.log.Debug("handler result for request with no reply subject", zap.Error(hErr))
		}
		return
	}

	if hErr != nil {
		out := nats.NewMsg(msg.Reply)
		out.Header.Set(errorHeader, hErr.Error())

		var appErr *apperr.AppError
		if asAppError(hErr, &appErr) && appErr.Code != 0 {
			out.Header.Set(errorCodeHeader, appErr.ServiceErrorCode())
		}
		if err := d.broker.PublishMsg(out); err != nil {
			d.log.Warn("failed to publish error reply", zap.Error(err))
		}
		return
	}

	data, err := protocol.EncodeResponse(resp)
	if err != nil {
		d.log.Error("failed to encode response", zap.Error(err))
		return
	}
	if err := d.broker.PublishMsg(&nats.Msg{Subject: msg.Reply, Data: data}); err != nil {
		d.log.Warn("failed to publish reply", zap.Error(err))
	}
}

func asAppError(err error, target **apperr.AppError) bool {
	ae, ok := err.(*apperr.AppError)
	if !ok {
		return false
	}
	*target = ae
	return true
}

// dispatch routes req to its handler. This is the one-to-one table named in
// spec §4.8.
func (d *Dispatcher) dispatch(ctx context.Context, req protocol.Request) (protocol.Response, error) {
	switch r := req.(type) {
	case *protocol.PingRequest:
		return protocol.PongResponse{}, nil

	case *protocol.ProcsRequest:
		procs, err := hostprobe.Procs()
		if err != nil {
			return nil, err
		}
		return protocol.ProcessMsgResponse{Msgs: procs}, nil

	case *protocol.KillProcRequest:
		if err := hostprobe.KillProc(r.Pid); err != nil {
			return nil, err
		}
		return protocol.OkResponse{}, nil

	case *protocol.RawCmdRequest:
		return d.handleRawCmd(ctx, r)

	case *protocol.RunScriptRequest:
		return d.handleRunScript(ctx, r)

	case *protocol.RebootNowRequest:
		if err := hostprobe.RebootNow(ctx); err != nil {
			return nil, err
		}
		return protocol.OkResponse{}, nil

	case *protocol.NeedsRebootRequest:
		needs, err := hostprobe.SystemRebootRequired()
		if err != nil {
			return nil, err
		}
		return protocol.NeedsRebootResponse{Needs: needs}, nil

	case *protocol.SysInfoRequest:
		for _, mode := range []protocol.CheckinMode{
			protocol.CheckinAgentInfo, protocol.CheckinDisks,
			protocol.CheckinWMI, protocol.CheckinPublicIp,
		} {
			if err := d.producer.Send(ctx, mode); err != nil {
				d.log.Warn("sysinfo checkin failed", zap.String("mode", string(mode)), zap.Error(err))
			}
		}
		return protocol.OkResponse{}, nil

	case *protocol.WMIRequest:
		if err := d.producer.Send(ctx, protocol.CheckinWMI); err != nil {
			return nil, err
		}
		return protocol.OkResponse{}, nil

	case *protocol.CpuLoadAvgRequest:
		one, five, fifteen, err := hostprobe.LoadAvg()
		if err != nil {
			return nil, err
		}
		return protocol.CpuLoadAvgResponse{One: one, Five: five, Fifteen: fifteen}, nil

	case *protocol.CpuUsageRequest:
		usage, err := hostprobe.CPUUsage()
		if err != nil {
			return nil, err
		}
		return protocol.CpuUsageResponse{Usage: usage}, nil

	case *protocol.PublicIpRequest:
		ip, err := publicip.Get()
		if err != nil {
			return nil, err
		}
		return protocol.PublicIpResponse{IP: ip}, nil

	case *protocol.CheckinRequest:
		if err := d.producer.Send(ctx, r.Mode); err != nil {
			return nil, err
		}
		return protocol.OkResponse{}, nil

	case *protocol.SoftwareListRequest:
		software, err := platform.InstalledSoftware()
		if err != nil {
			return nil, err
		}
		return protocol.WinSoftwareNatsResponse{Software: software}, nil

	case *protocol.InstallChocoRequest:
		return d.handleInstallChoco(ctx)

	case *protocol.InstallWithChocoRequest:
		return d.handleInstallWithChoco(ctx, r)

	case *protocol.PatchMgmtRequest:
		return d.handlePatchMgmt(r)

	case *protocol.WinServicesRequest:
		services, err := platform.WinServicesEnumerate()
		if err != nil {
			return nil, err
		}
		return protocol.WinServicesResponse{Services: services}, nil

	case *protocol.WinSvcDetailRequest:
		svc, err := platform.WinServiceDetail(r.Name)
		if err != nil {
			return nil, err
		}
		return protocol.WinSvcDetailResponse{Service: *svc}, nil

	case *protocol.WinSvcActionRequest:
		switch r.Action {
		case "start", "stop":
			ok, errMsg := platform.WinServiceAction(r.Name, r.Action)
			return protocol.WinSvcRespResponse{Success: ok, ErrorMsg: errMsg}, nil
		default:
			return protocol.WinSvcRespResponse{Success: false, ErrorMsg: fmt.Sprintf("unknown action: %s", r.Action)}, nil
		}

	case *protocol.EditWinSvcRequest:
		ok, errMsg := platform.WinServiceEdit(r.Name, r.StartType)
		return protocol.WinSvcRespResponse{Success: ok, ErrorMsg: errMsg}, nil

	case *protocol.GetWinUpdatesRequest:
		agent := platform.NewUpdateAgent()
		updates, err := agent.GetWinUpdates()
		if err != nil {
			return nil, err
		}
		return protocol.WinUpdateResultResponse{Updates: updates}, nil

	case *protocol.InstallWinUpdatesRequest:
		agent := platform.NewUpdateAgent()
		_, err := agent.InstallWinUpdates(r.Guids)
		if err != nil {
			return nil, err
		}
		needs, err := hostprobe.SystemRebootRequired()
		if err != nil {
			return nil, err
		}
		return protocol.NeedsRebootResponse{Needs: needs}, nil

	default:
		d.log.Trace("no handler registered for request", zap.String("func", req.Func()))
		return nil, apperr.UnsupportedRequest(req.Func())
	}
}

func (d *Dispatcher) handleRawCmd(ctx context.Context, r *protocol.RawCmdRequest) (protocol.Response, error) {
	out, err := executor.RunShell(ctx, r.Shell, r.Command, r.Timeout.OrDefault())
	if err != nil {
		return nil, err
	}
	results := out.Stdout
	if out.Stderr != "" {
		results = out.Stderr
	}
	return protocol.RawCMDRespResponse{Results: results}, nil
}

func (d *Dispatcher) handleRunScript(ctx context.Context, r *protocol.RunScriptRequest) (protocol.Response, error) {
	start := time.Now()
	out, err := executor.RunScript(ctx, r.Code, r.Mode, r.Args, r.Env, r.Timeout.OrDefault())
	elapsed := time.Since(start)
	if err != nil {
		return nil, err
	}
	return protocol.RunScriptRespResponse{
		Stdout:        out.Stdout,
		Stderr:        out.Stderr,
		Retcode:       out.ExitStatus,
		ExecutionTime: protocol.Duration(elapsed),
		ID:            r.ID,
	}, nil
}

// chocoInstallURL is the fixed location of the chocolatey bootstrap script
// (§4.8 InstallChoco).
const chocoInstallURL = "https://chocolatey.org/install.ps1"

func (d *Dispatcher) handleInstallChoco(ctx context.Context) (protocol.Response, error) {
	if runtime.GOOS != "windows" {
		return nil, apperr.UnsupportedRequest("installchoco")
	}
	body, err := publicip.FetchURL(chocoInstallURL)
	if err != nil {
		return nil, err
	}
	mode := protocol.ScriptMode{Kind: protocol.ScriptModePowerShell}
	_, err = executor.RunScript(ctx, body, mode, nil, nil, 999*time.Second)
	if err != nil {
		return nil, err
	}
	return protocol.OkResponse{}, nil
}

func (d *Dispatcher) handleInstallWithChoco(ctx context.Context, r *protocol.InstallWithChocoRequest) (protocol.Response, error) {
	start := time.Now()
	out, err := executor.Run(ctx, executor.Options{
		Program: "choco.exe",
		Args:    []string{"install", r.Name, "--yes", "--force", "--force-dependencies", "--no-progress"},
		Timeout: 1200 * time.Second,
	})
	elapsed := time.Since(start)
	if err != nil {
		return nil, err
	}
	return protocol.RunScriptRespResponse{
		Stdout:        out.Stdout,
		Stderr:        out.Stderr,
		Retcode:       out.ExitStatus,
		ExecutionTime: protocol.Duration(elapsed),
		ID:            -1,
	}, nil
}

func (d *Dispatcher) handlePatchMgmt(r *protocol.PatchMgmtRequest) (protocol.Response, error) {
	if err := platform.SetAUOptions(r.Enable); err != nil {
		return nil, err
	}
	return protocol.OkResponse{}, nil
}
