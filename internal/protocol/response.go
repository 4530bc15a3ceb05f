package protocol

import "encoding/json"

// Response is implemented by every response variant. Resp returns the
// lowercase discriminant published in the wire envelope's "resp" field.
type Response interface {
	Resp() string
}

type PongResponse struct{}

func (PongResponse) Resp() string { return "pong" }

type ProcessMsgResponse struct {
	Msgs []ProcessInfo `json:"msgs"`
}

func (ProcessMsgResponse) Resp() string { return "processmsg" }

// OkResponse is the generic acknowledgement returned by handlers that have
// no payload to report beyond success.
type OkResponse struct{}

func (OkResponse) Resp() string { return "ok" }

type RawCMDRespResponse struct {
	Results string `json:"results"`
}

func (RawCMDRespResponse) Resp() string { return "rawcmdresp" }

type RunScriptRespResponse struct {
	Stdout        string   `json:"stdout"`
	Stderr        string   `json:"stderr"`
	Retcode       int32    `json:"retcode"`
	ExecutionTime Duration `json:"execution_time"`
	ID            int64    `json:"id"`
}

func (RunScriptRespResponse) Resp() string { return "runscriptresp" }

type NeedsRebootResponse struct {
	Needs bool `json:"needs"`
}

func (NeedsRebootResponse) Resp() string { return "needsreboot" }

type CpuLoadAvgResponse struct {
	One     float64 `json:"one"`
	Five    float64 `json:"five"`
	Fifteen float64 `json:"fifteen"`
}

func (CpuLoadAvgResponse) Resp() string { return "cpuloadavg" }

type CpuUsageResponse struct {
	Usage float64 `json:"usage"`
}

func (CpuUsageResponse) Resp() string { return "cpuusage" }

type PublicIpResponse struct {
	IP string `json:"ip"`
}

func (PublicIpResponse) Resp() string { return "publicip" }

type WinSoftwareNatsResponse struct {
	Software []WinSoftwareInfo `json:"software"`
}

func (WinSoftwareNatsResponse) Resp() string { return "winsoftwarenats" }

type WinUpdateResultResponse struct {
	Updates []WinUpdateInfo `json:"updates"`
}

func (WinUpdateResultResponse) Resp() string { return "winupdateresult" }

type WinServicesResponse struct {
	Services []WinServiceInfo `json:"services"`
}

func (WinServicesResponse) Resp() string { return "winservices" }

type WinSvcDetailResponse struct {
	Service WinServiceInfo `json:"service"`
}

func (WinSvcDetailResponse) Resp() string { return "winsvcdetail" }

type WinSvcRespResponse struct {
	Success  bool   `json:"success"`
	ErrorMsg string `json:"errormsg"`
}

func (WinSvcRespResponse) Resp() string { return "winsvcresp" }

// EncodeResponse serializes a response into its wire frame, tagging it with
// the "resp" discriminant. Encoding is infallible for this closed, fixed
// variant set; the returned error only ever arises from a misuse of the
// interface with an unregistered type and is not expected in practice.
func EncodeResponse(r Response) ([]byte, error) {
	type envelope struct {
		Resp string `json:"resp"`
	}

	raw, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}

	var merged map[string]json.RawMessage
	if err := json.Unmarshal(raw, &merged); err != nil {
		return nil, err
	}

	tag, err := json.Marshal(r.Resp())
	if err != nil {
		return nil, err
	}
	if merged == nil {
		merged = map[string]json.RawMessage{}
	}
	merged["resp"] = tag

	return json.Marshal(merged)
}
