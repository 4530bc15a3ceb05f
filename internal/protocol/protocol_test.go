package protocol

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRequestPing(t *testing.T) {
	req, err := DecodeRequest([]byte(`{"func":"ping"}`))
	require.NoError(t, err)
	assert.Equal(t, "ping", req.Func())
	assert.IsType(t, &PingRequest{}, req)
}

func TestDecodeRequestUnknownFunc(t *testing.T) {
	_, err := DecodeRequest([]byte(`{"func":"unknown"}`))
	assert.Error(t, err)
}

func TestDecodeRequestRawCmdDefaultsTimeout(t *testing.T) {
	req, err := DecodeRequest([]byte(`{"func":"rawcmd","shell":"bash","command":"echo hi"}`))
	require.NoError(t, err)
	raw, ok := req.(*RawCmdRequest)
	require.True(t, ok)
	assert.Equal(t, DefaultTimeout, raw.Timeout.Std())
}

func TestDecodeRequestRawCmdExplicitTimeout(t *testing.T) {
	req, err := DecodeRequest([]byte(`{"func":"rawcmd","shell":"bash","command":"echo hi","timeout":"2s"}`))
	require.NoError(t, err)
	raw := req.(*RawCmdRequest)
	assert.Equal(t, 2*time.Second, raw.Timeout.Std())
}

func TestDecodeRequestRunScriptBinaryMode(t *testing.T) {
	payload := `{"func":"runscript","code":"print(1)","mode":{"Binary":{"path":"python3","ext":".py"}},"timeout":"3s","id":2}`
	req, err := DecodeRequest([]byte(payload))
	require.NoError(t, err)
	rs := req.(*RunScriptRequest)
	assert.Equal(t, ScriptModeBinary, rs.Mode.Kind)
	assert.Equal(t, "python3", rs.Mode.Path)
	assert.Equal(t, ".py", rs.Mode.Extension())
	assert.EqualValues(t, 2, rs.ID)
}

func TestScriptModeUnitVariantRoundTrip(t *testing.T) {
	for _, kind := range []ScriptModeKind{ScriptModePowerShell, ScriptModeCmd, ScriptModeDirectly} {
		mode := ScriptMode{Kind: kind}
		data, err := json.Marshal(mode)
		require.NoError(t, err)

		var decoded ScriptMode
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, kind, decoded.Kind)
	}
}

func TestCheckinModeSubjectBijection(t *testing.T) {
	modes := []CheckinMode{CheckinHello, CheckinWinSvc, CheckinAgentInfo, CheckinWMI, CheckinDisks, CheckinPublicIp}
	seen := map[string]bool{}
	for _, m := range modes {
		subject, err := m.Subject()
		require.NoError(t, err)
		assert.False(t, seen[subject], "duplicate subject %s", subject)
		seen[subject] = true

		back, err := CheckinModeFromSubject(subject)
		require.NoError(t, err)
		assert.Equal(t, m, back)
	}
}

func TestEncodeResponseTagsRespField(t *testing.T) {
	data, err := EncodeResponse(PongResponse{})
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "pong", decoded["resp"])
}

func TestEncodeResponseRunScriptResp(t *testing.T) {
	resp := RunScriptRespResponse{
		Stdout:        "hi from ironhive!",
		Stderr:        "",
		Retcode:       0,
		ExecutionTime: Duration(1500 * time.Millisecond),
		ID:            2,
	}
	data, err := EncodeResponse(resp)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "runscriptresp", decoded["resp"])
	assert.Equal(t, "hi from ironhive!", decoded["stdout"])
	assert.Equal(t, float64(2), decoded["id"])
}

func TestDurationWireFormat(t *testing.T) {
	d := Duration(15 * time.Second)
	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, `"15s"`, string(data))

	var decoded Duration
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, 15*time.Second, decoded.Std())
}
