package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ScriptModeKind discriminates the ScriptMode tagged union.
type ScriptModeKind string

const (
	ScriptModePowerShell ScriptModeKind = "PowerShell"
	ScriptModeCmd        ScriptModeKind = "Cmd"
	ScriptModeBinary     ScriptModeKind = "Binary"
	ScriptModeDirectly   ScriptModeKind = "Directly"
)

// ScriptMode selects the interpreter (if any) used to run a RunScript body.
// On the wire, the no-payload variants (PowerShell, Cmd, Directly) appear as
// a bare JSON string; Binary carries a nested object with path and ext.
type ScriptMode struct {
	Kind ScriptModeKind
	Path string
	Ext  string
}

// Extension returns the temp-file extension this mode materializes its script to.
func (m ScriptMode) Extension() string {
	switch m.Kind {
	case ScriptModePowerShell:
		return ".ps1"
	case ScriptModeCmd:
		return ".bat"
	case ScriptModeBinary:
		return m.Ext
	default:
		return ""
	}
}

type binaryMode struct {
	Path string `json:"path"`
	Ext  string `json:"ext"`
}

// MarshalJSON renders unit variants as a bare string and Binary as a
// single-key wrapper object, matching the source enum's default serde form.
func (m ScriptMode) MarshalJSON() ([]byte, error) {
	switch m.Kind {
	case ScriptModeBinary:
		return json.Marshal(map[string]binaryMode{
			"Binary": {Path: m.Path, Ext: m.Ext},
		})
	case ScriptModePowerShell, ScriptModeCmd, ScriptModeDirectly:
		return json.Marshal(string(m.Kind))
	default:
		return nil, fmt.Errorf("protocol: unknown script mode %q", m.Kind)
	}
}

// UnmarshalJSON accepts either a bare string or a {"Binary": {...}} object.
func (m *ScriptMode) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		switch ScriptModeKind(s) {
		case ScriptModePowerShell, ScriptModeCmd, ScriptModeDirectly:
			m.Kind = ScriptModeKind(s)
			return nil
		default:
			return fmt.Errorf("protocol: unknown script mode %q", s)
		}
	}

	var wrapper struct {
		Binary *binaryMode `json:"Binary"`
	}
	if err := json.Unmarshal(trimmed, &wrapper); err != nil {
		return err
	}
	if wrapper.Binary == nil {
		return fmt.Errorf("protocol: unrecognized script mode payload")
	}
	m.Kind = ScriptModeBinary
	m.Path = wrapper.Binary.Path
	m.Ext = wrapper.Binary.Ext
	return nil
}
