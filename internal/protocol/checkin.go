package protocol

import (
	"encoding/json"
	"fmt"
)

// CheckinMode selects which tagged snapshot the check-in producer builds.
type CheckinMode string

const (
	CheckinHello     CheckinMode = "Hello"
	CheckinWinSvc    CheckinMode = "WinSvc"
	CheckinAgentInfo CheckinMode = "AgentInfo"
	CheckinWMI       CheckinMode = "WMI"
	CheckinDisks     CheckinMode = "Disks"
	CheckinPublicIp  CheckinMode = "PublicIp"
)

// modeSubjects is the bijection between a CheckinMode and the reply subject
// string it publishes under.
var modeSubjects = map[CheckinMode]string{
	CheckinHello:     "agent-hello",
	CheckinWinSvc:    "agent-winsvc",
	CheckinAgentInfo: "agent-agentinfo",
	CheckinWMI:       "agent-wmi",
	CheckinDisks:     "agent-disks",
	CheckinPublicIp:  "agent-publicip",
}

var subjectModes = func() map[string]CheckinMode {
	m := make(map[string]CheckinMode, len(modeSubjects))
	for mode, subject := range modeSubjects {
		m[subject] = mode
	}
	return m
}()

// Subject returns the reply-subject string this mode publishes under.
func (m CheckinMode) Subject() (string, error) {
	subject, ok := modeSubjects[m]
	if !ok {
		return "", fmt.Errorf("protocol: unknown checkin mode %q", m)
	}
	return subject, nil
}

// CheckinModeFromSubject recovers the CheckinMode for a published subject string.
func CheckinModeFromSubject(subject string) (CheckinMode, error) {
	mode, ok := subjectModes[subject]
	if !ok {
		return "", fmt.Errorf("protocol: unknown checkin subject %q", subject)
	}
	return mode, nil
}

// MarshalJSON renders the mode as its subject string (e.g. "agent-hello"),
// matching the wire representation used by Checkin{mode}.
func (m CheckinMode) MarshalJSON() ([]byte, error) {
	subject, err := m.Subject()
	if err != nil {
		return nil, err
	}
	return json.Marshal(subject)
}

// UnmarshalJSON accepts the subject string form.
func (m *CheckinMode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	mode, err := CheckinModeFromSubject(s)
	if err != nil {
		return err
	}
	*m = mode
	return nil
}
