package protocol

import (
	"encoding/json"
	"time"
)

// DefaultTimeout is substituted for RawCmd/RunScript requests that omit the
// timeout field on the wire.
const DefaultTimeout = 15 * time.Second

// Duration marshals as a human-readable string ("15s", "3s") rather than as
// nanoseconds, matching the wire format non-typed publishers use.
type Duration time.Duration

// MarshalJSON renders the duration the way time.Duration.String() does.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON accepts a human-readable duration string.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the time.Duration value.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// OrDefault returns d, or DefaultTimeout if d is zero.
func (d Duration) OrDefault() time.Duration {
	if d == 0 {
		return DefaultTimeout
	}
	return time.Duration(d)
}
