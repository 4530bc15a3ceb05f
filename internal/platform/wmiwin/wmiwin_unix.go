//go:build !windows

package wmiwin

import (
	"github.com/kandev/ironhive/internal/common/logger"
	"github.com/kandev/ironhive/internal/wmicache"
)

// Collector is a platform-parity stub: WMI has no non-Windows equivalent,
// so Collect always returns an empty snapshot.
type Collector struct{}

func New(log *logger.Logger) *Collector { return &Collector{} }

func (c *Collector) Collect() (wmicache.Snapshot, error) {
	return wmicache.Snapshot{}, nil
}
