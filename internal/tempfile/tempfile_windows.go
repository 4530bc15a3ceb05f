//go:build windows

package tempfile

import "time"

func retryCountFor() int {
	return maxCleanupRetries
}

func sleepRetry() {
	time.Sleep(10 * time.Millisecond)
}
