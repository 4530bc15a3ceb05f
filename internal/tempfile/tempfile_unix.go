//go:build !windows

package tempfile

func retryCountFor() int {
	return 1
}

func sleepRetry() {}
