// Package publicip fetches the host's public-facing IP address over HTTP.
package publicip

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperr "github.com/kandev/ironhive/internal/common/errors"
)

// defaultEndpoint is a plain-text public-IP echo service.
const defaultEndpoint = "https://icanhazip.com"

var httpClient = &http.Client{Timeout: 10 * time.Second}

// Get fetches and returns the public IP address as a trimmed string.
func Get() (string, error) {
	resp, err := httpClient.Get(defaultEndpoint)
	if err != nil {
		return "", apperr.HttpError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", apperr.HttpError(fmt.Errorf("unexpected status: %s", resp.Status))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperr.HttpError(err)
	}

	return strings.TrimSpace(string(body)), nil
}

// FetchURL fetches the body of an arbitrary URL as a string, used by the
// InstallChoco handler to retrieve the chocolatey bootstrap script.
func FetchURL(url string) (string, error) {
	resp, err := httpClient.Get(url)
	if err != nil {
		return "", apperr.HttpError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", apperr.HttpError(fmt.Errorf("unexpected status: %s", resp.Status))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperr.HttpError(err)
	}

	return string(body), nil
}
