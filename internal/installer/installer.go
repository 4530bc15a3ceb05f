// Package installer is the install/uninstall collaborator (spec §6 CLI):
// it writes the agent's resolved configuration file and calls a per-platform
// service registration (or removal) step. Those steps are stubs that only
// log a warning: no OS service is created or removed. The core only needs
// this package's interface.
package installer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/kandev/ironhive/internal/common/logger"
	"github.com/kandev/ironhive/internal/identity"
)

// InstallOptions carries the flags accepted by `ironhive install`.
type InstallOptions struct {
	NatsServers     string
	ExePath         string
	OverwriteConfig bool
}

// configFileContents is the on-disk shape of default.json, mirroring
// internal/common/config.Config's mapstructure tags at the top level the
// installer is responsible for seeding.
type configFileContents struct {
	Broker struct {
		Addrs []string `json:"addrs"`
	} `json:"broker"`
	Agent struct {
		ExePath string `json:"exePath"`
		AgentID string `json:"agentId"`
	} `json:"agent"`
}

// Install writes the default configuration file with a freshly generated
// agent identity and then runs the platform service-registration stub, which
// only logs a warning. It refuses to overwrite an existing configuration
// file unless OverwriteConfig is set.
func Install(opts InstallOptions, log *logger.Logger) error {
	dir, err := configDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("installer: failed to create config directory: %w", err)
	}

	path := filepath.Join(dir, "default.json")
	if _, err := os.Stat(path); err == nil && !opts.OverwriteConfig {
		return fmt.Errorf("installer: configuration already exists at %s (use --overwrite-config to replace it)", path)
	}

	agentID, err := identity.GenerateID()
	if err != nil {
		return fmt.Errorf("installer: failed to generate agent id: %w", err)
	}

	var contents configFileContents
	if opts.NatsServers != "" {
		contents.Broker.Addrs = strings.Split(opts.NatsServers, ",")
	}
	contents.Agent.ExePath = opts.ExePath
	contents.Agent.AgentID = agentID

	data, err := json.MarshalIndent(contents, "", "  ")
	if err != nil {
		return fmt.Errorf("installer: failed to marshal configuration: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("installer: failed to write configuration: %w", err)
	}

	log.Info("wrote agent configuration", zap.String("path", path), zap.String("agent_id", agentID))

	if err := registerService(opts.ExePath, log); err != nil {
		return err
	}
	log.Info("installation complete")
	return nil
}

// Uninstall runs the platform service-removal stub, which only logs a
// warning. It leaves the configuration file, and the agent_id in it, in
// place; a later Install fails on that file unless OverwriteConfig is set,
// and with it set writes a new agent_id.
func Uninstall(log *logger.Logger) error {
	if err := unregisterService(log); err != nil {
		return err
	}
	log.Info("uninstallation complete")
	return nil
}

func configDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("installer: could not determine config directory: %w", err)
	}
	return filepath.Join(dir, "ironhive"), nil
}
