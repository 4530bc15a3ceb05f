// Command ironhive is the agent's command-line front-end: install (write the
// agent configuration) and uninstall, run the RPC dispatcher, or print the
// resolved configuration environment. install and uninstall create or
// remove no OS service; their service-registration steps only log a warning.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/kandev/ironhive/internal/agent"
	"github.com/kandev/ironhive/internal/common/config"
	"github.com/kandev/ironhive/internal/common/logger"
	"github.com/kandev/ironhive/internal/installer"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "install":
		err = runInstall(os.Args[2:])
	case "uninstall":
		err = runUninstall(os.Args[2:])
	case "rpc":
		err = runRPC(os.Args[2:])
	case "env":
		err = runEnv(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "ironhive: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: ironhive <install|uninstall|rpc|env> [flags]")
}

func runInstall(args []string) error {
	fs := flag.NewFlagSet("install", flag.ExitOnError)
	natsServers := fs.String("nats-servers", "", "comma-separated list of broker addresses")
	exePath := fs.String("exe-path", "", "path this executable was installed to")
	overwrite := fs.Bool("overwrite-config", false, "overwrite an existing configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	log := logger.Default()
	return installer.Install(installer.InstallOptions{
		NatsServers:      *natsServers,
		ExePath:          *exePath,
		OverwriteConfig:  *overwrite,
	}, log)
}

func runUninstall(args []string) error {
	fs := flag.NewFlagSet("uninstall", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	return installer.Uninstall(logger.Default())
}

func runEnv(args []string) error {
	fs := flag.NewFlagSet("env", flag.ExitOnError)
	configPath := fs.String("config", "", "path to the configuration directory")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.LoadWithPath(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	return config.PrintEnv(cfg, os.Stdout)
}

func runRPC(args []string) error {
	fs := flag.NewFlagSet("rpc", flag.ExitOnError)
	configPath := fs.String("config", "", "path to the configuration directory")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.LoadWithPath(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.NewLogger(logger.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		OutputPath: cfg.Logging.OutputPath,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()
	logger.SetDefault(log)

	log.Info("starting ironhive rpc dispatcher", zap.String("version", agent.Version))

	a, err := agent.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to construct agent: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("received shutdown signal")
		cancel()
	}()

	return a.Run(ctx)
}
