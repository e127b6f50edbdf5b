package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"bridle/internal/client"
	"bridle/internal/config"
	"bridle/internal/daemon"
	"bridle/internal/logging"
	"bridle/internal/session"
	"bridle/internal/ui"
)

type StartCmd struct {
	Daemon  bool `name:"daemon" hidden:"" help:"Run daemon process (internal)"`
	Verbose bool `short:"v" help:"Verbose daemon logging"`
}

func (c *StartCmd) Run(g *Globals) error {
	cfg, paths, err := setup(g)
	if err != nil {
		return err
	}

	status, err := paths.GetStatus()
	if err != nil {
		return fmt.Errorf("check session state: %w", err)
	}
	if status.Reachable {
		ui.PrintInfo(fmt.Sprintf("Session '%s' is already running (PID: %d)", paths.Name, status.PID))
		return nil
	}
	if status.Stale() {
		ui.PrintWarning("Cleaning up stale session files...")
		paths.RemoveMetadata()
	}

	if err := paths.EnsureLogDir(); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}

	// Internal daemon mode: run the actual daemon process
	if c.Daemon {
		return c.runDaemon(cfg, paths)
	}

	// Default: spawn background process
	return c.startBackground(paths)
}

func (c *StartCmd) startBackground(paths *session.Paths) error {
	if err := client.New(paths).Ensure(); err != nil {
		return fmt.Errorf("%v\nCheck logs: %s", err, paths.Log)
	}

	status, err := paths.GetStatus()
	if err == nil && status.PID > 0 {
		ui.PrintSuccess(fmt.Sprintf("Session '%s' started (PID: %d)", paths.Name, status.PID))
	} else {
		ui.PrintSuccess(fmt.Sprintf("Session '%s' started", paths.Name))
	}
	ui.PrintInfo(fmt.Sprintf("Logs: %s", paths.Log))
	return nil
}

func (c *StartCmd) runDaemon(cfg *config.Config, paths *session.Paths) error {
	log, logCloser := logging.Open(paths.Log, paths.Name, c.Verbose)
	defer logCloser.Close()

	rt := daemon.NewRuntime(cfg, paths, log)
	if err := rt.StartStream(); err != nil {
		log.Error("stream startup failed", "error", err)
		return err
	}

	server := daemon.NewServer(paths, rt, log)
	if err := server.Listen(); err != nil {
		log.Error("daemon startup failed", "error", err)
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go func() {
		select {
		case <-ctx.Done():
			server.Shutdown(context.Background())
		case <-server.Done():
		}
	}()

	return server.Serve(ctx)
}
