package main

import (
	"errors"
	"fmt"
	"os"

	"bridle/internal/client"
	"bridle/internal/config"
	"bridle/internal/protocol"
	"bridle/internal/session"
)

// setup resolves the effective configuration and session paths. The
// --session flag wins over environment and config file.
func setup(g *Globals) (*config.Config, *session.Paths, error) {
	home := os.Getenv("BRIDLE_HOME")
	probe, err := session.Resolve(session.DefaultName, home)
	if err != nil {
		return nil, nil, err
	}

	cfg, err := config.Load(probe.Base)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if g.Session != "" {
		cfg.Session = g.Session
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	paths, err := session.Resolve(cfg.Session, cfg.Home)
	if err != nil {
		return nil, nil, err
	}
	return cfg, paths, nil
}

// runCommand performs one automation round trip, launching the session
// daemon first when none is running.
func runCommand(g *Globals, cmd *protocol.Command) (map[string]any, error) {
	_, paths, err := setup(g)
	if err != nil {
		return nil, err
	}

	cl := client.New(paths)
	if err := cl.Ensure(); err != nil {
		return nil, err
	}

	resp, err := cl.Do(cmd)
	if err != nil {
		if errors.Is(err, client.ErrDaemonUnreachable) {
			return nil, errDaemonNotRunning(paths.Name)
		}
		return nil, err
	}
	if !resp.OK {
		return nil, errFromResponse(resp.Error)
	}
	return resp.Data, nil
}

// runAgainstRunning is runCommand without auto-launch, for commands
// that must not start a daemon as a side effect.
func runAgainstRunning(g *Globals, cmd *protocol.Command) (map[string]any, error) {
	_, paths, err := setup(g)
	if err != nil {
		return nil, err
	}

	resp, err := client.New(paths).Do(cmd)
	if err != nil {
		if errors.Is(err, client.ErrDaemonUnreachable) {
			return nil, errDaemonNotRunning(paths.Name)
		}
		return nil, err
	}
	if !resp.OK {
		return nil, errFromResponse(resp.Error)
	}
	return resp.Data, nil
}

// stringVal extracts a string value from a map, returning empty string if not found.
func stringVal(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return v
}
