package main

import (
	"fmt"

	"bridle/internal/client"
	"bridle/internal/protocol"
	"bridle/internal/ui"
)

type StatusCmd struct{}

func (c *StatusCmd) Run(g *Globals) error {
	cfg, paths, err := setup(g)
	if err != nil {
		return err
	}

	status, err := paths.GetStatus()
	if err != nil {
		return fmt.Errorf("check session state: %w", err)
	}

	view := ui.SessionStatus{
		Session:  paths.Name,
		Running:  status.Reachable,
		Stale:    status.Stale(),
		PID:      status.PID,
		Provider: cfg.Provider,
		LogPath:  paths.Log,
	}

	if status.Reachable {
		resp, err := client.New(paths).Do(&protocol.Command{Action: protocol.ActionStatus})
		if err == nil && resp.OK {
			view.URL = stringVal(resp.Data, "url")
			view.Title = stringVal(resp.Data, "title")
			view.Endpoint = stringVal(resp.Data, "stream")
			if backend := stringVal(resp.Data, "backend"); backend != "" {
				view.Provider = backend
			}
		}
	}

	ui.PrintStatus(view)
	return nil
}
