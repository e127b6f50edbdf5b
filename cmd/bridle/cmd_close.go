package main

import (
	"errors"

	"bridle/internal/protocol"
	"bridle/internal/ui"
)

type CloseCmd struct{}

func (c *CloseCmd) Run(g *Globals) error {
	_, err := runAgainstRunning(g, &protocol.Command{Action: protocol.ActionClose})
	if err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) && exitErr.Code == exitDaemonNotRunning {
			ui.PrintInfo("Session is not running")
			return nil
		}
		return err
	}
	ui.PrintSuccess("Session closed")
	return nil
}
