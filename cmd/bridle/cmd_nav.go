package main

import (
	"fmt"

	"bridle/internal/protocol"
	"bridle/internal/ui"
)

type BackCmd struct{}

func (c *BackCmd) Run(g *Globals) error {
	return historyStep(g, protocol.ActionBack)
}

type ForwardCmd struct{}

func (c *ForwardCmd) Run(g *Globals) error {
	return historyStep(g, protocol.ActionForward)
}

type ReloadCmd struct{}

func (c *ReloadCmd) Run(g *Globals) error {
	return historyStep(g, protocol.ActionReload)
}

func historyStep(g *Globals, action string) error {
	data, err := runCommand(g, &protocol.Command{Action: action})
	if err != nil {
		return err
	}
	ui.PrintSuccess(fmt.Sprintf("Now at %s", stringVal(data, "url")))
	return nil
}
