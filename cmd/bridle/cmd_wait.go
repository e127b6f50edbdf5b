package main

import (
	"fmt"

	"bridle/internal/protocol"
	"bridle/internal/ui"
)

type WaitCmd struct {
	Selector string `arg:"" optional:"" help:"CSS selector to wait for"`
	Timeout  int    `help:"Budget in milliseconds" default:"0"`
}

func (c *WaitCmd) Run(g *Globals) error {
	if c.Selector == "" && c.Timeout <= 0 {
		return fmt.Errorf("nothing to wait for: give a selector or --timeout")
	}
	cmd := &protocol.Command{
		Action:    protocol.ActionWait,
		Selector:  c.Selector,
		TimeoutMS: c.Timeout,
	}
	if _, err := runCommand(g, cmd); err != nil {
		return err
	}
	if c.Selector != "" {
		ui.PrintSuccess(fmt.Sprintf("%s is visible", c.Selector))
	} else {
		ui.PrintSuccess(fmt.Sprintf("Waited %dms", c.Timeout))
	}
	return nil
}
