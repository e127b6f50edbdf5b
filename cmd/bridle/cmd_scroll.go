package main

import (
	"fmt"

	"bridle/internal/protocol"
	"bridle/internal/ui"
)

type ScrollCmd struct {
	Direction string `arg:"" enum:"up,down,left,right" help:"Scroll direction"`
	Amount    int    `arg:"" optional:"" help:"Scroll distance in pixels"`
}

func (c *ScrollCmd) Run(g *Globals) error {
	cmd := &protocol.Command{
		Action:    protocol.ActionScroll,
		Direction: c.Direction,
		Amount:    c.Amount,
	}
	if _, err := runCommand(g, cmd); err != nil {
		return err
	}
	ui.PrintSuccess(fmt.Sprintf("Scrolled %s", c.Direction))
	return nil
}
