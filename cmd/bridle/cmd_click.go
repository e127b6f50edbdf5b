package main

import (
	"fmt"

	"bridle/internal/protocol"
	"bridle/internal/ui"
)

type ClickCmd struct {
	Ref string `arg:"" help:"Element ref from a snapshot (e12, @e12 or ref=e12)"`
}

func (c *ClickCmd) Run(g *Globals) error {
	if _, err := runCommand(g, &protocol.Command{Action: protocol.ActionClick, Ref: c.Ref}); err != nil {
		return err
	}
	ui.PrintSuccess(fmt.Sprintf("Clicked %s", c.Ref))
	return nil
}

type HoverCmd struct {
	Ref string `arg:"" help:"Element ref from a snapshot"`
}

func (c *HoverCmd) Run(g *Globals) error {
	if _, err := runCommand(g, &protocol.Command{Action: protocol.ActionHover, Ref: c.Ref}); err != nil {
		return err
	}
	ui.PrintSuccess(fmt.Sprintf("Hovering %s", c.Ref))
	return nil
}
