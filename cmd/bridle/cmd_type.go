package main

import (
	"fmt"

	"bridle/internal/protocol"
	"bridle/internal/ui"
)

type TypeCmd struct {
	Ref    string `arg:"" help:"Element ref from a snapshot"`
	Text   string `arg:"" help:"Text to type"`
	Submit bool   `help:"Press Enter after typing"`
}

func (c *TypeCmd) Run(g *Globals) error {
	cmd := &protocol.Command{
		Action: protocol.ActionType,
		Ref:    c.Ref,
		Text:   c.Text,
		Submit: c.Submit,
	}
	if _, err := runCommand(g, cmd); err != nil {
		return err
	}
	ui.PrintSuccess(fmt.Sprintf("Typed into %s", c.Ref))
	return nil
}

type PressCmd struct {
	Key string `arg:"" help:"Key name (Enter, Tab, Escape, ArrowDown, ...)"`
}

func (c *PressCmd) Run(g *Globals) error {
	if _, err := runCommand(g, &protocol.Command{Action: protocol.ActionPress, Key: c.Key}); err != nil {
		return err
	}
	ui.PrintSuccess(fmt.Sprintf("Pressed %s", c.Key))
	return nil
}
