package main

import (
	"fmt"

	"bridle/internal/protocol"
	"bridle/internal/ui"
)

type OpenCmd struct {
	URL string `arg:"" help:"URL to navigate to"`
}

func (c *OpenCmd) Run(g *Globals) error {
	data, err := runCommand(g, &protocol.Command{Action: protocol.ActionNavigate, URL: c.URL})
	if err != nil {
		return err
	}
	ui.PrintSuccess(fmt.Sprintf("Opened %s", stringVal(data, "url")))
	return nil
}
