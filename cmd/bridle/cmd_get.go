package main

import (
	"fmt"

	"bridle/internal/protocol"
	"bridle/internal/ui"
)

type GetCmd struct {
	What string `arg:"" enum:"url,title,text" help:"Property to read"`
}

func (c *GetCmd) Run(g *Globals) error {
	data, err := runCommand(g, &protocol.Command{Action: protocol.ActionGet, What: c.What})
	if err != nil {
		return err
	}
	// Raw value only, so output composes with shell pipelines.
	fmt.Fprintln(ui.Output, stringVal(data, c.What))
	return nil
}
