package main

import (
	"fmt"

	"bridle/internal/protocol"
	"bridle/internal/ui"
)

type ScreenshotCmd struct {
	Path string `arg:"" optional:"" predictor:"file" help:"Output file (default: temp file)"`
}

func (c *ScreenshotCmd) Run(g *Globals) error {
	data, err := runCommand(g, &protocol.Command{Action: protocol.ActionScreenshot, Path: c.Path})
	if err != nil {
		return err
	}
	ui.PrintSuccess(fmt.Sprintf("Saved to: %s", stringVal(data, "path")))
	return nil
}
