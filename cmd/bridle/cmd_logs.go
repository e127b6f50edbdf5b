package main

import (
	"fmt"
	"os"
	"os/exec"
)

type LogsCmd struct {
	Follow bool `short:"f" help:"Follow log output in real-time (tail -f)"`
}

func (c *LogsCmd) Run(g *Globals) error {
	_, paths, err := setup(g)
	if err != nil {
		return err
	}

	if _, err := os.Stat(paths.Log); os.IsNotExist(err) {
		return fmt.Errorf("log file not found: %s\nHint: Start the session first with 'bridle start'", paths.Log)
	}

	args := []string{}
	if c.Follow {
		args = append(args, "-f")
	}
	args = append(args, paths.Log)

	tail := exec.Command("tail", args...)
	tail.Stdout = os.Stdout
	tail.Stderr = os.Stderr
	return tail.Run()
}
