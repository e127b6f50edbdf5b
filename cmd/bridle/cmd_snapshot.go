package main

import (
	"fmt"

	"bridle/internal/protocol"
	"bridle/internal/ui"
)

type SnapshotCmd struct {
	InteractiveOnly bool   `short:"i" help:"Keep only interactive elements"`
	Cursor          bool   `help:"Also address cursor-interactive elements"`
	Compact         bool   `help:"Elide structural nodes with a single child path"`
	MaxDepth        int    `help:"Limit tree depth (0 = unlimited)"`
	Scope           string `help:"Root the snapshot at the first match of this selector"`
}

func (c *SnapshotCmd) Run(g *Globals) error {
	cmd := &protocol.Command{
		Action: protocol.ActionSnapshot,
		Snapshot: &protocol.SnapshotArgs{
			InteractiveOnly: c.InteractiveOnly,
			Cursor:          c.Cursor,
			Compact:         c.Compact,
			MaxDepth:        c.MaxDepth,
			Scope:           c.Scope,
		},
	}
	data, err := runCommand(g, cmd)
	if err != nil {
		return err
	}

	fmt.Fprint(ui.Output, stringVal(data, "snapshot"))
	return nil
}
