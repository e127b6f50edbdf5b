package main

import (
	"bridle/internal/protocol"
	"bridle/internal/ui"
)

type DevicesCmd struct{}

func (c *DevicesCmd) Run(g *Globals) error {
	data, err := runCommand(g, &protocol.Command{Action: protocol.ActionDevices})
	if err != nil {
		return err
	}

	var devices []ui.DeviceInfo
	if raw, ok := data["devices"].([]any); ok {
		for _, rd := range raw {
			if m, ok := rd.(map[string]any); ok {
				devices = append(devices, ui.DeviceInfo{
					Name:    stringVal(m, "name"),
					UDID:    stringVal(m, "udid"),
					State:   stringVal(m, "state"),
					Runtime: stringVal(m, "runtime"),
				})
			}
		}
	}
	ui.PrintDeviceList(devices)
	return nil
}
