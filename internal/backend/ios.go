package backend

import (
	"context"
	"encoding/json"
	"log/slog"
	"os/exec"
	"sort"

	"bridle/internal/protocol"
	"bridle/internal/ref"
)

// simulatorBackend drives the iOS simulator toolchain. It only
// answers inventory queries; page automation actions are rejected
// with an unsupported error.
type simulatorBackend struct {
	log *slog.Logger

	// listDevices is swappable for tests; the default shells out to
	// xcrun simctl.
	listDevices func(ctx context.Context) ([]byte, error)
}

func newSimulator(cfg Config) (*simulatorBackend, error) {
	return &simulatorBackend{
		log:         cfg.Logger,
		listDevices: simctlList,
	}, nil
}

func (b *simulatorBackend) Name() string { return "ios" }

func (b *simulatorBackend) Supports(action string) bool {
	switch action {
	case protocol.ActionDevices, protocol.ActionStatus:
		return true
	}
	return false
}

func (b *simulatorBackend) Dispatch(ctx context.Context, cmd *protocol.Command, _ *ref.Entry) (map[string]any, error) {
	switch cmd.Action {
	case protocol.ActionDevices:
		return b.devices(ctx)
	case protocol.ActionStatus:
		return map[string]any{"backend": b.Name()}, nil
	}
	return nil, Unsupported(b.Name(), cmd.Action)
}

func (b *simulatorBackend) Close(context.Context) error { return nil }

// Device is one simulator entry flattened from simctl output.
type Device struct {
	Name    string `json:"name"`
	UDID    string `json:"udid"`
	State   string `json:"state"`
	Runtime string `json:"runtime"`
}

func (b *simulatorBackend) devices(ctx context.Context) (map[string]any, error) {
	raw, err := b.listDevices(ctx)
	if err != nil {
		return nil, Errorf(protocol.KindBackend, "simctl: %v", err)
	}
	devices, err := parseSimctlDevices(raw)
	if err != nil {
		return nil, Errorf(protocol.KindBackend, "simctl output: %v", err)
	}
	b.log.Debug("listed simulator devices", "count", len(devices))
	return map[string]any{"devices": devices}, nil
}

func simctlList(ctx context.Context) ([]byte, error) {
	return exec.CommandContext(ctx, "xcrun", "simctl", "list", "devices", "--json").Output()
}

// parseSimctlDevices flattens simctl's runtime-keyed device map into
// a single list, sorted by runtime then name for stable output.
func parseSimctlDevices(raw []byte) ([]Device, error) {
	var payload struct {
		Devices map[string][]struct {
			Name  string `json:"name"`
			UDID  string `json:"udid"`
			State string `json:"state"`
		} `json:"devices"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	var out []Device
	for runtime, list := range payload.Devices {
		for _, d := range list {
			out = append(out, Device{
				Name:    d.Name,
				UDID:    d.UDID,
				State:   d.State,
				Runtime: runtime,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Runtime != out[j].Runtime {
			return out[i].Runtime < out[j].Runtime
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}
