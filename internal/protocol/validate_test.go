package protocol

import (
	"strings"
	"testing"
)

func TestValidateAcceptsEveryAction(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{name: "navigate", line: `{"id":"1","action":"navigate","url":"https://example.com"}`},
		{name: "back", line: `{"id":"1","action":"back"}`},
		{name: "forward", line: `{"id":"1","action":"forward"}`},
		{name: "reload", line: `{"id":"1","action":"reload"}`},
		{name: "click", line: `{"id":"1","action":"click","ref":"e3"}`},
		{name: "hover", line: `{"id":"1","action":"hover","ref":"e3"}`},
		{name: "type", line: `{"id":"1","action":"type","ref":"e2","text":"hello","submit":true}`},
		{name: "press", line: `{"id":"1","action":"press","key":"Enter"}`},
		{name: "scroll", line: `{"id":"1","action":"scroll","direction":"down","amount":400}`},
		{name: "wait selector", line: `{"id":"1","action":"wait","selector":"#done"}`},
		{name: "wait timeout", line: `{"id":"1","action":"wait","timeout_ms":500}`},
		{name: "get", line: `{"id":"1","action":"get","what":"title"}`},
		{name: "snapshot bare", line: `{"id":"1","action":"snapshot"}`},
		{name: "snapshot options", line: `{"id":"1","action":"snapshot","snapshot":{"interactive_only":true,"cursor":true,"compact":true,"max_depth":4,"scope":"#main"}}`},
		{name: "screenshot", line: `{"id":"1","action":"screenshot","path":"/tmp/x.png"}`},
		{name: "devices", line: `{"id":"1","action":"devices"}`},
		{name: "status", line: `{"id":"1","action":"status"}`},
		{name: "close", line: `{"id":"1","action":"close"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, verr := Validate([]byte(tt.line))
			if verr != nil {
				t.Fatalf("Validate() error = %v", verr)
			}
			if cmd.ID != "1" {
				t.Errorf("ID = %q, want %q", cmd.ID, "1")
			}
		})
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name      string
		line      string
		wantField string
	}{
		{name: "malformed json", line: `{"id":`, wantField: "json"},
		{name: "missing action", line: `{"id":"1"}`, wantField: "action"},
		{name: "unknown action", line: `{"id":"1","action":"teleport"}`, wantField: "action"},
		{name: "unknown field", line: `{"id":"1","action":"back","warp":9}`, wantField: "warp"},
		{name: "navigate without url", line: `{"id":"1","action":"navigate"}`, wantField: "url"},
		{name: "click without ref", line: `{"id":"1","action":"click"}`, wantField: "ref"},
		{name: "type without text", line: `{"id":"1","action":"type","ref":"e1"}`, wantField: "text"},
		{name: "press without key", line: `{"id":"1","action":"press"}`, wantField: "key"},
		{name: "scroll bad direction", line: `{"id":"1","action":"scroll","direction":"sideways"}`, wantField: "direction"},
		{name: "scroll negative amount", line: `{"id":"1","action":"scroll","direction":"up","amount":-1}`, wantField: "amount"},
		{name: "wait without anything", line: `{"id":"1","action":"wait"}`, wantField: "selector"},
		{name: "get bad target", line: `{"id":"1","action":"get","what":"cookies"}`, wantField: "what"},
		{name: "snapshot negative depth", line: `{"id":"1","action":"snapshot","snapshot":{"max_depth":-2}}`, wantField: "snapshot.max_depth"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, verr := Validate([]byte(tt.line))
			if verr == nil {
				t.Fatal("Validate() accepted, want rejection")
			}
			if verr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q (message: %s)", verr.Field, tt.wantField, verr.Message)
			}
			if !strings.Contains(verr.Error(), tt.wantField+":") {
				t.Errorf("Error() = %q, want %q prefix", verr.Error(), tt.wantField+":")
			}
		})
	}
}

func TestValidateRecoversIDOnFailure(t *testing.T) {
	cmd, verr := Validate([]byte(`{"id":"abc","action":"back","bogus":true}`))
	if verr == nil {
		t.Fatal("Validate() accepted, want rejection")
	}
	if cmd == nil || cmd.ID != "abc" {
		t.Errorf("recovered command = %+v, want ID abc", cmd)
	}
}

func TestNewIDUnique(t *testing.T) {
	seen := map[string]bool{}
	for attempt := 0; attempt < 100; attempt++ {
		id := NewID()
		if seen[id] {
			t.Fatalf("NewID() repeated %q", id)
		}
		seen[id] = true
	}
}
