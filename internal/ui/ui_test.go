package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestStatusBadge(t *testing.T) {
	// Disable color for testing
	color.NoColor = true
	defer func() { color.NoColor = false }()

	tests := []struct {
		name     string
		running  bool
		stale    bool
		contains string
	}{
		{
			name:     "running",
			running:  true,
			contains: "● Running",
		},
		{
			name:     "stale pid file",
			stale:    true,
			contains: "○ Stale",
		},
		{
			name:     "not running",
			contains: "○ Not Running",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := StatusBadge(tt.running, tt.stale)
			if !strings.Contains(result, tt.contains) {
				t.Errorf("StatusBadge(%v, %v) = %q, want to contain %q", tt.running, tt.stale, result, tt.contains)
			}
		})
	}
}

func captureOutput(t *testing.T, fn func()) string {
	t.Helper()
	color.NoColor = true
	defer func() { color.NoColor = false }()

	var buf bytes.Buffer
	old := Output
	Output = &buf
	defer func() { Output = old }()

	fn()
	return buf.String()
}

func TestPrintStatusRunning(t *testing.T) {
	out := captureOutput(t, func() {
		PrintStatus(SessionStatus{
			Session:  "work",
			Running:  true,
			PID:      4242,
			Provider: "chrome",
			URL:      "https://example.com",
			Title:    "Example Domain",
			LogPath:  "/tmp/bridle/work/daemon.log",
		})
	})

	for _, want := range []string{"work", "● Running", "4242", "chrome", "https://example.com", "Example Domain", "daemon.log"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintStatusNotRunning(t *testing.T) {
	out := captureOutput(t, func() {
		PrintStatus(SessionStatus{Session: "default", LogPath: "/tmp/log"})
	})
	if !strings.Contains(out, "○ Not Running") {
		t.Errorf("output missing not-running badge:\n%s", out)
	}
	if strings.Contains(out, "PID:") {
		t.Errorf("output should omit PID when not running:\n%s", out)
	}
}

func TestPrintDeviceList(t *testing.T) {
	out := captureOutput(t, func() {
		PrintDeviceList([]DeviceInfo{
			{Name: "iPhone 15", UDID: "AAAA", State: "Booted", Runtime: "iOS 17.5"},
			{Name: "iPad Air", UDID: "BBBB", State: "Shutdown", Runtime: "iOS 17.5"},
		})
	})
	for _, want := range []string{"iPhone 15", "Booted", "AAAA", "iPad Air", "Shutdown"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintDeviceListEmpty(t *testing.T) {
	out := captureOutput(t, func() {
		PrintDeviceList(nil)
	})
	if !strings.Contains(out, "No devices available.") {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestPrintMessages(t *testing.T) {
	tests := []struct {
		name   string
		fn     func(string)
		prefix string
	}{
		{"success", PrintSuccess, "✓"},
		{"error", PrintError, "✗"},
		{"warning", PrintWarning, "⚠"},
		{"info", PrintInfo, "•"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := captureOutput(t, func() { tt.fn("hello") })
			if !strings.Contains(out, tt.prefix) || !strings.Contains(out, "hello") {
				t.Errorf("%s output = %q", tt.name, out)
			}
		})
	}
}
