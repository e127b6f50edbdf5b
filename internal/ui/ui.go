// Package ui provides formatted output utilities for the CLI.
package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// Color functions for consistent styling.
var (
	Green  = color.New(color.FgGreen).SprintFunc()
	Red    = color.New(color.FgRed).SprintFunc()
	Yellow = color.New(color.FgYellow).SprintFunc()
	Blue   = color.New(color.FgBlue).SprintFunc()
	Cyan   = color.New(color.FgCyan).SprintFunc()
	Dim    = color.New(color.Faint).SprintFunc()
	Bold   = color.New(color.Bold).SprintFunc()
)

// Output is the destination for UI output.
// Defaults to os.Stdout but can be overridden for testing.
var Output io.Writer = os.Stdout

// StatusBadge returns a colored status indicator with label.
func StatusBadge(running, stale bool) string {
	switch {
	case running:
		return Green("● Running")
	case stale:
		return Yellow("○ Stale")
	default:
		return Red("○ Not Running")
	}
}

// SessionStatus holds the fields PrintStatus displays for one session.
type SessionStatus struct {
	Session  string
	Running  bool
	Stale    bool
	PID      int
	Provider string
	URL      string
	Title    string
	Endpoint string
	LogPath  string
}

// PrintStatus prints session status in a formatted style.
func PrintStatus(s SessionStatus) {
	fmt.Fprintf(Output, "%s %s\n", Bold("Session:"), Cyan(s.Session))
	fmt.Fprintf(Output, "%s %s\n", Bold("Status:"), StatusBadge(s.Running, s.Stale))

	if s.PID > 0 && s.Running {
		fmt.Fprintf(Output, "%s %d\n", Bold("PID:"), s.PID)
	}
	if s.Provider != "" {
		fmt.Fprintf(Output, "%s %s\n", Bold("Provider:"), s.Provider)
	}
	if s.URL != "" {
		fmt.Fprintf(Output, "%s %s\n", Bold("URL:"), Blue(s.URL))
	}
	if s.Title != "" {
		fmt.Fprintf(Output, "%s %s\n", Bold("Title:"), s.Title)
	}
	if s.Endpoint != "" {
		fmt.Fprintf(Output, "%s %s\n", Bold("Endpoint:"), Blue(s.Endpoint))
	}
	fmt.Fprintf(Output, "%s %s\n", Bold("Logs:"), s.LogPath)
}

// DeviceInfo represents one simulator device for display.
type DeviceInfo struct {
	Name    string
	UDID    string
	State   string
	Runtime string
}

// PrintDeviceList prints available devices with formatting.
func PrintDeviceList(devices []DeviceInfo) {
	if len(devices) == 0 {
		fmt.Fprintln(Output, "No devices available.")
		return
	}

	fmt.Fprintln(Output, Bold("Available devices:"))
	for _, d := range devices {
		state := Dim(d.State)
		if d.State == "Booted" {
			state = Green(d.State)
		}
		fmt.Fprintf(Output, "  %s %s %s\n", Cyan(d.Name), state, Dim(fmt.Sprintf("(%s, %s)", d.UDID, d.Runtime)))
	}
}

// PrintSuccess prints a success message with green checkmark.
func PrintSuccess(message string) {
	fmt.Fprintf(Output, "%s %s\n", Green("✓"), message)
}

// PrintError prints an error message with red X.
func PrintError(message string) {
	fmt.Fprintf(Output, "%s %s\n", Red("✗"), message)
}

// PrintWarning prints a warning message with yellow exclamation.
func PrintWarning(message string) {
	fmt.Fprintf(Output, "%s %s\n", Yellow("⚠"), message)
}

// PrintInfo prints an info message with blue dot.
func PrintInfo(message string) {
	fmt.Fprintf(Output, "%s %s\n", Blue("•"), message)
}
