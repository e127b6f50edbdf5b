package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/posener/complete"
	"github.com/willabides/kongplete"
)

var version = "dev"

// Globals are flags shared by every command.
type Globals struct {
	Session string `help:"Session name" short:"s" env:"BRIDLE_SESSION"`
}

type CLI struct {
	Globals

	Start  StartCmd  `cmd:"" help:"Start the session daemon"`
	Stop   StopCmd   `cmd:"" help:"Stop the session daemon"`
	Status StatusCmd `cmd:"" help:"Show session status"`

	Open    OpenCmd    `cmd:"" help:"Navigate to a URL"`
	Back    BackCmd    `cmd:"" help:"Go back in history"`
	Forward ForwardCmd `cmd:"" help:"Go forward in history"`
	Reload  ReloadCmd  `cmd:"" help:"Reload the current page"`

	Click  ClickCmd  `cmd:"" help:"Click an element by ref"`
	Hover  HoverCmd  `cmd:"" help:"Hover an element by ref"`
	Type   TypeCmd   `cmd:"" help:"Type text into an element by ref"`
	Press  PressCmd  `cmd:"" help:"Press a key"`
	Scroll ScrollCmd `cmd:"" help:"Scroll the page"`
	Wait   WaitCmd   `cmd:"" help:"Wait for a selector or a fixed time"`
	Get    GetCmd    `cmd:"" help:"Get a page property (url, title, text)"`

	Snapshot   SnapshotCmd   `cmd:"" help:"Take an accessibility snapshot with element refs"`
	Screenshot ScreenshotCmd `cmd:"" help:"Capture a screenshot"`
	Devices    DevicesCmd    `cmd:"" help:"List available devices"`
	Close      CloseCmd      `cmd:"" help:"Close the session"`

	Logs    LogsCmd    `cmd:"" help:"Show session daemon logs"`
	Version VersionCmd `cmd:"" help:"Show version"`

	InstallCompletions kongplete.InstallCompletions `cmd:"" help:"Install shell completions"`
}

func main() {
	cli := CLI{}
	parser := kong.Must(&cli,
		kong.Name("bridle"),
		kong.Description("Drive a browser or device session from the command line"),
		kong.UsageOnError(),
		kong.Bind(&cli.Globals),
	)

	kongplete.Complete(parser,
		kongplete.WithPredictor("file", complete.PredictFiles("*")),
	)

	ctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	if err := ctx.Run(); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			if exitErr.Message != "" {
				fmt.Fprintf(os.Stderr, "Error: %s\n", exitErr.Message)
			}
			os.Exit(exitErr.Code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitError)
	}
}
